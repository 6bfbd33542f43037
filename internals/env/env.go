package env

import (
	"log"
	"strconv"

	z "github.com/Oudwins/zog"
	"github.com/Oudwins/zog/zenv"
	"github.com/joho/godotenv"
)

type EnvStruct struct {
	HOME            string `zog:"HOME"`
	PORT            int    `zog:"SEQ2FUNC_ENV_PORT"`
	NCBI_EMAIL      string `zog:"NCBI_EMAIL"`
	NCBI_API_KEY    string `zog:"NCBI_API_KEY"`
	NEBIUS_API_KEY  string `zog:"NEBIUS_API_KEY"`
	NEBIUS_BASE_URL string `zog:"NEBIUS_BASE_URL"`
	NEBIUS_MODEL    string `zog:"NEBIUS_MODEL"`
	LISTEN_ADDR     string
	BASE_URL        string
}

var env *EnvStruct

var EnvSchema = z.Struct(z.Shape{
	"HOME":            z.String(),
	"PORT":            z.Int().Default(8000),
	"NCBI_EMAIL":      z.String().Optional(),
	"NCBI_API_KEY":    z.String().Optional(),
	"NEBIUS_API_KEY":  z.String().Optional(),
	"NEBIUS_BASE_URL": z.String().Default("https://api.studio.nebius.ai/v1/"),
	"NEBIUS_MODEL":    z.String().Default("meta-llama/Llama-3.3-70B-Instruct"),
})

func Get() *EnvStruct {
	if env == nil {
		// Secrets usually live in a .env file during development.
		_ = godotenv.Load()

		env = &EnvStruct{}
		errs := EnvSchema.Parse(zenv.NewDataProvider(), env)
		if errs != nil {
			log.Fatal("[seq2func] Failed to parse environment variables", errs)
		}

		env.LISTEN_ADDR = "localhost:" + strconv.Itoa(env.PORT)
		env.BASE_URL = "http://" + env.LISTEN_ADDR
	}
	return env
}
