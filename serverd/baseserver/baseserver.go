package baseserver

import (
	"log/slog"
	"os"

	"github.com/seq2func/seq2func/internals/conf"
	"github.com/seq2func/seq2func/internals/env"
)

type BaseServer struct {
	Config *conf.Config
	Env    *env.EnvStruct
	Logger *slog.Logger
}

func New() *BaseServer {
	env := env.Get()
	config := conf.GetConfig()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	return &BaseServer{
		Config: config,
		Env:    env,
		Logger: logger,
	}
}
