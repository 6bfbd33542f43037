package conf

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"path/filepath"
	"strings"

	z "github.com/Oudwins/zog"
)

type Config struct {
	Version   string          `json:"-"`
	Server    ServerConfig    `json:"server"`
	Search    SearchConfig    `json:"search"`
	Screening ScreeningConfig `json:"screening"`
	Pubmed    PubmedConfig    `json:"pubmed"`
}

type ServerConfig struct {
	DataDir string `json:"data_dir"`
}

type SearchConfig struct {
	MaxResults int `json:"max_results"`
	TopN       int `json:"top_n"`
}

type ScreeningConfig struct {
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
}

type PubmedConfig struct {
	ExcludeReviews   bool `json:"exclude_reviews"`
	FreeFullTextOnly bool `json:"free_full_text_only"`
	FetchBatchSize   int  `json:"fetch_batch_size"`
}

var serverSchema = z.Struct(z.Shape{
	"DataDir": z.String().Default("~/.seq2func").Transform(expandPathTransform),
})

var searchSchema = z.Struct(z.Shape{
	"MaxResults": z.Int().Default(200).GTE(1).LTE(1000),
	"TopN":       z.Int().Default(20).GTE(1).LTE(100),
})

var screeningSchema = z.Struct(z.Shape{
	"Model":       z.String().Default("meta-llama/Llama-3.3-70B-Instruct"),
	"Temperature": z.Float64().Default(0.1),
})

var pubmedSchema = z.Struct(z.Shape{
	"ExcludeReviews":   z.Bool().Default(true),
	"FreeFullTextOnly": z.Bool().Default(true),
	"FetchBatchSize":   z.Int().Default(200).GTE(1).LTE(200),
})

var ConfigSchema = z.Struct(z.Shape{
	"server":    serverSchema,
	"search":    searchSchema,
	"screening": screeningSchema,
	"pubmed":    pubmedSchema,
})

var config *Config

func GetConfig() *Config {
	if config == nil {
		defaults := &Config{}
		if err := ConfigSchema.Parse(map[string]any{}, defaults); err != nil {
			log.Fatal("[seq2func] Failed to parse config", err)
		}
		defaults.Version = "0.1.0"

		dataDir, err := expandPath(defaults.Server.DataDir)
		if err != nil {
			log.Fatal("[seq2func] Failed to expand config data dir", err)
		}

		configPath := filepath.Join(filepath.Clean(dataDir), "seq2func.json")
		data, err := os.ReadFile(configPath)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				config = defaults
				return config
			}
			log.Fatal("[seq2func] Failed to read config file", err)
		}
		if strings.TrimSpace(string(data)) == "" {
			config = defaults
			return config
		}

		var payload map[string]any
		if err := json.Unmarshal(data, &payload); err != nil {
			log.Fatal("[seq2func] Failed to parse config file", err)
		}
		parsed := &Config{}
		if err := ConfigSchema.Parse(payload, parsed); err != nil {
			log.Fatal("[seq2func] Failed to parse config", err)
		}
		parsed.Version = defaults.Version
		config = parsed
	}

	return config
}

func expandPathTransform(ptr *string, c z.Ctx) error {
	expanded, err := expandPath(*ptr)
	*ptr = expanded
	return err
}

func expandPath(path string) (string, error) {
	if path == "" {
		return path, nil
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		if path == "~" {
			return home, nil
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~/")), nil
	}
	return path, nil
}
