package main

import (
	"log"

	"github.com/seq2func/seq2func/internals/conf"
	"github.com/seq2func/seq2func/serverd/core"
	"github.com/seq2func/seq2func/serverd/server"
)

func main() {
	logger, logFile := core.InitLogger(conf.GetConfig())
	defer logFile.Close()

	instance := server.New()
	instance.Base.Logger = logger
	if err := instance.Start(); err != nil {
		log.Fatal("[seq2func] Failed to start server: ", err)
	}
}
