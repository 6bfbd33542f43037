package cli

import (
	"github.com/spf13/cobra"

	"github.com/seq2func/seq2func/internals/conf"
	"github.com/seq2func/seq2func/serverd/core"
	"github.com/seq2func/seq2func/serverd/server"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the seq2funcd daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, logFile := core.InitLogger(conf.GetConfig())
			defer logFile.Close()

			instance := server.New()
			instance.Base.Logger = logger
			logger.Info("starting seq2funcd", "addr", instance.Base.Env.LISTEN_ADDR)
			return instance.Start()
		},
	}
}
