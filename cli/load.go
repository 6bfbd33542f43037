package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/seq2func/seq2func/internals/conf"
	"github.com/seq2func/seq2func/internals/kb"
)

func loadCmd() *cobra.Command {
	var dbPath string
	cmd := &cobra.Command{
		Use:   "load <dataset.json>",
		Short: "Import a genes/proteins JSON dataset into the knowledge base",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if dbPath == "" {
				dbPath = filepath.Join(conf.GetConfig().Server.DataDir, "kb", "kb.db")
			}
			if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
				return err
			}

			store, err := kb.Open(dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			count, err := store.LoadDataset(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("loaded %d genes into %s\n", count, dbPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "knowledge base path (defaults to the daemon's)")
	return cmd
}
