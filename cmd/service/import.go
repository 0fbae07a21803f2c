package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"dbstudio/cmd/service/internal/config"
	"dbstudio/cmd/service/internal/connections"
)

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.yaml>",
		Short: "Import saved connections from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			database, store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = database.Close() }()
			if err := requireStore(store); err != nil {
				return err
			}

			result, err := connections.ImportFile(cmd.Context(), store, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, name := range result.Created {
				fmt.Fprintf(out, "created %s\n", name)
			}
			for _, name := range result.Skipped {
				fmt.Fprintf(out, "skipped %s (already exists)\n", name)
			}
			return nil
		},
	}
}
