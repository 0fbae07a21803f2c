package main

import (
	"encoding/json"
	"errors"

	"github.com/spf13/cobra"

	dbdriver "dbstudio"
	"dbstudio/cmd/service/internal/config"
	"dbstudio/cmd/service/internal/connections"
)

func newQueryCmd() *cobra.Command {
	var (
		ref  string
		conn dbdriver.ConnectionConfig
		tx   bool
	)
	cmd := &cobra.Command{
		Use:   "query <statement>...",
		Short: "Run statements against a connection and print the results as JSON",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if ref != "" {
				if hasInlineConnection(conn) {
					return errors.New("use either --ref or connection flags, not both")
				}
				database, store, err := openStore(cfg)
				if err != nil {
					return err
				}
				defer func() { _ = database.Close() }()
				if err := requireStore(store); err != nil {
					return err
				}
				conn, err = connections.NewResolver(store).ResolveByRef(cmd.Context(), ref)
				if err != nil {
					return err
				}
			}

			drv, err := driverFactory(cfg)(conn)
			if err != nil {
				return err
			}
			defer drv.Close()

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if tx || len(args) > 1 {
				results, err := drv.Transaction(cmd.Context(), args)
				if err != nil {
					return err
				}
				return enc.Encode(results)
			}
			rs, err := drv.Query(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return enc.Encode(rs)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&ref, "ref", "", "saved connection id")
	flags.StringVar((*string)(&conn.Driver), "driver", "", "driver kind (rqlite, valtown, cloudflare-d1, starbase, cloudflare-wae, turso)")
	flags.StringVar(&conn.URL, "url", "", "database URL")
	flags.StringVar(&conn.Token, "token", "", "auth token")
	flags.StringVar(&conn.Username, "username", "", "username or Cloudflare account id")
	flags.StringVar(&conn.Password, "password", "", "password")
	flags.StringVar(&conn.Database, "database", "", "database id")
	flags.BoolVar(&tx, "tx", false, "run the statements as one transaction")
	return cmd
}
