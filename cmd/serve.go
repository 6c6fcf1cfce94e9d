package cmd

import (
	"github.com/spf13/cobra"

	"github.com/signalnine/martingale/internal/api"
)

var flagAddr string

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve simulations and scans over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			if flagAddr != "" {
				appCfg.Server.Addr = flagAddr
			}
			return api.NewServer(appCfg).ListenAndServe(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&flagAddr, "addr", "", "listen address (default from config, :8080)")
	return cmd
}
