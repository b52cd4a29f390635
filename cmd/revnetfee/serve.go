package main

import (
	"github.com/celer-network/goutils/log"
	"github.com/revnet-network/revnet-sdk/service"
	"github.com/spf13/cobra"
)

var configPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve bridge fee estimates over HTTP",
	Long: `Starts an HTTP service estimating bridge fees for every chain in the config
file. See config.example.yaml for the available options.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := service.LoadConfig(configPath)
		if err != nil {
			return err
		}
		svc, err := service.NewService(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		log.Infof("serving %d chains", len(cfg.Chains))
		return svc.Serve()
	},
}

func init() {
	serveCmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the service config")
}
