package main

import (
	"fmt"
	"os"

	"github.com/celer-network/goutils/log"
	"github.com/spf13/cobra"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "revnetfee",
	Short: "Estimate the native fee a revnet sucker needs to bridge tokens",
	Long: `revnetfee finds the smallest fee sucker.toRemote accepts by dry-running the
call against an RPC and binary searching between zero and a fee cap.

Run "revnetfee probe" for a one-off estimate, or "revnetfee serve" to expose
estimates for several chains over HTTP.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		log.SetLevelByName(logLevel)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: trace, debug, info, warn or error")
	rootCmd.AddCommand(probeCmd, serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
