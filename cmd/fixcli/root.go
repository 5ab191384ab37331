package main

import (
	"github.com/spf13/cobra"

	"github.com/fix44engine/fix44/internal/logging"
)

var configFile string
var logLevel string

var rootCmd = &cobra.Command{
	Use:   "fixcli",
	Short: "Drive and observe a client-side FIX 4.4 session",
	Long: `fixcli dials a FIX 4.4 counterparty, runs the session state machine,
and exposes the running connection through a REST admin surface, an
optional NATS broker, and Prometheus metrics.

Use "fixcli connect" to establish a session and "fixcli status" to query
a running one.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.SetLevel(logLevel)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to the connection config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(connectCmd)
	rootCmd.AddCommand(statusCmd)
}
