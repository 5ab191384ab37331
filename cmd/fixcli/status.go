package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/fix44engine/fix44/internal/cliout"
	"github.com/fix44engine/fix44/internal/config"
	"github.com/fix44engine/fix44/session"
)

var statusOutputJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Query a running connection's admin surface for its session status",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusOutputJSON, "json", false, "print the raw JSON response")
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	if !cfg.Admin.Enabled {
		return fmt.Errorf("fixcli: admin surface is not enabled in this connection's config")
	}

	resp, err := http.Get("http://" + cfg.Admin.Addr + "/status")
	if err != nil {
		return fmt.Errorf("fixcli: query status: %w", err)
	}
	defer resp.Body.Close()

	var snap session.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return fmt.Errorf("fixcli: decode status response: %w", err)
	}

	if statusOutputJSON {
		return json.NewEncoder(os.Stdout).Encode(snap)
	}
	return cliout.PrintSnapshot(os.Stdout, snap)
}
