// Command fixcli drives one client-side FIX 4.4 connection: dial,
// logon, exchange application messages through the admin REST surface
// or the NATS broker, and report status.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCodeOf(err))
	}
}
