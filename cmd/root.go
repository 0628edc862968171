// SPDX-License-Identifier: GPL-2.0-or-later

package cmd

import (
	"github.com/spf13/cobra"

	"brickctl/internal/util"
)

var (
	// TCP connection flags
	host string
	port int

	// WebSocket connection flags
	wsURL         string
	wsNoSSLVerify bool

	// Authentication and diagnostics
	authenticate bool
	verbose      bool
)

var rootCmd = &cobra.Command{
	Use:   "brickctl",
	Short: "Brick stack control and flashing tool",
	Long: `Brickctl - a CLI tool for enumerating, monitoring and flashing Bricks
and Bricklets through a gateway daemon.

Connection modes:
  TCP:       --host localhost --port 4223
  WebSocket: --url ws://host:4280/

When the gateway daemon requires authentication, pass --auth; the secret is
read from the BRICKCTL_SECRET environment variable, or prompted interactively
if not set. A --secret flag is intentionally not provided to avoid leaking
credentials in shell history.`,
	Version: "1.0.0",
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		if verbose {
			util.EnableDebug()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&host, "host", "H", "localhost", "Gateway daemon host")
	rootCmd.PersistentFlags().IntVarP(&port, "port", "p", 4223, "Gateway daemon TCP port")

	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "WebSocket URL (ws:// or wss://)")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	rootCmd.PersistentFlags().BoolVar(&authenticate, "auth", false, "Authenticate against the gateway daemon")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show debug output")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
