// SPDX-License-Identifier: GPL-2.0-or-later

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.bug.st/serial"
)

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List local serial ports",
	Long: `List the serial ports on this machine. Useful for spotting the port
a locally attached stack's gateway daemon should be pointed at.`,
	RunE: runPorts,
}

func init() {
	rootCmd.AddCommand(portsCmd)
}

func runPorts(cmd *cobra.Command, args []string) error {
	ports, err := serial.GetPortsList()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to list serial ports: %v\n", err)
		os.Exit(2)
	}

	if len(ports) == 0 {
		fmt.Printf("No serial ports found\n")
		return nil
	}

	for _, port := range ports {
		fmt.Println(port)
	}
	return nil
}
