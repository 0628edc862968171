// SPDX-License-Identifier: GPL-2.0-or-later

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"brickctl/pkg/devices"
)

var enumerateTimeout int

var enumerateCmd = &cobra.Command{
	Use:   "enumerate",
	Short: "List all devices in the connected stack",
	Long: `Broadcast an enumeration request and list every Brick and Bricklet
that answers within the timeout window.

The bootloader family column shows which flashing protocol the device
speaks (classic, comcu or tng); it is derived from the device identifier.

Examples:
  # Enumerate a local gateway daemon
  brickctl enumerate

  # Enumerate through a WebSocket gateway
  brickctl enumerate --url ws://gateway.local:4280/

Exit codes:
  0 - At least one device found
  1 - No devices responded
  2 - Connection error`,
	RunE: runEnumerate,
}

func init() {
	rootCmd.AddCommand(enumerateCmd)
	enumerateCmd.Flags().IntVar(&enumerateTimeout, "timeout", 3, "Seconds to wait for enumerate responses")
}

func runEnumerate(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := openConnection()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Printf("Brickctl - Stack Enumeration\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Timeout: %d seconds\n\n", enumerateTimeout)

	registry := devices.NewRegistry()
	conn.RegisterEnumerateCallback(registry.Apply)

	if err := conn.Enumerate(); err != nil {
		fmt.Fprintf(os.Stderr, "Enumerate failed: %v\n", err)
		os.Exit(2)
	}

	time.Sleep(time.Duration(enumerateTimeout) * time.Second)
	conn.RegisterEnumerateCallback(nil)

	entries := registry.List()
	if len(entries) == 0 {
		fmt.Printf("No devices responded. Check connection and device power.\n")
		os.Exit(1)
	}

	fmt.Printf("%-8s %-8s %-4s %-10s %-10s %-8s %s\n",
		"UID", "PARENT", "POS", "HW", "FW", "DEVID", "FAMILY")
	for _, info := range entries {
		fmt.Printf("%-8s %-8s %-4c %-10s %-10s %-8d %s\n",
			info.UID, info.ConnectedUID, info.Position,
			versionString(info.HardwareVersion), versionString(info.FirmwareVersion),
			info.DeviceIdentifier, info.Family)
	}

	fmt.Printf("\nDevices found: %d\n", len(entries))
	return nil
}

func versionString(v [3]uint8) string {
	return fmt.Sprintf("%d.%d.%d", v[0], v[1], v[2])
}
