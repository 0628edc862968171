// SPDX-License-Identifier: GPL-2.0-or-later

package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"brickctl/internal/util"
	"brickctl/pkg/capture"
	"brickctl/pkg/devices"
	"brickctl/pkg/ipcon"
	"brickctl/pkg/wire"
)

var monitorRecordPath string

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Watch stack events until interrupted",
	Long: `Enumerate the stack and keep logging hotplug events (devices
appearing and disappearing) until Ctrl-C.

With --record, every inbound packet is additionally appended to a CBOR
capture file for offline analysis.

Examples:
  brickctl monitor
  brickctl monitor --record stack.cbor

Exit codes:
  0 - Interrupted by the user
  2 - Connection error`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	monitorCmd.Flags().StringVar(&monitorRecordPath, "record", "", "Append inbound packets to a CBOR capture file")
}

func runMonitor(cmd *cobra.Command, args []string) error {
	var opts []ipcon.Option

	if monitorRecordPath != "" {
		f, err := os.OpenFile(monitorRecordPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Capture file error: %v\n", err)
			os.Exit(2)
		}
		defer f.Close()

		writer := capture.NewWriter(f)
		var mu sync.Mutex
		opts = append(opts, ipcon.WithPacketTap(func(pkt *wire.Packet) {
			mu.Lock()
			defer mu.Unlock()
			if err := writer.Write(capture.NewRecord(pkt, time.Now())); err != nil {
				util.LogWarning("Capture write failed: %v", err)
			}
		}))
	}

	conn, connInfo, err := openConnection(opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Printf("Brickctl - Stack Monitor\n")
	fmt.Printf("Connection: %s\n", connInfo)
	if monitorRecordPath != "" {
		fmt.Printf("Recording: %s\n", monitorRecordPath)
	}
	fmt.Printf("Press Ctrl-C to stop\n\n")

	conn.RegisterEnumerateCallback(func(ev ipcon.EnumerateEvent) {
		family := devices.ClassifyFamily(ev.DeviceIdentifier)
		switch ev.EnumerationType {
		case ipcon.EnumerationTypeDisconnected:
			util.LogInfo("Disconnected: %s", ev.UID)
		case ipcon.EnumerationTypeConnected:
			util.LogInfo("Connected: %s (devid %d, %s, fw %s)",
				ev.UID, ev.DeviceIdentifier, family, versionString(ev.FirmwareVersion))
		default:
			util.LogInfo("Available: %s (devid %d, %s, fw %s)",
				ev.UID, ev.DeviceIdentifier, family, versionString(ev.FirmwareVersion))
		}
	})

	if err := conn.Enumerate(); err != nil {
		fmt.Fprintf(os.Stderr, "Enumerate failed: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	fmt.Printf("\nMonitor stopped\n")
	return nil
}
