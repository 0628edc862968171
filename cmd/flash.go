// SPDX-License-Identifier: GPL-2.0-or-later

package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"brickctl/internal/util"
	"brickctl/pkg/devices"
	"brickctl/pkg/flash"
	"brickctl/pkg/ipcon"
)

var (
	flashFamily  string
	flashTimeout int
)

var flashCmd = &cobra.Command{
	Use:   "flash <uid> <firmware-file>",
	Short: "Flash firmware onto a Brick or Bricklet",
	Long: `Write a firmware image to the device with the given UID.

The firmware file may be a raw binary, a .zbin container, or an Intel
HEX file (.hex). The bootloader family is detected by enumerating the
stack first; pass --family to skip detection and force a protocol.

Classic Bricklets are flashed through their parent Brick; the parent and
port are taken from the enumeration response.

Examples:
  # Flash a co-processor Bricklet
  brickctl flash xyZ bricklet_temperature_v2_firmware_2_0_5.zbin

  # Force the TNG protocol without enumerating
  brickctl flash aBc firmware.bin --family tng

Exit codes:
  0 - Firmware written and verified
  1 - Flash failed
  2 - Connection error`,
	Args: cobra.ExactArgs(2),
	RunE: runFlash,
}

func init() {
	rootCmd.AddCommand(flashCmd)
	flashCmd.Flags().StringVar(&flashFamily, "family", "", "Force bootloader family: classic, comcu or tng")
	flashCmd.Flags().IntVar(&flashTimeout, "timeout", 3, "Seconds to wait for enumerate responses during detection")
}

func runFlash(cmd *cobra.Command, args []string) error {
	uid, firmwarePath := args[0], args[1]

	image, err := flash.LoadFirmware(firmwarePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Firmware load error: %v\n", err)
		os.Exit(1)
	}

	conn, connInfo, err := openConnection()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Printf("Brickctl - Firmware Flash\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Device: %s\n", uid)
	fmt.Printf("Firmware: %s (%d bytes)\n\n", firmwarePath, len(image))

	family, parent, err := resolveTarget(conn, uid)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	util.LogInfo("Flashing %s via %s protocol", uid, family)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bar, _ := pterm.DefaultProgressbar.WithTotal(len(image)).WithTitle("Flashing").Start()
	progress := func(p flash.Progress) {
		if p.Phase == flash.PhaseWriting && p.Written > bar.Current {
			bar.Add(p.Written - bar.Current)
		}
	}

	written, err := flash.Flash(ctx, conn, family, uid, image, parent,
		flash.WithProgress(progress), flash.WithLogger(util.Leveled{}))
	bar.Stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Flash failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\nFlash complete: %d bytes written\n", written)
	return nil
}

// resolveTarget decides the bootloader family and, for classic Bricklets,
// the parent Brick and port. Detection enumerates the stack; --family
// overrides the detected family but classic targets still need the
// enumeration response to locate their parent.
func resolveTarget(conn *ipcon.Connection, uid string) (devices.Family, *flash.ClassicParent, error) {
	forced := devices.FamilyUnknown
	if flashFamily != "" {
		f, ok := devices.ParseFamily(flashFamily)
		if !ok {
			return devices.FamilyUnknown, nil, fmt.Errorf("unknown family %q (use classic, comcu or tng)", flashFamily)
		}
		forced = f
	}

	registry := devices.NewRegistry()
	conn.RegisterEnumerateCallback(registry.Apply)
	defer conn.RegisterEnumerateCallback(nil)

	if err := conn.Enumerate(); err != nil {
		return devices.FamilyUnknown, nil, fmt.Errorf("enumerate failed: %w", err)
	}
	time.Sleep(time.Duration(flashTimeout) * time.Second)

	info, ok := registry.Get(uid)
	if !ok {
		// Forced non-classic families talk to the device directly, so a
		// missing enumeration response is not fatal for them.
		if forced == devices.FamilyCOMCU || forced == devices.FamilyTNG {
			return forced, nil, nil
		}
		return devices.FamilyUnknown, nil, fmt.Errorf("device %s not found in stack", uid)
	}

	family := info.Family
	if forced != devices.FamilyUnknown {
		family = forced
	}

	var parent *flash.ClassicParent
	if family == devices.FamilyClassic {
		if info.ConnectedUID == "" || info.ConnectedUID == "0" {
			return devices.FamilyUnknown, nil, fmt.Errorf("device %s reports no parent Brick; classic flashing needs one", uid)
		}
		parent = &flash.ClassicParent{UID: info.ConnectedUID, Port: info.Position}
	}
	return family, parent, nil
}
