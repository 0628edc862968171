// SPDX-License-Identifier: GPL-2.0-or-later
//
// Brickctl - Brick stack control and flashing tool
//
// A CLI tool for enumerating, monitoring and flashing Bricks and
// Bricklets through a gateway daemon.

package main

import (
	"os"

	"brickctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
