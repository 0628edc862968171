// SPDX-License-Identifier: GPL-2.0-or-later

// Package util holds small shared helpers for the CLI, chiefly the leveled
// logger the commands print through.
package util

import (
	"fmt"

	"github.com/pterm/pterm"
)

func init() {
	pterm.DefaultLogger.ShowTime = true
	pterm.DefaultLogger.TimeFormat = "02 Jan 15:04:05"
	pterm.DefaultLogger.MaxWidth = 1000
}

func LogDebug(format string, args ...interface{}) {
	pterm.DefaultLogger.Debug(fmt.Sprintf(format, args...))
}

func LogInfo(format string, args ...interface{}) {
	pterm.DefaultLogger.Info(fmt.Sprintf(format, args...))
}

func LogWarning(format string, args ...interface{}) {
	pterm.DefaultLogger.Warn(fmt.Sprintf(format, args...))
}

func LogError(format string, args ...interface{}) {
	pterm.DefaultLogger.Error(fmt.Sprintf(format, args...))
}

// EnableDebug configures the logger to show debug messages.
func EnableDebug() {
	pterm.DefaultLogger.Level = pterm.LogLevelDebug
}

// Leveled adapts the pterm logger to the key/value logging interfaces the
// protocol and flashing libraries accept.
type Leveled struct{}

func (Leveled) Debug(msg string, keysAndValues ...interface{}) {
	pterm.DefaultLogger.Debug(msg, pterm.DefaultLogger.Args(keysAndValues...))
}

func (Leveled) Info(msg string, keysAndValues ...interface{}) {
	pterm.DefaultLogger.Info(msg, pterm.DefaultLogger.Args(keysAndValues...))
}

func (Leveled) Error(msg string, keysAndValues ...interface{}) {
	pterm.DefaultLogger.Error(msg, pterm.DefaultLogger.Args(keysAndValues...))
}
