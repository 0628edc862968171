// SPDX-License-Identifier: Apache-2.0

package flash

import "time"

// Phase labels the stage a flash operation is in.
type Phase string

const (
	PhaseEnterBootloader Phase = "enter-bootloader"
	PhaseWriting         Phase = "writing"
	PhaseVerifying       Phase = "verifying"
	PhaseExitBootloader  Phase = "exit-bootloader"
	PhaseFinalizing      Phase = "finalizing"
	PhaseComplete        Phase = "complete"
)

// Progress reports a monotonically increasing byte counter for one flash
// operation. Callbacks must return quickly; they run on the flashing
// goroutine.
type Progress struct {
	Phase   Phase
	Written int // bytes written so far (monotonic within a phase)
	Total   int // bytes this operation will write
	Attempt int // 1-based outer attempt, for protocols that re-flash
}

// ProgressFunc receives Progress updates.
type ProgressFunc func(Progress)

// Logger is an optional logging interface matching the application's
// structured logging frontend.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Config holds the tunables of a flash operation. The defaults encode the
// timing the devices need; tests shrink the delays.
type Config struct {
	Progress     ProgressFunc
	Logger       Logger
	ChunkDelay   time.Duration // settle time after each classic chunk
	SettleDelay  time.Duration // settle time between classic write and verify
	PollInterval time.Duration // wait between bootloader mode polls
	PollAttempts int           // mode poll budget
}

func defaultConfig() Config {
	return Config{
		ChunkDelay:   15 * time.Millisecond,
		SettleDelay:  100 * time.Millisecond,
		PollInterval: 250 * time.Millisecond,
		PollAttempts: 10,
	}
}

// Option is a functional option for configuring a flash operation.
type Option func(*Config)

// WithProgress sets a progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(c *Config) { c.Progress = fn }
}

// WithLogger sets a logger for per-page diagnostics.
func WithLogger(logger Logger) Option {
	return func(c *Config) { c.Logger = logger }
}

// WithChunkDelay overrides the settle time after each classic plugin chunk.
func WithChunkDelay(d time.Duration) Option {
	return func(c *Config) {
		if d >= 0 {
			c.ChunkDelay = d
			c.SettleDelay = d
		}
	}
}

// WithPollInterval overrides the wait between bootloader mode polls.
func WithPollInterval(d time.Duration) Option {
	return func(c *Config) {
		if d >= 0 {
			c.PollInterval = d
		}
	}
}

func (c *Config) report(p Progress) {
	if c.Progress != nil {
		c.Progress(p)
	}
}

func (c *Config) logDebug(msg string, keysAndValues ...interface{}) {
	if c.Logger != nil {
		c.Logger.Debug(msg, keysAndValues...)
	}
}

func (c *Config) logInfo(msg string, keysAndValues ...interface{}) {
	if c.Logger != nil {
		c.Logger.Info(msg, keysAndValues...)
	}
}
