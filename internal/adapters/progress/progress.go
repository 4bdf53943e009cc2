// Package progress renders scan checkpoints for a terminal or a log.
package progress

import (
	"io"
	"sync"

	"github.com/pterm/pterm"
	"go.uber.org/zap"
)

// Bar is a pterm progress bar driven by percentage checkpoints
type Bar struct {
	pb      *pterm.ProgressbarPrinter
	mu      sync.Mutex
	writer  io.Writer
	started bool
}

// NewBar creates a bar that starts on the first checkpoint. A nil writer
// renders to the terminal.
func NewBar(writer io.Writer) *Bar {
	return &Bar{writer: writer}
}

// Progress moves the bar to percent and shows text as its title
func (b *Bar) Progress(percent int, text string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.started {
		printer := pterm.DefaultProgressbar.
			WithTotal(100).
			WithTitle(text).
			WithRemoveWhenDone(true)
		if b.writer != nil {
			printer = printer.WithWriter(b.writer)
		}
		pb, err := printer.Start()
		if err != nil {
			return
		}
		b.pb = pb
		b.started = true
	}

	if percent > b.pb.Current {
		b.pb.Add(percent - b.pb.Current)
	}
	b.pb.UpdateTitle(text)
}

// Done completes and removes the bar
func (b *Bar) Done() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.pb == nil {
		return
	}
	if b.pb.Current < b.pb.Total {
		b.pb.Add(b.pb.Total - b.pb.Current)
	}
	_, _ = b.pb.Stop()
	b.pb = nil
	b.started = false
}

// Current returns the last rendered percentage
func (b *Bar) Current() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pb == nil {
		return 0
	}
	return b.pb.Current
}

// LogReporter writes checkpoints to a zap logger, for non-interactive runs
type LogReporter struct {
	logger *zap.Logger
}

// NewLogReporter creates a new LogReporter
func NewLogReporter(logger *zap.Logger) *LogReporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogReporter{logger: logger}
}

// Progress logs a checkpoint
func (r *LogReporter) Progress(percent int, text string) {
	r.logger.Info(text, zap.Int("percent", percent))
}

// Done logs completion
func (r *LogReporter) Done() {
	r.logger.Info("Scan finished", zap.Int("percent", 100))
}
