package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
)

// Display periodically renders the tracker status
type Display struct {
	tracker  *Tracker
	interval time.Duration
	out      io.Writer
	stopCh   chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewDisplay creates a new progress display writing to out
func NewDisplay(tracker *Tracker, interval time.Duration, out io.Writer) *Display {
	return &Display{
		tracker:  tracker,
		interval: interval,
		out:      out,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start starts the progress display
func (d *Display) Start() {
	go d.displayLoop()
}

// Stop stops the display and waits for the final line to be written
func (d *Display) Stop() {
	d.stopOnce.Do(func() {
		close(d.stopCh)
		<-d.done
	})
}

func (d *Display) displayLoop() {
	defer close(d.done)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			fmt.Fprint(d.out, "\r"+d.render(d.tracker.GetStatus()))
		case <-d.stopCh:
			fmt.Fprintln(d.out, "\r"+d.renderFinal(d.tracker.GetStatus()))
			return
		}
	}
}

func (d *Display) render(status Status) string {
	percent := 0.0
	if status.TotalTasks > 0 {
		percent = float64(status.DoneTasks) / float64(status.TotalTasks) * 100
	}

	return fmt.Sprintf("%s %s %d/%d ok=%d failed=%d %.1f/s eta %s",
		status.Phase,
		generateProgressBar(percent, 30),
		status.DoneTasks, status.TotalTasks,
		status.SuccessTasks, status.FailedTasks,
		status.Rate,
		FormatDuration(status.ETA),
	)
}

func (d *Display) renderFinal(status Status) string {
	return fmt.Sprintf("%s done: ok=%d failed=%d, total time %s",
		status.Phase, status.SuccessTasks, status.FailedTasks,
		FormatDuration(time.Since(status.StartTime)))
}

// generateProgressBar generates a visual progress bar
func generateProgressBar(percent float64, width int) string {
	if percent > 100 {
		percent = 100
	}
	if percent < 0 {
		percent = 0
	}

	filled := int(percent * float64(width) / 100)
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)

	return fmt.Sprintf("[%s] %5.1f%%", bar, percent)
}

// IsTerminalSupported reports whether f is an interactive terminal
func IsTerminalSupported(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
