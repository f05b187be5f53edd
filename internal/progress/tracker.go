package progress

import (
	"fmt"
	"sync"
	"time"
)

// Status represents the progress of the current provisioning phase
type Status struct {
	Phase          string        // phase label, e.g. "buckets" or the bucket being filled
	TotalTasks     int64         // tasks submitted in the phase
	DoneTasks      int64         // tasks finished, successful or not
	SuccessTasks   int64         // tasks that succeeded
	FailedTasks    int64         // tasks that failed
	StartTime      time.Time     // start of the run
	PhaseStartTime time.Time     // start of the current phase
	LastUpdateTime time.Time     // last task completion
	Rate           float64       // tasks per second in the current phase
	ETA            time.Duration // estimated time until the phase completes
}

// Tracker tracks provisioning progress
type Tracker struct {
	mu     sync.RWMutex
	status Status
	now    func() time.Time
}

// NewTracker creates a new progress tracker
func NewTracker() *Tracker {
	t := &Tracker{now: time.Now}
	start := t.now()
	t.status = Status{
		StartTime:      start,
		PhaseStartTime: start,
		LastUpdateTime: start,
	}
	return t
}

// StartPhase resets the per-phase counters
func (t *Tracker) StartPhase(phase string, total int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	t.status.Phase = phase
	t.status.TotalTasks = total
	t.status.DoneTasks = 0
	t.status.SuccessTasks = 0
	t.status.FailedTasks = 0
	t.status.PhaseStartTime = now
	t.status.LastUpdateTime = now
	t.status.Rate = 0
	t.status.ETA = 0
}

// AddSuccess increments the successful task count
func (t *Tracker) AddSuccess() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.status.SuccessTasks++
	t.status.DoneTasks++
	t.update()
}

// AddFailed increments the failed task count
func (t *Tracker) AddFailed() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.status.FailedTasks++
	t.status.DoneTasks++
	t.update()
}

// update recalculates rate and ETA (must be called with lock held)
func (t *Tracker) update() {
	now := t.now()
	t.status.LastUpdateTime = now

	elapsed := now.Sub(t.status.PhaseStartTime)
	if elapsed <= 0 {
		return
	}
	t.status.Rate = float64(t.status.DoneTasks) / elapsed.Seconds()

	remaining := t.status.TotalTasks - t.status.DoneTasks
	if remaining <= 0 || t.status.Rate == 0 {
		t.status.ETA = 0
		return
	}
	t.status.ETA = time.Duration(float64(remaining) / t.status.Rate * float64(time.Second))
}

// GetStatus returns the current status (thread-safe)
func (t *Tracker) GetStatus() Status {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.status
}

// GetProgressPercent returns the progress of the current phase
func (t *Tracker) GetProgressPercent() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.status.TotalTasks == 0 {
		return 0
	}

	return float64(t.status.DoneTasks) / float64(t.status.TotalTasks) * 100
}

// FormatDuration formats duration in human readable format
func FormatDuration(d time.Duration) string {
	if d == 0 {
		return "calculating..."
	}

	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if hours > 0 {
		return fmt.Sprintf("%dh%dm%ds", hours, minutes, seconds)
	} else if minutes > 0 {
		return fmt.Sprintf("%dm%ds", minutes, seconds)
	}
	return fmt.Sprintf("%ds", seconds)
}
