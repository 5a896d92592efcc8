// Package metrics provides lightweight throughput accounting for the
// training loop.
package metrics

import "time"

// Window accumulates step stats between progress lines.
type Window struct {
	samples  int
	elapsed  time.Duration
	steps    int
	lastLoss float64
}

// Record adds a new measurement to the window.
func (w *Window) Record(batchSize int, stepTime time.Duration, loss float64) {
	w.samples += batchSize
	w.elapsed += stepTime
	w.steps++
	w.lastLoss = loss
}

// Snapshot returns aggregated metrics and resets the window.
func (w *Window) Snapshot() Snapshot {
	snap := Snapshot{LastLoss: w.lastLoss}
	if w.elapsed > 0 {
		snap.ExamplesPerSec = float64(w.samples) / w.elapsed.Seconds()
	}
	if w.steps > 0 {
		snap.AvgStepMS = (w.elapsed.Seconds() * 1000) / float64(w.steps)
	}

	w.samples = 0
	w.elapsed = 0
	w.steps = 0
	return snap
}

// Snapshot represents loggable metrics.
type Snapshot struct {
	ExamplesPerSec float64
	AvgStepMS      float64
	LastLoss       float64
}
