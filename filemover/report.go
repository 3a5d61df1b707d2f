package filemover

import (
	"time"

	"recmover/moverr"
)

// Status is the terminal state of one candidate within a run.
type Status string

const (
	StatusMoved          Status = "moved"
	StatusSkippedTrigger Status = "skipped"
	StatusWouldMove      Status = "would-move"
	StatusFailed         Status = "failed"
)

// Outcome records what happened to one candidate.
type Outcome struct {
	Path        string
	Destination string
	Size        int64
	Status      Status
	Err         error
}

// Kind classifies the failure, empty when the outcome did not fail.
func (o Outcome) Kind() string {
	return moverr.Kind(o.Err)
}

// Report summarizes a run.
type Report struct {
	Trigger  string
	DryRun   bool
	Started  time.Time
	Finished time.Time
	Outcomes []Outcome
	// Directories a dry run would have created.
	PlannedDirs []string
}

// Count returns how many outcomes ended in status.
func (r *Report) Count(status Status) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == status {
			n++
		}
	}
	return n
}

// Failures returns the failed outcomes in run order.
func (r *Report) Failures() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.Status == StatusFailed {
			out = append(out, o)
		}
	}
	return out
}

// BytesMoved totals the size of every moved file.
func (r *Report) BytesMoved() int64 {
	var n int64
	for _, o := range r.Outcomes {
		if o.Status == StatusMoved {
			n += o.Size
		}
	}
	return n
}
