package stack

import "time"

// Status is the progress of one operation.
type Status string

// Statuses.
const (
	StatusStarted   Status = "started"
	StatusRetrying  Status = "retrying"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Event reports progress on one resource.
type Event struct {
	URN      string
	Type     string
	Name     string
	Op       Op
	Status   Status
	Err      error
	Attempt  int
	Duration time.Duration
}

func (e Event) with(status Status, err error, attempt int, d time.Duration) Event {
	e.Status = status
	e.Err = err
	e.Attempt = attempt
	e.Duration = d
	return e
}
