package migration

import (
	"errors"
	"fmt"
	"time"
)

// Status is the outcome of a single migration step
type Status string

const (
	StatusDone    Status = "done"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
	// StatusPending is reported by dry runs for steps that would execute.
	StatusPending Status = "pending"
)

// StepResult describes what one step did
type StepResult struct {
	Kind    string // rename, create_table, add_column, ...
	Target  string
	Status  Status
	Message string
	Err     error
}

// String renders a report line, e.g. "[done] rename wp_quiz_users: renamed to wp_qcm_quiz_users"
func (s StepResult) String() string {
	return fmt.Sprintf("[%s] %s %s: %s", s.Status, s.Kind, s.Target, s.Message)
}

// Report collects step results of a forward run or rollback
type Report struct {
	Rollback bool
	DryRun   bool
	Started  time.Time
	Finished time.Time
	Steps    []StepResult
}

func (r *Report) add(s StepResult) {
	r.Steps = append(r.Steps, s)
}

// Count returns the number of steps with the given status
func (r *Report) Count(status Status) int {
	n := 0
	for _, s := range r.Steps {
		if s.Status == status {
			n++
		}
	}
	return n
}

// Err joins the errors of all failed steps; nil when nothing failed
func (r *Report) Err() error {
	var errs []error
	for _, s := range r.Steps {
		if s.Status == StatusFailed {
			errs = append(errs, fmt.Errorf("%s %s: %w", s.Kind, s.Target, s.Err))
		}
	}
	return errors.Join(errs...)
}

// Lines renders every step for display
func (r *Report) Lines() []string {
	lines := make([]string, 0, len(r.Steps))
	for _, s := range r.Steps {
		lines = append(lines, s.String())
	}
	return lines
}

// Duration is the wall time of the run
func (r *Report) Duration() time.Duration {
	return r.Finished.Sub(r.Started)
}
