package service

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"duty-planner/internal/metrics"
)

const (
	RunRollover  = "rollover"
	RunExpansion = "expansion"
	RunTemplate  = "template"
	RunRepair    = "repair"
)

// ItemFailure records one event or template a batch could not process.
type ItemFailure struct {
	Item  string `json:"item"`
	ID    uint   `json:"id,omitempty"`
	Day   string `json:"day,omitempty"`
	Error string `json:"error"`
}

// Report is what a batch returns instead of failing on partial errors.
type Report struct {
	RunID      string    `json:"run_id"`
	Kind       string    `json:"kind"`
	Now        time.Time `json:"now"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Created    int `json:"created"`
	Skipped    int `json:"skipped"`
	Rolled     int `json:"rolled"`
	Merged     int `json:"merged"`
	Resolved   int `json:"resolved"`
	Classified int `json:"classified"`
	Reconciled int `json:"reconciled"`
	Pruned     int `json:"pruned"`
	PrunedTags int `json:"pruned_tags"`
	Drift      int `json:"drift"`

	Failures []ItemFailure `json:"failures"`
}

func newReport(kind string, now time.Time) *Report {
	return &Report{
		RunID:     uuid.Must(uuid.NewV7()).String(),
		Kind:      kind,
		Now:       now,
		StartedAt: time.Now().UTC(),
		Failures:  []ItemFailure{},
	}
}

// Fail records a per-item failure.
func (r *Report) Fail(item string, id uint, day time.Time, err error) {
	f := ItemFailure{Item: item, ID: id, Error: err.Error()}
	if !day.IsZero() {
		f.Day = day.Format(time.DateOnly)
	}
	r.Failures = append(r.Failures, f)
}

// OK reports a run without failures.
func (r *Report) OK() bool { return len(r.Failures) == 0 }

// Merge folds a sub-run (e.g. one template expansion) into r.
func (r *Report) Merge(o *Report) {
	if o == nil {
		return
	}
	r.Created += o.Created
	r.Skipped += o.Skipped
	r.Rolled += o.Rolled
	r.Merged += o.Merged
	r.Resolved += o.Resolved
	r.Classified += o.Classified
	r.Reconciled += o.Reconciled
	r.Pruned += o.Pruned
	r.PrunedTags += o.PrunedTags
	r.Drift += o.Drift
	r.Failures = append(r.Failures, o.Failures...)
}

func (r *Report) finish() *Report {
	r.FinishedAt = time.Now().UTC()
	metrics.ObserveRun(r.Kind, r.StartedAt, len(r.Failures))
	metrics.AddItems(r.Kind, "created", r.Created)
	metrics.AddItems(r.Kind, "rolled", r.Rolled)
	metrics.AddItems(r.Kind, "merged", r.Merged)
	metrics.AddItems(r.Kind, "pruned", r.Pruned)
	metrics.AddItems(r.Kind, "reconciled", r.Reconciled)
	metrics.AddItems(r.Kind, "failed", len(r.Failures))
	return r
}

func (r *Report) String() string {
	return fmt.Sprintf("%s run %s on %s: created=%d rolled=%d merged=%d classified=%d reconciled=%d pruned=%d failures=%d",
		r.Kind, r.RunID, r.Now.Format(time.DateOnly), r.Created, r.Rolled, r.Merged, r.Classified, r.Reconciled, r.Pruned, len(r.Failures))
}
