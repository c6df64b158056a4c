package harness

import "github.com/roach88/strata/internal/engine"

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall success: no step failed unexpectedly and every
	// assertion held.
	Pass bool `json:"pass"`

	// Value is the root's most recent resolved value.
	Value any `json:"value,omitempty"`

	// Tree is the final snapshot of the layer tree.
	Tree map[string]any `json:"tree"`

	// Events is the demo watcher log.
	Events []string `json:"events"`

	// Trace contains the journal entries of the run in order.
	Trace []engine.Entry `json:"trace"`

	// Fingerprint is the run's trace hash.
	Fingerprint string `json:"fingerprint"`

	// Errors contains assertion failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Events: []string{},
		Trace:  []engine.Entry{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Counts tallies trace entries by kind.
func (r *Result) Counts() map[string]int {
	counts := make(map[string]int)
	for _, e := range r.Trace {
		counts[string(e.Kind)]++
	}
	return counts
}
