package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario drives one root layer through a sequence of steps and checks the
// result.
type Scenario struct {
	// Name uniquely identifies this scenario; it also names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Component names the root component in the demo catalog.
	Component string `yaml:"component"`

	// Store seeds the root layer's store.
	Store map[string]any `yaml:"store,omitempty"`

	// Args are passed to the root component.
	Args []any `yaml:"args,omitempty"`

	// Steps run in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final state.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one action against the layer tree.
type Step struct {
	// Action is one of resolve, set, merge, drain.
	Action string `yaml:"action"`

	// Layer addresses the target layer (see package docs). Empty is the root.
	Layer string `yaml:"layer,omitempty"`

	// Key and Value are used by set.
	Key   string `yaml:"key,omitempty"`
	Value any    `yaml:"value,omitempty"`

	// Values is used by merge.
	Values map[string]any `yaml:"values,omitempty"`

	// ExpectError, when set, requires the step to fail with an error
	// containing this text.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// Step action constants.
const (
	StepResolve = "resolve"
	StepSet     = "set"
	StepMerge   = "merge"
	StepDrain   = "drain"
)

// Assertion validates the final result.
type Assertion struct {
	// Type specifies the assertion type:
	// - "result": the root's latest resolved value equals Expect
	// - "store": Key read through Layer's store equals Expect
	// - "expr": Expr evaluates to true (see exprEnv for variables)
	// - "journal_count": entries of Kind number exactly Count
	// - "events": the demo watcher log equals Expect
	Type string `yaml:"type"`

	// Layer addresses the layer for store assertions.
	Layer string `yaml:"layer,omitempty"`

	// Key is the store key (store).
	Key string `yaml:"key,omitempty"`

	// Expect is the expected value (result, store, events).
	Expect any `yaml:"expect,omitempty"`

	// Expr is a boolean expr-lang expression (expr).
	Expr string `yaml:"expr,omitempty"`

	// Kind is the journal entry kind (journal_count).
	Kind string `yaml:"kind,omitempty"`

	// Count is the expected number of entries (journal_count).
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertResult       = "result"
	AssertStore        = "store"
	AssertExpr         = "expr"
	AssertJournalCount = "journal_count"
	AssertEvents       = "events"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict decoding catches typos like "assertion:" vs "assertions:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Component == "" {
		return fmt.Errorf("component is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}
	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, st *Step) error {
	switch st.Action {
	case StepResolve, StepDrain:
	case StepSet:
		if st.Key == "" {
			return fmt.Errorf("steps[%d]: key is required for set", index)
		}
	case StepMerge:
		if len(st.Values) == 0 {
			return fmt.Errorf("steps[%d]: values are required for merge", index)
		}
	case "":
		return fmt.Errorf("steps[%d]: action is required", index)
	default:
		return fmt.Errorf("steps[%d]: unknown action %q", index, st.Action)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case AssertResult, AssertEvents:
	case AssertStore:
		if a.Key == "" {
			return fmt.Errorf("assertions[%d]: key is required for store", index)
		}
	case AssertExpr:
		if a.Expr == "" {
			return fmt.Errorf("assertions[%d]: expr is required for expr", index)
		}
	case AssertJournalCount:
		if a.Kind == "" {
			return fmt.Errorf("assertions[%d]: kind is required for journal_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for journal_count", index)
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
