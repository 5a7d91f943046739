package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines one simulation test.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Types maps type name to inline type-definition source.
	Types map[string]string `yaml:"types,omitempty"`

	// TypesDir is a directory of type-definition files, relative to the
	// scenario file. Used when Types is empty.
	TypesDir string `yaml:"types_dir,omitempty"`

	// Root names the entity created at bootstrap.
	Root Root `yaml:"root"`

	// Seed seeds the host's rand() built-in.
	Seed uint64 `yaml:"seed,omitempty"`

	// StartTime is the simulated time before the first event.
	StartTime int64 `yaml:"start_time,omitempty"`

	// MaxSteps bounds interpreter steps for the whole run (0 = unlimited).
	MaxSteps uint64 `yaml:"max_steps,omitempty"`

	// MaxEvents bounds executed events (0 = unlimited).
	MaxEvents int64 `yaml:"max_events,omitempty"`

	// Assertions validate the trace and the outcome.
	Assertions []Assertion `yaml:"assertions"`
}

// Root names the bootstrap entity.
type Root struct {
	Type  string `yaml:"type"`
	Table string `yaml:"table"`
	Init  string `yaml:"init"`
}

// Assertion validates one property of a run.
type Assertion struct {
	// Type selects the check; see the Assert* constants.
	Type string `yaml:"type"`

	// Term is the event term (trace_contains, trace_count).
	Term string `yaml:"term,omitempty"`

	// EntityType restricts trace_contains and trace_count to one type.
	EntityType string `yaml:"entity_type,omitempty"`

	// Args, when set, must equal the event's arguments (trace_contains).
	Args []any `yaml:"args,omitempty"`

	// Terms is the expected relative order of terms (trace_order).
	Terms []string `yaml:"terms,omitempty"`

	// Count is the expected number of events (event_count, trace_count).
	Count *int64 `yaml:"count,omitempty"`

	// Time is the expected final simulated time (final_time).
	Time *int64 `yaml:"time,omitempty"`

	// Code is the expected runtime error code (error_code).
	Code string `yaml:"code,omitempty"`

	// Entity and Expect check entity fields after the run (entity_state).
	// Expect is a subset match.
	Entity int64          `yaml:"entity,omitempty"`
	Expect map[string]any `yaml:"expect,omitempty"`

	// Text must appear in the print() output (output_contains).
	Text string `yaml:"text,omitempty"`
}

// Assertion type constants.
const (
	AssertEventCount     = "event_count"
	AssertTraceContains  = "trace_contains"
	AssertTraceOrder     = "trace_order"
	AssertTraceCount     = "trace_count"
	AssertFinalTime      = "final_time"
	AssertErrorCode      = "error_code"
	AssertEntityState    = "entity_state"
	AssertOutputContains = "output_contains"
)

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected so typos fail loudly. A relative TypesDir is resolved against
// the scenario file's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	s, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if s.TypesDir != "" && !filepath.IsAbs(s.TypesDir) {
		s.TypesDir = filepath.Join(filepath.Dir(path), s.TypesDir)
	}
	if s.TypesDir != "" {
		if _, err := os.Stat(s.TypesDir); err != nil {
			return nil, fmt.Errorf("invalid scenario: types_dir: %w", err)
		}
	}
	return s, nil
}

// ParseScenario parses scenario YAML without touching the filesystem.
func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateScenario(&s); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &s, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Types) == 0 && s.TypesDir == "" {
		return fmt.Errorf("types or types_dir is required")
	}
	if len(s.Types) > 0 && s.TypesDir != "" {
		return fmt.Errorf("types and types_dir are mutually exclusive")
	}
	if s.Root.Type == "" || s.Root.Table == "" || s.Root.Init == "" {
		return fmt.Errorf("root.type, root.table and root.init are required")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}
	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertEventCount:
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: non-negative count is required for event_count", index)
		}
	case AssertTraceContains:
		if a.Term == "" {
			return fmt.Errorf("assertions[%d]: term is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Terms) == 0 {
			return fmt.Errorf("assertions[%d]: terms list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Term == "" {
			return fmt.Errorf("assertions[%d]: term is required for trace_count", index)
		}
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: non-negative count is required for trace_count", index)
		}
	case AssertFinalTime:
		if a.Time == nil {
			return fmt.Errorf("assertions[%d]: time is required for final_time", index)
		}
	case AssertErrorCode:
		if a.Code == "" {
			return fmt.Errorf("assertions[%d]: code is required for error_code", index)
		}
	case AssertEntityState:
		if a.Entity <= 0 {
			return fmt.Errorf("assertions[%d]: positive entity is required for entity_state", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for entity_state", index)
		}
	case AssertOutputContains:
		if a.Text == "" {
			return fmt.Errorf("assertions[%d]: text is required for output_contains", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
