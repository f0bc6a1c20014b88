package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/sobootstrap/internal/ir"
)

// Scenario defines a conformance test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario. Also names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Steps are evaluated in order against the reference evaluator.
	Steps []Step `yaml:"steps"`

	// Assertions check rendered bootstraps against the validator.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is one operator evaluation.
type Step struct {
	// Op is the operator name (e.g., "POW", "CAST").
	Op ir.OperatorCode `yaml:"op"`

	// Args are the operands. Refs may only name earlier steps.
	Args []ir.Operand `yaml:"args"`

	// Expect is the required outcome.
	Expect ExpectClause `yaml:"expect"`
}

// ExpectClause specifies a step's outcome: exactly one of Value or Error.
type ExpectClause struct {
	// Value is the expected result as a YAML scalar. Types must match:
	// 6 and "6" are different results. .nan matches NaN.
	Value any `yaml:"value,omitempty"`

	// Error is the expected contract error kind (e.g., "ARITY_MISMATCH").
	Error string `yaml:"error,omitempty"`
}

// Assertion validates rendered bootstraps.
type Assertion struct {
	// Type specifies the assertion type:
	// - "conformant": listed targets are accepted
	// - "excluded": listed targets are rejected with Reason
	Type string `yaml:"type"`

	// Targets are backend names.
	Targets []string `yaml:"targets"`

	// Indent and Prettify override ir.DefaultSettings for every target.
	Indent   *int  `yaml:"indent,omitempty"`
	Prettify *bool `yaml:"prettify,omitempty"`

	// Reason is the expected reason code (used by excluded).
	Reason string `yaml:"reason,omitempty"`
}

// Settings returns the emission settings the assertion asks for.
func (a Assertion) Settings() ir.Settings {
	s := ir.DefaultSettings()
	if a.Indent != nil {
		s.Indent = *a.Indent
	}
	if a.Prettify != nil {
		s.Prettify = *a.Prettify
	}
	return s
}

// Assertion type constants.
const (
	AssertConformant = "conformant"
	AssertExcluded   = "excluded"
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
	// Strict field validation catches typos like "assertion:" vs "assertions:"
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

	if len(s.Steps) == 0 && len(s.Assertions) == 0 {
		return fmt.Errorf("scenario needs steps or assertions")
	}

	for i, step := range s.Steps {
		if (step.Expect.Value == nil) == (step.Expect.Error == "") {
			return fmt.Errorf("steps[%d].expect: exactly one of value or error is required", i)
		}
		for j, arg := range step.Args {
			if arg.Ref != nil && (*arg.Ref < 0 || *arg.Ref >= i) {
				return fmt.Errorf("steps[%d].args[%d]: ref %d does not name an earlier step", i, j, *arg.Ref)
			}
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}
	if len(a.Targets) == 0 {
		return fmt.Errorf("assertions[%d]: targets list is required", index)
	}

	switch a.Type {
	case AssertConformant:
	case AssertExcluded:
		if a.Reason == "" {
			return fmt.Errorf("assertions[%d]: reason is required for excluded", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
