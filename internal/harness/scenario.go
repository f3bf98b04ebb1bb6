package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/roach88/sfconnect/internal/filter"
	"github.com/roach88/sfconnect/internal/soql"
)

// Scenario defines a translation scenario: one filter, the columns it is
// compiled against, and assertions on the compiled output.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// ObjectType is the FROM target. Defaults to "User".
	ObjectType string `yaml:"object_type,omitempty"`

	// Attributes are the requested attributes. The unique and name
	// columns are always selected first.
	Attributes []string `yaml:"attributes,omitempty"`

	// Columns declares column types by tag (INTEGER, BOOLEAN, BLOB, ...).
	// Undeclared columns are VARCHAR.
	Columns map[string]string `yaml:"columns,omitempty"`

	// StrictBooleans drops an AND when either side is untranslatable.
	StrictBooleans bool `yaml:"strict_booleans,omitempty"`

	// Filter is the filter tree. Absent means no filter.
	Filter filter.Document `yaml:"filter"`

	// Assertions validate the compiled output.
	Assertions []Assertion `yaml:"assertions"`
}

// Assertion validates one aspect of a translation.
type Assertion struct {
	// Type specifies the assertion type:
	// - "where": the WHERE clause equals Value ("" for no clause)
	// - "query": the unencoded query equals Value
	// - "encoded": the URL-encoded query equals Value
	// - "complete": the translation completeness equals Want
	// - "matches": client-side evaluation against Record equals Want
	Type string `yaml:"type"`

	// Value is the expected text (where, query, encoded).
	Value string `yaml:"value,omitempty"`

	// Want is the expected flag (complete, matches).
	Want *bool `yaml:"want,omitempty"`

	// Record is the record evaluated by a matches assertion, keyed by
	// column name.
	Record map[string]any `yaml:"record,omitempty"`
}

// Assertion type constants.
const (
	AssertWhere    = "where"
	AssertQuery    = "query"
	AssertEncoded  = "encoded"
	AssertComplete = "complete"
	AssertMatches  = "matches"
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

// ParseScenario parses and validates one scenario document.
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

// LoadDir loads every *.yaml scenario in dir, sorted by file name.
func LoadDir(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no scenarios in %s", dir)
	}
	sort.Strings(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	for _, path := range paths {
		s, err := LoadScenario(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for column, tag := range s.Columns {
		if _, ok := soql.ParseType(tag); !ok {
			return fmt.Errorf("columns.%s: unknown type %q", column, tag)
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

	switch a.Type {
	case AssertWhere:
		// An empty value asserts that nothing was translated.
	case AssertQuery, AssertEncoded:
		if a.Value == "" {
			return fmt.Errorf("assertions[%d]: value is required for %s", index, a.Type)
		}
	case AssertComplete:
		if a.Want == nil {
			return fmt.Errorf("assertions[%d]: want is required for complete", index)
		}
	case AssertMatches:
		if a.Want == nil {
			return fmt.Errorf("assertions[%d]: want is required for matches", index)
		}
		if a.Record == nil {
			return fmt.Errorf("assertions[%d]: record is required for matches", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
