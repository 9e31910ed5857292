package harness

import (
	"bytes"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/roach88/txprop/internal/ir"
)

// Scenario is a scripted propagation flow.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Nodes names the simulated processes.
	Nodes []string `yaml:"nodes"`

	// IDs are handed out in order by begin steps.
	IDs []string `yaml:"ids"`

	// Steps run in order. Execution stops at the first unexpected outcome.
	Steps []Step `yaml:"steps"`

	// Assertions are evaluated after the steps.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one operation on one node.
type Step struct {
	Node string `yaml:"node"`
	Op   string `yaml:"op"`

	// Tx names the transaction ref the step acts on.
	Tx string `yaml:"tx,omitempty"`

	// Blob names the cookie or token ref an import consumes.
	Blob string `yaml:"blob,omitempty"`

	// To names the node an export cookie is addressed to.
	To string `yaml:"to,omitempty"`

	// From names the transaction ref whose native surface from_native imports.
	From string `yaml:"from,omitempty"`

	// Reason is the abort reason.
	Reason string `yaml:"reason,omitempty"`

	// As binds the step's result to a ref.
	As string `yaml:"as,omitempty"`

	// ExpectError is the error code the step must fail with.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// Operations.
const (
	OpBegin        = "begin"
	OpPromote      = "promote"
	OpExportCookie = "export_cookie"
	OpImportCookie = "import_cookie"
	OpExportToken  = "export_token"
	OpImportToken  = "import_token"
	OpFromNative   = "from_native"
	OpCommit       = "commit"
	OpAbort        = "abort"
	OpComplete     = "complete"
	OpDispose      = "dispose"
)

// Assertion validates the outcome of a scenario.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	Node   string   `yaml:"node,omitempty"`
	Tx     string   `yaml:"tx,omitempty"`
	Status string   `yaml:"status,omitempty"`
	State  string   `yaml:"state,omitempty"`
	Kinds  []string `yaml:"kinds,omitempty"`
	Refs   []string `yaml:"refs,omitempty"`
	Count  int      `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertStatus        = "status"
	AssertEvents        = "events"
	AssertState         = "state"
	AssertSameProxy     = "same_proxy"
	AssertDistinctProxy = "distinct_proxy"
	AssertRegistryLen   = "registry_len"
)

// stepShape lists the fields each operation requires.
var stepShape = map[string]struct {
	tx, blob, from, as bool
}{
	OpBegin:        {as: true},
	OpPromote:      {tx: true},
	OpExportCookie: {tx: true, as: true},
	OpImportCookie: {blob: true, as: true},
	OpExportToken:  {tx: true, as: true},
	OpImportToken:  {blob: true, as: true},
	OpFromNative:   {from: true, as: true},
	OpCommit:       {tx: true},
	OpAbort:        {tx: true},
	OpComplete:     {tx: true},
	OpDispose:      {tx: true},
}

// LoadScenario reads and parses a scenario YAML file.
// Unknown fields are rejected.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
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

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Nodes) == 0 {
		return fmt.Errorf("nodes list is required and must be non-empty")
	}
	for i, n := range s.Nodes {
		if n == "" || slices.Index(s.Nodes, n) != i {
			return fmt.Errorf("nodes[%d]: names must be non-empty and unique", i)
		}
	}
	for i, id := range s.IDs {
		if _, err := ir.ParseTxID(id); err != nil {
			return fmt.Errorf("ids[%d]: %w", i, err)
		}
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	bound := make(map[string]bool)
	begins := 0
	for i, step := range s.Steps {
		if err := validateStep(i, step, s.Nodes, bound); err != nil {
			return err
		}
		if step.Op == OpBegin {
			begins++
		}
	}
	if begins > len(s.IDs) {
		return fmt.Errorf("%d begin steps but only %d ids", begins, len(s.IDs))
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, a, s.Nodes, bound); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(i int, step Step, nodes []string, bound map[string]bool) error {
	if !slices.Contains(nodes, step.Node) {
		return fmt.Errorf("steps[%d]: unknown node %q", i, step.Node)
	}
	shape, ok := stepShape[step.Op]
	if !ok {
		return fmt.Errorf("steps[%d]: unknown op %q", i, step.Op)
	}
	refs := []struct {
		name     string
		value    string
		required bool
	}{
		{"tx", step.Tx, shape.tx},
		{"blob", step.Blob, shape.blob},
		{"from", step.From, shape.from},
	}
	for _, r := range refs {
		if r.required && r.value == "" {
			return fmt.Errorf("steps[%d]: %s requires %s", i, step.Op, r.name)
		}
		if r.value != "" && !bound[r.value] {
			return fmt.Errorf("steps[%d]: %s %q is not bound by an earlier step", i, r.name, r.value)
		}
	}
	if step.To != "" && !slices.Contains(nodes, step.To) {
		return fmt.Errorf("steps[%d]: unknown node %q in to", i, step.To)
	}
	if step.ExpectError != "" {
		if _, ok := ir.ParseErrorCode(step.ExpectError); !ok {
			return fmt.Errorf("steps[%d]: unknown error code %q", i, step.ExpectError)
		}
		if step.As != "" {
			return fmt.Errorf("steps[%d]: a failing step cannot bind %q", i, step.As)
		}
		return nil
	}
	if shape.as && step.As == "" {
		return fmt.Errorf("steps[%d]: %s requires as", i, step.Op)
	}
	if step.As != "" {
		if bound[step.As] {
			return fmt.Errorf("steps[%d]: ref %q is already bound", i, step.As)
		}
		bound[step.As] = true
	}
	return nil
}

func validateAssertion(i int, a Assertion, nodes []string, bound map[string]bool) error {
	needNode := func() error {
		if !slices.Contains(nodes, a.Node) {
			return fmt.Errorf("assertions[%d]: unknown node %q", i, a.Node)
		}
		return nil
	}
	needTx := func() error {
		if !bound[a.Tx] {
			return fmt.Errorf("assertions[%d]: tx %q is not bound", i, a.Tx)
		}
		return nil
	}

	switch a.Type {
	case AssertStatus:
		if err := needNode(); err != nil {
			return err
		}
		if a.Status == "" {
			return fmt.Errorf("assertions[%d]: status is required for status", i)
		}
		return needTx()
	case AssertEvents:
		if err := needNode(); err != nil {
			return err
		}
		return needTx()
	case AssertState:
		if a.State == "" {
			return fmt.Errorf("assertions[%d]: state is required for state", i)
		}
		return needTx()
	case AssertSameProxy, AssertDistinctProxy:
		if len(a.Refs) < 2 {
			return fmt.Errorf("assertions[%d]: at least two refs are required for %s", i, a.Type)
		}
		for _, r := range a.Refs {
			if !bound[r] {
				return fmt.Errorf("assertions[%d]: ref %q is not bound", i, r)
			}
		}
		return nil
	case AssertRegistryLen:
		return needNode()
	case "":
		return fmt.Errorf("assertions[%d]: type is required", i)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", i, a.Type)
	}
}
