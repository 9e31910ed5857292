package harness

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/txprop/internal/ir"
)

// Snapshot renders the canonical JSON form of a result: the step trace and
// every node's ledger. Equal runs produce equal bytes.
func Snapshot(name string, result *Result) ([]byte, error) {
	raw, err := json.Marshal(struct {
		Scenario string                  `json:"scenario"`
		Trace    []TraceEvent            `json:"trace"`
		Nodes    map[string]NodeSnapshot `json:"nodes"`
	}{name, result.Trace, result.Nodes})
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", name, err)
	}
	obj, err := ir.ParseObject(raw)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", name, err)
	}
	out, err := ir.MarshalCanonical(obj)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", name, err)
	}
	return append(out, '\n'), nil
}

// RunWithGolden runs a scenario, fails the test if it does not pass, and
// compares its snapshot against testdata/golden/{name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()
	result, err := Run(scenario)
	if err != nil {
		return err
	}
	if !result.Pass {
		t.Errorf("scenario %s failed:\n%v", scenario.Name, result.Errors)
	}
	return AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an existing result against its golden file.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()
	snap, err := Snapshot(name, result)
	if err != nil {
		return err
	}
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, snap)
	return nil
}
