package harness

import (
	"context"
	"fmt"
	"slices"
	"strings"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}

// EvaluateAssertions checks every assertion against the harness state and
// returns the failure messages.
func EvaluateAssertions(h *Harness, assertions []Assertion) []string {
	var errs []string
	for _, a := range assertions {
		if err := evaluate(h, a); err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}

func evaluate(h *Harness, a Assertion) error {
	ctx := context.Background()
	switch a.Type {
	case AssertStatus:
		return assertStatus(ctx, h, a)
	case AssertEvents:
		return assertEvents(ctx, h, a)
	case AssertState:
		return assertState(h, a)
	case AssertSameProxy, AssertDistinctProxy:
		return assertIdentity(h, a)
	case AssertRegistryLen:
		return assertRegistryLen(h, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func assertStatus(ctx context.Context, h *Harness, a Assertion) error {
	tx, err := h.tx(a.Tx)
	if err != nil {
		return err
	}
	rec, err := h.nodes[a.Node].store.ReadTransaction(ctx, tx.ID())
	if err != nil {
		return &AssertionError{
			Type:     AssertStatus,
			Expected: fmt.Sprintf("%s on %s is %s", a.Tx, a.Node, a.Status),
			Actual:   err.Error(),
		}
	}
	if string(rec.Status) != a.Status {
		return &AssertionError{
			Type:     AssertStatus,
			Expected: fmt.Sprintf("%s on %s is %s", a.Tx, a.Node, a.Status),
			Actual:   string(rec.Status),
		}
	}
	return nil
}

func assertEvents(ctx context.Context, h *Harness, a Assertion) error {
	tx, err := h.tx(a.Tx)
	if err != nil {
		return err
	}
	events, err := h.nodes[a.Node].store.ReadEvents(ctx, tx.ID())
	if err != nil {
		return err
	}
	kinds := make([]string, len(events))
	for i, ev := range events {
		kinds[i] = ev.Kind
	}
	want := a.Kinds
	if want == nil {
		want = []string{}
	}
	if !slices.Equal(kinds, want) {
		return &AssertionError{
			Type:     AssertEvents,
			Expected: fmt.Sprintf("%s on %s journals %v", a.Tx, a.Node, want),
			Actual:   fmt.Sprintf("%v", kinds),
		}
	}
	return nil
}

func assertState(h *Harness, a Assertion) error {
	tx, err := h.tx(a.Tx)
	if err != nil {
		return err
	}
	if got := tx.State().String(); got != a.State {
		return &AssertionError{
			Type:     AssertState,
			Expected: fmt.Sprintf("%s is %s", a.Tx, a.State),
			Actual:   got,
		}
	}
	return nil
}

func assertIdentity(h *Harness, a Assertion) error {
	first, err := h.tx(a.Refs[0])
	if err != nil {
		return err
	}
	for _, ref := range a.Refs[1:] {
		tx, err := h.tx(ref)
		if err != nil {
			return err
		}
		same := tx == first
		if same != (a.Type == AssertSameProxy) {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("%s and %s are %s", a.Refs[0], ref, identityWord(a.Type == AssertSameProxy)),
				Actual:   identityWord(same),
			}
		}
	}
	return nil
}

func identityWord(same bool) string {
	if same {
		return "the same proxy"
	}
	return "different proxies"
}

func assertRegistryLen(h *Harness, a Assertion) error {
	if got := h.nodes[a.Node].facade.Registry().Len(); got != a.Count {
		return &AssertionError{
			Type:     AssertRegistryLen,
			Expected: fmt.Sprintf("%d live proxies on %s", a.Count, a.Node),
			Actual:   fmt.Sprintf("%d", got),
		}
	}
	return nil
}
