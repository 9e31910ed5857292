package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const twoNodes = `
name: assertions
description: one transaction imported by a second node
nodes: [a, b]
ids: [00112233-4455-6677-8899-aabbccddeeff]
steps:
  - { node: a, op: begin, as: t1 }
  - { node: a, op: export_token, tx: t1, as: k1 }
  - { node: b, op: import_token, blob: k1, as: t2 }
`

func runWith(t *testing.T, assertions string) *Result {
	t.Helper()
	result, err := Run(mustParse(t, twoNodes+"assertions:\n"+assertions))
	require.NoError(t, err)
	return result
}

func TestAssertions_Pass(t *testing.T) {
	result := runWith(t, `
  - { type: status, node: b, tx: t2, status: active }
  - { type: events, node: a, tx: t1, kinds: [promoted, transmitted] }
  - { type: state, tx: t2, state: promoted }
  - { type: distinct_proxy, refs: [t1, t2] }
  - { type: registry_len, node: b, count: 1 }
`)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestAssertions_Fail(t *testing.T) {
	tests := []struct {
		name      string
		assertion string
		want      []string
	}{
		{"status", "  - { type: status, node: a, tx: t1, status: committed }\n",
			[]string{"Assertion failed: status", "Expected: t1 on a is committed", "Actual: active"}},
		{"events", "  - { type: events, node: b, tx: t2, kinds: [promoted] }\n",
			[]string{"Assertion failed: events", "Actual: [reconstructed]"}},
		{"state", "  - { type: state, tx: t1, state: disposed }\n",
			[]string{"Assertion failed: state", "Actual: promoted"}},
		{"same proxy", "  - { type: same_proxy, refs: [t1, t2] }\n",
			[]string{"Assertion failed: same_proxy", "Actual: different proxies"}},
		{"registry len", "  - { type: registry_len, node: a, count: 3 }\n",
			[]string{"Expected: 3 live proxies on a", "Actual: 1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := runWith(t, tt.assertion)
			assert.False(t, result.Pass)
			require.Len(t, result.Errors, 1)
			for _, w := range tt.want {
				assert.Contains(t, result.Errors[0], w)
			}
		})
	}
}

func TestAssertions_StatusOnForeignLedger(t *testing.T) {
	result, err := Run(mustParse(t, `
name: foreign
description: a node that never saw the transaction has no ledger row
nodes: [a, b]
ids: [00112233-4455-6677-8899-aabbccddeeff]
steps:
  - { node: a, op: begin, as: t1 }
  - { node: a, op: promote, tx: t1 }
assertions:
  - { type: status, node: b, tx: t1, status: active }
`))
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "not found")
}
