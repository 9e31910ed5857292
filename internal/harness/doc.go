// Package harness runs propagation scenarios: scripted flows of begin,
// export, import, commit and dispose across several simulated nodes, each
// with its own ledger, coordinator, registry and facade.
//
// # Scenario Format
//
// Scenarios are YAML files with the following structure:
//
//	name: cookie_across_nodes
//	description: "An exported cookie resolves to one proxy on the receiver"
//	nodes: [a, b]
//	ids:
//	  - 00112233-4455-6677-8899-aabbccddeeff
//	steps:
//	  - { node: a, op: begin, as: t1 }
//	  - { node: a, op: export_cookie, tx: t1, to: b, as: c1 }
//	  - { node: b, op: import_cookie, blob: c1, as: t2 }
//	  - { node: a, op: commit, tx: t1 }
//	  - { node: a, op: export_token, tx: t1, expect_error: COMPLETED }
//	assertions:
//	  - { type: status, node: a, tx: t1, status: committed }
//	  - { type: events, node: b, tx: t2, kinds: [reconstructed] }
//
// Each node has its own ledger, so an outcome recorded on one node is not
// visible to the others.
//
// Transaction refs (as/tx/from) and blob refs (as/blob) share one namespace
// per scenario; a ref may only be bound once.
//
// # Operations
//
//   - begin: start a local transaction with the next scenario id
//   - promote: promote tx through its node's coordinator
//   - export_cookie: export tx addressed to node "to" (default: own node)
//   - import_cookie: import the cookie bound to blob
//   - export_token / import_token: propagation token round trip
//   - from_native: import, on node, the native surface of tx "from"
//   - commit / abort: drive the outcome through the native surface
//   - complete / dispose: local proxy lifecycle
//
// # Assertion Types
//
//   - status: ledger status of tx on node
//   - events: exact journaled event kinds for tx on node
//   - state: local proxy state of tx
//   - same_proxy / distinct_proxy: identity of two or more tx refs
//   - registry_len: live proxies in node's registry
//
// # Deterministic Testing
//
// Nodes share one deterministic clock and the scenario's fixed ids, and each
// ledger is an in-memory SQLite database. The same scenario therefore
// produces byte-identical snapshots, which RunWithGolden compares against
// testdata/golden.
package harness
