// Package admin serves a read-only HTTP view of a node: the coordinator
// ledger (transactions and their journaled events) and the identifiers of
// the proxies live in the local registry.
//
// Routes:
//
//	GET /healthz                         ledger reachable
//	GET /readyz                          always ready once serving
//	GET /v1/transactions                 all ledger rows, by sequence
//	GET /v1/transactions/{tx_id}         one ledger row
//	GET /v1/transactions/{tx_id}/events  journal for one transaction
//	GET /v1/registry                     live proxy identifiers
package admin
