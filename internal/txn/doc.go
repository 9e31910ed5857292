// Package txn implements the local transaction proxy and its promotion to an
// external distributed transaction coordinator.
//
// A Transaction is the single in-process object that represents one
// distributed transaction identity. It moves through
//
//	Active -> Promoted -> Completed
//
// with Disposed reachable from any state. Promotion is one-way: once a
// coordinator-side Handle is attached it is owned exclusively by that proxy
// and released exactly once, on Dispose.
//
// The Coordinator, Handle and NativeTransaction interfaces describe the
// external collaborator. This package never implements commit or abort
// semantics; it only hands the coordinator's control surface to callers.
//
// Thread-safety: Transaction and Promoter are safe for concurrent use.
// Promotion of one transaction is serialized on that transaction's lock, so
// concurrent callers observe exactly one Active -> Promoted transition.
package txn
