// Package registry maps transaction identifiers to their live local proxy.
//
// The registry is the single place that prevents two proxies for one
// distributed transaction from existing in a process. Every inbound decode
// path (export cookie, propagation token, native transaction) resolves
// through FindOrCreate.
//
// Entries are lookup-only: the registry holds a weak pointer to each proxy
// and never keeps one alive. A proxy leaves the registry when it is
// disposed (through a dispose hook) or when it is collected without being
// disposed (through a runtime cleanup). Each entry carries a generation so
// a stale hook can never remove a newer proxy registered under the same id.
//
// Ordering between Dispose and lookup:
//
//   - A Dispose that has returned before Find or FindOrCreate reads the
//     entry wins: the caller gets a fresh proxy.
//   - A proxy returned by the registry may be disposed by another goroutine
//     afterwards. The caller observes DISPOSED when it next uses it.
//
// FindOrCreate runs at most one factory per id at a time. Concurrent
// callers for the same id share that factory's result, so exactly one
// coordinator reconstruction happens for a burst of duplicate imports.
package registry
