// Package coordinator is the reference distributed transaction coordinator.
//
// It implements txn.Coordinator over the SQLite ledger in internal/store.
// Every transaction it knows has one row; every handle operation appends a
// journal event stamped with a logical sequence number from a Clock.
//
// # Wire Payloads
//
// Export and transmitter payloads are canonical JSON objects:
//
//	export:      {"coordinator":NAME,"tx":ID,"whereabouts":HEX}
//	transmitter: {"coordinator":NAME,"tx":ID}
//
// # Whereabouts
//
// Whereabouts are self-describing so a receiver can split an export cookie
// without knowing the sender's locator length in advance:
//
//	"TXW1" | uint16 little-endian address length | address bytes
//
// # Native Control Surface
//
// Commit and Abort move the row from active to committed or aborted.
// Retaining commits and aborts are not supported.
package coordinator
