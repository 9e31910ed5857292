// Package grpccoord carries txn.Coordinator over gRPC.
//
// The service uses protobuf well-known wrapper types so no protoc/codegen
// toolchain is needed. Every request and response is a
// wrapperspb.BytesValue. Requests that address a transaction or a handle are
// framed as a 16-byte reference followed by a method-specific body:
//
//	Promote, FromNative       [tx id]
//	FromExportCookie          [tx id][cookie]
//	FromPropagationToken      [tx id][token]
//	ExportPayload             [handle ref][whereabouts]
//	TransmitterPayload        [handle ref]
//	Commit                    [handle ref][retaining u8][commit type u32][reserved u32]
//	Abort                     [handle ref][retaining u8][async u8][reason]
//	Info, Release             [handle ref]
//
// Handle-producing methods reply with [handle ref][tx id]. The server issues
// a fresh handle ref per handle, so two clients importing one transaction
// never share a server-side handle. Integers are little-endian.
//
// Taxonomy errors survive the hop: the server puts the ir.Error text
// (which starts with its code) in the status message and the client
// rebuilds an *ir.Error from it.
package grpccoord
