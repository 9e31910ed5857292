// Package interop moves transactions across process boundaries.
//
// A Facade composes the promoter, the registry and the token codec into four
// symmetric round trips:
//
//	Export / ImportFromCookie                             export cookies
//	ExportPropagationToken / ImportFromPropagationToken   propagation tokens
//
// plus NativeTransaction / FromNativeTransaction for the coordinator's
// native control surface.
//
// Outbound operations promote the transaction first. Inbound operations
// copy the caller's buffer, read the identifier window, and resolve the
// proxy through the registry so a process never holds two proxies for one
// transaction. Errors from the codec, promoter, registry and coordinator
// are returned unchanged.
package interop
