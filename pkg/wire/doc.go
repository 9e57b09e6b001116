// Package wire defines the CBOR wire format types for hatrpc.
//
// hatrpc uses CBOR (RFC 8949) with integer keys for compact encoding.
// All messages are length-prefixed and transmitted over plain TCP.
//
// # Message Types
//
// There are three primary message types:
//   - Request: client to endpoint (method name plus positional arguments)
//   - Response: endpoint to client (result or error status)
//   - Notification: endpoint to client (events such as touch presses)
//
// Control messages (ping, pong, close) are handled by the transport layer.
//
// # Argument Values
//
// After decoding, integers arrive as uint64 or int64, floats as float64 and
// arrays as []any. The As* helpers convert them into the Go types the
// capability implementations expect.
package wire
