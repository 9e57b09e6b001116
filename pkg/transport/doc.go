// Package transport provides the hatrpc transport layer.
//
// The transport layer handles:
//   - Plain TCP listeners and dialers
//   - Length-prefixed message framing
//   - Ping/pong/close control messages
//
// # Protocol Stack
//
//	┌────────────────────────────────┐
//	│      CBOR Messages             │
//	├────────────────────────────────┤
//	│   Length-Prefix Framing (4B)   │
//	├────────────────────────────────┤
//	│           TCP                  │
//	└────────────────────────────────┘
//
// The registry and every capability endpoint are separate Servers on
// adjacent ports. Each accepted connection is served by one goroutine, so
// requests on a connection are processed in order.
package transport
