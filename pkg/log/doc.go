// Package log provides protocol capture for hatrpc connections.
//
// It is separate from operational logging (slog): a capture is a complete
// machine-readable trace of frames, decoded calls, control messages and
// connection state, for debugging and for the hatrpc-log tool.
//
// # Basic Usage
//
//	// Console, next to operational logs
//	cfg.ProtocolLogger = log.NewSlogAdapter(slog.Default())
//
//	// Capture file
//	fl, _ := log.NewFileLogger("/var/log/hatrpc/server.hlog")
//	cfg.ProtocolLogger = fl
//
//	// Both
//	cfg.ProtocolLogger = log.NewMultiLogger(log.NewSlogAdapter(slog.Default()), fl)
//
// # Event Types
//
//   - Transport: raw frame bytes (FrameEvent)
//   - Wire: decoded requests, responses and notifications (MessageEvent)
//   - Service: endpoint and invoker state changes (StateChangeEvent)
//
// Control messages (ping/pong/close) and errors have dedicated event types.
package log
