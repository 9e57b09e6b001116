package wire

import (
	"fmt"
)

// CBOR map keys for message encoding.
// All hatrpc messages use integer keys for efficiency.
const (
	KeyControlType = 0
	KeyMessageID   = 1
	KeyMethod      = 2 // Method (request), Status (response) or Topic (notification)
	KeyArgs        = 3 // Args (request) or Payload (response, notification)
)

// MessageID 0 is reserved to indicate a notification message.
const NotificationMessageID uint32 = 0

// Request represents a call of one named operation on an endpoint.
//
// CBOR encoding:
//
//	{
//	  1: messageId,    // uint32, never 0
//	  2: method,       // string: operation name, e.g. "digitalWrite"
//	  3: args          // array of positional arguments
//	}
type Request struct {
	MessageID uint32 `cbor:"1,keyasint"`
	Method    string `cbor:"2,keyasint"`
	Args      []any  `cbor:"3,keyasint,omitempty"`
}

// Validate checks if the request is valid.
func (r *Request) Validate() error {
	if r.MessageID == NotificationMessageID {
		return fmt.Errorf("messageId 0 is reserved for notifications")
	}
	if r.Method == "" {
		return fmt.Errorf("empty method name")
	}
	return nil
}

// Response represents the outcome of one request.
//
// CBOR encoding:
//
//	{
//	  1: messageId,    // uint32: matches request
//	  2: status,       // uint8: 0=success, or error code
//	  3: payload       // result (success) or ErrorPayload (error)
//	}
type Response struct {
	MessageID uint32 `cbor:"1,keyasint"`
	Status    Status `cbor:"2,keyasint"`
	Payload   any    `cbor:"3,keyasint,omitempty"`
}

// IsSuccess returns true if the response indicates success.
func (r *Response) IsSuccess() bool {
	return r.Status.IsSuccess()
}

// Notification is an unsolicited event pushed from an endpoint to a client.
//
// CBOR encoding:
//
//	{
//	  1: 0,         // messageId 0 = notification
//	  2: topic,     // string, e.g. "touch"
//	  3: payload    // topic-specific data
//	}
type Notification struct {
	Topic   string `cbor:"2,keyasint"`
	Payload any    `cbor:"3,keyasint,omitempty"`
}

// ErrorPayload represents additional error information in a response.
//
// CBOR encoding:
//
//	{
//	  1: message  // string: human-readable error message
//	}
type ErrorPayload struct {
	Message string `cbor:"1,keyasint,omitempty"`
}

// ExtractErrorMessage returns the message of an error response payload.
// After a CBOR round-trip the payload is a raw map (map[any]any), so both
// the typed and the untyped form are handled.
func ExtractErrorMessage(payload any) string {
	switch p := payload.(type) {
	case nil:
		return ""
	case *ErrorPayload:
		return p.Message
	case ErrorPayload:
		return p.Message
	case map[any]any:
		if v, ok := p[uint64(1)].(string); ok {
			return v
		}
	case map[uint64]any:
		if v, ok := p[1].(string); ok {
			return v
		}
	}
	return ""
}

// ControlMessage represents a transport-level control message.
// These are separate from the request/response/notification model and are
// recognized by the presence of key 0.
type ControlMessage struct {
	Type     ControlMessageType `cbor:"0,keyasint"`
	Sequence uint32             `cbor:"2,keyasint,omitempty"`
}

// ControlMessageType represents the type of control message.
type ControlMessageType uint8

const (
	// ControlPing is sent to check connection liveness.
	ControlPing ControlMessageType = 1

	// ControlPong is the response to a ping.
	ControlPong ControlMessageType = 2

	// ControlClose initiates graceful connection close.
	ControlClose ControlMessageType = 3
)

// String returns the control message type name.
func (t ControlMessageType) String() string {
	switch t {
	case ControlPing:
		return "ping"
	case ControlPong:
		return "pong"
	case ControlClose:
		return "close"
	default:
		return "unknown"
	}
}
