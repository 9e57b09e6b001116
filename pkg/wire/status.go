package wire

// Status represents a response status code.
type Status uint8

const (
	// StatusSuccess indicates the operation completed successfully.
	StatusSuccess Status = 0

	// StatusInvalidCommand indicates the endpoint has no such operation.
	StatusInvalidCommand Status = 1

	// StatusInvalidParameter indicates an argument is missing, of the wrong
	// type or out of range.
	StatusInvalidParameter Status = 2

	// StatusBusy indicates the endpoint is busy; try again later.
	StatusBusy Status = 3

	// StatusUnsupported indicates the operation is not supported by this
	// implementation (for example PWM on the character device driver).
	StatusUnsupported Status = 4

	// StatusTimeout indicates the operation timed out.
	StatusTimeout Status = 5

	// StatusFailure indicates the implementation failed while executing
	// the operation.
	StatusFailure Status = 6
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "SUCCESS"
	case StatusInvalidCommand:
		return "INVALID_COMMAND"
	case StatusInvalidParameter:
		return "INVALID_PARAMETER"
	case StatusBusy:
		return "BUSY"
	case StatusUnsupported:
		return "UNSUPPORTED"
	case StatusTimeout:
		return "TIMEOUT"
	case StatusFailure:
		return "FAILURE"
	default:
		return "UNKNOWN"
	}
}

// IsSuccess returns true if the status indicates success.
func (s Status) IsSuccess() bool {
	return s == StatusSuccess
}

// IsError returns true if the status indicates an error.
func (s Status) IsError() bool {
	return s != StatusSuccess
}
