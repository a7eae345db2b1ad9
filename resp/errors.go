package resp

import (
	"errors"
	"fmt"
)

var (
	// ErrIncomplete means more bytes are needed before a frame can be judged.
	ErrIncomplete = errors.New("resp: incomplete frame")

	// ErrMalformed means the buffered bytes can never form a valid frame.
	ErrMalformed = errors.New("resp: malformed frame")

	// ErrUnsupported is returned for every codec operation on an Array.
	ErrUnsupported = errors.New("resp: array frames are not supported")

	// ErrInvalidFrame is returned when a frame value has no wire encoding,
	// e.g. a simple string carrying CR or LF.
	ErrInvalidFrame = errors.New("resp: invalid frame value")
)

// ProtocolError describes why bytes were rejected. It matches ErrMalformed
// with errors.Is.
type ProtocolError struct {
	Reason string
	Offset int
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("Protocol error: %s (offset %d)", e.Reason, e.Offset)
}

func (e *ProtocolError) Is(target error) bool {
	return target == ErrMalformed
}

func malformed(offset int, format string, args ...any) error {
	return &ProtocolError{Reason: fmt.Sprintf(format, args...), Offset: offset}
}
