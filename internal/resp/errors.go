package resp

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidEnding   = errors.New("invalid line ending")
	ErrUnknownType     = errors.New("unknown type tag")
	ErrExpectedInteger = errors.New("expected integer, got garbage")
	ErrBulkTooLarge    = errors.New("bulk string length exceeds configured maximum")
	ErrArrayTooLarge   = errors.New("array length exceeds configured maximum")

	// ErrBufferLimit is returned by Decoder.Feed once the unconsumed input
	// exceeds the configured ceiling. It is a resource policy violation,
	// not a grammar one, but it is just as fatal to the connection.
	ErrBufferLimit = errors.New("input buffer limit exceeded")
)

// ProtocolError reports malformed RESP input. Pos is the offset of the
// failure counted in bytes consumed since the decoder was created.
// A ProtocolError is terminal: the decoder that produced it cannot be
// resynchronized and the connection should be closed.
type ProtocolError struct {
	Pos int64
	err error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("resp: %v (byte %d)", e.err, e.Pos)
}

func (e *ProtocolError) Unwrap() error {
	return e.err
}
