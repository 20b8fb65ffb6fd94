package resp

import "io"

// Reader yields one complete value per call, however the underlying bytes
// were fragmented.
type Reader interface {
	Read() (Value, error)
}

type Writer interface {
	Write(v Value) error
}

type Stream interface {
	Reader
	Writer
	io.Closer
}

var (
	_ Reader = (*StreamReader)(nil)
	_ Writer = (*Encoder)(nil)
)
