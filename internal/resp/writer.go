package resp

import (
	"bufio"
	"io"
	"strconv"
)

// Append appends the exact wire encoding of v to dst and returns the
// extended slice. Encoding cannot fail: any representable value has a
// representation.
func Append(dst []byte, v Value) []byte {
	switch v.Type {
	case TypeSimpleString:
		dst = append(dst, '+')
		dst = append(dst, v.String...)
		dst = append(dst, '\r', '\n')

	case TypeError:
		dst = append(dst, '-')
		dst = append(dst, v.String...)
		dst = append(dst, '\r', '\n')

	case TypeInteger:
		dst = append(dst, ':')
		dst = strconv.AppendInt(dst, v.Integer, 10)
		dst = append(dst, '\r', '\n')

	case TypeBulkString:
		if v.IsNull {
			return append(dst, "$-1\r\n"...)
		}
		dst = append(dst, '$')
		dst = strconv.AppendInt(dst, int64(len(v.String)), 10)
		dst = append(dst, '\r', '\n')
		dst = append(dst, v.String...)
		dst = append(dst, '\r', '\n')

	case TypeArray:
		if v.IsNull {
			return append(dst, "*-1\r\n"...)
		}
		dst = append(dst, '*')
		dst = strconv.AppendInt(dst, int64(len(v.Array)), 10)
		dst = append(dst, '\r', '\n')
		for _, el := range v.Array {
			dst = Append(dst, el)
		}
	}

	return dst
}

// Encoder handles the serialization of RESP Value objects into an output stream
type Encoder struct {
	writer *bufio.Writer
}

// NewEncoder initializes an Encoder with a buffered writer
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{
		writer: bufio.NewWriter(w)}
}

// Write serializes a RESP Value into the buffer. An error can only come
// from the underlying writer, never from the value itself.
func (e *Encoder) Write(v Value) error {
	b := Append(e.writer.AvailableBuffer(), v)
	_, err := e.writer.Write(b)
	return err
}

// Flush sends all buffered data to the underlying writer
func (e *Encoder) Flush() error {
	return e.writer.Flush()
}
