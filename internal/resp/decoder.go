package resp

import "io"

// Decoder turns a stream of arbitrarily fragmented chunks into complete
// values. Feed appends whatever the transport produced; Next drains at most
// one value per call. A Decoder belongs to a single connection and must be
// driven sequentially: it keeps the partial state of the message in flight.
type Decoder struct {
	p           parser
	buf         []byte // received but not yet consumed by the parser
	err         error  // first terminal error, latched
	maxBuffered int    // 0 means unlimited
}

type DecoderOption func(*Decoder)

// WithMaxBulkLen rejects bulk strings whose declared length exceeds n.
func WithMaxBulkLen(n int) DecoderOption {
	return func(d *Decoder) { d.p.maxBulk = n }
}

// WithMaxArrayLen rejects arrays whose declared element count exceeds n.
func WithMaxArrayLen(n int) DecoderOption {
	return func(d *Decoder) { d.p.maxArray = n }
}

// WithMaxBuffered bounds the bytes a slow or adversarial peer may leave
// unconsumed in the decoder before the connection is declared broken.
func WithMaxBuffered(n int) DecoderOption {
	return func(d *Decoder) { d.maxBuffered = n }
}

func NewDecoder(opts ...DecoderOption) *Decoder {
	d := &Decoder{}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Feed appends bytes received from the transport. The data is copied, the
// caller may reuse its slice.
func (d *Decoder) Feed(data []byte) {
	if d.err != nil {
		return
	}
	if d.maxBuffered > 0 && len(d.buf)+len(data) > d.maxBuffered {
		d.err = ErrBufferLimit
		return
	}
	d.buf = append(d.buf, data...)
}

// Next attempts to decode the next complete value from the buffered bytes.
// ok is false when the buffer holds only a partial message (or nothing);
// feeding more bytes and calling Next again resumes exactly where the parse
// stopped. A returned error is terminal and repeats on every later call:
// the only recovery is to drop the Decoder and close the connection.
func (d *Decoder) Next() (v Value, ok bool, err error) {
	if d.err != nil {
		return Value{}, false, d.err
	}
	v, n, ok, err := d.p.step(d.buf)
	d.buf = d.buf[:copy(d.buf, d.buf[n:])]
	if err != nil {
		d.err = err
		return Value{}, false, err
	}
	return v, ok, nil
}

// Buffered returns the number of received bytes the parser has not yet
// consumed. Bytes already committed to the message in flight do not count.
func (d *Decoder) Buffered() int {
	return len(d.buf)
}

// Partial reports whether a message is in flight, either as unconsumed
// buffered bytes or as parser state awaiting more input.
func (d *Decoder) Partial() bool {
	return len(d.buf) > 0 || !d.p.idle()
}

// StreamReader adapts a Decoder to a blocking io.Reader source, satisfying
// the Reader interface used by the connection layer.
type StreamReader struct {
	rd    io.Reader
	dec   *Decoder
	chunk []byte
}

func NewStreamReader(rd io.Reader, opts ...DecoderOption) *StreamReader {
	return NewStreamReaderSize(rd, 4096, opts...)
}

func NewStreamReaderSize(rd io.Reader, size int, opts ...DecoderOption) *StreamReader {
	if size <= 0 {
		size = 4096
	}
	return &StreamReader{
		rd:    rd,
		dec:   NewDecoder(opts...),
		chunk: make([]byte, size),
	}
}

// Read blocks until one complete value arrives. A stream that ends in the
// middle of a message yields io.ErrUnexpectedEOF instead of io.EOF.
func (r *StreamReader) Read() (Value, error) {
	for {
		v, ok, err := r.dec.Next()
		if err != nil {
			return Value{}, err
		}
		if ok {
			return v, nil
		}

		n, err := r.rd.Read(r.chunk)
		if n > 0 {
			r.dec.Feed(r.chunk[:n])
			continue
		}
		if err == nil {
			continue
		}
		if err == io.EOF && r.dec.Partial() {
			return Value{}, io.ErrUnexpectedEOF
		}
		return Value{}, err
	}
}

// Buffered returns the number of bytes waiting in the decoder.
func (r *StreamReader) Buffered() int {
	return r.dec.Buffered()
}
