package resp_test

import (
	"errors"
	"io"
	"math/rand"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/nightglow/respd/internal/resp"
)

// decodeScenarios are complete wire messages paired with the value they
// must produce. They double as the corpus for the chunking tests.
var decodeScenarios = []struct {
	name  string
	input string
	want  resp.Value
}{
	{
		name:  "simple string",
		input: "+hello\r\n",
		want:  resp.MakeSimpleString("hello"),
	},
	{
		name:  "error",
		input: "-Bar\r\n",
		want:  resp.MakeError("Bar"),
	},
	{
		name:  "integer",
		input: ":123\r\n",
		want:  resp.MakeInteger(123),
	},
	{
		name:  "negative integer",
		input: ":-15\r\n",
		want:  resp.MakeInteger(-15),
	},
	{
		name:  "integer with plus sign",
		input: ":+1230\r\n",
		want:  resp.MakeInteger(1230),
	},
	{
		name:  "bulk string",
		input: "$6\r\nfoobar\r\n",
		want:  resp.MakeBulkString("foobar"),
	},
	{
		name:  "empty bulk string",
		input: "$0\r\n\r\n",
		want:  resp.MakeBulkString(""),
	},
	{
		name:  "bulk string with CRLF inside",
		input: "$8\r\nfoo\r\nbar\r\n",
		want:  resp.MakeBulkString("foo\r\nbar"),
	},
	{
		name:  "null bulk string",
		input: "$-1\r\n",
		want:  resp.MakeNilBulkString(),
	},
	{
		name:  "empty array",
		input: "*0\r\n",
		want:  resp.MakeArray([]resp.Value{}),
	},
	{
		name:  "null array",
		input: "*-1\r\n",
		want:  resp.MakeNilArray(),
	},
	{
		name:  "array of bulk strings",
		input: "*2\r\n$3\r\nfoo\r\n$3\r\nbar\r\n",
		want: resp.MakeArray([]resp.Value{
			resp.MakeBulkString("foo"),
			resp.MakeBulkString("bar"),
		}),
	},
	{
		name:  "array with null element",
		input: "*3\r\n$3\r\nfoo\r\n$-1\r\n$3\r\nbar\r\n",
		want: resp.MakeArray([]resp.Value{
			resp.MakeBulkString("foo"),
			resp.MakeNilBulkString(),
			resp.MakeBulkString("bar"),
		}),
	},
	{
		name:  "nested arrays",
		input: "*2\r\n*3\r\n:1\r\n:2\r\n:3\r\n*2\r\n+Foo\r\n-Bar\r\n",
		want: resp.MakeArray([]resp.Value{
			resp.MakeArray([]resp.Value{
				resp.MakeInteger(1),
				resp.MakeInteger(2),
				resp.MakeInteger(3),
			}),
			resp.MakeArray([]resp.Value{
				resp.MakeSimpleString("Foo"),
				resp.MakeError("Bar"),
			}),
		}),
	},
}

func TestDecoderScenarios(t *testing.T) {
	for _, tt := range decodeScenarios {
		t.Run(tt.name, func(t *testing.T) {
			d := resp.NewDecoder()
			d.Feed([]byte(tt.input))

			v, ok, err := d.Next()
			if err != nil {
				t.Fatalf("Next() unexpected error %v", err)
			}
			if !ok {
				t.Fatal("Next() reported partial message for complete input")
			}
			if !v.Equal(tt.want) {
				t.Errorf("Next() = %+v, want %+v", v, tt.want)
			}
			if d.Buffered() != 0 {
				t.Errorf("Buffered() = %d after full consume, want 0", d.Buffered())
			}
		})
	}
}

// TestDecoderChunkInvariance splits every scenario at every byte boundary
// and checks the result matches the unsplit decode.
func TestDecoderChunkInvariance(t *testing.T) {
	for _, tt := range decodeScenarios {
		t.Run(tt.name, func(t *testing.T) {
			raw := []byte(tt.input)
			for i := 1; i < len(raw); i++ {
				d := resp.NewDecoder()
				d.Feed(raw[:i])

				v, ok, err := d.Next()
				if err != nil {
					t.Fatalf("split %d: error on prefix: %v", i, err)
				}
				if ok {
					t.Fatalf("split %d: got value from strict prefix", i)
				}

				d.Feed(raw[i:])
				v, ok, err = d.Next()
				if err != nil {
					t.Fatalf("split %d: error after completion: %v", i, err)
				}
				if !ok {
					t.Fatalf("split %d: no value after full message", i)
				}
				if !v.Equal(tt.want) {
					t.Errorf("split %d: got %+v, want %+v", i, v, tt.want)
				}
			}
		})
	}
}

func TestDecoderByteAtATime(t *testing.T) {
	for _, tt := range decodeScenarios {
		t.Run(tt.name, func(t *testing.T) {
			d := resp.NewDecoder()
			raw := []byte(tt.input)
			for i, b := range raw {
				v, ok, err := d.Next()
				if err != nil {
					t.Fatalf("byte %d: %v", i, err)
				}
				if ok {
					t.Fatalf("byte %d: value completed before final byte", i)
				}
				_ = v
				d.Feed([]byte{b})
			}
			v, ok, err := d.Next()
			if err != nil || !ok {
				t.Fatalf("final Next() = ok=%v err=%v", ok, err)
			}
			if !v.Equal(tt.want) {
				t.Errorf("got %+v, want %+v", v, tt.want)
			}
		})
	}
}

func TestDecoderPipelined(t *testing.T) {
	d := resp.NewDecoder()
	d.Feed([]byte("+hello\r\n:42\r\n$3\r\nfoo\r\n"))

	want := []resp.Value{
		resp.MakeSimpleString("hello"),
		resp.MakeInteger(42),
		resp.MakeBulkString("foo"),
	}
	for i, w := range want {
		v, ok, err := d.Next()
		if err != nil || !ok {
			t.Fatalf("message %d: ok=%v err=%v", i, ok, err)
		}
		if !v.Equal(w) {
			t.Errorf("message %d: got %+v, want %+v", i, v, w)
		}
	}

	if _, ok, err := d.Next(); ok || err != nil {
		t.Errorf("drained decoder returned ok=%v err=%v", ok, err)
	}
}

func TestDecoderEmptyBuffer(t *testing.T) {
	d := resp.NewDecoder()
	if _, ok, err := d.Next(); ok || err != nil {
		t.Errorf("Next() on empty decoder = ok=%v err=%v", ok, err)
	}
	d.Feed(nil)
	if _, ok, err := d.Next(); ok || err != nil {
		t.Errorf("Next() after empty feed = ok=%v err=%v", ok, err)
	}
}

func TestDecoderPartialState(t *testing.T) {
	d := resp.NewDecoder()
	d.Feed([]byte("$5\r\nhel"))

	if _, ok, err := d.Next(); ok || err != nil {
		t.Fatalf("prefix decode = ok=%v err=%v", ok, err)
	}
	if !d.Partial() {
		t.Error("Partial() = false with a bulk string in flight")
	}

	d.Feed([]byte("lo\r\n"))
	v, ok, err := d.Next()
	if err != nil || !ok {
		t.Fatalf("resumed decode = ok=%v err=%v", ok, err)
	}
	if !v.Equal(resp.MakeBulkString("hello")) {
		t.Errorf("resumed decode got %+v", v)
	}
	if d.Partial() {
		t.Error("Partial() = true after full consume")
	}
}

func TestDecoderErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		opts    []resp.DecoderOption
		wantErr error
	}{
		{
			name:    "unknown type tag",
			input:   "!oops\r\n",
			wantErr: resp.ErrUnknownType,
		},
		{
			name:    "garbage integer",
			input:   ":abc\r\n",
			wantErr: resp.ErrExpectedInteger,
		},
		{
			name:    "empty integer",
			input:   ":\r\n",
			wantErr: resp.ErrExpectedInteger,
		},
		{
			name:    "garbage bulk length",
			input:   "$x\r\n",
			wantErr: resp.ErrExpectedInteger,
		},
		{
			name:    "bare LF line ending",
			input:   "+hello\n",
			wantErr: resp.ErrInvalidEnding,
		},
		{
			name:    "bulk body bad trailer",
			input:   "$3\r\nfooXY",
			wantErr: resp.ErrInvalidEnding,
		},
		{
			name:    "bad element inside array",
			input:   "*2\r\n:1\r\n:nope\r\n",
			wantErr: resp.ErrExpectedInteger,
		},
		{
			name:    "bulk length over limit",
			input:   "$1048576\r\n",
			opts:    []resp.DecoderOption{resp.WithMaxBulkLen(1024)},
			wantErr: resp.ErrBulkTooLarge,
		},
		{
			name:    "array count over limit",
			input:   "*50\r\n",
			opts:    []resp.DecoderOption{resp.WithMaxArrayLen(16)},
			wantErr: resp.ErrArrayTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := resp.NewDecoder(tt.opts...)
			d.Feed([]byte(tt.input))

			_, ok, err := d.Next()
			if ok {
				t.Fatal("Next() returned a value from malformed input")
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Next() error = %v, want %v", err, tt.wantErr)
			}

			var perr *resp.ProtocolError
			if !errors.As(err, &perr) {
				t.Fatalf("error %v is not a *ProtocolError", err)
			}

			// the error must latch
			_, ok, again := d.Next()
			if ok || !errors.Is(again, tt.wantErr) {
				t.Errorf("second Next() = ok=%v err=%v, want latched error", ok, again)
			}
		})
	}
}

func TestDecoderErrorPosition(t *testing.T) {
	d := resp.NewDecoder()
	d.Feed([]byte("+ok\r\n:abc\r\n"))

	if _, ok, err := d.Next(); !ok || err != nil {
		t.Fatalf("first message: ok=%v err=%v", ok, err)
	}

	_, _, err := d.Next()
	var perr *resp.ProtocolError
	if !errors.As(err, &perr) {
		t.Fatalf("want *ProtocolError, got %v", err)
	}
	// 5 bytes for +ok\r\n, 6 for the failing integer line
	if perr.Pos != 11 {
		t.Errorf("Pos = %d, want 11", perr.Pos)
	}
}

// TestDecoderExtremeDeclaredLengths drives a decoder with no configured
// limits: declared lengths near the top of the int64 range must come back
// as errors or partial messages, never arithmetic wraparound.
func TestDecoderExtremeDeclaredLengths(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error // nil means the decoder should just keep waiting
	}{
		{
			name:    "bulk length MaxInt64",
			input:   "$9223372036854775807\r\n",
			wantErr: resp.ErrBulkTooLarge,
		},
		{
			name:    "bulk length MaxInt64 minus one",
			input:   "$9223372036854775806\r\n",
			wantErr: resp.ErrBulkTooLarge,
		},
		{
			name:    "bulk length past int64",
			input:   "$99999999999999999999\r\n",
			wantErr: resp.ErrExpectedInteger,
		},
		{
			name:  "array count MaxInt64",
			input: "*9223372036854775807\r\n",
		},
		{
			name:  "array count MaxInt64 minus one",
			input: "*9223372036854775806\r\n",
		},
		{
			name:    "array count past int64",
			input:   "*99999999999999999999\r\n",
			wantErr: resp.ErrExpectedInteger,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := resp.NewDecoder()
			d.Feed([]byte(tt.input))

			_, ok, err := d.Next()
			if ok {
				t.Fatal("Next() returned a value from a header alone")
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Next() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestDecoderBufferLimit(t *testing.T) {
	d := resp.NewDecoder(resp.WithMaxBuffered(8))
	d.Feed([]byte("$100\r\naaaaaaaaaa"))

	_, ok, err := d.Next()
	if ok || !errors.Is(err, resp.ErrBufferLimit) {
		t.Errorf("Next() = ok=%v err=%v, want %v", ok, err, resp.ErrBufferLimit)
	}
}

func TestDecoderRoundTrip(t *testing.T) {
	values := []resp.Value{
		resp.MakeSimpleString("OK"),
		resp.MakeError("ERR something went wrong"),
		resp.MakeInteger(0),
		resp.MakeInteger(-9223372036854775808),
		resp.MakeBulkString(""),
		resp.MakeBulkString("binary\x00\r\ndata"),
		resp.MakeNilBulkString(),
		resp.MakeNilArray(),
		resp.MakeArray([]resp.Value{}),
		resp.MakeArray([]resp.Value{
			resp.MakeArray([]resp.Value{resp.MakeInteger(1), resp.MakeNilBulkString()}),
			resp.MakeSimpleString("deep"),
		}),
	}

	for _, want := range values {
		d := resp.NewDecoder()
		d.Feed(resp.Append(nil, want))

		v, ok, err := d.Next()
		if err != nil || !ok {
			t.Fatalf("round trip of %+v: ok=%v err=%v", want, ok, err)
		}
		if !v.Equal(want) {
			t.Errorf("round trip of %+v produced %+v", want, v)
		}
	}
}

// TestDecoderNoCrash throws deterministic garbage at the decoder in split
// chunks. The only requirement is a value, "not yet", or an error.
func TestDecoderNoCrash(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		buf := make([]byte, rng.Intn(256))
		rng.Read(buf)

		// both a limited and an unlimited decoder must survive
		decoders := []*resp.Decoder{
			resp.NewDecoder(resp.WithMaxBulkLen(1<<20), resp.WithMaxArrayLen(1<<16)),
			resp.NewDecoder(),
		}
		for _, d := range decoders {
			half := len(buf) / 2
			d.Feed(buf[:half])
			drain(d)
			d.Feed(buf[half:])
			drain(d)
		}
	}
}

func drain(d *resp.Decoder) {
	for {
		_, ok, err := d.Next()
		if !ok || err != nil {
			return
		}
	}
}

func FuzzDecoder(f *testing.F) {
	for _, tt := range decodeScenarios {
		f.Add([]byte(tt.input), 3)
	}
	f.Add([]byte("*2\r\n$3\r\nfo"), 1)
	f.Add([]byte("!garbage"), 0)
	f.Add([]byte("$9223372036854775807\r\n"), 5)
	f.Add([]byte("$9223372036854775806\r\n"), 22)
	f.Add([]byte("*9223372036854775807\r\n"), 5)
	f.Add([]byte("*9223372036854775806\r\n"), 22)

	f.Fuzz(func(t *testing.T, data []byte, split int) {
		if split < 0 || split > len(data) {
			split = len(data)
		}
		decoders := []*resp.Decoder{
			resp.NewDecoder(resp.WithMaxBulkLen(1<<20), resp.WithMaxArrayLen(1<<16)),
			resp.NewDecoder(),
		}
		for _, d := range decoders {
			d.Feed(data[:split])
			drain(d)
			d.Feed(data[split:])
			drain(d)
		}
	})
}

func TestStreamReader(t *testing.T) {
	// one byte per Read forces a suspension at every boundary
	src := iotest.OneByteReader(strings.NewReader("+one\r\n*2\r\n:1\r\n$3\r\ntwo\r\n"))
	r := resp.NewStreamReader(src)

	want := []resp.Value{
		resp.MakeSimpleString("one"),
		resp.MakeArray([]resp.Value{
			resp.MakeInteger(1),
			resp.MakeBulkString("two"),
		}),
	}
	for i, w := range want {
		v, err := r.Read()
		if err != nil {
			t.Fatalf("Read() %d: %v", i, err)
		}
		if !v.Equal(w) {
			t.Errorf("Read() %d = %+v, want %+v", i, v, w)
		}
	}

	if _, err := r.Read(); err != io.EOF {
		t.Errorf("Read() at end = %v, want io.EOF", err)
	}
}

func TestStreamReaderTruncated(t *testing.T) {
	r := resp.NewStreamReader(strings.NewReader("$10\r\nabc"))
	if _, err := r.Read(); err != io.ErrUnexpectedEOF {
		t.Errorf("Read() = %v, want io.ErrUnexpectedEOF", err)
	}
}
