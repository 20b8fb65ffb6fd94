package resp

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
)

// The parser is an explicit state machine rather than a recursive reader:
// a message may arrive split at any byte boundary, so every production must
// be able to stop mid-flight and pick up again when more bytes come in.
// Matched bytes move into the partial state exactly once and are never
// reinterpreted on resume.

type phase uint8

const (
	phaseType phase = iota // waiting for the single type tag byte
	phaseLine              // accumulating a CRLF-terminated word
	phaseBody              // accumulating a bulk string body plus its CRLF
)

// frame tracks one nesting level of an array parse in progress.
type frame struct {
	remaining int
	elems     []Value
}

// elemHint caps the element capacity allocated up front for a declared
// array count. The declared count is attacker controlled; actual storage
// must only grow with bytes that really arrived.
const elemHint = 16

type parser struct {
	phase phase
	typ   byte
	line  []byte  // partial word: payload for + - :, length digits for $ *
	body  []byte  // partial bulk string body, includes the trailing CRLF
	need  int     // total body bytes required: declared length + 2
	stack []frame // enclosing arrays, innermost last
	pos   int64   // bytes committed since the parser was created

	maxBulk  int // 0 means unlimited
	maxArray int
}

// step consumes bytes from buf and reports how many were taken. It returns
// ok=true with a complete value, ok=false when buf ran out mid-message, or
// a terminal *ProtocolError. Consumed bytes must not be offered again.
func (p *parser) step(buf []byte) (v Value, n int, ok bool, err error) {
	v, n, ok, err = p.run(buf)
	p.pos += int64(n)
	return v, n, ok, err
}

func (p *parser) run(buf []byte) (Value, int, bool, error) {
	n := 0
	for {
		switch p.phase {
		case phaseType:
			if n == len(buf) {
				return Value{}, n, false, nil
			}
			t := buf[n]
			switch t {
			case TypeSimpleString, TypeError, TypeInteger, TypeBulkString, TypeArray:
			default:
				return Value{}, n, false, p.fail(n, fmt.Errorf("%w %q", ErrUnknownType, t))
			}
			p.typ = t
			p.phase = phaseLine
			n++

		case phaseLine:
			i := bytes.IndexByte(buf[n:], '\n')
			if i < 0 {
				p.line = append(p.line, buf[n:]...)
				return Value{}, len(buf), false, nil
			}
			p.line = append(p.line, buf[n:n+i+1]...)
			n += i + 1
			if len(p.line) < 2 || p.line[len(p.line)-2] != '\r' {
				return Value{}, n, false, p.fail(n, ErrInvalidEnding)
			}
			word := p.line[:len(p.line)-2]
			p.line = nil // word keeps the backing array

			v, done, err := p.dispatch(word)
			if err != nil {
				return Value{}, n, false, p.fail(n, err)
			}
			if !done {
				continue // bulk body or array elements still to come
			}
			if v, done = p.deliver(v); done {
				return v, n, true, nil
			}

		case phaseBody:
			take := p.need - len(p.body)
			if avail := len(buf) - n; avail < take {
				take = avail
			}
			p.body = append(p.body, buf[n:n+take]...)
			n += take
			if len(p.body) < p.need {
				return Value{}, n, false, nil
			}
			if p.body[p.need-2] != '\r' || p.body[p.need-1] != '\n' {
				return Value{}, n, false, p.fail(n, ErrInvalidEnding)
			}
			v := Value{Type: TypeBulkString, String: p.body[:p.need-2]}
			p.body = nil
			var done bool
			if v, done = p.deliver(v); done {
				return v, n, true, nil
			}
		}
	}
}

// dispatch interprets a completed word according to the pending type tag.
// done=false means the word only opened a longer production (bulk body or
// array elements) and the machine has been repositioned for it.
func (p *parser) dispatch(word []byte) (Value, bool, error) {
	switch p.typ {
	case TypeSimpleString, TypeError:
		return Value{Type: p.typ, String: word}, true, nil

	case TypeInteger:
		num, err := parseInt(word)
		if err != nil {
			return Value{}, false, err
		}
		return Value{Type: TypeInteger, Integer: num}, true, nil

	case TypeBulkString:
		length, err := parseInt(word)
		if err != nil {
			return Value{}, false, err
		}
		if length < 0 {
			return MakeNilBulkString(), true, nil
		}
		// need = length + 2 must not wrap past the int range
		if length > math.MaxInt-2 {
			return Value{}, false, ErrBulkTooLarge
		}
		if p.maxBulk > 0 && length > int64(p.maxBulk) {
			return Value{}, false, ErrBulkTooLarge
		}
		p.need = int(length) + 2
		p.phase = phaseBody
		return Value{}, false, nil

	case TypeArray:
		count, err := parseInt(word)
		if err != nil {
			return Value{}, false, err
		}
		if count < 0 {
			return MakeNilArray(), true, nil
		}
		if count > math.MaxInt {
			return Value{}, false, ErrArrayTooLarge
		}
		if p.maxArray > 0 && count > int64(p.maxArray) {
			return Value{}, false, ErrArrayTooLarge
		}
		if count == 0 {
			return Value{Type: TypeArray, Array: []Value{}}, true, nil
		}
		hint := int(count)
		if hint > elemHint {
			hint = elemHint
		}
		p.stack = append(p.stack, frame{remaining: int(count), elems: make([]Value, 0, hint)})
		p.phase = phaseType
		return Value{}, false, nil
	}

	return Value{}, false, fmt.Errorf("%w %q", ErrUnknownType, p.typ)
}

// deliver hands a completed value to the innermost open array, closing
// arrays as they fill up. done=true means v is a full top-level message.
func (p *parser) deliver(v Value) (Value, bool) {
	p.phase = phaseType
	for {
		if len(p.stack) == 0 {
			return v, true
		}
		top := &p.stack[len(p.stack)-1]
		top.elems = append(top.elems, v)
		top.remaining--
		if top.remaining > 0 {
			return Value{}, false
		}
		v = Value{Type: TypeArray, Array: top.elems}
		p.stack = p.stack[:len(p.stack)-1]
	}
}

// idle reports whether the machine sits between messages with no partial
// state retained.
func (p *parser) idle() bool {
	return p.phase == phaseType && len(p.stack) == 0
}

func (p *parser) fail(off int, err error) error {
	return &ProtocolError{Pos: p.pos + int64(off), err: err}
}

// parseInt reads a base-10 signed 64-bit integer field, tolerating
// surrounding whitespace.
func parseInt(word []byte) (int64, error) {
	w := bytes.TrimSpace(word)
	if len(w) == 0 {
		return 0, ErrExpectedInteger
	}
	num, err := strconv.ParseInt(string(w), 10, 64)
	if err != nil {
		return 0, ErrExpectedInteger
	}
	return num, nil
}
