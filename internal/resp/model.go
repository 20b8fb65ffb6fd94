package resp

import "bytes"

const (
	TypeSimpleString = '+'
	TypeError        = '-'
	TypeInteger      = ':'
	TypeBulkString   = '$'
	TypeArray        = '*'
)

type Value struct {
	String  []byte // SimpleString, Error, BulkString
	Array   []Value
	Integer int64 // Integer
	Type    byte
	IsNull  bool // For nil BulkString and nil Array
}

// Equal reports whether two values are structurally identical.
// A nil bulk string or array never equals an empty one.
func (v Value) Equal(o Value) bool {
	if v.Type != o.Type || v.IsNull != o.IsNull || v.Integer != o.Integer {
		return false
	}
	if !bytes.Equal(v.String, o.String) {
		return false
	}
	if len(v.Array) != len(o.Array) {
		return false
	}
	for i := range v.Array {
		if !v.Array[i].Equal(o.Array[i]) {
			return false
		}
	}
	return true
}
