package resp

// SerializeCommand renders a client-side command as the array-of-bulk-strings
// form the protocol expects for requests
func SerializeCommand(cmd string, args []Value) []byte {
	elements := make([]Value, 1+len(args))

	elements[0] = MakeBulkString(cmd)

	copy(elements[1:], args)

	return Append(nil, MakeArray(elements))
}
