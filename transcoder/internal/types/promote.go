package types

// Promotable reports whether data written as writer can be read as reader
// under Avro schema resolution. Both kinds are compared by wire shape, so a
// date written as int may be read by a long reader.
func Promotable(writer, reader Kind) bool {
	w, r := writer.Wire(), reader.Wire()
	if w == r {
		return true
	}
	switch w {
	case KindInt:
		return r == KindLong || r == KindFloat || r == KindDouble
	case KindLong:
		return r == KindFloat || r == KindDouble
	case KindFloat:
		return r == KindDouble
	case KindString:
		return r == KindBytes
	case KindBytes:
		return r == KindString
	}
	return false
}
