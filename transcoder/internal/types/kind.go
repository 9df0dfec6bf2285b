package types

type Kind uint8

const (
	KindNull Kind = iota
	KindBoolean
	KindInt
	KindLong
	KindFloat
	KindDouble
	KindBytes
	KindString
	KindFixed
	KindEnum
	KindDate
	KindTimestampMillis
	KindTimestampMicros
	KindUUID
	KindArray
	KindMap
	KindRecord
	KindUnion
	KindCustom
)

var kindNames = [...]string{
	KindNull:            "null",
	KindBoolean:         "boolean",
	KindInt:             "int",
	KindLong:            "long",
	KindFloat:           "float",
	KindDouble:          "double",
	KindBytes:           "bytes",
	KindString:          "string",
	KindFixed:           "fixed",
	KindEnum:            "enum",
	KindDate:            "date",
	KindTimestampMillis: "timestamp-millis",
	KindTimestampMicros: "timestamp-micros",
	KindUUID:            "uuid",
	KindArray:           "array",
	KindMap:             "map",
	KindRecord:          "record",
	KindUnion:           "union",
	KindCustom:          "custom",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// IsPrimitive reports whether k is encoded without nested descriptors.
func (k Kind) IsPrimitive() bool {
	return k <= KindUUID
}

// IsIntegral reports whether k is carried as a zigzag varint.
func (k Kind) IsIntegral() bool {
	switch k {
	case KindInt, KindLong, KindDate, KindTimestampMillis, KindTimestampMicros:
		return true
	}
	return false
}

// Wire returns the kind that determines k's byte layout. Logical kinds map
// to their underlying primitive.
func (k Kind) Wire() Kind {
	switch k {
	case KindDate:
		return KindInt
	case KindTimestampMillis, KindTimestampMicros:
		return KindLong
	case KindUUID:
		return KindString
	}
	return k
}
