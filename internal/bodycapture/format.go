package bodycapture

// Format describes a heuristically detected binary serialization format,
// surfaced as a supplemental confidence hint on captured binary bodies and
// WebSocket binary messages (not part of the wire record itself).
//
// Adapted near-verbatim from _teacher_ref/util/binary.go's DetectBinaryFormat:
// same magic-byte/wire-type heuristics for MessagePack, CBOR, protobuf, and
// BSON, renamed to this package's naming and trimmed of the teacher's
// MCP-tool-specific doc references.
type Format struct {
	Name       string
	Confidence float64
	Details    string
}

// DetectFormat analyzes data and returns a detected binary format, or nil if
// the data looks like text or doesn't match a known format. Check order is
// by specificity: MessagePack, then CBOR, then protobuf, then BSON.
func DetectFormat(data []byte) *Format {
	if len(data) == 0 || isLikelyTextBytes(data) {
		return nil
	}
	if f := detectMessagePack(data); f != nil {
		return f
	}
	if f := detectCBOR(data); f != nil {
		return f
	}
	if f := detectProtobuf(data); f != nil {
		return f
	}
	return detectBSON(data)
}

type marker struct {
	minLen     int
	confidence float64
	details    string
}

var msgpackMarkers = map[byte]marker{
	0xc0: {0, 0.9, "nil"},
	0xc2: {0, 0.9, "false"},
	0xc3: {0, 0.9, "true"},
	0xc4: {0, 0.85, "bin"}, 0xc5: {0, 0.85, "bin"}, 0xc6: {0, 0.85, "bin"},
	0xc7: {0, 0.85, "ext"}, 0xc8: {0, 0.85, "ext"}, 0xc9: {0, 0.85, "ext"},
	0xca: {5, 0.85, "float32"}, 0xcb: {9, 0.85, "float64"},
	0xcc: {2, 0.8, "uint8"}, 0xcd: {3, 0.8, "uint16"}, 0xce: {5, 0.8, "uint32"}, 0xcf: {9, 0.8, "uint64"},
	0xd0: {2, 0.8, "int8"}, 0xd1: {3, 0.8, "int16"}, 0xd2: {5, 0.8, "int32"}, 0xd3: {9, 0.8, "int64"},
	0xd4: {0, 0.85, "fixext"}, 0xd5: {0, 0.85, "fixext"}, 0xd6: {0, 0.85, "fixext"},
	0xd7: {0, 0.85, "fixext"}, 0xd8: {0, 0.85, "fixext"},
	0xd9: {2, 0.8, "str8"}, 0xda: {3, 0.8, "str16"}, 0xdb: {5, 0.8, "str32"},
	0xdc: {3, 0.85, "array16"}, 0xdd: {5, 0.85, "array32"},
	0xde: {3, 0.85, "map16"}, 0xdf: {5, 0.85, "map32"},
}

func detectMessagePackRange(b byte) *Format {
	switch {
	case b >= 0x80 && b <= 0x8f:
		return &Format{Name: "messagepack", Confidence: 0.85, Details: "fixmap"}
	case b >= 0x90 && b <= 0x9f:
		return &Format{Name: "messagepack", Confidence: 0.85, Details: "fixarray"}
	case b >= 0xa0 && b <= 0xbf:
		return &Format{Name: "messagepack", Confidence: 0.8, Details: "fixstr"}
	default:
		return nil
	}
}

func detectMessagePack(data []byte) *Format {
	b := data[0]
	if f := detectMessagePackRange(b); f != nil {
		return f
	}
	m, ok := msgpackMarkers[b]
	if !ok || (m.minLen > 0 && len(data) < m.minLen) {
		return nil
	}
	return &Format{Name: "messagepack", Confidence: m.confidence, Details: m.details}
}

var cborSimpleMarkers = map[byte]marker{
	0xf4: {0, 0.9, "false"},
	0xf5: {0, 0.9, "true"},
	0xf6: {0, 0.9, "null"},
	0xf7: {0, 0.9, "undefined"},
	0xf9: {3, 0.85, "float16"},
	0xfa: {5, 0.85, "float32"},
	0xfb: {9, 0.85, "float64"},
	0xff: {0, 0.8, "break"},
}

func detectCBOR(data []byte) *Format {
	b := data[0]
	majorType := b >> 5
	additionalInfo := b & 0x1f

	if majorType == 4 || majorType == 5 {
		if additionalInfo <= 0x17 || additionalInfo == 0x1f {
			details := "array"
			if majorType == 5 {
				details = "map"
			}
			return &Format{Name: "cbor", Confidence: 0.75, Details: details}
		}
		return nil
	}
	if majorType == 6 {
		return &Format{Name: "cbor", Confidence: 0.85, Details: "tagged"}
	}
	if majorType == 7 {
		if m, ok := cborSimpleMarkers[b]; ok {
			if m.minLen > 0 && len(data) < m.minLen {
				return nil
			}
			return &Format{Name: "cbor", Confidence: m.confidence, Details: m.details}
		}
	}
	return nil
}

func detectProtobuf(data []byte) *Format {
	if len(data) < 2 {
		return nil
	}
	wireType := data[0] & 0x07
	fieldNumber := data[0] >> 3
	if fieldNumber == 0 || fieldNumber > 15 {
		return nil
	}

	switch wireType {
	case 0: // varint
		for i := 1; i < len(data) && i < 10; i++ {
			if data[i]&0x80 == 0 {
				return &Format{Name: "protobuf", Confidence: 0.7, Details: "varint field"}
			}
		}
		if len(data) < 10 {
			return &Format{Name: "protobuf", Confidence: 0.7, Details: "varint field"}
		}
	case 1: // 64-bit fixed
		if len(data) >= 9 {
			return &Format{Name: "protobuf", Confidence: 0.65, Details: "fixed64 field"}
		}
	case 2: // length-delimited
		if data[1]&0x80 != 0 {
			return &Format{Name: "protobuf", Confidence: 0.6, Details: "length-delimited field"}
		}
		length := int(data[1])
		if length > 0 && len(data) >= 2+length {
			return &Format{Name: "protobuf", Confidence: 0.7, Details: "length-delimited field"}
		}
	case 5: // 32-bit fixed
		if len(data) >= 5 {
			return &Format{Name: "protobuf", Confidence: 0.65, Details: "fixed32 field"}
		}
	}
	return nil
}

func detectBSON(data []byte) *Format {
	if len(data) < 5 {
		return nil
	}
	docLen := int(data[0]) | int(data[1])<<8 | int(data[2])<<16 | int(data[3])<<24
	if docLen < 5 || docLen > 16*1024*1024 || docLen < len(data) {
		return nil
	}
	if len(data) >= docLen && data[docLen-1] != 0x00 {
		return nil
	}
	if len(data) > 4 {
		b := data[4]
		if b == 0x00 || (b >= 0x01 && b <= 0x13) || b == 0x7f || b == 0xff {
			return &Format{Name: "bson", Confidence: 0.65, Details: "document"}
		}
		return nil
	}
	return &Format{Name: "bson", Confidence: 0.5, Details: "document (partial)"}
}
