package protocol

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers of the compact binary entry encoding. The layout matches
//
//	message Entry {
//	  string display   = 1;
//	  string data      = 2;
//	  sint64 timestamp = 3;
//	  string userid    = 4;
//	  string color     = 5;
//	  bool   is_action = 6;
//	}
const (
	binDisplay   protowire.Number = 1
	binData      protowire.Number = 2
	binTimestamp protowire.Number = 3
	binUserID    protowire.Number = 4
	binColor     protowire.Number = 5
	binIsAction  protowire.Number = 6
)

// EncodeBinary encodes the entry in protobuf wire format.
// display, data and timestamp are always written, even when zero.
// Extra fields are not carried by the binary encoding.
func (e *Entry) EncodeBinary() []byte {
	var b []byte
	b = protowire.AppendTag(b, binDisplay, protowire.BytesType)
	b = protowire.AppendString(b, e.Display)
	b = protowire.AppendTag(b, binData, protowire.BytesType)
	b = protowire.AppendString(b, e.Data)
	b = protowire.AppendTag(b, binTimestamp, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeZigZag(e.Timestamp))
	b = appendString(b, binUserID, e.UserID)
	b = appendString(b, binColor, e.Color)
	if e.IsAction {
		b = protowire.AppendTag(b, binIsAction, protowire.VarintType)
		b = protowire.AppendVarint(b, protowire.EncodeBool(true))
	}
	return b
}

// DecodeBinary decodes a protobuf wire format entry. display, data and
// timestamp are required, as in Decode. Unknown fields are skipped.
func (e *Entry) DecodeBinary(data []byte) error {
	var out Entry
	var hasDisplay, hasData, hasTimestamp bool
	buf := data
	for len(buf) > 0 {
		num, typ, n := protowire.ConsumeTag(buf)
		if n < 0 {
			return &DecodeError{Frame: data, Err: protowire.ParseError(n)}
		}
		buf = buf[n:]

		switch {
		case num == binDisplay && typ == protowire.BytesType:
			out.Display, n = protowire.ConsumeString(buf)
			hasDisplay = true
		case num == binData && typ == protowire.BytesType:
			out.Data, n = protowire.ConsumeString(buf)
			hasData = true
		case num == binUserID && typ == protowire.BytesType:
			out.UserID, n = protowire.ConsumeString(buf)
		case num == binColor && typ == protowire.BytesType:
			out.Color, n = protowire.ConsumeString(buf)
		case num == binTimestamp && typ == protowire.VarintType:
			var v uint64
			v, n = protowire.ConsumeVarint(buf)
			out.Timestamp = protowire.DecodeZigZag(v)
			hasTimestamp = true
		case num == binIsAction && typ == protowire.VarintType:
			var v uint64
			v, n = protowire.ConsumeVarint(buf)
			out.IsAction = protowire.DecodeBool(v)
		default:
			n = protowire.ConsumeFieldValue(num, typ, buf)
		}
		if n < 0 {
			return &DecodeError{Frame: data, Err: fmt.Errorf("field %d: %w", num, protowire.ParseError(n))}
		}
		buf = buf[n:]
	}

	switch {
	case !hasDisplay:
		return &DecodeError{Frame: data, Err: fmt.Errorf("missing field %q", FieldDisplay)}
	case !hasData:
		return &DecodeError{Frame: data, Err: fmt.Errorf("missing field %q", FieldData)}
	case !hasTimestamp:
		return &DecodeError{Frame: data, Err: fmt.Errorf("missing field %q", FieldTimestamp)}
	}

	*e = out
	return nil
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}
