package protocol_test

import (
	"errors"
	"testing"

	"github.com/omochice/toy-chat-display/pkg/protocol"
	"google.golang.org/protobuf/encoding/protowire"
)

func TestEntry_Binary(t *testing.T) {
	tests := []struct {
		name  string
		entry protocol.Entry
	}{
		{
			name:  "all fields",
			entry: protocol.Entry{Display: "alice", Data: "hi", Timestamp: 1700000000000, UserID: "7", Color: "#112233", IsAction: true},
		},
		{
			name:  "negative timestamp",
			entry: protocol.Entry{Display: "bob", Data: "before epoch", Timestamp: -5},
		},
		{
			name:  "empty entry",
			entry: protocol.Entry{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := tt.entry.EncodeBinary()

			var got protocol.Entry
			if err := got.DecodeBinary(data); err != nil {
				t.Fatalf("DecodeBinary() error = %v", err)
			}
			if got.Display != tt.entry.Display || got.Data != tt.entry.Data || got.Timestamp != tt.entry.Timestamp ||
				got.UserID != tt.entry.UserID || got.Color != tt.entry.Color || got.IsAction != tt.entry.IsAction {
				t.Errorf("DecodeBinary() = %+v, want %+v", got, tt.entry)
			}
		})
	}
}

func TestEntry_DecodeBinary_SkipsUnknownFields(t *testing.T) {
	e := protocol.Entry{Display: "a", Data: "b", Timestamp: 1}
	data := e.EncodeBinary()
	data = protowire.AppendTag(data, 99, protowire.BytesType)
	data = protowire.AppendString(data, "future")

	var got protocol.Entry
	if err := got.DecodeBinary(data); err != nil {
		t.Fatalf("DecodeBinary() error = %v", err)
	}
	if got.Display != "a" || got.Timestamp != 1 {
		t.Errorf("DecodeBinary() = %+v", got)
	}
}

func TestEntry_DecodeBinary_Truncated(t *testing.T) {
	e := protocol.Entry{Display: "alice", Data: "hello"}
	data := e.EncodeBinary()

	var got protocol.Entry
	if err := got.DecodeBinary(data[:len(data)-2]); err == nil {
		t.Error("expected error for truncated frame")
	}
}

func TestEntry_DecodeBinary_MissingRequiredFields(t *testing.T) {
	field := func(b []byte, num protowire.Number, s string) []byte {
		b = protowire.AppendTag(b, num, protowire.BytesType)
		return protowire.AppendString(b, s)
	}
	timestamp := func(b []byte, ts int64) []byte {
		b = protowire.AppendTag(b, 3, protowire.VarintType)
		return protowire.AppendVarint(b, protowire.EncodeZigZag(ts))
	}

	tests := []struct {
		name string
		data []byte
	}{
		{"empty frame", []byte{}},
		{"only is_action", []byte{0x30, 0x01}},
		{"only an empty display", []byte{0x0a, 0x00}},
		{"only unknown fields", field(nil, 99, "future")},
		{"no timestamp", field(field(nil, 1, "alice"), 2, "hi")},
		{"no data", timestamp(field(nil, 1, "alice"), 5)},
		{"no display", timestamp(field(nil, 2, "hi"), 5)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := protocol.Entry{Display: "unchanged"}
			err := got.DecodeBinary(tt.data)

			var decodeErr *protocol.DecodeError
			if !errors.As(err, &decodeErr) {
				t.Fatalf("DecodeBinary() error = %v, want *DecodeError", err)
			}
			if got.Display != "unchanged" {
				t.Errorf("DecodeBinary() modified the entry on error: %+v", got)
			}
		})
	}
}

func TestEntry_DecodeBinary_ZeroValuesPresent(t *testing.T) {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendString(b, "")
	b = protowire.AppendTag(b, 2, protowire.BytesType)
	b = protowire.AppendString(b, "")
	b = protowire.AppendTag(b, 3, protowire.VarintType)
	b = protowire.AppendVarint(b, 0)

	var got protocol.Entry
	if err := got.DecodeBinary(b); err != nil {
		t.Fatalf("DecodeBinary() error = %v", err)
	}
}
