// Package protocol defines the chat entry wire format shared by the display
// client and the feed server.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// Wire field names of an entry envelope.
const (
	FieldDisplay   = "display"
	FieldData      = "data"
	FieldTimestamp = "timestamp"
	FieldUserID    = "userid"
	FieldColor     = "color"
	FieldIsAction  = "is_action"
)

// Entry represents one chat message.
type Entry struct {
	Display   string
	Data      string
	Timestamp int64
	UserID    string
	Color     string
	IsAction  bool

	// Extra holds envelope fields this package does not model.
	// They are kept verbatim and written back by Encode.
	Extra map[string]json.RawMessage
}

// DecodeError reports an inbound frame that does not match the entry wire format.
type DecodeError struct {
	Frame []byte
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode entry: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// String returns the console form of the entry.
func (e Entry) String() string {
	return fmt.Sprintf("<%s> %s", e.Display, e.Data)
}

// Decode decodes a JSON envelope into the entry.
// display, data and timestamp are required; timestamp may be a JSON number or
// a string holding a number.
func (e *Entry) Decode(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return &DecodeError{Frame: data, Err: err}
	}
	if fields == nil {
		return &DecodeError{Frame: data, Err: errors.New("envelope is not an object")}
	}

	var out Entry
	if err := requireString(fields, FieldDisplay, &out.Display); err != nil {
		return &DecodeError{Frame: data, Err: err}
	}
	if err := requireString(fields, FieldData, &out.Data); err != nil {
		return &DecodeError{Frame: data, Err: err}
	}

	raw, ok := fields[FieldTimestamp]
	if !ok {
		return &DecodeError{Frame: data, Err: fmt.Errorf("missing field %q", FieldTimestamp)}
	}
	ts, err := parseTimestamp(raw)
	if err != nil {
		return &DecodeError{Frame: data, Err: err}
	}
	out.Timestamp = ts

	if err := optional(fields, FieldUserID, &out.UserID); err != nil {
		return &DecodeError{Frame: data, Err: err}
	}
	if err := optional(fields, FieldColor, &out.Color); err != nil {
		return &DecodeError{Frame: data, Err: err}
	}
	if err := optional(fields, FieldIsAction, &out.IsAction); err != nil {
		return &DecodeError{Frame: data, Err: err}
	}

	for k, v := range fields {
		if isKnownField(k) {
			continue
		}
		if out.Extra == nil {
			out.Extra = make(map[string]json.RawMessage)
		}
		out.Extra[k] = v
	}

	*e = out
	return nil
}

// Encode encodes the entry as a JSON envelope.
func (e *Entry) Encode() ([]byte, error) {
	fields := make(map[string]any, len(e.Extra)+6)
	for k, v := range e.Extra {
		fields[k] = v
	}
	fields[FieldDisplay] = e.Display
	fields[FieldData] = e.Data
	fields[FieldTimestamp] = e.Timestamp
	if e.UserID != "" {
		fields[FieldUserID] = e.UserID
	}
	if e.Color != "" {
		fields[FieldColor] = e.Color
	}
	if e.IsAction {
		fields[FieldIsAction] = true
	}

	data, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to encode entry: %w", err)
	}
	return data, nil
}

func isKnownField(name string) bool {
	switch name {
	case FieldDisplay, FieldData, FieldTimestamp, FieldUserID, FieldColor, FieldIsAction:
		return true
	default:
		return false
	}
}

func requireString(fields map[string]json.RawMessage, name string, dst *string) error {
	raw, ok := fields[name]
	if !ok {
		return fmt.Errorf("missing field %q", name)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("field %q: %w", name, err)
	}
	return nil
}

func optional[T any](fields map[string]json.RawMessage, name string, dst *T) error {
	raw, ok := fields[name]
	if !ok || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("field %q: %w", name, err)
	}
	return nil
}

// parseTimestamp accepts 1700000000000, 1700000000000.5 and "1700000000000".
// Fractions are truncated.
func parseTimestamp(raw json.RawMessage) (int64, error) {
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, fmt.Errorf("field %q: %w", FieldTimestamp, err)
	}
	if n == "" {
		return 0, fmt.Errorf("field %q: empty", FieldTimestamp)
	}
	if i, err := n.Int64(); err == nil {
		return i, nil
	}
	f, err := n.Float64()
	if err != nil {
		return 0, fmt.Errorf("field %q: %w", FieldTimestamp, err)
	}
	if f >= math.MaxInt64 || f <= math.MinInt64 {
		return 0, fmt.Errorf("field %q: %v out of range", FieldTimestamp, n)
	}
	return int64(f), nil
}
