package protocol

import (
	"encoding/json"
	"fmt"
)

// DefaultGreeting is the placeholder payload a display client sends once per
// successful connection. It is not an authentication handshake.
const DefaultGreeting = "42"

// EncodeGreeting encodes the greeting payload as a bare JSON string.
func EncodeGreeting(payload string) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode greeting: %w", err)
	}
	return data, nil
}

// DecodeGreeting decodes a greeting frame written by EncodeGreeting.
func DecodeGreeting(data []byte) (string, error) {
	var payload string
	if err := json.Unmarshal(data, &payload); err != nil {
		return "", &DecodeError{Frame: data, Err: fmt.Errorf("greeting: %w", err)}
	}
	return payload, nil
}
