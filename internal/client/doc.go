// Package client implements the Connection Manager of the display.
//
// A Connection:
//   - Dials one feed address through a pluggable Dialer
//   - Runs the handshake (the placeholder greeting) exactly once per open
//   - Delivers raw inbound frames in arrival order on Envelopes()
//   - In resilient mode, reconnects with capped exponential backoff
//   - Stops all delivery once Close returns
package client
