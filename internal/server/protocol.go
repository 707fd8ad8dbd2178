package server

import (
	"bufio"
	"bytes"
	"net"
)

type protocolType int

const (
	protocolTCP protocolType = iota
	protocolHTTP
)

// sniffLen covers the shortest TCP greeting, `""` plus newline.
const sniffLen = 3

var httpMethods = [][]byte{
	[]byte("GET"), []byte("POS"), []byte("PUT"), []byte("HEA"),
	[]byte("OPT"), []byte("PAT"), []byte("DEL"), []byte("CON"),
}

// sniffedConn replays the bytes peeked during detection.
type sniffedConn struct {
	net.Conn
	reader *bufio.Reader
}

func (c *sniffedConn) Read(p []byte) (int, error) {
	return c.reader.Read(p)
}

// detectProtocol peeks at the first bytes to tell an HTTP upgrade request
// from a line-delimited JSON client. The returned conn still yields the
// peeked bytes.
func detectProtocol(conn net.Conn) (protocolType, net.Conn, error) {
	reader := bufio.NewReader(conn)
	wrapped := &sniffedConn{Conn: conn, reader: reader}

	peek, err := reader.Peek(sniffLen)
	if err != nil {
		return protocolTCP, wrapped, err
	}
	for _, method := range httpMethods {
		if bytes.HasPrefix(peek, method) {
			return protocolHTTP, wrapped, nil
		}
	}
	return protocolTCP, wrapped, nil
}
