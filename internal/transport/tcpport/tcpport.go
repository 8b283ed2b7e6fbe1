// internal/transport/tcpport/tcpport.go
//
// Port dials a plain TCP connection for the ASCII protocol adapter.
// Modbus TCP devices use goburrow/modbus's own TCP handler instead.
package tcpport

import (
	"fmt"
	"net"
	"time"
)

type Port struct {
	conn    net.Conn
	timeout time.Duration
}

// Dial opens a TCP connection to endpoint (host:port).
func Dial(endpoint string, timeout time.Duration) (*Port, error) {
	conn, err := net.DialTimeout("tcp", endpoint, timeout)
	if err != nil {
		return nil, fmt.Errorf("tcpport: dial %s: %w", endpoint, err)
	}
	return &Port{conn: conn, timeout: timeout}, nil
}

func (p *Port) Write(b []byte) (int, error) {
	if p.timeout > 0 {
		_ = p.conn.SetWriteDeadline(time.Now().Add(p.timeout))
	}
	return p.conn.Write(b)
}

func (p *Port) Read(b []byte) (int, error) {
	if p.timeout > 0 {
		_ = p.conn.SetReadDeadline(time.Now().Add(p.timeout))
	}
	return p.conn.Read(b)
}

func (p *Port) SetTimeout(d time.Duration) { p.timeout = d }

func (p *Port) Close() error { return p.conn.Close() }
