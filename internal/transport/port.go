// internal/transport/port.go
//
// Port is the minimal byte-transport abstraction the ASCII protocol
// adapters (Mercury230, IVTM) frame their requests over: physical
// transport stays out of the query-planning core, but a runnable device
// still needs one. tcpport and serialport are the two concrete
// implementations, backed by plain TCP dialing and
// github.com/goburrow/serial respectively.
package transport

import "time"

// Port is a framed, timeout-bounded byte stream to one device.
type Port interface {
	Write(p []byte) (int, error)
	Read(p []byte) (int, error)
	SetTimeout(d time.Duration)
	Close() error
}
