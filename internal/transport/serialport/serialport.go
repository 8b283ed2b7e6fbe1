// internal/transport/serialport/serialport.go
//
// Port wraps github.com/goburrow/serial for RS-485 lines, the transport
// Mercury230/IVTM meters (asciiadapter) speak over. goburrow/modbus's own
// RTU/ASCII handlers already depend on this package; wiring it directly
// here too gives the ASCII adapter its own serial line independent of the
// Modbus stack.
package serialport

import (
	"fmt"
	"time"

	"github.com/goburrow/serial"
)

type Port struct {
	port    serial.Port
	timeout time.Duration
}

// Config mirrors goburrow/serial.Config, keeping this package's public
// surface independent of the underlying library's import path.
type Config struct {
	Address  string
	BaudRate int
	DataBits int
	StopBits int
	Parity   string
	Timeout  time.Duration
}

// Open opens the serial line described by cfg.
func Open(cfg Config) (*Port, error) {
	p, err := serial.Open(&serial.Config{
		Address:  cfg.Address,
		BaudRate: cfg.BaudRate,
		DataBits: cfg.DataBits,
		StopBits: cfg.StopBits,
		Parity:   cfg.Parity,
		Timeout:  cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("serialport: open %s: %w", cfg.Address, err)
	}
	return &Port{port: p, timeout: cfg.Timeout}, nil
}

func (p *Port) Write(b []byte) (int, error) { return p.port.Write(b) }
func (p *Port) Read(b []byte) (int, error)  { return p.port.Read(b) }
func (p *Port) SetTimeout(d time.Duration)  { p.timeout = d }
func (p *Port) Close() error                { return p.port.Close() }
