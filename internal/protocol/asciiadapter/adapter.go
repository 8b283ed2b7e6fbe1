// internal/protocol/asciiadapter/adapter.go
//
// Adapter implements device.Adapter for the ASCII-hex line protocol
// IVTM/Mercury230-style energy meters speak (grounded on
// ivtm_device.h's DecodeASCIIByte/DecodeASCIIWord/DecodeASCIIBytes
// helpers — every byte on the wire is two hex characters). Framing here
// is: request  "!" addr(2 hex) cmd(1) start(4 hex) count(2 hex)
//              [payload hex, writes only] csum(2 hex) CR
//     response ":" addr(2 hex) payload(2*count hex) csum(2 hex) CR
// The original device-specific .cpp framing wasn't available to port
// verbatim, so this is a from-scratch implementation in the same ASCII
// vein as the header's public surface, not a line-by-line translation.
package asciiadapter

import (
	"bufio"
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/irdevice/querycore/internal/regtype"
	"github.com/irdevice/querycore/internal/transport"
)

const (
	cmdRead  = 'R'
	cmdWrite = 'W'
)

// Adapter drives one ASCII-hex serial line for one device's queries.
type Adapter struct {
	port     transport.Port
	addr     byte
	reader   *bufio.Reader
	timeout  time.Duration
}

// New wires an adapter to an open port for the meter at unit address
// addr (0-255).
func New(port transport.Port, addr byte, timeout time.Duration) *Adapter {
	return &Adapter{port: port, addr: addr, timeout: timeout, reader: bufio.NewReader(portReader{port})}
}

type portReader struct{ p transport.Port }

func (r portReader) Read(b []byte) (int, error) { return r.p.Read(b) }

func (a *Adapter) ExecuteRead(_ context.Context, start uint32, count uint16, t regtype.BlockType) ([]byte, error) {
	return a.execute(cmdRead, start, count, nil, t)
}

func (a *Adapter) ExecuteWrite(_ context.Context, start uint32, values []byte, t regtype.BlockType) error {
	count := uint16(len(values)) / t.Size
	_, err := a.execute(cmdWrite, start, count, values, t)
	return err
}

func (a *Adapter) execute(cmd byte, start uint32, count uint16, payload []byte, t regtype.BlockType) ([]byte, error) {
	a.port.SetTimeout(a.timeout)

	frame := fmt.Sprintf("!%02X%c%04X%02X", a.addr, cmd, start, count)
	if cmd == cmdWrite {
		frame += hexUpper(payload)
	}
	frame += fmt.Sprintf("%02X\r", checksum([]byte(frame[1:])))

	if _, err := a.port.Write([]byte(frame)); err != nil {
		return nil, fmt.Errorf("asciiadapter: write: %w", err)
	}

	line, err := a.reader.ReadString('\r')
	if err != nil {
		return nil, fmt.Errorf("asciiadapter: read: %w", err)
	}
	return a.decode(line, count, t)
}

func (a *Adapter) decode(line string, count uint16, t regtype.BlockType) ([]byte, error) {
	if len(line) < 6 || line[0] != ':' {
		return nil, &protocolError{msg: fmt.Sprintf("malformed response %q", line)}
	}
	body := line[1 : len(line)-3] // strip leading ':', trailing checksum+CR
	respAddr, err := hex.DecodeString(body[:2])
	if err != nil || respAddr[0] != a.addr {
		return nil, &protocolError{msg: fmt.Sprintf("unexpected unit address in %q", line)}
	}

	wantBytes := int(count) * int(t.Size)
	payloadHex := body[2:]
	payload, err := hex.DecodeString(payloadHex)
	if err != nil {
		return nil, fmt.Errorf("asciiadapter: decode payload: %w", err)
	}
	if len(payload) != wantBytes {
		return nil, &protocolError{msg: fmt.Sprintf("expected %d payload bytes, got %d", wantBytes, len(payload))}
	}
	return payload, nil
}

func hexUpper(b []byte) string {
	return fmt.Sprintf("%X", b)
}

// checksum is a simple additive checksum over the frame body, mirroring
// the byte-level care ivtm_device.h's decode helpers take without
// depending on the (unavailable) original checksum polynomial.
func checksum(b []byte) byte {
	var sum byte
	for _, c := range b {
		sum += c
	}
	return sum
}

// protocolError marks a malformed-response condition as device-reported
// so device.Execute classifies it as DeviceError rather than
// UnknownError.
type protocolError struct{ msg string }

func (e *protocolError) Error() string        { return "asciiadapter: " + e.msg }
func (e *protocolError) DeviceReported() bool { return true }
