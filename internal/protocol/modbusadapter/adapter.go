// internal/protocol/modbusadapter/adapter.go
//
// Adapter implements device.Adapter over github.com/goburrow/modbus.
// It distinguishes coil/discrete (single-bit) block types from
// holding/input register types purely by
// regtype.BlockType.SingleBit, and reports Modbus exception responses as
// DeviceReported so device.Device classifies them as DeviceError rather
// than UnknownError.
package modbusadapter

import (
	"context"
	"fmt"

	"github.com/goburrow/modbus"

	"github.com/irdevice/querycore/internal/regtype"
)

// Client is the subset of goburrow/modbus.Client this adapter drives —
// narrowed so callers can pass either a TCP or RTU/ASCII client handler.
type Client interface {
	ReadHoldingRegisters(address, quantity uint16) ([]byte, error)
	ReadInputRegisters(address, quantity uint16) ([]byte, error)
	ReadCoils(address, quantity uint16) ([]byte, error)
	ReadDiscreteInputs(address, quantity uint16) ([]byte, error)
	WriteMultipleRegisters(address, quantity uint16, value []byte) ([]byte, error)
	WriteMultipleCoils(address, quantity uint16, value []byte) ([]byte, error)
}

// Adapter drives one Modbus client for one device's queries.
type Adapter struct {
	client Client
	// InputRegisters routes reads of the given type through function code
	// 0x04 (input registers) instead of 0x03 (holding registers).
	InputRegisters map[uint32]bool
	// DiscreteInputs routes reads of the given single-bit type through
	// function code 0x02 instead of 0x01 (coils).
	DiscreteInputs map[uint32]bool
}

// New wraps an already-configured goburrow/modbus client, built by the
// caller from modbus.NewTCPClientHandler or modbus.NewRTUClientHandler.
func New(client Client) *Adapter {
	return &Adapter{client: client}
}

func (a *Adapter) ExecuteRead(_ context.Context, start uint32, count uint16, t regtype.BlockType) ([]byte, error) {
	addr := uint16(start)
	if t.SingleBit {
		if a.DiscreteInputs[t.Index] {
			b, err := a.client.ReadDiscreteInputs(addr, count)
			return b, wrap(err)
		}
		b, err := a.client.ReadCoils(addr, count)
		return b, wrap(err)
	}
	if a.InputRegisters[t.Index] {
		b, err := a.client.ReadInputRegisters(addr, count)
		return b, wrap(err)
	}
	b, err := a.client.ReadHoldingRegisters(addr, count)
	return b, wrap(err)
}

func (a *Adapter) ExecuteWrite(_ context.Context, start uint32, values []byte, t regtype.BlockType) error {
	addr := uint16(start)
	count := uint16(len(values))
	if t.SingleBit {
		count = uint16(len(values) * 8)
		_, err := a.client.WriteMultipleCoils(addr, count, values)
		return wrap(err)
	}
	count = uint16(len(values)) / t.Size
	_, err := a.client.WriteMultipleRegisters(addr, count, values)
	return wrap(err)
}

// modbusError wraps a Modbus exception response, marking it as
// DeviceReported so device.Execute classifies it as DeviceError.
type modbusError struct{ cause error }

func (e *modbusError) Error() string       { return fmt.Sprintf("modbus: %v", e.cause) }
func (e *modbusError) Unwrap() error       { return e.cause }
func (e *modbusError) DeviceReported() bool { return true }

func wrap(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*modbus.ModbusError); ok {
		return &modbusError{cause: err}
	}
	return err
}
