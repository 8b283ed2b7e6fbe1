// internal/device/device.go
//
// Device owns one protocol address space and delegates every wire
// operation to a ProtocolAdapter (modbusadapter, asciiadapter, ...),
// never touching the transport itself.
package device

import (
	"context"
	"fmt"

	"github.com/irdevice/querycore/internal/memblock"
	"github.com/irdevice/querycore/internal/regtype"
	"github.com/irdevice/querycore/internal/vregister"
)

// Config is the device-level tuning.
type Config struct {
	MaxBitHole       uint32
	MaxRegHole       uint32
	MaxReadRegisters uint16
}

// ProtocolInfo is the wire-protocol ceiling on top of Config's
// device-specific tuning — the hard limits the transport imposes
// regardless of configuration.
type ProtocolInfo interface {
	IsSingleBitType(t regtype.BlockType) bool
	MaxReadBits() uint16
	MaxReadRegisters() uint16
	MaxWriteBits() uint16
	MaxWriteRegisters() uint16
}

// Adapter executes one query against the wire. Implementations own
// framing, transport I/O and error classification (modbusadapter,
// asciiadapter); Device just calls through.
type Adapter interface {
	ExecuteRead(ctx context.Context, start uint32, count uint16, t regtype.BlockType) ([]byte, error)
	ExecuteWrite(ctx context.Context, start uint32, values []byte, t regtype.BlockType) error
}

// Device owns one protocol address space: the memory-block store planning
// binds registers against, plus enough configuration to bound query
// merges and enough of an adapter to actually run them.
type Device struct {
	id       string
	Store    *memblock.Store
	Config   Config
	Protocol ProtocolInfo
	adapter  Adapter
}

// New creates a device with its own block store. adapter may be nil for
// devices used only for planning (tests and the plan CLI path) that
// never execute a query.
func New(id string, cfg Config, protocol ProtocolInfo, adapter Adapter) *Device {
	return &Device{id: id, Store: memblock.NewStore(), Config: cfg, Protocol: protocol, adapter: adapter}
}

// ID satisfies memblock.DeviceHandle.
func (d *Device) ID() string { return d.id }

// MaxHole satisfies vregister.Limits: bit hole for single-bit types,
// register hole otherwise.
func (d *Device) MaxHole(t regtype.BlockType, _ vregister.Operation) uint32 {
	if d.Protocol.IsSingleBitType(t) {
		return d.Config.MaxBitHole
	}
	return d.Config.MaxRegHole
}

// MaxCount satisfies vregister.Limits: the smaller of the device's own
// configured ceiling and the protocol's hard ceiling for the operation.
func (d *Device) MaxCount(t regtype.BlockType, op vregister.Operation) uint16 {
	single := d.Protocol.IsSingleBitType(t)
	switch op {
	case vregister.Read:
		max := d.Protocol.MaxReadRegisters()
		if single {
			max = d.Protocol.MaxReadBits()
		}
		if d.Config.MaxReadRegisters != 0 && d.Config.MaxReadRegisters < max {
			max = d.Config.MaxReadRegisters
		}
		return max
	default:
		if single {
			return d.Protocol.MaxWriteBits()
		}
		return d.Protocol.MaxWriteRegisters()
	}
}

// Execute satisfies vregister.Executor: run q against the wire and record
// its outcome on q itself.
func (d *Device) Execute(q *vregister.Query) error {
	if d.adapter == nil {
		return fmt.Errorf("device %s: no adapter configured", d.id)
	}

	ctx := context.Background()
	switch q.Operation() {
	case vregister.Read:
		raw, err := d.adapter.ExecuteRead(ctx, q.Start(), q.Count(), q.Type())
		if err != nil {
			q.MarkFailed(classify(err))
			return err
		}
		return q.FinalizeRead(raw)
	default:
		values := q.GetValues()
		if err := d.adapter.ExecuteWrite(ctx, q.Start(), values, q.Type()); err != nil {
			q.MarkFailed(classify(err))
			return err
		}
		q.FinalizeWrite()
		return nil
	}
}

// classify maps a transport/protocol failure to the query status that
// should propagate: DeviceErrorStatus for a structured protocol-reported
// failure, UnknownErrorStatusValue for anything else (timeout, decode
// failure, transport drop).
func classify(err error) vregister.Status {
	if isDeviceError(err) {
		return vregister.DeviceErrorStatus
	}
	return vregister.UnknownErrorStatusValue
}

type deviceReported interface {
	DeviceReported() bool
}

func isDeviceError(err error) bool {
	d, ok := err.(deviceReported)
	return ok && d.DeviceReported()
}
