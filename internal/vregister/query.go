// internal/vregister/query.go
//
// Query ports ir_device_query.cpp's TIRDeviceQuery: one contiguous,
// single-type span of memory blocks, plus the virtual registers
// contributing to it. finalize_read distributes a raw response into each
// contributing register's assembled value (and into any block that needs
// a persistent cache); GetValues composes the outgoing payload for a
// write, overlaying each writer's bits on top of whatever's cached so
// untouched bits survive a partial write.
package vregister

import (
	"github.com/irdevice/querycore/internal/bind"
	"github.com/irdevice/querycore/internal/cerr"
	"github.com/irdevice/querycore/internal/memblock"
	"github.com/irdevice/querycore/internal/regtype"
)

type Operation int

const (
	Read Operation = iota
	Write
)

func (o Operation) String() string {
	if o == Write {
		return "write"
	}
	return "read"
}

type Status int

const (
	NotExecuted Status = iota
	Ok
	DeviceErrorStatus
	UnknownErrorStatusValue
)

func (s Status) String() string {
	switch s {
	case NotExecuted:
		return "not_executed"
	case Ok:
		return "ok"
	case DeviceErrorStatus:
		return "device_error"
	case UnknownErrorStatusValue:
		return "unknown_error"
	default:
		return "invalid"
	}
}

// Executor is what a device offers to run a query. Implemented by *device.Device.
type Executor interface {
	Execute(q *Query) error
}

// Query is one contiguous, single-type read or write, spanning
// Count blocks of Type starting at address Start.
type Query struct {
	op     Operation
	typ    regtype.BlockType
	start  uint32
	count  uint16
	blocks []*memblock.Block
	vregs  []*VirtualRegister
	status Status
}

func (q *Query) Operation() Operation      { return q.op }
func (q *Query) Type() regtype.BlockType   { return q.typ }
func (q *Query) Start() uint32             { return q.start }
func (q *Query) Count() uint16             { return q.count }
func (q *Query) Status() Status            { return q.status }
func (q *Query) Registers() []*VirtualRegister { return q.vregs }

func (q *Query) resetStatus() { q.status = NotExecuted }

// FinalizeRead distributes raw (Count*Type.Size bytes) into every
// contributing register's assembled value and into the cache of any
// block that needs one, then marks the query Ok. Called by
// device.Device.Execute after the adapter's read succeeds.
func (q *Query) FinalizeRead(raw []byte) error {
	sz := int(q.typ.Size)
	if len(raw) != len(q.blocks)*sz {
		return cerr.NewConfig("query: expected %d bytes, got %d", len(q.blocks)*sz, len(raw))
	}

	for i, blk := range q.blocks {
		if blk.NeedsCaching() {
			if c := blk.Cache(); c != nil {
				copy(c, raw[i*sz:(i+1)*sz])
			}
		}
	}

	q.status = Ok
	for _, vr := range q.vregs {
		val, ok := assembleRaw(vr, q, raw)
		if !ok {
			continue
		}
		vr.AcceptDeviceValue(val)
	}
	return nil
}

// GetValues composes the outgoing payload for a write query: each
// block's slot starts from its cache (zero if none), then every
// contributing register with a pending write overlays its bits.
func (q *Query) GetValues() []byte {
	sz := int(q.typ.Size)
	out := make([]byte, len(q.blocks)*sz)
	for i, blk := range q.blocks {
		if c := blk.Cache(); c != nil {
			copy(out[i*sz:(i+1)*sz], c)
		}
	}

	for _, vr := range q.vregs {
		if vr.valueToWrite == nil {
			continue
		}
		overlayWrite(out, sz, vr, q)
	}
	return out
}

// FinalizeWrite marks a successful write and clears every contributing
// register's pending value.
func (q *Query) FinalizeWrite() {
	q.status = Ok
	for _, vr := range q.vregs {
		vr.MarkWriteError(false)
		vr.valueToWrite = nil
	}
}

// MarkFailed propagates a device/unknown error from this query to every
// contributing register's error state.
func (q *Query) MarkFailed(status Status) {
	q.status = status
	for _, vr := range q.vregs {
		if q.op == Write {
			vr.MarkWriteError(true)
		} else {
			vr.MarkReadError()
		}
	}
}

func newSingleRegisterQuery(vr *VirtualRegister, op Operation) (*Query, error) {
	if len(vr.blocks) == 0 {
		return nil, cerr.NewConfig("register %s has no blocks", vr.cfg.Name)
	}
	blocks := make([]*memblock.Block, len(vr.blocks))
	for i, bd := range vr.blocks {
		blocks[i] = bd.Block
	}
	return &Query{
		op:     op,
		typ:    vr.cfg.Type,
		start:  blocks[0].Address,
		count:  uint16(len(blocks)),
		blocks: blocks,
		vregs:  []*VirtualRegister{vr},
		status: NotExecuted,
	}, nil
}

// --- bit assembly helpers ---

func maskBits(width uint16) uint64 {
	if width >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << width) - 1
}

func beDecode(b []byte) uint64 {
	var v uint64
	for _, by := range b {
		v = v<<8 | uint64(by)
	}
	return v
}

func beEncode(v uint64, size int) []byte {
	out := make([]byte, size)
	for i := size - 1; i >= 0; i-- {
		out[i] = byte(v)
		v >>= 8
	}
	return out
}

// chunkShifts maps each of a register's block bindings to the shift
// within its own 64-bit value where that block's bits land, honoring
// word order: little-endian fills from the low end first, big-endian
// from the high end first.
func chunkShifts(bindings []memblock.Binding, order bind.WordOrder) []uint16 {
	sizes := make([]uint16, len(bindings))
	var total uint16
	for i, bd := range bindings {
		sizes[i] = bd.Info.BitCount()
		total += sizes[i]
	}
	shifts := make([]uint16, len(bindings))
	if order == bind.LittleEndian {
		var cum uint16
		for i, s := range sizes {
			shifts[i] = cum
			cum += s
		}
	} else {
		var cum uint16
		for i, s := range sizes {
			cum += s
			shifts[i] = total - cum
		}
	}
	return shifts
}

func blockIndex(q *Query, blk *memblock.Block) int {
	for i, b := range q.blocks {
		if b == blk {
			return i
		}
	}
	return -1
}

func assembleRaw(vr *VirtualRegister, q *Query, raw []byte) (uint64, bool) {
	sz := int(q.typ.Size)
	shifts := chunkShifts(vr.blocks, vr.cfg.WordOrder)
	var result uint64
	for i, bd := range vr.blocks {
		idx := blockIndex(q, bd.Block)
		if idx < 0 {
			return 0, false
		}
		word := beDecode(raw[idx*sz : (idx+1)*sz])
		width := bd.Info.BitCount()
		sub := (word >> bd.Info.Start) & maskBits(width)
		result |= sub << shifts[i]
	}
	return result, true
}

func overlayWrite(out []byte, sz int, vr *VirtualRegister, q *Query) {
	shifts := chunkShifts(vr.blocks, vr.cfg.WordOrder)
	raw := vr.valueToWrite.Raw()
	for i, bd := range vr.blocks {
		idx := blockIndex(q, bd.Block)
		if idx < 0 {
			continue
		}
		width := bd.Info.BitCount()
		sub := (raw >> shifts[i]) & maskBits(width)

		slice := out[idx*sz : (idx+1)*sz]
		word := beDecode(slice)
		word &^= maskBits(width) << bd.Info.Start
		word |= sub << bd.Info.Start
		copy(slice, beEncode(word, sz))
	}
}
