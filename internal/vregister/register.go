// internal/vregister/register.go
//
// VirtualRegister ports virtual_register.cpp's TVirtualRegister. It owns
// shared references forward to its memory blocks (via memblock.Binding)
// and a weak backreference to its device; the query factory and query
// machinery in this package hold strong references to it in turn, which is
// fine because queries are transient (built fresh each planning pass, or
// once for the register's own write query) rather than cached ownership.
package vregister

import (
	"fmt"
	"sync/atomic"

	"github.com/irdevice/querycore/internal/bind"
	"github.com/irdevice/querycore/internal/cerr"
	"github.com/irdevice/querycore/internal/formatter"
	"github.com/irdevice/querycore/internal/memblock"
)

// VirtualRegister is a named, typed view over one or more contiguous
// memory blocks, assembled into a single value of up to 64 bits.
type VirtualRegister struct {
	cfg    Config
	blocks []memblock.Binding
	device weakDeviceRef

	currentValue formatter.Value
	valueToWrite *formatter.Value
	writeQuery   *Query

	errorState ErrorState
	changed    PublishFlags
	dirty      atomic.Bool

	enabled          bool
	valueIsRead      bool
	valueWasAccepted bool
}

// Create builds a virtual register against store, binding it to every
// memory block its configuration spans and, for writable registers,
// pre-building the single-query QuerySet used by every future Flush.
func Create[T any, P devPtr[T]](store *memblock.Store, dev P, cfg Config) (*VirtualRegister, error) {
	if cfg.BitWidth == 0 || cfg.BitWidth > 64 {
		return nil, cerr.NewConfig("register %s: bit width %d out of range (1..64)", cfg.Name, cfg.BitWidth)
	}

	bindings, err := memblock.BuildBinding(store, cfg.Type, cfg.Address, cfg.BitOffset, cfg.BitWidth)
	if err != nil {
		return nil, fmt.Errorf("register %s: %w", cfg.Name, err)
	}

	vr := &VirtualRegister{
		cfg:          cfg,
		blocks:       bindings,
		device:       newDeviceRef[T, P](dev),
		currentValue: formatter.New(cfg.Format, cfg.Scale, cfg.Offset, cfg.RoundTo),
		errorState:   UnknownErrorState,
		enabled:      true,
	}

	for _, bd := range bindings {
		if err := memblock.AssociateWith[VirtualRegister](bd.Block, vr); err != nil {
			return nil, fmt.Errorf("register %s: %w", cfg.Name, err)
		}
		if bd.Block.NeedsCaching() && bd.Block.Cache() == nil {
			if err := bd.Block.AssignCache(make([]byte, bd.Block.Size)); err != nil {
				return nil, fmt.Errorf("register %s: %w", cfg.Name, err)
			}
		}
	}

	if !cfg.ReadOnly {
		q, err := newSingleRegisterQuery(vr, Write)
		if err != nil {
			return nil, fmt.Errorf("register %s: write query: %w", cfg.Name, err)
		}
		vr.writeQuery = q
	}

	return vr, nil
}

// --- memblock.Register ---

func (vr *VirtualRegister) ReadOnly() bool { return vr.cfg.ReadOnly }

func (vr *VirtualRegister) BindInfoFor(block *memblock.Block) (bind.Info, bool) {
	for _, bd := range vr.blocks {
		if bd.Block == block {
			return bd.Info, true
		}
	}
	return bind.Info{}, false
}

// DeviceOwner satisfies the interface memblock's linkage uses to find a
// register's device without importing this package.
func (vr *VirtualRegister) DeviceOwner() (memblock.DeviceHandle, bool) { return vr.device.resolve() }

// --- accessors consulted by the query factory ---

func (vr *VirtualRegister) Name() string           { return vr.cfg.Name }
func (vr *VirtualRegister) Blocks() []memblock.Binding { return vr.blocks }
func (vr *VirtualRegister) PollInterval() int64    { return vr.cfg.PollInterval.Milliseconds() }
func (vr *VirtualRegister) ShouldPoll() bool       { return vr.cfg.Poll }
func (vr *VirtualRegister) Enabled() bool          { return vr.enabled }
func (vr *VirtualRegister) SetEnabled(v bool)      { vr.enabled = v }

// bitPosition mirrors GetBitPosition: Address*block_size_bytes*8 + width
// - bit_offset, preserved exactly even though it reads oddly for a
// register whose first block is wide and whose bit_offset is narrow.
func (vr *VirtualRegister) bitPosition() uint32 {
	first := vr.blocks[0].Block
	return first.Address*uint32(first.Size)*8 + uint32(vr.cfg.BitWidth) - uint32(vr.cfg.BitOffset)
}

// Less orders registers by (type index, bit position), a total order over
// registers. Query planning does not sort by it.
func (vr *VirtualRegister) Less(o *VirtualRegister) bool {
	if vr.cfg.Type.Index != o.cfg.Type.Index {
		return vr.cfg.Type.Index < o.cfg.Type.Index
	}
	return vr.bitPosition() < o.bitPosition()
}

// --- runtime operations ---

// AcceptDeviceValue is called once finalize_read has assembled this
// register's raw value from its contributing blocks' words. A raw value
// matching the configured error sentinel is treated as a device error
// rather than a real reading. first is latched on valueWasAccepted, which
// is set once and never cleared by an error/recovery cycle, so a register
// that errors once and later re-reads its previous, unchanged value does
// not spuriously re-fire Changed(Value).
func (vr *VirtualRegister) AcceptDeviceValue(raw uint64) {
	vr.valueIsRead = true
	first := !vr.valueWasAccepted
	vr.valueWasAccepted = true

	isErrorValue := vr.cfg.HasErrorValue && raw == vr.cfg.ErrorValue
	if vr.errorState.update(ReadError, isErrorValue) {
		vr.changed |= FlagError
	}
	if isErrorValue {
		return
	}

	prev := vr.currentValue.Raw()
	vr.currentValue = vr.currentValue.WithRaw(raw)
	if first || prev != raw {
		vr.changed |= FlagValue
	}
}

// MarkReadError flips ReadError on directly, for device/unknown errors
// that abort a whole query before any value could be assembled.
func (vr *VirtualRegister) MarkReadError() {
	if vr.errorState.update(ReadError, true) {
		vr.changed |= FlagError
	}
	vr.valueIsRead = false
}

// MarkWriteError flips WriteError on or off depending on how the last
// flush's write query completed.
func (vr *VirtualRegister) MarkWriteError(failed bool) {
	if vr.errorState.update(WriteError, failed) {
		vr.changed |= FlagError
	}
}

// SetTextValue decodes text through the register's formatter and queues
// it for the next Flush. Decode failures are a ValueError returned
// directly to the caller; they never touch ErrorState. If OnValue is
// configured, text is expected to be "1"/"0" and is translated to
// OnValue/"0" before reaching the formatter.
func (vr *VirtualRegister) SetTextValue(text string) error {
	if vr.cfg.ReadOnly {
		return cerr.NewConfig("register %s is read-only", vr.cfg.Name)
	}
	if vr.cfg.OnValue != "" {
		if text == "1" {
			text = vr.cfg.OnValue
		} else {
			text = "0"
		}
	}
	parsed, err := vr.currentValue.Parse(text)
	if err != nil {
		return err
	}
	vr.valueToWrite = &parsed
	vr.dirty.Store(true)
	return nil
}

// InvalidateReadValues clears the last-known value and returns the
// register to UnknownErrorState, used when a device is (re)connected and
// any prior reading can no longer be trusted.
func (vr *VirtualRegister) InvalidateReadValues() {
	vr.valueIsRead = false
	vr.errorState = UnknownErrorState
	vr.currentValue = vr.currentValue.WithRaw(0)
}

// Dirty reports whether a write is pending. This is the sole field
// touched from both the producer and bus threads; its
// atomic.Bool load/store is release/acquire by construction.
func (vr *VirtualRegister) Dirty() bool { return vr.dirty.Load() }

// Flush executes the register's pending write, if any, through exec, and
// clears Dirty once the attempt completes (success or failure).
func (vr *VirtualRegister) Flush(exec Executor) error {
	if !vr.dirty.Load() {
		return nil
	}
	defer vr.dirty.Store(false)

	if vr.writeQuery == nil {
		return cerr.NewConfig("register %s: flush called but no write query was built", vr.cfg.Name)
	}

	vr.writeQuery.resetStatus()
	err := exec.Execute(vr.writeQuery)
	failed := err != nil || vr.writeQuery.status != Ok
	vr.MarkWriteError(failed)
	if !failed {
		vr.valueToWrite = nil
	}
	return err
}

// CurrentText renders the register's last accepted value as text. If
// OnValue is configured, the underlying text is collapsed to "1" when it
// equals OnValue and "0" otherwise.
func (vr *VirtualRegister) CurrentText() (string, error) {
	text, err := vr.currentValue.Text()
	if err != nil {
		return "", err
	}
	if vr.cfg.OnValue == "" {
		return text, nil
	}
	if text == vr.cfg.OnValue {
		return "1", nil
	}
	return "0", nil
}

// ErrorState reports the register's current read/write error flags.
func (vr *VirtualRegister) ErrorState() ErrorState { return vr.errorState }

// TakeChanged returns and clears the publish flags accumulated since the
// last call, for a status publisher running at cycle boundaries.
func (vr *VirtualRegister) TakeChanged() PublishFlags {
	f := vr.changed
	vr.changed = FlagNone
	return f
}

// Describe renders a short diagnostic identifier, mirroring
// TVirtualRegister::ToString.
func (vr *VirtualRegister) Describe() string {
	return fmt.Sprintf("register %s (type %s, %d blocks, %s)", vr.cfg.Name, vr.cfg.Type, len(vr.blocks), vr.errorState)
}
