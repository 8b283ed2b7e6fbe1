// internal/memblock/block.go
package memblock

import (
	"fmt"

	"github.com/irdevice/querycore/internal/bind"
	"github.com/irdevice/querycore/internal/cerr"
	"github.com/irdevice/querycore/internal/regtype"
)

// Block is one addressable unit of a device's protocol address space
//. It owns an optional cache buffer and an external linkage
// tying it either to its raw device or to the virtual registers built on
// top of it.
type Block struct {
	Address uint32
	Type    regtype.BlockType
	Size    uint16 // = Type.Size unless Type.Variadic

	cache []byte
	link  linkage
}

// New creates a block of a type's fixed size. Panics if the type is
// variadic — those must go through NewVariadic with an explicit size,
// matching the two-constructor split in the original TMemoryBlock.
func New(address uint32, t regtype.BlockType) *Block {
	if t.Variadic {
		panic("memblock: variadic-size type requires NewVariadic")
	}
	return &Block{Address: address, Type: t, Size: t.Size}
}

// NewVariadic creates a block of a variadic-size type with an explicit
// byte size.
func NewVariadic(address uint32, t regtype.BlockType, size uint16) *Block {
	if !t.Variadic {
		panic("memblock: fixed-size type must use New")
	}
	return &Block{Address: address, Type: t, Size: size}
}

// BindDevice installs (or confirms) a device-only linkage on this block.
// For raw, unbound blocks kept for a device's own bookkeeping; Store
// does not call it itself.
func BindDevice[T any, P devPtr[T]](b *Block, dev P) error {
	if _, ok := b.link.(*deviceLinkage); ok {
		return nil // idempotent
	}
	if b.link != nil {
		return cerr.NewConfig("block %s already has a register linkage, cannot bind to device", b.Describe())
	}
	b.link = &deviceLinkage{dev: newDeviceRef[T, P](dev)}
	return nil
}

// AssociateWith installs (on first call) or extends (on later calls) a
// register linkage for this block. Switching from a device linkage to a
// register linkage, or vice versa, is a configuration error.
func AssociateWith[T any, P regPtr[T]](b *Block, reg P) error {
	rl, ok := b.link.(*registerLinkage)
	if !ok {
		if b.link != nil {
			return cerr.NewConfig("block %s already has a device linkage, cannot bind register", b.Describe())
		}
		rl = &registerLinkage{block: b}
		b.link = rl
	}
	return rl.linkWith(Register(reg), newRegRef[T, P](reg))
}

// IsAssociatedWith reports whether reg is already bound to this block.
func IsAssociatedWith[T any, P regPtr[T]](b *Block, reg P) bool {
	rl, ok := b.link.(*registerLinkage)
	if !ok {
		return false
	}
	return rl.has(Register(reg))
}

// NeedsCaching reports whether this block requires a cache buffer:
// unlinked and device-linked blocks never do; a register-linked block
// does iff it's writable and some associated register doesn't cover it
// fully.
func (b *Block) NeedsCaching() bool {
	return b.link != nil && b.link.needsCaching()
}

// AssignCache installs the block's cache buffer. May be called exactly
// once, and only once NeedsCaching is true.
func (b *Block) AssignCache(buf []byte) error {
	if !b.NeedsCaching() {
		return cerr.NewConfig("block %s does not need caching", b.Describe())
	}
	if b.cache != nil {
		return cerr.NewConfig("block %s already has a cache assigned", b.Describe())
	}
	if len(buf) != int(b.Size) {
		return cerr.NewConfig("block %s cache size mismatch: got %d want %d", b.Describe(), len(buf), b.Size)
	}
	b.cache = buf
	return nil
}

// Cache returns the block's cache buffer, or nil if none is assigned.
func (b *Block) Cache() []byte {
	return b.cache
}

// FullCoverage is the BindInfo spanning this block's entire bit width.
// Single-bit types (coils, discrete inputs) are 1 bit wide regardless of
// Size, which only exists to give them a byte-shaped cache slot.
func (b *Block) FullCoverage() bind.Info {
	return bind.FullCoverage(b.Type.BlockBits())
}

// Device returns the block's owning device, resolved through whichever
// linkage is installed. Returns false if unlinked or the device has been
// collected.
func (b *Block) Device() (DeviceHandle, bool) {
	if b.link == nil {
		return nil, false
	}
	return b.link.device()
}

// VirtualRegisters returns the (possibly empty) set of registers
// currently bound to this block, resolved from weak references. Blocks
// with a device-only linkage always return nil.
func (b *Block) VirtualRegisters() []Register {
	if b.link == nil {
		return nil
	}
	return b.link.registers()
}

// IsReady reports whether any linkage has been installed.
func (b *Block) IsReady() bool {
	return b.link != nil
}

// Less orders blocks by (Type.Index, Address)
func (b *Block) Less(o *Block) bool {
	if b.Type.Index != o.Type.Index {
		return b.Type.Index < o.Type.Index
	}
	return b.Address < o.Address
}

// SameAs reports block equality: (Type.Index, Address, Device).
func (b *Block) SameAs(o *Block) bool {
	if b == o {
		return true
	}
	if b.Type.Index != o.Type.Index || b.Address != o.Address {
		return false
	}
	bd, bok := b.Device()
	od, ook := o.Device()
	if bok != ook {
		return false
	}
	if !bok {
		return true
	}
	return bd == od
}

// Describe renders a short diagnostic identifier for this block.
func (b *Block) Describe() string {
	devName := "?"
	if d, ok := b.Device(); ok {
		devName = d.ID()
	}
	return fmt.Sprintf("%s block %d of device %s", b.Type.Name, b.Address, devName)
}
