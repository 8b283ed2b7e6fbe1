// internal/memblock/linkage.go
//
// Linkage is a tagged variant: a block starts unlinked, the first
// association installs either a deviceLinkage (device-owned raw block,
// no registers) or a registerLinkage (owned by one or more virtual
// registers); once installed, a linkage's kind never changes. Two
// unexported implementations, no open interface for extension: there are
// exactly two cases.
package memblock

import "github.com/irdevice/querycore/internal/cerr"

type linkage interface {
	device() (DeviceHandle, bool)
	registers() []Register
	needsCaching() bool
}

// deviceLinkage backs a block owned directly by its device (raw I/O, no
// virtual register ever binds to it).
type deviceLinkage struct {
	dev weakDeviceRef
}

func (l *deviceLinkage) device() (DeviceHandle, bool) { return l.dev.resolve() }
func (l *deviceLinkage) registers() []Register        { return nil }
func (l *deviceLinkage) needsCaching() bool           { return false }

// registerLinkage backs a block claimed by one or more virtual registers.
// needsCaching is true iff the block is writable and at least one
// associated register doesn't cover the full block width — a partial
// write would otherwise corrupt the uncovered bits.
type registerLinkage struct {
	block *Block
	regs  []weakRegRef
}

func (l *registerLinkage) device() (DeviceHandle, bool) {
	if len(l.regs) == 0 {
		return nil, false
	}
	// The linkage has no strong device pointer of its own; every
	// associated register shares the same device (each device has its
	// own Store, so a block is only ever linked to that device's
	// registers; linkWith itself does not check), so the first live one
	// answers for all.
	for _, r := range l.regs {
		reg, ok := r.resolve()
		if !ok {
			continue
		}
		if d, ok := deviceOf(reg); ok {
			return d, true
		}
	}
	return nil, false
}

func (l *registerLinkage) registers() []Register {
	out := make([]Register, 0, len(l.regs))
	for _, r := range l.regs {
		if reg, ok := r.resolve(); ok {
			out = append(out, reg)
		}
	}
	return out
}

func (l *registerLinkage) has(reg Register) bool {
	for _, r := range l.regs {
		if r.equal(reg) {
			return true
		}
	}
	return false
}

func (l *registerLinkage) linkWith(reg Register, ref weakRegRef) error {
	if l.has(reg) {
		return nil // idempotent re-registration
	}

	for _, existing := range l.regs {
		existingReg, ok := existing.resolve()
		if !ok {
			continue
		}
		if overlaps(existingReg, reg, l.block) {
			return cerr.NewConfig("registers overlap on block %s", l.block.Describe())
		}
	}

	l.regs = append(l.regs, ref)
	return nil
}

func (l *registerLinkage) needsCaching() bool {
	if l.block.Type.ReadOnly {
		return false
	}
	full := l.block.FullCoverage()

	for _, r := range l.regs {
		reg, ok := r.resolve()
		if !ok {
			continue
		}
		if reg.ReadOnly() {
			continue
		}
		info, ok := reg.BindInfoFor(l.block)
		if !ok || !info.Equal(full) {
			return true
		}
	}
	return false
}

// deviceOf extracts a register's owning device without this package
// needing to know the concrete register type; vregister.VirtualRegister
// exposes it through the wider DeviceOwner interface it also satisfies.
func deviceOf(reg Register) (DeviceHandle, bool) {
	owner, ok := reg.(interface{ DeviceOwner() (DeviceHandle, bool) })
	if !ok {
		return nil, false
	}
	return owner.DeviceOwner()
}

func overlaps(a, b Register, block *Block) bool {
	aInfo, aok := a.BindInfoFor(block)
	bInfo, bok := b.BindInfoFor(block)
	if !aok || !bok {
		return false
	}
	return aInfo.Start < bInfo.End && bInfo.Start < aInfo.End
}
