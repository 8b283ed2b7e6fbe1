package memblock

import (
	"testing"

	"github.com/irdevice/querycore/internal/bind"
	"github.com/irdevice/querycore/internal/regtype"
)

// fakeRegister is a minimal Register/DeviceOwner implementation for
// exercising linkage behaviour without pulling in the vregister package
// (which imports this one for the block/binding types).
type fakeRegister struct {
	readOnly bool
	info     bind.Info
	dev      *fakeDevice
}

func (r *fakeRegister) ReadOnly() bool { return r.readOnly }
func (r *fakeRegister) BindInfoFor(b *Block) (bind.Info, bool) {
	return r.info, true
}
func (r *fakeRegister) DeviceOwner() (DeviceHandle, bool) {
	if r.dev == nil {
		return nil, false
	}
	return r.dev, true
}

type fakeDevice struct{ id string }

func (d *fakeDevice) ID() string { return d.id }

func TestFullCoverageSingleBitIsOneBit(t *testing.T) {
	b := New(0, regtype.BlockType{Index: 2, Name: "coil", Size: 1, SingleBit: true})
	got := b.FullCoverage()
	if got.Start != 0 || got.End != 1 {
		t.Fatalf("FullCoverage() = %v, want [0,1)", got)
	}
}

func TestFullCoverageRegisterIsSizeTimesEight(t *testing.T) {
	b := New(0, regtype.BlockType{Index: 0, Name: "holding", Size: 2})
	got := b.FullCoverage()
	if got.Start != 0 || got.End != 16 {
		t.Fatalf("FullCoverage() = %v, want [0,16)", got)
	}
}

func TestNeedsCachingFalseForReadOnlyType(t *testing.T) {
	b := New(0, regtype.BlockType{Index: 1, Name: "input", Size: 2, ReadOnly: true})
	dev := &fakeDevice{id: "d1"}
	reg := &fakeRegister{info: bind.Info{Start: 0, End: 8}, dev: dev}
	if err := AssociateWith[fakeRegister](b, reg); err != nil {
		t.Fatalf("AssociateWith: %v", err)
	}
	if b.NeedsCaching() {
		t.Fatal("read-only block type should never need caching")
	}
}

func TestNeedsCachingTrueForPartialCoverage(t *testing.T) {
	b := New(0, regtype.BlockType{Index: 0, Name: "holding", Size: 2})
	dev := &fakeDevice{id: "d1"}
	reg := &fakeRegister{info: bind.Info{Start: 0, End: 8}, dev: dev} // covers half of 16 bits
	if err := AssociateWith[fakeRegister](b, reg); err != nil {
		t.Fatalf("AssociateWith: %v", err)
	}
	if !b.NeedsCaching() {
		t.Fatal("partial coverage of a writable block must require caching")
	}
}

func TestNeedsCachingFalseForFullCoverage(t *testing.T) {
	b := New(0, regtype.BlockType{Index: 0, Name: "holding", Size: 2})
	dev := &fakeDevice{id: "d1"}
	reg := &fakeRegister{info: bind.Info{Start: 0, End: 16}, dev: dev}
	if err := AssociateWith[fakeRegister](b, reg); err != nil {
		t.Fatalf("AssociateWith: %v", err)
	}
	if b.NeedsCaching() {
		t.Fatal("full coverage of a writable block must not require caching")
	}
}

func TestNeedsCachingSingleBitFullCoverageIsOneBitNotEight(t *testing.T) {
	// Before the BlockBits fix, a coil register claiming its one real bit
	// [0,1) would have looked like partial coverage of an assumed 8-bit
	// block and wrongly required caching.
	b := New(0, regtype.BlockType{Index: 2, Name: "coil", Size: 1, SingleBit: true})
	dev := &fakeDevice{id: "d1"}
	reg := &fakeRegister{info: bind.Info{Start: 0, End: 1}, dev: dev}
	if err := AssociateWith[fakeRegister](b, reg); err != nil {
		t.Fatalf("AssociateWith: %v", err)
	}
	if b.NeedsCaching() {
		t.Fatal("a coil register claiming its single bit fully covers the block")
	}
}

func TestAssociateWithRejectsDeviceLinkageSwitch(t *testing.T) {
	b := New(0, regtype.BlockType{Index: 0, Name: "holding", Size: 2})
	dev := &fakeDevice{id: "d1"}
	if err := BindDevice[fakeDevice](b, dev); err != nil {
		t.Fatalf("BindDevice: %v", err)
	}
	reg := &fakeRegister{info: bind.Info{Start: 0, End: 16}, dev: dev}
	if err := AssociateWith[fakeRegister](b, reg); err == nil {
		t.Fatal("expected error switching a device-linked block to a register linkage")
	}
}

func TestAssociateWithRejectsOverlap(t *testing.T) {
	b := New(0, regtype.BlockType{Index: 0, Name: "holding", Size: 2})
	dev := &fakeDevice{id: "d1"}
	a := &fakeRegister{info: bind.Info{Start: 0, End: 8}, dev: dev}
	c := &fakeRegister{info: bind.Info{Start: 4, End: 12}, dev: dev}
	if err := AssociateWith[fakeRegister](b, a); err != nil {
		t.Fatalf("AssociateWith(a): %v", err)
	}
	if err := AssociateWith[fakeRegister](b, c); err == nil {
		t.Fatal("expected overlap error")
	}
}

func TestBlockLessOrdersByTypeThenAddress(t *testing.T) {
	holding0 := New(0, regtype.BlockType{Index: 0, Name: "holding", Size: 2})
	holding1 := New(1, regtype.BlockType{Index: 0, Name: "holding", Size: 2})
	coil0 := New(0, regtype.BlockType{Index: 2, Name: "coil", Size: 1, SingleBit: true})
	if !holding0.Less(holding1) {
		t.Fatal("holding0 should sort before holding1")
	}
	if !holding0.Less(coil0) {
		t.Fatal("holding (type 0) should sort before coil (type 2)")
	}
}
