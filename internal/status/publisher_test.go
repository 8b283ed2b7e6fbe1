package status

import (
	"testing"

	"github.com/irdevice/querycore/internal/formatter"
	"github.com/irdevice/querycore/internal/memblock"
	"github.com/irdevice/querycore/internal/regtype"
	"github.com/irdevice/querycore/internal/vregister"
)

type fakeDevice struct{ id string }

func (d *fakeDevice) ID() string { return d.id }

var holdingType = regtype.BlockType{Index: 0, Name: "holding", Size: 2}

func mustRegister(t *testing.T, store *memblock.Store, dev *fakeDevice, name string, addr uint32) *vregister.VirtualRegister {
	t.Helper()
	vr, err := vregister.Create[fakeDevice](store, dev, vregister.Config{
		Name: name, Type: holdingType, Address: addr, BitWidth: 16, Format: formatter.U16,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return vr
}

func TestTickHealthUnknownBeforeAnyPoll(t *testing.T) {
	store := memblock.NewStore()
	dev := &fakeDevice{id: "d1"}
	vr := mustRegister(t, store, dev, "r1", 0)

	p := NewPublisher()
	snap := p.Tick([]*vregister.VirtualRegister{vr})
	if snap.Health != HealthUnknown {
		t.Fatalf("Health = %d, want HealthUnknown", snap.Health)
	}
}

func TestTickHealthOKAfterSuccessfulRead(t *testing.T) {
	store := memblock.NewStore()
	dev := &fakeDevice{id: "d1"}
	vr := mustRegister(t, store, dev, "r1", 0)
	vr.AcceptDeviceValue(42)

	p := NewPublisher()
	snap := p.Tick([]*vregister.VirtualRegister{vr})
	if snap.Health != HealthOK {
		t.Fatalf("Health = %d, want HealthOK", snap.Health)
	}
	if snap.SecondsInError != 0 {
		t.Fatalf("SecondsInError = %d, want 0", snap.SecondsInError)
	}
}

func TestTickHealthErrorAndSecondsInErrorAccumulate(t *testing.T) {
	store := memblock.NewStore()
	dev := &fakeDevice{id: "d1"}
	vr := mustRegister(t, store, dev, "r1", 0)
	vr.MarkReadError()

	p := NewPublisher()
	first := p.Tick([]*vregister.VirtualRegister{vr})
	if first.Health != HealthError {
		t.Fatalf("Health = %d, want HealthError", first.Health)
	}
	if first.SecondsInError != 1 {
		t.Fatalf("SecondsInError after first tick = %d, want 1", first.SecondsInError)
	}

	second := p.Tick([]*vregister.VirtualRegister{vr})
	if second.SecondsInError != 2 {
		t.Fatalf("SecondsInError after second tick = %d, want 2", second.SecondsInError)
	}
}

func TestTickSecondsInErrorResetsOnRecovery(t *testing.T) {
	store := memblock.NewStore()
	dev := &fakeDevice{id: "d1"}
	vr := mustRegister(t, store, dev, "r1", 0)
	vr.MarkReadError()

	p := NewPublisher()
	p.Tick([]*vregister.VirtualRegister{vr})
	p.Tick([]*vregister.VirtualRegister{vr})

	vr.AcceptDeviceValue(1) // clears ReadError
	snap := p.Tick([]*vregister.VirtualRegister{vr})
	if snap.Health != HealthOK {
		t.Fatalf("Health = %d, want HealthOK after recovery", snap.Health)
	}
	if snap.SecondsInError != 0 {
		t.Fatalf("SecondsInError = %d, want 0 after recovery", snap.SecondsInError)
	}
}

func TestEncodeLaysOutFixedSlots(t *testing.T) {
	regs := Encode(Snapshot{Health: HealthError, LastErrorCode: 3, SecondsInError: 7})
	if len(regs) != SlotsPerDevice {
		t.Fatalf("len(regs) = %d, want %d", len(regs), SlotsPerDevice)
	}
	if regs[SlotHealthCode] != HealthError {
		t.Errorf("regs[SlotHealthCode] = %d, want %d", regs[SlotHealthCode], HealthError)
	}
	if regs[SlotLastErrorCode] != 3 {
		t.Errorf("regs[SlotLastErrorCode] = %d, want 3", regs[SlotLastErrorCode])
	}
	if regs[SlotSecondsInError] != 7 {
		t.Errorf("regs[SlotSecondsInError] = %d, want 7", regs[SlotSecondsInError])
	}
}
