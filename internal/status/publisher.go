// internal/status/publisher.go
//
// Publisher turns a device's virtual registers into the health Snapshot
// this package's Encode already knows how to lay out as a register
// block — the original replicator derived the same three fields (health,
// last error code, seconds in error) from a single poll's pass/fail;
// here they're derived from ErrorState accumulated across every register
// bound to a device, since a query-planning device rarely fails or
// succeeds as a single unit the way one hand-written poll loop did.
package status

import "github.com/irdevice/querycore/internal/vregister"

// Publisher accumulates one device's SecondsInError counter across Tick
// calls; everything else in a Snapshot is recomputed fresh each time.
type Publisher struct {
	secondsInError uint16
}

// NewPublisher creates a publisher starting from HealthUnknown.
func NewPublisher() *Publisher {
	return &Publisher{}
}

// Tick derives a fresh Snapshot from vregs' current error state and
// advances SecondsInError. Call once per second.
func (p *Publisher) Tick(vregs []*vregister.VirtualRegister) Snapshot {
	var anyKnown, anyError bool
	var lastCode uint16

	for _, vr := range vregs {
		es := vr.ErrorState()
		if es == vregister.UnknownErrorState {
			continue
		}
		anyKnown = true
		if es.Has(vregister.ReadError) || es.Has(vregister.WriteError) {
			anyError = true
			lastCode = uint16(es)
		}
	}

	if anyError {
		if p.secondsInError < 65535 {
			p.secondsInError++
		}
	} else {
		p.secondsInError = 0
	}

	health := HealthOK
	switch {
	case !anyKnown:
		health = HealthUnknown
	case anyError:
		health = HealthError
	}

	return Snapshot{
		Health:         health,
		LastErrorCode:  lastCode,
		SecondsInError: p.secondsInError,
	}
}
