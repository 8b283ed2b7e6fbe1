// internal/vregister/weakref.go
//
// A virtual register's device backreference is weak, mirroring blocks'
// own weak device linkage in memblock — the register is owned by the
// configuration catalogue, the device is owned by whatever wires devices
// up (the driver), and neither should keep the other alive past its own
// lifetime.
package vregister

import (
	"weak"

	"github.com/irdevice/querycore/internal/memblock"
)

type devPtr[T any] interface {
	*T
	memblock.DeviceHandle
}

type weakDeviceRef struct {
	resolve func() (memblock.DeviceHandle, bool)
}

func newDeviceRef[T any, P devPtr[T]](v P) weakDeviceRef {
	p := weak.Make((*T)(v))
	return weakDeviceRef{
		resolve: func() (memblock.DeviceHandle, bool) {
			got := p.Value()
			if got == nil {
				return nil, false
			}
			return memblock.DeviceHandle(P(got)), true
		},
	}
}
