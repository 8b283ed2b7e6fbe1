// internal/memblock/weakref.go
//
// Blocks hold their owning device and associated virtual registers by
// weak reference only: forward edges (virtual register -> block ->
// device) are strong, reverse edges are weak, so nothing here keeps a
// device or virtual register alive on its
// own. weakRegRef/weakDeviceRef are tiny generic wrappers around the
// standard library's weak.Pointer so this package never needs to import
// the concrete device/vregister packages (which import this one for the
// strong forward edge) — the caller instantiates the generic at the call
// site, where the concrete type is already in scope.
package memblock

import (
	"weak"

	"github.com/irdevice/querycore/internal/bind"
)

// Register is the narrow view of a virtual register that a block's
// linkage needs: whether it's writable and what bit range of this block
// it claims. Implemented by *vregister.VirtualRegister.
type Register interface {
	ReadOnly() bool
	BindInfoFor(block *Block) (info bind.Info, ok bool)
}

// DeviceHandle is the narrow view of a device a block needs to describe
// its owner. Implemented by *device.Device.
type DeviceHandle interface {
	ID() string
}

// regPtr constrains P to "pointer to T that implements Register", the
// standard trick for storing a weak.Pointer[T] while only ever handing
// callers back the Register interface.
type regPtr[T any] interface {
	*T
	Register
}

type weakRegRef struct {
	resolve func() (Register, bool)
	equal   func(Register) bool
}

func newRegRef[T any, P regPtr[T]](v P) weakRegRef {
	p := weak.Make((*T)(v))
	return weakRegRef{
		resolve: func() (Register, bool) {
			got := p.Value()
			if got == nil {
				return nil, false
			}
			return Register(P(got)), true
		},
		equal: func(other Register) bool {
			got := p.Value()
			if got == nil || other == nil {
				return false
			}
			otherP, ok := other.(P)
			if !ok {
				return false
			}
			return P(got) == otherP
		},
	}
}

type devPtr[T any] interface {
	*T
	DeviceHandle
}

type weakDeviceRef struct {
	resolve func() (DeviceHandle, bool)
}

func newDeviceRef[T any, P devPtr[T]](v P) weakDeviceRef {
	p := weak.Make((*T)(v))
	return weakDeviceRef{
		resolve: func() (DeviceHandle, bool) {
			got := p.Value()
			if got == nil {
				return nil, false
			}
			return DeviceHandle(P(got)), true
		},
	}
}
