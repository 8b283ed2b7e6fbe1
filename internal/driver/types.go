// internal/driver/types.go
//
// Every protocol this runtime speaks shares one small, fixed
// regtype.Registry (holding/input/coil/discrete, built fresh per device by
// standardRegistry) and picks a device.ProtocolInfo giving the wire's hard
// ceilings. Config never invents a type: RegisterConfig.Type is resolved
// against that registry.
package driver

import (
	"github.com/irdevice/querycore/internal/device"
	"github.com/irdevice/querycore/internal/regtype"
	"github.com/irdevice/querycore/internal/vregister"
)

const (
	typeHolding  = 0
	typeInput    = 1
	typeCoil     = 2
	typeDiscrete = 3
)

// standardRegistry declares the four data tables every protocol here
// exposes under the same names, so config files stay protocol-agnostic.
// Sizes are in bytes: registers are 2 bytes wide; coils/discretes get a
// 1-byte cache slot even though each address is a single bit.
//
// Mercury230/IVTM meters have no real distinction between "holding" and
// "input" words and no individually addressable bits; for them
// coil/discrete just means "the smallest readable unit is one parameter
// word" rather than anything bit-addressable. Each call returns a fresh
// registry — devices never share one.
func standardRegistry() *regtype.Registry {
	r, err := regtype.NewRegistry(
		regtype.BlockType{Index: typeHolding, Name: "holding", Size: 2},
		regtype.BlockType{Index: typeInput, Name: "input", Size: 2, ReadOnly: true},
		regtype.BlockType{Index: typeCoil, Name: "coil", Size: 1, SingleBit: true},
		regtype.BlockType{Index: typeDiscrete, Name: "discrete", Size: 1, SingleBit: true, ReadOnly: true},
	)
	if err != nil {
		panic(err) // fixed literal set, can only fail on a typo here
	}
	return r
}

// modbusProtocolInfo is the standard Modbus function-code ceiling: 2000
// bits/125 registers readable, 1968 bits/123 registers writable per PDU.
type modbusProtocolInfo struct{}

func (modbusProtocolInfo) IsSingleBitType(t regtype.BlockType) bool { return t.SingleBit }
func (modbusProtocolInfo) MaxReadBits() uint16                     { return 2000 }
func (modbusProtocolInfo) MaxReadRegisters() uint16                { return 125 }
func (modbusProtocolInfo) MaxWriteBits() uint16                    { return 1968 }
func (modbusProtocolInfo) MaxWriteRegisters() uint16               { return 123 }

var _ device.ProtocolInfo = modbusProtocolInfo{}

// asciiProtocolInfo bounds Mercury230/IVTM's much smaller frames: a
// request line only has room for a handful of parameter words, and these
// meters have no bit-addressable function codes at all.
type asciiProtocolInfo struct{}

func (asciiProtocolInfo) IsSingleBitType(regtype.BlockType) bool { return false }
func (asciiProtocolInfo) MaxReadBits() uint16                   { return 0 }
func (asciiProtocolInfo) MaxReadRegisters() uint16               { return 16 }
func (asciiProtocolInfo) MaxWriteBits() uint16                   { return 0 }
func (asciiProtocolInfo) MaxWriteRegisters() uint16              { return 8 }

var _ device.ProtocolInfo = asciiProtocolInfo{}

var _ vregister.Limits = (*device.Device)(nil)
