// internal/vregister/config.go
//
// Package vregister groups virtual register binding, query construction
// and query-set merging into one package. The original groups these
// concerns across virtual_register.cpp, ir_device_query_factory.cpp and
// ir_device_query.cpp, which all lean on each other constantly; splitting
// them into separate Go
// packages would force either a real import cycle (QueryFactory needs
// VirtualRegister, VirtualRegister's Initialize needs QueryFactory to
// pre-build its write query) or a narrow-interface workaround that buys
// nothing here, since nothing outside this package needs to sit between
// them.
package vregister

import (
	"time"

	"github.com/irdevice/querycore/internal/bind"
	"github.com/irdevice/querycore/internal/formatter"
	"github.com/irdevice/querycore/internal/regtype"
)

// Config is the per-register slice of a device's catalogue entry.
type Config struct {
	Name         string
	Type         regtype.BlockType
	Address      uint32
	BitOffset    uint16
	BitWidth     uint16
	WordOrder    bind.WordOrder
	Format       formatter.Format
	Scale        float64
	Offset       float64
	RoundTo      float64
	PollInterval time.Duration
	ReadOnly     bool
	HasErrorValue bool
	ErrorValue   uint64
	Poll         bool

	// OnValue, when set, turns this register into a boolean alias: the
	// text protocol only ever sees "1"/"0", translated to/from OnValue on
	// the underlying formatter (any other underlying text reads as "0").
	OnValue string
}

// scale/offset default to identity and are normalised at load time by the
// config package; vregister trusts them as given.
