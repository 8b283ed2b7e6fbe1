// internal/config/config.go
package config

import "time"

// Config is the top-level catalogue: every device this process polls and
// the registers bound against it.
type Config struct {
	Devices []DeviceConfig `yaml:"devices"`
}

// DeviceConfig describes one physical device: how to reach it, the
// query-planning limits its bus imposes, and the registers bound to it.
type DeviceConfig struct {
	ID       string `yaml:"id"`
	Protocol string `yaml:"protocol"` // "modbus_tcp" | "modbus_rtu" | "mercury230" | "ivtm"
	Endpoint string `yaml:"endpoint"` // host:port for TCP, device path for serial
	UnitID   uint8  `yaml:"unit_id"`

	TimeoutMs int `yaml:"timeout_ms"`

	Serial *SerialConfig `yaml:"serial"`

	MaxBitHole       uint32 `yaml:"max_bit_hole"`
	MaxRegHole       uint32 `yaml:"max_reg_hole"`
	MaxReadRegisters uint16 `yaml:"max_read_registers"`

	Registers []RegisterConfig `yaml:"registers"`
}

func (d DeviceConfig) Timeout() time.Duration { return time.Duration(d.TimeoutMs) * time.Millisecond }

// SerialConfig configures an RS-485/RS-232 line for RTU or ASCII-hex
// protocols; nil for TCP-transported devices.
type SerialConfig struct {
	BaudRate int    `yaml:"baud_rate"`
	DataBits int    `yaml:"data_bits"`
	StopBits int    `yaml:"stop_bits"`
	Parity   string `yaml:"parity"`
}

// RegisterConfig is one virtual register's catalogue entry — the fields
// vregister.Config is built from once type/format names are resolved.
type RegisterConfig struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"` // "holding" | "input" | "coil" | "discrete"

	Address   uint32 `yaml:"address"`
	BitOffset uint16 `yaml:"bit_offset"`
	BitWidth  uint16 `yaml:"bit_width"`
	WordOrder string `yaml:"word_order"` // "big_endian" | "little_endian"

	Format  string  `yaml:"format"`
	Scale   float64 `yaml:"scale"`
	Offset  float64 `yaml:"offset"`
	RoundTo float64 `yaml:"round_to"`

	PollIntervalMs int64 `yaml:"poll_interval_ms"`
	ReadOnly       bool  `yaml:"read_only"`
	Poll           *bool `yaml:"poll"`

	ErrorValue *uint64 `yaml:"error_value"`
	OnValue    string  `yaml:"on_value"`
}

func (r RegisterConfig) PollInterval() time.Duration {
	return time.Duration(r.PollIntervalMs) * time.Millisecond
}
