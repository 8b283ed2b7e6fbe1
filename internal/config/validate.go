// internal/config/validate.go
package config

import "fmt"

var knownProtocols = map[string]bool{
	"modbus_tcp": true, "modbus_rtu": true, "mercury230": true, "ivtm": true,
}

var knownTypes = map[string]bool{
	"holding": true, "input": true, "coil": true, "discrete": true,
}

var knownFormats = map[string]bool{
	"u8": true, "u16": true, "u24": true, "u32": true, "u64": true,
	"s8": true, "s16": true, "s24": true, "s32": true, "s64": true,
	"bcd8": true, "bcd16": true, "bcd24": true, "bcd32": true,
	"float": true, "double": true, "char8": true, "text": true,
}

var knownWordOrders = map[string]bool{"": true, "big_endian": true, "little_endian": true}

func serialProtocol(protocol string) bool {
	return protocol == "modbus_rtu" || protocol == "mercury230" || protocol == "ivtm"
}

// Validate checks catalogue correctness declaratively. It MUST NOT
// mutate cfg — defaults are filled in later by Normalize.
func Validate(cfg *Config) error {
	if cfg == nil || len(cfg.Devices) == 0 {
		return fmt.Errorf("config: at least one device is required")
	}

	seenDevice := make(map[string]bool, len(cfg.Devices))
	for _, d := range cfg.Devices {
		if d.ID == "" {
			return fmt.Errorf("config: device with empty id")
		}
		if seenDevice[d.ID] {
			return fmt.Errorf("config: duplicate device id %q", d.ID)
		}
		seenDevice[d.ID] = true

		if !knownProtocols[d.Protocol] {
			return fmt.Errorf("device %q: unknown protocol %q", d.ID, d.Protocol)
		}
		if d.Endpoint == "" {
			return fmt.Errorf("device %q: endpoint is required", d.ID)
		}
		if serialProtocol(d.Protocol) && d.Serial == nil {
			return fmt.Errorf("device %q: protocol %q requires a serial block", d.ID, d.Protocol)
		}
		if len(d.Registers) == 0 {
			return fmt.Errorf("device %q: at least one register is required", d.ID)
		}

		if err := validateRegisters(d); err != nil {
			return err
		}
	}
	return nil
}

// bitSpan is a half-open bit range within one register type's address
// space, used to catch two registers of the same device and type that
// claim overlapping bits.
type bitSpan struct {
	start uint32
	end   uint32
	name  string
}

// wordBits is the declarative stand-in for the block size Normalize/Build
// will later resolve from the device's protocol registry: 1 bit per
// address for the single-bit types, 16 for everything else. Every
// registry wired up so far (modbus_tcp/modbus_rtu's holding/input/coil/
// discrete) matches this exactly; Validate runs before protocol
// resolution and has no registry to consult, so this is the best overlap
// check available at catalogue-load time rather than a precise one.
func wordBits(regType string) uint32 {
	if regType == "coil" || regType == "discrete" {
		return 1
	}
	return 16
}

func validateRegisters(d DeviceConfig) error {
	seenName := make(map[string]bool, len(d.Registers))
	spans := make(map[string][]bitSpan, len(d.Registers))
	for _, r := range d.Registers {
		if r.Name == "" {
			return fmt.Errorf("device %q: register with empty name", d.ID)
		}
		if seenName[r.Name] {
			return fmt.Errorf("device %q: duplicate register name %q", d.ID, r.Name)
		}
		seenName[r.Name] = true

		if !knownTypes[r.Type] {
			return fmt.Errorf("device %q, register %q: unknown type %q", d.ID, r.Name, r.Type)
		}
		if !knownFormats[r.Format] {
			return fmt.Errorf("device %q, register %q: unknown format %q", d.ID, r.Name, r.Format)
		}
		if !knownWordOrders[r.WordOrder] {
			return fmt.Errorf("device %q, register %q: unknown word_order %q", d.ID, r.Name, r.WordOrder)
		}
		if r.BitWidth > 64 {
			return fmt.Errorf("device %q, register %q: bit_width %d exceeds 64", d.ID, r.Name, r.BitWidth)
		}
		if (r.Type == "coil" || r.Type == "discrete") && r.BitWidth != 0 && r.BitWidth != 1 {
			return fmt.Errorf("device %q, register %q: single-bit type must have bit_width 1", d.ID, r.Name)
		}
		if r.Format == "text" && r.BitWidth == 0 {
			return fmt.Errorf("device %q, register %q: text format requires an explicit bit_width", d.ID, r.Name)
		}

		width := uint32(r.BitWidth)
		if width == 0 {
			width = wordBits(r.Type)
		}
		start := r.Address*wordBits(r.Type) + uint32(r.BitOffset)
		end := start + width

		for _, s := range spans[r.Type] {
			if start < s.end && end > s.start {
				return fmt.Errorf("device %q: register %q overlaps register %q (type %q, bits [%d,%d) vs [%d,%d))",
					d.ID, r.Name, s.name, r.Type, start, end, s.start, s.end)
			}
		}
		spans[r.Type] = append(spans[r.Type], bitSpan{start: start, end: end, name: r.Name})
	}
	return nil
}
