// internal/config/normalize.go
package config

// Normalize fills in defaults left implicit by the YAML. It MUST be
// called only after Validate() and is allowed to mutate cfg.
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	for di := range cfg.Devices {
		d := &cfg.Devices[di]

		if d.TimeoutMs == 0 {
			d.TimeoutMs = 1000
		}
		if d.MaxReadRegisters == 0 {
			d.MaxReadRegisters = 125
		}

		for ri := range d.Registers {
			r := &d.Registers[ri]

			if r.Scale == 0 {
				r.Scale = 1
			}
			if r.WordOrder == "" {
				r.WordOrder = "big_endian"
			}
			if r.Poll == nil {
				enabled := true
				r.Poll = &enabled
			}
			if r.BitWidth == 0 {
				r.BitWidth = uint16(wordBits(r.Type))
			}
		}
	}
}
