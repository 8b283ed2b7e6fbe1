// internal/formatter/value.go
//
// Value pairs a raw 64-bit register value with the format/scale/offset it
// should be interpreted through. VirtualRegister holds two of these —
// current_value and value_to_write — matching the data model's description
// of both as "a Formatter" rather than a bare integer.
package formatter

// Value is a raw register value bundled with its text conversion.
type Value struct {
	Format  Format
	Scale   float64
	Offset  float64
	RoundTo float64
	raw     uint64
}

// New returns a zero-valued Value for f with the given scaling.
func New(f Format, scale, offset, roundTo float64) Value {
	return Value{Format: f, Scale: scale, Offset: offset, RoundTo: roundTo}
}

func (v Value) Raw() uint64 { return v.raw }

// WithRaw returns a copy of v holding raw instead.
func (v Value) WithRaw(raw uint64) Value {
	v.raw = raw
	return v
}

// Text renders v's raw value through ToText.
func (v Value) Text() (string, error) {
	return ToText(v.Format, v.raw, v.Scale, v.Offset, v.RoundTo)
}

// Parse decodes text through FromText and returns the resulting Value.
func (v Value) Parse(text string) (Value, error) {
	raw, err := FromText(v.Format, text, v.Scale, v.Offset, v.RoundTo)
	if err != nil {
		return Value{}, err
	}
	return v.WithRaw(raw), nil
}

// SameShape reports whether v and o share format/scale/offset/round — the
// data model's invariant that current_value and value_to_write always
// agree on type and width.
func (v Value) SameShape(o Value) bool {
	return v.Format == o.Format && v.Scale == o.Scale && v.Offset == o.Offset && v.RoundTo == o.RoundTo
}
