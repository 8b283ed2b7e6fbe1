// internal/formatter/convert.go
//
// ToText/FromText are the text<->raw value conversions, ported from
// ConvertSlaveValue/ConvertMasterValue (virtual_register.cpp).
// Formatting precision is locked: %.7g for Float, %.15g for every other
// scaled numeric format, exact integer text when scale/offset/round are
// all at their defaults. The slightly asymmetric default check on the
// FromText path (scale==1 && offset==0, deliberately NOT also checking
// round_to) matches the original bit-for-bit rather than "fixing" it —
// round_to only matters once scaling is already in play.
package formatter

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/irdevice/querycore/internal/cerr"
)

func roundVal(x, roundTo float64) float64 {
	if roundTo > 0 {
		return math.Round(x/roundTo) * roundTo
	}
	return x
}

func signExtend(v uint64, width uint16) int64 {
	shift := 64 - width
	return int64(v<<shift) >> shift
}

func maskWidth(v uint64, width uint16) uint64 {
	if width >= 64 {
		return v
	}
	return v & ((uint64(1) << width) - 1)
}

func scaledIntText(v int64, scale, offset, roundTo float64) string {
	if scale == 1 && offset == 0 && roundTo == 0 {
		return strconv.FormatInt(v, 10)
	}
	return fmt.Sprintf("%.15g", roundVal(scale*float64(v)+offset, roundTo))
}

func scaledUintText(v uint64, scale, offset, roundTo float64) string {
	if scale == 1 && offset == 0 && roundTo == 0 {
		return strconv.FormatUint(v, 10)
	}
	return fmt.Sprintf("%.15g", roundVal(scale*float64(v)+offset, roundTo))
}

// ToText decodes a raw 64-bit register value into its display text.
func ToText(f Format, raw uint64, scale, offset, roundTo float64) (string, error) {
	switch f {
	case S8:
		return scaledIntText(signExtend(raw, 8), scale, offset, roundTo), nil
	case S16:
		return scaledIntText(signExtend(raw, 16), scale, offset, roundTo), nil
	case S24:
		return scaledIntText(signExtend(raw, 24), scale, offset, roundTo), nil
	case S32:
		return scaledIntText(signExtend(raw, 32), scale, offset, roundTo), nil
	case S64:
		return scaledIntText(int64(raw), scale, offset, roundTo), nil
	case U8:
		return scaledUintText(maskWidth(raw, 8), scale, offset, roundTo), nil
	case U16:
		return scaledUintText(maskWidth(raw, 16), scale, offset, roundTo), nil
	case U24:
		return scaledUintText(maskWidth(raw, 24), scale, offset, roundTo), nil
	case U32:
		return scaledUintText(maskWidth(raw, 32), scale, offset, roundTo), nil
	case U64:
		return scaledUintText(raw, scale, offset, roundTo), nil
	case BCD8:
		v, err := bcdDecode(raw, 1)
		if err != nil {
			return "", err
		}
		return scaledUintText(v, scale, offset, roundTo), nil
	case BCD16:
		v, err := bcdDecode(raw, 2)
		if err != nil {
			return "", err
		}
		return scaledUintText(v, scale, offset, roundTo), nil
	case BCD24:
		v, err := bcdDecode(raw, 3)
		if err != nil {
			return "", err
		}
		return scaledUintText(v, scale, offset, roundTo), nil
	case BCD32:
		v, err := bcdDecode(raw, 4)
		if err != nil {
			return "", err
		}
		return scaledUintText(v, scale, offset, roundTo), nil
	case Float:
		v := math.Float32frombits(uint32(raw))
		return fmt.Sprintf("%.7g", roundVal(scale*float64(v)+offset, roundTo)), nil
	case Double:
		v := math.Float64frombits(raw)
		return fmt.Sprintf("%.15g", roundVal(scale*v+offset, roundTo)), nil
	case Char8:
		return string([]byte{byte(raw & 0xff)}), nil
	case Text:
		return decodeASCIIWord(raw), nil
	default:
		return "", fmt.Errorf("formatter: unsupported format %s", f)
	}
}

// FromText encodes display text into a raw 64-bit register value.
func FromText(f Format, text string, scale, offset, roundTo float64) (uint64, error) {
	switch f {
	case S8:
		v, err := scaledIntFromText(text, scale, offset, roundTo)
		if err != nil {
			return 0, err
		}
		return uint64(v) & 0xff, nil
	case S16:
		v, err := scaledIntFromText(text, scale, offset, roundTo)
		if err != nil {
			return 0, err
		}
		return uint64(v) & 0xffff, nil
	case S24:
		v, err := scaledIntFromText(text, scale, offset, roundTo)
		if err != nil {
			return 0, err
		}
		return uint64(v) & 0xffffff, nil
	case S32:
		v, err := scaledIntFromText(text, scale, offset, roundTo)
		if err != nil {
			return 0, err
		}
		return uint64(v) & 0xffffffff, nil
	case S64:
		v, err := scaledIntFromText(text, scale, offset, roundTo)
		if err != nil {
			return 0, err
		}
		return uint64(v), nil
	case U8:
		v, err := scaledUintFromText(text, scale, offset, roundTo)
		if err != nil {
			return 0, err
		}
		return v & 0xff, nil
	case U16:
		v, err := scaledUintFromText(text, scale, offset, roundTo)
		if err != nil {
			return 0, err
		}
		return v & 0xffff, nil
	case U24:
		v, err := scaledUintFromText(text, scale, offset, roundTo)
		if err != nil {
			return 0, err
		}
		return v & 0xffffff, nil
	case U32:
		v, err := scaledUintFromText(text, scale, offset, roundTo)
		if err != nil {
			return 0, err
		}
		return v & 0xffffffff, nil
	case U64:
		return scaledUintFromText(text, scale, offset, roundTo)
	case BCD8:
		v, err := scaledUintFromText(text, scale, offset, roundTo)
		if err != nil {
			return 0, err
		}
		return bcdEncode(v&0xff, 1)
	case BCD16:
		v, err := scaledUintFromText(text, scale, offset, roundTo)
		if err != nil {
			return 0, err
		}
		return bcdEncode(v&0xffff, 2)
	case BCD24:
		v, err := scaledUintFromText(text, scale, offset, roundTo)
		if err != nil {
			return 0, err
		}
		return bcdEncode(v&0xffffff, 3)
	case BCD32:
		v, err := scaledUintFromText(text, scale, offset, roundTo)
		if err != nil {
			return 0, err
		}
		return bcdEncode(v&0xffffffff, 4)
	case Float:
		unscaled, err := unscaledFromText(text, scale, offset, roundTo)
		if err != nil {
			return 0, err
		}
		return uint64(math.Float32bits(float32(unscaled))), nil
	case Double:
		unscaled, err := unscaledFromText(text, scale, offset, roundTo)
		if err != nil {
			return 0, err
		}
		return math.Float64bits(unscaled), nil
	case Char8:
		if text == "" {
			return 0, nil
		}
		return uint64(text[0]), nil
	case Text:
		return encodeASCIIWord(text), nil
	default:
		return 0, fmt.Errorf("formatter: unsupported format %s", f)
	}
}

// unscaledFromText applies RoundValue(parsed, roundTo) then un-offsets and
// un-scales, returning the result as a float64 — the shape
// FromScaledTextValue<double> uses for Float/Double.
func unscaledFromText(text string, scale, offset, roundTo float64) (float64, error) {
	parsed, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil {
		return 0, &cerr.ValueError{Text: text, Reason: err.Error()}
	}
	return (roundVal(parsed, roundTo) - offset) / scale, nil
}

func scaledIntFromText(text string, scale, offset, roundTo float64) (int64, error) {
	if scale == 1 && offset == 0 {
		v, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
		if err != nil {
			return 0, &cerr.ValueError{Text: text, Reason: err.Error()}
		}
		return v, nil
	}
	unscaled, err := unscaledFromText(text, scale, offset, roundTo)
	if err != nil {
		return 0, err
	}
	return int64(math.Round(unscaled)), nil
}

func scaledUintFromText(text string, scale, offset, roundTo float64) (uint64, error) {
	if scale == 1 && offset == 0 {
		v, err := strconv.ParseUint(strings.TrimSpace(text), 10, 64)
		if err != nil {
			return 0, &cerr.ValueError{Text: text, Reason: err.Error()}
		}
		return v, nil
	}
	unscaled, err := unscaledFromText(text, scale, offset, roundTo)
	if err != nil {
		return 0, err
	}
	return uint64(math.Round(unscaled)), nil
}

// decodeASCIIWord/encodeASCIIWord extend Char8 to a full 8-byte ASCII
// word for the Text format — an enrichment over the ported switch (which
// only handled single-char registers), useful for the device-name-style
// fields seen in original_source's status/name handling.
func decodeASCIIWord(raw uint64) string {
	var b [8]byte
	for i := 0; i < 8; i++ {
		b[7-i] = byte(raw >> uint(8*i))
	}
	return strings.Trim(string(b[:]), "\x00")
}

func encodeASCIIWord(s string) uint64 {
	var b [8]byte
	if len(s) > 8 {
		s = s[len(s)-8:]
	}
	copy(b[8-len(s):], s)
	var v uint64
	for i := 0; i < 8; i++ {
		v = v<<8 | uint64(b[i])
	}
	return v
}
