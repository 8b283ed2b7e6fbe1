// internal/formatter/bcd.go
//
// Packed-BCD helpers, one nibble per decimal digit, matching the original
// implementation's PackedBCD2Int/IntToPackedBCD (bcd_utils.h). Word size
// is expressed in bytes (1/2/3/4), i.e. 2/4/6/8 decimal digits.
package formatter

import "fmt"

// bcdDecode unpacks numBytes worth of packed-BCD nibbles into a decimal
// integer, least-significant byte first.
func bcdDecode(value uint64, numBytes int) (uint64, error) {
	var result uint64
	var mult uint64 = 1

	for i := 0; i < numBytes; i++ {
		shift := uint(8 * i)
		b := byte(value >> shift)

		lo := b & 0x0f
		hi := (b >> 4) & 0x0f
		if lo > 9 || hi > 9 {
			return 0, fmt.Errorf("formatter: invalid BCD byte 0x%02x", b)
		}

		result += uint64(lo) * mult
		mult *= 10
		result += uint64(hi) * mult
		mult *= 10
	}

	return result, nil
}

// bcdEncode packs a decimal integer into numBytes of packed-BCD, least
// significant digit pair first.
func bcdEncode(value uint64, numBytes int) (uint64, error) {
	maxDigits := numBytes * 2
	var maxValue uint64 = 1
	for i := 0; i < maxDigits; i++ {
		maxValue *= 10
	}
	if value >= maxValue {
		return 0, fmt.Errorf("formatter: value %d does not fit in %d BCD digits", value, maxDigits)
	}

	var result uint64
	for i := 0; i < numBytes; i++ {
		lo := value % 10
		value /= 10
		hi := value % 10
		value /= 10

		b := byte(lo) | (byte(hi) << 4)
		result |= uint64(b) << uint(8*i)
	}

	return result, nil
}
