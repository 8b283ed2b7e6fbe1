// internal/formatter/convert_test.go
package formatter

import "testing"

func TestBCD16RoundTrip(t *testing.T) {
	text, err := ToText(BCD16, 0x1234, 1, 0, 0)
	if err != nil {
		t.Fatalf("ToText: %v", err)
	}
	if text != "1234" {
		t.Fatalf("ToText(BCD16, 0x1234) = %q, want %q", text, "1234")
	}

	raw, err := FromText(BCD16, "1234", 1, 0, 0)
	if err != nil {
		t.Fatalf("FromText: %v", err)
	}
	if raw != 0x1234 {
		t.Fatalf("FromText(BCD16, %q) = 0x%x, want 0x1234", "1234", raw)
	}
}

func TestBCD16RejectsInvalidNibble(t *testing.T) {
	if _, err := ToText(BCD16, 0xFA34, 1, 0, 0); err == nil {
		t.Fatal("expected error decoding a non-decimal BCD nibble")
	}
}

func TestBCD32RejectsValueTooLargeToEncode(t *testing.T) {
	if _, err := FromText(BCD32, "100000000", 1, 0, 0); err == nil {
		t.Fatal("expected error encoding a value that overflows 8 BCD digits")
	}
}

func TestFloatDecodePi(t *testing.T) {
	text, err := ToText(Float, 0x40490FDB, 1, 0, 0)
	if err != nil {
		t.Fatalf("ToText: %v", err)
	}
	if text != "3.141593" {
		t.Fatalf("ToText(Float, 0x40490FDB) = %q, want %q", text, "3.141593")
	}
}

func TestFloatRoundTripThroughFromText(t *testing.T) {
	raw, err := FromText(Float, "3.141593", 1, 0, 0)
	if err != nil {
		t.Fatalf("FromText: %v", err)
	}
	text, err := ToText(Float, raw, 1, 0, 0)
	if err != nil {
		t.Fatalf("ToText: %v", err)
	}
	if text != "3.141593" {
		t.Fatalf("round trip = %q, want %q", text, "3.141593")
	}
}

func TestS16SignExtendsNegativeValues(t *testing.T) {
	// 0xFFFF as S16 is -1.
	text, err := ToText(S16, 0xFFFF, 1, 0, 0)
	if err != nil {
		t.Fatalf("ToText: %v", err)
	}
	if text != "-1" {
		t.Fatalf("ToText(S16, 0xFFFF) = %q, want %q", text, "-1")
	}
}

func TestScaledUintAppliesScaleOffsetAndRound(t *testing.T) {
	// raw=100, scale=0.1, offset=5 -> 100*0.1+5 = 15, rounded to nearest 1.
	text, err := ToText(U16, 100, 0.1, 5, 1)
	if err != nil {
		t.Fatalf("ToText: %v", err)
	}
	if text != "15" {
		t.Fatalf("ToText scaled = %q, want %q", text, "15")
	}
}

func TestCharText8EncodesAndDecodesSingleByte(t *testing.T) {
	raw, err := FromText(Char8, "Q", 1, 0, 0)
	if err != nil {
		t.Fatalf("FromText: %v", err)
	}
	text, err := ToText(Char8, raw, 1, 0, 0)
	if err != nil {
		t.Fatalf("ToText: %v", err)
	}
	if text != "Q" {
		t.Fatalf("round trip = %q, want %q", text, "Q")
	}
}

func TestTextFormatRoundTripsASCIIWord(t *testing.T) {
	raw := encodeASCIIWord("ABC")
	got := decodeASCIIWord(raw)
	if got != "ABC" {
		t.Fatalf("decodeASCIIWord(encodeASCIIWord(%q)) = %q", "ABC", got)
	}
}
