package core

import "testing"

func TestParseNameEmptyDotIsZero(t *testing.T) {
	n, err := ParseName(".")
	if err != nil {
		t.Fatalf("ParseName(.): %v", err)
	}
	if n != 0 {
		t.Fatalf("ParseName(.) = %d, want 0", n)
	}
}

func TestParseNameTooLongRejected(t *testing.T) {
	if _, err := ParseName("12345678901234"); err == nil {
		t.Fatalf("expected a 14-character name to be rejected")
	}
}

func TestParseNameThirteenthCharMustFitFourBits(t *testing.T) {
	// 'z' is index 31, which exceeds the 13th character's 4-bit ceiling (15).
	if _, err := ParseName("aaaaaaaaaaaaz"); err == nil {
		t.Fatalf("expected a 13th character above index 15 to be rejected")
	}
	// 'a' is index 6, within the 4-bit ceiling.
	if _, err := ParseName("aaaaaaaaaaaaa"); err != nil {
		t.Fatalf("ParseName with a valid 13th character: %v", err)
	}
}

func TestParseNameInvalidCharacterRejected(t *testing.T) {
	if _, err := ParseName("alice!"); err == nil {
		t.Fatalf("expected a non-alphabet character to be rejected")
	}
}

func TestParseNameStringTrimsTrailingDots(t *testing.T) {
	n, err := ParseName("alice")
	if err != nil {
		t.Fatalf("ParseName(alice): %v", err)
	}
	if got := n.String(); got != "alice" {
		t.Fatalf("String() = %q, want %q", got, "alice")
	}
}

func TestParseNameSortOrderMatchesBigEndianBytes(t *testing.T) {
	a := MustParseName("a")
	b := MustParseName("b")
	if a >= b {
		t.Fatalf("expected name(a) < name(b) as packed uint64 and as big-endian bytes")
	}
	ab := a.Bytes()
	bb := b.Bytes()
	less := false
	for i := range ab {
		if ab[i] != bb[i] {
			less = ab[i] < bb[i]
			break
		}
	}
	if !less {
		t.Fatalf("Bytes() ordering does not match Name's own numeric ordering")
	}
}
