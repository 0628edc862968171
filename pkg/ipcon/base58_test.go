// SPDX-License-Identifier: Apache-2.0

package ipcon

import "testing"

func TestBase58EncodeDecode(t *testing.T) {
	tests := []struct {
		uid     uint32
		display string
	}{
		{0, "1"},
		{1, "2"},
		{57, "Z"},
		{58, "21"},
		{106197, "xyZ"},
	}
	for _, tt := range tests {
		if got := Base58Encode(tt.uid); got != tt.display {
			t.Errorf("Base58Encode(%d) = %q, want %q", tt.uid, got, tt.display)
		}
		got, err := Base58Decode(tt.display)
		if err != nil {
			t.Errorf("Base58Decode(%q): %v", tt.display, err)
			continue
		}
		if got != tt.uid {
			t.Errorf("Base58Decode(%q) = %d, want %d", tt.display, got, tt.uid)
		}
	}
}

func TestBase58RoundTrip(t *testing.T) {
	for _, uid := range []uint32{0, 1, 2, 57, 58, 59, 1000, 123456789, 0xFFFFFFFF} {
		got, err := Base58Decode(Base58Encode(uid))
		if err != nil {
			t.Errorf("round trip %d: %v", uid, err)
			continue
		}
		if got != uid {
			t.Errorf("round trip %d = %d", uid, got)
		}
	}
}

func TestBase58DecodeErrors(t *testing.T) {
	for _, uid := range []string{"", "O", "ab0c", "l1", "ZZZZZZZZZZZZZZ"} {
		if _, err := Base58Decode(uid); err == nil {
			t.Errorf("Base58Decode(%q) accepted invalid input", uid)
		}
	}
}

// UIDs minted in the 64-bit address space fold down to 32 bits.
func TestBase58Decode64BitFold(t *testing.T) {
	// "7xwQ9h" is 1<<32: lo is zero, hi is 1, so only the low hi bits
	// survive the fold, shifted to bit 16.
	got, err := Base58Decode("7xwQ9h")
	if err != nil {
		t.Fatalf("Base58Decode: %v", err)
	}
	if got != 0x10000 {
		t.Errorf("folded UID = %#x, want %#x", got, 0x10000)
	}
}

func TestFold64BitUID(t *testing.T) {
	tests := []struct {
		uid  uint64
		want uint64
	}{
		{1 << 32, 0x10000},
		{0x00000001_00000FFF, 0x10FFF},
		{0x3F0F003F_0F000FFF, 0xFFFFFFFF},
	}
	for _, tt := range tests {
		if got := fold64BitUID(tt.uid); got != tt.want {
			t.Errorf("fold64BitUID(%#x) = %#x, want %#x", tt.uid, got, tt.want)
		}
	}
}
