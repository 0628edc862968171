// SPDX-License-Identifier: Apache-2.0

package ipcon

import (
	"fmt"
	"strings"
)

// UIDs travel as 32-bit integers on the wire but are displayed and entered
// in base58. The alphabet omits 0, O, I and l.
const base58Alphabet = "123456789abcdefghijkmnopqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ"

// Base58Encode renders a wire UID in its display form.
func Base58Encode(uid uint32) string {
	if uid == 0 {
		return string(base58Alphabet[0])
	}

	var out []byte
	for uid > 0 {
		out = append([]byte{base58Alphabet[uid%58]}, out...)
		uid /= 58
	}
	return string(out)
}

// Base58Decode parses a display UID into its wire form. UIDs minted for
// 64-bit address space are folded down to 32 bits the same way devices
// report them.
func Base58Decode(uid string) (uint32, error) {
	if uid == "" {
		return 0, fmt.Errorf("ipcon: empty UID")
	}

	var value uint64
	for _, r := range uid {
		idx := strings.IndexRune(base58Alphabet, r)
		if idx < 0 {
			return 0, fmt.Errorf("ipcon: UID %q contains invalid base58 character %q", uid, r)
		}
		if value > (1<<64-1-uint64(idx))/58 {
			return 0, fmt.Errorf("ipcon: UID %q is too large", uid)
		}
		value = value*58 + uint64(idx)
	}

	if value > 0xFFFFFFFF {
		value = fold64BitUID(value)
	}
	return uint32(value), nil
}

func fold64BitUID(uid uint64) uint64 {
	lo := uid & 0xFFFFFFFF
	hi := (uid >> 32) & 0xFFFFFFFF

	folded := lo & 0x00000FFF
	folded |= (lo & 0x0F000000) >> 12
	folded |= (hi & 0x0000003F) << 16
	folded |= (hi & 0x000F0000) << 6
	folded |= (hi & 0x3F000000) << 2
	return folded
}
