package trie

// Hex-prefix (HP) decoding per the Yellow Paper, Appendix C. The high
// nibble of the first byte carries the leaf flag (0x20) and the odd-length
// flag (0x10); leaf keys are expanded with a trailing terminator nibble.

const terminatorByte = 16

// compactToHex converts compact (hex-prefix) encoded bytes back to the hex
// nibble sequence. If the compact encoding represents a leaf, the returned
// nibble sequence includes the terminator.
func compactToHex(compact []byte) []byte {
	if len(compact) == 0 {
		return compact
	}
	base := keybytesToHex(compact)
	// Strip the terminator keybytesToHex appended; HP encodes it in flags.
	base = base[:len(base)-1]
	// Even-length keys carry a padding nibble after the flags nibble.
	chop := 2 - base[0]&1
	if base[0]&2 != 0 {
		// Leaf node.
		result := make([]byte, len(base)-int(chop)+1)
		copy(result, base[chop:])
		result[len(result)-1] = terminatorByte
		return result
	}
	return base[chop:]
}

// hexToCompact converts a hex nibble sequence (with optional terminator) to
// compact (hex-prefix) encoding.
func hexToCompact(hex []byte) []byte {
	terminator := byte(0)
	if hasTerm(hex) {
		terminator = 1
		hex = hex[:len(hex)-1]
	}
	buf := make([]byte, len(hex)/2+1)
	buf[0] = terminator << 5
	if len(hex)&1 == 1 {
		buf[0] |= 1 << 4
		buf[0] |= hex[0]
		hex = hex[1:]
	}
	decodeNibbles(hex, buf[1:])
	return buf
}

// keybytesToHex converts a raw byte key to a hex nibble sequence, appending
// a terminator nibble at the end.
func keybytesToHex(str []byte) []byte {
	l := len(str)*2 + 1
	nibbles := make([]byte, l)
	for i, b := range str {
		nibbles[i*2] = b / 16
		nibbles[i*2+1] = b % 16
	}
	nibbles[l-1] = terminatorByte
	return nibbles
}

// decodeNibbles packs pairs of nibbles into bytes.
func decodeNibbles(nibbles []byte, bytes []byte) {
	for bi, ni := 0, 0; ni < len(nibbles); bi, ni = bi+1, ni+2 {
		bytes[bi] = nibbles[ni]<<4 | nibbles[ni+1]
	}
}

// hasTerm reports whether the nibble sequence ends with the terminator.
func hasTerm(s []byte) bool {
	return len(s) > 0 && s[len(s)-1] == terminatorByte
}
