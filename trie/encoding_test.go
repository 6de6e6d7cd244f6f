package trie

import (
	"bytes"
	"testing"
)

func TestCompactHexRoundTrip(t *testing.T) {
	cases := [][]byte{
		{},
		{0x1},
		{0x1, 0x2},
		{0x1, 0x2, 0x3},
		{0xf, 0x1, 0xc, terminatorByte},
		{0x0, terminatorByte},
	}
	for i, nibbles := range cases {
		got := compactToHex(hexToCompact(nibbles))
		want := nibbles
		if len(want) == 0 {
			// Zero-length keys decode to the empty sequence.
			want = []byte{}
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("case %d: round trip = %v, want %v", i, got, want)
		}
	}
}

func TestCompactLeafFlag(t *testing.T) {
	leaf := hexToCompact([]byte{0x1, 0x2, terminatorByte})
	if leaf[0]&0x20 == 0 {
		t.Fatalf("leaf flag not set in %x", leaf)
	}
	ext := hexToCompact([]byte{0x1, 0x2})
	if ext[0]&0x20 != 0 {
		t.Fatalf("leaf flag set on extension key %x", ext)
	}
}

func TestKeybytesToHexTerminator(t *testing.T) {
	nibbles := keybytesToHex([]byte{0xab})
	if len(nibbles) != 3 {
		t.Fatalf("len = %d, want 3", len(nibbles))
	}
	if nibbles[0] != 0xa || nibbles[1] != 0xb || nibbles[2] != terminatorByte {
		t.Fatalf("nibbles = %v, want [10 11 16]", nibbles)
	}
}
