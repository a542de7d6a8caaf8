package chip8rt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTermKey(t *testing.T) {
	tests := []struct {
		in  byte
		key uint8
		ok  bool
	}{
		{'1', 0x1, true},
		{'4', 0xC, true},
		{'q', 0x4, true},
		{'R', 0xD, true},
		{'s', 0x8, true},
		{'x', 0x0, true},
		{'V', 0xF, true},
		{'5', 0, false},
		{'p', 0, false},
		{0x03, 0, false},
	}

	for _, tt := range tests {
		key, ok := TermKey(tt.in)
		assert.Equal(t, tt.ok, ok, "byte %q", tt.in)
		assert.Equal(t, tt.key, key, "byte %q", tt.in)
	}
}

func TestKeyMapsCoverKeypad(t *testing.T) {
	seen := map[uint8]bool{}
	for _, k := range keyMap {
		seen[k] = true
	}
	assert.Len(t, seen, 16)

	seen = map[uint8]bool{}
	for _, k := range termKeyMap {
		seen[k] = true
	}
	assert.Len(t, seen, 16)
}
