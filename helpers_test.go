package chip8rt

import (
	"testing"
	"time"

	"chip8rt/chip8"

	"github.com/stretchr/testify/require"
)

type stubClock struct {
	now time.Time
}

func (c *stubClock) Now() time.Time {
	return c.now
}

func words(ops ...uint16) []byte {
	b := make([]byte, 0, len(ops)*2)
	for _, op := range ops {
		b = append(b, byte(op>>8), byte(op))
	}
	return b
}

func newTestEmulator(t *testing.T, debug bool, program ...uint16) (*Emulator, *stubClock) {
	t.Helper()

	clock := &stubClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	cfg := chip8.DefaultConfig()
	cfg.Clock = clock
	cfg.Seed = 1
	cfg.Debug = debug

	e, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, e.Load(words(program...)))
	return e, clock
}
