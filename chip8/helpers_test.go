package chip8

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) time.Time {
	c.now = c.now.Add(d)
	return c.now
}

type toneRecorder struct {
	events []bool
}

func (r *toneRecorder) Tone(on bool) {
	r.events = append(r.events, on)
}

func newTestProcessor(t *testing.T, mode Mode, program ...uint16) (*Processor, *fakeClock) {
	t.Helper()

	clock := newFakeClock()
	cfg := DefaultConfig()
	cfg.Mode = mode
	cfg.Clock = clock
	cfg.Seed = 1

	p, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, p.Load(words(program...)))
	return p, clock
}

func words(ops ...uint16) []byte {
	b := make([]byte, 0, len(ops)*2)
	for _, op := range ops {
		b = append(b, byte(op>>8), byte(op))
	}
	return b
}
