package chip8rt

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"chip8rt/chip8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRendererDraw(t *testing.T) {
	var out bytes.Buffer
	r := NewRenderer(&out, false, chip8.Modern)

	require.NoError(t, r.Open())
	assert.True(t, strings.HasPrefix(out.String(), altScreenOn))

	var frame [chip8.Area]byte
	frame[0] = 1
	frame[chip8.Width+1] = 1
	out.Reset()

	require.NoError(t, r.Draw(frame, chip8.State{}, "waiting for key"))

	lines := strings.Split(strings.TrimPrefix(out.String(), cursorHome), "\r\n")
	// border, rows, border, status and the empty tail after the last CRLF
	require.Len(t, lines, chip8.Height+4)

	border := "+" + strings.Repeat("-", chip8.Width) + "+" + clearLine
	assert.Equal(t, border, lines[0])
	assert.Equal(t, border, lines[chip8.Height+1])
	assert.True(t, strings.HasPrefix(lines[1], "|"+pixelOn+pixelOff))
	assert.True(t, strings.HasPrefix(lines[2], "|"+pixelOff+pixelOn+pixelOff))
	assert.Equal(t, 2, strings.Count(out.String(), pixelOn))
	assert.Equal(t, "waiting for key"+clearLine, lines[chip8.Height+2])
	assert.NotContains(t, out.String(), "PC ")

	out.Reset()
	require.NoError(t, r.Close())
	assert.Equal(t, cursorShow+altScreenOff, out.String())
}

func TestRendererDebugState(t *testing.T) {
	var out bytes.Buffer
	r := NewRenderer(&out, true, chip8.Legacy)

	s := chip8.State{
		I:     0x050,
		PC:    0x204,
		Stack: []uint16{0x202},
		Delay: 0x3C,
		Next:  chip8.Opcode(0xD015),

		Memory: []byte{0xD0, 0x15, 0x12, 0x04},
	}
	s.V[0xA] = 0x12

	var frame [chip8.Area]byte
	require.NoError(t, r.Draw(frame, s, ""))

	text := out.String()
	assert.Contains(t, text, "PC 204  I 050  DT 3C  ST 00  SP 1  legacy")
	assert.Contains(t, text, "VA 12")
	assert.Contains(t, text, "stack [202]")
	assert.Contains(t, text, "mem   D0 15 12 04")
	assert.Contains(t, text, "next  D015  "+chip8.Opcode(0xD015).String())
}

func TestRunTerminalQuitsOnCtrlC(t *testing.T) {
	cfg := chip8.DefaultConfig()
	cfg.Seed = 1
	e, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, e.Load(words(0x00E0, 0x1202)))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var out bytes.Buffer
	start := time.Now()
	err = e.RunTerminal(ctx, strings.NewReader("\x03"), &out)
	require.NoError(t, err)

	assert.Less(t, time.Since(start), 5*time.Second)
	assert.True(t, strings.HasPrefix(out.String(), altScreenOn))
	assert.True(t, strings.HasSuffix(out.String(), cursorShow+altScreenOff))
}

func TestRunTerminalDraws(t *testing.T) {
	cfg := chip8.DefaultConfig()
	cfg.Seed = 1
	e, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, e.Load(words(0x6005, 0xF029, 0xD005, 0x1206)))

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	var out bytes.Buffer
	err = e.RunTerminal(ctx, strings.NewReader(""), &out)
	require.NoError(t, err)

	frames := strings.Count(out.String(), cursorHome)
	require.Positive(t, frames)
	// The 5 glyph has 14 lit pixels.
	assert.GreaterOrEqual(t, strings.Count(out.String(), pixelOn), 14)
	assert.Equal(t, byte(14), countLit(e.Processor().Frame()))
}

func countLit(frame [chip8.Area]byte) byte {
	var n byte
	for _, v := range frame {
		n += v
	}
	return n
}
