package chip8

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var opcodeTestTable = []struct {
	name   string
	mode   Mode
	opcode uint16
	before func(p *Processor)
	check  func(t *testing.T, p *Processor)
}{
	{
		name:   "clear display",
		opcode: 0x00E0,
		before: func(p *Processor) {
			for i := range p.display.cells {
				p.display.cells[i] = 1
			}
		},
		check: func(t *testing.T, p *Processor) {
			assert.Equal(t, [Area]byte{}, p.Frame())
		},
	},
	{
		name:   "return",
		opcode: 0x00EE,
		before: func(p *Processor) {
			p.stack[0] = 0x300
			p.sp = 1
		},
		check: func(t *testing.T, p *Processor) {
			assert.Equal(t, 0, p.StackDepth())
			assert.Equal(t, uint16(0x300), p.pc)
		},
	},
	{
		name:   "jump",
		opcode: 0x1234,
		check: func(t *testing.T, p *Processor) {
			assert.Equal(t, uint16(0x234), p.pc)
		},
	},
	{
		name:   "call",
		opcode: 0x2208,
		check: func(t *testing.T, p *Processor) {
			assert.Equal(t, uint16(0x208), p.pc)
			assert.Equal(t, 1, p.StackDepth())
			assert.Equal(t, uint16(0x202), p.stack[0])
		},
	},
	{
		name:   "skip if Vx == nn taken",
		opcode: 0x3012,
		before: func(p *Processor) { p.v[0] = 0x12 },
		check: func(t *testing.T, p *Processor) {
			assert.Equal(t, uint16(0x204), p.pc)
		},
	},
	{
		name:   "skip if Vx == nn not taken",
		opcode: 0x3012,
		before: func(p *Processor) { p.v[0] = 0x01 },
		check: func(t *testing.T, p *Processor) {
			assert.Equal(t, uint16(0x202), p.pc)
		},
	},
	{
		name:   "skip if Vx != nn taken",
		opcode: 0x4012,
		before: func(p *Processor) { p.v[0] = 0x01 },
		check: func(t *testing.T, p *Processor) {
			assert.Equal(t, uint16(0x204), p.pc)
		},
	},
	{
		name:   "skip if Vx == Vy taken",
		opcode: 0x5120,
		before: func(p *Processor) { p.v[1], p.v[2] = 7, 7 },
		check: func(t *testing.T, p *Processor) {
			assert.Equal(t, uint16(0x204), p.pc)
		},
	},
	{
		name:   "skip if Vx != Vy taken",
		opcode: 0x9120,
		before: func(p *Processor) { p.v[1], p.v[2] = 7, 8 },
		check: func(t *testing.T, p *Processor) {
			assert.Equal(t, uint16(0x204), p.pc)
		},
	},
	{
		name:   "add immediate wraps and keeps VF",
		opcode: 0x70FF,
		before: func(p *Processor) { p.v[0], p.v[0xF] = 0x02, 0x07 },
		check: func(t *testing.T, p *Processor) {
			assert.Equal(t, byte(0x01), p.v[0])
			assert.Equal(t, byte(0x07), p.v[0xF])
		},
	},
	{
		name:   "load Vy",
		opcode: 0x8120,
		before: func(p *Processor) { p.v[2] = 0x42 },
		check: func(t *testing.T, p *Processor) {
			assert.Equal(t, byte(0x42), p.v[1])
		},
	},
	{
		name:   "or resets VF",
		opcode: 0x8121,
		before: func(p *Processor) { p.v[1], p.v[2], p.v[0xF] = 0xF0, 0x0F, 1 },
		check: func(t *testing.T, p *Processor) {
			assert.Equal(t, byte(0xFF), p.v[1])
			assert.Equal(t, byte(0), p.v[0xF])
		},
	},
	{
		name:   "and",
		opcode: 0x8122,
		before: func(p *Processor) { p.v[1], p.v[2] = 0xF3, 0x3F },
		check: func(t *testing.T, p *Processor) {
			assert.Equal(t, byte(0x33), p.v[1])
		},
	},
	{
		name:   "xor",
		opcode: 0x8123,
		before: func(p *Processor) { p.v[1], p.v[2] = 0xFF, 0x0F },
		check: func(t *testing.T, p *Processor) {
			assert.Equal(t, byte(0xF0), p.v[1])
		},
	},
	{
		name:   "add with flag into VF",
		opcode: 0x8F14,
		before: func(p *Processor) { p.v[0xF], p.v[1] = 0xFF, 0x01 },
		check: func(t *testing.T, p *Processor) {
			assert.Equal(t, byte(1), p.v[0xF])
		},
	},
	{
		name:   "modern shift right uses Vy",
		opcode: 0x8126,
		before: func(p *Processor) { p.v[1], p.v[2] = 0x10, 0x03 },
		check: func(t *testing.T, p *Processor) {
			assert.Equal(t, byte(0x01), p.v[1])
			assert.Equal(t, byte(1), p.v[0xF])
		},
	},
	{
		name:   "legacy shift right ignores Vy",
		mode:   Legacy,
		opcode: 0x8126,
		before: func(p *Processor) { p.v[1], p.v[2] = 0x10, 0x03 },
		check: func(t *testing.T, p *Processor) {
			assert.Equal(t, byte(0x08), p.v[1])
			assert.Equal(t, byte(0), p.v[0xF])
		},
	},
	{
		name:   "modern shift left uses Vy",
		opcode: 0x812E,
		before: func(p *Processor) { p.v[1], p.v[2] = 0x01, 0x81 },
		check: func(t *testing.T, p *Processor) {
			assert.Equal(t, byte(0x02), p.v[1])
			assert.Equal(t, byte(1), p.v[0xF])
		},
	},
	{
		name:   "legacy shift left ignores Vy",
		mode:   Legacy,
		opcode: 0x812E,
		before: func(p *Processor) { p.v[1], p.v[2] = 0x41, 0x81 },
		check: func(t *testing.T, p *Processor) {
			assert.Equal(t, byte(0x82), p.v[1])
			assert.Equal(t, byte(0), p.v[0xF])
		},
	},
	{
		name:   "load index",
		opcode: 0xA123,
		check: func(t *testing.T, p *Processor) {
			assert.Equal(t, uint16(0x123), p.i)
		},
	},
	{
		name:   "legacy jump with offset adds V0",
		mode:   Legacy,
		opcode: 0xB300,
		before: func(p *Processor) { p.v[0], p.v[3] = 0x04, 0x10 },
		check: func(t *testing.T, p *Processor) {
			assert.Equal(t, uint16(0x304), p.pc)
		},
	},
	{
		name:   "modern jump with offset adds Vx",
		opcode: 0xB300,
		before: func(p *Processor) { p.v[0], p.v[3] = 0x04, 0x10 },
		check: func(t *testing.T, p *Processor) {
			assert.Equal(t, uint16(0x310), p.pc)
		},
	},
	{
		name:   "random is masked",
		opcode: 0xC10F,
		before: func(p *Processor) { p.v[1] = 0xFF },
		check: func(t *testing.T, p *Processor) {
			assert.Zero(t, p.v[1]&0xF0)
		},
	},
	{
		name:   "skip if key pressed",
		opcode: 0xE19E,
		before: func(p *Processor) {
			p.v[1] = 0x5
			_ = p.keys.Press(0x5)
		},
		check: func(t *testing.T, p *Processor) {
			assert.Equal(t, uint16(0x204), p.pc)
		},
	},
	{
		name:   "skip if key not pressed",
		opcode: 0xE1A1,
		before: func(p *Processor) { p.v[1] = 0x5 },
		check: func(t *testing.T, p *Processor) {
			assert.Equal(t, uint16(0x204), p.pc)
		},
	},
	{
		name:   "read delay timer",
		opcode: 0xF107,
		before: func(p *Processor) { p.timers.delay = 0x33 },
		check: func(t *testing.T, p *Processor) {
			assert.Equal(t, byte(0x33), p.v[1])
		},
	},
	{
		name:   "set delay timer",
		opcode: 0xF115,
		before: func(p *Processor) { p.v[1] = 0x20 },
		check: func(t *testing.T, p *Processor) {
			assert.Equal(t, uint8(0x20), p.timers.Delay())
		},
	},
	{
		name:   "set sound timer",
		opcode: 0xF118,
		before: func(p *Processor) { p.v[1] = 0x20 },
		check: func(t *testing.T, p *Processor) {
			assert.Equal(t, uint8(0x20), p.timers.Sound())
			assert.True(t, p.timers.Tone())
		},
	},
	{
		name:   "add to index",
		opcode: 0xF11E,
		before: func(p *Processor) { p.i, p.v[1] = 0x100, 0x20 },
		check: func(t *testing.T, p *Processor) {
			assert.Equal(t, uint16(0x120), p.i)
		},
	},
	{
		name:   "add to index wraps",
		opcode: 0xF11E,
		before: func(p *Processor) { p.i, p.v[1], p.v[0xF] = 0xFFF, 0x02, 0x09 },
		check: func(t *testing.T, p *Processor) {
			assert.Equal(t, uint16(0x001), p.i)
			assert.Equal(t, byte(0x09), p.v[0xF])
		},
	},
	{
		name:   "font character",
		opcode: 0xF129,
		before: func(p *Processor) { p.v[1] = 0xA },
		check: func(t *testing.T, p *Processor) {
			assert.Equal(t, uint16(FontStartAddress+0xA*FontGlyphSize), p.i)
		},
	},
	{
		name:   "bcd",
		opcode: 0xF133,
		before: func(p *Processor) { p.i, p.v[1] = 0x300, 156 },
		check: func(t *testing.T, p *Processor) {
			assert.Equal(t, []byte{1, 5, 6}, p.Peek(0x300, 3))
		},
	},
	{
		name:   "modern store increments index",
		opcode: 0xF255,
		before: func(p *Processor) { p.i, p.v[0], p.v[1], p.v[2] = 0x300, 1, 2, 3 },
		check: func(t *testing.T, p *Processor) {
			assert.Equal(t, []byte{1, 2, 3, 0}, p.Peek(0x300, 4))
			assert.Equal(t, uint16(0x303), p.i)
		},
	},
	{
		name:   "legacy store keeps index",
		mode:   Legacy,
		opcode: 0xF255,
		before: func(p *Processor) { p.i, p.v[0], p.v[1], p.v[2] = 0x300, 1, 2, 3 },
		check: func(t *testing.T, p *Processor) {
			assert.Equal(t, []byte{1, 2, 3}, p.Peek(0x300, 3))
			assert.Equal(t, uint16(0x300), p.i)
		},
	},
	{
		name:   "modern load increments index",
		opcode: 0xF165,
		before: func(p *Processor) {
			p.i = 0x300
			p.memory[0x300], p.memory[0x301] = 9, 8
		},
		check: func(t *testing.T, p *Processor) {
			assert.Equal(t, byte(9), p.v[0])
			assert.Equal(t, byte(8), p.v[1])
			assert.Equal(t, uint16(0x302), p.i)
		},
	},
	{
		name:   "legacy load keeps index",
		mode:   Legacy,
		opcode: 0xF165,
		before: func(p *Processor) {
			p.i = 0x300
			p.memory[0x300], p.memory[0x301] = 9, 8
		},
		check: func(t *testing.T, p *Processor) {
			assert.Equal(t, byte(9), p.v[0])
			assert.Equal(t, byte(8), p.v[1])
			assert.Equal(t, uint16(0x300), p.i)
		},
	},
}

func TestOpcodes(t *testing.T) {
	for _, tt := range opcodeTestTable {
		t.Run(tt.name, func(t *testing.T) {
			p, _ := newTestProcessor(t, tt.mode, tt.opcode)
			if tt.before != nil {
				tt.before(p)
			}

			_, err := p.Step()
			require.NoError(t, err)
			tt.check(t, p)
		})
	}
}

func TestAddFlagProperty(t *testing.T) {
	p, _ := newTestProcessor(t, Modern)

	for a := range 256 {
		for b := range 256 {
			p.v[1], p.v[2] = byte(a), byte(b)
			addXY(p, 1, 2)
			require.Equal(t, byte((a+b)%256), p.v[1])
			require.Equal(t, flag(a+b > 255), p.v[0xF])
		}
	}
}

func TestSubtractFlagProperty(t *testing.T) {
	p, _ := newTestProcessor(t, Modern)

	for a := range 256 {
		for b := range 256 {
			p.v[1], p.v[2] = byte(a), byte(b)
			subtractYFromX(p, 1, 2)
			require.Equal(t, byte(a-b), p.v[1])
			require.Equal(t, flag(a >= b), p.v[0xF])

			p.v[1], p.v[2] = byte(a), byte(b)
			subtractXFromY(p, 1, 2)
			require.Equal(t, byte(b-a), p.v[1])
			require.Equal(t, flag(b >= a), p.v[0xF])
		}
	}
}

func TestLoadAndAddScenario(t *testing.T) {
	p, _ := newTestProcessor(t, Modern, 0x6A12, 0x7A01)

	_, err := p.Step()
	require.NoError(t, err)
	assert.Equal(t, byte(0x12), p.Register(0xA))
	assert.Equal(t, uint16(0x202), p.ProgramCounter())

	_, err = p.Step()
	require.NoError(t, err)
	assert.Equal(t, byte(0x13), p.Register(0xA))
	assert.Equal(t, uint16(0x204), p.ProgramCounter())
}

func TestDrawFontGlyphScenario(t *testing.T) {
	// V0 = 0, I = glyph "0", DRW V0, V0, 5
	p, _ := newTestProcessor(t, Modern, 0x6000, 0xF029, 0xD005)

	for range 2 {
		_, err := p.Step()
		require.NoError(t, err)
	}
	info, err := p.Step()
	require.NoError(t, err)
	assert.NotZero(t, info&Redraw)
	assert.Equal(t, byte(0), p.Register(0xF))

	glyph := fontSet[:FontGlyphSize]
	for row, bits := range glyph {
		for col := range 8 {
			want := bits&(0x80>>col) != 0
			assert.Equal(t, want, p.display.Pixel(col, row), "pixel %d,%d", col, row)
		}
	}
}

func TestDrawTwiceCollides(t *testing.T) {
	p, _ := newTestProcessor(t, Modern, 0x6000, 0xF029, 0xD005, 0xD005)

	for range 3 {
		_, err := p.Step()
		require.NoError(t, err)
	}
	_, err := p.Step()
	require.NoError(t, err)

	assert.Equal(t, byte(1), p.Register(0xF))
	assert.Equal(t, [Area]byte{}, p.Frame())
}

func TestStackDiscipline(t *testing.T) {
	// Each CALL targets the next word, so 17 nested calls walk forward.
	program := make([]uint16, 17)
	for i := range program {
		program[i] = 0x2000 | uint16(ProgramStartAddress+2*(i+1))
	}
	p, _ := newTestProcessor(t, Modern, program...)

	for range StackSize {
		_, err := p.Step()
		require.NoError(t, err)
	}
	assert.Equal(t, StackSize, p.StackDepth())

	_, err := p.Step()
	require.ErrorIs(t, err, ErrStackOverflow)
	assert.True(t, IsFatal(err))
	assert.Equal(t, StackSize, p.StackDepth())
}

func TestReturnWithEmptyStack(t *testing.T) {
	p, _ := newTestProcessor(t, Modern, 0x00EE)

	_, err := p.Step()
	require.ErrorIs(t, err, ErrStackUnderflow)

	var fault *Fault
	require.True(t, errors.As(err, &fault))
	assert.Equal(t, uint16(ProgramStartAddress), fault.Addr)
	assert.Equal(t, Opcode(0x00EE), fault.Op)
}

func TestUnsupportedOpcodes(t *testing.T) {
	for _, op := range []uint16{0x0123, 0x5121, 0x8128, 0x812F, 0x9121, 0xE1FF, 0xF1FF} {
		p, _ := newTestProcessor(t, Modern, op)

		_, err := p.Step()
		assert.ErrorIs(t, err, ErrUnsupported, "opcode %04X", op)
		assert.False(t, IsFatal(err))
		assert.Equal(t, uint16(0x202), p.ProgramCounter())
	}
}

func TestWaitForKey(t *testing.T) {
	p, _ := newTestProcessor(t, Modern, 0xF30A)
	_ = p.keys.Press(0x2) // before the wait; must not satisfy it

	info, err := p.Step()
	require.NoError(t, err)
	assert.NotZero(t, info&Waiting)
	assert.Equal(t, uint16(ProgramStartAddress), p.ProgramCounter())

	info, err = p.Step()
	require.NoError(t, err)
	assert.NotZero(t, info&Waiting)

	require.NoError(t, p.keys.Press(0x9))
	info, err = p.Step()
	require.NoError(t, err)
	assert.Zero(t, info&Waiting)
	assert.Equal(t, byte(0x9), p.Register(3))
	assert.Equal(t, uint16(0x202), p.ProgramCounter())
}

func TestWaitForKeyRelease(t *testing.T) {
	p, clock := newTestProcessor(t, Legacy, 0xF30A)

	_, err := p.Step()
	require.NoError(t, err)
	require.NoError(t, p.keys.Press(0x4))

	info, err := p.Step()
	require.NoError(t, err)
	assert.NotZero(t, info&Waiting, "key still held")

	p.keys.Expire(clock.Advance(DefaultKeyTimeout))
	info, err = p.Step()
	require.NoError(t, err)
	assert.Zero(t, info&Waiting)
	assert.Equal(t, byte(0x4), p.Register(3))
}

func TestStrictAddressing(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Addressing = AddressStrict
	cfg.Clock = newFakeClock()
	p, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, p.Load(words(0xAFFE, 0xF255)))

	_, err = p.Step()
	require.NoError(t, err)
	_, err = p.Step()
	require.ErrorIs(t, err, ErrAddressRange)
}

func TestIndexOverflowFlag(t *testing.T) {
	q := QuirksFor(Modern)
	q.IndexOverflowFlag = true
	cfg := DefaultConfig()
	cfg.Quirks = &q
	cfg.Clock = newFakeClock()
	p, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, p.Load(words(0xAFFF, 0x6102, 0xF11E)))

	for range 3 {
		_, err := p.Step()
		require.NoError(t, err)
	}
	assert.Equal(t, uint16(0x001), p.Index())
	assert.Equal(t, byte(1), p.Register(0xF))
}

func TestLoadRejectsOversizedProgram(t *testing.T) {
	p, _ := newTestProcessor(t, Modern)

	assert.NoError(t, p.Load(make([]byte, MemorySize-ProgramStartAddress)))
	assert.ErrorIs(t, p.Load(make([]byte, MemorySize-ProgramStartAddress+1)), ErrProgramTooLarge)
}

func TestReset(t *testing.T) {
	p, _ := newTestProcessor(t, Modern, 0x6A12, 0x2300)
	for range 2 {
		_, err := p.Step()
		require.NoError(t, err)
	}
	p.timers.SetDelay(5)
	_ = p.keys.Press(1)

	p.Reset()

	s := p.Snapshot()
	assert.Equal(t, [RegisterCount]byte{}, s.V)
	assert.Empty(t, s.Stack)
	assert.Equal(t, uint16(ProgramStartAddress), s.PC)
	assert.Equal(t, uint8(0), s.Delay)
	assert.False(t, p.keys.IsPressed(1))
	assert.Equal(t, fontSet, p.Peek(FontStartAddress, len(fontSet)))
	assert.Equal(t, []byte{0, 0}, p.Peek(ProgramStartAddress, 2))
}

func TestSnapshot(t *testing.T) {
	p, _ := newTestProcessor(t, Modern, 0x2204, 0x0000, 0xA123)
	_, err := p.Step()
	require.NoError(t, err)

	s := p.Snapshot()
	assert.Equal(t, []uint16{0x202}, s.Stack)
	assert.Equal(t, uint16(0x204), s.PC)
	assert.Equal(t, Opcode(0xA123), s.Next)
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())

	cfg.ClockRate = -1
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Mode = Mode(7)
	_, err := New(cfg)
	assert.Error(t, err)
}

func TestHint(t *testing.T) {
	err := &Fault{Op: 0x0123, Err: ErrUnsupported}
	assert.Contains(t, Hint(err, Modern), "-legacy")
	assert.Contains(t, Hint(err, Legacy), "without -legacy")
	assert.Empty(t, Hint(nil, Modern))
	assert.Empty(t, Hint(errors.New("other"), Modern))
}
