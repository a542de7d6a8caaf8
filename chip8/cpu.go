/*
 * Copyright 2026 Joshua Jones <joshua.jones.software@gmail.com>
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *      www.apache.org
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package chip8 implements a CHIP-8 virtual machine and the scheduler that
// runs it in real time. Instructions, 60hz timer frames and key releases are
// each driven by elapsed time on a Clock, never by one another.
package chip8

import (
	"math/rand/v2"
	"time"
)

const (
	MemorySize          = 4096
	RegisterCount       = 16
	KeyCount            = 16
	StackSize           = 16
	FontStartAddress    = 0x50
	FontGlyphSize       = 5
	LastAddress         = 0xFFF
	ProgramStartAddress = 0x200
	CarryFlag           = 0xF

	TimerRate         time.Duration = time.Second / 60 // 60hz
	DefaultClockRate                = 700              // instructions per second
	DefaultKeyTimeout               = 16 * TimerRate

	Width  int = 64
	Height int = 32
	Area   int = Width * Height
)

// Info describes what a step or an update did.
type Info uint8

const (
	Delay Info = 1 << iota
	Sound
	Redraw
	Waiting // Fx0A is waiting for a key
	Frame   // at least one 60hz timer frame elapsed
	Faulted // an unsupported opcode paused execution
)

var fontSet = []byte{
	0xF0, 0x90, 0x90, 0x90, 0xF0, // 0
	0x20, 0x60, 0x20, 0x20, 0x70, // 1
	0xF0, 0x10, 0xF0, 0x80, 0xF0, // 2
	0xF0, 0x10, 0xF0, 0x10, 0xF0, // 3
	0x90, 0x90, 0xF0, 0x10, 0x10, // 4
	0xF0, 0x80, 0xF0, 0x10, 0xF0, // 5
	0xF0, 0x80, 0xF0, 0x90, 0xF0, // 6
	0xF0, 0x10, 0x20, 0x40, 0x40, // 7
	0xF0, 0x90, 0xF0, 0x90, 0xF0, // 8
	0xF0, 0x90, 0xF0, 0x10, 0xF0, // 9
	0xF0, 0x90, 0xF0, 0x90, 0x90, // A
	0xE0, 0x90, 0xE0, 0x90, 0xE0, // B
	0xF0, 0x80, 0x80, 0x80, 0xF0, // C
	0xE0, 0x90, 0x90, 0x90, 0xE0, // D
	0xF0, 0x80, 0xF0, 0x80, 0xF0, // E
	0xF0, 0x80, 0xF0, 0x80, 0x80, // F
}

// Processor is a CHIP-8 machine: memory, registers, framebuffer, keypad
// and timers. It is not safe for concurrent use, except for Keypad().Press.
type Processor struct {
	memory  [MemorySize]byte
	v       [RegisterCount]byte
	stack   [StackSize]uint16
	sp      uint8
	pc      uint16
	i       uint16
	display Display
	keys    *Keypad
	timers  TimerBank

	mode       Mode
	quirks     Quirks
	addressing AddressPolicy
	rng        *rand.Rand
}

// New returns a processor in its power-on state.
func New(cfg Config) (*Processor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}

	p := &Processor{
		keys:       newKeypad(cfg.clock(), cfg.keyTimeout()),
		timers:     TimerBank{sink: cfg.Tone},
		mode:       cfg.Mode,
		quirks:     cfg.quirks(),
		addressing: cfg.Addressing,
		rng:        rand.New(rand.NewPCG(seed, seed>>32|seed<<32)),
	}
	p.Reset()
	return p, nil
}

// Reset restores the power-on state. The loaded program is erased.
func (p *Processor) Reset() {
	for i := range p.memory {
		p.memory[i] = 0
	}
	copy(p.memory[FontStartAddress:], fontSet)

	for i := range p.v {
		p.v[i] = 0
	}
	for i := range p.stack {
		p.stack[i] = 0
	}
	p.sp = 0
	p.pc = ProgramStartAddress
	p.i = 0

	p.display.Clear()
	p.keys.reset()
	p.timers.reset()
}

// Load copies a program into memory at ProgramStartAddress.
func (p *Processor) Load(b []byte) error {
	if len(b) > MemorySize-ProgramStartAddress {
		return ErrProgramTooLarge
	}
	for i := ProgramStartAddress; i < MemorySize; i++ {
		p.memory[i] = 0
	}
	copy(p.memory[ProgramStartAddress:], b)
	return nil
}

// Read copies memory starting at loc into data, wrapping at the end of the
// address space, and returns the number of bytes copied.
func (p *Processor) Read(loc uint16, data []byte) int {
	for i := range data {
		data[i] = p.memory[(int(loc)+i)&LastAddress]
	}
	return len(data)
}

// Peek returns n bytes of memory starting at loc.
func (p *Processor) Peek(loc uint16, n int) []byte {
	b := make([]byte, n)
	p.Read(loc, b)
	return b
}

// OpcodeAt returns the instruction word stored at offset.
func (p *Processor) OpcodeAt(offset uint16) Opcode {
	// opcode is a 16bit value, comprised of two contiguous 8bit values
	// in memory, starting at the program counter
	high := uint16(p.memory[offset&LastAddress])   // high-order bits of opcode
	low := uint16(p.memory[(offset+1)&LastAddress]) // low-order bits of opcode
	return Opcode((high << 8) | low)
}

// Step executes the instruction at the program counter.
func (p *Processor) Step() (Info, error) {
	var info Info

	addr := p.pc
	opcode := p.OpcodeAt(addr)

	p.pc = (p.pc + 2) & LastAddress

	err := execute(p, opcode, &info)
	p.pc &= LastAddress
	if err != nil {
		return info, &Fault{Op: opcode, Addr: addr, Err: err}
	}

	if p.display.Dirty() {
		info |= Redraw
	}

	if p.timers.sound > 0 {
		info |= Sound
	}

	if p.timers.delay > 0 {
		info |= Delay
	}
	return info, nil
}

// address returns base+offset, wrapped or rejected according to the
// address policy.
func (p *Processor) address(base uint16, offset int) (uint16, error) {
	a := int(base) + offset
	if a > LastAddress {
		if p.addressing == AddressStrict {
			return 0, ErrAddressRange
		}
		a &= LastAddress
	}
	return uint16(a), nil
}

func (p *Processor) Register(x uint8) byte {
	return p.v[x&0x0F]
}

func (p *Processor) ProgramCounter() uint16 {
	return p.pc
}

func (p *Processor) Index() uint16 {
	return p.i
}

func (p *Processor) StackDepth() int {
	return int(p.sp)
}

func (p *Processor) Mode() Mode {
	return p.mode
}

func (p *Processor) Quirks() Quirks {
	return p.quirks
}

// Keypad returns the input state. Hosts feed key presses through it.
func (p *Processor) Keypad() *Keypad {
	return p.keys
}

func (p *Processor) Timers() *TimerBank {
	return &p.timers
}

// Frame returns a copy of the framebuffer.
func (p *Processor) Frame() [Area]byte {
	return p.display.Frame()
}

const snapshotBytes = 8

// State is a read-only copy of the machine registers for debug views.
type State struct {
	V     [RegisterCount]byte
	I     uint16
	PC    uint16
	Stack []uint16
	Delay uint8
	Sound uint8
	Next  Opcode

	// Memory holds the bytes starting at PC.
	Memory []byte
}

func (p *Processor) Snapshot() State {
	return State{
		V:     p.v,
		I:     p.i,
		PC:    p.pc,
		Stack: append([]uint16(nil), p.stack[:p.sp]...),
		Delay: p.timers.delay,
		Sound: p.timers.sound,
		Next:  p.OpcodeAt(p.pc),

		Memory: p.Peek(p.pc, snapshotBytes),
	}
}
