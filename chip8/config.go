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

package chip8

import (
	"fmt"
	"log/slog"
	"time"
)

// Mode selects one of the two historical readings of the ambiguous opcodes.
type Mode uint8

const (
	Modern Mode = iota
	Legacy
)

func (m Mode) String() string {
	switch m {
	case Modern:
		return "modern"
	case Legacy:
		return "legacy"
	}
	return fmt.Sprintf("Mode(%d)", uint8(m))
}

// Quirks holds one switch per opcode whose behavior differs between
// interpreters. Handlers read these fields directly.
type Quirks struct {
	// ShiftUsesVY makes 8xy6/8xyE shift Vy into Vx. When false Vx is
	// shifted in place and Vy is ignored.
	ShiftUsesVY bool

	// JumpUsesVX makes Bxnn jump to xnn + Vx instead of nnn + V0.
	JumpUsesVX bool

	// IncrementIndex advances I by x+1 after Fx55/Fx65.
	IncrementIndex bool

	// WrapSprites wraps sprite pixels that cross the screen edge to the
	// opposite side. When false they are clipped.
	WrapSprites bool

	// LogicResetsFlag clears VF after 8xy1, 8xy2 and 8xy3.
	LogicResetsFlag bool

	// IndexOverflowFlag sets VF when Fx1E carries I past 0xFFF.
	IndexOverflowFlag bool

	// WaitForRelease completes Fx0A only once the pressed key is released.
	WaitForRelease bool
}

// QuirksFor returns the quirk preset for a mode.
func QuirksFor(m Mode) Quirks {
	if m == Legacy {
		return Quirks{
			LogicResetsFlag: true,
			WaitForRelease:  true,
		}
	}
	return Quirks{
		ShiftUsesVY:     true,
		JumpUsesVX:      true,
		IncrementIndex:  true,
		WrapSprites:     true,
		LogicResetsFlag: true,
	}
}

// UnknownPolicy decides what the scheduler does with an unsupported opcode.
type UnknownPolicy uint8

const (
	UnknownFail UnknownPolicy = iota
	UnknownSkip
)

// AddressPolicy decides what happens when an opcode computes an address
// beyond the last byte of memory.
type AddressPolicy uint8

const (
	AddressWrap AddressPolicy = iota
	AddressStrict
)

// Config configures a Processor and its Scheduler.
type Config struct {
	Mode Mode

	// Quirks overrides the preset selected by Mode when non-nil.
	Quirks *Quirks

	// ClockRate is the number of instructions per second. Zero runs
	// instructions as fast as the host loop allows.
	ClockRate int

	// KeyTimeout is how long a key stays down after Press.
	KeyTimeout time.Duration

	Unknown    UnknownPolicy
	Addressing AddressPolicy

	// Seed seeds the RND source. Zero picks a random seed.
	Seed uint64

	// Debug makes unsupported opcodes pause the scheduler instead of
	// stopping it.
	Debug bool

	Clock  Clock
	Tone   ToneSink
	Logger *slog.Logger
}

// DefaultConfig returns a modern-mode configuration running at DefaultClockRate.
func DefaultConfig() Config {
	return Config{
		Mode:       Modern,
		ClockRate:  DefaultClockRate,
		KeyTimeout: DefaultKeyTimeout,
	}
}

// Validate reports a configuration that cannot be run.
func (c *Config) Validate() error {
	if c.Mode > Legacy {
		return fmt.Errorf("unknown mode %d", c.Mode)
	}
	if c.ClockRate < 0 {
		return fmt.Errorf("clock rate must be >= 0, got %d", c.ClockRate)
	}
	if c.KeyTimeout < 0 {
		return fmt.Errorf("key timeout must be >= 0, got %v", c.KeyTimeout)
	}
	if c.Unknown > UnknownSkip {
		return fmt.Errorf("unknown opcode policy %d", c.Unknown)
	}
	if c.Addressing > AddressStrict {
		return fmt.Errorf("unknown address policy %d", c.Addressing)
	}
	return nil
}

func (c *Config) quirks() Quirks {
	if c.Quirks != nil {
		return *c.Quirks
	}
	return QuirksFor(c.Mode)
}

func (c *Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

func (c *Config) clock() Clock {
	if c.Clock != nil {
		return c.Clock
	}
	return SystemClock{}
}

func (c *Config) keyTimeout() time.Duration {
	if c.KeyTimeout == 0 {
		return DefaultKeyTimeout
	}
	return c.KeyTimeout
}
