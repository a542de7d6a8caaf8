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

// Package chip8rt hosts the chip8 core: a fyne window, a raw terminal and
// the audio backends that consume its tone signal.
package chip8rt

import (
	"fmt"

	"chip8rt/chip8"
)

// Emulator wires a processor to its scheduler for one of the frontends.
type Emulator struct {
	cfg   chip8.Config
	cpu   *chip8.Processor
	sched *chip8.Scheduler
}

func New(cfg chip8.Config) (*Emulator, error) {
	cpu, err := chip8.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("create processor: %w", err)
	}

	sched, err := chip8.NewScheduler(cpu, cfg)
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	if cfg.Debug {
		// Debug sessions start paused on the first instruction.
		sched.Pause()
	}

	return &Emulator{
		cfg:   cfg,
		cpu:   cpu,
		sched: sched,
	}, nil
}

// Load resets the machine and copies a program into memory.
func (e *Emulator) Load(b []byte) error {
	e.cpu.Reset()
	if err := e.cpu.Load(b); err != nil {
		return fmt.Errorf("load program: %w", err)
	}
	return nil
}

func (e *Emulator) Processor() *chip8.Processor {
	return e.cpu
}

func (e *Emulator) Scheduler() *chip8.Scheduler {
	return e.sched
}

// TogglePause pauses a running machine or resumes a paused one.
func (e *Emulator) TogglePause() {
	if e.sched.Paused() {
		e.sched.Resume()
		return
	}
	e.sched.Pause()
}
