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
	"errors"
	"fmt"
)

var (
	ErrStackOverflow   = errors.New("stack overflow")
	ErrStackUnderflow  = errors.New("stack underflow")
	ErrUnsupported     = errors.New("unsupported instruction")
	ErrAddressRange    = errors.New("address out of range")
	ErrProgramTooLarge = errors.New("program does not fit in memory")
	ErrInvalidKey      = errors.New("invalid key")
)

// A Fault is returned by Step when an instruction cannot be executed.
type Fault struct {
	Op   Opcode
	Addr uint16 // address the opcode was fetched from
	Err  error
}

func (f *Fault) Error() string {
	return fmt.Sprintf("%v: opcode %04X at %03X", f.Err, uint16(f.Op), f.Addr)
}

func (f *Fault) Unwrap() error {
	return f.Err
}

// IsFatal reports whether err must stop execution regardless of policy.
func IsFatal(err error) bool {
	return errors.Is(err, ErrStackOverflow) ||
		errors.Is(err, ErrStackUnderflow) ||
		errors.Is(err, ErrAddressRange)
}

// Hint suggests a mode switch for failures that usually mean the ROM was
// written for the other interpretation. It returns "" when it has nothing
// to suggest.
func Hint(err error, m Mode) string {
	if err == nil {
		return ""
	}
	if !errors.Is(err, ErrUnsupported) &&
		!errors.Is(err, ErrStackOverflow) &&
		!errors.Is(err, ErrStackUnderflow) &&
		!errors.Is(err, ErrAddressRange) {
		return ""
	}
	if m == Legacy {
		return "the ROM may expect modern semantics; try running without -legacy"
	}
	return "the ROM may expect legacy semantics; try -legacy"
}
