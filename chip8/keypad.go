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
	"sync"
	"time"
)

type waitState uint8

const (
	waitIdle  waitState = iota
	waitArmed           // waiting for a key to go down
	waitHeld            // key captured, waiting for it to go up
)

// Keypad holds the 16 logical keys. Hosts that cannot report key-up call
// Press only; every press lapses after the configured timeout.
//
// Press may be called from any goroutine.
type Keypad struct {
	mu       sync.Mutex
	clock    Clock
	timeout  time.Duration
	pressed  [KeyCount]bool
	deadline [KeyCount]time.Time

	// Keys that went from up to down since the wait was armed.
	edges uint16
	state waitState
	held  uint8
}

func newKeypad(clock Clock, timeout time.Duration) *Keypad {
	return &Keypad{
		clock:   clock,
		timeout: timeout,
	}
}

// Press puts key down until the timeout elapses. Pressing a key that is
// already down pushes its deadline out.
func (k *Keypad) Press(key uint8) error {
	if key >= KeyCount {
		return ErrInvalidKey
	}
	now := k.clock.Now()

	k.mu.Lock()
	defer k.mu.Unlock()

	if !k.pressed[key] {
		k.edges |= 1 << key
	}
	k.pressed[key] = true
	k.deadline[key] = now.Add(k.timeout)
	return nil
}

// Expire releases every key whose deadline is not after now.
func (k *Keypad) Expire(now time.Time) {
	k.mu.Lock()
	defer k.mu.Unlock()

	for i := range k.pressed {
		if k.pressed[i] && !now.Before(k.deadline[i]) {
			k.pressed[i] = false
		}
	}
}

// IsPressed reports whether key is currently down.
func (k *Keypad) IsPressed(key uint8) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.pressed[key&0x0F]
}

// AnyPressed returns the lowest key that is down.
func (k *Keypad) AnyPressed() (uint8, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()

	for i, down := range k.pressed {
		if down {
			return uint8(i), true
		}
	}
	return 0, false
}

// await advances the Fx0A wait. The first call arms it and discards earlier
// presses; later calls return the lowest key pressed since then. With
// release set the key is returned only after it has gone up again.
func (k *Keypad) await(release bool) (uint8, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()

	switch k.state {
	case waitIdle:
		k.edges = 0
		k.state = waitArmed
	case waitArmed:
		if k.edges == 0 {
			return 0, false
		}
		for i := range uint8(KeyCount) {
			if k.edges&(1<<i) != 0 {
				k.held = i
				break
			}
		}
		k.edges = 0
		if !release {
			k.state = waitIdle
			return k.held, true
		}
		k.state = waitHeld
	case waitHeld:
		if !k.pressed[k.held] {
			k.state = waitIdle
			return k.held, true
		}
	}
	return 0, false
}

func (k *Keypad) reset() {
	k.mu.Lock()
	defer k.mu.Unlock()

	k.pressed = [KeyCount]bool{}
	k.deadline = [KeyCount]time.Time{}
	k.edges = 0
	k.state = waitIdle
	k.held = 0
}
