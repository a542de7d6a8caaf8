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

// ToneSink receives the buzzer state whenever the sound timer crosses zero.
type ToneSink interface {
	Tone(on bool)
}

// TimerBank holds the delay and sound timers. Both count down once per
// Tick and stop at zero.
type TimerBank struct {
	delay uint8
	sound uint8
	sink  ToneSink
}

// Tick decrements both timers by one if nonzero.
func (t *TimerBank) Tick() {
	if t.delay > 0 {
		t.delay--
	}

	if t.sound > 0 {
		t.sound--
		if t.sound == 0 {
			t.signal(false)
		}
	}
}

func (t *TimerBank) Delay() uint8 {
	return t.delay
}

func (t *TimerBank) Sound() uint8 {
	return t.sound
}

func (t *TimerBank) SetDelay(v uint8) {
	t.delay = v
}

// SetSound loads the sound timer, switching the tone on or off when the
// timer crosses zero.
func (t *TimerBank) SetSound(v uint8) {
	was := t.sound
	t.sound = v

	switch {
	case was == 0 && v > 0:
		t.signal(true)
	case was > 0 && v == 0:
		t.signal(false)
	}
}

// Tone reports whether the buzzer should be sounding.
func (t *TimerBank) Tone() bool {
	return t.sound > 0
}

func (t *TimerBank) signal(on bool) {
	if t.sink != nil {
		t.sink.Tone(on)
	}
}

func (t *TimerBank) reset() {
	if t.sound > 0 {
		t.signal(false)
	}
	t.delay = 0
	t.sound = 0
}
