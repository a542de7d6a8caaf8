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

// Display is the 64x32 monochrome framebuffer. Cells hold 0 or 1.
type Display struct {
	cells [Area]byte
	dirty bool
}

// Clear turns every pixel off.
func (d *Display) Clear() {
	for i := range d.cells {
		d.cells[i] = 0
	}
	d.dirty = true
}

// Draw XORs an 8-pixel-wide sprite onto the framebuffer with its top-left
// corner at (x, y) and reports whether any lit pixel was turned off. The
// origin is reduced modulo the screen size; pixels beyond the right or
// bottom edge wrap when wrap is set and are clipped otherwise.
func (d *Display) Draw(x, y byte, sprite []byte, wrap bool) bool {
	startX := int(x) % Width
	startY := int(y) % Height

	var collided bool

	for row, bits := range sprite {
		py := startY + row
		if py >= Height {
			if !wrap {
				// Reached the bottom of the display.
				break
			}
			py %= Height
		}

		for col := range 8 {
			if bits&(0x80>>col) == 0 {
				continue
			}

			px := startX + col
			if px >= Width {
				if !wrap {
					break
				}
				px %= Width
			}

			index := px + py*Width
			if d.cells[index] == 1 {
				// Pixel was already on. This indicates a graphical object collision.
				collided = true
			}
			d.cells[index] ^= 1
		}
	}

	d.dirty = true
	return collided
}

// Pixel reports whether the pixel at (x, y) is lit. Coordinates outside the
// screen report false.
func (d *Display) Pixel(x, y int) bool {
	if x < 0 || y < 0 || x >= Width || y >= Height {
		return false
	}
	return d.cells[x+y*Width] == 1
}

// Frame returns a copy of the framebuffer in row-major order.
func (d *Display) Frame() [Area]byte {
	return d.cells
}

// Dirty reports whether the framebuffer changed since the last call and
// resets the flag.
func (d *Display) Dirty() bool {
	dirty := d.dirty
	d.dirty = false
	return dirty
}
