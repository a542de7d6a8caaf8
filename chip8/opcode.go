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
	"chip8rt/byteconv"
)

func clearScreen(p *Processor) {
	p.display.Clear()
}

func callSubroutine(p *Processor, nnn uint16) error {
	if int(p.sp) >= len(p.stack) {
		return ErrStackOverflow
	}
	p.stack[p.sp] = p.pc
	p.sp++
	p.pc = nnn
	return nil
}

func returnFromSubroutine(p *Processor) error {
	if p.sp == 0 {
		return ErrStackUnderflow
	}
	p.sp--
	p.pc = p.stack[p.sp]
	return nil
}

func jumpToLocation(p *Processor, nnn uint16) {
	p.pc = nnn
}

func jumpWithOffset(p *Processor, x uint8, nnn uint16) {
	offset := p.v[0x0]
	if p.quirks.JumpUsesVX {
		offset = p.v[x]
	}
	p.pc = (nnn + uint16(offset)) & LastAddress
}

func stepIfXEqualsNN(p *Processor, x, nn uint8) {
	if p.v[x] == nn {
		p.pc += 2
	}
}

func stepIfXNotEqualsNN(p *Processor, x, nn uint8) {
	if p.v[x] != nn {
		p.pc += 2
	}
}

func stepIfXEqualsY(p *Processor, x, y uint8) {
	if p.v[x] == p.v[y] {
		p.pc += 2
	}
}

func stepIfXNotEqualsY(p *Processor, x, y uint8) {
	if p.v[x] != p.v[y] {
		p.pc += 2
	}
}

func setXToNN(p *Processor, x, nn uint8) {
	p.v[x] = nn
}

func addNNToX(p *Processor, x, nn uint8) {
	p.v[x] += nn
}

func setXToY(p *Processor, x, y uint8) {
	p.v[x] = p.v[y]
}

func orXY(p *Processor, x, y uint8) {
	p.v[x] |= p.v[y]
	if p.quirks.LogicResetsFlag {
		p.v[CarryFlag] = 0
	}
}

func andXY(p *Processor, x, y uint8) {
	p.v[x] &= p.v[y]
	if p.quirks.LogicResetsFlag {
		p.v[CarryFlag] = 0
	}
}

func xorXY(p *Processor, x, y uint8) {
	p.v[x] ^= p.v[y]
	if p.quirks.LogicResetsFlag {
		p.v[CarryFlag] = 0
	}
}

// The arithmetic handlers write VF last so the flag survives when x is F.

func addXY(p *Processor, x, y uint8) {
	sum := uint16(p.v[x]) + uint16(p.v[y])
	p.v[x] = byte(sum)
	p.v[CarryFlag] = flag(sum > 0xFF)
}

func subtractYFromX(p *Processor, x, y uint8) {
	vx, vy := p.v[x], p.v[y]
	p.v[x] = vx - vy
	p.v[CarryFlag] = flag(vx >= vy)
}

func subtractXFromY(p *Processor, x, y uint8) {
	vx, vy := p.v[x], p.v[y]
	p.v[x] = vy - vx
	p.v[CarryFlag] = flag(vy >= vx)
}

func shiftRightX(p *Processor, x, y uint8) {
	src := p.v[x]
	if p.quirks.ShiftUsesVY {
		src = p.v[y]
	}
	p.v[x] = src >> 1
	p.v[CarryFlag] = src & 0x1
}

func shiftLeftX(p *Processor, x, y uint8) {
	src := p.v[x]
	if p.quirks.ShiftUsesVY {
		src = p.v[y]
	}
	p.v[x] = src << 1
	p.v[CarryFlag] = src >> 7
}

func setIToNNN(p *Processor, nnn uint16) {
	p.i = nnn
}

func setXToRandom(p *Processor, x, nn uint8) {
	randomByte := byte(p.rng.Uint32N(256))
	p.v[x] = randomByte & nn
}

func drawSprite(p *Processor, x, y, n uint8) error {
	sprite := make([]byte, n)
	if n > 0 {
		if _, err := p.address(p.i, int(n)-1); err != nil {
			return err
		}
	}
	p.Read(p.i, sprite)

	collided := p.display.Draw(p.v[x], p.v[y], sprite, p.quirks.WrapSprites)
	p.v[CarryFlag] = flag(collided)
	return nil
}

func stepIfKeyDown(p *Processor, x uint8) {
	if p.keys.IsPressed(p.v[x] & 0x0F) {
		p.pc += 2
	}
}

func stepIfKeyUp(p *Processor, x uint8) {
	if !p.keys.IsPressed(p.v[x] & 0x0F) {
		p.pc += 2
	}
}

func setXToDelay(p *Processor, x uint8) {
	p.v[x] = p.timers.Delay()
}

func pauseUntilKeyPressed(p *Processor, x uint8, info *Info) {
	key, ok := p.keys.await(p.quirks.WaitForRelease)
	if !ok {
		p.pc -= 2 // Move the program counter back, replaying the last opcode
		*info |= Waiting
		return
	}
	p.v[x] = key
}

func setDelayToX(p *Processor, x uint8) {
	p.timers.SetDelay(p.v[x])
}

func setSoundToX(p *Processor, x uint8) {
	p.timers.SetSound(p.v[x])
}

func addXToI(p *Processor, x uint8) error {
	sum := p.i + uint16(p.v[x])
	if sum > LastAddress {
		if p.addressing == AddressStrict {
			return ErrAddressRange
		}
		if p.quirks.IndexOverflowFlag {
			p.v[CarryFlag] = 1
		}
	} else if p.quirks.IndexOverflowFlag {
		p.v[CarryFlag] = 0
	}
	p.i = sum & LastAddress
	return nil
}

func setIToSymbol(p *Processor, x uint8) {
	digit := uint16(p.v[x] & 0x0F)
	p.i = FontStartAddress + digit*FontGlyphSize
}

// binaryCodedDecimal stores the hundreds, tens and ones digits of Vx at I,
// I+1 and I+2.
func binaryCodedDecimal(p *Processor, x uint8) error {
	// Double dabble: shift the value in one bit at a time, adding 3 to any
	// BCD nibble that is 5 or more before the shift so it carries cleanly
	// into the next digit.
	var bcd uint32
	val := uint32(p.v[x])

	for i := range 8 {
		if (bcd & 0x00F) >= 0x005 {
			bcd += 0x003
		}
		if (bcd & 0x0F0) >= 0x050 {
			bcd += 0x030
		}
		if (bcd & 0xF00) >= 0x500 {
			bcd += 0x300
		}
		bcd = (bcd << 1) | ((val >> (7 - i)) & 1)
	}

	digits := [3]byte{
		byte((bcd >> 8) & 0xF), // Hundreds
		byte((bcd >> 4) & 0xF), // Tens
		byte(bcd & 0xF),        // Ones
	}
	for k, d := range digits {
		a, err := p.address(p.i, k)
		if err != nil {
			return err
		}
		p.memory[a] = d
	}
	return nil
}

func setRegistersToMemory(p *Processor, x uint8) error {
	if _, err := p.address(p.i, int(x)); err != nil {
		return err
	}
	for k := uint8(0); k <= x; k++ {
		a, _ := p.address(p.i, int(k))
		p.memory[a] = p.v[k]
	}
	if p.quirks.IncrementIndex {
		p.i = (p.i + uint16(x) + 1) & LastAddress
	}
	return nil
}

func setMemoryToRegisters(p *Processor, x uint8) error {
	if _, err := p.address(p.i, int(x)); err != nil {
		return err
	}
	for k := uint8(0); k <= x; k++ {
		a, _ := p.address(p.i, int(k))
		p.v[k] = p.memory[a]
	}
	if p.quirks.IncrementIndex {
		p.i = (p.i + uint16(x) + 1) & LastAddress
	}
	return nil
}

func flag(b bool) byte {
	if b {
		return 1
	}
	return 0
}

// execute runs one decoded instruction. The program counter already points
// at the following instruction.
func execute(p *Processor, op Opcode, info *Info) error {
	x, y := op.x(), op.y()

	switch op.kind() {
	case 0x0:
		switch uint16(op) {
		case 0x00E0:
			clearScreen(p)
		case 0x00EE:
			return returnFromSubroutine(p)
		default:
			return ErrUnsupported
		}
	case 0x1:
		jumpToLocation(p, op.nnn())
	case 0x2:
		return callSubroutine(p, op.nnn())
	case 0x3:
		stepIfXEqualsNN(p, x, op.nn())
	case 0x4:
		stepIfXNotEqualsNN(p, x, op.nn())
	case 0x5:
		if op.n() != 0 {
			return ErrUnsupported
		}
		stepIfXEqualsY(p, x, y)
	case 0x6:
		setXToNN(p, x, op.nn())
	case 0x7:
		addNNToX(p, x, op.nn())
	case 0x8:
		switch op.n() {
		case 0x0:
			setXToY(p, x, y)
		case 0x1:
			orXY(p, x, y)
		case 0x2:
			andXY(p, x, y)
		case 0x3:
			xorXY(p, x, y)
		case 0x4:
			addXY(p, x, y)
		case 0x5:
			subtractYFromX(p, x, y)
		case 0x6:
			shiftRightX(p, x, y)
		case 0x7:
			subtractXFromY(p, x, y)
		case 0xE:
			shiftLeftX(p, x, y)
		default:
			return ErrUnsupported
		}
	case 0x9:
		if op.n() != 0 {
			return ErrUnsupported
		}
		stepIfXNotEqualsY(p, x, y)
	case 0xA:
		setIToNNN(p, op.nnn())
	case 0xB:
		jumpWithOffset(p, x, op.nnn())
	case 0xC:
		setXToRandom(p, x, op.nn())
	case 0xD:
		return drawSprite(p, x, y, op.n())
	case 0xE:
		switch op.nn() {
		case 0x9E:
			stepIfKeyDown(p, x)
		case 0xA1:
			stepIfKeyUp(p, x)
		default:
			return ErrUnsupported
		}
	case 0xF:
		switch op.nn() {
		case 0x07:
			setXToDelay(p, x)
		case 0x0A:
			pauseUntilKeyPressed(p, x, info)
		case 0x15:
			setDelayToX(p, x)
		case 0x18:
			setSoundToX(p, x)
		case 0x1E:
			return addXToI(p, x)
		case 0x29:
			setIToSymbol(p, x)
		case 0x33:
			return binaryCodedDecimal(p, x)
		case 0x55:
			return setRegistersToMemory(p, x)
		case 0x65:
			return setMemoryToRegisters(p, x)
		default:
			return ErrUnsupported
		}
	}
	return nil
}

type Opcode uint16

func (o Opcode) kind() uint8 {
	return uint8((uint16(o) & 0xF000) >> 12)
}

func (o Opcode) x() uint8 {
	return uint8((uint16(o) & 0x0F00) >> 8)
}

func (o Opcode) y() uint8 {
	return uint8((uint16(o) & 0x00F0) >> 4)
}

func (o Opcode) n() uint8 {
	return uint8(uint16(o) & 0x000F)
}

func (o Opcode) nn() uint8 {
	return uint8(uint16(o) & 0x00FF)
}

func (o Opcode) nnn() uint16 {
	return uint16(o) & 0x0FFF
}

func reg(i uint8) string {
	return "V" + byteconv.U8toh(i, 1)
}

// String disassembles the opcode. Words that do not decode are rendered as
// a data word.
func (op Opcode) String() string {
	vx, vy := reg(op.x()), reg(op.y())
	nn := byteconv.U8toh(op.nn(), 2)
	nnn := byteconv.U16toh(op.nnn(), 3)

	switch op.kind() {
	case 0x0:
		switch uint16(op) {
		case 0x00E0:
			return "CLS"
		case 0x00EE:
			return "RET"
		}
	case 0x1:
		return "JP " + nnn
	case 0x2:
		return "CALL " + nnn
	case 0x3:
		return "SE " + vx + ", " + nn
	case 0x4:
		return "SNE " + vx + ", " + nn
	case 0x5:
		if op.n() == 0 {
			return "SE " + vx + ", " + vy
		}
	case 0x6:
		return "LD " + vx + ", " + nn
	case 0x7:
		return "ADD " + vx + ", " + nn
	case 0x8:
		switch op.n() {
		case 0x0:
			return "LD " + vx + ", " + vy
		case 0x1:
			return "OR " + vx + ", " + vy
		case 0x2:
			return "AND " + vx + ", " + vy
		case 0x3:
			return "XOR " + vx + ", " + vy
		case 0x4:
			return "ADD " + vx + ", " + vy
		case 0x5:
			return "SUB " + vx + ", " + vy
		case 0x6:
			return "SHR " + vx + ", " + vy
		case 0x7:
			return "SUBN " + vx + ", " + vy
		case 0xE:
			return "SHL " + vx + ", " + vy
		}
	case 0x9:
		if op.n() == 0 {
			return "SNE " + vx + ", " + vy
		}
	case 0xA:
		return "LD I, " + nnn
	case 0xB:
		return "JP V0, " + nnn
	case 0xC:
		return "RND " + vx + ", " + nn
	case 0xD:
		return "DRW " + vx + ", " + vy + ", " + byteconv.U8toh(op.n(), 1)
	case 0xE:
		switch op.nn() {
		case 0x9E:
			return "SKP " + vx
		case 0xA1:
			return "SKNP " + vx
		}
	case 0xF:
		switch op.nn() {
		case 0x07:
			return "LD " + vx + ", DT"
		case 0x0A:
			return "LD " + vx + ", K"
		case 0x15:
			return "LD DT, " + vx
		case 0x18:
			return "LD ST, " + vx
		case 0x1E:
			return "ADD I, " + vx
		case 0x29:
			return "LD F, " + vx
		case 0x33:
			return "LD B, " + vx
		case 0x55:
			return "LD [I], " + vx
		case 0x65:
			return "LD " + vx + ", [I]"
		}
	}
	return "DW " + byteconv.U16toh(uint16(op), 4)
}
