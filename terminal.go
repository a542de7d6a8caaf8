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

package chip8rt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"chip8rt/byteconv"
	"chip8rt/chip8"

	"golang.org/x/sync/errgroup"
	"golang.org/x/term"
)

const (
	ctrlC byte = 0x03

	altScreenOn  = "\x1b[?1049h"
	altScreenOff = "\x1b[?1049l"
	cursorHide   = "\x1b[?25l"
	cursorShow   = "\x1b[?25h"
	cursorHome   = "\x1b[H"
	clearScreen  = "\x1b[2J"
	clearLine    = "\x1b[K"

	pixelOn  = "█"
	pixelOff = " "
)

// Renderer draws the framebuffer, and in debug mode the machine state,
// onto an ANSI terminal. Lines end in CRLF because the terminal is raw.
type Renderer struct {
	w     *bufio.Writer
	debug bool
	mode  chip8.Mode
}

func NewRenderer(out io.Writer, debug bool, mode chip8.Mode) *Renderer {
	return &Renderer{
		w:     bufio.NewWriter(out),
		debug: debug,
		mode:  mode,
	}
}

// Open switches to the alternate screen and hides the cursor.
func (r *Renderer) Open() error {
	r.w.WriteString(altScreenOn + cursorHide + clearScreen)
	return r.w.Flush()
}

// Close restores the cursor and the primary screen.
func (r *Renderer) Close() error {
	r.w.WriteString(cursorShow + altScreenOff)
	return r.w.Flush()
}

func (r *Renderer) line(s string) {
	r.w.WriteString(s)
	r.w.WriteString(clearLine + "\r\n")
}

// Draw repaints the whole screen from a frame and a state snapshot. status
// is printed under the frame when non-empty.
func (r *Renderer) Draw(frame [chip8.Area]byte, s chip8.State, status string) error {
	r.w.WriteString(cursorHome)

	border := "+" + strings.Repeat("-", chip8.Width) + "+"
	r.line(border)

	var row strings.Builder
	for y := range chip8.Height {
		row.Reset()
		row.WriteByte('|')
		for x := range chip8.Width {
			if frame[y*chip8.Width+x] != 0 {
				row.WriteString(pixelOn)
			} else {
				row.WriteString(pixelOff)
			}
		}
		row.WriteByte('|')
		r.line(row.String())
	}
	r.line(border)

	if r.debug {
		r.state(s)
	}
	r.line(status)

	return r.w.Flush()
}

func (r *Renderer) state(s chip8.State) {
	r.line(fmt.Sprintf("PC %s  I %s  DT %s  ST %s  SP %d  %s",
		byteconv.U16toh(s.PC, 3), byteconv.U16toh(s.I, 3),
		byteconv.U8toh(s.Delay, 2), byteconv.U8toh(s.Sound, 2),
		len(s.Stack), r.mode))

	for half := range 2 {
		var b strings.Builder
		for i := half * 8; i < half*8+8; i++ {
			if i > half*8 {
				b.WriteByte(' ')
			}
			b.WriteString("V" + byteconv.U8toh(uint8(i), 1) + " " + byteconv.U8toh(s.V[i], 2))
		}
		r.line(b.String())
	}

	stack := make([]string, len(s.Stack))
	for i, addr := range s.Stack {
		stack[i] = byteconv.U16toh(addr, 3)
	}
	r.line("stack [" + strings.Join(stack, " ") + "]")
	r.line("mem   " + byteconv.Dump(s.Memory))
	r.line("next  " + byteconv.U16toh(uint16(s.Next), 4) + "  " + s.Next.String())
}

// Status describes the scheduler state for the line under the frame.
func (e *Emulator) Status(info chip8.Info) string {
	if f := e.sched.Fault(); f != nil {
		msg := "fault: " + f.Error()
		if hint := chip8.Hint(f, e.cpu.Mode()); hint != "" {
			msg += " (" + hint + ")"
		}
		return msg
	}
	switch {
	case e.sched.Paused():
		return "paused: s step, c continue, ctrl-c quit"
	case info&chip8.Waiting != 0:
		return "waiting for key"
	}
	return ""
}

// HandleInput applies one byte read from the terminal. It reports false
// when the byte asks to quit.
func (e *Emulator) HandleInput(b byte) bool {
	switch b {
	case ctrlC:
		return false
	case 'p', 'P':
		e.sched.Pause()
		return true
	}

	if e.sched.Paused() {
		switch b {
		case 's', 'S', 'n', 'N':
			e.sched.StepOnce()
			return true
		case 'c', 'C':
			e.sched.Resume()
			return true
		}
	}

	if key, ok := TermKey(b); ok {
		_ = e.cpu.Keypad().Press(key)
	}
	return true
}

// RunTerminal runs the emulator on an ANSI terminal until ctx is done, the
// user presses ctrl-c or the program faults. in is put in raw mode when it
// is a terminal.
func (e *Emulator) RunTerminal(ctx context.Context, in io.Reader, out io.Writer) error {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fd := int(f.Fd())
		state, err := term.MakeRaw(fd)
		if err != nil {
			return fmt.Errorf("set raw mode: %w", err)
		}
		defer func() {
			_ = term.Restore(fd, state)
		}()
	}

	r := NewRenderer(out, e.cfg.Debug, e.cpu.Mode())
	if err := r.Open(); err != nil {
		return err
	}
	defer func() {
		_ = r.Close()
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// The reader blocks in Read and cannot be interrupted, so it stays out
	// of the group and is left behind on exit.
	go func() {
		buf := make([]byte, 64)
		for {
			n, err := in.Read(buf)
			for _, b := range buf[:n] {
				if !e.HandleInput(b) {
					cancel()
					return
				}
			}
			if err != nil {
				return
			}
		}
	}()

	present := func(info chip8.Info) error {
		if info&chip8.Redraw == 0 && !e.cfg.Debug && !e.sched.Paused() {
			return nil
		}
		return r.Draw(e.cpu.Frame(), e.cpu.Snapshot(), e.Status(info))
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return e.sched.Run(ctx, present)
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}
