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
	"context"
	"errors"
	"image"
	"image/color"
	"strconv"

	"chip8rt/byteconv"
	"chip8rt/chip8"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/data/binding"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"golang.org/x/sync/errgroup"
)

// The window only reports key-down to the keypad. Releases come from the
// keypad's own timeout, the same as on the terminal.
func (e *Emulator) onKeyDown(k *fyne.KeyEvent) {
	if hex, ok := keyMap[k.Name]; ok {
		_ = e.cpu.Keypad().Press(hex)
	}
}

func (e *Emulator) onKeyUp(k *fyne.KeyEvent) {
	switch k.Name {
	case fyne.KeyP:
		e.TogglePause()
	case fyne.KeyN:
		e.sched.StepOnce()
	}
}

type Console struct {
	capacity  int
	container *fyne.Container
}

func NewConsole(capacity int) *Console {
	labels := make([]fyne.CanvasObject, capacity)
	for i := range capacity {
		labels[i] = widget.NewLabel("")
	}
	return &Console{
		capacity:  capacity,
		container: container.NewVBox(labels...),
	}
}

func (o *Console) Prepend(msg string) {
	newEntry := widget.NewLabel(msg)
	newEntry.TextStyle = fyne.TextStyle{Monospace: true}
	o.container.Objects = append([]fyne.CanvasObject{newEntry}, o.container.Objects[:o.capacity-1]...)
}

func (o *Console) Refresh() {
	o.container.Refresh()
}

func (o *Console) Object() fyne.CanvasObject {
	return o.container
}

func registerLines(s chip8.State, lines []string) {
	for i := range uint8(chip8.RegisterCount) {
		lines[i] = "V" + byteconv.U8toh(i, 1) + ": " + byteconv.U8toh(s.V[i], 2)
	}
}

// RunGUI opens the emulator window and runs the scheduler until the window
// is closed, ctx is done or the program faults.
func (e *Emulator) RunGUI(ctx context.Context) error {
	a := app.New()
	w := a.NewWindow("Chip-8 Emulator")

	// Create a back-buffer for the pixel data
	buffer := image.NewRGBA(image.Rect(0, 0, chip8.Width, chip8.Height))

	screen := canvas.NewImageFromImage(buffer)
	screen.FillMode = canvas.ImageFillStretch  // Scales the grid to window size
	screen.ScaleMode = canvas.ImageScalePixels // Maintains "pixelated" retro look

	canv, ok := w.Canvas().(desktop.Canvas) // Extension that exposes OnKeyUp event
	if !ok {
		return errors.New("emulator cannot be run on mobile")
	}
	canv.SetOnKeyDown(e.onKeyDown)
	canv.SetOnKeyUp(e.onKeyUp)

	imageContent := container.New(
		layout.NewGridWrapLayout(fyne.NewSize(float32(chip8.Width)*10, float32(chip8.Height)*10)),
		screen,
	)

	opcodeData := NewConsole(9)
	opcodeContent := container.New(
		layout.NewGridWrapLayout(fyne.NewSize(125, float32(chip8.Height))),
		opcodeData.Object(),
	)

	registerData := make([]string, chip8.RegisterCount)
	boundRegisters := binding.BindStringList(&registerData)
	registerLines(e.cpu.Snapshot(), registerData)

	registerList := widget.NewListWithData(
		boundRegisters,
		func() fyne.CanvasObject {
			return widget.NewLabel("template")
		},
		func(di binding.DataItem, obj fyne.CanvasObject) {
			s, _ := di.(binding.String).Get()
			obj.(*widget.Label).SetText(s)
		},
	)

	toolbar := widget.NewToolbar(
		widget.NewToolbarAction(theme.MediaPlayIcon(), e.sched.Resume),
		widget.NewToolbarAction(theme.MediaPauseIcon(), e.sched.Pause),
		widget.NewToolbarAction(theme.MediaSkipNextIcon(), e.sched.StepOnce),
	)

	programCounter := widget.NewLabel("PC: " + byteconv.U16toh(e.cpu.ProgramCounter(), 3))
	index := widget.NewLabel("I: " + byteconv.U16toh(e.cpu.Index(), 3))
	stackDepth := widget.NewLabel("Stack: " + strconv.Itoa(e.cpu.StackDepth()))
	status := widget.NewLabel("")

	hbox := container.NewHBox(layout.NewSpacer(), programCounter, layout.NewSpacer(), index,
		layout.NewSpacer(), stackDepth, layout.NewSpacer(), status, layout.NewSpacer())

	box := container.NewBorder(toolbar, hbox, opcodeContent, registerList, imageContent)

	w.SetContent(box)

	w.Resize(fyne.NewSize(float32(chip8.Width*10), float32(chip8.Height*10))) // 10x scale for visibility

	w.SetFixedSize(true)

	lastPC := -1

	// present runs on the scheduler goroutine. It only takes copies; the
	// widgets are touched inside fyne.Do.
	present := func(info chip8.Info) error {
		s := e.cpu.Snapshot()

		var trace string
		if int(s.PC) != lastPC {
			lastPC = int(s.PC)
			trace = byteconv.U16toh(s.PC, 3) + " " + s.Next.String()
		}

		redraw := info&chip8.Redraw != 0
		var frame [chip8.Area]byte
		if redraw {
			frame = e.cpu.Frame()
		}

		var state string
		switch f := e.sched.Fault(); {
		case f != nil:
			state = "Fault: " + f.Op.String()
		case e.sched.Paused():
			state = "Paused"
		case info&chip8.Waiting != 0:
			state = "Waiting for key"
		}

		fyne.Do(func() {
			if redraw {
				for i, val := range frame {
					x, y := i%chip8.Width, i/chip8.Width
					c := color.Black
					if val == 1 {
						c = color.White
					}
					buffer.Set(x, y, c) // Directly sets pixels in the buffer
				}
				screen.Refresh()
			}

			if trace != "" {
				opcodeData.Prepend(trace)
				opcodeData.Refresh()
			}

			registerLines(s, registerData)
			_ = boundRegisters.Reload()

			programCounter.SetText("PC: " + byteconv.U16toh(s.PC, 3))
			index.SetText("I: " + byteconv.U16toh(s.I, 3))
			stackDepth.SetText("Stack: " + strconv.Itoa(len(s.Stack)))
			status.SetText(state)
		})
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer fyne.Do(a.Quit)
		return e.sched.Run(ctx, present)
	})

	w.ShowAndRun()
	cancel()

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
