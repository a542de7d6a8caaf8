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
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"

	"chip8rt/chip8"

	"github.com/go-audio/audio"
	"github.com/go-audio/generator"
	"github.com/gordonklaus/portaudio"
	"golang.org/x/sync/errgroup"
)

const (
	bufferSize int     = 512
	note       float64 = 440.0
)

var (
	format = audio.FormatMono44100
)

// ToneCloser is a tone sink that owns an audio device.
type ToneCloser interface {
	chip8.ToneSink
	io.Closer
}

// NewTone opens the named audio backend: "portaudio", "oto" or "none".
// "none" returns a nil sink.
func NewTone(backend string) (ToneCloser, error) {
	switch backend {
	case "portaudio":
		return &Beep{}, nil
	case "oto":
		b, err := NewOtoBeep()
		if err != nil {
			return nil, err
		}
		return b, nil
	case "none", "":
		return nil, nil
	}
	return nil, fmt.Errorf("unknown audio backend %q", backend)
}

// Beep plays a sine tone through PortAudio while the sound timer runs.
type Beep struct {
	g       errgroup.Group
	beeping atomic.Bool
}

var _ ToneCloser = (*Beep)(nil)

// Tone starts or stops the tone. Device errors are logged, not returned,
// because the core cannot act on them.
func (b *Beep) Tone(on bool) {
	var err error
	if on {
		err = b.Start(context.Background())
	} else {
		err = b.Stop()
	}
	if err != nil {
		slog.Warn("portaudio tone failed", "on", on, "err", err)
	}
}

func (b *Beep) Start(ctx context.Context) error {
	if b.beeping.Swap(true) {
		return nil
	}

	err := portaudio.Initialize()
	if err != nil {
		b.beeping.Store(false)
		return err
	}

	buffer := &audio.FloatBuffer{
		Data:   make([]float64, bufferSize),
		Format: format,
	}

	osc := generator.NewOsc(generator.WaveSine, note, buffer.Format.SampleRate)
	osc.Amplitude = 1

	b.g.Go(func() error {
		defer func() {
			_ = portaudio.Terminate()
		}()

		out := make([]float32, bufferSize)

		stream, err := portaudio.OpenDefaultStream(0, 1, float64(buffer.Format.SampleRate), len(out), &out)
		if err != nil {
			return err
		}
		defer func() {
			_ = stream.Close()
		}()

		if err := stream.Start(); err != nil {
			return err
		}
		defer func() {
			_ = stream.Stop()
		}()

		for b.beeping.Load() && ctx.Err() == nil {
			if err := osc.Fill(buffer); err != nil {
				return err
			}

			f64Tof32(out, buffer.Data)

			if err := stream.Write(); err != nil {
				return err
			}
		}

		return nil
	})

	return nil
}

func (b *Beep) Stop() error {
	if !b.beeping.Swap(false) {
		return nil
	}
	return b.g.Wait()
}

func (b *Beep) Close() error {
	return b.Stop()
}

func f64Tof32(dst []float32, src []float64) {
	for i := range src {
		dst[i] = float32(src[i])
	}
}
