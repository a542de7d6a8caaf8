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
	"encoding/binary"
	"math"
	"sync/atomic"

	"github.com/ebitengine/oto/v3"
	"github.com/go-audio/audio"
	"github.com/go-audio/generator"
)

// OtoBeep keeps an oto player running for the life of the emulator and
// gates the oscillator on and off, which avoids reopening the device on
// every beep.
type OtoBeep struct {
	ctx    *oto.Context
	player *oto.Player
	tone   *toneReader
}

var _ ToneCloser = (*OtoBeep)(nil)

func NewOtoBeep() (*OtoBeep, error) {
	op := &oto.NewContextOptions{
		SampleRate:   format.SampleRate,
		ChannelCount: format.NumChannels,
		Format:       oto.FormatFloat32LE,
	}

	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, err
	}
	<-ready

	tone := newToneReader(format.SampleRate)
	player := ctx.NewPlayer(tone)
	player.Play()

	return &OtoBeep{
		ctx:    ctx,
		player: player,
		tone:   tone,
	}, nil
}

func (b *OtoBeep) Tone(on bool) {
	b.tone.on.Store(on)
}

func (b *OtoBeep) Close() error {
	b.tone.on.Store(false)
	return b.player.Close()
}

// toneReader streams mono float32 little-endian samples: a sine wave while
// on, silence otherwise. Read runs on the oto goroutine.
type toneReader struct {
	on     atomic.Bool
	osc    *generator.Osc
	buffer *audio.FloatBuffer
}

func newToneReader(sampleRate int) *toneReader {
	osc := generator.NewOsc(generator.WaveSine, note, sampleRate)
	osc.Amplitude = 0.5

	return &toneReader{
		osc: osc,
		buffer: &audio.FloatBuffer{
			Format: &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		},
	}
}

func (r *toneReader) Read(p []byte) (int, error) {
	samples := len(p) / 4

	if !r.on.Load() {
		clear(p[:samples*4])
		return samples * 4, nil
	}

	if cap(r.buffer.Data) < samples {
		r.buffer.Data = make([]float64, samples)
	}
	r.buffer.Data = r.buffer.Data[:samples]

	if err := r.osc.Fill(r.buffer); err != nil {
		return 0, err
	}

	for i, v := range r.buffer.Data {
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(float32(v)))
	}
	return samples * 4, nil
}
