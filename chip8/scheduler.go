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
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"
)

// maxLag bounds how far the instruction schedule may fall behind the clock
// before it is re-anchored instead of replayed.
const maxLag = 100 * time.Millisecond

// Scheduler drives a Processor against the clock. Instructions run at the
// configured rate; timer frames run every TimerRate of elapsed time no
// matter how many instructions executed in between.
//
// Update and Run must be called from a single goroutine. Pause, Resume,
// StepOnce, Paused and Fault may be called from any goroutine.
type Scheduler struct {
	p       *Processor
	clock   Clock
	period  time.Duration // zero means unbounded
	debug   bool
	unknown UnknownPolicy
	logger  *slog.Logger

	started  bool
	frozen   bool
	nextStep time.Time
	nextTick time.Time

	paused atomic.Bool
	next   atomic.Bool
	fault  atomic.Pointer[Fault]
}

func NewScheduler(p *Processor, cfg Config) (*Scheduler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var period time.Duration
	if cfg.ClockRate > 0 {
		period = time.Second / time.Duration(cfg.ClockRate)
	}

	return &Scheduler{
		p:       p,
		clock:   cfg.clock(),
		period:  period,
		debug:   cfg.Debug,
		unknown: cfg.Unknown,
		logger:  cfg.logger(),
	}, nil
}

func (s *Scheduler) Processor() *Processor {
	return s.p
}

func (s *Scheduler) anchor(now time.Time) {
	s.nextStep = now
	s.nextTick = now.Add(TimerRate)
	s.started = true
}

// Update runs every instruction and timer frame that is due at now, in
// chronological order. When the rate is unbounded it runs exactly one
// instruction after the due frames.
func (s *Scheduler) Update(now time.Time) (Info, error) {
	if !s.started {
		s.anchor(now)
	}

	if s.paused.Load() {
		// The machine is frozen; time spent paused is never replayed.
		s.frozen = true
		s.anchor(now)
		if !s.next.CompareAndSwap(true, false) {
			return 0, nil
		}
		return s.step()
	}

	if s.frozen {
		s.frozen = false
		s.anchor(now)
	}

	var info Info

	if s.period == 0 {
		for !s.nextTick.After(now) {
			s.frame()
			info |= Frame
		}
		i, err := s.step()
		return info | i, err
	}

	if lag := now.Sub(s.nextStep); lag > maxLag {
		s.logger.Debug("instruction schedule re-anchored", "lag", lag)
		s.nextStep = now
	}

	for {
		dueStep := !s.nextStep.After(now)
		dueTick := !s.nextTick.After(now)

		switch {
		case dueTick && (!dueStep || !s.nextStep.Before(s.nextTick)):
			s.frame()
			info |= Frame
		case dueStep:
			i, err := s.step()
			info |= i
			s.nextStep = s.nextStep.Add(s.period)
			if err != nil || s.paused.Load() {
				return info, err
			}
		default:
			return info, nil
		}
	}
}

// frame runs one 60hz timer frame.
func (s *Scheduler) frame() {
	s.p.timers.Tick()
	s.p.keys.Expire(s.nextTick)
	s.nextTick = s.nextTick.Add(TimerRate)
}

func (s *Scheduler) step() (Info, error) {
	info, err := s.p.Step()
	if err == nil {
		return info, nil
	}

	var fault *Fault
	if IsFatal(err) || !errors.As(err, &fault) || !errors.Is(err, ErrUnsupported) {
		return info, err
	}

	switch {
	case s.debug:
		s.fault.Store(fault)
		s.paused.Store(true)
		s.logger.Warn("unsupported instruction, execution paused",
			"opcode", fault.Op.String(),
			"address", fault.Addr,
			"hint", Hint(err, s.p.mode))
		return info | Faulted, nil
	case s.unknown == UnknownSkip:
		s.logger.Warn("skipping unsupported instruction",
			"opcode", fault.Op.String(),
			"address", fault.Addr)
		return info, nil
	}
	return info, err
}

// Run calls Update in a loop until ctx is done or a fatal error occurs.
// present, when non-nil, is called on the scheduler goroutine once per
// timer frame with everything that happened since its last call, and on
// every loop while paused.
func (s *Scheduler) Run(ctx context.Context, present func(Info) error) error {
	var pending Info

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		now := s.clock.Now()
		info, err := s.Update(now)
		pending |= info
		if err != nil {
			return err
		}

		paused := s.paused.Load()
		if present != nil && (paused || pending&(Frame|Faulted) != 0) {
			if err := present(pending); err != nil {
				return err
			}
			pending = 0
		}

		if err := sleep(ctx, s.idle(now, info, paused)); err != nil {
			return err
		}
	}
}

// idle returns how long Run may sleep before the next event is due.
func (s *Scheduler) idle(now time.Time, info Info, paused bool) time.Duration {
	switch {
	case paused:
		return TimerRate
	case s.period == 0:
		if info&Waiting != 0 {
			return s.nextTick.Sub(now)
		}
		return 0
	}

	next := s.nextStep
	if s.nextTick.Before(next) {
		next = s.nextTick
	}
	return next.Sub(now)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Pause stops instruction execution and timer frames.
func (s *Scheduler) Pause() {
	if !s.paused.Swap(true) {
		s.logger.Debug("execution paused")
	}
}

// Resume continues execution and clears any recorded fault.
func (s *Scheduler) Resume() {
	s.fault.Store(nil)
	s.next.Store(false)
	if s.paused.Swap(false) {
		s.logger.Debug("execution resumed")
	}
}

func (s *Scheduler) Paused() bool {
	return s.paused.Load()
}

// StepOnce queues a single instruction to run while paused.
func (s *Scheduler) StepOnce() {
	s.next.Store(true)
}

// Fault returns the unsupported-instruction fault that paused execution in
// debug mode, or nil.
func (s *Scheduler) Fault() *Fault {
	return s.fault.Load()
}
