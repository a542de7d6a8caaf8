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

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"chip8rt"
	"chip8rt/chip8"
)

type options struct {
	rom        string
	legacy     bool
	debug      bool
	hz         int
	keyTimeout time.Duration
	frontend   string
	audio      string
	unknown    string
	strictAddr bool
	seed       uint64
	verbose    bool
	logFile    string
}

// UsageError asks main to print the flag defaults.
type UsageError struct {
	flags *flag.FlagSet
	msg   string
}

func (e *UsageError) Error() string {
	return e.msg
}

func (e *UsageError) ShowUsage() {
	if e.msg != "" && e.msg != flag.ErrHelp.Error() {
		fmt.Fprintf(os.Stderr, "%s\n\n", e.msg)
	}
	fmt.Fprintf(os.Stderr, "usage: chip8rt [options] <rom file>\n\n")
	e.flags.SetOutput(os.Stderr)
	e.flags.PrintDefaults()
}

func parseFlags(args []string) (options, error) {
	flags := flag.NewFlagSet("chip8rt", flag.ContinueOnError)
	flags.SetOutput(io.Discard)
	var opts options

	flags.BoolVar(&opts.legacy, "legacy", false, "use COSMAC VIP semantics instead of the modern interpretation")
	flags.BoolVar(&opts.debug, "debug", false, "start paused and pause on unsupported instructions")
	flags.IntVar(&opts.hz, "hz", chip8.DefaultClockRate, "instructions per second, 0 runs unbounded")
	flags.DurationVar(&opts.keyTimeout, "key-timeout", chip8.DefaultKeyTimeout, "how long a key stays down after it is pressed")
	flags.StringVar(&opts.frontend, "frontend", "gui", "frontend to run (gui/term)")
	flags.StringVar(&opts.audio, "audio", "portaudio", "audio backend (portaudio/oto/none)")
	flags.StringVar(&opts.unknown, "unknown", "fail", "unsupported instruction policy (fail/skip)")
	flags.BoolVar(&opts.strictAddr, "strict-addr", false, "fail on memory access past 0xFFF instead of wrapping")
	flags.Uint64Var(&opts.seed, "seed", 0, "seed for the RND instruction, 0 picks one at random")
	flags.BoolVar(&opts.verbose, "v", false, "log debug messages")
	flags.StringVar(&opts.logFile, "log", "", "write logs to this file")

	if err := flags.Parse(args); err != nil {
		return opts, &UsageError{flags: flags, msg: err.Error()}
	}
	if flags.NArg() != 1 {
		return opts, &UsageError{flags: flags, msg: "must specify file"}
	}
	opts.rom = flags.Arg(0)

	switch opts.frontend {
	case "gui", "term":
	default:
		return opts, fmt.Errorf("unsupported frontend: %s. Valid options: gui, term", opts.frontend)
	}
	switch opts.unknown {
	case "fail", "skip":
	default:
		return opts, fmt.Errorf("unsupported policy: %s. Valid options: fail, skip", opts.unknown)
	}
	return opts, nil
}

func (o options) config() chip8.Config {
	cfg := chip8.DefaultConfig()
	if o.legacy {
		cfg.Mode = chip8.Legacy
	}
	cfg.ClockRate = o.hz
	cfg.KeyTimeout = o.keyTimeout
	if o.unknown == "skip" {
		cfg.Unknown = chip8.UnknownSkip
	}
	if o.strictAddr {
		cfg.Addressing = chip8.AddressStrict
	}
	cfg.Seed = o.seed
	cfg.Debug = o.debug
	return cfg
}

// newLogger writes text logs to the -log file if given, to stderr for the
// window frontend, and nowhere for the terminal frontend since it owns the
// screen.
func newLogger(o options) (*slog.Logger, io.Closer, error) {
	level := slog.LevelInfo
	if o.verbose {
		level = slog.LevelDebug
	}
	hopts := &slog.HandlerOptions{Level: level}

	switch {
	case o.logFile != "":
		f, err := os.Create(o.logFile)
		if err != nil {
			return nil, nil, err
		}
		return slog.New(slog.NewTextHandler(f, hopts)), f, nil
	case o.frontend == "term":
		return slog.New(slog.DiscardHandler), io.NopCloser(nil), nil
	}
	return slog.New(slog.NewTextHandler(os.Stderr, hopts)), io.NopCloser(nil), nil
}

func readROM(name string) ([]byte, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()

	return io.ReadAll(f)
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		var usage *UsageError
		if errors.As(err, &usage) {
			usage.ShowUsage()
			if usage.msg == flag.ErrHelp.Error() {
				os.Exit(0)
			}
			os.Exit(2)
		}
		log.Fatal(err)
	}

	logger, logCloser, err := newLogger(opts)
	if err != nil {
		log.Fatal(err)
	}
	defer func() {
		_ = logCloser.Close()
	}()
	slog.SetDefault(logger)

	b, err := readROM(opts.rom)
	if err != nil {
		log.Fatal(err)
	}

	tone, err := chip8rt.NewTone(opts.audio)
	if err != nil {
		log.Fatal(err)
	}
	if tone != nil {
		defer func() {
			_ = tone.Close()
		}()
	}

	cfg := opts.config()
	cfg.Logger = logger
	if tone != nil {
		cfg.Tone = tone
	}

	e, err := chip8rt.New(cfg)
	if err != nil {
		log.Fatal(err)
	}
	if err := e.Load(b); err != nil {
		log.Fatal(err)
	}

	logger.Info("program loaded",
		"rom", opts.rom,
		"size", len(b),
		"mode", cfg.Mode.String(),
		"hz", cfg.ClockRate)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	switch opts.frontend {
	case "term":
		err = e.RunTerminal(ctx, os.Stdin, os.Stdout)
	default:
		err = e.RunGUI(ctx)
	}

	if err != nil {
		logger.Error("emulation stopped", "err", err)
		if hint := chip8.Hint(err, cfg.Mode); hint != "" {
			fmt.Fprintln(os.Stderr, hint)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
