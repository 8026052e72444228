// main.go - Main entry point for acemu, a Jupiter ACE emulator

/*
License: GPLv3 or later
*/

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
)

const version = "0.9.0"

func boilerPlate() {
	fmt.Printf("acemu: Jupiter ACE emulator v%s\n", version)
	fmt.Println("Keys:")
	fmt.Println("\tF1     - Delete Line")
	fmt.Println("\tF2     - Status bar")
	fmt.Println("\tF3     - Attach a tape image")
	fmt.Println("\tF4     - Inverse Video")
	fmt.Println("\tF5     - Toggle fast mode")
	fmt.Println("\tF9     - Graphics")
	fmt.Println("\tF10    - Fullscreen")
	fmt.Println("\tF11    - Spool from a file")
	fmt.Println("\tF12    - Reset")
	fmt.Println("\tEsc    - Break")
	fmt.Println("\tCtrl-Q - Quit")
	fmt.Println("License: GPLv3 or later")
}

type options struct {
	rom       string
	tape      string
	spool     string
	spoolFast string
	fast      bool
	scale     int
	refresh   int
	asm       string
	entry     string
	script    string
	listen    string
	frames    uint64
}

func parseOptions(args []string) (*options, error) {
	var opts options

	flagSet := flag.NewFlagSet(args[0], flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagSet.StringVar(&opts.rom, "rom", "ace.rom", "8K ROM image")
	flagSet.StringVar(&opts.tape, "tape", "", "Attach a tape image")
	flagSet.StringVar(&opts.spool, "s", "", "Type the contents of a file")
	flagSet.StringVar(&opts.spoolFast, "S", "", "Type the contents of a file in fast mode")
	flagSet.BoolVar(&opts.fast, "fast", false, "Start unthrottled")
	flagSet.IntVar(&opts.scale, "scale", 2, "Window scale factor")
	flagSet.IntVar(&opts.refresh, "refresh", defaultRefresh, "Interrupts per display refresh")
	flagSet.StringVar(&opts.asm, "asm", "", "Assemble a Z80 source file and run it")
	flagSet.StringVar(&opts.entry, "entry", "", "Override the entry address of -asm (hex or decimal)")
	flagSet.StringVar(&opts.script, "script", "", "Run a Lua script")
	flagSet.StringVar(&opts.listen, "listen", "", "Serve the remote console on this address")
	flagSet.Uint64Var(&opts.frames, "headless-frames", 0, "Stop after this many refreshes (headless builds)")

	flagSet.Usage = func() {
		flagSet.SetOutput(os.Stdout)
		fmt.Printf("Usage: %s [-rom ace.rom] [-tape file.tap] [-s|-S file] [-asm file.z80] [-script file.lua]\n", args[0])
		flagSet.PrintDefaults()
	}

	if err := flagSet.Parse(args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			flagSet.Usage()
		}
		return nil, err
	}
	if opts.spool != "" && opts.spoolFast != "" {
		return nil, errors.New("-s and -S are mutually exclusive")
	}
	if opts.entry != "" && opts.asm == "" {
		return nil, errors.New("-entry needs -asm")
	}
	return &opts, nil
}

func main() {
	opts, err := parseOptions(os.Args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	boilerPlate()

	video, err := newVideoOutput(opts.frames)
	if err != nil {
		fmt.Printf("Failed to initialize video: %v\n", err)
		os.Exit(1)
	}
	if err := video.SetDisplayConfig(DefaultDisplayConfig(opts.scale)); err != nil {
		fmt.Printf("Failed to configure video: %v\n", err)
		os.Exit(1)
	}

	speed := SpeedNormal
	if opts.fast {
		speed = SpeedUnthrottled
	}
	machine, err := NewMachine(MachineConfig{
		ROMPath: opts.rom,
		Refresh: opts.refresh,
		Speed:   speed,
		Video:   video,
		Prompt:  NewTerminalHost(),
	})
	if err != nil {
		fmt.Printf("%v\n", err)
		os.Exit(1)
	}

	machine.Tape().AddObserver(PrintTapeEvent)
	machine.AddSpoolerObserver(printSpoolerEvent)

	if err := setupMachine(machine, opts); err != nil {
		fmt.Printf("%v\n", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	machine.SetQuitFunc(cancel)

	runner := NewMachineRunner(machine)
	runner.StartExecution(ctx)

	if opts.listen != "" {
		console := NewRemoteConsole(machine)
		go func() {
			if err := console.ListenAndServe(ctx, opts.listen); err != nil {
				fmt.Fprintf(os.Stderr, "%v\n", err)
			}
		}()
	}
	if opts.script != "" {
		go func() {
			if err := RunLuaScript(ctx, machine, opts.script); err != nil && ctx.Err() == nil {
				fmt.Fprintf(os.Stderr, "%v\n", err)
			}
		}()
	}

	// The video backend must own the main goroutine; the CPU ending (quit,
	// signal) stops it.
	go func() {
		<-ctx.Done()
		_ = video.Stop()
	}()
	go func() {
		<-runner.Done()
		cancel()
	}()

	if err := video.Start(); err != nil {
		fmt.Printf("Failed to start video: %v\n", err)
		os.Exit(1)
	}
	if err := video.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
	}

	cancel()
	runErr := runner.Stop()
	machine.Shutdown()
	if runErr != nil {
		fmt.Printf("%v\n", runErr)
		os.Exit(1)
	}
}

// setupMachine applies the startup options that act on a powered-on
// machine before the CPU starts.
func setupMachine(m *Machine, opts *options) error {
	if opts.tape != "" {
		if err := m.Tape().Attach(opts.tape); err != nil {
			return err
		}
	}
	if opts.asm != "" {
		prog, err := AssembleFile(opts.asm)
		if err != nil {
			return err
		}
		if opts.entry != "" {
			entry, err := parseUint16Flag(opts.entry)
			if err != nil {
				return fmt.Errorf("invalid -entry: %w", err)
			}
			prog.Entry = entry
		}
		m.LoadProgram(prog)
	}
	switch {
	case opts.spool != "":
		return m.Spooler().Open(opts.spool)
	case opts.spoolFast != "":
		return m.SpoolFast(opts.spoolFast)
	}
	return nil
}

func printSpoolerEvent(ev SpoolerEvent) {
	if ev == SpoolerOpenError {
		fmt.Fprintln(os.Stderr, ev.String())
		return
	}
	fmt.Println(ev.String())
}

func parseUint16Flag(value string) (uint16, error) {
	parsed, err := strconv.ParseUint(value, 0, 16)
	if err != nil {
		return 0, err
	}
	if parsed > 0xFFFF {
		return 0, fmt.Errorf("value out of range: 0x%X", parsed)
	}
	return uint16(parsed), nil
}
