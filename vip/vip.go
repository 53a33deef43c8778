// Package vip implements the host side of a CHIP-8 machine: the
// execution loop, display window, keypad wiring and beeper. It is named
// for the COSMAC VIP, the computer the interpreter originally shipped
// on.
package vip

import (
	"errors"
	"log"
	"time"

	"github.com/chirpvm/chirp/chip8"
)

// StateKind tells a StateFunc why it is being called.
type StateKind int

const (
	// QuietState is a periodic notification while the machine runs;
	// consumers should refresh watches but not report a stop.
	QuietState StateKind = iota
	DebugState
	BreakState
	PauseState
	HaltState
	ClearState
)

// StateFunc observes machine state from the execution loop. It must not
// retain m past the call.
type StateFunc func(m *chip8.Machine, k StateKind)

// DefaultIPS is the default execution pace in instructions per second.
// Most historical programs are written for interpreters in this range.
const DefaultIPS = 700

// Runner drives a machine to completion, optionally under a GUI,
// with dev-mode hot swapping and debugger control.
type Runner struct {
	gui   bool
	dev   bool
	ips   int
	state StateFunc

	swap  chan []byte
	debug chan debugCmd
}

type debugCmd struct {
	cmd  string
	addr uint16
}

func NewRunner(enableGUI, devMode bool, state StateFunc) *Runner {
	return &Runner{
		gui:   enableGUI,
		dev:   devMode,
		ips:   DefaultIPS,
		state: state,
		swap:  make(chan []byte),
		debug: make(chan debugCmd),
	}
}

// SetIPS adjusts the execution pace. Call before Run.
func (r *Runner) SetIPS(n int) {
	if n > 0 {
		r.ips = n
	}
}

// Swap replaces the running program with rom and restarts execution
// from a fresh machine.
func (r *Runner) Swap(rom []byte) {
	if !r.dev {
		panic("Swap called while not running in dev mode")
	}
	r.swap <- rom
}

// Debug passes a debugger command to the execution loop:
// pause/p, step/s, cont/c, break/b (addr; addr 0 clears), exit.
func (r *Runner) Debug(cmd string, addr uint16) {
	r.debug <- debugCmd{cmd, addr}
}

// errDebugExit stops the runner from inside the execution loop when the
// debugger asks to quit.
var errDebugExit = errors.New("debugger exit")

// Run executes rom until it finishes or fails. In dev mode the runner
// stays alive after the program stops so that a Swap can restart it.
func (r *Runner) Run(rom []byte) (exitCode int) {
	m := chip8.NewMachine(rom)
	g := newGUI(m, r.gui)
	m.Render = g

	bp, err := newBeeper(&m.Sound)
	if err != nil {
		log.Printf("audio disabled: %v", err)
	} else {
		defer bp.Close()
	}

	exit := make(chan bool)
	go func() {
		var (
			execErr = make(chan error)
			running = true
		)
		go func() { execErr <- r.exec(m) }()
		for {
			// While the machine is stopped (dev mode, between swaps)
			// the manager drains debugger commands so that "exit"
			// still works.
			var dbg chan debugCmd
			if !running {
				dbg = r.debug
			}
			select {
			case c := <-dbg:
				if c.cmd == "exit" {
					close(exit)
					return
				}
			case rom := <-r.swap:
				if running {
					m.Halt()
					<-execErr
				}
				m = chip8.NewMachine(rom)
				m.Render = g
				g.Swap(m)
				if bp != nil {
					bp.Swap(&m.Sound)
				}
				go func() { execErr <- r.exec(m) }()
				running = true
			case err := <-execErr:
				if err != nil && !errors.Is(err, errDebugExit) {
					log.Printf("chip8: %v", err)
					exitCode = 1
				}
				if r.dev && !errors.Is(err, errDebugExit) {
					running = false
					continue
				}
				close(exit)
				return
			}
		}
	}()
	if r.gui {
		if err := g.Run(exit); err != nil {
			log.Fatalf("gui: %v", err)
		}
	} else {
		<-exit
	}
	return exitCode
}

// execState is the debugger-visible state of one execution loop.
type execState struct {
	paused bool
	step   bool
	brk    uint16
	brkSet bool
	exit   bool
}

func (s *execState) apply(c debugCmd) {
	switch c.cmd {
	case "pause", "p":
		s.paused = true
	case "step", "s":
		s.step = s.paused
	case "cont", "c":
		s.paused = false
	case "break", "b":
		s.brk, s.brkSet = c.addr, c.addr != 0
	case "exit":
		s.exit = true
	}
}

// exec runs m at the configured pace until it stops. The loop owns all
// machine state; the debugger only ever talks to it through r.debug.
func (r *Runner) exec(m *chip8.Machine) error {
	tick := time.NewTicker(time.Second / time.Duration(r.ips))
	defer tick.Stop()

	var (
		st execState
		n  int // instructions since the last quiet notification
	)
	for {
		if st.exit {
			m.Halt()
			return errDebugExit
		}
		if st.paused && !st.step {
			r.notify(m, PauseState)
			st.apply(<-r.debug)
			continue
		}
		st.step = false

		select {
		case c := <-r.debug:
			st.apply(c)
			continue
		case <-tick.C:
		}

		err := m.Step()
		switch {
		case err == nil:
		case errors.Is(err, chip8.ErrSpin):
			log.Printf("chip8: program finished (jump to self at %.3x)", m.PC)
			r.notify(m, HaltState)
			return nil
		case errors.Is(err, chip8.ErrHalted):
			return nil
		default:
			r.notify(m, HaltState)
			return err
		}

		switch {
		case st.brkSet && m.PC == st.brk:
			st.paused = true
			r.notify(m, BreakState)
		case st.paused: // completed a single step
			r.notify(m, DebugState)
		default:
			if n++; n%32 == 0 {
				r.notify(m, QuietState)
			}
		}
	}
}

func (r *Runner) notify(m *chip8.Machine, k StateKind) {
	if r.state != nil {
		r.state(m, k)
	}
}
