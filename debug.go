package main

import (
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/chirpvm/chirp/chip8"
	"github.com/chirpvm/chirp/vip"
)

// debugger is the interactive terminal debugger: a scrolling log, a
// panel of memory watches, the machine state line, and a command input.
// Commands:
//
//	p, pause      pause execution
//	s, step       execute one instruction while paused
//	c, cont       resume execution
//	b, break ADDR set a breakpoint (plain "b" clears it)
//	w, watch ADDR watch a memory byte (w2 watches a 16-bit word)
//	exit          quit
//
// Addresses are hexadecimal, with or without a 0x prefix.
type debugger struct {
	run *vip.Runner

	log   *tview.TextView
	watch *tview.TextView
	state *tview.TextView
	input *tview.InputField
	cols  *tview.Flex
	rows  *tview.Flex
	app   *tview.Application

	mu      sync.Mutex
	brk     uint16
	watches []watch
}

type watch struct {
	addr  uint16
	short bool
}

func newDebugView() *debugger {
	d := &debugger{
		log: tview.NewTextView().
			SetMaxLines(1000),
		watch: tview.NewTextView().
			SetWrap(false).
			SetTextAlign(tview.AlignRight),
		state: tview.NewTextView().
			SetWrap(false),
		input: tview.NewInputField(),
		cols:  tview.NewFlex(),
		rows: tview.NewFlex().
			SetDirection(tview.FlexRow),
		app: tview.NewApplication(),
	}
	d.log.SetChangedFunc(func() { d.app.Draw() })
	d.watch.SetBackgroundColor(tcell.ColorDarkBlue)
	d.state.SetBackgroundColor(tcell.ColorDarkGrey)
	d.cols.
		AddItem(d.watch, 0, 1, false).
		AddItem(d.log, 0, 2, false)
	d.rows.
		AddItem(d.cols, 0, 1, false).
		AddItem(d.state, 3, 0, false).
		AddItem(d.input, 1, 0, true)
	d.app.SetRoot(d.rows, true)

	d.input.SetDoneFunc(func(key tcell.Key) {
		if key != tcell.KeyEnter {
			return
		}
		cmd := d.input.GetText()
		if cmd == "" {
			return
		}
		d.input.SetText("")
		if cmd == "exit" {
			d.app.Stop()
			return
		}
		if cmd, arg, ok := strings.Cut(cmd, " "); ok {
			switch cmd {
			case "b", "break":
				addr, ok := parseAddr(arg)
				if !ok {
					log.Printf("invalid addr %q", arg)
					return
				}
				d.run.Debug("break", addr)
				d.mu.Lock()
				d.brk = addr
				d.mu.Unlock()
				log.Printf("set break %.3x", addr)
				return
			case "w", "w2", "watch", "watch2":
				addr, ok := parseAddr(arg)
				if !ok {
					log.Printf("invalid address %q", arg)
					return
				}
				d.mu.Lock()
				d.watches = append(d.watches,
					watch{addr: addr, short: strings.HasSuffix(cmd, "2")})
				d.mu.Unlock()
				log.Printf("watching %.3x", addr)
				return
			}
			log.Printf("unknown command %q", cmd)
			return
		}
		switch cmd {
		case "p", "pause", "s", "step", "c", "cont":
			d.run.Debug(cmd, 0)
		case "b", "break":
			d.run.Debug("break", 0)
			d.mu.Lock()
			d.brk = 0
			d.mu.Unlock()
			log.Print("cleared break")
		default:
			log.Printf("unknown command %q", cmd)
		}
	})
	return d
}

// parseAddr parses a hexadecimal machine address.
func parseAddr(s string) (uint16, bool) {
	s = strings.TrimPrefix(strings.ToLower(s), "0x")
	v, err := strconv.ParseUint(s, 16, 16)
	if err != nil || v >= chip8.MemSize {
		return 0, false
	}
	return uint16(v), true
}

func (d *debugger) Run() error { return d.app.Run() }

// StateFunc implements vip.StateFunc. It is called from the execution
// loop, so it snapshots what it needs and defers drawing to the app.
func (d *debugger) StateFunc(m *chip8.Machine, k vip.StateKind) {
	var (
		watch = d.watchContent(m)
		state string
	)
	if k != vip.ClearState && k != vip.QuietState {
		state = stateMsg(m, k)
	}
	d.app.QueueUpdateDraw(func() {
		switch k {
		case vip.DebugState, vip.ClearState:
			d.state.SetTextColor(tcell.ColorBlack)
			d.state.SetBackgroundColor(tcell.ColorDarkGrey)
		case vip.BreakState:
			d.state.SetTextColor(tcell.ColorYellow)
			d.state.SetBackgroundColor(tcell.ColorDarkBlue)
		case vip.PauseState:
			d.state.SetTextColor(tcell.ColorWhite)
			d.state.SetBackgroundColor(tcell.ColorDarkBlue)
		case vip.HaltState:
			d.state.SetTextColor(tcell.ColorWhite)
			d.state.SetBackgroundColor(tcell.ColorDarkRed)
		}
		d.watch.SetText(watch)
		if k != vip.QuietState {
			d.state.SetText(state)
		}
	})
}

func stateMsg(m *chip8.Machine, k vip.StateKind) string {
	var op chip8.Op
	if int(m.PC)+1 < chip8.MemSize {
		op = chip8.Op(uint16(m.Mem[m.PC])<<8 | uint16(m.Mem[m.PC+1]))
	}
	kind := "       "
	switch k {
	case vip.BreakState:
		kind = "[break]"
	case vip.DebugState:
		kind = "[debug]"
	case vip.PauseState:
		kind = "[pause]"
	case vip.HaltState:
		kind = "[HALT!]"
	}
	return fmt.Sprintf("%.3x %- 12s %s I=%.3x SP=%d DT=%.2x ST=%.2x\nV: % x\n",
		m.PC, op, kind, m.I, m.SP, m.Delay.Value(), m.Sound.Value(), m.V)
}

func (d *debugger) watchContent(m *chip8.Machine) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	var b strings.Builder
	if d.brk != 0 {
		fmt.Fprintf(&b, "[%.3x] brk!\n", d.brk)
	}
	for _, w := range d.watches {
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "[%.3x] ", w.addr)
		if w.short && int(w.addr)+1 < chip8.MemSize {
			fmt.Fprintf(&b, "%.2x%.2x", m.Mem[w.addr], m.Mem[w.addr+1])
		} else {
			fmt.Fprintf(&b, "  %.2x", m.Mem[w.addr])
		}
	}
	return b.String()
}
