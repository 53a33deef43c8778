// Package chip8 provides an implementation of a CHIP-8 virtual machine,
// called Machine, that can be used to execute CHIP-8 programs.
package chip8

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// Memory layout constants.
const (
	MemSize   = 4096
	ProgStart = 0x200

	// MaxProgramSize is the largest program image a Machine can hold.
	MaxProgramSize = MemSize - ProgStart

	// StackDepth is the maximum call nesting.
	StackDepth = 16
)

// Machine is a CHIP-8 virtual machine. Memory, registers, the program
// counter, the call stack and both timers are owned by the machine and
// touched only by the goroutine driving Step. Keys and FB are shared
// with the input-polling and rendering collaborators.
//
// Note on the borrow flag: SUB and SUBN set VF to 1 when the minuend is
// greater than *or equal to* the subtrahend. Reference material differs
// on the equal case; this machine deliberately uses >=.
type Machine struct {
	Mem   [MemSize]byte
	V     [16]byte
	I     uint16
	PC    uint16
	Stack [StackDepth]uint16
	SP    byte // next free slot

	Delay Timer
	Sound Timer

	Keys *Keypad
	FB   *Framebuffer

	// Render, if non-nil, is invoked after every instruction that
	// mutates the framebuffer.
	Render Renderer

	rand     *rand.Rand
	done     chan struct{}
	haltOnce sync.Once
}

// NewMachine returns a machine with the font sprites installed and prog
// loaded at ProgStart. Images longer than MaxProgramSize are truncated;
// callers validate sizes before constructing a machine.
func NewMachine(prog []byte) *Machine {
	m := &Machine{
		PC:   ProgStart,
		Keys: &Keypad{},
		FB:   &Framebuffer{},
		rand: rand.New(rand.NewSource(time.Now().UnixNano())),
		done: make(chan struct{}),
	}
	copy(m.Mem[FontBase:], fontSprites[:])
	copy(m.Mem[ProgStart:], prog)
	return m
}

// Halt stops the machine: Step returns ErrHalted, unblocking a pending
// key read if there is one. Halt may be called from any goroutine.
func (m *Machine) Halt() {
	m.haltOnce.Do(func() { close(m.done) })
}

var (
	// ErrHalted is returned by Step after Halt has been called.
	ErrHalted = errors.New("halted")

	// ErrSpin is returned by Step when the program jumps to its own
	// address, the conventional CHIP-8 idiom for "done".
	ErrSpin = errors.New("jump to self")
)

// Step executes the instruction at m.PC. It returns ErrHalted after
// Halt, ErrSpin on a jump-to-self, and otherwise only returns a non-nil
// error if it encounters a halt condition: an instruction word that
// decodes to nothing, a call stack violation, or an I-relative access
// outside memory. All are fatal to the run; the machine makes no
// attempt to continue past a malformed program.
func (m *Machine) Step() (err error) {
	select {
	case <-m.done:
		return ErrHalted
	default:
	}

	if int(m.PC)+1 >= MemSize {
		return HaltError{Addr: m.PC, HaltCode: BadAddress}
	}
	var (
		op   = Op(uint16(m.Mem[m.PC])<<8 | uint16(m.Mem[m.PC+1]))
		opPC = m.PC
	)
	defer func() {
		if e := recover(); e != nil {
			if code, ok := e.(HaltCode); ok {
				err = HaltError{
					Addr:     opPC,
					Op:       op,
					HaltCode: code,
				}
			} else {
				panic(e)
			}
		}
	}()

	m.PC += 2

	switch op.Hi() {
	case 0x0:
		switch op {
		case 0x00e0: // CLS
			m.FB.clear()
			m.render()
		case 0x00ee: // RET
			if m.SP == 0 {
				panic(StackUnderflow)
			}
			m.SP--
			m.PC = m.Stack[m.SP]
		default:
			// SYS: a native machine-code call on the original
			// hardware. No portable equivalent; treated as a no-op.
		}
	case 0x1: // JP nnn
		m.PC = op.NNN()
		if m.PC == opPC {
			return ErrSpin
		}
	case 0x2: // CALL nnn
		if m.SP == StackDepth {
			panic(StackOverflow)
		}
		m.Stack[m.SP] = m.PC
		m.SP++
		m.PC = op.NNN()
	case 0x3: // SE Vx nn
		if m.V[op.X()] == op.NN() {
			m.PC += 2
		}
	case 0x4: // SNE Vx nn
		if m.V[op.X()] != op.NN() {
			m.PC += 2
		}
	case 0x5: // SE Vx Vy
		if op.N() != 0 {
			panic(BadOpcode)
		}
		if m.V[op.X()] == m.V[op.Y()] {
			m.PC += 2
		}
	case 0x6: // LD Vx nn
		m.V[op.X()] = op.NN()
	case 0x7: // ADD Vx nn (wrapping, no flag)
		m.V[op.X()] += op.NN()
	case 0x8:
		m.alu(op)
	case 0x9: // SNE Vx Vy
		if op.N() != 0 {
			panic(BadOpcode)
		}
		if m.V[op.X()] != m.V[op.Y()] {
			m.PC += 2
		}
	case 0xa: // LD I nnn
		m.I = op.NNN()
	case 0xb: // JP V0 nnn
		// Not validated here; a target outside memory fails at the
		// next fetch.
		m.PC = uint16(m.V[0]) + op.NNN()
	case 0xc: // RND Vx nn
		m.V[op.X()] = byte(m.rand.Intn(256)) & op.NN()
	case 0xd: // DRW Vx Vy n
		m.draw(op)
	case 0xe:
		key := KeyOf(m.V[op.X()])
		switch op.NN() {
		case 0x9e: // SKP Vx
			if m.Keys.Pressed(key) {
				m.PC += 2
			}
		case 0xa1: // SKNP Vx
			if !m.Keys.Pressed(key) {
				m.PC += 2
			}
		default:
			panic(BadOpcode)
		}
	case 0xf:
		switch op.NN() {
		case 0x07: // LD Vx DT
			m.V[op.X()] = m.Delay.Value()
		case 0x0a: // LD Vx K: block until the next key-down
			select {
			case key := <-m.Keys.read():
				m.V[op.X()] = byte(key)
			case <-m.done:
				m.Keys.cancelRead()
				return ErrHalted
			}
		case 0x15: // LD DT Vx
			m.Delay.Set(m.V[op.X()])
		case 0x18: // LD ST Vx
			m.Sound.Set(m.V[op.X()])
		case 0x1e: // ADD I Vx (unchecked; a bad I fails at its next use)
			m.I += uint16(m.V[op.X()])
		case 0x29: // LD F Vx
			m.I = FontBase + 5*uint16(m.V[op.X()]%16)
		case 0x33: // LD B Vx: BCD of Vx to I, I+1, I+2
			if int(m.I)+2 >= MemSize {
				panic(BadAddress)
			}
			v := m.V[op.X()]
			m.Mem[m.I] = v % 10
			m.Mem[m.I+1] = v / 10 % 10
			m.Mem[m.I+2] = v / 100
		case 0x55: // LD [I] Vx: store V0..=Vx
			x := op.X()
			if int(m.I)+int(x) >= MemSize {
				panic(BadAddress)
			}
			for i := byte(0); i <= x; i++ {
				m.Mem[m.I+uint16(i)] = m.V[i]
			}
		case 0x65: // LD Vx [I]: load V0..=Vx
			x := op.X()
			if int(m.I)+int(x) >= MemSize {
				panic(BadAddress)
			}
			for i := byte(0); i <= x; i++ {
				m.V[i] = m.Mem[m.I+uint16(i)]
			}
		default:
			panic(BadOpcode)
		}
	}

	return nil
}

// alu executes the 8xyN register-register family. VF is written last so
// instructions naming VF as their destination still report the flag.
func (m *Machine) alu(op Op) {
	x, y := op.X(), op.Y()
	switch op.N() {
	case 0x0: // LD
		m.V[x] = m.V[y]
	case 0x1: // OR
		m.V[x] |= m.V[y]
	case 0x2: // AND
		m.V[x] &= m.V[y]
	case 0x3: // XOR
		m.V[x] ^= m.V[y]
	case 0x4: // ADD with carry
		sum := uint16(m.V[x]) + uint16(m.V[y])
		m.V[x] = byte(sum)
		m.V[0xf] = flag(sum > 0xff)
	case 0x5: // SUB: VF = no borrow (Vx >= Vy)
		noBorrow := m.V[x] >= m.V[y]
		m.V[x] -= m.V[y]
		m.V[0xf] = flag(noBorrow)
	case 0x6: // SHR: VF = bit shifted out
		out := m.V[x] & 0x01
		m.V[x] >>= 1
		m.V[0xf] = out
	case 0x7: // SUBN: Vx = Vy - Vx, VF = no borrow (Vy >= Vx)
		noBorrow := m.V[y] >= m.V[x]
		m.V[x] = m.V[y] - m.V[x]
		m.V[0xf] = flag(noBorrow)
	case 0xe: // SHL: VF = bit shifted out
		out := m.V[x] >> 7
		m.V[x] <<= 1
		m.V[0xf] = out
	default:
		panic(BadOpcode)
	}
}

// draw XOR-blits an op.N()-row, 8-pixel-wide sprite read from memory at
// I onto the framebuffer at (Vx, Vy), wrapping both axes. VF is set to
// 1 iff the blit clears a previously-set pixel.
func (m *Machine) draw(op Op) {
	rows := int(op.N())
	if int(m.I)+rows > MemSize {
		panic(BadAddress)
	}
	var (
		ulx = int(m.V[op.X()])
		uly = int(m.V[op.Y()])
	)
	m.V[0xf] = 0
	for row := 0; row < rows; row++ {
		bits := m.Mem[int(m.I)+row]
		for bit := 0; bit < 8; bit++ {
			if bits&(0x80>>bit) == 0 {
				continue
			}
			x := (ulx + bit) % ScreenWidth
			y := (uly + row) % ScreenHeight
			if m.FB.flip(x, y) {
				m.V[0xf] = 1
			}
		}
	}
	m.render()
}

func (m *Machine) render() {
	if m.Render != nil {
		m.Render.Present(m.FB)
	}
}

func flag(b bool) byte {
	if b {
		return 1
	}
	return 0
}

// HaltError is returned by Step if execution is halted by
// the program for some reason.
type HaltError struct {
	HaltCode
	Op   Op
	Addr uint16
}

func (e HaltError) Error() string {
	return fmt.Sprintf("%s executing %s at %.3x", e.HaltCode, e.Op, e.Addr)
}

// HaltCode signifies the type of condition that halted execution.
type HaltCode byte

const (
	StackUnderflow HaltCode = iota
	StackOverflow
	BadOpcode
	BadAddress
)

func (c HaltCode) String() string {
	if s, ok := map[HaltCode]string{
		StackUnderflow: "return with empty stack",
		StackOverflow:  "call stack overflow",
		BadOpcode:      "unrecognized instruction",
		BadAddress:     "access outside memory",
	}[c]; ok {
		return s
	}
	return fmt.Sprintf("unknown (%.2x)", byte(c))
}
