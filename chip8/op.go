package chip8

import "fmt"

// Op is a 16-bit CHIP-8 instruction word, stored big-endian in memory.
// The high nibble selects the opcode family; several families use the
// low nibble or low byte to select the operation within the family.
type Op uint16

// Hi returns the high (family) nibble.
func (o Op) Hi() byte { return byte(o >> 12) }

// X returns the second nibble, the first register operand.
func (o Op) X() byte { return byte(o >> 8 & 0xf) }

// Y returns the third nibble, the second register operand.
func (o Op) Y() byte { return byte(o >> 4 & 0xf) }

// N returns the low nibble.
func (o Op) N() byte { return byte(o & 0xf) }

// NN returns the low byte immediate.
func (o Op) NN() byte { return byte(o) }

// NNN returns the 12-bit address immediate.
func (o Op) NNN() uint16 { return uint16(o & 0xfff) }

// String returns the conventional mnemonic for the instruction,
// or the raw word for instructions that decode to nothing.
func (o Op) String() string {
	switch o.Hi() {
	case 0x0:
		switch o {
		case 0x00e0:
			return "CLS"
		case 0x00ee:
			return "RET"
		}
		return fmt.Sprintf("SYS %.3x", o.NNN())
	case 0x1:
		return fmt.Sprintf("JP %.3x", o.NNN())
	case 0x2:
		return fmt.Sprintf("CALL %.3x", o.NNN())
	case 0x3:
		return fmt.Sprintf("SE V%X %.2x", o.X(), o.NN())
	case 0x4:
		return fmt.Sprintf("SNE V%X %.2x", o.X(), o.NN())
	case 0x5:
		if o.N() == 0 {
			return fmt.Sprintf("SE V%X V%X", o.X(), o.Y())
		}
	case 0x6:
		return fmt.Sprintf("LD V%X %.2x", o.X(), o.NN())
	case 0x7:
		return fmt.Sprintf("ADD V%X %.2x", o.X(), o.NN())
	case 0x8:
		if f, ok := map[byte]string{
			0x0: "LD", 0x1: "OR", 0x2: "AND", 0x3: "XOR",
			0x4: "ADD", 0x5: "SUB", 0x6: "SHR", 0x7: "SUBN", 0xe: "SHL",
		}[o.N()]; ok {
			return fmt.Sprintf("%s V%X V%X", f, o.X(), o.Y())
		}
	case 0x9:
		if o.N() == 0 {
			return fmt.Sprintf("SNE V%X V%X", o.X(), o.Y())
		}
	case 0xa:
		return fmt.Sprintf("LD I %.3x", o.NNN())
	case 0xb:
		return fmt.Sprintf("JP V0 %.3x", o.NNN())
	case 0xc:
		return fmt.Sprintf("RND V%X %.2x", o.X(), o.NN())
	case 0xd:
		return fmt.Sprintf("DRW V%X V%X %x", o.X(), o.Y(), o.N())
	case 0xe:
		switch o.NN() {
		case 0x9e:
			return fmt.Sprintf("SKP V%X", o.X())
		case 0xa1:
			return fmt.Sprintf("SKNP V%X", o.X())
		}
	case 0xf:
		if f, ok := map[byte]string{
			0x07: "LD V%X DT",
			0x0a: "LD V%X K",
			0x15: "LD DT V%X",
			0x18: "LD ST V%X",
			0x1e: "ADD I V%X",
			0x29: "LD F V%X",
			0x33: "LD B V%X",
			0x55: "LD [I] V%X",
			0x65: "LD V%X [I]",
		}[o.NN()]; ok {
			return fmt.Sprintf(f, o.X())
		}
	}
	return fmt.Sprintf("??? (%.4x)", uint16(o))
}
