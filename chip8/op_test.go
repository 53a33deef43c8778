package chip8

import "testing"

func TestOpFields(t *testing.T) {
	op := Op(0x8abc)
	if g := op.Hi(); g != 0x8 {
		t.Errorf("Hi = %x, want 8", g)
	}
	if g := op.X(); g != 0xa {
		t.Errorf("X = %x, want a", g)
	}
	if g := op.Y(); g != 0xb {
		t.Errorf("Y = %x, want b", g)
	}
	if g := op.N(); g != 0xc {
		t.Errorf("N = %x, want c", g)
	}
	if g := op.NN(); g != 0xbc {
		t.Errorf("NN = %x, want bc", g)
	}
	if g := op.NNN(); g != 0xabc {
		t.Errorf("NNN = %x, want abc", g)
	}
}

func TestOpString(t *testing.T) {
	for _, c := range []struct {
		op   Op
		want string
	}{
		{0x00e0, "CLS"},
		{0x00ee, "RET"},
		{0x0123, "SYS 123"},
		{0x1234, "JP 234"},
		{0x2456, "CALL 456"},
		{0x3a07, "SE VA 07"},
		{0x4a07, "SNE VA 07"},
		{0x5ab0, "SE VA VB"},
		{0x6a42, "LD VA 42"},
		{0x7a02, "ADD VA 02"},
		{0x8ab0, "LD VA VB"},
		{0x8ab4, "ADD VA VB"},
		{0x8a06, "SHR VA V0"},
		{0x9ab0, "SNE VA VB"},
		{0xa123, "LD I 123"},
		{0xb300, "JP V0 300"},
		{0xc10f, "RND V1 0f"},
		{0xd015, "DRW V0 V1 5"},
		{0xe19e, "SKP V1"},
		{0xe1a1, "SKNP V1"},
		{0xf107, "LD V1 DT"},
		{0xf10a, "LD V1 K"},
		{0xf115, "LD DT V1"},
		{0xf118, "LD ST V1"},
		{0xf11e, "ADD I V1"},
		{0xf129, "LD F V1"},
		{0xf133, "LD B V1"},
		{0xf155, "LD [I] V1"},
		{0xf165, "LD V1 [I]"},
		{0x5ab1, "??? (5ab1)"},
		{0x8ab8, "??? (8ab8)"},
		{0xe1ff, "??? (e1ff)"},
	} {
		if g := c.op.String(); g != c.want {
			t.Errorf("Op(%.4x).String() = %q, want %q", uint16(c.op), g, c.want)
		}
	}
}
