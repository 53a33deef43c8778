package chip8

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseText(t *testing.T) {
	for _, c := range []struct {
		name string
		in   string
		want []byte
	}{
		{"single", "0x00e0\n", []byte{0x00, 0xe0}},
		{"several", "0x00e0\n0xa100\n0xd005\n", []byte{0x00, 0xe0, 0xa1, 0x00, 0xd0, 0x05}},
		{"no trailing newline", "0x1234", []byte{0x12, 0x34}},
		{"crlf", "0x00e0\r\n0xa100\r\n", []byte{0x00, 0xe0, 0xa1, 0x00}},
		{"blank lines", "\n0x00e0\n\n\n0xa100\n", []byte{0x00, 0xe0, 0xa1, 0x00}},
		{"leading whitespace", "  0x00e0\n\t0xa100\n", []byte{0x00, 0xe0, 0xa1, 0x00}},
		{"comment lines ignored", "# clear\n0x00e0\nnot code\n", []byte{0x00, 0xe0}},
		{"short word", "0xe0\n", []byte{0x00, 0xe0}},
		{"empty", "", nil},
	} {
		t.Run(c.name, func(t *testing.T) {
			got, err := ParseText(strings.NewReader(c.in))
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(got, c.want) {
				t.Errorf("got % x, want % x", got, c.want)
			}
		})
	}
}

func TestParseTextErrors(t *testing.T) {
	for _, c := range []struct {
		name string
		in   string
	}{
		{"bad hex", "0x00e0\n0xzz00\n"},
		{"too wide", "0x12345\n"},
		{"bare prefix", "0x\n"},
		{"trailing junk", "0x00e0 cls\n"},
	} {
		t.Run(c.name, func(t *testing.T) {
			got, err := ParseText(strings.NewReader(c.in))
			if err == nil {
				t.Fatal("want error, got nil")
			}
			// The load fails atomically: no partial program.
			if got != nil {
				t.Errorf("got partial program % x", got)
			}
		})
	}
}
