package chip8

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ParseText reads a program in the textual format: one big-endian
// 16-bit instruction word per line, written as a 0x-prefixed hex
// number. Blank lines and lines that do not start with 0x (after any
// leading whitespace) are ignored; both \n and \r\n line endings are
// accepted. A line that starts with 0x but is not a valid 16-bit hex
// word fails the whole parse, so a caller never sees a partial program.
func ParseText(r io.Reader) ([]byte, error) {
	var (
		prog []byte
		sc   = bufio.NewScanner(r)
	)
	for n := 1; sc.Scan(); n++ {
		line := strings.TrimSpace(sc.Text())
		if !strings.HasPrefix(line, "0x") {
			continue
		}
		word, err := strconv.ParseUint(line[2:], 16, 16)
		if err != nil {
			return nil, fmt.Errorf("line %d: malformed instruction word %q", n, line)
		}
		prog = append(prog, byte(word>>8), byte(word))
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return prog, nil
}
