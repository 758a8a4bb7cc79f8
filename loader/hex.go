package loader

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ParseHex reads a hex text image: one 32-bit word per line, with an
// optional 0x prefix. Blank lines and text after '#' are ignored.
func ParseHex(r io.Reader, base uint32) (*Program, error) {
	var words []uint32

	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Text()
		if i := strings.IndexByte(text, '#'); i >= 0 {
			text = text[:i]
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		digits := strings.TrimPrefix(strings.TrimPrefix(text, "0x"), "0X")
		word, err := strconv.ParseUint(digits, 16, 32)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid word %q: %w", line, text, err)
		}
		words = append(words, uint32(word))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read program: %w", err)
	}

	if len(words) == 0 {
		return nil, ErrEmptyProgram
	}

	return FromWords(base, words), nil
}
