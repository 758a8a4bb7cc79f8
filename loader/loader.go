// Package loader reads MIPS programs into memory. It understands two
// formats: hex text images (one instruction word per line) and
// little-endian MIPS32 ELF executables.
package loader

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"

	"github.com/sarchlab/mipsim/emu"
)

// ErrEmptyProgram is returned when a program image holds no words.
var ErrEmptyProgram = errors.New("program contains no instructions")

// SegmentFlags represents memory protection flags for a segment.
type SegmentFlags uint32

const (
	// SegmentFlagExecute indicates the segment is executable.
	SegmentFlagExecute SegmentFlags = 1 << iota
	// SegmentFlagWrite indicates the segment is writable.
	SegmentFlagWrite
	// SegmentFlagRead indicates the segment is readable.
	SegmentFlagRead
)

// Segment represents a contiguous block of the program image.
type Segment struct {
	// VirtAddr is the address where this segment should be loaded.
	VirtAddr uint32
	// Data contains the segment contents.
	Data []byte
	// MemSize is the size in memory (may be larger than len(Data) for BSS).
	MemSize uint32
	// Flags contains the segment protection flags.
	Flags SegmentFlags
}

// Program represents a loaded program ready for execution.
type Program struct {
	// Path is the file the program was read from, if any.
	Path string
	// EntryPoint is the address where execution should begin.
	EntryPoint uint32
	// Segments contains all loadable segments.
	Segments []Segment
}

// Word is one instruction word of the program text.
type Word struct {
	Addr  uint32
	Value uint32
}

// Load reads the program at path, detecting ELF files by their magic
// number. Hex images are placed at textBase.
func Load(path string, textBase uint32) (*Program, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open program: %w", err)
	}

	var prog *Program
	if bytes.HasPrefix(content, []byte("\x7fELF")) {
		prog, err = ParseELF(bytes.NewReader(content))
	} else {
		prog, err = ParseHex(bytes.NewReader(content), textBase)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	prog.Path = path
	return prog, nil
}

// LoadInto clears memory and copies every segment into it.
func (p *Program) LoadInto(mem *emu.Memory) {
	mem.Reset()
	for _, seg := range p.Segments {
		mem.Load(seg.VirtAddr, seg.Data)
	}
}

// Text returns the words of the executable segments in address order.
func (p *Program) Text() []Word {
	var words []Word
	for _, seg := range p.Segments {
		if seg.Flags&SegmentFlagExecute == 0 {
			continue
		}
		for off := 0; off+4 <= len(seg.Data); off += 4 {
			words = append(words, Word{
				Addr:  seg.VirtAddr + uint32(off),
				Value: binary.LittleEndian.Uint32(seg.Data[off:]),
			})
		}
	}
	return words
}

// FromWords builds a program from instruction words placed contiguously at
// base.
func FromWords(base uint32, words []uint32) *Program {
	data := make([]byte, len(words)*4)
	for i, w := range words {
		binary.LittleEndian.PutUint32(data[i*4:], w)
	}

	return &Program{
		EntryPoint: base,
		Segments: []Segment{{
			VirtAddr: base,
			Data:     data,
			MemSize:  uint32(len(data)),
			Flags:    SegmentFlagExecute | SegmentFlagRead,
		}},
	}
}
