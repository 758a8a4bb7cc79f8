package loader

import (
	"debug/elf"
	"errors"
	"fmt"
	"io"
)

// ErrBadSegment is wrapped by errors about loadable segments whose sizes do
// not fit the image or the address space.
var ErrBadSegment = errors.New("malformed ELF segment")

// LoadELF parses a little-endian MIPS32 ELF executable.
func LoadELF(path string) (*Program, error) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ELF file: %w", err)
	}
	defer func() { _ = f.Close() }()

	prog, err := programFromELF(f)
	if err != nil {
		return nil, err
	}
	prog.Path = path
	return prog, nil
}

// ParseELF parses a little-endian MIPS32 ELF image.
func ParseELF(r io.ReaderAt) (*Program, error) {
	f, err := elf.NewFile(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ELF file: %w", err)
	}
	return programFromELF(f)
}

func programFromELF(f *elf.File) (*Program, error) {
	if f.Class != elf.ELFCLASS32 {
		return nil, fmt.Errorf("not a 32-bit ELF file")
	}

	if f.Machine != elf.EM_MIPS {
		return nil, fmt.Errorf("not a MIPS ELF file (machine type: %v)", f.Machine)
	}

	if f.Data != elf.ELFDATA2LSB {
		return nil, fmt.Errorf("not a little-endian ELF file")
	}

	prog := &Program{
		EntryPoint: uint32(f.Entry),
	}

	for _, phdr := range f.Progs {
		if phdr.Type != elf.PT_LOAD {
			continue
		}

		if phdr.Filesz > phdr.Memsz {
			return nil, fmt.Errorf("%w: segment at 0x%x has file size %d above memory size %d",
				ErrBadSegment, phdr.Vaddr, phdr.Filesz, phdr.Memsz)
		}
		if phdr.Vaddr+phdr.Memsz > 1<<32 {
			return nil, fmt.Errorf("%w: segment at 0x%x with size %d overflows the address space",
				ErrBadSegment, phdr.Vaddr, phdr.Memsz)
		}

		// Allocation follows the bytes present in the file, not Filesz.
		data, err := io.ReadAll(phdr.Open())
		if err != nil {
			return nil, fmt.Errorf("failed to read segment at 0x%x: %w", phdr.Vaddr, err)
		}
		if uint64(len(data)) != phdr.Filesz {
			return nil, fmt.Errorf("short read for segment at 0x%x: got %d bytes, expected %d",
				phdr.Vaddr, len(data), phdr.Filesz)
		}

		var flags SegmentFlags
		if phdr.Flags&elf.PF_X != 0 {
			flags |= SegmentFlagExecute
		}
		if phdr.Flags&elf.PF_W != 0 {
			flags |= SegmentFlagWrite
		}
		if phdr.Flags&elf.PF_R != 0 {
			flags |= SegmentFlagRead
		}

		prog.Segments = append(prog.Segments, Segment{
			VirtAddr: uint32(phdr.Vaddr),
			Data:     data,
			MemSize:  uint32(phdr.Memsz),
			Flags:    flags,
		})
	}

	return prog, nil
}
