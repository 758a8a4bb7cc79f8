package loader_test

import (
	"encoding/binary"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/mipsim/emu"
	"github.com/sarchlab/mipsim/loader"
)

// testSegment describes one PT_LOAD entry of a generated ELF file.
type testSegment struct {
	vaddr   uint32
	data    []byte
	memSize uint32
	flags   uint32
}

const (
	pfX = 0x1
	pfW = 0x2
	pfR = 0x4
)

var _ = Describe("ELF Loader", func() {
	var tempDir string

	BeforeEach(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "elf-loader-test")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		_ = os.RemoveAll(tempDir)
	})

	write := func(name string, content []byte) string {
		path := filepath.Join(tempDir, name)
		Expect(os.WriteFile(path, content, 0644)).To(Succeed())
		return path
	}

	code := []byte{
		0x05, 0x00, 0x08, 0x24, // addiu $t0, $zero, 5
		0x0c, 0x00, 0x00, 0x00, // syscall
	}

	Describe("LoadELF", func() {
		Context("with a valid MIPS32 ELF binary", func() {
			var elfPath string

			BeforeEach(func() {
				elfPath = write("test.elf", buildMIPSELF(binary.LittleEndian,
					emu.TextBase+4, testSegment{
						vaddr: emu.TextBase, data: code, flags: pfR | pfX,
					}))
			})

			It("should extract the entry point", func() {
				prog, err := loader.LoadELF(elfPath)

				Expect(err).NotTo(HaveOccurred())
				Expect(prog.EntryPoint).To(Equal(emu.TextBase + 4))
				Expect(prog.Path).To(Equal(elfPath))
			})

			It("should expose the text words", func() {
				prog, err := loader.LoadELF(elfPath)

				Expect(err).NotTo(HaveOccurred())
				Expect(prog.Text()).To(Equal([]loader.Word{
					{Addr: emu.TextBase, Value: 0x24080005},
					{Addr: emu.TextBase + 4, Value: 0x0000000C},
				}))
			})

			It("should be detected by Load", func() {
				prog, err := loader.Load(elfPath, 0)

				Expect(err).NotTo(HaveOccurred())
				Expect(prog.Segments).To(HaveLen(1))
				Expect(prog.Segments[0].Flags & loader.SegmentFlagExecute).NotTo(BeZero())
			})
		})

		It("should load text and data segments", func() {
			dataBytes := []byte{0x01, 0x02, 0x03, 0x04}
			path := write("multi.elf", buildMIPSELF(binary.LittleEndian, emu.TextBase,
				testSegment{vaddr: emu.TextBase, data: code, flags: pfR | pfX},
				testSegment{vaddr: emu.DataBase, data: dataBytes, memSize: 64,
					flags: pfR | pfW},
			))

			prog, err := loader.LoadELF(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(prog.Segments).To(HaveLen(2))
			Expect(prog.Text()).To(HaveLen(2))

			data := prog.Segments[1]
			Expect(data.VirtAddr).To(Equal(emu.DataBase))
			Expect(data.Data).To(Equal(dataBytes))
			Expect(data.MemSize).To(Equal(uint32(64)))
			Expect(data.Flags & loader.SegmentFlagWrite).NotTo(BeZero())

			memory := emu.NewDefaultMemory()
			prog.LoadInto(memory)
			Expect(memory.Read32(emu.DataBase)).To(Equal(uint32(0x04030201)))
		})

		It("should handle segments with zero file size", func() {
			path := write("bss.elf", buildMIPSELF(binary.LittleEndian, emu.TextBase,
				testSegment{vaddr: emu.DataBase, memSize: 4096, flags: pfR | pfW}))

			prog, err := loader.LoadELF(path)

			Expect(err).NotTo(HaveOccurred())
			Expect(prog.Segments[0].Data).To(BeEmpty())
			Expect(prog.Segments[0].MemSize).To(Equal(uint32(4096)))
		})

		It("should return an empty segment list without PT_LOAD entries", func() {
			path := write("none.elf", buildMIPSELF(binary.LittleEndian, emu.TextBase))

			prog, err := loader.LoadELF(path)

			Expect(err).NotTo(HaveOccurred())
			Expect(prog.Segments).To(BeEmpty())
		})

		Context("with an invalid file", func() {
			It("should return error for non-existent file", func() {
				_, err := loader.LoadELF("/nonexistent/path/to/file.elf")

				Expect(err).To(MatchError(ContainSubstring("failed to open")))
			})

			It("should return error for non-ELF file", func() {
				path := write("not-elf.bin", []byte("not an elf file"))

				_, err := loader.LoadELF(path)

				Expect(err).To(MatchError(ContainSubstring("ELF")))
			})

			It("should reject big-endian images", func() {
				path := write("be.elf", buildMIPSELF(binary.BigEndian, emu.TextBase,
					testSegment{vaddr: emu.TextBase, data: code, flags: pfR | pfX}))

				_, err := loader.LoadELF(path)

				Expect(err).To(MatchError(ContainSubstring("little-endian")))
			})

			It("should reject other machines", func() {
				image := buildMIPSELF(binary.LittleEndian, emu.TextBase)
				binary.LittleEndian.PutUint16(image[18:20], 3) // EM_386
				path := write("x86.elf", image)

				_, err := loader.LoadELF(path)

				Expect(err).To(MatchError(ContainSubstring("not a MIPS")))
			})

			It("should reject a file size larger than the memory size", func() {
				path := write("filesz.elf", buildMIPSELF(binary.LittleEndian, emu.TextBase,
					testSegment{vaddr: emu.TextBase, data: code, memSize: 4, flags: pfR | pfX}))

				_, err := loader.LoadELF(path)

				Expect(err).To(Or(
					MatchError(loader.ErrBadSegment),
					MatchError(ContainSubstring("ELF")),
				))
			})

			It("should not trust a huge file size in the header", func() {
				image := buildMIPSELF(binary.LittleEndian, emu.TextBase,
					testSegment{vaddr: emu.TextBase, data: code, flags: pfR | pfX})
				binary.LittleEndian.PutUint32(image[52+16:52+20], 0x7FFFFFFF) // p_filesz
				binary.LittleEndian.PutUint32(image[52+20:52+24], 0x7FFFFFFF) // p_memsz
				path := write("huge.elf", image)

				_, err := loader.LoadELF(path)

				Expect(err).To(MatchError(Or(
					ContainSubstring("short read"),
					ContainSubstring("ELF"),
				)))
			})

			It("should reject segments past the end of the address space", func() {
				path := write("wrap.elf", buildMIPSELF(binary.LittleEndian, emu.TextBase,
					testSegment{vaddr: 0xFFFFF000, data: code, memSize: 0x2000, flags: pfR | pfW}))

				_, err := loader.LoadELF(path)

				Expect(err).To(MatchError(loader.ErrBadSegment))
			})

			It("should reject 64-bit images", func() {
				path := write("elf64.elf", minimal64BitELF())

				_, err := loader.LoadELF(path)

				Expect(err).To(MatchError(ContainSubstring("not a 32-bit")))
			})
		})
	})
})

// buildMIPSELF creates an ELF32 MIPS executable with the given segments,
// laid out back to back after the program headers.
func buildMIPSELF(order binary.ByteOrder, entry uint32, segs ...testSegment) []byte {
	const (
		ehSize = 52
		phSize = 32
	)

	header := make([]byte, ehSize)
	copy(header[0:4], []byte{0x7f, 'E', 'L', 'F'})
	header[4] = 1 // ELFCLASS32
	header[5] = 1 // ELFDATA2LSB
	if order == binary.BigEndian {
		header[5] = 2
	}
	header[6] = 1
	order.PutUint16(header[16:18], 2) // ET_EXEC
	order.PutUint16(header[18:20], 8) // EM_MIPS
	order.PutUint32(header[20:24], 1)
	order.PutUint32(header[24:28], entry)
	order.PutUint32(header[28:32], ehSize)
	order.PutUint16(header[40:42], ehSize)
	order.PutUint16(header[42:44], phSize)
	order.PutUint16(header[44:46], uint16(len(segs)))
	order.PutUint16(header[46:48], 40)

	image := header
	offset := uint32(ehSize + phSize*len(segs))
	var payload []byte
	for _, seg := range segs {
		memSize := seg.memSize
		if memSize == 0 {
			memSize = uint32(len(seg.data))
		}

		ph := make([]byte, phSize)
		order.PutUint32(ph[0:4], 1) // PT_LOAD
		order.PutUint32(ph[4:8], offset)
		order.PutUint32(ph[8:12], seg.vaddr)
		order.PutUint32(ph[12:16], seg.vaddr)
		order.PutUint32(ph[16:20], uint32(len(seg.data)))
		order.PutUint32(ph[20:24], memSize)
		order.PutUint32(ph[24:28], seg.flags)
		order.PutUint32(ph[28:32], 0x1000)

		image = append(image, ph...)
		payload = append(payload, seg.data...)
		offset += uint32(len(seg.data))
	}

	return append(image, payload...)
}

// minimal64BitELF creates a minimal 64-bit ELF header to test rejection.
func minimal64BitELF() []byte {
	header := make([]byte, 64)

	copy(header[0:4], []byte{0x7f, 'E', 'L', 'F'})
	header[4] = 2 // 64-bit
	header[5] = 1 // little endian
	header[6] = 1
	binary.LittleEndian.PutUint16(header[16:18], 2)
	binary.LittleEndian.PutUint16(header[18:20], 8)
	binary.LittleEndian.PutUint32(header[20:24], 1)
	binary.LittleEndian.PutUint64(header[32:40], 64)
	binary.LittleEndian.PutUint16(header[52:54], 64)
	binary.LittleEndian.PutUint16(header[54:56], 56)

	return header
}
