package emu

import "fmt"

// RegionConfig describes one contiguous memory region.
type RegionConfig struct {
	Name  string
	Base  uint32
	Limit uint32 // Inclusive.
}

// Default MIPS memory map.
const (
	TextBase  uint32 = 0x00400000
	TextLimit uint32 = 0x0040FFFF
	DataBase  uint32 = 0x10010000
	DataLimit uint32 = 0x10011FFF
)

// DefaultRegions returns the memory map used when no configuration is given.
func DefaultRegions() []RegionConfig {
	return []RegionConfig{
		{Name: "text", Base: TextBase, Limit: TextLimit},
		{Name: "data", Base: DataBase, Limit: DataLimit},
		{Name: "stack", Base: 0x7FF00000, Limit: 0x7FFFFFFF},
		{Name: "kdata", Base: 0x90000000, Limit: 0x9000FFFF},
		{Name: "ktext", Base: 0x80000000, Limit: 0x8000FFFF},
	}
}

// Region is a named, byte-addressable block of memory.
type Region struct {
	Name  string
	Base  uint32
	Limit uint32
	data  []byte
}

// Size returns the number of bytes in the region.
func (r *Region) Size() uint32 {
	return r.Limit - r.Base + 1
}

func (r *Region) contains(addr, size uint32) bool {
	if addr < r.Base || addr > r.Limit {
		return false
	}
	return size-1 <= r.Limit-addr
}

// Memory is a set of non-overlapping regions. Accesses that are not fully
// covered by one region read as zero and writes to them are dropped.
type Memory struct {
	regions []*Region
}

// NewMemory creates a memory with the given regions. Regions must not
// overlap and must not be inverted.
func NewMemory(regions []RegionConfig) (*Memory, error) {
	m := &Memory{}
	for _, rc := range regions {
		if rc.Limit < rc.Base {
			return nil, fmt.Errorf("region %q: limit 0x%08x below base 0x%08x",
				rc.Name, rc.Limit, rc.Base)
		}
		for _, other := range m.regions {
			if rc.Base <= other.Limit && other.Base <= rc.Limit {
				return nil, fmt.Errorf("region %q overlaps region %q",
					rc.Name, other.Name)
			}
		}
		m.regions = append(m.regions, &Region{
			Name:  rc.Name,
			Base:  rc.Base,
			Limit: rc.Limit,
			data:  make([]byte, uint64(rc.Limit)-uint64(rc.Base)+1),
		})
	}
	return m, nil
}

// NewDefaultMemory creates a memory with DefaultRegions.
func NewDefaultMemory() *Memory {
	m, err := NewMemory(DefaultRegions())
	if err != nil {
		panic(err)
	}
	return m
}

// Regions returns the memory regions in creation order.
func (m *Memory) Regions() []*Region {
	return m.regions
}

// Region returns the region with the given name, or nil.
func (m *Memory) Region(name string) *Region {
	for _, r := range m.regions {
		if r.Name == name {
			return r
		}
	}
	return nil
}

// find returns the region and offset for an access of size bytes at addr.
func (m *Memory) find(addr, size uint32) (*Region, uint32, bool) {
	for _, r := range m.regions {
		if r.contains(addr, size) {
			return r, addr - r.Base, true
		}
	}
	return nil, 0, false
}

// Reset zeroes every region.
func (m *Memory) Reset() {
	for _, r := range m.regions {
		clear(r.data)
	}
}

// Read8 reads a byte.
func (m *Memory) Read8(addr uint32) uint8 {
	r, off, ok := m.find(addr, 1)
	if !ok {
		return 0
	}
	return r.data[off]
}

// Write8 writes a byte.
func (m *Memory) Write8(addr uint32, value uint8) {
	r, off, ok := m.find(addr, 1)
	if !ok {
		return
	}
	r.data[off] = value
}

// Read16 reads a little-endian halfword. addr must be 2-byte aligned.
func (m *Memory) Read16(addr uint32) uint16 {
	if addr&1 != 0 {
		return 0
	}
	r, off, ok := m.find(addr, 2)
	if !ok {
		return 0
	}
	return uint16(r.data[off]) | uint16(r.data[off+1])<<8
}

// Write16 writes a little-endian halfword. addr must be 2-byte aligned.
func (m *Memory) Write16(addr uint32, value uint16) {
	if addr&1 != 0 {
		return
	}
	r, off, ok := m.find(addr, 2)
	if !ok {
		return
	}
	r.data[off] = uint8(value)
	r.data[off+1] = uint8(value >> 8)
}

// Read32 reads a little-endian word. addr must be 4-byte aligned.
func (m *Memory) Read32(addr uint32) uint32 {
	if addr&3 != 0 {
		return 0
	}
	r, off, ok := m.find(addr, 4)
	if !ok {
		return 0
	}
	return uint32(r.data[off]) |
		uint32(r.data[off+1])<<8 |
		uint32(r.data[off+2])<<16 |
		uint32(r.data[off+3])<<24
}

// Write32 writes a little-endian word. addr must be 4-byte aligned.
func (m *Memory) Write32(addr uint32, value uint32) {
	if addr&3 != 0 {
		return
	}
	r, off, ok := m.find(addr, 4)
	if !ok {
		return
	}
	r.data[off] = uint8(value)
	r.data[off+1] = uint8(value >> 8)
	r.data[off+2] = uint8(value >> 16)
	r.data[off+3] = uint8(value >> 24)
}

// Load copies data into memory starting at addr, byte by byte. Bytes that
// fall outside every region are dropped.
func (m *Memory) Load(addr uint32, data []byte) {
	for i, b := range data {
		m.Write8(addr+uint32(i), b)
	}
}

// WordEntry is one line of a memory dump.
type WordEntry struct {
	Addr  uint32
	Value uint32
}

// Dump calls visit for each word from start to stop inclusive, stepping by
// 4, until visit returns false.
func (m *Memory) Dump(start, stop uint32, visit func(WordEntry) bool) {
	for addr := uint64(start); addr <= uint64(stop); addr += 4 {
		a := uint32(addr)
		if !visit(WordEntry{Addr: a, Value: m.Read32(a)}) {
			return
		}
	}
}
