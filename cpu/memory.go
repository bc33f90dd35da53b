package cpu

import (
	"iter"
	"maps"
	"slices"
)

// Memory is the sparse, growable Intcode memory store.
// Addresses never written read as 0.
type Memory struct {
	cell   map[int64]int64
	extent int64
	loaded int64 // Length of the loaded program.
}

// LoadMemory creates a memory with words at addresses 0..len(words)-1.
func LoadMemory(words []int64) (mem *Memory) {
	mem = &Memory{
		cell: make(map[int64]int64, len(words)),
	}

	for addr, word := range words {
		mem.cell[int64(addr)] = word
	}
	mem.extent = int64(len(words))
	mem.loaded = mem.extent

	return
}

// Read the value at an address.
func (mem *Memory) Read(addr int64) (value int64, err error) {
	if addr < 0 {
		err = ErrInvalidAddress
		return
	}

	value = mem.cell[addr]
	return
}

// Write a value to an address, growing the memory as needed.
func (mem *Memory) Write(addr int64, value int64) (err error) {
	if addr < 0 {
		err = ErrInvalidAddress
		return
	}

	if mem.cell == nil {
		mem.cell = map[int64]int64{}
	}
	mem.cell[addr] = value
	if addr >= mem.extent {
		mem.extent = addr + 1
	}

	return
}

// Extent is one past the highest address ever written.
func (mem *Memory) Extent() int64 {
	return mem.extent
}

// Clone returns an independent copy of the memory.
func (mem *Memory) Clone() *Memory {
	return &Memory{
		cell:   maps.Clone(mem.cell),
		extent: mem.extent,
		loaded: mem.loaded,
	}
}

// Dump returns the dense image: the loaded program, extended by any
// contiguous run of written cells that follows it. Cells beyond the image
// are reported by Cells.
func (mem *Memory) Dump() (words []int64) {
	size := mem.loaded
	for {
		if _, ok := mem.cell[size]; !ok {
			break
		}
		size++
	}

	words = make([]int64, size)
	for addr := range words {
		words[addr] = mem.cell[int64(addr)]
	}

	return
}

// Cells iterates, in address order, over the written cells at or above
// the address from.
func (mem *Memory) Cells(from int64) iter.Seq2[int64, int64] {
	return func(yield func(addr int64, value int64) bool) {
		for _, addr := range slices.Sorted(maps.Keys(mem.cell)) {
			if addr < from {
				continue
			}
			if !yield(addr, mem.cell[addr]) {
				return
			}
		}
	}
}
