package emu

import "sort"

// Memory is a flat word-addressed store. Each address holds one value.
type Memory struct {
	cells map[int]float64
}

// NewMemory creates a memory whose first size cells hold their own address
// (mem[i] = i). Addresses outside that range read as 0 until written.
func NewMemory(size int) *Memory {
	m := &Memory{cells: make(map[int]float64, size)}
	for i := 0; i < size; i++ {
		m.cells[i] = float64(i)
	}
	return m
}

// Read returns the value stored at addr.
func (m *Memory) Read(addr int) float64 {
	return m.cells[addr]
}

// Write stores value at addr.
func (m *Memory) Write(addr int, value float64) {
	m.cells[addr] = value
}

// Size returns the number of addresses that hold a value.
func (m *Memory) Size() int {
	return len(m.cells)
}

// Diff returns the addresses whose content differs between m and other,
// in ascending order.
func (m *Memory) Diff(other *Memory) []int {
	var addrs []int
	for addr, v := range m.cells {
		if other.Read(addr) != v {
			addrs = append(addrs, addr)
		}
	}
	for addr, v := range other.cells {
		if _, ok := m.cells[addr]; !ok && v != 0 {
			addrs = append(addrs, addr)
		}
	}
	sort.Ints(addrs)
	return addrs
}
