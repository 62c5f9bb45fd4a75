package main

import (
	"fmt"

	"github.com/jonas-schievink/gdbstub/target"
	"github.com/jonas-schievink/gdbstub/target/i386"
)

// memSize is the size of the toy target's flat memory array. Addresses at
// or past this are reported as unmapped, letting a reader exercise the
// truncated-read behaviour described in spec.md §8 scenario 3.
const memSize = 0x40 // 64 bytes, matching spec.md §8 scenario 2/3

// toyTarget is a minimal in-memory i386 target adapter: a flat byte array
// of memory and a register file, with no real execution. Step advances Eip
// by one byte, and Continue advances Eip until it reaches an int3 (0xCC)
// byte or the end of memory, so a reader can watch the protocol
// round-trip without needing a real CPU core. Grounded
// on the original crate's examples/basic.rs and the teacher's Machine
// struct (see DESIGN.md).
type toyTarget struct {
	target.NopKiller

	mem  [memSize]byte
	regs i386.Registers
}

func newToyTarget() *toyTarget {
	t := &toyTarget{}
	// Pre-fill memory with NOPs (0x90), matching spec.md §8 scenario 2's
	// example target.
	for i := range t.mem {
		t.mem[i] = 0x90
	}
	return t
}

func (t *toyTarget) ReadRegisters() target.Registers {
	regs := t.regs
	return &regs
}

func (t *toyTarget) WriteRegisters(regs target.Registers) {
	if r, ok := regs.(*i386.Registers); ok {
		t.regs = *r
	}
}

func (t *toyTarget) ReadMem(addr uint64) (byte, error) {
	if addr >= memSize {
		return 0, fmt.Errorf("gdbstub-demo: address %#x out of range", addr)
	}
	return t.mem[addr], nil
}

func (t *toyTarget) WriteMem(addr uint64, b byte) error {
	if addr >= memSize {
		return fmt.Errorf("gdbstub-demo: address %#x out of range", addr)
	}
	t.mem[addr] = b
	return nil
}

// Continue runs the toy target forward until it hits an int3 (0xCC) byte
// planted in memory at the current Eip, then stops — just enough to make
// spec.md §8 scenario 5 (continue to breakpoint) observable without a
// real execution engine.
func (t *toyTarget) Continue() {
	for {
		if t.regs.Eip >= memSize {
			return
		}
		if t.mem[t.regs.Eip] == 0xCC {
			return
		}
		t.regs.Eip++
	}
}

// Step advances Eip by exactly one byte.
func (t *toyTarget) Step() {
	if t.regs.Eip < memSize {
		t.regs.Eip++
	}
}
