// Package regsim simulates an SX127x-style register file behind an SPI bus.
// Bit 7 of the first byte of a transaction selects write; the remaining bytes
// are data with auto-increment, as on the chip.
package regsim

import (
	"errors"
	"sync"

	"tinygo.org/x/drivers"
)

var ErrInjected = errors.New("regsim: injected bus fault")

var _ drivers.SPI = (*Bank)(nil)

// Write is one byte written to the register file.
type Write struct {
	Addr  uint8
	Value uint8
}

// Bank is a 128-byte register file. Safe for concurrent use.
type Bank struct {
	mu     sync.Mutex
	regs   [128]byte
	writes []Write
	failW  map[uint8]bool
}

// New returns a bank with the given power-on values.
func New(reset map[uint8]uint8) *Bank {
	b := &Bank{failW: map[uint8]bool{}}
	for a, v := range reset {
		b.regs[a&0x7F] = v
	}
	return b
}

// FailWritesTo makes every later write to addr return ErrInjected.
func (b *Bank) FailWritesTo(addr uint8) {
	b.mu.Lock()
	b.failW[addr&0x7F] = true
	b.mu.Unlock()
}

// Get returns the current value of a register.
func (b *Bank) Get(addr uint8) uint8 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.regs[addr&0x7F]
}

// Writes returns a copy of the write log.
func (b *Bank) Writes() []Write {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Write, len(b.writes))
	copy(out, b.writes)
	return out
}

// ResetLog clears the write log; register values are kept.
func (b *Bank) ResetLog() {
	b.mu.Lock()
	b.writes = b.writes[:0]
	b.mu.Unlock()
}

// Tx implements drivers.SPI.
func (b *Bank) Tx(w, r []byte) error {
	if len(w) == 0 {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	write := w[0]&0x80 != 0
	addr := w[0] & 0x7F
	if len(r) > 0 {
		r[0] = 0
	}
	for i := 1; i < len(w); i++ {
		a := (addr + uint8(i-1)) & 0x7F
		if write {
			if b.failW[a] {
				return ErrInjected
			}
			b.regs[a] = w[i]
			b.writes = append(b.writes, Write{Addr: a, Value: w[i]})
			continue
		}
		if i < len(r) {
			r[i] = b.regs[a]
		}
	}
	return nil
}

// Transfer implements drivers.SPI. Single bytes carry no address context here.
func (b *Bank) Transfer(byte) (byte, error) { return 0, nil }
