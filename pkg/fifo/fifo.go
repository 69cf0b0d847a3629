// Package fifo provides a fixed-capacity ring buffer with savestate support.
package fifo

import (
	"errors"

	"github.com/rawbytedev/savestate"
)

// ErrCapacityMismatch reports a save taken with a different buffer capacity.
var ErrCapacityMismatch = errors.New("fifo: capacity mismatch")

// ErrInvalidState reports a save whose length or positions fall outside the
// ring.
var ErrInvalidState = errors.New("fifo: inconsistent state")

// Fifo is a bounded first-in first-out queue over a preallocated ring.
type Fifo[T any] struct {
	buffer   []T
	len      int
	readPos  int
	writePos int
}

// New returns an empty queue holding up to capacity elements.
func New[T any](capacity int) *Fifo[T] {
	if capacity < 1 {
		panic("fifo: capacity out of range")
	}
	return &Fifo[T]{buffer: make([]T, capacity)}
}

func (f *Fifo[T]) Len() int      { return f.len }
func (f *Fifo[T]) Cap() int      { return len(f.buffer) }
func (f *Fifo[T]) IsEmpty() bool { return f.len == 0 }
func (f *Fifo[T]) IsFull() bool  { return f.len == len(f.buffer) }

// Clear resets the queue without zeroing the ring.
func (f *Fifo[T]) Clear() {
	f.len = 0
	f.readPos = 0
	f.writePos = 0
}

// Write appends value, reporting false when full.
func (f *Fifo[T]) Write(value T) bool {
	if f.IsFull() {
		return false
	}
	f.buffer[f.writePos] = value
	f.writePos++
	if f.writePos == len(f.buffer) {
		f.writePos = 0
	}
	f.len++
	return true
}

// Read removes and returns the oldest value, reporting false when empty.
func (f *Fifo[T]) Read() (T, bool) {
	if f.IsEmpty() {
		var zero T
		return zero, false
	}
	value := f.buffer[f.readPos]
	f.readPos++
	if f.readPos == len(f.buffer) {
		f.readPos = 0
	}
	f.len--
	return value, true
}

// Peek returns the oldest value without removing it.
func (f *Fifo[T]) Peek() (T, bool) {
	if f.IsEmpty() {
		var zero T
		return zero, false
	}
	return f.buffer[f.readPos], true
}

// Store appends the queue's state to w. The whole ring is stored, including
// slots outside the live window.
func (f *Fifo[T]) Store(w savestate.Writer) error {
	if err := w.StartStruct(); err != nil {
		return err
	}
	if err := w.StartField("len"); err != nil {
		return err
	}
	w.StoreU32(uint32(f.len))
	if err := w.StartField("read_pos"); err != nil {
		return err
	}
	w.StoreU32(uint32(f.readPos))
	if err := w.StartField("write_pos"); err != nil {
		return err
	}
	w.StoreU32(uint32(f.writePos))
	if err := w.StartField("buffer"); err != nil {
		return err
	}
	if err := savestate.Store(w, &f.buffer); err != nil {
		return err
	}
	return w.EndStruct()
}

// LoadInPlace overwrites the queue's state from r. The save must carry the
// same capacity.
func (f *Fifo[T]) LoadInPlace(r savestate.Reader) error {
	if err := r.StartStruct(); err != nil {
		return err
	}
	if err := r.StartField("len"); err != nil {
		return err
	}
	n, err := r.LoadU32()
	if err != nil {
		return err
	}
	f.len = int(n)
	if err := r.StartField("read_pos"); err != nil {
		return err
	}
	if n, err = r.LoadU32(); err != nil {
		return err
	}
	f.readPos = int(n)
	if err := r.StartField("write_pos"); err != nil {
		return err
	}
	if n, err = r.LoadU32(); err != nil {
		return err
	}
	f.writePos = int(n)
	if err := r.StartField("buffer"); err != nil {
		return err
	}
	var buf []T
	if err := savestate.LoadInto(r, &buf); err != nil {
		return err
	}
	if len(buf) != len(f.buffer) {
		return ErrCapacityMismatch
	}
	if f.len > len(buf) || f.readPos >= len(buf) || f.writePos >= len(buf) {
		return ErrInvalidState
	}
	f.buffer = buf
	return r.EndStruct()
}
