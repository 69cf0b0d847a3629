// Package schedule provides an intrusive sorted event list for timestamped
// event slots, with savestate support. Each event owns a fixed slot; slot 0
// is a sentinel and slot times of 0 mean "not scheduled".
package schedule

import (
	"errors"
	"math"

	"github.com/rawbytedev/savestate"
)

// ErrSlotCountMismatch reports a save taken with a different slot layout.
var ErrSlotCountMismatch = errors.New("schedule: slot count mismatch")

// ErrInvalidState reports a save whose list links point outside the slots.
var ErrInvalidState = errors.New("schedule: inconsistent state")

type slot[E any] struct {
	time  uint64
	event E
	prev  uint8
	next  uint8
}

// Schedule keeps up to 255 event slots in a doubly linked list sorted by
// timestamp. Scheduling and cancelling are O(slots), popping is O(1).
type Schedule[E any] struct {
	slots         []slot[E]
	nextEventTime uint64
}

// New returns an empty schedule with numSlots event slots. Slot indices run
// from 1 to numSlots. Panics if numSlots is not in [1, 255].
func New[E any](numSlots int) *Schedule[E] {
	if numSlots < 1 || numSlots > 255 {
		panic("schedule: slot count out of range")
	}
	s := &Schedule[E]{slots: make([]slot[E], numSlots+1)}
	s.slots[0].time = math.MaxUint64
	s.nextEventTime = math.MaxUint64
	return s
}

// NextEvent returns the earliest scheduled event, if any.
func (s *Schedule[E]) NextEvent() (E, bool) {
	next := s.slots[0].next
	if next == 0 {
		var zero E
		return zero, false
	}
	return s.slots[next].event, true
}

// NextEventTime returns the earliest scheduled timestamp, or MaxUint64 when
// nothing is scheduled.
func (s *Schedule[E]) NextEventTime() uint64 {
	return s.nextEventTime
}

// PopPending removes and returns the earliest event if its time has come by
// now, along with the timestamp it was scheduled for.
func (s *Schedule[E]) PopPending(now uint64) (E, uint64, bool) {
	if now < s.nextEventTime {
		var zero E
		return zero, 0, false
	}
	sl := &s.slots[s.slots[0].next]
	sl.time = 0
	event := sl.event
	next := sl.next
	s.slots[0].next = next
	s.slots[next].prev = 0
	due := s.nextEventTime
	s.nextEventTime = s.slots[next].time
	return event, due, true
}

// SetEvent assigns the event delivered when slot i fires.
func (s *Schedule[E]) SetEvent(i int, event E) {
	s.slots[i].event = event
}

// Scheduled reports whether slot i is currently scheduled.
func (s *Schedule[E]) Scheduled(i int) bool {
	return s.slots[i].time != 0
}

// Schedule arms slot i to fire at time. The slot must not already be
// scheduled and time must be nonzero.
func (s *Schedule[E]) Schedule(i int, time uint64) {
	s.slots[i].time = time
	if time <= s.nextEventTime {
		next := s.slots[0].next
		s.slots[i].prev = 0
		s.slots[i].next = next
		s.slots[next].prev = uint8(i)
		s.slots[0].next = uint8(i)
		s.nextEventTime = time
		return
	}
	// walk from the second element; the sentinel's MaxUint64 terminates
	next := s.slots[s.slots[0].next].next
	for {
		ns := &s.slots[next]
		if time < ns.time {
			prev := ns.prev
			ns.prev = uint8(i)
			s.slots[i].prev = prev
			s.slots[i].next = next
			s.slots[prev].next = uint8(i)
			return
		}
		next = ns.next
	}
}

// Cancel disarms slot i. The slot must currently be scheduled.
func (s *Schedule[E]) Cancel(i int) {
	sl := &s.slots[i]
	sl.time = 0
	prev, next := sl.prev, sl.next
	s.slots[prev].next = next
	s.slots[next].prev = prev
	if prev == 0 {
		s.nextEventTime = s.slots[next].time
	}
}

// Store appends the schedule's state to w.
func (s *Schedule[E]) Store(w savestate.Writer) error {
	if err := w.StartStruct(); err != nil {
		return err
	}
	if err := w.StartField("next_event_time"); err != nil {
		return err
	}
	w.StoreU64(s.nextEventTime)
	if err := w.StartField("slots"); err != nil {
		return err
	}
	if err := w.StoreArrayLen(len(s.slots)); err != nil {
		return err
	}
	for i := range s.slots {
		sl := &s.slots[i]
		w.StoreU64(sl.time)
		w.StoreU8(sl.prev)
		w.StoreU8(sl.next)
		if err := savestate.Store(w, &sl.event); err != nil {
			return err
		}
	}
	return w.EndStruct()
}

// LoadInPlace overwrites the schedule's state from r. The save must carry the
// same number of slots.
func (s *Schedule[E]) LoadInPlace(r savestate.Reader) error {
	if err := r.StartStruct(); err != nil {
		return err
	}
	if err := r.StartField("next_event_time"); err != nil {
		return err
	}
	t, err := r.LoadU64()
	if err != nil {
		return err
	}
	s.nextEventTime = t
	if err := r.StartField("slots"); err != nil {
		return err
	}
	n, err := r.LoadArrayLen()
	if err != nil {
		return err
	}
	if n != len(s.slots) {
		return ErrSlotCountMismatch
	}
	for i := range s.slots {
		sl := &s.slots[i]
		if sl.time, err = r.LoadU64(); err != nil {
			return err
		}
		if sl.prev, err = r.LoadU8(); err != nil {
			return err
		}
		if sl.next, err = r.LoadU8(); err != nil {
			return err
		}
		if int(sl.prev) >= len(s.slots) || int(sl.next) >= len(s.slots) {
			return ErrInvalidState
		}
		if err := savestate.LoadInto(r, &sl.event); err != nil {
			return err
		}
	}
	return r.EndStruct()
}
