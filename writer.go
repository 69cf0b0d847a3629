package savestate

import (
	"math"

	"github.com/rawbytedev/savestate/pkg/memval"
)

var zeroPad [16]byte

func appendNE[T memval.Uint](b []byte, v T) []byte {
	n := size[T]()
	b = append(b, zeroPad[:n]...)
	memval.PutNE(b, len(b)-n, v)
	return b
}

func appendLE[T memval.Uint](b []byte, v T) []byte {
	n := size[T]()
	b = append(b, zeroPad[:n]...)
	memval.PutLE(b, len(b)-n, v)
	return b
}

func size[T memval.Uint]() int {
	var v T
	switch any(v).(type) {
	case uint8:
		return 1
	case uint16:
		return 2
	case uint32:
		return 4
	default:
		return 8
	}
}

// TransientWriter encodes in native order with no structural metadata. Used
// for fast, unchecked in-memory savestates (i.e. rewinding). Infallible;
// every error return is nil.
type TransientWriter struct {
	save       []byte
	safeArrays bool
}

// NewTransientWriter appends to buf; pass nil to start fresh.
func NewTransientWriter(buf []byte) *TransientWriter {
	return &TransientWriter{save: buf}
}

// NewTransientWriterWith is NewTransientWriter with explicit options.
func NewTransientWriterWith(buf []byte, opts Options) *TransientWriter {
	return &TransientWriter{save: buf, safeArrays: opts.SafeArrays}
}

// Bytes returns the encoded buffer.
func (w *TransientWriter) Bytes() []byte { return w.save }

func (w *TransientWriter) Transient() bool { return true }

// BulkArrays reports whether fixed-width element arrays may travel as raw
// memory views. Either setting produces the same bytes.
func (w *TransientWriter) BulkArrays() bool { return !w.safeArrays }

func (w *TransientWriter) StoreU8(v uint8)   { w.save = append(w.save, v) }
func (w *TransientWriter) StoreU16(v uint16) { w.save = appendNE(w.save, v) }
func (w *TransientWriter) StoreU32(v uint32) { w.save = appendNE(w.save, v) }
func (w *TransientWriter) StoreU64(v uint64) { w.save = appendNE(w.save, v) }

func (w *TransientWriter) StoreU128(v memval.Uint128) {
	w.save = append(w.save, zeroPad[:]...)
	memval.PutNE128(w.save, len(w.save)-16, v)
}

func (w *TransientWriter) StoreBytes(b []byte) { w.save = append(w.save, b...) }

func (w *TransientWriter) StoreArrayLen(n int) error {
	w.StoreU32(uint32(n))
	return nil
}

func (w *TransientWriter) StartStruct() error           { return nil }
func (w *TransientWriter) StartField(name string) error { return nil }
func (w *TransientWriter) EndStruct() error             { return nil }

type writeFrame struct {
	// start is the offset of the reserved 4-byte directory-offset word.
	start   uint32
	names   []string
	offsets []uint32
}

// PersistentWriter encodes in little-endian order and brackets every struct
// with a field directory, for savestates that must stay loadable across field
// additions, removals and reordering.
type PersistentWriter struct {
	save   []byte
	frames []writeFrame
}

func NewPersistentWriter() *PersistentWriter {
	return &PersistentWriter{}
}

// Bytes returns the encoded buffer. Only meaningful once every struct opened
// with StartStruct has been closed.
func (w *PersistentWriter) Bytes() []byte { return w.save }

func (w *PersistentWriter) Transient() bool { return false }

func (w *PersistentWriter) StoreU8(v uint8)   { w.save = append(w.save, v) }
func (w *PersistentWriter) StoreU16(v uint16) { w.save = appendLE(w.save, v) }
func (w *PersistentWriter) StoreU32(v uint32) { w.save = appendLE(w.save, v) }
func (w *PersistentWriter) StoreU64(v uint64) { w.save = appendLE(w.save, v) }

func (w *PersistentWriter) StoreU128(v memval.Uint128) {
	w.save = append(w.save, zeroPad[:]...)
	memval.PutLE128(w.save, len(w.save)-16, v)
}

func (w *PersistentWriter) StoreBytes(b []byte) { w.save = append(w.save, b...) }

func (w *PersistentWriter) StoreArrayLen(n int) error {
	if uint64(n) > math.MaxUint32 {
		return ErrTooManyFields
	}
	w.StoreU32(uint32(n))
	return nil
}

func (w *PersistentWriter) StartStruct() error {
	start, err := w.offset()
	if err != nil {
		return err
	}
	w.save = append(w.save, 0, 0, 0, 0) // directory offset, backpatched
	w.frames = append(w.frames, writeFrame{start: start})
	return nil
}

func (w *PersistentWriter) StartField(name string) error {
	if len(w.frames) == 0 {
		return ErrNoStructPresent
	}
	pos, err := w.offset()
	if err != nil {
		return err
	}
	f := &w.frames[len(w.frames)-1]
	f.names = append(f.names, name)
	f.offsets = append(f.offsets, pos)
	return nil
}

func (w *PersistentWriter) EndStruct() error {
	if len(w.frames) == 0 {
		return ErrNoStructPresent
	}
	f := w.frames[len(w.frames)-1]
	w.frames = w.frames[:len(w.frames)-1]

	dirOff, err := w.offset()
	if err != nil {
		return err
	}
	memval.PutLE(w.save, int(f.start), dirOff)

	if len(f.names) > math.MaxUint8 {
		return ErrTooManyFields
	}
	w.save = append(w.save, uint8(len(f.names)))
	for i, name := range f.names {
		w.save = append(w.save, name...)
		w.save = append(w.save, 0)
		w.StoreU32(f.offsets[i])
	}
	return nil
}

func (w *PersistentWriter) offset() (uint32, error) {
	if uint64(len(w.save)) > math.MaxUint32 {
		return 0, ErrSaveTooLarge
	}
	return uint32(len(w.save)), nil
}
