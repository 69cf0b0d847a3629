package savestate

import (
	"bytes"
	"math"

	"github.com/rawbytedev/savestate/pkg/memval"
)

// TransientReader mirrors TransientWriter: native order, no structural
// metadata, positions trusted unconditionally. Feeding it anything but the
// output of the same build's TransientWriter for the same type graph is a
// caller bug.
type TransientReader struct {
	save       []byte
	pos        uint32
	safeArrays bool
}

func NewTransientReader(data []byte) *TransientReader {
	return &TransientReader{save: data}
}

// NewTransientReaderWith is NewTransientReader with explicit options.
func NewTransientReaderWith(data []byte, opts Options) *TransientReader {
	return &TransientReader{save: data, safeArrays: opts.SafeArrays}
}

func (r *TransientReader) Transient() bool { return true }

// BulkArrays mirrors TransientWriter.BulkArrays.
func (r *TransientReader) BulkArrays() bool { return !r.safeArrays }

func (r *TransientReader) LoadU8() (uint8, error) {
	v := r.save[r.pos]
	r.pos++
	return v, nil
}

func (r *TransientReader) LoadU16() (uint16, error) {
	v := memval.NE[uint16](r.save, int(r.pos))
	r.pos += 2
	return v, nil
}

func (r *TransientReader) LoadU32() (uint32, error) {
	v := memval.NE[uint32](r.save, int(r.pos))
	r.pos += 4
	return v, nil
}

func (r *TransientReader) LoadU64() (uint64, error) {
	v := memval.NE[uint64](r.save, int(r.pos))
	r.pos += 8
	return v, nil
}

func (r *TransientReader) LoadU128() (memval.Uint128, error) {
	v := memval.NE128(r.save, int(r.pos))
	r.pos += 16
	return v, nil
}

func (r *TransientReader) LoadBytes(n int) ([]byte, error) {
	b := r.save[r.pos : int(r.pos)+n]
	r.pos += uint32(n)
	return b, nil
}

func (r *TransientReader) LoadArrayLen() (int, error) {
	v, _ := r.LoadU32()
	return int(v), nil
}

func (r *TransientReader) StartStruct() error           { return nil }
func (r *TransientReader) StartField(name string) error { return nil }
func (r *TransientReader) EndStruct() error             { return nil }

type fieldEntry struct {
	name []byte
	off  uint32
}

type readFrame struct {
	fields []fieldEntry
	// end is the resume position for EndStruct (first byte past the
	// directory).
	end uint32
	// cur speeds up lookup assuming a linear field order.
	cur int
}

// PersistentReader decodes the checked, self-describing form. Every raw read
// is bounds-validated and struct fields are located by name through the
// per-struct directory.
type PersistentReader struct {
	save   []byte
	pos    uint32
	frames []readFrame
}

// NewPersistentReader fails with ErrSaveTooLarge if data exceeds the 4 GiB
// offset range.
func NewPersistentReader(data []byte) (*PersistentReader, error) {
	if uint64(len(data)) > math.MaxUint32 {
		return nil, ErrSaveTooLarge
	}
	return &PersistentReader{save: data}, nil
}

func (r *PersistentReader) Transient() bool { return false }

func (r *PersistentReader) LoadU8() (uint8, error) {
	if int(r.pos)+1 > len(r.save) {
		return 0, ErrUnexpectedEOF
	}
	v := r.save[r.pos]
	r.pos++
	return v, nil
}

func (r *PersistentReader) LoadU16() (uint16, error) {
	if int(r.pos)+2 > len(r.save) {
		return 0, ErrUnexpectedEOF
	}
	v := memval.LE[uint16](r.save, int(r.pos))
	r.pos += 2
	return v, nil
}

func (r *PersistentReader) LoadU32() (uint32, error) {
	if int(r.pos)+4 > len(r.save) {
		return 0, ErrUnexpectedEOF
	}
	v := memval.LE[uint32](r.save, int(r.pos))
	r.pos += 4
	return v, nil
}

func (r *PersistentReader) LoadU64() (uint64, error) {
	if int(r.pos)+8 > len(r.save) {
		return 0, ErrUnexpectedEOF
	}
	v := memval.LE[uint64](r.save, int(r.pos))
	r.pos += 8
	return v, nil
}

func (r *PersistentReader) LoadU128() (memval.Uint128, error) {
	if int(r.pos)+16 > len(r.save) {
		return memval.Uint128{}, ErrUnexpectedEOF
	}
	v := memval.LE128(r.save, int(r.pos))
	r.pos += 16
	return v, nil
}

func (r *PersistentReader) LoadBytes(n int) ([]byte, error) {
	end := int(r.pos) + n
	if n < 0 || end > len(r.save) {
		return nil, ErrUnexpectedEOF
	}
	b := r.save[r.pos:end]
	r.pos = uint32(end)
	return b, nil
}

func (r *PersistentReader) LoadArrayLen() (int, error) {
	v, err := r.LoadU32()
	return int(v), err
}

// StartStruct reads the directory offset, parses the trailing field directory
// into memory in writer order, and leaves the cursor at the payload start.
func (r *PersistentReader) StartStruct() error {
	dirOff, err := r.LoadU32()
	if err != nil {
		return err
	}
	pos := int(dirOff)
	if pos >= len(r.save) {
		return ErrUnexpectedEOF
	}
	count := int(r.save[pos])
	pos++

	fields := make([]fieldEntry, 0, count)
	for i := 0; i < count; i++ {
		rest := r.save[pos:]
		nameLen := bytes.IndexByte(rest, 0)
		if nameLen < 0 {
			nameLen = len(rest)
		}
		offPos := pos + nameLen + 1
		next := offPos + 4
		if next > len(r.save) {
			return ErrUnexpectedEOF
		}
		fields = append(fields, fieldEntry{
			name: rest[:nameLen],
			off:  memval.LE[uint32](r.save, offPos),
		})
		pos = next
	}

	r.frames = append(r.frames, readFrame{fields: fields, end: uint32(pos)})
	return nil
}

// StartField scans the open frame's directory for name, starting at the
// remembered index and wrapping around; amortized O(1) when the reader
// enumerates fields in writer order.
func (r *PersistentReader) StartField(name string) error {
	if len(r.frames) == 0 {
		return ErrNoStructPresent
	}
	f := &r.frames[len(r.frames)-1]
	n := len(f.fields)
	if n == 0 {
		return ErrFieldNotFound
	}
	i := f.cur
	for {
		field := f.fields[i]
		i++
		if i == n {
			i = 0
		}
		if string(field.name) == name {
			f.cur = i
			r.pos = field.off
			return nil
		}
		if i == f.cur {
			return ErrFieldNotFound
		}
	}
}

// EndStruct pops the frame and resumes past the directory, skipping any
// trailing payload the reader never asked for (e.g. a removed field).
func (r *PersistentReader) EndStruct() error {
	if len(r.frames) == 0 {
		return ErrNoStructPresent
	}
	f := r.frames[len(r.frames)-1]
	r.frames = r.frames[:len(r.frames)-1]
	r.pos = f.end
	return nil
}
