// Package savestate serializes arbitrary composite state into two binary
// encodings behind one contract: a transient form (native order, unchecked,
// no structural metadata, for same-process rewind buffers) and a persistent
// form (little-endian, bounds-checked, self-describing, for on-disk saves
// that must survive field additions, removals and reordering without a
// format version number).
//
// The persistent form brackets every struct with a name→offset directory:
//
//	[u32 LE dir_off][payload...][u8 field_count][name 0x00 u32 LE off]...
//
// so readers locate fields by name instead of position. The transient form
// writes raw values back to back and relies on the producer and consumer
// sharing the exact same type graph.
package savestate

import (
	"errors"
	"reflect"
)

// Data errors: the save is incompatible or truncated. Surfaced so callers can
// report "incompatible save" instead of crashing.
var (
	ErrUnexpectedEOF = errors.New("unexpected end of save buffer")
	ErrFieldNotFound = errors.New("field not found in struct directory")
	ErrInvalidEnum   = errors.New("invalid enum discriminant")
)

// Structural errors: a caller-protocol violation, always a bug.
var (
	ErrNoStructPresent = errors.New("no struct frame open")
	ErrInPlaceOnly     = errors.New("type can only be loaded in place")
)

// Capacity errors: the type graph or buffer exceeded fixed-width format
// limits (255 fields per struct, 4 GiB offsets).
var (
	ErrTooManyFields = errors.New("too many fields in struct")
	ErrSaveTooLarge  = errors.New("save exceeds maximum size")
)

// Codec errors.
var (
	ErrNotPointer  = errors.New("expected non-nil pointer")
	ErrUnsupported = errors.New("unsupported type")
	ErrNilBox      = errors.New("nil pointer in box field")
)

// Options tunes the transient channel's fast paths. The zero value moves
// arrays of fixed-width elements as raw memory views.
type Options struct {
	// SafeArrays forces elementwise array I/O instead of aliasing the
	// backing memory.
	SafeArrays bool
}

// Storable appends the value's state to a channel.
type Storable interface {
	Store(w Writer) error
}

// LoadableInPlace overwrites the value's state by consuming from a channel.
type LoadableInPlace interface {
	LoadInPlace(r Reader) error
}

// PreStorer runs before a composite value's fields are stored.
type PreStorer interface {
	PreStore()
}

// PostStorer runs after a composite value's fields are stored.
type PostStorer interface {
	PostStore()
}

// PostLoader runs after a composite value's fields are loaded, for derived
// state that is recomputed rather than transmitted.
type PostLoader interface {
	PostLoad()
}

// Save encodes one root value on the persistent channel.
func Save(root any) ([]byte, error) {
	w := NewPersistentWriter()
	if err := Store(w, root); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// Load decodes one root value in place from a persistent save. root must be
// a pointer.
func Load(data []byte, root any) error {
	r, err := NewPersistentReader(data)
	if err != nil {
		return err
	}
	return LoadInto(r, root)
}

// SaveTransient appends one root value to buf on the transient channel and
// returns the grown buffer.
func SaveTransient(buf []byte, root any) ([]byte, error) {
	w := NewTransientWriter(buf)
	if err := Store(w, root); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// LoadTransient decodes one root value in place from a transient save. The
// producer and consumer must agree on the exact type graph; nothing is
// validated.
func LoadTransient(data []byte, root any) error {
	return LoadInto(NewTransientReader(data), root)
}

// LoadNew decodes one root value by construction from a persistent save. A
// type graph is loadable by value unless a field skips loading or an enum is
// declared in-place only, in which case ErrInPlaceOnly is returned.
func LoadNew[T any](data []byte) (T, error) {
	var v T
	r, err := NewPersistentReader(data)
	if err != nil {
		return v, err
	}
	err = loadValue(r, reflect.ValueOf(&v).Elem(), true)
	return v, err
}
