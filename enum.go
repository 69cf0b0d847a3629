package savestate

import (
	"fmt"
	"math/bits"
	"reflect"
	"sync"
)

// variantSet is the wire description of one enum interface: its concrete
// variant types in discriminant order.
type variantSet struct {
	iface       reflect.Type
	variants    []reflect.Type
	discr       map[reflect.Type]int
	width       int // discriminant width in bytes: 1, 2 or 4
	inPlaceOnly bool
}

var variantSets = struct {
	sync.RWMutex
	m map[reflect.Type]*variantSet
}{m: make(map[reflect.Type]*variantSet)}

// RegisterVariants declares the concrete struct types implementing enum
// interface I, in discriminant order. Order is part of the wire format:
// append new variants at the end, never reorder. Variants with no fields
// encode as a bare discriminant. Panics on misuse.
func RegisterVariants[I any](variants ...I) {
	registerVariants[I](false, variants)
}

// RegisterInPlaceVariants is RegisterVariants for enums whose value never
// changes identity at runtime, only payload. Loads are in place only and the
// stored discriminant must match the variant already present, else
// ErrInvalidEnum.
func RegisterInPlaceVariants[I any](variants ...I) {
	registerVariants[I](true, variants)
}

func registerVariants[I any](inPlaceOnly bool, variants []I) {
	it := reflect.TypeOf((*I)(nil)).Elem()
	if it.Kind() != reflect.Interface {
		panic(fmt.Sprintf("savestate: RegisterVariants of non-interface %s", it))
	}
	if len(variants) == 0 {
		panic(fmt.Sprintf("savestate: RegisterVariants of %s with no variants", it))
	}
	vs := &variantSet{
		iface:       it,
		discr:       make(map[reflect.Type]int, len(variants)),
		width:       discrBits(len(variants)) / 8,
		inPlaceOnly: inPlaceOnly,
	}
	for i, v := range variants {
		t := reflect.TypeOf(v)
		if t == nil || t.Kind() != reflect.Struct {
			panic(fmt.Sprintf("savestate: variant %d of %s must be a struct value", i, it))
		}
		if _, dup := vs.discr[t]; dup {
			panic(fmt.Sprintf("savestate: duplicate variant %s of %s", t, it))
		}
		vs.variants = append(vs.variants, t)
		vs.discr[t] = i
	}
	variantSets.Lock()
	defer variantSets.Unlock()
	if _, dup := variantSets.m[it]; dup {
		panic(fmt.Sprintf("savestate: variants of %s registered twice", it))
	}
	variantSets.m[it] = vs
}

func variantsOf(t reflect.Type) *variantSet {
	variantSets.RLock()
	defer variantSets.RUnlock()
	return variantSets.m[t]
}

// discrBits is the smallest power of two of at least 8 bits that can index
// count variants.
func discrBits(count int) int {
	n := bits.Len(uint(count))
	w := 8
	for w < n {
		w <<= 1
	}
	return w
}

func (vs *variantSet) writeDiscr(w Writer, d int) {
	switch vs.width {
	case 1:
		w.StoreU8(uint8(d))
	case 2:
		w.StoreU16(uint16(d))
	default:
		w.StoreU32(uint32(d))
	}
}

func (vs *variantSet) readDiscr(r Reader) (int, error) {
	switch vs.width {
	case 1:
		v, err := r.LoadU8()
		return int(v), err
	case 2:
		v, err := r.LoadU16()
		return int(v), err
	default:
		v, err := r.LoadU32()
		return int(v), err
	}
}

func (vs *variantSet) store(w Writer, rv reflect.Value) error {
	if rv.IsNil() {
		return fmt.Errorf("%w: nil %s", ErrInvalidEnum, vs.iface)
	}
	ct := rv.Elem().Type()
	d, ok := vs.discr[ct]
	if !ok {
		return fmt.Errorf("%w: %s is not a registered variant of %s", ErrInvalidEnum, ct, vs.iface)
	}
	vs.writeDiscr(w, d)
	if ct.NumField() == 0 {
		return nil
	}
	// copy out of the interface for addressability
	tmp := reflect.New(ct).Elem()
	tmp.Set(rv.Elem())
	return storeValue(w, tmp)
}

func (vs *variantSet) load(r Reader, rv reflect.Value, byValue bool) error {
	d, err := vs.readDiscr(r)
	if err != nil {
		return err
	}
	if d >= len(vs.variants) {
		return fmt.Errorf("%w: discriminant %d out of range for %s", ErrInvalidEnum, d, vs.iface)
	}
	ct := vs.variants[d]
	if vs.inPlaceOnly {
		if byValue {
			return fmt.Errorf("%w: %s", ErrInPlaceOnly, vs.iface)
		}
		if rv.IsNil() || rv.Elem().Type() != ct {
			return fmt.Errorf("%w: stored %s does not match present variant", ErrInvalidEnum, ct)
		}
	}
	tmp := reflect.New(ct).Elem()
	if vs.inPlaceOnly {
		// payload fields not present in the save keep their current value
		tmp.Set(rv.Elem())
	}
	if ct.NumField() > 0 {
		// identity is carried by the discriminant, so a regular enum's
		// payload always reconstructs by value
		if err := loadValue(r, tmp, byValue || !vs.inPlaceOnly); err != nil {
			return err
		}
	}
	rv.Set(tmp)
	return nil
}
