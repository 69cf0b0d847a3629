package savestate

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
	"sync"

	"github.com/rawbytedev/savestate/internal/common"
	"github.com/rawbytedev/savestate/pkg/memval"
)

var (
	storableType        = reflect.TypeOf((*Storable)(nil)).Elem()
	loadableInPlaceType = reflect.TypeOf((*LoadableInPlace)(nil)).Elem()
	uint128Type         = reflect.TypeOf(memval.Uint128{})
)

// fieldPlan is one field's resolved directives.
type fieldPlan struct {
	idx  int
	name string
	typ  reflect.Type

	skip     bool // no I/O in either direction
	skipLoad bool // stored, never loaded; marks the type in-place only
	box      bool // transparent pointer, no presence byte

	hasValue bool
	value    reflect.Value // literal override, no underlying I/O

	hasDefault bool
	def        reflect.Value // applied when the save lacks the field
}

type typePlan struct {
	fields      []fieldPlan
	inPlaceOnly bool
}

var plans = struct {
	sync.RWMutex
	m map[reflect.Type]*typePlan
}{m: make(map[reflect.Type]*typePlan)}

func getPlan(t reflect.Type) (*typePlan, error) {
	plans.RLock()
	if p, ok := plans.m[t]; ok {
		plans.RUnlock()
		return p, nil
	}
	plans.RUnlock()

	plans.Lock()
	defer plans.Unlock()
	if p, ok := plans.m[t]; ok {
		return p, nil
	}

	p := &typePlan{}
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if sf.PkgPath != "" && !sf.Anonymous {
			continue // skip unexported
		}
		fp := fieldPlan{idx: i, name: sf.Name, typ: sf.Type}
		if tag, ok := sf.Tag.Lookup("state"); ok {
			if err := parseDirectives(&fp, tag); err != nil {
				return nil, fmt.Errorf("%s.%s: %w", t, sf.Name, err)
			}
		}
		if fp.skip || fp.skipLoad {
			// a field that never loads leaves a hole in a fresh value
			p.inPlaceOnly = true
		}
		p.fields = append(p.fields, fp)
	}
	plans.m[t] = p
	return p, nil
}

func parseDirectives(fp *fieldPlan, tag string) error {
	for _, opt := range strings.Split(tag, ",") {
		switch {
		case opt == "":
		case opt == "-":
			fp.skip = true
		case opt == "skipload":
			fp.skipLoad = true
		case opt == "box":
			if fp.typ.Kind() != reflect.Pointer {
				return fmt.Errorf("box directive on non-pointer type %s", fp.typ)
			}
			fp.box = true
		case strings.HasPrefix(opt, "value="):
			v, err := common.ParseLiteral(strings.TrimPrefix(opt, "value="), fp.typ)
			if err != nil {
				return err
			}
			fp.hasValue, fp.value = true, v
		case strings.HasPrefix(opt, "default="):
			v, err := common.ParseLiteral(strings.TrimPrefix(opt, "default="), fp.typ)
			if err != nil {
				return err
			}
			fp.hasDefault, fp.def = true, v
		default:
			return fmt.Errorf("unknown state directive %q", opt)
		}
	}
	return nil
}

// Store appends one value on w. Pass a pointer to keep hook and custom-codec
// dispatch available on composite types.
func Store(w Writer, v any) error {
	if s, ok := v.(Storable); ok {
		return s.Store(w)
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return ErrNotPointer
		}
		rv = rv.Elem()
	}
	return storeValue(w, rv)
}

// LoadInto decodes one value in place from r. v must be a non-nil pointer.
func LoadInto(r Reader, v any) error {
	if l, ok := v.(LoadableInPlace); ok {
		return l.LoadInPlace(r)
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return ErrNotPointer
	}
	return loadValue(r, rv.Elem(), false)
}

// asStorable resolves custom-codec dispatch for non-pointer values; pointer
// fields go through the optional/box paths first so nil stays representable.
func asStorable(rv reflect.Value) Storable {
	t := rv.Type()
	if t.Kind() == reflect.Pointer {
		return nil
	}
	if t.Implements(storableType) {
		return rv.Interface().(Storable)
	}
	if rv.CanAddr() && reflect.PointerTo(t).Implements(storableType) {
		return rv.Addr().Interface().(Storable)
	}
	return nil
}

func asLoadable(rv reflect.Value) LoadableInPlace {
	t := rv.Type()
	if t.Kind() == reflect.Pointer {
		return nil
	}
	if rv.CanAddr() && reflect.PointerTo(t).Implements(loadableInPlaceType) {
		return rv.Addr().Interface().(LoadableInPlace)
	}
	return nil
}

func hookTarget(rv reflect.Value) any {
	if rv.CanAddr() {
		return rv.Addr().Interface()
	}
	return nil
}

type arrayBulker interface {
	BulkArrays() bool
}

func bulkOK(ch any) bool {
	b, ok := ch.(arrayBulker)
	return ok && b.BulkArrays()
}

func storeValue(w Writer, rv reflect.Value) error {
	t := rv.Type()
	if t == uint128Type {
		w.StoreU128(rv.Interface().(memval.Uint128))
		return nil
	}
	if s := asStorable(rv); s != nil {
		return s.Store(w)
	}
	switch t.Kind() {
	case reflect.Bool:
		if rv.Bool() {
			w.StoreU8(1)
		} else {
			w.StoreU8(0)
		}
	case reflect.Int8:
		w.StoreU8(uint8(rv.Int()))
	case reflect.Int16:
		w.StoreU16(uint16(rv.Int()))
	case reflect.Int32:
		w.StoreU32(uint32(rv.Int()))
	case reflect.Int64:
		w.StoreU64(uint64(rv.Int()))
	case reflect.Uint8:
		w.StoreU8(uint8(rv.Uint()))
	case reflect.Uint16:
		w.StoreU16(uint16(rv.Uint()))
	case reflect.Uint32:
		w.StoreU32(uint32(rv.Uint()))
	case reflect.Uint64:
		w.StoreU64(rv.Uint())
	case reflect.Float32:
		w.StoreU32(math.Float32bits(float32(rv.Float())))
	case reflect.Float64:
		w.StoreU64(math.Float64bits(rv.Float()))
	case reflect.String:
		s := rv.String()
		if err := w.StoreArrayLen(len(s)); err != nil {
			return err
		}
		w.StoreBytes([]byte(s))
	case reflect.Slice:
		if err := w.StoreArrayLen(rv.Len()); err != nil {
			return err
		}
		return storeElems(w, rv)
	case reflect.Array:
		return storeElems(w, rv)
	case reflect.Pointer:
		if rv.IsNil() {
			w.StoreU8(0)
			return nil
		}
		w.StoreU8(1)
		return storeValue(w, rv.Elem())
	case reflect.Interface:
		vs := variantsOf(t)
		if vs == nil {
			return fmt.Errorf("%w: unregistered enum interface %s", ErrUnsupported, t)
		}
		return vs.store(w, rv)
	case reflect.Struct:
		return storeStruct(w, rv, t)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupported, t)
	}
	return nil
}

func storeElems(w Writer, rv reflect.Value) error {
	ek := rv.Type().Elem().Kind()
	n := rv.Len()
	if ek == reflect.Uint8 {
		w.StoreBytes(byteView(rv))
		return nil
	}
	if w.Transient() && bulkOK(w) && n > 0 && common.IsFixedKind(ek) &&
		(rv.Kind() == reflect.Slice || rv.CanAddr()) {
		// native order matches memory layout; move the backing bytes whole
		w.StoreBytes(common.RawBytes(rv, common.FixedSize(ek)))
		return nil
	}
	for i := 0; i < n; i++ {
		if err := storeValue(w, rv.Index(i)); err != nil {
			return err
		}
	}
	return nil
}

func byteView(rv reflect.Value) []byte {
	if rv.Kind() == reflect.Slice {
		return rv.Bytes()
	}
	if rv.CanAddr() {
		return rv.Slice(0, rv.Len()).Bytes()
	}
	b := make([]byte, rv.Len())
	reflect.Copy(reflect.ValueOf(b), rv)
	return b
}

func storeStruct(w Writer, rv reflect.Value, t reflect.Type) error {
	p, err := getPlan(t)
	if err != nil {
		return err
	}
	if err := w.StartStruct(); err != nil {
		return err
	}
	hooks := hookTarget(rv)
	if h, ok := hooks.(PreStorer); ok {
		h.PreStore()
	}
	for i := range p.fields {
		f := &p.fields[i]
		if f.skip || f.hasValue {
			// value overrides perform no I/O on either side
			continue
		}
		if err := w.StartField(f.name); err != nil {
			return err
		}
		fv := rv.Field(f.idx)
		if f.box {
			if fv.IsNil() {
				return fmt.Errorf("%w: %s.%s", ErrNilBox, t, f.name)
			}
			fv = fv.Elem()
		}
		if err := storeValue(w, fv); err != nil {
			return err
		}
	}
	if h, ok := hooks.(PostStorer); ok {
		h.PostStore()
	}
	return w.EndStruct()
}

func loadValue(r Reader, rv reflect.Value, byValue bool) error {
	t := rv.Type()
	if t == uint128Type {
		v, err := r.LoadU128()
		if err != nil {
			return err
		}
		rv.Set(reflect.ValueOf(v))
		return nil
	}
	if l := asLoadable(rv); l != nil {
		return l.LoadInPlace(r)
	}
	switch t.Kind() {
	case reflect.Bool:
		v, err := r.LoadU8()
		if err != nil {
			return err
		}
		rv.SetBool(v != 0)
	case reflect.Int8:
		v, err := r.LoadU8()
		if err != nil {
			return err
		}
		rv.SetInt(int64(int8(v)))
	case reflect.Int16:
		v, err := r.LoadU16()
		if err != nil {
			return err
		}
		rv.SetInt(int64(int16(v)))
	case reflect.Int32:
		v, err := r.LoadU32()
		if err != nil {
			return err
		}
		rv.SetInt(int64(int32(v)))
	case reflect.Int64:
		v, err := r.LoadU64()
		if err != nil {
			return err
		}
		rv.SetInt(int64(v))
	case reflect.Uint8:
		v, err := r.LoadU8()
		if err != nil {
			return err
		}
		rv.SetUint(uint64(v))
	case reflect.Uint16:
		v, err := r.LoadU16()
		if err != nil {
			return err
		}
		rv.SetUint(uint64(v))
	case reflect.Uint32:
		v, err := r.LoadU32()
		if err != nil {
			return err
		}
		rv.SetUint(uint64(v))
	case reflect.Uint64:
		v, err := r.LoadU64()
		if err != nil {
			return err
		}
		rv.SetUint(v)
	case reflect.Float32:
		v, err := r.LoadU32()
		if err != nil {
			return err
		}
		rv.SetFloat(float64(math.Float32frombits(v)))
	case reflect.Float64:
		v, err := r.LoadU64()
		if err != nil {
			return err
		}
		rv.SetFloat(math.Float64frombits(v))
	case reflect.String:
		n, err := r.LoadArrayLen()
		if err != nil {
			return err
		}
		b, err := r.LoadBytes(n)
		if err != nil {
			return err
		}
		rv.SetString(string(b))
	case reflect.Slice:
		n, err := r.LoadArrayLen()
		if err != nil {
			return err
		}
		out := reflect.MakeSlice(t, n, n)
		if err := loadElems(r, out, byValue); err != nil {
			return err
		}
		rv.Set(out)
	case reflect.Array:
		return loadElems(r, rv, byValue)
	case reflect.Pointer:
		d, err := r.LoadU8()
		if err != nil {
			return err
		}
		if d == 0 {
			rv.SetZero()
			return nil
		}
		if rv.IsNil() {
			rv.Set(reflect.New(t.Elem()))
		}
		return loadValue(r, rv.Elem(), byValue)
	case reflect.Interface:
		vs := variantsOf(t)
		if vs == nil {
			return fmt.Errorf("%w: unregistered enum interface %s", ErrUnsupported, t)
		}
		return vs.load(r, rv, byValue)
	case reflect.Struct:
		return loadStruct(r, rv, t, byValue)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupported, t)
	}
	return nil
}

func loadElems(r Reader, rv reflect.Value, byValue bool) error {
	ek := rv.Type().Elem().Kind()
	n := rv.Len()
	if ek == reflect.Uint8 {
		b, err := r.LoadBytes(n)
		if err != nil {
			return err
		}
		if rv.Kind() == reflect.Slice {
			copy(rv.Bytes(), b)
		} else {
			copy(rv.Slice(0, n).Bytes(), b)
		}
		return nil
	}
	if r.Transient() && bulkOK(r) && n > 0 && common.IsFixedKind(ek) &&
		(rv.Kind() == reflect.Slice || rv.CanAddr()) {
		size := common.FixedSize(ek)
		b, err := r.LoadBytes(n * size)
		if err != nil {
			return err
		}
		copy(common.RawBytes(rv, size), b)
		return nil
	}
	for i := 0; i < n; i++ {
		if err := loadValue(r, rv.Index(i), byValue); err != nil {
			return err
		}
	}
	return nil
}

func loadStruct(r Reader, rv reflect.Value, t reflect.Type, byValue bool) error {
	p, err := getPlan(t)
	if err != nil {
		return err
	}
	if byValue && p.inPlaceOnly {
		return fmt.Errorf("%w: %s", ErrInPlaceOnly, t)
	}
	if err := r.StartStruct(); err != nil {
		return err
	}
	for i := range p.fields {
		f := &p.fields[i]
		if f.skip || f.skipLoad {
			continue
		}
		if f.hasValue {
			rv.Field(f.idx).Set(f.value)
			continue
		}
		if err := r.StartField(f.name); err != nil {
			if f.hasDefault && errors.Is(err, ErrFieldNotFound) {
				rv.Field(f.idx).Set(f.def)
				continue
			}
			return err
		}
		fv := rv.Field(f.idx)
		if f.box {
			if fv.IsNil() {
				fv.Set(reflect.New(f.typ.Elem()))
			}
			fv = fv.Elem()
		}
		if err := loadValue(r, fv, byValue); err != nil {
			return err
		}
	}
	if h, ok := hookTarget(rv).(PostLoader); ok {
		h.PostLoad()
	}
	return r.EndStruct()
}
