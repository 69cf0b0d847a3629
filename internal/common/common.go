package common

import (
	"fmt"
	"reflect"
	"strconv"
	"unsafe"
)

// IsFixedKind reports whether k is a fixed-size primitive kind handled by the
// raw channels.
func IsFixedKind(k reflect.Kind) bool {
	switch k {
	case reflect.Bool,
		reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}

// FixedSize returns the byte width for fixed-size primitive kinds.
func FixedSize(k reflect.Kind) int {
	switch k {
	case reflect.Bool, reflect.Int8, reflect.Uint8:
		return 1
	case reflect.Int16, reflect.Uint16:
		return 2
	case reflect.Int32, reflect.Uint32, reflect.Float32:
		return 4
	case reflect.Int64, reflect.Uint64, reflect.Float64:
		return 8
	default:
		return -1
	}
}

// ParseLiteral converts a struct-tag literal into a value of type t. Used for
// value= and default= field directives.
func ParseLiteral(s string, t reflect.Type) (reflect.Value, error) {
	v := reflect.New(t).Elem()
	switch t.Kind() {
	case reflect.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("bad bool literal %q: %w", s, err)
		}
		v.SetBool(b)
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(s, 0, t.Bits())
		if err != nil {
			return reflect.Value{}, fmt.Errorf("bad int literal %q: %w", s, err)
		}
		v.SetInt(n)
	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(s, 0, t.Bits())
		if err != nil {
			return reflect.Value{}, fmt.Errorf("bad uint literal %q: %w", s, err)
		}
		v.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(s, t.Bits())
		if err != nil {
			return reflect.Value{}, fmt.Errorf("bad float literal %q: %w", s, err)
		}
		v.SetFloat(f)
	default:
		return reflect.Value{}, fmt.Errorf("literal directive unsupported for %s", t)
	}
	return v, nil
}

// RawBytes aliases the backing memory of an addressable slice or array of
// fixed-size elements as a byte slice, without copying. Valid only while the
// backing memory lives.
func RawBytes(v reflect.Value, elemSize int) []byte {
	n := v.Len() * elemSize
	if n == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(v.Index(0).UnsafeAddr())), n)
}
