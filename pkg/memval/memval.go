// Package memval reads and writes fixed-width values at byte offsets in
// native, little or big order. Every accessor comes in an alignment-agnostic
// form and an Aligned form; the latter performs a direct typed load and is
// only valid when the caller guarantees the address is aligned to the value's
// size. None of the accessors validate bounds; callers own that.
//
// All unsafe pointer arithmetic in the module lives here.
package memval

import (
	"math/bits"
	"unsafe"
)

// Uint covers the unsigned carriers for 8 to 64 bit values. Signed integers
// and floats travel through their bit patterns.
type Uint interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64
}

var bigEndianHost = func() bool {
	x := uint16(1)
	return *(*byte)(unsafe.Pointer(&x)) == 0
}()

func swap[T Uint](v T) T {
	switch unsafe.Sizeof(v) {
	case 1:
		return v
	case 2:
		return T(bits.ReverseBytes16(uint16(v)))
	case 4:
		return T(bits.ReverseBytes32(uint32(v)))
	default:
		return T(bits.ReverseBytes64(uint64(v)))
	}
}

// LE reads a little-endian value at off.
func LE[T Uint](b []byte, off int) T {
	var v T
	for i := 0; i < int(unsafe.Sizeof(v)); i++ {
		v |= T(b[off+i]) << (8 * i)
	}
	return v
}

// BE reads a big-endian value at off.
func BE[T Uint](b []byte, off int) T {
	var v T
	n := int(unsafe.Sizeof(v))
	for i := 0; i < n; i++ {
		v |= T(b[off+i]) << (8 * (n - 1 - i))
	}
	return v
}

// NE reads a native-order value at off.
func NE[T Uint](b []byte, off int) T {
	if bigEndianHost {
		return BE[T](b, off)
	}
	return LE[T](b, off)
}

// PutLE writes a little-endian value at off.
func PutLE[T Uint](b []byte, off int, v T) {
	for i := 0; i < int(unsafe.Sizeof(v)); i++ {
		b[off+i] = byte(v >> (8 * i))
	}
}

// PutBE writes a big-endian value at off.
func PutBE[T Uint](b []byte, off int, v T) {
	n := int(unsafe.Sizeof(v))
	for i := 0; i < n; i++ {
		b[off+i] = byte(v >> (8 * (n - 1 - i)))
	}
}

// PutNE writes a native-order value at off.
func PutNE[T Uint](b []byte, off int, v T) {
	if bigEndianHost {
		PutBE(b, off, v)
	} else {
		PutLE(b, off, v)
	}
}

// NEAligned reads a native-order value at off with a single typed load.
// &b[off] must be aligned to the value's size.
func NEAligned[T Uint](b []byte, off int) T {
	return *(*T)(unsafe.Pointer(&b[off]))
}

// LEAligned reads a little-endian value at off. Same alignment contract as
// NEAligned.
func LEAligned[T Uint](b []byte, off int) T {
	v := NEAligned[T](b, off)
	if bigEndianHost {
		v = swap(v)
	}
	return v
}

// BEAligned reads a big-endian value at off. Same alignment contract as
// NEAligned.
func BEAligned[T Uint](b []byte, off int) T {
	v := NEAligned[T](b, off)
	if !bigEndianHost {
		v = swap(v)
	}
	return v
}

// PutNEAligned writes a native-order value at off with a single typed store.
// &b[off] must be aligned to the value's size.
func PutNEAligned[T Uint](b []byte, off int, v T) {
	*(*T)(unsafe.Pointer(&b[off])) = v
}

// PutLEAligned writes a little-endian value at off. Same alignment contract
// as PutNEAligned.
func PutLEAligned[T Uint](b []byte, off int, v T) {
	if bigEndianHost {
		v = swap(v)
	}
	PutNEAligned(b, off, v)
}

// PutBEAligned writes a big-endian value at off. Same alignment contract as
// PutNEAligned.
func PutBEAligned[T Uint](b []byte, off int, v T) {
	if !bigEndianHost {
		v = swap(v)
	}
	PutNEAligned(b, off, v)
}

// Uint128 is a 128-bit value split into two 64-bit halves.
type Uint128 struct {
	Lo, Hi uint64
}

// LE128 reads a little-endian 128-bit value at off.
func LE128(b []byte, off int) Uint128 {
	return Uint128{Lo: LE[uint64](b, off), Hi: LE[uint64](b, off+8)}
}

// BE128 reads a big-endian 128-bit value at off.
func BE128(b []byte, off int) Uint128 {
	return Uint128{Hi: BE[uint64](b, off), Lo: BE[uint64](b, off+8)}
}

// NE128 reads a native-order 128-bit value at off.
func NE128(b []byte, off int) Uint128 {
	if bigEndianHost {
		return BE128(b, off)
	}
	return LE128(b, off)
}

// PutLE128 writes a little-endian 128-bit value at off.
func PutLE128(b []byte, off int, v Uint128) {
	PutLE(b, off, v.Lo)
	PutLE(b, off+8, v.Hi)
}

// PutBE128 writes a big-endian 128-bit value at off.
func PutBE128(b []byte, off int, v Uint128) {
	PutBE(b, off, v.Hi)
	PutBE(b, off+8, v.Lo)
}

// PutNE128 writes a native-order 128-bit value at off.
func PutNE128(b []byte, off int, v Uint128) {
	if bigEndianHost {
		PutBE128(b, off, v)
	} else {
		PutLE128(b, off, v)
	}
}
