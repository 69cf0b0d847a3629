package memval

import (
	"encoding/binary"
	"testing"
	"testing/quick"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAgainstEncodingBinary(t *testing.T) {
	b := make([]byte, 16)
	// off 1 keeps every access unaligned
	PutLE(b, 1, uint32(0x01020304))
	assert.Equal(t, uint32(0x01020304), binary.LittleEndian.Uint32(b[1:]))
	assert.Equal(t, uint32(0x01020304), LE[uint32](b, 1))

	PutBE(b, 1, uint64(0x0102030405060708))
	assert.Equal(t, uint64(0x0102030405060708), binary.BigEndian.Uint64(b[1:]))
	assert.Equal(t, uint64(0x0102030405060708), BE[uint64](b, 1))

	PutLE(b, 3, uint16(0xBEEF))
	assert.Equal(t, uint16(0xBEEF), binary.LittleEndian.Uint16(b[3:]))
}

func TestNEMatchesHostOrder(t *testing.T) {
	b := make([]byte, 8)
	PutNE(b, 0, uint32(0xA1B2C3D4))
	want := binary.NativeEndian.Uint32(b)
	assert.Equal(t, uint32(0xA1B2C3D4), want)
	assert.Equal(t, uint32(0xA1B2C3D4), NE[uint32](b, 0))
}

func TestAlignedAccessors(t *testing.T) {
	b := make([]byte, 32)
	PutLEAligned(b, 0, uint64(0x1122334455667788))
	assert.Equal(t, uint64(0x1122334455667788), LE[uint64](b, 0))
	assert.Equal(t, uint64(0x1122334455667788), LEAligned[uint64](b, 0))

	PutBEAligned(b, 8, uint32(0xCAFEBABE))
	assert.Equal(t, uint32(0xCAFEBABE), BE[uint32](b, 8))
	assert.Equal(t, uint32(0xCAFEBABE), BEAligned[uint32](b, 8))

	PutNEAligned(b, 16, uint16(0x4243))
	assert.Equal(t, uint16(0x4243), NE[uint16](b, 16))
	assert.Equal(t, uint16(0x4243), NEAligned[uint16](b, 16))
}

func TestQuickRoundtrips(t *testing.T) {
	b := make([]byte, 24)
	conditions := map[string]any{
		"le64": func(v uint64, off uint8) bool {
			o := int(off % 16)
			PutLE(b, o, v)
			return LE[uint64](b, o) == v
		},
		"be64": func(v uint64, off uint8) bool {
			o := int(off % 16)
			PutBE(b, o, v)
			return BE[uint64](b, o) == v
		},
		"ne32": func(v uint32, off uint8) bool {
			o := int(off % 16)
			PutNE(b, o, v)
			return NE[uint32](b, o) == v
		},
		"le8": func(v uint8, off uint8) bool {
			o := int(off % 16)
			PutLE(b, o, v)
			return LE[uint8](b, o) == v && BE[uint8](b, o) == v
		},
	}
	for name, cond := range conditions {
		if err := quick.Check(cond, &quick.Config{}); err != nil {
			t.Errorf("%s: %v", name, err)
		}
	}
}

func TestUint128(t *testing.T) {
	v := Uint128{Lo: 0x0123456789ABCDEF, Hi: 0xFEDCBA9876543210}
	b := make([]byte, 32)

	PutLE128(b, 1, v)
	require.Equal(t, v, LE128(b, 1))
	assert.Equal(t, v.Lo, binary.LittleEndian.Uint64(b[1:]))
	assert.Equal(t, v.Hi, binary.LittleEndian.Uint64(b[9:]))

	PutBE128(b, 1, v)
	require.Equal(t, v, BE128(b, 1))
	assert.Equal(t, v.Hi, binary.BigEndian.Uint64(b[1:]))
	assert.Equal(t, v.Lo, binary.BigEndian.Uint64(b[9:]))

	PutNE128(b, 0, v)
	require.Equal(t, v, NE128(b, 0))
}
