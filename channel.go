package savestate

import "github.com/rawbytedev/savestate/pkg/memval"

// Writer is the write half of a savestate channel. Raw stores are infallible
// on both channels (buffers grow); only structural calls and array lengths
// can fail, and only on the persistent channel.
type Writer interface {
	// Transient reports whether the channel carries no structural metadata.
	Transient() bool

	StoreU8(v uint8)
	StoreU16(v uint16)
	StoreU32(v uint32)
	StoreU64(v uint64)
	StoreU128(v memval.Uint128)

	// StoreBytes appends an opaque blob verbatim, with no endian conversion.
	StoreBytes(b []byte)

	// StoreArrayLen appends a 4-byte length prefix for a dynamic sequence.
	StoreArrayLen(n int) error

	StartStruct() error
	StartField(name string) error
	EndStruct() error
}

// Reader is the read half of a savestate channel. Byte slices returned by
// LoadBytes alias the underlying buffer and are only valid while it lives.
type Reader interface {
	Transient() bool

	LoadU8() (uint8, error)
	LoadU16() (uint16, error)
	LoadU32() (uint32, error)
	LoadU64() (uint64, error)
	LoadU128() (memval.Uint128, error)

	LoadBytes(n int) ([]byte, error)
	LoadArrayLen() (int, error)

	StartStruct() error
	StartField(name string) error
	EndStruct() error
}
