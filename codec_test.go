package savestate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSkipDirective(t *testing.T) {
	type S struct {
		Keep uint32
		Temp uint32 `state:"-"`
	}
	src := &S{Keep: 1, Temp: 2}
	data, err := Save(src)
	require.NoError(t, err)

	got := &S{Temp: 99}
	require.NoError(t, Load(data, got))
	assert.Equal(t, uint32(1), got.Keep)
	assert.Equal(t, uint32(99), got.Temp, "skipped field keeps its value")
}

func TestSkipLoadDirective(t *testing.T) {
	type S struct {
		Keep  uint32
		Debug uint32 `state:"skipload"`
	}
	src := &S{Keep: 1, Debug: 2}
	data, err := Save(src)
	require.NoError(t, err)

	got := &S{Debug: 99}
	require.NoError(t, Load(data, got))
	assert.Equal(t, uint32(1), got.Keep)
	assert.Equal(t, uint32(99), got.Debug, "store-only field keeps its value")

	// a type with store-only fields cannot be reconstructed by value
	_, err = LoadNew[S](data)
	require.ErrorIs(t, err, ErrInPlaceOnly)
}

func TestValueDirective(t *testing.T) {
	type S struct {
		A uint32
		V uint16 `state:"value=3"`
	}
	src := &S{A: 1, V: 9}
	data, err := SaveTransient(nil, src)
	require.NoError(t, err)
	require.Len(t, data, 4, "literal override performs no I/O")

	got := &S{V: 77}
	require.NoError(t, LoadTransient(data, got))
	assert.Equal(t, uint16(3), got.V)
}

func TestDefaultAppliesOnlyWhenMissing(t *testing.T) {
	type S struct {
		A uint32 `state:"default=5"`
	}
	data, err := Save(&S{A: 1})
	require.NoError(t, err)
	got := &S{}
	require.NoError(t, Load(data, got))
	assert.Equal(t, uint32(1), got.A, "present field wins over default")
}

func TestBoxDirective(t *testing.T) {
	type Boxed struct {
		P *uint32 `state:"box"`
	}
	type Plain struct {
		P *uint32
	}
	v := uint32(7)
	boxed, err := SaveTransient(nil, &Boxed{P: &v})
	require.NoError(t, err)
	plain, err := SaveTransient(nil, &Plain{P: &v})
	require.NoError(t, err)
	assert.Len(t, boxed, 4, "box has no presence byte")
	assert.Len(t, plain, 5, "optional carries a presence byte")

	got := &Boxed{}
	require.NoError(t, LoadTransient(boxed, got))
	require.NotNil(t, got.P)
	assert.Equal(t, uint32(7), *got.P)

	_, err = Save(&Boxed{})
	require.ErrorIs(t, err, ErrNilBox)
}

func TestOptionalPointer(t *testing.T) {
	type S struct {
		P *uint32
	}
	data, err := Save(&S{})
	require.NoError(t, err)
	got := &S{P: new(uint32)}
	require.NoError(t, Load(data, got))
	assert.Nil(t, got.P, "absent optional clears the pointer")

	v := uint32(11)
	data, err = Save(&S{P: &v})
	require.NoError(t, err)
	existing := new(uint32)
	got = &S{P: existing}
	require.NoError(t, Load(data, got))
	assert.Same(t, existing, got.P, "in-place load reuses the allocation")
	assert.Equal(t, uint32(11), *got.P)
}

func TestBadDirective(t *testing.T) {
	type S struct {
		A uint32 `state:"wat"`
	}
	_, err := Save(&S{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown state directive")
}

type hooked struct {
	Counter uint32

	doubled   uint32
	preCalls  int
	postCalls int
	loadCalls int
}

func (h *hooked) PreStore()  { h.preCalls++ }
func (h *hooked) PostStore() { h.postCalls++ }
func (h *hooked) PostLoad() {
	h.loadCalls++
	h.doubled = h.Counter * 2
}

func TestHooks(t *testing.T) {
	src := &hooked{Counter: 21}
	data, err := Save(src)
	require.NoError(t, err)
	assert.Equal(t, 1, src.preCalls)
	assert.Equal(t, 1, src.postCalls)

	got := &hooked{}
	require.NoError(t, Load(data, got))
	assert.Equal(t, 1, got.loadCalls)
	assert.Equal(t, uint32(42), got.doubled, "derived state recomputed after load")
}

// statusReg packs two flags into one byte through its own codec.
type statusReg struct {
	carry bool
	zero  bool
}

func (s *statusReg) Store(w Writer) error {
	var b uint8
	if s.carry {
		b |= 1
	}
	if s.zero {
		b |= 2
	}
	w.StoreU8(b)
	return nil
}

func (s *statusReg) LoadInPlace(r Reader) error {
	b, err := r.LoadU8()
	if err != nil {
		return err
	}
	s.carry = b&1 != 0
	s.zero = b&2 != 0
	return nil
}

func TestCustomCodecField(t *testing.T) {
	type Cpu struct {
		Status statusReg
		Pc     uint32
	}
	src := &Cpu{Status: statusReg{carry: true}, Pc: 0x100}
	data, err := Save(src)
	require.NoError(t, err)
	got := &Cpu{}
	require.NoError(t, Load(data, got))
	assert.Equal(t, *src, *got)
}

func TestCustomCodecTopLevel(t *testing.T) {
	src := &statusReg{zero: true}
	data, err := SaveTransient(nil, src)
	require.NoError(t, err)
	require.Len(t, data, 1)
	got := &statusReg{}
	require.NoError(t, LoadTransient(data, got))
	assert.Equal(t, *src, *got)
}

func TestPointerToCustomCodec(t *testing.T) {
	type S struct {
		Reg *statusReg
	}
	data, err := Save(&S{})
	require.NoError(t, err)
	got := &S{Reg: &statusReg{carry: true}}
	require.NoError(t, Load(data, got))
	assert.Nil(t, got.Reg, "absent pointer clears even with a custom codec")

	data, err = Save(&S{Reg: &statusReg{zero: true}})
	require.NoError(t, err)
	got = &S{}
	require.NoError(t, Load(data, got))
	require.NotNil(t, got.Reg)
	assert.Equal(t, statusReg{zero: true}, *got.Reg)
}

func TestLoadNew(t *testing.T) {
	data, err := Save(&Point{X: 5, Y: 7})
	require.NoError(t, err)
	got, err := LoadNew[Point](data)
	require.NoError(t, err)
	assert.Equal(t, Point{X: 5, Y: 7}, got)
}

func TestUnsupportedTypes(t *testing.T) {
	type WithInt struct {
		N int
	}
	_, err := Save(&WithInt{})
	require.ErrorIs(t, err, ErrUnsupported)

	type WithMap struct {
		M map[string]uint32
	}
	_, err = Save(&WithMap{})
	require.ErrorIs(t, err, ErrUnsupported)
}

func TestUnexportedFieldsIgnored(t *testing.T) {
	type S struct {
		A      uint32
		hidden uint32
	}
	src := &S{A: 1, hidden: 2}
	data, err := Save(src)
	require.NoError(t, err)
	got := &S{hidden: 5}
	require.NoError(t, Load(data, got))
	assert.Equal(t, uint32(1), got.A)
	assert.Equal(t, uint32(5), got.hidden)
}

func TestNestedSlicesAndArrays(t *testing.T) {
	type Bank struct {
		Pages [][]byte
		Taps  [3]uint16
	}
	src := &Bank{
		Pages: [][]byte{{1, 2}, {}, {3}},
		Taps:  [3]uint16{10, 20, 30},
	}
	data, err := Save(src)
	require.NoError(t, err)
	got := &Bank{}
	require.NoError(t, Load(data, got))
	require.EqualExportedValues(t, *src, *got)

	tdata, err := SaveTransient(nil, src)
	require.NoError(t, err)
	tgot := &Bank{}
	require.NoError(t, LoadTransient(tdata, tgot))
	require.EqualExportedValues(t, *src, *tgot)
}
