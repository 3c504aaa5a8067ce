package coercion

import (
	"bytes"
	"log/slog"
	"math"
	"net/netip"
	"reflect"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingObserver struct {
	seen []reflect.Type
}

func (o *countingObserver) ObserveFallback(target reflect.Type) {
	o.seen = append(o.seen, target)
}

type Level int

func TestCoerce_Numbers(t *testing.T) {
	c := New()

	tests := []struct {
		name     string
		target   reflect.Type
		raw      any
		expected any
	}{
		{"int64 from text", reflect.TypeFor[int64](), "42", int64(42)},
		{"int from padded text", reflect.TypeFor[int](), " 7 ", 7},
		{"uint64 from float", reflect.TypeFor[uint64](), float64(90), uint64(90)},
		{"int8 from int", reflect.TypeFor[int8](), 12, int8(12)},
		{"float32 from text", reflect.TypeFor[float32](), "1.5", float32(1.5)},
		{"persian digits", reflect.TypeFor[int](), "۱۲۳", 123},
		{"arabic-indic digits", reflect.TypeFor[int32](), "٤٥", int32(45)},
		{"arabic decimal separator", reflect.TypeFor[float64](), "٣٫٥", 3.5},
		{"fullwidth digits", reflect.TypeFor[int](), "４２", 42},
		{"named int", reflect.TypeFor[Level](), "3", Level(3)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := c.Coerce(tt.target, tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, v)
		})
	}
}

func TestCoerce_NumericFallbackIsTypeExactMinimum(t *testing.T) {
	obs := &countingObserver{}
	var buf bytes.Buffer
	c := New(WithObserver(obs), WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))

	tests := []struct {
		target   reflect.Type
		expected any
	}{
		{reflect.TypeFor[int64](), int64(math.MinInt64)},
		{reflect.TypeFor[int32](), int32(math.MinInt32)},
		{reflect.TypeFor[int8](), int8(math.MinInt8)},
		{reflect.TypeFor[int](), math.MinInt},
		{reflect.TypeFor[uint16](), uint16(0)},
		{reflect.TypeFor[float64](), -math.MaxFloat64},
		{reflect.TypeFor[float32](), float32(-math.MaxFloat32)},
		{reflect.TypeFor[Level](), Level(math.MinInt)},
		{reflect.TypeFor[time.Duration](), time.Duration(math.MinInt64)},
	}

	for _, tt := range tests {
		t.Run(tt.target.String(), func(t *testing.T) {
			v, err := c.Coerce(tt.target, "abc")
			require.NoError(t, err)
			assert.Equal(t, tt.expected, v)

			minimum, ok := MinValue(tt.target)
			require.True(t, ok)
			assert.Equal(t, tt.expected, minimum)
		})
	}

	assert.Len(t, obs.seen, len(tests))
	assert.Contains(t, buf.String(), "coercion fallback")
}

func TestCoerce_Bool(t *testing.T) {
	obs := &countingObserver{}
	c := New(WithObserver(obs))

	for raw, expected := range map[string]bool{"true": true, "TRUE": true, "1": true, "yes": true, "off": false, "False": false} {
		v, err := c.Coerce(reflect.TypeFor[bool](), raw)
		require.NoError(t, err)
		assert.Equal(t, expected, v, raw)
	}
	assert.Empty(t, obs.seen)

	v, err := c.Coerce(reflect.TypeFor[bool](), "maybe")
	require.NoError(t, err)
	assert.Equal(t, false, v)
	assert.Len(t, obs.seen, 1)
}

func TestCoerce_NullableBool(t *testing.T) {
	c := New()

	v, err := c.Coerce(reflect.TypeFor[*bool](), "")
	require.NoError(t, err)
	assert.Nil(t, v.(*bool))

	v, err = c.Coerce(reflect.TypeFor[*bool](), "true")
	require.NoError(t, err)
	require.NotNil(t, v.(*bool))
	assert.True(t, *v.(*bool))

	v, err = c.Coerce(reflect.TypeFor[bool](), "")
	require.NoError(t, err)
	assert.Equal(t, false, v)
}

func TestCoerce_Pointers(t *testing.T) {
	c := New()

	v, err := c.Coerce(reflect.TypeFor[*int](), "5")
	require.NoError(t, err)
	assert.Equal(t, 5, *v.(*int))

	v, err = c.Coerce(reflect.TypeFor[*int](), nil)
	require.NoError(t, err)
	assert.Nil(t, v.(*int))

	n := 9
	v, err = c.Coerce(reflect.TypeFor[int64](), &n)
	require.NoError(t, err)
	assert.Equal(t, int64(9), v)
}

func TestCoerce_PassThrough(t *testing.T) {
	c := New()
	now := time.Now()

	v, err := c.Coerce(reflect.TypeFor[time.Time](), now)
	require.NoError(t, err)
	assert.Equal(t, now, v)

	v, err = c.Coerce(reflect.TypeFor[string](), "as is")
	require.NoError(t, err)
	assert.Equal(t, "as is", v)
}

func TestCoerce_TextUnmarshaler(t *testing.T) {
	c := New()

	v, err := c.Coerce(reflect.TypeFor[netip.Addr](), "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, netip.MustParseAddr("10.0.0.1"), v)

	_, err = c.Coerce(reflect.TypeFor[netip.Addr](), "not an address")
	assert.True(t, errors.Is(err, ErrCoercion))
}

func TestCoerce_Errors(t *testing.T) {
	c := New()

	_, err := c.Coerce(reflect.TypeFor[struct{ A int }](), "abc")
	assert.True(t, errors.Is(err, ErrCoercion))

	_, err = c.Coerce(reflect.TypeFor[map[string]int](), 5)
	assert.True(t, errors.Is(err, ErrCoercion))

	_, err = c.Coerce(nil, "x")
	assert.True(t, errors.Is(err, ErrCoercion))

	_, err = c.Coerce(reflect.TypeFor[time.Time](), "yesterday")
	assert.True(t, errors.Is(err, ErrUnparsableDate))
	assert.False(t, errors.Is(err, ErrCoercion))
}

func TestCoerce_Duration(t *testing.T) {
	c := New()

	v, err := c.Coerce(reflect.TypeFor[time.Duration](), "1h30m")
	require.NoError(t, err)
	assert.Equal(t, 90*time.Minute, v)

	v, err = c.Coerce(reflect.TypeFor[time.Duration](), "1000")
	require.NoError(t, err)
	assert.Equal(t, time.Duration(1000), v)
}

func TestDecodeCollection(t *testing.T) {
	c := New()

	out, err := c.DecodeCollection(reflect.TypeFor[uint64](), `[90, "91", 92]`)
	require.NoError(t, err)
	assert.Equal(t, []uint64{90, 91, 92}, out.Interface())

	out, err = c.DecodeCollection(reflect.TypeFor[string](), `["a", "b"]`)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, out.Interface())

	out, err = c.DecodeCollection(reflect.TypeFor[int](), `7`)
	require.NoError(t, err)
	assert.Equal(t, []int{7}, out.Interface())

	out, err = c.DecodeCollection(reflect.TypeFor[string](), `plain`)
	require.NoError(t, err)
	assert.Equal(t, []string{"plain"}, out.Interface())

	out, err = c.DecodeCollection(reflect.TypeFor[*int](), `[1, null]`)
	require.NoError(t, err)
	items := out.Interface().([]*int)
	require.Len(t, items, 2)
	assert.Equal(t, 1, *items[0])
	assert.Nil(t, items[1])

	out, err = c.DecodeCollection(reflect.TypeFor[int](), ``)
	require.NoError(t, err)
	assert.Equal(t, 0, out.Len())

	_, err = c.DecodeCollection(reflect.TypeFor[int](), `[1,`)
	assert.True(t, errors.Is(err, ErrCoercion))
}

func TestCoerce_SliceTargets(t *testing.T) {
	c := New()

	v, err := c.Coerce(reflect.TypeFor[[]int](), "[1,2]")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, v)

	v, err = c.Coerce(reflect.TypeFor[[]string](), []any{"x", 1.0})
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "1"}, v)

	v, err = c.Coerce(reflect.TypeFor[[]byte](), "raw")
	require.NoError(t, err)
	assert.Equal(t, []byte("raw"), v)
}

func TestDecodeJSON(t *testing.T) {
	c := New()

	v, err := c.DecodeJSON(reflect.TypeFor[int](), []byte(`"12"`))
	require.NoError(t, err)
	assert.Equal(t, 12, v)

	v, err = c.DecodeJSON(reflect.TypeFor[*string](), []byte(`null`))
	require.NoError(t, err)
	assert.Nil(t, v.(*string))

	_, err = c.DecodeJSON(reflect.TypeFor[int](), []byte(`null`))
	assert.True(t, errors.Is(err, ErrCoercion))

	v, err = c.DecodeJSON(reflect.TypeFor[time.Time](), []byte(`"2024-03-01"`))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), v)
}

func TestDecodeJSON_LargeNumberAsText(t *testing.T) {
	c := New()

	v, err := c.DecodeJSON(reflect.TypeFor[string](), []byte(`9007199254740993`))
	require.NoError(t, err)
	assert.Equal(t, "9007199254740993", v)

	v, err = c.DecodeJSON(reflect.TypeFor[string](), []byte(`12.50`))
	require.NoError(t, err)
	assert.Equal(t, "12.50", v)
}
