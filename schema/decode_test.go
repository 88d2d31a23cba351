package schema

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localrivet/mcpadapt/value"
)

func TestDecodeHappyPathWithDefault(t *testing.T) {
	obj := objOf(map[string]value.Value{"message": value.String("hi")})
	p, derr := Decode[echoParams](obj)
	require.Nil(t, derr)
	assert.Equal(t, "hi", p.Message)
	assert.Equal(t, uint32(1), p.Count, "missing field with a default decodes to that default")
}

func TestDecodeMissingRequiredField(t *testing.T) {
	obj := objOf(map[string]value.Value{})
	_, derr := Decode[echoParams](obj)
	require.NotNil(t, derr)
	assert.Equal(t, MissingField, derr.Kind)
	assert.Equal(t, "message", derr.Field)
}

func TestDecodeRejectsNonObjectTopLevel(t *testing.T) {
	_, derr := Decode[echoParams](value.Array(value.Int(1)))
	require.NotNil(t, derr)
	assert.Equal(t, InvalidType, derr.Kind)
}

func TestDecodeIntegerAcceptsWholeFloat(t *testing.T) {
	obj := objOf(map[string]value.Value{"message": value.String("x"), "count": value.Float(5.0)})
	p, derr := Decode[echoParams](obj)
	require.Nil(t, derr)
	assert.Equal(t, uint32(5), p.Count)
}

func TestDecodeIntegerRejectsFractionalFloat(t *testing.T) {
	obj := objOf(map[string]value.Value{"message": value.String("x"), "count": value.Float(5.5)})
	_, derr := Decode[echoParams](obj)
	require.NotNil(t, derr)
	assert.Equal(t, InvalidValue, derr.Kind)
}

func TestDecodeIntegerRejectsOutOfRange(t *testing.T) {
	type narrow struct {
		N int8 `json:"n"`
	}
	obj := objOf(map[string]value.Value{"n": value.Int(200)})
	_, derr := Decode[narrow](obj)
	require.NotNil(t, derr)
	assert.Equal(t, InvalidValue, derr.Kind)
}

func TestDecodeOptionalNullIsAbsence(t *testing.T) {
	obj := objOf(map[string]value.Value{"host": value.String("db"), "port": value.Null()})
	n, derr := Decode[nested](obj)
	require.Nil(t, derr)
	assert.Nil(t, n.Port)
}

func TestDecodeOptionalPresentValue(t *testing.T) {
	obj := objOf(map[string]value.Value{"host": value.String("db"), "port": value.Int(5432)})
	n, derr := Decode[nested](obj)
	require.Nil(t, derr)
	require.NotNil(t, n.Port)
	assert.Equal(t, uint16(5432), *n.Port)
}

func TestDecodeOptionalFieldAbsentEntirely(t *testing.T) {
	obj := objOf(map[string]value.Value{"host": value.String("db")})
	n, derr := Decode[nested](obj)
	require.Nil(t, derr)
	assert.Nil(t, n.Port)
}

func TestDecodeFixedArrayWrongLength(t *testing.T) {
	obj := objOf(map[string]value.Value{"coords": value.Array(value.Int(1), value.Int(2))})
	_, derr := Decode[withArray](obj)
	require.NotNil(t, derr)
	assert.Equal(t, InvalidLength, derr.Kind)
}

func TestDecodeFixedArrayCorrectLength(t *testing.T) {
	obj := objOf(map[string]value.Value{"coords": value.Array(value.Int(1), value.Int(2), value.Int(3))})
	w, derr := Decode[withArray](obj)
	require.Nil(t, derr)
	assert.Equal(t, [3]int32{1, 2, 3}, w.Coords)
}

func TestDecodeExtraKeysIgnored(t *testing.T) {
	obj := objOf(map[string]value.Value{"message": value.String("x"), "bogus": value.Bool(true)})
	p, derr := Decode[echoParams](obj)
	require.Nil(t, derr)
	assert.Equal(t, "x", p.Message)
}

func TestDecodeNestedStruct(t *testing.T) {
	addr := objOf(map[string]value.Value{"host": value.String("db")})
	obj := objOf(map[string]value.Value{"addr": addr})
	w, derr := Decode[withNested](obj)
	require.Nil(t, derr)
	assert.Equal(t, "db", w.Addr.Host)
}

func objOf(fields map[string]value.Value) value.Value {
	v := value.NewObject()
	obj, _ := v.AsObject()
	// Deterministic order for test inputs: insert via a stable key set.
	for _, k := range orderedKeysFor(fields) {
		obj.Set(k, fields[k])
	}
	return v
}

// orderedKeysFor gives a stable-ish iteration order for test fixtures; order
// doesn't matter for decode correctness (object lookup is by key) so any
// deterministic order suffices.
func orderedKeysFor(fields map[string]value.Value) []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
