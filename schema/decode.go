package schema

import (
	"fmt"
	"math"
	"reflect"

	"github.com/localrivet/mcpadapt/value"
)

// Decode implements decode<P>(v) per §4.2.3. P must be the same struct type
// passed to Of[P]() when the tool was registered.
func Decode[P any](v value.Value) (P, *DecodeError) {
	var zero P
	t := reflect.TypeOf(zero)
	if t == nil || t.Kind() != reflect.Struct {
		return zero, newError(InvalidType, "")
	}
	info, err := structInfoFor(t)
	if err != nil {
		return zero, newError(InvalidType, "")
	}
	rv := reflect.New(t).Elem()
	if derr := decodeStructInto(rv, info, v, ""); derr != nil {
		return zero, derr
	}
	return rv.Interface().(P), nil
}

func decodeStructInto(target reflect.Value, info *structInfo, val value.Value, path string) *DecodeError {
	obj, ok := val.AsObject()
	if !ok {
		return newError(InvalidType, path)
	}
	for _, f := range info.fields {
		fieldPath := f.name
		if path != "" {
			fieldPath = path + "." + f.name
		}
		fieldRV := target.Field(f.goIndex)

		wireVal, present := obj.Get(f.name)
		switch {
		case present:
			if derr := assignField(fieldRV, f, wireVal, fieldPath); derr != nil {
				return derr
			}
		case f.optional:
			fieldRV.Set(reflect.Zero(fieldRV.Type()))
		case f.hasDefault:
			dv, err := parseDefault(f.typ, f.defaultRaw)
			if err != nil {
				return newError(InvalidValue, fieldPath)
			}
			fieldRV.Set(dv)
		default:
			return missingField(f.name, path)
		}
	}
	return nil
}

func assignField(fieldRV reflect.Value, f fieldInfo, val value.Value, path string) *DecodeError {
	if f.optional {
		if val.IsNull() {
			fieldRV.Set(reflect.Zero(fieldRV.Type()))
			return nil
		}
		ptr := reflect.New(f.typ)
		if derr := decodeInto(ptr.Elem(), f.typ, val, path); derr != nil {
			return derr
		}
		fieldRV.Set(ptr)
		return nil
	}
	return decodeInto(fieldRV, f.typ, val, path)
}

func decodeInto(target reflect.Value, t reflect.Type, val value.Value, path string) *DecodeError {
	switch t.Kind() {
	case reflect.Bool:
		b, ok := val.AsBool()
		if !ok {
			return newError(InvalidType, path)
		}
		target.SetBool(b)
		return nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, derr := decodeSignedInt(t, val, path)
		if derr != nil {
			return derr
		}
		target.SetInt(n)
		return nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, derr := decodeUnsignedInt(t, val, path)
		if derr != nil {
			return derr
		}
		target.SetUint(n)
		return nil

	case reflect.Float32, reflect.Float64:
		f, ok := floatFrom(val)
		if !ok {
			return newError(InvalidType, path)
		}
		target.SetFloat(f)
		return nil

	case reflect.String:
		s, ok := val.AsString()
		if !ok {
			return newError(InvalidType, path)
		}
		target.SetString(s)
		return nil

	case reflect.Array:
		arr, ok := val.AsArray()
		if !ok {
			return newError(InvalidType, path)
		}
		if len(arr) != t.Len() {
			return newError(InvalidLength, path)
		}
		for i := 0; i < t.Len(); i++ {
			if derr := decodeInto(target.Index(i), t.Elem(), arr[i], fmt.Sprintf("%s[%d]", path, i)); derr != nil {
				return derr
			}
		}
		return nil

	case reflect.Struct:
		info, err := structInfoFor(t)
		if err != nil {
			return newError(InvalidType, path)
		}
		return decodeStructInto(target, info, val, path)

	default:
		return newError(InvalidType, path)
	}
}

func floatFrom(val value.Value) (float64, bool) {
	if f, ok := val.AsFloat(); ok {
		return f, true
	}
	if i, ok := val.AsInt(); ok {
		return float64(i), true
	}
	return 0, false
}

func decodeSignedInt(t reflect.Type, val value.Value, path string) (int64, *DecodeError) {
	if i, ok := val.AsInt(); ok {
		if !signedRangeOK(t, i) {
			return 0, newError(InvalidValue, path)
		}
		return i, nil
	}
	if f, ok := val.AsFloat(); ok {
		if math.IsNaN(f) || math.IsInf(f, 0) || math.Floor(f) != f {
			return 0, newError(InvalidValue, path)
		}
		i := int64(f)
		if float64(i) != f || !signedRangeOK(t, i) {
			return 0, newError(InvalidValue, path)
		}
		return i, nil
	}
	return 0, newError(InvalidType, path)
}

func decodeUnsignedInt(t reflect.Type, val value.Value, path string) (uint64, *DecodeError) {
	if i, ok := val.AsInt(); ok {
		if i < 0 {
			return 0, newError(InvalidValue, path)
		}
		u := uint64(i)
		if !unsignedRangeOK(t, u) {
			return 0, newError(InvalidValue, path)
		}
		return u, nil
	}
	if f, ok := val.AsFloat(); ok {
		if math.IsNaN(f) || math.IsInf(f, 0) || math.Floor(f) != f || f < 0 {
			return 0, newError(InvalidValue, path)
		}
		u := uint64(f)
		if float64(u) != f || !unsignedRangeOK(t, u) {
			return 0, newError(InvalidValue, path)
		}
		return u, nil
	}
	return 0, newError(InvalidType, path)
}

func signedRangeOK(t reflect.Type, n int64) bool {
	switch t.Kind() {
	case reflect.Int8:
		return n >= math.MinInt8 && n <= math.MaxInt8
	case reflect.Int16:
		return n >= math.MinInt16 && n <= math.MaxInt16
	case reflect.Int32:
		return n >= math.MinInt32 && n <= math.MaxInt32
	case reflect.Int, reflect.Int64:
		return true
	default:
		return false
	}
}

func unsignedRangeOK(t reflect.Type, n uint64) bool {
	switch t.Kind() {
	case reflect.Uint8:
		return n <= math.MaxUint8
	case reflect.Uint16:
		return n <= math.MaxUint16
	case reflect.Uint32:
		return n <= math.MaxUint32
	case reflect.Uint, reflect.Uint64:
		return true
	default:
		return false
	}
}
