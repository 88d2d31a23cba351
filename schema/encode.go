package schema

import (
	"fmt"
	"reflect"

	"github.com/localrivet/mcpadapt/value"
)

// Encode implements encode<T>(x) per §4.2.4. Unlike P, a tool's return type
// R is not required to be a struct — the grammar in §4.2.1 constrains only
// the parameter type; §4.2.4's inverse mapping is defined for the same
// scalar/string/optional/array/struct grammar decode<T> accepts, and the
// spec's own echo example (§8 scenario 3) returns a bare string. There is no
// explicit allocator parameter here (see SPEC_FULL.md §4.2): Go's garbage
// collector already guarantees the returned Value outlives any scratch the
// handler used, which is what the allocator indirection existed to provide
// in the source this behavior is modeled on.
func Encode[R any](x R) (value.Value, error) {
	rv := reflect.ValueOf(x)
	return encodeValue(rv, rv.Type())
}

func encodeStruct(rv reflect.Value, info *structInfo) (value.Value, error) {
	root := value.NewObject()
	obj, _ := root.AsObject()
	for _, f := range info.fields {
		ev, err := encodeField(rv.Field(f.goIndex), f)
		if err != nil {
			return value.Null(), fmt.Errorf("%s: %w", f.name, err)
		}
		obj.Set(f.name, ev)
	}
	return value.ObjectValue(obj), nil
}

func encodeField(fv reflect.Value, f fieldInfo) (value.Value, error) {
	if f.optional {
		if fv.IsNil() {
			return value.Null(), nil
		}
		return encodeValue(fv.Elem(), f.typ)
	}
	return encodeValue(fv, f.typ)
}

func encodeValue(rv reflect.Value, t reflect.Type) (value.Value, error) {
	switch t.Kind() {
	case reflect.Bool:
		return value.Bool(rv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return value.Int(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return value.Int(int64(rv.Uint())), nil
	case reflect.Float32, reflect.Float64:
		return value.Float(rv.Float()), nil
	case reflect.String:
		return value.String(rv.String()), nil
	case reflect.Array:
		items := make([]value.Value, t.Len())
		for i := 0; i < t.Len(); i++ {
			ev, err := encodeValue(rv.Index(i), t.Elem())
			if err != nil {
				return value.Null(), err
			}
			items[i] = ev
		}
		return value.Array(items...), nil
	case reflect.Struct:
		info, err := structInfoFor(t)
		if err != nil {
			return value.Null(), err
		}
		return encodeStruct(rv, info)
	case reflect.Pointer:
		if rv.IsNil() {
			return value.Null(), nil
		}
		return encodeValue(rv.Elem(), t.Elem())
	default:
		return value.Null(), fmt.Errorf("unsupported type %s", t)
	}
}
