// Package schema derives JSON Schema fragments from Go struct types and
// bridges between value.Value and those types. Every exported entry point
// (Of, Decode, Encode) is a generic function. The reflect.Type walk of a
// struct's fields happens once per type, at the caller's registration time
// (see mcptool.NewTool), and is cached here; a tool call reuses that cached
// field list and only performs the reflect.Value reads and writes needed to
// fill in or read out the struct.
package schema

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/localrivet/mcpadapt/value"
)

// fieldInfo describes one struct field in wire terms.
type fieldInfo struct {
	goIndex    int
	name       string
	typ        reflect.Type
	optional   bool
	hasDefault bool
	defaultRaw string
	desc       string
}

// structInfo is the one-time-computed description of a struct type, cached
// by reflect.Type so repeated Of[P]()/Decode[P]()/Encode[P]() calls for the
// same P never re-walk its fields.
type structInfo struct {
	typ    reflect.Type
	fields []fieldInfo
	schema value.Value
}

var structCache sync.Map // reflect.Type -> *structInfo

// Of derives the JSON Schema for P, per §4.2.2. P must be a struct type.
func Of[P any]() (value.Value, error) {
	var zero P
	t := reflect.TypeOf(zero)
	if t == nil {
		return value.Null(), fmt.Errorf("schema: type parameter has no static type")
	}
	info, err := structInfoFor(t)
	if err != nil {
		return value.Null(), err
	}
	return info.schema, nil
}

// structInfoFor returns the cached structInfo for t, computing it on first
// use. t must be a struct type.
func structInfoFor(t reflect.Type) (*structInfo, error) {
	if cached, ok := structCache.Load(t); ok {
		return cached.(*structInfo), nil
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("schema: %s is not a struct", t)
	}

	fields, err := collectFields(t)
	if err != nil {
		return nil, fmt.Errorf("schema: %s: %w", t, err)
	}

	props := value.NewObject()
	propsObj, _ := props.AsObject()
	var required []value.Value
	for _, f := range fields {
		fs, err := schemaForType(f.typ)
		if err != nil {
			return nil, fmt.Errorf("schema: %s.%s: %w", t, f.name, err)
		}
		if f.optional {
			fs = widenOptionalSchema(fs)
		}
		if f.desc != "" {
			fobj, _ := fs.AsObject()
			fobj = newOrderedCopy(fobj)
			fobj.Set("description", value.String(f.desc))
			fs = value.ObjectValue(fobj)
		}
		propsObj.Set(f.name, fs)
		if !f.optional && !f.hasDefault {
			required = append(required, value.String(f.name))
		}
	}

	root := value.NewObject()
	rootObj, _ := root.AsObject()
	rootObj.Set("type", value.String("object"))
	rootObj.Set("properties", value.ObjectValue(propsObj))
	if len(required) > 0 {
		rootObj.Set("required", value.Array(required...))
	}

	info := &structInfo{typ: t, fields: fields, schema: value.ObjectValue(rootObj)}
	structCache.Store(t, info)
	return info, nil
}

// collectFields walks t's exported fields in declaration order and parses
// their wire tags. Unexported fields are skipped; a `json:"-"` tag skips a
// field explicitly.
func collectFields(t reflect.Type) ([]fieldInfo, error) {
	var fields []fieldInfo
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if sf.PkgPath != "" {
			continue // unexported
		}
		wireName, skip := wireFieldName(sf)
		if skip {
			continue
		}

		ft := sf.Type
		optional := ft.Kind() == reflect.Pointer
		if optional {
			ft = ft.Elem()
		}
		if err := checkSupportedType(ft); err != nil {
			return nil, fmt.Errorf("field %s: %w", sf.Name, err)
		}

		defaultRaw, hasDefault := sf.Tag.Lookup("default")

		fields = append(fields, fieldInfo{
			goIndex:    i,
			name:       wireName,
			typ:        ft,
			optional:   optional,
			hasDefault: hasDefault,
			defaultRaw: defaultRaw,
			desc:       sf.Tag.Get("desc"),
		})
	}
	return fields, nil
}

func wireFieldName(sf reflect.StructField) (name string, skip bool) {
	tag := sf.Tag.Get("json")
	if tag == "-" {
		return "", true
	}
	if tag == "" {
		return sf.Name, false
	}
	parts := strings.Split(tag, ",")
	if parts[0] == "" {
		return sf.Name, false
	}
	return parts[0], false
}

// checkSupportedType validates that t conforms to the §4.2.1 grammar:
// bool | intN | floatN | string | [T; N] | Struct (optionality is handled
// by the caller via the pointer check).
func checkSupportedType(t reflect.Type) error {
	switch t.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return nil
	case reflect.Array:
		return checkSupportedType(t.Elem())
	case reflect.Struct:
		_, err := collectFields(t)
		return err
	case reflect.Pointer:
		return fmt.Errorf("unsupported type %s: optional-of-optional is not part of the grammar", t)
	default:
		return fmt.Errorf("unsupported type %s", t)
	}
}

// schemaForType returns schema_of(T) per the §4.2.2 table.
func schemaForType(t reflect.Type) (value.Value, error) {
	switch t.Kind() {
	case reflect.Bool:
		return leaf("boolean"), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return leaf("integer"), nil
	case reflect.Float32, reflect.Float64:
		return leaf("number"), nil
	case reflect.String:
		return leaf("string"), nil
	case reflect.Array:
		elemSchema, err := schemaForType(t.Elem())
		if err != nil {
			return value.Null(), err
		}
		n := t.Len()
		root := value.NewObject()
		obj, _ := root.AsObject()
		obj.Set("type", value.String("array"))
		obj.Set("items", elemSchema)
		obj.Set("minItems", value.Int(int64(n)))
		obj.Set("maxItems", value.Int(int64(n)))
		return value.ObjectValue(obj), nil
	case reflect.Struct:
		info, err := structInfoFor(t)
		if err != nil {
			return value.Null(), err
		}
		return info.schema, nil
	default:
		return value.Null(), fmt.Errorf("unsupported type %s", t)
	}
}

func leaf(jsonType string) value.Value {
	root := value.NewObject()
	obj, _ := root.AsObject()
	obj.Set("type", value.String(jsonType))
	return value.ObjectValue(obj)
}

// widenOptionalSchema widens an already-derived schema to allow null, per
// "`?U`: schema_of(U) with its type widened to the array [\"null\", <type>]".
func widenOptionalSchema(s value.Value) value.Value {
	obj, ok := s.AsObject()
	if !ok {
		return s
	}
	t, _ := obj.Get("type")
	widened := newOrderedCopy(obj)
	if ts, ok := t.AsString(); ok {
		widened.Set("type", value.Array(value.String("null"), value.String(ts)))
	}
	return value.ObjectValue(widened)
}

// newOrderedCopy duplicates an *Object's keys/values into a fresh *Object,
// preserving order, so widening or describing a cached schema never mutates
// it.
func newOrderedCopy(src *value.Object) *value.Object {
	dst, _ := value.NewObject().AsObject()
	for _, k := range src.Keys() {
		v, _ := src.Get(k)
		dst.Set(k, v)
	}
	return dst
}

// parseDefault converts a struct tag's raw default text into a decoded Go
// value of type t (used by decode.go when a field is absent).
func parseDefault(t reflect.Type, raw string) (reflect.Value, error) {
	switch t.Kind() {
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(b).Convert(t), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return reflect.Value{}, err
		}
		rv := reflect.New(t).Elem()
		rv.SetInt(n)
		return rv, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return reflect.Value{}, err
		}
		rv := reflect.New(t).Elem()
		rv.SetUint(n)
		return rv, nil
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return reflect.Value{}, err
		}
		rv := reflect.New(t).Elem()
		rv.SetFloat(f)
		return rv, nil
	case reflect.String:
		return reflect.ValueOf(raw).Convert(t), nil
	default:
		return reflect.Value{}, fmt.Errorf("schema: unsupported default for type %s", t)
	}
}
