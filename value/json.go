package value

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
)

// ParseError describes a failure to decode bytes into a Value.
type ParseError struct {
	Offset int64
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at offset %d: %v", e.Offset, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// FromJSON decodes a single JSON value from data, preserving object key
// order and last-wins semantics for duplicate keys. Numbers that parse as
// integers (no fractional part, no exponent forcing a float) decode to
// KindInt; everything else numeric decodes to KindFloat.
func FromJSON(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := decodeValue(dec)
	if err != nil {
		return Null(), &ParseError{Offset: dec.InputOffset(), Err: err}
	}
	// Reject trailing garbage: exactly one JSON value per line.
	if _, err := dec.Token(); err != io.EOF {
		return Null(), &ParseError{Offset: dec.InputOffset(), Err: fmt.Errorf("trailing data after JSON value")}
	}
	return v, nil
}

func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Null(), err
	}
	return decodeToken(dec, tok)
}

func decodeToken(dec *json.Decoder, tok json.Token) (Value, error) {
	switch t := tok.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case json.Number:
		return numberToValue(t)
	case string:
		return String(t), nil
	case json.Delim:
		switch t {
		case '[':
			return decodeArray(dec)
		case '{':
			return decodeObject(dec)
		default:
			return Null(), fmt.Errorf("unexpected delimiter %q", t)
		}
	default:
		return Null(), fmt.Errorf("unexpected token %v (%T)", tok, tok)
	}
}

func numberToValue(n json.Number) (Value, error) {
	s := n.String()
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Int(i), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Null(), fmt.Errorf("invalid number %q: %w", s, err)
	}
	return Float(f), nil
}

func decodeArray(dec *json.Decoder) (Value, error) {
	var items []Value
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return Null(), err
		}
		elem, err := decodeToken(dec, tok)
		if err != nil {
			return Null(), err
		}
		items = append(items, elem)
	}
	// Consume the closing ']'.
	if _, err := dec.Token(); err != nil {
		return Null(), err
	}
	return Array(items...), nil
}

func decodeObject(dec *json.Decoder) (Value, error) {
	obj := newObject()
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return Null(), err
		}
		key, ok := keyTok.(string)
		if !ok {
			return Null(), fmt.Errorf("expected object key, got %v", keyTok)
		}
		valTok, err := dec.Token()
		if err != nil {
			return Null(), err
		}
		val, err := decodeToken(dec, valTok)
		if err != nil {
			return Null(), err
		}
		obj.Set(key, val) // last-wins, original position kept
	}
	// Consume the closing '}'.
	if _, err := dec.Token(); err != nil {
		return Null(), err
	}
	return ObjectValue(obj), nil
}

// EncodeOptions controls ToJSON's output.
type EncodeOptions struct {
	// OmitNullOptionalFields elides object keys whose value is Null.
	OmitNullOptionalFields bool
}

// ToJSON serializes v per opts. The output never contains a trailing
// newline; callers that need line-framing append one themselves.
func ToJSON(v Value, opts EncodeOptions) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeValue(&buf, v, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeValue(buf *bytes.Buffer, v Value, opts EncodeOptions) error {
	switch v.kind {
	case KindNull:
		buf.WriteString("null")
	case KindBool:
		if v.b {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case KindInt:
		buf.WriteString(strconv.FormatInt(v.i, 10))
	case KindFloat:
		b, err := json.Marshal(v.f)
		if err != nil {
			return err
		}
		buf.Write(b)
	case KindString:
		b, err := json.Marshal(v.s)
		if err != nil {
			return err
		}
		buf.Write(b)
	case KindArray:
		buf.WriteByte('[')
		for i, elem := range v.arr {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeValue(buf, elem, opts); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindObject:
		buf.WriteByte('{')
		first := true
		for i, key := range v.obj.keys {
			val := v.obj.vals[i]
			if opts.OmitNullOptionalFields && val.kind == KindNull {
				continue
			}
			if !first {
				buf.WriteByte(',')
			}
			first = false
			kb, err := json.Marshal(key)
			if err != nil {
				return err
			}
			buf.Write(kb)
			buf.WriteByte(':')
			if err := writeValue(buf, val, opts); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("value: unknown kind %d", v.kind)
	}
	return nil
}
