// Package jsonbridge converts between JSON documents and the value
// tree. Decoding goes through buger/jsonparser rather than
// encoding/json so that object key order survives the trip; TOON output
// is only deterministic when the field order of the input is known.
package jsonbridge

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/buger/jsonparser"

	"github.com/toonfmt/go-toon/internal/encoder"
	"github.com/toonfmt/go-toon/internal/value"
)

// Decode parses a JSON document into a value tree, preserving object
// key order. Duplicate keys follow JSON semantics: the last one wins.
func Decode(data []byte) (*value.Value, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty JSON input")
	}
	switch trimmed[0] {
	case '{':
		return convert(trimmed, jsonparser.Object)
	case '[':
		return convert(trimmed, jsonparser.Array)
	case '"':
		if len(trimmed) < 2 || trimmed[len(trimmed)-1] != '"' {
			return nil, fmt.Errorf("malformed JSON string")
		}
		return convert(trimmed[1:len(trimmed)-1], jsonparser.String)
	default:
		switch string(trimmed) {
		case "null":
			return value.Null(), nil
		case "true":
			return value.Bool(true), nil
		case "false":
			return value.Bool(false), nil
		}
		f, err := strconv.ParseFloat(string(trimmed), 64)
		if err != nil {
			return nil, fmt.Errorf("malformed JSON value %q", trimmed)
		}
		return value.Number(f), nil
	}
}

// convert maps one jsonparser value, given the way jsonparser hands it
// over: containers as raw bytes, strings without quotes and with their
// escapes intact.
func convert(data []byte, dt jsonparser.ValueType) (*value.Value, error) {
	switch dt {
	case jsonparser.Object:
		obj := value.Object()
		err := jsonparser.ObjectEach(data, func(key, val []byte, vt jsonparser.ValueType, _ int) error {
			k, err := jsonparser.ParseString(key)
			if err != nil {
				return err
			}
			child, err := convert(val, vt)
			if err != nil {
				return err
			}
			setField(obj, k, child)
			return nil
		})
		if err != nil {
			return nil, err
		}
		return obj, nil
	case jsonparser.Array:
		arr := value.Array()
		var cbErr error
		_, err := jsonparser.ArrayEach(data, func(val []byte, vt jsonparser.ValueType, _ int, err error) {
			if cbErr != nil {
				return
			}
			if err != nil {
				cbErr = err
				return
			}
			child, err := convert(val, vt)
			if err != nil {
				cbErr = err
				return
			}
			arr.Append(child)
		})
		if err != nil {
			return nil, err
		}
		if cbErr != nil {
			return nil, cbErr
		}
		return arr, nil
	case jsonparser.String:
		s, err := jsonparser.ParseString(data)
		if err != nil {
			return nil, err
		}
		return value.String(s), nil
	case jsonparser.Number:
		f, err := jsonparser.ParseFloat(data)
		if err != nil {
			return nil, err
		}
		return value.Number(f), nil
	case jsonparser.Boolean:
		b, err := jsonparser.ParseBoolean(data)
		if err != nil {
			return nil, err
		}
		return value.Bool(b), nil
	case jsonparser.Null:
		return value.Null(), nil
	default:
		return nil, fmt.Errorf("unsupported JSON value type %s", dt)
	}
}

func setField(obj *value.Value, key string, v *value.Value) {
	for i, f := range obj.Fields() {
		if f.Key == key {
			obj.Fields()[i].Value = v
			return
		}
	}
	obj.AppendField(key, v)
}

// Encode renders a value tree as compact JSON. Field order is
// preserved. NaN and the infinities render as null, matching the TOON
// encoder.
func Encode(v *value.Value) []byte {
	var buf bytes.Buffer
	writeJSON(&buf, v)
	return buf.Bytes()
}

func writeJSON(buf *bytes.Buffer, v *value.Value) {
	switch v.Kind() {
	case value.KindNull:
		buf.WriteString("null")
	case value.KindBool:
		if v.Bool() {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case value.KindNumber:
		buf.WriteString(encoder.FormatNumber(v.Number()))
	case value.KindString:
		writeJSONString(buf, v.Str())
	case value.KindArray:
		buf.WriteByte('[')
		for i, elem := range v.Elems() {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeJSON(buf, elem)
		}
		buf.WriteByte(']')
	case value.KindObject:
		buf.WriteByte('{')
		for i, f := range v.Fields() {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeJSONString(buf, f.Key)
			buf.WriteByte(':')
			writeJSON(buf, f.Value)
		}
		buf.WriteByte('}')
	}
}

func writeJSONString(buf *bytes.Buffer, s string) {
	b, err := json.Marshal(s)
	if err != nil {
		// Marshaling a string cannot fail; fall back to a bare quote pair.
		buf.WriteString(`""`)
		return
	}
	buf.Write(b)
}
