package toon

import (
	"bytes"
	"encoding"
	"fmt"
	"io"
	"reflect"
	"sort"
	"strings"

	"github.com/toonfmt/go-toon/internal/decoder"
	"github.com/toonfmt/go-toon/internal/encoder"
	"github.com/toonfmt/go-toon/internal/value"
)

// Encoder writes TOON values to an output stream.
type Encoder struct {
	w    io.Writer
	opts []Option
}

// NewEncoder returns a new encoder that writes to w.
func NewEncoder(w io.Writer, opts ...Option) *Encoder {
	return &Encoder{w: w, opts: opts}
}

// Encode writes the TOON encoding of v to the stream. The output has no
// trailing newline.
func (e *Encoder) Encode(v any) error {
	o, err := applyOptions(e.opts)
	if err != nil {
		return err
	}

	es := &encodeState{}
	node, err := es.marshalValue(reflect.ValueOf(v), o.maxDepth)
	if err != nil {
		return err
	}

	_, err = io.WriteString(e.w, encoder.Encode(node, o.encoderOptions()))
	return err
}

type encodeState struct {
	// Future state like a cycle detector can be added here.
}

// marshalCustom integrates the output of a user's MarshalTOON method by
// running it back through the decoder.
func (es *encodeState) marshalCustom(v reflect.Value, m Marshaler) (*value.Value, error) {
	b, err := m.MarshalTOON()
	if err != nil {
		return nil, &MarshalerError{Type: v.Type(), Err: err}
	}

	// An empty document from a custom marshaler is treated as a null value.
	if len(bytes.TrimSpace(b)) == 0 {
		return value.Null(), nil
	}

	node, err := decoder.Decode(string(b), decoder.Options{IndentSize: 2, Strict: true, MaxDepth: defaultMaxDepth})
	if err != nil {
		return nil, &MarshalerError{
			Type: v.Type(),
			Err:  fmt.Errorf("invalid TOON output: %w", err),
		}
	}
	return node, nil
}

// parseTag splits a toon struct tag into its name and options.
func parseTag(tag string) (string, map[string]bool) {
	parts := strings.Split(tag, ",")
	name := parts[0]
	options := make(map[string]bool)
	for _, part := range parts[1:] {
		options[strings.TrimSpace(part)] = true
	}
	return name, options
}

// isEmptyValue reports whether the value v is empty.
func isEmptyValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Array, reflect.Map, reflect.Slice, reflect.String:
		return v.Len() == 0
	case reflect.Bool:
		return !v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Interface, reflect.Ptr:
		return v.IsNil()
	}
	return false
}

func (es *encodeState) marshalValue(v reflect.Value, depth int) (*value.Value, error) {
	if depth <= 0 {
		return nil, fmt.Errorf("toon: reached max recursion depth")
	}

	// Handle nil interfaces explicitly to avoid panics.
	if !v.IsValid() || (v.Kind() == reflect.Interface && v.IsNil()) {
		return value.Null(), nil
	}

	// Unwrap interfaces first so values stored in any-typed containers
	// still reach their custom marshaler.
	for v.Kind() == reflect.Interface && !v.IsNil() {
		v = v.Elem()
	}

	// Check for custom Marshaler implementations. We must check the value
	// itself and a pointer to the value, to handle both value and pointer
	// receivers.
	if v.Type().NumMethod() > 0 && v.CanInterface() {
		if m, ok := v.Interface().(Marshaler); ok {
			return es.marshalCustom(v, m)
		}
		if tm, ok := v.Interface().(encoding.TextMarshaler); ok {
			return es.marshalText(v, tm)
		}
	}
	if v.Kind() != reflect.Pointer {
		var pv reflect.Value
		if v.CanAddr() {
			pv = v.Addr()
		} else {
			// For non-addressable values (like struct literals),
			// create a pointer to a copy to check for the interface.
			pv = reflect.New(v.Type())
			pv.Elem().Set(v)
		}
		if pv.Type().NumMethod() > 0 && pv.CanInterface() {
			if m, ok := pv.Interface().(Marshaler); ok {
				return es.marshalCustom(pv, m)
			}
			if tm, ok := pv.Interface().(encoding.TextMarshaler); ok {
				return es.marshalText(pv, tm)
			}
		}
	}

	// Follow pointers and interfaces to find the concrete value.
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return value.Null(), nil
		}
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.String:
		return value.String(v.String()), nil
	case reflect.Bool:
		return value.Bool(v.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return value.Number(float64(v.Int())), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return value.Number(float64(v.Uint())), nil
	case reflect.Float32, reflect.Float64:
		return value.Number(v.Float()), nil
	case reflect.Slice, reflect.Array:
		if v.Kind() == reflect.Slice && v.IsNil() {
			return value.Null(), nil
		}
		arr := value.Array()
		for i := 0; i < v.Len(); i++ {
			elem, err := es.marshalValue(v.Index(i), depth-1)
			if err != nil {
				return nil, err
			}
			arr.Append(elem)
		}
		return arr, nil
	case reflect.Map:
		if v.IsNil() {
			return value.Null(), nil
		}
		if v.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf("toon: map key type must be a string, got %s", v.Type().Key())
		}
		keys := make([]string, 0, v.Len())
		for _, key := range v.MapKeys() {
			keys = append(keys, key.String())
		}
		sort.Strings(keys)
		obj := value.Object()
		for _, key := range keys {
			node, err := es.marshalValue(v.MapIndex(reflect.ValueOf(key).Convert(v.Type().Key())), depth-1)
			if err != nil {
				return nil, err
			}
			obj.AppendField(key, node)
		}
		return obj, nil
	case reflect.Struct:
		obj := value.Object()
		if err := es.appendStructFields(obj, v, depth); err != nil {
			return nil, err
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("toon: unsupported type for marshaling: %s", v.Type())
	}
}

func (es *encodeState) marshalText(v reflect.Value, tm encoding.TextMarshaler) (*value.Value, error) {
	b, err := tm.MarshalText()
	if err != nil {
		return nil, &MarshalerError{Type: v.Type(), Err: err}
	}
	return value.String(string(b)), nil
}

// appendStructFields walks a struct's exported fields in declaration
// order, flattening untagged embedded structs.
func (es *encodeState) appendStructFields(obj *value.Value, v reflect.Value, depth int) error {
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		sf := t.Field(i)
		fv := v.Field(i)

		if sf.Anonymous && sf.Tag.Get("toon") == "" {
			ev := fv
			for ev.Kind() == reflect.Pointer {
				if ev.IsNil() {
					ev = reflect.Value{}
					break
				}
				ev = ev.Elem()
			}
			if ev.IsValid() && ev.Kind() == reflect.Struct {
				if err := es.appendStructFields(obj, ev, depth); err != nil {
					return err
				}
				continue
			}
		}

		if !sf.IsExported() {
			continue
		}

		tagName, tagOpts := parseTag(sf.Tag.Get("toon"))
		if tagName == "-" {
			continue
		}
		if tagOpts["omitempty"] && isEmptyValue(fv) {
			continue
		}

		key := sf.Name
		if tagName != "" {
			key = tagName
		}

		node, err := es.marshalValue(fv, depth-1)
		if err != nil {
			return err
		}
		obj.AppendField(key, node)
	}
	return nil
}
