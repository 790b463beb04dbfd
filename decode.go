package toon

import (
	"encoding"
	"fmt"
	"io"
	"math"
	"reflect"
	"strings"
	"sync"

	"github.com/toonfmt/go-toon/internal/decoder"
	"github.com/toonfmt/go-toon/internal/encoder"
	"github.com/toonfmt/go-toon/internal/lexical"
	"github.com/toonfmt/go-toon/internal/value"
)

// Decoder reads and decodes TOON values from an input stream.
type Decoder struct {
	r    io.Reader
	opts []Option
}

// NewDecoder returns a new decoder that reads from r.
//
// Functional options can be provided to configure the decoding process,
// such as disabling strict validation with the Lenient option.
//
// Note: This is a non-streaming implementation. It reads the entire
// reader into memory first before parsing.
func NewDecoder(r io.Reader, opts ...Option) *Decoder {
	return &Decoder{r: r, opts: opts}
}

// Decode reads the TOON-encoded value from its input and stores it in
// the value pointed to by out. If out is nil or not a pointer, Decode
// returns an error.
//
// If the input is malformed, Decode returns a *errors.DecodeError
// carrying the 1-based input line of the failure.
func (d *Decoder) Decode(out any) error {
	if d.r == nil {
		return fmt.Errorf("toon: Decode(nil reader)")
	}
	data, err := io.ReadAll(d.r)
	if err != nil {
		return err
	}
	o, err := applyOptions(d.opts)
	if err != nil {
		return err
	}
	return unmarshal(data, out, o)
}

// unmarshal parses data into a value tree and maps it onto out.
func unmarshal(data []byte, out any, o options) error {
	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("toon: Unmarshal(non-pointer %T or nil)", out)
	}

	root, err := decoder.Decode(string(data), o.decoderOptions())
	if err != nil {
		return err
	}

	ds := &decodeState{depth: o.maxDepth}
	return ds.mapValue(root, rv.Elem())
}

type decodeState struct {
	depth int
}

func (ds *decodeState) mapValue(node *value.Value, rv reflect.Value) error {
	ds.depth--
	if ds.depth <= 0 {
		return fmt.Errorf("toon: reached max recursion depth")
	}
	defer func() { ds.depth++ }()

	if node.IsNull() {
		switch rv.Kind() {
		case reflect.Interface, reflect.Pointer, reflect.Map, reflect.Slice:
			rv.Set(reflect.Zero(rv.Type()))
			return nil
		}
	}

	// Attempt to use a custom unmarshaler if available.
	handled, err := ds.tryCustomUnmarshal(node, rv)
	if err != nil {
		return err
	}
	if handled {
		return nil
	}

	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			rv.Set(reflect.New(rv.Type().Elem()))
		}
		rv = rv.Elem()
	}

	if rv.Kind() == reflect.Interface {
		return ds.mapInterface(node, rv)
	}
	if !rv.CanSet() {
		return fmt.Errorf("toon: cannot set value of type %s", rv.Type())
	}

	switch node.Kind() {
	case value.KindNull:
		rv.Set(reflect.Zero(rv.Type()))
		return nil
	case value.KindBool:
		return ds.mapBool(node, rv)
	case value.KindNumber:
		return ds.mapNumber(node, rv)
	case value.KindString:
		return ds.mapString(node, rv)
	case value.KindArray:
		switch rv.Kind() {
		case reflect.Slice:
			return ds.mapSlice(node, rv)
		case reflect.Array:
			return ds.mapArray(node, rv)
		default:
			return fmt.Errorf("toon: cannot unmarshal array into Go value of type %s", rv.Type())
		}
	case value.KindObject:
		switch rv.Kind() {
		case reflect.Struct:
			return ds.mapStruct(node, rv)
		case reflect.Map:
			return ds.mapMap(node, rv)
		default:
			return fmt.Errorf("toon: cannot unmarshal object into Go value of type %s", rv.Type())
		}
	default:
		return fmt.Errorf("toon: mapping for value kind %s not implemented", node.Kind())
	}
}

// tryCustomUnmarshal attempts to use a custom unmarshaler (toon.Unmarshaler
// or encoding.TextUnmarshaler) on the given reflect.Value. It returns true
// if a custom unmarshaler was found and used, in which case the caller
// should not proceed with default unmarshaling.
func (ds *decodeState) tryCustomUnmarshal(node *value.Value, rv reflect.Value) (bool, error) {
	if !rv.CanAddr() {
		return false, nil
	}
	pv := rv.Addr()
	if !pv.CanInterface() {
		return false, nil
	}

	if u, ok := pv.Interface().(Unmarshaler); ok {
		text := encoder.Encode(node, encoder.Options{IndentSize: 2, Delimiter: lexical.Comma})
		if err := u.UnmarshalTOON([]byte(text)); err != nil {
			return true, &UnmarshalerError{Type: pv.Type(), Err: err}
		}
		return true, nil
	}

	if u, ok := pv.Interface().(encoding.TextUnmarshaler); ok {
		if node.Kind() != value.KindString {
			// TextUnmarshaler can only be used on string values.
			return false, nil
		}
		if err := u.UnmarshalText([]byte(node.Str())); err != nil {
			return true, &UnmarshalerError{Type: pv.Type(), Err: err}
		}
		return true, nil
	}

	return false, nil
}

func (ds *decodeState) mapString(node *value.Value, rv reflect.Value) error {
	if rv.Kind() != reflect.String {
		return fmt.Errorf("toon: cannot unmarshal string into Go value of type %s", rv.Type())
	}
	rv.SetString(node.Str())
	return nil
}

func (ds *decodeState) mapBool(node *value.Value, rv reflect.Value) error {
	if rv.Kind() != reflect.Bool {
		return fmt.Errorf("toon: cannot unmarshal bool into Go value of type %s", rv.Type())
	}
	rv.SetBool(node.Bool())
	return nil
}

func (ds *decodeState) mapNumber(node *value.Value, rv reflect.Value) error {
	f := node.Number()
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if math.Trunc(f) != f {
			return fmt.Errorf("toon: cannot unmarshal number %v into Go value of type %s", f, rv.Type())
		}
		if f < -9223372036854775808 || f >= 9223372036854775808 {
			return fmt.Errorf("toon: number %v overflows Go value of type %s", f, rv.Type())
		}
		n := int64(f)
		if rv.OverflowInt(n) {
			return fmt.Errorf("toon: number %v overflows Go value of type %s", f, rv.Type())
		}
		rv.SetInt(n)
		return nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		if math.Trunc(f) != f || f < 0 {
			return fmt.Errorf("toon: cannot unmarshal number %v into Go value of type %s", f, rv.Type())
		}
		if f >= 18446744073709551616 {
			return fmt.Errorf("toon: number %v overflows Go value of type %s", f, rv.Type())
		}
		n := uint64(f)
		if rv.OverflowUint(n) {
			return fmt.Errorf("toon: number %v overflows Go value of type %s", f, rv.Type())
		}
		rv.SetUint(n)
		return nil
	case reflect.Float32, reflect.Float64:
		if rv.OverflowFloat(f) {
			return fmt.Errorf("toon: number %v overflows Go value of type %s", f, rv.Type())
		}
		rv.SetFloat(f)
		return nil
	default:
		return fmt.Errorf("toon: cannot unmarshal number into Go value of type %s", rv.Type())
	}
}

func (ds *decodeState) mapSlice(node *value.Value, rv reflect.Value) error {
	n := node.Len()
	newSlice := reflect.MakeSlice(rv.Type(), n, n)
	for i, elem := range node.Elems() {
		if err := ds.mapValue(elem, newSlice.Index(i)); err != nil {
			return err
		}
	}
	rv.Set(newSlice)
	return nil
}

func (ds *decodeState) mapArray(node *value.Value, rv reflect.Value) error {
	if rv.Len() != node.Len() {
		return fmt.Errorf("toon: cannot unmarshal array of length %d into Go array of length %d", node.Len(), rv.Len())
	}
	for i, elem := range node.Elems() {
		if err := ds.mapValue(elem, rv.Index(i)); err != nil {
			return err
		}
	}
	return nil
}

func (ds *decodeState) mapMap(node *value.Value, rv reflect.Value) error {
	mapType := rv.Type()
	if mapType.Key().Kind() != reflect.String {
		return fmt.Errorf("toon: cannot unmarshal object into map with non-string key type %s", mapType.Key())
	}
	if rv.IsNil() {
		rv.Set(reflect.MakeMap(mapType))
	} else {
		for _, k := range rv.MapKeys() {
			rv.SetMapIndex(k, reflect.Value{}) // The zero Value deletes the key
		}
	}
	elemType := mapType.Elem()
	for _, f := range node.Fields() {
		newVal := reflect.New(elemType).Elem()
		if err := ds.mapValue(f.Value, newVal); err != nil {
			return err
		}
		rv.SetMapIndex(reflect.ValueOf(f.Key).Convert(mapType.Key()), newVal)
	}
	return nil
}

func (ds *decodeState) mapStruct(node *value.Value, rv reflect.Value) error {
	fields := cachedFields(rv.Type())
	for _, pair := range node.Fields() {
		if targetField := findField(fields, pair.Key); targetField != nil {
			fieldVal := rv.FieldByIndex(targetField.idx)
			if fieldVal.IsValid() && fieldVal.CanSet() {
				if err := ds.mapValue(pair.Value, fieldVal); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (ds *decodeState) mapInterface(node *value.Value, rv reflect.Value) error {
	if rv.NumMethod() != 0 {
		return fmt.Errorf("toon: cannot unmarshal into non-empty interface %s", rv.Type())
	}
	var concreteVal reflect.Value
	switch node.Kind() {
	case value.KindNull:
		return nil
	case value.KindBool:
		var b bool
		concreteVal = reflect.ValueOf(&b).Elem()
	case value.KindNumber:
		var f float64
		concreteVal = reflect.ValueOf(&f).Elem()
	case value.KindString:
		var s string
		concreteVal = reflect.ValueOf(&s).Elem()
	case value.KindArray:
		var a []any
		concreteVal = reflect.ValueOf(&a).Elem()
	case value.KindObject:
		var o map[string]any
		concreteVal = reflect.ValueOf(&o).Elem()
	default:
		return fmt.Errorf("toon: cannot determine concrete type for interface{} for value kind %s", node.Kind())
	}
	if err := ds.mapValue(node, concreteVal); err != nil {
		return err
	}
	rv.Set(concreteVal)
	return nil
}

// findField finds the target field in a struct's cached fields. It first
// attempts a case-sensitive match, then falls back to a case-insensitive
// match.
func findField(fields map[string]field, keyStr string) *field {
	if f, ok := fields[keyStr]; ok {
		return &f
	}
	if f, ok := fields[strings.ToLower(keyStr)]; ok {
		return &f
	}
	return nil
}

// A field represents a single field in a struct.
type field struct {
	idx []int
}

// fieldCache caches a map of struct field names to their properties.
var fieldCache sync.Map // map[reflect.Type]map[string]field

// cachedFields returns a map of field names to field properties for the
// given type. The result is cached to avoid repeated reflection work.
func cachedFields(t reflect.Type) map[string]field {
	if f, ok := fieldCache.Load(t); ok {
		if fields, ok := f.(map[string]field); ok {
			return fields
		}
	}

	fields := make(map[string]field)
	var walk func(t reflect.Type, idx []int)
	walk = func(t reflect.Type, idx []int) {
		for i := 0; i < t.NumField(); i++ {
			sf := t.Field(i)
			if sf.Anonymous && sf.Type.Kind() == reflect.Struct {
				// Recurse into embedded structs.
				walk(sf.Type, append(idx, i))
				continue
			}
			if !sf.IsExported() {
				continue
			}

			tag := sf.Tag.Get("toon")
			if tag == "-" {
				continue
			}

			f := field{idx: append(append([]int(nil), idx...), i)}
			tagName := strings.Split(tag, ",")[0]

			// Store entries for the original tag name and field name.
			if tagName != "" {
				fields[tagName] = f
			}
			fields[sf.Name] = f

			// Store lower-cased versions for case-insensitive fallback,
			// but do not overwrite an existing case-sensitive match.
			if tagName != "" {
				lowerTagName := strings.ToLower(tagName)
				if _, ok := fields[lowerTagName]; !ok {
					fields[lowerTagName] = f
				}
			}
			lowerFieldName := strings.ToLower(sf.Name)
			if _, ok := fields[lowerFieldName]; !ok {
				fields[lowerFieldName] = f
			}
		}
	}
	walk(t, nil)

	fieldCache.Store(t, fields)
	return fields
}
