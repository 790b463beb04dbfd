// Package encoder renders a value tree as TOON text.
//
// The walk picks one of three shapes per array: inline when every
// element is a primitive, tabular when the elements are uniformly keyed
// primitive-valued objects, and an expanded hyphen list otherwise.
// Output lines are LF-separated with no trailing newline.
package encoder

import (
	"math"
	"strconv"
	"strings"

	"github.com/toonfmt/go-toon/internal/lexical"
	"github.com/toonfmt/go-toon/internal/value"
)

// Options holds the fixed per-invocation encoder configuration.
type Options struct {
	IndentSize   int
	Delimiter    lexical.Delimiter
	LengthMarker bool
}

// Encode renders v as TOON text. Encoding never mutates v.
func Encode(v *value.Value, opts Options) string {
	e := &encoder{opts: opts}
	e.encodeRoot(v)
	return e.sb.String()
}

type encoder struct {
	sb    strings.Builder
	opts  Options
	lines int
}

type shape uint8

const (
	shapeInline shape = iota
	shapeTabular
	shapeExpanded
)

func (e *encoder) encodeRoot(v *value.Value) {
	switch v.Kind() {
	case value.KindObject:
		for _, f := range v.Fields() {
			e.beginLine(0)
			e.encodeField(f.Key, f.Value, 0)
		}
	case value.KindArray:
		e.beginLine(0)
		e.encodeArray("", false, v, 0, true)
	default:
		e.beginLine(0)
		e.sb.WriteString(e.formatPrimitive(v))
	}
}

// beginLine starts a new output line at the given depth. The very first
// line of the document gets no leading newline.
func (e *encoder) beginLine(depth int) {
	if e.lines > 0 {
		e.sb.WriteByte('\n')
	}
	e.lines++
	if depth > 0 {
		e.sb.WriteString(lexical.Indent(depth, e.opts.IndentSize))
	}
}

// encodeField writes a key and its value starting at the current line
// position. Child lines are emitted at depth+1.
func (e *encoder) encodeField(key string, v *value.Value, depth int) {
	switch v.Kind() {
	case value.KindArray:
		e.encodeArray(key, true, v, depth, true)
	case value.KindObject:
		e.sb.WriteString(e.formatKey(key))
		e.sb.WriteByte(':')
		for _, f := range v.Fields() {
			e.beginLine(depth + 1)
			e.encodeField(f.Key, f.Value, depth+1)
		}
	default:
		e.sb.WriteString(e.formatKey(key))
		e.sb.WriteString(": ")
		e.sb.WriteString(e.formatPrimitive(v))
	}
}

func (e *encoder) encodeArray(key string, hasKey bool, v *value.Value, depth int, allowTabular bool) {
	s := e.shapeOf(v, allowTabular)

	if hasKey {
		e.sb.WriteString(e.formatKey(key))
	}
	e.sb.WriteByte('[')
	if e.opts.LengthMarker {
		e.sb.WriteByte('#')
	}
	e.sb.WriteString(strconv.Itoa(v.Len()))
	e.sb.WriteString(e.opts.Delimiter.HeaderSuffix())
	e.sb.WriteByte(']')

	switch s {
	case shapeInline:
		e.sb.WriteByte(':')
		if v.Len() == 0 {
			return
		}
		e.sb.WriteByte(' ')
		for i, elem := range v.Elems() {
			if i > 0 {
				e.sb.WriteRune(rune(e.opts.Delimiter))
			}
			e.sb.WriteString(e.formatPrimitive(elem))
		}
	case shapeTabular:
		fields := v.Elems()[0].Fields()
		e.sb.WriteByte('{')
		for i, f := range fields {
			if i > 0 {
				e.sb.WriteRune(rune(e.opts.Delimiter))
			}
			e.sb.WriteString(e.formatKey(f.Key))
		}
		e.sb.WriteString("}:")
		for _, row := range v.Elems() {
			e.beginLine(depth + 1)
			for i, f := range row.Fields() {
				if i > 0 {
					e.sb.WriteRune(rune(e.opts.Delimiter))
				}
				e.sb.WriteString(e.formatPrimitive(f.Value))
			}
		}
	case shapeExpanded:
		e.sb.WriteByte(':')
		for _, elem := range v.Elems() {
			e.encodeListItem(elem, depth+1)
		}
	}
}

// encodeListItem writes one "- " line of an expanded list. An object
// item carries its first field on the hyphen line; the rest follow one
// depth below the hyphen. A nested array item renders inline when its
// elements are all primitives, expanded otherwise.
func (e *encoder) encodeListItem(elem *value.Value, depth int) {
	e.beginLine(depth)
	switch elem.Kind() {
	case value.KindObject:
		if elem.Len() == 0 {
			e.sb.WriteByte('-')
			return
		}
		e.sb.WriteString("- ")
		fields := elem.Fields()
		e.encodeField(fields[0].Key, fields[0].Value, depth+1)
		for _, f := range fields[1:] {
			e.beginLine(depth + 1)
			e.encodeField(f.Key, f.Value, depth+1)
		}
	case value.KindArray:
		e.sb.WriteString("- ")
		e.encodeArray("", false, elem, depth, false)
	default:
		e.sb.WriteString("- ")
		e.sb.WriteString(e.formatPrimitive(elem))
	}
}

func (e *encoder) shapeOf(v *value.Value, allowTabular bool) shape {
	if v.Len() == 0 {
		return shapeInline
	}
	inline := true
	for _, elem := range v.Elems() {
		if !elem.IsPrimitive() {
			inline = false
			break
		}
	}
	if inline {
		return shapeInline
	}
	if allowTabular && tabularEligible(v) {
		return shapeTabular
	}
	return shapeExpanded
}

// tabularEligible reports whether every element is an object sharing the
// first element's key set in the same order, with primitive values only.
// Null cells are primitives and do not disqualify the table.
func tabularEligible(v *value.Value) bool {
	first := v.Elems()[0]
	if first.Kind() != value.KindObject || first.Len() == 0 {
		return false
	}
	keys := first.Fields()
	for _, elem := range v.Elems() {
		if elem.Kind() != value.KindObject || elem.Len() != len(keys) {
			return false
		}
		for i, f := range elem.Fields() {
			if f.Key != keys[i].Key || !f.Value.IsPrimitive() {
				return false
			}
		}
	}
	return true
}

func (e *encoder) formatPrimitive(v *value.Value) string {
	switch v.Kind() {
	case value.KindNull:
		return "null"
	case value.KindBool:
		if v.Bool() {
			return "true"
		}
		return "false"
	case value.KindNumber:
		return FormatNumber(v.Number())
	case value.KindString:
		s := v.Str()
		if lexical.NeedsQuoting(s, e.opts.Delimiter) {
			return lexical.Quote(s)
		}
		return s
	default:
		return "null"
	}
}

func (e *encoder) formatKey(key string) string {
	if lexical.IsIdentifierKey(key) {
		return key
	}
	return lexical.Quote(key)
}

// FormatNumber renders a float in fixed-point form, shortest digits that
// round-trip, never scientific notation. Negative zero renders as "0";
// NaN and the infinities are not representable and render as "null".
func FormatNumber(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "null"
	}
	if f == 0 {
		return "0"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
