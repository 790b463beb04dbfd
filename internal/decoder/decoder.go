// Package decoder turns TOON text back into a value tree.
//
// The input is split into lines up front; a single cursor then moves
// forward through the mutually recursive readers, so backtracking is
// impossible and every error carries the exact 1-based line number.
package decoder

import (
	"fmt"
	"strconv"
	"strings"

	toonerr "github.com/toonfmt/go-toon/errors"
	"github.com/toonfmt/go-toon/internal/lexical"
	"github.com/toonfmt/go-toon/internal/value"
)

// Options holds the fixed per-invocation decoder configuration.
type Options struct {
	IndentSize int
	Strict     bool
	MaxDepth   int
}

const defaultMaxDepth = 1000

// Decode parses input and returns the root of the value tree. Every
// returned error is a *errors.DecodeError.
func Decode(input string, opts Options) (*value.Value, error) {
	if opts.IndentSize <= 0 {
		opts.IndentSize = 2
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = defaultMaxDepth
	}
	lines, err := scanLines(input, opts)
	if err != nil {
		return nil, err
	}
	p := &parser{lines: lines, opts: opts}
	return p.parseDocument()
}

// line is one physical input line with its indentation resolved.
type line struct {
	num   int // 1-based
	depth int
	text  string // content after indentation
	blank bool
}

// scanLines splits input on LF, normalizes a trailing CR per line, and
// resolves each line's depth. In strict mode tabs in indentation and
// space counts that are not a multiple of the indent size are fatal; in
// lax mode a tab counts as one indent unit and the depth rounds down.
func scanLines(input string, opts Options) ([]line, error) {
	raw := strings.Split(input, "\n")
	lines := make([]line, 0, len(raw))
	for i, r := range raw {
		r = strings.TrimSuffix(r, "\r")
		num := i + 1
		spaces, tabs, content := lexical.MeasureIndent(r)
		if strings.TrimSpace(content) == "" {
			lines = append(lines, line{num: num, blank: true})
			continue
		}
		var depth int
		if opts.Strict {
			if tabs > 0 {
				return nil, decodeErrCol(num, spaces+1, "tab character in indentation")
			}
			if spaces%opts.IndentSize != 0 {
				return nil, decodeErr(num, "indentation of %d spaces is not a multiple of %d", spaces, opts.IndentSize)
			}
			depth = spaces / opts.IndentSize
		} else {
			depth = (spaces + tabs*opts.IndentSize) / opts.IndentSize
		}
		lines = append(lines, line{num: num, depth: depth, text: content})
	}
	return lines, nil
}

type parser struct {
	lines []line
	pos   int
	opts  Options
}

func (p *parser) parseDocument() (*value.Value, error) {
	first := -1
	for i, l := range p.lines {
		if !l.blank {
			first = i
			break
		}
	}
	if first == -1 {
		if p.opts.Strict {
			return nil, decodeErr(1, "empty input")
		}
		return value.Object(), nil
	}

	fl := p.lines[first]
	if fl.depth > 0 {
		return nil, decodeErr(fl.num, "first line must be at depth 0")
	}
	p.pos = first

	if isRootArrayHeader(fl.text) {
		return p.parseRootArray(fl)
	}

	if lexical.IndexUnquoted(fl.text, ':') == -1 && p.soleNonBlank(first) {
		p.pos = len(p.lines)
		return p.parsePrimitive(strings.TrimSpace(fl.text), fl.num)
	}

	return p.readObject(0, p.opts.MaxDepth)
}

// isRootArrayHeader reports whether text opens a keyless array header:
// a '[' at column one with an unquoted ']' before the first unquoted ':'.
func isRootArrayHeader(text string) bool {
	if !strings.HasPrefix(text, "[") {
		return false
	}
	ci := lexical.IndexUnquoted(text, ':')
	if ci == -1 {
		return false
	}
	return lexical.IndexUnquoted(text[:ci], ']') != -1
}

func (p *parser) parseRootArray(fl line) (*value.Value, error) {
	ci := lexical.IndexUnquoted(fl.text, ':')
	headerPart := strings.TrimSpace(fl.text[:ci])
	tail := strings.TrimLeft(fl.text[ci+1:], " ")
	p.pos++
	arr, err := p.parseArrayFromParts(headerPart, tail, fl, 0, p.opts.MaxDepth)
	if err != nil {
		return nil, err
	}
	if p.opts.Strict {
		for _, l := range p.lines[p.pos:] {
			if !l.blank {
				return nil, decodeErr(l.num, "unexpected line after root array")
			}
		}
	}
	return arr, nil
}

// soleNonBlank reports whether the line at index i is the only non-blank
// line of the document.
func (p *parser) soleNonBlank(i int) bool {
	for j, l := range p.lines {
		if j != i && !l.blank {
			return false
		}
	}
	return true
}

func (p *parser) readObject(depth, budget int) (*value.Value, error) {
	obj := value.Object()
	seen := make(map[string]bool)
	if err := p.readObjectInto(obj, seen, depth, budget); err != nil {
		return nil, err
	}
	return obj, nil
}

// readObjectInto consumes consecutive key-value lines at the given depth
// and appends them to obj. It stops at the first line of lesser depth.
func (p *parser) readObjectInto(obj *value.Value, seen map[string]bool, depth, budget int) error {
	if budget <= 0 {
		return decodeErr(p.curLineNum(), "maximum nesting depth exceeded")
	}
	for p.pos < len(p.lines) {
		l := p.lines[p.pos]
		if l.blank {
			p.pos++
			continue
		}
		if l.depth < depth {
			return nil
		}
		if l.depth > depth && p.opts.Strict {
			return decodeErr(l.num, "unexpected indentation")
		}
		p.pos++
		if err := p.parseField(obj, seen, l, depth, budget); err != nil {
			return err
		}
	}
	return nil
}

// parseField handles one key-value line whose fields sit at depth; any
// child lines of the value are read at depth+1.
func (p *parser) parseField(obj *value.Value, seen map[string]bool, l line, depth, budget int) error {
	ci := lexical.IndexUnquoted(l.text, ':')
	if ci == -1 {
		if p.opts.Strict {
			return decodeErr(l.num, "missing ':' after key")
		}
		key, err := p.parseKey(strings.TrimSpace(l.text), l.num)
		if err != nil {
			return err
		}
		return p.addField(obj, seen, key, value.String(""), l.num)
	}

	keyPart := strings.TrimSpace(l.text[:ci])
	tail := strings.TrimLeft(l.text[ci+1:], " ")

	if bi := lexical.IndexUnquoted(keyPart, '['); bi != -1 {
		keyText := strings.TrimSpace(keyPart[:bi])
		if keyText == "" {
			return decodeErr(l.num, "array header requires a key")
		}
		key, err := p.parseKey(keyText, l.num)
		if err != nil {
			return err
		}
		arr, err := p.parseArrayFromParts(keyPart[bi:], tail, l, depth, budget)
		if err != nil {
			return err
		}
		return p.addField(obj, seen, key, arr, l.num)
	}

	key, err := p.parseKey(keyPart, l.num)
	if err != nil {
		return err
	}

	if tail != "" {
		v, err := p.parsePrimitive(strings.TrimSpace(tail), l.num)
		if err != nil {
			return err
		}
		return p.addField(obj, seen, key, v, l.num)
	}

	// Nothing after the colon: a nested object when the following line
	// is deeper, the empty object otherwise.
	if next := p.peekNonBlank(); next != nil && next.depth > depth {
		child, err := p.readObject(depth+1, budget-1)
		if err != nil {
			return err
		}
		return p.addField(obj, seen, key, child, l.num)
	}
	return p.addField(obj, seen, key, value.Object(), l.num)
}

func (p *parser) addField(obj *value.Value, seen map[string]bool, key string, v *value.Value, num int) error {
	if seen[key] {
		return decodeErr(num, "duplicate object key %q", key)
	}
	seen[key] = true
	obj.AppendField(key, v)
	return nil
}

// parseKey resolves a key token: quoted keys honor escape sequences,
// unquoted keys must satisfy the identifier predicate in strict mode.
func (p *parser) parseKey(text string, num int) (string, error) {
	if strings.HasPrefix(text, "\"") {
		key, err := lexical.Unquote(text)
		if err != nil {
			return "", decodeErr(num, "%s", err.Error())
		}
		return key, nil
	}
	if p.opts.Strict && !lexical.IsIdentifierKey(text) {
		return "", decodeErr(num, "invalid unquoted key %q", text)
	}
	return text, nil
}

// parsePrimitive interprets a trimmed text segment as a scalar. Empty
// text is the empty string; quoted text unescapes; the three literal
// tokens map to null and the booleans; a valid number lexeme parses as a
// float; anything else, including a leading-zero digit pattern, stays a
// string.
func (p *parser) parsePrimitive(text string, num int) (*value.Value, error) {
	if text == "" {
		return value.String(""), nil
	}
	if text[0] == '"' {
		s, err := lexical.Unquote(text)
		if err != nil {
			return nil, decodeErr(num, "%s", err.Error())
		}
		return value.String(s), nil
	}
	switch text {
	case "null":
		return value.Null(), nil
	case "true":
		return value.Bool(true), nil
	case "false":
		return value.Bool(false), nil
	}
	if lexical.IsNumberLexeme(text) {
		// Values outside the f64 range stay strings rather than
		// collapsing to an infinity that cannot be re-encoded.
		if f, err := strconv.ParseFloat(text, 64); err == nil {
			return value.Number(f), nil
		}
		return value.String(text), nil
	}
	return value.String(text), nil
}

// peekNonBlank returns the next non-blank line without moving the cursor.
func (p *parser) peekNonBlank() *line {
	for i := p.pos; i < len(p.lines); i++ {
		if !p.lines[i].blank {
			return &p.lines[i]
		}
	}
	return nil
}

func (p *parser) curLineNum() int {
	if p.pos < len(p.lines) {
		return p.lines[p.pos].num
	}
	if n := len(p.lines); n > 0 {
		return p.lines[n-1].num
	}
	return 1
}

func decodeErr(num int, format string, args ...any) *toonerr.DecodeError {
	return &toonerr.DecodeError{Message: fmt.Sprintf(format, args...), Line: num}
}

func decodeErrCol(num, col int, format string, args ...any) *toonerr.DecodeError {
	return &toonerr.DecodeError{Message: fmt.Sprintf(format, args...), Line: num, Column: col}
}
