package decoder

import (
	"strconv"
	"strings"

	"github.com/toonfmt/go-toon/internal/lexical"
	"github.com/toonfmt/go-toon/internal/value"
)

// header is the parsed form of an array introduction: the declared
// count, the effective delimiter, and the tabular field names if the
// header carried a {...} segment.
type header struct {
	count     int
	delim     lexical.Delimiter
	fields    []string
	hasFields bool
	marker    bool
}

// parseArrayFromParts parses an array whose header text (starting at
// '[') and inline tail have already been cut from the line. depth is the
// depth of the header line; body lines are read at depth+1.
func (p *parser) parseArrayFromParts(headerPart, tail string, l line, depth, budget int) (*value.Value, error) {
	if budget <= 0 {
		return nil, decodeErr(l.num, "maximum nesting depth exceeded")
	}
	h, err := p.parseHeader(headerPart, l)
	if err != nil {
		return nil, err
	}
	if h.hasFields {
		if tail != "" {
			return nil, decodeErr(l.num, "unexpected inline values after tabular header")
		}
		return p.readTabular(h, l, depth, budget)
	}
	if tail != "" {
		return p.readInline(h, tail, l)
	}
	return p.readExpanded(h, l, depth, budget)
}

// parseHeader validates the '[#N<delim>]' segment and the optional
// '{fields}' that may follow it.
func (p *parser) parseHeader(headerPart string, l line) (header, error) {
	h := header{delim: lexical.Comma}
	ri := lexical.IndexUnquoted(headerPart, ']')
	if len(headerPart) == 0 || headerPart[0] != '[' || ri == -1 {
		return h, decodeErr(l.num, "malformed array header")
	}
	body := headerPart[1:ri]
	rest := strings.TrimSpace(headerPart[ri+1:])

	if strings.HasPrefix(body, "#") {
		h.marker = true
		body = body[1:]
	}
	switch {
	case strings.HasSuffix(body, "\t"):
		h.delim = lexical.Tab
		body = body[:len(body)-1]
	case strings.HasSuffix(body, "|"):
		h.delim = lexical.Pipe
		body = body[:len(body)-1]
	}
	count, err := strconv.Atoi(body)
	if err != nil || count < 0 || strings.ContainsAny(body, "+- ") {
		return h, decodeErr(l.num, "invalid array length %q", body)
	}
	h.count = count

	if rest != "" {
		if !strings.HasPrefix(rest, "{") || !strings.HasSuffix(rest, "}") {
			return h, decodeErr(l.num, "malformed array header")
		}
		h.hasFields = true
		inner := rest[1 : len(rest)-1]
		if inner != "" {
			seen := make(map[string]bool)
			for _, cell := range lexical.SplitDelimited(inner, h.delim) {
				name, err := p.parseKey(strings.TrimSpace(cell), l.num)
				if err != nil {
					return h, err
				}
				if seen[name] {
					return h, decodeErr(l.num, "duplicate object key %q", name)
				}
				seen[name] = true
				h.fields = append(h.fields, name)
			}
		}
	}
	return h, nil
}

// readInline splits the header line's tail by the header delimiter and
// parses each cell as a primitive.
func (p *parser) readInline(h header, tail string, l line) (*value.Value, error) {
	cells := lexical.SplitDelimited(tail, h.delim)
	arr := value.Array()
	for _, cell := range cells {
		v, err := p.parsePrimitive(strings.TrimSpace(cell), l.num)
		if err != nil {
			return nil, err
		}
		arr.Append(v)
	}
	if p.opts.Strict && arr.Len() != h.count {
		return nil, decodeErr(l.num, "expected %d array elements, got %d", h.count, arr.Len())
	}
	return arr, nil
}

// bodyLine fetches the next line of an array body at depth. It skips or
// rejects blank lines depending on whether the body continues past them,
// and reports done when the body has ended.
func (p *parser) bodyLine(depth int) (line, bool, error) {
	for p.pos < len(p.lines) {
		l := p.lines[p.pos]
		if l.blank {
			next := p.peekNonBlank()
			if next == nil || next.depth < depth {
				return line{}, true, nil
			}
			if p.opts.Strict {
				return line{}, false, decodeErr(l.num, "blank line inside array")
			}
			p.pos++
			continue
		}
		if l.depth < depth {
			return line{}, true, nil
		}
		if l.depth > depth && p.opts.Strict {
			return line{}, false, decodeErr(l.num, "unexpected indentation")
		}
		return l, false, nil
	}
	return line{}, true, nil
}

// readTabular reads consecutive row lines at depth+1 and zips each with
// the header's field names.
func (p *parser) readTabular(h header, l line, depth, budget int) (*value.Value, error) {
	arr := value.Array()
	for {
		row, done, err := p.bodyLine(depth + 1)
		if err != nil {
			return nil, err
		}
		if done || !isTabularRow(row.text, h.delim) {
			break
		}
		p.pos++
		cells := lexical.SplitDelimited(row.text, h.delim)
		if p.opts.Strict && len(cells) != len(h.fields) {
			return nil, decodeErr(row.num, "tabular row has %d values, expected %d", len(cells), len(h.fields))
		}
		obj := value.Object()
		for i, cell := range cells {
			if i >= len(h.fields) {
				break
			}
			v, err := p.parsePrimitive(strings.TrimSpace(cell), row.num)
			if err != nil {
				return nil, err
			}
			obj.AppendField(h.fields[i], v)
		}
		arr.Append(obj)
	}
	if p.opts.Strict && arr.Len() != h.count {
		return nil, decodeErr(l.num, "expected %d array elements, got %d", h.count, arr.Len())
	}
	return arr, nil
}

// isTabularRow reports whether a line at body depth is a data row: its
// first unquoted delimiter comes before the first unquoted ':', or it
// has no unquoted ':' at all.
func isTabularRow(text string, d lexical.Delimiter) bool {
	ci := lexical.IndexUnquoted(text, ':')
	if ci == -1 {
		return true
	}
	di := lexical.IndexUnquoted(text, byte(d))
	return di != -1 && di < ci
}

// readExpanded reads consecutive '- ' item lines at depth+1.
func (p *parser) readExpanded(h header, l line, depth, budget int) (*value.Value, error) {
	arr := value.Array()
	itemDepth := depth + 1
	for {
		ln, done, err := p.bodyLine(itemDepth)
		if err != nil {
			return nil, err
		}
		if done {
			break
		}
		if ln.text != "-" && !strings.HasPrefix(ln.text, "- ") {
			break
		}
		var itemText string
		if ln.text != "-" {
			itemText = ln.text[2:]
		}
		p.pos++
		elem, err := p.parseListItem(itemText, ln, itemDepth, budget)
		if err != nil {
			return nil, err
		}
		arr.Append(elem)
	}
	if p.opts.Strict && arr.Len() != h.count {
		return nil, decodeErr(l.num, "expected %d array elements, got %d", h.count, arr.Len())
	}
	return arr, nil
}

// parseListItem interprets the text after the hyphen: a nested array
// when it opens with '[', a primitive when it has no unquoted ':', and
// otherwise an object whose first field sits on the hyphen line with the
// remaining fields one depth below it.
func (p *parser) parseListItem(itemText string, ln line, itemDepth, budget int) (*value.Value, error) {
	t := strings.TrimSpace(itemText)

	if strings.HasPrefix(t, "[") {
		ci := lexical.IndexUnquoted(t, ':')
		if ci == -1 {
			return nil, decodeErr(ln.num, "malformed array header")
		}
		headerPart := strings.TrimSpace(t[:ci])
		tail := strings.TrimLeft(t[ci+1:], " ")
		return p.parseArrayFromParts(headerPart, tail, ln, itemDepth, budget-1)
	}

	if lexical.IndexUnquoted(t, ':') == -1 {
		return p.parsePrimitive(t, ln.num)
	}

	obj := value.Object()
	seen := make(map[string]bool)
	virtual := line{num: ln.num, depth: itemDepth + 1, text: t}
	if err := p.parseField(obj, seen, virtual, itemDepth+1, budget-1); err != nil {
		return nil, err
	}
	if err := p.readObjectInto(obj, seen, itemDepth+1, budget-1); err != nil {
		return nil, err
	}
	return obj, nil
}
