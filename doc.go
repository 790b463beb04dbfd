/*
Package toon encodes and decodes TOON, a line-oriented, indentation-based
text format for JSON-equivalent trees, designed to be compact and easy
for language models to read. The API closely mirrors the standard
`encoding/json` package.

The Marshal and Unmarshal functions convert between Go values and TOON
text:

	type Item struct {
		SKU   string  `toon:"sku"`
		Qty   int     `toon:"qty"`
		Price float64 `toon:"price"`
	}

	data, err := toon.Marshal(map[string]any{"id": 123, "name": "Ada"})
	if err != nil {
		// handle error
	}
	// data is "id: 123\nname: Ada"

	var items struct {
		Items []Item `toon:"items"`
	}
	input := []byte("items[2]{sku,qty,price}:\n  A1,2,9.99\n  B2,1,14.5")
	if err := toon.Unmarshal(input, &items); err != nil {
		// handle error
	}

Uniform arrays of flat objects encode as tables with a single header
row, arrays of primitives encode on one line, and everything else falls
back to a hyphen list. Strings are quoted only when their content would
otherwise be ambiguous.

Output and parsing are configured with functional options such as
Indent, WithDelimiter, LengthMarker and Lenient:

	data, err = toon.Marshal(v, toon.WithDelimiter(toon.Pipe), toon.LengthMarker())

By default the decoder is strict: declared array lengths must match the
body, indentation must be exact, and duplicate keys are rejected. The
Lenient option downgrades the quantitative checks to a best-effort
parse; truly malformed input (unterminated strings, bad headers) stays
fatal. Decode failures are reported as *errors.DecodeError values
carrying the 1-based input line.

Customization is available via struct field tags (e.g.
`toon:"key,omitempty"`) and by implementing the Marshaler and
Unmarshaler interfaces.
*/
package toon
