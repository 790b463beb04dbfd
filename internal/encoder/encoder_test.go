package encoder_test

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/toonfmt/go-toon/internal/encoder"
	"github.com/toonfmt/go-toon/internal/lexical"
	"github.com/toonfmt/go-toon/internal/value"
)

func obj(fields ...value.Field) *value.Value { return value.Object(fields...) }
func fld(k string, v *value.Value) value.Field {
	return value.Field{Key: k, Value: v}
}
func num(f float64) *value.Value { return value.Number(f) }
func str(s string) *value.Value  { return value.String(s) }

func defaults() encoder.Options {
	return encoder.Options{IndentSize: 2, Delimiter: lexical.Comma}
}

func TestEncodeObjects(t *testing.T) {
	testCases := []struct {
		name string
		in   *value.Value
		want string
	}{
		{
			"simple object",
			obj(fld("id", num(123)), fld("name", str("Ada")), fld("active", value.Bool(true))),
			"id: 123\nname: Ada\nactive: true",
		},
		{
			"nested object",
			obj(fld("user", obj(fld("id", num(123)), fld("name", str("Ada"))))),
			"user:\n  id: 123\n  name: Ada",
		},
		{
			"empty root object",
			obj(),
			"",
		},
		{
			"empty object value",
			obj(fld("meta", obj())),
			"meta:",
		},
		{
			"null and bool values",
			obj(fld("a", value.Null()), fld("b", value.Bool(false))),
			"a: null\nb: false",
		},
		{
			"deeply nested",
			obj(fld("a", obj(fld("b", obj(fld("c", num(1))))))),
			"a:\n  b:\n    c: 1",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, encoder.Encode(tc.in, defaults()))
		})
	}
}

func TestEncodeRootPrimitives(t *testing.T) {
	require.Equal(t, "null", encoder.Encode(value.Null(), defaults()))
	require.Equal(t, "true", encoder.Encode(value.Bool(true), defaults()))
	require.Equal(t, "42", encoder.Encode(num(42), defaults()))
	require.Equal(t, "hello", encoder.Encode(str("hello"), defaults()))
	require.Equal(t, `"123"`, encoder.Encode(str("123"), defaults()))
}

func TestEncodeArrays(t *testing.T) {
	testCases := []struct {
		name string
		in   *value.Value
		want string
	}{
		{
			"inline strings",
			obj(fld("tags", value.Array(str("admin"), str("ops"), str("dev")))),
			"tags[3]: admin,ops,dev",
		},
		{
			"inline mixed primitives",
			obj(fld("vals", value.Array(num(1), str("x"), value.Bool(true), value.Null()))),
			"vals[4]: 1,x,true,null",
		},
		{
			"empty array",
			obj(fld("tags", value.Array())),
			"tags[0]:",
		},
		{
			"root array",
			value.Array(num(1), num(2), num(3)),
			"[3]: 1,2,3",
		},
		{
			"tabular",
			obj(fld("items", value.Array(
				obj(fld("sku", str("A1")), fld("qty", num(2)), fld("price", num(9.99))),
				obj(fld("sku", str("B2")), fld("qty", num(1)), fld("price", num(14.5))),
			))),
			"items[2]{sku,qty,price}:\n  A1,2,9.99\n  B2,1,14.5",
		},
		{
			"tabular with null cell",
			obj(fld("rows", value.Array(
				obj(fld("a", num(1)), fld("b", value.Null())),
				obj(fld("a", num(2)), fld("b", str("x"))),
			))),
			"rows[2]{a,b}:\n  1,null\n  2,x",
		},
		{
			"key order mismatch falls back to list",
			obj(fld("rows", value.Array(
				obj(fld("a", num(1)), fld("b", num(2))),
				obj(fld("b", num(3)), fld("a", num(4))),
			))),
			"rows[2]:\n  - a: 1\n    b: 2\n  - b: 3\n    a: 4",
		},
		{
			"non-primitive cell falls back to list",
			obj(fld("rows", value.Array(
				obj(fld("a", value.Array(num(1)))),
				obj(fld("a", value.Array(num(2)))),
			))),
			"rows[2]:\n  - a[1]: 1\n  - a[1]: 2",
		},
		{
			"expanded list of primitives and objects",
			obj(fld("items", value.Array(
				obj(fld("id", num(1)), fld("name", str("first"))),
				num(7),
			))),
			"items[2]:\n  - id: 1\n    name: first\n  - 7",
		},
		{
			"object item with nested object first field",
			obj(fld("list", value.Array(
				obj(fld("user", obj(fld("id", num(1)))), fld("name", str("x"))),
			))),
			"list[1]:\n  - user:\n      id: 1\n    name: x",
		},
		{
			"nested arrays in list items",
			obj(fld("m", value.Array(
				value.Array(num(1), num(2)),
				value.Array(obj(fld("a", num(1)))),
			))),
			"m[2]:\n  - [2]: 1,2\n  - [1]:\n    - a: 1",
		},
		{
			"empty object item is a bare hyphen",
			obj(fld("list", value.Array(obj(), num(1)))),
			"list[2]:\n  -\n  - 1",
		},
		{
			"empty string item is quoted",
			obj(fld("list", value.Array(str(""), obj(fld("a", num(1)))))),
			"list[2]:\n  - \"\"\n  - a: 1",
		},
		{
			"root expanded list",
			value.Array(obj(fld("a", num(1))), obj(fld("b", num(2)))),
			"[2]:\n  - a: 1\n  - b: 2",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, encoder.Encode(tc.in, defaults()))
		})
	}
}

func TestEncodeDelimiters(t *testing.T) {
	tags := obj(fld("tags", value.Array(str("a"), str("b"))))

	t.Run("pipe with length marker", func(t *testing.T) {
		opts := encoder.Options{IndentSize: 2, Delimiter: lexical.Pipe, LengthMarker: true}
		require.Equal(t, "tags[#2|]: a|b", encoder.Encode(tags, opts))
	})

	t.Run("tab delimiter", func(t *testing.T) {
		opts := encoder.Options{IndentSize: 2, Delimiter: lexical.Tab}
		require.Equal(t, "tags[2\t]: a\tb", encoder.Encode(tags, opts))
	})

	t.Run("comma has no header suffix", func(t *testing.T) {
		require.Equal(t, "tags[2]: a,b", encoder.Encode(tags, defaults()))
	})

	t.Run("tabular header uses delimiter", func(t *testing.T) {
		rows := obj(fld("rows", value.Array(
			obj(fld("a", num(1)), fld("b", num(2))),
		)))
		opts := encoder.Options{IndentSize: 2, Delimiter: lexical.Pipe}
		require.Equal(t, "rows[1|]{a|b}:\n  1|2", encoder.Encode(rows, opts))
	})

	t.Run("value containing pipe is quoted under pipe", func(t *testing.T) {
		v := obj(fld("vals", value.Array(str("a|b"))))
		opts := encoder.Options{IndentSize: 2, Delimiter: lexical.Pipe}
		require.Equal(t, "vals[1|]: \"a|b\"", encoder.Encode(v, opts))
	})
}

func TestEncodeQuoting(t *testing.T) {
	in := obj(
		fld("colon", str("a:b")),
		fld("comma", str("a,b")),
		fld("newline", str("a\nb")),
		fld("empty", str("")),
	)
	want := "colon: \"a:b\"\ncomma: \"a,b\"\nnewline: \"a\\nb\"\nempty: \"\""
	require.Equal(t, want, encoder.Encode(in, defaults()))
}

func TestEncodeKeyForms(t *testing.T) {
	testCases := []struct {
		name string
		in   *value.Value
		want string
	}{
		{"identifier key", obj(fld("a_b.c", num(1))), "a_b.c: 1"},
		{"spaced key", obj(fld("a b", num(1))), `"a b": 1`},
		{"empty key", obj(fld("", num(1))), `"": 1`},
		{"numeric key", obj(fld("42", num(1))), `"42": 1`},
		{"key with colon", obj(fld("a:b", num(1))), `"a:b": 1`},
		{"key with escapes", obj(fld("a\nb", num(1))), `"a\nb": 1`},
		{"quoted key on array", obj(fld("my tags", value.Array(num(1)))), `"my tags"[1]: 1`},
		{"quoted field names in tabular", obj(fld("rows", value.Array(
			obj(fld("field a", num(1))),
		))), "rows[1]{\"field a\"}:\n  1"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, encoder.Encode(tc.in, defaults()))
		})
	}
}

func TestEncodeNumbers(t *testing.T) {
	testCases := []struct {
		name string
		f    float64
		want string
	}{
		{"integer", 123, "123"},
		{"negative", -7, "-7"},
		{"fraction", 9.99, "9.99"},
		{"trailing zeros trimmed", 2.5, "2.5"},
		{"zero", 0, "0"},
		{"negative zero", math.Copysign(0, -1), "0"},
		{"large magnitude stays fixed point", 1e21, "1000000000000000000000"},
		{"small magnitude stays fixed point", 1e-7, "0.0000001"},
		{"nan is null", math.NaN(), "null"},
		{"positive infinity is null", math.Inf(1), "null"},
		{"negative infinity is null", math.Inf(-1), "null"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, encoder.FormatNumber(tc.f))
		})
	}
}

func TestEncodeIndentSize(t *testing.T) {
	in := obj(fld("user", obj(fld("id", num(1)))))
	opts := encoder.Options{IndentSize: 4, Delimiter: lexical.Comma}
	require.Equal(t, "user:\n    id: 1", encoder.Encode(in, opts))
}

func TestEncodeInvariants(t *testing.T) {
	in := obj(
		fld("user", obj(fld("id", num(1)), fld("scores", value.Array(num(1.5), num(2))))),
		fld("items", value.Array(obj(fld("a", num(1))), num(2))),
	)
	out := encoder.Encode(in, defaults())

	require.False(t, strings.HasSuffix(out, "\n"), "no trailing newline")
	for _, line := range strings.Split(out, "\n") {
		indent := len(line) - len(strings.TrimLeft(line, " "))
		require.Zero(t, indent%2, "indentation must be a multiple of the indent size: %q", line)
		require.False(t, strings.Contains(line[:indent], "\t"))
	}
	require.NotRegexp(t, `[eE][+-]?[0-9]`, out, "no exponent form in output")
}
