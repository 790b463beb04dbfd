package toon

import (
	"fmt"

	"github.com/toonfmt/go-toon/internal/decoder"
	"github.com/toonfmt/go-toon/internal/encoder"
	"github.com/toonfmt/go-toon/internal/lexical"
)

// Delimiter selects the separator used between inline array values and
// tabular cells.
type Delimiter = lexical.Delimiter

const (
	Comma = lexical.Comma
	Tab   = lexical.Tab
	Pipe  = lexical.Pipe
)

const defaultMaxDepth = 1000

type options struct {
	indentSize   int
	delimiter    Delimiter
	lengthMarker bool
	strict       bool
	maxDepth     int
}

// Option configures encoding or decoding.
type Option func(*options) error

func applyOptions(opts []Option) (options, error) {
	o := options{
		indentSize: 2,
		delimiter:  Comma,
		strict:     true,
		maxDepth:   defaultMaxDepth,
	}
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return o, err
		}
	}
	return o, nil
}

func (o options) encoderOptions() encoder.Options {
	return encoder.Options{
		IndentSize:   o.indentSize,
		Delimiter:    o.delimiter,
		LengthMarker: o.lengthMarker,
	}
}

func (o options) decoderOptions() decoder.Options {
	return decoder.Options{
		IndentSize: o.indentSize,
		Strict:     o.strict,
		MaxDepth:   o.maxDepth,
	}
}

// Indent returns an Option that sets the number of spaces per structural
// level. The size n must be between 1 and 8; the default is 2.
func Indent(n int) Option {
	return func(o *options) error {
		if n < 1 || n > 8 {
			return fmt.Errorf("toon: indent size must be between 1 and 8")
		}
		o.indentSize = n
		return nil
	}
}

// WithDelimiter returns an Option that sets the document delimiter used
// for arrays and tables. The default is Comma.
func WithDelimiter(d Delimiter) Option {
	return func(o *options) error {
		if !d.Valid() {
			return fmt.Errorf("toon: invalid delimiter")
		}
		o.delimiter = d
		return nil
	}
}

// LengthMarker returns an Option that prepends '#' to the element count
// inside array headers. The marker is semantically inert.
func LengthMarker() Option {
	return func(o *options) error {
		o.lengthMarker = true
		return nil
	}
}

// Lenient returns an Option that disables strict decoding: count and
// indentation checks become best-effort instead of fatal. Lexical
// errors such as unterminated strings remain fatal.
func Lenient() Option {
	return func(o *options) error {
		o.strict = false
		return nil
	}
}

// MaxDepth returns an Option that sets the maximum nesting depth for
// both decoding and the reflection walk. This helps prevent stack
// overflows on highly nested input.
//
// The depth n must be a positive integer.
func MaxDepth(n int) Option {
	return func(o *options) error {
		if n <= 0 {
			return fmt.Errorf("toon: max depth must be a positive integer")
		}
		o.maxDepth = n
		return nil
	}
}
