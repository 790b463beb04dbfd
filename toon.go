package toon

import "bytes"

// Marshaler is the interface implemented by types that
// can marshal themselves into valid TOON.
type Marshaler interface {
	MarshalTOON() ([]byte, error)
}

// Unmarshaler is the interface implemented by types that
// can unmarshal a TOON description of themselves.
type Unmarshaler interface {
	UnmarshalTOON([]byte) error
}

// Marshal returns the TOON encoding of v.
func Marshal(v any, opts ...Option) ([]byte, error) {
	var buf bytes.Buffer
	e := NewEncoder(&buf, opts...)
	if err := e.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal parses the TOON-encoded data and stores the result
// in the value pointed to by v.
func Unmarshal(data []byte, v any, opts ...Option) error {
	o, err := applyOptions(opts)
	if err != nil {
		return err
	}
	return unmarshal(data, v, o)
}
