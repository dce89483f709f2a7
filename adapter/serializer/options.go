package serializer

import jsoniter "github.com/json-iterator/go"

// WithMode sets the serialization [Mode].
func WithMode(m Mode) Option {
	return func(s *Serializer) {
		if m != "" {
			s.mode = m
		}
	}
}

// WithAPI sets the jsoniter configuration used to encode values.
func WithAPI(api jsoniter.API) Option {
	return func(s *Serializer) {
		if api != nil {
			s.api = api
		}
	}
}

// Option configures serializer behavior through the functional options
// pattern.
type Option func(*Serializer)
