package deserializer

import "github.com/dadi/api-filestore/domain"

// WithDecoder sets the [domain.Decoder] used for targets other than
// snapshots and maps.
func WithDecoder(d domain.Decoder) Option {
	return func(ds *Deserializer) {
		ds.decoder = d
	}
}

// Option configures deserializer behavior through the functional options
// pattern.
type Option func(*Deserializer)
