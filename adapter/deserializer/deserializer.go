// Package deserializer contains the default [domain.Deserializer]
// implementation.
//
// Input is JSON, optionally inside a zstd frame, which is detected by its
// magic number. Numbers are read as ints when integral and as float64
// otherwise; {"$$date": <unix milliseconds>} objects are read as
// [time.Time].
package deserializer

import (
	"bytes"
	"context"
	"io"
	"math"
	"time"

	"github.com/dolmen-go/contextio"
	jsoniter "github.com/json-iterator/go"
	"github.com/klauspost/compress/zstd"

	"github.com/dadi/api-filestore/adapter/decoder"
	"github.com/dadi/api-filestore/domain"
)

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

var api = jsoniter.Config{
	EscapeHTML:             true,
	SortMapKeys:            true,
	ValidateJsonRawMessage: true,
	UseNumber:              true,
}.Froze()

type number interface {
	String() string
	Int64() (int64, error)
	Float64() (float64, error)
}

// NewDeserializer returns a new instance of domain.Deserializer.
func NewDeserializer(opts ...Option) domain.Deserializer {
	d := Deserializer{}
	for _, opt := range opts {
		opt(&d)
	}
	if d.decoder == nil {
		d.decoder = decoder.NewDecoder()
	}
	return &d
}

// Deserializer implements [domain.Deserializer].
type Deserializer struct {
	decoder domain.Decoder
}

// IsCompressed reports whether b holds a zstd frame.
func IsCompressed(b []byte) bool {
	return bytes.HasPrefix(b, zstdMagic)
}

// Deserialize implements [domain.Deserializer].
func (d *Deserializer) Deserialize(ctx context.Context, b []byte, target any) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	if target == nil {
		return domain.ErrTargetNil{}
	}

	var r io.Reader = contextio.NewReader(ctx, bytes.NewReader(b))
	if IsCompressed(b) {
		zr, err := zstd.NewReader(r)
		if err != nil {
			return err
		}
		defer zr.Close()
		r = zr
	}
	dec := api.NewDecoder(r)

	switch t := target.(type) {
	case *domain.Snapshot:
		if err := dec.Decode(t); err != nil {
			return err
		}
		for n := range t.Collections {
			for i, doc := range t.Collections[n].Data {
				t.Collections[n].Data[i] = convertMap(doc)
			}
		}
		return nil
	case *map[string]any:
		var m map[string]any
		if err := dec.Decode(&m); err != nil {
			return err
		}
		*t = convertMap(m)
		return nil
	default:
		var v any
		if err := dec.Decode(&v); err != nil {
			return err
		}
		return d.decoder.Decode(convert(v), target)
	}
}

func convertMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	for k, v := range m {
		m[k] = convert(v)
	}
	return m
}

func convert(v any) any {
	switch t := v.(type) {
	case map[string]any:
		if len(t) == 1 {
			if date, ok := asDate(t["$$date"]); ok {
				return date
			}
		}
		return convertMap(t)
	case []any:
		for n, item := range t {
			t[n] = convert(item)
		}
		return t
	case number:
		return convertNumber(t)
	default:
		return v
	}
}

func convertNumber(n number) any {
	if i, err := n.Int64(); err == nil && i >= math.MinInt && i <= math.MaxInt {
		return int(i)
	}
	f, err := n.Float64()
	if err != nil {
		return n.String()
	}
	return f
}

func asDate(v any) (time.Time, bool) {
	n, ok := v.(number)
	if !ok {
		return time.Time{}, false
	}
	ms, err := n.Int64()
	if err != nil {
		f, err := n.Float64()
		if err != nil {
			return time.Time{}, false
		}
		ms = int64(f)
	}
	return time.UnixMilli(ms).UTC(), true
}
