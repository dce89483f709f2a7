// Package serializer contains the default [domain.Serializer] implementation.
//
// Values are encoded as JSON. Dates become {"$$date": <unix milliseconds>}
// objects, the only "$$" field the datafile format knows about. The
// compressed mode wraps the JSON in a zstd frame.
package serializer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dolmen-go/contextio"
	jsoniter "github.com/json-iterator/go"
	"github.com/klauspost/compress/zstd"

	"github.com/dadi/api-filestore/domain"
)

// Mode selects the layout of the serialized bytes.
type Mode string

// Serialization modes.
const (
	ModeNormal     Mode = "normal"
	ModePretty     Mode = "pretty"
	ModeCompressed Mode = "compressed"
)

// ParseMode returns the [Mode] with the given name. An empty name is
// [ModeNormal].
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case "":
		return ModeNormal, nil
	case ModeNormal, ModePretty, ModeCompressed:
		return m, nil
	default:
		return "", fmt.Errorf("unknown serialization mode %q", s)
	}
}

// Serializer implements domain.Serializer.
type Serializer struct {
	mode Mode
	api  jsoniter.API
}

// NewSerializer returns a new implementation of domain.Serializer.
func NewSerializer(opts ...Option) domain.Serializer {
	s := Serializer{
		mode: ModeNormal,
		api:  jsoniter.ConfigCompatibleWithStandardLibrary,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return &s
}

// Serialize implements domain.Serializer.
func (s *Serializer) Serialize(ctx context.Context, obj any) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	switch t := obj.(type) {
	case *domain.Snapshot:
		obj = s.snapshot(t)
	case domain.Snapshot:
		obj = s.snapshot(&t)
	default:
		obj = s.copyAny(obj)
	}

	buf := new(bytes.Buffer)
	var w io.Writer = contextio.NewWriter(ctx, buf)

	var zw *zstd.Encoder
	if s.mode == ModeCompressed {
		var err error
		if zw, err = zstd.NewWriter(w); err != nil {
			return nil, err
		}
		w = zw
	}

	enc := s.api.NewEncoder(w)
	if s.mode == ModePretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(obj); err != nil {
		if zw != nil {
			_ = zw.Close()
		}
		return nil, err
	}
	if zw != nil {
		if err := zw.Close(); err != nil {
			return nil, err
		}
	}

	if s.mode == ModeCompressed {
		return buf.Bytes(), nil
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
}

func (s *Serializer) snapshot(snap *domain.Snapshot) *domain.Snapshot {
	res := *snap
	res.SerializationMethod = string(s.mode)
	res.Collections = make([]domain.CollectionSnapshot, len(snap.Collections))
	for n, coll := range snap.Collections {
		res.Collections[n] = coll
		res.Collections[n].Data = make([]map[string]any, len(coll.Data))
		for i, doc := range coll.Data {
			res.Collections[n].Data[i] = s.copyMap(doc)
		}
	}
	return &res
}

func (s *Serializer) copyMap(doc map[string]any) map[string]any {
	res := make(map[string]any, len(doc))
	for k, v := range doc {
		res[k] = s.copyAny(v)
	}
	return res
}

func (s *Serializer) copyAny(v any) any {
	switch t := v.(type) {
	case domain.Document:
		res := make(map[string]any, t.Len())
		for k, item := range t.Iter() {
			res[k] = s.copyAny(item)
		}
		return res
	case map[string]any:
		return s.copyMap(t)
	case []any:
		newList := make([]any, len(t))
		for n, itm := range t {
			newList[n] = s.copyAny(itm)
		}
		return newList
	case time.Time:
		return map[string]any{"$$date": t.UnixMilli()}
	default:
		return v
	}
}
