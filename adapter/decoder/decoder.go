// Package decoder contains the default [domain.Decoder] implementation.
//
// Decoding is done by mapstructure using the "filestore" struct tag. Documents
// in the source are turned into plain maps first, so they can be decoded into
// any struct. Projections are decoded from either a list of field names or a
// map of field names to flags.
package decoder

import (
	"fmt"
	"reflect"
	"time"

	goreflect "github.com/goccy/go-reflect"
	"github.com/mitchellh/mapstructure"

	"github.com/dadi/api-filestore/adapter/comparer"
	"github.com/dadi/api-filestore/adapter/data"
	"github.com/dadi/api-filestore/domain"
)

var (
	docReflectType        = goreflect.TypeOf((*domain.Document)(nil)).Elem()
	projectionReflectType = reflect.TypeOf((*domain.Projection)(nil)).Elem()
)

// ErrDecode is returned when the source cannot be decoded into the target.
type ErrDecode struct {
	Source any
	Target any
}

// Error implements [error].
func (e ErrDecode) Error() string {
	return fmt.Sprintf("cannot decode %T into %T", e.Source, e.Target)
}

// Decoder implements domain.Decoder.
type Decoder struct{}

// NewDecoder returns a new implementation of domain.Decoder.
func NewDecoder() domain.Decoder {
	return &Decoder{}
}

// Decode implements domain.Decoder.
func (d *Decoder) Decode(source any, target any) error {
	if target == nil {
		return domain.ErrTargetNil{}
	}

	value := goreflect.ValueNoEscapeOf(target)
	if value.Kind() != goreflect.Ptr {
		return domain.ErrNonPointer{Target: target}
	}

	if !value.Type().Elem().Implements(docReflectType) {
		source = d.adjustDoc(source)
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: data.TagName,
		Result:  target,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			projectionHook,
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToTimeHookFunc(time.RFC3339),
		),
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(source); err != nil {
		errDec := ErrDecode{Source: source, Target: target}
		return fmt.Errorf("%w: %w", errDec, err)
	}
	return nil
}

// DecodeFindOptions reads find options from a generic value, usually parsed
// from JSON.
func (d *Decoder) DecodeFindOptions(source any) (domain.FindOptions, error) {
	var opts domain.FindOptions
	if source == nil {
		return opts, nil
	}
	if err := d.Decode(source, &opts); err != nil {
		return domain.FindOptions{}, err
	}
	return opts, nil
}

// DecodeIndexSpecs reads index specifications from a generic value. A single
// specification is accepted as well as a list.
func (d *Decoder) DecodeIndexSpecs(source any) ([]domain.IndexSpec, error) {
	source = d.adjustDoc(source)
	if m, ok := source.(map[string]any); ok {
		source = []any{m}
	}
	var specs []domain.IndexSpec
	if err := d.Decode(source, &specs); err != nil {
		return nil, err
	}
	return specs, nil
}

func (d *Decoder) adjustDoc(value any) any {
	switch t := value.(type) {
	case domain.Document:
		doc := make(map[string]any, t.Len())
		for k, v := range t.Iter() {
			doc[k] = d.adjustDoc(v)
		}
		return doc
	case []any:
		lst := make([]any, len(t))
		for n, v := range t {
			lst[n] = d.adjustDoc(v)
		}
		return lst
	default:
		return value
	}
}

func projectionHook(from reflect.Type, to reflect.Type, value any) (any, error) {
	if to != projectionReflectType {
		return value, nil
	}
	switch t := value.(type) {
	case nil, domain.FieldList, domain.FieldMap:
		return t, nil
	case []string:
		return domain.FieldList(t), nil
	case []any:
		res := make(domain.FieldList, len(t))
		for n, item := range t {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("projection field must be a string, got %T", item)
			}
			res[n] = s
		}
		return res, nil
	case map[string]any:
		res := make(domain.FieldMap, len(t))
		for k, v := range t {
			flag, err := projectionFlag(v)
			if err != nil {
				return nil, fmt.Errorf("projection of %q: %w", k, err)
			}
			res[k] = flag
		}
		return res, nil
	case map[string]int:
		return domain.FieldMap(t), nil
	default:
		return nil, fmt.Errorf("unexpected projection type %s", from)
	}
}

func projectionFlag(v any) (int, error) {
	if b, ok := v.(bool); ok {
		if b {
			return 1, nil
		}
		return 0, nil
	}
	n, ok := comparer.AsNumber(v)
	if !ok {
		return 0, fmt.Errorf("flag must be a number or a boolean, got %T", v)
	}
	if n.Sign() == 0 {
		return 0, nil
	}
	return 1, nil
}
