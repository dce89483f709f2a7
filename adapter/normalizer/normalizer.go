// Package normalizer rewrites caller filters into the query form accepted by
// the engine matcher.
//
// Caller filters may hold several fields, several operators per field, regex
// literals and nulls. The engine only accepts objects holding a single
// expression and treats null and missing fields differently, so the filter is
// split into single-expression objects joined by $and.
package normalizer

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/dadi/api-filestore/adapter/data"
	"github.com/dadi/api-filestore/domain"
)

// ErrOperatorArg is returned when a logic operator or $regex receives an
// operand of the wrong type.
type ErrOperatorArg struct {
	Operator string
	Want     string
	Actual   any
}

// Error implements [error].
func (e ErrOperatorArg) Error() string {
	return fmt.Sprintf("%s expects %s, got %T", e.Operator, e.Want, e.Actual)
}

// Normalizer implements [domain.Normalizer].
type Normalizer struct {
	documentFactory domain.DocumentFactory
}

// NewNormalizer returns a new implementation of [domain.Normalizer].
func NewNormalizer(opts ...Option) domain.Normalizer {
	n := &Normalizer{
		documentFactory: data.NewDocument,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize implements [domain.Normalizer]. An empty filter returns an empty
// document, a filter with a single expression returns that expression and
// any other filter returns {"$and": [expressions...]} in filter order.
func (n *Normalizer) Normalize(filter any) (domain.Document, error) {
	if filter == nil {
		return data.M{}, nil
	}
	doc, err := n.documentFactory(filter)
	if err != nil {
		return nil, err
	}
	exprs, err := n.expand(doc)
	if err != nil {
		return nil, err
	}
	return join(exprs), nil
}

func join(exprs []any) domain.Document {
	switch len(exprs) {
	case 0:
		return data.M{}
	case 1:
		return exprs[0].(data.M)
	default:
		return data.M{"$and": exprs}
	}
}

func (n *Normalizer) expand(doc domain.Document) ([]any, error) {
	exprs := make([]any, 0, doc.Len())
	for key, value := range doc.Iter() {
		if !strings.HasPrefix(key, "$") {
			fieldExprs, err := n.field(key, value)
			if err != nil {
				return nil, err
			}
			exprs = append(exprs, fieldExprs...)
			continue
		}

		switch key {
		case "$and":
			items, err := n.list(key, value)
			if err != nil {
				return nil, err
			}
			for _, item := range items {
				sub, err := n.expand(item)
				if err != nil {
					return nil, err
				}
				exprs = append(exprs, sub...)
			}
		case "$or":
			items, err := n.list(key, value)
			if err != nil {
				return nil, err
			}
			branches := make([]any, 0, len(items))
			for _, item := range items {
				sub, err := n.expand(item)
				if err != nil {
					return nil, err
				}
				branches = append(branches, join(sub))
			}
			exprs = append(exprs, data.M{"$or": branches})
		case "$not":
			sub, err := n.Normalize(value)
			if err != nil {
				return nil, err
			}
			exprs = append(exprs, data.M{"$not": sub})
		default:
			return nil, domain.ErrUnknownOperator{Operator: key}
		}
	}
	return exprs, nil
}

func (n *Normalizer) list(op string, value any) ([]domain.Document, error) {
	items, ok := value.([]any)
	if !ok {
		if docs, ok := value.([]map[string]any); ok {
			items = make([]any, len(docs))
			for i, d := range docs {
				items[i] = d
			}
		} else if docs, ok := value.([]data.M); ok {
			items = make([]any, len(docs))
			for i, d := range docs {
				items[i] = d
			}
		} else {
			return nil, ErrOperatorArg{Operator: op, Want: "a list of filters", Actual: value}
		}
	}
	res := make([]domain.Document, len(items))
	for i, item := range items {
		doc, err := n.documentFactory(item)
		if err != nil {
			return nil, fmt.Errorf("%s item %d: %w", op, i, err)
		}
		res[i] = doc
	}
	return res, nil
}

func (n *Normalizer) field(field string, value any) ([]any, error) {
	switch t := value.(type) {
	case nil:
		return []any{data.M{field: data.M{"$exists": false}}}, nil
	case *regexp.Regexp:
		return []any{regexExpr(field, data.RegexOf(t))}, nil
	case data.Regex:
		return []any{regexExpr(field, t)}, nil
	}

	sub, ok := asDocument(value)
	if !ok {
		return []any{data.M{field: value}}, nil
	}

	var dollar, total int
	for key := range sub.Keys() {
		total++
		if strings.HasPrefix(key, "$") {
			dollar++
		}
	}
	if dollar == 0 {
		// literal sub-document, matched by deep equality
		return []any{data.M{field: data.CloneDocument(sub)}}, nil
	}
	if dollar != total {
		return nil, fmt.Errorf("field %q: %w", field, domain.ErrMixedOperators)
	}
	return n.operators(field, sub)
}

func (n *Normalizer) operators(field string, sub domain.Document) ([]any, error) {
	exprs := make([]any, 0, sub.Len())
	for op, operand := range sub.Iter() {
		switch op {
		case "$options":
			if !sub.Has("$regex") {
				return nil, domain.ErrUnknownOperator{Operator: op}
			}
			continue
		case "$regex":
			rx, err := regexOperand(operand, sub.Get("$options"))
			if err != nil {
				return nil, err
			}
			exprs = append(exprs, regexExpr(field, rx))
			continue
		case "$ne":
			if operand == nil {
				operand = domain.Undefined
			}
		}
		exprs = append(exprs, data.M{field: data.M{op: operand}})
	}
	return exprs, nil
}

func regexOperand(operand, options any) (data.Regex, error) {
	var rx data.Regex
	switch t := operand.(type) {
	case string:
		rx.Pattern = t
	case *regexp.Regexp:
		rx = data.RegexOf(t)
	case data.Regex:
		rx = t
	default:
		return rx, ErrOperatorArg{Operator: "$regex", Want: "a pattern", Actual: operand}
	}
	if options != nil {
		flags, ok := options.(string)
		if !ok {
			return rx, ErrOperatorArg{Operator: "$options", Want: "a string", Actual: options}
		}
		rx.Flags = flags
	}
	return rx, nil
}

func regexExpr(field string, rx data.Regex) data.M {
	return data.M{field: data.M{"$regex": []any{rx.Pattern, rx.Flags}}}
}

func asDocument(v any) (domain.Document, bool) {
	switch t := v.(type) {
	case domain.Document:
		return t, true
	case map[string]any:
		return data.M(t), true
	default:
		return nil, false
	}
}
