// Package modifier contains a [domain.Modifier] implementation to apply changes
// to a doc based on a mongo-like API.
//
// Only operator updates are accepted. Every top level key of an update must
// be one of the supported operators, whose value maps field addresses to
// operator arguments.
package modifier

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/dadi/api-filestore/adapter/comparer"
	"github.com/dadi/api-filestore/adapter/data"
	"github.com/dadi/api-filestore/adapter/fieldnavigator"
	"github.com/dadi/api-filestore/adapter/matcher"
	"github.com/dadi/api-filestore/domain"
)

var (
	// ErrNonObject is returned when a modifier value passed by user is not
	// an object.
	ErrNonObject = errors.New("modifier value must be an object")
	// ErrInvalidPushField is returned when user passes some field other
	// than $slice and $each when using $push modifier.
	ErrInvalidPushField = errors.New("can only use $slice in conjunction with $each when $push to array")
	// ErrInvalidAddToSetField is returned when user passes some field other
	// than $each when using $addToSet modifier.
	ErrInvalidAddToSetField = errors.New("cannot use another field in conjunction with $each")
)

type modFunc func(doc domain.Document, field string, addr []string, arg any) error

type sliceProps struct {
	each       []any
	hasEach    bool
	slice      int
	hasSlice   bool
	usedFields int
}

// Modifier implements [domain.Modifier].
type Modifier struct {
	comp           domain.Comparer
	docFac         domain.DocumentFactory
	fieldNavigator domain.FieldNavigator
	matcherFac     domain.MatcherFactory
	mods           map[string]modFunc
}

// NewModifier returns a new implementation of [domain.Modifier].
func NewModifier(opts ...Option) domain.Modifier {
	m := &Modifier{
		comp:   comparer.NewComparer(),
		docFac: data.NewDocument,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.fieldNavigator == nil {
		m.fieldNavigator = fieldnavigator.NewFieldNavigator(m.docFac)
	}
	if m.matcherFac == nil {
		m.matcherFac = func() domain.Matcher {
			return matcher.NewMatcher(
				matcher.WithDocumentFactory(m.docFac),
				matcher.WithComparer(m.comp),
				matcher.WithFieldNavigator(m.fieldNavigator),
				matcher.WithCompoundQueries(true),
			)
		}
	}

	m.mods = map[string]modFunc{
		"$set":      m.set,
		"$unset":    m.unset,
		"$inc":      m.inc,
		"$push":     m.push,
		"$addToSet": m.addToSet,
		"$pop":      m.pop,
		"$pull":     m.pull,
		"$max":      m.max,
		"$min":      m.min,
	}

	return m
}

type modCall struct {
	name string
	fn   modFunc
	args domain.Document
}

// Apply implements [domain.Modifier]. The update is validated once, before
// any document is modified, so an invalid update never yields a partial
// result.
func (m *Modifier) Apply(update any, docs []domain.Document) ([]domain.Document, error) {
	calls, err := m.modCalls(update)
	if err != nil {
		return nil, err
	}
	res := make([]domain.Document, len(docs))
	for n, doc := range docs {
		if res[n], err = m.modify(doc, calls); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// Modify implements [domain.Modifier].
func (m *Modifier) Modify(obj domain.Document, update any) (domain.Document, error) {
	calls, err := m.modCalls(update)
	if err != nil {
		return nil, err
	}
	return m.modify(obj, calls)
}

func (m *Modifier) modCalls(update any) ([]modCall, error) {
	mod, err := m.docFac(update)
	if err != nil {
		return nil, err
	}

	calls := make([]modCall, 0, mod.Len())
	for name, arg := range mod.Iter() {
		fn, ok := m.mods[name]
		if !ok {
			return nil, domain.ErrUnsupportedOperator{Operator: name}
		}
		d, ok := arg.(domain.Document)
		if !ok {
			return nil, fmt.Errorf("%s: %w", name, ErrNonObject)
		}
		calls = append(calls, modCall{name: name, fn: fn, args: d})
	}
	return calls, nil
}

func (m *Modifier) modify(obj domain.Document, calls []modCall) (domain.Document, error) {
	docCopy := data.CloneDocument(obj)

	for _, call := range calls {
		for key, arg := range call.args.Iter() {
			if err := m.checkField(obj, key); err != nil {
				return nil, err
			}
			addr, err := m.fieldNavigator.GetAddress(key)
			if err != nil {
				return nil, err
			}
			if err := call.fn(docCopy, key, addr, arg); err != nil {
				return nil, fmt.Errorf("modifying field %q: %w", key, err)
			}
		}
	}

	for _, key := range []string{domain.FieldID, domain.FieldLoki} {
		if obj.Has(key) != docCopy.Has(key) {
			return nil, domain.ErrCannotModifyID
		}
		c, err := m.comp.Compare(obj.Get(key), docCopy.Get(key))
		if err != nil {
			return nil, err
		}
		if c != 0 {
			return nil, domain.ErrCannotModifyID
		}
	}

	return docCopy, nil
}

// checkField rejects updates to the engine fields and to field names the
// engine cannot store.
func (m *Modifier) checkField(obj domain.Document, key string) error {
	root, _, _ := strings.Cut(key, ".")
	if root == domain.FieldLoki || root == domain.FieldMeta {
		return domain.ErrCannotModifyID
	}
	if strings.HasPrefix(root, "$") {
		return domain.ErrFieldName{Field: key, Reason: "field names cannot start with '$'"}
	}
	if root == domain.FieldID && key != domain.FieldID && obj.Has(domain.FieldID) {
		return domain.ErrCannotModifyID
	}
	return nil
}

func (m *Modifier) set(obj domain.Document, _ string, addr []string, arg any) error {
	fields, err := m.fieldNavigator.EnsureField(obj, addr...)
	if err != nil {
		return err
	}
	for _, field := range fields {
		field.Set(data.Clone(arg))
	}
	return nil
}

func (m *Modifier) unset(obj domain.Document, _ string, addr []string, _ any) error {
	fields, _, err := m.fieldNavigator.GetField(obj, addr...)
	if err != nil {
		return err
	}
	for _, field := range fields {
		if _, defined := field.Get(); defined {
			field.Unset()
		}
	}
	return nil
}

func (m *Modifier) inc(obj domain.Document, key string, addr []string, v any) error {
	if _, ok := comparer.AsNumber(v); !ok {
		return domain.ErrModifierType{Operator: "$inc", Field: key, Reason: fmt.Sprintf("argument must be a number, got %T", v)}
	}
	fields, err := m.fieldNavigator.EnsureField(obj, addr...)
	if err != nil {
		return err
	}
	for _, field := range fields {
		value, defined := field.Get()
		if !defined || value == nil {
			field.Set(v)
			continue
		}
		sum, ok := add(value, v)
		if !ok {
			return domain.ErrModifierType{Operator: "$inc", Field: key, Reason: fmt.Sprintf("field must be a number, got %T", value)}
		}
		field.Set(sum)
	}
	return nil
}

// add sums two numbers. Two ints stay an int and two other integers become
// an int64, unless the sum overflows. Anything else becomes a float64.
func add(a, b any) (any, bool) {
	x, okA := comparer.AsNumber(a)
	y, okB := comparer.AsNumber(b)
	if !okA || !okB {
		return nil, false
	}
	sum := x.Add(x, y)
	if sum.IsInt() && isInteger(a) && isInteger(b) {
		if n, acc := sum.Int64(); acc == 0 {
			_, aInt := a.(int)
			_, bInt := b.(int)
			if aInt && bInt && n >= math.MinInt && n <= math.MaxInt {
				return int(n), true
			}
			return n, true
		}
	}
	f, _ := sum.Float64()
	return f, true
}

func isInteger(v any) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	default:
		return false
	}
}

func asInt(v any) (int, bool) {
	n, ok := comparer.AsNumber(v)
	if !ok || !n.IsInt() {
		return 0, false
	}
	i, acc := n.Int64()
	if acc != 0 || i < math.MinInt || i > math.MaxInt {
		return 0, false
	}
	return int(i), true
}

func (m *Modifier) array(mod, key string, field domain.GetSetter) ([]any, error) {
	value, defined := field.Get()
	if !defined || value == nil {
		return []any{}, nil
	}
	array, ok := value.([]any)
	if !ok {
		return nil, domain.ErrModifierType{Operator: mod, Field: key, Reason: fmt.Sprintf("field must be an array, got %T", value)}
	}
	return array, nil
}

func (m *Modifier) push(obj domain.Document, key string, addr []string, v any) error {
	fields, err := m.fieldNavigator.EnsureField(obj, addr...)
	if err != nil {
		return err
	}
	for _, field := range fields {
		array, err := m.array("$push", key, field)
		if err != nil {
			return err
		}

		values := append(array, data.Clone(v))
		if d, ok := v.(domain.Document); ok && d.Has("$each") {
			values, err = m.getPushItems(key, d, array)
			if err != nil {
				return err
			}
		}

		field.Set(values)
	}
	return nil
}

func (m *Modifier) getSliceProperties(mod, key string, d domain.Document) (*sliceProps, error) {
	res := &sliceProps{hasEach: d.Has("$each")}

	var each any = []any{d}
	if res.hasEach {
		res.usedFields++
		each = d.Get("$each")
	}

	list, ok := each.([]any)
	if !ok {
		return nil, domain.ErrModifierType{Operator: mod, Field: key, Reason: fmt.Sprintf("$each requires an array, got %T", each)}
	}
	res.each = data.Clone(list).([]any)

	if d.Has("$slice") {
		s, ok := asInt(d.Get("$slice"))
		if !ok {
			return nil, domain.ErrModifierType{Operator: mod, Field: key, Reason: "$slice requires an integer"}
		}
		res.usedFields++
		res.slice = s
		res.hasSlice = true
	}

	return res, nil
}

func (m *Modifier) getPushItems(key string, d domain.Document, array []any) ([]any, error) {
	props, err := m.getSliceProperties("$push", key, d)
	if err != nil {
		return nil, err
	}

	if d.Len() > props.usedFields {
		return nil, ErrInvalidPushField
	}

	res := append(array, props.each...)

	if !props.hasSlice {
		return res, nil
	}

	if props.slice >= 0 {
		return res[:min(props.slice, len(res))], nil
	}

	slice := max(props.slice, -len(res))

	return res[len(res)+slice:], nil
}

func (m *Modifier) addToSet(obj domain.Document, key string, addr []string, v any) error {
	fields, err := m.fieldNavigator.EnsureField(obj, addr...)
	if err != nil {
		return err
	}

	for _, field := range fields {
		array, err := m.array("$addToSet", key, field)
		if err != nil {
			return err
		}
		values := []any{data.Clone(v)}
		if d, ok := v.(domain.Document); ok && d.Has("$each") {
			if d.Len() > 1 {
				return ErrInvalidAddToSetField
			}
			props, err := m.getSliceProperties("$addToSet", key, d)
			if err != nil {
				return err
			}
			values = props.each
		}

		for _, value := range values {
			shouldAdd := true
			for _, item := range array {
				c, err := m.comp.Compare(value, item)
				if err != nil {
					return err
				}
				if c == 0 {
					shouldAdd = false
					break
				}
			}
			if shouldAdd {
				array = append(array, value)
			}
		}
		field.Set(array)
	}

	return nil
}

func (m *Modifier) pop(obj domain.Document, key string, addr []string, v any) error {
	num, ok := asInt(v)
	if !ok {
		return domain.ErrModifierType{Operator: "$pop", Field: key, Reason: fmt.Sprintf("argument must be an integer, got %v", v)}
	}
	if num == 0 {
		return nil
	}

	fields, _, err := m.fieldNavigator.GetField(obj, addr...)
	if err != nil {
		return err
	}

	for _, field := range fields {
		value, defined := field.Get()
		if !defined {
			continue
		}
		l, ok := value.([]any)
		if !ok {
			return domain.ErrModifierType{Operator: "$pop", Field: key, Reason: fmt.Sprintf("field must be an array, got %T", value)}
		}

		start, end := 0, max(0, len(l)-1)
		if num < 0 {
			start, end = min(1, len(l)), len(l)
		}

		field.Set(l[start:end])
	}
	return nil
}

func (m *Modifier) pull(obj domain.Document, key string, addr []string, v any) error {
	match, err := m.pullMatcher(v)
	if err != nil {
		return err
	}

	fields, _, err := m.fieldNavigator.GetField(obj, addr...)
	if err != nil {
		return err
	}

	for _, field := range fields {
		value, defined := field.Get()
		if !defined {
			continue
		}
		l, ok := value.([]any)
		if !ok {
			return domain.ErrModifierType{Operator: "$pull", Field: key, Reason: fmt.Sprintf("field must be an array, got %T", value)}
		}

		res := make([]any, 0, len(l))
		for _, item := range l {
			matches, err := match(item)
			if err != nil {
				return err
			}
			if !matches {
				res = append(res, item)
			}
		}
		field.Set(res)
	}
	return nil
}

// pullMatcher compiles the $pull condition. A plain document is a query on
// document elements, anything else is applied to the element itself.
func (m *Modifier) pullMatcher(cond any) (func(any) (bool, error), error) {
	mtchr := m.matcherFac()

	if d, ok := cond.(domain.Document); ok && isQuery(d) {
		if err := mtchr.SetQuery(d); err != nil {
			return nil, err
		}
		return mtchr.Match, nil
	}

	if err := mtchr.SetQuery(data.M{"v": cond}); err != nil {
		return nil, err
	}
	return func(item any) (bool, error) {
		return mtchr.Match(data.M{"v": item})
	}, nil
}

// isQuery reports whether d is a query rather than an operator object.
func isQuery(d domain.Document) bool {
	for k := range d.Keys() {
		switch k {
		case "$and", "$or", "$not":
			return true
		}
		if !strings.HasPrefix(k, "$") {
			return true
		}
	}
	return false
}

func (m *Modifier) max(obj domain.Document, _ string, addr []string, v any) error {
	return m.replaceIf(obj, addr, v, func(c int) bool { return c < 0 })
}

func (m *Modifier) min(obj domain.Document, _ string, addr []string, v any) error {
	return m.replaceIf(obj, addr, v, func(c int) bool { return c > 0 })
}

func (m *Modifier) replaceIf(obj domain.Document, addr []string, v any, test func(int) bool) error {
	fields, err := m.fieldNavigator.EnsureField(obj, addr...)
	if err != nil {
		return err
	}

	for _, field := range fields {
		value, defined := field.Get()
		if !defined || value == nil {
			field.Set(data.Clone(v))
			continue
		}
		c, err := m.comp.Compare(value, v)
		if err != nil {
			return err
		}
		if test(c) {
			field.Set(data.Clone(v))
		}
	}

	return nil
}
