// Package matcher contains the default implementation of [domain.Matcher],
// the query evaluator of the embedded engine.
//
// Query objects hold exactly one expression: a field rule or one of $and,
// $or and $not. Operator objects hold exactly one operator. Compound objects
// are only accepted with [WithCompoundQueries].
package matcher

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	goreflect "github.com/goccy/go-reflect"

	"github.com/dadi/api-filestore/adapter/comparer"
	"github.com/dadi/api-filestore/adapter/data"
	"github.com/dadi/api-filestore/adapter/fieldnavigator"
	"github.com/dadi/api-filestore/domain"
)

// ErrCompArgType is returned when a comparison operator is called with an
// argument of invalid type.
type ErrCompArgType struct {
	Comp   string
	Want   string
	Actual any
}

// Error implements [error].
func (e ErrCompArgType) Error() string {
	return fmt.Sprintf(
		"%s value should be of type %s, got %T",
		e.Comp, e.Want, e.Actual,
	)
}

var regexCache sync.Map

// Matcher implements [domain.Matcher].
type Matcher struct {
	documentFactory domain.DocumentFactory
	comparer        domain.Comparer
	fieldNavigator  domain.FieldNavigator
	compound        bool
	query           LogicOp
}

// NewMatcher returns a new implementation of domain.Matcher.
func NewMatcher(options ...Option) domain.Matcher {
	m := &Matcher{
		documentFactory: data.NewDocument,
		comparer:        comparer.NewComparer(),
		fieldNavigator:  fieldnavigator.NewFieldNavigator(data.NewDocument),
	}

	for _, option := range options {
		option(m)
	}

	return m
}

// SetQuery implements [domain.Matcher].
func (m *Matcher) SetQuery(query any) error {
	qry, err := m.makeQuery(query)
	if err != nil {
		return err
	}
	m.query = qry
	return nil
}

func (m *Matcher) makeQuery(query any) (LogicOp, error) {
	lo := LogicOp{Type: And}
	if query == nil {
		return lo, nil
	}
	doc, err := m.documentFactory(query)
	if err != nil {
		return lo, err
	}
	if !m.compound && doc.Len() > 1 {
		return lo, fmt.Errorf("%w: got %d keys", domain.ErrCompoundQuery, doc.Len())
	}

	for key, value := range doc.Iter() {
		if !strings.HasPrefix(key, "$") {
			rule, err := m.makeFieldRule(key, value)
			if err != nil {
				return lo, err
			}
			lo.Rules = append(lo.Rules, rule)
			continue
		}
		sub, err := m.makeLogicOp(key, value)
		if err != nil {
			return lo, err
		}
		lo.Sub = append(lo.Sub, sub)
	}
	return lo, nil
}

func (m *Matcher) makeLogicOp(key string, value any) (LogicOp, error) {
	switch key {
	case "$and", "$or":
		typ := And
		if key == "$or" {
			typ = Or
		}
		items, ok := asList(value)
		if !ok {
			return LogicOp{}, ErrCompArgType{Comp: key, Want: "list", Actual: value}
		}
		lo := LogicOp{Type: typ, Sub: make([]LogicOp, 0, len(items))}
		for _, item := range items {
			sub, err := m.makeQuery(item)
			if err != nil {
				return lo, err
			}
			lo.Sub = append(lo.Sub, sub)
		}
		return lo, nil
	case "$not":
		sub, err := m.makeQuery(value)
		if err != nil {
			return LogicOp{}, err
		}
		return LogicOp{Type: Not, Sub: []LogicOp{sub}}, nil
	default:
		return LogicOp{}, domain.ErrUnknownOperator{Operator: key}
	}
}

func (m *Matcher) makeFieldRule(field string, obj any) (FieldRule, error) {
	addr, err := m.fieldNavigator.GetAddress(field)
	if err != nil {
		return FieldRule{}, err
	}
	rule := FieldRule{Addr: addr}

	switch t := obj.(type) {
	case *regexp.Regexp, data.Regex:
		cond, err := m.makeRegex(t)
		if err != nil {
			return rule, err
		}
		rule.Conds = []Cond{cond}
		return rule, nil
	case time.Time, domain.Getter, nil:
		rule.Conds = []Cond{{Op: Eq, Val: t}}
		return rule, nil
	}

	doc, ok := asDocument(obj)
	if !ok {
		rule.Conds = []Cond{{Op: Eq, Val: obj}}
		return rule, nil
	}

	ops, err := m.operators(doc)
	if err != nil {
		return rule, err
	}
	if ops == nil {
		converted, err := m.documentFactory(doc)
		if err != nil {
			return rule, err
		}
		rule.Conds = []Cond{{Op: Eq, Val: converted}}
		return rule, nil
	}
	rule.Conds = ops
	return rule, nil
}

// operators compiles an operator object. It returns nil if no key is an
// operator.
func (m *Matcher) operators(doc domain.Document) ([]Cond, error) {
	var dollar, total int
	for key := range doc.Keys() {
		total++
		if strings.HasPrefix(key, "$") {
			dollar++
		}
	}
	if dollar == 0 {
		return nil, nil
	}
	if dollar != total {
		return nil, domain.ErrMixedOperators
	}
	if !m.compound && total > 1 {
		return nil, fmt.Errorf("%w: got %d operators", domain.ErrCompoundQuery, total)
	}

	conds := make([]Cond, 0, total)
	for key, value := range doc.Iter() {
		cond, err := m.makeCond(key, value)
		if err != nil {
			return nil, err
		}
		conds = append(conds, cond)
	}
	return conds, nil
}

func (m *Matcher) makeCond(k string, v any) (Cond, error) {
	switch k {
	case "$eq":
		return Cond{Op: Eq, Val: v}, nil
	case "$ne":
		return Cond{Op: Ne, Val: v}, nil
	case "$lt":
		return Cond{Op: Lt, Val: v}, nil
	case "$lte":
		return Cond{Op: Lte, Val: v}, nil
	case "$gt":
		return Cond{Op: Gt, Val: v}, nil
	case "$gte":
		return Cond{Op: Gte, Val: v}, nil
	case "$in", "$nin":
		list, ok := asList(v)
		if !ok {
			return Cond{}, ErrCompArgType{Comp: k, Want: "list", Actual: v}
		}
		op := In
		if k == "$nin" {
			op = Nin
		}
		return Cond{Op: op, List: list}, nil
	case "$regex":
		return m.makeRegex(v)
	case "$exists":
		return m.makeExists(v)
	case "$size":
		size, ok := asInteger(v)
		if !ok {
			return Cond{}, ErrCompArgType{Comp: "$size", Want: "integer", Actual: v}
		}
		return Cond{Op: Size, Val: size}, nil
	case "$elemMatch":
		return m.makeElemMatch(v)
	case "$contains":
		return Cond{Op: Contains, Val: v}, nil
	case "$not":
		doc, ok := asDocument(v)
		if !ok {
			return Cond{}, ErrCompArgType{Comp: "$not", Want: "operator object", Actual: v}
		}
		conds, err := m.operators(doc)
		if err != nil {
			return Cond{}, err
		}
		if conds == nil {
			return Cond{}, ErrCompArgType{Comp: "$not", Want: "operator object", Actual: v}
		}
		return Cond{Op: NotCond, Conds: conds}, nil
	default:
		return Cond{}, domain.ErrUnknownOperator{Operator: k}
	}
}

func (m *Matcher) makeRegex(v any) (Cond, error) {
	var source, flags string
	switch t := v.(type) {
	case *regexp.Regexp:
		return Cond{Op: Regex, Rx: t}, nil
	case data.Regex:
		source, flags = t.Pattern, t.Flags
	case string:
		source = t
	case []any:
		if len(t) == 0 || len(t) > 2 {
			return Cond{}, ErrCompArgType{Comp: "$regex", Want: "[source, flags]", Actual: v}
		}
		var ok bool
		if source, ok = t[0].(string); !ok {
			return Cond{}, ErrCompArgType{Comp: "$regex", Want: "string source", Actual: t[0]}
		}
		if len(t) == 2 && t[1] != nil {
			if flags, ok = t[1].(string); !ok {
				return Cond{}, ErrCompArgType{Comp: "$regex", Want: "string flags", Actual: t[1]}
			}
		}
	default:
		return Cond{}, ErrCompArgType{Comp: "$regex", Want: "regex", Actual: v}
	}
	rx, err := CompileRegex(source, flags)
	if err != nil {
		return Cond{}, err
	}
	return Cond{Op: Regex, Rx: rx}, nil
}

// CompileRegex compiles a regular expression literal. The flags i, m and s
// are applied; flags without a Go equivalent (g, u, y) are ignored.
// Compiled expressions are cached.
func CompileRegex(source, flags string) (*regexp.Regexp, error) {
	var goFlags strings.Builder
	for _, f := range flags {
		switch f {
		case 'i', 'm', 's':
			if !strings.ContainsRune(goFlags.String(), f) {
				goFlags.WriteRune(f)
			}
		}
	}
	expr := source
	if goFlags.Len() > 0 {
		expr = "(?" + goFlags.String() + ")" + source
	}
	if cached, ok := regexCache.Load(expr); ok {
		return cached.(*regexp.Regexp), nil
	}
	rx, err := regexp.Compile(expr)
	if err != nil {
		return nil, err
	}
	regexCache.Store(expr, rx)
	return rx, nil
}

func (m *Matcher) makeExists(v any) (Cond, error) {
	switch t := v.(type) {
	case nil:
		return Cond{Op: Exists, Val: false}, nil
	case bool:
		return Cond{Op: Exists, Val: t}, nil
	}
	if n, ok := comparer.AsNumber(v); ok {
		return Cond{Op: Exists, Val: n.Sign() != 0}, nil
	}
	return Cond{Op: Exists, Val: true}, nil
}

func (m *Matcher) makeElemMatch(v any) (Cond, error) {
	doc, ok := asDocument(v)
	if !ok {
		return Cond{}, ErrCompArgType{Comp: "$elemMatch", Want: "object", Actual: v}
	}
	conds, err := m.operators(doc)
	if err != nil {
		return Cond{}, err
	}
	if conds != nil {
		return Cond{Op: ElemMatch, Conds: conds}, nil
	}

	// element queries commonly name several fields
	sub := *m
	sub.compound = true
	qry, err := sub.makeQuery(doc)
	if err != nil {
		return Cond{}, err
	}
	return Cond{Op: ElemMatch, Query: &qry}, nil
}

// Match implements [domain.Matcher]. Values that are not documents never
// match.
func (m *Matcher) Match(value any) (bool, error) {
	doc, ok := value.(domain.Document)
	if !ok {
		return false, nil
	}
	return m.matchLogicOp(doc, m.query)
}

func (m *Matcher) matchLogicOp(doc domain.Document, lo LogicOp) (bool, error) {
	switch lo.Type {
	case And:
		for _, rule := range lo.Rules {
			matches, err := m.matchRule(doc, rule)
			if err != nil || !matches {
				return matches, err
			}
		}
		for _, sub := range lo.Sub {
			matches, err := m.matchLogicOp(doc, sub)
			if err != nil || !matches {
				return matches, err
			}
		}
		return true, nil
	case Or:
		for _, sub := range lo.Sub {
			matches, err := m.matchLogicOp(doc, sub)
			if err != nil || matches {
				return matches, err
			}
		}
		return false, nil
	case Not:
		matches, err := m.matchLogicOp(doc, lo.Sub[0])
		return !matches && err == nil, err
	default:
		return false, nil
	}
}

func (m *Matcher) matchRule(doc domain.Document, rule FieldRule) (bool, error) {
	values, expanded, err := m.fieldNavigator.GetField(doc, rule.Addr...)
	if err != nil {
		return false, err
	}
	return m.matchConds(values, expanded, rule.Conds)
}

func (m *Matcher) matchConds(values []domain.GetSetter, expanded bool, conds []Cond) (bool, error) {
	for i := range conds {
		matches, err := m.matchCond(values, expanded, &conds[i])
		if err != nil || !matches {
			return matches, err
		}
	}
	return true, nil
}

func (m *Matcher) matchCond(values []domain.GetSetter, expanded bool, cond *Cond) (bool, error) {
	switch cond.Op {
	case Eq:
		return m.eq(values, cond.Val)
	case Ne:
		matches, err := m.eq(values, cond.Val)
		return !matches && err == nil, err
	case Lt:
		return m.order(values, cond.Val, func(c int) bool { return c < 0 })
	case Lte:
		return m.order(values, cond.Val, func(c int) bool { return c <= 0 })
	case Gt:
		return m.order(values, cond.Val, func(c int) bool { return c > 0 })
	case Gte:
		return m.order(values, cond.Val, func(c int) bool { return c >= 0 })
	case In:
		return m.in(values, cond.List)
	case Nin:
		matches, err := m.in(values, cond.List)
		return !matches && err == nil, err
	case Regex:
		return m.regex(values, cond.Rx), nil
	case Exists:
		return m.exists(values) == cond.Val.(bool), nil
	case Size:
		return m.size(values, expanded, cond.Val.(int)), nil
	case ElemMatch:
		return m.elemMatch(values, cond)
	case Contains:
		return m.contains(values, cond.Val)
	case NotCond:
		matches, err := m.matchConds(values, expanded, cond.Conds)
		return !matches && err == nil, err
	default:
		return false, nil
	}
}

// eq matches if any value equals the operand, or is an array holding it.
// An undefined operand only matches undefined values.
func (m *Matcher) eq(values []domain.GetSetter, operand any) (bool, error) {
	if g, ok := operand.(domain.Getter); ok {
		var defined bool
		if operand, defined = g.Get(); !defined {
			return !m.exists(values), nil
		}
	}
	for _, value := range values {
		actual, ok := value.Get()
		if !ok {
			continue
		}
		if arr, ok := actual.([]any); ok {
			if _, operandIsArray := operand.([]any); !operandIsArray {
				for _, item := range arr {
					c, err := m.comparer.Compare(item, operand)
					if err != nil {
						return false, err
					}
					if c == 0 {
						return true, nil
					}
				}
				continue
			}
		}
		c, err := m.comparer.Compare(actual, operand)
		if err != nil {
			return false, err
		}
		if c == 0 {
			return true, nil
		}
	}
	return false, nil
}

func (m *Matcher) order(values []domain.GetSetter, operand any, test func(int) bool) (bool, error) {
	for _, value := range values {
		actual, ok := value.Get()
		if !ok {
			continue
		}
		candidates := []any{actual}
		if arr, ok := actual.([]any); ok {
			candidates = arr
		}
		for _, item := range candidates {
			if !m.comparer.Comparable(item, operand) {
				continue
			}
			c, err := m.comparer.Compare(item, operand)
			if err != nil {
				return false, err
			}
			if test(c) {
				return true, nil
			}
		}
	}
	return false, nil
}

func (m *Matcher) in(values []domain.GetSetter, list []any) (bool, error) {
	for _, item := range list {
		matches, err := m.eq(values, item)
		if err != nil || matches {
			return matches, err
		}
	}
	return false, nil
}

func (m *Matcher) regex(values []domain.GetSetter, rx *regexp.Regexp) bool {
	for _, value := range values {
		actual, ok := value.Get()
		if !ok {
			continue
		}
		candidates := []any{actual}
		if arr, ok := actual.([]any); ok {
			candidates = arr
		}
		for _, item := range candidates {
			if str, ok := item.(string); ok && rx.MatchString(str) {
				return true
			}
		}
	}
	return false
}

func (m *Matcher) exists(values []domain.GetSetter) bool {
	for _, value := range values {
		if _, ok := value.Get(); ok {
			return true
		}
	}
	return false
}

func (m *Matcher) size(values []domain.GetSetter, expanded bool, size int) bool {
	if expanded {
		return false
	}
	for _, value := range values {
		actual, _ := value.Get()
		if arr, ok := actual.([]any); ok && len(arr) == size {
			return true
		}
	}
	return false
}

func (m *Matcher) elemMatch(values []domain.GetSetter, cond *Cond) (bool, error) {
	for _, value := range values {
		actual, _ := value.Get()
		arr, ok := actual.([]any)
		if !ok {
			continue
		}
		for i, item := range arr {
			var matches bool
			var err error
			if cond.Query != nil {
				doc, ok := item.(domain.Document)
				if !ok {
					continue
				}
				matches, err = m.matchLogicOp(doc, *cond.Query)
			} else {
				elem := []domain.GetSetter{fieldnavigator.NewGetSetterWithArrayIndex(arr, i)}
				matches, err = m.matchConds(elem, false, cond.Conds)
			}
			if err != nil || matches {
				return matches, err
			}
		}
	}
	return false, nil
}

func (m *Matcher) contains(values []domain.GetSetter, operand any) (bool, error) {
	for _, value := range values {
		actual, ok := value.Get()
		if !ok {
			continue
		}
		switch t := actual.(type) {
		case string:
			if sub, ok := operand.(string); ok && strings.Contains(t, sub) {
				return true, nil
			}
		case []any:
			for _, item := range t {
				c, err := m.comparer.Compare(item, operand)
				if err != nil {
					return false, err
				}
				if c == 0 {
					return true, nil
				}
			}
		}
	}
	return false, nil
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

func asList(v any) ([]any, bool) {
	if l, ok := v.([]any); ok {
		return l, true
	}
	if v == nil {
		return nil, false
	}
	r := goreflect.ValueNoEscapeOf(v)
	if r.Kind() != goreflect.Slice && r.Kind() != goreflect.Array {
		return nil, false
	}
	res := make([]any, r.Len())
	for i := range res {
		res[i] = r.Index(i).Interface()
	}
	return res, true
}

func asInteger(v any) (int, bool) {
	n, ok := comparer.AsNumber(v)
	if !ok || !n.IsInt() {
		return 0, false
	}
	i, _ := n.Int64()
	return int(i), true
}
