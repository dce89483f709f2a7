package matcher

import "regexp"

// Numeric representations of supported logic operators.
const (
	And uint8 = iota
	Or
	Not
)

// Numeric representations of supported operators.
const (
	Eq uint8 = iota
	Ne
	Exists
	Lt
	Lte
	Gt
	Gte
	Size
	In
	Nin
	ElemMatch
	Regex
	Contains
	NotCond
)

// LogicOp stores a logic operator (and, or, not) and its children, which can be
// either a set of rules or a nested set of LogicOps. An empty And matches
// everything.
type LogicOp struct {
	Type  uint8
	Rules []FieldRule
	Sub   []LogicOp
}

// FieldRule stores a set of conditions used to match a given object field.
type FieldRule struct {
	Addr  []string
	Conds []Cond
}

// Cond stores a single operation on a document field (such as $gt, $size).
// Query is set for $elemMatch on documents, Conds for $not and for
// $elemMatch on scalar elements.
type Cond struct {
	Op    uint8
	Val   any
	List  []any
	Rx    *regexp.Regexp
	Query *LogicOp
	Conds []Cond
}
