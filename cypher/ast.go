package cypher

import (
	"strings"

	"cxgraph/graph"
)

// Query is the root of a parsed query: its clauses in textual order.
type Query struct {
	Clauses []Clause
}

// Clause is one top-level statement unit. The set of implementations is
// closed; the analyzer and executor switch over it exhaustively.
type Clause interface {
	clauseNode()
}

// MatchClause selects graph elements by pattern, optionally filtered.
type MatchClause struct {
	Pattern []PatternElement
	Where   BooleanExpr // nil when absent
}

// CreateClause instantiates the pattern's nodes and relationships.
type CreateClause struct {
	Pattern []PatternElement
}

// DeleteClause removes nodes. Exactly one of Pattern or Exprs is set: a
// parenthesized target is a store-wide pattern (optionally WHERE-filtered),
// while bare expressions resolve against the active row set.
type DeleteClause struct {
	Pattern []PatternElement
	Where   BooleanExpr
	Exprs   []Expression
	Detach  bool
}

// ReturnClause projects the active row set.
type ReturnClause struct {
	Items    []ReturnItem
	Distinct bool
}

// OrderByClause sorts the projected rows.
type OrderByClause struct {
	Items []OrderItem
}

// LimitClause truncates the projected rows.
type LimitClause struct {
	N int64
}

func (*MatchClause) clauseNode()   {}
func (*CreateClause) clauseNode()  {}
func (*DeleteClause) clauseNode()  {}
func (*ReturnClause) clauseNode()  {}
func (*OrderByClause) clauseNode() {}
func (*LimitClause) clauseNode()   {}

// PatternElement is one link of an alternating node/relationship chain.
type PatternElement interface {
	patternElement()
}

// NodePattern describes a node shape: (ident:Label {key: value}).
type NodePattern struct {
	Identifier string
	Label      string
	Properties graph.Properties
}

// RelationshipPattern describes an edge shape: -[ident:TYPE {k: v}]-> or the
// direction-agnostic -[...]- form.
type RelationshipPattern struct {
	Identifier string
	RelType    string
	Properties graph.Properties
	Directed   bool
}

func (*NodePattern) patternElement()         {}
func (*RelationshipPattern) patternElement() {}

// Expression is a value-producing term. The set of implementations is closed.
type Expression interface {
	exprNode()
	// Text is the textual form of the expression, used as the default output
	// column name when RETURN has no alias.
	Text() string
}

// Literal is a scalar constant.
type Literal struct {
	Value graph.Value
}

// Identifier references a bound pattern identifier or a RETURN alias.
type Identifier struct {
	Name string
}

// PropertyAccess reads entity.property.
type PropertyAccess struct {
	Entity   string
	Property string
}

// BinaryExpr is a left-associative arithmetic/concatenation expression. The
// only operator is +.
type BinaryExpr struct {
	Op    string
	Left  Expression
	Right Expression
}

// FunctionCall invokes a builtin from the function catalog.
type FunctionCall struct {
	Name string
	Args []Expression
}

func (*Literal) exprNode()        {}
func (*Identifier) exprNode()     {}
func (*PropertyAccess) exprNode() {}
func (*BinaryExpr) exprNode()     {}
func (*FunctionCall) exprNode()   {}

func (e *Literal) Text() string {
	if e.Value.Kind == graph.KindString {
		return "'" + e.Value.Str + "'"
	}
	return e.Value.String()
}

func (e *Identifier) Text() string { return e.Name }

func (e *PropertyAccess) Text() string { return e.Entity + "." + e.Property }

func (e *BinaryExpr) Text() string {
	return e.Left.Text() + " " + e.Op + " " + e.Right.Text()
}

func (e *FunctionCall) Text() string {
	args := make([]string, len(e.Args))
	for i, a := range e.Args {
		args[i] = a.Text()
	}
	return e.Name + "(" + strings.Join(args, ", ") + ")"
}

// Comparator is the operator of a Condition.
type Comparator int

const (
	CmpEq Comparator = iota
	CmpNe
	CmpLt
	CmpLe
	CmpGt
	CmpGe
	CmpStartsWith
	CmpEndsWith
	CmpContains
	CmpIsNull
	CmpIsNotNull
)

var comparatorNames = map[Comparator]string{
	CmpEq:         "=",
	CmpNe:         "<>",
	CmpLt:         "<",
	CmpLe:         "<=",
	CmpGt:         ">",
	CmpGe:         ">=",
	CmpStartsWith: "STARTS WITH",
	CmpEndsWith:   "ENDS WITH",
	CmpContains:   "CONTAINS",
	CmpIsNull:     "IS NULL",
	CmpIsNotNull:  "IS NOT NULL",
}

func (c Comparator) String() string { return comparatorNames[c] }

// BooleanExpr is a WHERE predicate. Implementations are Condition and
// LogicalExpr only.
type BooleanExpr interface {
	booleanExpr()
}

// Condition compares two expressions, or checks one for NULL (Right is nil for
// the null-check comparators).
type Condition struct {
	Left     Expression
	Operator Comparator
	Right    Expression
}

// LogicalOp joins two boolean expressions.
type LogicalOp int

const (
	OpAnd LogicalOp = iota
	OpOr
)

func (o LogicalOp) String() string {
	if o == OpAnd {
		return "AND"
	}
	return "OR"
}

// LogicalExpr combines two predicates with AND or OR.
type LogicalExpr struct {
	Left  BooleanExpr
	Op    LogicalOp
	Right BooleanExpr
}

func (*Condition) booleanExpr()   {}
func (*LogicalExpr) booleanExpr() {}

// ReturnItem is one projected column. Alias is empty when no AS was given; the
// column then takes the expression's textual form.
type ReturnItem struct {
	Expr  Expression
	Alias string
}

// ColumnName is the output column name for the item.
func (r ReturnItem) ColumnName() string {
	if r.Alias != "" {
		return r.Alias
	}
	return r.Expr.Text()
}

// OrderItem is one sort key with its direction.
type OrderItem struct {
	Expr       Expression
	Descending bool
}
