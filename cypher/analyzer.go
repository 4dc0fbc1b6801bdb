package cypher

import (
	"github.com/sirupsen/logrus"

	"cxgraph/graph"
)

// SymbolKind classifies a bound identifier.
type SymbolKind int

const (
	SymbolNode SymbolKind = iota
	SymbolRelationship
	SymbolAlias
)

func (k SymbolKind) String() string {
	switch k {
	case SymbolNode:
		return "NODE"
	case SymbolRelationship:
		return "RELATIONSHIP"
	case SymbolAlias:
		return "ALIAS"
	default:
		return "UNKNOWN"
	}
}

// Analyzer validates a parsed query: identifier binding, function names and
// type compatibility. It keeps a single flat symbol table per query,
// populated as clauses are visited in source order, and never touches the
// store or mutates the AST.
type Analyzer struct {
	symbols map[string]SymbolKind
	log     *logrus.Entry
}

// NewAnalyzer initializes an Analyzer with an empty symbol table.
func NewAnalyzer() *Analyzer {
	return &Analyzer{
		symbols: make(map[string]SymbolKind),
		log:     logrus.WithField("component", "Analyzer"),
	}
}

// Analyze validates the query and returns the first SemanticError found.
func Analyze(q *Query) error {
	return NewAnalyzer().Analyze(q)
}

// Analyze walks the clauses in source order. A RETURN alias becomes visible
// to a later ORDER BY but not to any earlier clause.
func (a *Analyzer) Analyze(q *Query) error {
	for _, clause := range q.Clauses {
		var err error
		switch c := clause.(type) {
		case *MatchClause:
			a.bindPattern(c.Pattern)
			if c.Where != nil {
				err = a.checkBoolean(c.Where)
			}
		case *CreateClause:
			a.bindPattern(c.Pattern)
		case *DeleteClause:
			err = a.checkDelete(c)
		case *ReturnClause:
			err = a.checkReturn(c)
		case *OrderByClause:
			for _, item := range c.Items {
				if _, e := a.checkExpression(item.Expr); e != nil {
					err = e
					break
				}
			}
		case *LimitClause:
			// The parser only admits integer literals here.
		}
		if err != nil {
			a.log.WithError(err).Debug("Analysis failed")
			return err
		}
	}
	return nil
}

// bindPattern adds every pattern identifier to the symbol table.
func (a *Analyzer) bindPattern(pattern []PatternElement) {
	for _, el := range pattern {
		switch e := el.(type) {
		case *NodePattern:
			if e.Identifier != "" {
				a.symbols[e.Identifier] = SymbolNode
			}
		case *RelationshipPattern:
			if e.Identifier != "" {
				a.symbols[e.Identifier] = SymbolRelationship
			}
		}
	}
}

func (a *Analyzer) checkDelete(c *DeleteClause) error {
	if c.Pattern != nil {
		a.bindPattern(c.Pattern)
		if c.Where != nil {
			return a.checkBoolean(c.Where)
		}
		return nil
	}
	for _, expr := range c.Exprs {
		if _, err := a.checkExpression(expr); err != nil {
			return err
		}
	}
	return nil
}

func (a *Analyzer) checkReturn(c *ReturnClause) error {
	for _, item := range c.Items {
		if _, err := a.checkExpression(item.Expr); err != nil {
			return err
		}
		if item.Alias != "" {
			a.symbols[item.Alias] = SymbolAlias
		}
	}
	return nil
}

// checkBoolean validates a WHERE predicate bottom-up.
func (a *Analyzer) checkBoolean(b BooleanExpr) error {
	switch e := b.(type) {
	case *LogicalExpr:
		if err := a.checkBoolean(e.Left); err != nil {
			return err
		}
		return a.checkBoolean(e.Right)
	case *Condition:
		return a.checkCondition(e)
	default:
		return semanticf("unsupported boolean expression %T", b)
	}
}

// checkCondition validates operand binding, type compatibility and comparator
// legality for one condition.
func (a *Analyzer) checkCondition(c *Condition) error {
	leftType, err := a.checkExpression(c.Left)
	if err != nil {
		return err
	}
	if c.Operator == CmpIsNull || c.Operator == CmpIsNotNull {
		return nil
	}
	rightType, err := a.checkExpression(c.Right)
	if err != nil {
		return err
	}
	if !leftType.permissive() && !rightType.permissive() && leftType != rightType {
		return semanticf("type mismatch in comparison: %s and %s", leftType, rightType)
	}
	if !comparatorAllowed(leftType, c.Operator) && !comparatorAllowed(rightType, c.Operator) {
		return semanticf("invalid operator '%s' for types %s and %s",
			c.Operator, leftType, rightType)
	}
	return nil
}

// checkExpression validates an expression and infers its type structurally.
// The store is schema-less, so a dotted access only requires the entity to be
// bound; the property itself stays unchecked.
func (a *Analyzer) checkExpression(expr Expression) (exprType, error) {
	switch e := expr.(type) {
	case *Literal:
		switch e.Value.Kind {
		case graph.KindInt:
			return typeInteger, nil
		case graph.KindFloat:
			return typeFloat, nil
		case graph.KindBool:
			return typeBoolean, nil
		default:
			return typeString, nil
		}
	case *PropertyAccess:
		if _, ok := a.symbols[e.Entity]; !ok {
			return typeAny, semanticf("undefined identifier '%s'", e.Entity)
		}
		return typeProperty, nil
	case *Identifier:
		if _, ok := a.symbols[e.Name]; !ok {
			return typeAny, semanticf("undefined identifier '%s'", e.Name)
		}
		return typeIdentifier, nil
	case *FunctionCall:
		fn, ok := builtins[e.Name]
		if !ok {
			return typeAny, semanticf("unknown function '%s'", e.Name)
		}
		for _, arg := range e.Args {
			if _, err := a.checkExpression(arg); err != nil {
				return typeAny, err
			}
		}
		return fn.returnType, nil
	case *BinaryExpr:
		leftType, err := a.checkExpression(e.Left)
		if err != nil {
			return typeAny, err
		}
		rightType, err := a.checkExpression(e.Right)
		if err != nil {
			return typeAny, err
		}
		if leftType.permissive() || rightType.permissive() {
			return typeAny, nil
		}
		if leftType != rightType {
			return typeAny, semanticf("type mismatch in addition: %s and %s", leftType, rightType)
		}
		return leftType, nil
	default:
		return typeAny, semanticf("unsupported expression %T", expr)
	}
}
