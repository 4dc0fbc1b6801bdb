package cypher

import (
	"strconv"

	"github.com/sirupsen/logrus"

	"cxgraph/graph"
)

// Parser builds an AST from the token stream with a single token of
// lookahead. There is no error recovery: the first unexpected token aborts
// the parse.
type Parser struct {
	lx  *Lexer
	cur Token
	log *logrus.Entry
}

// NewParser initializes a Parser over a fresh lexer for the query text.
func NewParser(input string) *Parser {
	return &Parser{
		lx:  NewLexer(input),
		log: logrus.WithField("component", "Parser"),
	}
}

// Parse parses the query text into an AST.
func Parse(input string) (*Query, error) {
	return NewParser(input).Parse()
}

// Parse consumes the whole token stream and returns the query AST, a
// LexError, or a SyntaxError.
func (p *Parser) Parse() (*Query, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.cur.Type == TokenEOF {
		return nil, &SyntaxError{Msg: "empty query"}
	}
	query := &Query{}
	for p.cur.Type != TokenEOF {
		clause, err := p.parseClause()
		if err != nil {
			p.log.WithError(err).Debug("Parse aborted")
			return nil, err
		}
		query.Clauses = append(query.Clauses, clause)
	}
	if err := checkComplete(query); err != nil {
		return nil, err
	}
	p.log.WithField("clauses", len(query.Clauses)).Debug("Parsing complete")
	return query, nil
}

// checkComplete rejects a query whose MATCH is never consumed by a terminal
// RETURN, CREATE or DELETE clause.
func checkComplete(q *Query) error {
	hasMatch, hasTerminal := false, false
	for _, c := range q.Clauses {
		switch c.(type) {
		case *MatchClause:
			hasMatch = true
		case *ReturnClause, *CreateClause, *DeleteClause:
			hasTerminal = true
		}
	}
	if hasMatch && !hasTerminal {
		return &SyntaxError{Msg: "incomplete query"}
	}
	return nil
}

func (p *Parser) parseClause() (Clause, error) {
	switch p.cur.Type {
	case TokenMatch:
		return p.parseMatch()
	case TokenCreate:
		return p.parseCreate()
	case TokenDelete:
		return p.parseDelete(false)
	case TokenDetach:
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.cur.Type != TokenDelete {
			return nil, p.unexpected("DELETE after DETACH")
		}
		return p.parseDelete(true)
	case TokenReturn:
		return p.parseReturn()
	case TokenOrder:
		return p.parseOrderBy()
	case TokenLimit:
		return p.parseLimit()
	default:
		return nil, p.unexpected("clause keyword")
	}
}

// parseMatch parses MATCH pattern_path [WHERE boolean_expr].
func (p *Parser) parseMatch() (Clause, error) {
	if err := p.advance(); err != nil { // consume MATCH
		return nil, err
	}
	pattern, err := p.parsePatternPath()
	if err != nil {
		return nil, err
	}
	clause := &MatchClause{Pattern: pattern}
	if p.cur.Type == TokenWhere {
		if err := p.advance(); err != nil {
			return nil, err
		}
		clause.Where, err = p.parseBooleanExpr()
		if err != nil {
			return nil, err
		}
	}
	return clause, nil
}

// parseCreate parses CREATE pattern_path.
func (p *Parser) parseCreate() (Clause, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	pattern, err := p.parsePatternPath()
	if err != nil {
		return nil, err
	}
	return &CreateClause{Pattern: pattern}, nil
}

// parseDelete parses [DETACH] DELETE followed by either a parenthesized node
// pattern with an optional WHERE, or a comma-separated expression list.
func (p *Parser) parseDelete(detach bool) (Clause, error) {
	if err := p.advance(); err != nil { // consume DELETE
		return nil, err
	}
	clause := &DeleteClause{Detach: detach}
	if p.cur.Type == TokenLParen {
		pattern, err := p.parsePatternPath()
		if err != nil {
			return nil, err
		}
		clause.Pattern = pattern
		if p.cur.Type == TokenWhere {
			if err := p.advance(); err != nil {
				return nil, err
			}
			clause.Where, err = p.parseBooleanExpr()
			if err != nil {
				return nil, err
			}
		}
		return clause, nil
	}
	for {
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		clause.Exprs = append(clause.Exprs, expr)
		if p.cur.Type != TokenComma {
			return clause, nil
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
}

// parseReturn parses RETURN [DISTINCT] return_item (, return_item)*.
func (p *Parser) parseReturn() (Clause, error) {
	if err := p.advance(); err != nil { // consume RETURN
		return nil, err
	}
	if p.cur.Type == TokenEOF {
		return nil, &SyntaxError{Msg: "incomplete RETURN clause"}
	}
	clause := &ReturnClause{}
	if p.cur.Type == TokenDistinct {
		clause.Distinct = true
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	for {
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		item := ReturnItem{Expr: expr}
		if p.cur.Type == TokenAs {
			if err := p.advance(); err != nil {
				return nil, err
			}
			if p.cur.Type != TokenIdentifier {
				return nil, p.unexpected("alias identifier after AS")
			}
			item.Alias = p.cur.Literal
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
		clause.Items = append(clause.Items, item)
		if p.cur.Type != TokenComma {
			return clause, nil
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
}

// parseOrderBy parses ORDER BY order_item (, order_item)*.
func (p *Parser) parseOrderBy() (Clause, error) {
	if err := p.advance(); err != nil { // consume ORDER
		return nil, err
	}
	if p.cur.Type != TokenBy {
		return nil, p.unexpected("BY after ORDER")
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	clause := &OrderByClause{}
	for {
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		item := OrderItem{Expr: expr}
		switch p.cur.Type {
		case TokenAsc:
			if err := p.advance(); err != nil {
				return nil, err
			}
		case TokenDesc:
			item.Descending = true
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
		clause.Items = append(clause.Items, item)
		if p.cur.Type != TokenComma {
			return clause, nil
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
}

// parseLimit parses LIMIT integer_literal.
func (p *Parser) parseLimit() (Clause, error) {
	if err := p.advance(); err != nil { // consume LIMIT
		return nil, err
	}
	if p.cur.Type != TokenInteger {
		return nil, p.unexpected("integer literal after LIMIT")
	}
	n, err := strconv.ParseInt(p.cur.Literal, 10, 64)
	if err != nil {
		return nil, p.unexpected("integer literal after LIMIT")
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return &LimitClause{N: n}, nil
}

// parsePatternPath parses node_pattern (relationship_pattern node_pattern)*.
func (p *Parser) parsePatternPath() ([]PatternElement, error) {
	node, err := p.parseNodePattern()
	if err != nil {
		return nil, err
	}
	elements := []PatternElement{node}
	for p.cur.Type == TokenDash {
		rel, err := p.parseRelationshipPattern()
		if err != nil {
			return nil, err
		}
		next, err := p.parseNodePattern()
		if err != nil {
			return nil, err
		}
		elements = append(elements, rel, next)
	}
	return elements, nil
}

// parseNodePattern parses ( [identifier] [:label] [properties] ).
func (p *Parser) parseNodePattern() (*NodePattern, error) {
	if p.cur.Type != TokenLParen {
		return nil, p.unexpected("( opening a node pattern")
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	node := &NodePattern{}
	if p.cur.Type == TokenIdentifier {
		node.Identifier = p.cur.Literal
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	if p.cur.Type == TokenColon {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.cur.Type != TokenIdentifier {
			return nil, p.unexpected("label after :")
		}
		node.Label = p.cur.Literal
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	if p.cur.Type == TokenLBrace {
		props, err := p.parseProperties()
		if err != nil {
			return nil, err
		}
		node.Properties = props
	}
	if p.cur.Type != TokenRParen {
		return nil, p.unexpected(") closing a node pattern")
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return node, nil
}

// parseRelationshipPattern parses - [ [identifier] [:type] [properties] ]
// followed by -> (directed) or - (direction-agnostic).
func (p *Parser) parseRelationshipPattern() (*RelationshipPattern, error) {
	if err := p.advance(); err != nil { // consume -
		return nil, err
	}
	rel := &RelationshipPattern{}
	if p.cur.Type == TokenLBracket {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.cur.Type == TokenIdentifier {
			rel.Identifier = p.cur.Literal
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
		if p.cur.Type == TokenColon {
			if err := p.advance(); err != nil {
				return nil, err
			}
			if p.cur.Type != TokenIdentifier {
				return nil, p.unexpected("relationship type after :")
			}
			rel.RelType = p.cur.Literal
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
		if p.cur.Type == TokenLBrace {
			props, err := p.parseProperties()
			if err != nil {
				return nil, err
			}
			rel.Properties = props
		}
		if p.cur.Type != TokenRBracket {
			return nil, p.unexpected("] closing a relationship pattern")
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	switch p.cur.Type {
	case TokenArrow:
		rel.Directed = true
	case TokenDash:
		rel.Directed = false
	default:
		return nil, p.unexpected("-> or - after a relationship pattern")
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return rel, nil
}

// parseProperties parses { identifier : value (, identifier : value)* }.
func (p *Parser) parseProperties() (graph.Properties, error) {
	if err := p.advance(); err != nil { // consume {
		return nil, err
	}
	props := graph.Properties{}
	for {
		if p.cur.Type != TokenIdentifier {
			return nil, p.unexpected("property key")
		}
		key := p.cur.Literal
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.cur.Type != TokenColon {
			return nil, p.unexpected(": after property key")
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		value, err := p.parseLiteralValue()
		if err != nil {
			return nil, err
		}
		props[key] = value
		if p.cur.Type != TokenComma {
			break
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	if p.cur.Type != TokenRBrace {
		return nil, p.unexpected("} closing properties")
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return props, nil
}

// parseLiteralValue parses a scalar literal in property position: a string,
// a number, or the identifiers true/false.
func (p *Parser) parseLiteralValue() (graph.Value, error) {
	tok := p.cur
	switch tok.Type {
	case TokenString:
		if err := p.advance(); err != nil {
			return graph.Value{}, err
		}
		return graph.String(tok.Literal), nil
	case TokenInteger:
		n, err := strconv.ParseInt(tok.Literal, 10, 64)
		if err != nil {
			return graph.Value{}, p.unexpected("integer literal")
		}
		if err := p.advance(); err != nil {
			return graph.Value{}, err
		}
		return graph.Int64(n), nil
	case TokenFloat:
		f, err := strconv.ParseFloat(tok.Literal, 64)
		if err != nil {
			return graph.Value{}, p.unexpected("float literal")
		}
		if err := p.advance(); err != nil {
			return graph.Value{}, err
		}
		return graph.Float64(f), nil
	case TokenIdentifier:
		if b, ok := boolLiteral(tok.Literal); ok {
			if err := p.advance(); err != nil {
				return graph.Value{}, err
			}
			return graph.Bool(b), nil
		}
	}
	return graph.Value{}, p.unexpected("property value")
}

// parseBooleanExpr parses the WHERE predicate with OR binding weaker than AND,
// both left-associative.
func (p *Parser) parseBooleanExpr() (BooleanExpr, error) {
	left, err := p.parseAndExpr()
	if err != nil {
		return nil, err
	}
	for p.cur.Type == TokenOr {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseAndExpr()
		if err != nil {
			return nil, err
		}
		left = &LogicalExpr{Left: left, Op: OpOr, Right: right}
	}
	return left, nil
}

func (p *Parser) parseAndExpr() (BooleanExpr, error) {
	left, err := p.parseBooleanPrimary()
	if err != nil {
		return nil, err
	}
	for p.cur.Type == TokenAnd {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseBooleanPrimary()
		if err != nil {
			return nil, err
		}
		left = &LogicalExpr{Left: left, Op: OpAnd, Right: right}
	}
	return left, nil
}

// parseBooleanPrimary parses a parenthesized predicate or a single condition.
func (p *Parser) parseBooleanPrimary() (BooleanExpr, error) {
	if p.cur.Type == TokenLParen {
		if err := p.advance(); err != nil {
			return nil, err
		}
		inner, err := p.parseBooleanExpr()
		if err != nil {
			return nil, err
		}
		if p.cur.Type != TokenRParen {
			return nil, p.unexpected(") closing a boolean expression")
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return inner, nil
	}
	return p.parseCondition()
}

// parseCondition parses expression comparator expression, or
// expression IS [NOT] NULL.
func (p *Parser) parseCondition() (BooleanExpr, error) {
	left, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if p.cur.Type == TokenIs {
		if err := p.advance(); err != nil {
			return nil, err
		}
		op := CmpIsNull
		if p.cur.Type == TokenNot {
			op = CmpIsNotNull
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
		if p.cur.Type != TokenNull {
			return nil, p.unexpected("NULL after IS")
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &Condition{Left: left, Operator: op}, nil
	}
	var op Comparator
	switch p.cur.Type {
	case TokenEq:
		op = CmpEq
	case TokenNe:
		op = CmpNe
	case TokenLt:
		op = CmpLt
	case TokenLe:
		op = CmpLe
	case TokenGt:
		op = CmpGt
	case TokenGe:
		op = CmpGe
	case TokenStartsWith:
		op = CmpStartsWith
	case TokenEndsWith:
		op = CmpEndsWith
	case TokenContains:
		op = CmpContains
	default:
		return nil, p.unexpected("comparison operator")
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	right, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return &Condition{Left: left, Operator: op, Right: right}, nil
}

// parseExpression parses term (+ term)*, left-associative. + binds stronger
// than comparison and the logical operators.
func (p *Parser) parseExpression() (Expression, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for p.cur.Type == TokenPlus {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: "+", Left: left, Right: right}
	}
	return left, nil
}

// parseTerm parses a literal, an identifier, a property access or a function
// call.
func (p *Parser) parseTerm() (Expression, error) {
	tok := p.cur
	switch tok.Type {
	case TokenString:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &Literal{Value: graph.String(tok.Literal)}, nil
	case TokenInteger:
		n, err := strconv.ParseInt(tok.Literal, 10, 64)
		if err != nil {
			return nil, p.unexpected("integer literal")
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &Literal{Value: graph.Int64(n)}, nil
	case TokenFloat:
		f, err := strconv.ParseFloat(tok.Literal, 64)
		if err != nil {
			return nil, p.unexpected("float literal")
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &Literal{Value: graph.Float64(f)}, nil
	case TokenIdentifier:
		if b, ok := boolLiteral(tok.Literal); ok {
			if err := p.advance(); err != nil {
				return nil, err
			}
			return &Literal{Value: graph.Bool(b)}, nil
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		switch p.cur.Type {
		case TokenDot:
			if err := p.advance(); err != nil {
				return nil, err
			}
			if p.cur.Type != TokenIdentifier {
				return nil, p.unexpected("property name after .")
			}
			prop := p.cur.Literal
			if err := p.advance(); err != nil {
				return nil, err
			}
			return &PropertyAccess{Entity: tok.Literal, Property: prop}, nil
		case TokenLParen:
			return p.parseFunctionArgs(tok.Literal)
		default:
			return &Identifier{Name: tok.Literal}, nil
		}
	default:
		return nil, p.unexpected("expression")
	}
}

// parseFunctionArgs parses the argument list of name(...); the opening paren
// is the current token.
func (p *Parser) parseFunctionArgs(name string) (Expression, error) {
	if err := p.advance(); err != nil { // consume (
		return nil, err
	}
	call := &FunctionCall{Name: name}
	if p.cur.Type == TokenRParen {
		if err := p.advance(); err != nil {
			return nil, err
		}
		return call, nil
	}
	for {
		arg, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		call.Args = append(call.Args, arg)
		if p.cur.Type != TokenComma {
			break
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	if p.cur.Type != TokenRParen {
		return nil, p.unexpected(") closing a function call")
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return call, nil
}

func (p *Parser) advance() error {
	tok, err := p.lx.Next()
	if err != nil {
		return err
	}
	p.cur = tok
	return nil
}

// unexpected builds the fatal syntax error for the current token.
func (p *Parser) unexpected(expected string) error {
	if p.cur.Type == TokenEOF {
		return &SyntaxError{
			Msg:    "unexpected end of input, expected " + expected,
			Line:   p.cur.Line,
			Column: p.cur.Column,
		}
	}
	return &SyntaxError{
		Msg:    "expected " + expected,
		Token:  p.cur.Literal,
		Line:   p.cur.Line,
		Column: p.cur.Column,
	}
}

func boolLiteral(lexeme string) (bool, bool) {
	switch lexeme {
	case "true", "TRUE", "True":
		return true, true
	case "false", "FALSE", "False":
		return false, true
	}
	return false, false
}
