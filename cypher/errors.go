package cypher

import "fmt"

// LexError is a fatal lexical failure: an unrecognized character or an
// unterminated string. Lexing stops at the first one.
type LexError struct {
	Msg    string
	Line   int
	Column int
}

func (e *LexError) Error() string {
	return fmt.Sprintf("lexical error at line %d, column %d: %s", e.Line, e.Column, e.Msg)
}

// SyntaxError is a fatal parse failure carrying the offending token and the
// grammar category that was expected. There is no recovery.
type SyntaxError struct {
	Msg    string
	Token  string
	Line   int
	Column int
}

func (e *SyntaxError) Error() string {
	if e.Token == "" {
		return fmt.Sprintf("syntax error: %s", e.Msg)
	}
	return fmt.Sprintf("syntax error at line %d, column %d near '%s': %s",
		e.Line, e.Column, e.Token, e.Msg)
}

// SemanticError is a fatal analysis failure: an unbound identifier, an unknown
// function, a type mismatch or an illegal comparator. Raised before any store
// mutation.
type SemanticError struct {
	Msg string
}

func (e *SemanticError) Error() string {
	return fmt.Sprintf("semantic error: %s", e.Msg)
}

func semanticf(format string, args ...interface{}) *SemanticError {
	return &SemanticError{Msg: fmt.Sprintf(format, args...)}
}
