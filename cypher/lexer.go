package cypher

import (
	"fmt"
	"strings"
	"unicode"
)

// Lexer turns query text into tokens one at a time. A fresh Lexer is built per
// parse; it is not reused across queries.
type Lexer struct {
	input  string
	pos    int
	line   int
	column int
}

// NewLexer initializes a Lexer over the given query text.
func NewLexer(input string) *Lexer {
	return &Lexer{input: input, line: 1, column: 1}
}

// Next produces the next token, or a LexError on the first unrecognized
// character. After the input is exhausted it keeps returning TokenEOF.
func (l *Lexer) Next() (Token, error) {
	l.skipSpace()
	if l.pos >= len(l.input) {
		return Token{Type: TokenEOF, Line: l.line, Column: l.column}, nil
	}
	ch := l.input[l.pos]
	switch {
	case isIdentStart(ch):
		return l.readIdentifierOrKeyword(), nil
	case ch == '\'':
		return l.readString()
	case unicode.IsDigit(rune(ch)):
		return l.readNumber(), nil
	default:
		return l.readSymbol()
	}
}

func (l *Lexer) skipSpace() {
	for l.pos < len(l.input) {
		switch l.input[l.pos] {
		case ' ', '\t', '\r':
			l.pos++
			l.column++
		case '\n':
			l.pos++
			l.line++
			l.column = 1
		default:
			return
		}
	}
}

func (l *Lexer) advance(n int) {
	l.pos += n
	l.column += n
}

// readIdentifierOrKeyword reads an identifier-shaped lexeme and resolves it
// against the reserved word table. STARTS and ENDS combine with a following
// WITH into a single compound operator token, tolerating any whitespace
// between the two words.
func (l *Lexer) readIdentifierOrKeyword() Token {
	line, col := l.line, l.column
	start := l.pos
	for l.pos < len(l.input) && isIdentPart(l.input[l.pos]) {
		l.advance(1)
	}
	lexeme := l.input[start:l.pos]
	upper := strings.ToUpper(lexeme)
	if upper == "STARTS" || upper == "ENDS" {
		if l.consumeWith() {
			t := TokenStartsWith
			if upper == "ENDS" {
				t = TokenEndsWith
			}
			return Token{Type: t, Literal: upper + " WITH", Line: line, Column: col}
		}
	}
	if t, ok := lookupKeyword(lexeme); ok {
		return Token{Type: t, Literal: lexeme, Line: line, Column: col}
	}
	return Token{Type: TokenIdentifier, Literal: lexeme, Line: line, Column: col}
}

// consumeWith consumes whitespace plus the word WITH, returning false (and
// leaving the position untouched) when the next word is anything else.
func (l *Lexer) consumeWith() bool {
	savePos, saveLine, saveCol := l.pos, l.line, l.column
	l.skipSpace()
	start := l.pos
	for l.pos < len(l.input) && isIdentPart(l.input[l.pos]) {
		l.advance(1)
	}
	if strings.ToUpper(l.input[start:l.pos]) == "WITH" {
		return true
	}
	l.pos, l.line, l.column = savePos, saveLine, saveCol
	return false
}

// readString reads a single-quoted string literal. Quotes are stripped and no
// escape processing is applied.
func (l *Lexer) readString() (Token, error) {
	line, col := l.line, l.column
	l.advance(1)
	start := l.pos
	for l.pos < len(l.input) && l.input[l.pos] != '\'' {
		if l.input[l.pos] == '\n' {
			l.line++
			l.column = 0
		}
		l.advance(1)
	}
	if l.pos >= len(l.input) {
		return Token{}, &LexError{Msg: "unterminated string literal", Line: line, Column: col}
	}
	value := l.input[start:l.pos]
	l.advance(1)
	return Token{Type: TokenString, Literal: value, Line: line, Column: col}, nil
}

// readNumber reads a numeric literal: integer unless it contains a decimal
// point followed by more digits.
func (l *Lexer) readNumber() Token {
	line, col := l.line, l.column
	start := l.pos
	for l.pos < len(l.input) && unicode.IsDigit(rune(l.input[l.pos])) {
		l.advance(1)
	}
	tokenType := TokenInteger
	if l.pos+1 < len(l.input) && l.input[l.pos] == '.' && unicode.IsDigit(rune(l.input[l.pos+1])) {
		tokenType = TokenFloat
		l.advance(1)
		for l.pos < len(l.input) && unicode.IsDigit(rune(l.input[l.pos])) {
			l.advance(1)
		}
	}
	return Token{Type: tokenType, Literal: l.input[start:l.pos], Line: line, Column: col}
}

func (l *Lexer) readSymbol() (Token, error) {
	line, col := l.line, l.column
	ch := l.input[l.pos]
	two := ""
	if l.pos+1 < len(l.input) {
		two = l.input[l.pos : l.pos+2]
	}
	emit := func(t TokenType, lit string) (Token, error) {
		l.advance(len(lit))
		return Token{Type: t, Literal: lit, Line: line, Column: col}, nil
	}
	switch {
	case two == "->":
		return emit(TokenArrow, two)
	case two == "<>":
		return emit(TokenNe, two)
	case two == "<=":
		return emit(TokenLe, two)
	case two == ">=":
		return emit(TokenGe, two)
	}
	switch ch {
	case '(':
		return emit(TokenLParen, "(")
	case ')':
		return emit(TokenRParen, ")")
	case '{':
		return emit(TokenLBrace, "{")
	case '}':
		return emit(TokenRBrace, "}")
	case '[':
		return emit(TokenLBracket, "[")
	case ']':
		return emit(TokenRBracket, "]")
	case ':':
		return emit(TokenColon, ":")
	case ',':
		return emit(TokenComma, ",")
	case '.':
		return emit(TokenDot, ".")
	case '=':
		return emit(TokenEq, "=")
	case '<':
		return emit(TokenLt, "<")
	case '>':
		return emit(TokenGt, ">")
	case '+':
		return emit(TokenPlus, "+")
	case '-':
		return emit(TokenDash, "-")
	default:
		return Token{}, &LexError{
			Msg:    fmt.Sprintf("unrecognized character %q", string(ch)),
			Line:   line,
			Column: col,
		}
	}
}

func isIdentStart(ch byte) bool {
	return ch == '_' || unicode.IsLetter(rune(ch))
}

func isIdentPart(ch byte) bool {
	return ch == '_' || unicode.IsLetter(rune(ch)) || unicode.IsDigit(rune(ch))
}
