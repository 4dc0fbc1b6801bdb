package cypher

import "strings"

// TokenType classifies lexical tokens.
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenIdentifier
	TokenString
	TokenInteger
	TokenFloat

	// Keywords.
	TokenMatch
	TokenWhere
	TokenReturn
	TokenCreate
	TokenDelete
	TokenDetach
	TokenAs
	TokenOrder
	TokenBy
	TokenLimit
	TokenDistinct
	TokenAnd
	TokenOr
	TokenIs
	TokenNot
	TokenNull
	TokenAsc
	TokenDesc
	TokenContains

	// Compound keywords matched across whitespace.
	TokenStartsWith
	TokenEndsWith

	// Punctuation and operators.
	TokenLParen
	TokenRParen
	TokenLBrace
	TokenRBrace
	TokenLBracket
	TokenRBracket
	TokenColon
	TokenComma
	TokenDot
	TokenEq
	TokenNe
	TokenLt
	TokenLe
	TokenGt
	TokenGe
	TokenPlus
	TokenDash
	TokenArrow
)

// Token is one lexical unit with its source position for error reporting.
type Token struct {
	Type    TokenType
	Literal string
	Line    int
	Column  int
}

// keywords maps upper-cased reserved words to their token types. Identifiers
// are looked up here case-insensitively.
var keywords = map[string]TokenType{
	"MATCH":    TokenMatch,
	"WHERE":    TokenWhere,
	"RETURN":   TokenReturn,
	"CREATE":   TokenCreate,
	"DELETE":   TokenDelete,
	"DETACH":   TokenDetach,
	"AS":       TokenAs,
	"ORDER":    TokenOrder,
	"BY":       TokenBy,
	"LIMIT":    TokenLimit,
	"DISTINCT": TokenDistinct,
	"AND":      TokenAnd,
	"OR":       TokenOr,
	"IS":       TokenIs,
	"NOT":      TokenNot,
	"NULL":     TokenNull,
	"ASC":      TokenAsc,
	"DESC":     TokenDesc,
	"CONTAINS": TokenContains,
}

// lookupKeyword resolves an identifier-shaped lexeme against the reserved
// word table.
func lookupKeyword(lexeme string) (TokenType, bool) {
	t, ok := keywords[strings.ToUpper(lexeme)]
	return t, ok
}

var tokenNames = map[TokenType]string{
	TokenEOF:        "end of input",
	TokenIdentifier: "identifier",
	TokenString:     "string",
	TokenInteger:    "integer",
	TokenFloat:      "float",
	TokenMatch:      "MATCH",
	TokenWhere:      "WHERE",
	TokenReturn:     "RETURN",
	TokenCreate:     "CREATE",
	TokenDelete:     "DELETE",
	TokenDetach:     "DETACH",
	TokenAs:         "AS",
	TokenOrder:      "ORDER",
	TokenBy:         "BY",
	TokenLimit:      "LIMIT",
	TokenDistinct:   "DISTINCT",
	TokenAnd:        "AND",
	TokenOr:         "OR",
	TokenIs:         "IS",
	TokenNot:        "NOT",
	TokenNull:       "NULL",
	TokenAsc:        "ASC",
	TokenDesc:       "DESC",
	TokenContains:   "CONTAINS",
	TokenStartsWith: "STARTS WITH",
	TokenEndsWith:   "ENDS WITH",
	TokenLParen:     "(",
	TokenRParen:     ")",
	TokenLBrace:     "{",
	TokenRBrace:     "}",
	TokenLBracket:   "[",
	TokenRBracket:   "]",
	TokenColon:      ":",
	TokenComma:      ",",
	TokenDot:        ".",
	TokenEq:         "=",
	TokenNe:         "<>",
	TokenLt:         "<",
	TokenLe:         "<=",
	TokenGt:         ">",
	TokenGe:         ">=",
	TokenPlus:       "+",
	TokenDash:       "-",
	TokenArrow:      "->",
}

// String returns the display name used in syntax error messages.
func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return "unknown"
}
