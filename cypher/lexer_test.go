package cypher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// drain tokenizes the whole input, failing the test on any lexical error.
func drain(t *testing.T, input string) []Token {
	t.Helper()
	lx := NewLexer(input)
	var tokens []Token
	for {
		tok, err := lx.Next()
		require.NoError(t, err)
		if tok.Type == TokenEOF {
			return tokens
		}
		tokens = append(tokens, tok)
	}
}

func types(tokens []Token) []TokenType {
	out := make([]TokenType, len(tokens))
	for i, tok := range tokens {
		out[i] = tok.Type
	}
	return out
}

func TestLexerBasics(t *testing.T) {
	tokens := drain(t, "MATCH (n:Person) RETURN n.name")
	assert.Equal(t, []TokenType{
		TokenMatch, TokenLParen, TokenIdentifier, TokenColon, TokenIdentifier,
		TokenRParen, TokenReturn, TokenIdentifier, TokenDot, TokenIdentifier,
	}, types(tokens))
	assert.Equal(t, "Person", tokens[4].Literal)
}

func TestLexerKeywordsCaseInsensitive(t *testing.T) {
	for _, input := range []string{"match", "Match", "MATCH", "mAtCh"} {
		tokens := drain(t, input)
		require.Len(t, tokens, 1)
		assert.Equal(t, TokenMatch, tokens[0].Type, "input %q", input)
	}
}

func TestLexerCompoundOperators(t *testing.T) {
	tests := []struct {
		input string
		want  TokenType
	}{
		{"STARTS WITH", TokenStartsWith},
		{"starts   with", TokenStartsWith},
		{"ENDS WITH", TokenEndsWith},
		{"ends\nwith", TokenEndsWith},
	}
	for _, tt := range tests {
		tokens := drain(t, tt.input)
		require.Len(t, tokens, 1, "input %q", tt.input)
		assert.Equal(t, tt.want, tokens[0].Type, "input %q", tt.input)
	}

	// STARTS not followed by WITH stays a plain identifier.
	tokens := drain(t, "STARTS something")
	require.Len(t, tokens, 2)
	assert.Equal(t, TokenIdentifier, tokens[0].Type)
	assert.Equal(t, "STARTS", tokens[0].Literal)
}

func TestLexerStrings(t *testing.T) {
	t.Run("quotes stripped", func(t *testing.T) {
		tokens := drain(t, "'Alice'")
		require.Len(t, tokens, 1)
		assert.Equal(t, TokenString, tokens[0].Type)
		assert.Equal(t, "Alice", tokens[0].Literal)
	})

	t.Run("empty string", func(t *testing.T) {
		tokens := drain(t, "''")
		require.Len(t, tokens, 1)
		assert.Equal(t, "", tokens[0].Literal)
	})

	t.Run("unterminated", func(t *testing.T) {
		lx := NewLexer("'oops")
		_, err := lx.Next()
		var lexErr *LexError
		require.ErrorAs(t, err, &lexErr)
		assert.Contains(t, lexErr.Error(), "unterminated string literal")
	})
}

func TestLexerNumbers(t *testing.T) {
	tests := []struct {
		input string
		want  TokenType
	}{
		{"42", TokenInteger},
		{"3.14", TokenFloat},
		{"0", TokenInteger},
	}
	for _, tt := range tests {
		tokens := drain(t, tt.input)
		require.Len(t, tokens, 1, "input %q", tt.input)
		assert.Equal(t, tt.want, tokens[0].Type, "input %q", tt.input)
		assert.Equal(t, tt.input, tokens[0].Literal)
	}

	// A trailing dot is property access, not a float.
	tokens := drain(t, "3.x")
	assert.Equal(t, []TokenType{TokenInteger, TokenDot, TokenIdentifier}, types(tokens))
}

func TestLexerSymbols(t *testing.T) {
	tokens := drain(t, "()-[]->{}<><=>=:,.=<>+")
	assert.Equal(t, []TokenType{
		TokenLParen, TokenRParen, TokenDash, TokenLBracket, TokenRBracket,
		TokenArrow, TokenLBrace, TokenRBrace, TokenNe, TokenLe, TokenGe,
		TokenColon, TokenComma, TokenDot, TokenEq, TokenNe, TokenPlus,
	}, types(tokens))
}

func TestLexerPositions(t *testing.T) {
	lx := NewLexer("MATCH\n  (n)")
	tok, err := lx.Next()
	require.NoError(t, err)
	assert.Equal(t, 1, tok.Line)
	assert.Equal(t, 1, tok.Column)

	tok, err = lx.Next()
	require.NoError(t, err)
	assert.Equal(t, TokenLParen, tok.Type)
	assert.Equal(t, 2, tok.Line)
	assert.Equal(t, 3, tok.Column)
}

func TestLexerUnrecognizedCharacter(t *testing.T) {
	lx := NewLexer("MATCH @")
	_, err := lx.Next()
	require.NoError(t, err)
	_, err = lx.Next()
	var lexErr *LexError
	require.ErrorAs(t, err, &lexErr)
	assert.Equal(t, 1, lexErr.Line)
	assert.Equal(t, 7, lexErr.Column)
}

func TestLexerEOFIsSticky(t *testing.T) {
	lx := NewLexer("n")
	tok, err := lx.Next()
	require.NoError(t, err)
	assert.Equal(t, TokenIdentifier, tok.Type)
	for i := 0; i < 3; i++ {
		tok, err = lx.Next()
		require.NoError(t, err)
		assert.Equal(t, TokenEOF, tok.Type)
	}
}
