package compiler

import (
	"fmt"
	"sort"
)

// ---------------------------------------------------------------------------
// Token types for the quill lexer
// ---------------------------------------------------------------------------

// TokenType represents the type of a token.
type TokenType int

const (
	// Special tokens
	TokenEOF TokenType = iota
	TokenError
	TokenNewline

	// Literals
	TokenInteger    // 42
	TokenReal       // 3.14, 1.5e10
	TokenString     // "hello"
	TokenIdentifier // foo, say, hello
	TokenKeyword    // set, to, function, ...
	TokenWord       // & and ? used as signature words

	// Operators
	TokenPlus    // +
	TokenMinus   // -
	TokenStar    // *
	TokenSlash   // /
	TokenPercent // %
	TokenEq      // =
	TokenNe      // !=
	TokenLt      // <
	TokenLe      // <=
	TokenGt      // >
	TokenGe      // >=

	// Delimiters
	TokenLParen   // (
	TokenRParen   // )
	TokenLBracket // [
	TokenRBracket // ]
	TokenLBrace   // {
	TokenRBrace   // }
	TokenComma    // ,
)

var tokenNames = map[TokenType]string{
	TokenEOF:        "EOF",
	TokenError:      "ERROR",
	TokenNewline:    "NEWLINE",
	TokenInteger:    "INTEGER",
	TokenReal:       "REAL",
	TokenString:     "STRING",
	TokenIdentifier: "IDENTIFIER",
	TokenKeyword:    "KEYWORD",
	TokenWord:       "WORD",
	TokenPlus:       "+",
	TokenMinus:      "-",
	TokenStar:       "*",
	TokenSlash:      "/",
	TokenPercent:    "%",
	TokenEq:         "=",
	TokenNe:         "!=",
	TokenLt:         "<",
	TokenLe:         "<=",
	TokenGt:         ">",
	TokenGe:         ">=",
	TokenLParen:     "(",
	TokenRParen:     ")",
	TokenLBracket:   "[",
	TokenRBracket:   "]",
	TokenLBrace:     "{",
	TokenRBrace:     "}",
	TokenComma:      ",",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Token(%d)", t)
}

// Position is a location in source text.
type Position struct {
	Offset int
	Line   int // 1-based
	Column int // 1-based
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Token represents a lexical token.
type Token struct {
	Type    TokenType
	Literal string   // the raw text (unquoted for strings)
	Pos     Position // start position
}

func (t Token) String() string {
	switch t.Type {
	case TokenEOF:
		return "EOF"
	case TokenNewline:
		return "NEWLINE"
	case TokenError:
		return fmt.Sprintf("ERROR(%s)", t.Literal)
	}
	if len(t.Literal) > 20 {
		return fmt.Sprintf("%s(%q...)", t.Type, t.Literal[:20])
	}
	return fmt.Sprintf("%s(%q)", t.Type, t.Literal)
}

// IsWord reports whether the token can appear as a word in a signature.
func (t Token) IsWord() bool {
	return t.Type == TokenIdentifier || t.Type == TokenKeyword || t.Type == TokenWord
}

// IsKeyword reports whether the token is the given reserved word.
func (t Token) IsKeyword(kw string) bool {
	return t.Type == TokenKeyword && t.Literal == kw
}

// Reserved words. Statement keywords may not begin a signature; expression
// keywords may not appear in one at all.
var (
	statementKeywords = map[string]bool{
		"set":      true,
		"to":       false,
		"external": true,
		"import":   true,
		"library":  true,
		"public":   true,
		"private":  true,
		"function": true,
		"end":      true,
		"if":       true,
		"else":     true,
		"loop":     true,
		"while":    false,
		"wait":     true,
		"return":   true,
	}
	expressionKeywords = map[string]bool{
		"and":   true,
		"or":    true,
		"not":   true,
		"true":  true,
		"false": true,
		"null":  true,
	}
)

func isReserved(word string) bool {
	_, stmt := statementKeywords[word]
	return stmt || expressionKeywords[word]
}

// Keywords returns every reserved word in sorted order.
func Keywords() []string {
	words := make([]string, 0, len(statementKeywords)+len(expressionKeywords))
	for w := range statementKeywords {
		words = append(words, w)
	}
	for w := range expressionKeywords {
		words = append(words, w)
	}
	sort.Strings(words)
	return words
}
