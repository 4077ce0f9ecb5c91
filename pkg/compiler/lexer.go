package compiler

import (
	"unicode"
)

// TokenType represents the type of a token.
type TokenType uint8

const (
	TokenEOF       TokenType = iota
	TokenNewline             // end of a source line
	TokenIdent               // opcode names, "Before", "After"
	TokenInt                 // integer literals, optionally negative
	TokenDirective           // #ip
	TokenComma               // ,
	TokenColon               // :
	TokenLBracket            // [
	TokenRBracket            // ]
	TokenIllegal             // anything else
)

// String returns the string representation of a token type.
func (t TokenType) String() string {
	switch t {
	case TokenEOF:
		return "EOF"
	case TokenNewline:
		return "NEWLINE"
	case TokenIdent:
		return "IDENT"
	case TokenInt:
		return "INT"
	case TokenDirective:
		return "DIRECTIVE"
	case TokenComma:
		return "COMMA"
	case TokenColon:
		return "COLON"
	case TokenLBracket:
		return "LBRACKET"
	case TokenRBracket:
		return "RBRACKET"
	case TokenIllegal:
		return "ILLEGAL"
	default:
		return "UNKNOWN"
	}
}

// Token represents a lexical token.
type Token struct {
	Type  TokenType
	Value string
	Line  int
}

// Lexer tokenizes elfcode source: programs, sample blocks and numeric
// programs share one token set.
type Lexer struct {
	input  string
	pos    int
	line   int
	tokens []Token
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input string) *Lexer {
	return &Lexer{
		input:  input,
		pos:    0,
		line:   1,
		tokens: []Token{},
	}
}

// Tokenize tokenizes the entire input and returns the tokens.
func (l *Lexer) Tokenize() []Token {
	for l.pos < len(l.input) {
		l.skipWhitespace()
		if l.pos >= len(l.input) {
			break
		}

		ch := l.input[l.pos]

		switch {
		case ch == '\n':
			l.emit(TokenNewline, "\n")
			l.line++
			l.pos++

		case ch == ';':
			// Comment - skip to end of line
			for l.pos < len(l.input) && l.input[l.pos] != '\n' {
				l.pos++
			}

		case ch == ',':
			l.emit(TokenComma, ",")
			l.pos++

		case ch == ':':
			l.emit(TokenColon, ":")
			l.pos++

		case ch == '[':
			l.emit(TokenLBracket, "[")
			l.pos++

		case ch == ']':
			l.emit(TokenRBracket, "]")
			l.pos++

		case ch == '#':
			l.scanWord(TokenDirective)

		case ch == '-' || unicode.IsDigit(rune(ch)):
			l.scanNumber()

		case unicode.IsLetter(rune(ch)) || ch == '_':
			l.scanWord(TokenIdent)

		default:
			l.emit(TokenIllegal, string(ch))
			l.pos++
		}
	}

	l.emit(TokenEOF, "")
	return l.tokens
}

func (l *Lexer) emit(t TokenType, value string) {
	l.tokens = append(l.tokens, Token{Type: t, Value: value, Line: l.line})
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		if ch == ' ' || ch == '\t' || ch == '\r' {
			l.pos++
		} else {
			break
		}
	}
}

func (l *Lexer) scanNumber() {
	start := l.pos

	// Handle negative sign
	if l.input[l.pos] == '-' {
		l.pos++
	}

	for l.pos < len(l.input) && unicode.IsDigit(rune(l.input[l.pos])) {
		l.pos++
	}

	value := l.input[start:l.pos]
	if value == "-" {
		l.emit(TokenIllegal, value)
		return
	}
	l.emit(TokenInt, value)
}

func (l *Lexer) scanWord(t TokenType) {
	start := l.pos

	// First character
	l.pos++

	// Continue with alphanumeric or underscore
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		if unicode.IsLetter(rune(ch)) || unicode.IsDigit(rune(ch)) || ch == '_' {
			l.pos++
		} else {
			break
		}
	}

	l.emit(t, l.input[start:l.pos])
}
