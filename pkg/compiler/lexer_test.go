package compiler

import (
	"testing"
)

func TestLexer_Statement(t *testing.T) {
	tokens := NewLexer("seti 5 0 1").Tokenize()

	expected := []struct {
		typ   TokenType
		value string
	}{
		{TokenIdent, "seti"},
		{TokenInt, "5"},
		{TokenInt, "0"},
		{TokenInt, "1"},
		{TokenEOF, ""},
	}

	if len(tokens) != len(expected) {
		t.Fatalf("expected %d tokens, got %d", len(expected), len(tokens))
	}
	for i, exp := range expected {
		if tokens[i].Type != exp.typ {
			t.Errorf("token %d: expected type %s, got %s", i, exp.typ, tokens[i].Type)
		}
		if tokens[i].Value != exp.value {
			t.Errorf("token %d: expected value %q, got %q", i, exp.value, tokens[i].Value)
		}
	}
}

func TestLexer_Directive(t *testing.T) {
	tokens := NewLexer("#ip 3\n").Tokenize()

	if tokens[0].Type != TokenDirective || tokens[0].Value != "#ip" {
		t.Errorf("expected #ip directive, got %s %q", tokens[0].Type, tokens[0].Value)
	}
	if tokens[1].Type != TokenInt || tokens[1].Value != "3" {
		t.Errorf("expected INT 3, got %s %q", tokens[1].Type, tokens[1].Value)
	}
	if tokens[2].Type != TokenNewline {
		t.Errorf("expected NEWLINE, got %s", tokens[2].Type)
	}
}

func TestLexer_SampleLine(t *testing.T) {
	tokens := NewLexer("Before: [3, 2, 1, 1]").Tokenize()

	types := []TokenType{
		TokenIdent, TokenColon, TokenLBracket,
		TokenInt, TokenComma, TokenInt, TokenComma, TokenInt, TokenComma, TokenInt,
		TokenRBracket, TokenEOF,
	}
	if len(tokens) != len(types) {
		t.Fatalf("expected %d tokens, got %d", len(types), len(tokens))
	}
	for i, typ := range types {
		if tokens[i].Type != typ {
			t.Errorf("token %d: expected %s, got %s", i, typ, tokens[i].Type)
		}
	}
}

func TestLexer_NegativeNumbers(t *testing.T) {
	tokens := NewLexer("seti -1 0 5").Tokenize()

	if tokens[1].Type != TokenInt || tokens[1].Value != "-1" {
		t.Errorf("expected INT -1, got %s %q", tokens[1].Type, tokens[1].Value)
	}
}

func TestLexer_Comments(t *testing.T) {
	tokens := NewLexer("addi 1 2 3 ; r3 = r1 + 2\n; whole line\nmulr 0 0 0").Tokenize()

	idents := 0
	for _, tok := range tokens {
		if tok.Type == TokenIdent {
			idents++
		}
	}
	if idents != 2 {
		t.Errorf("expected 2 identifiers outside comments, got %d", idents)
	}
}

func TestLexer_LineNumbers(t *testing.T) {
	tokens := NewLexer("seti 1 0 0\n\naddi 0 1 0").Tokenize()

	var addi Token
	for _, tok := range tokens {
		if tok.Value == "addi" {
			addi = tok
		}
	}
	if addi.Line != 3 {
		t.Errorf("expected addi on line 3, got %d", addi.Line)
	}
}

func TestLexer_Illegal(t *testing.T) {
	tokens := NewLexer("seti 1 @ 0").Tokenize()

	if tokens[2].Type != TokenIllegal || tokens[2].Value != "@" {
		t.Errorf("expected ILLEGAL @, got %s %q", tokens[2].Type, tokens[2].Value)
	}

	tokens = NewLexer("- 4").Tokenize()
	if tokens[0].Type != TokenIllegal {
		t.Errorf("expected lone minus to be ILLEGAL, got %s", tokens[0].Type)
	}
}
