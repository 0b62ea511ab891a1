package lexer

import "testing"

func TestNextBasicTokens(t *testing.T) {
	src := `(){};,+-*!===<=>=!=<>/.?: `
	want := []TokenKind{
		LEFT_PAREN, RIGHT_PAREN, LEFT_BRACE, RIGHT_BRACE, SEMICOLON, COMMA,
		PLUS, MINUS, STAR, BANG_EQUAL, EQUAL_EQUAL, LESS_EQUAL, GREATER_EQUAL,
		BANG_EQUAL, LESS, GREATER, SLASH, DOT, Q_MARK, COLON, EOF,
	}
	l := New(src)
	for i, k := range want {
		tok := l.Next()
		if tok.Kind != k {
			t.Fatalf("token %d: got %v, want %v (lexeme %q)", i, tok.Kind, k, tok.Lexeme)
		}
	}
}

func TestNextKeywordsAndExtensions(t *testing.T) {
	src := "fix match is break continue super this"
	want := []TokenKind{FIX, MATCH, IS, BREAK, CONTINUE, SUPER, THIS, EOF}
	l := New(src)
	for i, k := range want {
		tok := l.Next()
		if tok.Kind != k {
			t.Fatalf("token %d: got %v, want %v", i, tok.Kind, k)
		}
	}
}

func TestNextStringAndNumber(t *testing.T) {
	l := New(`"hello" 3.5 42`)
	tok := l.Next()
	if tok.Kind != STRING || tok.Lexeme != `"hello"` {
		t.Fatalf("got %v %q", tok.Kind, tok.Lexeme)
	}
	tok = l.Next()
	if tok.Kind != NUMBER || tok.Lexeme != "3.5" {
		t.Fatalf("got %v %q", tok.Kind, tok.Lexeme)
	}
	tok = l.Next()
	if tok.Kind != NUMBER || tok.Lexeme != "42" {
		t.Fatalf("got %v %q", tok.Kind, tok.Lexeme)
	}
}

func TestNextUnterminatedString(t *testing.T) {
	l := New(`"oops`)
	tok := l.Next()
	if tok.Kind != ERROR {
		t.Fatalf("got %v, want ERROR", tok.Kind)
	}
}

func TestNextSkipsLineComments(t *testing.T) {
	l := New("// a comment\nprint 1;")
	tok := l.Next()
	if tok.Kind != PRINT {
		t.Fatalf("got %v, want PRINT", tok.Kind)
	}
}

func TestNextTracksLines(t *testing.T) {
	l := New("var a\n= 1;")
	l.Next() // var
	l.Next() // a
	tok := l.Next()
	if tok.Kind != EQUAL || tok.Line != 2 {
		t.Fatalf("got kind=%v line=%d, want EQUAL on line 2", tok.Kind, tok.Line)
	}
}
