package extract

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Lexer tokenizes SQL and PL/pgSQL text.
//
// It never fails: unterminated literals and comments run to the end of the
// input. Single-quoted literals are returned as STRING tokens so callers can
// skip them. An outermost dollar-quoted body ($$ ... $$, $fn$ ... $fn$) is
// code, so its delimiters are dropped and the body is tokenized in place. A
// dollar-quoted span opened inside a body is a literal and becomes one
// STRING token.
type Lexer struct {
	input   string
	pos     int  // current position in input
	readPos int  // reading position (after current char)
	ch      byte // current char under examination
	line    int  // current line number (1-based)
	col     int  // current column number (1-based)

	dollarTags []string // open dollar-quote tags, innermost last
}

// NewLexer creates a new Lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{
		input: input,
		line:  1,
		col:   0,
	}
	l.readChar()
	return l
}

// readChar advances to the next character.
func (l *Lexer) readChar() {
	if l.readPos >= len(l.input) {
		l.ch = 0 // ASCII NUL = EOF
	} else {
		l.ch = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++

	if l.ch == '\n' {
		l.line++
		l.col = 0
	} else {
		l.col++
	}
}

// peekChar returns the next character without advancing.
func (l *Lexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

func (l *Lexer) atEOF() bool {
	return l.pos >= len(l.input)
}

func (l *Lexer) currentPos() Position {
	return Position{Line: l.line, Column: l.col, Offset: l.pos}
}

// NextToken returns the next token.
func (l *Lexer) NextToken() Token {
	for {
		l.skipWhitespaceAndComments()
		if l.ch != '$' {
			break
		}
		tag, ok := l.dollarTag()
		if !ok {
			break
		}
		if n := len(l.dollarTags); n > 0 && l.dollarTags[n-1] != tag {
			pos := l.currentPos()
			return Token{Type: TOKEN_STRING, Literal: l.readDollarString(tag), Pos: pos}
		}
		l.toggleDollarTag(tag)
	}

	pos := l.currentPos()
	if l.atEOF() {
		return Token{Type: TOKEN_EOF, Pos: pos}
	}

	switch l.ch {
	case '.':
		return l.single(TOKEN_DOT, pos)
	case ',':
		return l.single(TOKEN_COMMA, pos)
	case '(':
		return l.single(TOKEN_LPAREN, pos)
	case ')':
		return l.single(TOKEN_RPAREN, pos)
	case ';':
		return l.single(TOKEN_SEMI, pos)
	case ':':
		switch l.peekChar() {
		case ':':
			l.readChar()
			l.readChar()
			return Token{Type: TOKEN_CAST, Literal: "::", Pos: pos}
		case '=':
			l.readChar()
			l.readChar()
			return Token{Type: TOKEN_ASSIGN, Literal: ":=", Pos: pos}
		}
		return l.single(TOKEN_OP, pos)
	case '\'':
		return Token{Type: TOKEN_STRING, Literal: l.readString(false), Pos: pos}
	case '"':
		return Token{Type: TOKEN_QUOTED, Literal: l.readQuotedIdentifier(), Pos: pos}
	case '$':
		if isDigit(l.peekChar()) {
			start := l.pos
			l.readChar()
			for isDigit(l.ch) {
				l.readChar()
			}
			return Token{Type: TOKEN_PARAM, Literal: l.input[start:l.pos], Pos: pos}
		}
		return l.single(TOKEN_OP, pos)
	}

	if (l.ch == 'E' || l.ch == 'e') && l.peekChar() == '\'' {
		l.readChar()
		return Token{Type: TOKEN_STRING, Literal: l.readString(true), Pos: pos}
	}
	if isIdentStart(l.ch) {
		return Token{Type: TOKEN_WORD, Literal: l.readIdentifier(), Pos: pos}
	}
	if isDigit(l.ch) {
		return Token{Type: TOKEN_NUMBER, Literal: l.readNumber(), Pos: pos}
	}
	if strings.IndexByte("+-*/%<>=!|&^~#@?[]{}", l.ch) >= 0 {
		return l.single(TOKEN_OP, pos)
	}
	return l.single(TOKEN_ILLEGAL, pos)
}

func (l *Lexer) single(t TokenType, pos Position) Token {
	tok := Token{Type: t, Literal: string(l.ch), Pos: pos}
	l.readChar()
	return tok
}

// skipWhitespaceAndComments skips whitespace and comments.
func (l *Lexer) skipWhitespaceAndComments() {
	for {
		for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' || l.ch == '\f' {
			l.readChar()
		}

		// Skip line comment (-- ...)
		if l.ch == '-' && l.peekChar() == '-' {
			for l.ch != '\n' && !l.atEOF() {
				l.readChar()
			}
			continue
		}

		// Skip block comment (/* ... */), which nests in PostgreSQL
		if l.ch == '/' && l.peekChar() == '*' {
			l.skipBlockComment()
			continue
		}

		break
	}
}

func (l *Lexer) skipBlockComment() {
	depth := 0
	for !l.atEOF() {
		switch {
		case l.ch == '/' && l.peekChar() == '*':
			depth++
			l.readChar()
			l.readChar()
		case l.ch == '*' && l.peekChar() == '/':
			depth--
			l.readChar()
			l.readChar()
			if depth == 0 {
				return
			}
		default:
			l.readChar()
		}
	}
}

// dollarTag returns the tag of a $tag$ delimiter starting at the current
// position.
func (l *Lexer) dollarTag() (string, bool) {
	end := l.pos + 1
	for end < len(l.input) && (isIdentStart(l.input[end]) || isDigit(l.input[end])) {
		end++
	}
	if end >= len(l.input) || l.input[end] != '$' {
		return "", false
	}
	tag := l.input[l.pos+1 : end]
	if tag != "" && isDigit(tag[0]) {
		return "", false
	}
	return tag, true
}

// toggleDollarTag consumes a body delimiter. A tag equal to the innermost
// open tag closes the body, otherwise it opens one.
func (l *Lexer) toggleDollarTag(tag string) {
	if n := len(l.dollarTags); n > 0 && l.dollarTags[n-1] == tag {
		l.dollarTags = l.dollarTags[:n-1]
	} else {
		l.dollarTags = append(l.dollarTags, tag)
	}
	l.skip(len(tag) + 2)
}

// readDollarString reads a $tag$ ... $tag$ literal and returns its content.
// An unterminated literal runs to the end of the input.
func (l *Lexer) readDollarString(tag string) string {
	delim := "$" + tag + "$"
	l.skip(len(delim))
	rest := l.input[l.pos:]
	n := strings.Index(rest, delim)
	if n < 0 {
		l.skip(len(rest))
		return rest
	}
	l.skip(n + len(delim))
	return rest[:n]
}

// skip advances n characters.
func (l *Lexer) skip(n int) {
	for ; n > 0 && !l.atEOF(); n-- {
		l.readChar()
	}
}

// readString reads a single-quoted string literal.
// Handles doubled single quotes as escape: 'it''s' -> it's.
// With backslash set, \' and \\ are escapes too (E'' strings).
func (l *Lexer) readString(backslash bool) string {
	l.readChar() // skip opening quote

	var result strings.Builder
	for !l.atEOF() {
		if backslash && l.ch == '\\' {
			l.readChar()
			if !l.atEOF() {
				result.WriteByte(l.ch)
				l.readChar()
			}
			continue
		}
		if l.ch == '\'' {
			if l.peekChar() == '\'' {
				result.WriteByte('\'')
				l.readChar()
				l.readChar()
				continue
			}
			l.readChar() // skip closing quote
			break
		}
		result.WriteByte(l.ch)
		l.readChar()
	}
	return result.String()
}

// readQuotedIdentifier reads a double-quoted identifier.
// Handles doubled double quotes as escape: "col""name" -> col"name
func (l *Lexer) readQuotedIdentifier() string {
	l.readChar() // skip opening quote

	var result strings.Builder
	for !l.atEOF() {
		if l.ch == '"' {
			if l.peekChar() == '"' {
				result.WriteByte('"')
				l.readChar()
				l.readChar()
				continue
			}
			l.readChar() // skip closing quote
			break
		}
		result.WriteByte(l.ch)
		l.readChar()
	}
	return result.String()
}

// readIdentifier reads an unquoted identifier.
func (l *Lexer) readIdentifier() string {
	start := l.pos
	for !l.atEOF() && isIdentPart(l.ch) {
		l.readChar()
	}
	return l.input[start:l.pos]
}

// readNumber reads a numeric literal (integer, decimal, or scientific).
func (l *Lexer) readNumber() string {
	start := l.pos
	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	if (l.ch == 'e' || l.ch == 'E') && (isDigit(l.peekChar()) || l.peekChar() == '+' || l.peekChar() == '-') {
		l.readChar()
		if l.ch == '+' || l.ch == '-' {
			l.readChar()
		}
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	return l.input[start:l.pos]
}

// isIdentStart accepts ASCII letters, underscore and any non-ASCII byte,
// so UTF-8 encoded identifiers stay in one token.
func isIdentStart(ch byte) bool {
	if ch >= utf8.RuneSelf {
		return true
	}
	return unicode.IsLetter(rune(ch)) || ch == '_'
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch) || ch == '$'
}

// isDigit returns true if ch is a digit.
func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

// Tokenize returns all tokens from the input, excluding the final EOF.
func Tokenize(input string) []Token {
	l := NewLexer(input)
	var tokens []Token
	for {
		tok := l.NextToken()
		if tok.Type == TOKEN_EOF {
			break
		}
		tokens = append(tokens, tok)
	}
	return tokens
}
