package extract

import "fmt"

// TokenType represents the type of a lexical token.
type TokenType int

//nolint:revive // TOKEN_* names are intentionally ALL_CAPS for SQL token conventions
const (
	TOKEN_EOF TokenType = iota
	TOKEN_ILLEGAL

	TOKEN_WORD   // unquoted identifier or keyword
	TOKEN_QUOTED // "quoted identifier"
	TOKEN_STRING // 'literal', E'literal'
	TOKEN_NUMBER // 123, 45.67, 1e10
	TOKEN_PARAM  // $1

	TOKEN_DOT    // .
	TOKEN_COMMA  // ,
	TOKEN_LPAREN // (
	TOKEN_RPAREN // )
	TOKEN_SEMI   // ;
	TOKEN_CAST   // ::
	TOKEN_ASSIGN // :=
	TOKEN_OP     // any other operator character
)

var tokenNames = map[TokenType]string{
	TOKEN_EOF:     "EOF",
	TOKEN_ILLEGAL: "ILLEGAL",
	TOKEN_WORD:    "WORD",
	TOKEN_QUOTED:  "QUOTED",
	TOKEN_STRING:  "STRING",
	TOKEN_NUMBER:  "NUMBER",
	TOKEN_PARAM:   "PARAM",
	TOKEN_DOT:     ".",
	TOKEN_COMMA:   ",",
	TOKEN_LPAREN:  "(",
	TOKEN_RPAREN:  ")",
	TOKEN_SEMI:    ";",
	TOKEN_CAST:    "::",
	TOKEN_ASSIGN:  ":=",
	TOKEN_OP:      "OP",
}

// String returns the string representation of the token type.
func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TOKEN(%d)", t)
}

// Position represents a location in the source text.
type Position struct {
	Line   int // 1-based line number
	Column int // 1-based column number
	Offset int // 0-based byte offset
}

// Token represents a lexical token.
type Token struct {
	Type    TokenType
	Literal string // raw text; unquoted content for QUOTED and STRING
	Pos     Position
}

// IsIdent reports whether the token can name an object.
func (t Token) IsIdent() bool {
	return t.Type == TOKEN_WORD || t.Type == TOKEN_QUOTED
}

// reserved lists words that never name an object when unquoted.
// Only words that appear right after a reference keyword matter here.
var reserved = map[string]bool{
	"select": true, "from": true, "where": true, "join": true, "on": true,
	"lateral": true, "only": true, "as": true, "and": true, "or": true,
	"not": true, "null": true, "true": true, "false": true, "set": true,
	"values": true, "default": true, "with": true, "table": true,
	"view": true, "materialized": true, "if": true, "exists": true,
	"inner": true, "left": true, "right": true, "full": true, "cross": true,
	"natural": true, "outer": true, "using": true, "group": true,
	"order": true, "having": true, "limit": true, "offset": true,
	"union": true, "intersect": true, "except": true, "returning": true,
	"into": true, "case": true, "when": true, "then": true, "else": true,
	"end": true, "in": true, "is": true, "distinct": true, "all": true,
	"window": true, "for": true, "each": true, "row": true, "statement": true,
	"execute": true, "function": true, "procedure": true, "begin": true,
	"declare": true, "return": true, "returns": true, "language": true,
	"strict": true, "loop": true, "concurrently": true, "unique": true,
	"setof": true,
}

// statementWords are unreserved in SQL but never start an object reference
// in the text this package reads: statement verbs, PL/pgSQL control words and
// column constraint words.
var statementWords = map[string]bool{
	"insert": true, "update": true, "delete": true, "merge": true,
	"truncate": true, "lock": true, "refresh": true, "alter": true,
	"create": true, "drop": true, "replace": true, "perform": true,
	"call": true, "raise": true, "notice": true, "exception": true,
	"elsif": true, "exit": true, "continue": true, "while": true,
	"foreach": true, "query": true, "open": true, "fetch": true,
	"close": true, "get": true, "diagnostics": true, "found": true,
	"constant": true, "primary": true, "key": true, "foreign": true,
	"references": true, "check": true, "constraint": true, "like": true,
	"ilike": true, "similar": true, "inherits": true, "partition": true,
	"of": true, "out": true, "inout": true, "variadic": true, "owned": true,
	"by": true, "before": true, "after": true, "instead": true, "do": true,
	"nothing": true, "conflict": true, "immutable": true, "stable": true,
	"volatile": true, "security": true, "definer": true, "invoker": true,
	"temp": true, "temporary": true, "unlogged": true, "cascade": true,
	"restrict": true, "commit": true, "rollback": true,
}

// isKeyword reports whether an unquoted word is never an object name.
func isKeyword(lower string) bool {
	return reserved[lower] || statementWords[lower]
}
