package extract

import (
	"slices"
	"strings"

	"github.com/leapstack-labs/pgdeps/pkg/catalog"
	"github.com/leapstack-labs/pgdeps/pkg/core"
)

// position is the syntactic role of a name in definition text.
type position int

const (
	posNone position = iota
	posRelation
	posTrigger
	posIndex
	posCall
	posType
	posRowType
	posQualified
)

// unknownPolicy says when a name matching nothing is reported.
type unknownPolicy int

const (
	unknownNever unknownPolicy = iota
	unknownQualified
	unknownAlways
)

// Target kinds per position.
var (
	relationTargets = []core.ObjectKind{core.KindTable, core.KindView, core.KindMaterializedView, core.KindSequence}
	triggerTargets  = []core.ObjectKind{core.KindTable, core.KindView}
	indexTargets    = []core.ObjectKind{core.KindTable, core.KindMaterializedView}
	callTargets     = []core.ObjectKind{core.KindFunction, core.KindProcedure}
	typeTargets     = []core.ObjectKind{core.KindType}
	rowTypeTargets  = []core.ObjectKind{core.KindType, core.KindTable, core.KindView, core.KindMaterializedView}
	sequenceTargets = []core.ObjectKind{core.KindSequence}
	tableTargets    = []core.ObjectKind{core.KindTable}
	namedTargets    = []core.ObjectKind{
		core.KindTable, core.KindView, core.KindMaterializedView, core.KindFunction,
		core.KindProcedure, core.KindSequence, core.KindType,
	}
)

var (
	systemSchemas = map[string]bool{
		"pg_catalog": true, "information_schema": true, "pg_temp": true, "pg_toast": true,
	}

	// FROM inside these calls separates arguments.
	fromArgumentCalls = map[string]bool{
		"extract": true, "substring": true, "trim": true, "position": true, "overlay": true,
	}

	// UPDATE after these words is part of a clause, not a statement.
	updateClauseWords = map[string]bool{
		"on": true, "for": true, "or": true, "before": true, "after": true,
		"do": true, "of": true, "instead": true, "key": true, "no": true,
	}

	declarationKinds = map[string]bool{
		"table": true, "view": true, "function": true, "procedure": true,
		"trigger": true, "type": true, "sequence": true, "index": true,
		"domain": true, "aggregate": true,
	}

	declarationModifiers = map[string]bool{
		"or": true, "replace": true, "temp": true, "temporary": true,
		"unlogged": true, "global": true, "local": true, "materialized": true,
		"unique": true, "constraint": true, "recursive": true,
	}

	parameterModes = map[string]bool{
		"in": true, "out": true, "inout": true, "variadic": true,
	}

	sequenceFuncs = map[string]bool{
		"nextval": true, "currval": true, "setval": true, "pg_get_serial_sequence": true,
	}
)

// name is a possibly qualified identifier. Parts are case folded.
type name struct {
	parts []string
	raw   string
}

func (n name) qualified() bool { return len(n.parts) > 1 }

func (n name) schema() string {
	if n.qualified() {
		return n.parts[0]
	}
	return ""
}

// object returns the object part. For a.b.c the trailing column is dropped.
func (n name) object() string {
	if n.qualified() {
		return n.parts[1]
	}
	return n.parts[0]
}

func (n name) system() bool {
	return systemSchemas[n.schema()]
}

// readName reads a dotted name starting at toks[i], which must be an
// identifier, and returns it with the index of the following token.
func readName(toks []Token, i int) (name, int) {
	var (
		n   name
		raw []string
	)
	for {
		t := toks[i]
		n.parts = append(n.parts, core.FoldIdentifier(t.Literal))
		if t.Type == TOKEN_QUOTED {
			raw = append(raw, `"`+t.Literal+`"`)
		} else {
			raw = append(raw, t.Literal)
		}
		i++
		if i+1 < len(toks) && toks[i].Type == TOKEN_DOT && toks[i+1].IsIdent() {
			i++
			continue
		}
		break
	}
	n.raw = strings.Join(raw, ".")
	return n, i
}

// parseName reads a name from literal text such as 'public.orders_id_seq'.
func parseName(text string) (name, bool) {
	toks := Tokenize(text)
	if len(toks) == 0 || !toks[0].IsIdent() {
		return name{}, false
	}
	n, _ := readName(toks, 0)
	return n, true
}

type parenFrame struct {
	fn   string // lowercased word before "(", if any
	decl bool   // parameter, column or attribute declaration list
}

// scanner walks the tokens of one definition and feeds a collector.
type scanner struct {
	obj  *core.CatalogObject
	cat  *catalog.Catalog
	toks []Token
	lw   []string // lowercased literal of unquoted words, "" otherwise

	parens    []parenFrame
	fromLists map[int]bool // paren depth -> inside a FROM list
	declParen int          // token index of the next declaration list
	inDeclare bool
	executed  bool // trigger header passed EXECUTE

	ctes    map[string]bool
	aliases map[string]bool

	*collector
}

func newScanner(obj *core.CatalogObject, cat *catalog.Catalog) *scanner {
	toks := Tokenize(obj.Definition)
	lw := make([]string, len(toks))
	for i, t := range toks {
		if t.Type == TOKEN_WORD {
			lw[i] = strings.ToLower(t.Literal)
		}
	}
	s := &scanner{
		obj:       obj,
		cat:       cat,
		toks:      toks,
		lw:        lw,
		fromLists: make(map[int]bool),
		declParen: -1,
		ctes:      make(map[string]bool),
		aliases:   make(map[string]bool),
		collector: newCollector(),
	}
	s.collectCTEs()
	return s
}

func (s *scanner) tok(i int) Token {
	if i < 0 || i >= len(s.toks) {
		return Token{Type: TOKEN_EOF}
	}
	return s.toks[i]
}

func (s *scanner) word(i int) string {
	if i < 0 || i >= len(s.lw) {
		return ""
	}
	return s.lw[i]
}

// isName reports whether toks[i] can be an object or variable name.
func (s *scanner) isName(i int) bool {
	t := s.tok(i)
	return t.Type == TOKEN_QUOTED || (t.Type == TOKEN_WORD && !isKeyword(s.lw[i]))
}

func (s *scanner) isListStart(i int) bool {
	t := s.tok(i).Type
	return t == TOKEN_LPAREN || t == TOKEN_COMMA
}

func (s *scanner) parenFn() string {
	if len(s.parens) == 0 {
		return ""
	}
	return s.parens[len(s.parens)-1].fn
}

func (s *scanner) inDeclParen() bool {
	return len(s.parens) > 0 && s.parens[len(s.parens)-1].decl
}

// collectCTEs records "name [(cols)] AS [NOT] [MATERIALIZED] (" names.
func (s *scanner) collectCTEs() {
	for i := range s.toks {
		if !s.isName(i) {
			continue
		}
		j := i + 1
		if s.tok(j).Type == TOKEN_LPAREN {
			j = s.matchParen(j) + 1
		}
		if s.word(j) != "as" {
			continue
		}
		j++
		if s.word(j) == "not" {
			j++
		}
		if s.word(j) == "materialized" {
			j++
		}
		if s.tok(j).Type == TOKEN_LPAREN {
			s.ctes[core.FoldIdentifier(s.toks[i].Literal)] = true
		}
	}
}

// matchParen returns the index of the ")" closing the "(" at i, or the last
// index when unbalanced.
func (s *scanner) matchParen(i int) int {
	depth := 0
	for j := i; j < len(s.toks); j++ {
		switch s.toks[j].Type {
		case TOKEN_LPAREN:
			depth++
		case TOKEN_RPAREN:
			depth--
			if depth == 0 {
				return j
			}
		}
	}
	return len(s.toks) - 1
}

func (s *scanner) scan() {
	for i := 0; i < len(s.toks); {
		i = s.step(i)
	}
}

func (s *scanner) step(i int) int {
	switch t := s.toks[i]; t.Type {
	case TOKEN_LPAREN:
		frame := parenFrame{decl: i == s.declParen}
		if s.tok(i - 1).IsIdent() {
			frame.fn = strings.ToLower(s.toks[i-1].Literal)
		}
		if s.word(i-1) == "table" && s.word(i-2) == "returns" {
			frame.decl = true
		}
		s.parens = append(s.parens, frame)
	case TOKEN_RPAREN:
		delete(s.fromLists, len(s.parens))
		if len(s.parens) > 0 {
			s.parens = s.parens[:len(s.parens)-1]
		}
	case TOKEN_SEMI:
		clear(s.fromLists)
		s.declParen = -1
	case TOKEN_STRING:
		s.literal(i)
	case TOKEN_WORD, TOKEN_QUOTED:
		if t.Type == TOKEN_WORD && isKeyword(s.lw[i]) {
			return s.keyword(i)
		}
		return s.identifier(i)
	}
	return i + 1
}

func (s *scanner) keyword(i int) int {
	switch w := s.lw[i]; w {
	case "create":
		return s.declaration(i)
	case "declare":
		s.inDeclare = true
	case "begin":
		s.inDeclare = false
	case "execute":
		s.executed = true
	case "as", "only", "lateral":
		return i + 1
	}
	delete(s.fromLists, len(s.parens))
	return i + 1
}

// declaration skips the declared name of a CREATE statement and marks the
// declaration list that follows it.
func (s *scanner) declaration(i int) int {
	j := i + 1
	for declarationModifiers[s.word(j)] {
		j++
	}
	kind := s.word(j)
	if !declarationKinds[kind] {
		return i + 1
	}
	j++
	for w := s.word(j); w == "if" || w == "not" || w == "exists" || w == "concurrently"; w = s.word(j) {
		j++
	}
	if !s.isName(j) {
		return j
	}
	_, next := readName(s.toks, j)
	switch kind {
	case "function", "procedure", "aggregate", "table", "type":
		switch {
		case s.tok(next).Type == TOKEN_LPAREN:
			s.declParen = next
		case s.word(next) == "as" && s.tok(next+1).Type == TOKEN_LPAREN:
			s.declParen = next + 1
		}
	}
	return next
}

func (s *scanner) identifier(i int) int {
	// Field of a record or composite: NEW.col, (row).field.
	if s.tok(i-1).Type == TOKEN_DOT {
		return i + 1
	}
	n, next := readName(s.toks, i)

	if sequenceFuncs[n.object()] && (!n.qualified() || n.schema() == "pg_catalog") &&
		s.tok(next).Type == TOKEN_LPAREN && s.tok(next+1).Type == TOKEN_STRING {
		s.sequenceLiteral(n.object(), s.toks[next+1].Literal)
		return next
	}

	pos, fromItem := s.classify(i, n, next)
	switch pos {
	case posRelation:
		// A CTE shadows a relation of the same name in FROM and JOIN.
		if fromItem && !n.qualified() && s.ctes[n.object()] {
			break
		}
		s.bind(n, relationTargets, edgeKindFor, unknownAlways)
	case posTrigger:
		s.bind(n, triggerTargets, triggerEdge, unknownAlways)
	case posIndex:
		s.bind(n, indexTargets, edgeKindFor, unknownAlways)
	case posCall:
		s.bind(n, callTargets, callEdge, unknownQualified)
	case posType:
		s.bind(n, s.typeTargets(), typeEdge, unknownQualified)
	case posRowType:
		s.rowType(n, next)
	case posQualified:
		s.bind(n, namedTargets, edgeKindFor, unknownNever)
	}

	if fromItem {
		s.fromLists[len(s.parens)] = true
	}
	if pos == posRelation || pos == posIndex || fromItem {
		s.recordAlias(next)
	}
	return next
}

// recordAlias remembers "relation [AS] alias" so the alias is never
// reported as unknown.
func (s *scanner) recordAlias(next int) {
	if s.tok(next).Type == TOKEN_LPAREN {
		next = s.matchParen(next) + 1
	}
	if s.word(next) == "as" {
		next++
	}
	if s.isName(next) {
		s.aliases[core.FoldIdentifier(s.toks[next].Literal)] = true
	}
}

// classify decides the position of the name spanning toks[i:next]. The
// second result reports whether the name is an item of a FROM list.
func (s *scanner) classify(i int, n name, next int) (position, bool) {
	if t := s.tok(next); t.Type == TOKEN_OP && t.Literal == "%" {
		if w := s.word(next + 1); w == "rowtype" || w == "type" {
			return posRowType, false
		}
	}
	if s.typePosition(i, next) {
		return posType, false
	}

	call := s.tok(next).Type == TOKEN_LPAREN
	k := i - 1
	if s.word(k) == "only" {
		k--
	}
	switch s.word(k) {
	case "from":
		if s.fromIsRelation(k) {
			return fromItem(call)
		}
	case "join":
		return fromItem(call)
	case "lateral":
		if call {
			return posCall, true
		}
	case "into":
		if w := s.word(k - 1); w == "insert" || w == "merge" {
			return posRelation, false
		}
	case "update":
		if !updateClauseWords[s.word(k-1)] {
			return posRelation, false
		}
	case "references", "truncate", "lock":
		return posRelation, false
	case "table":
		switch s.word(k - 1) {
		case "truncate", "lock", "alter":
			return posRelation, false
		}
	case "of":
		if s.word(k-1) == "partition" {
			return posRelation, false
		}
	case "like":
		if s.obj.ID.Kind == core.KindTable && s.isListStart(k-1) {
			return posRelation, false
		}
	case "view":
		if s.word(k-1) == "materialized" && s.word(k-2) == "refresh" {
			return posRelation, false
		}
	case "concurrently":
		if s.word(k-1) == "view" && s.word(k-3) == "refresh" {
			return posRelation, false
		}
	case "using":
		if s.obj.ID.Kind != core.KindIndex && s.isName(k-1) {
			return posRelation, false
		}
	case "on":
		switch s.obj.ID.Kind {
		case core.KindTrigger:
			if s.executed {
				break
			}
			if _, bound := s.cat.TriggerTable(s.obj.ID); bound {
				return posNone, false
			}
			return posTrigger, false
		case core.KindIndex:
			return posIndex, false
		}
	}

	if s.tok(i-1).Type == TOKEN_COMMA && s.fromLists[len(s.parens)] {
		return fromItem(call)
	}
	if s.isListStart(i-1) && s.parenFn() == "inherits" {
		return posRelation, false
	}
	if call {
		return posCall, false
	}
	if n.qualified() {
		return posQualified, false
	}
	return posNone, false
}

func fromItem(call bool) (position, bool) {
	if call {
		return posCall, true
	}
	return posRelation, true
}

// fromIsRelation reports whether the FROM at toks[k] introduces relations.
func (s *scanner) fromIsRelation(k int) bool {
	if fromArgumentCalls[s.parenFn()] {
		return false
	}
	// IS [NOT] DISTINCT FROM
	return s.word(k-1) != "distinct"
}

// typePosition reports whether the name at toks[i] names a data type.
func (s *scanner) typePosition(i, next int) bool {
	switch {
	case s.tok(i-1).Type == TOKEN_CAST:
		return true
	case s.word(i-1) == "returns" || s.word(i-1) == "setof":
		return true
	case s.word(i-1) == "as" && s.parenFn() == "cast":
		return true
	}

	// DECLARE v_total numeric; v_status CONSTANT order_status;
	if s.inDeclare && len(s.parens) == 0 {
		j := i - 1
		if s.word(j) == "constant" {
			j--
		}
		if s.isName(j) && (s.tok(j-1).Type == TOKEN_SEMI || s.word(j-1) == "declare") {
			return true
		}
	}

	if !s.inDeclParen() {
		return false
	}
	// (p_id integer, OUT p_total numeric) and (id serial, status order_status)
	if s.isName(i-1) && (s.isListStart(i-2) || parameterModes[s.word(i-2)]) {
		return true
	}
	// unnamed routine parameters: f(integer, order_status[])
	if s.obj.ID.Kind.IsRoutine() && (s.isListStart(i-1) || parameterModes[s.word(i-1)]) {
		switch t := s.tok(next); t.Type {
		case TOKEN_COMMA, TOKEN_RPAREN:
			return true
		case TOKEN_OP:
			return t.Literal == "["
		}
	}
	return false
}

// typeTargets are the kinds a type position of this object may bind to.
// Routines and composite types may use relation row types.
func (s *scanner) typeTargets() []core.ObjectKind {
	if s.obj.ID.Kind.IsRoutine() || s.obj.ID.Kind == core.KindType {
		return rowTypeTargets
	}
	return typeTargets
}

// rowType handles rel%ROWTYPE and rel.column%TYPE.
func (s *scanner) rowType(n name, next int) {
	rel := n
	if s.word(next+1) == "type" {
		if !n.qualified() {
			return // variable%TYPE
		}
		rel = name{parts: n.parts[:len(n.parts)-1], raw: n.raw[:strings.LastIndexByte(n.raw, '.')]}
	}
	s.bind(rel, rowTypeTargets, typeEdge, unknownNever)
}

// literal handles 'name'::regclass and friends.
func (s *scanner) literal(i int) {
	if s.tok(i+1).Type != TOKEN_CAST {
		return
	}
	n, ok := parseName(s.toks[i].Literal)
	if !ok {
		return
	}
	switch s.word(i + 2) {
	case "regclass":
		s.bind(n, relationTargets, edgeKindFor, unknownAlways)
	case "regproc", "regprocedure":
		s.bind(n, callTargets, callEdge, unknownAlways)
	case "regtype":
		s.bind(n, s.typeTargets(), typeEdge, unknownAlways)
	}
}

// sequenceLiteral handles nextval('seq') and pg_get_serial_sequence('table', 'col').
func (s *scanner) sequenceLiteral(fn, text string) {
	n, ok := parseName(text)
	if !ok {
		return
	}
	if fn != "pg_get_serial_sequence" {
		s.bind(n, sequenceTargets, edgeKindFor, unknownAlways)
		return
	}
	ids := s.lookup(n, tableTargets)
	switch len(ids) {
	case 0:
		s.addUnresolved(Unresolved{Text: n.raw, Reason: ReasonUnknown})
	case 1:
		for _, seq := range s.cat.SequencesOwnedBy(ids[0]) {
			s.link(seq, core.EdgeSequenceUsage)
		}
	default:
		s.addUnresolved(Unresolved{Text: n.raw, Reason: ReasonAmbiguous, Candidates: ids})
	}
}

// scanAttributes binds the declared types of columns and parameters.
func (s *scanner) scanAttributes() {
	for _, attr := range s.obj.Attributes {
		toks := Tokenize(attr.Type)
		i := 0
		for i < len(toks) && toks[i].Type == TOKEN_WORD && isKeyword(strings.ToLower(toks[i].Literal)) {
			i++ // SETOF, IN, OUT
		}
		if i >= len(toks) || !toks[i].IsIdent() {
			continue
		}
		n, _ := readName(toks, i)
		s.bind(n, s.typeTargets(), typeEdge, unknownQualified)
	}
}

// addBindings adds the edges the catalog derived from trigger and sequence
// metadata.
func (s *scanner) addBindings() {
	id := s.obj.ID
	switch {
	case id.Kind.IsRoutine():
		for _, trigger := range s.cat.TriggersFor(id) {
			if table, ok := s.cat.TriggerTable(trigger); ok {
				s.link(table, core.EdgeTriggerTarget)
			}
		}
	case id.Kind == core.KindTrigger:
		if table, ok := s.cat.TriggerTable(id); ok {
			s.link(table, core.EdgeTriggerTarget)
		}
		if fn, ok := s.cat.TriggerFunction(id); ok {
			s.link(fn, core.EdgeFunctionCall)
		}
	case id.Kind == core.KindTable:
		for _, seq := range s.cat.SequencesOwnedBy(id) {
			s.link(seq, core.EdgeSequenceUsage)
		}
	}
}

// lookup returns the catalog objects n may denote among kinds.
func (s *scanner) lookup(n name, kinds []core.ObjectKind) []core.ObjectID {
	ids := s.cat.ByName(n.object(), kinds...)
	if !n.qualified() {
		return ids
	}
	var out []core.ObjectID
	for _, id := range ids {
		if id.Schema == n.schema() {
			out = append(out, id)
		}
	}
	return out
}

// bind resolves n among kinds and records an edge, an unresolved entry or
// nothing. Candidates that would form an incoherent edge are discarded
// before deciding ambiguity.
func (s *scanner) bind(n name, kinds []core.ObjectKind, edge func(core.ObjectKind) (core.EdgeKind, bool), policy unknownPolicy) {
	if n.system() {
		return
	}
	ids := s.lookup(n, kinds)
	if len(ids) == 0 {
		s.unknown(n, policy)
		return
	}

	type candidate struct {
		id   core.ObjectID
		kind core.EdgeKind
	}
	var cands []candidate
	for _, id := range ids {
		k, ok := edge(id.Kind)
		if ok && s.allowed(id, k) {
			cands = append(cands, candidate{id, k})
		}
	}
	switch len(cands) {
	case 0:
	case 1:
		s.addRef(Reference{Target: cands[0].id, Kind: cands[0].kind})
	default:
		u := Unresolved{Text: n.raw, Reason: ReasonAmbiguous}
		for _, c := range cands {
			u.Candidates = append(u.Candidates, c.id)
		}
		slices.SortFunc(u.Candidates, core.CompareIDs)
		s.addUnresolved(u)
	}
}

func (s *scanner) unknown(n name, policy unknownPolicy) {
	switch policy {
	case unknownNever:
		return
	case unknownQualified:
		if !n.qualified() {
			return
		}
	}
	if !n.qualified() && (s.ctes[n.object()] || s.aliases[n.object()]) {
		return
	}
	s.addUnresolved(Unresolved{Text: n.raw, Reason: ReasonUnknown})
}

// link records an edge to a known target if it is coherent.
func (s *scanner) link(target core.ObjectID, k core.EdgeKind) {
	if s.allowed(target, k) {
		s.addRef(Reference{Target: target, Kind: k})
	}
}

func (s *scanner) allowed(target core.ObjectID, k core.EdgeKind) bool {
	if target == s.obj.ID && !keepSelf(s.obj.ID.Kind, k) {
		return false
	}
	return Coherent(s.obj.ID.Kind, k, target.Kind)
}

func callEdge(core.ObjectKind) (core.EdgeKind, bool)    { return core.EdgeFunctionCall, true }
func typeEdge(core.ObjectKind) (core.EdgeKind, bool)    { return core.EdgeTypeUsage, true }
func triggerEdge(core.ObjectKind) (core.EdgeKind, bool) { return core.EdgeTriggerTarget, true }
