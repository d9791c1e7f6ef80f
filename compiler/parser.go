package compiler

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/chazu/quill/pkg/variant"
)

// ---------------------------------------------------------------------------
// Parser: signature-driven recursive descent parser for quill
// ---------------------------------------------------------------------------

// maxSlots is the number of frame slots addressable by OpLoadLocal.
const maxSlots = 255

// Parser parses quill source into a Program. Call sites are resolved while
// parsing: at each expression position the parser tries every visible
// signature and keeps the longest match.
type Parser struct {
	tokens []Token
	pos    int
	errors ErrorList
	scope  Scope

	prog      *Program
	callables []*Callable
	libraries map[string]bool // libraries whose functions are visible
	globals   map[string]bool
	fn        *funcState
	depth     int // block nesting inside the current body
}

type funcState struct {
	def   *FunctionDef
	slots map[string]int
}

// NewParser creates a parser for input. scope supplies library contents;
// it may be nil when the script uses no libraries.
func NewParser(input string, scope Scope) *Parser {
	p := &Parser{
		scope:     scope,
		prog:      &Program{},
		libraries: make(map[string]bool),
		globals:   make(map[string]bool),
	}
	for _, tok := range NewLexer(input).Tokenize() {
		if tok.Type == TokenError {
			p.errors = append(p.errors, &Error{Pos: tok.Pos, Msg: tok.Literal})
			continue
		}
		p.tokens = append(p.tokens, tok)
	}
	return p
}

// Errors returns accumulated parse errors.
func (p *Parser) Errors() ErrorList {
	return p.errors
}

// ---------------------------------------------------------------------------
// Token helpers
// ---------------------------------------------------------------------------

func (p *Parser) cur() Token {
	if p.pos >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1] // EOF
	}
	return p.tokens[p.pos]
}

func (p *Parser) advance() Token {
	tok := p.cur()
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return tok
}

func (p *Parser) curIs(t TokenType) bool {
	return p.cur().Type == t
}

func (p *Parser) curKeyword(kw string) bool {
	return p.cur().IsKeyword(kw)
}

func (p *Parser) expect(t TokenType) bool {
	if p.curIs(t) {
		p.advance()
		return true
	}
	p.errorf("expected %s, got %s", t, p.cur())
	return false
}

func (p *Parser) expectKeyword(kw string) bool {
	if p.curKeyword(kw) {
		p.advance()
		return true
	}
	p.errorf("expected %q, got %s", kw, p.cur())
	return false
}

// errorf records a parse error at the current token.
func (p *Parser) errorf(format string, args ...any) {
	p.errorAt(p.cur().Pos, format, args...)
}

func (p *Parser) errorAt(pos Position, format string, args ...any) {
	p.errors = append(p.errors, &Error{Pos: pos, Msg: fmt.Sprintf(format, args...)})
}

func (p *Parser) skipLine() {
	for !p.curIs(TokenNewline) && !p.curIs(TokenEOF) {
		p.advance()
	}
}

func (p *Parser) skipNewlines() {
	for p.curIs(TokenNewline) {
		p.advance()
	}
}

func (p *Parser) atLineStart(i int) bool {
	return i == 0 || p.tokens[i-1].Type == TokenNewline
}

// ---------------------------------------------------------------------------
// Program
// ---------------------------------------------------------------------------

// ParseProgram parses the whole input. libraries are the libraries the host
// asked the script to be compiled against.
func (p *Parser) ParseProgram(libraries []string) *Program {
	for _, name := range libraries {
		p.useLibrary(name, Position{Line: 1, Column: 1})
	}
	p.declarations()

	for !p.curIs(TokenEOF) {
		p.skipNewlines()
		if p.curIs(TokenEOF) {
			break
		}
		if stmt := p.parseStatement(); stmt != nil {
			p.prog.Main = append(p.prog.Main, stmt)
		}
	}
	return p.prog
}

// declarations scans top-level lines for library declarations, imports and
// function signatures so that calls may precede definitions.
func (p *Parser) declarations() {
	var imports []Token
	for i := 0; i < len(p.tokens)-1; i++ {
		if !p.atLineStart(i) {
			continue
		}
		tok, next := p.tokens[i], p.tokens[i+1]
		switch {
		case tok.IsKeyword("library") && next.Type == TokenIdentifier:
			if p.prog.Library != "" && p.prog.Library != next.Literal {
				p.errorAt(tok.Pos, "script already declared library %q", p.prog.Library)
				continue
			}
			p.prog.Library = next.Literal
		case tok.IsKeyword("import") && next.Type == TokenIdentifier:
			imports = append(imports, next)
		}
	}
	if name := p.prog.Library; name != "" && !p.libraries[name] {
		if _, ok := p.lookupLibrary(name); ok {
			p.useLibrary(name, Position{Line: 1, Column: 1})
		} else {
			// A script may be the first member of a new library.
			p.libraries[name] = true
			p.prog.Libraries = append(p.prog.Libraries, name)
		}
	}
	for _, tok := range imports {
		p.useLibrary(tok.Literal, tok.Pos)
	}

	shapes := make(map[string]bool)
	for i := 0; i < len(p.tokens)-1; i++ {
		if !p.atLineStart(i) {
			continue
		}
		j := i
		private := false
		if p.tokens[j].IsKeyword("public") || p.tokens[j].IsKeyword("private") {
			private = p.tokens[j].Literal == "private"
			j++
		}
		if !p.tokens[j].IsKeyword("function") {
			continue
		}
		sig, err := p.signatureFrom(j + 1)
		if err != nil {
			continue // reported again when the definition is parsed
		}
		if shapes[sig.Shape()] {
			p.errorAt(p.tokens[j].Pos, "function %q is already defined", sig.String())
			continue
		}
		shapes[sig.Shape()] = true
		c := &Callable{Sig: sig, Private: private, Index: len(p.prog.Functions)}
		p.prog.Functions = append(p.prog.Functions, &FunctionDef{SrcPos: p.tokens[j].Pos, Callable: c})
		p.callables = append(p.callables, c)
	}
}

// useLibrary makes a library's functions visible and records it as required.
func (p *Parser) useLibrary(name string, pos Position) {
	if p.libraries[name] {
		return
	}
	funcs, ok := p.lookupLibrary(name)
	if !ok {
		p.errorAt(pos, "unknown library %q", name)
		return
	}
	p.libraries[name] = true
	p.prog.Libraries = append(p.prog.Libraries, name)
	member := name == p.prog.Library
	for _, f := range funcs {
		if f.Private && !member {
			continue
		}
		sig, err := ParseSignature(f.Signature)
		if err != nil {
			continue
		}
		p.callables = append(p.callables, &Callable{Sig: sig, Library: name, Private: f.Private})
	}
}

func (p *Parser) lookupLibrary(name string) ([]FunctionInfo, bool) {
	if p.scope == nil {
		return nil, false
	}
	return p.scope.LibraryFunctions(name)
}

// signatureFrom parses a function signature from tokens starting at i and
// ending at the end of the line.
func (p *Parser) signatureFrom(i int) (*Signature, error) {
	sig := &Signature{}
	for ; i < len(p.tokens); i++ {
		tok := p.tokens[i]
		switch {
		case tok.Type == TokenNewline || tok.Type == TokenEOF:
			if err := sig.validate(); err != nil {
				return nil, err
			}
			return sig, nil
		case sig.Returns:
			return nil, fmt.Errorf("%w: {} must be the last token", ErrMalformedSignature)
		case tok.IsWord():
			sig.Parts = append(sig.Parts, SigPart{Word: tok.Literal})
		case tok.Type == TokenLBrace:
			if i+1 < len(p.tokens) && p.tokens[i+1].Type == TokenRBrace {
				sig.Returns = true
				i++
				continue
			}
			if i+2 < len(p.tokens) && p.tokens[i+1].Type == TokenIdentifier && p.tokens[i+2].Type == TokenRBrace {
				sig.Parts = append(sig.Parts, SigPart{Param: true, Name: p.tokens[i+1].Literal})
				i += 2
				continue
			}
			return nil, fmt.Errorf("%w: bad parameter placeholder", ErrMalformedSignature)
		default:
			return nil, fmt.Errorf("%w: unexpected %s", ErrMalformedSignature, tok)
		}
	}
	return nil, fmt.Errorf("%w: unexpected end of input", ErrMalformedSignature)
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func (p *Parser) topLevel() bool {
	return p.fn == nil && p.depth == 0
}

// parseStatement parses one statement and its line terminator. Returns nil
// for declarations and after errors.
func (p *Parser) parseStatement() Stmt {
	tok := p.cur()
	errs := len(p.errors)
	var stmt Stmt

	switch {
	case tok.IsKeyword("import"), tok.IsKeyword("library"):
		if !p.topLevel() {
			p.errorf("%s is only allowed at the top level", tok.Literal)
		}
		p.skipLine()
	case tok.IsKeyword("external"):
		p.parseExternal()
	case tok.IsKeyword("function"), tok.IsKeyword("public"), tok.IsKeyword("private"):
		p.parseFunction()
		return nil
	case tok.IsKeyword("set"):
		stmt = p.parseSet()
	case tok.IsKeyword("if"):
		stmt = p.parseIf()
	case tok.IsKeyword("loop"):
		stmt = p.parseLoop()
	case tok.IsKeyword("wait"):
		p.advance()
		stmt = &WaitStmt{SrcPos: tok.Pos}
	case tok.IsKeyword("return"):
		stmt = p.parseReturn()
	case tok.IsKeyword("end"), tok.IsKeyword("else"):
		p.errorf("unexpected %q", tok.Literal)
		p.advance()
	default:
		call, ok := p.tryCall()
		if !ok {
			if len(p.errors) == errs {
				p.errorf("unknown statement starting with %s", tok)
			}
			p.skipLine()
			return nil
		}
		stmt = &ExprStmt{SrcPos: tok.Pos, Call: call}
	}

	if len(p.errors) > errs {
		p.skipLine()
		if p.curIs(TokenNewline) {
			p.advance()
		}
		return nil
	}
	p.endOfStatement()
	return stmt
}

func (p *Parser) endOfStatement() {
	switch {
	case p.curIs(TokenNewline):
		p.advance()
	case p.curIs(TokenEOF):
	default:
		p.errorf("unexpected %s at end of statement", p.cur())
		p.skipLine()
	}
}

// parseBlock parses statements until one of the given keywords.
func (p *Parser) parseBlock(terminators ...string) []Stmt {
	p.depth++
	defer func() { p.depth-- }()

	var stmts []Stmt
	for {
		p.skipNewlines()
		if p.curIs(TokenEOF) {
			p.errorf("expected %q before end of input", strings.Join(terminators, `" or "`))
			return stmts
		}
		for _, kw := range terminators {
			if p.curKeyword(kw) {
				return stmts
			}
		}
		if stmt := p.parseStatement(); stmt != nil {
			stmts = append(stmts, stmt)
		}
	}
}

func (p *Parser) parseExternal() {
	tok := p.advance() // external
	if !p.topLevel() {
		p.errorAt(tok.Pos, "external is only allowed at the top level")
		return
	}
	name := p.cur()
	if name.Type != TokenIdentifier {
		p.errorf("expected variable name after external, got %s", name)
		return
	}
	p.advance()
	if !p.globals[name.Literal] {
		p.globals[name.Literal] = true
		p.prog.Externals = append(p.prog.Externals, name.Literal)
	}
}

func (p *Parser) parseFunction() {
	start := p.cur()
	if start.IsKeyword("public") || start.IsKeyword("private") {
		p.advance()
	}
	fnTok := p.cur()
	if !p.expectKeyword("function") {
		p.skipLine()
		return
	}
	if !p.topLevel() {
		p.errorAt(fnTok.Pos, "functions may only be defined at the top level")
	}

	sig, err := p.signatureFrom(p.pos)
	if err != nil {
		p.errorf("%v", err)
	}
	p.skipLine()

	var def *FunctionDef
	if sig != nil {
		for _, d := range p.prog.Functions {
			if d.SrcPos == fnTok.Pos {
				def = d
				break
			}
		}
	}
	if def == nil {
		// Parse the body anyway so that errors inside it are reported.
		def = &FunctionDef{SrcPos: fnTok.Pos, Callable: &Callable{Sig: &Signature{}}}
	}

	outer := p.fn
	p.fn = &funcState{def: def, slots: make(map[string]int)}
	def.Locals = nil
	for _, name := range def.Callable.Sig.ParamNames() {
		p.declareLocal(name, fnTok.Pos)
	}
	def.Body = p.parseBlock("end")
	p.expectKeyword("end")
	p.fn = outer
	p.endOfStatement()
}

func (p *Parser) declareLocal(name string, pos Position) int {
	if slot, ok := p.fn.slots[name]; ok {
		return slot
	}
	slot := len(p.fn.def.Locals)
	if slot >= maxSlots {
		p.errorAt(pos, "too many local variables")
		return 0
	}
	p.fn.slots[name] = slot
	p.fn.def.Locals = append(p.fn.def.Locals, name)
	return slot
}

func (p *Parser) lookupVar(name string, pos Position) (*VarRef, bool) {
	if p.fn != nil {
		slot, ok := p.fn.slots[name]
		return &VarRef{SrcPos: pos, Name: name, Slot: slot}, ok
	}
	return &VarRef{SrcPos: pos, Name: name, Global: true}, p.globals[name]
}

func (p *Parser) parseSet() Stmt {
	setTok := p.advance()
	nameTok := p.cur()
	if nameTok.Type != TokenIdentifier {
		p.errorf("expected variable name after set, got %s", nameTok)
		return nil
	}
	p.advance()

	stmt := &SetStmt{SrcPos: setTok.Pos}
	if p.curIs(TokenLBracket) {
		ref, ok := p.lookupVar(nameTok.Literal, nameTok.Pos)
		if !ok {
			p.errorAt(nameTok.Pos, "unknown variable %q", nameTok.Literal)
			return nil
		}
		stmt.Target = ref
		p.advance()
		stmt.Index = p.parseExpr()
		if !p.expect(TokenRBracket) {
			return nil
		}
	}
	if !p.expectKeyword("to") {
		return nil
	}
	stmt.Value = p.parseExpr()
	if stmt.Value == nil {
		return nil
	}

	if stmt.Target == nil {
		if p.fn != nil {
			slot := p.declareLocal(nameTok.Literal, nameTok.Pos)
			stmt.Target = &VarRef{SrcPos: nameTok.Pos, Name: nameTok.Literal, Slot: slot}
		} else {
			p.globals[nameTok.Literal] = true
			stmt.Target = &VarRef{SrcPos: nameTok.Pos, Name: nameTok.Literal, Global: true}
		}
	}
	return stmt
}

func (p *Parser) parseIf() Stmt {
	ifTok := p.advance()
	stmt := &IfStmt{SrcPos: ifTok.Pos, Cond: p.parseExpr()}
	if stmt.Cond == nil {
		return nil
	}
	if !p.expect(TokenNewline) {
		return nil
	}
	stmt.Then = p.parseBlock("else", "end")
	if p.curKeyword("else") {
		p.advance()
		if p.curKeyword("if") {
			// else if: nest without requiring a second "end".
			nested := p.parseIf()
			if nested != nil {
				stmt.Else = []Stmt{nested}
			}
			return stmt
		}
		if !p.expect(TokenNewline) {
			return nil
		}
		stmt.Else = p.parseBlock("end")
	}
	if !p.expectKeyword("end") {
		return nil
	}
	return stmt
}

func (p *Parser) parseLoop() Stmt {
	loopTok := p.advance()
	if !p.expectKeyword("while") {
		return nil
	}
	stmt := &LoopStmt{SrcPos: loopTok.Pos, Cond: p.parseExpr()}
	if stmt.Cond == nil {
		return nil
	}
	if !p.expect(TokenNewline) {
		return nil
	}
	stmt.Body = p.parseBlock("end")
	if !p.expectKeyword("end") {
		return nil
	}
	return stmt
}

func (p *Parser) parseReturn() Stmt {
	retTok := p.advance()
	stmt := &ReturnStmt{SrcPos: retTok.Pos}
	if p.curIs(TokenNewline) || p.curIs(TokenEOF) {
		return stmt
	}
	if p.fn == nil {
		p.errorf("the script cannot return a value")
		return nil
	}
	if !p.fn.def.Callable.Sig.Returns {
		p.errorf("function %q does not return a value", p.fn.def.Callable.Sig.String())
		return nil
	}
	stmt.Value = p.parseExpr()
	if stmt.Value == nil {
		return nil
	}
	return stmt
}

// ---------------------------------------------------------------------------
// Calls
// ---------------------------------------------------------------------------

type callMatch struct {
	target *Callable
	end    int
	args   []Expr
}

// tryCall matches the tokens at the current position against every visible
// signature. The longest match wins; equally long matches are ambiguous.
func (p *Parser) tryCall() (*CallExpr, bool) {
	start := p.pos
	first := p.cur()
	if !first.IsWord() {
		return nil, false
	}

	var matches []callMatch
	for _, c := range p.callables {
		if c.Sig.Parts[0].Word != first.Literal {
			continue
		}
		p.pos = start
		errs := len(p.errors)
		args, ok := p.matchSignature(c.Sig)
		if ok && len(p.errors) == errs {
			matches = append(matches, callMatch{target: c, end: p.pos, args: args})
		}
		p.errors = p.errors[:errs]
	}
	p.pos = start
	if len(matches) == 0 {
		return nil, false
	}

	best := matches[0]
	var tied []string
	for _, m := range matches[1:] {
		if m.end > best.end {
			best = m
			tied = nil
		} else if m.end == best.end {
			tied = append(tied, describe(m.target))
		}
	}
	if len(tied) > 0 {
		p.errorAt(first.Pos, "ambiguous call: %s matches %s", describe(best.target), strings.Join(tied, ", "))
	}
	p.pos = best.end
	return &CallExpr{SrcPos: first.Pos, Target: best.target, Args: best.args}, true
}

func describe(c *Callable) string {
	if c.Library == "" {
		return fmt.Sprintf("%q", c.Sig.String())
	}
	return fmt.Sprintf("%q in library %s", c.Sig.String(), c.Library)
}

func (p *Parser) matchSignature(sig *Signature) ([]Expr, bool) {
	var args []Expr
	for _, part := range sig.Parts {
		tok := p.cur()
		if !part.Param {
			if !tok.IsWord() || tok.Literal != part.Word {
				return nil, false
			}
			p.advance()
			continue
		}
		if !startsExpr(tok) {
			return nil, false
		}
		arg := p.parseExpr()
		if arg == nil {
			return nil, false
		}
		args = append(args, arg)
	}
	return args, true
}

func startsExpr(tok Token) bool {
	switch tok.Type {
	case TokenInteger, TokenReal, TokenString, TokenIdentifier, TokenWord,
		TokenLParen, TokenLBracket, TokenMinus:
		return true
	case TokenKeyword:
		if tok.Literal == "and" || tok.Literal == "or" {
			return false
		}
		return expressionKeywords[tok.Literal] || !statementKeywords[tok.Literal]
	}
	return false
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

// ParseExpression parses a single expression (for tests and tooling).
func (p *Parser) ParseExpression() Expr {
	return p.parseExpr()
}

func (p *Parser) parseExpr() Expr {
	return p.parseOr()
}

func (p *Parser) parseOr() Expr {
	left := p.parseAnd()
	for left != nil && p.curKeyword("or") {
		tok := p.advance()
		right := p.parseAnd()
		if right == nil {
			return nil
		}
		left = &LogicalExpr{SrcPos: tok.Pos, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseAnd() Expr {
	left := p.parseNot()
	for left != nil && p.curKeyword("and") {
		tok := p.advance()
		right := p.parseNot()
		if right == nil {
			return nil
		}
		left = &LogicalExpr{SrcPos: tok.Pos, And: true, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseNot() Expr {
	if p.curKeyword("not") {
		tok := p.advance()
		x := p.parseNot()
		if x == nil {
			return nil
		}
		return &UnaryExpr{SrcPos: tok.Pos, Op: TokenKeyword, X: x}
	}
	return p.parseComparison()
}

func isComparison(t TokenType) bool {
	switch t {
	case TokenEq, TokenNe, TokenLt, TokenLe, TokenGt, TokenGe:
		return true
	}
	return false
}

func (p *Parser) parseComparison() Expr {
	left := p.parseAdditive()
	for left != nil && isComparison(p.cur().Type) {
		tok := p.advance()
		right := p.parseAdditive()
		if right == nil {
			return nil
		}
		left = &BinaryExpr{SrcPos: tok.Pos, Op: tok.Type, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseAdditive() Expr {
	left := p.parseMultiplicative()
	for left != nil && (p.curIs(TokenPlus) || p.curIs(TokenMinus)) {
		tok := p.advance()
		right := p.parseMultiplicative()
		if right == nil {
			return nil
		}
		left = &BinaryExpr{SrcPos: tok.Pos, Op: tok.Type, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseMultiplicative() Expr {
	left := p.parseUnary()
	for left != nil && (p.curIs(TokenStar) || p.curIs(TokenSlash) || p.curIs(TokenPercent)) {
		tok := p.advance()
		right := p.parseUnary()
		if right == nil {
			return nil
		}
		left = &BinaryExpr{SrcPos: tok.Pos, Op: tok.Type, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseUnary() Expr {
	if p.curIs(TokenMinus) {
		tok := p.advance()
		x := p.parseUnary()
		if x == nil {
			return nil
		}
		if lit, ok := x.(*Literal); ok {
			switch {
			case lit.Value.IsInteger():
				i, _ := lit.Value.AsInteger()
				return &Literal{SrcPos: tok.Pos, Value: variant.Int(-i)}
			case lit.Value.IsReal():
				f, _ := lit.Value.AsReal()
				return &Literal{SrcPos: tok.Pos, Value: variant.Float(-f)}
			}
		}
		return &UnaryExpr{SrcPos: tok.Pos, Op: TokenMinus, X: x}
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() Expr {
	x := p.parsePrimary()
	for x != nil && p.curIs(TokenLBracket) {
		tok := p.advance()
		idx := p.parseExpr()
		if idx == nil || !p.expect(TokenRBracket) {
			return nil
		}
		x = &IndexExpr{SrcPos: tok.Pos, X: x, Index: idx}
	}
	return x
}

func (p *Parser) parsePrimary() Expr {
	tok := p.cur()
	switch tok.Type {
	case TokenInteger:
		p.advance()
		i, err := strconv.ParseInt(tok.Literal, 10, 64)
		if err != nil {
			p.errorAt(tok.Pos, "integer literal %s out of range", tok.Literal)
			return nil
		}
		return &Literal{SrcPos: tok.Pos, Value: variant.Int(i)}

	case TokenReal:
		p.advance()
		f, err := strconv.ParseFloat(tok.Literal, 64)
		if err != nil {
			p.errorAt(tok.Pos, "invalid number %s", tok.Literal)
			return nil
		}
		return &Literal{SrcPos: tok.Pos, Value: variant.Float(f)}

	case TokenString:
		p.advance()
		return &Literal{SrcPos: tok.Pos, Value: variant.Str(tok.Literal)}

	case TokenLParen:
		p.advance()
		x := p.parseExpr()
		if x == nil || !p.expect(TokenRParen) {
			return nil
		}
		return x

	case TokenLBracket:
		return p.parseList()

	case TokenKeyword:
		switch tok.Literal {
		case "true":
			p.advance()
			return &Literal{SrcPos: tok.Pos, Value: variant.Bool(true)}
		case "false":
			p.advance()
			return &Literal{SrcPos: tok.Pos, Value: variant.Bool(false)}
		case "null":
			p.advance()
			return &Literal{SrcPos: tok.Pos, Value: variant.NullValue()}
		}
	}

	if tok.IsWord() {
		if call, ok := p.tryCall(); ok {
			if !call.Target.Sig.Returns {
				p.errorAt(tok.Pos, "%s does not return a value", describe(call.Target))
				return nil
			}
			return call
		}
		if tok.Type == TokenIdentifier {
			if ref, ok := p.lookupVar(tok.Literal, tok.Pos); ok {
				p.advance()
				return ref
			}
			p.errorAt(tok.Pos, "unknown identifier %q", tok.Literal)
			return nil
		}
	}

	p.errorf("unexpected %s in expression", tok)
	return nil
}

func (p *Parser) parseList() Expr {
	open := p.advance()
	list := &ListExpr{SrcPos: open.Pos}
	if p.curIs(TokenRBracket) {
		p.advance()
		return list
	}
	for {
		elem := p.parseExpr()
		if elem == nil {
			return nil
		}
		list.Elems = append(list.Elems, elem)
		if p.curIs(TokenComma) {
			p.advance()
			continue
		}
		if !p.expect(TokenRBracket) {
			return nil
		}
		return list
	}
}
