// Package parser implements the Pratt-style expression parser and
// recursive-descent statement grammar of spec.md §4.I-L, ported from
// original_source's havel-lang/parser/Parser.h onto Go's (value, error)
// idiom with accumulated diagnostics instead of C++ exceptions.
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/havel-project/havel/internal/lang/ast"
	"github.com/havel-project/havel/internal/lang/lexer"
)

// Diagnostic is one recorded parse error with its source position.
type Diagnostic struct {
	Line, Column int
	Msg          string
}

func (d Diagnostic) Error() string { return fmt.Sprintf("parse error at %d:%d: %s", d.Line, d.Column, d.Msg) }

// Parser consumes a token stream and builds an *ast.Program, recording
// diagnostics and synchronizing to the next statement boundary on error
// so a single pass can surface every syntax error in a script.
type Parser struct {
	tokens []lexer.Token
	pos    int
	diags  []Diagnostic
}

// New creates a Parser over an already-lexed token stream.
func New(tokens []lexer.Token) *Parser {
	return &Parser{tokens: tokens}
}

// Parse lexes and parses a full Havel source string in one call.
func Parse(source string) (*ast.Program, []Diagnostic) {
	toks, err := lexer.New(source).Tokenize()
	if err != nil {
		le := err.(*lexer.Error)
		return nil, []Diagnostic{{le.Line, le.Column, le.Msg}}
	}
	p := New(toks)
	prog := p.ParseProgram()
	return prog, p.diags
}

func (p *Parser) cur() lexer.Token  { return p.tokens[p.pos] }
func (p *Parser) peek(n int) lexer.Token {
	if p.pos+n >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.pos+n]
}
func (p *Parser) advance() lexer.Token {
	t := p.cur()
	if t.Type != lexer.EOF {
		p.pos++
	}
	return t
}
func (p *Parser) check(t lexer.Type) bool { return p.cur().Type == t }
func (p *Parser) match(t lexer.Type) bool {
	if p.check(t) {
		p.advance()
		return true
	}
	return false
}
func (p *Parser) expect(t lexer.Type, what string) (lexer.Token, bool) {
	if p.check(t) {
		return p.advance(), true
	}
	p.errorf("expected %s, got %q", what, p.cur().Raw)
	return lexer.Token{}, false
}

func (p *Parser) errorf(format string, args ...interface{}) {
	p.diags = append(p.diags, Diagnostic{p.cur().Line, p.cur().Column, fmt.Sprintf(format, args...)})
}

// synchronize discards tokens until a likely statement boundary, so
// ParseProgram can keep collecting diagnostics after an error.
func (p *Parser) synchronize() {
	for !p.check(lexer.EOF) {
		if p.cur().Type == lexer.Semicolon {
			p.advance()
			return
		}
		switch p.cur().Type {
		case lexer.Let, lexer.If, lexer.While, lexer.For, lexer.Loop,
			lexer.Fn, lexer.Return, lexer.Import, lexer.Config,
			lexer.Devices, lexer.Modes, lexer.On, lexer.Off, lexer.Hotkey:
			return
		}
		p.advance()
	}
}

// ParseProgram parses every top-level statement, synchronizing past
// errors so the whole file is checked in one pass.
func (p *Parser) ParseProgram() *ast.Program {
	prog := &ast.Program{}
	for !p.check(lexer.EOF) {
		before := p.pos
		stmt := p.parseStatement()
		if stmt != nil {
			prog.Body = append(prog.Body, stmt)
		}
		if p.pos == before {
			// parseStatement made no progress (a fatal parse error);
			// force a step forward before resynchronizing to avoid
			// looping forever on the same token.
			p.advance()
		}
		if len(p.diags) > 0 && p.diags[len(p.diags)-1].Line == p.cur().Line && stmt == nil {
			p.synchronize()
		}
	}
	return prog
}

func (p *Parser) parseStatement() ast.Statement {
	switch p.cur().Type {
	case lexer.Let:
		return p.parseLet()
	case lexer.If:
		return p.parseIf()
	case lexer.While:
		return p.parseWhile()
	case lexer.For:
		return p.parseFor()
	case lexer.Loop:
		return p.parseLoop()
	case lexer.Break:
		p.advance()
		p.match(lexer.Semicolon)
		return &ast.BreakStatement{}
	case lexer.Continue:
		p.advance()
		p.match(lexer.Semicolon)
		return &ast.ContinueStatement{}
	case lexer.Fn:
		return p.parseFunctionDeclaration()
	case lexer.Return:
		return p.parseReturn()
	case lexer.Import:
		return p.parseImport()
	case lexer.Config:
		return p.parseKeyedBlock(lexer.Config)
	case lexer.Devices:
		return p.parseKeyedBlock(lexer.Devices)
	case lexer.Modes:
		return p.parseModesBlock()
	case lexer.On, lexer.Off:
		return p.parseModeGuard()
	case lexer.LBrace:
		return p.parseBlock()
	case lexer.Hotkey:
		if p.peek(1).Type == lexer.Arrow {
			return p.parseHotkeyBinding()
		}
	}
	expr := p.parseExpression(LOWEST)
	p.match(lexer.Semicolon)
	if expr == nil {
		return nil
	}
	return &ast.ExpressionStatement{Expr: expr}
}

func (p *Parser) parseBlock() *ast.BlockStatement {
	if _, ok := p.expect(lexer.LBrace, "'{'"); !ok {
		return &ast.BlockStatement{}
	}
	blk := &ast.BlockStatement{}
	for !p.check(lexer.RBrace) && !p.check(lexer.EOF) {
		before := p.pos
		stmt := p.parseStatement()
		if stmt != nil {
			blk.Body = append(blk.Body, stmt)
		}
		if p.pos == before {
			p.advance()
		}
	}
	p.expect(lexer.RBrace, "'}'")
	return blk
}

func (p *Parser) parseLet() ast.Statement {
	p.advance() // 'let'
	name, ok := p.expect(lexer.Ident, "identifier")
	if !ok {
		return nil
	}
	if _, ok := p.expect(lexer.Assign, "'='"); !ok {
		return nil
	}
	value := p.parseExpression(LOWEST)
	p.match(lexer.Semicolon)
	return &ast.LetDeclaration{Name: name.Value, Value: value}
}

func (p *Parser) parseIf() ast.Statement {
	p.advance() // 'if'
	cond := p.parseExpression(LOWEST)
	then := p.parseBlock()
	stmt := &ast.IfStatement{Condition: cond, Then: then}
	if p.match(lexer.Else) {
		if p.check(lexer.If) {
			stmt.Else = p.parseIf()
		} else {
			stmt.Else = p.parseBlock()
		}
	}
	return stmt
}

func (p *Parser) parseWhile() ast.Statement {
	p.advance()
	cond := p.parseExpression(LOWEST)
	body := p.parseBlock()
	return &ast.WhileStatement{Condition: cond, Body: body}
}

func (p *Parser) parseFor() ast.Statement {
	p.advance()
	name, ok := p.expect(lexer.Ident, "identifier")
	if !ok {
		return nil
	}
	if _, ok := p.expect(lexer.In, "'in'"); !ok {
		return nil
	}
	iter := p.parseExpression(LOWEST)
	body := p.parseBlock()
	return &ast.ForStatement{Name: name.Value, Iterable: iter, Body: body}
}

func (p *Parser) parseLoop() ast.Statement {
	p.advance()
	body := p.parseBlock()
	return &ast.LoopStatement{Body: body}
}

func (p *Parser) parseReturn() ast.Statement {
	p.advance()
	if p.check(lexer.Semicolon) || p.check(lexer.RBrace) {
		p.match(lexer.Semicolon)
		return &ast.ReturnStatement{}
	}
	val := p.parseExpression(LOWEST)
	p.match(lexer.Semicolon)
	return &ast.ReturnStatement{Value: val}
}

func (p *Parser) parseFunctionDeclaration() ast.Statement {
	p.advance() // 'fn'
	name, ok := p.expect(lexer.Ident, "function name")
	if !ok {
		return nil
	}
	params := p.parseParamList()
	body := p.parseBlock()
	return &ast.FunctionDeclaration{Name: name.Value, Params: params, Body: body}
}

func (p *Parser) parseParamList() []string {
	if _, ok := p.expect(lexer.LParen, "'('"); !ok {
		return nil
	}
	var params []string
	for !p.check(lexer.RParen) && !p.check(lexer.EOF) {
		if t, ok := p.expect(lexer.Ident, "parameter name"); ok {
			params = append(params, t.Value)
		}
		if !p.match(lexer.Comma) {
			break
		}
	}
	p.expect(lexer.RParen, "')'")
	return params
}

func (p *Parser) parseImport() ast.Statement {
	p.advance() // 'import'
	var names []string
	if t, ok := p.expect(lexer.Ident, "import name"); ok {
		names = append(names, t.Value)
	}
	for p.match(lexer.Comma) {
		if t, ok := p.expect(lexer.Ident, "import name"); ok {
			names = append(names, t.Value)
		}
	}
	stmt := &ast.ImportStatement{Names: names}
	if p.match(lexer.From) {
		if t, ok := p.expect(lexer.String, "module path"); ok {
			stmt.Path = t.Value
		}
	}
	if p.match(lexer.As) {
		if t, ok := p.expect(lexer.Ident, "alias"); ok {
			stmt.As = t.Value
		}
	}
	p.match(lexer.Semicolon)
	return stmt
}

// parseKeyedBlock parses `config { key: value, ... }` / `devices {...}`.
func (p *Parser) parseKeyedBlock(kw lexer.Type) ast.Statement {
	p.advance() // 'config' | 'devices'
	entries := p.parseObjectEntries()
	if kw == lexer.Config {
		return &ast.ConfigBlock{Entries: entries}
	}
	return &ast.DevicesBlock{Entries: entries}
}

func (p *Parser) parseObjectEntries() []ast.ObjectEntry {
	if _, ok := p.expect(lexer.LBrace, "'{'"); !ok {
		return nil
	}
	var entries []ast.ObjectEntry
	for !p.check(lexer.RBrace) && !p.check(lexer.EOF) {
		key := p.parseEntryKey()
		if _, ok := p.expect(lexer.Colon, "':'"); !ok {
			break
		}
		val := p.parseExpression(LOWEST)
		entries = append(entries, ast.ObjectEntry{Key: key, Value: val})
		if !p.match(lexer.Comma) {
			break
		}
	}
	p.expect(lexer.RBrace, "'}'")
	return entries
}

func (p *Parser) parseEntryKey() string {
	if p.check(lexer.String) {
		return p.advance().Value
	}
	return p.advance().Value // identifier or keyword used as a bare key
}

func (p *Parser) parseModesBlock() ast.Statement {
	p.advance() // 'modes'
	if _, ok := p.expect(lexer.LBrace, "'{'"); !ok {
		return nil
	}
	block := &ast.ModesBlock{Modes: make(map[string]*ast.BlockStatement)}
	for !p.check(lexer.RBrace) && !p.check(lexer.EOF) {
		key := p.parseEntryKey()
		p.expect(lexer.Colon, "':'")
		body := p.parseBlock()
		block.Modes[key] = body
		block.Order = append(block.Order, key)
		if !p.match(lexer.Comma) {
			break
		}
	}
	p.expect(lexer.RBrace, "'}'")
	return block
}

func (p *Parser) parseModeGuard() ast.Statement {
	on := p.cur().Type == lexer.On
	p.advance() // 'on' | 'off'
	if _, ok := p.expect(lexer.Mode, "'mode'"); !ok {
		return nil
	}
	name, ok := p.expect(lexer.Ident, "mode name")
	if !ok {
		return nil
	}
	body := p.parseBlock()
	return &ast.ModeGuard{On: on, Mode: name.Value, Body: body}
}

func (p *Parser) parseHotkeyBinding() ast.Statement {
	hk := p.advance() // the Hotkey token
	if _, ok := p.expect(lexer.Arrow, "'=>'"); !ok {
		return nil
	}
	var action ast.Statement
	if p.check(lexer.LBrace) {
		action = p.parseBlock()
	} else {
		expr := p.parseExpression(LOWEST)
		action = &ast.ExpressionStatement{Expr: expr}
	}
	p.match(lexer.Semicolon)
	return &ast.HotkeyBinding{Hotkey: &ast.HotkeyLiteral{Raw: hk.Value}, Action: action}
}

// --- Pratt expression parsing ---

type precedence int

const (
	LOWEST precedence = iota
	PIPELINE
	TERNARY
	LOGIC_OR
	LOGIC_AND
	EQUALITY
	COMPARISON
	ADDITIVE
	MULTIPLICATIVE
	UNARY
	POSTFIX
)

var infixPrecedence = map[lexer.Type]precedence{
	lexer.Pipe:     PIPELINE,
	lexer.Question: TERNARY,
	lexer.Or:       LOGIC_OR,
	lexer.And:      LOGIC_AND,
	lexer.Eq:       EQUALITY,
	lexer.NotEq:    EQUALITY,
	lexer.Lt:       COMPARISON,
	lexer.Gt:       COMPARISON,
	lexer.LtEq:     COMPARISON,
	lexer.GtEq:     COMPARISON,
	lexer.Plus:     ADDITIVE,
	lexer.Minus:    ADDITIVE,
	lexer.Star:     MULTIPLICATIVE,
	lexer.Slash:    MULTIPLICATIVE,
	lexer.Percent:  MULTIPLICATIVE,
	lexer.Caret:    MULTIPLICATIVE,
	lexer.LParen:   POSTFIX,
	lexer.Dot:      POSTFIX,
	lexer.LBracket: POSTFIX,
}

var assignOps = map[lexer.Type]string{
	lexer.Assign:      "=",
	lexer.PlusAssign:  "+=",
	lexer.MinusAssign: "-=",
	lexer.StarAssign:  "*=",
	lexer.SlashAssign: "/=",
}

func (p *Parser) parseExpression(prec precedence) ast.Expression {
	left := p.parsePrefix()
	if left == nil {
		return nil
	}
	for {
		if op, ok := assignOps[p.cur().Type]; ok && prec == LOWEST {
			if id, isIdent := left.(*ast.Identifier); isIdent {
				p.advance()
				value := p.parseExpression(LOWEST)
				left = &ast.AssignExpression{Name: id.Name, Operator: op, Value: value}
				continue
			}
		}
		nextPrec, ok := infixPrecedence[p.cur().Type]
		if !ok || prec >= nextPrec {
			break
		}
		left = p.parseInfix(left, nextPrec)
	}
	return left
}

func (p *Parser) parseInfix(left ast.Expression, prec precedence) ast.Expression {
	switch p.cur().Type {
	case lexer.LParen:
		return p.parseCall(left)
	case lexer.Dot:
		p.advance()
		prop, ok := p.expect(lexer.Ident, "property name")
		if !ok {
			return left
		}
		return &ast.MemberExpression{Object: left, Property: prop.Value}
	case lexer.LBracket:
		p.advance()
		idx := p.parseExpression(LOWEST)
		p.expect(lexer.RBracket, "']'")
		return &ast.IndexExpression{Object: left, Index: idx}
	case lexer.Question:
		p.advance()
		then := p.parseExpression(TERNARY)
		p.expect(lexer.Colon, "':'")
		els := p.parseExpression(TERNARY)
		return &ast.TernaryExpression{Condition: left, Then: then, Else: els}
	case lexer.Pipe:
		stages := []ast.Expression{left}
		for p.match(lexer.Pipe) {
			stages = append(stages, p.parseExpression(PIPELINE))
		}
		return &ast.PipelineExpression{Stages: stages}
	default:
		op := p.advance()
		right := p.parseExpression(prec)
		return &ast.BinaryExpression{Left: left, Operator: op.Raw, Right: right}
	}
}

func (p *Parser) parseCall(callee ast.Expression) ast.Expression {
	p.advance() // '('
	var args []ast.Expression
	for !p.check(lexer.RParen) && !p.check(lexer.EOF) {
		args = append(args, p.parseExpression(LOWEST))
		if !p.match(lexer.Comma) {
			break
		}
	}
	p.expect(lexer.RParen, "')'")
	return &ast.CallExpression{Callee: callee, Args: args}
}

func (p *Parser) parsePrefix() ast.Expression {
	tok := p.cur()
	switch tok.Type {
	case lexer.Number:
		p.advance()
		return parseNumber(tok.Value)
	case lexer.String:
		p.advance()
		return &ast.StringLiteral{Value: tok.Value}
	case lexer.InterpString:
		p.advance()
		return p.desugarInterpolation(tok)
	case lexer.True:
		p.advance()
		return &ast.BooleanLiteral{Value: true}
	case lexer.False:
		p.advance()
		return &ast.BooleanLiteral{Value: false}
	case lexer.Nil:
		p.advance()
		return &ast.NilLiteral{}
	case lexer.Hotkey:
		p.advance()
		return &ast.HotkeyLiteral{Raw: tok.Value}
	case lexer.Ident:
		p.advance()
		return &ast.Identifier{Name: tok.Value}
	case lexer.Minus, lexer.Not:
		p.advance()
		operand := p.parseExpression(UNARY)
		return &ast.UnaryExpression{Operator: tok.Raw, Operand: operand}
	case lexer.LParen:
		p.advance()
		expr := p.parseExpression(LOWEST)
		p.expect(lexer.RParen, "')'")
		return expr
	case lexer.LBracket:
		return p.parseArrayLiteral()
	case lexer.LBrace:
		return p.parseObjectLiteral()
	case lexer.Fn:
		return p.parseLambda()
	case lexer.Try:
		return p.parseTry()
	default:
		p.errorf("unexpected token %q in expression", tok.Raw)
		return nil
	}
}

func (p *Parser) parseArrayLiteral() ast.Expression {
	p.advance() // '['
	lit := &ast.ArrayLiteral{}
	for !p.check(lexer.RBracket) && !p.check(lexer.EOF) {
		lit.Elements = append(lit.Elements, p.parseExpression(LOWEST))
		if !p.match(lexer.Comma) {
			break
		}
	}
	p.expect(lexer.RBracket, "']'")
	return lit
}

func (p *Parser) parseObjectLiteral() ast.Expression {
	entries := p.parseObjectEntries()
	return &ast.ObjectLiteral{Entries: entries}
}

func (p *Parser) parseLambda() ast.Expression {
	p.advance() // 'fn'
	params := p.parseParamList()
	if p.match(lexer.Minus) { // '->' is scanned as Minus then Gt by the lexer
		p.expect(lexer.Gt, "'>'")
		expr := p.parseExpression(LOWEST)
		body := &ast.BlockStatement{Body: []ast.Statement{&ast.ReturnStatement{Value: expr}}}
		return &ast.LambdaExpression{Params: params, Body: body}
	}
	body := p.parseBlock()
	return &ast.LambdaExpression{Params: params, Body: body}
}

func (p *Parser) parseTry() ast.Expression {
	p.advance() // 'try'
	body := p.parseBlock()
	var catch *ast.BlockStatement
	if p.match(lexer.Catch) {
		catch = p.parseBlock()
	}
	return &ast.TryExpression{Body: body, Catch: catch}
}

func parseNumber(raw string) ast.Expression {
	if strings.Contains(raw, ".") {
		v, _ := strconv.ParseFloat(raw, 64)
		return &ast.NumberLiteral{Value: v, IsFloat: true}
	}
	v, _ := strconv.ParseFloat(raw, 64)
	return &ast.NumberLiteral{Value: v, IsFloat: false}
}

// desugarInterpolation splits a ${...}/$ident-marked string (already
// normalized to ${...} form by the lexer) into literal-concatenation
// stages, per spec.md "desugar to a concatenation pipeline": embedded
// expressions are re-lexed and re-parsed against their own recursive
// Parser.
func (p *Parser) desugarInterpolation(tok lexer.Token) ast.Expression {
	parts := splitInterpolation(tok.Value)
	var result ast.Expression
	for _, part := range parts {
		var piece ast.Expression
		if part.isExpr {
			toks, err := lexer.New(part.text).Tokenize()
			if err != nil {
				p.errorf("interpolation %q: %v", part.text, err)
				continue
			}
			sub := New(toks)
			piece = sub.parseExpression(LOWEST)
			p.diags = append(p.diags, sub.diags...)
			if piece == nil {
				continue
			}
		} else {
			piece = &ast.StringLiteral{Value: part.text}
		}
		if result == nil {
			result = piece
		} else {
			result = &ast.BinaryExpression{Left: result, Operator: "+", Right: piece}
		}
	}
	if result == nil {
		return &ast.StringLiteral{Value: ""}
	}
	return result
}

type interpPart struct {
	text   string
	isExpr bool
}

func splitInterpolation(s string) []interpPart {
	var parts []interpPart
	var lit strings.Builder
	i := 0
	for i < len(s) {
		if s[i] == '$' && i+1 < len(s) && s[i+1] == '{' {
			if lit.Len() > 0 {
				parts = append(parts, interpPart{text: lit.String()})
				lit.Reset()
			}
			depth := 1
			j := i + 2
			for j < len(s) && depth > 0 {
				if s[j] == '{' {
					depth++
				} else if s[j] == '}' {
					depth--
					if depth == 0 {
						break
					}
				}
				j++
			}
			parts = append(parts, interpPart{text: s[i+2 : j], isExpr: true})
			i = j + 1
			continue
		}
		lit.WriteByte(s[i])
		i++
	}
	if lit.Len() > 0 {
		parts = append(parts, interpPart{text: lit.String()})
	}
	return parts
}
