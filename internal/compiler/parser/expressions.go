// Copyright 2011 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

package parser

import (
	"strconv"
	"strings"

	"github.com/google/jackc/internal/compiler/codegen"
	"github.com/google/jackc/internal/compiler/errors"
	"github.com/google/jackc/internal/compiler/symbol"
	"github.com/google/jackc/internal/compiler/token"
)

// expression: logical
func (p *parser) expression() error {
	tok, err := p.peek()
	if err != nil {
		return err
	}
	done, err := p.nest(tok)
	if err != nil {
		return err
	}
	defer done()
	return p.logical()
}

// binaryChain parses operand (op operand)* for the single character
// operators in ops, emitting each operator after its right operand.
func (p *parser) binaryChain(ops string, operand func() error) error {
	if err := operand(); err != nil {
		return err
	}
	for {
		tok, err := p.peek()
		if err != nil {
			return err
		}
		if tok.Kind != token.SYMBOL || !strings.Contains(ops, tok.Spelling) {
			return nil
		}
		p.lex.NextToken()
		if err := operand(); err != nil {
			return err
		}
		if err := p.emit(codegen.Event{Op: codegen.Binary, Text: tok.Spelling}); err != nil {
			return err
		}
	}
}

// logical: relational (('&' | '|') relational)*
func (p *parser) logical() error {
	return p.binaryChain("&|", p.relational)
}

// relational: additive (('<' | '>' | '=') additive)*
func (p *parser) relational() error {
	return p.binaryChain("<>=", p.additive)
}

// additive: multiplicative (('+' | '-') multiplicative)*
func (p *parser) additive() error {
	return p.binaryChain("+-", p.multiplicative)
}

// multiplicative: unary (('*' | '/') unary)*
func (p *parser) multiplicative() error {
	return p.binaryChain("*/", p.unary)
}

// unary: ('-' | '~') unary | operand
func (p *parser) unary() error {
	tok, err := p.peek()
	if err != nil {
		return err
	}
	if !tok.IsSymbol("-") && !tok.IsSymbol("~") {
		return p.operand()
	}
	done, err := p.nest(tok)
	if err != nil {
		return err
	}
	defer done()
	p.lex.NextToken()
	if err := p.unary(); err != nil {
		return err
	}
	return p.emit(codegen.Event{Op: codegen.Unary, Text: tok.Spelling})
}

// operand: INT | STRING | 'true' | 'false' | 'null' | 'this' |
// '(' expression ')' | ID | ID '[' expression ']' | subroutineCall
func (p *parser) operand() error {
	tok, err := p.next()
	if err != nil {
		return err
	}
	switch tok.Kind {
	case token.INT:
		n, err := strconv.Atoi(tok.Spelling)
		if err != nil {
			return errors.New(errors.LexerError, tok, token.IntegerTooLarge.String())
		}
		return p.emit(codegen.Event{Op: codegen.PushConstant, Int: n})

	case token.STRING:
		return p.emit(codegen.Event{Op: codegen.PushString, Text: tok.Spelling})

	case token.KEYWORD:
		switch tok.Spelling {
		case "true", "false", "null":
			return p.emit(codegen.Event{Op: codegen.PushKeyword, Text: tok.Spelling})
		case "this":
			if p.emitting() && !p.hasReceiver() {
				return fail(errors.InvalidThis, tok)
			}
			return p.emit(codegen.Event{Op: codegen.PushKeyword, Text: tok.Spelling})
		}

	case token.SYMBOL:
		if tok.Spelling == "(" {
			if err := p.expression(); err != nil {
				return err
			}
			_, err := p.expectSymbol(")", errors.CloseParenExpected)
			return err
		}

	case token.ID:
		return p.identifierOperand(tok)
	}
	return fail(errors.OperandExpected, tok)
}

// identifierOperand parses the rest of an operand that starts with the
// identifier tok: a variable, an array element, or a call.
func (p *parser) identifierOperand(tok token.Token) error {
	next, err := p.peek()
	if err != nil {
		return err
	}
	if next.IsSymbol(".") || next.IsSymbol("(") {
		return p.subroutineCall(tok)
	}
	sym, err := p.variable(tok)
	if err != nil {
		return err
	}
	if err := p.emit(codegen.Event{Op: codegen.PushVar, Sym: sym}); err != nil {
		return err
	}
	if !next.IsSymbol("[") {
		return nil
	}
	p.lex.NextToken()
	if err := p.expression(); err != nil {
		return err
	}
	if _, err := p.expectSymbol("]", errors.CloseBracketExpected); err != nil {
		return err
	}
	return p.emit(codegen.Event{Op: codegen.ArrayRead})
}

// hasReceiver reports whether the subroutine being parsed has a current
// object.
func (p *parser) hasReceiver() bool {
	sub := p.tab.EnclosingSubroutine()
	return sub != nil && (sub.Kind == symbol.Method || sub.Kind == symbol.Constructor)
}

// variable resolves a use of the variable named by tok.
func (p *parser) variable(tok token.Token) (*symbol.Symbol, error) {
	if !p.emitting() {
		return p.tab.ResolveOrPlaceholder(tok.Spelling, symbol.OriginOf(tok)), nil
	}
	sym := p.tab.Lookup(p.tab.Current(), tok.Spelling)
	if sym == nil {
		return nil, fail(errors.Undeclared, tok)
	}
	if !sym.Kind.IsVariable() {
		return nil, fail(errors.NotAVariable, tok)
	}
	if sym.Kind == symbol.Field && !p.hasReceiver() {
		return nil, errors.Newf(errors.InvalidThis, tok, "field %s used in a function", tok.Spelling)
	}
	return sym, nil
}

// callee is the resolved target of a subroutine call.
type callee struct {
	class    string
	name     string
	receiver *symbol.Symbol // Variable holding the object, if any.
	self     bool           // The current object is the receiver.
}

// subroutineCall: ID '(' expressionList ')' |
// ID '.' ID '(' expressionList ')'
func (p *parser) subroutineCall(first token.Token) error {
	qualified, err := p.peekSymbol(".")
	if err != nil {
		return err
	}
	var c callee
	if qualified {
		p.lex.NextToken()
		member, err := p.expectID()
		if err != nil {
			return err
		}
		if c, err = p.qualifiedCallee(first, member); err != nil {
			return err
		}
	} else if c, err = p.unqualifiedCallee(first); err != nil {
		return err
	}

	nArgs := 0
	switch {
	case c.receiver != nil:
		nArgs++
		err = p.emit(codegen.Event{Op: codegen.PushReceiver, Sym: c.receiver})
	case c.self:
		nArgs++
		err = p.emit(codegen.Event{Op: codegen.PushReceiver})
	}
	if err != nil {
		return err
	}
	if _, err := p.expectSymbol("(", errors.OpenParenExpected); err != nil {
		return err
	}
	n, err := p.expressionList()
	if err != nil {
		return err
	}
	if _, err := p.expectSymbol(")", errors.CloseParenExpected); err != nil {
		return err
	}
	return p.emit(codegen.Event{Op: codegen.Call, Text: c.class + "." + c.name, Int: nArgs + n})
}

// unqualifiedCallee resolves a call of a subroutine of the enclosing class.
func (p *parser) unqualifiedCallee(name token.Token) (callee, error) {
	c := callee{name: name.Spelling}
	if !p.emitting() {
		p.tab.ResolveOrPlaceholder(name.Spelling, symbol.OriginOf(name))
		return c, nil
	}
	sym := p.tab.Lookup(p.tab.Current(), name.Spelling)
	if sym == nil {
		return c, fail(errors.Undeclared, name)
	}
	if !sym.Kind.IsSubroutine() {
		return c, fail(errors.NotASubroutine, name)
	}
	c.class = p.tab.Owner(sym.Scope).Name
	if sym.Kind == symbol.Method {
		if !p.hasReceiver() {
			return c, errors.Newf(errors.MissingReceiver, name, "method %s called from a function", name.Spelling)
		}
		c.self = true
	}
	return c, nil
}

// qualifiedCallee resolves a call X.y, where X is either a variable holding
// the receiver or a class name.
func (p *parser) qualifiedCallee(first, member token.Token) (callee, error) {
	c := callee{class: first.Spelling, name: member.Spelling}
	if v := p.tab.Lookup(p.tab.Current(), first.Spelling); v != nil && v.Kind.IsVariable() {
		typ := v.Type.Name()
		if primitiveTypes[typ] {
			return c, errors.Newf(errors.NotASubroutine, member, "%s of type %s has no subroutines", first.Spelling, typ)
		}
		recv, err := p.variable(first)
		if err != nil {
			return c, err
		}
		c.class = typ
		c.receiver = recv
	}
	if !p.emitting() {
		cls := p.tab.ReferenceClass(c.class, symbol.OriginOf(first))
		p.tab.PlaceholderIn(cls.SubScope, c.name, symbol.OriginOf(member))
		return c, nil
	}
	sym := p.tab.ResolveInClass(c.class, c.name)
	if sym == nil {
		return c, fail(errors.Undeclared, member)
	}
	if !sym.Kind.IsSubroutine() {
		return c, fail(errors.NotASubroutine, member)
	}
	return c, nil
}

// expressionList: (expression (',' expression)*)?
func (p *parser) expressionList() (int, error) {
	if closed, err := p.peekSymbol(")"); err != nil || closed {
		return 0, err
	}
	n := 0
	for {
		if err := p.expression(); err != nil {
			return n, err
		}
		n++
		more, err := p.peekSymbol(",")
		if err != nil || !more {
			return n, err
		}
		p.lex.NextToken()
	}
}
