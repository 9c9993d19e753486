// Copyright 2011 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

package parser

import (
	"github.com/google/jackc/internal/compiler/codegen"
	"github.com/google/jackc/internal/compiler/errors"
	"github.com/google/jackc/internal/compiler/symbol"
	"github.com/google/jackc/internal/compiler/token"
)

// primitiveTypes are the types that do not name a class.
var primitiveTypes = map[string]bool{
	"int":     true,
	"char":    true,
	"boolean": true,
}

// declare enters a declaration on the table-building pass, and finds the
// existing symbol on the code-emitting pass.
func (p *parser) declare(scope symbol.ScopeID, tok token.Token, typ string, kind symbol.Kind, sub bool) (*symbol.Symbol, error) {
	if p.emitting() {
		sym := p.tab.LookupLocal(scope, tok.Spelling)
		if sym == nil {
			return nil, fail(errors.Undeclared, tok)
		}
		return sym, nil
	}
	sym, err := p.tab.Declare(scope, tok.Spelling, symbol.Named(typ), kind, symbol.OriginOf(tok), sub)
	if err == symbol.ErrRedeclared {
		return nil, fail(errors.Redeclaration, tok)
	}
	if err != nil {
		return nil, err
	}
	return sym, nil
}

// class: 'class' ID '{' member* '}'
func (p *parser) class() error {
	tok, err := p.next()
	if err != nil {
		return err
	}
	if !tok.IsKeyword("class") {
		return fail(errors.ClassExpected, tok)
	}
	name, err := p.expectID()
	if err != nil {
		return err
	}
	cls, err := p.declare(p.tab.Root(), name, name.Spelling, symbol.Class, true)
	if err != nil {
		return err
	}
	if _, err := p.expectSymbol("{", errors.OpenBraceExpected); err != nil {
		return err
	}
	if err := p.tab.Enter(cls); err != nil {
		return err
	}
	defer p.tab.Exit()
	for {
		tok, err := p.peek()
		if err != nil {
			return err
		}
		if tok.IsSymbol("}") || tok.Kind == token.EOF {
			break
		}
		if err := p.member(); err != nil {
			return err
		}
	}
	_, err = p.expectSymbol("}", errors.CloseBraceExpected)
	return err
}

// member: classVarDec | subroutineDec
func (p *parser) member() error {
	tok, err := p.peek()
	if err != nil {
		return err
	}
	if tok.Kind == token.KEYWORD {
		switch tok.Spelling {
		case "static", "field":
			return p.classVarDec()
		case "constructor", "function", "method":
			return p.subroutineDec()
		}
	}
	return fail(errors.MemberDeclaration, tok)
}

// typeName: 'int' | 'char' | 'boolean' | ID
//
// Class names are referenced on the table-building pass so that a type
// naming an undeclared class is reported.
func (p *parser) typeName(k errors.Kind) (string, error) {
	tok, err := p.next()
	if err != nil {
		return "", err
	}
	switch {
	case tok.Kind == token.KEYWORD && primitiveTypes[tok.Spelling]:
		return tok.Spelling, nil
	case tok.Kind == token.ID:
		if !p.emitting() {
			p.tab.ReferenceClass(tok.Spelling, symbol.OriginOf(tok))
		}
		return tok.Spelling, nil
	}
	return "", fail(k, tok)
}

// varNames: ID (',' ID)* ';'
func (p *parser) varNames(scope symbol.ScopeID, typ string, kind symbol.Kind, k errors.Kind) error {
	for {
		name, err := p.expectID()
		if err != nil {
			return err
		}
		if _, err := p.declare(scope, name, typ, kind, false); err != nil {
			return err
		}
		tok, err := p.next()
		if err != nil {
			return err
		}
		if tok.IsSymbol(";") {
			return nil
		}
		if !tok.IsSymbol(",") {
			return fail(k, tok)
		}
	}
}

// classVarDec: ('static' | 'field') type varNames
func (p *parser) classVarDec() error {
	tok, err := p.next()
	if err != nil {
		return err
	}
	kind := symbol.Static
	if tok.Spelling == "field" {
		kind = symbol.Field
	}
	typ, err := p.typeName(errors.IllegalType)
	if err != nil {
		return err
	}
	return p.varNames(p.tab.Current(), typ, kind, errors.ClassVarDeclaration)
}

var subroutineKinds = map[string]symbol.Kind{
	"constructor": symbol.Constructor,
	"function":    symbol.Function,
	"method":      symbol.Method,
}

// subroutineDec: ('constructor' | 'function' | 'method') ('void' | type) ID
// '(' parameterList ')' subroutineBody
func (p *parser) subroutineDec() error {
	tok, err := p.next()
	if err != nil {
		return err
	}
	kind := subroutineKinds[tok.Spelling]
	cls := p.tab.EnclosingClass()

	ret, err := p.peek()
	if err != nil {
		return err
	}
	var typ string
	if ret.IsKeyword("void") {
		p.lex.NextToken()
		typ = "void"
	} else if typ, err = p.typeName(errors.SubroutineDeclaration); err != nil {
		return err
	}

	name, err := p.expectID()
	if err != nil {
		return err
	}
	sub, err := p.declare(p.tab.Current(), name, typ, kind, true)
	if err != nil {
		return err
	}
	if err := p.tab.Enter(sub); err != nil {
		return err
	}
	defer p.tab.Exit()
	if kind == symbol.Method && !p.emitting() {
		if _, err := p.tab.Declare(sub.SubScope, "this", symbol.Named(cls.Name), symbol.Argument, symbol.OriginOf(name), false); err != nil {
			return err
		}
	}

	if _, err := p.expectSymbol("(", errors.OpenParenExpected); err != nil {
		return err
	}
	if err := p.parameterList(sub); err != nil {
		return err
	}
	if _, err := p.expectSymbol(")", errors.CloseParenExpected); err != nil {
		return err
	}
	return p.subroutineBody(cls, sub)
}

// parameterList: ((type ID) (',' type ID)*)?
func (p *parser) parameterList(sub *symbol.Symbol) error {
	if closed, err := p.peekSymbol(")"); err != nil || closed {
		return err
	}
	for {
		typ, err := p.typeName(errors.IllegalType)
		if err != nil {
			return err
		}
		name, err := p.expectID()
		if err != nil {
			return err
		}
		if _, err := p.declare(sub.SubScope, name, typ, symbol.Argument, false); err != nil {
			return err
		}
		more, err := p.peekSymbol(",")
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
		p.lex.NextToken()
	}
}

// subroutineBody: '{' statement* '}'
//
// Local variable declarations are statements, so the local count comes from
// the table, which is complete on the code-emitting pass.
func (p *parser) subroutineBody(cls, sub *symbol.Symbol) error {
	if _, err := p.expectSymbol("{", errors.OpenBraceExpected); err != nil {
		return err
	}
	if err := p.emit(codegen.Event{
		Op:   codegen.FunctionStart,
		Sym:  sub,
		Text: cls.Name + "." + sub.Name,
		Int:  p.tab.Count(sub.SubScope, symbol.Local),
	}); err != nil {
		return err
	}
	if err := p.statements(); err != nil {
		return err
	}
	_, err := p.expectSymbol("}", errors.CloseBraceExpected)
	return err
}

// varDec: 'var' type varNames
func (p *parser) varDec() error {
	p.lex.NextToken()
	typ, err := p.typeName(errors.IllegalType)
	if err != nil {
		return err
	}
	return p.varNames(p.tab.Current(), typ, symbol.Local, errors.SemicolonExpected)
}
