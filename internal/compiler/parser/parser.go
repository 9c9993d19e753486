// Copyright 2011 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

// Package parser implements the semantic recursive descent parser of the
// Jack language.  Each grammar procedure validates syntax, declares or
// resolves symbols in a symbol.Table and, when emitting code, sends
// codegen.Events to an Emitter.
package parser

import (
	"io"

	"github.com/golang/glog"
	"github.com/google/jackc/internal/compiler/codegen"
	"github.com/google/jackc/internal/compiler/errors"
	"github.com/google/jackc/internal/compiler/lexer"
	"github.com/google/jackc/internal/compiler/symbol"
	"github.com/google/jackc/internal/compiler/token"
)

// Pass selects what a parse does with the program.
type Pass int

const (
	// BuildTable declares every symbol and inserts placeholders for forward
	// references.
	BuildTable Pass = iota
	// EmitCode resolves every name against the finished table and drives
	// the code generator.
	EmitCode
)

func (p Pass) String() string {
	switch p {
	case BuildTable:
		return "build table"
	case EmitCode:
		return "emit code"
	}
	return "unknown pass"
}

// DefaultMaxRecursionDepth bounds the nesting of expressions.
const DefaultMaxRecursionDepth = 100

// Context is what a parse of one file operates on.
type Context struct {
	Table   *symbol.Table
	Pass    Pass
	Emitter codegen.Emitter // Required for EmitCode.

	// MaxRecursionDepth bounds expression nesting; zero selects
	// DefaultMaxRecursionDepth.
	MaxRecursionDepth int
}

type parser struct {
	lex  *lexer.Lexer
	tab  *symbol.Table
	pass Pass
	em   codegen.Emitter

	depth    int
	maxDepth int
}

// Parse reads one source file from r and runs ctx.Pass over it.  The first
// error stops the parse; it is an *errors.Error for problems in the program.
func Parse(name string, r io.Reader, ctx Context) error {
	if ctx.Table == nil {
		return errors.Errorf("parse %s: no symbol table", name)
	}
	if ctx.Pass == EmitCode && ctx.Emitter == nil {
		return errors.Errorf("parse %s: no emitter for code generation", name)
	}
	p := &parser{
		lex:      lexer.New(name, r),
		tab:      ctx.Table,
		pass:     ctx.Pass,
		em:       ctx.Emitter,
		maxDepth: ctx.MaxRecursionDepth,
	}
	if p.maxDepth <= 0 {
		p.maxDepth = DefaultMaxRecursionDepth
	}
	glog.V(1).Infof("Parsing %s (%s)", name, ctx.Pass)
	p.tab.Reset()
	return p.program()
}

// program parses every class in the file.
func (p *parser) program() error {
	for {
		tok, err := p.peek()
		if err != nil {
			return err
		}
		if tok.Kind == token.EOF {
			return nil
		}
		if err := p.class(); err != nil {
			return err
		}
	}
}

func (p *parser) emitting() bool {
	return p.pass == EmitCode
}

func (p *parser) emit(e codegen.Event) error {
	if !p.emitting() {
		return nil
	}
	return p.em.Emit(e)
}

// next consumes one token.  Lexer failures become errors here so that no
// grammar procedure sees an INVALID token.
func (p *parser) next() (token.Token, error) {
	tok := p.lex.NextToken()
	if tok.Kind == token.INVALID {
		return tok, errors.FromToken(tok)
	}
	return tok, nil
}

func (p *parser) peek() (token.Token, error) {
	tok := p.lex.PeekToken()
	if tok.Kind == token.INVALID {
		return tok, errors.FromToken(tok)
	}
	return tok, nil
}

// peekSymbol reports whether the next token is the punctuation s.
func (p *parser) peekSymbol(s string) (bool, error) {
	tok, err := p.peek()
	return tok.IsSymbol(s), err
}

func fail(k errors.Kind, tok token.Token) error {
	return errors.New(k, tok, k.String())
}

// expectSymbol consumes the punctuation s, or fails with k.
func (p *parser) expectSymbol(s string, k errors.Kind) (token.Token, error) {
	tok, err := p.next()
	if err != nil {
		return tok, err
	}
	if !tok.IsSymbol(s) {
		return tok, fail(k, tok)
	}
	return tok, nil
}

// expectID consumes an identifier.
func (p *parser) expectID() (token.Token, error) {
	tok, err := p.next()
	if err != nil {
		return tok, err
	}
	if tok.Kind != token.ID {
		return tok, fail(errors.IDExpected, tok)
	}
	return tok, nil
}

// nest guards the recursion of the expression chain.
func (p *parser) nest(tok token.Token) (func(), error) {
	p.depth++
	if p.depth > p.maxDepth {
		p.depth--
		return nil, errors.Newf(errors.NestingTooDeep, tok, "%s (more than %d levels)", errors.NestingTooDeep, p.maxDepth)
	}
	return func() { p.depth-- }, nil
}
