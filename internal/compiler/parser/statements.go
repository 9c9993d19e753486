// Copyright 2011 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

package parser

import (
	"github.com/google/jackc/internal/compiler/codegen"
	"github.com/google/jackc/internal/compiler/errors"
	"github.com/google/jackc/internal/compiler/token"
)

// statements: statement*, up to the closing brace of the enclosing block.
func (p *parser) statements() error {
	for {
		tok, err := p.peek()
		if err != nil {
			return err
		}
		if tok.IsSymbol("}") || tok.Kind == token.EOF {
			return nil
		}
		if err := p.statement(); err != nil {
			return err
		}
	}
}

// statement: varDec | letStatement | ifStatement | whileStatement |
// doStatement | returnStatement
func (p *parser) statement() error {
	tok, err := p.peek()
	if err != nil {
		return err
	}
	if tok.Kind == token.KEYWORD {
		switch tok.Spelling {
		case "var":
			return p.varDec()
		case "let":
			return p.letStatement()
		case "if":
			return p.ifStatement()
		case "while":
			return p.whileStatement()
		case "do":
			return p.doStatement()
		case "return":
			return p.returnStatement()
		}
	}
	return fail(errors.StatementExpected, tok)
}

// block: '{' statements '}'
func (p *parser) block() error {
	if _, err := p.expectSymbol("{", errors.OpenBraceExpected); err != nil {
		return err
	}
	if err := p.statements(); err != nil {
		return err
	}
	_, err := p.expectSymbol("}", errors.CloseBraceExpected)
	return err
}

// condition: '(' expression ')'
func (p *parser) condition() error {
	if _, err := p.expectSymbol("(", errors.OpenParenExpected); err != nil {
		return err
	}
	if err := p.expression(); err != nil {
		return err
	}
	_, err := p.expectSymbol(")", errors.CloseParenExpected)
	return err
}

// letStatement: 'let' ID ('[' expression ']')? '=' expression ';'
func (p *parser) letStatement() error {
	p.lex.NextToken()
	name, err := p.expectID()
	if err != nil {
		return err
	}
	target, err := p.variable(name)
	if err != nil {
		return err
	}
	indexed, err := p.peekSymbol("[")
	if err != nil {
		return err
	}
	if indexed {
		p.lex.NextToken()
		if err := p.emit(codegen.Event{Op: codegen.PushVar, Sym: target}); err != nil {
			return err
		}
		if err := p.expression(); err != nil {
			return err
		}
		if _, err := p.expectSymbol("]", errors.CloseBracketExpected); err != nil {
			return err
		}
		if err := p.emit(codegen.Event{Op: codegen.ArrayAddress}); err != nil {
			return err
		}
	}
	if _, err := p.expectSymbol("=", errors.EqualExpected); err != nil {
		return err
	}
	if err := p.expression(); err != nil {
		return err
	}
	if _, err := p.expectSymbol(";", errors.SemicolonExpected); err != nil {
		return err
	}
	if indexed {
		return p.emit(codegen.Event{Op: codegen.ArrayStore})
	}
	return p.emit(codegen.Event{Op: codegen.PopVar, Sym: target})
}

// ifStatement: 'if' '(' expression ')' block ('else' block)?
func (p *parser) ifStatement() error {
	p.lex.NextToken()
	if err := p.condition(); err != nil {
		return err
	}
	if err := p.emit(codegen.Event{Op: codegen.IfStart}); err != nil {
		return err
	}
	if err := p.block(); err != nil {
		return err
	}
	tok, err := p.peek()
	if err != nil {
		return err
	}
	if tok.IsKeyword("else") {
		p.lex.NextToken()
		if err := p.emit(codegen.Event{Op: codegen.IfElse}); err != nil {
			return err
		}
		if err := p.block(); err != nil {
			return err
		}
	}
	return p.emit(codegen.Event{Op: codegen.IfEnd})
}

// whileStatement: 'while' '(' expression ')' block
func (p *parser) whileStatement() error {
	p.lex.NextToken()
	if err := p.emit(codegen.Event{Op: codegen.WhileStart}); err != nil {
		return err
	}
	if err := p.condition(); err != nil {
		return err
	}
	if err := p.emit(codegen.Event{Op: codegen.WhileCond}); err != nil {
		return err
	}
	if err := p.block(); err != nil {
		return err
	}
	return p.emit(codegen.Event{Op: codegen.WhileEnd})
}

// doStatement: 'do' subroutineCall ';'
func (p *parser) doStatement() error {
	p.lex.NextToken()
	name, err := p.expectID()
	if err != nil {
		return err
	}
	if err := p.subroutineCall(name); err != nil {
		return err
	}
	if _, err := p.expectSymbol(";", errors.SemicolonExpected); err != nil {
		return err
	}
	return p.emit(codegen.Event{Op: codegen.Discard})
}

// returnStatement: 'return' expression? ';'
func (p *parser) returnStatement() error {
	p.lex.NextToken()
	bare, err := p.peekSymbol(";")
	if err != nil {
		return err
	}
	if bare {
		err = p.emit(codegen.Event{Op: codegen.PushConstant, Int: 0})
	} else {
		err = p.expression()
	}
	if err != nil {
		return err
	}
	if _, err := p.expectSymbol(";", errors.SemicolonExpected); err != nil {
		return err
	}
	return p.emit(codegen.Event{Op: codegen.Return})
}
