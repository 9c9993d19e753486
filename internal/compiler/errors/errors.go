// Copyright 2015 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

// Package errors defines the compile error taxonomy and diagnostic format.
package errors

import (
	"fmt"

	"github.com/google/jackc/internal/compiler/token"
	"github.com/pkg/errors"
)

// Kind tags one distinct grammar or semantic expectation.
type Kind int

const (
	None Kind = iota
	LexerError
	ClassExpected
	IDExpected
	OpenBraceExpected
	CloseBraceExpected
	OpenParenExpected
	CloseParenExpected
	OpenBracketExpected
	CloseBracketExpected
	SemicolonExpected
	EqualExpected
	IllegalType
	MemberDeclaration
	ClassVarDeclaration
	SubroutineDeclaration
	StatementExpected
	OperandExpected
	Redeclaration
	Undeclared
	NotAVariable
	NotASubroutine
	MissingReceiver
	InvalidThis
	NestingTooDeep
)

var kindNames = map[Kind]string{
	None:                  "none",
	LexerError:            "lexer error",
	ClassExpected:         "class expected",
	IDExpected:            "identifier expected",
	OpenBraceExpected:     "{ expected",
	CloseBraceExpected:    "} expected",
	OpenParenExpected:     "( expected",
	CloseParenExpected:    ") expected",
	OpenBracketExpected:   "[ expected",
	CloseBracketExpected:  "] expected",
	SemicolonExpected:     "; expected",
	EqualExpected:         "= expected",
	IllegalType:           "illegal type",
	MemberDeclaration:     "member declaration error",
	ClassVarDeclaration:   "class variable declaration error",
	SubroutineDeclaration: "subroutine declaration error",
	StatementExpected:     "statement expected",
	OperandExpected:       "operand expected",
	Redeclaration:         "redeclared identifier",
	Undeclared:            "undeclared identifier",
	NotAVariable:          "not a variable",
	NotASubroutine:        "not a subroutine",
	MissingReceiver:       "missing receiver",
	InvalidThis:           "invalid use of this",
	NestingTooDeep:        "nesting too deep",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Error is a compile error: the failing expectation and the token where it
// was detected.
type Error struct {
	Kind  Kind
	Msg   string
	Token token.Token
}

// Error formats the single diagnostic line printed for a failed compilation.
func (e *Error) Error() string {
	return fmt.Sprintf("Error: %s. Occurred at line %d near %s token in file %s.",
		e.Msg, e.Token.Pos.Line, e.Token.Spelling, e.Token.Pos.Filename)
}

// New creates an Error of kind k at tok.
func New(k Kind, tok token.Token, msg string) *Error {
	return &Error{Kind: k, Msg: msg, Token: tok}
}

// Newf creates an Error of kind k at tok with a formatted message.
func Newf(k Kind, tok token.Token, format string, args ...interface{}) *Error {
	return New(k, tok, fmt.Sprintf(format, args...))
}

// FromToken converts an INVALID token into a lexer Error.
func FromToken(tok token.Token) *Error {
	return New(LexerError, tok, tok.Err.String())
}

// KindOf returns the Kind of a compile error anywhere in err's cause chain,
// or None.
func KindOf(err error) Kind {
	if e, ok := errors.Cause(err).(*Error); ok {
		return e.Kind
	}
	return None
}

// Errorf is a shorthand for errors.Errorf used for internal failures.
func Errorf(format string, args ...interface{}) error {
	return errors.Errorf(format, args...)
}
