// Copyright 2011 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

// Package token defines the lexical tokens of a Jack program.
package token

import (
	"fmt"

	"github.com/google/jackc/internal/compiler/position"
)

// Kind enumerates the categories of lexical tokens in a Jack program.
type Kind int

const (
	INVALID Kind = iota // Lexer error; Err holds the reason.
	EOF
	KEYWORD
	ID
	INT
	STRING
	SYMBOL
)

var kindNames = [...]string{
	INVALID: "INVALID",
	EOF:     "EOF",
	KEYWORD: "KEYWORD",
	ID:      "ID",
	INT:     "INT",
	STRING:  "STRING",
	SYMBOL:  "SYMBOL",
}

// String returns a readable name of the token Kind.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ErrCode classifies why the lexer produced an INVALID token.
type ErrCode int

const (
	NoError ErrCode = iota
	EOFInComment
	NewlineInString
	EOFInString
	IllegalSymbol
	IntegerTooLarge
)

// String returns the diagnostic text for the code.
func (c ErrCode) String() string {
	switch c {
	case NoError:
		return "no error"
	case EOFInComment:
		return "unexpected eof in comment"
	case NewlineInString:
		return "new line in string constant"
	case EOFInString:
		return "unexpected eof in string constant"
	case IllegalSymbol:
		return "illegal symbol in source file"
	case IntegerTooLarge:
		return "integer constant out of range"
	}
	return fmt.Sprintf("ErrCode(%d)", int(c))
}

// MaxInt is the largest integer constant the target machine can hold.
const MaxInt = 32767

// Keywords is the set of reserved words.
var Keywords = map[string]bool{
	"class":       true,
	"constructor": true,
	"method":      true,
	"function":    true,
	"int":         true,
	"boolean":     true,
	"char":        true,
	"void":        true,
	"var":         true,
	"static":      true,
	"field":       true,
	"let":         true,
	"do":          true,
	"if":          true,
	"else":        true,
	"while":       true,
	"return":      true,
	"true":        true,
	"false":       true,
	"null":        true,
	"this":        true,
}

// Symbols lists the legal single character symbols.
const Symbols = "{}()[].,;+-*/&|<>=~"

// Token describes a lexed Token from the input, containing its kind, the
// original text of the Token, and its position in the input.
type Token struct {
	Kind     Kind
	Spelling string
	Pos      position.Position
	Err      ErrCode
}

// String returns a printable form of a Token.
func (t Token) String() string {
	return fmt.Sprintf("%s(%q,%s)", t.Kind, t.Spelling, t.Pos)
}

// Is reports whether the token has the given kind and spelling.
func (t Token) Is(kind Kind, spelling string) bool {
	return t.Kind == kind && t.Spelling == spelling
}

// IsSymbol reports whether the token is the punctuation s.
func (t Token) IsSymbol(s string) bool {
	return t.Is(SYMBOL, s)
}

// IsKeyword reports whether the token is the reserved word w.
func (t Token) IsKeyword(w string) bool {
	return t.Is(KEYWORD, w)
}
