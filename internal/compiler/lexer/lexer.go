// Copyright 2011 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

// Package lexer converts Jack source text into a stream of tokens.
package lexer

import (
	"bufio"
	"errors"
	"io"
	"strconv"
	"strings"
	"unicode"

	"github.com/golang/glog"
	"github.com/google/jackc/internal/compiler/position"
	"github.com/google/jackc/internal/compiler/token"
)

// A stateFn represents each state the scanner can be in.
type stateFn func(*Lexer) stateFn

// A Lexer holds the state of the scanner.
type Lexer struct {
	name  string        // Name of the source file.
	input *bufio.Reader // Source program
	state stateFn       // Current state function of the lexer.

	// The "read cursor" in the input.
	rune  rune // The current rune.
	width int  // Width in bytes.
	line  int  // The line position of the current rune.
	col   int  // The column position of the current rune.

	// The currently being lexed token.
	startcol int             // Starting column of the current token.
	text     strings.Builder // the text of the current token

	tokens chan token.Token // Output channel for tokens emitted.

	peeked *token.Token // One token of lookahead, if PeekToken was called.
	last   token.Token  // The EOF token, repeated once the machine stops.
}

// New creates a new scanner that reads the input provided.
func New(name string, input io.Reader) *Lexer {
	l := &Lexer{
		name:   name,
		input:  bufio.NewReader(input),
		state:  lexProg,
		line:   1,
		tokens: make(chan token.Token, 2),
	}
	return l
}

// NextToken returns the next token in the input and advances past it.  When
// no token is available to be returned it executes the next action in the
// state machine.
func (l *Lexer) NextToken() token.Token {
	if l.peeked != nil {
		t := *l.peeked
		l.peeked = nil
		return t
	}
	for {
		select {
		case tok := <-l.tokens:
			if tok.Kind == token.EOF {
				l.last = tok
			}
			return tok
		default:
			if l.state == nil {
				return l.last
			}
			l.state = l.state(l)
		}
	}
}

// PeekToken returns the next token without consuming it.
func (l *Lexer) PeekToken() token.Token {
	if l.peeked == nil {
		t := l.NextToken()
		l.peeked = &t
	}
	return *l.peeked
}

// emit passes a token to the client.
func (l *Lexer) emit(kind token.Kind) {
	pos := position.Position{Filename: l.name, Line: l.line, Startcol: l.startcol, Endcol: l.col - 1}
	glog.V(2).Infof("Emitting %v spelled %q at %v", kind, l.text.String(), pos)
	l.tokens <- token.Token{Kind: kind, Spelling: l.text.String(), Pos: pos}
	// Reset the current token
	l.text.Reset()
	l.startcol = l.col
}

// Internal end of file value.
const eof rune = -1

// next returns the next rune in the input.
func (l *Lexer) next() rune {
	var err error
	l.rune, l.width, err = l.input.ReadRune()
	if errors.Is(err, io.EOF) {
		l.width = 1
		l.rune = eof
	}
	return l.rune
}

// backup indicates that we haven't yet dealt with the next rune. Use when
// terminating tokens on unknown runes.
func (l *Lexer) backup() {
	l.width = 0
	if l.rune == eof {
		return
	}
	if err := l.input.UnreadRune(); err != nil {
		glog.Info(err)
	}
}

// stepCursor moves the read cursor.
func (l *Lexer) stepCursor() {
	if l.rune == '\n' {
		l.line++
		l.col = 0
	} else {
		l.col += l.width
	}
}

// accept accepts the current rune and its position into the current token.
func (l *Lexer) accept() {
	l.text.WriteRune(l.rune)
	l.stepCursor()
}

// skip does not accept the current rune into the current token's text, but
// does accept its position into the token. Use only at the start or end of a
// token.
func (l *Lexer) skip() {
	l.stepCursor()
}

// ignore skips over the current rune, removing it from the text of the token,
// and resetting the start position of the current token. Use only between
// tokens.
func (l *Lexer) ignore() {
	l.stepCursor()
	l.startcol = l.col
}

// errorf emits an INVALID token carrying code and resets the scanner.
func (l *Lexer) errorf(code token.ErrCode) stateFn {
	pos := position.Position{
		Filename: l.name,
		Line:     l.line,
		Startcol: l.startcol,
		Endcol:   l.col - 1,
	}
	l.tokens <- token.Token{
		Kind:     token.INVALID,
		Spelling: l.text.String(),
		Pos:      pos,
		Err:      code,
	}
	// Reset the current token
	l.text.Reset()
	l.startcol = l.col
	return lexProg
}

// State functions.

// lexProg starts lexing a program.
func lexProg(l *Lexer) stateFn {
	switch r := l.next(); {
	case r == eof:
		l.skip()
		l.emit(token.EOF)
		// Stop the machine, we're done.
		return nil
	case isSpace(r):
		l.ignore()
	case r == '/':
		l.accept()
		switch l.next() {
		case '/':
			l.text.Reset()
			l.ignore()
			return lexLineComment
		case '*':
			l.text.WriteRune('*')
			l.skip()
			return lexBlockComment
		default:
			l.backup()
			l.emit(token.SYMBOL)
		}
	case r == '"':
		return lexQuotedString
	case isDigit(r):
		l.backup()
		return lexNumeric
	case isAlpha(r):
		return lexIdentifier
	case strings.ContainsRune(token.Symbols, r):
		l.accept()
		l.emit(token.SYMBOL)
	default:
		l.accept()
		return l.errorf(token.IllegalSymbol)
	}
	return lexProg
}

// Lex a line comment.
func lexLineComment(l *Lexer) stateFn {
Loop:
	for {
		switch l.next() {
		case '\n':
			l.ignore()
			break Loop
		case eof:
			l.backup()
			break Loop
		default:
			l.ignore()
		}
	}
	return lexProg
}

// Lex a block or documentation comment.  The opening "/*" is held in the
// token text so an unterminated comment reports it.
func lexBlockComment(l *Lexer) stateFn {
	for {
		switch l.next() {
		case eof:
			return l.errorf(token.EOFInComment)
		case '*':
			l.skip()
			for l.next() == '*' {
				l.skip()
			}
			if l.rune == '/' {
				l.text.Reset()
				l.ignore()
				return lexProg
			}
			l.backup()
		default:
			l.skip()
		}
	}
}

// Lex a numerical constant.
func lexNumeric(l *Lexer) stateFn {
	r := l.next()
	for isDigit(r) {
		l.accept()
		r = l.next()
	}
	l.backup()
	if n, err := strconv.Atoi(l.text.String()); err != nil || n > token.MaxInt {
		return l.errorf(token.IntegerTooLarge)
	}
	l.emit(token.INT)
	return lexProg
}

// Lex a quoted string.  The text of a quoted string does not include the '"'
// quotes.  Strings may not span lines.
func lexQuotedString(l *Lexer) stateFn {
	l.skip() // Skip leading quote
	for {
		switch l.next() {
		case '"':
			l.skip() // Skip trailing quote.
			l.emit(token.STRING)
			return lexProg
		case '\n':
			next := l.errorf(token.NewlineInString)
			l.ignore()
			return next
		case eof:
			return l.errorf(token.EOFInString)
		default:
			l.accept()
		}
	}
}

// Lex an identifier, or keyword.
func lexIdentifier(l *Lexer) stateFn {
	l.accept()
Loop:
	for {
		switch r := l.next(); {
		case isAlnum(r):
			l.accept()
		default:
			l.backup()
			break Loop
		}
	}
	if token.Keywords[l.text.String()] {
		l.emit(token.KEYWORD)
	} else {
		l.emit(token.ID)
	}
	return lexProg
}

// Helper predicates.

// isAlpha reports whether r can start an identifier.
func isAlpha(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

// isAlnum reports whether r can continue an identifier.
func isAlnum(r rune) bool {
	return isAlpha(r) || isDigit(r)
}

// isDigit reports whether r is a decimal digit.
func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

// isSpace reports whether r is whitespace.
func isSpace(r rune) bool {
	return unicode.IsSpace(r)
}
