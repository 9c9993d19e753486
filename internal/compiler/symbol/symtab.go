// Copyright 2011 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

// Package symbol implements the nested scope table of a Jack program.
//
// Scopes and symbols are kept in an arena owned by a Table and addressed by
// stable ScopeID and SymbolID indices.  The zero index means "none".
package symbol

import (
	"fmt"

	"github.com/google/jackc/internal/compiler/token"
	"github.com/pkg/errors"
)

// ScopeID indexes a Scope in a Table.
type ScopeID int

// SymbolID indexes a Symbol in a Table.
type SymbolID int

const (
	NoScope  ScopeID  = 0
	NoSymbol SymbolID = 0
)

// Kind enumerates the kinds of symbols found in the program text.
type Kind int

const (
	Unresolved  Kind = iota // Placeholder for a name used before its declaration
	Class                   // Class declarations
	Constructor             // Subroutines that allocate a new object
	Function                // Subroutines without a receiver
	Method                  // Subroutines with an implicit receiver
	Static                  // Class variables
	Field                   // Object variables
	Argument                // Subroutine parameters
	Local                   // Subroutine locals
)

var kindNames = [...]string{
	Unresolved:  "unresolved",
	Class:       "class",
	Constructor: "constructor",
	Function:    "function",
	Method:      "method",
	Static:      "static",
	Field:       "field",
	Argument:    "argument",
	Local:       "local",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// IsSubroutine reports whether k names callable code.
func (k Kind) IsSubroutine() bool {
	return k == Constructor || k == Function || k == Method
}

// IsVariable reports whether k names storage.
func (k Kind) IsVariable() bool {
	return k == Static || k == Field || k == Argument || k == Local
}

// Type is the declared type of a symbol: either pending, for a placeholder
// whose declaration has not been seen yet, or a type name.
type Type struct {
	name string
}

// Pending is the type of placeholder symbols.
var Pending = Type{}

// Named returns the Type called name.
func Named(name string) Type {
	return Type{name: name}
}

// IsPending reports whether the type is not yet known.
func (t Type) IsPending() bool {
	return t.name == ""
}

// Name returns the type name, or the empty string for a pending type.
func (t Type) Name() string {
	return t.name
}

func (t Type) String() string {
	if t.IsPending() {
		return "<pending>"
	}
	return t.name
}

// Origin records where a symbol was declared or first referenced.
type Origin struct {
	Filename string
	Line     int
	Lexeme   string
}

// OriginOf returns the Origin of tok.
func OriginOf(tok token.Token) Origin {
	return Origin{Filename: tok.Pos.Filename, Line: tok.Pos.Line, Lexeme: tok.Spelling}
}

func (o Origin) String() string {
	return fmt.Sprintf("%s:%d:%q", o.Filename, o.Line, o.Lexeme)
}

// Symbol describes a named program object.
type Symbol struct {
	ID       SymbolID // index in the owning Table
	Name     string   // identifier name
	Type     Type     // declared type, or Pending
	Kind     Kind     // kind of program object
	Addr     int      // ordinal among symbols of the same kind in Scope
	Scope    ScopeID  // scope holding this symbol
	SubScope ScopeID  // scope opened by a class or subroutine, else NoScope
	Origin   Origin   // declaration, or first reference of a placeholder
}

// IsPlaceholder reports whether the symbol has been referenced but not
// declared.
func (s *Symbol) IsPlaceholder() bool {
	return s.Kind == Unresolved
}

func (s *Symbol) String() string {
	return fmt.Sprintf("%s %s %s %d", s.Kind, s.Name, s.Type, s.Addr)
}

// Scope is an ordered list of symbols and a link to the enclosing scope.
type Scope struct {
	ID      ScopeID
	Parent  ScopeID    // NoScope for the root
	Owner   SymbolID   // symbol that opened this scope, NoSymbol for the root
	Symbols []SymbolID // in insertion order
}

// ErrRedeclared is returned by Declare when the scope already holds a full
// declaration of the name.
var ErrRedeclared = errors.New("redeclared identifier")

// Table is the arena of all scopes and symbols of one compilation.  It also
// carries the cursor naming the current scope.
type Table struct {
	scopes  []*Scope
	symbols []*Symbol
	root    ScopeID
	current ScopeID
}

// New creates a Table holding only an empty root scope.
func New() *Table {
	t := &Table{
		scopes:  []*Scope{nil},
		symbols: []*Symbol{nil},
	}
	t.root = t.newScope(NoScope, NoSymbol)
	t.current = t.root
	return t
}

func (t *Table) newScope(parent ScopeID, owner SymbolID) ScopeID {
	id := ScopeID(len(t.scopes))
	t.scopes = append(t.scopes, &Scope{ID: id, Parent: parent, Owner: owner})
	return id
}

// Root returns the program scope, which holds the class symbols.
func (t *Table) Root() ScopeID {
	return t.root
}

// Current returns the scope the cursor is in.
func (t *Table) Current() ScopeID {
	return t.current
}

// Scope returns the scope with the given id, or nil.
func (t *Table) Scope(id ScopeID) *Scope {
	if id <= NoScope || int(id) >= len(t.scopes) {
		return nil
	}
	return t.scopes[id]
}

// Symbol returns the symbol with the given id, or nil.
func (t *Table) Symbol(id SymbolID) *Symbol {
	if id <= NoSymbol || int(id) >= len(t.symbols) {
		return nil
	}
	return t.symbols[id]
}

// Len returns the number of symbols in the table.
func (t *Table) Len() int {
	return len(t.symbols) - 1
}

// insert appends a new symbol to scope.
func (t *Table) insert(scope ScopeID, name string, typ Type, kind Kind, origin Origin, makesSubScope bool) *Symbol {
	sym := &Symbol{
		ID:     SymbolID(len(t.symbols)),
		Name:   name,
		Type:   typ,
		Kind:   kind,
		Addr:   t.Count(scope, kind),
		Scope:  scope,
		Origin: origin,
	}
	t.symbols = append(t.symbols, sym)
	s := t.scopes[scope]
	s.Symbols = append(s.Symbols, sym.ID)
	if makesSubScope {
		sym.SubScope = t.newScope(scope, sym.ID)
	}
	return sym
}

// Declare inserts a full declaration of name into scope.  A placeholder of
// the same name in that scope is completed in place, so that earlier
// references to it see the declaration; its scope, if any, is kept.  If
// scope already holds a full declaration of name, that symbol is returned
// with ErrRedeclared.
func (t *Table) Declare(scope ScopeID, name string, typ Type, kind Kind, origin Origin, makesSubScope bool) (*Symbol, error) {
	if t.Scope(scope) == nil {
		return nil, errors.Errorf("declare %q: no scope %d", name, scope)
	}
	if kind == Unresolved {
		return nil, errors.Errorf("declare %q: a declaration cannot be unresolved", name)
	}
	if sym := t.LookupLocal(scope, name); sym != nil {
		if !sym.IsPlaceholder() {
			return sym, ErrRedeclared
		}
		sym.Addr = t.countExcept(scope, kind, sym.ID)
		sym.Type = typ
		sym.Kind = kind
		sym.Origin = origin
		if makesSubScope && sym.SubScope == NoScope {
			sym.SubScope = t.newScope(scope, sym.ID)
		}
		return sym, nil
	}
	return t.insert(scope, name, typ, kind, origin, makesSubScope), nil
}

// LookupLocal returns the symbol called name in scope itself, or nil.
func (t *Table) LookupLocal(scope ScopeID, name string) *Symbol {
	s := t.Scope(scope)
	if s == nil {
		return nil
	}
	for _, id := range s.Symbols {
		if sym := t.symbols[id]; sym.Name == name {
			return sym
		}
	}
	return nil
}

// Lookup returns the symbol called name in scope or the nearest enclosing
// scope that has one, otherwise nil.
func (t *Table) Lookup(scope ScopeID, name string) *Symbol {
	for s := t.Scope(scope); s != nil; s = t.Scope(s.Parent) {
		if sym := t.LookupLocal(s.ID, name); sym != nil {
			return sym
		}
	}
	return nil
}

// ResolveOrPlaceholder looks name up outward from the current scope.  On a
// miss a placeholder is inserted into the nearest enclosing class scope, or
// the root scope when the cursor is outside any class.
func (t *Table) ResolveOrPlaceholder(name string, origin Origin) *Symbol {
	if sym := t.Lookup(t.current, name); sym != nil {
		return sym
	}
	scope := t.root
	if cls := t.EnclosingClass(); cls != nil {
		scope = cls.SubScope
	}
	return t.insert(scope, name, Pending, Unresolved, origin, false)
}

// ResolveInClass looks name up outward from the scope of the class called
// className.  It never creates placeholders.
func (t *Table) ResolveInClass(className, name string) *Symbol {
	cls := t.LookupLocal(t.root, className)
	if cls == nil || cls.SubScope == NoScope {
		return nil
	}
	return t.Lookup(cls.SubScope, name)
}

// ReferenceClass returns the class symbol called name from the root scope,
// inserting a placeholder class with its own scope on a miss.
func (t *Table) ReferenceClass(name string, origin Origin) *Symbol {
	if sym := t.LookupLocal(t.root, name); sym != nil {
		if sym.SubScope == NoScope {
			sym.SubScope = t.newScope(t.root, sym.ID)
		}
		return sym
	}
	return t.insert(t.root, name, Pending, Unresolved, origin, true)
}

// PlaceholderIn returns the symbol called name in scope, inserting a
// placeholder there if it is absent.
func (t *Table) PlaceholderIn(scope ScopeID, name string, origin Origin) *Symbol {
	if sym := t.LookupLocal(scope, name); sym != nil {
		return sym
	}
	return t.insert(scope, name, Pending, Unresolved, origin, false)
}

// Enter moves the cursor into the scope opened by sym.
func (t *Table) Enter(sym *Symbol) error {
	if sym == nil || sym.SubScope == NoScope {
		return errors.Errorf("enter: %v has no scope", sym)
	}
	t.current = sym.SubScope
	return nil
}

// Exit moves the cursor to the parent of the current scope.  The cursor
// never leaves the root.
func (t *Table) Exit() {
	if p := t.scopes[t.current].Parent; p != NoScope {
		t.current = p
	}
}

// Reset rewinds the cursor to the root scope.
func (t *Table) Reset() {
	t.current = t.root
}

// ScanForUnresolved walks the scope tree breadth first from the root and
// returns the first placeholder found, or nil when every symbol is declared.
func (t *Table) ScanForUnresolved() *Symbol {
	queue := []ScopeID{t.root}
	for len(queue) > 0 {
		s := t.scopes[queue[0]]
		queue = queue[1:]
		for _, id := range s.Symbols {
			sym := t.symbols[id]
			if sym.IsPlaceholder() {
				return sym
			}
			if sym.SubScope != NoScope {
				queue = append(queue, sym.SubScope)
			}
		}
	}
	return nil
}

// Count returns the number of symbols of kind in scope.
func (t *Table) Count(scope ScopeID, kind Kind) int {
	return t.countExcept(scope, kind, NoSymbol)
}

func (t *Table) countExcept(scope ScopeID, kind Kind, except SymbolID) int {
	s := t.Scope(scope)
	if s == nil {
		return 0
	}
	n := 0
	for _, id := range s.Symbols {
		if id != except && t.symbols[id].Kind == kind {
			n++
		}
	}
	return n
}

// Owner returns the symbol that opened scope, or nil for the root.
func (t *Table) Owner(scope ScopeID) *Symbol {
	s := t.Scope(scope)
	if s == nil {
		return nil
	}
	return t.Symbol(s.Owner)
}

func (t *Table) enclosing(match func(Kind) bool) *Symbol {
	for s := t.Scope(t.current); s != nil; s = t.Scope(s.Parent) {
		if o := t.Owner(s.ID); o != nil && match(o.Kind) {
			return o
		}
	}
	return nil
}

// EnclosingClass returns the class whose scope contains the cursor, or nil.
func (t *Table) EnclosingClass() *Symbol {
	return t.enclosing(func(k Kind) bool { return k == Class })
}

// EnclosingSubroutine returns the subroutine whose scope contains the
// cursor, or nil.
func (t *Table) EnclosingSubroutine() *Symbol {
	return t.enclosing(Kind.IsSubroutine)
}

// Walk calls fn for every symbol depth first in declaration order, passing
// the nesting depth of the symbol's scope (0 for the root).  Walk stops
// early if fn returns false.
func (t *Table) Walk(fn func(depth int, sym *Symbol) bool) {
	t.walk(t.root, 0, fn)
}

func (t *Table) walk(scope ScopeID, depth int, fn func(int, *Symbol) bool) bool {
	for _, id := range t.scopes[scope].Symbols {
		sym := t.symbols[id]
		if !fn(depth, sym) {
			return false
		}
		if sym.SubScope != NoScope {
			if !t.walk(sym.SubScope, depth+1, fn) {
				return false
			}
		}
	}
	return true
}
