// SPDX-License-Identifier: MPL-2.0

// Package props holds named string properties in immutable nested scopes and
// substitutes "${name}" references from them.
//
// A Scope never changes after construction. Push returns a child that shadows
// its parent, so a caller that pushes a scope for a nested operation gets the
// previous view back simply by returning.
package props

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// ErrUndefined is the sentinel wrapped by UndefinedError.
var ErrUndefined = errors.New("undefined property")

type (
	// Scope is one level of properties plus its parent chain.
	Scope struct {
		values map[string]string
		parent *Scope
	}

	// UndefinedError reports a reference to a property no scope defines.
	UndefinedError struct {
		Name  string
		Input string
	}

	scopeKey struct{}
)

func (e *UndefinedError) Error() string {
	return fmt.Sprintf("undefined property %q in %q", e.Name, e.Input)
}

// Unwrap returns ErrUndefined for errors.Is compatibility.
func (e *UndefinedError) Unwrap() error { return ErrUndefined }

// New returns a root scope holding a copy of values.
func New(values map[string]string) *Scope {
	return &Scope{values: maps.Clone(values)}
}

// Push returns a child of s holding a copy of values. s is unchanged.
// Pushing onto a nil scope creates a root scope.
func (s *Scope) Push(values map[string]string) *Scope {
	return &Scope{values: maps.Clone(values), parent: s}
}

// With returns a child of s defining a single property.
func (s *Scope) With(name, value string) *Scope {
	return s.Push(map[string]string{name: value})
}

// Get looks name up from the innermost scope outwards.
func (s *Scope) Get(name string) (string, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if v, ok := cur.values[name]; ok {
			return v, true
		}
	}
	return "", false
}

// Names returns every visible property name, sorted.
func (s *Scope) Names() []string {
	seen := make(map[string]bool)
	for cur := s; cur != nil; cur = cur.parent {
		for k := range cur.values {
			seen[k] = true
		}
	}
	return slices.Sorted(maps.Keys(seen))
}

// Depth returns the number of scopes in the chain.
func (s *Scope) Depth() int {
	n := 0
	for cur := s; cur != nil; cur = cur.parent {
		n++
	}
	return n
}

// Expand replaces every "${name}" in in with its value. A reference to an
// undefined property is an UndefinedError. Text without a complete "${...}"
// reference, including a bare "$name", is copied unchanged.
func (s *Scope) Expand(in string) (string, error) {
	var b strings.Builder
	rest := in
	for {
		start := strings.Index(rest, "${")
		if start < 0 {
			break
		}
		end := strings.IndexByte(rest[start+2:], '}')
		if end < 0 {
			break
		}
		name := rest[start+2 : start+2+end]
		v, ok := s.Get(name)
		if !ok {
			return "", &UndefinedError{Name: name, Input: in}
		}
		b.WriteString(rest[:start])
		b.WriteString(v)
		rest = rest[start+2+end+1:]
	}
	b.WriteString(rest)
	return b.String(), nil
}

// ExpandAll expands each string of in, stopping at the first error.
func (s *Scope) ExpandAll(in []string) ([]string, error) {
	out := make([]string, len(in))
	for i, v := range in {
		exp, err := s.Expand(v)
		if err != nil {
			return nil, err
		}
		out[i] = exp
	}
	return out, nil
}

// WithScope returns a context carrying s.
func WithScope(ctx context.Context, s *Scope) context.Context {
	return context.WithValue(ctx, scopeKey{}, s)
}

// FromContext returns the scope carried by ctx, or an empty root scope.
func FromContext(ctx context.Context) *Scope {
	if s, ok := ctx.Value(scopeKey{}).(*Scope); ok && s != nil {
		return s
	}
	return New(nil)
}
