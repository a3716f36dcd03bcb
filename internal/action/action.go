// Package action declares the fixed set of operations the assistant may ask
// for, renders their signatures for the model, and dispatches parsed calls.
package action

import (
	"context"
	"fmt"
	"strings"
)

// Type is the declared type of an action parameter.
type Type string

// Supported parameter types.
const (
	TypeString     Type = "str"
	TypeInt        Type = "int"
	TypeBool       Type = "bool"
	TypeStringList Type = "list[str]"
)

func (t Type) valid() bool {
	switch t {
	case TypeString, TypeInt, TypeBool, TypeStringList:
		return true
	}
	return false
}

// Param is one declared parameter. Default holds the literal source form of
// the default value (for example `5`, `'in'` or `None`); nil means required.
type Param struct {
	Name    string
	Type    Type
	Default *string
}

// Optional reports whether the parameter may be omitted.
func (p Param) Optional() bool { return p.Default != nil }

// Required builds a parameter without a default.
func Required(name string, typ Type) Param {
	return Param{Name: name, Type: typ}
}

// WithDefault builds an optional parameter. def is a literal in call syntax.
func WithDefault(name string, typ Type, def string) Param {
	return Param{Name: name, Type: typ, Default: &def}
}

// Descriptor describes an action. It is immutable once registered.
type Descriptor struct {
	Name        string
	Description string
	Params      []Param
}

// Signature renders the descriptor the way the model sees it, e.g.
// `send_email(to_email: str, subject: str, body: str)`.
func Signature(d Descriptor) string {
	var b strings.Builder
	b.WriteString(d.Name)
	b.WriteByte('(')
	for i, p := range d.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s: %s", p.Name, p.Type)
		if p.Default != nil {
			b.WriteByte('=')
			b.WriteString(*p.Default)
		}
	}
	b.WriteByte(')')
	return b.String()
}

// Handler executes an action with validated arguments and returns its
// observation.
type Handler func(ctx context.Context, args Args) (any, error)

// Call is a parsed request to run an action.
type Call struct {
	Name string
	Args Args
}

// Args maps parameter names to bound values: string, int, bool, []string,
// or nil for an explicit None.
type Args map[string]any

// Has reports whether name is bound to a non-nil value.
func (a Args) Has(name string) bool {
	v, ok := a[name]
	return ok && v != nil
}

// String returns a string argument or "".
func (a Args) String(name string) string {
	s, _ := a[name].(string)
	return s
}

// Int returns an int argument or 0.
func (a Args) Int(name string) int {
	n, _ := a[name].(int)
	return n
}

// Bool returns a bool argument or false.
func (a Args) Bool(name string) bool {
	b, _ := a[name].(bool)
	return b
}

// Strings returns a list argument or nil.
func (a Args) Strings(name string) []string {
	l, _ := a[name].([]string)
	return l
}
