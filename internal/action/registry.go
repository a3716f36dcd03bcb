package action

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
)

type entry struct {
	desc     Descriptor
	defaults map[string]any
	handler  Handler
}

// Registry holds the available actions in registration order.
type Registry struct {
	mu      sync.RWMutex
	order   []string
	actions map[string]*entry
}

// NewRegistry creates an empty action registry.
func NewRegistry() *Registry {
	return &Registry{actions: make(map[string]*entry)}
}

// Register adds an action. Names must be unique and every default must be a
// valid literal of the parameter's type.
func (r *Registry) Register(desc Descriptor, h Handler) error {
	if !validIdent(desc.Name) {
		return fmt.Errorf("invalid action name %q", desc.Name)
	}
	if h == nil {
		return fmt.Errorf("action %s: nil handler", desc.Name)
	}

	e := &entry{desc: desc, defaults: make(map[string]any), handler: h}
	seen := make(map[string]bool, len(desc.Params))
	for _, p := range desc.Params {
		if !validIdent(p.Name) || seen[p.Name] {
			return fmt.Errorf("action %s: invalid or duplicate parameter %q", desc.Name, p.Name)
		}
		seen[p.Name] = true
		if !p.Type.valid() {
			return fmt.Errorf("action %s: parameter %s has unsupported type %q", desc.Name, p.Name, p.Type)
		}
		if p.Default == nil {
			continue
		}
		lit, err := parseLiteralText(*p.Default)
		if err != nil {
			return fmt.Errorf("action %s: default for %s: %w", desc.Name, p.Name, err)
		}
		v, err := convertLiteral(p, lit)
		if err != nil {
			return fmt.Errorf("action %s: default for %s: %w", desc.Name, p.Name, err)
		}
		e.defaults[p.Name] = v
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.actions[desc.Name]; dup {
		return fmt.Errorf("action %s already registered", desc.Name)
	}
	r.actions[desc.Name] = e
	r.order = append(r.order, desc.Name)
	return nil
}

// List returns all descriptors in registration order.
func (r *Registry) List() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Descriptor, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.actions[name].desc)
	}
	return out
}

// Lookup returns the descriptor for name.
func (r *Registry) Lookup(name string) (Descriptor, bool) {
	e, ok := r.get(name)
	if !ok {
		return Descriptor{}, false
	}
	return e.desc, true
}

// Signatures renders every descriptor, one per entry, in registration order.
func (r *Registry) Signatures() []string {
	descs := r.List()
	out := make([]string, len(descs))
	for i, d := range descs {
		out[i] = Signature(d)
	}
	return out
}

// Parse turns call text into a validated Call. It returns *ParseError for
// malformed text or arguments that do not match the declaration, and
// ErrUnknownAction when the name is not registered.
func (r *Registry) Parse(text string) (Call, error) {
	rc, err := parseCall(text)
	if err != nil {
		return Call{}, err
	}
	e, ok := r.get(rc.name)
	if !ok {
		return Call{}, fmt.Errorf("%w: %s", ErrUnknownAction, rc.name)
	}

	args := make(Args, len(e.desc.Params))
	for i, a := range rc.args {
		var p Param
		if a.name == "" {
			if i >= len(e.desc.Params) {
				return Call{}, parseError(text, a.pos, "%s takes %d arguments but more were given", rc.name, len(e.desc.Params))
			}
			p = e.desc.Params[i]
		} else {
			found := false
			for _, dp := range e.desc.Params {
				if dp.Name == a.name {
					p, found = dp, true
					break
				}
			}
			if !found {
				return Call{}, parseError(text, a.pos, "%s has no parameter %q", rc.name, a.name)
			}
		}
		if _, dup := args[p.Name]; dup {
			return Call{}, parseError(text, a.pos, "parameter %q given more than once", p.Name)
		}
		v, err := convertLiteral(p, a.lit)
		if err != nil {
			return Call{}, parseError(text, a.lit.pos, "%s", err)
		}
		args[p.Name] = v
	}

	if err := e.complete(args); err != nil {
		return Call{}, parseError(text, -1, "%s", err)
	}
	return Call{Name: rc.name, Args: args}, nil
}

// Bind builds a Call from loosely typed values such as decoded JSON.
// Whole-number floats are accepted for int parameters and []any of strings
// for list parameters.
func (r *Registry) Bind(name string, raw map[string]any) (Call, error) {
	e, ok := r.get(name)
	if !ok {
		return Call{}, fmt.Errorf("%w: %s", ErrUnknownAction, name)
	}
	args := make(Args, len(raw))
	for k, v := range raw {
		p, found := e.param(k)
		if !found {
			return Call{}, &ParseError{Pos: -1, Message: fmt.Sprintf("%s has no parameter %q", name, k)}
		}
		cv, err := convertLoose(p, v)
		if err != nil {
			return Call{}, &ParseError{Pos: -1, Message: err.Error()}
		}
		args[k] = cv
	}
	if err := e.complete(args); err != nil {
		return Call{}, &ParseError{Pos: -1, Message: err.Error()}
	}
	return Call{Name: name, Args: args}, nil
}

// Invoke runs a call. Unregistered names yield ErrUnknownAction; handler
// failures and panics are wrapped in *ExecutionError.
func (r *Registry) Invoke(ctx context.Context, call Call) (obs any, err error) {
	e, ok := r.get(call.Name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAction, call.Name)
	}

	args := make(Args, len(call.Args))
	for k, v := range call.Args {
		args[k] = v
	}
	if err := e.complete(args); err != nil {
		return nil, &ExecutionError{Action: call.Name, Cause: err}
	}

	defer func() {
		if rec := recover(); rec != nil {
			obs, err = nil, &ExecutionError{Action: call.Name, Cause: fmt.Errorf("panic: %v", rec)}
		}
	}()

	out, err := e.handler(ctx, args)
	if err != nil {
		return nil, &ExecutionError{Action: call.Name, Cause: err}
	}
	return out, nil
}

func (r *Registry) get(name string) (*entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.actions[name]
	return e, ok
}

func (e *entry) param(name string) (Param, bool) {
	for _, p := range e.desc.Params {
		if p.Name == name {
			return p, true
		}
	}
	return Param{}, false
}

// complete fills defaults and checks that every required parameter is bound.
func (e *entry) complete(args Args) error {
	for _, p := range e.desc.Params {
		if _, ok := args[p.Name]; ok {
			continue
		}
		if !p.Optional() {
			return fmt.Errorf("%s missing required parameter %q", e.desc.Name, p.Name)
		}
		args[p.Name] = e.defaults[p.Name]
	}
	return nil
}

func convertLiteral(p Param, lit literal) (any, error) {
	if lit.val == nil {
		return nilFor(p)
	}
	switch p.Type {
	case TypeString:
		if s, ok := lit.val.(string); ok {
			return s, nil
		}
	case TypeInt:
		if n, ok := lit.val.(int64); ok {
			return int(n), nil
		}
	case TypeBool:
		if b, ok := lit.val.(bool); ok {
			return b, nil
		}
	case TypeStringList:
		if items, ok := lit.val.([]literal); ok {
			out := make([]string, 0, len(items))
			for _, it := range items {
				s, ok := it.val.(string)
				if !ok {
					return nil, fmt.Errorf("parameter %s expects %s, got a list with %s", p.Name, p.Type, typeName(it.val))
				}
				out = append(out, s)
			}
			return out, nil
		}
	}
	return nil, fmt.Errorf("parameter %s expects %s, got %s", p.Name, p.Type, typeName(lit.val))
}

func convertLoose(p Param, v any) (any, error) {
	if v == nil {
		return nilFor(p)
	}
	switch p.Type {
	case TypeString:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case TypeInt:
		switch n := v.(type) {
		case int:
			return n, nil
		case int64:
			return int(n), nil
		case float64:
			if n == math.Trunc(n) && !math.IsInf(n, 0) {
				return int(n), nil
			}
		}
	case TypeBool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case TypeStringList:
		switch l := v.(type) {
		case []string:
			return l, nil
		case []any:
			out := make([]string, 0, len(l))
			for _, it := range l {
				s, ok := it.(string)
				if !ok {
					return nil, fmt.Errorf("parameter %s expects %s", p.Name, p.Type)
				}
				out = append(out, s)
			}
			return out, nil
		}
	}
	return nil, fmt.Errorf("parameter %s expects %s, got %T", p.Name, p.Type, v)
}

func nilFor(p Param) (any, error) {
	if p.Default != nil && strings.TrimSpace(*p.Default) == "None" {
		return nil, nil
	}
	return nil, fmt.Errorf("parameter %s may not be None", p.Name)
}

func typeName(v any) string {
	switch v.(type) {
	case string:
		return "str"
	case int64:
		return "int"
	case float64:
		return "float"
	case bool:
		return "bool"
	case []literal:
		return "list"
	case nil:
		return "None"
	}
	return fmt.Sprintf("%T", v)
}

func validIdent(s string) bool {
	if s == "" || !isIdentStart(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !isIdentPart(s[i]) {
			return false
		}
	}
	return true
}
