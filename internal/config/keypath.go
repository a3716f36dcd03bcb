package config

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// ParseConfigPath splits a dotted key such as "mail.imap.host" or
// "assistant.contacts.0.email" into segments. Numeric segments index
// into lists.
func ParseConfigPath(raw string) ([]string, error) {
	if raw == "" {
		return nil, &ConfigError{Message: "empty config path"}
	}
	parts := strings.Split(raw, ".")
	for _, p := range parts {
		if p == "" {
			return nil, &ConfigError{Message: "config path contains empty segment: " + raw}
		}
		if strings.IndexFunc(p, unicode.IsSpace) >= 0 {
			return nil, &ConfigError{Message: "config path contains whitespace: " + raw}
		}
	}
	return parts, nil
}

// GetValueAtPath walks maps by key and lists by index.
func GetValueAtPath(root map[string]any, path []string) (any, bool) {
	var cur any = root
	for _, seg := range path {
		next, ok := child(cur, seg)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// SetValueAtPath stores value at path in the non-nil root, creating
// intermediate maps. A list index may name an existing element or the
// slot just past the end, which appends.
func SetValueAtPath(root map[string]any, path []string, value any) error {
	if len(path) == 0 {
		return &ConfigError{Message: "empty config path"}
	}
	_, err := setIn(root, path, value)
	return err
}

// setIn returns node with value stored at path. Lists may be reallocated
// by an append, so the caller stores the result back into its parent.
func setIn(node any, path []string, value any) (any, error) {
	if len(path) == 0 {
		return value, nil
	}
	seg := path[0]

	if list, ok := node.([]any); ok {
		i, err := strconv.Atoi(seg)
		if err != nil || i < 0 || i > len(list) {
			return nil, &ConfigError{Message: fmt.Sprintf("list index %q out of range (len %d)", seg, len(list))}
		}
		var cur any
		if i < len(list) {
			cur = list[i]
		}
		v, err := setIn(cur, path[1:], value)
		if err != nil {
			return nil, err
		}
		if i == len(list) {
			return append(list, v), nil
		}
		list[i] = v
		return list, nil
	}

	m, ok := node.(map[string]any)
	if !ok {
		m = map[string]any{}
	}
	v, err := setIn(m[seg], path[1:], value)
	if err != nil {
		return nil, err
	}
	m[seg] = v
	return m, nil
}

// UnsetValueAtPath removes the map entry or list element at path and
// reports whether anything was removed.
func UnsetValueAtPath(root map[string]any, path []string) bool {
	if len(path) == 0 {
		return false
	}
	parentPath, last := path[:len(path)-1], path[len(path)-1]

	parent, ok := GetValueAtPath(root, parentPath)
	if !ok {
		return false
	}
	switch p := parent.(type) {
	case map[string]any:
		if _, ok := p[last]; !ok {
			return false
		}
		delete(p, last)
		return true
	case []any:
		i, err := strconv.Atoi(last)
		if err != nil || i < 0 || i >= len(p) {
			return false
		}
		shrunk := append(p[:i:i], p[i+1:]...)
		return SetValueAtPath(root, parentPath, shrunk) == nil
	}
	return false
}

func child(node any, seg string) (any, bool) {
	switch n := node.(type) {
	case map[string]any:
		v, ok := n[seg]
		return v, ok
	case []any:
		i, err := strconv.Atoi(seg)
		if err != nil || i < 0 || i >= len(n) {
			return nil, false
		}
		return n[i], true
	}
	return nil, false
}
