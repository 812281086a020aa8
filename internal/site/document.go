package site

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrInvalidPointer = errors.New("invalid json pointer")
	ErrPointerMissing = errors.New("json pointer does not resolve")
)

// Document is the site settings document. Its shape is owned by the
// single-page site and is only interpreted here where media is concerned.
type Document map[string]any

// Clone returns a deep copy of the document.
func (d Document) Clone() Document {
	if d == nil {
		return Document{}
	}
	return Document(cloneValue(map[string]any(d)).(map[string]any))
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, val := range t {
			m[k] = cloneValue(val)
		}
		return m
	case []any:
		s := make([]any, len(t))
		for i, val := range t {
			s[i] = cloneValue(val)
		}
		return s
	default:
		return v
	}
}

// ParsePointer splits an RFC 6901 pointer into unescaped tokens.
func ParsePointer(ptr string) ([]string, error) {
	if ptr == "" {
		return nil, nil
	}
	if !strings.HasPrefix(ptr, "/") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPointer, ptr)
	}
	parts := strings.Split(ptr[1:], "/")
	for i, p := range parts {
		p = strings.ReplaceAll(p, "~1", "/")
		parts[i] = strings.ReplaceAll(p, "~0", "~")
	}
	return parts, nil
}

// JoinPointer appends one token to a pointer, escaping it.
func JoinPointer(ptr, token string) string {
	token = strings.ReplaceAll(token, "~", "~0")
	token = strings.ReplaceAll(token, "/", "~1")
	return ptr + "/" + token
}

// Get returns the value at ptr.
func Get(doc Document, ptr string) (any, error) {
	tokens, err := ParsePointer(ptr)
	if err != nil {
		return nil, err
	}
	var cur any = map[string]any(doc)
	for _, tok := range tokens {
		switch node := cur.(type) {
		case map[string]any:
			v, ok := node[tok]
			if !ok {
				return nil, fmt.Errorf("%w: %s", ErrPointerMissing, ptr)
			}
			cur = v
		case []any:
			i, err := arrayIndex(tok, len(node))
			if err != nil {
				return nil, fmt.Errorf("%w: %s", ErrPointerMissing, ptr)
			}
			cur = node[i]
		default:
			return nil, fmt.Errorf("%w: %s", ErrPointerMissing, ptr)
		}
	}
	return cur, nil
}

// Set stores value at ptr. The parent container must exist; "-" appends to an array.
func Set(doc Document, ptr string, value any) error {
	tokens, err := ParsePointer(ptr)
	if err != nil {
		return err
	}
	if len(tokens) == 0 {
		return fmt.Errorf("%w: cannot replace document root", ErrInvalidPointer)
	}
	_, err = update(map[string]any(doc), tokens, func(parent any, last string) (any, error) {
		switch node := parent.(type) {
		case map[string]any:
			node[last] = value
			return node, nil
		case []any:
			if last == "-" {
				return append(node, value), nil
			}
			i, err := arrayIndex(last, len(node))
			if err != nil {
				return nil, err
			}
			node[i] = value
			return node, nil
		}
		return nil, ErrPointerMissing
	})
	if err != nil {
		return fmt.Errorf("set %s: %w", ptr, err)
	}
	return nil
}

// Remove deletes the value at ptr. Array elements are spliced out.
func Remove(doc Document, ptr string) error {
	tokens, err := ParsePointer(ptr)
	if err != nil {
		return err
	}
	if len(tokens) == 0 {
		return fmt.Errorf("%w: cannot remove document root", ErrInvalidPointer)
	}
	_, err = update(map[string]any(doc), tokens, func(parent any, last string) (any, error) {
		switch node := parent.(type) {
		case map[string]any:
			if _, ok := node[last]; !ok {
				return nil, ErrPointerMissing
			}
			delete(node, last)
			return node, nil
		case []any:
			i, err := arrayIndex(last, len(node))
			if err != nil {
				return nil, err
			}
			out := make([]any, 0, len(node)-1)
			out = append(out, node[:i]...)
			return append(out, node[i+1:]...), nil
		}
		return nil, ErrPointerMissing
	})
	if err != nil {
		return fmt.Errorf("remove %s: %w", ptr, err)
	}
	return nil
}

// update walks to the parent of the last token and lets fn replace it; the
// replacement is written back so array splices propagate upward.
func update(cur any, tokens []string, fn func(parent any, last string) (any, error)) (any, error) {
	if len(tokens) == 1 {
		return fn(cur, tokens[0])
	}
	tok := tokens[0]
	switch node := cur.(type) {
	case map[string]any:
		child, ok := node[tok]
		if !ok {
			return nil, ErrPointerMissing
		}
		next, err := update(child, tokens[1:], fn)
		if err != nil {
			return nil, err
		}
		node[tok] = next
		return node, nil
	case []any:
		i, err := arrayIndex(tok, len(node))
		if err != nil {
			return nil, err
		}
		next, err := update(node[i], tokens[1:], fn)
		if err != nil {
			return nil, err
		}
		node[i] = next
		return node, nil
	}
	return nil, ErrPointerMissing
}

func arrayIndex(tok string, n int) (int, error) {
	i, err := strconv.Atoi(tok)
	if err != nil || i < 0 || i >= n || (len(tok) > 1 && tok[0] == '0') {
		return 0, ErrPointerMissing
	}
	return i, nil
}

// comparePointers orders pointers so that later array elements and deeper
// paths sort first. Removing in that order keeps remaining indexes valid.
func comparePointers(a, b string) int {
	ta, _ := ParsePointer(a)
	tb, _ := ParsePointer(b)
	for i := 0; i < len(ta) && i < len(tb); i++ {
		if ta[i] == tb[i] {
			continue
		}
		na, errA := strconv.Atoi(ta[i])
		nb, errB := strconv.Atoi(tb[i])
		if errA == nil && errB == nil {
			return nb - na
		}
		return strings.Compare(tb[i], ta[i])
	}
	return len(tb) - len(ta)
}
