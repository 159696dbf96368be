// Package schema describes what to extract from a page.
//
// A Schema is an ordered list of entries. Each entry value is one of three
// kinds: Self binds the current context, Select binds the result of a query
// against the current context, and Nested queries the context with the entry
// key and evaluates a child schema against the matches.
package schema

import "fmt"

// SelfToken is the raw value that binds the current context.
const SelfToken = "self"

// BindingPrefix marks top-level binding keys in the raw syntax.
const BindingPrefix = "$"

type Kind int

const (
	KindSelf Kind = iota
	KindSelect
	KindNested
)

func (k Kind) String() string {
	switch k {
	case KindSelf:
		return "self"
	case KindSelect:
		return "select"
	case KindNested:
		return "nested"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Value is the tagged variant held by an entry. Exactly one of Selector or
// Schema is meaningful, depending on Kind.
type Value struct {
	Kind     Kind
	Selector string
	Schema   Schema
}

// Entry is one key of a schema. For KindNested the key is the selector.
type Entry struct {
	Key   string
	Value Value
}

type Schema struct {
	Entries []Entry
}

// New builds a schema from entries in the given order.
func New(entries ...Entry) Schema {
	return Schema{Entries: entries}
}

// BindSelf binds the current context under key.
func BindSelf(key string) Entry {
	return Entry{Key: key, Value: Value{Kind: KindSelf}}
}

// Bind binds the node-set matched by selector under key.
func Bind(key, selector string) Entry {
	return Entry{Key: key, Value: Value{Kind: KindSelect, Selector: selector}}
}

// Nest evaluates the child entries against every element matched by selector.
func Nest(selector string, entries ...Entry) Entry {
	return Entry{Key: selector, Value: Value{Kind: KindNested, Schema: New(entries...)}}
}

func (s Schema) Len() int { return len(s.Entries) }

// Keys returns the entry keys in order.
func (s Schema) Keys() []string {
	keys := make([]string, len(s.Entries))
	for i, e := range s.Entries {
		keys[i] = e.Key
	}
	return keys
}

// Validate checks for empty keys, empty selectors and duplicate keys at
// every level.
func (s Schema) Validate() error {
	return s.validate("")
}

func (s Schema) validate(path string) error {
	seen := make(map[string]struct{}, len(s.Entries))
	for _, e := range s.Entries {
		p := joinPath(path, e.Key)
		if e.Key == "" {
			return &ParseError{Path: path, Msg: "empty key"}
		}
		if _, dup := seen[e.Key]; dup {
			return &ParseError{Path: p, Msg: "duplicate key"}
		}
		seen[e.Key] = struct{}{}
		switch e.Value.Kind {
		case KindSelf:
		case KindSelect:
			if e.Value.Selector == "" {
				return &ParseError{Path: p, Msg: "empty selector"}
			}
		case KindNested:
			if err := e.Value.Schema.validate(p); err != nil {
				return err
			}
		default:
			return &ParseError{Path: p, Msg: "unknown value kind " + e.Value.Kind.String()}
		}
	}
	return nil
}

func joinPath(parent, key string) string {
	if parent == "" {
		return key
	}
	return parent + " > " + key
}

// ParseError reports a malformed schema.
type ParseError struct {
	Path string
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	loc := e.Path
	if loc == "" {
		loc = "<root>"
	}
	if e.Line > 0 {
		return fmt.Sprintf("schema: %s (line %d): %s", loc, e.Line, e.Msg)
	}
	return fmt.Sprintf("schema: %s: %s", loc, e.Msg)
}
