package extractor

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Value is one of Node, List or *Object.
type Value interface {
	isValue()
}

// Node is a handle over zero or more nodes of a parsed document.
type Node struct {
	Selection *goquery.Selection
}

// List holds one object per element a nested selector matched.
type List []*Object

type Field struct {
	Key   string
	Value Value
}

// Object is an ordered set of fields keyed like the schema level it came from.
type Object struct {
	fields []Field
	index  map[string]int
}

func (Node) isValue() {}
func (List) isValue() {}
func (*Object) isValue() {}

var whitespaceRe = regexp.MustCompile(`\s+`)

func normalize(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// Len is the number of nodes in the set.
func (n Node) Len() int {
	if n.Selection == nil {
		return 0
	}
	return n.Selection.Length()
}

// Text is the combined, whitespace-normalised text of the set.
func (n Node) Text() string {
	if n.Selection == nil {
		return ""
	}
	return normalize(n.Selection.Text())
}

// Texts returns the normalised text of each node.
func (n Node) Texts() []string {
	out := make([]string, 0, n.Len())
	if n.Selection == nil {
		return out
	}
	n.Selection.Each(func(_ int, s *goquery.Selection) {
		out = append(out, normalize(s.Text()))
	})
	return out
}

// Attr returns the attribute of the first node, or "".
func (n Node) Attr(name string) string {
	if n.Selection == nil {
		return ""
	}
	return strings.TrimSpace(n.Selection.AttrOr(name, ""))
}

func (n Node) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.Texts())
}

func newObject(size int) *Object {
	return &Object{
		fields: make([]Field, 0, size),
		index:  make(map[string]int, size),
	}
}

func (o *Object) set(key string, v Value) {
	if i, ok := o.index[key]; ok {
		o.fields[i].Value = v
		return
	}
	o.index[key] = len(o.fields)
	o.fields = append(o.fields, Field{Key: key, Value: v})
}

func (o *Object) Get(key string) (Value, bool) {
	i, ok := o.index[key]
	if !ok {
		return nil, false
	}
	return o.fields[i].Value, true
}

func (o *Object) Len() int { return len(o.fields) }

func (o *Object) Keys() []string {
	keys := make([]string, len(o.fields))
	for i, f := range o.fields {
		keys[i] = f.Key
	}
	return keys
}

// Fields returns the fields in schema order. The slice must not be modified.
func (o *Object) Fields() []Field { return o.fields }

// MarshalJSON writes fields in schema order.
func (o *Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range o.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		v, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
