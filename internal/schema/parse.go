package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Parse reads a raw schema from YAML or JSON, keeping the declared key order.
//
// At the top level, keys starting with "$" are binding keys and take a string
// ("self" or a selector); any other key is a selector and takes a mapping.
// Inside a mapping, strings bind ("self" or a selector) and mappings nest.
func Parse(data []byte) (Schema, error) {
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' && json.Valid(trimmed) {
		return parseJSON(trimmed)
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Schema{}, &ParseError{Msg: err.Error()}
	}
	if doc.Kind == 0 || (doc.Kind == yaml.DocumentNode && len(doc.Content) == 0) {
		return Schema{}, &ParseError{Msg: "empty document"}
	}
	return decodeTop(&doc)
}

// Load parses the schema file at path.
func Load(path string) (Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Schema{}, fmt.Errorf("read schema: %w", err)
	}
	return Parse(data)
}

// UnmarshalYAML lets a Schema sit inside larger YAML documents.
func (s *Schema) UnmarshalYAML(n *yaml.Node) error {
	parsed, err := decodeTop(n)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// UnmarshalJSON keeps key order by walking the token stream.
func (s *Schema) UnmarshalJSON(data []byte) error {
	if string(bytes.TrimSpace(data)) == "null" {
		return nil
	}
	parsed, err := parseJSON(data)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func parseJSON(data []byte) (Schema, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	n, err := jsonNode(dec, data)
	if err != nil {
		return Schema{}, &ParseError{Msg: err.Error()}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Schema{}, &ParseError{Msg: "unexpected data after schema"}
	}
	return decodeTop(n)
}

// jsonNode reads one JSON value from dec into the same node tree the YAML
// decoder builds, so both syntaxes share one set of rules.
func jsonNode(dec *json.Decoder, data []byte) (*yaml.Node, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	line := lineAt(data, dec.InputOffset())

	switch t := tok.(type) {
	case json.Delim:
		n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map", Line: line}
		if t == '[' {
			n.Kind, n.Tag = yaml.SequenceNode, "!!seq"
		}
		for dec.More() {
			if n.Kind == yaml.MappingNode {
				kt, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, _ := kt.(string)
				n.Content = append(n.Content, &yaml.Node{
					Kind: yaml.ScalarNode, Tag: "!!str", Value: key,
					Line: lineAt(data, dec.InputOffset()),
				})
			}
			v, err := jsonNode(dec, data)
			if err != nil {
				return nil, err
			}
			n.Content = append(n.Content, v)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return n, nil
	case string:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: t, Line: line}, nil
	case json.Number:
		tag := "!!int"
		if strings.ContainsAny(t.String(), ".eE") {
			tag = "!!float"
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: t.String(), Line: line}, nil
	case bool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(t), Line: line}, nil
	default:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null", Line: line}, nil
	}
}

func lineAt(data []byte, off int64) int {
	if off > int64(len(data)) {
		off = int64(len(data))
	}
	return bytes.Count(data[:off], []byte("\n")) + 1
}

func decodeTop(n *yaml.Node) (Schema, error) {
	n = resolve(n)
	if n.Kind == yaml.DocumentNode {
		if len(n.Content) == 0 {
			return Schema{}, &ParseError{Msg: "empty document"}
		}
		n = resolve(n.Content[0])
	}
	if n.Kind != yaml.MappingNode {
		return Schema{}, &ParseError{Line: n.Line, Msg: "schema must be a mapping"}
	}

	var s Schema
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], resolve(n.Content[i+1])
		if k.Kind != yaml.ScalarNode {
			return Schema{}, &ParseError{Line: k.Line, Msg: "keys must be strings"}
		}
		key := k.Value

		if strings.HasPrefix(key, BindingPrefix) {
			val, err := decodeBinding(key, v)
			if err != nil {
				return Schema{}, err
			}
			s.Entries = append(s.Entries, Entry{Key: key, Value: val})
			continue
		}

		if v.Kind != yaml.MappingNode {
			return Schema{}, &ParseError{Path: key, Line: v.Line, Msg: "selector key needs a mapping of sub-keys"}
		}
		child, err := decodeNested(key, v)
		if err != nil {
			return Schema{}, err
		}
		s.Entries = append(s.Entries, Entry{Key: key, Value: Value{Kind: KindNested, Schema: child}})
	}
	if err := s.Validate(); err != nil {
		return Schema{}, err
	}
	return s, nil
}

func decodeNested(path string, n *yaml.Node) (Schema, error) {
	var s Schema
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], resolve(n.Content[i+1])
		if k.Kind != yaml.ScalarNode {
			return Schema{}, &ParseError{Path: path, Line: k.Line, Msg: "keys must be strings"}
		}
		p := joinPath(path, k.Value)

		switch v.Kind {
		case yaml.ScalarNode:
			val, err := decodeBinding(p, v)
			if err != nil {
				return Schema{}, err
			}
			s.Entries = append(s.Entries, Entry{Key: k.Value, Value: val})
		case yaml.MappingNode:
			if strings.HasPrefix(k.Value, BindingPrefix) {
				return Schema{}, &ParseError{Path: p, Line: v.Line, Msg: "binding key cannot hold a mapping"}
			}
			child, err := decodeNested(p, v)
			if err != nil {
				return Schema{}, err
			}
			s.Entries = append(s.Entries, Entry{Key: k.Value, Value: Value{Kind: KindNested, Schema: child}})
		default:
			return Schema{}, &ParseError{Path: p, Line: v.Line, Msg: "value must be a string or a mapping"}
		}
	}
	return s, nil
}

func decodeBinding(path string, v *yaml.Node) (Value, error) {
	if v.Kind != yaml.ScalarNode || v.Tag != "!!str" {
		return Value{}, &ParseError{Path: path, Line: v.Line, Msg: "binding needs a string value"}
	}
	if v.Value == SelfToken {
		return Value{Kind: KindSelf}, nil
	}
	return Value{Kind: KindSelect, Selector: v.Value}, nil
}

func resolve(n *yaml.Node) *yaml.Node {
	for n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}
