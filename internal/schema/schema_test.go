package schema

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseYAMLKeepsOrder(t *testing.T) {
	raw := `
$root: self
$title: title
div.item:
  name: span.name
  node: self
ul.menu:
  li:
    label: a
`
	s, err := Parse([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, []string{"$root", "$title", "div.item", "ul.menu"}, s.Keys())

	want := New(
		BindSelf("$root"),
		Bind("$title", "title"),
		Nest("div.item", Bind("name", "span.name"), BindSelf("node")),
		Nest("ul.menu", Nest("li", Bind("label", "a"))),
	)
	assert.Equal(t, want, s)
}

func TestParseJSONKeepsOrder(t *testing.T) {
	raw := `{"z.last": {"b": "self", "a": "p"}, "$doc": "self", "a.first": {"x": "em"}}`
	s, err := Parse([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, []string{"z.last", "$doc", "a.first"}, s.Keys())
	assert.Equal(t, []string{"b", "a"}, s.Entries[0].Value.Schema.Keys())
	assert.Equal(t, KindSelf, s.Entries[0].Value.Schema.Entries[0].Value.Kind)
}

func TestParseJSONEscapes(t *testing.T) {
	raw := `{"$link": "a[href^=\"http:\/\/\"]", "ul\/li": {"t": "\u0062"}}`
	s, err := Parse([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, New(
		Bind("$link", `a[href^="http://"]`),
		Nest("ul/li", Bind("t", "b")),
	), s)

	var req struct {
		Schema Schema `json:"schema"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"schema":`+raw+`}`), &req))
	assert.Equal(t, s, req.Schema)
}

func TestParseYAMLFlowMapping(t *testing.T) {
	s, err := Parse([]byte(`{div.item: {name: span.name}, $root: self}`))
	require.NoError(t, err)
	assert.Equal(t, New(Nest("div.item", Bind("name", "span.name")), BindSelf("$root")), s)
}

func TestParseJSONRejectsMalformed(t *testing.T) {
	cases := map[string]struct {
		raw  string
		line int
	}{
		"selector key with text": {"{\n  \"div.item\": \"span\"\n}", 2},
		"binding with number":    {"{\"$n\": 12}", 1},
		"binding with bool":      {"{\"div\": {\"a\": true}}", 1},
		"nested list":            {"{\"div\": {\n\"a\": [1, 2]}}", 2},
		"duplicate key":          {`{"$a": "p", "$a": "q"}`, 0},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(tc.raw))
			var pe *ParseError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tc.line, pe.Line)
		})
	}
}

func TestSchemaInsideJSONDocument(t *testing.T) {
	var req struct {
		URL    string `json:"url"`
		Schema Schema `json:"schema"`
	}
	err := json.Unmarshal([]byte(`{"url":"https://example.com","schema":{"div.item":{"name":"span.name"}}}`), &req)
	require.NoError(t, err)
	assert.Equal(t, New(Nest("div.item", Bind("name", "span.name"))), req.Schema)
}

func TestParseRejectsMalformed(t *testing.T) {
	cases := map[string]string{
		"empty":                   ``,
		"not a mapping":           `- a`,
		"selector key with text":  `div.item: span`,
		"binding with mapping":    "$x:\n  a: b",
		"nested binding mapping":  "div:\n  $x:\n    a: b",
		"binding with number":     `$n: 12`,
		"nested list":             "div:\n  a: [1, 2]",
		"empty selector":          `$x: ""`,
		"nested empty selector":   "div:\n  a: \"\"",
		"duplicate nested key":    "div:\n  a: p\n  a: q",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(raw))
			require.Error(t, err)
			var pe *ParseError
			assert.True(t, errors.As(err, &pe), "want *ParseError, got %T", err)
		})
	}
}

func TestValidateBuilder(t *testing.T) {
	require.NoError(t, New(BindSelf("$root"), Nest("div", Bind("a", "b"))).Validate())

	err := New(Bind("$a", "p"), Bind("$a", "q")).Validate()
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "$a", pe.Path)
	assert.Contains(t, pe.Error(), "duplicate key")

	err = New(Nest("div", Bind("x", ""))).Validate()
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "div > x", pe.Path)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.yaml")
	require.NoError(t, os.WriteFile(path, []byte("$root: self\n"), 0o600))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, New(BindSelf("$root")), s)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
