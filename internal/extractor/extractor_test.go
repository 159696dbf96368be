
package extractor

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"htmlspider/internal/schema"
)

const itemsHTML = `<div class="item"><span class="name">A</span></div><div class="item"><span class="name">B</span></div>`

const sampleHTML = `<!doctype html><html lang="en"><head>
<title>Test Page</title>
<meta name="description" content="A short description">
</head><body>
<h1>Hello</h1>
<ul class="menu">
  <li><a href="/a">First</a></li>
  <li><a href="/b">Second</a> <a href="/c">Third</a></li>
</ul>
<article><h2>Only   one</h2><p>Body text.</p></article>
</body></html>`

func mustObject(t *testing.T, v Value) *Object {
	t.Helper()
	obj, ok := v.(*Object)
	require.True(t, ok, "want *Object, got %T", v)
	return obj
}

func mustList(t *testing.T, v Value) List {
	t.Helper()
	list, ok := v.(List)
	require.True(t, ok, "want List, got %T", v)
	return list
}

func mustNode(t *testing.T, v Value) Node {
	t.Helper()
	n, ok := v.(Node)
	require.True(t, ok, "want Node, got %T", v)
	return n
}

func field(t *testing.T, o *Object, key string) Value {
	t.Helper()
	v, ok := o.Get(key)
	require.True(t, ok, "missing key %q", key)
	return v
}

func TestExtractCollection(t *testing.T) {
	s := schema.New(schema.Nest("div.item", schema.Bind("name", "span.name")))

	res, err := New().Extract(itemsHTML, s)
	require.NoError(t, err)
	assert.Equal(t, []string{"div.item"}, res.Data.Keys())

	list := mustList(t, field(t, res.Data, "div.item"))
	require.Len(t, list, 2)
	for i, want := range []string{"A", "B"} {
		assert.Equal(t, []string{"name"}, list[i].Keys())
		name := mustNode(t, field(t, list[i], "name"))
		assert.Equal(t, 1, name.Len())
		assert.Equal(t, want, name.Text())
		assert.Equal(t, "span", goquerySingleTag(name))
	}
}

func goquerySingleTag(n Node) string {
	if n.Len() != 1 {
		return ""
	}
	return n.Selection.Nodes[0].Data
}

func TestExtractZeroMatchYieldsObject(t *testing.T) {
	s := schema.New(schema.Nest("div.missing",
		schema.Bind("name", "span.name"),
		schema.BindSelf("node"),
	))

	res, err := New().Extract(itemsHTML, s)
	require.NoError(t, err)

	obj := mustObject(t, field(t, res.Data, "div.missing"))
	assert.Equal(t, []string{"name", "node"}, obj.Keys())
	assert.Equal(t, 0, mustNode(t, field(t, obj, "name")).Len())

	self := mustNode(t, field(t, obj, "node"))
	assert.Equal(t, 0, self.Len())
	assert.NotSame(t, res.Document.Selection, self.Selection)
}

func TestExtractUniformLists(t *testing.T) {
	s := schema.New(schema.Nest("div.missing", schema.Bind("name", "span.name")))

	res, err := New(WithUniformLists()).Extract(itemsHTML, s)
	require.NoError(t, err)
	list := mustList(t, field(t, res.Data, "div.missing"))
	assert.Empty(t, list)

	out, err := json.Marshal(res.Data)
	require.NoError(t, err)
	assert.JSONEq(t, `{"div.missing":[]}`, string(out))
}

func TestExtractSelfBindsDocument(t *testing.T) {
	res, err := New().Extract(itemsHTML, schema.New(schema.BindSelf("$root")))
	require.NoError(t, err)

	root := mustNode(t, field(t, res.Data, "$root"))
	assert.Same(t, res.Document.Selection, root.Selection)
	require.Equal(t, 1, root.Len())
	assert.Equal(t, html.DocumentNode, root.Selection.Nodes[0].Type)
	assert.Equal(t, 2, root.Selection.Find("*").Filter("div.item").Length())
}

func TestExtractBindingSelector(t *testing.T) {
	s := schema.New(
		schema.Bind("$title", "title"),
		schema.Bind("$desc", `meta[name="description"]`),
		schema.Bind("$none", "table"),
	)
	res, err := New().Extract(sampleHTML, s)
	require.NoError(t, err)

	assert.Equal(t, "Test Page", mustNode(t, field(t, res.Data, "$title")).Text())
	assert.Equal(t, "A short description", mustNode(t, field(t, res.Data, "$desc")).Attr("content"))
	assert.Equal(t, 0, mustNode(t, field(t, res.Data, "$none")).Len())
}

func TestExtractSelfSubKeyBindsMatchedElement(t *testing.T) {
	s := schema.New(schema.Nest("ul.menu li",
		schema.BindSelf("item"),
		schema.Bind("links", "a"),
	))
	res, err := New().Extract(sampleHTML, s)
	require.NoError(t, err)

	list := mustList(t, field(t, res.Data, "ul.menu li"))
	require.Len(t, list, 2)

	item := mustNode(t, field(t, list[0], "item"))
	require.Equal(t, 1, item.Len())
	assert.Equal(t, "li", item.Selection.Nodes[0].Data)
	assert.Equal(t, "First", item.Text())

	links := mustNode(t, field(t, list[1], "links"))
	assert.Equal(t, []string{"Second", "Third"}, links.Texts())
}

func TestExtractSingleMatchIsStillAList(t *testing.T) {
	s := schema.New(schema.Nest("article", schema.Bind("heading", "h2")))
	res, err := New().Extract(sampleHTML, s)
	require.NoError(t, err)

	list := mustList(t, field(t, res.Data, "article"))
	require.Len(t, list, 1)
	assert.Equal(t, "Only one", mustNode(t, field(t, list[0], "heading")).Text())
}

func TestExtractDeeperNesting(t *testing.T) {
	s := schema.New(schema.Nest("ul.menu",
		schema.Nest("li", schema.Bind("label", "a")),
		schema.Nest("dl", schema.Bind("term", "dt")),
	))
	res, err := New().Extract(sampleHTML, s)
	require.NoError(t, err)

	menus := mustList(t, field(t, res.Data, "ul.menu"))
	require.Len(t, menus, 1)
	items := mustList(t, field(t, menus[0], "li"))
	require.Len(t, items, 2)
	assert.Equal(t, "First", mustNode(t, field(t, items[0], "label")).Text())

	missing := mustObject(t, field(t, menus[0], "dl"))
	assert.Equal(t, 0, mustNode(t, field(t, missing, "term")).Len())
}

func TestExtractKeysMirrorSchema(t *testing.T) {
	raw := `
$root: self
$h1: h1
ul.menu li:
  link: a
  self: self
div.none:
  x: p
  y: self
`
	s, err := schema.Parse([]byte(raw))
	require.NoError(t, err)

	res, err := New().Extract(sampleHTML, s)
	require.NoError(t, err)
	assert.Equal(t, s.Keys(), res.Data.Keys())

	for _, obj := range mustList(t, field(t, res.Data, "ul.menu li")) {
		assert.Equal(t, []string{"link", "self"}, obj.Keys())
	}
	assert.Equal(t, []string{"x", "y"}, mustObject(t, field(t, res.Data, "div.none")).Keys())
}

func TestExtractInvalidSelector(t *testing.T) {
	_, err := New().Extract(itemsHTML, schema.New(schema.Nest("div[", schema.Bind("a", "b"))))
	var se *SelectorError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "div[", se.Selector)
	assert.NotNil(t, errors.Unwrap(err))

	_, err = New().Extract(itemsHTML, schema.New(schema.Nest("div.item", schema.Bind("a", "[class="))))
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "[class=", se.Selector)
}

func TestExtractRejectsInvalidSchema(t *testing.T) {
	cases := map[string]schema.Schema{
		"duplicate key":        schema.New(schema.Bind("$a", "p"), schema.Bind("$a", "span")),
		"nested duplicate key": schema.New(schema.Nest("div.item", schema.Bind("n", "span"), schema.BindSelf("n"))),
		"empty selector":       schema.New(schema.Bind("$a", "")),
	}
	for name, s := range cases {
		t.Run(name, func(t *testing.T) {
			res, err := New().Extract(itemsHTML, s)
			var pe *schema.ParseError
			require.ErrorAs(t, err, &pe)
			assert.Nil(t, res)
		})
	}
}

func TestExtractMalformedMarkup(t *testing.T) {
	s := schema.New(schema.Nest("div.item", schema.Bind("name", "span")))
	res, err := New().Extract(`<div class="item"><span>open`, s)
	require.NoError(t, err)
	list := mustList(t, field(t, res.Data, "div.item"))
	require.Len(t, list, 1)
	assert.Equal(t, "open", mustNode(t, field(t, list[0], "name")).Text())
}

func TestResultJSONKeepsSchemaOrder(t *testing.T) {
	s := schema.New(
		schema.Bind("$title", "title"),
		schema.Nest("ul.menu li", schema.Bind("z", "a"), schema.BindSelf("a")),
		schema.Nest("div.none", schema.Bind("x", "p")),
	)
	res, err := New().Extract(sampleHTML, s)
	require.NoError(t, err)

	out, err := json.Marshal(res.Data)
	require.NoError(t, err)
	want := `{"$title":["Test Page"],"ul.menu li":[{"z":["First"],"a":["First"]},{"z":["Second","Third"],"a":["Second Third"]}],"div.none":{"x":[]}}`
	assert.Equal(t, want, string(out))
}
