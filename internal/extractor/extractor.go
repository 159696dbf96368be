
package extractor

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"

	"htmlspider/internal/schema"
)

// Result is what Extract hands back. Every Node in Data points into Document,
// so the two share one lifetime.
type Result struct {
	Data     *Object
	Document *goquery.Document
}

type Option func(*Extractor)

// WithUniformLists makes a selector that matches nothing yield an empty List
// instead of a single object built over the empty match-set.
func WithUniformLists() Option {
	return func(e *Extractor) { e.uniformLists = true }
}

// Extractor turns page text into data following a schema. It keeps no state
// between calls and is safe for concurrent use.
type Extractor struct {
	uniformLists bool
}

func New(opts ...Option) *Extractor {
	e := &Extractor{}
	for _, o := range opts {
		o(e)
	}
	return e
}

// SelectorError reports a selector the DOM layer could not compile.
type SelectorError struct {
	Selector string
	Err      error
}

func (e *SelectorError) Error() string {
	return fmt.Sprintf("invalid selector %q: %v", e.Selector, e.Err)
}

func (e *SelectorError) Unwrap() error { return e.Err }

// Extract parses pageText and walks s against it.
//
// Binding entries bind the current context (self) or the node-set a selector
// finds in it. Nested entries query the context with their key: when that
// matches N > 0 elements the value is a List of N objects, each evaluated
// with one match as context; when it matches nothing the value is a single
// Object evaluated against the empty match-set. A schema that fails
// Validate is rejected before the page is parsed.
func (e *Extractor) Extract(pageText string, s schema.Schema) (*Result, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageText))
	if err != nil {
		return nil, err
	}
	w := &walker{
		uniformLists: e.uniformLists,
		selectors:    make(map[string]cascadia.Selector),
	}
	data, err := w.object(doc.Selection, s)
	if err != nil {
		return nil, err
	}
	return &Result{Data: data, Document: doc}, nil
}

// walker holds per-call state only.
type walker struct {
	uniformLists bool
	selectors    map[string]cascadia.Selector
}

func (w *walker) object(ctx *goquery.Selection, s schema.Schema) (*Object, error) {
	obj := newObject(len(s.Entries))
	for _, entry := range s.Entries {
		v, err := w.value(ctx, entry)
		if err != nil {
			return nil, err
		}
		obj.set(entry.Key, v)
	}
	return obj, nil
}

func (w *walker) value(ctx *goquery.Selection, entry schema.Entry) (Value, error) {
	switch entry.Value.Kind {
	case schema.KindSelf:
		return Node{Selection: ctx}, nil

	case schema.KindSelect:
		m, err := w.compile(entry.Value.Selector)
		if err != nil {
			return nil, err
		}
		return Node{Selection: ctx.FindMatcher(m)}, nil

	case schema.KindNested:
		m, err := w.compile(entry.Key)
		if err != nil {
			return nil, err
		}
		matches := ctx.FindMatcher(m)
		n := matches.Length()
		if n == 0 {
			if w.uniformLists {
				return List{}, nil
			}
			return w.object(matches, entry.Value.Schema)
		}
		list := make(List, 0, n)
		for i := 0; i < n; i++ {
			item, err := w.object(matches.Eq(i), entry.Value.Schema)
			if err != nil {
				return nil, err
			}
			list = append(list, item)
		}
		return list, nil
	}
	return nil, fmt.Errorf("extractor: key %q has unknown value kind %s", entry.Key, entry.Value.Kind)
}

func (w *walker) compile(sel string) (cascadia.Selector, error) {
	if m, ok := w.selectors[sel]; ok {
		return m, nil
	}
	m, err := cascadia.Compile(sel)
	if err != nil {
		return nil, &SelectorError{Selector: sel, Err: err}
	}
	w.selectors[sel] = m
	return m, nil
}
