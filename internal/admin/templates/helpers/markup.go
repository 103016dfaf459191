package helpers

import (
	"context"
	"io"
	"strings"

	"github.com/a-h/templ"
)

// Attr is a single HTML attribute. Boolean attributes render without a value; skipped
// attributes render nothing.
type Attr struct {
	Name    string
	Value   string
	Boolean bool
	Skip    bool
}

// A returns a name="value" attribute.
func A(name, value string) Attr {
	return Attr{Name: name, Value: value}
}

// Class joins the non-empty class names into one attribute.
func Class(names ...string) Attr {
	parts := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			parts = append(parts, n)
		}
	}
	return Attr{Name: "class", Value: strings.Join(parts, " "), Skip: len(parts) == 0}
}

// Href returns an href attribute with unsafe URL schemes neutralised.
func Href(url string) Attr {
	return Attr{Name: "href", Value: string(templ.URL(url))}
}

// Src returns a src attribute with unsafe URL schemes neutralised.
func Src(url string) Attr {
	return Attr{Name: "src", Value: string(templ.URL(url))}
}

// Flag returns a boolean attribute such as disabled or required.
func Flag(name string) Attr {
	return Attr{Name: name, Boolean: true}
}

// When keeps attr only if cond holds.
func When(cond bool, attr Attr) Attr {
	if !cond {
		attr.Skip = true
	}
	return attr
}

// Markup writes escaped HTML and remembers the first write error, so component bodies can be
// written without checking every call.
type Markup struct {
	w   io.Writer
	ctx context.Context
	err error
}

// NewMarkup wraps w for a component rendering in ctx.
func NewMarkup(ctx context.Context, w io.Writer) *Markup {
	return &Markup{w: w, ctx: ctx}
}

// Component builds a templ component from a function that writes through Markup.
func Component(fn func(m *Markup)) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		m := NewMarkup(ctx, w)
		fn(m)
		return m.Err()
	})
}

// Context returns the rendering context.
func (m *Markup) Context() context.Context {
	return m.ctx
}

// Err returns the first write or child rendering error.
func (m *Markup) Err() error {
	return m.err
}

// Raw writes trusted markup verbatim.
func (m *Markup) Raw(s string) {
	if m.err != nil {
		return
	}
	_, m.err = io.WriteString(m.w, s)
}

// Text writes escaped text.
func (m *Markup) Text(s string) {
	m.Raw(templ.EscapeString(s))
}

// Open writes a start tag.
func (m *Markup) Open(tag string, attrs ...Attr) {
	m.Raw("<" + tag)
	m.attrs(attrs)
	m.Raw(">")
}

// Close writes an end tag.
func (m *Markup) Close(tag string) {
	m.Raw("</" + tag + ">")
}

// Void writes a self-contained element such as input or img.
func (m *Markup) Void(tag string, attrs ...Attr) {
	m.Open(tag, attrs...)
}

// Element writes a start tag, escaped text and the end tag.
func (m *Markup) Element(tag, text string, attrs ...Attr) {
	m.Open(tag, attrs...)
	m.Text(text)
	m.Close(tag)
}

// Render writes a child component.
func (m *Markup) Render(c templ.Component) {
	if m.err != nil || c == nil {
		return
	}
	m.err = c.Render(m.ctx, m.w)
}

func (m *Markup) attrs(attrs []Attr) {
	for _, a := range attrs {
		if a.Skip || a.Name == "" {
			continue
		}
		if a.Boolean {
			m.Raw(" " + a.Name)
			continue
		}
		m.Raw(" " + a.Name + `="` + templ.EscapeString(a.Value) + `"`)
	}
}
