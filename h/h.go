// Package h provides a Go-native DSL for HTML composition.
// Every element, attribute, and text node is constructed as a function that returns a [h.H] DOM node.
//
// Example:
//
//	h.Div(
//		h.H1(h.Text("Hello, world!")),
//		h.Button(h.Type("button"), h.Text("Toggle Me!")),
//	)
package h

import (
	"bytes"
	"io"
	"sort"

	g "maragu.dev/gomponents"
	gc "maragu.dev/gomponents/components"
)

// H represents a DOM node.
type H interface {
	Render(w io.Writer) error
}

// Text creates a text DOM node that Renders the escaped string t.
func Text(t string) H {
	return g.Text(t)
}

// Textf creates a text DOM node that Renders the interpolated and escaped string format.
func Textf(format string, a ...any) H {
	return g.Textf(format, a...)
}

// Raw creates a text DOM node that just Renders the unescaped string t.
func Raw(s string) H {
	return g.Raw(s)
}

// Attr creates an attribute DOM node with a name and optional value.
// If only a name is passed, it's a name-only (boolean) attribute (like "required").
// More than one value make [Attr] panic.
func Attr(name string, value ...string) H {
	return g.Attr(name, value...)
}

// Attrs converts a name to value mapping into attribute nodes, sorted by name
// so that rendering the same mapping twice gives identical output.
func Attrs(m map[string]string) []H {
	if len(m) == 0 {
		return nil
	}
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]H, 0, len(names))
	for _, name := range names {
		out = append(out, g.Attr(name, m[name]))
	}
	return out
}

// Group joins several nodes into one. Attributes in the group apply to the parent element.
func Group(nodes ...H) H {
	return g.Group(retype(nodes))
}

// If returns n when condition is true and nil otherwise. Nil nodes are skipped
// when rendered.
func If(condition bool, n H) H {
	if condition {
		return n
	}
	return nil
}

// HTML5Props defines properties for HTML5 pages. Title is always set, Description
// and Language elements only if the strings are non-empty.
type HTML5Props struct {
	Title       string
	Description string
	Language    string
	Head        []H
	Body        []H
	HTMLAttrs   []H
}

// HTML5 document template.
func HTML5(p HTML5Props) H {
	return gc.HTML5(gc.HTML5Props{
		Title:       p.Title,
		Description: p.Description,
		Language:    p.Language,
		Head:        retype(p.Head),
		Body:        retype(p.Body),
		HTMLAttrs:   retype(p.HTMLAttrs),
	})
}

// String renders n and returns the markup. A nil node renders as "".
func String(n H) (string, error) {
	if n == nil {
		return "", nil
	}
	var b bytes.Buffer
	if err := n.Render(&b); err != nil {
		return "", err
	}
	return b.String(), nil
}

func retype(nodes []H) []g.Node {
	list := make([]g.Node, 0, len(nodes))
	for _, n := range nodes {
		if n == nil {
			continue
		}
		list = append(list, n)
	}
	return list
}
