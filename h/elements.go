package h

import (
	g "maragu.dev/gomponents"
	"maragu.dev/gomponents/html"
)

func el(name string, children []H) H {
	return g.El(name, retype(children)...)
}

func Div(children ...H) H { return el("div", children) }
func Main(children ...H) H { return el("main", children) }
func Section(children ...H) H { return el("section", children) }
func H1(children ...H) H { return el("h1", children) }
func H2(children ...H) H { return el("h2", children) }
func P(children ...H) H { return el("p", children) }
func Pre(children ...H) H { return el("pre", children) }
func Span(children ...H) H { return el("span", children) }
func Button(children ...H) H { return el("button", children) }
func Label(children ...H) H { return el("label", children) }
func Script(children ...H) H { return el("script", children) }
func Link(children ...H) H { return el("link", children) }
func Meta(children ...H) H { return el("meta", children) }

// Input creates a void input element.
func Input(children ...H) H { return el("input", children) }

func ID(v string) H { return html.ID(v) }
func Class(v string) H { return html.Class(v) }
func Type(v string) H { return html.Type(v) }
func Src(v string) H { return html.Src(v) }
func Href(v string) H { return html.Href(v) }
func Rel(v string) H { return html.Rel(v) }
func Role(v string) H { return html.Role(v) }
func Name(v string) H { return html.Name(v) }

// Data creates a data-* attribute, e.g. Data("on:click", "...") renders data-on:click="...".
func Data(name, v string) H { return html.Data(name, v) }
