package trinity

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// StaticLinks describes the stylesheet and script that every document built
// from a static template links to.
type StaticLinks struct {
	// StyleHref is the href of the <link rel="stylesheet"> element
	// appended to the document's <head>.
	StyleHref string

	// ScriptSrc is the src of the <script> element appended to the
	// document's <body>.
	ScriptSrc string
}

// staticLinks returns the links for the static template named static, served
// from under publicPath.
func staticLinks(publicPath, static string) StaticLinks {
	prefix := strings.TrimSuffix(publicPath, "/")
	if prefix != "" {
		prefix += "/"
	}
	return StaticLinks{
		StyleHref: prefix + static + ".css",
		ScriptSrc: prefix + static + ".js",
	}
}

func (links StaticLinks) styleNode() *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Link,
		Data:     atom.Link.String(),
		Attr: []html.Attribute{
			{Key: "rel", Val: "stylesheet"},
			{Key: "href", Val: links.StyleHref},
		},
	}
}

func (links StaticLinks) scriptNode() *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Script,
		Data:     atom.Script.String(),
		Attr: []html.Attribute{
			{Key: "type", Val: "text/javascript"},
			{Key: "src", Val: links.ScriptSrc},
		},
	}
}

// attach adds the static links and the style aggregation node to doc. The
// aggregation node goes after the static stylesheet, so composed styles
// override it.
func (links StaticLinks) attach(doc *Document) {
	doc.head.AppendChild(links.styleNode())
	doc.head.AppendChild(doc.style)
	doc.body.AppendChild(links.scriptNode())
}
