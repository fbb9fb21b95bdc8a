package trinity

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Document is the tree that one root composition, and every composition
// nested inside it, builds against. It holds the static shell, the shared
// style aggregation node, and owns every Fragment produced for it.
//
// The Engine serializes all work on a Document: resource handlers, scripts,
// and callbacks for the same Document never run at the same time. Code
// holding a Document outside of a callback should only touch it once no
// composition against it is in flight.
type Document struct {
	root  *html.Node
	head  *html.Node
	body  *html.Node
	style *html.Node

	// turnMu is held while anything reads or modifies the tree.
	turnMu sync.Mutex
}

// turn runs fn with exclusive access to the Document.
func (d *Document) turn(fn func()) {
	d.turnMu.Lock()
	defer d.turnMu.Unlock()
	fn()
}

func parseDocument(markup []byte) (*Document, error) {
	root, err := html.Parse(bytes.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("error parsing document: %w", err)
	}
	doc := &Document{
		root: root,
		head: findElement(root, atom.Head),
		body: findElement(root, atom.Body),
	}
	// html.Parse always synthesizes a head and body, but a document
	// built some other way might not have them
	if doc.head == nil || doc.body == nil {
		return nil, fmt.Errorf("error parsing document: missing head or body")
	}
	doc.style = &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Style,
		Data:     atom.Style.String(),
	}
	doc.style.AppendChild(&html.Node{Type: html.TextNode})
	return doc, nil
}

// Head returns the document's <head> element.
func (d *Document) Head() *html.Node {
	return d.head
}

// Body returns the document's <body> element.
func (d *Document) Body() *html.Node {
	return d.body
}

// Style returns all the style text aggregated into the document so far.
func (d *Document) Style() string {
	return d.style.FirstChild.Data
}

func (d *Document) appendStyle(css string) {
	d.style.FirstChild.Data += css
}

// parseFragment parses markup in the context of the document's body,
// returning a Fragment owned by the document but not yet attached to it.
func (d *Document) parseFragment(markup []byte) (*Fragment, error) {
	nodes, err := html.ParseFragment(bytes.NewReader(markup), d.body)
	if err != nil {
		return nil, fmt.Errorf("error parsing fragment: %w", err)
	}
	frag := newFragment(d)
	for _, node := range nodes {
		frag.root.AppendChild(node)
	}
	return frag, nil
}

// Render writes the document as HTML to w.
func (d *Document) Render(w io.Writer) error {
	return html.Render(w, d.root)
}

// Fragment is the markup produced by one composition. It belongs to a
// Document but isn't part of that Document's tree until it is appended
// somewhere, either by a script or by WriteDocument.
type Fragment struct {
	doc  *Document
	root *html.Node
}

func newFragment(doc *Document) *Fragment {
	return &Fragment{
		doc:  doc,
		root: &html.Node{Type: html.DocumentNode},
	}
}

// Document returns the Document the Fragment was composed for.
func (f *Fragment) Document() *Document {
	return f.doc
}

// Nodes returns the top-level nodes of the Fragment.
func (f *Fragment) Nodes() []*html.Node {
	var nodes []*html.Node
	for c := f.root.FirstChild; c != nil; c = c.NextSibling {
		nodes = append(nodes, c)
	}
	return nodes
}

// FirstChild returns the first top-level node of the Fragment, which may be
// a text node, or nil if the Fragment is empty.
func (f *Fragment) FirstChild() *html.Node {
	return f.root.FirstChild
}

// FirstElement returns the first top-level element of the Fragment, or nil
// if it has none.
func (f *Fragment) FirstElement() *html.Node {
	for c := f.root.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return c
		}
	}
	return nil
}

// Text returns the concatenated text content of the Fragment.
func (f *Fragment) Text() string {
	return textContent(f.root)
}

// Append moves the nodes of other to the end of f, leaving other empty.
func (f *Fragment) Append(other *Fragment) {
	appendNode(f.root, other.root)
}

// AppendTo moves the nodes of f to the end of parent's children, leaving f
// empty. parent is usually a node of another Fragment the same Document
// owns.
func (f *Fragment) AppendTo(parent *html.Node) {
	appendNode(parent, f.root)
}

// Render writes the Fragment as HTML to w.
func (f *Fragment) Render(w io.Writer) error {
	return html.Render(w, f.root)
}

// appendNode appends child to parent. Fragment roots are unwrapped so their
// children are moved instead, and nodes that are already in a tree are
// detached first.
func appendNode(parent, child *html.Node) {
	if child.Type == html.DocumentNode {
		for c := child.FirstChild; c != nil; {
			next := c.NextSibling
			child.RemoveChild(c)
			parent.AppendChild(c)
			c = next
		}
		return
	}
	if child.Parent != nil {
		child.Parent.RemoveChild(child)
	}
	parent.AppendChild(child)
}

func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(textContent(c))
	}
	return b.String()
}

func setTextContent(n *html.Node, text string) {
	if n.Type == html.TextNode {
		n.Data = text
		return
	}
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
	n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}

// findTag is findElement for tag names that may not have an atom.
func findTag(n *html.Node, tag string) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == tag {
			return c
		}
		if found := findTag(c, tag); found != nil {
			return found
		}
	}
	return nil
}

func getAttr(n *html.Node, key string) (string, bool) {
	for _, attr := range n.Attr {
		if attr.Namespace == "" && attr.Key == key {
			return attr.Val, true
		}
	}
	return "", false
}

func setAttr(n *html.Node, key, val string) {
	for i, attr := range n.Attr {
		if attr.Namespace == "" && attr.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func newElement(tag string) *html.Node {
	tag = strings.ToLower(tag)
	return &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Lookup([]byte(tag)),
		Data:     tag,
	}
}
