package dom

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// Document is an in-memory DOM parsed from HTML.
//
// Layout is not computed, so element boxes are approximated: an element is
// given a 1x1 box unless it or an ancestor is hidden through inline style or
// the hidden attribute.
type Document struct {
	root  *html.Node
	mu    sync.Mutex
	nodes map[*html.Node]*Node
}

// Node is an element of a Document. It implements Element.
type Node struct {
	doc *Document
	n   *html.Node
}

// Parse reads an HTML document.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return &Document{root: root, nodes: make(map[*html.Node]*Node)}, nil
}

// ParseString reads an HTML document from a string.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// MustParse is like ParseString but panics on error. Intended for tests and fixtures.
func MustParse(s string) *Document {
	doc, err := ParseString(s)
	if err != nil {
		panic(err)
	}
	return doc
}

func (d *Document) wrap(n *html.Node) *Node {
	if n == nil {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if w, ok := d.nodes[n]; ok {
		return w
	}
	w := &Node{doc: d, n: n}
	d.nodes[n] = w
	return w
}

// Query returns the first element matching the CSS selector, or nil.
func (d *Document) Query(selector string) (*Node, error) {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("invalid selector %q: %w", selector, err)
	}
	return d.wrap(sel.MatchFirst(d.root)), nil
}

// QueryAll returns all elements matching the CSS selector in document order.
func (d *Document) QueryAll(selector string) ([]*Node, error) {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("invalid selector %q: %w", selector, err)
	}
	matches := sel.MatchAll(d.root)
	out := make([]*Node, 0, len(matches))
	for _, m := range matches {
		out = append(out, d.wrap(m))
	}
	return out, nil
}

// MustQuery is like Query but panics when the selector is invalid or matches nothing.
func (d *Document) MustQuery(selector string) *Node {
	n, err := d.Query(selector)
	if err != nil {
		panic(err)
	}
	if n == nil {
		panic(fmt.Sprintf("no element matches %q", selector))
	}
	return n
}

// Body returns the body element.
func (d *Document) Body() *Node {
	n, _ := d.Query("body")
	return n
}

// Append parses an HTML fragment and appends the resulting elements to parent.
// It returns the appended top-level elements.
func (d *Document) Append(parent *Node, fragment string) ([]*Node, error) {
	nodes, err := html.ParseFragment(strings.NewReader(fragment), parent.n)
	if err != nil {
		return nil, fmt.Errorf("failed to parse fragment: %w", err)
	}
	var added []*Node
	for _, n := range nodes {
		parent.n.AppendChild(n)
		if n.Type == html.ElementNode {
			added = append(added, d.wrap(n))
		}
	}
	return added, nil
}

// Tag implements Element.
func (e *Node) Tag() string {
	return strings.ToLower(e.n.Data)
}

// Attr implements Element.
func (e *Node) Attr(name string) (string, bool) {
	for _, a := range e.n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, name) {
			return a.Val, true
		}
	}
	return "", false
}

// SetAttr sets or replaces an attribute.
func (e *Node) SetAttr(name, value string) {
	for i, a := range e.n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, name) {
			e.n.Attr[i].Val = value
			return
		}
	}
	e.n.Attr = append(e.n.Attr, html.Attribute{Key: name, Val: value})
}

// RemoveAttr deletes an attribute if present.
func (e *Node) RemoveAttr(name string) {
	attrs := e.n.Attr[:0]
	for _, a := range e.n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, name) {
			continue
		}
		attrs = append(attrs, a)
	}
	e.n.Attr = attrs
}

// Text implements Element.
func (e *Node) Text() string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(e.n)
	return strings.TrimSpace(sb.String())
}

// Parent implements Element.
func (e *Node) Parent() Element {
	p := e.n.Parent
	if p == nil || p.Type != html.ElementNode {
		return nil
	}
	return e.doc.wrap(p)
}

// PrevSibling implements Element.
func (e *Node) PrevSibling() Element {
	for s := e.n.PrevSibling; s != nil; s = s.PrevSibling {
		if s.Type == html.ElementNode {
			return e.doc.wrap(s)
		}
	}
	return nil
}

// Position implements Element.
func (e *Node) Position() (int, int) {
	p := e.n.Parent
	if p == nil {
		return 0, 1
	}
	index, count := 0, 0
	for c := p.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		if c == e.n {
			index = count
		}
		count++
	}
	return index, count
}

// Children returns the element children in document order.
func (e *Node) Children() []*Node {
	var out []*Node
	for c := e.n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, e.doc.wrap(c))
		}
	}
	return out
}

// Raw returns the underlying html node.
func (e *Node) Raw() *html.Node {
	return e.n
}

// Style implements Element using inline styles and the hidden attribute.
func (e *Node) Style() Style {
	st := Style{Display: "block", Visibility: "visible", Opacity: 1, Width: 1, Height: 1}
	own := inlineStyle(e.n)
	if v, ok := own["display"]; ok {
		st.Display = v
	}
	if v, ok := own["opacity"]; ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			st.Opacity = f
		}
	}
	if _, hidden := e.Attr("hidden"); hidden {
		st.Display = "none"
	}
	if strings.EqualFold(AttrOr(e, "type"), "hidden") && e.Tag() == "input" {
		st.Display = "none"
	}

	// visibility inherits; display:none on any ancestor collapses the box.
	for n := e.n; n != nil && n.Type == html.ElementNode; n = n.Parent {
		style := inlineStyle(n)
		if v, ok := style["visibility"]; ok && st.Visibility == "visible" {
			st.Visibility = v
		}
		if style["display"] == "none" || hasAttr(n, "hidden") {
			st.Width, st.Height = 0, 0
		}
	}
	return st
}

// LabelFor implements Element.
func (e *Node) LabelFor(id string) string {
	if id == "" {
		return ""
	}
	labels, err := e.doc.QueryAll("label[for]")
	if err != nil {
		return ""
	}
	for _, l := range labels {
		if AttrOr(l, "for") == id {
			return l.Text()
		}
	}
	return ""
}

func hasAttr(n *html.Node, name string) bool {
	for _, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, name) {
			return true
		}
	}
	return false
}

func inlineStyle(n *html.Node) map[string]string {
	out := make(map[string]string)
	for _, a := range n.Attr {
		if !strings.EqualFold(a.Key, "style") {
			continue
		}
		for _, decl := range strings.Split(a.Val, ";") {
			k, v, ok := strings.Cut(decl, ":")
			if !ok {
				continue
			}
			out[strings.ToLower(strings.TrimSpace(k))] = strings.ToLower(strings.TrimSpace(v))
		}
	}
	return out
}
