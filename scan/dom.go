package scan

import (
	"strings"

	"golang.org/x/net/html"
)

// Document is the minimal DOM capability the structural analyzer needs. It
// keeps the analyzer independent of the parsing library and lets tests feed
// hand-built trees.
type Document interface {
	// Elements returns every element with the given tag name, in document
	// order. The tag "*" matches all elements.
	Elements(tag string) []Element
	// Body returns the body element, or nil when the document has none.
	Body() Element
}

// Element is a single element node.
type Element interface {
	Tag() string
	Attr(name string) string
	// Text returns the concatenated text content of the subtree.
	Text() string
	// ElementChildren returns the direct child elements, skipping text and
	// comment nodes.
	ElementChildren() []Element
}

// ParseDocument parses HTML into a Document. Malformed markup never fails the
// scan: the parser is lenient, and on a hard error an empty document is
// returned so every structural check degrades to zero findings.
func ParseDocument(htmlText string) Document {
	root, err := html.Parse(strings.NewReader(htmlText))
	if err != nil || root == nil {
		return emptyDocument{}
	}
	return &htmlDocument{root: root}
}

type htmlDocument struct {
	root *html.Node
}

func (d *htmlDocument) Elements(tag string) []Element {
	var out []Element
	walk(d.root, func(n *html.Node) {
		if n.Type == html.ElementNode && (tag == "*" || strings.EqualFold(n.Data, tag)) {
			out = append(out, &htmlElement{node: n})
		}
	})
	return out
}

func (d *htmlDocument) Body() Element {
	var body *html.Node
	walk(d.root, func(n *html.Node) {
		if body == nil && n.Type == html.ElementNode && strings.EqualFold(n.Data, "body") {
			body = n
		}
	})
	if body == nil {
		return nil
	}
	return &htmlElement{node: body}
}

type htmlElement struct {
	node *html.Node
}

func (e *htmlElement) Tag() string {
	return strings.ToLower(e.node.Data)
}

func (e *htmlElement) Attr(name string) string {
	for _, a := range e.node.Attr {
		if strings.EqualFold(a.Key, name) {
			return a.Val
		}
	}
	return ""
}

func (e *htmlElement) Text() string {
	var sb strings.Builder
	walk(e.node, func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
	})
	return sb.String()
}

func (e *htmlElement) ElementChildren() []Element {
	var out []Element
	for c := e.node.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, &htmlElement{node: c})
		}
	}
	return out
}

func walk(n *html.Node, visit func(*html.Node)) {
	visit(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, visit)
	}
}

// emptyDocument is the degraded form used when parsing fails outright.
type emptyDocument struct{}

func (emptyDocument) Elements(string) []Element { return nil }
func (emptyDocument) Body() Element             { return nil }
