// Package content is the rich-content document model behind an ad block: an
// inline HTML fragment parsed with golang.org/x/net/html, plus the handful of
// structural edits the editor performs on it.
package content

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var (
	ErrDetached   = errors.New("node is not part of the document")
	ErrNotAnImage = errors.New("node is not an image")
	ErrNotALink   = errors.New("node is not a link")
)

// Kind is the closed set of node variants the editor distinguishes.
type Kind int

const (
	KindOther Kind = iota
	KindText
	KindImage
	KindLink
	KindElement
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindImage:
		return "image"
	case KindLink:
		return "link"
	case KindElement:
		return "element"
	default:
		return "other"
	}
}

// KindOf classifies a node. A nil node is KindOther.
func KindOf(n *html.Node) Kind {
	if n == nil {
		return KindOther
	}
	switch n.Type {
	case html.TextNode:
		return KindText
	case html.ElementNode:
		switch n.DataAtom {
		case atom.Img:
			return KindImage
		case atom.A:
			return KindLink
		default:
			return KindElement
		}
	default:
		return KindOther
	}
}

// Document is a parsed content fragment hanging off a synthetic <div> root.
type Document struct {
	root *html.Node
}

// Parse parses an inline HTML fragment. Empty input yields an empty document.
func Parse(s string) (*Document, error) {
	root := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(strings.NewReader(s), root)
	if err != nil {
		return nil, fmt.Errorf("parse content: %w", err)
	}
	for _, n := range nodes {
		root.AppendChild(n)
	}
	return &Document{root: root}, nil
}

// Root returns the synthetic container. It is never rendered itself.
func (d *Document) Root() *html.Node { return d.root }

// Render serializes the fragment (children of the root only).
func (d *Document) Render() string {
	var buf bytes.Buffer
	for c := d.root.FirstChild; c != nil; c = c.NextSibling {
		// Render only fails on writer errors; bytes.Buffer does not produce any.
		_ = html.Render(&buf, c)
	}
	return buf.String()
}

// Contains reports whether n is still attached under the document root.
func (d *Document) Contains(n *html.Node) bool {
	for p := n; p != nil; p = p.Parent {
		if p == d.root {
			return true
		}
	}
	return false
}

// Walk visits every node below the root in document order. Returning false
// from fn stops the walk.
func (d *Document) Walk(fn func(n *html.Node) bool) {
	var walk func(n *html.Node) bool
	walk = func(n *html.Node) bool {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if !fn(c) || !walk(c) {
				return false
			}
		}
		return true
	}
	walk(d.root)
}

// Path addresses a node by child indices from the root.
type Path []int

// PathOf returns the path of n, or false when n is detached.
func (d *Document) PathOf(n *html.Node) (Path, bool) {
	var rev []int
	for p := n; p != d.root; p = p.Parent {
		if p == nil || p.Parent == nil {
			return nil, false
		}
		rev = append(rev, childIndex(p))
	}
	path := make(Path, len(rev))
	for i, idx := range rev {
		path[len(rev)-1-i] = idx
	}
	return path, true
}

// Resolve finds the node at path, or false if the shape no longer matches.
func (d *Document) Resolve(path Path) (*html.Node, bool) {
	n := d.root
	for _, idx := range path {
		c := childAt(n, idx)
		if c == nil {
			return nil, false
		}
		n = c
	}
	return n, true
}

func childIndex(n *html.Node) int {
	i := 0
	for c := n.Parent.FirstChild; c != nil && c != n; c = c.NextSibling {
		i++
	}
	return i
}

func childAt(n *html.Node, idx int) *html.Node {
	if idx < 0 {
		return nil
	}
	c := n.FirstChild
	for ; c != nil && idx > 0; c = c.NextSibling {
		idx--
	}
	return c
}

// Attr returns the value of key on n.
func Attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// SetAttr sets or replaces key on n, keeping attribute order stable.
func SetAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// RemoveAttr drops key from n and reports whether it was present.
func RemoveAttr(n *html.Node, key string) bool {
	return removeAttrs(n, func(a html.Attribute) bool { return a.Namespace == "" && a.Key == key })
}

func removeAttrs(n *html.Node, match func(html.Attribute) bool) bool {
	kept := n.Attr[:0]
	removed := false
	for _, a := range n.Attr {
		if match(a) {
			removed = true
			continue
		}
		kept = append(kept, a)
	}
	n.Attr = kept
	return removed
}

// IsEmpty reports whether rendered content carries nothing but whitespace.
func IsEmpty(s string) bool {
	return strings.TrimSpace(s) == ""
}
