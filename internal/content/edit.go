package content

import (
	"errors"
	"fmt"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// DefaultImageStyle is applied to freshly inserted images.
const DefaultImageStyle = "width:200px;height:auto;max-width:none;border-radius:4px;"

// ImageWidths are the resize presets offered for images, in pixels.
var ImageWidths = []int{100, 150, 200, 300}

var ErrInvalidWidth = errors.New("image width must be positive")

// Position is an editing point: a text node and a rune offset into it, or an
// element and a child index.
type Position struct {
	Node   *html.Node
	Offset int
}

// Images returns every image in document order.
func (d *Document) Images() []*html.Node {
	var imgs []*html.Node
	d.Walk(func(n *html.Node) bool {
		if KindOf(n) == KindImage {
			imgs = append(imgs, n)
		}
		return true
	})
	return imgs
}

// LastImage returns the last image in document order, or nil.
func (d *Document) LastImage() *html.Node {
	imgs := d.Images()
	if len(imgs) == 0 {
		return nil
	}
	return imgs[len(imgs)-1]
}

// LinkAncestor returns the nearest <a> enclosing n inside the document, or nil.
func (d *Document) LinkAncestor(n *html.Node) *html.Node {
	for p := n.Parent; p != nil && p != d.root; p = p.Parent {
		if KindOf(p) == KindLink {
			return p
		}
	}
	return nil
}

// Wrap puts n inside a new <a href target="_blank"> at n's exact position.
func (d *Document) Wrap(n *html.Node, href string) (*html.Node, error) {
	if !d.Contains(n) || n == d.root {
		return nil, ErrDetached
	}
	a := &html.Node{
		Type:     html.ElementNode,
		Data:     "a",
		DataAtom: atom.A,
		Attr: []html.Attribute{
			{Key: "href", Val: href},
			{Key: "target", Val: "_blank"},
		},
	}
	parent := n.Parent
	parent.InsertBefore(a, n)
	parent.RemoveChild(n)
	a.AppendChild(n)
	return a, nil
}

// Unwrap replaces the link a with its children, in place.
func (d *Document) Unwrap(a *html.Node) error {
	if KindOf(a) != KindLink {
		return ErrNotALink
	}
	if !d.Contains(a) {
		return ErrDetached
	}
	parent := a.Parent
	for c := a.FirstChild; c != nil; c = a.FirstChild {
		a.RemoveChild(c)
		parent.InsertBefore(c, a)
	}
	parent.RemoveChild(a)
	return nil
}

// NewImage builds a non-draggable image with the default inline style.
func NewImage(src string) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		Data:     "img",
		DataAtom: atom.Img,
		Attr: []html.Attribute{
			{Key: "src", Val: src},
			{Key: "style", Val: DefaultImageStyle},
			{Key: "draggable", Val: "false"},
		},
	}
}

// NewText builds a detached text node.
func NewText(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

// InsertAt inserts n at pos and returns the editing point right after it. A
// zero Position appends to the end of the document.
func (d *Document) InsertAt(pos Position, n *html.Node) (Position, error) {
	switch {
	case pos.Node == nil:
		d.root.AppendChild(n)
	case !d.Contains(pos.Node):
		return Position{}, ErrDetached
	case pos.Node.Type == html.TextNode:
		insertInText(pos.Node, pos.Offset, n)
	case pos.Node.Type != html.ElementNode || KindOf(pos.Node) == KindImage:
		// Not a container: insert right after it.
		if pos.Node == d.root {
			d.root.AppendChild(n)
		} else {
			pos.Node.Parent.InsertBefore(n, pos.Node.NextSibling)
		}
	default:
		pos.Node.InsertBefore(n, childAt(pos.Node, pos.Offset))
	}
	return Position{Node: n.Parent, Offset: childIndex(n) + 1}, nil
}

func insertInText(t *html.Node, offset int, n *html.Node) {
	runes := []rune(t.Data)
	switch {
	case offset <= 0:
		t.Parent.InsertBefore(n, t)
	case offset >= len(runes):
		t.Parent.InsertBefore(n, t.NextSibling)
	default:
		tail := NewText(string(runes[offset:]))
		t.Data = string(runes[:offset])
		t.Parent.InsertBefore(tail, t.NextSibling)
		t.Parent.InsertBefore(n, tail)
	}
}

// Colorize wraps every text run between start and end in a
// <span style="color:..."> and reports whether any text was coloured.
func (d *Document) Colorize(start, end Position, color string) (bool, error) {
	// Marker nodes pin both boundaries; end goes first so a shared text node
	// keeps a valid start offset.
	endMark := &html.Node{Type: html.CommentNode}
	if _, err := d.InsertAt(end, endMark); err != nil {
		return false, err
	}
	startMark := &html.Node{Type: html.CommentNode}
	if _, err := d.InsertAt(start, startMark); err != nil {
		endMark.Parent.RemoveChild(endMark)
		return false, err
	}
	defer func() {
		startMark.Parent.RemoveChild(startMark)
		endMark.Parent.RemoveChild(endMark)
	}()

	var runs []*html.Node
	inside, done := false, false
	d.Walk(func(n *html.Node) bool {
		switch {
		case n == startMark || n == endMark:
			if inside {
				done = true
				return false
			}
			inside = true
		case inside && n.Type == html.TextNode && n.Data != "":
			runs = append(runs, n)
		}
		return true
	})
	if !done {
		return false, nil
	}

	for _, t := range runs {
		span := &html.Node{
			Type:     html.ElementNode,
			Data:     "span",
			DataAtom: atom.Span,
			Attr:     []html.Attribute{{Key: "style", Val: FormatStyle([]Declaration{{Property: "color", Value: color}})}},
		}
		t.Parent.InsertBefore(span, t)
		t.Parent.RemoveChild(t)
		span.AppendChild(t)
	}
	return len(runs) > 0, nil
}

// SetImageWidth sizes an image to px wide with automatic height and no max-width cap.
func SetImageWidth(img *html.Node, px int) error {
	if KindOf(img) != KindImage {
		return ErrNotAnImage
	}
	if px <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidWidth, px)
	}
	SetStyle(img,
		Declaration{Property: "width", Value: fmt.Sprintf("%dpx", px)},
		Declaration{Property: "height", Value: "auto"},
		Declaration{Property: "max-width", Value: "none"},
	)
	return nil
}
