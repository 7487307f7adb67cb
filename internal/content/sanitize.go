package content

import (
	"strings"

	"golang.org/x/net/html"
)

const (
	// FocusAttr marks the image the annotation engine last acted on.
	FocusAttr = "data-ad-focus"

	// priorStyleAttr holds the highlight declarations a focused element had
	// before it was marked.
	priorStyleAttr = "data-ad-prior-style"

	transientAttrPrefix = "data-ad-"
	editableAttr        = "contenteditable"
)

// HighlightProps are the inline style properties used to outline the focused target.
var HighlightProps = []string{"outline", "outline-offset"}

// MarkFocus flags n as the focused target and outlines it with highlight.
// The element's own highlight declarations are kept aside for ClearFocus.
func MarkFocus(n *html.Node, highlight ...Declaration) {
	if _, ok := Attr(n, FocusAttr); !ok {
		current, _ := Attr(n, "style")
		var prior []Declaration
		for _, d := range ParseStyle(current) {
			if containsFold(HighlightProps, d.Property) {
				prior = append(prior, d)
			}
		}
		if len(prior) > 0 {
			SetAttr(n, priorStyleAttr, FormatStyle(prior))
		}
		SetAttr(n, FocusAttr, "true")
	}
	SetStyle(n, highlight...)
}

// ClearFocus undoes MarkFocus, putting back the declarations n had before.
// Elements that are not marked are left alone.
func ClearFocus(n *html.Node) bool {
	if _, ok := Attr(n, FocusAttr); !ok {
		return false
	}
	prior, _ := Attr(n, priorStyleAttr)
	restore := ParseStyle(prior)
	if len(restore) > 0 {
		SetStyle(n, restore...)
	}
	var drop []string
	for _, p := range HighlightProps {
		if !hasProperty(restore, p) {
			drop = append(drop, p)
		}
	}
	StripStyle(n, drop...)
	RemoveAttr(n, FocusAttr)
	RemoveAttr(n, priorStyleAttr)
	return true
}

func hasProperty(decls []Declaration, prop string) bool {
	for _, d := range decls {
		if strings.EqualFold(d.Property, prop) {
			return true
		}
	}
	return false
}

// Sanitize strips editing artifacts from every element: the focus highlight,
// data-ad-* attributes and contenteditable. User styling is kept. It reports
// whether anything was removed.
func (d *Document) Sanitize() bool {
	changed := false
	d.Walk(func(n *html.Node) bool {
		if n.Type != html.ElementNode {
			return true
		}
		if ClearFocus(n) {
			changed = true
		}
		if removeAttrs(n, isTransientAttr) {
			changed = true
		}
		return true
	})
	return changed
}

func isTransientAttr(a html.Attribute) bool {
	if a.Namespace != "" {
		return false
	}
	return strings.HasPrefix(a.Key, transientAttrPrefix) || a.Key == editableAttr
}

// Sanitize cleans serialized content. Input without editing artifacts is
// returned byte for byte, so sanitizing twice equals sanitizing once.
func Sanitize(s string) (string, error) {
	doc, err := Parse(s)
	if err != nil {
		return "", err
	}
	if !doc.Sanitize() {
		return s, nil
	}
	return doc.Render(), nil
}
