package content

import (
	"bytes"
	"strings"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
	"golang.org/x/net/html"
)

// Declaration is one property of an inline style attribute.
type Declaration struct {
	Property string
	Value    string
}

// ParseStyle splits an inline style attribute into declarations, preserving order.
// Malformed declarations are skipped.
func ParseStyle(style string) []Declaration {
	parser := css.NewParser(parse.NewInput(bytes.NewBufferString(style)), true)

	var decls []Declaration
	for {
		gt, _, data := parser.Next()
		switch gt {
		case css.ErrorGrammar:
			return decls
		case css.DeclarationGrammar, css.CustomPropertyGrammar:
			decls = append(decls, Declaration{
				Property: strings.ToLower(string(data)),
				Value:    joinTokens(parser.Values()),
			})
		}
	}
}

func joinTokens(tokens []css.Token) string {
	var parts []string
	for _, t := range tokens {
		if t.TokenType != css.WhitespaceToken {
			parts = append(parts, string(t.Data))
		} else if len(parts) > 0 {
			parts = append(parts, " ")
		}
	}
	return strings.TrimSpace(strings.Join(parts, ""))
}

// FormatStyle renders declarations back into "prop:value;" form.
func FormatStyle(decls []Declaration) string {
	var b strings.Builder
	for _, d := range decls {
		b.WriteString(d.Property)
		b.WriteByte(':')
		b.WriteString(d.Value)
		b.WriteByte(';')
	}
	return b.String()
}

// SetStyle merges props into the inline style of n. Existing properties are
// overwritten in place, new ones appended.
func SetStyle(n *html.Node, props ...Declaration) {
	current, _ := Attr(n, "style")
	decls := ParseStyle(current)
	for _, p := range props {
		found := false
		for i := range decls {
			if decls[i].Property == p.Property {
				decls[i].Value = p.Value
				found = true
				break
			}
		}
		if !found {
			decls = append(decls, p)
		}
	}
	SetAttr(n, "style", FormatStyle(decls))
}

// StripStyle removes the named properties from the inline style of n. The
// attribute is rewritten only when something was removed and dropped entirely
// once empty.
func StripStyle(n *html.Node, props ...string) bool {
	current, ok := Attr(n, "style")
	if !ok {
		return false
	}
	decls := ParseStyle(current)
	kept := decls[:0]
	for _, d := range decls {
		if !containsFold(props, d.Property) {
			kept = append(kept, d)
		}
	}
	if len(kept) == len(decls) {
		return false
	}
	if len(kept) == 0 {
		RemoveAttr(n, "style")
		return true
	}
	SetAttr(n, "style", FormatStyle(kept))
	return true
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
