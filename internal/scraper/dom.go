package scraper

import (
	"strings"

	"golang.org/x/net/html"
)

// attr returns the value of the named attribute, or "".
func attr(n *html.Node, name string) string {
	if n == nil {
		return ""
	}
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

// classes returns the whitespace separated class list of n.
func classes(n *html.Node) []string {
	return strings.Fields(attr(n, "class"))
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range classes(n) {
		if c == class {
			return true
		}
	}
	return false
}

// matches reports whether n is an element with the given tag (any when empty)
// carrying every listed class.
func matches(n *html.Node, tag string, cls ...string) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	if tag != "" && n.Data != tag {
		return false
	}
	for _, c := range cls {
		if !hasClass(n, c) {
			return false
		}
	}
	return true
}

// findAll walks the subtree under root depth-first and collects matching elements.
func findAll(root *html.Node, tag string, cls ...string) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if matches(n, tag, cls...) {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	if root != nil {
		walk(root)
	}
	return out
}

// findFirst returns the first matching element in document order, or nil.
func findFirst(root *html.Node, tag string, cls ...string) *html.Node {
	var found *html.Node
	var walk func(*html.Node) bool
	walk = func(n *html.Node) bool {
		if matches(n, tag, cls...) {
			found = n
			return true
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				return true
			}
		}
		return false
	}
	if root != nil {
		walk(root)
	}
	return found
}

// findByID returns the element with the given id attribute, or nil.
func findByID(root *html.Node, id string) *html.Node {
	var found *html.Node
	var walk func(*html.Node) bool
	walk = func(n *html.Node) bool {
		if n.Type == html.ElementNode && attr(n, "id") == id {
			found = n
			return true
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				return true
			}
		}
		return false
	}
	if root != nil {
		walk(root)
	}
	return found
}

// nextElement returns the next sibling element of n with the given tag.
func nextElement(n *html.Node, tag string) *html.Node {
	if n == nil {
		return nil
	}
	for s := n.NextSibling; s != nil; s = s.NextSibling {
		if s.Type == html.ElementNode && s.Data == tag {
			return s
		}
	}
	return nil
}

// text concatenates all text under n and collapses whitespace runs.
func text(n *html.Node) string {
	if n == nil {
		return ""
	}
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			sb.WriteString(node.Data)
			sb.WriteString(" ")
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}
