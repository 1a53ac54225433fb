package parsers

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// Meta's HTML exports (Messenger and Instagram share the markup) wrap each
// message in a block identified by obfuscated class names. These are the
// markers the current export generation uses.
const (
	metaClassBlock     = "_a6-g"
	metaClassSender    = "_a6-h"
	metaClassContent   = "_a6-p"
	metaClassTimestamp = "_a6-o"
)

func parseHTML(data []byte) (*html.Node, error) {
	return html.Parse(strings.NewReader(string(data)))
}

func nodeHasClass(n *html.Node, class string) bool {
	if n.Type != html.ElementNode {
		return false
	}
	for _, attr := range n.Attr {
		if attr.Key != "class" {
			continue
		}
		for _, c := range strings.Fields(attr.Val) {
			if c == class {
				return true
			}
		}
	}
	return false
}

func nodeAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

// findByClass collects all descendants carrying the given class, in
// document order.
func findByClass(root *html.Node, class string) []*html.Node {
	var out []*html.Node
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if nodeHasClass(n, class) {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return out
}

func firstByClass(root *html.Node, class string) *html.Node {
	nodes := findByClass(root, class)
	if len(nodes) == 0 {
		return nil
	}
	return nodes[0]
}

// blockElements force a line break when flattening message bodies.
var blockElements = map[string]bool{
	"p": true, "div": true, "br": true, "li": true,
	"tr": true, "h1": true, "h2": true, "h3": true,
}

// nodeText flattens a node to plain text: media tags are dropped (they
// become attachments, not text), block-level elements become line breaks.
func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			return
		case html.ElementNode:
			switch n.Data {
			case "img", "audio", "video", "script", "style":
				return
			}
			if blockElements[n.Data] && b.Len() > 0 {
				b.WriteString("\n")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)

	lines := strings.Split(b.String(), "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// mediaSources collects the src attributes of media elements under the
// node, in document order. <audio>/<video> may carry the src on a nested
// <source> element.
func mediaSources(n *html.Node) []string {
	var out []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "img", "audio", "video", "source":
				if src := nodeAttr(n, "src"); src != "" {
					out = append(out, src)
				}
			case "a":
				// Document attachments are plain links into the archive.
				if href := nodeAttr(n, "href"); strings.HasPrefix(href, "messages/") || strings.HasPrefix(href, "your_instagram_activity/") {
					out = append(out, href)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

// fixMojibake repairs the double-encoding Meta's JSON and HTML exports are
// infamous for: UTF-8 byte sequences written out as individual latin-1
// code points. Reinterpreting such a string as latin-1 bytes yields the
// intended UTF-8.
func fixMojibake(s string) string {
	suspicious := false
	for _, r := range s {
		if r >= 0xC2 && r <= 0xF4 {
			suspicious = true
			break
		}
	}
	if !suspicious {
		return s
	}
	buf := make([]byte, 0, len(s))
	for _, r := range s {
		if r > 0xFF {
			// Genuine multibyte rune: the string was not mojibake.
			return s
		}
		buf = append(buf, byte(r))
	}
	if !utf8.Valid(buf) {
		return s
	}
	return string(buf)
}
