package page

import (
	"strings"

	"golang.org/x/net/html"
)

// DefaultMaxTextLength caps the free-text portion of a snapshot. Interactive
// elements are never truncated; losing a clickable element loses an action.
const DefaultMaxTextLength = 4000

// interactiveSelector is the element set surfaced with indexes. Drivers must
// resolve action indexes against the same set, in document order.
const interactiveSelector = "a, button, input, select, textarea"

// Clean parses raw HTML into a Snapshot: interactive elements are collected
// in document order and indexed, page noise (scripts, styles, hidden
// machinery) is stripped, and the remaining visible text is flattened and
// capped at maxTextLength.
func Clean(rawHTML string, maxTextLength int) (*Snapshot, error) {
	if maxTextLength <= 0 {
		maxTextLength = DefaultMaxTextLength
	}

	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{Title: findTitle(doc)}

	var text strings.Builder
	collect(doc, snap, &text, maxTextLength)
	snap.Text = strings.TrimSpace(text.String())
	return snap, nil
}

func collect(n *html.Node, snap *Snapshot, text *strings.Builder, maxTextLength int) {
	switch n.Type {
	case html.CommentNode:
		return
	case html.ElementNode:
		tag := strings.ToLower(n.Data)
		if skippedTag(tag) {
			return
		}
		if interactiveTag(tag) {
			snap.Elements = append(snap.Elements, Element{
				Index: len(snap.Elements),
				Tag:   tag,
				Text:  elementText(n),
				Attrs: keptAttrs(tag, n),
			})
			return
		}
	case html.TextNode:
		t := strings.TrimSpace(n.Data)
		if t != "" {
			if text.Len() >= maxTextLength {
				snap.Truncated = true
				return
			}
			if text.Len() > 0 {
				text.WriteString(" ")
			}
			if text.Len()+len(t) > maxTextLength {
				text.WriteString(t[:maxTextLength-text.Len()])
				snap.Truncated = true
				return
			}
			text.WriteString(t)
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collect(c, snap, text, maxTextLength)
	}
}

func skippedTag(tag string) bool {
	switch tag {
	case "script", "style", "noscript", "iframe", "embed", "object", "svg", "head":
		return true
	}
	return false
}

func interactiveTag(tag string) bool {
	switch tag {
	case "a", "button", "input", "select", "textarea":
		return true
	}
	return false
}

// elementText flattens an element's visible text, including option labels
// for selects.
func elementText(n *html.Node) string {
	var parts []string
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			if t := strings.TrimSpace(node.Data); t != "" {
				parts = append(parts, t)
			}
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(parts, " ")
}

// keptAttrs keeps only the attributes that help the model pick an element.
func keptAttrs(tag string, n *html.Node) map[string]string {
	kept := make(map[string]string)
	for _, attr := range n.Attr {
		key := strings.ToLower(attr.Key)
		switch key {
		case "id", "role", "aria-label", "title":
			kept[key] = attr.Val
		case "href":
			if tag == "a" {
				kept[key] = attr.Val
			}
		case "type", "name", "placeholder", "value":
			if tag == "input" || tag == "textarea" || tag == "select" || tag == "button" {
				kept[key] = attr.Val
			}
		case "alt":
			kept[key] = attr.Val
		}
	}
	if len(kept) == 0 {
		return nil
	}
	return kept
}

func findTitle(doc *html.Node) string {
	var title string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "title" {
			if n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
				title = strings.TrimSpace(n.FirstChild.Data)
			}
			return
		}
		for c := n.FirstChild; c != nil && title == ""; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return title
}
