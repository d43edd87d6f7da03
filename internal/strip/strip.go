package strip

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Result describes what Strip did to one document.
type Result struct {
	// Removed counts removed elements per rule name.
	Removed map[string]int `json:"removed"`

	// Unwrapped counts runtime custom elements replaced by their children.
	Unwrapped int `json:"unwrapped"`

	// LangAdded reports whether the default language was set.
	LangAdded bool `json:"lang_added"`

	// MarkerAdded reports whether the marker comment was appended.
	MarkerAdded bool `json:"marker_added"`
}

// RemovedTotal returns the number of removed elements over all rules.
func (r Result) RemovedTotal() int {
	total := 0
	for _, n := range r.Removed {
		total += n
	}
	return total
}

// Strip removes the runtime from the document rooted at root in place.
func Strip(root *html.Node) Result {
	result := Result{Removed: make(map[string]int)}
	doc := goquery.NewDocumentFromNode(root)

	for _, rule := range removalRules {
		doc.Find(rule.selector).Each(func(_ int, s *goquery.Selection) {
			if rule.match(s) {
				s.Remove()
				result.Removed[rule.name]++
			}
		})
	}

	for _, name := range runtimeElements {
		for _, n := range doc.Find(name).Nodes {
			unwrap(n)
			result.Unwrapped++
		}
	}

	if htmlEl := doc.Find("html").First(); htmlEl.Length() > 0 {
		if lang, _ := htmlEl.Attr("lang"); strings.TrimSpace(lang) == "" {
			htmlEl.SetAttr("lang", DefaultLang)
			result.LangAdded = true
		}
	}

	if head := doc.Find("head").First(); head.Length() > 0 && !hasMarker(head.Nodes[0]) {
		head.Nodes[0].AppendChild(&html.Node{Type: html.CommentNode, Data: MarkerComment})
		result.MarkerAdded = true
	}

	return result
}

// StripHTML parses src, strips it, and renders the result.
func StripHTML(src string) (string, Result, error) {
	// With scripting disabled, <noscript> content is parsed as markup so its
	// links are visible to the rules.
	root, err := html.ParseWithOptions(strings.NewReader(src), html.ParseOptionEnableScripting(false))
	if err != nil {
		return "", Result{}, fmt.Errorf("failed to parse HTML: %w", err)
	}

	result := Strip(root)

	var sb strings.Builder
	sb.Grow(len(src))
	if err := html.Render(&sb, root); err != nil {
		return "", Result{}, fmt.Errorf("failed to render HTML: %w", err)
	}
	return sb.String(), result, nil
}

// unwrap replaces n with its children.
func unwrap(n *html.Node) {
	parent := n.Parent
	if parent == nil {
		return
	}
	for child := n.FirstChild; child != nil; {
		next := child.NextSibling
		n.RemoveChild(child)
		parent.InsertBefore(child, n)
		child = next
	}
	parent.RemoveChild(n)
}

// hasMarker reports whether head already carries the marker comment.
func hasMarker(head *html.Node) bool {
	for c := head.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.CommentNode && c.Data == MarkerComment {
			return true
		}
	}
	return false
}
