// internal/driver/static/dom.go
package static

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/andybalholm/cascadia"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/xkilldash9x/pagekit/internal/driver"
)

// query runs a CSS or XPath query below root and returns element nodes in
// document order. A panic inside the query engine is returned as an error.
func query(root *html.Node, by driver.By, selector string) (nodes []*html.Node, err error) {
	defer func() {
		if r := recover(); r != nil {
			nodes, err = nil, fmt.Errorf("query '%s' failed: %v", selector, r)
		}
	}()
	switch by {
	case driver.ByCSS:
		sel, err := cascadia.Compile(selector)
		if err != nil {
			return nil, fmt.Errorf("invalid css selector '%s': %w", selector, err)
		}
		return cascadia.QueryAll(root, sel), nil
	case driver.ByXPath:
		nodes, err = htmlquery.QueryAll(root, selector)
		if err != nil {
			return nil, fmt.Errorf("invalid xpath selector '%s': %w", selector, err)
		}
		out := nodes[:0]
		for _, n := range nodes {
			if n.Type == html.ElementNode {
				out = append(out, n)
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported locator strategy %v", by)
	}
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func hasAttr(n *html.Node, key string) bool {
	_, ok := attr(n, key)
	return ok
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func removeAttr(n *html.Node, key string) {
	for i, a := range n.Attr {
		if a.Key == key {
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			return
		}
	}
}

func tag(n *html.Node) string { return strings.ToLower(n.Data) }

func inputType(n *html.Node) string {
	t, _ := attr(n, "type")
	return strings.ToLower(t)
}

// styleValue returns the inline style declaration for property.
func styleValue(n *html.Node, property string) string {
	style, _ := attr(n, "style")
	for _, decl := range strings.Split(style, ";") {
		k, v, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(k), property) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// hidden reports whether n itself is excluded from rendering.
func hidden(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	switch tag(n) {
	case "head", "script", "style", "template", "title", "meta", "link":
		return true
	}
	if hasAttr(n, "hidden") {
		return true
	}
	if tag(n) == "input" && inputType(n) == "hidden" {
		return true
	}
	return styleValue(n, "display") == "none" || styleValue(n, "visibility") == "hidden"
}

// displayed walks the ancestor chain; any hidden ancestor hides n.
func displayed(n *html.Node) bool {
	for c := n; c != nil; c = c.Parent {
		if hidden(c) {
			return false
		}
	}
	return true
}

func enabled(n *html.Node) bool {
	if hasAttr(n, "disabled") {
		return false
	}
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && tag(p) == "fieldset" && hasAttr(p, "disabled") {
			return false
		}
	}
	return true
}

func selected(n *html.Node) bool {
	return hasAttr(n, "checked") || hasAttr(n, "selected")
}

// text returns the whitespace-normalised text of n, or "" when n is not
// displayed.
func text(n *html.Node) string {
	if !displayed(n) {
		return ""
	}
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(c *html.Node) {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
			b.WriteByte(' ')
			return
		}
		if c != n && hidden(c) {
			return
		}
		for ch := c.FirstChild; ch != nil; ch = ch.NextSibling {
			walk(ch)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}

// rect reads the synthetic layout box from data-rect="x,y,w,h". Static
// documents carry no layout engine.
func rect(n *html.Node) driver.Rect {
	raw, ok := attr(n, "data-rect")
	if !ok {
		return driver.Rect{}
	}
	var vals [4]float64
	for i, part := range strings.SplitN(raw, ",", 4) {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err == nil {
			vals[i] = v
		}
	}
	return driver.Rect{X: vals[0], Y: vals[1], Width: vals[2], Height: vals[3]}
}

func findParentForm(n *html.Node) *html.Node {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && tag(p) == "form" {
			return p
		}
	}
	return nil
}

func root(n *html.Node) *html.Node {
	for n.Parent != nil {
		n = n.Parent
	}
	return n
}

func setText(n *html.Node, s string) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
	if s != "" {
		n.AppendChild(&html.Node{Type: html.TextNode, Data: s})
	}
}

// value returns the current form value of an input, textarea or select.
func value(n *html.Node) string {
	switch tag(n) {
	case "textarea":
		return htmlquery.InnerText(n)
	case "select":
		for _, opt := range htmlquery.Find(n, ".//option") {
			if hasAttr(opt, "selected") {
				return optionValue(opt)
			}
		}
		return ""
	default:
		v, _ := attr(n, "value")
		return v
	}
}

func optionValue(opt *html.Node) string {
	if v, ok := attr(opt, "value"); ok {
		return v
	}
	return strings.TrimSpace(htmlquery.InnerText(opt))
}

// checkRadio checks n and unchecks the rest of its group.
func checkRadio(n *html.Node) {
	name, _ := attr(n, "name")
	if name == "" {
		setAttr(n, "checked", "checked")
		return
	}
	scope := findParentForm(n)
	if scope == nil {
		scope = root(n)
	}
	for _, r := range htmlquery.Find(scope, fmt.Sprintf(".//input[@type='radio' and @name='%s']", name)) {
		if r == n {
			setAttr(r, "checked", "checked")
		} else {
			removeAttr(r, "checked")
		}
	}
}
