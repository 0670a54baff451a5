// internal/driver/static/script.go
package static

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/xkilldash9x/pagekit/internal/driver"
)

// The helpers below stand in for page scripts. Each takes a CSS selector and
// applies to every match in the current document.

// Append parses fragment and appends it to every node matching css.
func (d *Driver) Append(css, fragment string) error {
	return d.each(css, func(n *html.Node) error {
		nodes, err := parseFragment(n, fragment)
		if err != nil {
			return err
		}
		for _, c := range nodes {
			n.AppendChild(c)
		}
		return nil
	})
}

// Replace swaps every node matching css for a fresh parse of fragment.
// Handles held on the old nodes go stale.
func (d *Driver) Replace(css, fragment string) error {
	return d.each(css, func(n *html.Node) error {
		nodes, err := parseFragment(n.Parent, fragment)
		if err != nil {
			return err
		}
		for _, c := range nodes {
			n.Parent.InsertBefore(c, n)
		}
		n.Parent.RemoveChild(n)
		return nil
	})
}

// Rerender replaces every node matching css with a deep copy of itself, the
// way a client-side framework re-renders a component.
func (d *Driver) Rerender(css string) error {
	return d.each(css, func(n *html.Node) error {
		n.Parent.InsertBefore(clone(n), n)
		n.Parent.RemoveChild(n)
		return nil
	})
}

// Remove detaches every node matching css.
func (d *Driver) Remove(css string) error {
	return d.each(css, func(n *html.Node) error {
		n.Parent.RemoveChild(n)
		return nil
	})
}

// SetAttribute sets an attribute on every node matching css.
func (d *Driver) SetAttribute(css, key, val string) error {
	return d.each(css, func(n *html.Node) error {
		setAttr(n, key, val)
		return nil
	})
}

// RemoveAttribute removes an attribute from every node matching css.
func (d *Driver) RemoveAttribute(css, key string) error {
	return d.each(css, func(n *html.Node) error {
		removeAttr(n, key)
		return nil
	})
}

// SetText replaces the children of every node matching css with text.
func (d *Driver) SetText(css, s string) error {
	return d.each(css, func(n *html.Node) error {
		setText(n, s)
		return nil
	})
}

func (d *Driver) each(css string, fn func(*html.Node) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	nodes, err := query(d.win().doc, driver.ByCSS, css)
	if err != nil {
		return err
	}
	if len(nodes) == 0 {
		return fmt.Errorf("no node matches '%s'", css)
	}
	for _, n := range nodes {
		if err := fn(n); err != nil {
			return err
		}
	}
	return nil
}

func parseFragment(context *html.Node, fragment string) ([]*html.Node, error) {
	if context == nil || context.Type != html.ElementNode {
		context = &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), context)
	if err != nil {
		return nil, fmt.Errorf("failed to parse fragment: %w", err)
	}
	return nodes, nil
}

func clone(n *html.Node) *html.Node {
	c := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
		Attr:      append([]html.Attribute(nil), n.Attr...),
	}
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		c.AppendChild(clone(ch))
	}
	return c
}
