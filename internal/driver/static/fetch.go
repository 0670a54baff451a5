// internal/driver/static/fetch.go
package static

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/antchfx/htmlquery"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

const maxRedirects = 10

// executeRequest sends req, follows redirects and installs the final HTML
// response as the current document.
func (d *Driver) executeRequest(ctx context.Context, req *http.Request) error {
	current := req
	for i := 0; i < maxRedirects; i++ {
		d.logger.Debug("Executing request.", zap.String("method", current.Method), zap.String("url", current.URL.String()))
		resp, err := d.client.Do(current)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		if resp.StatusCode >= 300 && resp.StatusCode < 400 {
			next, err := d.redirect(ctx, resp, current)
			resp.Body.Close()
			if err != nil {
				return fmt.Errorf("failed to follow redirect: %w", err)
			}
			current = next
			continue
		}
		return d.install(resp)
	}
	return fmt.Errorf("maximum number of redirects (%d) exceeded", maxRedirects)
}

func (d *Driver) redirect(ctx context.Context, resp *http.Response, orig *http.Request) (*http.Request, error) {
	location := resp.Header.Get("Location")
	if location == "" {
		return nil, fmt.Errorf("redirect response missing Location header")
	}
	next, err := orig.URL.Parse(location)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redirect Location '%s': %w", location, err)
	}

	method := orig.Method
	var body io.ReadCloser
	switch resp.StatusCode {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther:
		if method != http.MethodHead {
			method = http.MethodGet
		}
	default:
		if orig.GetBody != nil {
			if body, err = orig.GetBody(); err != nil {
				return nil, fmt.Errorf("failed to replay body for redirect: %w", err)
			}
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, next.String(), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Referer", orig.URL.String())
	return req, nil
}

// install parses an HTML response into the current window. Non-HTML bodies
// leave an empty document at the response URL.
func (d *Driver) install(resp *http.Response) error {
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		d.logger.Warn("Request resulted in error status code.", zap.Int("status", resp.StatusCode), zap.String("url", resp.Request.URL.String()))
	}

	var doc *html.Node
	if strings.Contains(strings.ToLower(resp.Header.Get("Content-Type")), "text/html") {
		parsed, err := htmlquery.Parse(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to parse HTML response from '%s': %w", resp.Request.URL, err)
		}
		doc = parsed
	} else {
		doc, _ = html.Parse(strings.NewReader(""))
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	w := d.win()
	w.url, w.source, w.doc = resp.Request.URL, "", doc
	d.scrollX, d.scrollY = 0, 0

	title := ""
	if t := htmlquery.FindOne(doc, "//title"); t != nil {
		title = strings.TrimSpace(htmlquery.InnerText(t))
	}
	d.logger.Debug("Document installed.", zap.String("url", w.url.String()), zap.String("title", title))
	return nil
}

// formRequest serialises form into a request for its action. Caller holds
// d.mu.
func (d *Driver) formRequest(ctx context.Context, form, submitter *html.Node) (*http.Request, error) {
	action, _ := attr(form, "action")
	m, _ := attr(form, "method")
	method := strings.ToUpper(m)
	if method != http.MethodPost {
		method = http.MethodGet
	}

	base := d.win().url
	target := base
	if action != "" {
		ref, err := url.Parse(action)
		if err != nil {
			return nil, fmt.Errorf("invalid form action '%s': %w", action, err)
		}
		target = base.ResolveReference(ref)
	}

	data := url.Values{}
	for _, in := range htmlquery.Find(form, ".//input | .//textarea | .//select | .//button") {
		name, _ := attr(in, "name")
		if name == "" || hasAttr(in, "disabled") {
			continue
		}
		switch tag(in) {
		case "input":
			switch inputType(in) {
			case "checkbox", "radio":
				if hasAttr(in, "checked") {
					v, ok := attr(in, "value")
					if !ok {
						v = "on"
					}
					data.Add(name, v)
				}
			case "submit", "image":
				if in == submitter {
					data.Add(name, value(in))
				}
			case "button", "reset", "file":
			default:
				data.Add(name, value(in))
			}
		case "button":
			if in == submitter {
				data.Add(name, value(in))
			}
		default:
			data.Add(name, value(in))
		}
	}

	var req *http.Request
	var err error
	if method == http.MethodPost {
		req, err = http.NewRequestWithContext(ctx, method, target.String(), strings.NewReader(data.Encode()))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		u := *target
		u.RawQuery = data.Encode()
		req, err = http.NewRequestWithContext(ctx, method, u.String(), nil)
		if err != nil {
			return nil, err
		}
	}
	req.Header.Set("Referer", base.String())
	return req, nil
}
