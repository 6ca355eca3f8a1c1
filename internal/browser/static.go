package browser

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// StaticBrowser fetches pages over plain HTTP and queries them with goquery.
// It does not run scripts, so it only suits server-rendered pages.
type StaticBrowser struct {
	client    *http.Client
	userAgent string
}

// NewStatic creates a StaticBrowser.
func NewStatic(opts Options) *StaticBrowser {
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &StaticBrowser{
		client:    &http.Client{Timeout: opts.Timeout},
		userAgent: opts.UserAgent,
	}
}

func (b *StaticBrowser) NewTab(ctx context.Context) (Tab, error) {
	return &staticTab{browser: b}, nil
}

func (b *StaticBrowser) Close() error {
	return nil
}

type staticTab struct {
	browser *StaticBrowser
	doc     *goquery.Document
}

func (t *staticTab) Navigate(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", t.browser.userAgent)

	resp, err := t.browser.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetching page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetching %s: unexpected status code: %d", url, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return fmt.Errorf("parsing HTML: %w", err)
	}
	t.doc = doc
	return nil
}

func (t *staticTab) find(selector string) (*goquery.Selection, error) {
	if t.doc == nil {
		return nil, fmt.Errorf("no page loaded")
	}
	sel := t.doc.Find(selector)
	if sel.Length() == 0 {
		return nil, fmt.Errorf("querying %s: %w", selector, ErrNoElements)
	}
	return sel, nil
}

func (t *staticTab) WaitFor(ctx context.Context, selector string) error {
	_, err := t.find(selector)
	return err
}

func (t *staticTab) Query(ctx context.Context, selector string) ([]Element, error) {
	sel, err := t.find(selector)
	if err != nil {
		return nil, err
	}
	out := make([]Element, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		out = append(out, staticElement{sel: s})
	})
	return out, nil
}

func (t *staticTab) QueryXPath(ctx context.Context, expr string) ([]Element, error) {
	return nil, fmt.Errorf("xpath %s: %w", expr, ErrUnsupported)
}

func (t *staticTab) OuterHTML(ctx context.Context, selector string) (string, error) {
	sel, err := t.find(selector)
	if err != nil {
		return "", err
	}
	html, err := goquery.OuterHtml(sel.First())
	if err != nil {
		return "", fmt.Errorf("rendering %s: %w", selector, err)
	}
	return html, nil
}

func (t *staticTab) Close() error {
	t.doc = nil
	return nil
}

type staticElement struct {
	sel *goquery.Selection
}

func (e staticElement) Text(ctx context.Context) (string, error) {
	return strings.TrimSpace(e.sel.Text()), nil
}

func (e staticElement) Attribute(name string) (string, bool) {
	return e.sel.Attr(name)
}
