package enrich

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pfrederiksen/sportshub/internal/browser"
	"github.com/pfrederiksen/sportshub/internal/event"
)

// fakePage describes how a fake tab responds to a URL.
type fakePage struct {
	links      []string
	xpathLinks []string
	navErr     error
	noContent  bool
	delay      time.Duration
	panics     bool
}

type fakeBrowser struct {
	mu     sync.Mutex
	pages  map[string]fakePage
	opened int
	closed int
	tabErr error
}

func (b *fakeBrowser) NewTab(ctx context.Context) (browser.Tab, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.tabErr != nil {
		return nil, b.tabErr
	}
	b.opened++
	return &fakeTab{browser: b}, nil
}

func (b *fakeBrowser) Close() error { return nil }

func (b *fakeBrowser) page(url string) (fakePage, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.pages[url]
	return p, ok
}

type fakeTab struct {
	browser *fakeBrowser
	current *fakePage
}

func (t *fakeTab) Navigate(ctx context.Context, url string) error {
	p, ok := t.browser.page(url)
	if !ok {
		return fmt.Errorf("navigating to %s: 404", url)
	}
	if p.panics {
		panic("tab crashed")
	}
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if p.navErr != nil {
		return p.navErr
	}
	t.current = &p
	return nil
}

func (t *fakeTab) WaitFor(ctx context.Context, selector string) error {
	if t.current == nil || t.current.noContent {
		return fmt.Errorf("waiting for %s: %w", selector, context.DeadlineExceeded)
	}
	return nil
}

func (t *fakeTab) Query(ctx context.Context, selector string) ([]browser.Element, error) {
	return elements(t.current.links)
}

func (t *fakeTab) QueryXPath(ctx context.Context, expr string) ([]browser.Element, error) {
	return elements(t.current.xpathLinks)
}

func (t *fakeTab) OuterHTML(ctx context.Context, selector string) (string, error) {
	return "", browser.ErrUnsupported
}

func (t *fakeTab) Close() error {
	t.browser.mu.Lock()
	defer t.browser.mu.Unlock()
	t.browser.closed++
	return nil
}

func elements(hrefs []string) ([]browser.Element, error) {
	if len(hrefs) == 0 {
		return nil, browser.ErrNoElements
	}
	out := make([]browser.Element, 0, len(hrefs))
	for _, h := range hrefs {
		out = append(out, fakeElement{href: h})
	}
	return out, nil
}

type fakeElement struct {
	href string
}

func (e fakeElement) Text(ctx context.Context) (string, error) { return "link", nil }

func (e fakeElement) Attribute(name string) (string, bool) {
	if name != "href" {
		return "", false
	}
	return e.href, true
}

// fakeDB is shared by every connection; each connection counts its own use.
type fakeDB struct {
	mu        sync.Mutex
	events    []event.Event
	links     map[string]string
	connects  int
	closes    int
	updateErr error
}

func newFakeDB(events ...event.Event) *fakeDB {
	db := &fakeDB{events: events, links: make(map[string]string)}
	for _, e := range events {
		db.links[e.URL] = e.StreamLink
	}
	return db
}

func (db *fakeDB) Pending(ctx context.Context) ([]event.Event, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	var out []event.Event
	for _, e := range db.events {
		if db.links[e.URL] == "" {
			out = append(out, e)
		}
	}
	return out, nil
}

func (db *fakeDB) connect(ctx context.Context) (LinkStore, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.connects++
	return &fakeConn{db: db}, nil
}

type fakeConn struct {
	db     *fakeDB
	closed bool
}

func (c *fakeConn) UpdateLinks(ctx context.Context, url, links string) (int64, error) {
	if c.closed {
		return 0, errors.New("connection closed")
	}
	c.db.mu.Lock()
	defer c.db.mu.Unlock()
	if c.db.updateErr != nil {
		return 0, c.db.updateErr
	}
	if _, ok := c.db.links[url]; !ok {
		return 0, nil
	}
	c.db.links[url] = links
	return 1, nil
}

func (c *fakeConn) Close() error {
	c.closed = true
	c.db.mu.Lock()
	defer c.db.mu.Unlock()
	c.db.closes++
	return nil
}
