package browser

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
)

// ChromeBrowser drives a local Chrome through the DevTools protocol.
type ChromeBrowser struct {
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc

	mu     sync.Mutex
	closed bool
}

func allocatorOptions(opts Options) []chromedp.ExecAllocatorOption {
	out := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	out = append(out,
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("ignore-certificate-errors", true),
		chromedp.UserAgent(opts.UserAgent),
	)
	if opts.ExecPath != "" {
		out = append(out, chromedp.ExecPath(opts.ExecPath))
	}
	return out
}

// NewChrome launches Chrome. The process lives until Close; ctx only bounds startup.
func NewChrome(ctx context.Context, opts Options) (*ChromeBrowser, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocatorOptions(opts)...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	started := make(chan error, 1)
	go func() { started <- chromedp.Run(browserCtx) }()

	select {
	case err := <-started:
		if err != nil {
			browserCancel()
			allocCancel()
			return nil, fmt.Errorf("starting chrome: %w", err)
		}
	case <-ctx.Done():
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("starting chrome: %w", ctx.Err())
	}

	return &ChromeBrowser{
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
	}, nil
}

// NewTab opens a new target in the running browser.
func (b *ChromeBrowser) NewTab(ctx context.Context) (Tab, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, fmt.Errorf("opening tab: browser closed")
	}

	tabCtx, cancel := chromedp.NewContext(b.browserCtx)
	tab := &chromeTab{ctx: tabCtx, cancel: cancel}
	if err := tab.run(ctx); err != nil {
		cancel()
		return nil, fmt.Errorf("opening tab: %w", err)
	}
	return tab, nil
}

// Close shuts down Chrome and every tab it opened.
func (b *ChromeBrowser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	b.browserCancel()
	b.allocCancel()
	return nil
}

type chromeTab struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// run executes actions on the tab, bounded by the caller's ctx. Cancelling
// a child of the tab context aborts the action without closing the target.
func (t *chromeTab) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(t.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (t *chromeTab) Navigate(ctx context.Context, url string) error {
	if err := t.run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigating to %s: %w", url, err)
	}
	return nil
}

func (t *chromeTab) WaitFor(ctx context.Context, selector string) error {
	if err := t.run(ctx, chromedp.WaitReady(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("waiting for %s: %w", selector, err)
	}
	return nil
}

func (t *chromeTab) Query(ctx context.Context, selector string) ([]Element, error) {
	return t.nodes(ctx, selector, chromedp.ByQueryAll)
}

func (t *chromeTab) QueryXPath(ctx context.Context, expr string) ([]Element, error) {
	return t.nodes(ctx, expr, chromedp.BySearch)
}

func (t *chromeTab) nodes(ctx context.Context, sel string, by chromedp.QueryOption) ([]Element, error) {
	var nodes []*cdp.Node
	if err := t.run(ctx, chromedp.Nodes(sel, &nodes, by, chromedp.AtLeast(0))); err != nil {
		return nil, fmt.Errorf("querying %s: %w", sel, err)
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("querying %s: %w", sel, ErrNoElements)
	}

	out := make([]Element, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, &chromeElement{tab: t, node: n})
	}
	return out, nil
}

func (t *chromeTab) OuterHTML(ctx context.Context, selector string) (string, error) {
	var html string
	if err := t.run(ctx, chromedp.OuterHTML(selector, &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("reading %s: %w", selector, err)
	}
	return html, nil
}

func (t *chromeTab) Close() error {
	t.cancel()
	return nil
}

type chromeElement struct {
	tab  *chromeTab
	node *cdp.Node
}

func (e *chromeElement) Text(ctx context.Context) (string, error) {
	var text string
	err := e.tab.run(ctx, chromedp.Text([]cdp.NodeID{e.node.NodeID}, &text, chromedp.ByNodeID))
	if err != nil {
		return "", fmt.Errorf("reading node text: %w", err)
	}
	return strings.TrimSpace(text), nil
}

func (e *chromeElement) Attribute(name string) (string, bool) {
	e.node.RLock()
	defer e.node.RUnlock()
	return lookupAttribute(e.node.Attributes, name)
}

// lookupAttribute searches the flattened name/value list DevTools returns.
func lookupAttribute(attrs []string, name string) (string, bool) {
	for i := 0; i+1 < len(attrs); i += 2 {
		if attrs[i] == name {
			return attrs[i+1], true
		}
	}
	return "", false
}
