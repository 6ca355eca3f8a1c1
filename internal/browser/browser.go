package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrNoElements is returned by queries that match nothing.
	ErrNoElements = errors.New("no elements found")

	// ErrUnsupported is returned when a backend cannot perform an operation.
	ErrUnsupported = errors.New("operation not supported by browser engine")
)

// Engine names a Browser implementation.
type Engine string

const (
	EngineChrome Engine = "chrome"
	EngineStatic Engine = "static"
)

const (
	DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	DefaultTimeout   = 30 * time.Second
)

// Browser hands out tabs. Each tab is owned by exactly one caller.
type Browser interface {
	NewTab(ctx context.Context) (Tab, error)
	Close() error
}

// Tab is a single page handle.
type Tab interface {
	Navigate(ctx context.Context, url string) error
	WaitFor(ctx context.Context, selector string) error
	Query(ctx context.Context, selector string) ([]Element, error)
	QueryXPath(ctx context.Context, expr string) ([]Element, error)
	OuterHTML(ctx context.Context, selector string) (string, error)
	Close() error
}

// Element is a node returned from a Tab query.
type Element interface {
	Text(ctx context.Context) (string, error)
	Attribute(name string) (string, bool)
}

// Options configures New.
type Options struct {
	Engine    Engine
	Headless  bool
	ExecPath  string
	UserAgent string
	Timeout   time.Duration
}

// New starts a browser for the configured engine.
func New(ctx context.Context, opts Options) (Browser, error) {
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	switch Engine(strings.ToLower(string(opts.Engine))) {
	case EngineChrome, "":
		return NewChrome(ctx, opts)
	case EngineStatic:
		return NewStatic(opts), nil
	default:
		return nil, fmt.Errorf("unknown browser engine: %s", opts.Engine)
	}
}
