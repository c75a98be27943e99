package browser

import (
	"context"
)

// LaunchOptions configures a new browser session.
type LaunchOptions struct {
	Headless  bool
	NoSandbox bool
	Width     int
	Height    int
	// ExecPath overrides the browser binary. Empty means driver default.
	ExecPath string
	// RemoteURL connects to an existing browser (CDP websocket) instead of launching one.
	RemoteURL string
	UserAgent string
}

// Driver launches isolated browser sessions.
type Driver interface {
	Name() string
	Launch(ctx context.Context, opts LaunchOptions) (Session, error)
}

// Session is one browser with a single page.
// Close must be safe to call concurrently with in-flight calls, which then fail.
type Session interface {
	// Navigate loads url and waits for the network to settle, bounded by ctx.
	Navigate(ctx context.Context, url string) error
	// Find returns the first element matching the CSS selector or domain.ErrNoElement.
	Find(ctx context.Context, selector string) (Element, error)
	// Eval runs a page-level JavaScript function expression with one JSON argument.
	Eval(ctx context.Context, js string, arg any) error
	// Screenshot captures the viewport, or the whole document when fullPage is set, as PNG.
	Screenshot(ctx context.Context, fullPage bool) ([]byte, error)
	Close() error
}

// Element is a handle on a DOM element of a Session.
type Element interface {
	// Fill runs FillScript on the element with text as argument.
	Fill(ctx context.Context, text string) error
	// Screenshot captures the element bounds as PNG.
	Screenshot(ctx context.Context) ([]byte, error)
	// Attribute returns the attribute value, empty when absent.
	Attribute(ctx context.Context, name string) (string, error)
	// TagName returns the lower-case tag name.
	TagName(ctx context.Context) (string, error)
}
