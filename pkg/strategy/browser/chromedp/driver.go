// Package chromedp implements browser.Driver with chromedp.
package chromedp

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/chromedp/cdproto/page"
	cdp "github.com/chromedp/chromedp"

	"github.com/aretw0/tablecast/pkg/domain"
	"github.com/aretw0/tablecast/pkg/strategy/browser"
)

// Name is the driver name used in configuration.
const Name = "chromedp"

// Driver launches Chromium through the DevTools protocol.
type Driver struct{}

// New creates a chromedp Driver.
func New() *Driver {
	return &Driver{}
}

func (d *Driver) Name() string { return Name }

// Launch starts a browser tab. The browser lives until Close or until ctx ends.
func (d *Driver) Launch(ctx context.Context, opts browser.LaunchOptions) (browser.Session, error) {
	var (
		allocCtx    context.Context
		allocCancel context.CancelFunc
	)
	if opts.RemoteURL != "" {
		allocCtx, allocCancel = cdp.NewRemoteAllocator(ctx, opts.RemoteURL)
	} else {
		execOpts := append(cdp.DefaultExecAllocatorOptions[:],
			cdp.Flag("headless", opts.Headless),
			cdp.Flag("disable-gpu", true),
			cdp.Flag("disable-dev-shm-usage", true),
			cdp.Flag("font-render-hinting", "none"),
			cdp.WindowSize(opts.Width, opts.Height),
		)
		if opts.NoSandbox {
			execOpts = append(execOpts, cdp.NoSandbox)
		}
		if opts.ExecPath != "" {
			execOpts = append(execOpts, cdp.ExecPath(opts.ExecPath))
		}
		if opts.UserAgent != "" {
			execOpts = append(execOpts, cdp.UserAgent(opts.UserAgent))
		}
		allocCtx, allocCancel = cdp.NewExecAllocator(ctx, execOpts...)
	}

	tabCtx, tabCancel := cdp.NewContext(allocCtx)
	s := &session{
		ctx: tabCtx,
		close: func() {
			tabCancel()
			allocCancel()
		},
	}

	// The first Run starts the browser.
	if err := cdp.Run(tabCtx, cdp.EmulateViewport(int64(opts.Width), int64(opts.Height))); err != nil {
		s.close()
		return nil, fmt.Errorf("start chromium: %w", err)
	}
	return s, nil
}

type session struct {
	ctx   context.Context
	close func()
}

// run executes actions on the tab, bounded by the caller's ctx as well.
func (s *session) run(ctx context.Context, actions ...cdp.Action) error {
	runCtx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := cdp.Run(runCtx, actions...); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%w: %w", ctxErr, err)
		}
		return err
	}
	return nil
}

// networkIdle is the lifecycle event the other drivers settle on as well.
const networkIdle = "networkAlmostIdle"

// Navigate loads url and waits until the network of that navigation is almost idle.
func (s *session) Navigate(ctx context.Context, url string) error {
	var mu sync.Mutex
	idle := map[string]bool{}
	signal := make(chan struct{}, 1)
	listenCtx, stop := context.WithCancel(s.ctx)
	defer stop()
	cdp.ListenTarget(listenCtx, func(ev any) {
		e, ok := ev.(*page.EventLifecycleEvent)
		if !ok || e.Name != networkIdle {
			return
		}
		mu.Lock()
		idle[string(e.LoaderID)] = true
		mu.Unlock()
		select {
		case signal <- struct{}{}:
		default:
		}
	})

	var loader string
	err := s.run(ctx,
		page.SetLifecycleEventsEnabled(true),
		cdp.ActionFunc(func(ctx context.Context) error {
			_, id, errorText, err := page.Navigate(url).Do(ctx)
			if err != nil {
				return err
			}
			if errorText != "" {
				return fmt.Errorf("page load error %s", errorText)
			}
			loader = string(id)
			return nil
		}),
	)
	if err != nil {
		return err
	}

	for {
		mu.Lock()
		done := idle[loader]
		mu.Unlock()
		if done {
			return nil
		}
		select {
		case <-signal:
		case <-ctx.Done():
			return ctx.Err()
		case <-s.ctx.Done():
			return s.ctx.Err()
		}
	}
}

func (s *session) Find(ctx context.Context, selector string) (browser.Element, error) {
	var found bool
	expr := fmt.Sprintf("document.querySelector(%s) !== null", quote(selector))
	if err := s.run(ctx, cdp.Evaluate(expr, &found)); err != nil {
		return nil, err
	}
	if !found {
		return nil, domain.ErrNoElement
	}
	return &element{session: s, selector: selector}, nil
}

func (s *session) Eval(ctx context.Context, js string, arg any) error {
	raw, err := json.Marshal(arg)
	if err != nil {
		return err
	}
	return s.run(ctx, cdp.Evaluate(fmt.Sprintf("(%s)(%s)", js, raw), nil))
}

func (s *session) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	var buf []byte
	var action cdp.Action = cdp.CaptureScreenshot(&buf)
	if fullPage {
		action = cdp.FullScreenshot(&buf, 100)
	}
	if err := s.run(ctx, action); err != nil {
		return nil, err
	}
	return buf, nil
}

func (s *session) Close() error {
	s.close()
	return nil
}

// element addresses its DOM node by selector; Find guarantees it matched.
type element struct {
	session  *session
	selector string
}

func (e *element) Fill(ctx context.Context, text string) error {
	expr := fmt.Sprintf("(%s).call(document.querySelector(%s), %s)", browser.FillScript, quote(e.selector), quote(text))
	return e.session.run(ctx, cdp.Evaluate(expr, nil))
}

func (e *element) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := e.session.run(ctx, cdp.Screenshot(e.selector, &buf, cdp.ByQuery)); err != nil {
		return nil, err
	}
	return buf, nil
}

func (e *element) Attribute(ctx context.Context, name string) (string, error) {
	var (
		value string
		ok    bool
	)
	if err := e.session.run(ctx, cdp.AttributeValue(e.selector, name, &value, &ok, cdp.ByQuery)); err != nil {
		return "", err
	}
	return value, nil
}

func (e *element) TagName(ctx context.Context) (string, error) {
	var tag string
	expr := fmt.Sprintf("(%s).call(document.querySelector(%s))", browser.TagNameScript, quote(e.selector))
	if err := e.session.run(ctx, cdp.Evaluate(expr, &tag)); err != nil {
		return "", err
	}
	return tag, nil
}

func quote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
