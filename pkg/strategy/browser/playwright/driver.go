// Package playwright implements browser.Driver with playwright-go.
package playwright

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	pw "github.com/playwright-community/playwright-go"

	"github.com/aretw0/tablecast/pkg/domain"
	"github.com/aretw0/tablecast/pkg/strategy/browser"
)

// Name is the driver name used in configuration.
const Name = "playwright"

// Driver launches Chromium through a shared Playwright server started on first use.
// Browsers are per session; the Playwright server lives until Close.
type Driver struct {
	mu  sync.Mutex
	run *pw.Playwright
}

// New creates a playwright Driver. Browsers must be installed beforehand.
func New() *Driver {
	return &Driver{}
}

func (d *Driver) Name() string { return Name }

func (d *Driver) instance() (*pw.Playwright, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.run != nil {
		return d.run, nil
	}
	run, err := pw.Run(&pw.RunOptions{SkipInstallBrowsers: true, Verbose: false})
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}
	d.run = run
	return run, nil
}

// Close stops the shared Playwright server.
func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.run == nil {
		return nil
	}
	err := d.run.Stop()
	d.run = nil
	return err
}

func (d *Driver) Launch(ctx context.Context, opts browser.LaunchOptions) (browser.Session, error) {
	run, err := d.instance()
	if err != nil {
		return nil, err
	}

	var b pw.Browser
	if opts.RemoteURL != "" {
		b, err = run.Chromium.ConnectOverCDP(opts.RemoteURL, pw.BrowserTypeConnectOverCDPOptions{Timeout: timeout(ctx)})
	} else {
		args := []string{"--disable-dev-shm-usage", "--disable-gpu", "--font-render-hinting=none"}
		if opts.NoSandbox {
			args = append(args, "--no-sandbox", "--disable-setuid-sandbox")
		}
		launch := pw.BrowserTypeLaunchOptions{
			Headless: pw.Bool(opts.Headless),
			Args:     args,
			Timeout:  timeout(ctx),
		}
		if opts.ExecPath != "" {
			launch.ExecutablePath = pw.String(opts.ExecPath)
		}
		b, err = run.Chromium.Launch(launch)
	}
	if err != nil {
		return nil, fmt.Errorf("launch chromium: %w", err)
	}

	pageOpts := pw.BrowserNewPageOptions{
		Viewport: &pw.Size{Width: opts.Width, Height: opts.Height},
	}
	if opts.UserAgent != "" {
		pageOpts.UserAgent = pw.String(opts.UserAgent)
	}
	page, err := b.NewPage(pageOpts)
	if err != nil {
		_ = b.Close()
		return nil, fmt.Errorf("open page: %w", err)
	}
	return &session{browser: b, page: page}, nil
}

// timeout converts the ctx deadline into a Playwright timeout in milliseconds.
// Without a deadline Playwright's own default applies.
func timeout(ctx context.Context) *float64 {
	deadline, ok := ctx.Deadline()
	if !ok {
		return nil
	}
	ms := float64(time.Until(deadline).Milliseconds())
	if ms < 1 {
		ms = 1
	}
	return pw.Float(ms)
}

type session struct {
	browser pw.Browser
	page    pw.Page
}

func (s *session) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.page.Goto(url, pw.PageGotoOptions{
		WaitUntil: pw.WaitUntilStateNetworkidle,
		Timeout:   timeout(ctx),
	})
	return err
}

func (s *session) Find(ctx context.Context, selector string) (browser.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	loc := s.page.Locator(selector)
	n, err := loc.Count()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, domain.ErrNoElement
	}
	return &element{loc: loc.First()}, nil
}

func (s *session) Eval(ctx context.Context, js string, arg any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.page.Evaluate(js, arg)
	return err
}

func (s *session) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.page.Screenshot(pw.PageScreenshotOptions{
		FullPage: pw.Bool(fullPage),
		Type:     pw.ScreenshotTypePng,
		Timeout:  timeout(ctx),
	})
}

// Close closes the page and the browser handle. For a browser reached over CDP the
// handle only disconnects, leaving the remote browser running.
func (s *session) Close() error {
	return errors.Join(s.page.Close(), s.browser.Close())
}

type element struct {
	loc pw.Locator
}

// callOnElement adapts a receiver-style script (this = element) to Locator.Evaluate,
// which passes the element as first parameter.
func callOnElement(js string) string {
	return fmt.Sprintf("(el, arg) => (%s).call(el, arg)", js)
}

func (e *element) Fill(ctx context.Context, text string) error {
	_, err := e.loc.Evaluate(callOnElement(browser.FillScript), text, pw.LocatorEvaluateOptions{Timeout: timeout(ctx)})
	return err
}

func (e *element) Screenshot(ctx context.Context) ([]byte, error) {
	return e.loc.Screenshot(pw.LocatorScreenshotOptions{
		Type:    pw.ScreenshotTypePng,
		Timeout: timeout(ctx),
	})
}

func (e *element) Attribute(ctx context.Context, name string) (string, error) {
	return e.loc.GetAttribute(name, pw.LocatorGetAttributeOptions{Timeout: timeout(ctx)})
}

func (e *element) TagName(ctx context.Context) (string, error) {
	v, err := e.loc.Evaluate(callOnElement(browser.TagNameScript), nil, pw.LocatorEvaluateOptions{Timeout: timeout(ctx)})
	if err != nil {
		return "", err
	}
	tag, _ := v.(string)
	return tag, nil
}
