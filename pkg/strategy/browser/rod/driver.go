// Package rod implements browser.Driver with go-rod, the default driver.
package rod

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	gorod "github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/cdp"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/aretw0/tablecast/pkg/domain"
	"github.com/aretw0/tablecast/pkg/strategy/browser"
)

// Name is the driver name used in configuration.
const Name = "rod"

// closeTimeout bounds the graceful part of session teardown.
var closeTimeout = 5 * time.Second

// Driver launches Chromium through go-rod.
type Driver struct{}

// New creates a rod Driver.
func New() *Driver {
	return &Driver{}
}

func (d *Driver) Name() string { return Name }

// Launch starts a local browser, or connects to opts.RemoteURL, and opens one page.
func (d *Driver) Launch(ctx context.Context, opts browser.LaunchOptions) (browser.Session, error) {
	s := &session{}

	controlURL := opts.RemoteURL
	if controlURL == "" {
		l := launcher.New().
			Context(ctx).
			Headless(opts.Headless).
			NoSandbox(opts.NoSandbox).
			Leakless(false).
			Set("disable-dev-shm-usage").
			Set("disable-gpu").
			Set("font-render-hinting", "none")
		if opts.ExecPath != "" {
			l = l.Bin(opts.ExecPath)
		}
		u, err := l.Launch()
		if err != nil {
			l.Kill()
			return nil, fmt.Errorf("launch chromium: %w", err)
		}
		s.kill = func() {
			l.Kill()
			l.Cleanup()
		}
		controlURL = u
	}

	// The session owns its websocket so Close can drop the connection even when
	// the browser itself is remote and stays up.
	ws := &cdp.WebSocket{}
	if err := ws.Connect(ctx, controlURL, nil); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("connect: %w", err)
	}
	s.ws = ws

	s.browser = gorod.New().Client(cdp.New().Start(ws))
	if err := s.browser.Connect(); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("connect: %w", err)
	}

	page, err := s.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("open page: %w", err)
	}
	s.page = page

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             opts.Width,
		Height:            opts.Height,
		DeviceScaleFactor: 1,
	}); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("set viewport: %w", err)
	}
	if opts.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: opts.UserAgent}); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("set user agent: %w", err)
		}
	}
	return s, nil
}

type session struct {
	ws      *cdp.WebSocket
	browser *gorod.Browser
	page    *gorod.Page
	// kill stops a locally launched browser; nil for remote browsers.
	kill func()
}

func (s *session) Navigate(ctx context.Context, url string) error {
	p := s.page.Context(ctx)
	wait := p.WaitNavigation(proto.PageLifecycleEventNameNetworkAlmostIdle)
	if err := p.Navigate(url); err != nil {
		return err
	}
	wait()
	return ctx.Err()
}

func (s *session) Find(ctx context.Context, selector string) (browser.Element, error) {
	has, el, err := s.page.Context(ctx).Has(selector)
	if err != nil {
		return nil, err
	}
	if !has {
		return nil, domain.ErrNoElement
	}
	return &element{el: el}, nil
}

func (s *session) Eval(ctx context.Context, js string, arg any) error {
	var err error
	if arg == nil {
		_, err = s.page.Context(ctx).Eval(js)
	} else {
		_, err = s.page.Context(ctx).Eval(js, arg)
	}
	return err
}

func (s *session) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	return s.page.Context(ctx).Screenshot(fullPage, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
}

// Close closes the page of a remote browser, or the whole local browser, and drops
// the CDP connection. The graceful part is bounded by closeTimeout; a local browser is
// killed afterwards whatever happened.
func (s *session) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()

	var errs []error
	switch {
	case s.kill != nil:
		if s.browser != nil {
			errs = append(errs, s.browser.Context(ctx).Close())
		}
		s.kill()
	case s.page != nil:
		errs = append(errs, s.page.Context(ctx).Close())
	}
	if s.ws != nil {
		if err := s.ws.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type element struct {
	el *gorod.Element
}

func (e *element) Fill(ctx context.Context, text string) error {
	_, err := e.el.Context(ctx).Eval(browser.FillScript, text)
	return err
}

func (e *element) Screenshot(ctx context.Context) ([]byte, error) {
	return e.el.Context(ctx).Screenshot(proto.PageCaptureScreenshotFormatPng, 0)
}

func (e *element) Attribute(ctx context.Context, name string) (string, error) {
	v, err := e.el.Context(ctx).Attribute(name)
	if err != nil || v == nil {
		return "", err
	}
	return *v, nil
}

func (e *element) TagName(ctx context.Context) (string, error) {
	obj, err := e.el.Context(ctx).Eval(browser.TagNameScript)
	if err != nil {
		return "", err
	}
	return obj.Value.Str(), nil
}
