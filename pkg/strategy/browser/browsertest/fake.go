// Package browsertest provides an instrumented in-memory browser.Driver for tests.
package browsertest

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aretw0/tablecast/pkg/domain"
	"github.com/aretw0/tablecast/pkg/strategy/browser"
)

// ErrClosed is returned by calls on a closed session.
var ErrClosed = errors.New("browsertest: session closed")

// Page describes what the fake browser finds after navigation.
type Page struct {
	// Elements maps CSS selectors to elements. Selectors absent from the map match nothing.
	Elements map[string]*Element
	// Screenshot is returned by page captures.
	Screenshot []byte

	LaunchErr     error
	NavigateErr   error
	NavigateDelay time.Duration
	ScreenshotErr error
	// FindDelay stalls Find on the given selectors until the delay passes or ctx ends.
	FindDelay map[string]time.Duration
	// PanicOnFind makes every Find panic, to exercise recovery upstream.
	PanicOnFind bool
}

// Element is a fake DOM element.
type Element struct {
	Tag        string
	Attributes map[string]string
	Image      []byte
	FillErr    error

	mu     sync.Mutex
	filled []string
}

// Filled returns every text filled into the element, in order.
func (e *Element) Filled() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.filled...)
}

// Driver is an instrumented browser.Driver. It counts sessions so tests can assert
// that none is left open.
type Driver struct {
	Page Page

	launched atomic.Int32
	open     atomic.Int32
	closed   atomic.Int32
	peak     atomic.Int32

	mu     sync.Mutex
	opts   []browser.LaunchOptions
	urls   []string
	evals  []string
	probes []string
}

// New returns a Driver serving page.
func New(page Page) *Driver {
	return &Driver{Page: page}
}

func (d *Driver) Name() string { return "fake" }

func (d *Driver) Launch(ctx context.Context, opts browser.LaunchOptions) (browser.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if d.Page.LaunchErr != nil {
		return nil, d.Page.LaunchErr
	}
	d.mu.Lock()
	d.opts = append(d.opts, opts)
	d.mu.Unlock()
	d.launched.Add(1)
	n := d.open.Add(1)
	for {
		p := d.peak.Load()
		if n <= p || d.peak.CompareAndSwap(p, n) {
			break
		}
	}
	return &session{driver: d, done: make(chan struct{})}, nil
}

// Launched is the number of sessions ever launched.
func (d *Driver) Launched() int { return int(d.launched.Load()) }

// Open is the number of sessions launched and not yet closed.
func (d *Driver) Open() int { return int(d.open.Load()) }

// Peak is the highest number of sessions open at the same time.
func (d *Driver) Peak() int { return int(d.peak.Load()) }

// Closed is the number of Close calls that actually closed a session.
func (d *Driver) Closed() int { return int(d.closed.Load()) }

// LaunchOptions returns the options of every launch.
func (d *Driver) LaunchOptions() []browser.LaunchOptions {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]browser.LaunchOptions(nil), d.opts...)
}

// Navigations returns every URL navigated to.
func (d *Driver) Navigations() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.urls...)
}

// Evals returns every evaluated page script.
func (d *Driver) Evals() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.evals...)
}

// Probes returns every selector passed to Find, in order.
func (d *Driver) Probes() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.probes...)
}

type session struct {
	driver *Driver
	once   sync.Once
	done   chan struct{}
}

func (s *session) alive() error {
	select {
	case <-s.done:
		return ErrClosed
	default:
		return nil
	}
}

func (s *session) Navigate(ctx context.Context, url string) error {
	if err := s.alive(); err != nil {
		return err
	}
	s.driver.mu.Lock()
	s.driver.urls = append(s.driver.urls, url)
	s.driver.mu.Unlock()

	if d := s.driver.Page.NavigateDelay; d > 0 {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.done:
			return ErrClosed
		case <-t.C:
		}
	}
	return s.driver.Page.NavigateErr
}

func (s *session) Find(ctx context.Context, selector string) (browser.Element, error) {
	if err := s.alive(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.driver.Page.PanicOnFind {
		panic("browsertest: find")
	}
	s.driver.mu.Lock()
	s.driver.probes = append(s.driver.probes, selector)
	s.driver.mu.Unlock()

	if d := s.driver.Page.FindDelay[selector]; d > 0 {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-s.done:
			return nil, ErrClosed
		case <-t.C:
		}
	}

	el, ok := s.driver.Page.Elements[selector]
	if !ok {
		return nil, domain.ErrNoElement
	}
	return &element{session: s, el: el}, nil
}

func (s *session) Eval(ctx context.Context, js string, arg any) error {
	if err := s.alive(); err != nil {
		return err
	}
	s.driver.mu.Lock()
	s.driver.evals = append(s.driver.evals, js)
	s.driver.mu.Unlock()
	return ctx.Err()
}

func (s *session) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	if err := s.alive(); err != nil {
		return nil, err
	}
	if s.driver.Page.ScreenshotErr != nil {
		return nil, s.driver.Page.ScreenshotErr
	}
	return s.driver.Page.Screenshot, ctx.Err()
}

func (s *session) Close() error {
	s.once.Do(func() {
		close(s.done)
		s.driver.open.Add(-1)
		s.driver.closed.Add(1)
	})
	return nil
}

type element struct {
	session *session
	el      *Element
}

func (e *element) Fill(ctx context.Context, text string) error {
	if err := e.session.alive(); err != nil {
		return err
	}
	if e.el.FillErr != nil {
		return e.el.FillErr
	}
	e.el.mu.Lock()
	e.el.filled = append(e.el.filled, text)
	e.el.mu.Unlock()
	return ctx.Err()
}

func (e *element) Screenshot(ctx context.Context) ([]byte, error) {
	if err := e.session.alive(); err != nil {
		return nil, err
	}
	return e.el.Image, ctx.Err()
}

func (e *element) Attribute(ctx context.Context, name string) (string, error) {
	if err := e.session.alive(); err != nil {
		return "", err
	}
	return e.el.Attributes[name], nil
}

func (e *element) TagName(ctx context.Context) (string, error) {
	if err := e.session.alive(); err != nil {
		return "", err
	}
	if e.el.Tag == "" {
		return "div", nil
	}
	return e.el.Tag, nil
}
