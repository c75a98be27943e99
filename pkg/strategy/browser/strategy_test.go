package browser_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aretw0/tablecast/internal/testutil"
	"github.com/aretw0/tablecast/pkg/adapters/memory"
	"github.com/aretw0/tablecast/pkg/domain"
	"github.com/aretw0/tablecast/pkg/strategy/browser"
	"github.com/aretw0/tablecast/pkg/strategy/browser/browsertest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const payload = "A - Red\nAlice 1500\nBob 1400"

func request(t *testing.T) domain.RenderRequest {
	t.Helper()
	req, err := domain.NewRenderRequest(payload)
	require.NoError(t, err)
	return req
}

func testConfig() browser.Config {
	cfg := browser.DefaultConfig("https://gb2.hlorenzi.com/table")
	cfg.SettleDelay = 0
	return cfg
}

func newStrategy(t *testing.T, cfg browser.Config, d browser.Driver, opts ...browser.Option) *browser.Strategy {
	t.Helper()
	s, err := browser.New("browser-gb2", cfg, d, opts...)
	require.NoError(t, err)
	return s
}

func TestAttempt_Success(t *testing.T) {
	table := testutil.PNG(320, 200)
	input := &browsertest.Element{Tag: "textarea"}
	driver := browsertest.New(browsertest.Page{
		Elements: map[string]*browsertest.Element{
			"textarea": input,
			"canvas":   {Tag: "canvas", Image: table},
		},
	})
	limiter := memory.NewLimiter(1)

	got, err := newStrategy(t, testConfig(), driver, browser.WithLimiter(limiter)).Attempt(context.Background(), request(t))
	require.NoError(t, err)
	assert.Equal(t, table, got)
	assert.Equal(t, []string{payload}, input.Filled())
	assert.Equal(t, []string{"https://gb2.hlorenzi.com/table"}, driver.Navigations())

	opts := driver.LaunchOptions()
	require.Len(t, opts, 1)
	assert.True(t, opts[0].Headless)
	assert.True(t, opts[0].NoSandbox)
	assert.Equal(t, browser.DefaultWidth, opts[0].Width)

	// CSS injection, consent dismissal and Escape ran after navigation.
	assert.Equal(t, []string{browser.InjectCSSScript, browser.DismissConsentScript, browser.PressEscapeScript}, driver.Evals())

	assert.Equal(t, 0, driver.Open())
	assert.Equal(t, 1, driver.Closed())
	assert.Equal(t, 0, limiter.InUse())
}

func TestAttempt_EarliestInputCandidateWins(t *testing.T) {
	contentEditable := &browsertest.Element{}
	pre := &browsertest.Element{Tag: "pre"}
	driver := browsertest.New(browsertest.Page{
		Elements: map[string]*browsertest.Element{
			`[contenteditable="true"]`: contentEditable,
			"pre":                      pre,
			"canvas":                   {Image: testutil.PNG(320, 200)},
		},
	})

	_, err := newStrategy(t, testConfig(), driver).Attempt(context.Background(), request(t))
	require.NoError(t, err)
	assert.Equal(t, []string{payload}, contentEditable.Filled())
	assert.Empty(t, pre.Filled())

	probes := driver.Probes()
	require.GreaterOrEqual(t, len(probes), 6)
	assert.Equal(t, browser.DefaultInputSelectors[:6], probes[:6])
}

func TestAttempt_FailureKinds(t *testing.T) {
	boom := errors.New("boom")
	textarea := map[string]*browsertest.Element{"textarea": {}}

	tests := []struct {
		name string
		page browsertest.Page
		cfg  func(*browser.Config)
		want domain.ErrorKind
	}{
		{"launch", browsertest.Page{LaunchErr: boom}, nil, domain.KindLaunchFailed},
		{"navigation", browsertest.Page{NavigateErr: boom}, nil, domain.KindNavigationFailed},
		{
			"navigation timeout",
			browsertest.Page{NavigateDelay: time.Second},
			func(c *browser.Config) { c.NavigationTimeout = 20 * time.Millisecond },
			domain.KindNavigationFailed,
		},
		{"no input", browsertest.Page{Elements: map[string]*browsertest.Element{}}, nil, domain.KindInputSurfaceNotFound},
		{
			"injection",
			browsertest.Page{Elements: map[string]*browsertest.Element{"textarea": {FillErr: boom}}},
			nil,
			domain.KindInjectionFailed,
		},
		{
			"no output without fallback",
			browsertest.Page{Elements: textarea},
			func(c *browser.Config) { c.Fallback = browser.FallbackNone },
			domain.KindOutputSurfaceNotFound,
		},
		{
			"page capture",
			browsertest.Page{Elements: textarea, ScreenshotErr: boom},
			func(c *browser.Config) { c.Fallback = browser.FallbackPage },
			domain.KindCaptureFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			if tt.cfg != nil {
				tt.cfg(&cfg)
			}
			driver := browsertest.New(tt.page)
			limiter := memory.NewLimiter(1)

			_, err := newStrategy(t, cfg, driver, browser.WithLimiter(limiter)).Attempt(context.Background(), request(t))
			require.Error(t, err)
			assert.Equal(t, tt.want, domain.KindOf(err))

			var re *domain.RenderError
			require.ErrorAs(t, err, &re)
			assert.Equal(t, "browser-gb2", re.Strategy)

			assert.Equal(t, 0, driver.Open(), "session left open")
			assert.Equal(t, 0, limiter.InUse(), "limiter slot leaked")
		})
	}
}

func TestAttempt_TimeoutForcesTeardown(t *testing.T) {
	driver := browsertest.New(browsertest.Page{
		Elements: map[string]*browsertest.Element{"textarea": {}, "canvas": {Image: testutil.PNG(320, 200)}},
	})
	cfg := testConfig()
	cfg.SettleDelay = time.Minute
	limiter := memory.NewLimiter(1)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := newStrategy(t, cfg, driver, browser.WithLimiter(limiter)).Attempt(ctx, request(t))
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, domain.KindRenderTimeout, domain.KindOf(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 0, driver.Open())
	assert.Equal(t, 0, limiter.InUse())
}

func TestAttempt_DeadlineWhileProbingIsTimeout(t *testing.T) {
	tests := []struct {
		name string
		slow string
	}{
		{"input", "textarea"},
		{"output", "canvas"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			driver := browsertest.New(browsertest.Page{
				Elements:  map[string]*browsertest.Element{"textarea": {}, "canvas": {Image: testutil.PNG(320, 200)}},
				FindDelay: map[string]time.Duration{tt.slow: time.Minute},
			})

			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()

			_, err := newStrategy(t, testConfig(), driver).Attempt(ctx, request(t))
			require.Error(t, err)
			assert.Equal(t, domain.KindRenderTimeout, domain.KindOf(err))
			assert.ErrorIs(t, err, context.DeadlineExceeded)
			assert.Equal(t, 0, driver.Open())
		})
	}
}

func TestAttempt_NoSlotIsLaunchFailure(t *testing.T) {
	driver := browsertest.New(browsertest.Page{})
	limiter := memory.NewLimiter(1)
	hold, err := limiter.Acquire(context.Background())
	require.NoError(t, err)
	defer hold()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = newStrategy(t, testConfig(), driver, browser.WithLimiter(limiter)).Attempt(ctx, request(t))
	assert.Equal(t, domain.KindLaunchFailed, domain.KindOf(err))
	assert.Equal(t, 0, driver.Launched())
}

func TestAttempt_HalfPageFallback(t *testing.T) {
	driver := browsertest.New(browsertest.Page{
		Elements:   map[string]*browsertest.Element{"textarea": {}},
		Screenshot: testutil.PNG(400, 300),
	})

	got, err := newStrategy(t, testConfig(), driver).Attempt(context.Background(), request(t))
	require.NoError(t, err)

	cfg, _, err := image.DecodeConfig(bytes.NewReader(got))
	require.NoError(t, err)
	assert.Equal(t, 400, cfg.Width)
	assert.Equal(t, 150, cfg.Height)
	assert.Equal(t, 0, driver.Open())
}

func TestAttempt_ImageSource(t *testing.T) {
	table := testutil.PNG(320, 200)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/render/table.png" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(table)
	}))
	defer srv.Close()

	screenshot := testutil.PNG(330, 210)
	tests := []struct {
		name string
		src  string
		want []byte
	}{
		{"data uri", "data:image/png;base64," + base64.StdEncoding.EncodeToString(table), table},
		{"relative url", "/render/table.png", table},
		{"absolute url", srv.URL + "/render/table.png", table},
		{"broken url falls back to element screenshot", "/missing.png", screenshot},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			driver := browsertest.New(browsertest.Page{
				Elements: map[string]*browsertest.Element{
					"textarea": {},
					"img":      {Tag: "img", Attributes: map[string]string{"src": tt.src}, Image: screenshot},
				},
			})
			cfg := testConfig()
			cfg.URL = srv.URL + "/table"

			got, err := newStrategy(t, cfg, driver).Attempt(context.Background(), request(t))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAttempt_PanicStillTearsDown(t *testing.T) {
	driver := browsertest.New(browsertest.Page{PanicOnFind: true})
	limiter := memory.NewLimiter(1)
	s := newStrategy(t, testConfig(), driver, browser.WithLimiter(limiter))

	assert.Panics(t, func() {
		_, _ = s.Attempt(context.Background(), request(t))
	})
	assert.Equal(t, 0, driver.Open(), "deferred teardown must run while panicking")
	assert.Equal(t, 0, limiter.InUse())
}

func TestNew_ValidatesConfig(t *testing.T) {
	d := browsertest.New(browsertest.Page{})

	_, err := browser.New("x", browser.Config{URL: "nope"}, d)
	assert.Error(t, err)

	cfg := testConfig()
	cfg.Selectors = []browser.Candidate{{Role: browser.RoleOutput, Selector: "img"}}
	_, err = browser.New("x", cfg, d)
	assert.ErrorContains(t, err, "no input selectors")

	cfg = testConfig()
	cfg.Fallback = "screenshot"
	_, err = browser.New("x", cfg, d)
	assert.ErrorContains(t, err, "unknown fallback")

	_, err = browser.New("x", testConfig(), nil)
	assert.Error(t, err)
}
