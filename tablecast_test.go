package tablecast_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/tablecast"
	"github.com/aretw0/tablecast/internal/testutil"
	"github.com/aretw0/tablecast/pkg/config"
	"github.com/aretw0/tablecast/pkg/domain"
	"github.com/aretw0/tablecast/pkg/strategy/browser"
	"github.com/aretw0/tablecast/pkg/strategy/browser/browsertest"
	"github.com/aretw0/tablecast/pkg/strategy/httpprobe"
	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const table = "A - Red\nAlice 1500\nBob 1400"

func httpStrategy(baseURL string) config.StrategyConfig {
	return config.StrategyConfig{
		Name:    "http-api",
		Type:    config.TypeHTTP,
		Timeout: 5 * time.Second,
		HTTP: httpprobe.Config{
			BaseURL:     baseURL,
			CallTimeout: time.Second,
			Candidates: []httpprobe.Candidate{
				{Method: http.MethodPost, Path: "/api/table", Encoding: httpprobe.EncodingJSON},
				{Method: http.MethodPost, Path: "/render", Encoding: httpprobe.EncodingForm},
			},
		},
	}
}

func browserStrategy() config.StrategyConfig {
	bc := browser.DefaultConfig("http://table.invalid/table")
	bc.SettleDelay = 10 * time.Millisecond
	return config.StrategyConfig{
		Name:    "browser",
		Type:    config.TypeBrowser,
		Timeout: 5 * time.Second,
		Driver:  "rod",
		Browser: bc,
	}
}

func newConfig(strategies ...config.StrategyConfig) config.Config {
	cfg := config.Default()
	cfg.Strategies = strategies
	return cfg
}

func TestRender_HTTPSuccess(t *testing.T) {
	png := testutil.PNG(480, 240)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/render" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(png)
	}))
	defer srv.Close()

	cfg := newConfig(httpStrategy(srv.URL))
	r, err := tablecast.New(cfg)
	require.NoError(t, err)
	defer r.Close()

	res, err := r.Render(context.Background(), table)
	require.NoError(t, err)
	assert.Equal(t, "http-api", res.Strategy)
	assert.Equal(t, png, res.Image)
	assert.GreaterOrEqual(t, len(res.Image), cfg.Image.MinBytes)
}

func TestRender_BrowserFallbackSuccess(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	driver := browsertest.New(browsertest.Page{
		Elements: map[string]*browsertest.Element{
			"textarea": {Tag: "textarea"},
			"canvas":   {Tag: "canvas", Image: testutil.PNG(480, 240)},
		},
	})

	r, err := tablecast.New(newConfig(httpStrategy(srv.URL), browserStrategy()),
		tablecast.WithDriver("rod", driver))
	require.NoError(t, err)
	defer r.Close()

	res, err := r.Render(context.Background(), "/maketable "+table)
	require.NoError(t, err)
	assert.Equal(t, "browser", res.Strategy)
	require.Len(t, res.Attempts, 1)
	assert.Equal(t, domain.KindAllEndpointsFailed, res.Attempts[0].Kind)
	assert.Equal(t, 0, driver.Open())
}

func TestRender_AllStrategiesFail(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	driver := browsertest.New(browsertest.Page{NavigateErr: errors.New("net::ERR_NAME_NOT_RESOLVED")})

	r, err := tablecast.New(newConfig(httpStrategy(srv.URL), browserStrategy()),
		tablecast.WithDriver("rod", driver))
	require.NoError(t, err)
	defer r.Close()

	// Deterministic fixtures classify the same way every time.
	for range 2 {
		res, err := r.Render(context.Background(), table)
		assert.Nil(t, res)

		var failure *domain.Failure
		require.ErrorAs(t, err, &failure)
		assert.Equal(t, []domain.ErrorKind{domain.KindAllEndpointsFailed, domain.KindNavigationFailed}, failure.Kinds())
		assert.Equal(t, "http-api", failure.Attempts[0].Strategy)
		assert.Equal(t, "browser", failure.Attempts[1].Strategy)
	}
	assert.Equal(t, 0, driver.Open())
	assert.Equal(t, driver.Launched(), driver.Closed())
}

func TestRender_ConcurrentInvocationsShareTheLimiter(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	img := testutil.PNG(480, 240)
	driver := browsertest.New(browsertest.Page{
		Elements: map[string]*browsertest.Element{
			"textarea": {Tag: "textarea"},
			"canvas":   {Tag: "canvas", Image: img},
		},
		NavigateDelay: 50 * time.Millisecond,
	})

	cfg := newConfig(httpStrategy(srv.URL), browserStrategy())
	cfg.Limiter.MaxSessions = 2
	r, err := tablecast.New(cfg, tablecast.WithDriver("rod", driver))
	require.NoError(t, err)
	defer r.Close()

	const n = 8
	results := make([]*domain.Success, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = r.Render(context.Background(), table)
		}()
	}
	wg.Wait()

	for i := range n {
		require.NoError(t, errs[i], "render %d", i)
		assert.Equal(t, "browser", results[i].Strategy)
		assert.Equal(t, img, results[i].Image)
		require.Len(t, results[i].Attempts, 1)
		assert.Equal(t, domain.KindAllEndpointsFailed, results[i].Attempts[0].Kind)
	}

	assert.Equal(t, n, driver.Launched())
	assert.Equal(t, n, driver.Closed())
	assert.Equal(t, 0, driver.Open(), "sessions left open")
	assert.LessOrEqual(t, driver.Peak(), 2, "limiter exceeded")
	assert.Equal(t, 2, driver.Peak(), "invocations ran one at a time")
}

func TestRender_InvalidInputNeverReachesStrategies(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	driver := browsertest.New(browsertest.Page{})
	r, err := tablecast.New(newConfig(httpStrategy(srv.URL), browserStrategy()),
		tablecast.WithDriver("rod", driver))
	require.NoError(t, err)
	defer r.Close()

	for _, text := range []string{"", "   \n\t", "maketable", "/MakeTable   ", "Alice 1500", "A - Red"} {
		res, err := r.Render(context.Background(), text)
		assert.Nil(t, res, text)
		assert.ErrorIs(t, err, domain.ErrInvalidInput, text)
	}
	assert.Zero(t, hits.Load())
	assert.Zero(t, driver.Launched())
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := newConfig()
	_, err := tablecast.New(cfg)
	assert.Error(t, err)
}

func TestStrategies_RegistrationOrder(t *testing.T) {
	r, err := tablecast.New(newConfig(httpStrategy("http://localhost:1"), browserStrategy()),
		tablecast.WithDriver("rod", browsertest.New(browsertest.Page{})))
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, []string{"http-api", "browser"}, r.Strategies())
}

func TestWithRegisterer_CountsAttempts(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	reg := prometheus.NewRegistry()
	r, err := tablecast.New(newConfig(httpStrategy(srv.URL)), tablecast.WithRegisterer(reg))
	require.NoError(t, err)
	defer r.Close()

	_, err = r.Render(context.Background(), table)
	require.Error(t, err)

	count, err := promtest.GatherAndCount(reg, "tablecast_strategy_attempts_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
