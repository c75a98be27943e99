package browsertest

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/aretw0/tablecast/internal/testutil"
	"github.com/aretw0/tablecast/pkg/domain"
	"github.com/aretw0/tablecast/pkg/imagecheck"
	"github.com/aretw0/tablecast/pkg/strategy/browser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// EnvBrowserTests enables tests that drive a real browser.
const EnvBrowserTests = "TABLECAST_BROWSER_TESTS"

// RequireBrowser skips the test unless real-browser tests are enabled.
func RequireBrowser(t *testing.T) {
	t.Helper()
	if os.Getenv(EnvBrowserTests) != "1" {
		t.Skipf("set %s=1 to run real-browser tests", EnvBrowserTests)
	}
}

// RunDriverIntegration renders a table through d against a local fixture site, once
// with the input in the document and once with the input fetched after load. The
// second page only works if Navigate waits for the network to settle.
func RunDriverIntegration(t *testing.T, d browser.Driver) {
	RequireBrowser(t)

	site := testutil.NewTableSite()
	defer site.Close()

	for _, path := range []string{"/table", "/table-late"} {
		t.Run(path, func(t *testing.T) {
			cfg := browser.DefaultConfig(site.URL + path)
			cfg.SettleDelay = 500 * time.Millisecond
			cfg.Width, cfg.Height = 1024, 768

			s, err := browser.New("integration-"+d.Name(), cfg, d)
			require.NoError(t, err)

			req, err := domain.NewRenderRequest("A - Red\nAlice 1500\nBob 1400")
			require.NoError(t, err)

			ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
			defer cancel()

			img, err := s.Attempt(ctx, req)
			require.NoError(t, err)

			info, err := imagecheck.Default().Validate(img)
			require.NoError(t, err)
			assert.Equal(t, "png", info.Format)
			assert.InDelta(t, 480, info.Width, 2, "the canvas, not the page, is captured")
		})
	}
}
