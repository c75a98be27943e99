package playwright_test

import (
	"testing"

	"github.com/aretw0/tablecast/pkg/strategy/browser/browsertest"
	"github.com/aretw0/tablecast/pkg/strategy/browser/playwright"
)

func TestPlaywrightDriver_RendersFixtureTable(t *testing.T) {
	browsertest.RequireBrowser(t)
	d := playwright.New()
	t.Cleanup(func() { _ = d.Close() })
	browsertest.RunDriverIntegration(t, d)
}
