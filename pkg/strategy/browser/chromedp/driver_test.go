package chromedp_test

import (
	"testing"

	"github.com/aretw0/tablecast/pkg/strategy/browser/browsertest"
	"github.com/aretw0/tablecast/pkg/strategy/browser/chromedp"
)

func TestChromedpDriver_RendersFixtureTable(t *testing.T) {
	browsertest.RunDriverIntegration(t, chromedp.New())
}
