package playwright

import (
	"errors"
	"testing"

	pw "github.com/playwright-community/playwright-go"
	"github.com/stretchr/testify/assert"
)

type closeRecorder struct {
	calls []string
}

type fakeBrowser struct {
	pw.Browser
	rec *closeRecorder
	err error
}

func (b *fakeBrowser) Close(...pw.BrowserCloseOptions) error {
	b.rec.calls = append(b.rec.calls, "browser")
	return b.err
}

type fakePage struct {
	pw.Page
	rec *closeRecorder
}

func (p *fakePage) Close(...pw.PageCloseOptions) error {
	p.rec.calls = append(p.rec.calls, "page")
	return nil
}

func TestSession_CloseReleasesBrowserHandle(t *testing.T) {
	rec := &closeRecorder{}
	s := &session{browser: &fakeBrowser{rec: rec}, page: &fakePage{rec: rec}}

	assert.NoError(t, s.Close())
	assert.Equal(t, []string{"page", "browser"}, rec.calls)
}

func TestSession_CloseReportsBrowserError(t *testing.T) {
	rec := &closeRecorder{}
	boom := errors.New("disconnect failed")
	s := &session{browser: &fakeBrowser{rec: rec, err: boom}, page: &fakePage{rec: rec}}

	assert.ErrorIs(t, s.Close(), boom)
	assert.Equal(t, []string{"page", "browser"}, rec.calls)
}
