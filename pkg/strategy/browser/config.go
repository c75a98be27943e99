package browser

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"time"
)

// Fallback is the degraded capture used when no output element is found.
type Fallback string

const (
	FallbackPage     Fallback = "page"
	FallbackHalfPage Fallback = "half_page"
	FallbackNone     Fallback = "none"
)

const (
	DefaultNavigationTimeout = 30 * time.Second
	DefaultSettleDelay       = 5 * time.Second
	DefaultFetchTimeout      = 10 * time.Second
	DefaultWidth             = 1400
	DefaultHeight            = 1000
)

// DefaultCSS normalizes fonts so captures look the same on every host.
const DefaultCSS = `* { font-family: Arial, Helvetica, sans-serif !important; }`

// DefaultConsentKeywords match consent pop-up buttons (lower case).
var DefaultConsentKeywords = []string{"accept", "agree", "ok", "consent"}

// Config describes one browser strategy.
type Config struct {
	URL               string        `mapstructure:"url"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout"`
	SettleDelay       time.Duration `mapstructure:"settle_delay"`
	Selectors         []Candidate   `mapstructure:"selectors"`

	// CSS is injected after navigation. Empty disables injection.
	CSS             string   `mapstructure:"css"`
	ConsentKeywords []string `mapstructure:"consent_keywords"`

	PreferImageSource bool          `mapstructure:"prefer_image_source"`
	FetchTimeout      time.Duration `mapstructure:"fetch_timeout"`
	Fallback          Fallback      `mapstructure:"fallback"`
	FullPage          bool          `mapstructure:"full_page"`

	Headless  bool   `mapstructure:"headless"`
	NoSandbox bool   `mapstructure:"no_sandbox"`
	Width     int    `mapstructure:"width"`
	Height    int    `mapstructure:"height"`
	ExecPath  string `mapstructure:"exec_path"`
	RemoteURL string `mapstructure:"remote_url"`
	UserAgent string `mapstructure:"user_agent"`
}

// DefaultConfig returns a Config for url with every other field defaulted.
func DefaultConfig(url string) Config {
	return Config{
		URL:               url,
		NavigationTimeout: DefaultNavigationTimeout,
		SettleDelay:       DefaultSettleDelay,
		Selectors:         DefaultCandidates(),
		CSS:               DefaultCSS,
		ConsentKeywords:   slices.Clone(DefaultConsentKeywords),
		PreferImageSource: true,
		FetchTimeout:      DefaultFetchTimeout,
		Fallback:          FallbackHalfPage,
		Headless:          true,
		NoSandbox:         true,
		Width:             DefaultWidth,
		Height:            DefaultHeight,
	}
}

// Validate reports configuration errors.
func (c Config) Validate() error {
	u, err := url.Parse(c.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid url %q", c.URL)
	}
	if len(selectors(c.Selectors, RoleInput)) == 0 {
		return errors.New("no input selectors")
	}
	for _, cand := range c.Selectors {
		if cand.Role != RoleInput && cand.Role != RoleOutput {
			return fmt.Errorf("selector %q: unknown role %q", cand.Selector, cand.Role)
		}
		if cand.Selector == "" {
			return fmt.Errorf("empty %s selector", cand.Role)
		}
	}
	switch c.Fallback {
	case "", FallbackPage, FallbackHalfPage, FallbackNone:
	default:
		return fmt.Errorf("unknown fallback %q", c.Fallback)
	}
	if c.SettleDelay < 0 || c.NavigationTimeout < 0 {
		return errors.New("negative durations")
	}
	return nil
}

func (c Config) launchOptions() LaunchOptions {
	w, h := c.Width, c.Height
	if w <= 0 {
		w = DefaultWidth
	}
	if h <= 0 {
		h = DefaultHeight
	}
	return LaunchOptions{
		Headless:  c.Headless,
		NoSandbox: c.NoSandbox,
		Width:     w,
		Height:    h,
		ExecPath:  c.ExecPath,
		RemoteURL: c.RemoteURL,
		UserAgent: c.UserAgent,
	}
}
