package normalize

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/aretw0/tablecast/pkg/domain"
)

// DefaultTrigger is the command word that starts a table request.
const DefaultTrigger = "maketable"

// Normalizer strips the command token from raw text and canonicalizes the rest.
type Normalizer struct {
	trigger string
	maxSize int
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithTrigger overrides the command word. Matching is case-insensitive.
func WithTrigger(trigger string) Option {
	return func(n *Normalizer) {
		if t := strings.TrimSpace(strings.TrimPrefix(trigger, "/")); t != "" {
			n.trigger = t
		}
	}
}

// WithMaxSize overrides the raw input size limit in bytes.
func WithMaxSize(limit int) Option {
	return func(n *Normalizer) {
		if limit > 0 {
			n.maxSize = limit
		}
	}
}

// New creates a Normalizer with the default trigger and size limit.
func New(opts ...Option) *Normalizer {
	n := &Normalizer{
		trigger: DefaultTrigger,
		maxSize: DefaultMaxInputSize,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Trigger returns the configured command word.
func (n *Normalizer) Trigger() string {
	return n.trigger
}

// Match reports whether raw starts with the command word, optionally prefixed by "/",
// followed by whitespace or the end of the text. It returns the remainder after the token.
func (n *Normalizer) Match(raw string) (string, bool) {
	s := strings.TrimLeftFunc(raw, unicode.IsSpace)
	s = strings.TrimPrefix(s, "/")
	if len(s) < len(n.trigger) || !strings.EqualFold(s[:len(n.trigger)], n.trigger) {
		return "", false
	}
	rest := s[len(n.trigger):]
	if r, _ := utf8.DecodeRuneInString(rest); rest != "" && !unicode.IsSpace(r) {
		return "", false
	}
	return rest, true
}

// Normalize converts raw command text into the canonical payload: the command token
// (when present) removed, line endings unified to "\n", trailing spaces trimmed on every
// line and surrounding blank lines dropped. Blank results yield domain.ErrEmptyPayload.
func (n *Normalizer) Normalize(raw string) (string, error) {
	clean, err := Sanitize(raw, n.maxSize)
	if err != nil {
		return "", err
	}
	if rest, ok := n.Match(clean); ok {
		clean = rest
	}

	clean = strings.ReplaceAll(clean, "\r\n", "\n")
	clean = strings.ReplaceAll(clean, "\r", "\n")

	lines := strings.Split(clean, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRightFunc(line, unicode.IsSpace)
	}
	payload := strings.Trim(strings.Join(lines, "\n"), "\n \t")
	if payload == "" {
		return "", domain.ErrEmptyPayload
	}
	return payload, nil
}
