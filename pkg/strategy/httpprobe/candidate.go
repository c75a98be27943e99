package httpprobe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
)

// Encoding is how the payload is placed in the request.
type Encoding string

const (
	EncodingJSON      Encoding = "json"
	EncodingForm      Encoding = "form"
	EncodingText      Encoding = "text"
	EncodingMultipart Encoding = "multipart"
	EncodingQuery     Encoding = "query"
)

// DefaultField is the payload field name used when a candidate names none.
const DefaultField = "text"

// Candidate is one request shape to try against the service.
type Candidate struct {
	Name     string            `mapstructure:"name"`
	Method   string            `mapstructure:"method"`
	Path     string            `mapstructure:"path"`
	Encoding Encoding          `mapstructure:"encoding"`
	Field    string            `mapstructure:"field"`
	Headers  map[string]string `mapstructure:"headers"`
}

// Label identifies the candidate in failure reports.
func (c Candidate) Label() string {
	if c.Name != "" {
		return c.Name
	}
	return fmt.Sprintf("%s %s (%s)", c.method(), c.Path, c.encoding())
}

func (c Candidate) method() string {
	if c.Method == "" {
		if c.encoding() == EncodingQuery {
			return http.MethodGet
		}
		return http.MethodPost
	}
	return strings.ToUpper(c.Method)
}

func (c Candidate) encoding() Encoding {
	if c.Encoding == "" {
		return EncodingJSON
	}
	return c.Encoding
}

func (c Candidate) field() string {
	if c.Field == "" {
		return DefaultField
	}
	return c.Field
}

// Validate reports configuration errors in the candidate.
func (c Candidate) Validate() error {
	switch c.encoding() {
	case EncodingJSON, EncodingForm, EncodingText, EncodingMultipart, EncodingQuery:
	default:
		return fmt.Errorf("candidate %q: unknown encoding %q", c.Label(), c.Encoding)
	}
	if c.Path == "" {
		return fmt.Errorf("candidate %q: path is required", c.Label())
	}
	return nil
}

// NewRequest builds the HTTP request carrying payload against base.
func (c Candidate) NewRequest(ctx context.Context, base *url.URL, payload string) (*http.Request, error) {
	ref, err := url.Parse(c.Path)
	if err != nil {
		return nil, fmt.Errorf("parse path: %w", err)
	}
	target := base.ResolveReference(ref)

	var (
		body        io.Reader
		contentType string
	)
	switch c.encoding() {
	case EncodingJSON:
		raw, err := json.Marshal(map[string]string{c.field(): payload})
		if err != nil {
			return nil, err
		}
		body, contentType = bytes.NewReader(raw), "application/json"
	case EncodingForm:
		form := url.Values{c.field(): {payload}}
		body, contentType = strings.NewReader(form.Encode()), "application/x-www-form-urlencoded"
	case EncodingText:
		body, contentType = strings.NewReader(payload), "text/plain; charset=utf-8"
	case EncodingMultipart:
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		if err := w.WriteField(c.field(), payload); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		body, contentType = &buf, w.FormDataContentType()
	case EncodingQuery:
		q := target.Query()
		q.Set(c.field(), payload)
		target.RawQuery = q.Encode()
	default:
		return nil, fmt.Errorf("unknown encoding %q", c.Encoding)
	}

	req, err := http.NewRequestWithContext(ctx, c.method(), target.String(), body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "image/png, image/*;q=0.9")
	for k, v := range c.Headers {
		req.Header.Set(k, v)
	}
	return req, nil
}

// DefaultCandidates are request shapes worth probing on the table service. None is
// documented; they change whenever the service does.
func DefaultCandidates() []Candidate {
	return []Candidate{
		{Name: "api-table-json", Method: http.MethodPost, Path: "/api/table", Encoding: EncodingJSON, Field: "text"},
		{Name: "api-render-json", Method: http.MethodPost, Path: "/api/render", Encoding: EncodingJSON, Field: "table"},
		{Name: "table-form", Method: http.MethodPost, Path: "/table", Encoding: EncodingForm, Field: "text"},
		{Name: "table-png-query", Method: http.MethodGet, Path: "/table.png", Encoding: EncodingQuery, Field: "text"},
	}
}
