package browser

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// imageSource returns the bytes behind an <img> output element, either decoded from a
// data URI or fetched over HTTP. ok is false when the element is not an image or the
// source does not pass the image check; the caller then screenshots the element.
func (s *Strategy) imageSource(ctx context.Context, el Element, log *slog.Logger) ([]byte, bool) {
	tag, err := el.TagName(ctx)
	if err != nil || tag != "img" {
		return nil, false
	}
	src, err := el.Attribute(ctx, "src")
	if err != nil || src == "" {
		return nil, false
	}

	var img []byte
	if strings.HasPrefix(src, "data:") {
		img, err = decodeDataURI(src)
	} else {
		img, err = s.fetch(ctx, src)
	}
	if err != nil {
		log.Debug("image source unusable", "err", err)
		return nil, false
	}
	if _, err := s.checker.Validate(img); err != nil {
		log.Debug("image source rejected", "err", err)
		return nil, false
	}
	return img, true
}

func decodeDataURI(src string) ([]byte, error) {
	meta, data, ok := strings.Cut(strings.TrimPrefix(src, "data:"), ",")
	if !ok {
		return nil, fmt.Errorf("malformed data uri")
	}
	if !strings.HasSuffix(meta, ";base64") {
		decoded, err := url.PathUnescape(data)
		return []byte(decoded), err
	}
	return base64.StdEncoding.DecodeString(data)
}

func (s *Strategy) fetch(ctx context.Context, src string) ([]byte, error) {
	base, err := url.Parse(s.cfg.URL)
	if err != nil {
		return nil, err
	}
	ref, err := url.Parse(src)
	if err != nil {
		return nil, fmt.Errorf("parse src: %w", err)
	}
	target := base.ResolveReference(ref)
	if target.Scheme != "http" && target.Scheme != "https" {
		return nil, fmt.Errorf("unsupported src scheme %q", target.Scheme)
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: HTTP %d", target, resp.StatusCode)
	}
	limit := s.checker.Limit()
	body, err := io.ReadAll(io.LimitReader(resp.Body, int64(limit)+1))
	if err != nil {
		return nil, err
	}
	if len(body) > limit {
		return nil, fmt.Errorf("image source exceeds %d bytes", limit)
	}
	return body, nil
}
