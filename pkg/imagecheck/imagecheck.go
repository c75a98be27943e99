// Package imagecheck decides whether a byte slice is plausibly a rendered table image
// rather than an empty body, an HTML error page or a blank capture.
package imagecheck

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // register decoder
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"slices"

	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/webp" // register decoder
)

const (
	DefaultMinBytes  = 1024
	DefaultMaxBytes  = 20 << 20
	DefaultMinWidth  = 100
	DefaultMinHeight = 50
)

// DefaultFormats are the image formats accepted when none are configured.
var DefaultFormats = []string{"png", "jpeg", "gif", "webp"}

var (
	ErrTooSmall          = errors.New("image below minimum size")
	ErrTooLarge          = errors.New("image above maximum size")
	ErrUnsupportedFormat = errors.New("unsupported content type")
	ErrUndecodable       = errors.New("image header cannot be decoded")
)

// Info describes an accepted image.
type Info struct {
	MIME   string
	Format string
	Width  int
	Height int
}

// Checker holds the acceptance thresholds. The zero value uses the defaults.
type Checker struct {
	MinBytes  int      `mapstructure:"min_bytes"`
	MaxBytes  int      `mapstructure:"max_bytes"`
	MinWidth  int      `mapstructure:"min_width"`
	MinHeight int      `mapstructure:"min_height"`
	Formats   []string `mapstructure:"formats"`
}

// Default returns a Checker with every threshold set to its default.
func Default() Checker {
	return Checker{
		MinBytes:  DefaultMinBytes,
		MaxBytes:  DefaultMaxBytes,
		MinWidth:  DefaultMinWidth,
		MinHeight: DefaultMinHeight,
		Formats:   slices.Clone(DefaultFormats),
	}
}

// Limit returns the maximum accepted byte length. Readers use Limit()+1 to detect overflow.
func (c Checker) Limit() int {
	if c.MaxBytes <= 0 {
		return DefaultMaxBytes
	}
	return c.MaxBytes
}

// Validate sniffs the content type, checks the size thresholds and decodes the image
// header. Only the header is decoded; pixel data is not.
func (c Checker) Validate(b []byte) (Info, error) {
	minBytes := c.MinBytes
	if minBytes <= 0 {
		minBytes = DefaultMinBytes
	}
	if len(b) < minBytes {
		return Info{}, fmt.Errorf("%w: %d bytes < %d", ErrTooSmall, len(b), minBytes)
	}
	if len(b) > c.Limit() {
		return Info{}, fmt.Errorf("%w: %d bytes > %d", ErrTooLarge, len(b), c.Limit())
	}

	mime := mimetype.Detect(b)
	formats := c.Formats
	if len(formats) == 0 {
		formats = DefaultFormats
	}
	accepted := false
	for _, f := range formats {
		if mime.Is("image/" + f) {
			accepted = true
			break
		}
	}
	if !accepted {
		return Info{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, mime.String())
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(b))
	if err != nil {
		return Info{}, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}

	info := Info{MIME: mime.String(), Format: format, Width: cfg.Width, Height: cfg.Height}
	if (c.MinWidth > 0 && cfg.Width < c.MinWidth) || (c.MinHeight > 0 && cfg.Height < c.MinHeight) {
		return info, fmt.Errorf("%w: %dx%d < %dx%d", ErrTooSmall, cfg.Width, cfg.Height, c.MinWidth, c.MinHeight)
	}
	return info, nil
}
