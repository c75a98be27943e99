package imagecheck

import (
	"bytes"
	"fmt"

	"github.com/disintegration/imaging"
)

// CropTopHalf keeps the top half of a screenshot and re-encodes it as PNG.
// Used by the degraded page capture when no output element could be located.
func CropTopHalf(screenshot []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(screenshot))
	if err != nil {
		return nil, fmt.Errorf("decode screenshot: %w", err)
	}
	b := img.Bounds()
	h := b.Dy() / 2
	if h < 1 {
		h = 1
	}
	cropped := imaging.CropAnchor(img, b.Dx(), h, imaging.Top)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, cropped, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode crop: %w", err)
	}
	return buf.Bytes(), nil
}
