// Package testutil provides fixtures shared by package tests.
package testutil

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math/rand/v2"
)

// Noise returns a w x h image filled with deterministic noise, so encoders cannot
// compress it below realistic sizes.
func Noise(w, h int) *image.NRGBA {
	rng := rand.New(rand.NewPCG(uint64(w), uint64(h)))
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(rng.IntN(256)),
				G: uint8(rng.IntN(256)),
				B: uint8(rng.IntN(256)),
				A: 255,
			})
		}
	}
	return img
}

// PNG encodes a noise image of the given size.
func PNG(w, h int) []byte {
	var buf bytes.Buffer
	if err := png.Encode(&buf, Noise(w, h)); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// JPEG encodes a noise image of the given size.
func JPEG(w, h int) []byte {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, Noise(w, h), &jpeg.Options{Quality: 90}); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// HTMLErrorPage is a body an endpoint returns instead of an image.
var HTMLErrorPage = []byte(`<!DOCTYPE html><html><head><title>404 Not Found</title></head>` +
	`<body><h1>Not Found</h1><p>The requested URL was not found on this server.</p></body></html>`)
