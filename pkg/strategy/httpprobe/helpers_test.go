package httpprobe_test

import "github.com/aretw0/tablecast/pkg/imagecheck"

func testChecker(maxBytes int) imagecheck.Checker {
	c := imagecheck.Default()
	c.MaxBytes = maxBytes
	return c
}
