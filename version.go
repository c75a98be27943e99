package tablecast

import (
	_ "embed"
	"strings"
)

//go:embed VERSION
var version string

// Version is the release version of tablecast.
var Version = strings.TrimSpace(version)
