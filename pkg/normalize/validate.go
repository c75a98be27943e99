package normalize

import (
	"errors"
	"strings"
)

var (
	ErrNoTeams   = errors.New("at least one team line is required (e.g. `A - Red`)")
	ErrNoPlayers = errors.New("no player lines found (e.g. `Alice 1500`)")
)

// Shape is the line classification of a payload.
type Shape struct {
	Teams   []string
	Players []string
}

// Classify splits the non-blank lines of payload into team lines (containing "-")
// and player lines (everything else).
func Classify(payload string) Shape {
	var s Shape
	for _, line := range strings.Split(payload, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.Contains(line, "-") {
			s.Teams = append(s.Teams, line)
		} else {
			s.Players = append(s.Players, line)
		}
	}
	return s
}

// ValidateShape checks the minimal table structure: one team line and one player line.
// It is cheap and runs before any rendering is attempted.
func ValidateShape(payload string) error {
	s := Classify(payload)
	if len(s.Teams) == 0 {
		return ErrNoTeams
	}
	if len(s.Players) == 0 {
		return ErrNoPlayers
	}
	return nil
}
