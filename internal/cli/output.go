package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/aretw0/tablecast/internal/presentation/tui"
	"golang.org/x/term"
)

// ErrTerminalOutput is returned when image bytes would be written to a terminal.
var ErrTerminalOutput = errors.New("refusing to write image data to a terminal; use --output or redirect stdout")

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// ReadInput returns the table text from path, or from stdin when path is "" or "-".
func ReadInput(path string, stdin io.Reader) (string, error) {
	var (
		raw []byte
		err error
	)
	if path == "" || path == "-" {
		raw, err = io.ReadAll(stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return string(raw), nil
}

// WriteImage writes image to path, or to stdout when path is "" or "-".
func WriteImage(path string, image []byte, stdout *os.File) error {
	if path != "" && path != "-" {
		return os.WriteFile(path, image, 0o644)
	}
	if IsTerminal(stdout) {
		return ErrTerminalOutput
	}
	_, err := stdout.Write(image)
	return err
}

// PrintMarkdown renders md for w, styled when w is a terminal.
func PrintMarkdown(w *os.File, md string) {
	if IsTerminal(w) {
		if out, err := tui.NewRenderer()(md); err == nil {
			fmt.Fprint(w, out)
			return
		}
	}
	fmt.Fprintln(w, md)
}
