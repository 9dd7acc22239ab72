package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the sotctl banner with the version to w.
func PrintBanner(w io.Writer, version string) {
	p := termenv.ColorProfile()
	lines := []struct {
		text  string
		color string
	}{
		{"   ___  ___ | |_ ", "#818cf8"},
		{"  / __|/ _ \\| __|", "#a78bfa"},
		{"  \\__ \\ (_) | |_ ", "#c084fc"},
		{"  |___/\\___/ \\__|", "#e879f9"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w, termenv.String("  stack of tasks "+version).Faint())
	fmt.Fprintln(w)
}
