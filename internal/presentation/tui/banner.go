package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

var bannerLines = []string{
	"  ____                              _   ",
	" |  _ \\ __ _ _ __  _ __   ___  _ __| |_ ",
	" | |_) / _` | '_ \\| '_ \\ / _ \\| '__| __|",
	" |  _ < (_| | |_) | |_) | (_) | |  | |_ ",
	" |_| \\_\\__,_| .__/| .__/ \\___/|_|   \\__|",
	"            |_|   |_|                   ",
}

var bannerColors = []string{"#818cf8", "#a78bfa", "#c084fc", "#e879f9", "#f472b6", "#fb7185"}

// PrintBanner writes the ASCII banner to w using the color profile of the
// terminal; plain text when colors are unsupported.
func PrintBanner(w io.Writer) {
	p := termenv.NewOutput(w).Profile
	fmt.Fprintln(w)
	for i, line := range bannerLines {
		fmt.Fprintln(w, termenv.String(line).Foreground(p.Color(bannerColors[i])))
	}
	fmt.Fprintln(w)
}
