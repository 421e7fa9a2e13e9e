package util

import (
	"fmt"

	"github.com/common-nighthawk/go-figure"
)

const (
	colorReset  = "\x1b[0m"
	colorRed    = "\x1b[1;31m"
	colorGreen  = "\x1b[1;32m"
	colorYellow = "\x1b[1;33m"
	colorBlue   = "\x1b[1;34m"
	colorCyan   = "\x1b[1;36m"
)

func colorCode(name string) string {
	switch name {
	case "red":
		return colorRed
	case "green":
		return colorGreen
	case "yellow":
		return colorYellow
	case "blue":
		return colorBlue
	case "cyan":
		return colorCyan
	default:
		return colorReset
	}
}

// PrintBanner renders text as a single-color ASCII banner on stdout.
func PrintBanner(text, color string) {
	fig := figure.NewFigure(text, "", true)
	ansiColor := colorCode(color)
	for _, line := range fig.Slicify() {
		fmt.Println(ansiColor + line + colorReset)
	}
}
