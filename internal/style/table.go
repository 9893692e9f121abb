package style

import (
	"regexp"
	"strings"

	"github.com/mattn/go-runewidth"
)

var ansiStripRe = regexp.MustCompile(`\x1b\[[0-9;]*m`)

func stripANSI(s string) string {
	return ansiStripRe.ReplaceAllString(s, "")
}

func displayWidth(s string) int {
	return runewidth.StringWidth(stripANSI(s))
}

func padRight(s string, width int) string {
	visible := displayWidth(s)
	if visible >= width {
		return s
	}
	return s + strings.Repeat(" ", width-visible)
}

// RenderTable lays out headers/rows as an aligned, ANSI-safe, rune-width
// aware table, used by `draft view`, `goal list`, and `draft review list`.
func RenderTable(headers []string, rows [][]string, gutter int) string {
	if gutter <= 0 {
		gutter = 2
	}
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = displayWidth(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i >= len(widths) {
				continue
			}
			if w := displayWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	var b strings.Builder
	writeRow := func(cells []string) {
		for i, cell := range cells {
			if i == len(cells)-1 {
				b.WriteString(cell)
				continue
			}
			b.WriteString(padRight(cell, widths[i]+gutter))
		}
		b.WriteString("\n")
	}
	writeRow(headerCells(headers))
	for _, row := range rows {
		writeRow(row)
	}
	return b.String()
}

func headerCells(headers []string) []string {
	out := make([]string, len(headers))
	for i, h := range headers {
		out[i] = Heading(h)
	}
	return out
}
