package tui

import (
	"math"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/mattn/go-runewidth"

	"github.com/evanschultz/lapse/internal/domain"
)

// cellStyle indexes the palette used when painting the board.
type cellStyle int

const (
	styleBlank cellStyle = iota
	styleBorder
	styleSelected
	styleDragging
	stylePulse
	styleTitle
	styleMuted
)

// cell is one terminal column. A wide rune occupies its cell and marks the
// next one as a continuation with an empty glyph.
type cell struct {
	glyph string
	style cellStyle
}

// boardCanvas is a fixed grid that bubbles are painted onto back to front.
type boardCanvas struct {
	width, height int
	cells         [][]cell
}

func newBoardCanvas(width, height int) *boardCanvas {
	c := &boardCanvas{width: max(0, width), height: max(0, height)}
	c.cells = make([][]cell, c.height)
	for y := range c.cells {
		row := make([]cell, c.width)
		for x := range row {
			row[x] = cell{glyph: " "}
		}
		c.cells[y] = row
	}
	return c
}

// set writes one narrow glyph, ignoring cells off the grid.
func (c *boardCanvas) set(x, y int, glyph string, style cellStyle) {
	if x < 0 || y < 0 || x >= c.width || y >= c.height {
		return
	}
	row := c.cells[y]
	// Never leave half of a wide rune behind.
	if row[x].glyph == "" && x > 0 {
		row[x-1].glyph = " "
	}
	if x+1 < c.width && row[x+1].glyph == "" {
		row[x+1].glyph = " "
	}
	row[x] = cell{glyph: glyph, style: style}
}

// text writes s from column x, clipped to limit columns, and returns the
// columns used.
func (c *boardCanvas) text(x, y, limit int, s string, style cellStyle) int {
	s = runewidth.Truncate(s, limit, "…")
	used := 0
	for _, r := range s {
		w := runewidth.RuneWidth(r)
		if w == 0 {
			continue
		}
		if used+w > limit {
			break
		}
		c.set(x+used, y, string(r), style)
		if w == 2 {
			c.set(x+used+1, y, "", style)
		}
		used += w
	}
	return used
}

// bubbleView is everything needed to paint one activity.
type bubbleView struct {
	activity domain.Activity
	elapsed  string
	image    string
	selected bool
	dragging bool
	pulsing  bool
}

// bubbleRect converts surface units to a cell rectangle.
func bubbleRect(a domain.Activity) (col, row, w, h int) {
	col = int(math.Round(a.Position.X))
	row = int(math.Floor(a.Position.Y / 2))
	w = max(3, int(math.Round(a.Size)))
	h = max(2, int(math.Round(a.Size/2)))
	return col, row, w, h
}

// paint draws one bubble as a rounded box with title, elapsed label and
// image marker centered inside.
func (c *boardCanvas) paint(b bubbleView) {
	col, row, w, h := bubbleRect(b.activity)
	border := styleBorder
	switch {
	case b.pulsing:
		border = stylePulse
	case b.dragging:
		border = styleDragging
	case b.selected:
		border = styleSelected
	}

	for y := row; y < row+h; y++ {
		for x := col; x < col+w; x++ {
			glyph := " "
			style := styleBlank
			top, bottom := y == row, y == row+h-1
			left, right := x == col, x == col+w-1
			switch {
			case top && left:
				glyph, style = "╭", border
			case top && right:
				glyph, style = "╮", border
			case bottom && left:
				glyph, style = "╰", border
			case bottom && right:
				glyph, style = "╯", border
			case top || bottom:
				glyph, style = "─", border
			case left || right:
				glyph, style = "│", border
			}
			if b.pulsing && style == styleBlank {
				style = stylePulse
			}
			c.set(x, y, glyph, style)
		}
	}

	inner := w - 2
	if inner <= 0 {
		return
	}
	lines := []struct {
		text  string
		style cellStyle
	}{
		{b.activity.Title, styleTitle},
		{b.elapsed, styleMuted},
		{b.image, styleMuted},
	}
	for i, line := range lines {
		y := row + 1 + i
		if y >= row+h-1 {
			break
		}
		style := line.style
		if b.pulsing {
			style = stylePulse
		}
		text := runewidth.Truncate(line.text, inner, "…")
		pad := (inner - runewidth.StringWidth(text)) / 2
		c.text(col+1+pad, y, inner-pad, text, style)
	}
}

// render converts the grid to styled lines.
func (c *boardCanvas) render(palette map[cellStyle]lipgloss.Style) string {
	lines := make([]string, 0, c.height)
	for _, row := range c.cells {
		var line strings.Builder
		var run strings.Builder
		current := styleBlank
		flush := func() {
			if run.Len() == 0 {
				return
			}
			if st, ok := palette[current]; ok && current != styleBlank {
				line.WriteString(st.Render(run.String()))
			} else {
				line.WriteString(run.String())
			}
			run.Reset()
		}
		for _, cl := range row {
			if cl.style != current {
				flush()
				current = cl.style
			}
			run.WriteString(cl.glyph)
		}
		flush()
		lines = append(lines, line.String())
	}
	return strings.Join(lines, "\n")
}
