package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/dustin/go-humanize"

	"github.com/evanschultz/lapse/internal/domain"
)

// minDetailWrap keeps the card readable on narrow terminals.
const minDetailWrap = 24

// detailCard is what the detail overlay shows for one activity.
type detailCard struct {
	activity domain.Activity
	category string
	image    string
	now      time.Time
}

// markdown lays the card out as a short markdown document.
func (c detailCard) markdown() string {
	a := c.activity
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", a.Title)
	fmt.Fprintf(&b, "- **Category:** %s\n", c.category)
	fmt.Fprintf(&b, "- **Last reset:** %s", domain.ElapsedLabel(a.ElapsedSince(), c.now))
	if !a.LastResetAt.IsZero() {
		fmt.Fprintf(&b, " (%s)", a.LastResetAt.Local().Format("Mon Jan 2 15:04"))
	}
	b.WriteString("\n")
	if a.CreatedAt.IsZero() {
		b.WriteString("- **Created:** unknown\n")
	} else {
		fmt.Fprintf(&b, "- **Created:** %s\n", humanize.RelTime(a.CreatedAt, c.now, "ago", "from now"))
	}
	fmt.Fprintf(&b, "- **Image:** %s\n", c.image)
	fmt.Fprintf(&b, "- **Position:** %s, %s (size %s)\n",
		humanize.Ftoa(a.Position.X), humanize.Ftoa(a.Position.Y), humanize.Ftoa(a.Size))
	return b.String()
}

// detailView styles cards through glamour. The term renderer is rebuilt only
// when the overlay width changes.
type detailView struct {
	wrap   int
	term   *glamour.TermRenderer
	builds int
}

// render returns the styled card, or its plain markdown if glamour fails.
func (v *detailView) render(c detailCard, width int) string {
	md := c.markdown()
	wrap := max(minDetailWrap, width)
	if v.term == nil || v.wrap != wrap {
		term, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle("dark"),
			glamour.WithWordWrap(wrap),
		)
		if err != nil {
			return md
		}
		v.term, v.wrap = term, wrap
		v.builds++
	}
	out, err := v.term.Render(md)
	if err != nil {
		return md
	}
	return strings.Trim(out, "\n")
}
