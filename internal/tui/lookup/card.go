package lookup

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/Digital-Shane/aftercredits/internal/core"
	"github.com/Digital-Shane/aftercredits/internal/provider"
	"github.com/Digital-Shane/aftercredits/internal/tui/theme"
)

const minCardWidth = 30

// Card is everything the result card shows.
type Card struct {
	ID       string
	Result   *provider.ScrapeResult
	Attempts []core.Attempt
	Err      error
	Trace    bool
}

// Render draws c for a terminal width columns wide.
func Render(th theme.Theme, c Card, width int) string {
	panel := th.PanelStyle()
	inner := max(width-panel.GetHorizontalFrameSize(), minCardWidth)

	var lines []string
	title := c.ID
	if c.Result != nil && c.Result.Title != "" {
		title = c.Result.Title
	}
	lines = append(lines, th.HeaderStyle().Render(truncate(th.Icon("movie")+" "+title, inner-2)))
	lines = append(lines, "")

	switch {
	case c.Result != nil && len(c.Result.Stingers) == 0:
		lines = append(lines, th.BadgeStyle(theme.BadgeMuted).Render("no stingers"))
	case c.Result != nil:
		lines = append(lines, th.BadgeStyle(theme.BadgeSuccess).Render(verdict(c.Result)))
		for _, s := range c.Result.Stingers {
			icon := th.Icon("post")
			if s.Type == provider.MidCredit {
				icon = th.Icon("mid")
			}
			lines = append(lines, icon+" "+th.StingerStyle(s.Type).Render(s.Type.Label()))
			if s.Note != "" {
				for _, note := range wrap(s.Note, inner-2) {
					lines = append(lines, "  "+note)
				}
			}
		}
	case errors.Is(c.Err, core.ErrNotFound):
		lines = append(lines, th.BadgeStyle(theme.BadgeMuted).Render("not found"))
		lines = append(lines, th.MutedStyle().Render(truncate("no source knows about "+c.ID, inner)))
	case c.Err != nil:
		lines = append(lines, th.BadgeStyle(theme.BadgeError).Render("error"))
		lines = append(lines, truncate(c.Err.Error(), inner))
	}

	if c.Result != nil && c.Result.Link != "" {
		lines = append(lines, "", th.MutedStyle().Render(truncate(th.Icon("link")+" "+c.Result.Link, inner)))
	}

	if c.Trace {
		lines = append(lines, "")
		if c.Result != nil && len(c.Attempts) == 0 {
			lines = append(lines, th.Icon("cache")+" served from cache")
		}
		for _, a := range c.Attempts {
			lines = append(lines, traceLine(th, a, inner))
		}
	}

	return panel.Width(inner).Render(strings.Join(lines, "\n"))
}

// verdict summarises when to stop watching.
func verdict(r *provider.ScrapeResult) string {
	switch mid, post := r.HasMidCredit(), r.HasPostCredit(); {
	case mid && post:
		return "stay: during and after"
	case mid:
		return "stay: during the credits"
	default:
		return "stay: after the credits"
	}
}

func traceLine(th theme.Theme, a core.Attempt, width int) string {
	badge := th.BadgeStyle(theme.OutcomeBadge(a.Kind)).Render(a.Kind.String())
	line := fmt.Sprintf("%-13s %s %s", a.Source, badge, th.MutedStyle().Render(a.Duration.Round(time.Millisecond).String()))
	if a.Err != nil {
		room := width - lipgloss.Width(line) - 1
		if room > 8 {
			line += " " + truncate(a.Err.Error(), room)
		}
	}
	return line
}

// truncate shortens s to width display cells.
func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	return runewidth.Truncate(s, width, "…")
}

// wrap breaks s into lines of at most width display cells on word
// boundaries. Words longer than width are truncated.
func wrap(s string, width int) []string {
	if width <= 0 {
		return nil
	}
	var (
		lines []string
		cur   strings.Builder
		used  int
	)
	for _, word := range strings.Fields(s) {
		w := runewidth.StringWidth(word)
		if w > width {
			word = truncate(word, width)
			w = runewidth.StringWidth(word)
		}
		if used > 0 && used+1+w > width {
			lines = append(lines, cur.String())
			cur.Reset()
			used = 0
		}
		if used > 0 {
			cur.WriteByte(' ')
			used++
		}
		cur.WriteString(word)
		used += w
	}
	if used > 0 {
		lines = append(lines, cur.String())
	}
	return lines
}
