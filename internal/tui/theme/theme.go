package theme

import (
	"os"
	"runtime"

	"github.com/charmbracelet/lipgloss"

	"github.com/Digital-Shane/aftercredits/internal/provider"
)

// IconSet maps semantic names to icons.
type IconSet map[string]string

func (s IconSet) clone() IconSet {
	if s == nil {
		return nil
	}
	clone := make(IconSet, len(s))
	for k, v := range s {
		clone[k] = v
	}
	return clone
}

// Colors holds the palette used by the lookup card.
type Colors struct {
	Primary    lipgloss.Color
	Secondary  lipgloss.Color
	Accent     lipgloss.Color
	Background lipgloss.Color
	Muted      lipgloss.Color
	Success    lipgloss.Color
	Error      lipgloss.Color
	MidCredit  lipgloss.Color
	PostCredit lipgloss.Color
}

// Borders defines reusable border styles.
type Borders struct {
	Panel lipgloss.Border
}

// Spacing captures commonly used spacing values.
type Spacing struct {
	PanelPadding   int
	StatusHPadding int
}

// BadgeKind enumerates badge variants.
type BadgeKind int

const (
	BadgeInfo BadgeKind = iota
	BadgeSuccess
	BadgeError
	BadgeMuted
)

// Theme centralizes palette, border, spacing, and icon configuration.
type Theme struct {
	colors   Colors
	borders  Borders
	spacing  Spacing
	icons    IconSet
	fallback IconSet
}

// Option configures a Theme during construction.
type Option func(*Theme)

// WithIconSet overrides the icon set.
func WithIconSet(set IconSet) Option {
	return func(t *Theme) {
		t.icons = set.clone()
	}
}

// WithColors overrides the palette.
func WithColors(colors Colors) Option {
	return func(t *Theme) {
		t.colors = colors
	}
}

// WithSpacing overrides the spacing values.
func WithSpacing(spacing Spacing) Option {
	return func(t *Theme) {
		t.spacing = spacing
	}
}

// WithBorders overrides the border configuration.
func WithBorders(borders Borders) Option {
	return func(t *Theme) {
		t.borders = borders
	}
}

// New constructs a Theme with optional overrides applied.
func New(opts ...Option) Theme {
	defaults := []Option{
		WithColors(Colors{
			Primary:    lipgloss.Color("#3d2c5e"),
			Secondary:  lipgloss.Color("#5b4a80"),
			Accent:     lipgloss.Color("#e0b04a"),
			Background: lipgloss.Color("#f8f8f8"),
			Muted:      lipgloss.Color("#9ba8c0"),
			Success:    lipgloss.Color("#5dc796"),
			Error:      lipgloss.Color("#f04c56"),
			MidCredit:  lipgloss.Color("#4a90d9"),
			PostCredit: lipgloss.Color("#c06bd6"),
		}),
		WithBorders(Borders{Panel: lipgloss.RoundedBorder()}),
		WithSpacing(Spacing{PanelPadding: 1, StatusHPadding: 1}),
		WithIconSet(defaultIconSet()),
	}

	t := Theme{fallback: asciiIcons.clone()}
	for _, opt := range append(defaults, opts...) {
		opt(&t)
	}
	if t.icons == nil {
		t.icons = defaultIconSet()
	}
	return t
}

// Default returns the default Theme.
func Default() Theme {
	return New()
}

func (t Theme) Colors() Colors   { return t.colors }
func (t Theme) Borders() Borders { return t.borders }
func (t Theme) Spacing() Spacing { return t.spacing }

// Icon returns a themed icon with ASCII fallback if unavailable.
func (t Theme) Icon(name string) string {
	if icon, ok := t.icons[name]; ok {
		return icon
	}
	if icon, ok := t.fallback[name]; ok {
		return icon
	}
	return ""
}

// IconSet returns a copy of the themed icon map.
func (t Theme) IconSet() IconSet {
	return t.icons.clone()
}

// HeaderStyle is used for the card title bar.
func (t Theme) HeaderStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Bold(true).
		Background(t.colors.Primary).
		Foreground(t.colors.Background).
		Padding(0, 1)
}

// StatusBarStyle is used for the footer line.
func (t Theme) StatusBarStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Background(t.colors.Secondary).
		Foreground(t.colors.Background).
		Padding(0, t.spacing.StatusHPadding)
}

// PanelStyle wraps the whole card.
func (t Theme) PanelStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Border(t.borders.Panel).
		BorderForeground(t.colors.Accent).
		Padding(0, t.spacing.PanelPadding)
}

// MutedStyle renders secondary text such as links and durations.
func (t Theme) MutedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.colors.Muted)
}

// SpinnerStyle colors the lookup spinner.
func (t Theme) SpinnerStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.colors.Accent)
}

// BadgeStyle returns the badge style for the requested variant.
func (t Theme) BadgeStyle(kind BadgeKind) lipgloss.Style {
	base := lipgloss.NewStyle().Padding(0, 1).Bold(true)

	switch kind {
	case BadgeSuccess:
		return base.Background(t.colors.Success).Foreground(t.colors.Background)
	case BadgeError:
		return base.Background(t.colors.Error).Foreground(t.colors.Background)
	case BadgeMuted:
		return base.Background(t.colors.Muted).Foreground(t.colors.Background)
	default:
		return base.Background(t.colors.Accent).Foreground(t.colors.Background)
	}
}

// StingerStyle returns the badge style for a stinger type.
func (t Theme) StingerStyle(kind provider.StingerType) lipgloss.Style {
	base := lipgloss.NewStyle().Padding(0, 1).Bold(true).Foreground(t.colors.Background)
	if kind == provider.MidCredit {
		return base.Background(t.colors.MidCredit)
	}
	return base.Background(t.colors.PostCredit)
}

// OutcomeBadge maps a source outcome to a badge variant.
func OutcomeBadge(kind provider.OutcomeKind) BadgeKind {
	switch kind {
	case provider.KindAnswered:
		return BadgeSuccess
	case provider.KindFailed:
		return BadgeError
	default:
		return BadgeMuted
	}
}

func defaultIconSet() IconSet {
	if isLimitedTerminal() {
		return asciiIcons.clone()
	}
	return emojiIcons.clone()
}

// isLimitedTerminal detects environments where ASCII icons are preferable.
func isLimitedTerminal() bool {
	if os.Getenv("SSH_CLIENT") != "" || os.Getenv("SSH_TTY") != "" || os.Getenv("SSH_CONNECTION") != "" {
		return true
	}
	return runtime.GOOS == "windows"
}

var emojiIcons = IconSet{
	"movie":   "🎬",
	"mid":     "⏸",
	"post":    "⏭",
	"none":    "🚫",
	"link":    "🔗",
	"source":  "🔎",
	"cache":   "💾",
	"success": "✅",
	"error":   "❌",
	"unknown": "❓",
}

var asciiIcons = IconSet{
	"movie":   "[M]",
	"mid":     "[||]",
	"post":    "[>>]",
	"none":    "[-]",
	"link":    "[->]",
	"source":  "[?]",
	"cache":   "[C]",
	"success": "[v]",
	"error":   "[!]",
	"unknown": "[?]",
}
