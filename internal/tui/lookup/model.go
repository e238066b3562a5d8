// Package lookup is the Bubble Tea model behind `aftercredits lookup` on a
// terminal: a spinner while the resolver runs, then the result card.
package lookup

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Digital-Shane/aftercredits/internal/core"
	"github.com/Digital-Shane/aftercredits/internal/provider"
	"github.com/Digital-Shane/aftercredits/internal/tui/theme"
)

// ResolveFunc runs one lookup. (*core.Resolver).ResolveTrace fits.
type ResolveFunc func(ctx context.Context, id string) (*provider.ScrapeResult, []core.Attempt, error)

type resultMsg struct {
	result   *provider.ScrapeResult
	attempts []core.Attempt
	err      error
}

// Model shows progress for a single lookup.
type Model struct {
	id      string
	trace   bool
	resolve ResolveFunc

	ctx    context.Context
	cancel context.CancelFunc

	spinner spinner.Model
	theme   theme.Theme
	width   int

	done     bool
	result   *provider.ScrapeResult
	attempts []core.Attempt
	err      error
}

// New creates a model for id. The lookup starts on Init.
func New(ctx context.Context, id string, trace bool, resolve ResolveFunc, th theme.Theme) *Model {
	ctx, cancel := context.WithCancel(ctx)
	sp := spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(th.SpinnerStyle()))
	return &Model{
		id:      id,
		trace:   trace,
		resolve: resolve,
		ctx:     ctx,
		cancel:  cancel,
		spinner: sp,
		theme:   th,
		width:   80,
	}
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.run())
}

func (m *Model) run() tea.Cmd {
	return func() tea.Msg {
		res, attempts, err := m.resolve(m.ctx, m.id)
		return resultMsg{result: res, attempts: attempts, err: err}
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc", "q":
			m.cancel()
			m.done = true
			m.err = context.Canceled
			return m, tea.Quit
		}
	case resultMsg:
		m.cancel()
		m.done = true
		m.result, m.attempts, m.err = msg.result, msg.attempts, msg.err
		return m, tea.Quit
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) View() string {
	if !m.done {
		return fmt.Sprintf("%s Looking up %s...\n\n%s\n", m.spinner.View(), m.id, m.theme.StatusBarStyle().Render("q cancel"))
	}
	return Render(m.theme, m.Card(), m.width) + "\n"
}

// Card returns the finished lookup.
func (m *Model) Card() Card {
	return Card{ID: m.id, Result: m.result, Attempts: m.attempts, Err: m.err, Trace: m.trace}
}

// Err returns the lookup error, context.Canceled if the user quit.
func (m *Model) Err() error { return m.err }
