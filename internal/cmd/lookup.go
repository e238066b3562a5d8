package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Digital-Shane/aftercredits/internal/cache"
	"github.com/Digital-Shane/aftercredits/internal/core"
	"github.com/Digital-Shane/aftercredits/internal/provider"
	"github.com/Digital-Shane/aftercredits/internal/tui/lookup"
	"github.com/Digital-Shane/aftercredits/internal/tui/theme"
)

// lookupParallelism bounds concurrent lookups when several ids are given.
const lookupParallelism = 4

var (
	lookupTrace   bool
	lookupJSON    bool
	lookupNoCache bool
)

var lookupCmd = &cobra.Command{
	Use:   "lookup <imdb-id>...",
	Short: "Check one or more movies for mid and post credit scenes",
	Long: `Lookup runs the same pipeline as the add-on for each IMDb id.

On a terminal a single id gets an interactive card. With several ids, or
when output is piped, plain cards are printed in argument order. --json
prints one JSON object per id instead.`,
	Example: `  aftercredits lookup tt0848228
  aftercredits lookup --trace tt4154796 tt0371746
  aftercredits lookup --json --no-cache tt0848228`,
	Args: cobra.MinimumNArgs(1),
	RunE: runLookup,
}

func init() {
	lookupCmd.Flags().BoolVar(&lookupTrace, "trace", false, "show every source attempt with its outcome and duration")
	lookupCmd.Flags().BoolVar(&lookupJSON, "json", false, "print JSON lines")
	lookupCmd.Flags().BoolVar(&lookupNoCache, "no-cache", false, "use a throwaway in-memory cache")
	rootCmd.AddCommand(lookupCmd)
}

func runLookup(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	interactive := !lookupJSON && len(args) == 1 && isTerminal(out)

	logger, err := newLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	if interactive && logger.GetLevel() < log.ErrorLevel {
		// Log lines would tear the spinner.
		logger.SetLevel(log.ErrorLevel)
	}

	var store cache.Store
	if lookupNoCache {
		store = cache.NewMemory()
	}
	a, err := buildApp(cfg, logger, store)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("cache close failed", "err", err)
		}
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	if interactive {
		return runLookupTUI(ctx, cmd.InOrStdin(), out, args[0], a.resolver.ResolveTrace)
	}
	reports := lookupAll(ctx, a.resolver.ResolveTrace, args)
	return printReports(out, reports, lookupJSON, lookupTrace)
}

func runLookupTUI(ctx context.Context, in io.Reader, out io.Writer, id string, resolve lookup.ResolveFunc) error {
	m := lookup.New(ctx, id, lookupTrace, resolve, theme.Default())
	final, err := tea.NewProgram(m, tea.WithInput(in), tea.WithOutput(out)).Run()
	if err != nil {
		return fmt.Errorf("lookup ui: %w", err)
	}
	fm, ok := final.(*lookup.Model)
	if !ok {
		return fmt.Errorf("lookup ui: unexpected model %T", final)
	}
	return lookupErr(fm.Err())
}

// lookupErr filters outcomes that are answers rather than failures.
func lookupErr(err error) error {
	if err == nil || errors.Is(err, core.ErrNotFound) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

type lookupReport struct {
	ID       string
	Result   *provider.ScrapeResult
	Attempts []core.Attempt
	Err      error
}

// lookupAll resolves ids concurrently and returns the reports in argument order.
func lookupAll(ctx context.Context, resolve lookup.ResolveFunc, ids []string) []lookupReport {
	reports := make([]lookupReport, len(ids))

	var g errgroup.Group
	g.SetLimit(lookupParallelism)
	for i, id := range ids {
		g.Go(func() error {
			res, attempts, err := resolve(ctx, id)
			reports[i] = lookupReport{ID: id, Result: res, Attempts: attempts, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return reports
}

type jsonAttempt struct {
	Source     provider.SourceName `json:"source"`
	Outcome    string              `json:"outcome"`
	Error      string              `json:"error,omitempty"`
	DurationMS int64               `json:"duration_ms"`
}

type jsonReport struct {
	ID       string                 `json:"id"`
	Found    bool                   `json:"found"`
	Result   *provider.ScrapeResult `json:"result,omitempty"`
	Error    string                 `json:"error,omitempty"`
	Attempts []jsonAttempt          `json:"attempts,omitempty"`
}

func printReports(w io.Writer, reports []lookupReport, asJSON, trace bool) error {
	var failed int
	enc := json.NewEncoder(w)
	th := theme.Default()

	for _, r := range reports {
		if lookupErr(r.Err) != nil {
			failed++
		}
		if !asJSON {
			card := lookup.Card{ID: r.ID, Result: r.Result, Attempts: r.Attempts, Err: r.Err, Trace: trace}
			if _, err := fmt.Fprintln(w, lookup.Render(th, card, 80)); err != nil {
				return err
			}
			continue
		}

		jr := jsonReport{ID: r.ID, Found: r.Result != nil, Result: r.Result}
		if r.Err != nil && r.Result == nil {
			jr.Error = r.Err.Error()
		}
		if trace {
			for _, at := range r.Attempts {
				ja := jsonAttempt{Source: at.Source, Outcome: at.Kind.String(), DurationMS: at.Duration.Milliseconds()}
				if at.Err != nil {
					ja.Error = at.Err.Error()
				}
				jr.Attempts = append(jr.Attempts, ja)
			}
		}
		if err := enc.Encode(jr); err != nil {
			return err
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d lookups failed", failed, len(reports))
	}
	return nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
