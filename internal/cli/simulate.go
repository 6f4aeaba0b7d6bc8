package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/trickstertwo/xtheme/internal/simulate"
	"github.com/trickstertwo/xtheme/prefstore"
)

func newSimulateCommand(a *app) *cobra.Command {
	var (
		printHTML bool
		storePath string
	)
	cmd := &cobra.Command{
		Use:   "simulate <page.html> <scenario.yaml>",
		Short: "Replay a scripted visit against a page headlessly",
		Long: `Simulate boots the theme modules over a static HTML page on a manual clock
and replays the scenario steps: platform events, typing, clicks, element
visibility, scrolling, time and reloads. It prints the notifications shown,
the analytics recorded and optionally the final document.

Example scenario:
  name: add to cart
  steps:
    - emit: cart::item-added
      payload: {cart: {items_count: 1}}
    - type: "[data-search-input]"
      value: shoes
    - advance: 300ms`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.simulate(cmd, args[0], args[1], storePath, printHTML)
		},
	}
	cmd.Flags().BoolVar(&printHTML, "html", false, "print the final document")
	cmd.Flags().StringVar(&storePath, "store", "", "sqlite file persisting preferences between runs (default: in memory)")
	return cmd
}

func (a *app) simulate(cmd *cobra.Command, pagePath, scenarioPath, storePath string, printHTML bool) error {
	ctx := cmd.Context()
	markup, err := os.ReadFile(pagePath)
	if err != nil {
		return fmt.Errorf("read page: %w", err)
	}
	sc, err := simulate.LoadFile(scenarioPath)
	if err != nil {
		return err
	}

	data, err := loadCatalog(a.cfg.Theme)
	if err != nil {
		return err
	}
	tr, err := newTranslator(ctx, a.cfg.Locale, a.logger)
	if err != nil {
		return err
	}
	env := simulate.Env{
		Store:      prefstore.NewMemory(),
		Searcher:   newSearcher(data, a.cfg.Search, a.logger),
		Translator: tr,
		Config:     pageConfig(a.cfg.Search),
		Logger:     a.logger,
	}
	if storePath != "" {
		s, err := prefstore.OpenSQLite(storePath)
		if err != nil {
			return err
		}
		defer closeAll(a.logger, s)
		env.Store = s
	}

	res, err := simulate.NewRunner(string(markup), env).Run(ctx, sc)
	if err != nil {
		return err
	}
	return writeResult(cmd.OutOrStdout(), res, printHTML)
}

func writeResult(w io.Writer, res *simulate.Result, printHTML bool) error {
	name := res.Scenario
	if name == "" {
		name = "scenario"
	}
	fmt.Fprintf(w, "%s: %d steps, %d page loads\n", name, res.Steps, res.Loads)
	for _, f := range res.Failures {
		fmt.Fprintf(w, "  failed module: %s\n", f)
	}
	fmt.Fprintf(w, "notifications (%d):\n", len(res.Notices))
	for _, n := range res.Notices {
		fmt.Fprintf(w, "  [%s] %s\n", n.Severity, n.Message)
	}
	fmt.Fprintf(w, "analytics (%d):\n", len(res.Tracked))
	for _, t := range res.Tracked {
		fmt.Fprintf(w, "  %s %v\n", t.Event, t.Props)
	}
	if printHTML {
		_, err := fmt.Fprintf(w, "document:\n%s\n", res.HTML)
		return err
	}
	return nil
}
