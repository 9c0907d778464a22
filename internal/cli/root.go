// Package cli defines the marketview command tree.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"marketview/internal/config"
	"marketview/internal/store"
	"marketview/internal/symbol"
	"marketview/internal/tui"
	"marketview/internal/util"
	"marketview/internal/viewmodel"
	"marketview/pkg/marketview"
)

// app carries what every command needs once flags are parsed.
type app struct {
	version string
	cfgPath string
	cfg     *config.Config
	logger  *slog.Logger
	closers []io.Closer
}

// NewRootCmd creates the root command. Without a subcommand it starts the
// terminal dashboard.
func NewRootCmd(version string) *cobra.Command {
	a := &app{version: version}

	rootCmd := &cobra.Command{
		Use:   "marketview [SYMBOL]",
		Short: "Terminal dashboard for market data, indicators and AI insights",
		Long: `marketview shows the price history, technical indicators, generated
commentary and a price prediction for a ticker symbol, fetched from the
market service.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.cfgPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
				cfg.Logging.Level = lvl
			}
			a.cfg = cfg
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			defer a.close()
			sym := a.cfg.Dashboard.Symbol
			if len(args) == 1 {
				sym = args[0]
			}
			return a.runDashboard(sym)
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.cfgPath, "config", "marketview.yaml", "Configuration file path")
	rootCmd.PersistentFlags().String("log-level", "", "Override logging.level (debug, info, warn, error)")

	rootCmd.AddCommand(newSnapshotCmd(a))
	rootCmd.AddCommand(newExportCmd(a))
	rootCmd.AddCommand(newJournalCmd(a))
	rootCmd.AddCommand(newVersionCmd(a))

	return rootCmd
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i].Close()
	}
	a.closers = nil
}

// setupLogger points the logger at logging.file when set, otherwise at w.
func (a *app) setupLogger(w io.Writer) error {
	if a.cfg.Logging.File != "" {
		f, err := util.OpenLogFile(a.cfg.Logging.File)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, f)
		w = f
	}
	a.logger = util.NewLogger(a.cfg.Logging.Level, a.cfg.Logging.Format, w)
	return nil
}

func (a *app) newClient() *marketview.Client {
	opts := []marketview.Option{
		marketview.WithTimeout(a.cfg.API.Timeout),
		marketview.WithLogger(a.logger),
	}
	if a.cfg.API.UserAgent != "" {
		opts = append(opts, marketview.WithUserAgent(a.cfg.API.UserAgent))
	} else {
		opts = append(opts, marketview.WithUserAgent("marketview/"+a.version))
	}
	return marketview.NewClient(a.cfg.API.BaseURL, opts...)
}

func (a *app) historyOptions() marketview.HistoryOptions {
	return marketview.HistoryOptions{
		Interval: a.cfg.Dashboard.Interval,
		Period:   a.cfg.Dashboard.Period,
	}
}

func (a *app) openJournal() (store.FetchJournal, error) {
	if a.cfg.Journal.SQLitePath == "" {
		return store.NoopJournal{}, nil
	}
	j, err := store.NewSQLiteJournal(a.cfg.Journal.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("opening journal: %w", err)
	}
	a.closers = append(a.closers, j)
	a.logger.Debug("fetch journal opened", "path", a.cfg.Journal.SQLitePath)
	return j, nil
}

// historySource serves History with the configured interval and period.
type historySource struct {
	*marketview.Client
	opts marketview.HistoryOptions
}

func (s historySource) History(ctx context.Context, symbol string) ([]marketview.HistoricalPoint, error) {
	return s.Client.HistoryWithOptions(ctx, symbol, s.opts)
}

// panels builds the controller and both view-models on one client.
func (a *app) panels() (*symbol.Controller, *viewmodel.Chart, *viewmodel.Insight, error) {
	journal, err := a.openJournal()
	if err != nil {
		return nil, nil, nil, err
	}
	client := a.newClient()
	opts := []viewmodel.Option{
		viewmodel.WithLogger(a.logger),
		viewmodel.WithJournal(journal),
	}
	chart := viewmodel.NewChart(historySource{Client: client, opts: a.historyOptions()}, opts...)
	insight := viewmodel.NewInsight(client, opts...)
	return symbol.New(chart, insight), chart, insight, nil
}

func (a *app) runDashboard(sym string) error {
	// The alt-screen owns stdout, so logs go to a dated file.
	if a.cfg.Logging.File == "" {
		a.cfg.Logging.File = util.DailyLogPath(os.TempDir(), "marketview", time.Now())
	}
	if err := a.setupLogger(io.Discard); err != nil {
		return err
	}
	util.SetDefault(a.logger)

	loc, err := a.cfg.Dashboard.Location()
	if err != nil {
		return fmt.Errorf("loading timezone: %w", err)
	}
	ctrl, chart, insight, err := a.panels()
	if err != nil {
		return err
	}
	a.logger.Info("dashboard starting",
		"api", a.cfg.API.BaseURL,
		"symbol", sym,
		"refresh", a.cfg.Dashboard.Refresh,
	)

	return tui.Run(tui.Options{
		Controller: ctrl,
		Chart:      chart,
		Insight:    insight,
		Symbol:     sym,
		Location:   loc,
		Refresh:    a.cfg.Dashboard.Refresh,
		Logger:     a.logger,
	})
}
