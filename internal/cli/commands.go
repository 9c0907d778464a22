package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/spf13/cobra"

	"marketview/internal/dashboard"
	"marketview/internal/store"
	"marketview/internal/symbol"
	"marketview/internal/viewmodel"
	"marketview/pkg/marketview"
)

// newSnapshotCmd loads both panels once and prints them.
func newSnapshotCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot SYMBOL",
		Short: "Print both dashboard panels for a symbol and exit",
		Long: `Load the chart and insight panels for SYMBOL exactly as the dashboard
does, print them as text, and exit. The exit status is non-zero when either
panel ends in the error state.
Example: marketview snapshot AAPL --width 100`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defer a.close()
			width, _ := cmd.Flags().GetInt("width")
			return a.runSnapshot(cmd.OutOrStdout(), cmd.ErrOrStderr(), args[0], width)
		},
	}
	cmd.Flags().Int("width", 80, "Output width in columns")
	return cmd
}

func (a *app) runSnapshot(out, logOut io.Writer, raw string, width int) error {
	if err := a.setupLogger(logOut); err != nil {
		return err
	}
	sym := symbol.Normalize(raw)
	if sym == "" {
		return fmt.Errorf("symbol is required")
	}
	loc, err := a.cfg.Dashboard.Location()
	if err != nil {
		return fmt.Errorf("loading timezone: %w", err)
	}

	ctrl, chart, insight, err := a.panels()
	if err != nil {
		return err
	}
	ctrl.SetSymbol(sym)
	chart.Wait()
	insight.Wait()

	cs, is := chart.State(), insight.State()
	printSection(out, "Chart & indicators", cs.Status, dashboard.ChartPanel(cs, width-2))
	fmt.Fprintln(out)
	printSection(out, "Insight & prediction", is.Status, dashboard.InsightPanel(is, loc, width-2))

	if cs.Status == viewmodel.StatusError || is.Status == viewmodel.StatusError {
		return fmt.Errorf("snapshot of %s incomplete: chart %s, insight %s", sym, cs.Status, is.Status)
	}
	return nil
}

func printSection(w io.Writer, title string, s viewmodel.Status, lines []string) {
	fmt.Fprintf(w, "== %s [%s] ==\n", title, s)
	for _, l := range lines {
		fmt.Fprintf(w, "  %s\n", l)
	}
}

// newExportCmd writes a symbol's history series to Parquet.
func newExportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export SYMBOL",
		Short: "Export a symbol's price history and moving averages to Parquet",
		Long: `Fetch the historical series for SYMBOL and write it to a Parquet file.
With --output the file is replaced; otherwise the series is merged into
<storage.data_dir>/daily/<SYMBOL>/<YYYY>.parquet.
Network failures are retried; server and parse errors are not.
Example: marketview export AAPL -o aapl.parquet`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defer a.close()
			output, _ := cmd.Flags().GetString("output")
			retries, _ := cmd.Flags().GetInt("retries")
			return a.runExport(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), args[0], output, retries)
		},
	}
	cmd.Flags().StringP("output", "o", "", "Parquet file to write")
	cmd.Flags().Int("retries", 3, "Retries after a network failure")
	return cmd
}

func (a *app) runExport(ctx context.Context, out, logOut io.Writer, raw, output string, retries int) error {
	if err := a.setupLogger(logOut); err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	sym := symbol.Normalize(raw)
	client := a.newClient()
	opts := a.historyOptions()

	var points []marketview.HistoricalPoint
	op := func() error {
		p, err := client.HistoryWithOptions(ctx, sym, opts)
		if err != nil {
			if marketview.KindOf(err) == marketview.KindNetwork {
				return err
			}
			return backoff.Permanent(err)
		}
		points = p
		return nil
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = 250 * time.Millisecond
	b := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(max(retries, 0))), ctx)
	notify := func(err error, d time.Duration) {
		a.logger.Warn("history fetch failed, retrying", "symbol", sym, "in", d, "error", err)
	}
	if err := backoff.RetryNotify(op, b, notify); err != nil {
		return fmt.Errorf("fetching history for %s: %w", sym, err)
	}

	if output != "" {
		if err := store.WriteHistoryFile(output, sym, points); err != nil {
			return err
		}
		fmt.Fprintf(out, "wrote %s points for %s to %s\n",
			dashboard.FormatInt(int64(len(points))), sym, output)
		return nil
	}

	ps := store.NewParquetStore(a.cfg.Storage.DataDir)
	if err := ps.WriteHistory(ctx, sym, points); err != nil {
		return err
	}
	stored, err := ps.ReadHistory(ctx, sym)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "merged %s points for %s into %s (%s stored)\n",
		dashboard.FormatInt(int64(len(points))), sym, ps.DataDir,
		dashboard.FormatInt(int64(len(stored))))
	return nil
}

// newJournalCmd prints recent fetch outcomes.
func newJournalCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Show recent fetch outcomes from the journal",
		RunE: func(cmd *cobra.Command, args []string) error {
			defer a.close()
			limit, _ := cmd.Flags().GetInt("limit")
			if err := a.setupLogger(cmd.ErrOrStderr()); err != nil {
				return err
			}
			if a.cfg.Journal.SQLitePath == "" {
				return fmt.Errorf("no journal configured (journal.sqlite_path or MARKETVIEW_JOURNAL)")
			}
			j, err := a.openJournal()
			if err != nil {
				return err
			}
			recs, err := j.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			printJournal(cmd.OutOrStdout(), recs)
			return nil
		},
	}
	cmd.Flags().Int("limit", 20, "Number of records to show")
	return cmd
}

func printJournal(w io.Writer, recs []store.FetchRecord) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tVIEW\tSYMBOL\tOUTCOME\tKIND\tSTATUS\tDURATION")
	for _, r := range recs {
		status := ""
		if r.Status != 0 {
			status = fmt.Sprintf("%d", r.Status)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Time.Format("2006-01-02 15:04:05"), r.View, r.Symbol, r.Outcome,
			r.Kind, status, r.Duration)
	}
	tw.Flush()
}

// newVersionCmd creates the version command
func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "marketview %s\n", a.version)
		},
	}
}
