package cli

import (
	"bytes"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketview/internal/apitest"
	"marketview/internal/store"
	"marketview/pkg/marketview"
)

var envKeys = []string{
	"MARKETVIEW_API_URL", "MARKETVIEW_API_TIMEOUT", "LOG_LEVEL", "LOG_FORMAT",
	"LOG_FILE", "MARKETVIEW_SYMBOL", "MARKETVIEW_JOURNAL", "DATA_DIR",
}

// writeConfig writes a config file pointing at srv and returns its path.
func writeConfig(t *testing.T, srv *apitest.Server, extra string) string {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "marketview.yaml")
	yaml := fmt.Sprintf(`api:
  base_url: %s
  timeout: 5s
storage:
  data_dir: %s
%s`, srv.URL, filepath.Join(dir, "data"), extra)
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd("1.2.3")
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "marketview 1.2.3\n", out)
}

func TestSnapshot(t *testing.T) {
	srv := apitest.New(t)
	cfg := writeConfig(t, srv, "")

	out, err := execute(t, "--config", cfg, "snapshot", " aapl ", "--width", "60")
	require.NoError(t, err)

	assert.Contains(t, out, "== Chart & indicators [ready] ==")
	assert.Contains(t, out, "== Insight & prediction [ready] ==")
	assert.Contains(t, out, "AAPL  AAPL Inc.  182.31  -0.42")
	assert.Contains(t, out, "RSI 55.20  MACD 1.30  Bollinger 190.50 / 170.20")
	assert.Contains(t, out, "Current price: 181.91")
	assert.Contains(t, out, "2024-01-02 .. 2024-01-04")

	for _, c := range srv.Calls() {
		assert.Equal(t, "AAPL", c.Symbol)
	}
	assert.Len(t, srv.Calls(), 4)
}

func TestSnapshotUsesHistoryOptions(t *testing.T) {
	srv := apitest.New(t)
	cfg := writeConfig(t, srv, "dashboard:\n  interval: 1wk\n  period: 5y\n")

	_, err := execute(t, "--config", cfg, "snapshot", "MSFT")
	require.NoError(t, err)

	calls := srv.Calls(apitest.RouteHistory)
	require.Len(t, calls, 1)
	assert.Equal(t, "1wk", calls[0].Query.Get("interval"))
	assert.Equal(t, "5y", calls[0].Query.Get("period"))
}

func TestSnapshotErrorPanel(t *testing.T) {
	srv := apitest.New(t)
	srv.Fail(apitest.RoutePredict, http.StatusNotFound, "unknown symbol")
	cfg := writeConfig(t, srv, "")

	out, err := execute(t, "--config", cfg, "snapshot", "ZZZZ")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insight error")
	assert.Contains(t, out, "== Chart & indicators [ready] ==")
	assert.Contains(t, out, "== Insight & prediction [error] ==")
	assert.Contains(t, out, "error loading data")
	assert.NotContains(t, out, "unknown symbol")
}

func TestSnapshotRequiresSymbol(t *testing.T) {
	srv := apitest.New(t)
	cfg := writeConfig(t, srv, "")

	_, err := execute(t, "--config", cfg, "snapshot", "  ")
	require.Error(t, err)
	assert.Empty(t, srv.Calls())
}

func TestExportToFile(t *testing.T) {
	srv := apitest.New(t)
	cfg := writeConfig(t, srv, "")
	path := filepath.Join(t.TempDir(), "aapl.parquet")

	out, err := execute(t, "--config", cfg, "export", "aapl", "-o", path)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote 3 points for AAPL")

	points, err := store.ReadHistoryFile(path)
	require.NoError(t, err)
	require.Len(t, points, 3)
	assert.Equal(t, "2024-01-02", points[0].Date.String())
	assert.False(t, points[0].SMA20.Valid)
	assert.True(t, points[2].SMA50.Valid)
}

func TestExportToDataDir(t *testing.T) {
	srv := apitest.New(t)
	cfg := writeConfig(t, srv, "")

	out, err := execute(t, "--config", cfg, "export", "AAPL")
	require.NoError(t, err)
	assert.Contains(t, out, "merged 3 points for AAPL")
	assert.Contains(t, out, "(3 stored)")

	// A second export over a longer series merges by date.
	srv.Handle(apitest.RouteHistory, apitest.JSON(http.StatusOK, func(string) any {
		return append(apitest.HistoryFixture(), apitest.Point("2024-01-05", 181.18, nil, nil))
	}))
	out, err = execute(t, "--config", cfg, "export", "AAPL")
	require.NoError(t, err)
	assert.Contains(t, out, "merged 4 points for AAPL")
	assert.Contains(t, out, "(4 stored)")

	dataDir := filepath.Join(filepath.Dir(cfg), "data")
	_, err = os.Stat(filepath.Join(dataDir, "daily", "AAPL", "2024.parquet"))
	require.NoError(t, err)
}

func TestExportCountsUseThousandsSeparators(t *testing.T) {
	srv := apitest.New(t)
	srv.Handle(apitest.RouteHistory, apitest.JSON(http.StatusOK, func(string) any {
		start := time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC)
		points := make([]map[string]any, 1200)
		for i := range points {
			points[i] = apitest.Point(start.AddDate(0, 0, i).Format("2006-01-02"), 100+float64(i%50), nil, nil)
		}
		return points
	}))
	cfg := writeConfig(t, srv, "")

	out, err := execute(t, "--config", cfg, "export", "AAPL", "-o", filepath.Join(t.TempDir(), "a.parquet"))
	require.NoError(t, err)
	assert.Contains(t, out, "wrote 1,200 points for AAPL")
}

func TestExportServerErrorIsNotRetried(t *testing.T) {
	srv := apitest.New(t)
	srv.Fail(apitest.RouteHistory, http.StatusNotFound, "unknown symbol")
	cfg := writeConfig(t, srv, "")

	_, err := execute(t, "--config", cfg, "export", "ZZZZ", "-o", filepath.Join(t.TempDir(), "z.parquet"))
	require.Error(t, err)
	assert.ErrorIs(t, err, marketview.ErrServer)
	assert.Len(t, srv.Calls(apitest.RouteHistory), 1)
}

func TestExportRetriesNetworkErrors(t *testing.T) {
	srv := apitest.New(t)
	var served atomic.Int32
	srv.Handle(apitest.RouteHistory, func(w http.ResponseWriter, r *http.Request, sym string) {
		if served.Add(1) == 1 {
			conn, _, err := w.(http.Hijacker).Hijack()
			if err == nil {
				conn.Close()
			}
			return
		}
		apitest.JSON(http.StatusOK, func(string) any { return apitest.HistoryFixture() })(w, r, sym)
	})
	cfg := writeConfig(t, srv, "")
	path := filepath.Join(t.TempDir(), "aapl.parquet")

	_, err := execute(t, "--config", cfg, "export", "AAPL", "-o", path)
	require.NoError(t, err)
	assert.Len(t, srv.Calls(apitest.RouteHistory), 2)

	points, err := store.ReadHistoryFile(path)
	require.NoError(t, err)
	assert.Len(t, points, 3)
}

func TestExportGivesUpAfterRetries(t *testing.T) {
	srv := apitest.New(t)
	srv.Handle(apitest.RouteHistory, func(w http.ResponseWriter, _ *http.Request, _ string) {
		conn, _, err := w.(http.Hijacker).Hijack()
		if err == nil {
			conn.Close()
		}
	})
	cfg := writeConfig(t, srv, "")

	_, err := execute(t, "--config", cfg, "export", "AAPL", "--retries", "1", "-o", filepath.Join(t.TempDir(), "a.parquet"))
	require.Error(t, err)
	assert.ErrorIs(t, err, marketview.ErrNetwork)
	assert.Len(t, srv.Calls(apitest.RouteHistory), 2)
}

func TestJournalListsSnapshotFetches(t *testing.T) {
	srv := apitest.New(t)
	srv.Fail(apitest.RouteQuote, http.StatusInternalServerError, "boom")
	dbPath := filepath.Join(t.TempDir(), "fetches.db")
	cfg := writeConfig(t, srv, fmt.Sprintf("journal:\n  sqlite_path: %s\n", dbPath))

	_, err := execute(t, "--config", cfg, "snapshot", "AAPL")
	require.Error(t, err)

	out, err := execute(t, "--config", cfg, "journal", "--limit", "10")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "OUTCOME")
	body := strings.Join(lines[1:], "\n")
	assert.Contains(t, body, "chart")
	assert.Contains(t, body, "insight")
	assert.Contains(t, body, "ready")
	assert.Contains(t, body, "500")
}

func TestJournalRequiresPath(t *testing.T) {
	srv := apitest.New(t)
	cfg := writeConfig(t, srv, "")

	_, err := execute(t, "--config", cfg, "journal")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no journal configured")
}

func TestInvalidConfig(t *testing.T) {
	srv := apitest.New(t)
	cfg := writeConfig(t, srv, "logging:\n  level: loud\n")

	_, err := execute(t, "--config", cfg, "snapshot", "AAPL")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading config")
	assert.Empty(t, srv.Calls())
}
