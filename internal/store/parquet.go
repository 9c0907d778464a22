package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/shopspring/decimal"

	"marketview/pkg/marketview"
)

// Compile-time interface check.
var _ HistoryStore = (*ParquetStore)(nil)

// ParquetStore implements HistoryStore using Parquet files on disk.
type ParquetStore struct {
	DataDir string
}

// NewParquetStore creates a new ParquetStore rooted at the given data directory.
func NewParquetStore(dataDir string) *ParquetStore {
	return &ParquetStore{DataDir: dataDir}
}

// ---------------------------------------------------------------------------
// Parquet record type (on-disk schema)
// ---------------------------------------------------------------------------

// HistoryRecord is the Parquet schema for one point of a historical series.
// Values the service did not provide are stored as nulls.
type HistoryRecord struct {
	Symbol    string   `parquet:"symbol"`
	Timestamp int64    `parquet:"timestamp,timestamp(millisecond)"` // Unix ms, midnight UTC
	Open      *float64 `parquet:"open,optional"`
	High      *float64 `parquet:"high,optional"`
	Low       *float64 `parquet:"low,optional"`
	Close     float64  `parquet:"close"`
	Volume    int64    `parquet:"volume"`
	SMA20     *float64 `parquet:"sma_20,optional"`
	SMA50     *float64 `parquet:"sma_50,optional"`
}

// ToRecords converts a series to Parquet rows, keeping its order.
func ToRecords(symbol string, points []marketview.HistoricalPoint) []HistoryRecord {
	out := make([]HistoryRecord, len(points))
	for i, p := range points {
		out[i] = HistoryRecord{
			Symbol:    symbol,
			Timestamp: p.Date.UnixMilli(),
			Open:      floatPtr(p.Open),
			High:      floatPtr(p.High),
			Low:       floatPtr(p.Low),
			Close:     p.Close.InexactFloat64(),
			Volume:    p.Volume,
			SMA20:     floatPtr(p.SMA20),
			SMA50:     floatPtr(p.SMA50),
		}
	}
	return out
}

// FromRecords converts Parquet rows back to a series, keeping their order.
func FromRecords(records []HistoryRecord) []marketview.HistoricalPoint {
	out := make([]marketview.HistoricalPoint, len(records))
	for i, r := range records {
		out[i] = marketview.HistoricalPoint{
			Date:   marketview.Date{Time: time.UnixMilli(r.Timestamp).UTC()},
			Open:   nullDecimal(r.Open),
			High:   nullDecimal(r.High),
			Low:    nullDecimal(r.Low),
			Close:  decimal.NewFromFloat(r.Close),
			Volume: r.Volume,
			SMA20:  nullDecimal(r.SMA20),
			SMA50:  nullDecimal(r.SMA50),
		}
	}
	return out
}

func floatPtr(d decimal.NullDecimal) *float64 {
	if !d.Valid {
		return nil
	}
	f := d.Decimal.InexactFloat64()
	return &f
}

func nullDecimal(f *float64) decimal.NullDecimal {
	if f == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(decimal.NewFromFloat(*f))
}

// ---------------------------------------------------------------------------
// Single-file export
// ---------------------------------------------------------------------------

// WriteHistoryFile writes points to a single Parquet file at path, replacing
// any existing file. Rows keep the order of points.
func WriteHistoryFile(path, symbol string, points []marketview.HistoricalPoint) error {
	if err := writeParquetFile(path, ToRecords(symbol, points)); err != nil {
		return fmt.Errorf("writing history for %s: %w", symbol, err)
	}
	return nil
}

// ReadHistoryFile reads a file written by WriteHistoryFile.
func ReadHistoryFile(path string) ([]marketview.HistoricalPoint, error) {
	records, err := readParquetFile[HistoryRecord](path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return FromRecords(records), nil
}

// ---------------------------------------------------------------------------
// HistoryStore implementation
// ---------------------------------------------------------------------------

// WriteHistory writes points to Parquet files organized by symbol and year.
// Each symbol+year combination produces a separate file at:
//
//	<DataDir>/daily/<SYMBOL>/<YYYY>.parquet
//
// Existing rows for the same date are replaced.
func (s *ParquetStore) WriteHistory(_ context.Context, symbol string, points []marketview.HistoricalPoint) error {
	if len(points) == 0 {
		return nil
	}

	groups := make(map[int][]HistoryRecord)
	for _, r := range ToRecords(symbol, points) {
		year := time.UnixMilli(r.Timestamp).UTC().Year()
		groups[year] = append(groups[year], r)
	}

	for year, records := range groups {
		path := s.historyPath(symbol, year)

		// Read existing records to merge. Only a missing file counts as empty.
		var existing []HistoryRecord
		if _, err := os.Stat(path); err == nil {
			existing, err = readParquetFile[HistoryRecord](path)
			if err != nil {
				return fmt.Errorf("reading %s: %w", path, err)
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		merged := mergeHistoryRecords(existing, records)

		if err := writeParquetFile(path, merged); err != nil {
			return fmt.Errorf("writing history for %s/%d: %w", symbol, year, err)
		}
	}
	return nil
}

// ReadHistory reads every stored year for symbol, in date order.
func (s *ParquetStore) ReadHistory(_ context.Context, symbol string) ([]marketview.HistoricalPoint, error) {
	dir := filepath.Dir(s.historyPath(symbol, 0))
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var records []HistoryRecord
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".parquet" {
			continue
		}
		rows, err := readParquetFile[HistoryRecord](filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", e.Name(), err)
		}
		records = append(records, rows...)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].Timestamp < records[j].Timestamp
	})
	return FromRecords(records), nil
}

// historyPath returns the filesystem path for a history Parquet file.
// Layout: <dataDir>/daily/<SYMBOL>/<YYYY>.parquet
func (s *ParquetStore) historyPath(symbol string, year int) string {
	name := strings.ReplaceAll(strings.ToUpper(symbol), "/", "-")
	return filepath.Join(s.DataDir, "daily", name, fmt.Sprintf("%d.parquet", year))
}

// ---------------------------------------------------------------------------
// Parquet file helpers
// ---------------------------------------------------------------------------

func writeParquetFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

func readParquetFile[T any](path string) ([]T, error) {
	rows, err := parquet.ReadFile[T](path)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// mergeHistoryRecords deduplicates records by timestamp, preferring incoming
// records over existing ones. Results are sorted by timestamp.
func mergeHistoryRecords(existing, incoming []HistoryRecord) []HistoryRecord {
	seen := make(map[int64]HistoryRecord, len(existing)+len(incoming))
	for _, r := range existing {
		seen[r.Timestamp] = r
	}
	for _, r := range incoming {
		seen[r.Timestamp] = r
	}

	merged := make([]HistoryRecord, 0, len(seen))
	for _, r := range seen {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Timestamp < merged[j].Timestamp
	})
	return merged
}
