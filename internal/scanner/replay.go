package scanner

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	scanerrors "market-scanner/internal/errors"
	"market-scanner/internal/models"
)

// ReplayProvider serves snapshots from CSV files, advancing one bar
// per Snapshot call. Files are named <symbol>_<timeframe>.csv with a
// header row: timestamp,open,high,low,close,volume followed by any
// number of indicator columns. Indicator values are taken from the
// most recent bar of each window.
type ReplayProvider struct {
	dir     string
	minBars int

	mu      sync.Mutex
	series  map[string]*replaySeries
	lastPx  map[string]float64
}

type replaySeries struct {
	candles    []models.Candle
	indicators [][]float64
	names      []string
	cursor     int
}

// NewReplayProvider creates a provider reading from dir. minBars is
// the smallest window served; replay starts there.
func NewReplayProvider(dir string, minBars int) *ReplayProvider {
	return &ReplayProvider{
		dir:     dir,
		minBars: minBars,
		series:  make(map[string]*replaySeries),
		lastPx:  make(map[string]float64),
	}
}

// Snapshot returns the next window for the symbol/timeframe pair.
// Returns ErrInsufficientHistory once the series is exhausted.
func (p *ReplayProvider) Snapshot(ctx context.Context, symbol string, tf models.Timeframe) (*models.MarketSnapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := symbol + "_" + string(tf)
	series, ok := p.series[key]
	if !ok {
		loaded, err := p.load(symbol, tf)
		if err != nil {
			return nil, err
		}
		series = loaded
		p.series[key] = series
	}

	if series.cursor >= len(series.candles) {
		return nil, scanerrors.Wrapf(scanerrors.ErrInsufficientHistory, "%s %s replay exhausted", symbol, tf)
	}

	window := series.candles[:series.cursor+1]
	indicators := make(map[string]float64, len(series.names))
	for i, name := range series.names {
		indicators[name] = series.indicators[series.cursor][i]
	}
	p.lastPx[symbol] = window[len(window)-1].Close
	series.cursor++

	return models.NewSnapshot(symbol, tf, window, indicators, nil), nil
}

// LastPrice returns the close of the most recently served bar.
func (p *ReplayProvider) LastPrice(ctx context.Context, symbol string) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	px, ok := p.lastPx[symbol]
	if !ok {
		return 0, fmt.Errorf("no price replayed yet for %s", symbol)
	}
	return px, nil
}

func (p *ReplayProvider) load(symbol string, tf models.Timeframe) (*replaySeries, error) {
	path := filepath.Join(p.dir, fmt.Sprintf("%s_%s.csv", symbol, tf))
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening replay file: %w", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("%s: no data rows", path)
	}

	header := rows[0]
	if len(header) < 6 {
		return nil, fmt.Errorf("%s: expected at least 6 columns", path)
	}
	names := header[6:]

	series := &replaySeries{names: names, cursor: p.minBars - 1}
	for _, row := range rows[1:] {
		if len(row) != len(header) {
			return nil, fmt.Errorf("%s: ragged row", path)
		}
		ts, err := time.Parse(time.RFC3339, row[0])
		if err != nil {
			return nil, fmt.Errorf("%s: bad timestamp %q: %w", path, row[0], err)
		}
		vals := make([]float64, len(row)-1)
		for i, cell := range row[1:] {
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("%s: bad value %q: %w", path, cell, err)
			}
			vals[i] = v
		}
		series.candles = append(series.candles, models.Candle{
			Timestamp: ts,
			Open:      vals[0],
			High:      vals[1],
			Low:       vals[2],
			Close:     vals[3],
			Volume:    int64(vals[4]),
		})
		series.indicators = append(series.indicators, vals[5:])
	}

	if series.cursor < 0 {
		series.cursor = 0
	}
	if len(series.candles) < p.minBars {
		return nil, scanerrors.Wrapf(scanerrors.ErrInsufficientHistory, "%s: %d bars, need %d", path, len(series.candles), p.minBars)
	}
	return series, nil
}
