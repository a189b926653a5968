// Package duckdb reads historical bars out of a DuckDB file. Bars are
// preloaded into memory and replayed through a cursor, the drain loop calls
// Next once per iteration.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/quantfwk/tradefwk/pkg/common"
	"github.com/quantfwk/tradefwk/pkg/datasource"
	"github.com/quantfwk/tradefwk/pkg/utility"
	"github.com/quantfwk/tradefwk/pkg/utility/fixed"
)

const readerComponentName = "duckdb-reader"

type Reader struct {
	dataSourceName string
	db             *sql.DB

	bars   []common.Bar
	cursor int
}

func NewReader(dataSourceName string) *Reader {
	return &Reader{
		dataSourceName: dataSourceName,
	}
}

func (r *Reader) Connect() error {
	db, err := sql.Open("duckdb", r.dataSourceName)
	if err != nil {
		return fmt.Errorf("unable to open duckdb source: %w", err)
	}
	r.db = db
	return nil
}

func (r *Reader) Close() {
	_ = r.db.Close()
}

// Preload reads the symbol's bars for the given window into memory, ordered
// by open time. Table layout is <symbol>_bars.
func (r *Reader) Preload(ctx context.Context, symbol string, period common.BarPeriod, from, to time.Time) error {
	query := fmt.Sprintf(`SELECT ts, open, high, low, close, tick_volume, volume, spread FROM %s_bars WHERE ts BETWEEN ? AND ? ORDER BY ts`, symbol)

	rows, err := r.db.QueryContext(ctx, query, from, to)
	if err != nil {
		return fmt.Errorf("unable to query bars: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	r.bars = r.bars[:0]
	r.cursor = 0

	for rows.Next() {
		var openTime time.Time
		var open, high, low, closePrice, tickVolume, volume, spread float64

		if err := rows.Scan(&openTime, &open, &high, &low, &closePrice, &tickVolume, &volume, &spread); err != nil {
			return fmt.Errorf("unable to scan bar row: %w", err)
		}

		r.bars = append(r.bars, common.Bar{
			Source:      readerComponentName,
			Symbol:      symbol,
			ExecutionId: utility.GetExecutionID(),
			TraceID:     utility.CreateTraceID(),
			TimeStamp:   openTime.Add(time.Duration(period)),
			OpenTime:    openTime,
			Period:      period,
			Open:        fixed.FromFloat64(open),
			High:        fixed.FromFloat64(high),
			Low:         fixed.FromFloat64(low),
			Close:       fixed.FromFloat64(closePrice),
			TickVolume:  fixed.FromFloat64(tickVolume),
			Volume:      fixed.FromFloat64(volume),
			Spread:      fixed.FromFloat64(spread),
		})
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("unable to scan bar rows: %w", err)
	}
	return nil
}

func (r *Reader) Len() int {
	return len(r.bars)
}

func (r *Reader) Next() (common.Bar, error) {
	if r.cursor >= len(r.bars) {
		return common.Bar{}, datasource.ErrEndOfData
	}
	bar := r.bars[r.cursor]
	r.cursor++
	return bar, nil
}
