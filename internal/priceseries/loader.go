package priceseries

import "context"

// MarketChartFetcher is the external market-chart HTTP collaborator
// named in spec §6 as out of scope; only its input/output contract is
// assumed here. It returns [unix_millis, price] pairs for [fromUnix,
// toUnix], both inclusive.
type MarketChartFetcher interface {
	FetchMarketChart(ctx context.Context, symbol string, fromUnix, toUnix int64) ([][2]float64, error)
}

// Loader ties the CSV store to an optional market-chart fetcher,
// refreshing stale data on load exactly as price_data.py's PriceData does.
type Loader struct {
	store   *Store
	fetcher MarketChartFetcher
}

// NewLoader builds a Loader. fetcher may be nil, in which case stale data
// is served as-is (no refill) - useful for fully offline runs.
func NewLoader(store *Store, fetcher MarketChartFetcher) *Loader {
	return &Loader{store: store, fetcher: fetcher}
}

// LoadUntil returns the stored series for symbol up to endTime, first
// refilling from the market-chart fetcher if the stored data is stale
// and a fetcher is configured.
func (l *Loader) LoadUntil(ctx context.Context, symbol string, endTime int64) ([]Point, error) {
	points, err := l.store.ReadCSV(symbol)
	if err != nil {
		return nil, err
	}

	oldest, hasData := OldestTime(points)
	if l.fetcher != nil && (!hasData || (IsStale(points, endTime) && oldest < endTime)) {
		from := int64(0)
		if hasData {
			newest, _ := NewestTime(points)
			from = newest
		}
		if err := ValidateGranularity(from, endTime); err != nil {
			return nil, err
		}
		rows, err := l.fetcher.FetchMarketChart(ctx, symbol, from, endTime)
		if err != nil {
			return nil, err
		}
		fresh := mapAndFilter(rows, from)
		if len(fresh) > 0 {
			if err := l.store.AppendCSV(symbol, fresh); err != nil {
				return nil, err
			}
			points = append(points, fresh...)
		}
	}

	return upToTimestamp(points, endTime), nil
}

// mapAndFilter converts [unix_millis, price] rows into Points, flooring
// the millisecond timestamp to seconds and discarding rows at or before
// latestTime (spec §6: "only rows with time_ms/1000 > latest_stored_time
// are appended").
func mapAndFilter(rows [][2]float64, latestTime int64) []Point {
	out := make([]Point, 0, len(rows))
	for _, row := range rows {
		t := int64(row[0]) / 1000
		if t > latestTime {
			out = append(out, Point{Time: t, Price: row[1]})
		}
	}
	return out
}

func upToTimestamp(points []Point, endTime int64) []Point {
	out := make([]Point, 0, len(points))
	for _, p := range points {
		if p.Time <= endTime {
			out = append(out, p)
		}
	}
	return out
}
