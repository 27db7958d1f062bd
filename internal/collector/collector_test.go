package collector

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2Arong/BITA-Active-ETF/internal/calendar"
	"github.com/2Arong/BITA-Active-ETF/internal/oracle"
	"github.com/2Arong/BITA-Active-ETF/internal/selection"
	"github.com/2Arong/BITA-Active-ETF/pkg/logger"
)

func day(d int) time.Time {
	return time.Date(2025, time.January, d, 0, 0, 0, 0, time.UTC)
}

type mapOracle map[string][]oracle.Bar

func (m mapOracle) PriceSeries(ctx context.Context, id string, start, end time.Time) ([]oracle.Bar, error) {
	if id == "broken" {
		return nil, errors.New("upstream down")
	}
	return m[id], nil
}

type memoryWriter struct {
	mu   sync.Mutex
	bars map[string][]oracle.Bar
}

func (w *memoryWriter) SaveBars(ctx context.Context, id string, bars []oracle.Bar) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.bars[id] = bars
	return nil
}

func TestValidBars(t *testing.T) {
	bars := []oracle.Bar{
		{Date: day(2), High: 11, Low: 9, Close: 10},
		{Date: day(2), High: 11, Low: 9, Close: 10},
		{Date: day(3), High: 11, Low: 9, Close: 0},
		{Date: day(6), High: 8, Low: 9, Close: 10},
		{Date: day(7), High: 12, Low: 10, Close: 11},
	}

	valid, dropped := ValidBars(bars)
	assert.Len(t, valid, 2)
	assert.Equal(t, 3, dropped)
	assert.True(t, valid[1].Date.Equal(day(7)))
}

func TestUniverse(t *testing.T) {
	src := selection.NewMemorySource("test",
		&selection.List{Group: "g1", Entries: []selection.Entry{selection.NewEntry("5930", "삼성전자", 1, "")}},
		&selection.List{Group: "g2", Entries: []selection.Entry{
			selection.NewEntry("005930", "삼성전자", 1, ""),
			selection.NewEntry("000660", "SK하이닉스", 1, ""),
		}},
	)

	ids, err := Universe(context.Background(), src, []string{"KS11", "000660"})
	require.NoError(t, err)
	assert.Equal(t, []string{"000660", "005930", "KS11"}, ids)
}

func TestWindow(t *testing.T) {
	from, to := Window(calendar.Default())
	assert.True(t, from.Equal(calendar.Date(2025, time.January, 2)))
	assert.True(t, to.Equal(calendar.Date(2026, time.January, 14)))
}

func TestSyncPrices(t *testing.T) {
	src := mapOracle{
		"005930": {
			{Date: day(2), High: 11, Low: 9, Close: 10},
			{Date: day(3), High: 11, Low: 9, Close: 0},
		},
		"KS11": {{Date: day(2), High: 2500, Low: 2400, Close: 2450.5}},
	}
	sink := &memoryWriter{bars: make(map[string][]oracle.Bar)}
	c := NewCollector(src, sink, logger.NewNop())

	results := c.SyncPrices(context.Background(), []string{"KS11", "005930", "broken"}, day(1), day(31), Config{Workers: 2})
	require.Len(t, results, 3)

	assert.Equal(t, "005930", results[0].ID)
	assert.Equal(t, 1, results[0].Saved)
	assert.Equal(t, 1, results[0].Dropped)
	assert.NoError(t, results[0].Error)

	assert.Equal(t, "KS11", results[1].ID)
	assert.Equal(t, 2450.5, sink.bars["KS11"][0].Close)

	assert.Equal(t, "broken", results[2].ID)
	assert.Error(t, results[2].Error)
	assert.NotContains(t, sink.bars, "broken")
}
