package oracle

import (
	"context"
	"sort"
	"time"

	"github.com/2Arong/BITA-Active-ETF/internal/external/naver"
)

// NaverOracle reads daily bars from the Naver chart API
type NaverOracle struct {
	client *naver.Client
}

// NewNaverOracle creates a Naver-backed oracle
func NewNaverOracle(client *naver.Client) *NaverOracle {
	return &NaverOracle{client: client}
}

// PriceSeries implements Oracle
func (o *NaverOracle) PriceSeries(ctx context.Context, id string, start, end time.Time) ([]Bar, error) {
	prices, err := o.client.FetchPrices(ctx, id, start, end)
	if err != nil {
		return nil, err
	}
	return barsFromNaver(prices, start, end), nil
}

// barsFromNaver converts and clips to [start, end], ascending by date
func barsFromNaver(prices []naver.PriceData, start, end time.Time) []Bar {
	bars := make([]Bar, 0, len(prices))
	for _, p := range prices {
		if p.TradeDate.Before(start) || p.TradeDate.After(end) {
			continue
		}
		bars = append(bars, Bar{
			Date:   p.TradeDate,
			Open:   p.OpenPrice,
			High:   p.HighPrice,
			Low:    p.LowPrice,
			Close:  p.ClosePrice,
			Volume: p.Volume,
		})
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return bars
}
