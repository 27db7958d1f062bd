package oracle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Bar is one daily OHLCV bar
type Bar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// TypicalPrice returns (H+L+C)/3
func (b Bar) TypicalPrice() float64 {
	return (b.High + b.Low + b.Close) / 3
}

// Oracle returns daily bars of a security or index.
// 데이터가 없거나 상장폐지/알 수 없는 코드는 에러가 아니라 빈 슬라이스
// ⭐ SSOT: 백테스트의 가격 조회는 이 인터페이스로만
type Oracle interface {
	PriceSeries(ctx context.Context, id string, start, end time.Time) ([]Bar, error)
}

// PriceMethod selects which price of the first/last bar is used
type PriceMethod string

const (
	MethodOpen  PriceMethod = "open"
	MethodClose PriceMethod = "close"
	// MethodVWAP: 첫/마지막 봉의 typical price 근사 (거래량 가중 아님)
	MethodVWAP PriceMethod = "vwap"
)

// ErrInvalidPriceMethod is a configuration error, raised before any fetch
var ErrInvalidPriceMethod = errors.New("invalid price method")

// PriceMethods lists the accepted methods
func PriceMethods() []PriceMethod {
	return []PriceMethod{MethodOpen, MethodClose, MethodVWAP}
}

// ParsePriceMethod validates a method name
func ParsePriceMethod(s string) (PriceMethod, error) {
	switch m := PriceMethod(strings.ToLower(strings.TrimSpace(s))); m {
	case MethodOpen, MethodClose, MethodVWAP:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q (open|close|vwap)", ErrInvalidPriceMethod, s)
	}
}

// Valid reports whether m is exactly one of the known methods
func (m PriceMethod) Valid() bool {
	switch m {
	case MethodOpen, MethodClose, MethodVWAP:
		return true
	}
	return false
}

// EntryExit derives entry/exit prices from the first and last bar.
// bars 는 날짜 오름차순, 2개 이상이어야 함
func EntryExit(bars []Bar, method PriceMethod) (entry, exit float64, err error) {
	if len(bars) < 2 {
		return 0, 0, fmt.Errorf("need at least 2 bars, got %d", len(bars))
	}

	first, last := bars[0], bars[len(bars)-1]
	switch method {
	case MethodOpen:
		return first.Open, last.Open, nil
	case MethodClose:
		return first.Close, last.Close, nil
	case MethodVWAP:
		return first.TypicalPrice(), last.TypicalPrice(), nil
	default:
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidPriceMethod, method)
	}
}
