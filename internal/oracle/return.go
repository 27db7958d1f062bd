package oracle

import (
	"context"
	"fmt"
	"time"
)

// WarningCode classifies a recovered data problem
type WarningCode string

const (
	WarnNoData           WarningCode = "no_data"
	WarnInsufficientBars WarningCode = "insufficient_bars"
	WarnZeroEntry        WarningCode = "zero_entry"
	WarnFetchFailed      WarningCode = "fetch_failed"
	WarnEmptySelection   WarningCode = "empty_selection"
	WarnLoadFailed       WarningCode = "load_failed"
	WarnUnknownGroup     WarningCode = "unknown_group"
	WarnWeightingFailed  WarningCode = "weighting_failed"
)

// Warning is a non-fatal data problem. 수익률은 0 으로 처리되고 백테스트는 계속됨
type Warning struct {
	Code    WarningCode `json:"code"`
	Group   string      `json:"group,omitempty"`
	ID      string      `json:"id,omitempty"`
	Message string      `json:"message"`
}

func (w Warning) String() string {
	if w.ID != "" {
		return fmt.Sprintf("[%s] %s %s: %s", w.Code, w.Group, w.ID, w.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", w.Code, w.Group, w.Message)
}

// PeriodReturn computes exit/entry - 1 over [start, end].
// 빈 시계열, 2개 미만 봉, 진입가 0, 조회 실패 → 0 과 Warning
func PeriodReturn(ctx context.Context, o Oracle, id string, start, end time.Time, method PriceMethod) (float64, *Warning) {
	bars, err := o.PriceSeries(ctx, id, start, end)
	if err != nil {
		return 0, &Warning{Code: WarnFetchFailed, ID: id, Message: err.Error()}
	}
	return ReturnFromBars(id, bars, method)
}

// ReturnFromBars applies the same policy to an already fetched series
func ReturnFromBars(id string, bars []Bar, method PriceMethod) (float64, *Warning) {
	switch {
	case len(bars) == 0:
		return 0, &Warning{Code: WarnNoData, ID: id, Message: "no price data"}
	case len(bars) < 2:
		return 0, &Warning{Code: WarnInsufficientBars, ID: id, Message: fmt.Sprintf("%d bar", len(bars))}
	}

	entry, exit, err := EntryExit(bars, method)
	if err != nil {
		return 0, &Warning{Code: WarnFetchFailed, ID: id, Message: err.Error()}
	}
	if entry == 0 {
		return 0, &Warning{Code: WarnZeroEntry, ID: id, Message: "entry price is 0"}
	}

	return exit/entry - 1, nil
}
