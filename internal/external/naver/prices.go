package naver

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// 차트 API 심볼 별칭 (지수 코드)
var symbolAliases = map[string]string{
	"KS11":  "KOSPI",
	"KS200": "KPI200",
	"KQ11":  "KOSDAQ",
}

// ChartSymbol maps a benchmark/stock id to the fchart symbol
func ChartSymbol(id string) string {
	if s, ok := symbolAliases[strings.ToUpper(id)]; ok {
		return s
	}
	return id
}

// FetchPrices fetches daily bars between from and to (inclusive)
// ⭐ SSOT: Naver Finance 가격 API 호출은 이 함수에서만
func (c *Client) FetchPrices(ctx context.Context, stockCode string, from, to time.Time) ([]PriceData, error) {
	fullURL := fmt.Sprintf(
		"%s/siseJson.naver?symbol=%s&requestType=1&startTime=%s&endTime=%s&timeframe=day",
		c.chartURL, ChartSymbol(stockCode), from.Format("20060102"), to.Format("20060102"),
	)

	body, err := c.httpClient.GetBytes(ctx, fullURL)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}

	prices := parsePriceResponse(string(body))
	for i := range prices {
		prices[i].StockCode = stockCode
	}

	c.logger.WithFields(map[string]interface{}{
		"stock_code": stockCode,
		"count":      len(prices),
	}).Debug("Fetched prices")
	return prices, nil
}

// parsePriceResponse parses the siseJson body (single-quoted JS array)
func parsePriceResponse(body string) []PriceData {
	body = strings.TrimSpace(body)
	body = strings.ReplaceAll(body, "'", "\"")

	var rawData [][]interface{}
	if err := json.Unmarshal([]byte(body), &rawData); err == nil {
		return parsePriceJSON(rawData)
	}

	return parsePriceRegex(body)
}

// parsePriceJSON parses JSON array format (첫 행은 헤더)
func parsePriceJSON(rawData [][]interface{}) []PriceData {
	var prices []PriceData
	for i, row := range rawData {
		if i == 0 || len(row) < 6 {
			continue
		}

		dateStr, ok := row[0].(string)
		if !ok {
			continue
		}
		tradeDate, err := time.Parse("20060102", strings.TrimSpace(dateStr))
		if err != nil {
			continue
		}

		prices = append(prices, PriceData{
			TradeDate:  tradeDate,
			OpenPrice:  toFloat64(row[1]),
			HighPrice:  toFloat64(row[2]),
			LowPrice:   toFloat64(row[3]),
			ClosePrice: toFloat64(row[4]),
			Volume:     int64(toFloat64(row[5])),
		})
	}
	return prices
}

var priceRowRe = regexp.MustCompile(
	`\[\s*"(\d{8})"\s*,\s*([\d.]+)\s*,\s*([\d.]+)\s*,\s*([\d.]+)\s*,\s*([\d.]+)\s*,\s*([\d.]+)`)

// parsePriceRegex parses using regex (JSON 이 깨졌을 때 fallback)
func parsePriceRegex(body string) []PriceData {
	var prices []PriceData
	for _, match := range priceRowRe.FindAllStringSubmatch(body, -1) {
		tradeDate, err := time.Parse("20060102", match[1])
		if err != nil {
			continue
		}

		prices = append(prices, PriceData{
			TradeDate:  tradeDate,
			OpenPrice:  toFloat64(match[2]),
			HighPrice:  toFloat64(match[3]),
			LowPrice:   toFloat64(match[4]),
			ClosePrice: toFloat64(match[5]),
			Volume:     int64(toFloat64(match[6])),
		})
	}
	return prices
}

// toFloat64 converts various types to float64
func toFloat64(v interface{}) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int64:
		return float64(val)
	case int:
		return float64(val)
	case string:
		n, _ := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(val), ",", ""), 64)
		return n
	default:
		return 0
	}
}
