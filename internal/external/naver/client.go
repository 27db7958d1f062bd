package naver

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding/korean"

	"github.com/2Arong/BITA-Active-ETF/pkg/config"
	"github.com/2Arong/BITA-Active-ETF/pkg/httputil"
	"github.com/2Arong/BITA-Active-ETF/pkg/logger"
)

const (
	defaultBaseURL  = "https://finance.naver.com"
	defaultChartURL = "https://fchart.stock.naver.com"
)

// Client handles communication with Naver Finance
// ⭐ SSOT: Naver Finance API 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
	chartURL   string
}

// NewClient creates a new Naver Finance client
func NewClient(cfg *config.Config, httpClient *httputil.Client, log *logger.Logger) *Client {
	c := &Client{
		httpClient: httpClient,
		logger:     log,
		baseURL:    defaultBaseURL,
		chartURL:   defaultChartURL,
	}
	if cfg != nil {
		if cfg.Naver.BaseURL != "" {
			c.baseURL = strings.TrimRight(cfg.Naver.BaseURL, "/")
		}
		if cfg.Naver.ChartURL != "" {
			c.chartURL = strings.TrimRight(cfg.Naver.ChartURL, "/")
		}
	}

	httpClient.
		WithHeader("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36").
		WithHeader("Referer", defaultBaseURL+"/")

	return c
}

// fetchHTML fetches an HTML page from Naver Finance as UTF-8.
// finance.naver.com 페이지는 EUC-KR 이므로 필요 시 변환
func (c *Client) fetchHTML(ctx context.Context, path string, params url.Values) (string, error) {
	fullURL := fmt.Sprintf("%s%s", c.baseURL, path)
	if len(params) > 0 {
		fullURL = fmt.Sprintf("%s?%s", fullURL, params.Encode())
	}

	body, err := c.httpClient.GetBytes(ctx, fullURL)
	if err != nil {
		return "", fmt.Errorf("HTTP request failed: %w", err)
	}

	if !utf8.Valid(body) {
		decoded, err := korean.EUCKR.NewDecoder().Bytes(body)
		if err != nil {
			return "", fmt.Errorf("decode euc-kr: %w", err)
		}
		body = decoded
	}

	return string(body), nil
}

// PriceData represents one daily bar.
// 지수(KOSPI 등)는 소수점 가격이므로 float64
type PriceData struct {
	StockCode  string    `json:"stock_code"`
	TradeDate  time.Time `json:"trade_date"`
	OpenPrice  float64   `json:"open"`
	HighPrice  float64   `json:"high"`
	LowPrice   float64   `json:"low"`
	ClosePrice float64   `json:"close"`
	Volume     int64     `json:"volume"`
}
