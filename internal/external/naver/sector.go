package naver

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// UnknownSector is used when a stock has no 업종 link (ETF, 스팩 등)
const UnknownSector = "기타"

// FetchSector returns the 업종 name shown on a stock's main page
func (c *Client) FetchSector(ctx context.Context, stockCode string) (string, error) {
	html, err := c.fetchHTML(ctx, "/item/main.naver", url.Values{"code": {stockCode}})
	if err != nil {
		return "", err
	}

	sector, err := parseSectorHTML(html)
	if err != nil {
		return "", fmt.Errorf("parse sector of %s: %w", stockCode, err)
	}

	c.logger.WithFields(map[string]interface{}{
		"stock_code": stockCode,
		"sector":     sector,
	}).Debug("Fetched sector")
	return sector, nil
}

// parseSectorHTML extracts the 업종 link text
func parseSectorHTML(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}

	link := doc.Find(`a[href*="sise_group_detail.naver?type=upjong"]`).First()
	sector := strings.TrimSpace(link.Text())
	if sector == "" {
		return UnknownSector, nil
	}
	return sector, nil
}
