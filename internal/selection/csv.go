package selection

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// 헤더 별칭: 상반기/하반기 엑셀 변환 결과와 영문 헤더를 모두 허용
var columnAliases = map[string][]string{
	"ticker":         {"티커", "종목코드", "ticker", "code"},
	"name":           {"종목명", "name"},
	"short_strength": {"강도_단기", "강도_단기(10d)", "short_strength"},
	"long_strength":  {"강도_장기", "강도_장기(20d)", "long_strength"},
	"score":          {"최종점수", "score"},
	"remark":         {"비고", "비고(선정사유)", "remark"},
}

var requiredColumns = []string{"ticker", "name", "score", "remark"}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVSource reads <dir>/<group>.csv files (2주 리밸런싱 분할 결과)
type CSVSource struct {
	name string
	dir  string
}

// NewCSVSource creates a source over dir. name defaults to the directory name.
func NewCSVSource(dir, name string) *CSVSource {
	if name == "" {
		name = filepath.Base(filepath.Clean(dir))
	}
	return &CSVSource{name: name, dir: dir}
}

// Name implements Source
func (s *CSVSource) Name() string {
	return s.name
}

// Dir returns the directory the source reads from
func (s *CSVSource) Dir() string {
	return s.dir
}

// Groups implements Source
func (s *CSVSource) Groups(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read selection dir %s: %w", s.dir, err)
	}

	var ids []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())))
	}

	SortGroupIDs(ids)
	return ids, nil
}

// Load implements Source
func (s *CSVSource) Load(ctx context.Context, group string) (*List, error) {
	path := filepath.Join(s.dir, group+".csv")

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrGroupNotFound, group)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	entries, err := ParseCSV(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	return &List{Group: group, Entries: entries}, nil
}

// ParseCSV decodes a selection CSV (header row required)
func ParseCSV(r io.Reader) ([]Entry, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	raw = bytes.TrimPrefix(raw, utf8BOM)

	reader := csv.NewReader(bytes.NewReader(raw))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("missing header row")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	cols := resolveColumns(header)
	for _, req := range requiredColumns {
		if _, ok := cols[req]; !ok {
			return nil, fmt.Errorf("missing required column %q", req)
		}
	}

	entries := make([]Entry, 0)
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		field := func(key string) string {
			i, ok := cols[key]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		ticker := field("ticker")
		if ticker == "" {
			continue // 빈 행
		}

		score, err := parseFloat(field("score"))
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid score %q: %w", line, field("score"), err)
		}

		entry := NewEntry(ticker, field("name"), score, field("remark")).
			WithStrengths(optionalFloat(field("short_strength")), optionalFloat(field("long_strength")))
		entries = append(entries, entry)
	}

	return entries, nil
}

func resolveColumns(header []string) map[string]int {
	cols := make(map[string]int)
	for i, h := range header {
		h = strings.TrimSpace(h)
		for key, aliases := range columnAliases {
			if _, done := cols[key]; done {
				continue
			}
			for _, alias := range aliases {
				if strings.EqualFold(h, alias) {
					cols[key] = i
					break
				}
			}
		}
	}
	return cols
}

func parseFloat(s string) (float64, error) {
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0, fmt.Errorf("empty value")
	}
	return strconv.ParseFloat(s, 64)
}

func optionalFloat(s string) *float64 {
	v, err := parseFloat(s)
	if err != nil {
		return nil
	}
	return &v
}
