package selection

import (
	"strings"
)

// Remark is the selection reason of an entry (비고)
type Remark int

const (
	RemarkLong      Remark = iota // 장기상위
	RemarkShort                   // 단기상위
	RemarkDuplicate               // 중복선정 (단기+장기)
)

// ClassifyRemark parses the free-text 비고 column once.
// 중복 표시가 단기/장기 표시보다 우선
func ClassifyRemark(text string) Remark {
	s := strings.ToLower(text)
	switch {
	case strings.Contains(s, "중복"), strings.Contains(s, "duplicate"):
		return RemarkDuplicate
	case strings.Contains(s, "단기"), strings.Contains(s, "short"):
		return RemarkShort
	default:
		return RemarkLong
	}
}

// String returns the machine name of the remark
func (r Remark) String() string {
	switch r {
	case RemarkDuplicate:
		return "duplicate"
	case RemarkShort:
		return "short"
	default:
		return "long"
	}
}

// Label returns the dashboard wording of the remark
func (r Remark) Label() string {
	switch r {
	case RemarkDuplicate:
		return "중복선정 (단기+장기)"
	case RemarkShort:
		return "단기상위"
	default:
		return "장기상위"
	}
}

// MarshalText encodes the remark as its machine name
func (r Remark) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText accepts a machine name or raw remark text
func (r *Remark) UnmarshalText(text []byte) error {
	*r = ClassifyRemark(string(text))
	return nil
}

// Entry is one candidate of a selection list
type Entry struct {
	Ticker        string   `json:"ticker"`
	Name          string   `json:"name"`
	ShortStrength *float64 `json:"short_strength,omitempty"` // 강도_단기 (상반기 파일에는 없음)
	LongStrength  *float64 `json:"long_strength,omitempty"`  // 강도_장기
	Score         float64  `json:"score"`                    // 최종점수 (음수 가능)
	RemarkText    string   `json:"remark_text"`
	Remark        Remark   `json:"remark"`
}

// NewEntry builds an entry with a normalised ticker and a classified remark
func NewEntry(ticker, name string, score float64, remark string) Entry {
	return Entry{
		Ticker:     NormalizeTicker(ticker),
		Name:       strings.TrimSpace(name),
		Score:      score,
		RemarkText: strings.TrimSpace(remark),
		Remark:     ClassifyRemark(remark),
	}
}

// WithStrengths sets the optional short/long signal strengths
func (e Entry) WithStrengths(short, long *float64) Entry {
	e.ShortStrength = short
	e.LongStrength = long
	return e
}

// NormalizeTicker left-pads numeric codes to the 6-digit KRX format.
// 엑셀 변환 과정에서 앞자리 0 이 빠진 코드 복원 (5930 → 005930)
func NormalizeTicker(ticker string) string {
	t := strings.TrimSpace(ticker)
	if t == "" || len(t) >= 6 {
		return t
	}
	for _, ch := range t {
		if ch < '0' || ch > '9' {
			return t
		}
	}
	return strings.Repeat("0", 6-len(t)) + t
}

// List is the ordered candidate list of one selection group
type List struct {
	Group   string  `json:"group"`
	Entries []Entry `json:"entries"`
}

// Len returns the number of entries
func (l *List) Len() int {
	if l == nil {
		return 0
	}
	return len(l.Entries)
}

// Tickers returns entry tickers in list order
func (l *List) Tickers() []string {
	tickers := make([]string, l.Len())
	for i, e := range l.Entries {
		tickers[i] = e.Ticker
	}
	return tickers
}
