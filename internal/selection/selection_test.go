package selection

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyRemark(t *testing.T) {
	tests := []struct {
		text string
		want Remark
	}{
		{"중복선정", RemarkDuplicate},
		{"단기+장기 중복", RemarkDuplicate},
		{"duplicate-short-long", RemarkDuplicate},
		{"단기상위", RemarkShort},
		{"short", RemarkShort},
		{"Short horizon", RemarkShort},
		{"장기상위", RemarkLong},
		{"long", RemarkLong},
		{"", RemarkLong},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyRemark(tt.text))
		})
	}
}

func TestRemark_TextRoundTrip(t *testing.T) {
	for _, r := range []Remark{RemarkLong, RemarkShort, RemarkDuplicate} {
		text, err := r.MarshalText()
		require.NoError(t, err)

		var got Remark
		require.NoError(t, got.UnmarshalText(text))
		assert.Equal(t, r, got)
	}
	assert.Equal(t, "중복선정 (단기+장기)", RemarkDuplicate.Label())
}

func TestNormalizeTicker(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"5930", "005930"},
		{"005930", "005930"},
		{" 660 ", "000660"},
		{"441800", "441800"},
		{"KS11", "KS11"},
		{"0088M0", "0088M0"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeTicker(tt.in))
		})
	}
}

func TestNewEntry(t *testing.T) {
	e := NewEntry("5930", " 삼성전자 ", -1.5, " 중복 ")

	assert.Equal(t, "005930", e.Ticker)
	assert.Equal(t, "삼성전자", e.Name)
	assert.Equal(t, -1.5, e.Score)
	assert.Equal(t, "중복", e.RemarkText)
	assert.Equal(t, RemarkDuplicate, e.Remark)
	assert.Nil(t, e.ShortStrength)
}

func TestSortGroupIDs(t *testing.T) {
	ids := []string{"g10", "g2", "extra", "g1", "G3"}
	SortGroupIDs(ids)
	assert.Equal(t, []string{"g1", "g2", "G3", "g10", "extra"}, ids)
}

func TestParseCSV(t *testing.T) {
	data := "\ufeff티커,종목명,강도_단기,강도_장기,최종점수,비고\n" +
		"5930,삼성전자,1.2,0.8,10.5,중복선정\n" +
		"000660,SK하이닉스,,0.5,-3,장기상위\n" +
		",,,,,\n"

	entries, err := ParseCSV(strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "005930", entries[0].Ticker)
	require.NotNil(t, entries[0].ShortStrength)
	assert.Equal(t, 1.2, *entries[0].ShortStrength)
	assert.Equal(t, RemarkDuplicate, entries[0].Remark)

	assert.Equal(t, "000660", entries[1].Ticker)
	assert.Nil(t, entries[1].ShortStrength)
	assert.Equal(t, -3.0, entries[1].Score)
	assert.Equal(t, RemarkLong, entries[1].Remark)
}

func TestParseCSV_Aliases(t *testing.T) {
	data := "종목코드,종목명,최종_수급점수,최종점수,비고(선정사유)\n35420,NAVER,1,2.5,단기상위\n"

	entries, err := ParseCSV(strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, entries, 1)

	assert.Equal(t, "035420", entries[0].Ticker)
	assert.Equal(t, 2.5, entries[0].Score)
	assert.Equal(t, RemarkShort, entries[0].Remark)
}

func TestParseCSV_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty", ""},
		{"missing score column", "ticker,name,remark\n005930,삼성전자,short\n"},
		{"bad score", "ticker,name,score,remark\n005930,삼성전자,abc,short\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCSV(strings.NewReader(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestCSVSource(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "외국인단독")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	write := func(name, body string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	write("g10.csv", "ticker,name,score,remark\n005930,삼성전자,1,short\n")
	write("g2.csv", "ticker,name,score,remark\n000660,SK하이닉스,2,long\n")
	write("notes.txt", "ignored")

	src := NewCSVSource(dir, "")
	assert.Equal(t, "외국인단독", src.Name())

	ctx := context.Background()
	groups, err := src.Groups(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"g2", "g10"}, groups)

	list, err := src.Load(ctx, "g2")
	require.NoError(t, err)
	assert.Equal(t, "g2", list.Group)
	assert.Equal(t, []string{"000660"}, list.Tickers())

	_, err = src.Load(ctx, "g99")
	assert.ErrorIs(t, err, ErrGroupNotFound)
}

func TestCSVSource_MissingDir(t *testing.T) {
	_, err := NewCSVSource(filepath.Join(t.TempDir(), "nope"), "x").Groups(context.Background())
	assert.Error(t, err)
}

func TestMemorySource(t *testing.T) {
	ctx := context.Background()
	src := NewMemorySource("mem",
		&List{Group: "g3", Entries: []Entry{NewEntry("005930", "삼성전자", 1, "short")}},
		&List{Group: "g1"},
	)

	groups, err := src.Groups(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"g1", "g3"}, groups)

	list, err := src.Load(ctx, "g3")
	require.NoError(t, err)
	list.Entries[0].Ticker = "mutated"

	again, err := src.Load(ctx, "g3")
	require.NoError(t, err)
	assert.Equal(t, "005930", again.Entries[0].Ticker)

	empty, err := src.Load(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Len())

	_, err = src.Load(ctx, "g2")
	assert.ErrorIs(t, err, ErrGroupNotFound)
}
