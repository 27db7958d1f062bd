package weighting

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2Arong/BITA-Active-ETF/internal/selection"
)

const tolerance = 1e-9

func entries(scores []float64, remarks []string) []selection.Entry {
	out := make([]selection.Entry, len(scores))
	for i := range scores {
		out[i] = selection.NewEntry("00000"+string(rune('1'+i)), "종목", scores[i], remarks[i])
	}
	return out
}

func TestWeights_SumToOne(t *testing.T) {
	lists := map[string][]selection.Entry{
		"single":        entries([]float64{3}, []string{"long"}),
		"mixed remarks": entries([]float64{1, 2, 3, 4}, []string{"short", "중복", "장기", "duplicate"}),
		"negatives":     entries([]float64{-1, 5, 0.5}, []string{"short", "short", "long"}),
		"all negative":  entries([]float64{-1, -2}, []string{"short", "long"}),
	}

	for _, scheme := range []Scheme{EqualDuplicateBonus{}, ScoreProportional{}} {
		for name, list := range lists {
			t.Run(scheme.Name()+"/"+name, func(t *testing.T) {
				w, err := scheme.Weights(list)
				require.NoError(t, err)
				require.Len(t, w, len(list))
				assert.InDelta(t, 1.0, w.Sum(), tolerance)
				for _, x := range w {
					assert.GreaterOrEqual(t, x, 0.0)
				}
			})
		}
	}
}

func TestEqualDuplicateBonus_DoublesDuplicate(t *testing.T) {
	list := entries([]float64{1, 1, 1}, []string{"단기상위", "중복선정", "장기상위"})

	w, err := EqualDuplicateBonus{}.Weights(list)
	require.NoError(t, err)

	assert.InDelta(t, 2*w[0], w[1], tolerance)
	assert.InDelta(t, w[0], w[2], tolerance)
	assert.InDelta(t, 0.25, w[0], tolerance)
}

func TestEqualDuplicateBonus_Empty(t *testing.T) {
	_, err := EqualDuplicateBonus{}.Weights(nil)
	assert.ErrorIs(t, err, ErrEmptySelection)
}

func TestScoreProportional(t *testing.T) {
	tests := []struct {
		name   string
		scores []float64
		want   []float64
	}{
		{"proportional", []float64{1, 3}, []float64{0.25, 0.75}},
		{"negative clipped", []float64{10, -5}, []float64{1, 0}},
		{"all zero uniform", []float64{0, 0, 0, 0}, []float64{0.25, 0.25, 0.25, 0.25}},
		{"all negative uniform", []float64{-1, -2}, []float64{0.5, 0.5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			remarks := make([]string, len(tt.scores))
			w, err := ScoreProportional{}.Weights(entries(tt.scores, remarks))
			require.NoError(t, err)
			assert.InDeltaSlice(t, tt.want, []float64(w), tolerance)
		})
	}
}

func TestScoreProportional_Empty(t *testing.T) {
	w, err := ScoreProportional{}.Weights(nil)
	require.NoError(t, err)
	assert.Empty(t, w)
}

func TestTwoSecurityScenario(t *testing.T) {
	list := entries([]float64{10, -5}, []string{"short", "duplicate-short-long"})

	eq, err := EqualDuplicateBonus{}.Weights(list)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{1.0 / 3, 2.0 / 3}, []float64(eq), tolerance)

	sc, err := ScoreProportional{}.Weights(list)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{1, 0}, []float64(sc), tolerance)
}

type fixedScheme struct{}

func (fixedScheme) Name() string  { return "first" }
func (fixedScheme) Label() string { return "첫 종목 100%" }
func (fixedScheme) Weights(e []selection.Entry) (Vector, error) {
	w := make(Vector, len(e))
	if len(e) > 0 {
		w[0] = 1
	}
	return w, nil
}

func TestParse(t *testing.T) {
	schemes, err := Parse([]string{"equal", " SCORE ", "equal"})
	require.NoError(t, err)
	require.Len(t, schemes, 2)
	assert.Equal(t, "equal", schemes[0].Name())
	assert.Equal(t, "score", schemes[1].Name())

	_, err = Parse(nil)
	assert.ErrorIs(t, err, ErrInvalidScheme)

	_, err = Parse([]string{"momentum"})
	assert.ErrorIs(t, err, ErrInvalidScheme)
}

func TestRegister(t *testing.T) {
	Register(fixedScheme{})

	s, ok := Lookup("first")
	require.True(t, ok)
	assert.Equal(t, "첫 종목 100%", s.Label())
	assert.Contains(t, Names(), "first")
}

type mixedCaseScheme struct{ fixedScheme }

func (mixedCaseScheme) Name() string { return "TopPick" }

func TestRegister_MixedCaseName(t *testing.T) {
	Register(mixedCaseScheme{})

	for _, name := range []string{"TopPick", "toppick", " TOPPICK "} {
		s, ok := Lookup(name)
		require.True(t, ok, name)
		assert.Equal(t, "TopPick", s.Name())
	}

	schemes, err := Parse([]string{"TopPick"})
	require.NoError(t, err)
	require.Len(t, schemes, 1)
}
