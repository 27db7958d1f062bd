package weighting

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/2Arong/BITA-Active-ETF/internal/selection"
)

var (
	// ErrEmptySelection: 빈 목록에는 동일가중이 정의되지 않음 (호출자가 막아야 함)
	ErrEmptySelection = errors.New("empty selection list")
	ErrInvalidScheme  = errors.New("invalid weighting scheme")
)

// Vector holds one weight per list entry, aligned by position
type Vector []float64

// Sum returns the total weight
func (v Vector) Sum() float64 {
	var s float64
	for _, w := range v {
		s += w
	}
	return s
}

// Scheme converts a selection list into portfolio weights.
// 비어 있지 않은 목록이면 합계가 1
type Scheme interface {
	Name() string
	Label() string
	Weights(entries []selection.Entry) (Vector, error)
}

// EqualDuplicateBonus: 중복선정(단기+장기) 종목에 2배 가중
type EqualDuplicateBonus struct{}

// Name implements Scheme
func (EqualDuplicateBonus) Name() string { return "equal" }

// Label implements Scheme
func (EqualDuplicateBonus) Label() string { return "동일가중 (중복 2배)" }

// Weights implements Scheme
func (EqualDuplicateBonus) Weights(entries []selection.Entry) (Vector, error) {
	if len(entries) == 0 {
		return nil, ErrEmptySelection
	}

	base := make([]float64, len(entries))
	for i, e := range entries {
		base[i] = 1
		if e.Remark == selection.RemarkDuplicate {
			base[i] = 2
		}
	}
	return normalise(base), nil
}

// ScoreProportional: 최종점수 비례 가중 (음수 점수는 0)
type ScoreProportional struct{}

// Name implements Scheme
func (ScoreProportional) Name() string { return "score" }

// Label implements Scheme
func (ScoreProportional) Label() string { return "점수가중" }

// Weights implements Scheme.
// 모두 0 이하이면 1/N 균등, 빈 목록이면 빈 벡터
func (ScoreProportional) Weights(entries []selection.Entry) (Vector, error) {
	if len(entries) == 0 {
		return Vector{}, nil
	}

	clipped := make([]float64, len(entries))
	var total float64
	for i, e := range entries {
		if e.Score > 0 {
			clipped[i] = e.Score
			total += e.Score
		}
	}

	if total <= 0 {
		uniform := make(Vector, len(entries))
		for i := range uniform {
			uniform[i] = 1 / float64(len(entries))
		}
		return uniform, nil
	}
	return normalise(clipped), nil
}

func normalise(raw []float64) Vector {
	var total float64
	for _, x := range raw {
		total += x
	}

	out := make(Vector, len(raw))
	for i, x := range raw {
		out[i] = x / total
	}
	return out
}

var (
	registryMu sync.RWMutex
	registry   = map[string]Scheme{
		EqualDuplicateBonus{}.Name(): EqualDuplicateBonus{},
		ScoreProportional{}.Name():   ScoreProportional{},
	}
)

func registryKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Register adds a scheme (같은 이름은 덮어씀, 대소문자 무시)
func Register(s Scheme) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[registryKey(s.Name())] = s
}

// Lookup returns the scheme registered under name
func Lookup(name string) (Scheme, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	s, ok := registry[registryKey(name)]
	return s, ok
}

// Names returns registered scheme names, sorted
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Parse resolves scheme names in order, dropping duplicates
func Parse(names []string) ([]Scheme, error) {
	seen := make(map[string]bool)
	var schemes []Scheme

	for _, n := range names {
		s, ok := Lookup(n)
		if !ok {
			return nil, fmt.Errorf("%w: %q (known: %s)", ErrInvalidScheme, n, strings.Join(Names(), ", "))
		}
		if seen[s.Name()] {
			continue
		}
		seen[s.Name()] = true
		schemes = append(schemes, s)
	}

	if len(schemes) == 0 {
		return nil, fmt.Errorf("%w: empty scheme set", ErrInvalidScheme)
	}
	return schemes, nil
}
