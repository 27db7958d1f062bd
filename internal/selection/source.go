package selection

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// ErrGroupNotFound is returned when a source has no list for a group
var ErrGroupNotFound = errors.New("selection group not found")

// Source provides the selection list of each group
// ⭐ SSOT: 백테스트 입력(종목 선정 결과)은 이 인터페이스로만 읽음
type Source interface {
	// Name identifies the source (캐시 키에 사용, 예: "외국인단독")
	Name() string
	// Groups lists the group ids that have a list, in calendar order
	Groups(ctx context.Context) ([]string, error)
	// Load returns the list of one group
	Load(ctx context.Context, group string) (*List, error)
}

// SortGroupIDs orders ids by the numeric suffix of "g<N>" (g2 < g10).
// 숫자 접미사가 없는 id 는 뒤쪽에 사전순
func SortGroupIDs(ids []string) {
	sort.SliceStable(ids, func(i, j int) bool {
		ni, oki := groupNumber(ids[i])
		nj, okj := groupNumber(ids[j])
		switch {
		case oki && okj:
			return ni < nj
		case oki != okj:
			return oki
		default:
			return ids[i] < ids[j]
		}
	})
}

func groupNumber(id string) (int, bool) {
	s := strings.TrimLeft(strings.ToLower(id), "g")
	if s == "" || len(s) == len(id) {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

// MemorySource holds lists in memory (테스트, 프로그램 호출용)
type MemorySource struct {
	name  string
	mu    sync.RWMutex
	lists map[string]*List
}

// NewMemorySource creates an in-memory source
func NewMemorySource(name string, lists ...*List) *MemorySource {
	s := &MemorySource{
		name:  name,
		lists: make(map[string]*List, len(lists)),
	}
	for _, l := range lists {
		s.Put(l)
	}
	return s
}

// Put stores or replaces the list of l.Group
func (s *MemorySource) Put(l *List) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists[l.Group] = l
}

// Name implements Source
func (s *MemorySource) Name() string {
	return s.name
}

// Groups implements Source
func (s *MemorySource) Groups(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.lists))
	for id := range s.lists {
		ids = append(ids, id)
	}
	SortGroupIDs(ids)
	return ids, nil
}

// Load implements Source
func (s *MemorySource) Load(ctx context.Context, group string) (*List, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.lists[group]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrGroupNotFound, group)
	}

	out := &List{Group: l.Group, Entries: make([]Entry, len(l.Entries))}
	copy(out.Entries, l.Entries)
	return out, nil
}
