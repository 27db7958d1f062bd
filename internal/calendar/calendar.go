package calendar

import (
	"errors"
	"fmt"
	"time"
)

// DateLayout is the on-disk/API date format of a group boundary
const DateLayout = "2006-01-02"

var (
	ErrEmptyCalendar  = errors.New("calendar has no groups")
	ErrDuplicateGroup = errors.New("duplicate group id")
	ErrInvalidRange   = errors.New("group end before start")
	ErrOverlap        = errors.New("groups overlap or are out of order")
)

// Group is one rebalancing window (리밸런싱 그룹)
type Group struct {
	ID    string    `json:"id"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether date falls inside [Start, End] (날짜 단위)
func (g Group) Contains(date time.Time) bool {
	d := truncate(date)
	return !d.Before(g.Start) && !d.After(g.End)
}

// Label returns the short "MM.DD~MM.DD" label used on the dashboard
func (g Group) Label() string {
	return fmt.Sprintf("%s~%s", g.Start.Format("01.02"), g.End.Format("01.02"))
}

// Calendar is the fixed, ordered sequence of groups.
// 생성 후 변경되지 않음. 여러 백테스트가 동시에 공유해도 안전
type Calendar struct {
	groups []Group
	index  map[string]int
}

// New validates and builds a calendar.
// 그룹 사이 공백(주말, 휴장일)은 허용, 겹침과 역순은 거부
func New(groups []Group) (*Calendar, error) {
	if len(groups) == 0 {
		return nil, ErrEmptyCalendar
	}

	c := &Calendar{
		groups: make([]Group, len(groups)),
		index:  make(map[string]int, len(groups)),
	}

	for i, g := range groups {
		g.Start = truncate(g.Start)
		g.End = truncate(g.End)

		if g.ID == "" {
			return nil, fmt.Errorf("group %d: empty id", i)
		}
		if _, dup := c.index[g.ID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateGroup, g.ID)
		}
		if g.End.Before(g.Start) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidRange, g.ID)
		}
		if i > 0 && !g.Start.After(c.groups[i-1].End) {
			return nil, fmt.Errorf("%w: %s starts %s, %s ends %s", ErrOverlap,
				g.ID, g.Start.Format(DateLayout), c.groups[i-1].ID, c.groups[i-1].End.Format(DateLayout))
		}

		c.groups[i] = g
		c.index[g.ID] = i
	}

	return c, nil
}

// Groups returns a copy of all groups in order
func (c *Calendar) Groups() []Group {
	out := make([]Group, len(c.groups))
	copy(out, c.groups)
	return out
}

// Len returns the number of groups
func (c *Calendar) Len() int {
	return len(c.groups)
}

// Get returns the group with the given id
func (c *Calendar) Get(id string) (Group, bool) {
	i, ok := c.index[id]
	if !ok {
		return Group{}, false
	}
	return c.groups[i], true
}

// Index returns the position of id, or -1
func (c *Calendar) Index(id string) int {
	i, ok := c.index[id]
	if !ok {
		return -1
	}
	return i
}

// Label returns the short label of id, or the id itself when unknown
func (c *Calendar) Label(id string) string {
	g, ok := c.Get(id)
	if !ok {
		return id
	}
	return g.Label()
}

// InvestPeriodFor maps a selection group to the group it is held in.
// 마지막 그룹과 알 수 없는 그룹은 false (투자 기간 없음)
func (c *Calendar) InvestPeriodFor(selectionID string) (Group, bool) {
	i, ok := c.index[selectionID]
	if !ok || i+1 >= len(c.groups) {
		return Group{}, false
	}
	return c.groups[i+1], true
}

// GroupContaining returns the group whose range holds date.
// 어느 구간에도 없으면 (첫 그룹 이전, 공백 구간, 마지막 그룹 이후) 마지막 그룹
func (c *Calendar) GroupContaining(date time.Time) Group {
	d := truncate(date)

	for _, g := range c.groups {
		if g.Contains(d) {
			return g
		}
	}
	return c.groups[len(c.groups)-1]
}

func truncate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Date builds a calendar date (UTC midnight)
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
