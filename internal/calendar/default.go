package calendar

import "time"

// 2025 2주 리밸런싱 그룹 (g1~g25)
// g25 는 투자 기간이 없는 마지막 그룹
var defaultGroups = []Group{
	{ID: "g1", Start: Date(2025, time.January, 2), End: Date(2025, time.January, 15)},
	{ID: "g2", Start: Date(2025, time.January, 16), End: Date(2025, time.February, 4)},
	{ID: "g3", Start: Date(2025, time.February, 5), End: Date(2025, time.February, 18)},
	{ID: "g4", Start: Date(2025, time.February, 19), End: Date(2025, time.March, 6)},
	{ID: "g5", Start: Date(2025, time.March, 7), End: Date(2025, time.March, 20)},
	{ID: "g6", Start: Date(2025, time.March, 21), End: Date(2025, time.April, 3)},
	{ID: "g7", Start: Date(2025, time.April, 4), End: Date(2025, time.April, 17)},
	{ID: "g8", Start: Date(2025, time.April, 18), End: Date(2025, time.May, 2)},
	{ID: "g9", Start: Date(2025, time.May, 7), End: Date(2025, time.May, 20)},
	{ID: "g10", Start: Date(2025, time.May, 21), End: Date(2025, time.June, 2)},
	{ID: "g11", Start: Date(2025, time.June, 4), End: Date(2025, time.June, 18)},
	{ID: "g12", Start: Date(2025, time.June, 19), End: Date(2025, time.July, 2)},
	{ID: "g13", Start: Date(2025, time.July, 3), End: Date(2025, time.July, 16)},
	{ID: "g14", Start: Date(2025, time.July, 17), End: Date(2025, time.July, 30)},
	{ID: "g15", Start: Date(2025, time.July, 31), End: Date(2025, time.August, 13)},
	{ID: "g16", Start: Date(2025, time.August, 14), End: Date(2025, time.August, 29)},
	{ID: "g17", Start: Date(2025, time.September, 1), End: Date(2025, time.September, 12)},
	{ID: "g18", Start: Date(2025, time.September, 15), End: Date(2025, time.September, 26)},
	{ID: "g19", Start: Date(2025, time.September, 29), End: Date(2025, time.October, 17)},
	{ID: "g20", Start: Date(2025, time.October, 20), End: Date(2025, time.October, 31)},
	{ID: "g21", Start: Date(2025, time.November, 3), End: Date(2025, time.November, 14)},
	{ID: "g22", Start: Date(2025, time.November, 17), End: Date(2025, time.November, 28)},
	{ID: "g23", Start: Date(2025, time.December, 1), End: Date(2025, time.December, 12)},
	{ID: "g24", Start: Date(2025, time.December, 15), End: Date(2025, time.December, 29)},
	{ID: "g25", Start: Date(2025, time.December, 30), End: Date(2026, time.January, 14)},
}

// Default returns the built-in 2025 calendar
func Default() *Calendar {
	c, err := New(defaultGroups)
	if err != nil {
		panic("calendar: invalid default groups: " + err.Error())
	}
	return c
}
