package tickets

import (
	"sort"
	"time"
)

// SortByPriority orders requests by calendar day of creation in loc, latest
// day first, and oldest first within a day.
func SortByPriority(items []Ticket, loc *time.Location) {
	if loc == nil {
		loc = time.UTC
	}
	sort.SliceStable(items, func(i, j int) bool {
		di := dayKey(items[i].CreatedAt, loc)
		dj := dayKey(items[j].CreatedAt, loc)
		if di != dj {
			return di > dj
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
}

func dayKey(t time.Time, loc *time.Location) int {
	y, m, d := t.In(loc).Date()
	return y*10000 + int(m)*100 + d
}
