package holiday

import (
	"slices"
	"sort"

	"github.com/samber/mo"

	appLog "coursecal/internal/log"
	"coursecal/internal/model"
)

const (
	// clusterGapDays is the largest gap between rest dates of one holiday period.
	clusterGapDays = 45
	// makeupWindowDays bounds how far a make-up day may sit from its period.
	makeupWindowDays = 21
)

// Calendar is the built holiday adjustment table. It is immutable once
// returned by Build and safe for concurrent readers. A nil *Calendar acts
// as an empty calendar.
type Calendar struct {
	restDays     map[model.Date]struct{}
	makeupDays   map[model.Date]struct{}
	restToMakeup map[model.Date]model.Date
	makeupToRest map[model.Date]model.Date
}

// Pair is one rest date bound to its make-up date.
type Pair struct {
	Rest   model.Date `json:"rest"`
	Makeup model.Date `json:"makeup"`
}

type group struct {
	rest   map[model.Date]struct{}
	makeup map[model.Date]struct{}
}

// Build groups events by key, clusters each group's rest dates into holiday
// periods and binds make-up dates to them.
func Build(events []Event) *Calendar {
	groups := make(map[string]*group)
	for _, ev := range events {
		g, ok := groups[ev.Key]
		if !ok {
			g = &group{rest: map[model.Date]struct{}{}, makeup: map[model.Date]struct{}{}}
			groups[ev.Key] = g
		}
		target := g.rest
		if ev.Kind == Makeup {
			target = g.makeup
		}
		for _, d := range ev.Dates {
			target[d] = struct{}{}
		}
	}

	c := &Calendar{
		restDays:     make(map[model.Date]struct{}),
		makeupDays:   make(map[model.Date]struct{}),
		restToMakeup: make(map[model.Date]model.Date),
		makeupToRest: make(map[model.Date]model.Date),
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		g := groups[key]
		// A make-up day only exists relative to a holiday period.
		if len(g.rest) == 0 {
			continue
		}
		for d := range g.rest {
			c.restDays[d] = struct{}{}
		}
		for d := range g.makeup {
			c.makeupDays[d] = struct{}{}
		}
		if len(g.makeup) == 0 {
			continue
		}

		pool := sortedDates(g.makeup)
		for _, cluster := range clusterDates(sortedDates(g.rest), clusterGapDays) {
			var candidates []model.Date
			candidates, pool = takeWindow(pool, cluster[0].AddDays(-makeupWindowDays), cluster[len(cluster)-1].AddDays(makeupWindowDays))
			if len(candidates) == 0 {
				continue
			}
			for rest, makeup := range matchCluster(cluster, candidates) {
				c.restToMakeup[rest] = makeup
				appLog.Debug("holiday make-up matched", "group", key, "rest", rest, "makeup", makeup)
			}
		}
	}

	for rest, makeup := range c.restToMakeup {
		if prev, ok := c.makeupToRest[makeup]; !ok || rest.Before(prev) {
			c.makeupToRest[makeup] = rest
		}
	}

	appLog.Debug("holiday calendar built",
		"groups", len(groups),
		"rest_days", len(c.restDays),
		"makeup_days", len(c.makeupDays),
		"matched", len(c.restToMakeup),
	)
	return c
}

// clusterDates splits ascending dates wherever two neighbours are more than
// maxGap days apart.
func clusterDates(dates []model.Date, maxGap int) [][]model.Date {
	var clusters [][]model.Date
	var current []model.Date
	for _, d := range dates {
		if n := len(current); n > 0 && d.DaysSince(current[n-1]) > maxGap {
			clusters = append(clusters, current)
			current = nil
		}
		current = append(current, d)
	}
	if len(current) > 0 {
		clusters = append(clusters, current)
	}
	return clusters
}

// takeWindow removes the pool dates inside [from, to] and returns them with
// the remaining pool. pool must be ascending.
func takeWindow(pool []model.Date, from, to model.Date) (taken, rest []model.Date) {
	rest = make([]model.Date, 0, len(pool))
	for _, d := range pool {
		if !d.Before(from) && !d.After(to) {
			taken = append(taken, d)
		} else {
			rest = append(rest, d)
		}
	}
	return taken, rest
}

// matchCluster binds candidate make-up dates to the cluster's rest dates.
// Candidates are consumed after-the-period ascending, then before it
// nearest-first, then inside it by distance to the closest rest date. Each
// candidate takes the last unassigned workday index, then the last
// unassigned index of any kind.
func matchCluster(cluster, candidates []model.Date) map[model.Date]model.Date {
	first, last := cluster[0], cluster[len(cluster)-1]

	var before, within, after []model.Date
	for _, d := range candidates {
		switch {
		case d.Before(first):
			before = append(before, d)
		case d.After(last):
			after = append(after, d)
		default:
			within = append(within, d)
		}
	}
	slices.SortFunc(after, model.Date.Compare)
	slices.SortFunc(before, func(a, b model.Date) int { return b.Compare(a) })
	slices.SortStableFunc(within, func(a, b model.Date) int {
		return nearestGap(cluster, a) - nearestGap(cluster, b)
	})

	var preferred, fallback []int
	for i, d := range cluster {
		if d.IsWorkday() {
			preferred = append(preferred, i)
		}
		fallback = append(fallback, i)
	}
	if len(preferred) == 0 {
		preferred = slices.Clone(fallback)
	}

	assigned := make([]mo.Option[model.Date], len(cluster))
	for _, bucket := range [][]model.Date{after, before, within} {
		for _, makeup := range bucket {
			if idx, ok := popUnassigned(&preferred, assigned); ok {
				assigned[idx] = mo.Some(makeup)
			} else if idx, ok := popUnassigned(&fallback, assigned); ok {
				assigned[idx] = mo.Some(makeup)
			}
		}
	}

	out := make(map[model.Date]model.Date)
	for i, a := range assigned {
		if makeup, ok := a.Get(); ok {
			out[cluster[i]] = makeup
		}
	}
	return out
}

// popUnassigned pops indices off the end of stack until it finds one that
// has no assignment yet.
func popUnassigned(stack *[]int, assigned []mo.Option[model.Date]) (int, bool) {
	for len(*stack) > 0 {
		n := len(*stack) - 1
		idx := (*stack)[n]
		*stack = (*stack)[:n]
		if assigned[idx].IsAbsent() {
			return idx, true
		}
	}
	return 0, false
}

func nearestGap(cluster []model.Date, d model.Date) int {
	best := -1
	for _, rest := range cluster {
		gap := rest.DaysSince(d)
		if gap < 0 {
			gap = -gap
		}
		if best < 0 || gap < best {
			best = gap
		}
	}
	return best
}

func sortedDates(set map[model.Date]struct{}) []model.Date {
	out := make([]model.Date, 0, len(set))
	for d := range set {
		out = append(out, d)
	}
	slices.SortFunc(out, model.Date.Compare)
	return out
}

func (c *Calendar) IsRestDay(d model.Date) bool {
	if c == nil {
		return false
	}
	_, ok := c.restDays[d]
	return ok
}

func (c *Calendar) IsMakeupDay(d model.Date) bool {
	if c == nil {
		return false
	}
	_, ok := c.makeupDays[d]
	return ok
}

// MakeupFor returns the make-up date bound to a rest date.
func (c *Calendar) MakeupFor(rest model.Date) mo.Option[model.Date] {
	if c == nil {
		return mo.None[model.Date]()
	}
	if d, ok := c.restToMakeup[rest]; ok {
		return mo.Some(d)
	}
	return mo.None[model.Date]()
}

// RestForMakeup returns the rest date a make-up date compensates. When
// several rest dates share one make-up date the earliest is returned.
func (c *Calendar) RestForMakeup(makeup model.Date) mo.Option[model.Date] {
	if c == nil {
		return mo.None[model.Date]()
	}
	if d, ok := c.makeupToRest[makeup]; ok {
		return mo.Some(d)
	}
	return mo.None[model.Date]()
}

// RestDays returns all rest dates in ascending order.
func (c *Calendar) RestDays() []model.Date {
	if c == nil {
		return nil
	}
	return sortedDates(c.restDays)
}

// MakeupDays returns all make-up dates in ascending order.
func (c *Calendar) MakeupDays() []model.Date {
	if c == nil {
		return nil
	}
	return sortedDates(c.makeupDays)
}

// Pairs returns every rest→make-up binding ordered by rest date.
func (c *Calendar) Pairs() []Pair {
	if c == nil {
		return nil
	}
	out := make([]Pair, 0, len(c.restToMakeup))
	for rest, makeup := range c.restToMakeup {
		out = append(out, Pair{Rest: rest, Makeup: makeup})
	}
	slices.SortFunc(out, func(a, b Pair) int { return a.Rest.Compare(b.Rest) })
	return out
}
