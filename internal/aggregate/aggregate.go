package aggregate

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"weeklysummary/internal"
)

// Group is an ordered run of activities sharing a key.
type Group struct {
	Key        string
	Activities []internal.Activity
}

// Result is the merged view of one reporting window.
type Result struct {
	Start      time.Time
	End        time.Time
	Activities []internal.Activity
	BySource   []Group
	ByDay      []Group
}

// Total is the number of merged activities.
func (r Result) Total() int {
	return len(r.Activities)
}

// RangeError reports activities that fall outside the requested window.
// Sources must never return them, so they are surfaced instead of dropped.
type RangeError struct {
	Source     string
	Start      time.Time
	End        time.Time
	Violations []internal.Activity
}

func (e *RangeError) Error() string {
	items := make([]string, 0, len(e.Violations))
	for _, a := range e.Violations {
		items = append(items, a.String())
	}
	prefix := "activities"
	if e.Source != "" {
		prefix = e.Source + " returned activities"
	}
	return fmt.Sprintf("%s outside %s..%s: %s",
		prefix, e.Start.Format(time.RFC3339), e.End.Format(time.RFC3339), strings.Join(items, "; "))
}

// Merge sorts activities by timestamp and groups them by source and by day.
// Every activity must lie within [start, end]; otherwise a *RangeError is
// returned and no result is produced.
func Merge(activities []internal.Activity, start, end time.Time) (Result, error) {
	if _, out := partition(activities, start, end); len(out) > 0 {
		return Result{}, &RangeError{Start: start, End: end, Violations: out}
	}

	sorted := Sort(activities)
	return Result{
		Start:      start,
		End:        end,
		Activities: sorted,
		BySource:   GroupBySource(sorted),
		ByDay:      GroupByDay(sorted),
	}, nil
}

// Sort returns a copy of activities in ascending timestamp order. Equal
// timestamps keep their input order.
func Sort(activities []internal.Activity) []internal.Activity {
	sorted := make([]internal.Activity, len(activities))
	copy(sorted, activities)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Before(sorted[j])
	})
	return sorted
}

// GroupBySource groups activities by source, in first-seen order.
func GroupBySource(activities []internal.Activity) []Group {
	return groupBy(activities, internal.Activity.Source)
}

// GroupByType groups activities by activity type, in first-seen order.
func GroupByType(activities []internal.Activity) []Group {
	return groupBy(activities, internal.Activity.ActivityType)
}

// GroupByDay groups activities by calendar day in chronological order. The
// day is taken in each timestamp's own location.
func GroupByDay(activities []internal.Activity) []Group {
	groups := groupBy(activities, internal.Activity.Day)
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Key < groups[j].Key
	})
	return groups
}

func groupBy(activities []internal.Activity, key func(internal.Activity) string) []Group {
	var groups []Group
	index := make(map[string]int)
	for _, a := range activities {
		k := key(a)
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, Group{Key: k})
		}
		groups[i].Activities = append(groups[i].Activities, a)
	}
	return groups
}

func partition(activities []internal.Activity, start, end time.Time) (in, out []internal.Activity) {
	for _, a := range activities {
		if a.Within(start, end) {
			in = append(in, a)
		} else {
			out = append(out, a)
		}
	}
	return in, out
}
