package attendance

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// WorkingDays is the set of weekdays on which attendance is expected.
type WorkingDays map[time.Weekday]bool

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday, "sunday": time.Sunday,
	"mon": time.Monday, "monday": time.Monday,
	"tue": time.Tuesday, "tuesday": time.Tuesday,
	"wed": time.Wednesday, "wednesday": time.Wednesday,
	"thu": time.Thursday, "thursday": time.Thursday,
	"fri": time.Friday, "friday": time.Friday,
	"sat": time.Saturday, "saturday": time.Saturday,
}

// ParseWorkingDays parses a list such as ["mon", "tue"] or "mon,tue".
func ParseWorkingDays(names ...string) (WorkingDays, error) {
	wd := make(WorkingDays)
	for _, entry := range names {
		for name := range strings.SplitSeq(entry, ",") {
			name = strings.ToLower(strings.TrimSpace(name))
			if name == "" {
				continue
			}
			day, ok := weekdayNames[name]
			if !ok {
				return nil, fmt.Errorf("unknown weekday %q", name)
			}
			wd[day] = true
		}
	}
	if len(wd) == 0 {
		return nil, fmt.Errorf("at least one working day is required")
	}
	return wd, nil
}

// IsWorking reports whether the weekday of t is a working day.
func (wd WorkingDays) IsWorking(t time.Time) bool {
	return wd[t.Weekday()]
}

// String lists the working days in week order.
func (wd WorkingDays) String() string {
	days := make([]int, 0, len(wd))
	for d, ok := range wd {
		if ok {
			days = append(days, int(d))
		}
	}
	sort.Ints(days)
	names := make([]string, len(days))
	for i, d := range days {
		names[i] = strings.ToLower(time.Weekday(d).String()[:3])
	}
	return strings.Join(names, ",")
}
