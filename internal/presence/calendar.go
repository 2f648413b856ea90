package presence

// Calendar answers presence queries for one user.
//
// A Calendar is immutable after construction and safe for concurrent use.
type Calendar struct {
	week Week
}

// NewCalendar creates a calendar from a user's weekly presence. The intervals
// of every weekday are normalized.
func NewCalendar(week Week) *Calendar {
	norm := make(Week, len(week))
	for wd, ivs := range week {
		norm[wd] = Normalize(ivs)
	}
	return &Calendar{week: norm}
}

// IsPresent reports whether the user is home at second-of-day instant on wd.
func (c *Calendar) IsPresent(wd Weekday, instant int64) bool {
	for _, iv := range c.week[wd] {
		if instant >= iv.Start && instant < iv.End {
			return true
		}
	}
	return false
}

// Windows returns the user's presence intervals on wd.
func (c *Calendar) Windows(wd Weekday) []Interval {
	return c.week[wd]
}

// CandidateWindows returns the intervals of wd during which the user is home
// and the activity restriction allows a run. A nil restriction allows the
// whole day.
func (c *Calendar) CandidateWindows(wd Weekday, restriction Week) []Interval {
	if restriction == nil {
		return c.week[wd]
	}
	return Intersect(c.week[wd], Normalize(restriction[wd]))
}

// RestrictionWindows returns the restriction intervals of wd alone, for
// activities that never involve the user. A nil restriction allows the whole day.
func RestrictionWindows(wd Weekday, restriction Week) []Interval {
	if restriction == nil {
		return []Interval{{Start: 0, End: SecondsPerDay}}
	}
	return Normalize(restriction[wd])
}

// Absolute shifts the windows of one day into absolute simulation time.
// dayStart is the absolute start of that day.
func Absolute(windows []Interval, dayStart int64) []Interval {
	abs := make([]Interval, len(windows))
	for i, iv := range windows {
		abs[i] = iv.Shift(dayStart)
	}
	return abs
}
