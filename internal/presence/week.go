package presence

import (
	"fmt"
	"strconv"
	"strings"
)

// Weekday numbers days from Monday (0) to Sunday (6).
type Weekday int

// DaysPerWeek is the number of weekdays.
const DaysPerWeek = 7

// Weekdays in simulation order.
const (
	Monday Weekday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var weekdayNames = [...]string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

// String returns the lower-case English name of the weekday.
func (w Weekday) String() string {
	if w < 0 || int(w) >= len(weekdayNames) {
		return "weekday(" + strconv.Itoa(int(w)) + ")"
	}
	return weekdayNames[w]
}

// Next returns the following weekday.
func (w Weekday) Next() Weekday {
	return (w + 1) % DaysPerWeek
}

// ParseWeekday converts a weekday name ("monday", "Tue", ...) to a Weekday.
func ParseWeekday(name string) (Weekday, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for i, full := range weekdayNames {
		if n == full || (len(n) == 3 && strings.HasPrefix(full, n)) {
			return Weekday(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidWeekday, name)
}

// DayWeekday returns the weekday of simulated day d when day 0 falls on first.
func DayWeekday(first Weekday, d int) Weekday {
	return Weekday((int(first) + d) % DaysPerWeek)
}

// Week holds per-weekday interval lists. A weekday without an entry has no
// intervals.
type Week map[Weekday][]Interval

// ParseWeek builds a Week from weekday names to comma-separated time ranges,
// e.g. {"monday": "07:00-09:00,17:30-23:00"}.
func ParseWeek(ranges map[string]string) (Week, error) {
	week := make(Week, len(ranges))
	for name, spec := range ranges {
		wd, err := ParseWeekday(name)
		if err != nil {
			return nil, err
		}
		ivs, err := ParseRanges(spec)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		week[wd] = Normalize(append(week[wd], ivs...))
	}
	return week, nil
}

// FullWeek returns a Week that covers every second of every day.
func FullWeek() Week {
	week := make(Week, 7)
	for wd := Monday; wd <= Sunday; wd++ {
		week[wd] = []Interval{{Start: 0, End: SecondsPerDay}}
	}
	return week
}

// ParseRanges parses a comma-separated list of "HH:MM-HH:MM" ranges into
// normalized second-of-day intervals. Hours of 24 or more clamp to the end
// of the day. An empty string yields no intervals.
func ParseRanges(spec string) ([]Interval, error) {
	var ivs []Interval
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		from, to, ok := strings.Cut(part, "-")
		if !ok {
			return nil, fmt.Errorf("%w: %q (want HH:MM-HH:MM)", ErrInvalidRange, part)
		}
		start, err := parseClock(from)
		if err != nil {
			return nil, err
		}
		end, err := parseClock(to)
		if err != nil {
			return nil, err
		}
		if end <= start {
			return nil, fmt.Errorf("%w: %q ends before it starts", ErrInvalidRange, part)
		}
		ivs = append(ivs, Interval{Start: start, End: end})
	}
	return Normalize(ivs), nil
}

// parseClock converts "HH:MM" to seconds of the day.
func parseClock(s string) (int64, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, fmt.Errorf("%w: %q is not HH:MM", ErrInvalidRange, s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 {
		return 0, fmt.Errorf("%w: bad hour in %q", ErrInvalidRange, s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("%w: bad minute in %q", ErrInvalidRange, s)
	}
	if h >= 24 {
		return SecondsPerDay, nil
	}
	return int64(h*3600 + m*60), nil
}
