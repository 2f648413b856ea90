package synthesis

import "github.com/nerrad567/gray-logic-loadsynth/internal/presence"

// Occupancy tracks what one user is already committed to: the spans in which
// the user is busy and the extents of placed occurrences per activity.
// It is not safe for concurrent use.
type Occupancy struct {
	user       []presence.Interval
	byActivity map[string][]presence.Interval
}

// NewOccupancy returns an empty occupancy.
func NewOccupancy() *Occupancy {
	return &Occupancy{byActivity: make(map[string][]presence.Interval)}
}

// Reserve records a placed occurrence.
func (o *Occupancy) Reserve(occ *Occurrence) {
	o.user = append(o.user, occ.UserSpans...)
	o.byActivity[occ.Activity] = append(o.byActivity[occ.Activity], occ.Extent())
}

// UserBusy reports whether span overlaps a span the user is already busy in.
func (o *Occupancy) UserBusy(span presence.Interval) bool {
	return presence.AnyOverlap(o.user, span)
}

// ActivityBusy reports whether an occurrence of name already runs during span.
func (o *Occupancy) ActivityBusy(name string, span presence.Interval) bool {
	return presence.AnyOverlap(o.byActivity[name], span)
}

// Prune drops everything that ended at or before t.
func (o *Occupancy) Prune(t int64) {
	o.user = keepAfter(o.user, t)
	for name, ivs := range o.byActivity {
		if kept := keepAfter(ivs, t); len(kept) > 0 {
			o.byActivity[name] = kept
		} else {
			delete(o.byActivity, name)
		}
	}
}

// UserSpans returns the spans the user is busy in.
func (o *Occupancy) UserSpans() []presence.Interval {
	return o.user
}

func keepAfter(ivs []presence.Interval, t int64) []presence.Interval {
	kept := ivs[:0]
	for _, iv := range ivs {
		if iv.End > t {
			kept = append(kept, iv)
		}
	}
	return kept
}
