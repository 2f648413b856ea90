package simulation

import (
	"sort"

	"github.com/nerrad567/gray-logic-loadsynth/internal/activity"
)

type changePoint struct {
	t        int64
	delta    int
	instance string
}

// MaxConcurrency returns the largest number of distinct appliance instances
// (type and handle) running at the same second. Operations are half-open, so
// one ending exactly when another starts does not overlap it. Two operations
// on the same instance count once.
func MaxConcurrency(ops []activity.DeviceOperation) int {
	points := make([]changePoint, 0, 2*len(ops))
	for _, op := range ops {
		if op.Duration <= 0 {
			continue
		}
		inst := op.Instance()
		points = append(points,
			changePoint{t: op.Start, delta: +1, instance: inst},
			changePoint{t: op.End(), delta: -1, instance: inst},
		)
	}
	sort.Slice(points, func(i, j int) bool {
		if points[i].t != points[j].t {
			return points[i].t < points[j].t
		}
		return points[i].delta < points[j].delta // ends first
	})

	active := make(map[string]int)
	best := 0
	for _, p := range points {
		active[p.instance] += p.delta
		if active[p.instance] == 0 {
			delete(active, p.instance)
		}
		best = max(best, len(active))
	}
	return best
}
