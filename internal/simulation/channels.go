package simulation

import (
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/nerrad567/gray-logic-loadsynth/internal/activity"
)

// ChannelKind groups channels.
type ChannelKind string

// Channel kinds, in output order.
const (
	KindTotal     ChannelKind = "total"
	KindUser      ChannelKind = "user"
	KindActivity  ChannelKind = "activity"
	KindAppliance ChannelKind = "appliance"
)

var kindOrder = map[ChannelKind]int{KindTotal: 0, KindUser: 1, KindActivity: 2, KindAppliance: 3}

// ChannelKey identifies one aggregate series.
type ChannelKey struct {
	Kind ChannelKind `json:"kind"`
	Name string      `json:"name"`
}

// TotalKey is the whole-house channel.
var TotalKey = ChannelKey{Kind: KindTotal}

// String returns "total" or "<kind>/<name>".
func (k ChannelKey) String() string {
	if k.Kind == KindTotal {
		return string(KindTotal)
	}
	return string(k.Kind) + "/" + k.Name
}

// ParseChannelKey is the inverse of ChannelKey.String.
func ParseChannelKey(s string) (ChannelKey, bool) {
	if s == string(KindTotal) {
		return TotalKey, true
	}
	kind, name, ok := strings.Cut(s, "/")
	if !ok || name == "" {
		return ChannelKey{}, false
	}
	k := ChannelKey{Kind: ChannelKind(kind), Name: name}
	if _, known := kindOrder[k.Kind]; !known || k.Kind == KindTotal {
		return ChannelKey{}, false
	}
	return k, true
}

// Channels holds per-second power series of equal length.
// It is not safe for concurrent use.
type Channels struct {
	length int64
	series map[ChannelKey][]float64
}

// NewChannels creates channels of length seconds with an empty total.
func NewChannels(length int64) *Channels {
	c := &Channels{length: length, series: make(map[ChannelKey][]float64)}
	c.series[TotalKey] = make([]float64, length)
	return c
}

// Len returns the number of samples per channel.
func (c *Channels) Len() int64 {
	return c.length
}

// Add folds one operation into the total, user, activity and appliance
// channels. The part of the operation beyond the trace end is dropped.
func (c *Channels) Add(op activity.DeviceOperation, user, activityName string) {
	start, end := max(op.Start, 0), min(op.End(), c.length)
	if start >= end {
		return
	}
	power := op.Power()[start-op.Start : end-op.Start]
	for _, key := range []ChannelKey{
		TotalKey,
		{Kind: KindUser, Name: user},
		{Kind: KindActivity, Name: activityName},
		{Kind: KindAppliance, Name: op.ApplianceType},
	} {
		floats.Add(c.ensure(key)[start:end], power)
	}
}

// Ensure creates an empty channel for key if it does not exist yet, so that
// silent users or activities still produce a series.
func (c *Channels) Ensure(key ChannelKey) {
	c.ensure(key)
}

func (c *Channels) ensure(key ChannelKey) []float64 {
	s, ok := c.series[key]
	if !ok {
		s = make([]float64, c.length)
		c.series[key] = s
	}
	return s
}

// Get returns the series of key, or nil.
func (c *Channels) Get(key ChannelKey) []float64 {
	return c.series[key]
}

// Set replaces the series of key. The length must match Len.
func (c *Channels) Set(key ChannelKey, series []float64) {
	c.series[key] = series
}

// Total returns the whole-house series.
func (c *Channels) Total() []float64 {
	return c.series[TotalKey]
}

// Keys returns all channel keys: total first, then users, activities and
// appliances, each sorted by name.
func (c *Channels) Keys() []ChannelKey {
	keys := make([]ChannelKey, 0, len(c.series))
	for k := range c.series {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Kind != keys[j].Kind {
			return kindOrder[keys[i].Kind] < kindOrder[keys[j].Kind]
		}
		return keys[i].Name < keys[j].Name
	})
	return keys
}

// Energy returns the energy of a series in watt-hours.
func Energy(series []float64) float64 {
	return floats.Sum(series) / 3600
}
