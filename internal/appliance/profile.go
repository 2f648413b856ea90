package appliance

import (
	"fmt"
	"math"
)

// Sample is one step of a power profile: Power watts from Offset seconds
// until the next sample.
type Sample struct {
	Offset float64 `json:"offset"`
	Power  float64 `json:"power"`
}

// Profile is the power trace of one operating cycle of a device instance.
// The last sample marks the end of the cycle.
type Profile struct {
	Type    string   `json:"type"`
	Handle  string   `json:"handle"`
	Samples []Sample `json:"samples"`
}

// NewProfile validates samples and builds a Profile.
//
// Parameters:
//   - applianceType: appliance type, e.g. "KETTLE"
//   - handle: device instance handle within the type
//   - samples: at least two samples, first offset 0, offsets strictly increasing
//
// Returns:
//   - *Profile: the profile (samples are copied); a fractional last offset
//     is snapped to whole seconds by stretching every offset
//   - error: ErrProfileFormat if the samples are invalid
func NewProfile(applianceType, handle string, samples []Sample) (*Profile, error) {
	if err := validateSamples(samples); err != nil {
		return nil, err
	}
	cp := make([]Sample, len(samples))
	copy(cp, samples)

	last := cp[len(cp)-1].Offset
	if whole := max(math.Round(last), 1); whole != last {
		factor := whole / last
		for i := range cp {
			cp[i].Offset *= factor
		}
		cp[len(cp)-1].Offset = whole
	}
	return &Profile{Type: applianceType, Handle: handle, Samples: cp}, nil
}

func validateSamples(samples []Sample) error {
	if len(samples) < 2 {
		return fmt.Errorf("%w: need at least 2 samples, got %d", ErrProfileFormat, len(samples))
	}
	if samples[0].Offset != 0 {
		return fmt.Errorf("%w: first sample offset must be 0, got %g", ErrProfileFormat, samples[0].Offset)
	}
	for i, s := range samples {
		if math.IsNaN(s.Power) || math.IsInf(s.Power, 0) || s.Power < 0 {
			return fmt.Errorf("%w: sample %d has power %g", ErrProfileFormat, i, s.Power)
		}
		if i > 0 && s.Offset <= samples[i-1].Offset {
			return fmt.Errorf("%w: sample %d offset %g not after %g", ErrProfileFormat, i, s.Offset, samples[i-1].Offset)
		}
	}
	return nil
}

// NaturalDuration returns the unscaled cycle length in whole seconds (at least 1).
func (p *Profile) NaturalDuration() int64 {
	return int64(p.Samples[len(p.Samples)-1].Offset)
}

// Rescale returns the samples stretched or compressed to span duration
// seconds. Power values are unchanged. The receiver is not modified.
func (p *Profile) Rescale(duration int64) []Sample {
	natural := p.Samples[len(p.Samples)-1].Offset
	factor := float64(duration) / natural
	out := make([]Sample, len(p.Samples))
	for i, s := range p.Samples {
		out[i] = Sample{Offset: s.Offset * factor, Power: s.Power}
	}
	return out
}

// Energy returns the energy of one natural cycle in watt-seconds.
func (p *Profile) Energy() float64 {
	var ws float64
	for i := 1; i < len(p.Samples); i++ {
		ws += p.Samples[i-1].Power * (p.Samples[i].Offset - p.Samples[i-1].Offset)
	}
	return ws
}

// Render returns duration per-second power values of samples, holding each
// sample's power until the next sample starts.
func Render(samples []Sample, duration int64) []float64 {
	out := make([]float64, duration)
	if len(samples) == 0 {
		return out
	}
	idx := 0
	for s := int64(0); s < duration; s++ {
		t := float64(s)
		for idx+1 < len(samples) && samples[idx+1].Offset <= t {
			idx++
		}
		if samples[idx].Offset <= t {
			out[s] = samples[idx].Power
		}
	}
	return out
}
