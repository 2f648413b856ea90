package appliance

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// AMBAL load component types.
const (
	ComponentOnOff       = "ON_OFF"
	ComponentLinear      = "LINEAR"
	ComponentOnOffDecay  = "ON_OFF_DECAY"
	ComponentOnOffGrowth = "ON_OFF_GROWTH"
	ComponentNoise       = "NOISE"
)

// maxComponentLength bounds a single rendered component to one day.
const maxComponentLength = 86400

// component renders n per-second power values.
type component interface {
	fraction() float64
	synthesize(n int, rng *rand.Rand) []float64
}

type onOff struct {
	frac, on float64
}

func (c onOff) fraction() float64 { return c.frac }

func (c onOff) synthesize(n int, _ *rand.Rand) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = c.on
	}
	return out
}

type linear struct {
	frac, start, end float64
}

func (c linear) fraction() float64 { return c.frac }

func (c linear) synthesize(n int, _ *rand.Rand) []float64 {
	out := make([]float64, n)
	if n == 1 {
		out[0] = c.start
		return out
	}
	step := (c.end - c.start) / float64(n-1)
	for i := range out {
		out[i] = c.start + step*float64(i)
	}
	return out
}

// onOffDecay is active + (peak-active)·e^(-rate·x) for x = 0..n-1.
type onOffDecay struct {
	frac, active, peak, rate float64
}

func (c onOffDecay) fraction() float64 { return c.frac }

func (c onOffDecay) synthesize(n int, _ *rand.Rand) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = c.active + (c.peak-c.active)*math.Exp(-c.rate*float64(i))
	}
	return out
}

// onOffGrowth is base + rate·ln(stretch·x) for x = 1..n.
type onOffGrowth struct {
	frac, base, rate, stretch float64
}

func (c onOffGrowth) fraction() float64 { return c.frac }

func (c onOffGrowth) synthesize(n int, _ *rand.Rand) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = c.base + c.rate*math.Log(c.stretch*float64(i+1))
	}
	return out
}

// noiseComponent draws normal values, redrawing until they fall in [lower, upper].
type noiseComponent struct {
	frac, lower, mean, stdev, upper float64
}

func (c noiseComponent) fraction() float64 { return c.frac }

func (c noiseComponent) synthesize(n int, rng *rand.Rand) []float64 {
	dist := distuv.Normal{Mu: c.mean, Sigma: c.stdev, Src: rng}
	out := make([]float64, n)
	for i := range out {
		v := dist.Rand()
		for tries := 0; (v < c.lower || v > c.upper) && tries < 1000; tries++ {
			v = dist.Rand()
		}
		out[i] = math.Min(math.Max(v, c.lower), c.upper)
	}
	return out
}

// renderComponents lays the components out back to back over duration
// seconds and compresses the result into step samples. Components whose
// rendered length is below one second or above one day are skipped.
// Negative values are clamped to zero.
func renderComponents(comps []component, duration int64, rng *rand.Rand) ([]Sample, error) {
	if duration < 1 {
		return nil, fmt.Errorf("%w: duration must be positive, got %d", ErrProfileFormat, duration)
	}
	power := make([]float64, duration)
	start := int64(0)
	for _, c := range comps {
		end := start + int64(math.Round(c.fraction()*float64(duration)))
		n := end - start
		if n <= 0 || n > maxComponentLength {
			continue
		}
		values := c.synthesize(int(n), rng)
		for i, v := range values {
			pos := start + int64(i)
			if pos >= duration {
				break
			}
			if math.IsNaN(v) || v < 0 {
				v = 0
			}
			power[pos] += v
		}
		start = end
	}
	return compress(power), nil
}

// compress converts per-second values into step samples, merging runs of
// equal power, and appends a terminal zero sample at len(power).
func compress(power []float64) []Sample {
	samples := make([]Sample, 0, len(power)/4+2)
	for i, v := range power {
		if i > 0 && v == power[i-1] {
			continue
		}
		samples = append(samples, Sample{Offset: float64(i), Power: v})
	}
	return append(samples, Sample{Offset: float64(len(power)), Power: 0})
}
