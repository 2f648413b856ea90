// Package noise adds synthetic measurement noise to an aggregate power
// series.
//
// A noise configuration is a mode letter followed by an amplitude in watts:
// "C200" adds a constant 200 W to every sample, "G200" adds a normally
// distributed value with mean 0 and standard deviation 20 W (a tenth of the
// amplitude). Gaussian results below zero are clamped to zero.
package noise

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"

	"gonum.org/v1/gonum/stat/distuv"
)

// ErrInvalidConfig is returned for a noise configuration that cannot be parsed.
var ErrInvalidConfig = errors.New("noise: invalid configuration")

// Mode selects the noise model.
type Mode byte

// Noise modes.
const (
	None     Mode = 0
	Constant Mode = 'C'
	Gaussian Mode = 'G'
)

// Config is a parsed noise configuration.
type Config struct {
	Mode      Mode
	Amplitude float64
}

// Parse reads "C<amplitude>", "G<amplitude>" or "" (no noise).
func Parse(s string) (Config, error) {
	if s == "" {
		return Config{}, nil
	}
	mode := Mode(s[0])
	if mode != Constant && mode != Gaussian {
		return Config{}, fmt.Errorf("%w: unknown mode %q in %q", ErrInvalidConfig, s[0], s)
	}
	amp, err := strconv.Atoi(s[1:])
	if err != nil {
		return Config{}, fmt.Errorf("%w: amplitude of %q", ErrInvalidConfig, s)
	}
	if amp < 0 {
		amp = -amp
	}
	return Config{Mode: mode, Amplitude: float64(amp)}, nil
}

// Enabled reports whether the configuration adds any noise.
func (c Config) Enabled() bool {
	return c.Mode != None
}

// String describes the configuration for run summaries.
func (c Config) String() string {
	switch c.Mode {
	case Constant:
		return fmt.Sprintf("Constant %gW", c.Amplitude)
	case Gaussian:
		return fmt.Sprintf("Gaussian %gW", c.Amplitude)
	default:
		return "none"
	}
}

// Apply returns a new series with noise added to series. The input is not
// modified. rng is only drawn from in Gaussian mode.
func Apply(series []float64, cfg Config, rng *rand.Rand) []float64 {
	out := make([]float64, len(series))
	copy(out, series)

	switch cfg.Mode {
	case Constant:
		for i := range out {
			out[i] += cfg.Amplitude
		}
	case Gaussian:
		if cfg.Amplitude == 0 {
			return out
		}
		dist := distuv.Normal{Mu: 0, Sigma: cfg.Amplitude / 10, Src: rng}
		for i := range out {
			out[i] += dist.Rand()
			if out[i] < 0 {
				out[i] = 0
			}
		}
	}
	return out
}
