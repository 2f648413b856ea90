package appliance

import (
	"fmt"
	"math/rand/v2"
	"sort"
)

// Logger defines the logging interface used by the package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Library holds profiles keyed by appliance type and device handle.
//
// Add must not be called once the library is shared; all other methods are
// read-only and safe for concurrent use.
type Library struct {
	profiles map[string]map[string]*Profile
	handles  map[string][]string // sorted handles per type
}

// NewLibrary creates an empty profile library.
func NewLibrary() *Library {
	return &Library{
		profiles: make(map[string]map[string]*Profile),
		handles:  make(map[string][]string),
	}
}

// Add registers a profile, replacing any profile with the same type and handle.
func (l *Library) Add(p *Profile) {
	byHandle, ok := l.profiles[p.Type]
	if !ok {
		byHandle = make(map[string]*Profile)
		l.profiles[p.Type] = byHandle
	}
	if _, exists := byHandle[p.Handle]; !exists {
		hs := append(l.handles[p.Type], p.Handle)
		sort.Strings(hs)
		l.handles[p.Type] = hs
	}
	byHandle[p.Handle] = p
}

// Types returns the registered appliance types in sorted order.
func (l *Library) Types() []string {
	types := make([]string, 0, len(l.profiles))
	for t := range l.profiles {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Handles returns the sorted device handles of an appliance type.
func (l *Library) Handles(applianceType string) []string {
	return l.handles[applianceType]
}

// HasType reports whether at least one profile of applianceType is registered.
func (l *Library) HasType(applianceType string) bool {
	return len(l.handles[applianceType]) > 0
}

// Len returns the total number of registered profiles.
func (l *Library) Len() int {
	n := 0
	for _, hs := range l.handles {
		n += len(hs)
	}
	return n
}

// SelectProfile returns the profile to operate for applianceType.
//
// Parameters:
//   - applianceType: appliance type to select from
//   - deviceHandle: handle for the deterministic lookup
//   - randomized: when true, deviceHandle is ignored and one handle is drawn uniformly
//   - rng: caller-owned stream used in randomized mode
//
// Returns:
//   - *Profile: the selected profile
//   - error: ErrProfileSelection if the type or handle is not registered
func (l *Library) SelectProfile(applianceType, deviceHandle string, randomized bool, rng *rand.Rand) (*Profile, error) {
	if randomized {
		handle, err := l.RandomHandle(applianceType, rng)
		if err != nil {
			return nil, err
		}
		deviceHandle = handle
	}
	p, ok := l.profiles[applianceType][deviceHandle]
	if !ok {
		return nil, fmt.Errorf("%w: no profile %s/%s", ErrProfileSelection, applianceType, deviceHandle)
	}
	return p, nil
}

// RandomHandle draws one handle of applianceType uniformly from rng.
func (l *Library) RandomHandle(applianceType string, rng *rand.Rand) (string, error) {
	hs := l.handles[applianceType]
	if len(hs) == 0 {
		return "", fmt.Errorf("%w: no profiles for type %s", ErrProfileSelection, applianceType)
	}
	return hs[rng.IntN(len(hs))], nil
}
