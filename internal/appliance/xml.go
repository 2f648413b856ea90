package appliance

import (
	"encoding/xml"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
)

type xmlValue struct {
	Value *float64 `xml:"value,attr"`
}

type xmlLoad struct {
	Type          string   `xml:"type,attr"`
	Duration      xmlValue `xml:"duration"`
	OnPower       xmlValue `xml:"onPower"`
	StartPower    xmlValue `xml:"startPower"`
	EndPower      xmlValue `xml:"endPower"`
	ActivePower   xmlValue `xml:"activePower"`
	PeakPower     xmlValue `xml:"peakPower"`
	DecayRate     xmlValue `xml:"decayRate"`
	BasePower     xmlValue `xml:"basePower"`
	GrowthRate    xmlValue `xml:"growthRate"`
	StretchFactor xmlValue `xml:"stretchFactor"`
	Lower         xmlValue `xml:"lower"`
	Mean          xmlValue `xml:"mean"`
	Stdev         xmlValue `xml:"stdev"`
	Upper         xmlValue `xml:"upper"`
}

type xmlSample struct {
	Offset float64 `xml:"offset,attr"`
	Power  float64 `xml:"power,attr"`
}

type xmlAppliance struct {
	XMLName  xml.Name    `xml:"appliance"`
	Type     string      `xml:"type,attr"`
	Duration float64     `xml:"duration,attr"`
	Loads    []xmlLoad   `xml:"load"`
	Samples  []xmlSample `xml:"sample"`
}

// Loader reads appliance profile files.
type Loader struct {
	rng    *rand.Rand
	logger Logger
}

// NewLoader creates a Loader. rng drives the NOISE components rendered
// while loading.
func NewLoader(rng *rand.Rand) *Loader {
	return &Loader{rng: rng, logger: noopLogger{}}
}

// SetLogger sets the logger for the loader.
func (l *Loader) SetLogger(logger Logger) {
	l.logger = logger
}

// Load reads one appliance XML file. The device handle is the file name
// without its extension. When applianceType is non-empty and differs from
// the type declared in the file, a warning is logged and applianceType wins.
//
// Returns ErrProfileFormat (wrapped with the path) for malformed files.
func (l *Loader) Load(path, applianceType string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading profile %s: %w", path, err)
	}
	handle := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	p, err := l.Parse(data, applianceType, handle)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Parse decodes appliance XML bytes into a Profile.
func (l *Loader) Parse(data []byte, applianceType, handle string) (*Profile, error) {
	var doc xmlAppliance
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProfileFormat, err)
	}

	typ := doc.Type
	switch {
	case applianceType == "":
		if typ == "" {
			return nil, fmt.Errorf("%w: missing appliance type", ErrProfileFormat)
		}
	case !strings.EqualFold(typ, applianceType):
		l.logger.Warn("appliance type mismatch", "handle", handle, "expected", applianceType, "declared", typ)
		typ = applianceType
	default:
		typ = applianceType
	}

	var samples []Sample
	switch {
	case len(doc.Samples) > 0:
		samples = make([]Sample, len(doc.Samples))
		for i, s := range doc.Samples {
			samples[i] = Sample(s)
		}
	case len(doc.Loads) > 0:
		comps, err := l.components(doc.Loads, handle)
		if err != nil {
			return nil, err
		}
		samples, err = renderComponents(comps, int64(doc.Duration+0.5), l.rng)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: no <load> or <sample> elements", ErrProfileFormat)
	}

	return NewProfile(typ, handle, samples)
}

func (l *Loader) components(loads []xmlLoad, handle string) ([]component, error) {
	comps := make([]component, 0, len(loads))
	for i, ld := range loads {
		var (
			c   component
			err error
		)
		g := getter{load: i, err: &err}
		frac := g.get("duration", ld.Duration)
		switch ld.Type {
		case ComponentOnOff:
			c = onOff{frac: frac, on: g.get("onPower", ld.OnPower)}
		case ComponentLinear:
			c = linear{frac: frac, start: g.get("startPower", ld.StartPower), end: g.get("endPower", ld.EndPower)}
		case ComponentOnOffDecay:
			c = onOffDecay{
				frac:   frac,
				active: g.get("activePower", ld.ActivePower),
				peak:   g.get("peakPower", ld.PeakPower),
				rate:   g.get("decayRate", ld.DecayRate),
			}
		case ComponentOnOffGrowth:
			stretch := 1.0
			if ld.StretchFactor.Value != nil {
				stretch = *ld.StretchFactor.Value
			}
			c = onOffGrowth{
				frac:    frac,
				base:    g.get("basePower", ld.BasePower),
				rate:    g.get("growthRate", ld.GrowthRate),
				stretch: stretch,
			}
		case ComponentNoise:
			c = noiseComponent{
				frac:  frac,
				lower: g.get("lower", ld.Lower),
				mean:  g.get("mean", ld.Mean),
				stdev: g.get("stdev", ld.Stdev),
				upper: g.get("upper", ld.Upper),
			}
		default:
			l.logger.Warn("unsupported load component", "handle", handle, "type", ld.Type)
			continue
		}
		if err != nil {
			return nil, err
		}
		comps = append(comps, c)
	}
	return comps, nil
}

// getter records the first missing parameter of a load component.
type getter struct {
	load int
	err  *error
}

func (g getter) get(name string, v xmlValue) float64 {
	if v.Value == nil {
		if *g.err == nil {
			*g.err = fmt.Errorf("%w: load %d missing <%s value=...>", ErrProfileFormat, g.load, name)
		}
		return 0
	}
	return *v.Value
}

// LoadDir loads every regular file in dir as a profile of applianceType.
// Files are read in name order; dot files are ignored.
func (l *Loader) LoadDir(applianceType, dir string) ([]*Profile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading profile directory %s: %w", dir, err)
	}

	var profiles []*Profile
	for _, e := range entries {
		if !e.Type().IsRegular() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		p, err := l.Load(filepath.Join(dir, e.Name()), applianceType)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	if len(profiles) == 0 {
		return nil, fmt.Errorf("%w: no profiles in %s for %s", ErrUnknownType, dir, applianceType)
	}
	l.logger.Info("loaded appliance profiles", "type", applianceType, "dir", dir, "count", len(profiles))
	return profiles, nil
}
