package loader

import (
	"fmt"
	"math/rand/v2"
	"path/filepath"
	"sort"

	"github.com/nerrad567/gray-logic-loadsynth/internal/activity"
	"github.com/nerrad567/gray-logic-loadsynth/internal/appliance"
	"github.com/nerrad567/gray-logic-loadsynth/internal/household"
	"github.com/nerrad567/gray-logic-loadsynth/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-loadsynth/internal/presence"
)

// Logger defines the logging interface used by the loader.
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

// RandomSource hands out named random streams, e.g. *simulation.Streams.
type RandomSource interface {
	Named(name string) *rand.Rand
}

// Household is everything a run needs, loaded and validated.
type Household struct {
	Library    *appliance.Library
	Activities map[string]*activity.Model // by activity name
	Users      []*household.User          // in configuration order
	Mapping    map[string]string          // appliance type -> profile directory
}

// ActivityNames returns the loaded activity names, sorted.
func (h *Household) ActivityNames() []string {
	names := make([]string, 0, len(h.Activities))
	for n := range h.Activities {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Loader reads the model tree described by a ModelsConfig.
type Loader struct {
	cfg        config.ModelsConfig
	randomized bool
	random     RandomSource
	logger     Logger
}

// New creates a loader. random drives profile rendering and the choice of
// device handles for activities without a configured binding.
func New(cfg config.ModelsConfig, randomized bool, random RandomSource) *Loader {
	return &Loader{cfg: cfg, randomized: randomized, random: random, logger: noopLogger{}}
}

// SetLogger sets the logger for the loader.
func (l *Loader) SetLogger(logger Logger) {
	l.logger = logger
}

func (l *Loader) path(dir, name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(l.cfg.Root, dir, name)
}

// Load reads the mapping, appliance profiles, activities and users.
// Every returned error wraps ErrConfiguration.
func (l *Loader) Load() (*Household, error) {
	mapping, err := l.loadMapping()
	if err != nil {
		return nil, configError(err)
	}

	lib, err := l.loadLibrary(mapping)
	if err != nil {
		return nil, configError(err)
	}

	h := &Household{
		Library:    lib,
		Activities: make(map[string]*activity.Model),
		Mapping:    mapping,
	}
	byFile := make(map[string]*activity.Model)

	for _, ref := range l.cfg.Users {
		u, err := l.loadUser(ref, lib, h, byFile)
		if err != nil {
			return nil, configError(err)
		}
		h.Users = append(h.Users, u)
	}
	if len(h.Users) == 0 {
		return nil, configError(fmt.Errorf("no users configured"))
	}

	l.logger.Info("household loaded", "users", len(h.Users), "activities", len(h.Activities),
		"appliance_types", len(lib.Types()), "profiles", lib.Len())
	return h, nil
}

func configError(err error) error {
	return fmt.Errorf("%w: %w", ErrConfiguration, err)
}

// loadMapping reads the mapping file (if any) and applies the overrides of
// the run configuration.
func (l *Loader) loadMapping() (map[string]string, error) {
	mapping := make(map[string]string)
	if l.cfg.Mapping != "" {
		var mf mappingFile
		if err := readYAML(l.path("", l.cfg.Mapping), &mf); err != nil {
			return nil, err
		}
		for typ, dir := range mf.Devices {
			mapping[typ] = dir
		}
	}
	for typ, dir := range l.cfg.Devices {
		if prev, ok := mapping[typ]; ok && prev != dir {
			l.logger.Info("device mapping overridden", "type", typ, "from", prev, "to", dir)
		}
		mapping[typ] = dir
	}
	if len(mapping) == 0 {
		return nil, fmt.Errorf("no appliance types mapped")
	}
	return mapping, nil
}

func (l *Loader) loadLibrary(mapping map[string]string) (*appliance.Library, error) {
	types := make([]string, 0, len(mapping))
	for t := range mapping {
		types = append(types, t)
	}
	sort.Strings(types)

	pl := appliance.NewLoader(l.random.Named("profiles"))
	pl.SetLogger(l.logger)

	lib := appliance.NewLibrary()
	for _, typ := range types {
		profiles, err := pl.LoadDir(typ, l.path(l.cfg.AppliancesDir, mapping[typ]))
		if err != nil {
			return nil, err
		}
		for _, p := range profiles {
			lib.Add(p)
		}
	}
	return lib, nil
}

func (l *Loader) loadUser(ref config.UserRef, lib *appliance.Library, h *Household,
	byFile map[string]*activity.Model) (*household.User, error) {
	path := l.path(l.cfg.UsersDir, ref.File)
	var uf userFile
	if err := readYAML(path, &uf); err != nil {
		return nil, err
	}
	name := uf.Name
	if name == "" {
		name = ref.ID
	}

	week, err := presence.ParseWeek(uf.Presence)
	if err != nil {
		return nil, fmt.Errorf("%s presence: %w", path, err)
	}

	var assignments []household.Assignment
	for i, af := range uf.Activities {
		if af.Model == "" || af.DailyRuns == nil {
			l.logger.Warn("activity entry incomplete, skipping", "user", name, "entry", i, "name", af.Name)
			continue
		}

		model, err := l.activity(af.Model, lib, h, byFile)
		if err != nil {
			return nil, err
		}

		var restriction presence.Week
		if len(af.Window) > 0 {
			restriction, err = presence.ParseWeek(af.Window)
			if err != nil {
				return nil, fmt.Errorf("%s activity %s window: %w", path, model.Name, err)
			}
		}
		assignments = append(assignments, household.Assignment{
			Activity:    model,
			DailyRuns:   *af.DailyRuns,
			Restriction: restriction,
		})
	}

	u, err := household.NewUser(ref.ID, name, week, assignments)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	l.logger.Debug("user loaded", "user", name, "assignments", len(assignments))
	return u, nil
}

// activity loads an activity file once and shares the model between users.
func (l *Loader) activity(file string, lib *appliance.Library, h *Household,
	byFile map[string]*activity.Model) (*activity.Model, error) {
	path := l.path(l.cfg.ActivitiesDir, file)
	if m, ok := byFile[path]; ok {
		return m, nil
	}

	var af activityFile
	if err := readYAML(path, &af); err != nil {
		return nil, err
	}
	m, err := buildModel(af)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if prev, dup := h.Activities[m.Name]; dup && prev != nil {
		return nil, fmt.Errorf("%s: activity name %s already defined by another file", path, m.Name)
	}
	if err := l.bind(m, lib); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	byFile[path] = m
	h.Activities[m.Name] = m
	return m, nil
}

func buildModel(af activityFile) (*activity.Model, error) {
	m := &activity.Model{
		Name:    af.Name,
		Devices: af.Devices,
		States:  make(map[int]activity.State, len(af.States)),
	}
	if m.Devices == nil {
		m.Devices = map[int]string{}
	}
	for _, sf := range af.States {
		if _, dup := m.States[sf.ID]; dup {
			return nil, fmt.Errorf("%w: state %d defined twice", activity.ErrInvalidActivity, sf.ID)
		}
		s := activity.State{
			ID:              sf.ID,
			Name:            sf.Name,
			MinDuration:     sf.Min,
			MaxDuration:     sf.Max,
			InvolvesUser:    sf.User,
			RunToCompletion: sf.Complete,
			DeviceKey:       sf.Device,
		}
		for _, tf := range sf.Transitions {
			s.Transitions = append(s.Transitions, activity.Transition{Target: tf.To, Probability: tf.P})
		}
		m.States[sf.ID] = s
	}
	if err := activity.ValidateModel(m); err != nil {
		return nil, err
	}
	return m, nil
}

// bind checks that every appliance type of m has profiles and fixes the
// device handle per type, from the configuration or drawn once per run.
func (l *Loader) bind(m *activity.Model, lib *appliance.Library) error {
	pinned := l.cfg.Bindings[m.Name]
	m.Bindings = make(map[string]string)
	for _, typ := range m.ApplianceTypes() {
		if !lib.HasType(typ) {
			return fmt.Errorf("%w: %s uses appliance type %s which has no profiles", activity.ErrUnknownDevice, m.Name, typ)
		}
		if h, ok := pinned[typ]; ok {
			if _, err := lib.SelectProfile(typ, h, false, nil); err != nil {
				return err
			}
			m.Bindings[typ] = h
			continue
		}
		h, err := lib.RandomHandle(typ, l.random.Named("binding/"+m.Name+"/"+typ))
		if err != nil {
			return err
		}
		m.Bindings[typ] = h
	}
	if l.randomized {
		l.logger.Debug("activity loaded, profiles drawn per occurrence", "activity", m.Name)
	} else {
		l.logger.Debug("activity loaded", "activity", m.Name, "bindings", m.Bindings)
	}
	return nil
}
