package loader

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/nerrad567/gray-logic-loadsynth/internal/activity"
	"github.com/nerrad567/gray-logic-loadsynth/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-loadsynth/internal/presence"
	"github.com/nerrad567/gray-logic-loadsynth/internal/simulation"
)

const vacuumXML = `<appliance type="VACUUM" duration="600">
  <load type="ON_OFF"><onPower value="1400"/><duration value="1.0"/></load>
</appliance>`

const kettleXML = `<appliance type="KETTLE">
  <sample offset="0" power="2000"/>
  <sample offset="150" power="0"/>
</appliance>`

const vacuumYAML = `name: VACUUMING
devices: {1: VACUUM}
states:
  - {id: 0, name: vacuum, min: 0, max: 0, user: true, complete: true, device: 1, transitions: [{to: 1, p: 1.0}]}
  - {id: 1, name: rest, min: 300, max: 600, user: true, complete: true, device: 0, transitions: [{to: 0, p: 0.2}, {to: 99, p: 0.8}]}
`

const teaYAML = `name: TEA
devices: {1: KETTLE}
states:
  - {id: 0, name: boil, user: true, complete: true, device: 1}
`

const aliceYAML = `name: Alice
presence:
  monday: "07:00-09:00,17:00-23:00"
  saturday: "08:00-24:00"
activities:
  - {name: vacuum, model: vacuuming.yaml, daily_runs: 0.5, window: {saturday: "09:00-12:00"}}
  - {name: tea, model: tea.yaml, daily_runs: 2}
  - {name: broken, model: tea.yaml}
`

const bobYAML = `name: Bob
presence:
  sunday: "00:00-24:00"
activities:
  - {name: tea, model: tea.yaml, daily_runs: 1.5}
`

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func defaultTree() map[string]string {
	return map[string]string{
		"mapping.yaml":                   "devices:\n  VACUUM: vacuums\n  KETTLE: kettles\n",
		"appliances/vacuums/vac_a.xml":   vacuumXML,
		"appliances/vacuums/vac_b.xml":   vacuumXML,
		"appliances/kettles/kettle.xml":  kettleXML,
		"appliances/kettles2/other.xml":  kettleXML,
		"activities/vacuuming.yaml":      vacuumYAML,
		"activities/tea.yaml":            teaYAML,
		"users/alice.yaml":               aliceYAML,
		"users/bob.yaml":                 bobYAML,
	}
}

func modelsConfig(root string) config.ModelsConfig {
	return config.ModelsConfig{
		Root:          root,
		UsersDir:      "users",
		ActivitiesDir: "activities",
		AppliancesDir: "appliances",
		Mapping:       "mapping.yaml",
		Users:         []config.UserRef{{ID: "u1", File: "alice.yaml"}, {ID: "u2", File: "bob.yaml"}},
	}
}

func TestLoad(t *testing.T) {
	root := writeTree(t, defaultTree())
	cfg := modelsConfig(root)
	cfg.Bindings = map[string]map[string]string{"VACUUMING": {"VACUUM": "vac_b"}}

	h, err := New(cfg, false, simulation.NewStreams(1)).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(h.Users) != 2 || h.Users[0].Name != "Alice" || h.Users[1].Handle != "u2" {
		t.Fatalf("users = %+v", h.Users)
	}
	alice := h.Users[0]
	if len(alice.Assignments) != 2 {
		t.Fatalf("alice assignments = %d, want 2 (incomplete entry skipped)", len(alice.Assignments))
	}
	if alice.Assignments[0].Restriction == nil || len(alice.Assignments[0].Restriction[presence.Monday]) != 0 {
		t.Error("vacuum window should exist and block monday")
	}
	if alice.Assignments[1].Restriction != nil {
		t.Error("tea has no window and should be unrestricted")
	}
	if !alice.Calendar().IsPresent(presence.Saturday, 23*3600+59*60) {
		t.Error("24:00 should clamp to the end of saturday")
	}

	if alice.Assignments[1].Activity != h.Users[1].Assignments[0].Activity {
		t.Error("users should share the model of one activity file")
	}
	if got := h.ActivityNames(); len(got) != 2 || got[0] != "TEA" || got[1] != "VACUUMING" {
		t.Errorf("ActivityNames() = %v", got)
	}
	if h.Activities["VACUUMING"].Bindings["VACUUM"] != "vac_b" {
		t.Errorf("pinned binding = %q, want vac_b", h.Activities["VACUUMING"].Bindings["VACUUM"])
	}
	if h.Activities["TEA"].Bindings["KETTLE"] != "kettle" {
		t.Errorf("drawn binding = %q, want the only kettle", h.Activities["TEA"].Bindings["KETTLE"])
	}
	if h.Library.Len() != 3 {
		t.Errorf("library profiles = %d, want 3", h.Library.Len())
	}
	if p, err := h.Library.SelectProfile("VACUUM", "vac_a", false, nil); err != nil || p.NaturalDuration() != 600 {
		t.Errorf("vac_a = %v, %v", p, err)
	}
}

func TestLoad_DeviceOverride(t *testing.T) {
	root := writeTree(t, defaultTree())
	cfg := modelsConfig(root)
	cfg.Devices = map[string]string{"KETTLE": "kettles2"}

	h, err := New(cfg, false, simulation.NewStreams(1)).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := h.Library.Handles("KETTLE"); len(got) != 1 || got[0] != "other" {
		t.Errorf("KETTLE handles = %v, want [other]", got)
	}
	if h.Mapping["KETTLE"] != "kettles2" {
		t.Errorf("mapping = %v", h.Mapping)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(files map[string]string, cfg *config.ModelsConfig)
		wantErr error
	}{
		{
			name: "unmapped appliance type",
			mutate: func(f map[string]string, _ *config.ModelsConfig) {
				f["mapping.yaml"] = "devices:\n  KETTLE: kettles\n"
			},
			wantErr: activity.ErrUnknownDevice,
		},
		{
			name: "dangling device key",
			mutate: func(f map[string]string, _ *config.ModelsConfig) {
				f["activities/tea.yaml"] = "name: TEA\ndevices: {1: KETTLE}\nstates:\n  - {id: 0, name: boil, device: 2}\n"
			},
			wantErr: activity.ErrUnknownDevice,
		},
		{
			name: "malformed presence",
			mutate: func(f map[string]string, _ *config.ModelsConfig) {
				f["users/bob.yaml"] = "name: Bob\npresence:\n  sunday: \"25-7\"\n"
			},
			wantErr: presence.ErrInvalidRange,
		},
		{
			name: "non monotonic profile",
			mutate: func(f map[string]string, _ *config.ModelsConfig) {
				f["appliances/kettles/kettle.xml"] = `<appliance type="KETTLE"><sample offset="0" power="1"/><sample offset="0" power="0"/></appliance>`
			},
		},
		{
			name: "unknown yaml key",
			mutate: func(f map[string]string, _ *config.ModelsConfig) {
				f["activities/tea.yaml"] = teaYAML + "colour: blue\n"
			},
		},
		{
			name: "missing user file",
			mutate: func(_ map[string]string, cfg *config.ModelsConfig) {
				cfg.Users = append(cfg.Users, config.UserRef{ID: "u3", File: "nobody.yaml"})
			},
		},
		{
			name: "unknown pinned handle",
			mutate: func(_ map[string]string, cfg *config.ModelsConfig) {
				cfg.Bindings = map[string]map[string]string{"TEA": {"KETTLE": "missing"}}
			},
		},
		{
			name: "no entry state",
			mutate: func(f map[string]string, _ *config.ModelsConfig) {
				f["activities/tea.yaml"] = "name: TEA\ndevices: {1: KETTLE}\nstates:\n  - {id: 3, name: boil, device: 1}\n"
			},
			wantErr: activity.ErrInvalidActivity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			files := defaultTree()
			cfg := modelsConfig("")
			tt.mutate(files, &cfg)
			cfg.Root = writeTree(t, files)

			_, err := New(cfg, false, simulation.NewStreams(1)).Load()
			if !errors.Is(err, ErrConfiguration) {
				t.Fatalf("Load() error = %v, want ErrConfiguration", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Load() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
