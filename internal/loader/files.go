package loader

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// mappingFile is the appliance type to profile directory mapping.
type mappingFile struct {
	Devices map[string]string `yaml:"devices"`
}

type transitionFile struct {
	To int     `yaml:"to"`
	P  float64 `yaml:"p"`
}

type stateFile struct {
	ID          int              `yaml:"id"`
	Name        string           `yaml:"name"`
	Min         int64            `yaml:"min"`
	Max         int64            `yaml:"max"`
	User        bool             `yaml:"user"`
	Complete    bool             `yaml:"complete"`
	Device      int              `yaml:"device"`
	Transitions []transitionFile `yaml:"transitions"`
}

type activityFile struct {
	Name    string         `yaml:"name"`
	Devices map[int]string `yaml:"devices"`
	States  []stateFile    `yaml:"states"`
}

type assignmentFile struct {
	Name      string            `yaml:"name"`
	Model     string            `yaml:"model"`
	DailyRuns *float64          `yaml:"daily_runs"`
	Window    map[string]string `yaml:"window"`
}

type userFile struct {
	Name       string            `yaml:"name"`
	Presence   map[string]string `yaml:"presence"`
	Activities []assignmentFile  `yaml:"activities"`
}

// readYAML decodes a YAML file into out, rejecting unknown keys.
func readYAML(path string, out any) error {
	f, err := os.Open(path) //nolint:gosec // path comes from the run configuration
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck // read-only file

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}
