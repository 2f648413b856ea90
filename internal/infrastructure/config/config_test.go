package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	content := `
run:
  name: "two-person flat"
  days: 7
  seed: 42
  first_weekday: 2
  randomize_profiles: true
  noise: "G100"
models:
  root: "/srv/models"
  users:
    - id: "u1"
      file: "alice.yaml"
    - id: "u2"
      file: "bob.yaml"
  devices:
    KETTLE: "kettle_b"
output:
  dir: "/tmp/out"
  overwrite: true
database:
  enabled: true
  path: "/tmp/test.db"
mqtt:
  qos: 1
`
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Run.Name != "two-person flat" {
		t.Errorf("Run.Name = %q, want %q", cfg.Run.Name, "two-person flat")
	}
	if cfg.Run.Days != 7 {
		t.Errorf("Run.Days = %d, want 7", cfg.Run.Days)
	}
	if cfg.Run.Seed == nil || *cfg.Run.Seed != 42 {
		t.Errorf("Run.Seed = %v, want 42", cfg.Run.Seed)
	}
	if cfg.Run.FirstWeekday == nil || *cfg.Run.FirstWeekday != 2 {
		t.Errorf("Run.FirstWeekday = %v, want 2", cfg.Run.FirstWeekday)
	}
	if !cfg.Run.RandomizeProfiles {
		t.Error("Run.RandomizeProfiles = false, want true")
	}
	if len(cfg.Models.Users) != 2 || cfg.Models.Users[1].File != "bob.yaml" {
		t.Errorf("Models.Users = %+v", cfg.Models.Users)
	}
	if cfg.Models.Devices["KETTLE"] != "kettle_b" {
		t.Errorf("Models.Devices[KETTLE] = %q, want kettle_b", cfg.Models.Devices["KETTLE"])
	}
	// Defaults survive for keys the file does not set
	if cfg.Models.UsersDir != "users" {
		t.Errorf("Models.UsersDir = %q, want default %q", cfg.Models.UsersDir, "users")
	}
	if cfg.Run.MaxAttempts != 10 {
		t.Errorf("Run.MaxAttempts = %d, want default 10", cfg.Run.MaxAttempts)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "invalid: [yaml: content"))
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	content := `
run:
  days: 0
models:
  users:
    - id: "u1"
      file: "alice.yaml"
`
	_, err := Load(writeConfig(t, content))
	if err == nil {
		t.Fatal("Load() expected validation error for run.days = 0, got nil")
	}
	if !strings.Contains(err.Error(), "run.days") {
		t.Errorf("error %q does not mention run.days", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	users := []UserRef{{ID: "u1", File: "alice.yaml"}}
	valid := func() *Config {
		cfg := defaultConfig()
		cfg.Models.Users = users
		return cfg
	}
	badWeekday := 7

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{
			name:    "valid config",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name:    "no users",
			mutate:  func(c *Config) { c.Models.Users = nil },
			wantErr: true,
		},
		{
			name: "duplicate user id",
			mutate: func(c *Config) {
				c.Models.Users = []UserRef{{ID: "a", File: "x"}, {ID: "a", File: "y"}}
			},
			wantErr: true,
		},
		{
			name:    "zero max attempts",
			mutate:  func(c *Config) { c.Run.MaxAttempts = 0 },
			wantErr: true,
		},
		{
			name:    "zero workers",
			mutate:  func(c *Config) { c.Run.Workers = 0 },
			wantErr: true,
		},
		{
			name:    "weekday out of range",
			mutate:  func(c *Config) { c.Run.FirstWeekday = &badWeekday },
			wantErr: true,
		},
		{
			name:    "constant noise",
			mutate:  func(c *Config) { c.Run.Noise = "C200" },
			wantErr: false,
		},
		{
			name:    "unknown noise mode",
			mutate:  func(c *Config) { c.Run.Noise = "X200" },
			wantErr: true,
		},
		{
			name:    "invalid QoS",
			mutate:  func(c *Config) { c.MQTT.QoS = 3 },
			wantErr: true,
		},
		{
			name: "run log without path",
			mutate: func(c *Config) {
				c.Database.Enabled = true
				c.Database.Path = ""
			},
			wantErr: true,
		},
		{
			name: "influxdb without bucket",
			mutate: func(c *Config) {
				c.InfluxDB.Enabled = true
				c.InfluxDB.URL = "http://localhost:8086"
			},
			wantErr: true,
		},
		{
			name: "api without run log",
			mutate: func(c *Config) {
				c.API.Enabled = true
			},
			wantErr: true,
		},
		{
			name:    "short jwt secret",
			mutate:  func(c *Config) { c.Security.JWT.Secret = "too-short" },
			wantErr: true,
		},
		{
			name:    "jwt secret",
			mutate:  func(c *Config) { c.Security.JWT.Secret = "0123456789abcdef0123456789abcdef" },
			wantErr: false,
		},
		{
			name: "api port high",
			mutate: func(c *Config) {
				c.API.Enabled = true
				c.Database.Enabled = true
				c.API.Port = 70000
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_GetTimeouts(t *testing.T) {
	cfg := &Config{
		API: APIConfig{
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 45,
				Idle:  60,
			},
		},
	}

	if got := cfg.GetReadTimeout().Seconds(); got != 30 {
		t.Errorf("GetReadTimeout() = %v, want 30", got)
	}

	if got := cfg.GetWriteTimeout().Seconds(); got != 45 {
		t.Errorf("GetWriteTimeout() = %v, want 45", got)
	}

	if got := cfg.GetIdleTimeout().Seconds(); got != 60 {
		t.Errorf("GetIdleTimeout() = %v, want 60", got)
	}

	cfg.Security.JWT.AccessTokenTTL = 90
	if got := cfg.GetTokenTTL().Minutes(); got != 90 {
		t.Errorf("GetTokenTTL() = %v, want 90", got)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := defaultConfig()

	t.Setenv("LOADSYNTH_RUN_SEED", "1234")
	t.Setenv("LOADSYNTH_OUTPUT_DIR", "/custom/out")
	t.Setenv("LOADSYNTH_DATABASE_PATH", "/custom/path.db")
	t.Setenv("LOADSYNTH_MQTT_HOST", "mqtt.example.com")
	t.Setenv("LOADSYNTH_MQTT_USERNAME", "testuser")
	t.Setenv("LOADSYNTH_MQTT_PASSWORD", "testpass")
	t.Setenv("LOADSYNTH_API_HOST", "192.168.1.1")
	t.Setenv("LOADSYNTH_INFLUXDB_TOKEN", "secret-token")
	t.Setenv("LOADSYNTH_JWT_SECRET", "env-jwt-secret")

	if err := applyEnvOverrides(cfg); err != nil {
		t.Fatalf("applyEnvOverrides() error = %v", err)
	}

	if cfg.Run.Seed == nil || *cfg.Run.Seed != 1234 {
		t.Errorf("Run.Seed = %v, want 1234", cfg.Run.Seed)
	}
	if cfg.Output.Dir != "/custom/out" {
		t.Errorf("Output.Dir = %q, want %q", cfg.Output.Dir, "/custom/out")
	}
	if cfg.Database.Path != "/custom/path.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/custom/path.db")
	}
	if cfg.MQTT.Broker.Host != "mqtt.example.com" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "mqtt.example.com")
	}
	if cfg.MQTT.Auth.Username != "testuser" {
		t.Errorf("MQTT.Auth.Username = %q, want %q", cfg.MQTT.Auth.Username, "testuser")
	}
	if cfg.MQTT.Auth.Password != "testpass" {
		t.Errorf("MQTT.Auth.Password = %q, want %q", cfg.MQTT.Auth.Password, "testpass")
	}
	if cfg.API.Host != "192.168.1.1" {
		t.Errorf("API.Host = %q, want %q", cfg.API.Host, "192.168.1.1")
	}
	if cfg.InfluxDB.Token != "secret-token" {
		t.Errorf("InfluxDB.Token = %q, want %q", cfg.InfluxDB.Token, "secret-token")
	}
	if cfg.Security.JWT.Secret != "env-jwt-secret" {
		t.Errorf("Security.JWT.Secret = %q, want %q", cfg.Security.JWT.Secret, "env-jwt-secret")
	}
}

func TestApplyEnvOverrides_BadSeed(t *testing.T) {
	cfg := defaultConfig()
	t.Setenv("LOADSYNTH_RUN_SEED", "not-a-number")

	if err := applyEnvOverrides(cfg); err == nil {
		t.Error("applyEnvOverrides() expected error for non-numeric seed")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Run.Days != 1 {
		t.Errorf("defaultConfig Run.Days = %d, want 1", cfg.Run.Days)
	}

	if cfg.Database.Path == "" {
		t.Error("defaultConfig should have non-empty Database.Path")
	}

	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("defaultConfig MQTT.Broker.Port = %d, want 1883", cfg.MQTT.Broker.Port)
	}

	if cfg.InfluxDB.Resolution != 60 {
		t.Errorf("defaultConfig InfluxDB.Resolution = %d, want 60", cfg.InfluxDB.Resolution)
	}
}
