package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for loadsynth.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Run       RunConfig       `yaml:"run"`
	Models    ModelsConfig    `yaml:"models"`
	Output    OutputConfig    `yaml:"output"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	Security  SecurityConfig  `yaml:"security"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// RunConfig contains the parameters of a single synthesis run.
type RunConfig struct {
	Name string `yaml:"name"`
	Days int    `yaml:"days"`

	// Seed initialises every random stream of the run. When nil, a seed is
	// derived from the wall clock and reported in the summary.
	Seed *uint64 `yaml:"seed"`

	// FirstWeekday is the weekday of simulated day 0 (0 = Monday).
	// When nil it is drawn from the seed.
	FirstWeekday *int `yaml:"first_weekday"`

	// RandomizeProfiles resamples the appliance profile for every occurrence
	// instead of keeping the one bound at load time.
	RandomizeProfiles bool `yaml:"randomize_profiles"`

	// MaxAttempts bounds the start times tried per occurrence.
	MaxAttempts int `yaml:"max_attempts"`

	// Workers bounds how many users of a day are scheduled concurrently.
	Workers int `yaml:"workers"`

	// Noise is "" (none), "C<watts>" (constant) or "G<watts>" (Gaussian).
	Noise string `yaml:"noise"`
}

// UserRef points at one user model file.
type UserRef struct {
	ID   string `yaml:"id"`
	File string `yaml:"file"`
}

// ModelsConfig locates the user, activity and appliance model files.
type ModelsConfig struct {
	Root          string    `yaml:"root"`
	UsersDir      string    `yaml:"users_dir"`
	ActivitiesDir string    `yaml:"activities_dir"`
	AppliancesDir string    `yaml:"appliances_dir"`
	Users         []UserRef `yaml:"users"`

	// Mapping is an optional file with a "devices" table (type -> directory).
	Mapping string `yaml:"mapping"`

	// Devices overrides individual entries of the mapping file.
	Devices map[string]string `yaml:"devices"`

	// Bindings pins device handles per activity: activity -> type -> handle.
	Bindings map[string]map[string]string `yaml:"bindings"`
}

// OutputConfig controls where trace files are written.
type OutputConfig struct {
	Dir       string `yaml:"dir"`
	Overwrite bool   `yaml:"overwrite"`
}

// DatabaseConfig contains SQLite run log settings.
type DatabaseConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// InfluxDBConfig contains InfluxDB export settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`

	// Resolution is the export bucket width in seconds; each point carries
	// the mean power of its bucket.
	Resolution int `yaml:"resolution"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains WebSocket progress stream settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// SecurityConfig contains API security settings.
type SecurityConfig struct {
	JWT JWTConfig `yaml:"jwt"`
}

// JWTConfig contains bearer token settings. An empty secret leaves the
// API open.
type JWTConfig struct {
	Secret string `yaml:"secret"`

	// AccessTokenTTL is the lifetime of issued tokens in minutes.
	AccessTokenTTL int `yaml:"access_token_ttl"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// noisePattern matches the noise setting ("C200", "G50").
var noisePattern = regexp.MustCompile(`^[CG][0-9]+$`)

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: LOADSYNTH_SECTION_KEY
// For example: LOADSYNTH_DATABASE_PATH, LOADSYNTH_OUTPUT_DIR
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Run: RunConfig{
			Name:        "loadsynth",
			Days:        1,
			MaxAttempts: 10,
			Workers:     4,
		},
		Models: ModelsConfig{
			Root:          ".",
			UsersDir:      "users",
			ActivitiesDir: "activities",
			AppliancesDir: "appliances",
		},
		Output: OutputConfig{
			Dir: "./output",
		},
		Database: DatabaseConfig{
			Path:        "./data/loadsynth.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "loadsynth",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     5000,
			FlushInterval: 1,
			Resolution:    60,
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Security: SecurityConfig{
			JWT: JWTConfig{
				AccessTokenTTL: 1440,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: LOADSYNTH_SECTION_KEY
func applyEnvOverrides(cfg *Config) error {
	// Run
	if v := os.Getenv("LOADSYNTH_RUN_SEED"); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("parsing LOADSYNTH_RUN_SEED: %w", err)
		}
		cfg.Run.Seed = &seed
	}

	// Output
	if v := os.Getenv("LOADSYNTH_OUTPUT_DIR"); v != "" {
		cfg.Output.Dir = v
	}

	// Database
	if v := os.Getenv("LOADSYNTH_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("LOADSYNTH_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("LOADSYNTH_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("LOADSYNTH_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("LOADSYNTH_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// API
	if v := os.Getenv("LOADSYNTH_API_HOST"); v != "" {
		cfg.API.Host = v
	}

	// Security
	if v := os.Getenv("LOADSYNTH_JWT_SECRET"); v != "" {
		cfg.Security.JWT.Secret = v
	}

	return nil
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of every validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Run validation
	if c.Run.Days < 1 {
		errs = append(errs, "run.days must be at least 1")
	}
	if c.Run.MaxAttempts < 1 {
		errs = append(errs, "run.max_attempts must be at least 1")
	}
	if c.Run.Workers < 1 {
		errs = append(errs, "run.workers must be at least 1")
	}
	if c.Run.FirstWeekday != nil && (*c.Run.FirstWeekday < 0 || *c.Run.FirstWeekday > 6) {
		errs = append(errs, "run.first_weekday must be 0 (Monday) to 6 (Sunday)")
	}
	if c.Run.Noise != "" && !noisePattern.MatchString(c.Run.Noise) {
		errs = append(errs, `run.noise must look like "C200" or "G50"`)
	}

	// Models validation
	if len(c.Models.Users) == 0 {
		errs = append(errs, "models.users must list at least one user")
	}
	seen := make(map[string]bool, len(c.Models.Users))
	for i, u := range c.Models.Users {
		if u.ID == "" || u.File == "" {
			errs = append(errs, fmt.Sprintf("models.users[%d] needs both id and file", i))
			continue
		}
		if seen[u.ID] {
			errs = append(errs, fmt.Sprintf("models.users[%d]: duplicate id %q", i, u.ID))
		}
		seen[u.ID] = true
	}

	// Output validation
	if c.Output.Dir == "" {
		errs = append(errs, "output.dir is required")
	}

	// Database validation
	if c.Database.Enabled && c.Database.Path == "" {
		errs = append(errs, "database.path is required when the run log is enabled")
	}

	// MQTT validation
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	// InfluxDB validation
	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" || c.InfluxDB.Bucket == "" {
			errs = append(errs, "influxdb.url and influxdb.bucket are required when enabled")
		}
		if c.InfluxDB.Resolution < 1 {
			errs = append(errs, "influxdb.resolution must be at least 1 second")
		}
	}

	// API validation
	if c.API.Enabled {
		if c.API.Port < 1 || c.API.Port > 65535 {
			errs = append(errs, "api.port must be between 1 and 65535")
		}
		if !c.Database.Enabled {
			errs = append(errs, "api.enabled requires database.enabled (the API serves the run log)")
		}
	}

	// Security validation
	const minJWTSecretLength = 32
	if c.Security.JWT.Secret != "" && len(c.Security.JWT.Secret) < minJWTSecretLength {
		errs = append(errs, "security.jwt.secret must be at least 32 characters for adequate security")
	}
	if c.Security.JWT.AccessTokenTTL < 0 {
		errs = append(errs, "security.jwt.access_token_ttl must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetTokenTTL returns the lifetime of issued API tokens as a Duration.
func (c *Config) GetTokenTTL() time.Duration {
	return time.Duration(c.Security.JWT.AccessTokenTTL) * time.Minute
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
