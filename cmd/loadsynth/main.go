// loadsynth - Household Load Trace Synthesizer
//
// This is the main entry point for loadsynth. A run loads the household
// models, simulates the configured number of days and writes per-second
// power traces for the whole house, every user, activity and appliance.
//
// Optional sinks are configured in the same file:
//   - SQLite run log (and the read-only HTTP API over it)
//   - InfluxDB export of the traces
//   - MQTT run status and summary notifications
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"
	"gopkg.in/cheggaaa/pb.v1"

	_ "github.com/nerrad567/gray-logic-loadsynth/migrations"

	"github.com/nerrad567/gray-logic-loadsynth/internal/activity"
	"github.com/nerrad567/gray-logic-loadsynth/internal/api"
	"github.com/nerrad567/gray-logic-loadsynth/internal/audit"
	"github.com/nerrad567/gray-logic-loadsynth/internal/auth"
	"github.com/nerrad567/gray-logic-loadsynth/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-loadsynth/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-loadsynth/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-loadsynth/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-loadsynth/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-loadsynth/internal/loader"
	"github.com/nerrad567/gray-logic-loadsynth/internal/noise"
	"github.com/nerrad567/gray-logic-loadsynth/internal/output"
	"github.com/nerrad567/gray-logic-loadsynth/internal/presence"
	"github.com/nerrad567/gray-logic-loadsynth/internal/runlog"
	"github.com/nerrad567/gray-logic-loadsynth/internal/simulation"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// stdout receives command output that is not logging, such as issued tokens.
var stdout io.Writer = os.Stdout

func main() {
	// Cancel on interrupt signals (Ctrl+C, SIGTERM); the run stops at the
	// next day boundary.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// cliFlags holds the command-line overrides of the configuration file.
type cliFlags struct {
	configPath string
	days       int
	seed       string
	noise      string
	output     string
	overwrite  bool
	randomize  bool
	serve      bool
	quiet      bool
	verbose    bool
	issueToken string
	tokenRole  string

	set map[string]bool
}

// parseFlags parses args. Only flags present on the command line override
// the configuration file.
func parseFlags(args []string) (*cliFlags, error) {
	f := &cliFlags{set: make(map[string]bool)}

	fs := flag.NewFlagSet("loadsynth", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&f.configPath, "config", getConfigPath(), "Path to the YAML run configuration")
	fs.IntVar(&f.days, "days", 0, "Number of days to simulate")
	fs.StringVar(&f.seed, "seed", "", "Seed of the random number generator")
	fs.StringVar(&f.noise, "noise", "", `Noise added to the total channel ("C200", "G50")`)
	fs.StringVar(&f.output, "output", "", "Directory for the trace files")
	fs.BoolVar(&f.overwrite, "overwrite", false, "Overwrite existing trace files")
	fs.BoolVar(&f.randomize, "alternate", false, "Vary appliance profiles across operations")
	fs.BoolVar(&f.serve, "serve", false, "Keep the API server running after the run")
	fs.BoolVar(&f.quiet, "quiet", false, "Do not show the progress bar")
	fs.BoolVar(&f.verbose, "verbose", false, "Log debug messages")
	fs.StringVar(&f.issueToken, "issue-token", "", "Print an API token for this subject and exit")
	fs.StringVar(&f.tokenRole, "token-role", string(auth.RoleViewer), "Role of the issued API token (viewer, admin)")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parsing flags: %w", err)
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	fs.Visit(func(fl *flag.Flag) { f.set[fl.Name] = true })
	return f, nil
}

// apply overrides cfg with the flags set on the command line and validates
// the result again.
func (f *cliFlags) apply(cfg *config.Config) error {
	if f.set["days"] {
		cfg.Run.Days = f.days
	}
	if f.set["seed"] {
		seed, err := strconv.ParseUint(f.seed, 10, 64)
		if err != nil {
			return fmt.Errorf("parsing -seed: %w", err)
		}
		cfg.Run.Seed = &seed
	}
	if f.set["noise"] {
		cfg.Run.Noise = f.noise
	}
	if f.set["output"] {
		cfg.Output.Dir = f.output
	}
	if f.set["overwrite"] {
		cfg.Output.Overwrite = f.overwrite
	}
	if f.set["alternate"] {
		cfg.Run.RandomizeProfiles = f.randomize
	}
	if f.verbose {
		cfg.Logging.Level = "debug"
	}
	return cfg.Validate()
}

// run is the actual application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//   - args: Command-line arguments without the program name
//
// Returns:
//   - error: nil when the run completed, or error describing the failure
func run(ctx context.Context, args []string) error {
	log := logging.Default()

	flags, err := parseFlags(args)
	if err != nil {
		return err
	}

	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := flags.apply(cfg); err != nil {
		return fmt.Errorf("applying flags: %w", err)
	}

	if flags.issueToken != "" {
		return issueToken(cfg, flags.issueToken, auth.Role(flags.tokenRole))
	}

	log = logging.New(cfg.Logging, version)
	log.Info("starting loadsynth",
		"version", version,
		"commit", commit,
		"build_date", date,
		"config", flags.configPath,
	)

	noiseCfg, err := noise.Parse(cfg.Run.Noise)
	if err != nil {
		return fmt.Errorf("parsing noise: %w", err)
	}

	seed := uint64(time.Now().UnixNano()) //nolint:gosec // wall clock is never negative here
	if cfg.Run.Seed != nil {
		seed = *cfg.Run.Seed
	}
	streams := simulation.NewStreams(seed)

	firstWeekday := presence.Weekday(streams.Named("first_weekday").IntN(presence.DaysPerWeek))
	if cfg.Run.FirstWeekday != nil {
		firstWeekday = presence.Weekday(*cfg.Run.FirstWeekday)
	}

	// Load models; every file is read before the run starts
	ld := loader.New(cfg.Models, cfg.Run.RandomizeProfiles, streams)
	ld.SetLogger(log.Component("loader"))
	household, err := ld.Load()
	if err != nil {
		return fmt.Errorf("loading models: %w", err)
	}

	// Optional sinks
	sinks, err := openSinks(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer sinks.close(log)

	if cfg.API.Enabled {
		if err := sinks.startAPI(ctx, cfg, log); err != nil {
			return fmt.Errorf("starting API server: %w", err)
		}
	}

	engine := activity.NewEngine(household.Library, cfg.Run.RandomizeProfiles)
	engine.SetLogger(log.Component("engine"))

	runID := uuid.NewString()
	orch := simulation.NewOrchestrator(household.Users, engine, simulation.Options{
		RunID:        runID,
		Name:         cfg.Run.Name,
		Days:         cfg.Run.Days,
		FirstWeekday: firstWeekday,
		Seed:         seed,
		MaxAttempts:  cfg.Run.MaxAttempts,
		Workers:      cfg.Run.Workers,
	})
	orch.SetLogger(log.Component("simulation"))

	var bar *pb.ProgressBar
	if !flags.quiet {
		bar = pb.New(cfg.Run.Days)
		bar.Output = os.Stderr
		bar.ShowSpeed = false
		bar.Prefix("days ")
		bar.Start()
	}
	orch.OnProgress(func(p simulation.DayProgress) {
		if bar != nil {
			bar.Increment()
		}
		sinks.day(p, log)
	})

	sinks.started(runID, cfg.Run.Name, cfg.Run.Days, log)
	res, err := orch.Run(ctx)
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		sinks.failed(runID, err, log)
		return fmt.Errorf("simulating: %w", err)
	}

	// Noise is added to the whole-house channel only
	if noiseCfg.Enabled() {
		total := res.Channels.Total()
		res.Channels.Set(simulation.TotalKey, noise.Apply(total, noiseCfg, streams.Named("noise")))
	}

	summary := output.Summary(res, noiseCfg.String())
	for _, line := range summary {
		log.Info(line)
	}

	writer := output.NewWriter(cfg.Output.Dir, cfg.Output.Overwrite)
	writer.SetLogger(log.Component("output"))
	report, err := writer.WriteAll(res, summary)
	if err != nil {
		sinks.failed(runID, err, log)
		return fmt.Errorf("writing traces: %w", err)
	}
	log.Info("traces written", "dir", cfg.Output.Dir,
		"written", report.Written, "skipped", report.Skipped)

	if err := sinks.completed(ctx, res, noiseCfg.String(), log); err != nil {
		return err
	}

	if flags.serve && sinks.api != nil {
		log.Info("run complete, serving API until shutdown signal", "addr", sinks.api.Addr())
		<-ctx.Done()
		log.Info("shutdown signal received, cleaning up")
	}

	log.Info("loadsynth stopped", "run_id", runID)
	return nil
}

// issueToken prints a signed API token for subject.
func issueToken(cfg *config.Config, subject string, role auth.Role) error {
	token, err := auth.GenerateToken(subject, role, cfg.Security.JWT.Secret, cfg.GetTokenTTL())
	if err != nil {
		return fmt.Errorf("issuing token: %w", err)
	}
	_, err = fmt.Fprintln(stdout, token)
	return err
}

// runSubject names whoever started the run in the audit log.
func runSubject() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return audit.SourceCLI
}

// getConfigPath returns the configuration file path.
// Uses LOADSYNTH_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("LOADSYNTH_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// runSinks holds the optional outputs of a run besides the trace files.
// Every field may be nil when the matching section is disabled.
type runSinks struct {
	db       *database.DB
	runs     runlog.Repository
	audit    audit.Repository
	influx   *influxdb.Client
	mqtt     *mqtt.Client
	notifier *mqtt.Notifier
	api      *api.Server
}

// openSinks connects the enabled sinks. On error the sinks opened so far
// are closed.
func openSinks(ctx context.Context, cfg *config.Config, log *logging.Logger) (*runSinks, error) {
	s := &runSinks{}
	if err := s.open(ctx, cfg, log); err != nil {
		s.close(log)
		return nil, err
	}
	return s, nil
}

func (s *runSinks) open(ctx context.Context, cfg *config.Config, log *logging.Logger) error {
	var err error

	if cfg.Database.Enabled {
		s.db, err = database.Open(database.Config{
			Path:        cfg.Database.Path,
			WALMode:     cfg.Database.WALMode,
			BusyTimeout: cfg.Database.BusyTimeout,
		})
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		if err = s.db.Migrate(ctx); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
		s.runs = runlog.NewSQLiteRepository(s.db)
		s.audit = audit.NewSQLiteRepository(s.db)
		log.Info("run log ready", "path", cfg.Database.Path)
	}

	if cfg.MQTT.Enabled {
		s.mqtt, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		s.mqtt.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
		s.notifier = mqtt.NewNotifier(s.mqtt, byte(cfg.MQTT.QoS)) //nolint:gosec // QoS validated to 0-2
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
	}

	if cfg.InfluxDB.Enabled {
		s.influx, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		s.influx.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	}

	return nil
}

// startAPI starts the HTTP API over the run log.
func (s *runSinks) startAPI(ctx context.Context, cfg *config.Config, log *logging.Logger) error {
	health := map[string]api.HealthChecker{"database": s.db}
	if s.mqtt != nil {
		health["mqtt"] = s.mqtt
	}
	if s.influx != nil {
		health["influxdb"] = s.influx
	}

	srv, err := api.New(api.Deps{
		Config:   cfg.API,
		WS:       cfg.WebSocket,
		Security: cfg.Security,
		Logger:   log.Component("api"),
		Runs:     s.runs,
		Audit:    s.audit,
		Health:   health,
		Version:  version,
	})
	if err != nil {
		return err
	}
	if err := srv.Start(ctx); err != nil {
		return err
	}
	s.api = srv
	return nil
}

func (s *runSinks) started(runID, name string, days int, log *logging.Logger) {
	if s.api != nil {
		s.api.Hub().RunStarted(runID, name, days)
	}
	if s.notifier != nil {
		if err := s.notifier.RunStarted(runID, name, days); err != nil {
			log.Warn("publishing run status failed", "error", err)
		}
	}
}

func (s *runSinks) day(p simulation.DayProgress, log *logging.Logger) {
	if s.api != nil {
		s.api.Hub().RunDay(p)
	}
	if s.notifier != nil {
		if err := s.notifier.Day(p); err != nil {
			log.Debug("publishing day progress failed", "day", p.Day, "error", err)
		}
	}
}

func (s *runSinks) failed(runID string, cause error, log *logging.Logger) {
	if s.api != nil {
		s.api.Hub().RunFailed(runID, cause)
	}
	if s.notifier != nil {
		if err := s.notifier.RunFailed(runID, cause); err != nil {
			log.Warn("publishing run status failed", "error", err)
		}
	}
}

// completed stores and announces a finished run. A run log or InfluxDB
// failure fails the run; notification failures are only logged.
func (s *runSinks) completed(ctx context.Context, res *simulation.Result, noiseDesc string, log *logging.Logger) error {
	if s.runs != nil {
		if err := s.runs.SaveRun(ctx, res, noiseDesc); err != nil {
			s.failed(res.RunID, err, log)
			return fmt.Errorf("saving run: %w", err)
		}
		log.Info("run saved", "run_id", res.RunID, "occurrences", len(res.Occurrences))

		entry := &audit.Entry{
			Action:  audit.ActionRunSaved,
			RunID:   res.RunID,
			Subject: runSubject(),
			Source:  audit.SourceCLI,
			Details: map[string]any{
				"name":        res.Name,
				"days":        res.Days,
				"seed":        strconv.FormatUint(res.Seed, 10),
				"noise":       noiseDesc,
				"occurrences": len(res.Occurrences),
			},
		}
		if err := s.audit.Record(ctx, entry); err != nil {
			log.Warn("recording audit entry failed", "run_id", res.RunID, "error", err)
		}
	}

	if s.influx != nil {
		points, err := s.influx.ExportRun(ctx, res, output.Epoch(res.FirstWeekday))
		if err != nil {
			s.failed(res.RunID, err, log)
			return fmt.Errorf("exporting to InfluxDB: %w", err)
		}
		log.Info("traces exported to InfluxDB", "points", points)
	}

	if s.api != nil {
		s.api.Hub().RunCompleted(res)
	}
	if s.notifier != nil {
		if err := s.notifier.RunCompleted(res, noiseDesc); err != nil {
			log.Warn("publishing run summary failed", "error", err)
		}
	}
	return nil
}

// close releases the sinks in reverse order of opening.
func (s *runSinks) close(log *logging.Logger) {
	if s.api != nil {
		if err := s.api.Close(); err != nil {
			log.Error("error stopping API server", "error", err)
		}
	}
	if s.influx != nil {
		log.Info("closing InfluxDB connection")
		if err := s.influx.Close(); err != nil {
			log.Error("error closing InfluxDB", "error", err)
		}
	}
	if s.mqtt != nil {
		log.Info("disconnecting from MQTT")
		if err := s.mqtt.Close(); err != nil {
			log.Error("error closing MQTT", "error", err)
		}
	}
	if s.db != nil {
		log.Info("closing database")
		if err := s.db.Close(); err != nil {
			log.Error("error closing database", "error", err)
		}
	}
}
