package runlog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nerrad567/gray-logic-loadsynth/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-loadsynth/internal/presence"
	"github.com/nerrad567/gray-logic-loadsynth/internal/simulation"
)

// timestampLayout is fixed-width so that stored timestamps sort as text.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// DefaultListLimit caps list queries that do not set a limit.
const DefaultListLimit = 100

// Repository defines run log persistence.
type Repository interface {
	SaveRun(ctx context.Context, res *simulation.Result, noise string) error
	GetRun(ctx context.Context, id string) (*Run, error)
	ListRuns(ctx context.Context, limit int) ([]Run, error)
	Stats(ctx context.Context, runID string) (*Stats, error)
	Occurrences(ctx context.Context, runID string, filter OccurrenceFilter) ([]Occurrence, error)
	DeleteRun(ctx context.Context, id string) error
}

const runColumns = `id, name, seed, days, first_weekday, noise, max_concurrency,
			total_energy_wh, started_at, elapsed_ms`

// SQLiteRepository implements Repository on the migrated run log schema.
type SQLiteRepository struct {
	db *database.DB
}

// NewSQLiteRepository creates a repository over db. The schema must have
// been migrated.
func NewSQLiteRepository(db *database.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// SaveRun writes res and everything under it in one transaction.
func (r *SQLiteRepository) SaveRun(ctx context.Context, res *simulation.Result, noise string) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO runs (`+runColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			res.RunID,
			res.Name,
			strconv.FormatUint(res.Seed, 10),
			res.Days,
			int(res.FirstWeekday),
			noise,
			res.MaxConcurrency,
			simulation.Energy(res.Channels.Total()),
			res.StartedAt.UTC().Format(timestampLayout),
			res.Elapsed.Milliseconds(),
		)
		if err != nil {
			if isUniqueConstraintError(err) {
				return ErrRunExists
			}
			return fmt.Errorf("inserting run: %w", err)
		}

		for _, name := range res.Activities() {
			c := res.Stats[name]
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO activity_stats (run_id, activity, scheduled, didnt_fit) VALUES (?, ?, ?, ?)",
				res.RunID, name, c.Scheduled, c.DidntFit); err != nil {
				return fmt.Errorf("inserting activity stats: %w", err)
			}
		}

		for _, t := range res.ApplianceTypes() {
			energy := simulation.Energy(res.Channels.Get(simulation.ChannelKey{Kind: simulation.KindAppliance, Name: t}))
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO appliance_runs (run_id, appliance_type, runs, energy_wh) VALUES (?, ?, ?, ?)",
				res.RunID, t, res.ApplianceRuns[t], energy); err != nil {
				return fmt.Errorf("inserting appliance runs: %w", err)
			}
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO occurrences (
				id, run_id, user_name, activity, day, start_s, end_s, attempts, outcome, operations
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("preparing occurrence insert: %w", err)
		}
		defer stmt.Close() //nolint:errcheck // closed with the transaction

		for _, o := range res.Occurrences {
			if _, err := stmt.ExecContext(ctx,
				o.ID, res.RunID, o.User, o.Activity, o.Day, o.Start, o.End,
				o.Attempts, string(o.Outcome), len(o.Operations)); err != nil {
				return fmt.Errorf("inserting occurrence %s: %w", o.ID, err)
			}
		}
		return nil
	})
}

// GetRun retrieves a run header by ID.
func (r *SQLiteRepository) GetRun(ctx context.Context, id string) (*Run, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("querying run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs first.
func (r *SQLiteRepository) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only query

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}
	return runs, nil
}

// Stats returns the activity and appliance statistics of a run.
func (r *SQLiteRepository) Stats(ctx context.Context, runID string) (*Stats, error) {
	if err := r.exists(ctx, runID); err != nil {
		return nil, err
	}
	stats := &Stats{Activities: []ActivityStat{}, Appliances: []ApplianceStat{}}

	rows, err := r.db.QueryContext(ctx,
		"SELECT activity, scheduled, didnt_fit FROM activity_stats WHERE run_id = ? ORDER BY activity", runID)
	if err != nil {
		return nil, fmt.Errorf("querying activity stats: %w", err)
	}
	for rows.Next() {
		var s ActivityStat
		if err := rows.Scan(&s.Activity, &s.Scheduled, &s.DidntFit); err != nil {
			rows.Close() //nolint:errcheck // error path
			return nil, fmt.Errorf("scanning activity stats: %w", err)
		}
		stats.Activities = append(stats.Activities, s)
	}
	rows.Close() //nolint:errcheck // fully read
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating activity stats: %w", err)
	}

	rows, err = r.db.QueryContext(ctx,
		"SELECT appliance_type, runs, energy_wh FROM appliance_runs WHERE run_id = ? ORDER BY appliance_type", runID)
	if err != nil {
		return nil, fmt.Errorf("querying appliance runs: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only query
	for rows.Next() {
		var s ApplianceStat
		if err := rows.Scan(&s.Type, &s.Runs, &s.EnergyWh); err != nil {
			return nil, fmt.Errorf("scanning appliance runs: %w", err)
		}
		stats.Appliances = append(stats.Appliances, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating appliance runs: %w", err)
	}
	return stats, nil
}

// Occurrences returns the occurrences of a run in time order.
func (r *SQLiteRepository) Occurrences(ctx context.Context, runID string, filter OccurrenceFilter) ([]Occurrence, error) {
	if err := r.exists(ctx, runID); err != nil {
		return nil, err
	}

	where := []string{"run_id = ?"}
	args := []any{runID}
	if filter.User != "" {
		where = append(where, "user_name = ?")
		args = append(args, filter.User)
	}
	if filter.Activity != "" {
		where = append(where, "activity = ?")
		args = append(args, filter.Activity)
	}
	if filter.Day != nil {
		where = append(where, "day = ?")
		args = append(args, *filter.Day)
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	args = append(args, limit)

	query := `SELECT id, run_id, user_name, activity, day, start_s, end_s, attempts, outcome, operations
		FROM occurrences WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY start_s, id LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying occurrences: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only query

	occurrences := []Occurrence{}
	for rows.Next() {
		var o Occurrence
		if err := rows.Scan(&o.ID, &o.RunID, &o.User, &o.Activity, &o.Day,
			&o.Start, &o.End, &o.Attempts, &o.Outcome, &o.Operations); err != nil {
			return nil, fmt.Errorf("scanning occurrence: %w", err)
		}
		occurrences = append(occurrences, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating occurrences: %w", err)
	}
	return occurrences, nil
}

// DeleteRun removes a run and, through the foreign keys, its statistics and
// occurrences.
func (r *SQLiteRepository) DeleteRun(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM runs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting run: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrRunNotFound
	}
	return nil
}

func (r *SQLiteRepository) exists(ctx context.Context, id string) error {
	var one int
	err := r.db.QueryRowContext(ctx, "SELECT 1 FROM runs WHERE id = ?", id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrRunNotFound
	}
	if err != nil {
		return fmt.Errorf("querying run: %w", err)
	}
	return nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(scanner rowScanner) (*Run, error) {
	var run Run
	var seed, startedAt string
	var weekday int
	err := scanner.Scan(
		&run.ID,
		&run.Name,
		&seed,
		&run.Days,
		&weekday,
		&run.Noise,
		&run.MaxConcurrency,
		&run.TotalEnergyWh,
		&startedAt,
		&run.Elapsed,
	)
	if err != nil {
		return nil, err
	}

	if run.Seed, err = strconv.ParseUint(seed, 10, 64); err != nil {
		return nil, fmt.Errorf("parsing seed %q: %w", seed, err)
	}
	if run.StartedAt, err = time.Parse(timestampLayout, startedAt); err != nil {
		return nil, fmt.Errorf("parsing started_at: %w", err)
	}
	run.FirstWeekday = presence.Weekday(weekday).String()
	return &run, nil
}

func isUniqueConstraintError(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
