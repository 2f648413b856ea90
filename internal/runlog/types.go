package runlog

import "time"

// Run is the header row of a logged run.
type Run struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Seed           uint64    `json:"seed"`
	Days           int       `json:"days"`
	FirstWeekday   string    `json:"first_weekday"`
	Noise          string    `json:"noise"`
	MaxConcurrency int       `json:"max_concurrency"`
	TotalEnergyWh  float64   `json:"total_energy_wh"`
	StartedAt      time.Time `json:"started_at"`
	Elapsed        int64     `json:"elapsed_ms"`
}

// ActivityStat is the scheduling tally of one activity in a run.
type ActivityStat struct {
	Activity  string `json:"activity"`
	Scheduled int    `json:"scheduled"`
	DidntFit  int    `json:"didnt_fit"`
}

// ApplianceStat counts the operations of one appliance type in a run.
type ApplianceStat struct {
	Type     string  `json:"type"`
	Runs     int     `json:"runs"`
	EnergyWh float64 `json:"energy_wh"`
}

// Stats groups the statistics of a run.
type Stats struct {
	Activities []ActivityStat  `json:"activities"`
	Appliances []ApplianceStat `json:"appliances"`
}

// Occurrence is a logged, placed activity occurrence. Start and End are
// seconds from the start of the trace.
type Occurrence struct {
	ID         string `json:"id"`
	RunID      string `json:"run_id"`
	User       string `json:"user"`
	Activity   string `json:"activity"`
	Day        int    `json:"day"`
	Start      int64  `json:"start"`
	End        int64  `json:"end"`
	Attempts   int    `json:"attempts"`
	Outcome    string `json:"outcome"`
	Operations int    `json:"operations"`
}

// OccurrenceFilter narrows Occurrences. Zero fields match everything.
type OccurrenceFilter struct {
	User     string
	Activity string
	Day      *int
	Limit    int
}
