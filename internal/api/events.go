package api

import (
	"github.com/nerrad567/gray-logic-loadsynth/internal/simulation"
)

// Run event names broadcast on the hub.
const (
	EventRunStarted   = "run.started"
	EventRunDay       = "run.day"
	EventRunCompleted = "run.completed"
	EventRunFailed    = "run.failed"
)

// RunEvents lists every run event; new WebSocket clients subscribe to all.
var RunEvents = []string{EventRunStarted, EventRunDay, EventRunCompleted, EventRunFailed}

// RunStartedPayload is the payload of run.started.
type RunStartedPayload struct {
	RunID string `json:"run_id"`
	Name  string `json:"name"`
	Days  int    `json:"days"`
}

// RunCompletedPayload is the payload of run.completed.
type RunCompletedPayload struct {
	RunID          string  `json:"run_id"`
	Occurrences    int     `json:"occurrences"`
	MaxConcurrency int     `json:"max_concurrency"`
	TotalEnergyWh  float64 `json:"total_energy_wh"`
	ElapsedMs      int64   `json:"elapsed_ms"`
}

// RunStarted broadcasts run.started.
func (h *Hub) RunStarted(runID, name string, days int) {
	h.Broadcast(EventRunStarted, RunStartedPayload{RunID: runID, Name: name, Days: days})
}

// RunDay broadcasts run.day with the progress of one simulated day.
func (h *Hub) RunDay(p simulation.DayProgress) {
	h.Broadcast(EventRunDay, p)
}

// RunCompleted broadcasts run.completed.
func (h *Hub) RunCompleted(res *simulation.Result) {
	h.Broadcast(EventRunCompleted, RunCompletedPayload{
		RunID:          res.RunID,
		Occurrences:    len(res.Occurrences),
		MaxConcurrency: res.MaxConcurrency,
		TotalEnergyWh:  simulation.Energy(res.Channels.Total()),
		ElapsedMs:      res.Elapsed.Milliseconds(),
	})
}

// RunFailed broadcasts run.failed.
func (h *Hub) RunFailed(runID string, cause error) {
	payload := map[string]string{"run_id": runID}
	if cause != nil {
		payload["error"] = cause.Error()
	}
	h.Broadcast(EventRunFailed, payload)
}
