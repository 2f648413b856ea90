package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-loadsynth/internal/simulation"
)

// Publisher is satisfied by *Client.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Run states published on the status topic.
const (
	StatusStarted   = "started"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// StatusMessage is the payload of loadsynth/run/<id>/status.
type StatusMessage struct {
	RunID     string `json:"run_id"`
	Name      string `json:"name,omitempty"`
	Status    string `json:"status"`
	Days      int    `json:"days,omitempty"`
	Error     string `json:"error,omitempty"`
	Timestamp string `json:"timestamp"`
}

// ActivitySummary is one activity entry of a SummaryMessage.
type ActivitySummary struct {
	Scheduled int `json:"scheduled"`
	DidntFit  int `json:"didnt_fit"`
}

// SummaryMessage is the payload of loadsynth/run/<id>/summary.
type SummaryMessage struct {
	RunID          string                     `json:"run_id"`
	Name           string                     `json:"name"`
	Seed           uint64                     `json:"seed"`
	Days           int                        `json:"days"`
	FirstWeekday   string                     `json:"first_weekday"`
	Noise          string                     `json:"noise"`
	MaxConcurrency int                        `json:"max_concurrency"`
	TotalEnergyWh  float64                    `json:"total_energy_wh"`
	ApplianceRuns  map[string]int             `json:"appliance_runs"`
	Activities     map[string]ActivitySummary `json:"activities"`
	ElapsedMs      int64                      `json:"elapsed_ms"`
}

// Notifier publishes the lifecycle of runs.
type Notifier struct {
	pub    Publisher
	qos    byte
	topics Topics
	now    func() time.Time
}

// NewNotifier creates a notifier publishing at qos.
func NewNotifier(pub Publisher, qos byte) *Notifier {
	return &Notifier{pub: pub, qos: qos, now: time.Now}
}

// RunStarted publishes the retained "started" status.
func (n *Notifier) RunStarted(runID, name string, days int) error {
	return n.status(StatusMessage{RunID: runID, Name: name, Status: StatusStarted, Days: days})
}

// Day publishes per-day progress. Progress messages are not retained.
func (n *Notifier) Day(p simulation.DayProgress) error {
	return n.publishJSON(n.topics.RunDay(p.RunID), p, false)
}

// RunCompleted publishes the retained summary, then the "completed" status.
func (n *Notifier) RunCompleted(res *simulation.Result, noise string) error {
	msg := SummaryMessage{
		RunID:          res.RunID,
		Name:           res.Name,
		Seed:           res.Seed,
		Days:           res.Days,
		FirstWeekday:   res.FirstWeekday.String(),
		Noise:          noise,
		MaxConcurrency: res.MaxConcurrency,
		TotalEnergyWh:  simulation.Energy(res.Channels.Total()),
		ApplianceRuns:  res.ApplianceRuns,
		Activities:     make(map[string]ActivitySummary, len(res.Stats)),
		ElapsedMs:      res.Elapsed.Milliseconds(),
	}
	for name, c := range res.Stats {
		msg.Activities[name] = ActivitySummary{Scheduled: c.Scheduled, DidntFit: c.DidntFit}
	}
	if err := n.publishJSON(n.topics.RunSummary(res.RunID), msg, true); err != nil {
		return err
	}
	return n.status(StatusMessage{RunID: res.RunID, Name: res.Name, Status: StatusCompleted, Days: res.Days})
}

// RunFailed publishes the retained "failed" status with the cause.
func (n *Notifier) RunFailed(runID string, cause error) error {
	msg := StatusMessage{RunID: runID, Status: StatusFailed}
	if cause != nil {
		msg.Error = cause.Error()
	}
	return n.status(msg)
}

func (n *Notifier) status(msg StatusMessage) error {
	msg.Timestamp = n.now().UTC().Format(time.RFC3339)
	return n.publishJSON(n.topics.RunStatus(msg.RunID), msg, true)
}

func (n *Notifier) publishJSON(topic string, v any, retained bool) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshalling %s: %w", topic, err)
	}
	return n.pub.Publish(topic, payload, n.qos, retained)
}
