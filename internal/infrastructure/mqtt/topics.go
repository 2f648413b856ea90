package mqtt

import "fmt"

// TopicPrefix is the root of all loadsynth topics.
const TopicPrefix = "loadsynth"

// Topics builds loadsynth topic names.
//
//	topics := mqtt.Topics{}
//	topics.RunStatus("3f2a...")
//	// Returns: "loadsynth/run/3f2a.../status"
type Topics struct{}

// RunStatus returns the retained status topic of a run.
func (Topics) RunStatus(runID string) string {
	return fmt.Sprintf("%s/run/%s/status", TopicPrefix, runID)
}

// RunDay returns the per-day progress topic of a run.
func (Topics) RunDay(runID string) string {
	return fmt.Sprintf("%s/run/%s/day", TopicPrefix, runID)
}

// RunSummary returns the retained summary topic of a run.
func (Topics) RunSummary(runID string) string {
	return fmt.Sprintf("%s/run/%s/summary", TopicPrefix, runID)
}

// ClientStatus returns the online/offline topic of a client.
func (Topics) ClientStatus(clientID string) string {
	return fmt.Sprintf("%s/client/%s/status", TopicPrefix, clientID)
}

// AllRuns matches every run topic.
//
// Pattern: loadsynth/run/+/+
func (Topics) AllRuns() string {
	return TopicPrefix + "/run/+/+"
}
