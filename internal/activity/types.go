package activity

import (
	"sort"

	"github.com/nerrad567/gray-logic-loadsynth/internal/appliance"
	"github.com/nerrad567/gray-logic-loadsynth/internal/presence"
)

// NoDevice is the device key of states that operate no appliance.
const NoDevice = 0

// EntryState is the id every execution starts in.
const EntryState = 0

// Transition moves the machine to Target with Probability.
type Transition struct {
	Target      int     `json:"target" yaml:"to"`
	Probability float64 `json:"probability" yaml:"p"`
}

// State is one row of an activity's state table.
type State struct {
	ID   int    `json:"id"`
	Name string `json:"name"`

	// Duration bounds in seconds. 0/0 means the natural duration of the
	// bound appliance profile.
	MinDuration int64 `json:"min_duration"`
	MaxDuration int64 `json:"max_duration"`

	InvolvesUser    bool `json:"involves_user"`
	RunToCompletion bool `json:"run_to_completion"`

	DeviceKey   int          `json:"device_key"` // NoDevice for user-only states
	Transitions []Transition `json:"transitions,omitempty"`
}

// HasDevice reports whether the state operates an appliance.
func (s State) HasDevice() bool {
	return s.DeviceKey != NoDevice
}

// Model is a named activity: device slots plus the state table.
type Model struct {
	Name string `json:"name"`

	// Devices maps a state's device key to an appliance type.
	Devices map[int]string `json:"devices"`

	States map[int]State `json:"states"`

	// Bindings fixes the device handle per appliance type. Used when profile
	// selection is not randomized.
	Bindings map[string]string `json:"bindings,omitempty"`
}

// InvolvesUser reports whether any state requires the user.
func (m *Model) InvolvesUser() bool {
	for _, s := range m.States {
		if s.InvolvesUser {
			return true
		}
	}
	return false
}

// ApplianceTypes returns the distinct appliance types the model operates,
// sorted.
func (m *Model) ApplianceTypes() []string {
	seen := make(map[string]struct{}, len(m.Devices))
	for _, s := range m.States {
		if s.HasDevice() {
			if t, ok := m.Devices[s.DeviceKey]; ok {
				seen[t] = struct{}{}
			}
		}
	}
	types := make([]string, 0, len(seen))
	for t := range seen {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// DeviceOperation is one appliance run emitted by an execution.
type DeviceOperation struct {
	ApplianceType string             `json:"appliance_type"`
	DeviceHandle  string             `json:"device_handle"`
	State         string             `json:"state"`
	Start         int64              `json:"start"`
	Duration      int64              `json:"duration"`
	Samples       []appliance.Sample `json:"-"`
}

// End returns the first second after the operation.
func (op DeviceOperation) End() int64 {
	return op.Start + op.Duration
}

// Instance identifies the physical device the operation runs on.
func (op DeviceOperation) Instance() string {
	return op.ApplianceType + "/" + op.DeviceHandle
}

// Power renders the operation's per-second power values.
func (op DeviceOperation) Power() []float64 {
	return appliance.Render(op.Samples, op.Duration)
}

// Execution is the result of running a model once.
type Execution struct {
	Start      int64
	End        int64
	Operations []DeviceOperation

	// UserSpans are the absolute intervals spent in InvolvesUser states.
	UserSpans []presence.Interval

	// Steps is the number of states visited.
	Steps int
}
