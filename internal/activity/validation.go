package activity

import (
	"fmt"
	"sort"
)

// Validation constants.
const (
	maxTransitions   = 2
	probabilityEps   = 1e-9
	maxStateDuration = 7 * 86400
)

// ValidateModel checks a model before it is executed.
// Returns an error wrapping ErrInvalidActivity or ErrUnknownDevice describing
// the first failure found.
func ValidateModel(m *Model) error {
	if m == nil {
		return ErrInvalidActivity
	}
	if m.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidActivity)
	}
	if _, ok := m.States[EntryState]; !ok {
		return fmt.Errorf("%w: %s has no entry state %d", ErrInvalidActivity, m.Name, EntryState)
	}

	ids := make([]int, 0, len(m.States))
	for id := range m.States {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	for _, id := range ids {
		if err := validateState(m, id, m.States[id]); err != nil {
			return err
		}
	}
	return nil
}

func validateState(m *Model, id int, s State) error {
	if s.ID != id {
		return fmt.Errorf("%w: %s state key %d holds state id %d", ErrInvalidActivity, m.Name, id, s.ID)
	}
	if s.MinDuration < 0 || s.MaxDuration < 0 {
		return fmt.Errorf("%w: %s state %d has negative duration", ErrInvalidActivity, m.Name, id)
	}
	if s.MinDuration > maxStateDuration || s.MaxDuration > maxStateDuration {
		return fmt.Errorf("%w: %s state %d lasts longer than %d s", ErrInvalidActivity, m.Name, id, maxStateDuration)
	}
	if s.HasDevice() {
		if _, ok := m.Devices[s.DeviceKey]; !ok {
			return fmt.Errorf("%w: %s state %d references device %d", ErrUnknownDevice, m.Name, id, s.DeviceKey)
		}
	}

	if len(s.Transitions) > maxTransitions {
		return fmt.Errorf("%w: %s state %d has %d transitions (max %d)",
			ErrInvalidActivity, m.Name, id, len(s.Transitions), maxTransitions)
	}
	var sum float64
	for _, t := range s.Transitions {
		if t.Probability < 0 || t.Probability > 1 {
			return fmt.Errorf("%w: %s state %d transition to %d has probability %g",
				ErrInvalidActivity, m.Name, id, t.Target, t.Probability)
		}
		sum += t.Probability
	}
	if sum > 1+probabilityEps {
		return fmt.Errorf("%w: %s state %d transition probabilities sum to %g", ErrInvalidActivity, m.Name, id, sum)
	}
	return nil
}
