// Package household describes the simulated occupants: who they are, when
// they are at home and which activities they perform how often.
package household

import (
	"errors"
	"fmt"

	"github.com/nerrad567/gray-logic-loadsynth/internal/activity"
	"github.com/nerrad567/gray-logic-loadsynth/internal/presence"
)

// ErrInvalidUser is returned when a user model fails validation.
var ErrInvalidUser = errors.New("household: invalid user")

// Assignment binds an activity to a user with a daily target.
type Assignment struct {
	Activity *activity.Model

	// DailyRuns is the expected number of occurrences per day. Values below 1
	// are the probability of one occurrence.
	DailyRuns float64

	// Restriction limits the hours the activity may run. nil allows the
	// whole day; a weekday missing from a non-nil restriction allows nothing.
	Restriction presence.Week
}

// User is one simulated occupant.
type User struct {
	Handle      string
	Name        string
	Presence    presence.Week
	Assignments []Assignment

	calendar *presence.Calendar
}

// NewUser builds a validated user.
func NewUser(handle, name string, week presence.Week, assignments []Assignment) (*User, error) {
	u := &User{
		Handle:      handle,
		Name:        name,
		Presence:    week,
		Assignments: assignments,
		calendar:    presence.NewCalendar(week),
	}
	if err := u.Validate(); err != nil {
		return nil, err
	}
	return u, nil
}

// Validate checks the user and its assignments.
func (u *User) Validate() error {
	if u.Handle == "" {
		return fmt.Errorf("%w: handle is required", ErrInvalidUser)
	}
	if u.Name == "" {
		return fmt.Errorf("%w: %s has no name", ErrInvalidUser, u.Handle)
	}
	seen := make(map[string]struct{}, len(u.Assignments))
	for i, a := range u.Assignments {
		if a.Activity == nil {
			return fmt.Errorf("%w: %s assignment %d has no activity", ErrInvalidUser, u.Name, i)
		}
		if a.DailyRuns < 0 {
			return fmt.Errorf("%w: %s activity %s has negative daily runs", ErrInvalidUser, u.Name, a.Activity.Name)
		}
		if _, dup := seen[a.Activity.Name]; dup {
			return fmt.Errorf("%w: %s lists activity %s twice", ErrInvalidUser, u.Name, a.Activity.Name)
		}
		seen[a.Activity.Name] = struct{}{}
	}
	return nil
}

// Calendar returns the user's presence calendar.
func (u *User) Calendar() *presence.Calendar {
	if u.calendar == nil {
		u.calendar = presence.NewCalendar(u.Presence)
	}
	return u.calendar
}

// Windows returns the second-of-day intervals on wd in which an occurrence
// of a may take place. Activities that never involve the user ignore
// presence and only honour the restriction.
func (u *User) Windows(a Assignment, wd presence.Weekday) []presence.Interval {
	if !a.Activity.InvolvesUser() {
		return presence.RestrictionWindows(wd, a.Restriction)
	}
	return u.Calendar().CandidateWindows(wd, a.Restriction)
}
