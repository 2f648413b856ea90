// Package loader reads a household description from disk and turns it into
// validated, immutable in-memory models.
//
// The layout below the models root is:
//
//	mapping.yaml            appliance type -> profile directory
//	appliances/<dir>/*.xml  one profile per device instance
//	activities/*.yaml       activity state machines
//	users/*.yaml            users, presence and activity assignments
//
// Every error found while loading wraps ErrConfiguration and aborts the run
// before any simulation starts.
package loader
