// Package runlog persists finished synthesis runs to SQLite.
//
// A run is stored as one row in runs plus its per-activity scheduling
// counts, per-appliance run counts and the placed occurrences. The HTTP API
// reads the log back through Repository.
package runlog
