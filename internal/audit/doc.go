// Package audit records who saved or deleted which run, and when.
//
// Entries live in the audit_log table of the run log database and are
// kept after their run is deleted.
package audit
