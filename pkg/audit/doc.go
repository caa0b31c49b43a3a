// Package audit records security-relevant events: login attempts,
// authorization denials and tenant lifecycle changes.
//
// Events flow through the Recorder interface. The database-backed DBStore
// writes them to the audit_events table and never propagates its own
// failures to the request being audited. A RetentionJob deletes events past
// the configured retention window on a cron schedule.
package audit
