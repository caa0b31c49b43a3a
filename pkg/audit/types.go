package audit

import (
	"context"
	"time"
)

// Event is a single audit log entry. Authorization denials, login attempts
// and tenant lifecycle changes all land here.
type Event struct {
	ID         int64                  `json:"id"`
	Timestamp  time.Time              `json:"timestamp"`
	ActorID    string                 `json:"actor_id,omitempty"`
	ActorEmail string                 `json:"actor_email,omitempty"`
	TenantID   *string                `json:"tenant_id,omitempty"`
	Action     string                 `json:"action"`
	Resource   string                 `json:"resource,omitempty"`
	ResourceID string                 `json:"resource_id,omitempty"`
	Success    bool                   `json:"success"`
	Message    string                 `json:"message,omitempty"`
	IPAddress  string                 `json:"ip_address,omitempty"`
	RequestID  string                 `json:"request_id,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// Recorder accepts audit events. Recording is best effort; implementations
// must not fail the request that produced the event.
type Recorder interface {
	Record(ctx context.Context, event *Event)
}

// SearchFilter narrows an audit log listing.
type SearchFilter struct {
	StartTime  *time.Time
	EndTime    *time.Time
	ActorID    string
	TenantID   *string
	Action     string
	Resource   string
	OnlyDenied bool

	Limit  int
	Offset int
}

// NopRecorder discards all events. Useful in tests.
type NopRecorder struct{}

// Record implements Recorder.
func (NopRecorder) Record(ctx context.Context, event *Event) {}
