package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/almoud/foodcost/pkg/observability"
)

// DBStore persists audit events in PostgreSQL. It implements Recorder.
type DBStore struct {
	db     *sql.DB
	logger *observability.Logger
}

// NewDBStore creates a database-backed audit store and ensures its table
// exists.
func NewDBStore(db *sql.DB, logger *observability.Logger) (*DBStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	s := &DBStore{db: db, logger: logger}
	if err := s.ensureTable(); err != nil {
		return nil, fmt.Errorf("failed to ensure audit_events table: %w", err)
	}
	return s, nil
}

func (s *DBStore) ensureTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS audit_events (
		id BIGSERIAL PRIMARY KEY,
		timestamp TIMESTAMP WITH TIME ZONE NOT NULL,
		actor_id VARCHAR(64),
		actor_email VARCHAR(255),
		tenant_id UUID,
		action VARCHAR(100) NOT NULL,
		resource VARCHAR(50),
		resource_id VARCHAR(255),
		success BOOLEAN NOT NULL,
		message TEXT,
		ip_address VARCHAR(45),
		request_id VARCHAR(100),
		metadata JSONB
	);

	CREATE INDEX IF NOT EXISTS idx_audit_events_timestamp ON audit_events(timestamp DESC);
	CREATE INDEX IF NOT EXISTS idx_audit_events_tenant_id ON audit_events(tenant_id);
	CREATE INDEX IF NOT EXISTS idx_audit_events_actor_id ON audit_events(actor_id);
	CREATE INDEX IF NOT EXISTS idx_audit_events_action ON audit_events(action);
	`
	_, err := s.db.Exec(query)
	return err
}

// Record implements Recorder. Failures are logged and swallowed; an audit
// write must never fail the request it describes.
func (s *DBStore) Record(ctx context.Context, event *Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	var metadataJSON []byte
	if event.Metadata != nil {
		var err error
		metadataJSON, err = json.Marshal(event.Metadata)
		if err != nil {
			s.logger.WithError(err).Warn("failed to marshal audit metadata")
			metadataJSON = nil
		}
	}

	query := `
		INSERT INTO audit_events (
			timestamp, actor_id, actor_email, tenant_id,
			action, resource, resource_id, success,
			message, ip_address, request_id, metadata
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := s.db.ExecContext(ctx, query,
		event.Timestamp, event.ActorID, event.ActorEmail, event.TenantID,
		event.Action, event.Resource, event.ResourceID, event.Success,
		event.Message, event.IPAddress, event.RequestID, metadataJSON,
	)
	if err != nil {
		s.logger.WithError(err).WithField("action", event.Action).Error("failed to record audit event")
	}
}

// Search returns audit events matching the filter, newest first.
func (s *DBStore) Search(ctx context.Context, filter SearchFilter) ([]*Event, error) {
	query := `
		SELECT id, timestamp, actor_id, actor_email, tenant_id,
		       action, resource, resource_id, success,
		       message, ip_address, request_id, metadata
		FROM audit_events
		WHERE 1=1
	`
	var args []interface{}
	argN := 0
	add := func(clause string, value interface{}) {
		argN++
		query += fmt.Sprintf(" AND %s $%d", clause, argN)
		args = append(args, value)
	}

	if filter.StartTime != nil {
		add("timestamp >=", *filter.StartTime)
	}
	if filter.EndTime != nil {
		add("timestamp <=", *filter.EndTime)
	}
	if filter.ActorID != "" {
		add("actor_id =", filter.ActorID)
	}
	if filter.TenantID != nil {
		add("tenant_id =", *filter.TenantID)
	}
	if filter.Action != "" {
		add("action =", filter.Action)
	}
	if filter.Resource != "" {
		add("resource =", filter.Resource)
	}
	if filter.OnlyDenied {
		add("success =", false)
	}

	query += " ORDER BY timestamp DESC"

	limit := filter.Limit
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	argN++
	query += fmt.Sprintf(" LIMIT $%d", argN)
	args = append(args, limit)

	if filter.Offset > 0 {
		argN++
		query += fmt.Sprintf(" OFFSET $%d", argN)
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search audit events: %w", err)
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		var e Event
		var actorID, actorEmail, resource, resourceID, message, ipAddress, requestID sql.NullString
		var tenantID sql.NullString
		var metadataJSON []byte

		err := rows.Scan(
			&e.ID, &e.Timestamp, &actorID, &actorEmail, &tenantID,
			&e.Action, &resource, &resourceID, &e.Success,
			&message, &ipAddress, &requestID, &metadataJSON,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}

		e.ActorID = actorID.String
		e.ActorEmail = actorEmail.String
		e.Resource = resource.String
		e.ResourceID = resourceID.String
		e.Message = message.String
		e.IPAddress = ipAddress.String
		e.RequestID = requestID.String
		if tenantID.Valid {
			e.TenantID = &tenantID.String
		}
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &e.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal audit metadata: %w", err)
			}
		}
		events = append(events, &e)
	}
	return events, rows.Err()
}

// DeleteOlderThan removes events recorded before the cutoff and reports how
// many rows went away.
func (s *DBStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM audit_events WHERE timestamp < $1", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old audit events: %w", err)
	}
	return result.RowsAffected()
}
