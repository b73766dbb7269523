package repo

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/velmart/backend-store/internal/audit"
)

// InsertAuditLog persists one audit entry.
func (s *Store) InsertAuditLog(ctx context.Context, entry audit.Entry) error {
	if s == nil || s.Pool == nil {
		return ErrUnavailable
	}
	var userID any
	if entry.ActorUserID != nil {
		userID = *entry.ActorUserID
	}
	_, err := s.Pool.Exec(ctx, `INSERT INTO audit_logs
(actor_kind, actor_user_id, action, resource_type, resource_id, method, path,
 route, status, ip, user_agent, request_id, metadata)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		entry.ActorKind, userID, entry.Action, entry.ResourceType,
		textOrNil(entry.ResourceID), entry.Method, entry.Path,
		textOrNil(entry.Route), entry.Status, textOrNil(entry.IP),
		textOrNil(entry.UserAgent), textOrNil(entry.RequestID), entry.Metadata)
	return err
}

// ListAuditLogs returns audit rows, newest first.
func (s *Store) ListAuditLogs(ctx context.Context, limit, offset int) ([]audit.Record, error) {
	if s == nil || s.Pool == nil {
		return nil, ErrUnavailable
	}
	rows, err := s.Pool.Query(ctx, `SELECT id, actor_kind, actor_user_id, action,
resource_type, resource_id, method, path, status, ip, created_at
FROM audit_logs ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []audit.Record
	for rows.Next() {
		var (
			rec        audit.Record
			userID     uuid.NullUUID
			resourceID sql.NullString
			ip         sql.NullString
		)
		err := rows.Scan(&rec.ID, &rec.ActorKind, &userID, &rec.Action,
			&rec.ResourceType, &resourceID, &rec.Method, &rec.Path, &rec.Status,
			&ip, &rec.CreatedAt)
		if err != nil {
			return nil, err
		}
		if userID.Valid {
			id := userID.UUID
			rec.ActorUserID = &id
		}
		if resourceID.Valid {
			rec.ResourceID = &resourceID.String
		}
		if ip.Valid {
			rec.IP = &ip.String
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func textOrNil(value *string) any {
	if value == nil {
		return nil
	}
	return *value
}
