package repo

import (
	"context"

	"github.com/google/uuid"
)

// UserMemberships returns the role and organization ids a user belongs to.
func (s *Store) UserMemberships(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, []uuid.UUID, error) {
	if s == nil || s.Pool == nil {
		return nil, nil, ErrUnavailable
	}
	roles, err := s.collectIDs(ctx, `SELECT role_id FROM user_roles WHERE user_id = $1`, userID)
	if err != nil {
		return nil, nil, err
	}
	organizations, err := s.collectIDs(ctx, `SELECT organization_id FROM user_organizations WHERE user_id = $1`, userID)
	if err != nil {
		return nil, nil, err
	}
	return roles, organizations, nil
}

// UserHasRole reports whether the user carries the named role. Used by the
// admin authorization middleware.
func (s *Store) UserHasRole(ctx context.Context, userID uuid.UUID, role string) (bool, error) {
	if s == nil || s.Pool == nil {
		return false, ErrUnavailable
	}
	var exists bool
	err := s.Pool.QueryRow(ctx, `SELECT EXISTS (
	SELECT 1 FROM user_roles ur
	JOIN roles r ON r.id = ur.role_id
	WHERE ur.user_id = $1 AND r.name = $2
)`, userID, role).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (s *Store) collectIDs(ctx context.Context, query string, args ...any) ([]uuid.UUID, error) {
	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
