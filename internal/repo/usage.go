package repo

import (
	"context"

	"github.com/google/uuid"
)

// CountUses returns total redemption counts per discount id. Ids with no
// redemptions are absent from the map.
func (s *Store) CountUses(ctx context.Context, discountIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	if s == nil || s.Pool == nil {
		return nil, ErrUnavailable
	}
	if len(discountIDs) == 0 {
		return map[uuid.UUID]int64{}, nil
	}
	rows, err := s.Pool.Query(ctx, `SELECT discount_id, COUNT(*) FROM discount_uses
WHERE discount_id = ANY($1) GROUP BY discount_id`, discountIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[uuid.UUID]int64, len(discountIDs))
	for rows.Next() {
		var (
			id    uuid.UUID
			total int64
		)
		if err := rows.Scan(&id, &total); err != nil {
			return nil, err
		}
		out[id] = total
	}
	return out, rows.Err()
}

// CountUserUses returns redemption counts per discount id for one user.
func (s *Store) CountUserUses(ctx context.Context, discountIDs []uuid.UUID, userID uuid.UUID) (map[uuid.UUID]int64, error) {
	if s == nil || s.Pool == nil {
		return nil, ErrUnavailable
	}
	if len(discountIDs) == 0 {
		return map[uuid.UUID]int64{}, nil
	}
	rows, err := s.Pool.Query(ctx, `SELECT discount_id, COUNT(*) FROM discount_uses
WHERE discount_id = ANY($1) AND user_id = $2 GROUP BY discount_id`, discountIDs, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[uuid.UUID]int64, len(discountIDs))
	for rows.Next() {
		var (
			id    uuid.UUID
			total int64
		)
		if err := rows.Scan(&id, &total); err != nil {
			return nil, err
		}
		out[id] = total
	}
	return out, rows.Err()
}

// RecordUses persists one redemption per discount for a finalized order.
// Called by order finalization, never by resolution.
func (s *Store) RecordUses(ctx context.Context, discountIDs []uuid.UUID, userID *uuid.UUID, orderID uuid.UUID) error {
	if s == nil || s.Pool == nil {
		return ErrUnavailable
	}
	if len(discountIDs) == 0 {
		return nil
	}
	var user any
	if userID != nil {
		user = *userID
	}
	batch := `INSERT INTO discount_uses (discount_id, user_id, order_id) VALUES ($1, $2, $3)`
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	for _, id := range discountIDs {
		if _, err := tx.Exec(ctx, batch, id, user, orderID); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}
