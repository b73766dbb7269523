package repo

import (
	"context"

	"github.com/google/uuid"
)

// ProductSetChains resolves, for each product, its set and every ancestor
// set up the hierarchy. Products without a set are absent from the map.
func (s *Store) ProductSetChains(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID][]uuid.UUID, error) {
	if s == nil || s.Pool == nil {
		return nil, ErrUnavailable
	}
	if len(productIDs) == 0 {
		return map[uuid.UUID][]uuid.UUID{}, nil
	}
	rows, err := s.Pool.Query(ctx, `WITH RECURSIVE chain AS (
	SELECT p.id AS product_id, p.set_id
	FROM products p
	WHERE p.id = ANY($1) AND p.set_id IS NOT NULL
	UNION ALL
	SELECT c.product_id, ps.parent_id
	FROM chain c
	JOIN product_sets ps ON ps.id = c.set_id
	WHERE ps.parent_id IS NOT NULL
)
SELECT product_id, set_id FROM chain`, productIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[uuid.UUID][]uuid.UUID, len(productIDs))
	for rows.Next() {
		var productID, setID uuid.UUID
		if err := rows.Scan(&productID, &setID); err != nil {
			return nil, err
		}
		out[productID] = append(out[productID], setID)
	}
	return out, rows.Err()
}
