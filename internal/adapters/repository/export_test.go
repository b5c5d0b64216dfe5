package repository

import "context"

// Exec runs a raw statement against the store's database.
func (s *SQLStore) Exec(ctx context.Context, query string) error {
	_, err := s.db.ExecContext(ctx, query)
	return err
}

// Counts returns the number of stored headers and items.
func (s *SQLStore) Counts(ctx context.Context) (headers, items int) {
	_ = s.db.GetContext(ctx, &headers, `SELECT COUNT(*) FROM claim_calculations`)
	_ = s.db.GetContext(ctx, &items, `SELECT COUNT(*) FROM claim_calculation_items`)
	return headers, items
}
