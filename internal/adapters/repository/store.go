// Package repository persists claim calculations and reads them back.
package repository

import (
	"context"

	"github.com/okian/claimsorted/internal/domain/claim"
)

// DefaultListLimit caps ListRecent when the caller passes a non-positive limit.
const DefaultListLimit = 100

// Store provides atomic writes and recent reads of claim calculations.
type Store interface {
	// Save persists the calculation header and all of its items in one
	// transaction and returns the assigned identity. On failure nothing is
	// left behind and the error is a *PersistenceError.
	Save(ctx context.Context, req claim.Request, items []claim.AdjustedItem, b claim.Breakdown) (int64, error)

	// ListRecent returns up to limit calculations, most recent first, with
	// their items in submission order.
	ListRecent(ctx context.Context, limit int) ([]claim.Calculation, error)
}
