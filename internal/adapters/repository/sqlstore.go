package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/okian/claimsorted/internal/domain/claim"
	"github.com/shopspring/decimal"
)

// SQLStore implements Store on top of a database/sql pool. Every call takes
// its own connection or transaction from the pool and returns it before
// leaving; the store keeps no other state between calls.
type SQLStore struct {
	db      *sqlx.DB
	dialect dialect
	now     func() time.Time

	insertCalculation string
	insertItem        string
	selectRecent      string
}

// NewSQLStore wraps db, which must have been opened with driverName
// ("postgres" or "sqlite").
func NewSQLStore(db *sql.DB, driverName string, opts ...Option) (*SQLStore, error) {
	d, err := dialectFor(driverName)
	if err != nil {
		return nil, err
	}
	xdb := sqlx.NewDb(db, d.bindDriver)
	s := &SQLStore{
		db:                xdb,
		dialect:           d,
		now:               time.Now,
		insertCalculation: xdb.Rebind(insertCalculationSQL),
		insertItem:        xdb.Rebind(insertItemSQL),
		selectRecent:      xdb.Rebind(selectRecentSQL),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Driver returns the dialect name in use.
func (s *SQLStore) Driver() string {
	return s.dialect.name
}

// Migrate creates the tables and indexes if they do not exist.
func (s *SQLStore) Migrate(ctx context.Context) error {
	for _, stmt := range s.dialect.schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate schema: %w", err)
		}
	}
	return nil
}

// Ping verifies the database is reachable.
func (s *SQLStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	return nil
}

// Close releases the underlying pool.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// Save writes the header and its items in a single transaction. Any error
// before Commit rolls the whole transaction back.
func (s *SQLStore) Save(ctx context.Context, req claim.Request, items []claim.AdjustedItem, b claim.Breakdown) (int64, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, newPersistenceError(OpSave, fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer func() { _ = tx.Rollback() }() // no-op after a successful Commit

	createdAt := s.now().UTC()
	var id int64
	err = tx.QueryRowxContext(ctx, s.insertCalculation,
		req.PolicyLimit, req.Excess, req.CoPayRate,
		b.Subtotal, b.ExcessDeduction, b.AmountAfterExcess, b.CoPayDeduction, b.FinalPayout,
		s.dialect.bindTime(createdAt),
	).Scan(&id)
	if err != nil {
		return 0, newPersistenceError(OpSave, fmt.Errorf("failed to insert calculation: %w", err))
	}

	for i, item := range items {
		_, err := tx.ExecContext(ctx, s.insertItem,
			id, i, string(item.Category), item.ClaimedAmount, item.AdjustedAmount, item.InnerLimit)
		if err != nil {
			return 0, newPersistenceError(OpSave, fmt.Errorf("failed to insert item %d: %w", i, err))
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, newPersistenceError(OpSave, fmt.Errorf("failed to commit calculation: %w", err))
	}
	return id, nil
}

// ListRecent reads the newest headers first, then every item belonging to
// exactly those headers, and joins them in memory by calculation id.
func (s *SQLStore) ListRecent(ctx context.Context, limit int) ([]claim.Calculation, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	var headers []calculationRow
	if err := s.db.SelectContext(ctx, &headers, s.selectRecent, limit); err != nil {
		return nil, newPersistenceError(OpList, fmt.Errorf("failed to query calculations: %w", err))
	}
	if len(headers) == 0 {
		return []claim.Calculation{}, nil
	}

	ids := make([]int64, len(headers))
	for i, h := range headers {
		ids[i] = h.ID
	}
	query, args, err := sqlx.In(selectItemsSQL, ids)
	if err != nil {
		return nil, newPersistenceError(OpList, fmt.Errorf("failed to build item query: %w", err))
	}

	var items []itemRow
	if err := s.db.SelectContext(ctx, &items, s.db.Rebind(query), args...); err != nil {
		return nil, newPersistenceError(OpList, fmt.Errorf("failed to query items: %w", err))
	}

	return assemble(headers, items), nil
}

// assemble keeps header order and appends each item to its parent.
func assemble(headers []calculationRow, items []itemRow) []claim.Calculation {
	out := make([]claim.Calculation, len(headers))
	byID := make(map[int64]*claim.Calculation, len(headers))
	for i, h := range headers {
		out[i] = h.toCalculation()
		byID[h.ID] = &out[i]
	}
	for _, it := range items {
		if calc, ok := byID[it.CalculationID]; ok {
			calc.ClaimItems = append(calc.ClaimItems, it.toAdjustedItem())
		}
	}
	return out
}

type calculationRow struct {
	ID                int64           `db:"id"`
	PolicyLimit       decimal.Decimal `db:"policy_limit"`
	Excess            decimal.Decimal `db:"excess"`
	CoPayRate         decimal.Decimal `db:"co_pay_rate"`
	Subtotal          decimal.Decimal `db:"subtotal"`
	ExcessDeduction   decimal.Decimal `db:"excess_deduction"`
	AmountAfterExcess decimal.Decimal `db:"amount_after_excess"`
	CoPayDeduction    decimal.Decimal `db:"co_pay_deduction"`
	FinalPayout       decimal.Decimal `db:"final_payout"`
	CreatedAt         dbTime          `db:"created_at"`
}

func (r calculationRow) toCalculation() claim.Calculation {
	return claim.Calculation{
		ID:          r.ID,
		PolicyLimit: r.PolicyLimit,
		Excess:      r.Excess,
		CoPayRate:   r.CoPayRate,
		Breakdown: claim.Breakdown{
			Subtotal:          r.Subtotal,
			ExcessDeduction:   r.ExcessDeduction,
			AmountAfterExcess: r.AmountAfterExcess,
			CoPayDeduction:    r.CoPayDeduction,
			FinalPayout:       r.FinalPayout,
		},
		CreatedAt:  r.CreatedAt.Time,
		ClaimItems: []claim.AdjustedItem{},
	}
}

type itemRow struct {
	CalculationID  int64           `db:"calculation_id"`
	Position       int             `db:"position"`
	Category       string          `db:"category"`
	ClaimedAmount  decimal.Decimal `db:"claimed_amount"`
	AdjustedAmount decimal.Decimal `db:"adjusted_amount"`
	InnerLimit     decimal.Decimal `db:"inner_limit"`
}

func (r itemRow) toAdjustedItem() claim.AdjustedItem {
	return claim.AdjustedItem{
		Category:       claim.Category(r.Category),
		ClaimedAmount:  r.ClaimedAmount,
		AdjustedAmount: r.AdjustedAmount,
		InnerLimit:     r.InnerLimit,
	}
}

// dbTime scans timestamps stored natively (postgres) or as text (sqlite).
type dbTime struct {
	time.Time
}

var dbTimeLayouts = []string{
	sqliteTimeLayout,
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

func (t *dbTime) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		t.Time = time.Time{}
		return nil
	case time.Time:
		t.Time = v.UTC()
		return nil
	case []byte:
		return t.parse(string(v))
	case string:
		return t.parse(v)
	default:
		return fmt.Errorf("unsupported timestamp type %T", value)
	}
}

func (t *dbTime) parse(s string) error {
	for _, layout := range dbTimeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("unparseable timestamp %q", s)
}
