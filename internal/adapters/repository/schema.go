package repository

import (
	"fmt"
	"strings"
	"time"
)

// Supported driver names.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// sqliteTimeLayout is fixed width so that text ordering matches time ordering.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

// dialect captures the differences between the supported databases.
type dialect struct {
	name string
	// bindDriver is the driver name handed to sqlx to pick a placeholder style.
	bindDriver string
	schema     []string
	bindTime   func(time.Time) any
}

var postgresDialect = dialect{
	name:       DriverPostgres,
	bindDriver: "postgres",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS claim_calculations (
			id BIGSERIAL PRIMARY KEY,
			policy_limit NUMERIC NOT NULL,
			excess NUMERIC NOT NULL,
			co_pay_rate NUMERIC NOT NULL,
			subtotal NUMERIC NOT NULL,
			excess_deduction NUMERIC NOT NULL,
			amount_after_excess NUMERIC NOT NULL,
			co_pay_deduction NUMERIC NOT NULL,
			final_payout NUMERIC NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_claim_calculations_recent
			ON claim_calculations (created_at DESC, id DESC)`,
		`CREATE TABLE IF NOT EXISTS claim_calculation_items (
			id BIGSERIAL PRIMARY KEY,
			calculation_id BIGINT NOT NULL REFERENCES claim_calculations (id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			category TEXT NOT NULL,
			claimed_amount NUMERIC NOT NULL,
			adjusted_amount NUMERIC NOT NULL,
			inner_limit NUMERIC NOT NULL,
			UNIQUE (calculation_id, position)
		)`,
	},
	bindTime: func(t time.Time) any { return t },
}

// SQLite has no exact decimal column type; amounts are kept as text.
var sqliteDialect = dialect{
	name:       DriverSQLite,
	bindDriver: "sqlite3",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS claim_calculations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			policy_limit TEXT NOT NULL,
			excess TEXT NOT NULL,
			co_pay_rate TEXT NOT NULL,
			subtotal TEXT NOT NULL,
			excess_deduction TEXT NOT NULL,
			amount_after_excess TEXT NOT NULL,
			co_pay_deduction TEXT NOT NULL,
			final_payout TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_claim_calculations_recent
			ON claim_calculations (created_at DESC, id DESC)`,
		`CREATE TABLE IF NOT EXISTS claim_calculation_items (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			calculation_id INTEGER NOT NULL REFERENCES claim_calculations (id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			category TEXT NOT NULL,
			claimed_amount TEXT NOT NULL,
			adjusted_amount TEXT NOT NULL,
			inner_limit TEXT NOT NULL,
			UNIQUE (calculation_id, position)
		)`,
	},
	bindTime: func(t time.Time) any { return t.UTC().Format(sqliteTimeLayout) },
}

func dialectFor(driverName string) (dialect, error) {
	switch strings.ToLower(strings.TrimSpace(driverName)) {
	case "postgres", "postgresql", "pq":
		return postgresDialect, nil
	case "sqlite", "sqlite3":
		return sqliteDialect, nil
	default:
		return dialect{}, fmt.Errorf("%w: %q", ErrUnknownDriver, driverName)
	}
}

const insertCalculationSQL = `INSERT INTO claim_calculations
	(policy_limit, excess, co_pay_rate, subtotal, excess_deduction, amount_after_excess, co_pay_deduction, final_payout, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	RETURNING id`

const insertItemSQL = `INSERT INTO claim_calculation_items
	(calculation_id, position, category, claimed_amount, adjusted_amount, inner_limit)
	VALUES (?, ?, ?, ?, ?, ?)`

const selectRecentSQL = `SELECT id, policy_limit, excess, co_pay_rate, subtotal, excess_deduction,
	amount_after_excess, co_pay_deduction, final_payout, created_at
	FROM claim_calculations
	ORDER BY created_at DESC, id DESC
	LIMIT ?`

const selectItemsSQL = `SELECT calculation_id, position, category, claimed_amount, adjusted_amount, inner_limit
	FROM claim_calculation_items
	WHERE calculation_id IN (?)
	ORDER BY calculation_id, position`
