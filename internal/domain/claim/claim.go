// Package claim contains the claim payout domain types passed between layers.
package claim

import (
	"time"

	"github.com/shopspring/decimal"
)

// Category identifies the kind of loss a claimed item belongs to.
type Category string

// Known categories. Any other value is accepted but carries an inner limit of zero.
const (
	Medical     Category = "Medical"
	Electronics Category = "Electronics"
	Baggage     Category = "Baggage"
)

// Categories lists the known categories in display order.
func Categories() []Category {
	return []Category{Medical, Electronics, Baggage}
}

// Item is a single claimed line submitted by a client.
type Item struct {
	Category      Category        `json:"category"`
	ClaimedAmount decimal.Decimal `json:"claimedAmount" validate:"nonnegative"`
}

// AdjustedItem is an Item after its category inner limit has been applied.
type AdjustedItem struct {
	Category       Category        `json:"category"`
	ClaimedAmount  decimal.Decimal `json:"claimedAmount"`
	AdjustedAmount decimal.Decimal `json:"adjustedAmount"`
	InnerLimit     decimal.Decimal `json:"innerLimit"`
}

// Request is a claim submitted for payout calculation.
type Request struct {
	ClaimItems  []Item          `json:"claimItems" validate:"required,min=1,dive"`
	PolicyLimit decimal.Decimal `json:"policyLimit"`
	Excess      decimal.Decimal `json:"excess" validate:"nonnegative"`
	CoPayRate   decimal.Decimal `json:"coPayRate" validate:"nonnegative"`
}

// Breakdown holds the derived payout figures of a calculation.
//
// ExcessDeduction is the excess as requested, not capped at the subtotal.
// Use AppliedExcess for the amount that was actually absorbed.
type Breakdown struct {
	Subtotal          decimal.Decimal `json:"subtotal"`
	ExcessDeduction   decimal.Decimal `json:"excessDeduction"`
	AmountAfterExcess decimal.Decimal `json:"amountAfterExcess"`
	CoPayDeduction    decimal.Decimal `json:"coPayDeduction"`
	FinalPayout       decimal.Decimal `json:"finalPayout"`
}

// AppliedExcess returns min(subtotal, excess), the portion of the excess that
// reduced the subtotal.
func (b Breakdown) AppliedExcess() decimal.Decimal {
	return decimal.Min(b.Subtotal, b.ExcessDeduction)
}

// Calculation is a persisted payout calculation together with its items.
type Calculation struct {
	ID          int64           `json:"id"`
	PolicyLimit decimal.Decimal `json:"policyLimit"`
	Excess      decimal.Decimal `json:"excess"`
	CoPayRate   decimal.Decimal `json:"coPayRate"`
	Breakdown
	CreatedAt  time.Time      `json:"createdAt"`
	ClaimItems []AdjustedItem `json:"claimItems"`
}
