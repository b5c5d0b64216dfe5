// Package calculator computes claim payouts from claimed items.
package calculator

import (
	"github.com/okian/claimsorted/internal/domain/claim"
	"github.com/shopspring/decimal"
)

// Default inner limits per category.
var (
	defaultMedicalLimit     = decimal.NewFromInt(750)
	defaultElectronicsLimit = decimal.NewFromInt(500)
	defaultBaggageLimit     = decimal.NewFromInt(400)
)

// DefaultLimits returns a fresh copy of the default category inner limits.
func DefaultLimits() map[claim.Category]decimal.Decimal {
	return map[claim.Category]decimal.Decimal{
		claim.Medical:     defaultMedicalLimit,
		claim.Electronics: defaultElectronicsLimit,
		claim.Baggage:     defaultBaggageLimit,
	}
}

// Option applies a configuration option to the Calculator.
type Option func(*Calculator)

// WithInnerLimits replaces the category limit table. Negative limits are ignored.
func WithInnerLimits(limits map[claim.Category]decimal.Decimal) Option {
	return func(c *Calculator) {
		if limits == nil {
			return
		}
		// Copy the table so callers cannot mutate it after construction
		c.limits = make(map[claim.Category]decimal.Decimal, len(limits))
		for category, limit := range limits {
			if limit.IsNegative() {
				continue
			}
			c.limits[category] = limit
		}
	}
}

// Calculator applies inner limits, excess, co-pay and the policy limit to a request.
// It holds no mutable state and is safe for concurrent use.
type Calculator struct {
	limits map[claim.Category]decimal.Decimal
}

// New creates a Calculator with the default limit table unless overridden.
func New(opts ...Option) *Calculator {
	c := &Calculator{
		limits: DefaultLimits(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// InnerLimit returns the limit for category, or zero for an unknown category.
func (c *Calculator) InnerLimit(category claim.Category) decimal.Decimal {
	limit, ok := c.limits[category]
	if !ok {
		return decimal.Zero
	}
	return limit
}

// Limits returns a copy of the configured limit table.
func (c *Calculator) Limits() map[claim.Category]decimal.Decimal {
	out := make(map[claim.Category]decimal.Decimal, len(c.limits))
	for category, limit := range c.limits {
		out[category] = limit
	}
	return out
}

// Calculate adjusts every item against its category's flat limit, in input
// order, and derives the breakdown. The request is assumed to be validated.
//
// FinalPayout is not floored at zero: a co-pay rate above one yields a
// negative payout.
func (c *Calculator) Calculate(req claim.Request) ([]claim.AdjustedItem, claim.Breakdown) {
	adjusted := make([]claim.AdjustedItem, 0, len(req.ClaimItems))
	subtotal := decimal.Zero

	for _, item := range req.ClaimItems {
		limit := c.InnerLimit(item.Category)
		amount := decimal.Min(item.ClaimedAmount, limit)
		adjusted = append(adjusted, claim.AdjustedItem{
			Category:       item.Category,
			ClaimedAmount:  item.ClaimedAmount,
			AdjustedAmount: amount,
			InnerLimit:     limit,
		})
		subtotal = subtotal.Add(amount)
	}

	afterExcess := decimal.Max(decimal.Zero, subtotal.Sub(req.Excess))
	coPay := afterExcess.Mul(req.CoPayRate)
	final := decimal.Min(req.PolicyLimit, afterExcess.Sub(coPay))

	return adjusted, claim.Breakdown{
		Subtotal:          subtotal,
		ExcessDeduction:   req.Excess,
		AmountAfterExcess: afterExcess,
		CoPayDeduction:    coPay,
		FinalPayout:       final,
	}
}
