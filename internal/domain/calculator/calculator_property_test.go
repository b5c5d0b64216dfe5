package calculator_test

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/okian/claimsorted/internal/domain/calculator"
	"github.com/okian/claimsorted/internal/domain/claim"
	"github.com/shopspring/decimal"
)

var propertyCategories = []claim.Category{claim.Medical, claim.Electronics, claim.Baggage, "Jewellery"}

// buildRequest zips generated cents and category indexes into a request.
func buildRequest(cents []int64, categories []int, excessCents int64, ratePercent int64) claim.Request {
	n := len(cents)
	if len(categories) < n {
		n = len(categories)
	}
	items := make([]claim.Item, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, claim.Item{
			Category:      propertyCategories[categories[i]%len(propertyCategories)],
			ClaimedAmount: decimal.New(cents[i], -2),
		})
	}
	return claim.Request{
		ClaimItems:  items,
		PolicyLimit: decimal.NewFromInt(1000),
		Excess:      decimal.New(excessCents, -2),
		CoPayRate:   decimal.New(ratePercent, -2),
	}
}

func calculatorProperties(t *testing.T) *gopter.Properties {
	t.Helper()
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	return gopter.NewProperties(parameters)
}

func TestCalculatorProperties(t *testing.T) {
	calc := calculator.New()
	properties := calculatorProperties(t)

	amounts := gen.SliceOf(gen.Int64Range(0, 200_000))
	categories := gen.SliceOf(gen.IntRange(0, len(propertyCategories)-1))
	excess := gen.Int64Range(0, 300_000)
	rate := gen.Int64Range(0, 100)

	properties.Property("adjusted amount is min(claimed, inner limit)", prop.ForAll(
		func(cents []int64, cats []int, excessCents, ratePercent int64) bool {
			req := buildRequest(cents, cats, excessCents, ratePercent)
			items, _ := calc.Calculate(req)
			if len(items) != len(req.ClaimItems) {
				return false
			}
			for i, it := range items {
				limit := calc.InnerLimit(req.ClaimItems[i].Category)
				if it.Category != req.ClaimItems[i].Category {
					return false
				}
				if !it.InnerLimit.Equal(limit) {
					return false
				}
				if !it.AdjustedAmount.Equal(decimal.Min(req.ClaimItems[i].ClaimedAmount, limit)) {
					return false
				}
				if it.Category == "Jewellery" && !it.AdjustedAmount.IsZero() {
					return false
				}
			}
			return true
		},
		amounts, categories, excess, rate,
	))

	properties.Property("subtotal is the exact sum of adjusted amounts in any order", prop.ForAll(
		func(cents []int64, cats []int, excessCents, ratePercent int64) bool {
			items, b := calc.Calculate(buildRequest(cents, cats, excessCents, ratePercent))
			forward := decimal.Zero
			backward := decimal.Zero
			for i := range items {
				forward = forward.Add(items[i].AdjustedAmount)
				backward = backward.Add(items[len(items)-1-i].AdjustedAmount)
			}
			return b.Subtotal.Equal(forward) && b.Subtotal.Equal(backward)
		},
		amounts, categories, excess, rate,
	))

	properties.Property("amount after excess is never negative", prop.ForAll(
		func(cents []int64, cats []int, excessCents, ratePercent int64) bool {
			_, b := calc.Calculate(buildRequest(cents, cats, excessCents, ratePercent))
			return !b.AmountAfterExcess.IsNegative()
		},
		amounts, categories, excess, rate,
	))

	properties.Property("final payout matches the closed form", prop.ForAll(
		func(cents []int64, cats []int, excessCents, ratePercent int64) bool {
			req := buildRequest(cents, cats, excessCents, ratePercent)
			_, b := calc.Calculate(req)
			afterExcess := decimal.Max(decimal.Zero, b.Subtotal.Sub(req.Excess))
			expected := decimal.Min(req.PolicyLimit, afterExcess.Mul(decimal.NewFromInt(1).Sub(req.CoPayRate)))
			return b.FinalPayout.Equal(expected)
		},
		amounts, categories, excess, rate,
	))

	properties.Property("calculate is deterministic", prop.ForAll(
		func(cents []int64, cats []int, excessCents, ratePercent int64) bool {
			req := buildRequest(cents, cats, excessCents, ratePercent)
			items1, b1 := calc.Calculate(req)
			items2, b2 := calc.Calculate(req)
			if len(items1) != len(items2) {
				return false
			}
			for i := range items1 {
				if items1[i].Category != items2[i].Category ||
					!items1[i].ClaimedAmount.Equal(items2[i].ClaimedAmount) ||
					!items1[i].AdjustedAmount.Equal(items2[i].AdjustedAmount) ||
					!items1[i].InnerLimit.Equal(items2[i].InnerLimit) {
					return false
				}
			}
			return b1.Subtotal.Equal(b2.Subtotal) &&
				b1.ExcessDeduction.Equal(b2.ExcessDeduction) &&
				b1.AmountAfterExcess.Equal(b2.AmountAfterExcess) &&
				b1.CoPayDeduction.Equal(b2.CoPayDeduction) &&
				b1.FinalPayout.Equal(b2.FinalPayout)
		},
		amounts, categories, excess, rate,
	))

	properties.TestingRun(t)
}

func TestCalculatorProperties_InjectedLimits(t *testing.T) {
	properties := calculatorProperties(t)

	properties.Property("adjusted amounts never exceed an injected limit", prop.ForAll(
		func(medical, electronics, baggage int64, cents []int64, cats []int) bool {
			calc := calculator.New(calculator.WithInnerLimits(map[claim.Category]decimal.Decimal{
				claim.Medical:     decimal.New(medical, -2),
				claim.Electronics: decimal.New(electronics, -2),
				claim.Baggage:     decimal.New(baggage, -2),
			}))
			items, _ := calc.Calculate(buildRequest(cents, cats, 0, 0))
			for _, it := range items {
				if it.AdjustedAmount.GreaterThan(it.InnerLimit) || it.AdjustedAmount.GreaterThan(it.ClaimedAmount) {
					return false
				}
			}
			return true
		},
		gen.Int64Range(0, 100_000),
		gen.Int64Range(0, 100_000),
		gen.Int64Range(0, 100_000),
		gen.SliceOf(gen.Int64Range(0, 200_000)),
		gen.SliceOf(gen.IntRange(0, len(propertyCategories)-1)),
	))

	properties.TestingRun(t)
}
