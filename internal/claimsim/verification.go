package claimsim

import (
	"context"
	"fmt"

	"github.com/okian/claimsorted/internal/domain/calculator"
	"github.com/okian/claimsorted/internal/domain/claim"
	"github.com/okian/claimsorted/pkg/logger"
	"github.com/shopspring/decimal"
)

// serverStats is the subset of GET /stats used here.
type serverStats struct {
	InnerLimits map[string]string `json:"innerLimits"`
}

// fetchCalculator builds a local calculator with the server's inner limits.
// When the server does not report them the default table is used.
func fetchCalculator(ctx context.Context, client *HTTPClient) *calculator.Calculator {
	var st serverStats
	if err := client.Get(ctx, pathStats, &st); err != nil {
		logger.Get().Warn(ctx, "using default inner limits", logger.Error(err))
		return calculator.New()
	}
	if len(st.InnerLimits) == 0 {
		logger.Get().Warn(ctx, "service reported no inner limits, using defaults")
		return calculator.New()
	}
	limits := make(map[claim.Category]decimal.Decimal, len(st.InnerLimits))
	for category, raw := range st.InnerLimits {
		limit, err := decimal.NewFromString(raw)
		if err != nil {
			logger.Get().Warn(ctx, "ignoring unparseable inner limit",
				logger.String("category", category), logger.String("value", raw))
			continue
		}
		limits[claim.Category(category)] = limit
	}
	return calculator.New(calculator.WithInnerLimits(limits))
}

// requestOf rebuilds the submitted request from a stored calculation.
func requestOf(calc claim.Calculation) claim.Request {
	items := make([]claim.Item, len(calc.ClaimItems))
	for i, it := range calc.ClaimItems {
		items[i] = claim.Item{Category: it.Category, ClaimedAmount: it.ClaimedAmount}
	}
	return claim.Request{
		ClaimItems:  items,
		PolicyLimit: calc.PolicyLimit,
		Excess:      calc.Excess,
		CoPayRate:   calc.CoPayRate,
	}
}

// verifyCalculation recomputes got locally and reports every difference.
func verifyCalculation(got claim.Calculation, calc *calculator.Calculator) []string {
	var problems []string
	mismatch := func(field string, have, want decimal.Decimal) {
		if !have.Equal(want) {
			problems = append(problems, fmt.Sprintf("calculation %d: %s is %s, expected %s", got.ID, field, have, want))
		}
	}

	items, b := calc.Calculate(requestOf(got))
	mismatch("subtotal", got.Subtotal, b.Subtotal)
	mismatch("excessDeduction", got.ExcessDeduction, b.ExcessDeduction)
	mismatch("amountAfterExcess", got.AmountAfterExcess, b.AmountAfterExcess)
	mismatch("coPayDeduction", got.CoPayDeduction, b.CoPayDeduction)
	mismatch("finalPayout", got.FinalPayout, b.FinalPayout)

	for i, it := range items {
		stored := got.ClaimItems[i]
		mismatch(fmt.Sprintf("claimItems[%d].adjustedAmount", i), stored.AdjustedAmount, it.AdjustedAmount)
		mismatch(fmt.Sprintf("claimItems[%d].innerLimit", i), stored.InnerLimit, it.InnerLimit)
	}
	return problems
}

// sameRequest reports whether the stored calculation holds exactly what was submitted.
func sameRequest(sub claim.Request, calc claim.Calculation) bool {
	if !sub.PolicyLimit.Equal(calc.PolicyLimit) || !sub.Excess.Equal(calc.Excess) || !sub.CoPayRate.Equal(calc.CoPayRate) {
		return false
	}
	if len(sub.ClaimItems) != len(calc.ClaimItems) {
		return false
	}
	for i, it := range sub.ClaimItems {
		stored := calc.ClaimItems[i]
		if it.Category != stored.Category || !it.ClaimedAmount.Equal(stored.ClaimedAmount) {
			return false
		}
	}
	return true
}

// verifyResults checks ordering, arithmetic and round-tripping of every listed
// calculation. Problems are collected in stats.Mismatches.
func verifyResults(ctx context.Context, calcs []claim.Calculation, subs []Submission, calc *calculator.Calculator, stats *Stats) {
	log := logger.Get()
	log.Info(ctx, "verifying calculations", logger.Int("listed", len(calcs)))

	byID := make(map[int64]claim.Calculation, len(calcs))
	var oldest int64
	for i, c := range calcs {
		byID[c.ID] = c
		if oldest == 0 || c.ID < oldest {
			oldest = c.ID
		}
		if i > 0 && !listedBefore(calcs[i-1], c) {
			stats.Mismatches = append(stats.Mismatches,
				fmt.Sprintf("calculation %d listed before %d out of order", calcs[i-1].ID, c.ID))
		}
		if problems := verifyCalculation(c, calc); len(problems) > 0 {
			stats.Mismatches = append(stats.Mismatches, problems...)
			continue
		}
		stats.ClaimsVerified++
	}

	for _, sub := range subs {
		if sub.ID == 0 {
			continue
		}
		stored, ok := byID[sub.ID]
		switch {
		case ok && !sameRequest(sub.Request, stored):
			stats.Mismatches = append(stats.Mismatches,
				fmt.Sprintf("calculation %d does not match request %s", sub.ID, sub.RequestID))
		case !ok && sub.ID > oldest:
			stats.Mismatches = append(stats.Mismatches,
				fmt.Sprintf("calculation %d missing from listing", sub.ID))
		}
	}

	for _, m := range stats.Mismatches {
		log.Warn(ctx, "verification mismatch", logger.String("detail", m))
	}
}

// listedBefore reports whether a may precede b in a newest-first listing.
func listedBefore(a, b claim.Calculation) bool {
	if a.CreatedAt.Equal(b.CreatedAt) {
		return a.ID > b.ID
	}
	return a.CreatedAt.After(b.CreatedAt)
}
