package api

import (
	"time"

	"github.com/okian/claimsorted/internal/domain/claim"
	"github.com/shopspring/decimal"
)

// amount renders a decimal as a bare JSON number without losing digits.
type amount decimal.Decimal

func (a amount) MarshalJSON() ([]byte, error) {
	return []byte(decimal.Decimal(a).String()), nil
}

type itemResponse struct {
	Category       claim.Category `json:"category"`
	ClaimedAmount  amount         `json:"claimedAmount"`
	AdjustedAmount amount         `json:"adjustedAmount"`
	InnerLimit     amount         `json:"innerLimit"`
}

type breakdownResponse struct {
	Subtotal          amount `json:"subtotal"`
	ExcessDeduction   amount `json:"excessDeduction"`
	AmountAfterExcess amount `json:"amountAfterExcess"`
	CoPayDeduction    amount `json:"coPayDeduction"`
	FinalPayout       amount `json:"finalPayout"`
}

type calculationResponse struct {
	ID          int64  `json:"id"`
	PolicyLimit amount `json:"policyLimit"`
	Excess      amount `json:"excess"`
	CoPayRate   amount `json:"coPayRate"`
	breakdownResponse
	CreatedAt  time.Time      `json:"createdAt"`
	ClaimItems []itemResponse `json:"claimItems"`
}

type quoteResponse struct {
	breakdownResponse
	AppliedExcess amount         `json:"appliedExcess"`
	ClaimItems    []itemResponse `json:"claimItems"`
}

type saveResponse struct {
	Status  string `json:"status"`
	ID      int64  `json:"id"`
	Message string `json:"message"`
}

type healthResponse struct {
	Status string `json:"status"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func toItems(items []claim.AdjustedItem) []itemResponse {
	out := make([]itemResponse, len(items))
	for i, it := range items {
		out[i] = itemResponse{
			Category:       it.Category,
			ClaimedAmount:  amount(it.ClaimedAmount),
			AdjustedAmount: amount(it.AdjustedAmount),
			InnerLimit:     amount(it.InnerLimit),
		}
	}
	return out
}

func toBreakdown(b claim.Breakdown) breakdownResponse {
	return breakdownResponse{
		Subtotal:          amount(b.Subtotal),
		ExcessDeduction:   amount(b.ExcessDeduction),
		AmountAfterExcess: amount(b.AmountAfterExcess),
		CoPayDeduction:    amount(b.CoPayDeduction),
		FinalPayout:       amount(b.FinalPayout),
	}
}

func toCalculations(calcs []claim.Calculation) []calculationResponse {
	out := make([]calculationResponse, len(calcs))
	for i, c := range calcs {
		out[i] = calculationResponse{
			ID:                c.ID,
			PolicyLimit:       amount(c.PolicyLimit),
			Excess:            amount(c.Excess),
			CoPayRate:         amount(c.CoPayRate),
			breakdownResponse: toBreakdown(c.Breakdown),
			CreatedAt:         c.CreatedAt,
			ClaimItems:        toItems(c.ClaimItems),
		}
	}
	return out
}
