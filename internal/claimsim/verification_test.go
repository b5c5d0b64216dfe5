package claimsim

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/claimsorted/internal/domain/calculator"
	"github.com/okian/claimsorted/internal/domain/claim"
	"github.com/okian/claimsorted/pkg/logger"
	"github.com/shopspring/decimal"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func storedCalculation(id int64, at time.Time) claim.Calculation {
	req := claim.Request{
		ClaimItems: []claim.Item{
			{Category: claim.Medical, ClaimedAmount: decimal.NewFromInt(900)},
			{Category: unknownCategory, ClaimedAmount: decimal.NewFromInt(50)},
		},
		PolicyLimit: decimal.NewFromInt(1000),
		Excess:      decimal.NewFromInt(100),
		CoPayRate:   decimal.RequireFromString("0.2"),
	}
	items, b := calculator.New().Calculate(req)
	return claim.Calculation{
		ID:          id,
		PolicyLimit: req.PolicyLimit,
		Excess:      req.Excess,
		CoPayRate:   req.CoPayRate,
		Breakdown:   b,
		CreatedAt:   at,
		ClaimItems:  items,
	}
}

func TestGenerateClaims(t *testing.T) {
	Convey("Given a claim generator", t, func() {
		Convey("When claims are generated", func() {
			claims, err := GenerateClaims(context.Background(), 200, 4)

			Convey("Then every claim is valid and within bounds", func() {
				So(err, ShouldBeNil)
				So(claims, ShouldHaveLength, 200)
				for _, c := range claims {
					So(claim.Validate(c), ShouldBeNil)
					So(len(c.ClaimItems), ShouldBeBetweenOrEqual, 1, 4)
					So(c.CoPayRate.LessThanOrEqual(decimal.NewFromInt(1)), ShouldBeTrue)
					So(c.PolicyLimit.IsPositive(), ShouldBeTrue)
				}
			})
		})

		Convey("When the context is already cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			_, err := GenerateClaims(ctx, 10, 2)

			Convey("Then generation stops with the context error", func() {
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
			})
		})
	})
}

func TestVerifyCalculation(t *testing.T) {
	Convey("Given a stored calculation", t, func() {
		calc := storedCalculation(7, time.Now())

		Convey("When it matches the local calculator", func() {
			Convey("Then no problems are reported", func() {
				So(verifyCalculation(calc, calculator.New()), ShouldBeEmpty)
			})
		})

		Convey("When the final payout was altered", func() {
			calc.FinalPayout = calc.FinalPayout.Add(decimal.RequireFromString("0.01"))

			Convey("Then the field is reported", func() {
				problems := verifyCalculation(calc, calculator.New())
				So(problems, ShouldHaveLength, 1)
				So(problems[0], ShouldContainSubstring, "finalPayout")
			})
		})

		Convey("When the server used different inner limits", func() {
			local := calculator.New(calculator.WithInnerLimits(map[claim.Category]decimal.Decimal{
				claim.Medical: decimal.NewFromInt(600),
			}))

			Convey("Then the adjusted item and totals disagree", func() {
				problems := verifyCalculation(calc, local)
				So(problems, ShouldContain, "calculation 7: claimItems[0].innerLimit is 750, expected 600")
			})
		})
	})
}

func TestVerifyResults(t *testing.T) {
	Convey("Given listed calculations and their submissions", t, func() {
		now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
		newer := storedCalculation(3, now)
		older := storedCalculation(2, now.Add(-time.Second))
		subs := []Submission{
			{Request: requestOf(newer), RequestID: "a", Status: 200, ID: 3},
			{Request: requestOf(older), RequestID: "b", Status: 200, ID: 2},
			{RequestID: "c", Status: 400},
		}

		Convey("When the listing is ordered and complete", func() {
			stats := &Stats{}
			verifyResults(context.Background(), []claim.Calculation{newer, older}, subs, calculator.New(), stats)

			Convey("Then every calculation is verified", func() {
				So(stats.Mismatches, ShouldBeEmpty)
				So(stats.ClaimsVerified, ShouldEqual, 2)
			})
		})

		Convey("When the listing is out of order", func() {
			stats := &Stats{}
			verifyResults(context.Background(), []claim.Calculation{older, newer}, subs, calculator.New(), stats)

			Convey("Then the ordering is reported", func() {
				So(stats.Mismatches, ShouldContain, "calculation 2 listed before 3 out of order")
			})
		})

		Convey("When a saved calculation is missing inside the window", func() {
			subs = append(subs, Submission{RequestID: "d", Status: 200, ID: 4})
			stats := &Stats{}
			verifyResults(context.Background(), []claim.Calculation{newer, older}, subs, calculator.New(), stats)

			Convey("Then it is reported missing", func() {
				So(stats.Mismatches, ShouldContain, "calculation 4 missing from listing")
			})
		})

		Convey("When a stored calculation differs from what was submitted", func() {
			subs[0].Request.Excess = decimal.NewFromInt(5)
			stats := &Stats{}
			verifyResults(context.Background(), []claim.Calculation{newer, older}, subs, calculator.New(), stats)

			Convey("Then the request is reported", func() {
				So(stats.Mismatches, ShouldContain, "calculation 3 does not match request a")
			})
		})

		Convey("When two calculations share a timestamp", func() {
			tied := storedCalculation(1, now.Add(-time.Second))

			Convey("Then the higher id must come first", func() {
				So(listedBefore(older, tied), ShouldBeTrue)
				So(listedBefore(tied, older), ShouldBeFalse)
			})
		})
	})
}
