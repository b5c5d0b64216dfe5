package claim_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/okian/claimsorted/internal/domain/claim"
	"github.com/shopspring/decimal"
	. "github.com/smartystreets/goconvey/convey"
)

func validRequest() claim.Request {
	return claim.Request{
		ClaimItems: []claim.Item{
			{Category: claim.Medical, ClaimedAmount: decimal.NewFromInt(900)},
			{Category: claim.Electronics, ClaimedAmount: decimal.NewFromInt(300)},
		},
		PolicyLimit: decimal.NewFromInt(1000),
		Excess:      decimal.NewFromInt(100),
		CoPayRate:   decimal.RequireFromString("0.2"),
	}
}

func TestValidate(t *testing.T) {
	Convey("Given a well formed request", t, func() {
		req := validRequest()

		Convey("Then it passes validation", func() {
			So(claim.Validate(req), ShouldBeNil)
		})

		Convey("When items carry unknown categories and zero amounts", func() {
			req.ClaimItems = append(req.ClaimItems, claim.Item{Category: "Jewellery", ClaimedAmount: decimal.Zero})

			Convey("Then it still passes", func() {
				So(claim.Validate(req), ShouldBeNil)
			})
		})

		Convey("When the item list is missing", func() {
			req.ClaimItems = nil
			err := claim.Validate(req)

			Convey("Then it is rejected as an empty claim", func() {
				So(err, ShouldNotBeNil)
				So(errors.Is(err, claim.ErrEmptyClaim), ShouldBeTrue)
			})
		})

		Convey("When the item list is empty", func() {
			req.ClaimItems = []claim.Item{}
			err := claim.Validate(req)

			Convey("Then it is rejected as an empty claim", func() {
				So(errors.Is(err, claim.ErrEmptyClaim), ShouldBeTrue)
			})
		})

		Convey("When the list is empty and the excess is negative", func() {
			req.ClaimItems = []claim.Item{}
			req.Excess = decimal.NewFromInt(-1)
			err := claim.Validate(req)

			Convey("Then the empty list is reported first", func() {
				So(errors.Is(err, claim.ErrEmptyClaim), ShouldBeTrue)
			})
		})

		Convey("When a claimed amount is negative", func() {
			req.ClaimItems[1].ClaimedAmount = decimal.RequireFromString("-0.01")
			err := claim.Validate(req)

			Convey("Then it is rejected with the negative value kind", func() {
				So(errors.Is(err, claim.ErrNegativeValue), ShouldBeTrue)
				var vErr *claim.ValidationError
				So(errors.As(err, &vErr), ShouldBeTrue)
				So(vErr.Field, ShouldContainSubstring, "ClaimedAmount")
			})
		})

		Convey("When the excess is negative", func() {
			req.Excess = decimal.NewFromInt(-100)

			Convey("Then it is rejected", func() {
				So(errors.Is(claim.Validate(req), claim.ErrNegativeValue), ShouldBeTrue)
			})
		})

		Convey("When the co-pay rate is negative", func() {
			req.CoPayRate = decimal.RequireFromString("-0.2")

			Convey("Then it is rejected", func() {
				So(errors.Is(claim.Validate(req), claim.ErrNegativeValue), ShouldBeTrue)
			})
		})

		Convey("When the policy limit has an extreme negative exponent", func() {
			var decoded claim.Request
			body := `{"claimItems":[{"category":"Medical","claimedAmount":1}],"policyLimit":1e-50000000,"excess":0,"coPayRate":0}`
			So(json.Unmarshal([]byte(body), &decoded), ShouldBeNil)
			err := claim.Validate(decoded)

			Convey("Then it is rejected as out of range", func() {
				So(errors.Is(err, claim.ErrOutOfRange), ShouldBeTrue)
				var vErr *claim.ValidationError
				So(errors.As(err, &vErr), ShouldBeTrue)
				So(vErr.Field, ShouldEqual, "Request.PolicyLimit")
			})
		})

		Convey("When a claimed amount has an extreme positive exponent", func() {
			req.ClaimItems[0].ClaimedAmount = decimal.New(1, 50000000)
			err := claim.Validate(req)

			Convey("Then it is rejected as out of range", func() {
				So(errors.Is(err, claim.ErrOutOfRange), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "ClaimItems[0]")
			})
		})

		Convey("When a zero excess carries a huge scale", func() {
			req.Excess = decimal.New(0, -50000000)

			Convey("Then it is rejected before ever being rendered", func() {
				So(errors.Is(claim.Validate(req), claim.ErrOutOfRange), ShouldBeTrue)
			})
		})

		Convey("When values sit exactly on the bounds", func() {
			req.CoPayRate = decimal.New(1, -claim.MaxScale)
			req.PolicyLimit = decimal.RequireFromString("999999999999999")

			Convey("Then they pass", func() {
				So(claim.Validate(req), ShouldBeNil)
			})
		})

		Convey("When values sit one digit past the bounds", func() {
			scale := validRequest()
			scale.CoPayRate = decimal.New(1, -claim.MaxScale-1)
			integer := validRequest()
			integer.PolicyLimit = decimal.RequireFromString("1000000000000000")

			Convey("Then they are rejected", func() {
				So(errors.Is(claim.Validate(scale), claim.ErrOutOfRange), ShouldBeTrue)
				So(errors.Is(claim.Validate(integer), claim.ErrOutOfRange), ShouldBeTrue)
			})
		})

		Convey("When the policy limit is negative", func() {
			req.PolicyLimit = decimal.NewFromInt(-1)

			Convey("Then it is not a validation concern", func() {
				So(claim.Validate(req), ShouldBeNil)
			})
		})
	})
}

func TestRequestJSON(t *testing.T) {
	Convey("Given a request body using numeric amounts", t, func() {
		body := `{"claimItems":[{"category":"Medical","claimedAmount":900.50}],"policyLimit":1000,"excess":100,"coPayRate":0.2}`

		Convey("When it is decoded", func() {
			var req claim.Request
			err := json.Unmarshal([]byte(body), &req)

			Convey("Then decimals are parsed without loss", func() {
				So(err, ShouldBeNil)
				So(req.ClaimItems, ShouldHaveLength, 1)
				So(req.ClaimItems[0].Category, ShouldEqual, claim.Medical)
				So(req.ClaimItems[0].ClaimedAmount.String(), ShouldEqual, "900.5")
				So(req.CoPayRate.String(), ShouldEqual, "0.2")
			})
		})
	})
}

func TestBreakdown_AppliedExcess(t *testing.T) {
	Convey("Given a breakdown whose excess exceeds the subtotal", t, func() {
		b := claim.Breakdown{Subtotal: decimal.NewFromInt(50), ExcessDeduction: decimal.NewFromInt(100)}

		Convey("Then the applied excess is capped at the subtotal", func() {
			So(b.AppliedExcess().String(), ShouldEqual, "50")
		})
	})

	Convey("Given a breakdown whose excess is below the subtotal", t, func() {
		b := claim.Breakdown{Subtotal: decimal.NewFromInt(1050), ExcessDeduction: decimal.NewFromInt(100)}

		Convey("Then the applied excess is the full excess", func() {
			So(b.AppliedExcess().String(), ShouldEqual, "100")
		})
	})
}

func TestCategories(t *testing.T) {
	Convey("Given the known categories", t, func() {
		Convey("Then they are listed in display order", func() {
			So(claim.Categories(), ShouldResemble, []claim.Category{claim.Medical, claim.Electronics, claim.Baggage})
		})
	})
}

func TestRejectReason(t *testing.T) {
	Convey("Given validation failures", t, func() {
		empty := claim.Validate(claim.Request{})
		req := validRequest()
		req.Excess = decimal.NewFromInt(-1)
		negative := claim.Validate(req)
		req.Excess = decimal.New(1, -40)
		outOfRange := claim.Validate(req)

		Convey("Then each maps to a metrics label", func() {
			So(claim.RejectReason(empty), ShouldEqual, "empty_claim")
			So(claim.RejectReason(negative), ShouldEqual, "negative_value")
			So(claim.RejectReason(outOfRange), ShouldEqual, "out_of_range")
			So(claim.RejectReason(errors.New("other")), ShouldEqual, "invalid")
		})
	})
}
