package claimsim

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/okian/claimsorted/internal/domain/claim"
	"github.com/okian/claimsorted/pkg/logger"
	"github.com/shopspring/decimal"
)

// unknownCategory has no inner limit on the server and always adjusts to zero.
const unknownCategory claim.Category = "Dental"

// randomInt returns a uniform value in [0, n) using crypto/rand.
func randomInt(n int64) int64 {
	v, err := rand.Int(rand.Reader, big.NewInt(n))
	if err != nil {
		return 0
	}
	return v.Int64()
}

// GenerateClaims creates n valid claim requests.
func GenerateClaims(ctx context.Context, n, maxItems int) ([]claim.Request, error) {
	if maxItems < 1 {
		maxItems = 1
	}
	claims := make([]claim.Request, 0, n)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("claim generation cancelled: %w", err)
		}
		claims = append(claims, generateClaim(maxItems))
	}
	logger.Get().Info(ctx, "generated claims", logger.Int("count", len(claims)))
	return claims, nil
}

func generateClaim(maxItems int) claim.Request {
	count := 1 + int(randomInt(int64(maxItems)))
	items := make([]claim.Item, count)
	categories := claim.Categories()
	for i := range items {
		category := categories[randomInt(int64(len(categories)))]
		if randomInt(unknownEvery) == 0 {
			category = unknownCategory
		}
		items[i] = claim.Item{
			Category:      category,
			ClaimedAmount: decimal.New(randomInt(maxClaimedCents), -2),
		}
	}
	return claim.Request{
		ClaimItems:  items,
		PolicyLimit: decimal.NewFromInt(minPolicyLimit + randomInt(maxPolicyLimit-minPolicyLimit)),
		Excess:      decimal.NewFromInt(randomInt(maxExcess)),
		CoPayRate:   decimal.New(randomInt(coPayPercentMax+1), -2),
	}
}
