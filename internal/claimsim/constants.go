package claimsim

import "time"

// Endpoint paths.
const (
	pathClaimCalc = "/claim-calc"
	pathHealth    = "/healthz"
	pathStats     = "/stats"
)

// Generation bounds.
const (
	maxClaimedCents = 120_000
	maxExcess       = 300
	maxPolicyLimit  = 2_000
	minPolicyLimit  = 200
	coPayPercentMax = 40
	unknownEvery    = 10
)

// Runner configuration constants.
const (
	WorkerChannelMultiplier = 2
	PercentageMultiplier    = 100
	ProgressInterval        = time.Second
)
