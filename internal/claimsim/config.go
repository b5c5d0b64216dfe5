// Package claimsim drives a running payout service with generated claims and
// verifies what it stores against a local calculator.
package claimsim

import (
	"time"

	"github.com/okian/claimsorted/internal/domain/claim"
)

// Config holds configuration for a simulation run.
type Config struct {
	BaseURL    string        // Base URL of the service
	NumClaims  int           // Number of claims to generate
	MaxItems   int           // Upper bound of items per claim
	Workers    int           // Number of concurrent submitters
	Timeout    time.Duration // HTTP request timeout
	OutputFile string        // Output file for generated claims, skipped when empty
	LogFile    string        // Log file for run output
	Verbose    bool          // Enable verbose logging
}

// Submission pairs a generated request with the server's answer.
type Submission struct {
	Request   claim.Request `json:"request"`
	RequestID string        `json:"requestId"`
	Status    int           `json:"status"`
	ID        int64         `json:"id,omitempty"`
}

// SaveResponse mirrors the body of a successful POST /claim-calc.
type SaveResponse struct {
	Status  string `json:"status"`
	ID      int64  `json:"id"`
	Message string `json:"message"`
}

// Stats holds run statistics.
type Stats struct {
	ClaimsGenerated int
	ClaimsSubmitted int
	ClaimsSaved     int
	ClaimsRejected  int
	ClaimsFailed    int
	ClaimsListed    int
	ClaimsVerified  int
	Mismatches      []string
	StartTime       time.Time
	EndTime         time.Time
	Duration        time.Duration
}
