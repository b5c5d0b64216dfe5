package claimsim

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/claimsorted/internal/domain/claim"
	"github.com/okian/claimsorted/pkg/logger"
)

const (
	directoryPermission = 0750
	outputPermission    = 0600
)

// ErrVerificationFailed is returned when any listed calculation disagrees with
// the local calculator or a submitted claim.
var ErrVerificationFailed = errors.New("verification failed")

// ErrSubmissionFailed is returned when claims could not be saved.
var ErrSubmissionFailed = errors.New("claims were not saved")

// Run executes a full simulation and returns its statistics.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get()

	log.Info(ctx, "starting claim simulation",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("claims", cfg.NumClaims),
		logger.Int("maxItems", cfg.MaxItems),
		logger.Int("workers", cfg.Workers),
		logger.String("timeout", cfg.Timeout.String()),
		logger.String("logFile", cfg.LogFile))

	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	client := NewHTTPClient(cfg.BaseURL, cfg.Timeout)

	if err := client.Get(ctx, pathHealth, nil); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}
	log.Info(ctx, "service is healthy")

	claims, err := GenerateClaims(ctx, cfg.NumClaims, cfg.MaxItems)
	if err != nil {
		return stats, fmt.Errorf("claim generation failed: %w", err)
	}
	stats.ClaimsGenerated = len(claims)

	subs := submitClaims(ctx, cfg, client, claims, stats)

	if cfg.OutputFile != "" {
		if err := saveSubmissions(ctx, cfg.OutputFile, subs); err != nil {
			log.Warn(ctx, "failed to save claims to file", logger.Error(err))
		}
	}

	var calcs []claim.Calculation
	if err := client.Get(ctx, pathClaimCalc, &calcs); err != nil {
		return stats, fmt.Errorf("listing calculations failed: %w", err)
	}
	stats.ClaimsListed = len(calcs)

	verifyResults(ctx, calcs, subs, fetchCalculator(ctx, client), stats)

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)

	if stats.ClaimsFailed > 0 || stats.ClaimsRejected > 0 {
		return stats, fmt.Errorf("%w: %d failed, %d rejected", ErrSubmissionFailed, stats.ClaimsFailed, stats.ClaimsRejected)
	}
	if len(stats.Mismatches) > 0 {
		return stats, fmt.Errorf("%w: %d mismatches", ErrVerificationFailed, len(stats.Mismatches))
	}
	log.Info(ctx, "simulation completed successfully")
	return stats, nil
}

// saveSubmissions writes the generated claims and their outcomes as a JSON array.
func saveSubmissions(ctx context.Context, filename string, subs []Submission) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(subs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal claims: %w", err)
	}
	if err := os.WriteFile(filename, append(data, '\n'), outputPermission); err != nil {
		return fmt.Errorf("failed to write claims: %w", err)
	}
	logger.Get().Info(ctx, "claims saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var successRate, claimsPerSecond float64

	if stats.ClaimsSubmitted > 0 {
		successRate = float64(stats.ClaimsSaved) / float64(stats.ClaimsSubmitted) * PercentageMultiplier
	}
	if stats.Duration > 0 {
		claimsPerSecond = float64(stats.ClaimsSubmitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(ctx, "final statistics",
		logger.Int("claimsGenerated", stats.ClaimsGenerated),
		logger.Int("claimsSubmitted", stats.ClaimsSubmitted),
		logger.Int("claimsSaved", stats.ClaimsSaved),
		logger.Int("claimsRejected", stats.ClaimsRejected),
		logger.Int("claimsFailed", stats.ClaimsFailed),
		logger.Int("claimsListed", stats.ClaimsListed),
		logger.Int("claimsVerified", stats.ClaimsVerified),
		logger.Int("mismatches", len(stats.Mismatches)),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("successRate", successRate),
		logger.Float64("claimsPerSecond", claimsPerSecond))
}
