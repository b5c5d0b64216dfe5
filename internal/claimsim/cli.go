package claimsim

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/okian/claimsorted/pkg/logger"
)

const logFilePermission = 0600

// SetupLogging sends simulator logs to stdout and to logFile. An empty
// logFile gets a timestamped name.
func SetupLogging(logFile string, verbose bool) (string, error) {
	if logFile == "" {
		logFile = "claim_sim_" + time.Now().Format("20060102_150405") + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return "", fmt.Errorf("failed to create log file: %w", err)
	}

	if err := logger.Init(logger.WithOutput(io.MultiWriter(os.Stdout, file))); err != nil {
		return "", fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		if err := logger.SetLevelString("debug"); err != nil {
			return "", err
		}
	}
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return logFile, nil
}

// ShowHelp prints usage information for the simulator.
func ShowHelp() {
	_, _ = os.Stdout.WriteString(`Claim Payout Simulator
======================

Submits generated claims to a running payout service concurrently and checks
every stored calculation against a local calculator.

Usage:
  go run ./cmd/claim-sim [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -claims int
        Number of claims to generate and submit (default 500)
  -items int
        Maximum number of items per claim (default 5)
  -workers int
        Number of concurrent workers (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 30s)
  -output string
        Output file for generated claims (not written when empty)
  -log string
        Log file for run output (default: claim_sim_TIMESTAMP.log)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Submit 100 claims of up to 8 items each
  go run ./cmd/claim-sim -claims 100 -items 8

  # Keep the generated claims for later inspection
  go run ./cmd/claim-sim -output claims.json -verbose
`)
}
