package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/claimsorted/internal/claimsim"
)

// Default configuration constants.
const (
	defaultNumClaims  = 500
	defaultMaxItems   = 5
	defaultWorkers    = 2 // multiplier for runtime.NumCPU()
	defaultTimeout    = 30 * time.Second
	defaultRunTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:9080", "Base URL of the service")
		numClaims  = flag.Int("claims", defaultNumClaims, "Number of claims to generate and submit")
		maxItems   = flag.Int("items", defaultMaxItems, "Maximum number of items per claim")
		workers    = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		outputFile = flag.String("output", "", "Output file for generated claims")
		logFile    = flag.String("log", "", "Log file for run output (default: claim_sim_TIMESTAMP.log)")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		claimsim.ShowHelp()
		return
	}

	logPath, err := claimsim.SetupLogging(*logFile, *verbose)
	if err != nil {
		_, _ = os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	cfg := &claimsim.Config{
		BaseURL:    *baseURL,
		NumClaims:  *numClaims,
		MaxItems:   *maxItems,
		Workers:    *workers,
		Timeout:    *timeout,
		OutputFile: *outputFile,
		LogFile:    logPath,
		Verbose:    *verbose,
	}

	if _, err := claimsim.Run(ctx, cfg); err != nil {
		_, _ = os.Stderr.WriteString("Simulation failed: " + err.Error() + "\n")
		cancel()
		os.Exit(1) //nolint:gocritic // cancel already called
	}
}
