package claimsim

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/okian/claimsorted/internal/domain/claim"
	"github.com/okian/claimsorted/pkg/logger"
)

// HTTPClient wraps http.Client with the service base URL.
type HTTPClient struct {
	client  *http.Client
	baseURL string
}

// NewHTTPClient creates a new HTTP client with timeout.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// Get performs a GET request and decodes a 200 JSON body into out.
func (c *HTTPClient) Get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: status %d: %s", path, resp.StatusCode, bytes.TrimSpace(body))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("GET %s: failed to decode body: %w", path, err)
	}
	return nil
}

// Post sends body as JSON with the given request id. It returns the status
// code and raw response body.
func (c *HTTPClient) Post(ctx context.Context, path, requestID string, body any) (int, []byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("POST %s: %w", path, err)
	}
	data, err := readResponseBody(resp)
	return resp.StatusCode, data, err
}

// readResponseBody reads and closes the response body.
func readResponseBody(resp *http.Response) ([]byte, error) {
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return data, nil
}

// submitClaims posts every claim using a pool of cfg.Workers submitters.
func submitClaims(ctx context.Context, cfg *Config, client *HTTPClient, claims []claim.Request, stats *Stats) []Submission {
	log := logger.Get()
	log.Info(ctx, "submitting claims", logger.Int("claims", len(claims)), logger.Int("workers", cfg.Workers))

	results := make([]Submission, len(claims))
	var submitted, saved, rejected, failed atomic.Int64

	indexes := make(chan int, cfg.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup
	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				results[i] = submitSingleClaim(ctx, client, claims[i])
				submitted.Add(1)
				switch {
				case results[i].Status == http.StatusOK:
					saved.Add(1)
				case results[i].Status == http.StatusBadRequest:
					rejected.Add(1)
				default:
					failed.Add(1)
				}
			}
		}()
	}

	go func() {
		defer close(indexes)
		for i := range claims {
			select {
			case <-ctx.Done():
				return
			case indexes <- i:
			}
		}
	}()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	ticker := time.NewTicker(ProgressInterval)
	defer ticker.Stop()
	for waiting := true; waiting; {
		select {
		case <-done:
			waiting = false
		case <-ticker.C:
			if cfg.Verbose {
				log.Info(ctx, "progress",
					logger.Int64("submitted", submitted.Load()),
					logger.Int64("saved", saved.Load()),
					logger.Int64("failed", failed.Load()))
			}
		}
	}

	stats.ClaimsSubmitted = int(submitted.Load())
	stats.ClaimsSaved = int(saved.Load())
	stats.ClaimsRejected = int(rejected.Load())
	stats.ClaimsFailed = int(failed.Load())
	return results
}

// submitSingleClaim posts one claim. Transport failures are recorded with status 0.
func submitSingleClaim(ctx context.Context, client *HTTPClient, req claim.Request) Submission {
	sub := Submission{Request: req, RequestID: uuid.NewString()}
	status, body, err := client.Post(ctx, pathClaimCalc, sub.RequestID, req)
	if err != nil {
		logger.Get().Debug(logger.ContextWithRequestID(ctx, sub.RequestID), "submit failed", logger.Error(err))
		return sub
	}
	sub.Status = status
	if status == http.StatusOK {
		var ack SaveResponse
		if err := json.Unmarshal(body, &ack); err == nil {
			sub.ID = ack.ID
		}
	}
	return sub
}
