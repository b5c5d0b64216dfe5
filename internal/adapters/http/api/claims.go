package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/okian/claimsorted/internal/adapters/repository"
	"github.com/okian/claimsorted/internal/domain/claim"
	"github.com/okian/claimsorted/pkg/logger"
)

// Client facing messages.
const (
	msgInvalidInput  = "Invalid input."
	msgNegative      = "Negative values are not allowed."
	msgOutOfRange    = "Amounts have too many digits."
	msgSaveFailed    = "Could not save the calculation."
	msgListFailed    = "Could not read calculations."
	msgBodyTooLarge  = "Request body too large."
	msgSavedTemplate = "Calculation saved. Id: %d"
)

// ClaimsHandler serves the claim calculation endpoints.
type ClaimsHandler struct {
	deps   Dependencies
	logger logger.Logger
}

// NewClaimsHandler creates a new claims handler.
func NewClaimsHandler(deps Dependencies, l logger.Logger) *ClaimsHandler {
	return &ClaimsHandler{deps: deps, logger: l}
}

// HandleClaimCalc dispatches POST (save) and GET (list) on /claim-calc.
func (h *ClaimsHandler) HandleClaimCalc(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.handleSubmit(w, r)
	case http.MethodGet:
		h.handleList(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "")
	}
}

func (h *ClaimsHandler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit_claim"
	req, ok := h.decode(w, r, op)
	if !ok {
		return
	}

	id, err := h.deps.Submit(r.Context(), req)
	if err != nil {
		h.writeFailure(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, saveResponse{
		Status:  "saved",
		ID:      id,
		Message: fmt.Sprintf(msgSavedTemplate, id),
	})
}

func (h *ClaimsHandler) handleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_claims"
	calcs, err := h.deps.ListRecent(r.Context())
	if err != nil {
		h.writeFailure(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, toCalculations(calcs))
}

// HandleQuote handles POST /claim-calc/quote.
func (h *ClaimsHandler) HandleQuote(w http.ResponseWriter, r *http.Request) {
	const op = "api.quote_claim"
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "")
		return
	}
	req, ok := h.decode(w, r, op)
	if !ok {
		return
	}

	items, breakdown, err := h.deps.Quote(r.Context(), req)
	if err != nil {
		h.writeFailure(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, quoteResponse{
		breakdownResponse: toBreakdown(breakdown),
		AppliedExcess:     amount(breakdown.AppliedExcess()),
		ClaimItems:        toItems(items),
	})
}

// decode reads a single claim request. Field names match case-insensitively.
// Anything but whitespace after the request object is rejected.
func (h *ClaimsHandler) decode(w http.ResponseWriter, r *http.Request, op string) (claim.Request, bool) {
	var req claim.Request
	dec := json.NewDecoder(r.Body)
	err := dec.Decode(&req)
	if err == nil {
		if extra := dec.Decode(&struct{}{}); !errors.Is(extra, io.EOF) {
			err = errTrailingData(extra)
		}
	}
	if err == nil {
		return req, true
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		h.logger.Debug(r.Context(), "request body too large", logger.Error(WrapKind(op, ErrBodyTooLarge, err)))
		writeError(w, http.StatusRequestEntityTooLarge, "body_too_large", msgBodyTooLarge)
		return req, false
	}
	h.logger.Debug(r.Context(), "malformed claim request", logger.Error(WrapKind(op, ErrBadRequest, err)))
	writeError(w, http.StatusBadRequest, "bad_request", msgInvalidInput)
	return req, false
}

// errTrailingData reports input found after the request object, keeping a
// read error such as *http.MaxBytesError reachable.
func errTrailingData(err error) error {
	if err == nil {
		return ErrTrailingData
	}
	return fmt.Errorf("%w: %w", ErrTrailingData, err)
}

// writeFailure maps service errors to status codes and client messages.
// Internal causes are logged, never sent to the client.
func (h *ClaimsHandler) writeFailure(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, claim.ErrNegativeValue):
		writeError(w, http.StatusBadRequest, "negative_value", msgNegative)
	case errors.Is(err, claim.ErrOutOfRange):
		writeError(w, http.StatusBadRequest, "out_of_range", msgOutOfRange)
	case errors.Is(err, claim.ErrEmptyClaim):
		writeError(w, http.StatusBadRequest, "bad_request", msgInvalidInput)
	case errors.Is(err, repository.ErrList):
		h.logger.Error(r.Context(), "listing calculations failed", logger.Error(WrapKind(op, ErrPersistence, err)))
		writeError(w, http.StatusInternalServerError, "persistence_error", msgListFailed)
	case errors.Is(err, repository.ErrSave):
		h.logger.Error(r.Context(), "saving calculation failed", logger.Error(WrapKind(op, ErrPersistence, err)))
		writeError(w, http.StatusInternalServerError, "persistence_error", msgSaveFailed)
	default:
		var vErr *claim.ValidationError
		if errors.As(err, &vErr) {
			writeError(w, http.StatusBadRequest, "bad_request", msgInvalidInput)
			return
		}
		h.logger.Error(r.Context(), "request failed", logger.Error(WrapKind(op, ErrUnavailable, err)))
		writeError(w, http.StatusServiceUnavailable, "unavailable", "")
	}
}
