// Package api exposes the scheduling engine over HTTP. Handlers only
// translate; all policy lives in the engine packages.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/campusops/roomclerk/internal/booking"
	"github.com/campusops/roomclerk/internal/store"
)

// Deterministic reason codes for stable error classification.
// These codes should remain stable across versions for client compatibility.
const (
	ReasonBadRequest      = "bad_request"
	ReasonValidation      = "validation_failed"
	ReasonNotFound        = "not_found"
	ReasonConflict        = "conflict"
	ReasonPolicyViolation = "policy_violation"
	ReasonInvalidState    = "invalid_state"
	ReasonInternalError   = "internal_error"
)

// ErrorEnvelope is the standard error response format.
// All error responses should use this structure for consistency.
type ErrorEnvelope struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains the error information.
type ErrorDetail struct {
	Code       string `json:"code"`        // HTTP status text (e.g., "conflict")
	ReasonCode string `json:"reason_code"` // Deterministic reason code
	Message    string `json:"message"`     // Human-readable message

	// Conflict context, present for reason_code=conflict so a client
	// can offer alternate slots.
	RoomID string `json:"room_id,omitempty"`
	Window string `json:"window,omitempty"`
}

// WriteError writes a standardized JSON error response.
func WriteError(w http.ResponseWriter, statusCode int, reasonCode, message string) {
	writeDetail(w, statusCode, ErrorDetail{
		Code:       http.StatusText(statusCode),
		ReasonCode: reasonCode,
		Message:    message,
	})
}

func writeDetail(w http.ResponseWriter, statusCode int, detail ErrorDetail) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorEnvelope{Error: detail})
}

// WriteEngineError maps engine error kinds onto HTTP responses:
// validation -> 400, not found -> 404, policy -> 403, conflict -> 409,
// invalid state -> 409, anything else -> 500.
func WriteEngineError(w http.ResponseWriter, err error) {
	var velo *booking.ValidationErrors
	if errors.As(err, &velo) {
		WriteError(w, http.StatusBadRequest, ReasonValidation, velo.Error())
		return
	}
	if errors.Is(err, store.ErrNotFound) {
		WriteError(w, http.StatusNotFound, ReasonNotFound, err.Error())
		return
	}
	var conflict *booking.ConflictError
	if errors.As(err, &conflict) {
		writeDetail(w, http.StatusConflict, ErrorDetail{
			Code:       http.StatusText(http.StatusConflict),
			ReasonCode: ReasonConflict,
			Message:    conflict.Error(),
			RoomID:     conflict.RoomID,
			Window:     conflict.Start.Format(timeLayout) + "/" + conflict.End.Format(timeLayout),
		})
		return
	}
	var policy *booking.PolicyError
	if errors.As(err, &policy) {
		WriteError(w, http.StatusForbidden, ReasonPolicyViolation, policy.Error())
		return
	}
	var state *booking.StateError
	if errors.As(err, &state) {
		WriteError(w, http.StatusConflict, ReasonInvalidState, state.Error())
		return
	}
	WriteError(w, http.StatusInternalServerError, ReasonInternalError, "internal error")
}
