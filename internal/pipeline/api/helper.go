package api

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"ride-metrics/internal/general/logger"
	"ride-metrics/internal/pipeline/domain"
)

// newRequestID mints a short random correlation ID for one HTTP request.
func newRequestID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "req-unknown"
	}
	return hex.EncodeToString(b)
}

// requireMethod restricts a handler to one HTTP method, mirroring the
// method-prefixed ServeMux patterns of Go 1.22+ on older toolchains.
func requireMethod(method string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			w.Header().Set("Allow", method)
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}
		next(w, r)
	}
}

// -------------------- RESPONSE HELPERS --------------------

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}

// -------------------- ERROR HANDLING --------------------

// handleAppError maps domain errors onto HTTP statuses. Anything
// uncategorized degrades to a 500 with a generic message plus detail.
func handleAppError(ctx context.Context, log *logger.Logger, w http.ResponseWriter, err error) {
	var verr *domain.ValidationError

	switch {
	case errors.As(err, &verr):
		writeJSONError(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, domain.ErrInvalidSelector):
		writeJSONError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrDelivery):
		log.Error(ctx, "delivery_failed", "Queue delivery failed", err, nil)
		writeJSONError(w, http.StatusInternalServerError, err.Error())
	default:
		log.Error(ctx, "internal_error", "Unexpected error at HTTP boundary", err, nil)
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":   "Internal server error",
			"details": err.Error(),
		})
	}
}

// -------------------- HEALTH --------------------

// healthHandler returns a minimal liveness response for one service.
func healthHandler(service string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":    "ok",
			"service":   service,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}
}
