package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"ride-metrics/internal/general/contracts"
	"ride-metrics/internal/general/logger"
	"ride-metrics/internal/pipeline/app"
)

// GatewayHandler adapts HTTP requests to the producer and the aggregator.
type GatewayHandler struct {
	producer   *app.Producer
	aggregator *app.Aggregator
	logger     *logger.Logger
}

// NewGatewayHandler wires the gateway's HTTP surface.
func NewGatewayHandler(producer *app.Producer, aggregator *app.Aggregator, log *logger.Logger) *GatewayHandler {
	return &GatewayHandler{producer: producer, aggregator: aggregator, logger: log}
}

// RegisterRoutes attaches the gateway endpoints to mux.
func (h *GatewayHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/rides", requireMethod(http.MethodPost, h.handleSubmitRide))
	mux.HandleFunc("/metrics/comparison", requireMethod(http.MethodGet, h.handleComparison))
	mux.HandleFunc("/health", requireMethod(http.MethodGet, healthHandler("gateway-service")))
}

// ----- Handler: POST /rides?queue=managed|broker -----

func (h *GatewayHandler) handleSubmitRide(w http.ResponseWriter, r *http.Request) {
	ctx := h.logger.WithRequestID(r.Context(), newRequestID())

	// selector defaults to the managed queue
	selector := r.URL.Query().Get("queue")
	if selector == "" {
		selector = contracts.QueueTypeManaged
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MiB
	defer r.Body.Close()

	var req contracts.RideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeJSONError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeJSONError(w, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}

	res, err := h.producer.Submit(ctx, req, selector)
	if err != nil {
		handleAppError(ctx, h.logger, w, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// ----- Handler: GET /metrics/comparison?details=bool&limit=int -----

func (h *GatewayHandler) handleComparison(w http.ResponseWriter, r *http.Request) {
	ctx := h.logger.WithRequestID(r.Context(), newRequestID())

	q := r.URL.Query()

	details := false
	if v := q.Get("details"); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			details = parsed
		}
	}

	limit := app.DefaultDetailLimit
	if v := q.Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	cmp, err := h.aggregator.Compare(ctx, details, limit)
	if err != nil {
		h.logger.Error(ctx, "comparison_failed", "Failed to aggregate metrics", err, nil)
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":   "Internal server error",
			"details": err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, cmp)
}
