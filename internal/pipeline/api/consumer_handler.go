package api

import (
	"net/http"
	"strconv"

	"ride-metrics/internal/general/logger"
	"ride-metrics/internal/pipeline/app"
)

// ConsumerHandler exposes the on-demand pull-mode drain.
type ConsumerHandler struct {
	consumer   *app.Consumer
	defaultMax int
	logger     *logger.Logger
}

// NewConsumerHandler wires the consumer service's HTTP surface.
func NewConsumerHandler(consumer *app.Consumer, defaultMax int, log *logger.Logger) *ConsumerHandler {
	return &ConsumerHandler{consumer: consumer, defaultMax: defaultMax, logger: log}
}

// RegisterRoutes attaches the consumer endpoints to mux.
func (h *ConsumerHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/consume", requireMethod(http.MethodPost, h.handleDrain))
	mux.HandleFunc("/health", requireMethod(http.MethodGet, healthHandler("consumer-service")))
}

// ----- Handler: POST /consume?max_messages=N -----

// handleDrain runs one bounded pull-mode drain of the broker queue. The
// drain itself never errors; a transport failure shows up as a short or
// empty processed count.
func (h *ConsumerHandler) handleDrain(w http.ResponseWriter, r *http.Request) {
	ctx := h.logger.WithRequestID(r.Context(), newRequestID())

	max := h.defaultMax
	if v := r.URL.Query().Get("max_messages"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			max = parsed
		}
	}

	result := h.consumer.DrainBroker(ctx, max)

	writeJSON(w, http.StatusOK, map[string]any{
		"processed": len(result.Processed),
		"timestamp": result.Timestamp,
	})
}
