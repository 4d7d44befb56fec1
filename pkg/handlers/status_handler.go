package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/gets-logistics/gets-engine/pkg/models"
	"github.com/gets-logistics/gets-engine/pkg/services"
)

// maxIngestBody caps an ingestion request at 1 MiB. Batches are chunked
// upstream well below this; anything larger is malformed or abusive.
const maxIngestBody = 1 << 20

// StatusHandler exposes the tracking engine over HTTP.
type StatusHandler struct {
	service services.StatusService
	logger  *zap.Logger
}

// NewStatusHandler creates a new status handler.
func NewStatusHandler(service services.StatusService, logger *zap.Logger) *StatusHandler {
	return &StatusHandler{service: service, logger: logger}
}

// RegisterRoutes registers the tracking routes on the given mux.
func (h *StatusHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /document/status/{shptNo}", h.DocumentStatus)
	mux.HandleFunc("GET /document/events/{shptNo}", h.DocumentEvents)
	mux.HandleFunc("GET /approval/status/{shptNo}", h.ApprovalStatus)
	mux.HandleFunc("GET /approval/summary", h.ApprovalSummary)
	mux.HandleFunc("GET /bottleneck/summary", h.BottleneckSummary)
	mux.HandleFunc("GET /status/summary", h.StatusSummary)
	mux.HandleFunc("POST /ingest/events", h.IngestEvents)
}

// shptNo extracts and normalizes the shipment number path segment.
func shptNo(w http.ResponseWriter, r *http.Request) (string, bool) {
	no := strings.TrimSpace(r.PathValue("shptNo"))
	if no == "" {
		_ = ErrorResponse(w, http.StatusBadRequest, "missing_shpt_no", "shipment number is required")
		return "", false
	}
	return no, true
}

// DocumentStatus handles GET /document/status/{shptNo}
func (h *StatusHandler) DocumentStatus(w http.ResponseWriter, r *http.Request) {
	no, ok := shptNo(w, r)
	if !ok {
		return
	}
	packet, err := h.service.DocumentStatus(r.Context(), no)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if err := WriteJSON(w, http.StatusOK, packet); err != nil {
		h.logger.Error("Failed to encode status packet", zap.Error(err))
	}
}

// DocumentEvents handles GET /document/events/{shptNo}
func (h *StatusHandler) DocumentEvents(w http.ResponseWriter, r *http.Request) {
	no, ok := shptNo(w, r)
	if !ok {
		return
	}
	events, err := h.service.DocumentEvents(r.Context(), no)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if err := WriteJSON(w, http.StatusOK, events); err != nil {
		h.logger.Error("Failed to encode event history", zap.Error(err))
	}
}

// ApprovalStatus handles GET /approval/status/{shptNo}
func (h *StatusHandler) ApprovalStatus(w http.ResponseWriter, r *http.Request) {
	no, ok := shptNo(w, r)
	if !ok {
		return
	}
	status, err := h.service.ApprovalStatus(r.Context(), no)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if err := WriteJSON(w, http.StatusOK, status); err != nil {
		h.logger.Error("Failed to encode approval status", zap.Error(err))
	}
}

// ApprovalSummary handles GET /approval/summary
func (h *StatusHandler) ApprovalSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.ApprovalSummary(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if err := WriteJSON(w, http.StatusOK, summary); err != nil {
		h.logger.Error("Failed to encode approval summary", zap.Error(err))
	}
}

// BottleneckSummary handles GET /bottleneck/summary
func (h *StatusHandler) BottleneckSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.BottleneckSummary(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if err := WriteJSON(w, http.StatusOK, summary); err != nil {
		h.logger.Error("Failed to encode bottleneck summary", zap.Error(err))
	}
}

// StatusSummary handles GET /status/summary
func (h *StatusHandler) StatusSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.StatusSummary(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if err := WriteJSON(w, http.StatusOK, summary); err != nil {
		h.logger.Error("Failed to encode status summary", zap.Error(err))
	}
}

// IngestEvents handles POST /ingest/events
func (h *StatusHandler) IngestEvents(w http.ResponseWriter, r *http.Request) {
	var batch models.EventBatch
	body := http.MaxBytesReader(w, r.Body, maxIngestBody)
	if err := json.NewDecoder(body).Decode(&batch); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_json", "request body is not a valid event batch")
		return
	}

	result, err := h.service.IngestEvents(r.Context(), &batch)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if err := WriteJSON(w, http.StatusOK, result); err != nil {
		h.logger.Error("Failed to encode ingest result", zap.Error(err))
	}
}
