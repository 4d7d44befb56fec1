package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/gets-logistics/gets-engine/pkg/config"
	"github.com/gets-logistics/gets-engine/pkg/schemalock"
)

// ServiceInfo describes the running engine and its locked schema surface.
type ServiceInfo struct {
	Service      string   `json:"service"`
	Version      string   `json:"version"`
	Environment  string   `json:"environment"`
	LockedTables []string `json:"lockedTables,omitempty"`
	Endpoints    []string `json:"endpoints"`
}

// HealthResponse reports dependency readiness.
type HealthResponse struct {
	Status          string `json:"status"`
	StoreConfigured bool   `json:"storeConfigured"`
	SchemaLocked    bool   `json:"schemaLocked"`
	SchemaVersion   string `json:"schemaVersion,omitempty"`
	BaseID          string `json:"baseId,omitempty"`
	VersionMatch    bool   `json:"versionMatch"`
}

// HealthHandler handles the service-info and health endpoints.
type HealthHandler struct {
	cfg    *config.Config
	guard  *schemalock.Guard
	logger *zap.Logger
}

// NewHealthHandler creates a new HealthHandler. A nil guard reports a
// degraded service.
func NewHealthHandler(cfg *config.Config, guard *schemalock.Guard, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{cfg: cfg, guard: guard, logger: logger}
}

// RegisterRoutes registers the health handler's routes on the given mux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.Info)
	mux.HandleFunc("GET /health", h.Health)
}

// Info handles GET / requests with a service description.
func (h *HealthHandler) Info(w http.ResponseWriter, r *http.Request) {
	info := ServiceInfo{
		Service:     "gets-engine",
		Version:     h.cfg.Version,
		Environment: h.cfg.Env,
		Endpoints: []string{
			"GET /health",
			"GET /document/status/{shptNo}",
			"GET /document/events/{shptNo}",
			"GET /approval/status/{shptNo}",
			"GET /approval/summary",
			"GET /bottleneck/summary",
			"GET /status/summary",
			"POST /ingest/events",
		},
	}
	if h.guard != nil {
		info.LockedTables = h.guard.Tables()
	}
	if err := WriteJSON(w, http.StatusOK, info); err != nil {
		h.logger.Error("Failed to encode service info", zap.Error(err))
	}
}

// Health handles GET /health requests. The service reports degraded, not
// down, when the store or the schema lock is absent: read endpoints still
// answer in degraded mode.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:          "healthy",
		StoreConfigured: h.cfg.Airtable.IsConfigured(),
		SchemaLocked:    h.guard != nil,
	}
	if h.guard != nil {
		resp.SchemaVersion = h.guard.Version()
		resp.BaseID = h.guard.BaseID()
		resp.VersionMatch = h.cfg.Airtable.BaseID == "" || h.guard.BaseID() == h.cfg.Airtable.BaseID
	}
	if !resp.StoreConfigured || !resp.SchemaLocked {
		resp.Status = "degraded"
	}
	if err := WriteJSON(w, http.StatusOK, resp); err != nil {
		h.logger.Error("Failed to encode health response", zap.Error(err))
	}
}
