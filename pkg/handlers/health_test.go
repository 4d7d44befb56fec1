package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gets-logistics/gets-engine/pkg/config"
	"github.com/gets-logistics/gets-engine/pkg/schemalock"
)

func healthGuard(t *testing.T) *schemalock.Guard {
	t.Helper()
	live := &schemalock.BaseSchema{Tables: []schemalock.BaseTable{
		{ID: "tblShip", Name: "Shipments", Fields: []schemalock.Field{
			{ID: "fldShptNo", Name: "shptNo"},
		}},
	}}
	required := map[string][]string{"Shipments": {"shptNo"}}
	return schemalock.NewGuard(schemalock.BuildLock(live, required, "appTest", "2025-01-01T00:00:00+0400"))
}

func TestHealthHealthy(t *testing.T) {
	cfg := &config.Config{Version: "1.2.3", Env: "production"}
	cfg.Airtable.Token = "tok"
	cfg.Airtable.BaseID = "appTest"

	mux := http.NewServeMux()
	NewHealthHandler(cfg, healthGuard(t), zap.NewNop()).RegisterRoutes(mux)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.True(t, resp.StoreConfigured)
	assert.True(t, resp.SchemaLocked)
	assert.Equal(t, "2025-01-01T00:00:00+0400", resp.SchemaVersion)
	assert.Equal(t, "appTest", resp.BaseID)
	assert.True(t, resp.VersionMatch)
}

func TestHealthBaseMismatch(t *testing.T) {
	cfg := &config.Config{Version: "1.2.3", Env: "production"}
	cfg.Airtable.Token = "tok"
	cfg.Airtable.BaseID = "appOther"

	mux := http.NewServeMux()
	NewHealthHandler(cfg, healthGuard(t), zap.NewNop()).RegisterRoutes(mux)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.False(t, resp.VersionMatch, "locked base differs from configured base")
	assert.Equal(t, "healthy", resp.Status)
}

func TestHealthDegraded(t *testing.T) {
	cfg := &config.Config{Version: "1.2.3", Env: "local"}

	mux := http.NewServeMux()
	NewHealthHandler(cfg, nil, zap.NewNop()).RegisterRoutes(mux)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp.Status)
	assert.False(t, resp.StoreConfigured)
	assert.False(t, resp.SchemaLocked)
	assert.Empty(t, resp.SchemaVersion)
}

func TestServiceInfo(t *testing.T) {
	cfg := &config.Config{Version: "1.2.3", Env: "local"}

	mux := http.NewServeMux()
	NewHealthHandler(cfg, healthGuard(t), zap.NewNop()).RegisterRoutes(mux)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var info ServiceInfo
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &info))
	assert.Equal(t, "gets-engine", info.Service)
	assert.Equal(t, "1.2.3", info.Version)
	assert.Equal(t, []string{"Shipments"}, info.LockedTables)
	assert.Contains(t, info.Endpoints, "POST /ingest/events")
}
