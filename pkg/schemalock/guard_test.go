package schemalock

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gets-logistics/gets-engine/pkg/apperrors"
)

func testLock(t *testing.T) *Lock {
	t.Helper()
	live := &BaseSchema{Tables: []BaseTable{
		{
			ID:             "tblShip",
			Name:           "Shipments",
			PrimaryFieldID: "fldShptNo",
			Fields: []Field{
				{ID: "fldShptNo", Name: "shptNo", Type: "singleLineText"},
				{ID: "fldVendor", Name: "vendor", Type: "singleLineText"},
				{ID: "fldStatus", Name: "riskLevel", Type: "singleSelect"},
			},
		},
		{
			ID:   "tblEvents",
			Name: "Events",
			Fields: []Field{
				{ID: "fldEventID", Name: "eventId", Type: "singleLineText"},
				{ID: "fldTimestamp", Name: "timestamp", Type: "dateTime"},
				{ID: "fldEvtShptNo", Name: "shptNo", Type: "singleLineText"},
				{ID: "fldToStatus", Name: "toStatus", Type: "singleLineText"},
				{ID: "fldFromStatus", Name: "fromStatus", Type: "singleLineText"},
			},
		},
	}}
	required := map[string][]string{
		"Shipments": {"shptNo", "vendor", "riskLevel", "dueAt"},
		"Events":    {"eventId", "timestamp", "shptNo", "toStatus", "fromStatus"},
		"Approvals": {"approvalKey", "shptNo"},
	}
	return BuildLock(live, required, "appBase123", "2025-01-15T09:00:00+0400")
}

func TestBuildLock(t *testing.T) {
	lock := testLock(t)

	assert.Equal(t, "appBase123", lock.Base.ID)
	assert.Equal(t, "2025-01-15T09:00:00+0400", lock.GeneratedAt)

	ship := lock.Tables["Shipments"]
	assert.Equal(t, "tblShip", ship.ID)
	assert.Equal(t, "fldShptNo", ship.PrimaryFieldID)
	assert.Equal(t, "fldVendor", ship.Fields["vendor"].ID)
	assert.Equal(t, []string{"dueAt"}, ship.MissingFields)

	// table absent from the live base is recorded, not dropped
	assert.True(t, lock.Tables["Approvals"].Missing)
}

func TestGuardLookups(t *testing.T) {
	g := NewGuard(testLock(t))

	assert.Equal(t, "2025-01-15T09:00:00+0400", g.Version())
	assert.Equal(t, "appBase123", g.BaseID())
	assert.Equal(t, []string{"Events", "Shipments"}, g.Tables())

	id, ok := g.TableID("Shipments")
	require.True(t, ok)
	assert.Equal(t, "tblShip", id)

	_, ok = g.TableID("Approvals")
	assert.False(t, ok, "missing tables must not resolve")

	assert.Equal(t, "fldShptNo", g.FieldID("Shipments", "shptNo"))
	assert.Equal(t, "", g.FieldID("Shipments", "dueAt"))
	assert.Equal(t, []string{"dueAt"}, g.MissingFields("Shipments"))

	info := g.FieldInfo("Events", "timestamp")
	require.NotNil(t, info)
	assert.Equal(t, "dateTime", info.Type)
}

func TestGuardValidate(t *testing.T) {
	g := NewGuard(testLock(t))

	t.Run("all fields valid", func(t *testing.T) {
		v := g.Validate("Events", map[string]any{
			"eventId":   "EVT-1",
			"timestamp": "2025-01-15T08:00:00Z",
			"shptNo":    "SHPT-001",
		})
		assert.True(t, v.Valid)
		assert.Equal(t, "tblEvents", v.TableID)
		assert.Equal(t, []string{"eventId", "shptNo", "timestamp"}, v.ValidFields)
		assert.Empty(t, v.InvalidFields)
	})

	t.Run("case mismatch suggests exact name", func(t *testing.T) {
		v := g.Validate("Events", map[string]any{"SHPTNO": "SHPT-001"})
		assert.False(t, v.Valid)
		assert.Equal(t, []string{"SHPTNO"}, v.InvalidFields)
		require.Contains(t, v.Suggestions, "SHPTNO")
		assert.Equal(t, "shptNo", v.Suggestions["SHPTNO"][0])
	})

	t.Run("substring match suggests containing names", func(t *testing.T) {
		v := g.Validate("Events", map[string]any{"status": "DONE"})
		require.Contains(t, v.Suggestions, "status")
		assert.ElementsMatch(t, []string{"fromStatus", "toStatus"}, v.Suggestions["status"])
	})

	t.Run("suggestions are capped", func(t *testing.T) {
		v := g.Validate("Events", map[string]any{"s": "x"})
		require.Contains(t, v.Suggestions, "s")
		assert.LessOrEqual(t, len(v.Suggestions["s"]), 3)
	})

	t.Run("validation error carries suggestions", func(t *testing.T) {
		v := g.Validate("Events", map[string]any{"SHPTNO": "SHPT-001"})
		err := ValidationErr("Events", v)
		var verr *apperrors.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "Events", verr.Table)
		assert.Equal(t, []string{"SHPTNO"}, verr.InvalidFields)

		assert.NoError(t, ValidationErr("Events", Validation{Valid: true}))
	})
}

func TestLoadFirst(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "schema.lock.json")

	data, err := json.Marshal(testLock(t))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	g, err := LoadFirst(filepath.Join(dir, "absent.json"), "", path)
	require.NoError(t, err)
	assert.Equal(t, "appBase123", g.BaseID())

	_, err = LoadFirst(filepath.Join(dir, "absent.json"))
	assert.True(t, errors.Is(err, apperrors.ErrSchemaLockMissing))
}
