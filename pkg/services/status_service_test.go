package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gets-logistics/gets-engine/pkg/apperrors"
	"github.com/gets-logistics/gets-engine/pkg/models"
	"github.com/gets-logistics/gets-engine/pkg/recordstore"
	"github.com/gets-logistics/gets-engine/pkg/schemalock"
)

// fakeStore serves canned rows per table and records upserts.
type fakeStore struct {
	rows    map[string][]recordstore.Record
	listErr error

	upsertTable string
	upsertRows  []recordstore.Fields
	upsertMerge []string
}

func (f *fakeStore) List(ctx context.Context, table string, opts recordstore.ListOptions) ([]recordstore.Record, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	rows := f.rows[table]
	if opts.FilterByFormula == "" {
		return rows, nil
	}
	// emulate {shptNo}='...' filtering, which is all the service issues
	want := strings.TrimSuffix(strings.TrimPrefix(opts.FilterByFormula, "{shptNo}='"), "'")
	var out []recordstore.Record
	for _, r := range rows {
		if r.Fields["shptNo"] == want {
			out = append(out, r)
			if opts.MaxRecords > 0 && len(out) >= opts.MaxRecords {
				break
			}
		}
	}
	return out, nil
}

func (f *fakeStore) UpsertBatch(ctx context.Context, table string, rows []recordstore.Fields, mergeFields []string) ([]*recordstore.WriteResponse, error) {
	f.upsertTable = table
	f.upsertRows = rows
	f.upsertMerge = mergeFields
	resp := &recordstore.WriteResponse{}
	for range rows {
		resp.Records = append(resp.Records, recordstore.Record{ID: "rec"})
	}
	return []*recordstore.WriteResponse{resp}, nil
}

func serviceGuard(t *testing.T) *schemalock.Guard {
	t.Helper()
	live := &schemalock.BaseSchema{Tables: []schemalock.BaseTable{
		{ID: "tblShip", Name: TableShipments, Fields: []schemalock.Field{
			{ID: "fldShptNo", Name: "shptNo"}, {ID: "fldVendor", Name: "vendor"},
			{ID: "fldBn", Name: "currentBottleneckCode"}, {ID: "fldSince", Name: "bottleneckSince"},
			{ID: "fldRisk", Name: "riskLevel"}, {ID: "fldNext", Name: "nextAction"},
			{ID: "fldOwner", Name: "actionOwner"}, {ID: "fldDue", Name: "dueAt"},
		}},
		{ID: "tblDocs", Name: TableDocuments, Fields: []schemalock.Field{
			{ID: "fldDShpt", Name: "shptNo"}, {ID: "fldType", Name: "docType"}, {ID: "fldStatus", Name: "status"},
		}},
		{ID: "tblAppr", Name: TableApprovals, Fields: []schemalock.Field{
			{ID: "fldAShpt", Name: "shptNo"}, {ID: "fldAType", Name: "approvalType"},
			{ID: "fldAStatus", Name: "status"}, {ID: "fldADue", Name: "dueAt"},
		}},
		{ID: "tblActs", Name: TableActions, Fields: []schemalock.Field{
			{ID: "fldXShpt", Name: "shptNo"}, {ID: "fldText", Name: "actionText"},
			{ID: "fldXStatus", Name: "status"}, {ID: "fldPrio", Name: "priority"},
		}},
		{ID: "tblEvts", Name: TableEvents, Fields: []schemalock.Field{
			{ID: "fldEId", Name: "eventId"}, {ID: "fldETs", Name: "timestamp"},
			{ID: "fldEShpt", Name: "shptNo"}, {ID: "fldETo", Name: "toStatus"},
			{ID: "fldESrc", Name: "sourceSystem"},
		}},
		{ID: "tblCodes", Name: TableBottleneckCodes, Fields: []schemalock.Field{
			{ID: "fldCode", Name: "code"}, {ID: "fldCat", Name: "category"},
			{ID: "fldRd", Name: "riskDefault"}, {ID: "fldTmpl", Name: "nextActionTemplate"},
		}},
	}}
	required := map[string][]string{
		TableShipments:       {"shptNo", "vendor", "currentBottleneckCode", "bottleneckSince", "riskLevel", "nextAction", "actionOwner", "dueAt"},
		TableDocuments:       {"shptNo", "docType", "status"},
		TableApprovals:       {"shptNo", "approvalType", "status", "dueAt"},
		TableActions:         {"shptNo", "actionText", "status", "priority"},
		TableEvents:          {"eventId", "timestamp", "shptNo", "toStatus", "sourceSystem"},
		TableBottleneckCodes: {"code", "category", "riskDefault", "nextActionTemplate"},
	}
	return schemalock.NewGuard(schemalock.BuildLock(live, required, "appTest", "2025-01-01T00:00:00+0400"))
}

func newTestService(store RecordStore, guard *schemalock.Guard) *statusService {
	svc := NewStatusService(store, guard, zap.NewNop()).(*statusService)
	svc.now = func() time.Time {
		return time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)
	}
	return svc
}

func rec(fields recordstore.Fields) recordstore.Record {
	return recordstore.Record{ID: "rec", Fields: fields}
}

func TestDocumentStatusPacket(t *testing.T) {
	store := &fakeStore{rows: map[string][]recordstore.Record{
		"tblShip": {rec(recordstore.Fields{
			"shptNo":                "SHPT-001",
			"currentBottleneckCode": "CUSTOMS_HOLD",
			"bottleneckSince":       "2025-01-14T12:00:00Z",
			"riskLevel":             "",
			"actionOwner":           "OPS",
		})},
		"tblDocs": {
			rec(recordstore.Fields{"shptNo": "SHPT-001", "docType": "BOE", "status": "ISSUED"}),
			rec(recordstore.Fields{"shptNo": "SHPT-001", "docType": "DO", "status": "RELEASED"}),
		},
		"tblActs": {
			rec(recordstore.Fields{"shptNo": "SHPT-001", "actionText": "chase broker", "status": "OPEN", "priority": "HIGH"}),
		},
		"tblEvts": {
			rec(recordstore.Fields{"shptNo": "SHPT-001", "eventId": "E1", "timestamp": "2025-01-15T11:30:00Z"}),
		},
		"tblCodes": {
			rec(recordstore.Fields{"code": "CUSTOMS_HOLD", "riskDefault": "HIGH", "nextActionTemplate": "escalate"}),
		},
	}}

	svc := newTestService(store, serviceGuard(t))
	packet, err := svc.DocumentStatus(context.Background(), "SHPT-001")
	require.NoError(t, err)

	assert.Equal(t, "SHPT-001", packet.ShptNo)
	assert.Equal(t, "ISSUED", packet.Doc["boeStatus"])
	assert.Equal(t, "RELEASED", packet.Doc["doStatus"])
	assert.Equal(t, "UNKNOWN", packet.Doc["cooStatus"])

	assert.Equal(t, "CUSTOMS_HOLD", packet.Bottleneck.Code)
	assert.Equal(t, "HIGH", packet.Bottleneck.RiskLevel, "code default fills blank risk")

	assert.Equal(t, "chase broker", packet.Action.Text)
	assert.Equal(t, "OPS", packet.Action.Owner, "ownerless action row falls back to the shipment owner")

	assert.Equal(t, 30, packet.DataLagMinutes)
}

func TestDocumentStatusNotFound(t *testing.T) {
	store := &fakeStore{rows: map[string][]recordstore.Record{}}
	svc := newTestService(store, serviceGuard(t))

	_, err := svc.DocumentStatus(context.Background(), "SHPT-404")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestDocumentStatusStoreUnconfigured(t *testing.T) {
	svc := newTestService(nil, serviceGuard(t))
	_, err := svc.DocumentStatus(context.Background(), "SHPT-001")
	assert.True(t, errors.Is(err, apperrors.ErrUpstreamUnavailable))
}

func TestDocumentStatusPropagatesStoreError(t *testing.T) {
	store := &fakeStore{listErr: &apperrors.RetryExhaustedError{Method: "GET", URL: "u", Attempts: 5}}
	svc := newTestService(store, serviceGuard(t))

	_, err := svc.DocumentStatus(context.Background(), "SHPT-001")
	var rerr *apperrors.RetryExhaustedError
	assert.True(t, errors.As(err, &rerr))
}

func TestApprovalStatusRollup(t *testing.T) {
	store := &fakeStore{rows: map[string][]recordstore.Record{
		"tblShip": {rec(recordstore.Fields{"shptNo": "SHPT-001"})},
		"tblAppr": {
			rec(recordstore.Fields{"shptNo": "SHPT-001", "approvalType": "CUSTOMS", "status": "PENDING", "dueAt": "2025-01-16T12:00:00Z"}),
			rec(recordstore.Fields{"shptNo": "SHPT-001", "approvalType": "MOIAT", "status": "APPROVED"}),
			rec(recordstore.Fields{"shptNo": "SHPT-002", "approvalType": "FANR", "status": "PENDING"}),
		},
	}}

	svc := newTestService(store, serviceGuard(t))
	got, err := svc.ApprovalStatus(context.Background(), "SHPT-001")
	require.NoError(t, err)

	assert.Equal(t, 2, got.Summary.Total, "other shipments' approvals filtered out")
	assert.Equal(t, 1, got.Summary.Pending)
	assert.Equal(t, 1, got.Summary.Critical)
}

func TestSummariesDegradeWithoutStore(t *testing.T) {
	svc := newTestService(nil, serviceGuard(t))

	kpi, err := svc.StatusSummary(context.Background())
	require.NoError(t, err)
	assert.True(t, kpi.Degraded)
	assert.Equal(t, 0, kpi.TotalShipments)

	bn, err := svc.BottleneckSummary(context.Background())
	require.NoError(t, err)
	assert.True(t, bn.Degraded)
	assert.Equal(t, 0, bn.TotalActive)

	ap, err := svc.ApprovalSummary(context.Background())
	require.NoError(t, err)
	assert.True(t, ap.Degraded)
	assert.Equal(t, 0, ap.Summary.Total)
}

func TestSummariesFlagMissingLock(t *testing.T) {
	store := &fakeStore{rows: map[string][]recordstore.Record{}}
	svc := newTestService(store, nil)

	kpi, err := svc.StatusSummary(context.Background())
	require.NoError(t, err)
	assert.True(t, kpi.Degraded)
}

func TestIngestEvents(t *testing.T) {
	store := &fakeStore{rows: map[string][]recordstore.Record{}}
	svc := newTestService(store, serviceGuard(t))

	batch := &models.EventBatch{
		SourceSystem: "OCR_PIPELINE",
		Events: []map[string]any{
			{"eventId": "E1", "timestamp": "2025-01-15T08:00:00Z", "shptNo": "SHPT-001", "toStatus": "ISSUED"},
			{"timestamp": "2025-01-15T09:00:00Z", "shptNo": "SHPT-002", "toStatus": "RELEASED"},
		},
	}

	result, err := svc.IngestEvents(context.Background(), batch)
	require.NoError(t, err)

	assert.Equal(t, "accepted", result.Status)
	assert.Equal(t, 2, result.Ingested)
	assert.NotEmpty(t, result.BatchID, "missing batch id gets generated")
	assert.Equal(t, "2025-01-01T00:00:00+0400", result.SchemaVersion)

	assert.Equal(t, "tblEvts", store.upsertTable, "events addressed by locked table id")
	assert.Equal(t, eventMergeFields, store.upsertMerge)
	require.Len(t, store.upsertRows, 2)
	assert.Equal(t, "OCR_PIPELINE", store.upsertRows[0]["sourceSystem"], "batch source stamped onto rows")
	assert.Equal(t, "E1", store.upsertRows[0]["eventId"])
	assert.NotEmpty(t, store.upsertRows[1]["eventId"], "missing event id gets generated")
}

func TestIngestEventsRejectsInvalidFields(t *testing.T) {
	store := &fakeStore{rows: map[string][]recordstore.Record{}}
	svc := newTestService(store, serviceGuard(t))

	batch := &models.EventBatch{Events: []map[string]any{
		{"timestamp": "2025-01-15T08:00:00Z", "shptNo": "SHPT-001", "TOSTATUS": "ISSUED"},
	}}

	_, err := svc.IngestEvents(context.Background(), batch)
	var verr *apperrors.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, TableEvents, verr.Table)
	assert.Equal(t, []string{"TOSTATUS"}, verr.InvalidFields)
	assert.Equal(t, []string{"toStatus"}, verr.Suggestions["TOSTATUS"])
	assert.Empty(t, store.upsertRows, "nothing written when validation fails")
}

func TestIngestEventsRequiresMergeKeys(t *testing.T) {
	store := &fakeStore{rows: map[string][]recordstore.Record{}}
	svc := newTestService(store, serviceGuard(t))

	batch := &models.EventBatch{Events: []map[string]any{
		{"timestamp": "2025-01-15T08:00:00Z"}, // no shptNo
	}}

	_, err := svc.IngestEvents(context.Background(), batch)
	var verr *apperrors.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.InvalidFields[0], "shptNo")
}

func TestIngestEventsEmptyBatch(t *testing.T) {
	svc := newTestService(&fakeStore{}, serviceGuard(t))
	_, err := svc.IngestEvents(context.Background(), &models.EventBatch{})
	var verr *apperrors.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestIngestEventsRefusesWithoutLock(t *testing.T) {
	svc := newTestService(&fakeStore{}, nil)
	batch := &models.EventBatch{Events: []map[string]any{
		{"timestamp": "2025-01-15T08:00:00Z", "shptNo": "SHPT-001"},
	}}
	_, err := svc.IngestEvents(context.Background(), batch)
	assert.True(t, errors.Is(err, apperrors.ErrSchemaLockMissing))
}

func TestDocumentEventsHistory(t *testing.T) {
	store := &fakeStore{rows: map[string][]recordstore.Record{
		"tblShip": {rec(recordstore.Fields{"shptNo": "SHPT-001"})},
		"tblEvts": {
			rec(recordstore.Fields{"shptNo": "SHPT-001", "eventId": "E1", "timestamp": "2025-01-15T08:00:00Z"}),
			rec(recordstore.Fields{"shptNo": "SHPT-001", "eventId": "E2", "timestamp": "2025-01-15T11:00:00Z"}),
		},
	}}

	svc := newTestService(store, serviceGuard(t))
	got, err := svc.DocumentEvents(context.Background(), "SHPT-001")
	require.NoError(t, err)

	assert.Equal(t, 2, got.Total)
	assert.Equal(t, "E2", got.Events[0].EventID)
	assert.Equal(t, 60, got.DataLagMinutes)
}

func TestTableRefFallsBackToName(t *testing.T) {
	svc := newTestService(&fakeStore{}, nil)
	assert.Equal(t, TableShipments, svc.tableRef(TableShipments))

	withGuard := newTestService(&fakeStore{}, serviceGuard(t))
	assert.Equal(t, "tblShip", withGuard.tableRef(TableShipments))
}
