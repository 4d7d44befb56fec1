package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gets-logistics/gets-engine/pkg/apperrors"
	"github.com/gets-logistics/gets-engine/pkg/models"
	"github.com/gets-logistics/gets-engine/pkg/recordstore"
	"github.com/gets-logistics/gets-engine/pkg/schemalock"
	"github.com/gets-logistics/gets-engine/pkg/timeutil"
)

// RecordStore is the slice of the store client the status service needs.
type RecordStore interface {
	List(ctx context.Context, table string, opts recordstore.ListOptions) ([]recordstore.Record, error)
	UpsertBatch(ctx context.Context, table string, rows []recordstore.Fields, mergeFields []string) ([]*recordstore.WriteResponse, error)
}

var _ RecordStore = (*recordstore.Client)(nil)

// StatusService answers the tracking questions the HTTP surface exposes:
// per-shipment status packets, approval rollups, global dashboards, audit
// histories, and event ingestion.
type StatusService interface {
	DocumentStatus(ctx context.Context, shptNo string) (*models.StatusPacket, error)
	ApprovalStatus(ctx context.Context, shptNo string) (*models.ApprovalStatus, error)
	ApprovalSummary(ctx context.Context) (*models.ApprovalSummary, error)
	BottleneckSummary(ctx context.Context) (*models.BottleneckSummary, error)
	StatusSummary(ctx context.Context) (*models.KPISummary, error)
	DocumentEvents(ctx context.Context, shptNo string) (*models.DocumentEvents, error)
	IngestEvents(ctx context.Context, batch *models.EventBatch) (*models.IngestResult, error)
}

type statusService struct {
	store    RecordStore
	guard    *schemalock.Guard
	logger   *zap.Logger
	now      func() time.Time
	docTypes []string
}

// NewStatusService wires the aggregation engine to a store client and a
// schema lock. A nil guard puts the service in degraded mode: queries fall
// back to field names and summaries are flagged accordingly. A nil store
// makes every operation fail with an upstream-unavailable error.
func NewStatusService(store RecordStore, guard *schemalock.Guard, logger *zap.Logger) StatusService {
	return &statusService{
		store:    store,
		guard:    guard,
		logger:   logger.Named("status-service"),
		now:      timeutil.Now,
		docTypes: models.DefaultDocTypes,
	}
}

var _ StatusService = (*statusService)(nil)

// tableRef addresses a table by its locked immutable id when the lock
// knows it, by display name otherwise.
func (s *statusService) tableRef(name string) string {
	if s.guard != nil {
		if id, ok := s.guard.TableID(name); ok && id != "" {
			return id
		}
	}
	return name
}

// degraded reports whether the lock-driven rename protections are off.
func (s *statusService) degraded() bool {
	return s.guard == nil
}

// degradedResult reports whether a summary should carry the degraded flag:
// either the lock is missing or there is no store to read from.
func (s *statusService) degradedResult() bool {
	return s.guard == nil || s.store == nil
}

func (s *statusService) ready() error {
	if s.store == nil {
		return fmt.Errorf("record store not configured: %w", apperrors.ErrUpstreamUnavailable)
	}
	return nil
}

func (s *statusService) listShipment(ctx context.Context, shptNo string) (*models.Shipment, error) {
	recs, err := s.store.List(ctx, s.tableRef(TableShipments), recordstore.ListOptions{
		FilterByFormula:       formulaEq("shptNo", shptNo),
		MaxRecords:            1,
		ReturnFieldsByFieldID: !s.degraded(),
	})
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("shipment %s: %w", shptNo, apperrors.ErrNotFound)
	}
	sh := shipmentFromRecord(s.guard, &recs[0])
	if sh.ShptNo == "" {
		sh.ShptNo = shptNo
	}
	return &sh, nil
}

func (s *statusService) listChildRows(ctx context.Context, table, shptNo string) ([]recordstore.Record, error) {
	return s.store.List(ctx, s.tableRef(table), recordstore.ListOptions{
		FilterByFormula:       formulaEq("shptNo", shptNo),
		ReturnFieldsByFieldID: !s.degraded(),
	})
}

func (s *statusService) bottleneckDefs(ctx context.Context) (map[string]models.BottleneckCode, error) {
	recs, err := s.store.List(ctx, s.tableRef(TableBottleneckCodes), recordstore.ListOptions{
		ReturnFieldsByFieldID: !s.degraded(),
	})
	if err != nil {
		return nil, err
	}
	defs := make(map[string]models.BottleneckCode, len(recs))
	for i := range recs {
		def := bottleneckCodeFromRecord(s.guard, &recs[i])
		if def.Code != "" {
			defs[def.Code] = def
		}
	}
	return defs, nil
}

// DocumentStatus assembles the full status packet for one shipment. The
// shipment lookup happens first so an unknown shptNo fails fast; the
// child-row reads only run for shipments that exist.
func (s *statusService) DocumentStatus(ctx context.Context, shptNo string) (*models.StatusPacket, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	sh, err := s.listShipment(ctx, shptNo)
	if err != nil {
		return nil, err
	}

	docRecs, err := s.listChildRows(ctx, TableDocuments, shptNo)
	if err != nil {
		return nil, err
	}
	actionRecs, err := s.listChildRows(ctx, TableActions, shptNo)
	if err != nil {
		return nil, err
	}
	eventRecs, err := s.listChildRows(ctx, TableEvents, shptNo)
	if err != nil {
		return nil, err
	}

	docs := make([]models.Document, 0, len(docRecs))
	for i := range docRecs {
		docs = append(docs, documentFromRecord(s.guard, &docRecs[i]))
	}
	actions := make([]models.Action, 0, len(actionRecs))
	for i := range actionRecs {
		actions = append(actions, actionFromRecord(s.guard, &actionRecs[i]))
	}
	events := make([]models.Event, 0, len(eventRecs))
	for i := range eventRecs {
		events = append(events, eventFromRecord(s.guard, &eventRecs[i]))
	}

	var def *models.BottleneckCode
	if sh.BottleneckCode != "" && sh.BottleneckCode != models.BottleneckNone {
		defs, err := s.bottleneckDefs(ctx)
		if err != nil {
			// The packet core is still answerable without code metadata.
			s.logger.Warn("bottleneck code lookup failed, packet continues without defaults",
				zap.String("shpt_no", shptNo),
				zap.Error(err))
		} else if d, ok := defs[sh.BottleneckCode]; ok {
			def = &d
		}
	}

	now := s.now()
	return &models.StatusPacket{
		ShptNo:         sh.ShptNo,
		Doc:            DocumentStatuses(docs, s.docTypes),
		Bottleneck:     ResolveBottleneck(*sh, def),
		Action:         ResolveNextAction(*sh, actions, def, now),
		DataLagMinutes: DataLagMinutes(events, now),
		LastUpdated:    timeutil.Format(&now),
	}, nil
}

// ApprovalStatus rolls up the approval rows of one shipment.
func (s *statusService) ApprovalStatus(ctx context.Context, shptNo string) (*models.ApprovalStatus, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if _, err := s.listShipment(ctx, shptNo); err != nil {
		return nil, err
	}
	recs, err := s.listChildRows(ctx, TableApprovals, shptNo)
	if err != nil {
		return nil, err
	}
	approvals := make([]models.Approval, 0, len(recs))
	for i := range recs {
		approvals = append(approvals, approvalFromRecord(s.guard, &recs[i]))
	}
	return BuildApprovalStatus(shptNo, approvals, s.now()), nil
}

// ApprovalSummary computes the global SLA dashboard over all approvals.
// With no store configured it answers an empty, degraded summary instead
// of an error: dashboards stay up even when the feed is down.
func (s *statusService) ApprovalSummary(ctx context.Context) (*models.ApprovalSummary, error) {
	if s.store == nil {
		out := BuildApprovalSummary(nil, s.now())
		out.Degraded = true
		return out, nil
	}
	recs, err := s.store.List(ctx, s.tableRef(TableApprovals), recordstore.ListOptions{
		ReturnFieldsByFieldID: !s.degraded(),
	})
	if err != nil {
		return nil, err
	}
	approvals := make([]models.Approval, 0, len(recs))
	for i := range recs {
		approvals = append(approvals, approvalFromRecord(s.guard, &recs[i]))
	}
	out := BuildApprovalSummary(approvals, s.now())
	out.Degraded = s.degradedResult()
	return out, nil
}

// BottleneckSummary computes the aging dashboard over blocked shipments.
func (s *statusService) BottleneckSummary(ctx context.Context) (*models.BottleneckSummary, error) {
	if s.store == nil {
		out := BuildBottleneckSummary(nil, nil, s.now())
		out.Degraded = true
		return out, nil
	}
	shipments, err := s.listAllShipments(ctx)
	if err != nil {
		return nil, err
	}
	defs, err := s.bottleneckDefs(ctx)
	if err != nil {
		return nil, err
	}
	out := BuildBottleneckSummary(shipments, defs, s.now())
	out.Degraded = s.degradedResult()
	return out, nil
}

// StatusSummary computes the global KPI dashboard.
func (s *statusService) StatusSummary(ctx context.Context) (*models.KPISummary, error) {
	if s.store == nil {
		out := BuildKPISummary(nil, nil, s.docTypes, s.now())
		out.Degraded = true
		return out, nil
	}
	shipments, err := s.listAllShipments(ctx)
	if err != nil {
		return nil, err
	}
	docRecs, err := s.store.List(ctx, s.tableRef(TableDocuments), recordstore.ListOptions{
		ReturnFieldsByFieldID: !s.degraded(),
	})
	if err != nil {
		return nil, err
	}
	docs := make([]models.Document, 0, len(docRecs))
	for i := range docRecs {
		docs = append(docs, documentFromRecord(s.guard, &docRecs[i]))
	}
	out := BuildKPISummary(shipments, docs, s.docTypes, s.now())
	out.Degraded = s.degradedResult()
	return out, nil
}

// DocumentEvents returns the audit history of one shipment, newest first.
func (s *statusService) DocumentEvents(ctx context.Context, shptNo string) (*models.DocumentEvents, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if _, err := s.listShipment(ctx, shptNo); err != nil {
		return nil, err
	}
	recs, err := s.listChildRows(ctx, TableEvents, shptNo)
	if err != nil {
		return nil, err
	}
	events := make([]models.Event, 0, len(recs))
	for i := range recs {
		events = append(events, eventFromRecord(s.guard, &recs[i]))
	}
	return BuildDocumentEvents(shptNo, events, s.now()), nil
}

// IngestEvents validates an event batch against the schema lock and
// upserts it on the (timestamp, shptNo) idempotency key. Validation is
// all-or-nothing: one bad row rejects the whole batch before any write.
func (s *statusService) IngestEvents(ctx context.Context, batch *models.EventBatch) (*models.IngestResult, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if s.guard == nil {
		// Ingesting without field validation would let typos create new
		// columns upstream; refuse instead.
		return nil, apperrors.ErrSchemaLockMissing
	}
	if batch == nil || len(batch.Events) == 0 {
		return nil, &apperrors.ValidationError{
			Table:         TableEvents,
			InvalidFields: []string{"events must not be empty"},
		}
	}

	rows := make([]recordstore.Fields, 0, len(batch.Events))
	for i, ev := range batch.Events {
		for _, key := range eventMergeFields {
			v, ok := ev[key]
			if !ok || v == nil || v == "" {
				return nil, &apperrors.ValidationError{
					Table:         TableEvents,
					InvalidFields: []string{fmt.Sprintf("events[%d].%s is required", i, key)},
				}
			}
		}
		if v := s.guard.Validate(TableEvents, ev); !v.Valid {
			return nil, schemalock.ValidationErr(TableEvents, v)
		}
		row := make(recordstore.Fields, len(ev)+2)
		for k, val := range ev {
			row[k] = val
		}
		if batch.SourceSystem != "" {
			if _, set := row["sourceSystem"]; !set {
				row["sourceSystem"] = batch.SourceSystem
			}
		}
		if id, set := row["eventId"]; !set || id == "" {
			row["eventId"] = uuid.NewString()
		}
		rows = append(rows, row)
	}

	batchID := batch.BatchID
	if batchID == "" {
		batchID = uuid.NewString()
	}

	responses, err := s.store.UpsertBatch(ctx, s.tableRef(TableEvents), rows, eventMergeFields)
	if err != nil {
		s.logger.Error("event batch upsert failed",
			zap.String("batch_id", batchID),
			zap.Int("events", len(rows)),
			zap.Error(err))
		return nil, err
	}

	ingested := 0
	for _, resp := range responses {
		ingested += len(resp.Records)
	}
	s.logger.Info("event batch ingested",
		zap.String("batch_id", batchID),
		zap.String("source_system", batch.SourceSystem),
		zap.Int("ingested", ingested))

	return &models.IngestResult{
		Status:        "accepted",
		BatchID:       batchID,
		Ingested:      ingested,
		SchemaVersion: s.guard.Version(),
	}, nil
}

func (s *statusService) listAllShipments(ctx context.Context) ([]models.Shipment, error) {
	recs, err := s.store.List(ctx, s.tableRef(TableShipments), recordstore.ListOptions{
		ReturnFieldsByFieldID: !s.degraded(),
	})
	if err != nil {
		return nil, err
	}
	shipments := make([]models.Shipment, 0, len(recs))
	for i := range recs {
		shipments = append(shipments, shipmentFromRecord(s.guard, &recs[i]))
	}
	return shipments, nil
}
