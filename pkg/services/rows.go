package services

import (
	"github.com/gets-logistics/gets-engine/pkg/models"
	"github.com/gets-logistics/gets-engine/pkg/recordstore"
	"github.com/gets-logistics/gets-engine/pkg/schemalock"
)

func shipmentFromRecord(guard *schemalock.Guard, rec *recordstore.Record) models.Shipment {
	r := rowReader{guard: guard, table: TableShipments, fields: rec.Fields}
	return models.Shipment{
		ShptNo:          r.str("shptNo"),
		Vendor:          r.str("vendor"),
		Site:            r.str("site"),
		BottleneckCode:  r.str("currentBottleneckCode"),
		BottleneckSince: r.instant("bottleneckSince"),
		RiskLevel:       r.str("riskLevel"),
		NextAction:      r.str("nextAction"),
		ActionOwner:     r.str("actionOwner"),
		DueAt:           r.instant("dueAt"),
		StopFlag:        r.boolean("stopFlag"),
		StopReason:      r.str("stopReason"),
	}
}

func documentFromRecord(guard *schemalock.Guard, rec *recordstore.Record) models.Document {
	r := rowReader{guard: guard, table: TableDocuments, fields: rec.Fields}
	return models.Document{
		ShptNo:      r.str("shptNo"),
		DocType:     r.str("docType"),
		Status:      r.str("status"),
		SubmittedAt: r.instant("submittedAt"),
		IssuedAt:    r.instant("issuedAt"),
		ExpiryAt:    r.instant("expiryAt"),
	}
}

func approvalFromRecord(guard *schemalock.Guard, rec *recordstore.Record) models.Approval {
	r := rowReader{guard: guard, table: TableApprovals, fields: rec.Fields}
	return models.Approval{
		ShptNo:       r.str("shptNo"),
		ApprovalType: r.str("approvalType"),
		Status:       r.str("status"),
		Owner:        r.str("owner"),
		DueAt:        r.instant("dueAt"),
		SubmittedAt:  r.instant("submittedAt"),
		ApprovedAt:   r.instant("approvedAt"),
	}
}

func actionFromRecord(guard *schemalock.Guard, rec *recordstore.Record) models.Action {
	r := rowReader{guard: guard, table: TableActions, fields: rec.Fields}
	return models.Action{
		ShptNo:         r.str("shptNo"),
		BottleneckCode: r.str("bottleneckCode"),
		ActionText:     r.str("actionText"),
		Owner:          r.str("owner"),
		Status:         r.str("status"),
		Priority:       r.str("priority"),
		DueAt:          r.instant("dueAt"),
	}
}

func eventFromRecord(guard *schemalock.Guard, rec *recordstore.Record) models.Event {
	r := rowReader{guard: guard, table: TableEvents, fields: rec.Fields}
	return models.Event{
		EventID:      r.str("eventId"),
		ShptNo:       r.str("shptNo"),
		EntityType:   r.str("entityType"),
		FromStatus:   r.str("fromStatus"),
		ToStatus:     r.str("toStatus"),
		Actor:        r.str("actor"),
		SourceSystem: r.str("sourceSystem"),
		Timestamp:    r.instant("timestamp"),
	}
}

func bottleneckCodeFromRecord(guard *schemalock.Guard, rec *recordstore.Record) models.BottleneckCode {
	r := rowReader{guard: guard, table: TableBottleneckCodes, fields: rec.Fields}
	return models.BottleneckCode{
		Code:               r.str("code"),
		Category:           r.str("category"),
		Description:        r.str("description"),
		RiskDefault:        r.str("riskDefault"),
		NextActionTemplate: r.str("nextActionTemplate"),
		SLAHours:           r.float("slaHours"),
		StopTrigger:        r.boolean("stopTrigger"),
	}
}
