// Package models holds the typed views over raw store rows and the derived
// result objects the engine returns. Derived results live only in memory
// for the duration of a single request; they are never persisted.
package models

import "time"

// Document types tracked in a status packet.
const (
	DocTypeBOE  = "BOE"
	DocTypeDO   = "DO"
	DocTypeCOO  = "COO"
	DocTypeHBL  = "HBL"
	DocTypeCIPL = "CIPL"
)

// DefaultDocTypes is the configured doc-type set for status packets and
// KPI completion rates.
var DefaultDocTypes = []string{DocTypeBOE, DocTypeDO, DocTypeCOO, DocTypeHBL, DocTypeCIPL}

// Document statuses counted as complete for KPI purposes.
const (
	DocStatusIssued   = "ISSUED"
	DocStatusReleased = "RELEASED"
	DocStatusApproved = "APPROVED"
	DocStatusUnknown  = "UNKNOWN"
)

// Approval statuses.
const (
	ApprovalPending  = "PENDING"
	ApprovalApproved = "APPROVED"
	ApprovalRejected = "REJECTED"
	ApprovalExpired  = "EXPIRED"
)

// Action statuses and priorities.
const (
	ActionOpen       = "OPEN"
	ActionInProgress = "IN_PROGRESS"
	ActionDone       = "DONE"

	ActionPriorityHigh = "HIGH"
)

// BottleneckNone is the sentinel code for a shipment with no current
// bottleneck set.
const BottleneckNone = "NONE"

// DefaultActionOwner owns next actions when no explicit owner is recorded.
const DefaultActionOwner = "PMT"

// DefaultNextActionText is the last-resort next action when neither an
// open action row, the shipment, nor a bottleneck template supplies one.
const DefaultNextActionText = "Review shipment and assign next action"

// Shipment is the root entity, keyed by its natural unique id shptNo.
// Shipments are created and updated only by upsert from the ingestion
// feed, never implicitly by reads.
type Shipment struct {
	ShptNo          string
	Vendor          string
	Site            string
	BottleneckCode  string
	BottleneckSince *time.Time
	RiskLevel       string
	NextAction      string
	ActionOwner     string
	DueAt           *time.Time
	StopFlag        bool
	StopReason      string
}

// Document belongs to exactly one shipment; many per shipment.
type Document struct {
	ShptNo      string
	DocType     string
	Status      string
	SubmittedAt *time.Time
	IssuedAt    *time.Time
	ExpiryAt    *time.Time
}

// Approval belongs to one shipment.
type Approval struct {
	ShptNo       string
	ApprovalType string
	Status       string
	Owner        string
	DueAt        *time.Time
	SubmittedAt  *time.Time
	ApprovedAt   *time.Time
}

// Action belongs to one shipment.
type Action struct {
	ShptNo         string
	BottleneckCode string
	ActionText     string
	Owner          string
	Status         string
	Priority       string
	DueAt          *time.Time
}

// Event is an append-only audit row. Its natural idempotency key is the
// (timestamp, shptNo) composite: re-ingesting the same pair updates in
// place instead of duplicating.
type Event struct {
	EventID      string
	ShptNo       string
	EntityType   string
	FromStatus   string
	ToStatus     string
	Actor        string
	SourceSystem string
	Timestamp    *time.Time
}

// BottleneckCode is a reference-table row, not shipment-scoped.
type BottleneckCode struct {
	Code               string
	Category           string
	Description        string
	RiskDefault        string
	NextActionTemplate string
	SLAHours           float64
	StopTrigger        bool
}

// Open reports whether an action still needs work.
func (a Action) Open() bool {
	return a.Status == ActionOpen || a.Status == ActionInProgress
}

// Complete reports whether a document status counts toward the completion
// rate.
func DocStatusComplete(status string) bool {
	switch status {
	case DocStatusIssued, DocStatusReleased, DocStatusApproved:
		return true
	}
	return false
}
