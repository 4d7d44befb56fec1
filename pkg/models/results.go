package models

// BottleneckInfo is the bottleneck slice of a status packet.
type BottleneckInfo struct {
	Code      string `json:"code"`
	Since     string `json:"since,omitempty"`
	RiskLevel string `json:"riskLevel,omitempty"`
}

// NextAction is the recommended next step for a shipment, resolved through
// the action/shipment/template cascade.
type NextAction struct {
	Text  string `json:"nextAction"`
	Owner string `json:"owner,omitempty"`
	DueAt string `json:"dueAt,omitempty"`
}

// StatusPacket answers "where does shipment X stand right now".
type StatusPacket struct {
	ShptNo         string            `json:"shptNo"`
	Doc            map[string]string `json:"doc"`
	Bottleneck     BottleneckInfo    `json:"bottleneck"`
	Action         NextAction        `json:"action"`
	DataLagMinutes int               `json:"dataLagMinutes"`
	LastUpdated    string            `json:"lastUpdated"`
}

// BottleneckCount pairs a bottleneck code with its shipment count for
// top-N rankings.
type BottleneckCount struct {
	Code  string `json:"code"`
	Count int    `json:"count"`
}

// KPISummary is the global shipment dashboard.
type KPISummary struct {
	TotalShipments int                `json:"totalShipments"`
	Rates          map[string]float64 `json:"rates"`
	RiskLevels     map[string]int     `json:"riskLevels"`
	Bottlenecks    map[string]int     `json:"bottlenecks"`
	TopBottlenecks []BottleneckCount  `json:"topBottlenecks"`
	LastUpdated    string             `json:"lastUpdated"`
	Degraded       bool               `json:"degraded,omitempty"`
}

// BottleneckCodeStats aggregates all shipments currently blocked on one
// code. Shipments without a bottleneck-since instant still count but are
// excluded from the aging average.
type BottleneckCodeStats struct {
	Count         int     `json:"count"`
	AvgAgingHours float64 `json:"avgAgingHours"`
	RiskDefault   string  `json:"riskDefault,omitempty"`
	Description   string  `json:"description,omitempty"`
}

// AgingBuckets distributes blocked shipments by elapsed time since they
// entered the bottleneck.
type AgingBuckets struct {
	Under24h int `json:"under24h"`
	Under48h int `json:"under48h"`
	Under72h int `json:"under72h"`
	Over72h  int `json:"over72h"`
}

// BottleneckSummary is the bottleneck aging dashboard.
type BottleneckSummary struct {
	TotalActive    int                            `json:"totalActive"`
	ByCode         map[string]BottleneckCodeStats `json:"byCode"`
	ByCategory     map[string]int                 `json:"byCategory"`
	Aging          AgingBuckets                   `json:"aging"`
	TopBottlenecks []BottleneckCount              `json:"topBottlenecks"`
	LastUpdated    string                         `json:"lastUpdated"`
	Degraded       bool                           `json:"degraded,omitempty"`
}

// StatusTally counts approvals per status.
type StatusTally struct {
	Total    int `json:"total"`
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
	Expired  int `json:"expired"`
}

// ApprovalDetail is one approval row enriched with SLA arithmetic.
type ApprovalDetail struct {
	ApprovalType string   `json:"approvalType"`
	Status       string   `json:"status"`
	Owner        string   `json:"owner,omitempty"`
	DueAt        string   `json:"dueAt,omitempty"`
	SubmittedAt  string   `json:"submittedAt,omitempty"`
	ApprovedAt   string   `json:"approvedAt,omitempty"`
	DaysUntilDue *float64 `json:"daysUntilDue,omitempty"`
	Priority     string   `json:"priority"`
}

// ApprovalStatusSummary is the per-shipment approval rollup.
type ApprovalStatusSummary struct {
	Total    int `json:"total"`
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
	Expired  int `json:"expired"`
	Critical int `json:"critical"`
	Overdue  int `json:"overdue"`
}

// ApprovalStatus answers "is shipment X released to proceed".
type ApprovalStatus struct {
	ShptNo    string                `json:"shptNo"`
	Approvals []ApprovalDetail      `json:"approvals"`
	Summary   ApprovalStatusSummary `json:"summary"`
}

// ApprovalAlert is one pending approval inside a critical SLA bucket.
type ApprovalAlert struct {
	ShptNo       string  `json:"shptNo"`
	ApprovalType string  `json:"approvalType"`
	Owner        string  `json:"owner,omitempty"`
	DueAt        string  `json:"dueAt,omitempty"`
	DaysUntilDue float64 `json:"daysUntilDue"`
	Priority     string  `json:"priority"`
}

// CriticalBuckets holds pending approvals by SLA tier: already overdue,
// due within 5 days, due within 15 days.
type CriticalBuckets struct {
	Overdue []ApprovalAlert `json:"overdue"`
	D5      []ApprovalAlert `json:"d5"`
	D15     []ApprovalAlert `json:"d15"`
}

// ApprovalSummary is the global approval/SLA dashboard.
type ApprovalSummary struct {
	Summary     StatusTally             `json:"summary"`
	ByType      map[string]*StatusTally `json:"byType"`
	Critical    CriticalBuckets         `json:"critical"`
	LastUpdated string                  `json:"lastUpdated"`
	Degraded    bool                    `json:"degraded,omitempty"`
}

// EventDetail is one audit row in a document event history.
type EventDetail struct {
	EventID      string `json:"eventId,omitempty"`
	Timestamp    string `json:"timestamp,omitempty"`
	EntityType   string `json:"entityType,omitempty"`
	FromStatus   string `json:"fromStatus,omitempty"`
	ToStatus     string `json:"toStatus,omitempty"`
	Actor        string `json:"actor,omitempty"`
	SourceSystem string `json:"sourceSystem,omitempty"`
}

// DocumentEvents is the audit history for one shipment.
type DocumentEvents struct {
	ShptNo         string        `json:"shptNo"`
	Events         []EventDetail `json:"events"`
	Total          int           `json:"total"`
	DataLagMinutes int           `json:"dataLagMinutes"`
}

// EventBatch is an ingestion request. Event rows are free-form field maps
// validated against the schema lock before any write.
type EventBatch struct {
	BatchID      string           `json:"batchId"`
	SourceSystem string           `json:"sourceSystem"`
	Events       []map[string]any `json:"events"`
}

// IngestResult reports an accepted ingestion batch.
type IngestResult struct {
	Status        string `json:"status"`
	BatchID       string `json:"batchId"`
	Ingested      int    `json:"ingested"`
	SchemaVersion string `json:"schemaVersion,omitempty"`
}
