package schemalock

// RequiredTables is the canonical table and field surface the engine
// depends on. Lock generation snapshots exactly these; a live base may
// carry more, which the lock ignores.
//
// Formula queries address fields by NAME, so every name listed here is
// rename-protected: renaming one upstream breaks reads until a new lock
// is generated.
var RequiredTables = map[string][]string{
	"Shipments": {
		"shptNo", "vendor", "site", "eta", "mode", "forwarder",
		"currentBottleneckCode", "bottleneckSince", "riskLevel",
		"nextAction", "actionOwner", "dueAt", "stopFlag", "stopReason",
		"ocrPrecision", "mismatchRate", "rateOverrun",
	},
	"Documents": {
		"docKey", "shptNo", "docType", "status", "sourceSystem",
		"externalRef", "submittedAt", "issuedAt", "expiryAt", "remarks",
	},
	"Approvals": {
		"approvalKey", "shptNo", "approvalType", "status", "dueAt",
		"submittedAt", "approvedAt", "owner", "remarks",
	},
	"Actions": {
		"actionKey", "shptNo", "bottleneckCode", "actionText", "owner",
		"dueAt", "status", "priority", "closedAt",
	},
	"Events": {
		"eventId", "timestamp", "shptNo", "entityType", "fromStatus",
		"toStatus", "bottleneckCode", "actor", "sourceSystem", "rawPayload",
	},
	"Evidence": {
		"evidenceId", "type", "externalId", "sha256", "url",
		"capturedAt", "capturedBy", "notes",
	},
	"BottleneckCodes": {
		"code", "category", "description", "riskDefault",
		"nextActionTemplate", "slaHours", "stopTrigger",
	},
	"Owners": {
		"ownerName", "team", "email", "chatHandle", "roleNotes",
	},
	"Vendors": {
		"vendorName", "vendorType", "country", "contact",
	},
	"Sites": {
		"siteCode", "siteName", "country", "timeZone",
	},
}
