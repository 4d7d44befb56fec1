package services

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/gets-logistics/gets-engine/pkg/models"
	"github.com/gets-logistics/gets-engine/pkg/timeutil"
)

// topBottleneckCount caps the ranked bottleneck list on dashboards.
const topBottleneckCount = 5

// DocStatusKey maps a doc type to its packet key, e.g. BOE -> boeStatus.
func DocStatusKey(docType string) string {
	return strings.ToLower(docType) + "Status"
}

// DocumentStatuses collapses the document rows of one shipment into a
// status-per-type map. The first row seen per type wins; later duplicates
// are ignored. Types with no row, or a row with a blank status, report
// UNKNOWN rather than being omitted, so the packet shape is stable.
func DocumentStatuses(docs []models.Document, docTypes []string) map[string]string {
	out := make(map[string]string, len(docTypes))
	for _, dt := range docTypes {
		out[DocStatusKey(dt)] = models.DocStatusUnknown
	}
	seen := make(map[string]bool, len(docTypes))
	for _, d := range docs {
		dt := strings.ToUpper(strings.TrimSpace(d.DocType))
		key := DocStatusKey(dt)
		if _, tracked := out[key]; !tracked || seen[dt] {
			continue
		}
		seen[dt] = true
		if d.Status != "" {
			out[key] = d.Status
		}
	}
	return out
}

// ResolveBottleneck builds the bottleneck slice of a status packet. The
// shipment's own risk level wins; the code definition's default is the
// fallback.
func ResolveBottleneck(sh models.Shipment, def *models.BottleneckCode) models.BottleneckInfo {
	info := models.BottleneckInfo{
		Code:      sh.BottleneckCode,
		Since:     timeutil.Format(sh.BottleneckSince),
		RiskLevel: sh.RiskLevel,
	}
	if info.Code == "" {
		info.Code = models.BottleneckNone
	}
	if info.RiskLevel == "" && def != nil {
		info.RiskLevel = def.RiskDefault
	}
	return info
}

// ResolveNextAction picks the recommended next step through a three-tier
// cascade: the most urgent open action row, then the shipment's own
// nextAction text, then the bottleneck code's template. The template tier
// derives its due date from the code's SLA hours. The owner falls back
// from the action row to the shipment to the default owner.
func ResolveNextAction(sh models.Shipment, actions []models.Action, def *models.BottleneckCode, now time.Time) models.NextAction {
	open := make([]models.Action, 0, len(actions))
	for _, a := range actions {
		if a.Open() {
			open = append(open, a)
		}
	}
	if len(open) > 0 {
		sort.SliceStable(open, func(i, j int) bool {
			hi := open[i].Priority == models.ActionPriorityHigh
			hj := open[j].Priority == models.ActionPriorityHigh
			if hi != hj {
				return hi
			}
			// Earliest due date first; undated actions sort last.
			switch {
			case open[i].DueAt == nil:
				return false
			case open[j].DueAt == nil:
				return true
			default:
				return open[i].DueAt.Before(*open[j].DueAt)
			}
		})
		chosen := open[0]
		owner := chosen.Owner
		if owner == "" {
			owner = fallbackOwner(sh)
		}
		return models.NextAction{
			Text:  chosen.ActionText,
			Owner: owner,
			DueAt: timeutil.Format(chosen.DueAt),
		}
	}

	if sh.NextAction != "" {
		return models.NextAction{
			Text:  sh.NextAction,
			Owner: fallbackOwner(sh),
			DueAt: timeutil.Format(sh.DueAt),
		}
	}

	if def != nil && def.NextActionTemplate != "" {
		due := sh.DueAt
		if def.SLAHours > 0 {
			d := now.Add(time.Duration(def.SLAHours * float64(time.Hour)))
			due = &d
		}
		return models.NextAction{
			Text:  def.NextActionTemplate,
			Owner: fallbackOwner(sh),
			DueAt: timeutil.Format(due),
		}
	}

	return models.NextAction{
		Text:  models.DefaultNextActionText,
		Owner: fallbackOwner(sh),
		DueAt: timeutil.Format(sh.DueAt),
	}
}

func fallbackOwner(sh models.Shipment) string {
	if sh.ActionOwner != "" {
		return sh.ActionOwner
	}
	return models.DefaultActionOwner
}

// DataLagMinutes measures feed staleness: whole minutes since the newest
// event timestamp. No dated events means no measurable lag; clock skew
// that puts the newest event in the future clamps to zero.
func DataLagMinutes(events []models.Event, now time.Time) int {
	var newest *time.Time
	for _, e := range events {
		if e.Timestamp == nil {
			continue
		}
		if newest == nil || e.Timestamp.After(*newest) {
			newest = e.Timestamp
		}
	}
	if newest == nil {
		return 0
	}
	mins := int(now.Sub(*newest).Minutes())
	if mins < 0 {
		return 0
	}
	return mins
}

// BuildKPISummary computes the global dashboard: per-type document
// completion rates, risk level distribution, and bottleneck ranking.
func BuildKPISummary(shipments []models.Shipment, docs []models.Document, docTypes []string, now time.Time) *models.KPISummary {
	total := len(shipments)

	complete := make(map[string]int, len(docTypes))
	counted := make(map[string]int, len(docTypes))
	tracked := make(map[string]bool, len(docTypes))
	for _, dt := range docTypes {
		tracked[dt] = true
	}
	for _, d := range docs {
		dt := strings.ToUpper(strings.TrimSpace(d.DocType))
		if !tracked[dt] {
			continue
		}
		counted[dt]++
		if models.DocStatusComplete(d.Status) {
			complete[dt]++
		}
	}

	// Rate is complete over the rows of that type; a type with no rows
	// at all reports 0.0 rather than being skipped.
	rates := make(map[string]float64, len(docTypes)+1)
	var rateSum float64
	for _, dt := range docTypes {
		rate := 0.0
		if counted[dt] > 0 {
			rate = round1(float64(complete[dt]) / float64(counted[dt]) * 100)
		}
		rates[strings.ToLower(dt)+"Rate"] = rate
		rateSum += rate
	}
	if len(docTypes) > 0 {
		rates["overall"] = round1(rateSum / float64(len(docTypes)))
	}

	risks := make(map[string]int)
	bottlenecks := make(map[string]int)
	for _, sh := range shipments {
		if sh.RiskLevel != "" {
			risks[sh.RiskLevel]++
		}
		if code := sh.BottleneckCode; code != "" && code != models.BottleneckNone {
			bottlenecks[code]++
		}
	}

	return &models.KPISummary{
		TotalShipments: total,
		Rates:          rates,
		RiskLevels:     risks,
		Bottlenecks:    bottlenecks,
		TopBottlenecks: rankBottlenecks(bottlenecks, topBottleneckCount),
		LastUpdated:    timeutil.Format(&now),
	}
}

// BuildBottleneckSummary computes the aging dashboard over currently
// blocked shipments. Shipments without a since timestamp count toward
// totals but not toward aging averages or buckets.
func BuildBottleneckSummary(shipments []models.Shipment, defs map[string]models.BottleneckCode, now time.Time) *models.BottleneckSummary {
	counts := make(map[string]int)
	agingSum := make(map[string]float64)
	agingN := make(map[string]int)
	byCategory := make(map[string]int)
	var buckets models.AgingBuckets
	active := 0

	for _, sh := range shipments {
		code := sh.BottleneckCode
		if code == "" || code == models.BottleneckNone {
			continue
		}
		active++
		counts[code]++
		if def, ok := defs[code]; ok && def.Category != "" {
			byCategory[def.Category]++
		}
		if sh.BottleneckSince == nil {
			continue
		}
		hours := now.Sub(*sh.BottleneckSince).Hours()
		if hours < 0 {
			hours = 0
		}
		agingSum[code] += hours
		agingN[code]++
		switch {
		case hours < 24:
			buckets.Under24h++
		case hours < 48:
			buckets.Under48h++
		case hours < 72:
			buckets.Under72h++
		default:
			buckets.Over72h++
		}
	}

	byCode := make(map[string]models.BottleneckCodeStats, len(counts))
	for code, n := range counts {
		stats := models.BottleneckCodeStats{Count: n}
		if agingN[code] > 0 {
			stats.AvgAgingHours = round1(agingSum[code] / float64(agingN[code]))
		}
		if def, ok := defs[code]; ok {
			stats.RiskDefault = def.RiskDefault
			stats.Description = def.Description
		}
		byCode[code] = stats
	}

	return &models.BottleneckSummary{
		TotalActive:    active,
		ByCode:         byCode,
		ByCategory:     byCategory,
		Aging:          buckets,
		TopBottlenecks: rankBottlenecks(counts, topBottleneckCount),
		LastUpdated:    timeutil.Format(&now),
	}
}

// BuildApprovalStatus computes the per-shipment approval rollup. Priority
// is derived for every row, but only pending rows count as critical or
// overdue in the summary.
func BuildApprovalStatus(shptNo string, approvals []models.Approval, now time.Time) *models.ApprovalStatus {
	out := &models.ApprovalStatus{
		ShptNo:    shptNo,
		Approvals: make([]models.ApprovalDetail, 0, len(approvals)),
	}
	for _, ap := range approvals {
		days := timeutil.DaysUntil(ap.DueAt, now)
		priority := timeutil.ClassifyPriority(days)
		out.Approvals = append(out.Approvals, models.ApprovalDetail{
			ApprovalType: ap.ApprovalType,
			Status:       ap.Status,
			Owner:        ap.Owner,
			DueAt:        timeutil.Format(ap.DueAt),
			SubmittedAt:  timeutil.Format(ap.SubmittedAt),
			ApprovedAt:   timeutil.Format(ap.ApprovedAt),
			DaysUntilDue: days,
			Priority:     priority,
		})

		out.Summary.Total++
		switch ap.Status {
		case models.ApprovalPending:
			out.Summary.Pending++
			switch priority {
			case timeutil.PriorityOverdue:
				out.Summary.Overdue++
			case timeutil.PriorityCritical:
				out.Summary.Critical++
			}
		case models.ApprovalApproved:
			out.Summary.Approved++
		case models.ApprovalRejected:
			out.Summary.Rejected++
		case models.ApprovalExpired:
			out.Summary.Expired++
		}
	}
	return out
}

/// BuildApprovalSummary computes the global SLA dashboard: status tallies
// overall and per approval type, plus pending approvals sorted into
// escalation buckets by days remaining.
func BuildApprovalSummary(approvals []models.Approval, now time.Time) *models.ApprovalSummary {
	out := &models.ApprovalSummary{
		ByType:      make(map[string]*models.StatusTally),
		LastUpdated: timeutil.Format(&now),
	}

	for _, ap := range approvals {
		tallyInto(&out.Summary, ap.Status)
		typ := ap.ApprovalType
		if typ == "" {
			typ = "UNSPECIFIED"
		}
		tt, ok := out.ByType[typ]
		if !ok {
			tt = &models.StatusTally{}
			out.ByType[typ] = tt
		}
		tallyInto(tt, ap.Status)

		if ap.Status != models.ApprovalPending {
			continue
		}
		days := timeutil.DaysUntil(ap.DueAt, now)
		if days == nil {
			continue
		}
		alert := models.ApprovalAlert{
			ShptNo:       ap.ShptNo,
			ApprovalType: ap.ApprovalType,
			Owner:        ap.Owner,
			DueAt:        timeutil.Format(ap.DueAt),
			DaysUntilDue: *days,
			Priority:     timeutil.ClassifyPriority(days),
		}
		switch {
		case *days < 0:
			out.Critical.Overdue = append(out.Critical.Overdue, alert)
		case *days <= 5:
			out.Critical.D5 = append(out.Critical.D5, alert)
		case *days <= 15:
			out.Critical.D15 = append(out.Critical.D15, alert)
		}
	}

	sortAlerts(out.Critical.Overdue)
	sortAlerts(out.Critical.D5)
	sortAlerts(out.Critical.D15)
	return out
}

// BuildDocumentEvents assembles the audit history for one shipment, newest
// first. Undated events sort last in their encounter order.
func BuildDocumentEvents(shptNo string, events []models.Event, now time.Time) *models.DocumentEvents {
	sorted := make([]models.Event, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		switch {
		case sorted[i].Timestamp == nil:
			return false
		case sorted[j].Timestamp == nil:
			return true
		default:
			return sorted[i].Timestamp.After(*sorted[j].Timestamp)
		}
	})

	details := make([]models.EventDetail, 0, len(sorted))
	for _, e := range sorted {
		details = append(details, models.EventDetail{
			EventID:      e.EventID,
			Timestamp:    timeutil.Format(e.Timestamp),
			EntityType:   e.EntityType,
			FromStatus:   e.FromStatus,
			ToStatus:     e.ToStatus,
			Actor:        e.Actor,
			SourceSystem: e.SourceSystem,
		})
	}

	return &models.DocumentEvents{
		ShptNo:         shptNo,
		Events:         details,
		Total:          len(details),
		DataLagMinutes: DataLagMinutes(events, now),
	}
}

func tallyInto(t *models.StatusTally, status string) {
	t.Total++
	switch status {
	case models.ApprovalPending:
		t.Pending++
	case models.ApprovalApproved:
		t.Approved++
	case models.ApprovalRejected:
		t.Rejected++
	case models.ApprovalExpired:
		t.Expired++
	}
}

func sortAlerts(alerts []models.ApprovalAlert) {
	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].DaysUntilDue < alerts[j].DaysUntilDue
	})
}

func rankBottlenecks(counts map[string]int, n int) []models.BottleneckCount {
	ranked := make([]models.BottleneckCount, 0, len(counts))
	for code, count := range counts {
		ranked = append(ranked, models.BottleneckCount{Code: code, Count: count})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Code < ranked[j].Code
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}
