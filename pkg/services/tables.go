// Package services implements the aggregation and derivation engine: it
// turns raw, loosely typed store rows into status packets, KPI summaries,
// and SLA classifications.
package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/gets-logistics/gets-engine/pkg/jsonutil"
	"github.com/gets-logistics/gets-engine/pkg/recordstore"
	"github.com/gets-logistics/gets-engine/pkg/schemalock"
	"github.com/gets-logistics/gets-engine/pkg/timeutil"
)

// Logical table names as locked in the schema snapshot.
const (
	TableShipments       = "Shipments"
	TableDocuments       = "Documents"
	TableApprovals       = "Approvals"
	TableActions         = "Actions"
	TableEvents          = "Events"
	TableBottleneckCodes = "BottleneckCodes"
)

// Merge fields for idempotent event ingestion. If two genuinely distinct
// events share the exact (timestamp, shptNo) pair, the second overwrites
// the first; that is accepted behavior, not a defect.
var eventMergeFields = []string{"timestamp", "shptNo"}

// formulaEq builds a filterByFormula equality test. Formulas address
// fields by name only, which is why those names are rename-protected in
// the lock.
func formulaEq(field, value string) string {
	escaped := strings.ReplaceAll(value, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `'`, `\'`)
	return fmt.Sprintf("{%s}='%s'", field, escaped)
}

// rowReader reads one raw row through the rename-safe accessor: field id
// first, field name second, absent last.
type rowReader struct {
	guard  *schemalock.Guard
	table  string
	fields recordstore.Fields
}

func (r rowReader) value(name string) any {
	var id string
	if r.guard != nil {
		id = r.guard.FieldID(r.table, name)
	}
	return timeutil.ExtractByKey(r.fields, id, name)
}

func (r rowReader) str(name string) string {
	return jsonutil.FlexibleString(r.value(name))
}

func (r rowReader) instant(name string) *time.Time {
	return timeutil.ParseAny(r.str(name))
}

func (r rowReader) boolean(name string) bool {
	return jsonutil.FlexibleBool(r.value(name))
}

func (r rowReader) float(name string) float64 {
	f, _ := jsonutil.FlexibleFloat(r.value(name))
	return f
}
