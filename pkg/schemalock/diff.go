package schemalock

import "sort"

// TableDrift is the per-table field delta between a live schema and a lock.
type TableDrift struct {
	AddedFields   []string `json:"addedFields,omitempty"`
	RemovedFields []string `json:"removedFields,omitempty"`
}

// Drift is the full delta computed by Diff. An external gate decides what
// to do with it; Diff itself has no side effects and never exits.
type Drift struct {
	NewTables     []string              `json:"newTables,omitempty"`
	MissingTables []string              `json:"missingTables,omitempty"`
	Tables        map[string]TableDrift `json:"tables,omitempty"`
}

// Clean reports whether no drift was detected.
func (d *Drift) Clean() bool {
	return len(d.NewTables) == 0 && len(d.MissingTables) == 0 && len(d.Tables) == 0
}

// Diff compares a live schema fetch against a lock snapshot. Tables marked
// missing in the lock are treated as not locked: their reappearance counts
// as a new table, not as drift resolution.
func Diff(live *BaseSchema, lock *Lock) *Drift {
	drift := &Drift{Tables: make(map[string]TableDrift)}

	liveByName := make(map[string]BaseTable, len(live.Tables))
	for _, t := range live.Tables {
		liveByName[t.Name] = t
	}

	locked := make(map[string]Table)
	for name, t := range lock.Tables {
		if !t.Missing {
			locked[name] = t
		}
	}

	for name := range liveByName {
		if _, ok := locked[name]; !ok {
			drift.NewTables = append(drift.NewTables, name)
		}
	}
	for name, lockTable := range locked {
		liveTable, ok := liveByName[name]
		if !ok {
			drift.MissingTables = append(drift.MissingTables, name)
			continue
		}

		liveFields := make(map[string]struct{}, len(liveTable.Fields))
		for _, f := range liveTable.Fields {
			liveFields[f.Name] = struct{}{}
		}

		var td TableDrift
		for _, f := range liveTable.Fields {
			if _, ok := lockTable.Fields[f.Name]; !ok {
				td.AddedFields = append(td.AddedFields, f.Name)
			}
		}
		for fieldName := range lockTable.Fields {
			if _, ok := liveFields[fieldName]; !ok {
				td.RemovedFields = append(td.RemovedFields, fieldName)
			}
		}
		sort.Strings(td.AddedFields)
		sort.Strings(td.RemovedFields)
		if len(td.AddedFields) > 0 || len(td.RemovedFields) > 0 {
			drift.Tables[name] = td
		}
	}

	sort.Strings(drift.NewTables)
	sort.Strings(drift.MissingTables)
	if len(drift.Tables) == 0 {
		drift.Tables = nil
	}
	return drift
}
