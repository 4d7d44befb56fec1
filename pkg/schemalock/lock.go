// Package schemalock guards every record store request against schema
// drift. A lock file is a frozen snapshot of the remote base's table and
// field schema; once loaded it is immutable for the lifetime of the
// process, so concurrent reads need no synchronization. A new snapshot
// supersedes, never mutates, the old one.
package schemalock

import (
	"encoding/json"
	"fmt"
	"os"
)

// Field describes one locked field.
type Field struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// Table describes one locked table. A table absent from the live base at
// lock-generation time carries Missing=true and nothing else.
type Table struct {
	ID             string           `json:"id,omitempty"`
	Name           string           `json:"name,omitempty"`
	PrimaryFieldID string           `json:"primaryFieldId,omitempty"`
	Fields         map[string]Field `json:"fields,omitempty"`
	MissingFields  []string         `json:"missingFields,omitempty"`
	Missing        bool             `json:"missing,omitempty"`
}

// Lock is a versioned schema snapshot.
type Lock struct {
	Base struct {
		ID string `json:"id"`
	} `json:"base"`
	GeneratedAt string           `json:"generatedAt"`
	Tables      map[string]Table `json:"tables"`
}

// BaseSchema is the live schema as returned by the record store's metadata
// endpoint. It is the input to BuildLock and Diff.
type BaseSchema struct {
	Tables []BaseTable `json:"tables"`
}

// BaseTable is one table entry in a live schema fetch.
type BaseTable struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	PrimaryFieldID string  `json:"primaryFieldId,omitempty"`
	Fields         []Field `json:"fields"`
}

// parseLock decodes and minimally checks a lock document.
func parseLock(data []byte) (*Lock, error) {
	var lock Lock
	if err := json.Unmarshal(data, &lock); err != nil {
		return nil, fmt.Errorf("failed to parse schema lock: %w", err)
	}
	if len(lock.Tables) == 0 {
		return nil, fmt.Errorf("schema lock has no tables")
	}
	return &lock, nil
}

// ReadLock loads a lock snapshot from a single path.
func ReadLock(path string) (*Lock, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema lock: %w", err)
	}
	return parseLock(data)
}

// BuildLock freezes a live schema fetch into a lock snapshot. Only the
// tables and fields listed in required are captured; tables absent from
// the live base are recorded as missing, absent fields land in the
// table's MissingFields list. generatedAt becomes the snapshot version.
func BuildLock(live *BaseSchema, required map[string][]string, baseID, generatedAt string) *Lock {
	byName := make(map[string]BaseTable, len(live.Tables))
	for _, t := range live.Tables {
		byName[t.Name] = t
	}

	lock := &Lock{
		GeneratedAt: generatedAt,
		Tables:      make(map[string]Table, len(required)),
	}
	lock.Base.ID = baseID

	for tableName, requiredFields := range required {
		liveTable, ok := byName[tableName]
		if !ok {
			lock.Tables[tableName] = Table{Missing: true}
			continue
		}

		fieldsByName := make(map[string]Field, len(liveTable.Fields))
		for _, f := range liveTable.Fields {
			fieldsByName[f.Name] = f
		}

		entry := Table{
			ID:             liveTable.ID,
			Name:           liveTable.Name,
			PrimaryFieldID: liveTable.PrimaryFieldID,
			Fields:         make(map[string]Field, len(requiredFields)),
		}
		for _, fieldName := range requiredFields {
			f, ok := fieldsByName[fieldName]
			if !ok {
				entry.MissingFields = append(entry.MissingFields, fieldName)
				continue
			}
			entry.Fields[fieldName] = f
		}
		lock.Tables[tableName] = entry
	}

	return lock
}
