package schemalock

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gets-logistics/gets-engine/pkg/apperrors"
)

const maxSuggestions = 3

// Guard validates payload field names against a loaded lock snapshot and
// resolves table and field ids for rename-safe access. Read-only after
// construction.
type Guard struct {
	lock         *Lock
	tableIDs     map[string]string
	tableFields  map[string]map[string]struct{}
	sortedFields map[string][]string
}

// NewGuard builds the lookup tables for a loaded lock.
func NewGuard(lock *Lock) *Guard {
	g := &Guard{
		lock:         lock,
		tableIDs:     make(map[string]string),
		tableFields:  make(map[string]map[string]struct{}),
		sortedFields: make(map[string][]string),
	}
	for tableName, table := range lock.Tables {
		if table.Missing {
			continue
		}
		g.tableIDs[tableName] = table.ID

		set := make(map[string]struct{}, len(table.Fields))
		names := make([]string, 0, len(table.Fields))
		for fieldName := range table.Fields {
			set[fieldName] = struct{}{}
			names = append(names, fieldName)
		}
		sort.Strings(names)
		g.tableFields[tableName] = set
		g.sortedFields[tableName] = names
	}
	return g
}

// Load reads a lock snapshot from path and wraps it in a Guard.
func Load(path string) (*Guard, error) {
	lock, err := ReadLock(path)
	if err != nil {
		return nil, err
	}
	return NewGuard(lock), nil
}

// LoadFirst tries each candidate path in order and loads the first one that
// exists. Failing to find any is fatal to callers that depend on
// validation; they must either refuse to start or run explicitly degraded.
func LoadFirst(paths ...string) (*Guard, error) {
	tried := make([]string, 0, len(paths))
	for _, path := range paths {
		if path == "" {
			continue
		}
		tried = append(tried, path)
		guard, err := Load(path)
		if err == nil {
			return guard, nil
		}
	}
	return nil, fmt.Errorf("%w: no schema lock found (tried: %s)",
		apperrors.ErrSchemaLockMissing, strings.Join(tried, ", "))
}

// Version returns the snapshot's generatedAt stamp.
func (g *Guard) Version() string {
	return g.lock.GeneratedAt
}

// BaseID returns the locked base id.
func (g *Guard) BaseID() string {
	return g.lock.Base.ID
}

// Tables returns the locked table names, sorted, excluding missing ones.
func (g *Guard) Tables() []string {
	names := make([]string, 0, len(g.tableIDs))
	for name := range g.tableIDs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TableID resolves a table name to its immutable id.
func (g *Guard) TableID(name string) (string, bool) {
	id, ok := g.tableIDs[name]
	return id, ok
}

// ValidFieldNames returns the sorted valid field names for a table.
func (g *Guard) ValidFieldNames(table string) []string {
	return append([]string(nil), g.sortedFields[table]...)
}

// MissingFields returns fields that were expected but absent from the live
// base at lock-generation time.
func (g *Guard) MissingFields(table string) []string {
	return append([]string(nil), g.lock.Tables[table].MissingFields...)
}

// FieldInfo returns the locked metadata for one field, or nil.
func (g *Guard) FieldInfo(table, field string) *Field {
	entry, ok := g.lock.Tables[table]
	if !ok || entry.Missing {
		return nil
	}
	f, ok := entry.Fields[field]
	if !ok {
		return nil
	}
	return &f
}

// FieldID resolves a field name to its immutable id, or "" when unknown.
// Feed the result to the rename-safe accessor together with the name.
func (g *Guard) FieldID(table, field string) string {
	if f := g.FieldInfo(table, field); f != nil {
		return f.ID
	}
	return ""
}

// Validation is the outcome of checking a record's field names against the
// lock.
type Validation struct {
	Valid         bool                `json:"valid"`
	TableID       string              `json:"tableId,omitempty"`
	InvalidFields []string            `json:"invalidFields,omitempty"`
	ValidFields   []string            `json:"validFields,omitempty"`
	Suggestions   map[string][]string `json:"suggestions,omitempty"`
}

// Validate checks every field name in record against the table's locked
// field set. Invalid names are never dropped or auto-corrected; each gets
// up to three suggested valid names.
func (g *Guard) Validate(table string, record map[string]any) Validation {
	valid := g.tableFields[table]

	result := Validation{Valid: true}
	result.TableID, _ = g.tableIDs[table]

	for name := range record {
		if _, ok := valid[name]; ok {
			result.ValidFields = append(result.ValidFields, name)
		} else {
			result.InvalidFields = append(result.InvalidFields, name)
		}
	}
	sort.Strings(result.ValidFields)
	sort.Strings(result.InvalidFields)

	if len(result.InvalidFields) > 0 {
		result.Valid = false
		result.Suggestions = make(map[string][]string, len(result.InvalidFields))
		for _, name := range result.InvalidFields {
			if s := g.suggest(table, name); len(s) > 0 {
				result.Suggestions[name] = s
			}
		}
	}
	return result
}

// suggest ranks candidate valid names for one invalid field: exact
// case-insensitive match first, then substring containment in either
// direction, then prefix match in either direction. Ties keep the sorted
// encounter order of the valid-field set.
func (g *Guard) suggest(table, invalid string) []string {
	invalidLower := strings.ToLower(invalid)

	var exact, contains, prefix []string
	for _, field := range g.sortedFields[table] {
		fieldLower := strings.ToLower(field)
		switch {
		case invalidLower == fieldLower:
			exact = append(exact, field)
		case strings.Contains(fieldLower, invalidLower) || strings.Contains(invalidLower, fieldLower):
			contains = append(contains, field)
		case strings.HasPrefix(fieldLower, invalidLower) || strings.HasPrefix(invalidLower, fieldLower):
			prefix = append(prefix, field)
		}
	}

	matches := append(exact, append(contains, prefix...)...)
	if len(matches) > maxSuggestions {
		matches = matches[:maxSuggestions]
	}
	return matches
}

// ValidationErr converts a failed Validation into the shared error type.
// Returns nil when the validation passed.
func ValidationErr(table string, v Validation) error {
	if v.Valid {
		return nil
	}
	return &apperrors.ValidationError{
		Table:         table,
		InvalidFields: v.InvalidFields,
		Suggestions:   v.Suggestions,
	}
}
