package domain

import "fmt"

// FieldRole binds a schema field to one of the filter terms. FilterEngine
// consumes roles instead of column positions, so levels with different
// layouts filter uniformly.
type FieldRole int

const (
	RoleNone FieldRole = iota
	// RoleName binds the field matched by the common-name filter term.
	RoleName
	// RoleContract binds the field matched by the contract-number term.
	RoleContract
)

// Field declares one column of a level's table.
type Field struct {
	Key      string
	Title    string
	Sortable bool
	Role     FieldRole
}

// CountKeys names the response fields feeding a level's Counts rollup.
// Levels may use different key spellings (common names report
// total_items_inventory).
type CountKeys struct {
	Total      string
	OnContract string
	InService  string
	Available  string
}

// LevelSchema declares how one hierarchy tier appears on the wire and in a
// rendered table: route, response envelope key, row identifier field, column
// set, and count fields.
type LevelSchema struct {
	Level     Level
	Plural    string
	Route     string
	KeyField  string
	Fields    []Field
	CountKeys CountKeys
}

// Field looks up a column declaration by key.
func (ls LevelSchema) Field(key string) (Field, bool) {
	for _, f := range ls.Fields {
		if f.Key == key {
			return f, true
		}
	}
	return Field{}, false
}

// RoleField returns the column bound to a filter role, if the level has one.
func (ls LevelSchema) RoleField(role FieldRole) (Field, bool) {
	for _, f := range ls.Fields {
		if f.Role == role {
			return f, true
		}
	}
	return Field{}, false
}

// SortableColumns lists the keys eligible for the sort parameter, in declared
// column order.
func (ls LevelSchema) SortableColumns() []string {
	cols := make([]string, 0, len(ls.Fields))
	for _, f := range ls.Fields {
		if f.Sortable {
			cols = append(cols, f.Key)
		}
	}
	return cols
}

// TotalKey is the envelope field naming the level's total row count.
func (ls LevelSchema) TotalKey() string {
	return "total_" + ls.Plural
}

// Schema maps every tier to its declaration.
type Schema map[Level]LevelSchema

// ForLevel returns the declaration for a tier. Unknown tiers yield a zero
// schema, which matches nothing and sorts nothing.
func (s Schema) ForLevel(l Level) LevelSchema {
	return s[l]
}

// Validate checks that each declared level is internally consistent.
func (s Schema) Validate() error {
	for level, ls := range s {
		if ls.Plural == "" || ls.Route == "" {
			return fmt.Errorf("schema for %s: missing plural or route", level)
		}
		if _, ok := ls.Field(ls.KeyField); !ok {
			return fmt.Errorf("schema for %s: key field %q not declared", level, ls.KeyField)
		}
		seen := make(map[string]bool, len(ls.Fields))
		for _, f := range ls.Fields {
			if seen[f.Key] {
				return fmt.Errorf("schema for %s: duplicate field %q", level, f.Key)
			}
			seen[f.Key] = true
		}
	}
	return nil
}

// DefaultSchema declares the stock inventory service layout.
func DefaultSchema() Schema {
	return Schema{
		LevelCategory: {
			Level:    LevelCategory,
			Plural:   "categories",
			Route:    "/api/categories",
			KeyField: "name",
			Fields: []Field{
				{Key: "name", Title: "Category", Sortable: true, Role: RoleName},
				{Key: "total_items", Title: "Items", Sortable: true},
				{Key: "on_contracts", Title: "On Contract", Sortable: true},
				{Key: "in_service", Title: "In Service", Sortable: true},
				{Key: "available", Title: "Available", Sortable: true},
			},
			CountKeys: CountKeys{
				Total:      "total_items",
				OnContract: "on_contracts",
				InService:  "in_service",
				Available:  "available",
			},
		},
		LevelSubcategory: {
			Level:    LevelSubcategory,
			Plural:   "subcategories",
			Route:    "/api/subcategories",
			KeyField: "name",
			Fields: []Field{
				{Key: "name", Title: "Subcategory", Sortable: true, Role: RoleName},
				{Key: "total_items", Title: "Items", Sortable: true},
				{Key: "on_contracts", Title: "On Contract", Sortable: true},
				{Key: "in_service", Title: "In Service", Sortable: true},
				{Key: "available", Title: "Available", Sortable: true},
			},
			CountKeys: CountKeys{
				Total:      "total_items",
				OnContract: "on_contracts",
				InService:  "in_service",
				Available:  "available",
			},
		},
		LevelCommonName: {
			Level:    LevelCommonName,
			Plural:   "common_names",
			Route:    "/api/common_names",
			KeyField: "name",
			Fields: []Field{
				{Key: "name", Title: "Common Name", Sortable: true, Role: RoleName},
				{Key: "total_items_inventory", Title: "Items", Sortable: true},
				{Key: "on_contracts", Title: "On Contract", Sortable: true},
				{Key: "in_service", Title: "In Service", Sortable: true},
				{Key: "available", Title: "Available", Sortable: true},
			},
			CountKeys: CountKeys{
				Total:      "total_items_inventory",
				OnContract: "on_contracts",
				InService:  "in_service",
				Available:  "available",
			},
		},
		LevelItem: {
			Level:    LevelItem,
			Plural:   "items",
			Route:    "/api/items",
			KeyField: "tag_id",
			Fields: []Field{
				{Key: "tag_id", Title: "Tag", Sortable: true},
				{Key: "common_name", Title: "Common Name", Role: RoleName},
				{Key: "contract_number", Title: "Contract", Sortable: true, Role: RoleContract},
				{Key: "status", Title: "Status", Sortable: true},
				{Key: "bin_location", Title: "Bin", Sortable: true},
				{Key: "notes", Title: "Notes"},
			},
		},
	}
}
