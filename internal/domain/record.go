package domain

// Record is one normalized child row as returned by the inventory service.
// ID comes from the level's declared key field (name or tag_id), which makes
// child NodeIDs deterministic across re-fetches of the same parent.
type Record struct {
	ID     string            `json:"id"`
	Label  string            `json:"label"`
	Fields map[string]string `json:"fields,omitempty"`
	Counts Counts            `json:"counts"`
}

// Field returns the raw value for a schema field key, or "".
func (r Record) Field(key string) string {
	return r.Fields[key]
}
