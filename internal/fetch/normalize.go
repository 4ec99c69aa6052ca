package fetch

import (
	"encoding/json"
	"fmt"
	"strconv"

	"stockyard/browser/internal/domain"
)

// decodeEnvelope normalizes one service response into records plus pagination.
// Every level answers the same envelope shape, keyed by the level's plural:
//
//	{"<plural>": [...], "total_<plural>": N, "page": p, "per_page": m}
//
// An "error" field anywhere in the envelope wins over the payload.
func decodeEnvelope(ls domain.LevelSchema, body []byte) ([]domain.Record, domain.PageInfo, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, domain.PageInfo{}, fmt.Errorf("response is not a JSON object: %w", err)
	}

	if raw, ok := envelope["error"]; ok {
		var message string
		if err := json.Unmarshal(raw, &message); err != nil || message == "" {
			message = string(raw)
		}
		return nil, domain.PageInfo{}, serviceError(message)
	}

	raw, ok := envelope[ls.Plural]
	if !ok {
		return nil, domain.PageInfo{}, fmt.Errorf("envelope is missing %q", ls.Plural)
	}

	var rows []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, domain.PageInfo{}, fmt.Errorf("%q is not an array of rows: %w", ls.Plural, err)
	}

	records := make([]domain.Record, 0, len(rows))
	for i, row := range rows {
		record, err := decodeRow(ls, row)
		if err != nil {
			return nil, domain.PageInfo{}, fmt.Errorf("row %d: %w", i, err)
		}
		records = append(records, record)
	}

	page := domain.PageInfo{
		Page:       intField(envelope, "page", 1),
		PerPage:    intField(envelope, "per_page", len(records)),
		TotalCount: intField(envelope, ls.TotalKey(), len(records)),
	}

	return records, page, nil
}

func decodeRow(ls domain.LevelSchema, row map[string]json.RawMessage) (domain.Record, error) {
	fields := make(map[string]string, len(row))
	for key, raw := range row {
		if value, ok := scalarString(raw); ok {
			fields[key] = value
		}
	}

	id := fields[ls.KeyField]
	if id == "" {
		return domain.Record{}, fmt.Errorf("missing key field %q", ls.KeyField)
	}

	label := id
	if nameField, ok := ls.RoleField(domain.RoleName); ok {
		if name := fields[nameField.Key]; name != "" {
			label = name
		}
	}

	record := domain.Record{
		ID:     id,
		Label:  label,
		Fields: fields,
	}

	keys := ls.CountKeys
	record.Counts = domain.Counts{
		Total:      atoi(fields[keys.Total]),
		OnContract: atoi(fields[keys.OnContract]),
		InService:  atoi(fields[keys.InService]),
		Available:  atoi(fields[keys.Available]),
	}

	return record, nil
}

// scalarString flattens a JSON scalar to its display string. Nested objects
// and arrays are dropped; the table renders scalars only.
func scalarString(raw json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), true
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return strconv.FormatBool(b), true
	}
	if string(raw) == "null" {
		return "", true
	}
	return "", false
}

func intField(envelope map[string]json.RawMessage, key string, fallback int) int {
	raw, ok := envelope[key]
	if !ok {
		return fallback
	}
	var n int
	if err := json.Unmarshal(raw, &n); err != nil {
		return fallback
	}
	return n
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// serviceError tags an envelope-reported failure so the client can classify
// it without re-parsing the body.
type serviceErr struct {
	message string
}

func serviceError(message string) error {
	return &serviceErr{message: message}
}

func (e *serviceErr) Error() string {
	return e.message
}
