package fetch

import (
	"testing"

	"github.com/stretchr/testify/require"

	"stockyard/browser/internal/domain"
)

func categorySchema() domain.LevelSchema {
	return domain.DefaultSchema().ForLevel(domain.LevelCategory)
}

func TestDecodeEnvelopeMissingListing(t *testing.T) {
	_, _, err := decodeEnvelope(categorySchema(), []byte(`{"page": 1}`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "categories")
}

func TestDecodeEnvelopeMissingKeyField(t *testing.T) {
	_, _, err := decodeEnvelope(categorySchema(), []byte(`{"categories": [{"total_items": 3}]}`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "name")
}

func TestDecodeEnvelopeFallbackPageInfo(t *testing.T) {
	records, page, err := decodeEnvelope(categorySchema(), []byte(`{"categories": [{"name": "Events"}, {"name": "Kitchens"}]}`))
	require.NoError(t, err)
	require.Len(t, records, 2)

	// Without pagination fields the listing counts as one full page.
	require.Equal(t, 1, page.Page)
	require.Equal(t, 2, page.PerPage)
	require.Equal(t, 2, page.TotalCount)
	require.Equal(t, 1, page.TotalPages())
}

func TestScalarFlattening(t *testing.T) {
	records, _, err := decodeEnvelope(categorySchema(), []byte(`{
		"categories": [
			{"name": "Events", "total_items": 12, "flagged": true, "notes": null, "meta": {"nested": 1}}
		]
	}`))
	require.NoError(t, err)
	require.Len(t, records, 1)

	record := records[0]
	require.Equal(t, "12", record.Field("total_items"))
	require.Equal(t, "true", record.Field("flagged"))
	require.Equal(t, "", record.Field("notes"))
	// Nested values are not table material and are dropped.
	_, ok := record.Fields["meta"]
	require.False(t, ok)
	require.Equal(t, 12, record.Counts.Total)
}
