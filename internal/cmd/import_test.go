package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catherinevee/importmgr/pkg/models"
)

func TestParseFilters(t *testing.T) {
	filters, err := parseFilters([]string{"Environment=prod", "Team=platform"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"Environment": "prod", "Team": "platform"}, filters)

	filters, err = parseFilters(nil)
	require.NoError(t, err)
	assert.Nil(t, filters)

	_, err = parseFilters([]string{"missing-separator"})
	assert.Error(t, err)

	_, err = parseFilters([]string{"=value"})
	assert.Error(t, err)
}

func TestSortedGapsSeverityOrder(t *testing.T) {
	gaps := []models.SecurityGap{
		{ID: "a", Severity: models.SeverityLow},
		{ID: "b", Severity: models.SeverityCritical},
		{ID: "c", Severity: models.SeverityMedium},
		{ID: "d", Severity: models.SeverityHigh},
		{ID: "e", Severity: models.SeverityCritical},
	}

	sorted := sortedGaps(gaps)

	order := make([]string, len(sorted))
	for i, g := range sorted {
		order[i] = g.ID
	}
	// stable within a severity: b keeps its place before e
	assert.Equal(t, []string{"b", "e", "d", "c", "a"}, order)
	// input untouched
	assert.Equal(t, "a", gaps[0].ID)
}
