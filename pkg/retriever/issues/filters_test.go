package issues

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"callcenter-assistant-be/pkg/searchindex"
)

func findFilter(filters []searchindex.M, key string) (searchindex.M, bool) {
	for _, f := range filters {
		if _, ok := f[key]; ok {
			return f, true
		}
	}
	return nil, false
}

func TestBuildFiltersWorking(t *testing.T) {
	filters := BuildFilters(Plan{Intent: PlanWorking}, "acc-1", 10)

	term, ok := findFilter(filters, "term")
	require.True(t, ok)
	assert.Equal(t, searchindex.M{"assignee_accountId": "acc-1"}, term["term"])

	terms, ok := findFilter(filters, "terms")
	require.True(t, ok)
	assert.Equal(t, searchindex.M{"status": []string{"To Do", "In Progress", "Selected for Development"}}, terms["terms"])
}

func TestBuildFiltersCompleted(t *testing.T) {
	filters := BuildFilters(Plan{Intent: PlanCompleted}, "", 10)

	b, ok := findFilter(filters, "bool")
	require.True(t, ok)
	inner := b["bool"].(searchindex.M)
	should := inner["should"].([]searchindex.M)
	require.Len(t, should, 2)
	assert.Equal(t, searchindex.M{"status": []string{"Done", "Closed", "Resolved", "Released"}}, should[0]["terms"])
	assert.Equal(t, searchindex.M{"field": "resolutiondate"}, should[1]["exists"])
	assert.Equal(t, 1, inner["minimum_should_match"])
}

func TestBuildFiltersMissedDerivesOverdueOrStale(t *testing.T) {
	filters := BuildFilters(Plan{Intent: PlanMissed}, "", 10)

	terms, ok := findFilter(filters, "terms")
	require.True(t, ok)
	assert.Equal(t, []string{"To Do", "In Progress", "Selected for Development"},
		terms["terms"].(searchindex.M)["status"])

	b, ok := findFilter(filters, "bool")
	require.True(t, ok)
	should := b["bool"].(searchindex.M)["should"].([]searchindex.M)
	require.Len(t, should, 2)
	assert.Equal(t, searchindex.M{"duedate": searchindex.M{"lt": "now/d"}}, should[0]["range"])
	assert.Equal(t, searchindex.M{"updated": searchindex.M{"lte": "now-10d/d"}}, should[1]["range"])
}

func TestBuildFiltersMissedExplicitWindowReplacesDerived(t *testing.T) {
	plan := Plan{
		Intent:    PlanMissed,
		DateField: "duedate",
		StartISO:  "2026-01-01T00:00:00Z",
		EndISO:    "2026-02-01T00:00:00Z",
	}
	filters := BuildFilters(plan, "", 10)

	r, ok := findFilter(filters, "range")
	require.True(t, ok)
	assert.Equal(t, searchindex.M{
		"gte": "2026-01-01T00:00:00Z",
		"lte": "2026-02-01T00:00:00Z",
	}, r["range"].(searchindex.M)["duedate"])

	// The derived overdue/stale alternatives must be absent.
	_, hasBool := findFilter(filters, "bool")
	assert.False(t, hasBool)
}

func TestBuildFiltersMissedCustomStaleDays(t *testing.T) {
	filters := BuildFilters(Plan{Intent: PlanMissed}, "", 21)

	b, ok := findFilter(filters, "bool")
	require.True(t, ok)
	should := b["bool"].(searchindex.M)["should"].([]searchindex.M)
	assert.Equal(t, searchindex.M{"updated": searchindex.M{"lte": "now-21d/d"}}, should[1]["range"])
}

func TestBuildFiltersGenericOnlyDateWindow(t *testing.T) {
	assert.Empty(t, BuildFilters(Plan{Intent: PlanGeneric}, "", 10))

	plan := Plan{Intent: PlanGeneric, DateField: "updated", StartISO: "2026-01-01T00:00:00Z"}
	filters := BuildFilters(plan, "", 10)
	require.Len(t, filters, 1)
	assert.Equal(t, searchindex.M{"gte": "2026-01-01T00:00:00Z"},
		filters[0]["range"].(searchindex.M)["updated"])
}

func TestBuildFiltersProjectScope(t *testing.T) {
	filters := BuildFilters(Plan{Intent: PlanGeneric, Project: "CRM"}, "", 10)
	require.Len(t, filters, 1)
	assert.Equal(t, searchindex.M{"project": "CRM"}, filters[0]["term"])
}

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "matthew reed", NormalizeName(" Matthew.Reed "))
	assert.Equal(t, "priya", NormalizeName("Priya!"))
	assert.Equal(t, "jo anne omalley", NormalizeName("Jo-Anne O'Malley"))
	assert.Equal(t, "", NormalizeName(""))
}
