package calls

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"callcenter-assistant-be/pkg/fusion"
	"callcenter-assistant-be/pkg/retriever"
	"callcenter-assistant-be/pkg/searchindex"
)

func testRetriever() *Retriever {
	r := NewRetriever(nil, nil, zap.NewNop())
	r.now = func() time.Time {
		return time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	}
	return r
}

func TestBuildFiltersResolvesRelativeWindow(t *testing.T) {
	r := testRetriever()

	filters := r.buildFilters(Filters{
		Tags:      []string{"complaints"},
		TimeRange: retriever.TimeRange{From: "<<NOW-7D>>", To: "<<NOW>>"},
	}, "org-1")

	require.Len(t, filters, 3)
	assert.Equal(t, searchindex.M{"organizationId": "org-1"}, filters[0]["term"])
	assert.Equal(t, searchindex.M{"classification.keyword": []string{"complaints"}}, filters[1]["terms"])
	assert.Equal(t, searchindex.M{
		"gte": "2026-03-08T12:00:00Z",
		"lte": "2026-03-15T12:00:00Z",
	}, filters[2]["range"].(searchindex.M)["timestamp"])
}

func TestBuildFiltersEmpty(t *testing.T) {
	r := testRetriever()
	assert.Empty(t, r.buildFilters(Filters{}, ""))
}

func TestBuildFiltersOpenEndedWindow(t *testing.T) {
	r := testRetriever()

	filters := r.buildFilters(Filters{
		TimeRange: retriever.TimeRange{From: "<<NOW-1M>>"},
	}, "")

	require.Len(t, filters, 1)
	bounds := filters[0]["range"].(searchindex.M)["timestamp"].(searchindex.M)
	assert.Equal(t, "2026-02-15T12:00:00Z", bounds["gte"])
	_, hasLte := bounds["lte"]
	assert.False(t, hasLte)
}

func TestFormatResultsEmpty(t *testing.T) {
	answer := formatResults("refund complaints", nil)
	assert.Contains(t, answer, "No calls found")
	assert.Contains(t, answer, "refund complaints")
}

func TestFormatResults(t *testing.T) {
	hits := []fusion.Hit[CallDoc]{
		{ID: "c1", Payload: CallDoc{Intent: "complaint", Severity: "high", Summary: "Angry about billing", CustomerID: "cust-9"}},
		{ID: "c2", Payload: CallDoc{Transcript: "short transcript"}},
	}

	answer := formatResults("billing", hits)
	assert.Contains(t, answer, "Found 2 call(s)")
	assert.Contains(t, answer, "**COMPLAINT** (high severity)")
	assert.Contains(t, answer, "Customer ID: cust-9")
	assert.Contains(t, answer, "**UNKNOWN** (N/A severity)")
	assert.Contains(t, answer, "short transcript")
}

func TestCallSnippetFallbacks(t *testing.T) {
	assert.Equal(t, "sum", callSnippet(CallDoc{Summary: "sum", Transcript: "tr"}))
	assert.Equal(t, "tr", callSnippet(CallDoc{Transcript: "tr"}))
	assert.Equal(t, "No summary available", callSnippet(CallDoc{}))

	long := make([]byte, 300)
	for i := range long {
		long[i] = 'x'
	}
	assert.Len(t, callSnippet(CallDoc{Transcript: string(long)}), 200)
}
