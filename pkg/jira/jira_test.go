package jira

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDescriptionTextPlainString(t *testing.T) {
	raw, _ := json.Marshal("just a plain description")
	assert.Equal(t, "just a plain description", DescriptionText(raw))
}

func TestDescriptionTextADF(t *testing.T) {
	adf := `{"type":"doc","version":1,"content":[
		{"type":"paragraph","content":[{"type":"text","text":"first part"},{"type":"text","text":"second part"}]},
		{"type":"paragraph","content":[{"type":"hardBreak"},{"type":"text","text":"third"}]}
	]}`
	assert.Equal(t, "first part second part third", DescriptionText(json.RawMessage(adf)))
}

func TestDescriptionTextEmpty(t *testing.T) {
	assert.Equal(t, "", DescriptionText(nil))
	assert.Equal(t, "", DescriptionText(json.RawMessage("42")))
}

func TestCreateIssueRequestShape(t *testing.T) {
	var captured map[string]any
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1001","key":"SAG-42"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "bot@example.com", "token123", time.Second)
	created, err := client.CreateIssue(context.Background(), CreateIssueInput{
		ProjectKey:  "SAG",
		Title:       "Billing page crash",
		Description: "Customer reported a crash on checkout.",
		PriorityID:  "2",
	})
	require.NoError(t, err)
	assert.Equal(t, "SAG-42", created.Key)

	expectedAuth := "Basic " + base64.StdEncoding.EncodeToString([]byte("bot@example.com:token123"))
	assert.Equal(t, expectedAuth, auth)

	fields := captured["fields"].(map[string]any)
	assert.Equal(t, "Billing page crash", fields["summary"])
	assert.Equal(t, map[string]any{"key": "SAG"}, fields["project"])
	assert.Equal(t, map[string]any{"name": "Task"}, fields["issuetype"])
	assert.Equal(t, map[string]any{"id": "2"}, fields["priority"])

	desc := fields["description"].(map[string]any)
	assert.Equal(t, "doc", desc["type"])
}

func TestClientErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no permission", http.StatusForbidden)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "u", "t", time.Second)
	_, err := client.Priorities(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestPriorityCacheMapSeverity(t *testing.T) {
	cache := &PriorityCache{priorities: []Priority{
		{ID: "1", Name: "Highest"},
		{ID: "2", Name: "High"},
		{ID: "3", Name: "Medium"},
		{ID: "4", Name: "Low"},
		{ID: "5", Name: "Lowest"},
	}}

	assert.Equal(t, "2", cache.MapSeverity("high"))
	assert.Equal(t, "3", cache.MapSeverity("Medium"))
	assert.Equal(t, "4", cache.MapSeverity("low"))
	assert.Equal(t, "", cache.MapSeverity("urgent"))
}

func TestPriorityCacheFallbackPositions(t *testing.T) {
	cache := &PriorityCache{priorities: []Priority{
		{ID: "p1", Name: "Blocker"},
		{ID: "p2", Name: "Normal"},
		{ID: "p3", Name: "Trivial"},
	}}

	// No exact name match, so positional fallback applies.
	assert.Equal(t, "p1", cache.MapSeverity("high"))
	assert.Equal(t, "p2", cache.MapSeverity("medium"))
	assert.Equal(t, "p3", cache.MapSeverity("low"))
}

func TestPriorityCacheEmpty(t *testing.T) {
	cache := &PriorityCache{}
	assert.Equal(t, "", cache.MapSeverity("high"))
}

func TestPriorityCacheLoad(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/api/3/priority", r.URL.Path)
		_, _ = w.Write([]byte(`[{"id":"1","name":"High"},{"id":"2","name":"Low"}]`))
	}))
	defer srv.Close()

	cache := &PriorityCache{}
	client := NewClient(srv.URL, "u", "t", time.Second)
	require.NoError(t, cache.Load(context.Background(), client, zap.NewNop()))
	assert.Equal(t, "1", cache.MapSeverity("high"))
}
