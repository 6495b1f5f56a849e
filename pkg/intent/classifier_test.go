package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"callcenter-assistant-be/pkg/convstate"
	"callcenter-assistant-be/pkg/toolgate"
)

func TestParseDecisionStripsCodeFence(t *testing.T) {
	response := "```json\n{\"title\":\"Work info request\",\"intent\":\"jira.lookup_by_assignee\",\"confidence\":0.93," +
		"\"slots\":{\"assignee\":\"Priya\",\"time_range\":{\"from\":\"<<NOW-14D>>\",\"to\":\"<<NOW>>\"}}," +
		"\"suggested_tool\":{\"name\":\"CREATE_JIRA\",\"confidence\":0.18,\"reason\":\"not needed yet\"}}\n```"

	d, err := parseDecision(response)
	require.NoError(t, err)
	assert.Equal(t, convstate.IntentJiraAssignee, d.Intent)
	assert.Equal(t, "Priya", d.Slots.Assignee)
	assert.Equal(t, "<<NOW-14D>>", d.Slots.TimeRange.From)
	require.NotNil(t, d.SuggestedTool)
	assert.Equal(t, toolgate.ToolCreateJira, d.SuggestedTool.Name)
	assert.Equal(t, toolgate.SourceClassifier, d.SuggestedTool.Source)
}

func TestParseDecisionSurroundingProse(t *testing.T) {
	response := "Sure, here is the classification:\n{\"title\":\"t\",\"intent\":\"docs.search\",\"confidence\":0.8}\nHope that helps."
	d, err := parseDecision(response)
	require.NoError(t, err)
	assert.Equal(t, convstate.IntentDocsSearch, d.Intent)
}

func TestParseDecisionUnknownIntentNormalized(t *testing.T) {
	d, err := parseDecision(`{"title":"t","intent":"weather.report","confidence":0.9}`)
	require.NoError(t, err)
	assert.Equal(t, convstate.IntentUnknown, d.Intent)
}

func TestParseDecisionMalformed(t *testing.T) {
	_, err := parseDecision("I could not classify that, sorry!")
	assert.Error(t, err)
}

func TestFallbackDecisionShape(t *testing.T) {
	d := fallbackDecision()
	assert.Equal(t, convstate.IntentUnknown, d.Intent)
	assert.Equal(t, 0.1, d.Confidence)
	assert.True(t, d.WasFallback)
}

func TestReconcileUploadForcesDocumentUpload(t *testing.T) {
	raw := Decision{Intent: convstate.IntentDocsSearch, Confidence: 0.95}
	prior := convstate.State{ActiveIntent: convstate.IntentCallSearch, Stickiness: 0.9}

	got := Reconcile(raw, prior, "here are the files", 2)
	assert.Equal(t, convstate.IntentDocumentUpload, got.Intent)
}

func TestReconcileStickinessKeepsPriorIntent(t *testing.T) {
	// High-stickiness docs conversation plus a policy-domain noun keeps
	// docs.search no matter what the model returned.
	raw := Decision{Intent: convstate.IntentCallSearch, Confidence: 0.99, Title: "something else"}
	prior := convstate.State{
		ActiveIntent: convstate.IntentDocsSearch,
		Topic:        "Data retention policy",
		Stickiness:   0.8,
	}

	got := Reconcile(raw, prior, "and what about the retention section?", 0)
	assert.Equal(t, convstate.IntentDocsSearch, got.Intent)
	assert.Equal(t, "Data retention policy", got.Title)
}

func TestReconcileWeakSwitchInherits(t *testing.T) {
	raw := Decision{Intent: convstate.IntentCallSearch, Confidence: 0.6}
	prior := convstate.State{ActiveIntent: convstate.IntentJiraAssignee, Stickiness: 0.4}

	got := Reconcile(raw, prior, "and what about last week?", 0)
	assert.Equal(t, convstate.IntentJiraAssignee, got.Intent)
}

func TestReconcileStrongSwitchAccepted(t *testing.T) {
	raw := Decision{Intent: convstate.IntentCallSearch, Confidence: 0.91}
	prior := convstate.State{ActiveIntent: convstate.IntentJiraAssignee, Stickiness: 0.4}

	got := Reconcile(raw, prior, "show me complaints from last month", 0)
	assert.Equal(t, convstate.IntentCallSearch, got.Intent)
}

func TestReconcileNoPriorStatePassesThrough(t *testing.T) {
	raw := Decision{Intent: convstate.IntentJiraAssignee, Confidence: 0.5}
	got := Reconcile(raw, convstate.Initial(), "what is priya working on", 0)
	assert.Equal(t, convstate.IntentJiraAssignee, got.Intent)
	assert.Equal(t, 0.5, got.Confidence)
}

func TestReconcileSameIntentUntouched(t *testing.T) {
	raw := Decision{Intent: convstate.IntentDocsSearch, Confidence: 0.4, Title: "new title"}
	prior := convstate.State{ActiveIntent: convstate.IntentDocsSearch, Stickiness: 0.9, Topic: "old"}

	got := Reconcile(raw, prior, "more about storage", 0)
	assert.Equal(t, convstate.IntentDocsSearch, got.Intent)
	assert.Equal(t, "new title", got.Title)
}
