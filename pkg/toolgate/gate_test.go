package toolgate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func audioAttachment() Attachment {
	return Attachment{ID: "a1", Name: "call.mp3", MimeType: "audio/mpeg"}
}

func TestDecideThresholdBoundary(t *testing.T) {
	below := &Suggestion{Name: ToolSummarizeConversation, Confidence: 0.54, Source: SourceClassifier}
	assert.Nil(t, Decide(below, nil, "", nil))

	above := &Suggestion{Name: ToolSummarizeConversation, Confidence: 0.56, Source: SourceClassifier}
	got := Decide(above, nil, "", nil)
	require.NotNil(t, got)
	assert.Equal(t, ToolSummarizeConversation, got.Name)
}

func TestDecideExplicitBypassesThreshold(t *testing.T) {
	got := Decide(nil, nil, "summarize_conversation", nil)
	require.NotNil(t, got)
	assert.Equal(t, ToolSummarizeConversation, got.Name)
	assert.Equal(t, 1.0, got.Confidence)
	assert.Equal(t, SourceExplicit, got.Source)
}

func TestDecideExplicitStillInputChecked(t *testing.T) {
	// Explicit transcription with no audio attachment must not run.
	assert.Nil(t, Decide(nil, nil, "TRANSCRIBE_AUDIO", nil))

	got := Decide(nil, nil, "TRANSCRIBE_AUDIO", []Attachment{audioAttachment()})
	require.NotNil(t, got)
	assert.Equal(t, ToolTranscribeAudio, got.Name)
}

func TestDecideExplicitUnknownTool(t *testing.T) {
	assert.Nil(t, Decide(nil, nil, "DELETE_EVERYTHING", nil))
}

func TestDecideClassifierPreferredOverHeuristic(t *testing.T) {
	classifier := &Suggestion{Name: ToolPolicyAudit, Confidence: 0.8, Source: SourceClassifier}
	heuristic := &Suggestion{Name: ToolSummarizeConversation, Confidence: 0.9, Source: SourceHeuristic}

	got := Decide(classifier, heuristic, "", nil)
	require.NotNil(t, got)
	assert.Equal(t, ToolPolicyAudit, got.Name)
}

func TestDecideLowClassifierDoesNotFallBackToHeuristic(t *testing.T) {
	classifier := &Suggestion{Name: ToolPolicyAudit, Confidence: 0.3, Source: SourceClassifier}
	heuristic := &Suggestion{Name: ToolSummarizeConversation, Confidence: 0.9, Source: SourceHeuristic}

	assert.Nil(t, Decide(classifier, heuristic, "", nil))
}

func TestDecideHeuristicWhenNoClassifier(t *testing.T) {
	heuristic := &Suggestion{Name: ToolCreateJira, Confidence: 0.65, Source: SourceHeuristic}
	got := Decide(nil, heuristic, "", nil)
	require.NotNil(t, got)
	assert.Equal(t, ToolCreateJira, got.Name)
}

func TestDecideTranscribeRequiresAudio(t *testing.T) {
	s := &Suggestion{Name: ToolTranscribeAudio, Confidence: 0.9, Source: SourceClassifier}
	assert.Nil(t, Decide(s, nil, "", []Attachment{{ID: "p1", Name: "doc.pdf", MimeType: "application/pdf"}}))

	got := Decide(s, nil, "", []Attachment{audioAttachment()})
	require.NotNil(t, got)
}

func TestInferTranscribeNeedsBothAudioAndVocabulary(t *testing.T) {
	assert.Nil(t, Infer("please transcribe this", nil))
	assert.Nil(t, Infer("anything about this file?", []Attachment{audioAttachment()}))

	got := Infer("please transcribe this call", []Attachment{audioAttachment()})
	require.NotNil(t, got)
	assert.Equal(t, ToolTranscribeAudio, got.Name)
	assert.Equal(t, SourceHeuristic, got.Source)
}

func TestInferVocabulary(t *testing.T) {
	cases := []struct {
		utterance string
		want      Tool
	}{
		{"can you recap what we discussed", ToolSummarizeConversation},
		{"is this call compliant with our rules", ToolPolicyAudit},
		{"where can i find the refund policy", ToolBrowsePolicies},
		{"please create a ticket for this bug", ToolCreateJira},
		{"escalate this to engineering", ToolCreateJira},
	}
	for _, tc := range cases {
		got := Infer(tc.utterance, nil)
		require.NotNil(t, got, tc.utterance)
		assert.Equal(t, tc.want, got.Name, tc.utterance)
	}

	assert.Nil(t, Infer("what is the weather", nil))
}
