package toolgate

import "strings"

// Tool is one of the automatable side-effecting actions the assistant may
// trigger instead of plain retrieval.
type Tool string

const (
	ToolTranscribeAudio       Tool = "TRANSCRIBE_AUDIO"
	ToolSummarizeConversation Tool = "SUMMARIZE_CONVERSATION"
	ToolPolicyAudit           Tool = "POLICY_AUDIT"
	ToolBrowsePolicies        Tool = "BROWSE_POLICIES"
	ToolCreateJira            Tool = "CREATE_JIRA"
)

// Source records where a suggestion originated.
type Source string

const (
	SourceClassifier Source = "classifier"
	SourceHeuristic  Source = "heuristic"
	SourceExplicit   Source = "explicit-user-selection"
)

// MinConfidence gates non-explicit suggestions.
const MinConfidence = 0.55

// Suggestion is a candidate tool execution for the current turn.
type Suggestion struct {
	Name       Tool    `json:"name"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"` // diagnostic only, never used in gating
	Source     Source  `json:"source"`
}

// Attachment is the slice of file metadata the gate needs for input checks.
type Attachment struct {
	ID       string
	Name     string
	MimeType string
}

// Valid reports whether the tool name is one of the five known actions.
func (t Tool) Valid() bool {
	switch t {
	case ToolTranscribeAudio, ToolSummarizeConversation, ToolPolicyAudit, ToolBrowsePolicies, ToolCreateJira:
		return true
	}
	return false
}

// Decide picks at most one tool for the turn.
//
// Precedence: an explicit user selection always wins with confidence forced to
// 1.0 and the threshold bypassed. Otherwise the classifier's suggestion is
// preferred; only when the classifier produced none does the keyword/attachment
// heuristic apply. Non-explicit suggestions run only at confidence >=
// MinConfidence. A tool whose required inputs are absent is dropped rather
// than executed with missing data.
func Decide(classifier, heuristic *Suggestion, explicit string, attachments []Attachment) *Suggestion {
	if explicit != "" {
		tool := Tool(strings.ToUpper(strings.TrimSpace(explicit)))
		if !tool.Valid() {
			return nil
		}
		s := &Suggestion{
			Name:       tool,
			Confidence: 1.0,
			Reason:     "explicitly selected by the user",
			Source:     SourceExplicit,
		}
		if !hasRequiredInputs(s.Name, attachments) {
			return nil
		}
		return s
	}

	candidate := classifier
	if candidate == nil {
		candidate = heuristic
	}
	if candidate == nil || !candidate.Name.Valid() {
		return nil
	}
	if candidate.Confidence < MinConfidence {
		return nil
	}
	if !hasRequiredInputs(candidate.Name, attachments) {
		return nil
	}
	return candidate
}

func hasRequiredInputs(tool Tool, attachments []Attachment) bool {
	if tool != ToolTranscribeAudio {
		return true
	}
	for _, a := range attachments {
		if IsAudio(a.MimeType) {
			return true
		}
	}
	return false
}

// IsAudio reports whether the mime type denotes an audio file.
func IsAudio(mimeType string) bool {
	return strings.HasPrefix(mimeType, "audio/")
}

// Infer derives a fallback suggestion from keywords and attachments when the
// classifier offered nothing.
func Infer(utterance string, attachments []Attachment) *Suggestion {
	text := strings.ToLower(utterance)
	contains := func(terms ...string) bool {
		for _, t := range terms {
			if strings.Contains(text, t) {
				return true
			}
		}
		return false
	}

	hasAudio := false
	for _, a := range attachments {
		if IsAudio(a.MimeType) {
			hasAudio = true
			break
		}
	}

	switch {
	case hasAudio && contains("transcribe", "transcript", "transcription"):
		return &Suggestion{
			Name:       ToolTranscribeAudio,
			Confidence: 0.7,
			Reason:     "audio attachment with transcription request",
			Source:     SourceHeuristic,
		}
	case contains("summarize", "summarise", "recap", "key points"):
		return &Suggestion{
			Name:       ToolSummarizeConversation,
			Confidence: 0.65,
			Reason:     "summary vocabulary in message",
			Source:     SourceHeuristic,
		}
	case contains("compliant", "compliance", "violates", "audit", "regulation"):
		return &Suggestion{
			Name:       ToolPolicyAudit,
			Confidence: 0.6,
			Reason:     "compliance vocabulary in message",
			Source:     SourceHeuristic,
		}
	case contains("where can i find", "browse policy", "browse policies", "which policy"):
		return &Suggestion{
			Name:       ToolBrowsePolicies,
			Confidence: 0.6,
			Reason:     "policy lookup phrasing",
			Source:     SourceHeuristic,
		}
	case contains("create ticket", "create a ticket", "raise a ticket", "escalate", "open a jira"):
		return &Suggestion{
			Name:       ToolCreateJira,
			Confidence: 0.65,
			Reason:     "ticket creation phrasing",
			Source:     SourceHeuristic,
		}
	}
	return nil
}
