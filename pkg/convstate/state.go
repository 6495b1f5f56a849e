package convstate

import "time"

// Intent identifies which backend owns the conversation's current focus.
type Intent string

const (
	IntentDocsSearch     Intent = "docs.search"
	IntentJiraAssignee   Intent = "jira.lookup_by_assignee"
	IntentCallSearch     Intent = "call.search"
	IntentDocumentUpload Intent = "document.upload"
	IntentUnknown        Intent = "unknown"
)

// State is the per-conversation routing state, owned exclusively by the
// orchestrator and read/written once per turn.
type State struct {
	ActiveIntent            Intent     `json:"active_intent"`
	Topic                   string     `json:"topic"`
	LastSwitchedAt          time.Time  `json:"last_switched_at"`
	Stickiness              float64    `json:"stickiness"` // 0..1, confidence the prior intent still applies
	SuggestedTool           string     `json:"suggested_tool,omitempty"`
	SuggestedToolConfidence float64    `json:"suggested_tool_confidence,omitempty"`
	LastToolRun             string     `json:"last_tool_run,omitempty"`
	LastToolAt              *time.Time `json:"last_tool_at,omitempty"`
}

// Initial is the state of a brand-new conversation.
func Initial() State {
	return State{
		ActiveIntent: IntentUnknown,
		Stickiness:   0,
	}
}

// Valid reports whether the intent is one of the five routing states.
func (i Intent) Valid() bool {
	switch i {
	case IntentDocsSearch, IntentJiraAssignee, IntentCallSearch, IntentDocumentUpload, IntentUnknown:
		return true
	}
	return false
}
