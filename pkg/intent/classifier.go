package intent

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"callcenter-assistant-be/pkg/convstate"
	"callcenter-assistant-be/pkg/llm"
	"callcenter-assistant-be/pkg/toolgate"
)

// SwitchThreshold is the confidence a new intent needs before it may displace
// the conversation's active intent.
const SwitchThreshold = 0.75

// TimeRange carries the raw time bounds from the model, possibly in the
// relative <<NOW±N[DWMY]>> notation. Resolution to absolute timestamps happens
// in the retrievers.
type TimeRange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Filters are the faceting hints the model extracts from the utterance.
type Filters struct {
	Tags        []string `json:"tags"`
	Departments []string `json:"departments"`
	PolicyType  []string `json:"policy_type"`
}

// Slots are the structured arguments the classifier pulls out of the message.
type Slots struct {
	Assignee   string    `json:"assignee"`
	TimeRange  TimeRange `json:"time_range"`
	JiraFields []string  `json:"jira_fields"`
	Query      string    `json:"query"`
	Filters    Filters   `json:"filters"`
}

// Decision is the reconciled classification for one user turn.
type Decision struct {
	Title         string               `json:"title"`
	Intent        convstate.Intent     `json:"intent"`
	Confidence    float64              `json:"confidence"`
	Slots         Slots                `json:"slots"`
	SuggestedTool *toolgate.Suggestion `json:"suggested_tool,omitempty"`
	Notes         string               `json:"notes,omitempty"`
	WasFallback   bool                 `json:"was_fallback,omitempty"`
}

// rawDecision mirrors the model's JSON schema before reconciliation.
type rawDecision struct {
	Title         string  `json:"title"`
	Intent        string  `json:"intent"`
	Confidence    float64 `json:"confidence"`
	Slots         Slots   `json:"slots"`
	SuggestedTool *struct {
		Name       string  `json:"name"`
		Confidence float64 `json:"confidence"`
		Reason     string  `json:"reason"`
	} `json:"suggested_tool"`
	Notes string `json:"notes"`
}

// Classifier resolves a user utterance into a Decision using the completion
// provider, then reconciles the raw model output against prior conversation
// state.
type Classifier struct {
	provider llm.LLMProvider
	logger   *zap.Logger
}

func NewClassifier(provider llm.LLMProvider, logger *zap.Logger) *Classifier {
	return &Classifier{provider: provider, logger: logger}
}

// Classify runs the structured-output prompt and applies the stickiness rules.
// It never returns an error for a malformed model response; the caller always
// receives a well-formed decision.
func (c *Classifier) Classify(ctx context.Context, utterance string, prior convstate.State, history []llm.Message, uploadCount int) Decision {
	response, err := llm.Complete(ctx, c.provider, systemPrompt(), userPrompt(prior, utterance), history, llm.WithTemperature(0.0))
	if err != nil {
		c.logger.Warn("intent classification call failed, using fallback",
			zap.Error(err))
		return Reconcile(fallbackDecision(), prior, utterance, uploadCount)
	}

	raw, err := parseDecision(response)
	if err != nil {
		c.logger.Warn("intent response parsing failed, using fallback",
			zap.Error(err))
		return Reconcile(fallbackDecision(), prior, utterance, uploadCount)
	}

	decision := Reconcile(raw, prior, utterance, uploadCount)
	c.logger.Info("intent resolved",
		zap.String("intent", string(decision.Intent)),
		zap.Float64("confidence", decision.Confidence),
		zap.Bool("fallback", decision.WasFallback))
	return decision
}

// fallbackDecision is the fixed low-confidence decision used whenever the
// model output cannot be trusted.
func fallbackDecision() Decision {
	return Decision{
		Title:       "General question",
		Intent:      convstate.IntentUnknown,
		Confidence:  0.1,
		Notes:       "fallback: model output unusable",
		WasFallback: true,
	}
}

var codeFenceRe = regexp.MustCompile("(?s)^```(?:json)?\\s*|\\s*```$")

func parseDecision(response string) (Decision, error) {
	cleaned := codeFenceRe.ReplaceAllString(strings.TrimSpace(response), "")
	jsonContent := extractJSON(cleaned)

	var raw rawDecision
	if err := json.Unmarshal([]byte(jsonContent), &raw); err != nil {
		return Decision{}, err
	}

	d := Decision{
		Title:      raw.Title,
		Intent:     convstate.Intent(raw.Intent),
		Confidence: raw.Confidence,
		Slots:      raw.Slots,
		Notes:      raw.Notes,
	}
	if !d.Intent.Valid() {
		d.Intent = convstate.IntentUnknown
	}
	if raw.SuggestedTool != nil {
		d.SuggestedTool = &toolgate.Suggestion{
			Name:       toolgate.Tool(raw.SuggestedTool.Name),
			Confidence: raw.SuggestedTool.Confidence,
			Reason:     raw.SuggestedTool.Reason,
			Source:     toolgate.SourceClassifier,
		}
	}
	return d, nil
}

// extractJSON isolates the outermost JSON object from a model response.
func extractJSON(response string) string {
	startIdx := strings.Index(response, "{")
	endIdx := strings.LastIndex(response, "}")
	if startIdx == -1 || endIdx == -1 || endIdx <= startIdx {
		return response
	}
	return response[startIdx : endIdx+1]
}

// domainNouns maps each intent to the vocabulary that marks a follow-up as
// still belonging to that intent's domain.
var domainNouns = map[convstate.Intent][]string{
	convstate.IntentDocsSearch: {
		"policy", "policies", "section", "data", "storage", "children",
		"retention", "document", "documents", "procedure", "spec", "notes",
	},
	convstate.IntentJiraAssignee: {
		"ticket", "tickets", "issue", "issues", "task", "tasks",
		"assignee", "sprint", "working", "jira", "backlog",
	},
	convstate.IntentCallSearch: {
		"call", "calls", "complaint", "complaints", "compliment",
		"compliments", "customer", "transcript", "agent",
	},
}

func mentionsDomainNoun(utterance string, prior convstate.Intent) bool {
	text := strings.ToLower(utterance)
	for _, noun := range domainNouns[prior] {
		if strings.Contains(text, noun) {
			return true
		}
	}
	return false
}

// Reconcile applies the stickiness rules to the raw model decision.
//
// Uploads of supported files force document.upload unconditionally. Otherwise
// a switch away from the prior active intent needs strong evidence: either the
// new confidence clears SwitchThreshold, or the prior state is too weak to
// hold. When prior stickiness is at least 0.5 and the utterance mentions a
// noun from the prior intent's domain, the prior intent is kept regardless of
// the new score.
func Reconcile(raw Decision, prior convstate.State, utterance string, uploadCount int) Decision {
	if uploadCount > 0 {
		raw.Intent = convstate.IntentDocumentUpload
		if raw.Confidence < 0.9 {
			raw.Confidence = 0.9
		}
		return raw
	}

	if prior.ActiveIntent == "" || prior.ActiveIntent == convstate.IntentUnknown {
		return raw
	}
	if raw.Intent == prior.ActiveIntent {
		return raw
	}

	if prior.Stickiness >= 0.5 && mentionsDomainNoun(utterance, prior.ActiveIntent) {
		return inheritPrior(raw, prior)
	}
	if raw.Confidence < SwitchThreshold {
		return inheritPrior(raw, prior)
	}
	return raw
}

func inheritPrior(raw Decision, prior convstate.State) Decision {
	raw.Intent = prior.ActiveIntent
	if prior.Topic != "" {
		raw.Title = prior.Topic
	}
	if raw.Confidence < prior.Stickiness {
		raw.Confidence = prior.Stickiness
	}
	return raw
}
