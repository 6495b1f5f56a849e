package issues

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"callcenter-assistant-be/pkg/llm"
)

// Plan intents classify what slice of the backlog the user wants.
const (
	PlanWorking   = "working"
	PlanMissed    = "missed"
	PlanCompleted = "completed"
	PlanGeneric   = "generic"
)

// Plan is the structured search plan extracted from a natural-language
// question about tickets.
type Plan struct {
	Intent       string `json:"intent"`
	AssigneeText string `json:"assignee_text,omitempty"`
	Project      string `json:"project,omitempty"`
	DateField    string `json:"dateField,omitempty"` // created, updated, resolutiondate, duedate
	StartISO     string `json:"startISO,omitempty"`
	EndISO       string `json:"endISO,omitempty"`
	Keywords     string `json:"keywords,omitempty"`
}

const plannerSystem = `You translate a user question into issue-tracker search filters.
Return ONLY compact JSON (no prose) with keys:
{
  "intent":"working|missed|completed|generic",
  "assignee_text": string?,
  "project": string?,
  "dateField":"created|updated|resolutiondate|duedate"?,
  "startISO": string?,
  "endISO": string?,
  "keywords": string?
}

Rules:
- "completed|done|resolved|closed|finished|shipped" -> intent="completed", prefer dateField="resolutiondate".
- "missed|overdue|late|stale|not updated|behind|SLA" -> intent="missed", prefer "updated" (stale) or "duedate" (overdue).
- "working|assigned|open" -> intent="working".
- If the query mentions time windows (e.g., "yesterday", "last week", "Aug 2025"), convert to UTC ISO 8601 and fill startISO/endISO.
- If dates are absent, omit them. Never invent dates.
- Output valid JSON only.`

var planFenceRe = regexp.MustCompile("(?s)^```(?:json)?\\s*|\\s*```$")

// ExtractPlan asks the model for a search plan. A response that cannot be
// parsed degrades to a generic keyword plan instead of failing the turn.
func ExtractPlan(ctx context.Context, provider llm.LLMProvider, query string) Plan {
	response, err := llm.Complete(ctx, provider, plannerSystem, query, nil, llm.WithTemperature(0.0))
	if err != nil {
		return Plan{Intent: PlanGeneric, Keywords: query}
	}

	cleaned := planFenceRe.ReplaceAllString(strings.TrimSpace(response), "")
	var plan Plan
	if err := json.Unmarshal([]byte(cleaned), &plan); err != nil {
		return Plan{Intent: PlanGeneric, Keywords: query}
	}
	if plan.Intent == "" {
		plan.Intent = PlanGeneric
	}
	return plan
}
