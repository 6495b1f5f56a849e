package intent

import (
	"encoding/json"
	"fmt"
	"strings"

	"callcenter-assistant-be/pkg/convstate"
)

// systemPrompt is the structured-output instruction for the classifier model.
func systemPrompt() string {
	var p strings.Builder

	p.WriteString("You classify a user message into one of these intents:\n")
	p.WriteString("1) jira.lookup_by_assignee - the user asks what someone is working on, their tasks, tickets, or issues.\n")
	p.WriteString("2) docs.search - the user wants to find or read information, files, policies, documents, notes, or specs.\n")
	p.WriteString("3) call.search - the user asks about calls, complaints, compliments, customer interactions, or call analytics.\n")
	p.WriteString("4) document.upload - the user is sharing files to be ingested.\n")
	p.WriteString("5) unknown - when it is unclear.\n\n")

	p.WriteString("You also consider whether any of these tools would accelerate the response:\n")
	p.WriteString("- TRANSCRIBE_AUDIO: the user shares or references an audio file and wants a transcript, summary, or analysis.\n")
	p.WriteString("- SUMMARIZE_CONVERSATION: requests to recap, summarise, or highlight key points from the current chat or uploaded notes.\n")
	p.WriteString("- POLICY_AUDIT: the user needs to check compliance or validate a scenario against policies or regulations.\n")
	p.WriteString("- BROWSE_POLICIES: the user wants supporting policy documents or asks \"where can I find ...\".\n")
	p.WriteString("- CREATE_JIRA: the conversation clearly captures an issue that should become a ticket.\n\n")

	p.WriteString("Rules:\n")
	p.WriteString("- Return ONLY valid JSON matching the schema.\n")
	p.WriteString("- Prefer staying in the previous active_intent if it is compatible with the new message.\n")
	p.WriteString("- Short or elliptical messages (e.g., \"what about X\", \"and children's data?\") inherit the prior context.\n")
	p.WriteString("- Switch intents ONLY on strong evidence: a person's name for assignee lookup, or explicit issue/ticket words.\n")
	p.WriteString("- If prior stickiness >= 0.5 and the message mentions a document or policy noun (\"policy\",\"section\",\"data\",\"storage\",\"retention\", etc.), keep docs.search.\n")
	p.WriteString("- title is short and updated to reflect the new query.\n")
	p.WriteString("- Time ranges use the relative notation <<NOW-7D>>, <<NOW-2W>>, <<NOW-1M>>, <<NOW-1Y>> or <<NOW>>.\n")
	p.WriteString("- Tools can be suggested even if the user never names them; infer from intent and attachments.\n")
	p.WriteString("- Only set a tool when it adds real value and the required inputs exist (e.g., audio present for transcription).\n\n")

	p.WriteString("Return JSON only. Schema:\n")
	p.WriteString(schemaBlock())
	p.WriteString("\nExamples:\n\n")

	p.WriteString("User: \"What is Matthew working on?\"\n")
	p.WriteString(`Output: {"title":"Work info request","intent":"jira.lookup_by_assignee","confidence":0.93,` +
		`"slots":{"assignee":"Matthew","time_range":{"from":"<<NOW-14D>>","to":"<<NOW>>"},` +
		`"jira_fields":["summary","status","issueType"],"query":"","filters":{"tags":[],"departments":[],"policy_type":[]}},` +
		`"suggested_tool":null,"notes":"Asks about a person's current tickets."}` + "\n\n")

	p.WriteString("User: \"search the call center onboarding policy\"\n")
	p.WriteString(`Output: {"title":"Call center onboarding policy","intent":"docs.search","confidence":0.88,` +
		`"slots":{"assignee":"","time_range":{"from":"","to":""},"jira_fields":[],` +
		`"query":"call center onboarding policy","filters":{"tags":["onboarding"],"departments":["operations"],"policy_type":["call_center"]}},` +
		`"suggested_tool":{"name":"BROWSE_POLICIES","confidence":0.74,"reason":"User explicitly requests a policy document."},` +
		`"notes":"Document lookup with domain hints in filters."}` + "\n\n")

	p.WriteString("User: \"Show me complaints from last week\"\n")
	p.WriteString(`Output: {"title":"Call complaints search","intent":"call.search","confidence":0.91,` +
		`"slots":{"assignee":"","time_range":{"from":"<<NOW-7D>>","to":"<<NOW>>"},"jira_fields":[],` +
		`"query":"complaints","filters":{"tags":["complaints"],"departments":[],"policy_type":[]}},` +
		`"suggested_tool":null,"notes":"Searching for complaint calls in time range."}` + "\n\n")

	p.WriteString("User: \"hmm not sure\"\n")
	p.WriteString(`Output: {"title":"General question","intent":"unknown","confidence":0.32,` +
		`"slots":{"assignee":"","time_range":{"from":"","to":""},"jira_fields":[],"query":"",` +
		`"filters":{"tags":[],"departments":[],"policy_type":[]}},"suggested_tool":null,"notes":"Insufficient signal."}` + "\n")

	return p.String()
}

// userPrompt wraps the prior conversation state and the new utterance.
func userPrompt(prior convstate.State, utterance string) string {
	stateJSON, err := json.Marshal(prior)
	if err != nil {
		stateJSON = []byte("{}")
	}

	var p strings.Builder
	p.WriteString("Context:\n")
	p.Write(stateJSON)
	p.WriteString("\n\nSchema:\n")
	p.WriteString(schemaBlock())
	p.WriteString("\nUser message:\n")
	p.WriteString(fmt.Sprintf("%q\n", utterance))
	return p.String()
}

func schemaBlock() string {
	return `{ "title": string,
  "intent": "jira.lookup_by_assignee"|"docs.search"|"call.search"|"document.upload"|"unknown",
  "confidence": number,
  "slots": { "assignee": string,
             "time_range": {"from": string, "to": string},
             "jira_fields": string[],
             "query": string,
             "filters": {"tags": string[], "departments": string[], "policy_type": string[]}},
  "suggested_tool": null | {
      "name": "TRANSCRIBE_AUDIO"|"SUMMARIZE_CONVERSATION"|"POLICY_AUDIT"|"BROWSE_POLICIES"|"CREATE_JIRA",
      "confidence": number,
      "reason": string
  },
  "notes": string
}
`
}
