package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"callcenter-assistant-be/internal/dto"
	"callcenter-assistant-be/internal/pkg/logger"
	"callcenter-assistant-be/pkg/convstate"
	"callcenter-assistant-be/pkg/intent"
	"callcenter-assistant-be/pkg/llm"
	"callcenter-assistant-be/pkg/retriever/calls"
	"callcenter-assistant-be/pkg/retriever/docs"
	"callcenter-assistant-be/pkg/retriever/issues"
	"callcenter-assistant-be/pkg/searchindex"
	"callcenter-assistant-be/pkg/translate"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// routingProvider answers each model call based on the system prompt that
// made it, with classifier replies consumed in order so multi-turn tests can
// script a different decision per turn.
type routingProvider struct {
	classifierReplies []string
	classifierCalls   int
}

func (p *routingProvider) Chat(_ context.Context, history []llm.Message, _ ...llm.Option) (string, error) {
	system := ""
	if len(history) > 0 && history[0].Role == "system" {
		system = history[0].Content
	}

	switch {
	case strings.Contains(system, "You classify a user message"):
		reply := p.classifierReplies[p.classifierCalls%len(p.classifierReplies)]
		p.classifierCalls++
		return reply, nil
	case strings.Contains(system, "issue-tracker search filters"):
		return `{"intent":"working","assignee_text":"Priya","keywords":"Priya open work"}`, nil
	case strings.Contains(system, "summarizes tracker issues"):
		return `{"answer":"Priya has 2 open tickets, both about checkout.","sources":[{"type":"jira_ticket","snippet":"Fix checkout timeout","title":"Fix checkout timeout","confidence":0.9,"key":"SUP-1"}]}`, nil
	case strings.Contains(system, "compact running summary"):
		return "Summary of the refund discussion.", nil
	case strings.Contains(system, "Extract a ticket creation request"):
		return `{"title":"Fix checkout","description":"","priority":"high"}`, nil
	default:
		return "I can search policies, tickets, and calls for you.", nil
	}
}

func (p *routingProvider) Generate(_ context.Context, prompt string, _ ...llm.Option) (string, error) {
	if strings.Contains(prompt, "Detect the language") {
		return "en", nil
	}
	return "ok", nil
}

// chatIndexStub serves the assignee aggregation for agg-shaped bodies and
// issue hits for everything else.
type chatIndexStub struct{}

func (chatIndexStub) Search(_ context.Context, _ string, body searchindex.M) (*searchindex.SearchResponse, error) {
	res := &searchindex.SearchResponse{}
	if _, hasAggs := body["aggs"]; hasAggs {
		res.Aggregations = map[string]json.RawMessage{
			"by_assignee": json.RawMessage(`{"buckets":[{"key":"acc-priya","doc_count":4,"latest":{"hits":{"hits":[{"_source":{"assignee_accountId":"acc-priya","assignee_displayName":"Priya Sharma"}}]}}}]}`),
		}
		return res, nil
	}

	doc1, _ := json.Marshal(issues.IssueDoc{Key: "SUP-1", Summary: "Fix checkout timeout", Status: "In Progress", AssigneeDisplayName: "Priya Sharma"})
	doc2, _ := json.Marshal(issues.IssueDoc{Key: "SUP-2", Summary: "Cart totals wrong", Status: "To Do", AssigneeDisplayName: "Priya Sharma"})
	res.Hits.Hits = []searchindex.Hit{
		{ID: "SUP-1", Score: 4.0, Source: doc1},
		{ID: "SUP-2", Score: 3.1, Source: doc2},
	}
	return res, nil
}

func (chatIndexStub) Upsert(context.Context, string, string, any) error { return nil }
func (chatIndexStub) Bulk(context.Context, []any) error                 { return nil }
func (chatIndexStub) Delete(context.Context, string, string) error      { return nil }

// failingIndexStub simulates a search backend outage.
type failingIndexStub struct{}

func (failingIndexStub) Search(context.Context, string, searchindex.M) (*searchindex.SearchResponse, error) {
	return nil, fmt.Errorf("connection refused")
}
func (failingIndexStub) Upsert(context.Context, string, string, any) error { return fmt.Errorf("connection refused") }
func (failingIndexStub) Bulk(context.Context, []any) error                 { return fmt.Errorf("connection refused") }
func (failingIndexStub) Delete(context.Context, string, string) error      { return fmt.Errorf("connection refused") }

type chatEmbedderStub struct{}

func (chatEmbedderStub) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{0.5, 0.5}
	}
	return out, nil
}

func newTestChatService(provider *routingProvider, convRepo *conversationRepoStub, msgRepo *messageRepoStub) IChatService {
	return newTestChatServiceWithIndex(provider, convRepo, msgRepo, chatIndexStub{})
}

func newTestChatServiceWithIndex(provider *routingProvider, convRepo *conversationRepoStub, msgRepo *messageRepoStub, index searchindex.Index) IChatService {
	log := logger.NewZapLogger("", false)
	zapLog := zap.NewNop()
	embedder := chatEmbedderStub{}

	memoryService := NewMemoryService(convRepo, msgRepo, convstate.NewStore(), provider, log)
	fileRepo := newFileUploadRepoStub()
	docsRetriever := docs.NewRetriever(index, embedder, provider, zapLog)
	issuesRetriever := issues.NewRetriever(index, embedder, provider, 0, zapLog)
	callsRetriever := calls.NewRetriever(index, embedder, zapLog)
	toolsService := NewToolsService(fileRepo, transcriberStub{}, docsRetriever, nil, nil, provider, "SUP", log)

	return NewChatService(
		memoryService,
		toolsService,
		fileRepo,
		intent.NewClassifier(provider, zapLog),
		translate.NewTranslator(provider, zapLog),
		docsRetriever,
		issuesRetriever,
		callsRetriever,
		provider,
		nil,
		log,
	)
}

func TestAskRoutesAssigneeQuestionToIssues(t *testing.T) {
	provider := &routingProvider{classifierReplies: []string{
		`{"title":"Priya's open work","intent":"jira.lookup_by_assignee","confidence":0.92,"slots":{"assignee":"Priya","query":"what is Priya working on"}}`,
	}}
	convRepo := newConversationRepoStub()
	msgRepo := &messageRepoStub{}
	svc := newTestChatService(provider, convRepo, msgRepo)

	res, err := svc.Ask(context.Background(), "org-1", "user-1", &dto.AskRequest{
		Query: "What is Priya working on?",
	})
	require.NoError(t, err)

	assert.Equal(t, "jira.lookup_by_assignee", res.Intent)
	assert.Equal(t, "jira_ticket", res.Type)
	assert.Equal(t, "Priya has 2 open tickets, both about checkout.", res.Answer)
	require.Len(t, res.Sources, 1)
	assert.Equal(t, "SUP-1", res.Sources[0].Key)
	assert.Equal(t, "en", res.Language)

	// One user turn and one assistant turn persisted.
	require.Len(t, msgRepo.messages, 2)
	assert.Equal(t, "user", msgRepo.messages[0].Role)
	assert.Equal(t, "assistant", msgRepo.messages[1].Role)

	// Routing state follows the decision.
	var state convstate.State
	conversation, _ := convRepo.FindOne(context.Background())
	require.NoError(t, json.Unmarshal(conversation.State, &state))
	assert.Equal(t, convstate.IntentJiraAssignee, state.ActiveIntent)
	assert.Equal(t, 0.92, state.Stickiness)
}

func TestAskFollowUpSticksToActiveIntent(t *testing.T) {
	provider := &routingProvider{classifierReplies: []string{
		`{"title":"Priya's open work","intent":"jira.lookup_by_assignee","confidence":0.92,"slots":{"assignee":"Priya","query":"what is Priya working on"}}`,
		// The follow-up reads ambiguous; a weak switch must not leave the
		// ticket context.
		`{"title":"Last week","intent":"docs.search","confidence":0.6,"slots":{"query":"and what about last week"}}`,
	}}
	convRepo := newConversationRepoStub()
	msgRepo := &messageRepoStub{}
	svc := newTestChatService(provider, convRepo, msgRepo)

	first, err := svc.Ask(context.Background(), "org-1", "user-1", &dto.AskRequest{
		Query: "What is Priya working on?",
	})
	require.NoError(t, err)

	second, err := svc.Ask(context.Background(), "org-1", "user-1", &dto.AskRequest{
		Query:          "and what about last week?",
		ConversationId: first.ConversationId,
	})
	require.NoError(t, err)

	assert.Equal(t, "jira.lookup_by_assignee", second.Intent)
	assert.Equal(t, "jira_ticket", second.Type)
}

func TestAskFallsBackToGeneralResponse(t *testing.T) {
	provider := &routingProvider{classifierReplies: []string{
		`{"title":"Greeting","intent":"unknown","confidence":0.3,"slots":{}}`,
	}}
	svc := newTestChatService(provider, newConversationRepoStub(), &messageRepoStub{})

	res, err := svc.Ask(context.Background(), "org-1", "user-1", &dto.AskRequest{Query: "hello there"})
	require.NoError(t, err)

	assert.Equal(t, "general", res.Type)
	assert.Equal(t, "I can search policies, tickets, and calls for you.", res.Answer)
	assert.Empty(t, res.Sources)
}

func TestAskAnswersWhenSearchBackendIsDown(t *testing.T) {
	provider := &routingProvider{classifierReplies: []string{
		`{"title":"Retention policy","intent":"docs.search","confidence":0.9,"slots":{"query":"data retention policy"}}`,
	}}
	msgRepo := &messageRepoStub{}
	svc := newTestChatServiceWithIndex(provider, newConversationRepoStub(), msgRepo, failingIndexStub{})

	res, err := svc.Ask(context.Background(), "org-1", "user-1", &dto.AskRequest{
		Query: "What is our data retention policy?",
	})
	require.NoError(t, err)

	assert.Equal(t, "docs.search", res.Type)
	assert.Contains(t, res.Answer, "couldn't search the policy documents")
	assert.Empty(t, res.Sources)

	// The turn is still persisted on both sides.
	require.Len(t, msgRepo.messages, 2)
	assert.Equal(t, "user", msgRepo.messages[0].Role)
	assert.Equal(t, "assistant", msgRepo.messages[1].Role)
	assert.Contains(t, msgRepo.messages[1].Content, "couldn't search the policy documents")
}

func TestAskExplicitToolValidationFailureReachesUser(t *testing.T) {
	provider := &routingProvider{classifierReplies: []string{
		`{"title":"Create ticket","intent":"unknown","confidence":0.4,"slots":{}}`,
	}}
	msgRepo := &messageRepoStub{}
	svc := newTestChatService(provider, newConversationRepoStub(), msgRepo)

	// The scripted plan extraction returns an empty description, so the
	// explicitly selected action must fail with the validation message
	// instead of silently answering from retrieval.
	res, err := svc.Ask(context.Background(), "org-1", "user-1", &dto.AskRequest{
		Query: "Open a ticket for the checkout bug",
		Tool:  "CREATE_JIRA",
	})
	require.NoError(t, err)

	assert.Equal(t, "tool.error", res.Type)
	assert.Contains(t, res.Answer, "CREATE_JIRA")
	assert.Contains(t, res.Answer, "title and description")
	assert.Empty(t, res.ToolRan)
	require.Len(t, msgRepo.messages, 2)
}
