package service

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"callcenter-assistant-be/internal/entity"
	"callcenter-assistant-be/internal/pkg/logger"
	"callcenter-assistant-be/internal/repository/specification"
	"callcenter-assistant-be/pkg/convstate"
	"callcenter-assistant-be/pkg/llm"
	"callcenter-assistant-be/pkg/retriever"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type conversationRepoStub struct {
	conversations map[uuid.UUID]*entity.Conversation
	updates       int
}

func newConversationRepoStub() *conversationRepoStub {
	return &conversationRepoStub{conversations: make(map[uuid.UUID]*entity.Conversation)}
}

func (s *conversationRepoStub) Create(_ context.Context, c *entity.Conversation) error {
	s.conversations[c.Id] = c
	return nil
}

func (s *conversationRepoStub) Update(_ context.Context, c *entity.Conversation) error {
	s.conversations[c.Id] = c
	s.updates++
	return nil
}

func (s *conversationRepoStub) Delete(_ context.Context, id uuid.UUID) error {
	delete(s.conversations, id)
	return nil
}

func (s *conversationRepoStub) FindOne(_ context.Context, _ ...specification.Specification) (*entity.Conversation, error) {
	for _, c := range s.conversations {
		return c, nil
	}
	return nil, nil
}

func (s *conversationRepoStub) FindAll(_ context.Context, _ ...specification.Specification) ([]*entity.Conversation, error) {
	var out []*entity.Conversation
	for _, c := range s.conversations {
		out = append(out, c)
	}
	return out, nil
}

// messageRepoStub returns messages newest-first, mirroring the descending
// order the service requests for history reads.
type messageRepoStub struct {
	messages []*entity.Message
}

func (s *messageRepoStub) Create(_ context.Context, m *entity.Message) error {
	s.messages = append(s.messages, m)
	return nil
}

func (s *messageRepoStub) FindAll(_ context.Context, _ ...specification.Specification) ([]*entity.Message, error) {
	out := make([]*entity.Message, 0, len(s.messages))
	for i := len(s.messages) - 1; i >= 0; i-- {
		out = append(out, s.messages[i])
	}
	if len(out) > historyWindow {
		out = out[:historyWindow]
	}
	return out, nil
}

func (s *messageRepoStub) Count(_ context.Context, _ ...specification.Specification) (int64, error) {
	return int64(len(s.messages)), nil
}

func (s *messageRepoStub) DeleteAllByConversationId(_ context.Context, _ uuid.UUID) error {
	s.messages = nil
	return nil
}

type scriptedProvider struct {
	response string
	err      error
	calls    int
}

func (p *scriptedProvider) Chat(context.Context, []llm.Message, ...llm.Option) (string, error) {
	p.calls++
	return p.response, p.err
}

func (p *scriptedProvider) Generate(context.Context, string, ...llm.Option) (string, error) {
	p.calls++
	return p.response, p.err
}

func newTestMemoryService(convRepo *conversationRepoStub, msgRepo *messageRepoStub, provider llm.LLMProvider) IMemoryService {
	return NewMemoryService(convRepo, msgRepo, convstate.NewStore(), provider, logger.NewZapLogger("", false))
}

func TestEnsureConversationCreatesWithInitialState(t *testing.T) {
	convRepo := newConversationRepoStub()
	svc := newTestMemoryService(convRepo, &messageRepoStub{}, &scriptedProvider{})

	conversation, err := svc.EnsureConversation(context.Background(), "", "org-1", "user-1")
	require.NoError(t, err)
	require.NotNil(t, conversation)

	assert.Equal(t, "org-1", conversation.OrganizationId)
	assert.Equal(t, "New conversation", conversation.Title)

	var state convstate.State
	require.NoError(t, json.Unmarshal(conversation.State, &state))
	assert.Equal(t, convstate.IntentUnknown, state.ActiveIntent)
	assert.Zero(t, state.Stickiness)
}

func TestEnsureConversationReturnsExisting(t *testing.T) {
	convRepo := newConversationRepoStub()
	existing := &entity.Conversation{Id: uuid.New(), OrganizationId: "org-1", Title: "Refund questions"}
	convRepo.conversations[existing.Id] = existing

	svc := newTestMemoryService(convRepo, &messageRepoStub{}, &scriptedProvider{})

	conversation, err := svc.EnsureConversation(context.Background(), existing.Id.String(), "org-1", "user-1")
	require.NoError(t, err)
	assert.Equal(t, existing.Id, conversation.Id)
	assert.Equal(t, "Refund questions", conversation.Title)
}

func TestGetRecentHistoryAscOrdersOldestFirst(t *testing.T) {
	convRepo := newConversationRepoStub()
	conversation := &entity.Conversation{Id: uuid.New(), Summary: "User asked about refunds."}
	convRepo.conversations[conversation.Id] = conversation

	msgRepo := &messageRepoStub{}
	for i := 0; i < 3; i++ {
		msgRepo.messages = append(msgRepo.messages, &entity.Message{
			Id:             uuid.New(),
			ConversationId: conversation.Id,
			Role:           "user",
			Content:        fmt.Sprintf("message %d", i),
		})
	}

	svc := newTestMemoryService(convRepo, msgRepo, &scriptedProvider{})

	history, err := svc.GetRecentHistoryAsc(context.Background(), conversation.Id)
	require.NoError(t, err)
	require.Len(t, history, 4)

	assert.Equal(t, "system", history[0].Role)
	assert.Contains(t, history[0].Content, "User asked about refunds.")
	assert.Equal(t, "message 0", history[1].Content)
	assert.Equal(t, "message 2", history[3].Content)
}

func TestGetRecentHistoryPrefersEnglishContent(t *testing.T) {
	convRepo := newConversationRepoStub()
	conversation := &entity.Conversation{Id: uuid.New()}
	convRepo.conversations[conversation.Id] = conversation

	msgRepo := &messageRepoStub{messages: []*entity.Message{{
		Id:             uuid.New(),
		ConversationId: conversation.Id,
		Role:           "user",
		Content:        "¿Dónde está mi reembolso?",
		EnglishContent: "Where is my refund?",
	}}}

	svc := newTestMemoryService(convRepo, msgRepo, &scriptedProvider{})

	history, err := svc.GetRecentHistoryAsc(context.Background(), conversation.Id)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "Where is my refund?", history[0].Content)
}

func TestAddMessageMarshalsSources(t *testing.T) {
	convRepo := newConversationRepoStub()
	conversation := &entity.Conversation{Id: uuid.New()}
	convRepo.conversations[conversation.Id] = conversation
	msgRepo := &messageRepoStub{}

	svc := newTestMemoryService(convRepo, msgRepo, &scriptedProvider{})

	message, err := svc.AddMessage(context.Background(), AddMessageInput{
		ConversationId: conversation.Id,
		Role:           "assistant",
		Content:        "Refunds take 5 days.",
		Type:           "docs.search",
		Sources:        []retriever.Citation{{Type: "doc", ID: "s1", Title: "Refund policy"}},
	})
	require.NoError(t, err)

	var sources []retriever.Citation
	require.NoError(t, json.Unmarshal(message.Sources, &sources))
	require.Len(t, sources, 1)
	assert.Equal(t, "Refund policy", sources[0].Title)
}

func TestRollingSummaryTriggersOnThreshold(t *testing.T) {
	convRepo := newConversationRepoStub()
	conversation := &entity.Conversation{Id: uuid.New()}
	convRepo.conversations[conversation.Id] = conversation
	msgRepo := &messageRepoStub{}
	provider := &scriptedProvider{response: "The user is chasing a refund for order 42."}

	svc := newTestMemoryService(convRepo, msgRepo, provider)

	for i := 0; i < summarizeEvery; i++ {
		_, err := svc.AddMessage(context.Background(), AddMessageInput{
			ConversationId: conversation.Id,
			Role:           "user",
			Content:        fmt.Sprintf("turn %d", i),
			Type:           "user.message",
		})
		require.NoError(t, err)
	}

	assert.Equal(t, "The user is chasing a refund for order 42.", conversation.Summary)
	assert.Equal(t, 1, provider.calls)
}

func TestGetStateFallsBackToPersistedBlob(t *testing.T) {
	convRepo := newConversationRepoStub()
	stateJson, _ := json.Marshal(convstate.State{ActiveIntent: convstate.IntentDocsSearch, Topic: "Refund policy", Stickiness: 0.8})
	conversation := &entity.Conversation{Id: uuid.New(), State: stateJson}
	convRepo.conversations[conversation.Id] = conversation

	svc := newTestMemoryService(convRepo, &messageRepoStub{}, &scriptedProvider{})

	state := svc.GetState(context.Background(), conversation)
	assert.Equal(t, convstate.IntentDocsSearch, state.ActiveIntent)
	assert.Equal(t, 0.8, state.Stickiness)
}

func TestGetStateResetsOnUndecodableBlob(t *testing.T) {
	convRepo := newConversationRepoStub()
	conversation := &entity.Conversation{Id: uuid.New(), State: []byte("not json")}
	convRepo.conversations[conversation.Id] = conversation

	svc := newTestMemoryService(convRepo, &messageRepoStub{}, &scriptedProvider{})

	state := svc.GetState(context.Background(), conversation)
	assert.Equal(t, convstate.IntentUnknown, state.ActiveIntent)
}
