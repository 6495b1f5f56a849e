package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"callcenter-assistant-be/internal/entity"
	"callcenter-assistant-be/internal/pkg/logger"
	"callcenter-assistant-be/pkg/llm"
	"callcenter-assistant-be/pkg/toolgate"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fileUploadRepoStub struct {
	uploads   map[uuid.UUID]*entity.FileUpload
	processed []uuid.UUID
}

func newFileUploadRepoStub() *fileUploadRepoStub {
	return &fileUploadRepoStub{uploads: make(map[uuid.UUID]*entity.FileUpload)}
}

func (s *fileUploadRepoStub) Create(_ context.Context, u *entity.FileUpload) error {
	s.uploads[u.Id] = u
	return nil
}

func (s *fileUploadRepoStub) FindById(_ context.Context, id uuid.UUID) (*entity.FileUpload, error) {
	return s.uploads[id], nil
}

func (s *fileUploadRepoStub) MarkProcessed(_ context.Context, id uuid.UUID) error {
	s.processed = append(s.processed, id)
	return nil
}

func (s *fileUploadRepoStub) LinkToMessage(_ context.Context, _, _ uuid.UUID) error {
	return nil
}

type transcriberStub struct {
	transcript string
	err        error
}

func (s transcriberStub) Transcribe(context.Context, []byte, string) (string, error) {
	return s.transcript, s.err
}

func newTestToolsService(repo *fileUploadRepoStub, transcriber transcriberStub, provider llm.LLMProvider) IToolsService {
	return NewToolsService(repo, transcriber, nil, nil, nil, provider, "SUP", logger.NewZapLogger("", false))
}

func TestRunTranscribeAudio(t *testing.T) {
	dir := t.TempDir()
	audioPath := filepath.Join(dir, "call.mp3")
	require.NoError(t, os.WriteFile(audioPath, []byte("fake audio"), 0o644))

	repo := newFileUploadRepoStub()
	upload := &entity.FileUpload{
		Id:           uuid.New(),
		OriginalName: "call.mp3",
		LocalPath:    audioPath,
		MimeType:     "audio/mpeg",
	}
	repo.uploads[upload.Id] = upload

	svc := newTestToolsService(repo, transcriberStub{transcript: "Hello, I need help with my order."}, &scriptedProvider{})

	outcome, err := svc.Run(context.Background(), toolgate.ToolTranscribeAudio, ToolContext{
		Attachments: []toolgate.Attachment{{ID: upload.Id.String(), Name: "call.mp3", MimeType: "audio/mpeg"}},
	})
	require.NoError(t, err)

	assert.Contains(t, outcome.Message, "### Transcription Complete")
	assert.Contains(t, outcome.Message, "Hello, I need help with my order.")
	assert.Equal(t, "transcription", outcome.Type)
	require.Len(t, outcome.Sources, 1)
	assert.Equal(t, "file.audio", outcome.Sources[0].Type)
	assert.Equal(t, upload.Id.String(), outcome.Sources[0].ID)
	assert.Contains(t, repo.processed, upload.Id)
}

func TestRunTranscribeRequiresAudioAttachment(t *testing.T) {
	svc := newTestToolsService(newFileUploadRepoStub(), transcriberStub{}, &scriptedProvider{})

	_, err := svc.Run(context.Background(), toolgate.ToolTranscribeAudio, ToolContext{
		Attachments: []toolgate.Attachment{{ID: uuid.NewString(), Name: "notes.pdf", MimeType: "application/pdf"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "audio attachment")
}

func TestRunSummarizeConversation(t *testing.T) {
	provider := &scriptedProvider{response: "## Overview\nThe user chased a refund.\n## Key Points\n- Order 42\n## Next Steps\n- None"}
	svc := newTestToolsService(newFileUploadRepoStub(), transcriberStub{}, provider)

	outcome, err := svc.Run(context.Background(), toolgate.ToolSummarizeConversation, ToolContext{
		History: []llm.Message{
			{Role: "user", Content: "Where is my refund for order 42?"},
			{Role: "assistant", Content: "Refunds take 5 days."},
		},
	})
	require.NoError(t, err)
	assert.Contains(t, outcome.Message, "## Overview")
	assert.Equal(t, "summary", outcome.Type)
}

func TestRunSummarizeEmptyHistory(t *testing.T) {
	svc := newTestToolsService(newFileUploadRepoStub(), transcriberStub{}, &scriptedProvider{})

	outcome, err := svc.Run(context.Background(), toolgate.ToolSummarizeConversation, ToolContext{})
	require.NoError(t, err)
	assert.Contains(t, outcome.Message, "nothing to summarize")
}

func TestRunUnknownTool(t *testing.T) {
	svc := newTestToolsService(newFileUploadRepoStub(), transcriberStub{}, &scriptedProvider{})

	_, err := svc.Run(context.Background(), toolgate.Tool("DELETE_EVERYTHING"), ToolContext{})
	require.Error(t, err)
}

func TestParseTicketPlanStripsCodeFence(t *testing.T) {
	raw := "```json\n{\"title\": \"Fix login timeout\", \"priority\": \"high\", \"labels\": [\"auth\"]}\n```"

	plan, err := parseTicketPlan(raw)
	require.NoError(t, err)
	assert.Equal(t, "Fix login timeout", plan.Title)
	assert.Equal(t, "high", plan.Priority)
	assert.Equal(t, []string{"auth"}, plan.Labels)
}

func TestParseTicketPlanRejectsProse(t *testing.T) {
	_, err := parseTicketPlan("I could not extract a ticket from that.")
	require.Error(t, err)
}

func TestCreateTicketRequiresTitleAndDescription(t *testing.T) {
	provider := &scriptedProvider{response: `{"title":"Fix checkout","description":"","priority":"high"}`}
	svc := newTestToolsService(newFileUploadRepoStub(), transcriberStub{}, provider)

	_, err := svc.Run(context.Background(), toolgate.ToolCreateJira, ToolContext{
		Query: "Open a ticket for the checkout bug",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "title and description")
}

func TestFirstLineTruncates(t *testing.T) {
	assert.Equal(t, "escalate this", firstLine("escalate this\nwith details"))

	long := ""
	for i := 0; i < 50; i++ {
		long += "word "
	}
	assert.LessOrEqual(t, len(firstLine(long)), 120)
}
