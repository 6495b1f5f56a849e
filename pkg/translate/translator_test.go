package translate

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"callcenter-assistant-be/pkg/llm"
)

// generateStub records every prompt and replies with a fixed response.
type generateStub struct {
	response string
	err      error
	prompts  []string
}

func (s *generateStub) Chat(_ context.Context, history []llm.Message, _ ...llm.Option) (string, error) {
	if len(history) > 0 {
		s.prompts = append(s.prompts, history[len(history)-1].Content)
	}
	return s.response, s.err
}

func (s *generateStub) Generate(_ context.Context, prompt string, _ ...llm.Option) (string, error) {
	s.prompts = append(s.prompts, prompt)
	return s.response, s.err
}

func newTestTranslator(stub *generateStub) *Translator {
	return NewTranslator(stub, zap.NewNop())
}

func TestTranslatePromptCarriesTheText(t *testing.T) {
	stub := &generateStub{response: "Hello, how are you?"}
	tr := newTestTranslator(stub)

	got := tr.Translate(context.Background(), "Hola, ¿cómo estás?", "es", "en")

	assert.Equal(t, "Hello, how are you?", got)
	assert.Len(t, stub.prompts, 1)
	assert.Contains(t, stub.prompts[0], fmt.Sprintf("%q", "Hola, ¿cómo estás?"))
	assert.Contains(t, stub.prompts[0], "from es to en")
	assert.NotContains(t, stub.prompts[0], "MISSING")
}

func TestTranslateSameLanguagePassthrough(t *testing.T) {
	stub := &generateStub{response: "should never be called"}
	tr := newTestTranslator(stub)

	got := tr.Translate(context.Background(), "unchanged", "en", "en")

	assert.Equal(t, "unchanged", got)
	assert.Empty(t, stub.prompts)
}

func TestTranslateFailsOpenOnProviderError(t *testing.T) {
	stub := &generateStub{err: fmt.Errorf("provider down")}
	tr := newTestTranslator(stub)

	got := tr.Translate(context.Background(), "Bonjour", "fr", "en")
	assert.Equal(t, "Bonjour", got)
}

func TestTranslateEmptyResponseKeepsOriginal(t *testing.T) {
	stub := &generateStub{response: "   "}
	tr := newTestTranslator(stub)

	got := tr.Translate(context.Background(), "Guten Tag", "de", "en")
	assert.Equal(t, "Guten Tag", got)
}

func TestTranslateShonaHint(t *testing.T) {
	stub := &generateStub{response: "Hello"}
	tr := newTestTranslator(stub)

	tr.ToEnglish(context.Background(), "Mhoro", "sn")
	assert.Contains(t, stub.prompts[0], "Shona is a Bantu language")
}

func TestDetectLanguageValidCode(t *testing.T) {
	stub := &generateStub{response: " ES \n"}
	tr := newTestTranslator(stub)

	assert.Equal(t, "es", tr.DetectLanguage(context.Background(), "Hola"))
	assert.Contains(t, stub.prompts[0], fmt.Sprintf("%q", "Hola"))
}

func TestDetectLanguageUnknownCodeDefaultsToEnglish(t *testing.T) {
	stub := &generateStub{response: "klingon"}
	tr := newTestTranslator(stub)

	assert.Equal(t, English, tr.DetectLanguage(context.Background(), "nuqneH"))
}

func TestDetectLanguageErrorDefaultsToEnglish(t *testing.T) {
	stub := &generateStub{err: fmt.Errorf("provider down")}
	tr := newTestTranslator(stub)

	assert.Equal(t, English, tr.DetectLanguage(context.Background(), "whatever"))
}

func TestFromEnglishRoundTripDirection(t *testing.T) {
	stub := &generateStub{response: "Hola"}
	tr := newTestTranslator(stub)

	got := tr.FromEnglish(context.Background(), "Hello", "es")
	assert.Equal(t, "Hola", got)
	assert.Contains(t, stub.prompts[0], "from en to es")
}
