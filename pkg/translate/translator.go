package translate

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"callcenter-assistant-be/pkg/llm"
)

// English is the pivot language all internal processing runs in.
const English = "en"

// validCodes bounds what the detection model may return. Anything outside the
// set is treated as English so a hallucinated code never breaks the turn.
var validCodes = map[string]struct{}{}

func init() {
	for _, c := range []string{
		"en", "es", "fr", "de", "it", "pt", "ru", "zh", "ja", "ko", "ar", "hi",
		"sn", "sw", "zu", "xh", "af", "nl", "sv", "no", "da", "fi", "pl", "cs",
		"hu", "ro", "bg", "el", "tr", "he", "fa", "ur", "bn", "ta", "te", "ml",
		"kn", "gu", "pa", "mr", "ne", "si", "th", "vi", "id", "ms", "tl", "uk",
		"be", "hr", "sr", "sl", "sk", "lt", "lv", "et", "is", "ga", "cy", "eu",
		"ca", "gl", "mt", "lb",
	} {
		validCodes[c] = struct{}{}
	}
}

// Translator detects the user's language and pivots text through English.
// Every method fails open: on any provider error the original text (or "en")
// is returned so translation problems never abort a turn.
type Translator struct {
	provider llm.LLMProvider
	logger   *zap.Logger
}

func NewTranslator(provider llm.LLMProvider, logger *zap.Logger) *Translator {
	return &Translator{provider: provider, logger: logger}
}

// DetectLanguage returns the ISO 639-1 code of the text, defaulting to "en"
// on uncertainty or error.
func (t *Translator) DetectLanguage(ctx context.Context, text string) string {
	prompt := fmt.Sprintf(`Detect the language of this text and return only the ISO 639-1 language code.

Important: look carefully for African languages like Shona (sn), Swahili (sw), Zulu (zu) and Xhosa (xh).

If the text is in English, return 'en'. If you are unsure, return 'en'.

Text: %q

Language code:`, text)

	response, err := t.provider.Generate(ctx, prompt, llm.WithTemperature(0.0))
	if err != nil {
		t.logger.Warn("language detection failed, assuming english", zap.Error(err))
		return English
	}

	code := strings.ToLower(strings.TrimSpace(response))
	if _, ok := validCodes[code]; !ok {
		t.logger.Warn("unrecognized language code, assuming english",
			zap.String("code", code))
		return English
	}
	return code
}

// Translate converts text between two languages. Identical languages and any
// provider failure both return the input unchanged.
func (t *Translator) Translate(ctx context.Context, text, fromLanguage, toLanguage string) string {
	if fromLanguage == toLanguage || strings.TrimSpace(text) == "" {
		return text
	}

	var hint string
	if fromLanguage == "sn" || toLanguage == "sn" {
		hint = "Note: Shona is a Bantu language from Zimbabwe.\n\n"
	}

	prompt := fmt.Sprintf(`Translate the following text from %s to %s.

%sReturn only the translated text, nothing else.

Text: %q

Translation:`, fromLanguage, toLanguage, hint, text)

	response, err := t.provider.Generate(ctx, prompt, llm.WithTemperature(0.2))
	if err != nil {
		t.logger.Warn("translation failed, keeping original text",
			zap.String("from", fromLanguage),
			zap.String("to", toLanguage),
			zap.Error(err))
		return text
	}

	translated := strings.TrimSpace(response)
	if translated == "" {
		return text
	}
	return translated
}

// ToEnglish translates text into English unless it already is English.
func (t *Translator) ToEnglish(ctx context.Context, text, fromLanguage string) string {
	return t.Translate(ctx, text, fromLanguage, English)
}

// FromEnglish translates English text back into the user's language.
func (t *Translator) FromEnglish(ctx context.Context, text, toLanguage string) string {
	return t.Translate(ctx, text, English, toLanguage)
}
