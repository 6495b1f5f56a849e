// Package speech transcribes recorded calls through the Google
// Speech-to-Text REST API.
package speech

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultEndpoint = "https://speech.googleapis.com/v1/speech:recognize"

// Transcriber converts an audio payload into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
}

type Client struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

var _ Transcriber = &Client{}

func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:   apiKey,
		endpoint: defaultEndpoint,
		client: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

type recognitionConfig struct {
	Encoding          string `json:"encoding,omitempty"`
	SampleRateHertz   int    `json:"sampleRateHertz,omitempty"`
	LanguageCode      string `json:"languageCode"`
	Model             string `json:"model,omitempty"`
	EnablePunctuation bool   `json:"enableAutomaticPunctuation"`
}

type recognizeRequest struct {
	Config recognitionConfig `json:"config"`
	Audio  struct {
		Content string `json:"content"`
	} `json:"audio"`
}

type recognizeResponse struct {
	Results []struct {
		Alternatives []struct {
			Transcript string `json:"transcript"`
		} `json:"alternatives"`
	} `json:"results"`
}

// Transcribe sends the audio inline and concatenates the best alternative of
// each result. Call recordings are assumed to be 8kHz phone audio.
func (c *Client) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	if len(audio) == 0 {
		return "", fmt.Errorf("speech: empty audio payload")
	}

	reqBody := recognizeRequest{
		Config: recognitionConfig{
			Encoding:          encodingFor(mimeType),
			SampleRateHertz:   8000,
			LanguageCode:      "en-US",
			Model:             "phone_call",
			EnablePunctuation: true,
		},
	}
	reqBody.Audio.Content = base64.StdEncoding.EncodeToString(audio)

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s?key=%s", c.endpoint, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("speech: recognize request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("speech: recognize returned %d: %s", resp.StatusCode, string(body))
	}

	var parsed recognizeResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("speech: decode response: %w", err)
	}

	var transcript strings.Builder
	for _, result := range parsed.Results {
		if len(result.Alternatives) == 0 {
			continue
		}
		if transcript.Len() > 0 {
			transcript.WriteString(" ")
		}
		transcript.WriteString(strings.TrimSpace(result.Alternatives[0].Transcript))
	}
	return transcript.String(), nil
}

func encodingFor(mimeType string) string {
	switch {
	case strings.Contains(mimeType, "mpeg"), strings.Contains(mimeType, "mp3"):
		return "MP3"
	case strings.Contains(mimeType, "wav"):
		return "LINEAR16"
	case strings.Contains(mimeType, "ogg"):
		return "OGG_OPUS"
	case strings.Contains(mimeType, "flac"):
		return "FLAC"
	default:
		return "" // let the API sniff the container
	}
}
