// Package asr transcribes captured utterances through a Whisper model
// hosted behind an OpenAI-compatible API.
package asr

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Defaults target Groq's OpenAI-compatible endpoint
const (
	DefaultBaseURL = "https://api.groq.com/openai/v1"
	DefaultModel   = "whisper-large-v3"
)

// Client is the transcription collaborator
type Client struct {
	client openai.Client
	model  string
}

// NewClient creates a transcription client. Empty baseURL and model fall
// back to the Groq defaults.
func NewClient(apiKey, baseURL, model string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if model == "" {
		model = DefaultModel
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
	)

	return &Client{
		client: client,
		model:  model,
	}
}

// Transcribe converts a WAV hand-off buffer to text. The caller treats
// any failure as an empty transcript, so errors here carry context but
// no recovery logic.
func (c *Client) Transcribe(ctx context.Context, wavData []byte) (string, error) {
	if len(wavData) == 0 {
		return "", fmt.Errorf("no audio data to transcribe")
	}

	params := openai.AudioTranscriptionNewParams{
		File:  openai.File(bytes.NewReader(wavData), "utterance.wav", "audio/wav"),
		Model: openai.AudioModel(c.model),
	}

	transcription, err := c.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("transcription failed: %w", err)
	}

	return strings.TrimSpace(transcription.Text), nil
}
