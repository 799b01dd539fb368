// Package tts streams synthesized speech from the Deepgram speak API.
// The response body arrives as raw linear16 PCM and is forwarded chunk
// by chunk into the playback engine, so rendering can begin before the
// full response has downloaded.
package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	DefaultBaseURL = "https://api.deepgram.com"
	DefaultVoice   = "aura-asteria-en"

	// chunkSize is the streaming unit; one chunk also bounds the
	// playback engine's interruption latency
	chunkSize = 4096
)

// ChunkSink receives streamed audio. The playback engine implements it.
type ChunkSink interface {
	// Enqueue hands over one PCM chunk
	Enqueue(chunk []byte)
	// Finish marks end-of-stream
	Finish()
}

// speakRequest is the JSON body of a speak call
type speakRequest struct {
	Text string `json:"text"`
}

// errorResponse is Deepgram's error body shape
type errorResponse struct {
	ErrCode string `json:"err_code"`
	ErrMsg  string `json:"err_msg"`
}

// Client is the speech synthesis collaborator
type Client struct {
	apiKey     string
	baseURL    string
	voice      string
	sampleRate int
	httpClient *http.Client
}

// NewClient creates a synthesis client. Empty baseURL and voice fall
// back to the Deepgram defaults.
func NewClient(apiKey, baseURL, voice string, sampleRate int) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if voice == "" {
		voice = DefaultVoice
	}

	return &Client{
		apiKey:     apiKey,
		baseURL:    baseURL,
		voice:      voice,
		sampleRate: sampleRate,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// Voice returns the configured voice model
func (c *Client) Voice() string {
	return c.voice
}

// Stream synthesizes text and forwards the audio to sink chunk by
// chunk. The sentinel is always delivered on return, whether the stream
// ended by completion, error or interruption, so the render loop always
// terminates. interrupted is polled between chunks and aborts the fetch
// early; it may be nil.
func (c *Client) Stream(ctx context.Context, text string, sink ChunkSink, interrupted func() bool) error {
	defer sink.Finish()

	if text == "" {
		return fmt.Errorf("text cannot be empty")
	}

	query := url.Values{}
	query.Set("model", c.voice)
	query.Set("encoding", "linear16")
	query.Set("container", "none")
	query.Set("sample_rate", fmt.Sprintf("%d", c.sampleRate))

	reqBody, err := json.Marshal(speakRequest{Text: text})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST",
		c.baseURL+"/v1/speak?"+query.Encode(), bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Token "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		var errResp errorResponse
		if err := json.Unmarshal(body, &errResp); err != nil || errResp.ErrMsg == "" {
			return fmt.Errorf("speak request failed with status %d: %s", resp.StatusCode, string(body))
		}
		return fmt.Errorf("speak request failed: %s (code: %s)", errResp.ErrMsg, errResp.ErrCode)
	}

	buf := make([]byte, chunkSize)
	for {
		if interrupted != nil && interrupted() {
			return nil
		}

		n, err := resp.Body.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			sink.Enqueue(chunk)
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read audio stream: %w", err)
		}
	}
}
