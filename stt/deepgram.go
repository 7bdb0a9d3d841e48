package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

const deepgramBaseURL = "https://api.deepgram.com/v1/listen"

// Deepgram transcribes audio chunks with Deepgram's prerecorded
// endpoint. One short HTTP round trip per chunk.
type Deepgram struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *log.Logger
}

func NewDeepgram(apiKey string, logger *log.Logger) *Deepgram {
	return &Deepgram{
		apiKey:  apiKey,
		baseURL: deepgramBaseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

type deepgramResponse struct {
	Results struct {
		Channels []struct {
			Alternatives []struct {
				Transcript string  `json:"transcript"`
				Confidence float64 `json:"confidence"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

func (d *Deepgram) Transcribe(ctx context.Context, audio []byte) (string, error) {
	if len(audio) == 0 {
		return "", ErrUnintelligible
	}

	params := url.Values{}
	params.Set("model", "nova-2")
	params.Set("smart_format", "true")
	params.Set("punctuate", "true")

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		d.baseURL+"?"+params.Encode(),
		bytes.NewReader(audio),
	)
	if err != nil {
		return "", fmt.Errorf("build deepgram request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+d.apiKey)
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("deepgram request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf(
			"deepgram returned %d: %s",
			resp.StatusCode,
			string(body),
		)
	}

	var parsed deepgramResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode deepgram response: %w", err)
	}

	if len(parsed.Results.Channels) == 0 ||
		len(parsed.Results.Channels[0].Alternatives) == 0 {
		return "", ErrUnintelligible
	}

	alt := parsed.Results.Channels[0].Alternatives[0]
	text := strings.TrimSpace(alt.Transcript)
	if text == "" {
		return "", ErrUnintelligible
	}

	d.logger.Debug("hear", "txt", text, "confidence", alt.Confidence)
	return text, nil
}
