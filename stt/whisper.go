package stt

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/sashabaranov/go-openai"
)

// Whisper transcribes audio chunks with OpenAI's Whisper API. Each
// chunk is staged to a temporary file for the upload and the file is
// removed before Transcribe returns, on every path.
type Whisper struct {
	client *openai.Client
	logger *log.Logger
}

func NewWhisper(apiKey string, logger *log.Logger) *Whisper {
	return &Whisper{
		client: openai.NewClient(apiKey),
		logger: logger,
	}
}

func (w *Whisper) Transcribe(ctx context.Context, audio []byte) (string, error) {
	if len(audio) == 0 {
		return "", ErrUnintelligible
	}

	f, err := os.CreateTemp("", "minuted-chunk-*.webm")
	if err != nil {
		return "", fmt.Errorf("stage audio chunk: %w", err)
	}
	path := f.Name()
	defer os.Remove(path)

	if _, err := f.Write(audio); err != nil {
		f.Close()
		return "", fmt.Errorf("stage audio chunk: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("stage audio chunk: %w", err)
	}

	resp, err := w.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		FilePath: path,
	})
	if err != nil {
		return "", fmt.Errorf("whisper transcription: %w", err)
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", ErrUnintelligible
	}

	w.logger.Debug("hear", "txt", text, "bytes", len(audio))
	return text, nil
}
