// Package stt turns chunks of recorded meeting audio into text.
package stt

import (
	"context"
	"errors"
)

// ErrUnintelligible reports that the backend could not make words out
// of the audio. The session layer drops the chunk and keeps going.
var ErrUnintelligible = errors.New("could not understand audio")

// Transcriber converts one chunk of audio bytes into text. A session
// owns one Transcriber for its lifetime; implementations must be safe
// for sequential reuse across chunks but carry no per-chunk state.
// A nil error means non-empty text; audio with nothing to say yields
// ErrUnintelligible, never ("", nil).
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// Factory produces a fresh Transcriber for a newly created session.
type Factory func() Transcriber
