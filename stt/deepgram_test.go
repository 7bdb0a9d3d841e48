package stt

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/charmbracelet/log"
)

func testLogger() *log.Logger {
	return log.New(io.Discard)
}

func newTestDeepgram(t *testing.T, handler http.HandlerFunc) *Deepgram {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	d := NewDeepgram("test-key", testLogger())
	d.baseURL = srv.URL
	return d
}

func TestDeepgramTranscribe(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		var gotAuth string
		d := newTestDeepgram(t, func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			body, _ := io.ReadAll(r.Body)
			if string(body) != "opus frames" {
				t.Errorf("server received %q, want %q", body, "opus frames")
			}
			w.Write([]byte(`{"results":{"channels":[{"alternatives":[
				{"transcript":" let's start ","confidence":0.97}]}]}}`))
		})

		text, err := d.Transcribe(context.Background(), []byte("opus frames"))
		if err != nil {
			t.Fatalf("Transcribe returned error: %v", err)
		}
		if text != "let's start" {
			t.Errorf("text = %q, want %q", text, "let's start")
		}
		if gotAuth != "Token test-key" {
			t.Errorf("Authorization = %q, want %q", gotAuth, "Token test-key")
		}
	})

	t.Run("EmptyTranscript", func(t *testing.T) {
		d := newTestDeepgram(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"results":{"channels":[{"alternatives":[
				{"transcript":"","confidence":0}]}]}}`))
		})

		_, err := d.Transcribe(context.Background(), []byte("static"))
		if !errors.Is(err, ErrUnintelligible) {
			t.Errorf("err = %v, want ErrUnintelligible", err)
		}
	})

	t.Run("EmptyChunk", func(t *testing.T) {
		d := NewDeepgram("test-key", testLogger())
		_, err := d.Transcribe(context.Background(), nil)
		if !errors.Is(err, ErrUnintelligible) {
			t.Errorf("err = %v, want ErrUnintelligible", err)
		}
	})

	t.Run("ServerError", func(t *testing.T) {
		d := newTestDeepgram(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "upstream on fire", http.StatusBadGateway)
		})

		_, err := d.Transcribe(context.Background(), []byte("audio"))
		if err == nil {
			t.Fatal("expected error for 502 response")
		}
		if errors.Is(err, ErrUnintelligible) {
			t.Error("server failure should not read as unintelligible audio")
		}
	})
}

func TestWhisperStagingCleanup(t *testing.T) {
	// Whisper stages each chunk under the temp dir; after a failed call
	// no chunk file may remain behind.
	dir := t.TempDir()
	t.Setenv("TMPDIR", dir)

	w := NewWhisper("bogus-key", testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel() // force the API call to fail fast

	if _, err := w.Transcribe(ctx, []byte("audio")); err == nil {
		t.Fatal("expected error from canceled context")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read temp dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("staging files left behind: %v", entries)
	}
}
