package ws

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"minuted.app/llm"
	"minuted.app/metrics"
	"minuted.app/session"
	"minuted.app/stt"
)

type echoTranscriber struct{}

func (echoTranscriber) Transcribe(_ context.Context, audio []byte) (string, error) {
	if len(audio) == 0 {
		return "", stt.ErrUnintelligible
	}
	return string(audio), nil
}

type stubAnalyzer struct{}

func (stubAnalyzer) Analyze(_ context.Context, transcript string) (*llm.Analysis, error) {
	return &llm.Analysis{Summary: "Brief standup.", Tasks: []llm.Task{}}, nil
}

func newTestServer(t *testing.T) (*httptest.Server, *session.Registry) {
	t.Helper()

	logger := log.New(io.Discard)
	m := metrics.New(prometheus.NewRegistry())
	registry := session.NewRegistry(
		func() stt.Transcriber { return echoTranscriber{} },
		logger,
		m,
	)
	handler := session.NewHandler(
		registry, stubAnalyzer{}, logger, m, time.Second, time.Second,
	)
	server := NewServer(registry, handler, logger, 32)

	r := chi.NewRouter()
	r.Get("/ws/{meetingID}", server.ServeWS)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, registry
}

func dial(t *testing.T, srv *httptest.Server, meetingID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/" + meetingID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("frame %q is not JSON: %v", data, err)
	}
	return got
}

func sendJSON(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	if err := conn.WriteJSON(v); err != nil {
		t.Fatalf("write frame: %v", err)
	}
}

func waitFor(t *testing.T, cond func() bool, what string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestServeWS(t *testing.T) {
	t.Run("RejectsBlankMeetingID", func(t *testing.T) {
		srv, registry := newTestServer(t)

		resp, err := http.Get(srv.URL + "/ws/%20")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
		if got := len(registry.Snapshot()); got != 0 {
			t.Errorf("%d sessions registered by rejected connection", got)
		}
	})

	t.Run("AudioChunkFansOut", func(t *testing.T) {
		srv, registry := newTestServer(t)
		a := dial(t, srv, "standup-1")
		b := dial(t, srv, "standup-1")
		waitFor(t, func() bool {
			s, ok := registry.Get("standup-1")
			return ok && s.ClientCount() == 2
		}, "both clients to join")

		sendJSON(t, a, map[string]any{
			"type":      "audio_chunk",
			"audio":     base64.StdEncoding.EncodeToString([]byte("let's start")),
			"timestamp": 7.0,
		})

		for name, conn := range map[string]*websocket.Conn{"a": a, "b": b} {
			got := readFrame(t, conn)
			if got["type"] != "partial_transcript" || got["text"] != "let's start" {
				t.Errorf("client %s frame = %v", name, got)
			}
		}
	})

	t.Run("FinalizeRoundTrip", func(t *testing.T) {
		srv, registry := newTestServer(t)
		a := dial(t, srv, "planning")
		waitFor(t, func() bool {
			_, ok := registry.Get("planning")
			return ok
		}, "client to join")

		sendJSON(t, a, map[string]any{
			"type":  "audio_chunk",
			"audio": base64.StdEncoding.EncodeToString([]byte("ship friday")),
		})
		if got := readFrame(t, a); got["type"] != "partial_transcript" {
			t.Fatalf("frame = %v, want partial_transcript", got)
		}

		sendJSON(t, a, map[string]any{"type": "finalize"})
		got := readFrame(t, a)
		if got["type"] != "analysis_complete" || got["transcript"] != "ship friday" {
			t.Fatalf("frame = %v, want analysis_complete", got)
		}
		analysis, ok := got["analysis"].(map[string]any)
		if !ok || analysis["summary"] != "Brief standup." {
			t.Errorf("analysis = %v", got["analysis"])
		}
	})

	t.Run("PingPong", func(t *testing.T) {
		srv, registry := newTestServer(t)
		a := dial(t, srv, "m")
		waitFor(t, func() bool {
			_, ok := registry.Get("m")
			return ok
		}, "client to join")

		sendJSON(t, a, map[string]any{"type": "ping"})
		if got := readFrame(t, a); got["type"] != "pong" {
			t.Errorf("frame = %v, want pong", got)
		}
	})

	t.Run("MalformedAndUnknownIgnored", func(t *testing.T) {
		srv, registry := newTestServer(t)
		a := dial(t, srv, "m")
		waitFor(t, func() bool {
			_, ok := registry.Get("m")
			return ok
		}, "client to join")

		// Neither frame may kill the connection.
		if err := a.WriteMessage(websocket.TextMessage, []byte("}{ not json")); err != nil {
			t.Fatalf("write: %v", err)
		}
		sendJSON(t, a, map[string]any{"type": "interpretive_dance"})

		sendJSON(t, a, map[string]any{"type": "ping"})
		if got := readFrame(t, a); got["type"] != "pong" {
			t.Errorf("frame = %v, want pong after junk frames", got)
		}
	})

	t.Run("DisconnectCleansUp", func(t *testing.T) {
		srv, registry := newTestServer(t)
		a := dial(t, srv, "retro")
		b := dial(t, srv, "retro")
		waitFor(t, func() bool {
			s, ok := registry.Get("retro")
			return ok && s.ClientCount() == 2
		}, "both clients to join")

		a.Close()

		got := readFrame(t, b)
		if got["type"] != "participant_left" {
			t.Errorf("frame = %v, want participant_left", got)
		}

		b.Close()
		waitFor(t, func() bool {
			_, ok := registry.Get("retro")
			return !ok
		}, "session teardown")
	})

	t.Run("MeetingIsolation", func(t *testing.T) {
		srv, registry := newTestServer(t)
		a := dial(t, srv, "m1")
		other := dial(t, srv, "m2")
		waitFor(t, func() bool {
			_, ok1 := registry.Get("m1")
			_, ok2 := registry.Get("m2")
			return ok1 && ok2
		}, "both meetings to exist")

		sendJSON(t, a, map[string]any{
			"type":  "audio_chunk",
			"audio": base64.StdEncoding.EncodeToString([]byte("secret")),
		})
		if got := readFrame(t, a); got["type"] != "partial_transcript" {
			t.Fatalf("frame = %v", got)
		}

		other.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
		if _, data, err := other.ReadMessage(); err == nil {
			t.Errorf("client of m2 received m1 traffic: %s", data)
		}
	})
}
