// Package api is the single-shot HTTP surface around the realtime
// core: transcript analysis, one-off audio transcription, and a view
// of the live sessions.
package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"

	"minuted.app/llm"
	"minuted.app/session"
	"minuted.app/stt"
)

const maxUploadBytes = 32 << 20

// Config carries the credentials for the export and notification
// integrations. Zero values leave an integration unconfigured; its
// endpoint then answers 400.
type Config struct {
	Jira            JiraConfig
	Notion          NotionConfig
	Trello          TrelloConfig
	SMTP            SMTPConfig
	SlackWebhookURL string
}

type Handler struct {
	analyzer    llm.Analyzer
	transcriber stt.Transcriber
	registry    *session.Registry
	logger      *log.Logger
	cfg         Config
	httpClient  *http.Client
}

func NewHandler(
	analyzer llm.Analyzer,
	transcriber stt.Transcriber,
	registry *session.Registry,
	logger *log.Logger,
	cfg Config,
) *Handler {
	return &Handler{
		analyzer:    analyzer,
		transcriber: transcriber,
		registry:    registry,
		logger:      logger,
		cfg:         cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Routes mounts the REST endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/api/analyze", h.handleAnalyze)
	r.Post("/api/transcribe", h.handleTranscribe)
	r.Post("/api/export/jira", h.handleExportJira)
	r.Post("/api/export/notion", h.handleExportNotion)
	r.Post("/api/export/trello", h.handleExportTrello)
	r.Post("/api/notify", h.handleNotify)
	r.Get("/api/sessions", h.handleSessions)
	r.Get("/healthz", h.handleHealthz)
}

type analyzeRequest struct {
	Transcript string `json:"transcript"`
}

func (h *Handler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}

	analysis, err := h.analyzer.Analyze(r.Context(), req.Transcript)
	if err != nil {
		h.writeError(w, http.StatusBadGateway, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"analysis":  analysis,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Errorf("read upload: %w", err))
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(file)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Errorf("read upload: %w", err))
		return
	}
	if len(audio) == 0 {
		h.writeError(w, http.StatusBadRequest, fmt.Errorf("no audio data received"))
		return
	}

	text, err := h.transcriber.Transcribe(r.Context(), audio)
	if err != nil {
		h.writeError(w, http.StatusBadGateway, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"transcript": text,
		"filename":   header.Filename,
	})
}

func (h *Handler) handleSessions(w http.ResponseWriter, _ *http.Request) {
	infos := h.registry.Snapshot()
	if infos == nil {
		infos = []session.Info{}
	}
	h.writeJSON(w, http.StatusOK, infos)
}

func (h *Handler) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, err error) {
	h.logger.Error("request failed", "status", status, "error", err)
	h.writeJSON(w, status, map[string]any{
		"success": false,
		"detail":  err.Error(),
	})
}
