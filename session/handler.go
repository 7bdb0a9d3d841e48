package session

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"

	"minuted.app/llm"
	"minuted.app/metrics"
	"minuted.app/stt"
	"minuted.app/wire"
)

const participantLeftMessage = "A participant has left"

// Handler interprets inbound client messages against the session state
// and emits the resulting broadcasts. One Handler serves the whole
// process; all per-meeting state lives in the registry's sessions.
type Handler struct {
	registry *Registry
	analyzer llm.Analyzer
	logger   *log.Logger
	metrics  *metrics.Metrics

	transcribeTimeout time.Duration
	analyzeTimeout    time.Duration
}

func NewHandler(
	registry *Registry,
	analyzer llm.Analyzer,
	logger *log.Logger,
	m *metrics.Metrics,
	transcribeTimeout, analyzeTimeout time.Duration,
) *Handler {
	return &Handler{
		registry:          registry,
		analyzer:          analyzer,
		logger:            logger,
		metrics:           m,
		transcribeTimeout: transcribeTimeout,
		analyzeTimeout:    analyzeTimeout,
	}
}

// HandleMessage processes one decoded inbound message from a client of
// meetingID. It is called synchronously from the connection's read
// loop, which gives each connection happens-before ordering and
// natural backpressure on chunk arrival.
func (h *Handler) HandleMessage(
	ctx context.Context,
	meetingID string,
	from Client,
	msg wire.Inbound,
) {
	s, ok := h.registry.Get(meetingID)
	if !ok {
		// Session already torn down; nothing to apply the message to.
		return
	}

	switch m := msg.(type) {
	case wire.AudioChunk:
		h.handleAudioChunk(ctx, s, m)
	case wire.Finalize:
		h.handleFinalize(ctx, s)
	case wire.Ping:
		h.handlePing(meetingID, from)
	case wire.Unknown:
		h.logger.Debug("ignoring unknown message", "meeting", meetingID, "type", m.Type)
	}
}

// HandleDisconnect removes the client from its session and tells the
// remaining members. Safe to call more than once per client.
func (h *Handler) HandleDisconnect(meetingID string, c Client) {
	h.dropClient(meetingID, c)
}

func (h *Handler) handleAudioChunk(
	ctx context.Context,
	s *Session,
	chunk wire.AudioChunk,
) {
	ctx, cancel := context.WithTimeout(ctx, h.transcribeTimeout)
	defer cancel()

	started := time.Now()
	text, err := s.Transcriber().Transcribe(ctx, chunk.Audio)
	h.metrics.TranscriptionDuration.Observe(time.Since(started).Seconds())
	if err != nil {
		// Chunk-scoped failure: drop it and keep the stream alive.
		h.metrics.ChunksDropped.Inc()
		if errors.Is(err, stt.ErrUnintelligible) {
			h.logger.Debug("dropping unintelligible chunk", "meeting", s.MeetingID())
		} else {
			h.logger.Warn("transcription failed", "meeting", s.MeetingID(), "error", err)
		}
		return
	}

	if text == "" {
		// Backends report empty results as ErrUnintelligible, but the
		// buffer invariant does not lean on that: no empty fragments.
		h.metrics.ChunksDropped.Inc()
		return
	}

	s.Append(text)
	h.metrics.ChunksProcessed.Inc()

	frame, err := wire.Encode(wire.NewPartialTranscript(text, chunk.Timestamp))
	if err != nil {
		h.logger.Error("encode partial transcript", "error", err)
		return
	}
	h.broadcast(s.MeetingID(), s, frame)
}

func (h *Handler) handleFinalize(ctx context.Context, s *Session) {
	// One finalize at a time per session; a concurrent finalize waits
	// here rather than racing the buffer.
	s.finalizeMu.Lock()
	defer s.finalizeMu.Unlock()

	transcript := s.Transcript()

	ctx, cancel := context.WithTimeout(ctx, h.analyzeTimeout)
	defer cancel()

	started := time.Now()
	analysis, err := h.analyzer.Analyze(ctx, transcript)
	h.metrics.AnalysisDuration.Observe(time.Since(started).Seconds())
	if err != nil {
		// Keep the buffer so a later finalize can retry.
		h.metrics.AnalysesFailed.Inc()
		h.logger.Error("analysis failed", "meeting", s.MeetingID(), "error", err)

		frame, encErr := wire.Encode(wire.NewAnalysisFailed("analysis failed, transcript retained"))
		if encErr != nil {
			h.logger.Error("encode analysis failure", "error", encErr)
			return
		}
		h.broadcast(s.MeetingID(), s, frame)
		return
	}

	h.metrics.AnalysesCompleted.Inc()
	h.logger.Info(
		"analysis complete",
		"meeting", s.MeetingID(),
		"transcript_len", len(transcript),
	)

	frame, err := wire.Encode(wire.NewAnalysisComplete(transcript, analysis))
	if err != nil {
		h.logger.Error("encode analysis result", "error", err)
		return
	}
	h.broadcast(s.MeetingID(), s, frame)
	s.ClearTranscript()
}

func (h *Handler) handlePing(meetingID string, from Client) {
	frame, err := wire.Encode(wire.NewPong())
	if err != nil {
		h.logger.Error("encode pong", "error", err)
		return
	}
	if err := from.Send(frame); err != nil {
		h.dropClient(meetingID, from)
	}
}

// broadcast fans frame out to the session and prunes every client
// whose delivery failed, treating each failure as a disconnect.
func (h *Handler) broadcast(meetingID string, s *Session, frame []byte) {
	h.metrics.BroadcastsSent.Inc()
	failed := s.Broadcast(frame)
	if len(failed) == 0 {
		return
	}

	h.metrics.BroadcastFailures.Add(float64(len(failed)))
	for _, c := range failed {
		h.logger.Debug(
			"pruning unreachable client",
			"meeting", meetingID,
			"client", c.ID(),
		)
		h.dropClient(meetingID, c)
	}
}

// dropClient removes c from the session and broadcasts the departure
// to whoever is left. Recursion through broadcast terminates because
// every level removes at least one client.
func (h *Handler) dropClient(meetingID string, c Client) {
	if !h.registry.Disconnect(meetingID, c) {
		return
	}

	s, ok := h.registry.Get(meetingID)
	if !ok {
		return
	}

	frame, err := wire.Encode(wire.NewParticipantLeft(participantLeftMessage))
	if err != nil {
		h.logger.Error("encode participant left", "error", err)
		return
	}
	h.broadcast(meetingID, s, frame)
}
