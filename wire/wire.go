// Package wire defines the session protocol messages exchanged with
// connected meeting clients, and their JSON encoding. Inbound messages
// are decoded into a closed set of variants keyed by the "type" tag;
// unknown tags decode to Unknown rather than failing, so a newer client
// never kills an older server's read loop.
package wire

import (
	"encoding/json"
	"fmt"
)

// Inbound message type tags.
const (
	TypeAudioChunk = "audio_chunk"
	TypeFinalize   = "finalize"
	TypePing       = "ping"
)

// Outbound message type tags.
const (
	TypePartialTranscript = "partial_transcript"
	TypeAnalysisComplete  = "analysis_complete"
	TypeAnalysisFailed    = "analysis_failed"
	TypeParticipantLeft   = "participant_left"
	TypePong              = "pong"
)

// Inbound is a message received from a client. It is one of AudioChunk,
// Finalize, Ping, or Unknown.
type Inbound interface {
	isInbound()
}

// AudioChunk carries a base64-encoded slice of raw meeting audio.
// Timestamp is nil when the client did not send one; it is passed
// through to the resulting PartialTranscript untouched.
type AudioChunk struct {
	Audio     []byte   `json:"audio"`
	Timestamp *float64 `json:"timestamp"`
}

// Finalize asks the session to analyze everything heard so far.
type Finalize struct{}

// Ping requests a Pong on the same connection.
type Ping struct{}

// Unknown is any inbound message whose tag we don't recognize.
// Handlers ignore it.
type Unknown struct {
	Type string
}

func (AudioChunk) isInbound() {}
func (Finalize) isInbound()   {}
func (Ping) isInbound()       {}
func (Unknown) isInbound()    {}

type envelope struct {
	Type string `json:"type"`
}

// DecodeInbound parses a single client frame. It returns an error only
// when the frame is not a JSON object or the payload of a known tag is
// malformed; an unrecognized tag is returned as Unknown, nil.
func DecodeInbound(data []byte) (Inbound, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode message envelope: %w", err)
	}

	switch env.Type {
	case TypeAudioChunk:
		var chunk AudioChunk
		if err := json.Unmarshal(data, &chunk); err != nil {
			return nil, fmt.Errorf("decode audio chunk: %w", err)
		}
		return chunk, nil
	case TypeFinalize:
		return Finalize{}, nil
	case TypePing:
		return Ping{}, nil
	default:
		return Unknown{Type: env.Type}, nil
	}
}

// PartialTranscript is broadcast after a chunk transcribes to non-empty
// text.
type PartialTranscript struct {
	Type      string   `json:"type"`
	Text      string   `json:"text"`
	Timestamp *float64 `json:"timestamp,omitempty"`
}

// AnalysisComplete is broadcast when finalize succeeds. Analysis is the
// collaborator's structured payload, passed through opaquely.
type AnalysisComplete struct {
	Type       string `json:"type"`
	Transcript string `json:"transcript"`
	Analysis   any    `json:"analysis"`
}

// AnalysisFailed is broadcast when finalize could not produce insights.
// The transcript buffer is retained so a later finalize can retry.
type AnalysisFailed struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

// ParticipantLeft is broadcast to the remaining members of a session
// when a client disconnects.
type ParticipantLeft struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Pong answers a Ping on the requesting connection only.
type Pong struct {
	Type string `json:"type"`
}

func NewPartialTranscript(text string, ts *float64) PartialTranscript {
	return PartialTranscript{Type: TypePartialTranscript, Text: text, Timestamp: ts}
}

func NewAnalysisComplete(transcript string, analysis any) AnalysisComplete {
	return AnalysisComplete{Type: TypeAnalysisComplete, Transcript: transcript, Analysis: analysis}
}

func NewAnalysisFailed(reason string) AnalysisFailed {
	return AnalysisFailed{Type: TypeAnalysisFailed, Reason: reason}
}

func NewParticipantLeft(message string) ParticipantLeft {
	return ParticipantLeft{Type: TypeParticipantLeft, Message: message}
}

func NewPong() Pong {
	return Pong{Type: TypePong}
}

// Encode renders an outbound message as a single JSON frame. Broadcast
// paths encode once and hand the same frame to every client so that all
// of them observe identical bytes.
func Encode(msg any) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode outbound message: %w", err)
	}
	return data, nil
}
