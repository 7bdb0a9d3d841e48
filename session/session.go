// Package session is the realtime core of the service: it owns the
// process-wide registry of live meeting sessions, the per-session
// transcript buffers and client sets, and the message handling that
// drives them.
package session

import (
	"sync"
	"time"

	"minuted.app/stt"
)

// Client is a live connection to one meeting participant. Send
// delivers a single pre-encoded frame; an error means the connection
// is unusable and the client will be pruned from its session.
type Client interface {
	ID() string
	Send(frame []byte) error
}

// Session is the unit of concurrency: one per meeting. Its client set
// and transcript buffer are guarded by mu; the transcriber is set at
// creation and never replaced. finalizeMu serializes finalize requests
// so two of them never race against the same buffer.
type Session struct {
	meetingID   string
	transcriber stt.Transcriber
	startedAt   time.Time

	mu      sync.Mutex
	clients map[string]Client
	buffer  TranscriptBuffer

	finalizeMu sync.Mutex
}

func newSession(meetingID string, transcriber stt.Transcriber) *Session {
	return &Session{
		meetingID:   meetingID,
		transcriber: transcriber,
		startedAt:   time.Now(),
		clients:     make(map[string]Client),
	}
}

func (s *Session) MeetingID() string { return s.meetingID }

func (s *Session) Transcriber() stt.Transcriber { return s.transcriber }

func (s *Session) addClient(c Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[c.ID()] = c
}

// removeClient deletes c from the client set and reports whether it
// was present and whether the set is now empty.
func (s *Session) removeClient(c Client) (removed, empty bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[c.ID()]; !ok {
		return false, len(s.clients) == 0
	}
	delete(s.clients, c.ID())
	return true, len(s.clients) == 0
}

func (s *Session) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Append adds one transcribed fragment to the transcript buffer.
func (s *Session) Append(fragment string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buffer.Append(fragment)
}

// Transcript snapshots the full transcript accumulated so far.
func (s *Session) Transcript() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buffer.Transcript()
}

// ClearTranscript empties the buffer after a successful finalize.
func (s *Session) ClearTranscript() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buffer.Clear()
}

func (s *Session) fragmentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buffer.Len()
}

// Broadcast sends frame to every client in the set as of the start of
// the call. The set is snapshotted under the mutex, then every send
// happens outside it so a slow socket never blocks the session. One
// client's failure does not stop delivery to the rest; the failed
// clients are returned to the caller, which prunes them as an explicit
// follow-up step.
func (s *Session) Broadcast(frame []byte) []Client {
	s.mu.Lock()
	targets := make([]Client, 0, len(s.clients))
	for _, c := range s.clients {
		targets = append(targets, c)
	}
	s.mu.Unlock()

	var failed []Client
	for _, c := range targets {
		if err := c.Send(frame); err != nil {
			failed = append(failed, c)
		}
	}
	return failed
}
