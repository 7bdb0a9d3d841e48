package session

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"minuted.app/metrics"
	"minuted.app/stt"
)

// Registry is the process-wide table of live meeting sessions. Its
// mutex guards the map and client membership transitions only, so
// check-then-create and check-then-delete are atomic; it is never held
// across transcription, analysis, or socket writes. Per-session state
// is guarded by each session's own mutex, so unrelated meetings never
// contend.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session

	newTranscriber stt.Factory
	logger         *log.Logger
	metrics        *metrics.Metrics
}

func NewRegistry(
	newTranscriber stt.Factory,
	logger *log.Logger,
	m *metrics.Metrics,
) *Registry {
	return &Registry{
		sessions:       make(map[string]*Session),
		newTranscriber: newTranscriber,
		logger:         logger,
		metrics:        m,
	}
}

// Connect registers client under meetingID, creating the session with
// an empty buffer and a fresh transcriber if this is the first client.
func (r *Registry) Connect(meetingID string, client Client) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[meetingID]
	if !ok {
		s = newSession(meetingID, r.newTranscriber())
		r.sessions[meetingID] = s
		r.metrics.ActiveSessions.Inc()
		r.metrics.SessionsCreated.Inc()
		r.logger.Info("session created", "meeting", meetingID)
	}

	s.addClient(client)
	r.metrics.ConnectedClients.Inc()
	r.logger.Debug(
		"client joined",
		"meeting", meetingID,
		"client", client.ID(),
		"clients", s.ClientCount(),
	)
	return s
}

// Disconnect removes client from its session, deleting the session
// when the last client leaves. It is a total function: unknown meeting
// ids and unknown clients are no-ops. It reports whether the client
// was actually a member, so callers announce each departure at most
// once.
func (r *Registry) Disconnect(meetingID string, client Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[meetingID]
	if !ok {
		return false
	}

	removed, empty := s.removeClient(client)
	if !removed {
		return false
	}
	r.metrics.ConnectedClients.Dec()

	if empty {
		delete(r.sessions, meetingID)
		r.metrics.ActiveSessions.Dec()
		r.metrics.SessionsDestroyed.Inc()
		r.logger.Info("session destroyed", "meeting", meetingID)
	} else {
		r.logger.Debug(
			"client left",
			"meeting", meetingID,
			"client", client.ID(),
			"clients", s.ClientCount(),
		)
	}
	return true
}

// Get looks up the session for meetingID without mutating anything.
func (r *Registry) Get(meetingID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[meetingID]
	return s, ok
}

// Info describes one live session for the sessions API.
type Info struct {
	MeetingID string    `json:"meeting_id"`
	Clients   int       `json:"clients"`
	Fragments int       `json:"fragments"`
	StartedAt time.Time `json:"started_at"`
}

// Snapshot lists the live sessions at a point in time.
func (r *Registry) Snapshot() []Info {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.Unlock()

	infos := make([]Info, 0, len(sessions))
	for _, s := range sessions {
		infos = append(infos, Info{
			MeetingID: s.MeetingID(),
			Clients:   s.ClientCount(),
			Fragments: s.fragmentCount(),
			StartedAt: s.startedAt,
		})
	}
	return infos
}
