package receipt

import (
	"sync"

	"github.com/google/uuid"
)

// Session holds one browser's current scan and history
type Session struct {
	ID string

	mu      sync.Mutex
	current *Scan
	history History
}

// Add makes scan the current one and appends its record to the history
func (s *Session) Add(scan *Scan) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = scan
	s.history.Append(scan.Record)
}

// Current returns the most recent scan, or nil
func (s *Session) Current() *Scan {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// History returns the records scanned in this session, oldest first
func (s *Session) History() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Records()
}

// Clear forgets the current scan and the history
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
	s.history.Clear()
}

// Sessions is an in-memory registry of sessions keyed by cookie value
type Sessions struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewSessions creates an empty registry
func NewSessions() *Sessions {
	return &Sessions{
		sessions: make(map[string]*Session),
	}
}

// Get looks up a session by ID
func (s *Sessions) Get(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	return session, ok
}

// Create registers a new session with a random ID
func (s *Sessions) Create() *Session {
	session := &Session{ID: uuid.NewString()}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = session
	return session
}
