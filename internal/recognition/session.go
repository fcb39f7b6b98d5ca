package recognition

import (
	"sync"

	"github.com/google/uuid"

	"github.com/dealdesk/intake-backend/internal/domain/deal"
)

// Session is the in-memory working set of one deal's documents while its
// intake is open. All access goes through the mutex; callers get copies,
// never live references.
type Session struct {
	mu     sync.Mutex
	dealID uuid.UUID
	docs   []deal.Document
	closed bool
}

func NewSession(dealID uuid.UUID, docs []deal.Document) *Session {
	s := &Session{dealID: dealID, docs: make([]deal.Document, len(docs))}
	copy(s.docs, docs)
	return s
}

func (s *Session) DealID() uuid.UUID { return s.dealID }

// Documents returns a snapshot of the working set.
func (s *Session) Documents() []deal.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]deal.Document, len(s.docs))
	copy(out, s.docs)
	return out
}

// Get returns a copy of the document with the given id.
func (s *Session) Get(id uuid.UUID) (deal.Document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.docs {
		if d.ID == id {
			return d, true
		}
	}
	return deal.Document{}, false
}

// FindByRemoteID returns a copy of the document carrying the given remote
// correlation id.
func (s *Session) FindByRemoteID(remoteID string) (deal.Document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.docs {
		if d.RemoteID != "" && d.RemoteID == remoteID {
			return d, true
		}
	}
	return deal.Document{}, false
}

// Upsert inserts doc or replaces the entry with the same id. Returns false
// when the session is closed.
func (s *Session) Upsert(doc deal.Document) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	for i := range s.docs {
		if s.docs[i].ID == doc.ID {
			s.docs[i] = doc
			return true
		}
	}
	s.docs = append(s.docs, doc)
	return true
}

// Mutate applies fn to the document with the given id and returns the
// updated copy. Returns false when the document is gone or the session is
// closed; a stale async result then simply has nothing to land on.
func (s *Session) Mutate(id uuid.UUID, fn func(*deal.Document)) (deal.Document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return deal.Document{}, false
	}
	for i := range s.docs {
		if s.docs[i].ID == id {
			fn(&s.docs[i])
			return s.docs[i], true
		}
	}
	return deal.Document{}, false
}

// Remove drops the document with the given id from the working set.
func (s *Session) Remove(id uuid.UUID) (deal.Document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return deal.Document{}, false
	}
	for i := range s.docs {
		if s.docs[i].ID == id {
			removed := s.docs[i]
			s.docs = append(s.docs[:i], s.docs[i+1:]...)
			return removed, true
		}
	}
	return deal.Document{}, false
}

// Close marks the session dead; every later mutation is refused.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
