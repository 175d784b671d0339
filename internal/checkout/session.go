package checkout

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session is the volatile record of one in-flight PIX checkout. It lives in
// memory only: losing it cancels the checkout, never the payment itself,
// matching the user-paced retry flow.
type Session struct {
	ListID        uuid.UUID `json:"listId"`
	TransactionID int64     `json:"transactionId"`
	Amount        string    `json:"amount"`
	Description   string    `json:"description"`
	QRCode        string    `json:"qrCode"`
	QRCodeBase64  string    `json:"qrCodeBase64"`
	TicketURL     string    `json:"ticketUrl"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"createdAt"`
}

// SessionStore keeps at most one checkout session per list.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

// NewSessionStore builds an empty session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[uuid.UUID]*Session)}
}

// Get returns the session for a list, or nil when no checkout is in flight.
func (s *SessionStore) Get(listID uuid.UUID) *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[listID]
	if !ok {
		return nil
	}
	copied := *session
	return &copied
}

// Put stores or replaces the session for a list.
func (s *SessionStore) Put(session *Session) {
	if session == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *session
	s.sessions[session.ListID] = &copied
}

// SetStatus updates the stored status for a list's session, if any.
func (s *SessionStore) SetStatus(listID uuid.UUID, status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.sessions[listID]; ok {
		session.Status = status
	}
}

// Clear drops the session for a list.
func (s *SessionStore) Clear(listID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, listID)
}
