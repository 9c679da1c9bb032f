package sessions

import (
	"sync"
	"time"
)

// Identity is the authenticated principal of a session.
type Identity struct {
	UserID int64  `json:"userId"`
	Email  string `json:"email"`
}

// TenantSelection is the company a session is currently working in.
type TenantSelection struct {
	CompanyID   int64     `json:"companyId"`
	CompanyName string    `json:"companyName"`
	Admin       bool      `json:"admin"`
	SelectedAt  time.Time `json:"selectedAt"`
}

// SessionData is the persisted form of a browser session.
// Identity and Tenant have independent lifecycles; either may be nil.
type SessionData struct {
	ID        string           `json:"id"`        // Unique session identifier (UUID)
	Identity  *Identity        `json:"identity"`  // Set after login or promotion
	Tenant    *TenantSelection `json:"tenant"`    // Set after explicit or automatic selection
	CreatedAt time.Time        `json:"createdAt"` // When session was created
	ExpiresAt time.Time        `json:"expiresAt"` // When session expires
}

// Clone returns a deep copy so stored sessions never alias live ones.
func (d SessionData) Clone() SessionData {
	c := d
	if d.Identity != nil {
		identity := *d.Identity
		c.Identity = &identity
	}
	if d.Tenant != nil {
		tenant := *d.Tenant
		c.Tenant = &tenant
	}
	return c
}

// Session is the live, request-scoped handle on one browser session. It is owned
// by the request that loaded it and never shared between sessions.
type Session struct {
	mu    sync.Mutex
	data  SessionData
	dirty bool
	isNew bool
}

func newSession(data SessionData, isNew bool) *Session {
	return &Session{data: data.Clone(), dirty: isNew, isNew: isNew}
}

func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.ID
}

// IsNew reports whether the session was created by this request.
func (s *Session) IsNew() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isNew
}

// Dirty reports whether anything changed since the session was loaded or saved.
func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

func (s *Session) Snapshot() SessionData {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.Clone()
}

func (s *Session) Identity() *IdentityStore {
	return &IdentityStore{session: s}
}

func (s *Session) Tenant() *TenantStore {
	return &TenantStore{session: s}
}

func (s *Session) update(fn func(*SessionData)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.data)
	s.dirty = true
}

func (s *Session) read(fn func(*SessionData)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.data)
}

func (s *Session) markSaved(expiresAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.ExpiresAt = expiresAt
	s.dirty = false
}
