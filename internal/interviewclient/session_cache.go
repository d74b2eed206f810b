package interviewclient

import (
	"sync"
	"time"

	"athena/interview/internal/models"
)

// Session is the transient state of one attempt kept between initialize and
// submit. It is process-local and never persisted.
type Session struct {
	AttemptID          string
	AttemptNumber      int
	UploadURL          string
	UploadURLExpiresAt time.Time
	Prompts            []models.Prompt
	PromptVersionID    string
	EvaluatorVersionID string
}

// SessionFromInitialize builds a Session from a fresh initialize response.
func SessionFromInitialize(resp *models.InitializeResponse) *Session {
	prompts := make([]models.Prompt, len(resp.Prompts))
	copy(prompts, resp.Prompts)
	return &Session{
		AttemptID:          resp.AttemptID,
		AttemptNumber:      resp.AttemptNumber,
		UploadURL:          resp.UploadURL,
		UploadURLExpiresAt: resp.UploadURLExpiresAt,
		Prompts:            prompts,
		PromptVersionID:    resp.PromptVersionID,
		EvaluatorVersionID: resp.EvaluatorVersionID,
	}
}

// SessionCache holds sessions by attempt id: created at initialize, read when
// recording starts, cleared on submit or abandon. Entries also expire after
// the TTL so a forgotten attempt does not linger.
type SessionCache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry
	ttl     time.Duration
	now     func() time.Time
}

type cacheEntry struct {
	session   Session
	expiresAt time.Time
}

func NewSessionCache(ttl time.Duration) *SessionCache {
	return &SessionCache{
		entries: make(map[string]*cacheEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Put stores a copy of s and drops expired entries.
func (c *SessionCache) Put(s *Session) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for id, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, id)
		}
	}
	c.entries[s.AttemptID] = &cacheEntry{
		session:   *s,
		expiresAt: now.Add(c.ttl),
	}
}

// Get returns a copy of the session if present and not expired.
func (c *SessionCache) Get(attemptID string) (*Session, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.entries[attemptID]
	if !exists || c.now().After(entry.expiresAt) {
		return nil, false
	}
	s := entry.session
	return &s, true
}

// UpdateUploadURL records a re-issued upload URL.
func (c *SessionCache) UpdateUploadURL(attemptID, uploadURL string, expiresAt time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.entries[attemptID]
	if !exists {
		return false
	}
	entry.session.UploadURL = uploadURL
	entry.session.UploadURLExpiresAt = expiresAt
	return true
}

func (c *SessionCache) Delete(attemptID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, attemptID)
}

// Len returns the number of cached sessions, expired ones included.
func (c *SessionCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}
