package shared

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// FlashMessage represents a one-time notification stored in session.
type FlashMessage struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Identity is the principal snapshot stored in a session at login.
// Role holds the canonical rank name.
type Identity struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

// SessionManager orchestrates cookie based sessions backed by Redis.
//
// A session authenticated at time T stays valid until T+ttl regardless of
// activity. Anonymous sessions (CSRF token only) get the same ttl from
// their creation.
type SessionManager struct {
	client     *redis.Client
	cookieName string
	ttl        time.Duration
	secure     bool
	now        func() time.Time
}

// Session holds per-request session data.
type Session struct {
	ID        string
	values    map[string]string
	identity  *Identity
	issuedAt  time.Time
	flashes   []FlashMessage
	isNew     bool
	dirty     bool
	rotate    bool
	destroyed bool
	staleID   string
}

type sessionPayload struct {
	Values   map[string]string `json:"values"`
	Identity *Identity         `json:"identity,omitempty"`
	IssuedAt time.Time         `json:"issued_at"`
	Flashes  []FlashMessage    `json:"flashes"`
}

// NewSessionManager constructs a SessionManager.
func NewSessionManager(client *redis.Client, cookieName string, ttl time.Duration, secure bool) *SessionManager {
	return &SessionManager{
		client:     client,
		cookieName: cookieName,
		ttl:        ttl,
		secure:     secure,
		now:        time.Now,
	}
}

// WithClock replaces the time source. Used by tests to simulate expiry.
func (sm *SessionManager) WithClock(now func() time.Time) *SessionManager {
	sm.now = now
	return sm
}

// Load loads or creates a new session for request.
func (sm *SessionManager) Load(ctx context.Context, r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(sm.cookieName)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return sm.newSession(), nil
		}
		return nil, err
	}

	payload, err := sm.client.Get(ctx, sm.redisKey(cookie.Value)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return sm.newSession(), nil
		}
		return nil, err
	}

	var stored sessionPayload
	if err := json.Unmarshal(payload, &stored); err != nil {
		return nil, err
	}

	if !stored.IssuedAt.IsZero() && !sm.now().Before(stored.IssuedAt.Add(sm.ttl)) {
		if err := sm.client.Del(ctx, sm.redisKey(cookie.Value)).Err(); err != nil {
			return nil, err
		}
		return sm.newSession(), nil
	}

	sess := sm.newSession()
	sess.ID = cookie.Value
	sess.values = stored.Values
	if sess.values == nil {
		sess.values = make(map[string]string)
	}
	sess.identity = stored.Identity
	sess.issuedAt = stored.IssuedAt
	sess.flashes = stored.Flashes
	sess.isNew = false
	sess.dirty = false
	return sess, nil
}

// Commit persists the session and writes cookie headers as needed.
func (sm *SessionManager) Commit(ctx context.Context, w http.ResponseWriter, r *http.Request, sess *Session) error {
	if sess == nil {
		return nil
	}

	if sess.destroyed {
		if err := sm.client.Del(ctx, sm.redisKey(sess.ID)).Err(); err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		http.SetCookie(w, &http.Cookie{
			Name:     sm.cookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   sm.secure,
			SameSite: http.SameSiteStrictMode,
		})
		return nil
	}

	// anonymous visitors that never wrote anything get no key and no cookie
	if sess.isNew && !sess.dirty {
		return nil
	}

	if sess.rotate {
		if sess.staleID != "" {
			if err := sm.client.Del(ctx, sm.redisKey(sess.staleID)).Err(); err != nil && !errors.Is(err, redis.Nil) {
				return err
			}
		}
		sess.isNew = true
	}

	if sess.dirty || sess.isNew {
		data, err := json.Marshal(sessionPayload{
			Values:   sess.values,
			Identity: sess.identity,
			IssuedAt: sess.issuedAt,
			Flashes:  sess.flashes,
		})
		if err != nil {
			return err
		}
		expiration := sm.ttl
		if !sess.isNew {
			expiration = redis.KeepTTL
		}
		if err := sm.client.Set(ctx, sm.redisKey(sess.ID), data, expiration).Err(); err != nil {
			return err
		}
		sess.dirty = false
		sess.rotate = false
		sess.staleID = ""
		sess.isNew = false
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sm.cookieName,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		Secure:   sm.secure,
		SameSite: http.SameSiteStrictMode,
		Expires:  sm.expiresAt(sess),
	})
	return nil
}

// Revoke deletes the stored sessions with the given ids. Their cookies
// then load as fresh anonymous sessions.
func (sm *SessionManager) Revoke(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = sm.redisKey(id)
	}
	if err := sm.client.Del(ctx, keys...).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("revoke sessions: %w: %w", ErrUnavailable, err)
	}
	return nil
}

// Destroy marks the session for deletion.
func (sm *SessionManager) Destroy(sess *Session) {
	if sess == nil {
		return
	}
	sess.destroyed = true
}

// TTL exposes the configured session lifetime.
func (sm *SessionManager) TTL() time.Duration {
	return sm.ttl
}

// CookieName returns the cookie identifier used for sessions.
func (sm *SessionManager) CookieName() string {
	return sm.cookieName
}

// Authenticate binds an identity to the session, rotating its ID and
// starting the absolute lifetime window.
func (sm *SessionManager) Authenticate(sess *Session, identity Identity) {
	if sess == nil {
		return
	}
	if !sess.isNew {
		sess.staleID = sess.ID
	}
	sess.ID = sm.generateSessionID()
	sess.identity = &identity
	sess.issuedAt = sm.now()
	// csrf tokens are bound to the previous id
	delete(sess.values, CSRFSessionKey)
	sess.rotate = true
	sess.dirty = true
}

// ExpiresAt reports when the session stops being valid.
func (sm *SessionManager) ExpiresAt(sess *Session) time.Time {
	return sm.expiresAt(sess)
}

func (sm *SessionManager) expiresAt(sess *Session) time.Time {
	if sess.issuedAt.IsZero() {
		return sm.now().Add(sm.ttl)
	}
	return sess.issuedAt.Add(sm.ttl)
}

// Session helpers

// Set stores a key-value pair.
func (s *Session) Set(key, value string) {
	if s.values == nil {
		s.values = make(map[string]string)
	}
	s.values[key] = value
	s.dirty = true
}

// Get retrieves a value.
func (s *Session) Get(key string) string {
	if s.values == nil {
		return ""
	}
	return s.values[key]
}

// Delete removes a value.
func (s *Session) Delete(key string) {
	if s.values == nil {
		return
	}
	delete(s.values, key)
	s.dirty = true
}

// Identity returns the authenticated principal snapshot, or nil.
func (s *Session) Identity() *Identity {
	if s == nil || s.identity == nil {
		return nil
	}
	id := *s.identity
	return &id
}

// IssuedAt returns the login time of an authenticated session.
func (s *Session) IssuedAt() time.Time {
	return s.issuedAt
}

// AddFlash queues a flash message.
func (s *Session) AddFlash(msg FlashMessage) {
	s.flashes = append(s.flashes, msg)
	s.dirty = true
}

// PopFlash retrieves and clears the oldest flash message.
func (s *Session) PopFlash() *FlashMessage {
	if len(s.flashes) == 0 {
		return nil
	}
	msg := s.flashes[0]
	s.flashes = s.flashes[1:]
	s.dirty = true
	return &msg
}

func (sm *SessionManager) newSession() *Session {
	return &Session{
		ID:     sm.generateSessionID(),
		values: make(map[string]string),
		isNew:  true,
	}
}

func (sm *SessionManager) redisKey(id string) string {
	return "session:" + id
}

func (sm *SessionManager) generateSessionID() string {
	return uuid.NewString()
}
