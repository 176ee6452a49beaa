package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/MrEthical07/goAccess/identity"
	"github.com/MrEthical07/goAccess/internal"
	"go.uber.org/zap"
)

// Config controls session lifetime and per-user limits.
type Config struct {
	// TTL is the absolute lifetime of a session from creation.
	TTL time.Duration
	// MaxPerUser caps live sessions per user. Zero disables the cap.
	MaxPerUser      int
	CleanupInterval time.Duration

	Store   Store
	Now     func() time.Time
	Logger  *zap.Logger
	OnEvent func(Event)
}

// Manager owns the session lifecycle. It is safe for concurrent use.
type Manager struct {
	cfg   Config
	store Store
	now   func() time.Time
	log   *zap.Logger

	// mu serializes read-modify-write paths so concurrent logins cannot overshoot
	// the cap and updates cannot resurrect deleted sessions.
	mu sync.Mutex
}

// NewManager validates cfg and returns a Manager. A nil Store defaults to a
// MemoryStore.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.TTL <= 0 {
		return nil, errors.New("session TTL must be > 0")
	}
	if cfg.MaxPerUser < 0 {
		return nil, errors.New("max sessions per user must be >= 0")
	}
	if cfg.CleanupInterval < 0 {
		return nil, errors.New("cleanup interval must be >= 0")
	}
	if cfg.Store == nil {
		cfg.Store = NewMemoryStore()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Manager{cfg: cfg, store: cfg.Store, now: cfg.Now, log: cfg.Logger}, nil
}

// TTL returns the configured session lifetime.
func (m *Manager) TTL() time.Duration { return m.cfg.TTL }

func (m *Manager) emit(events ...Event) {
	if m.cfg.OnEvent == nil {
		return
	}
	for _, ev := range events {
		m.cfg.OnEvent(ev)
	}
}

// CreateSession stores a new session for user and then enforces the per-user
// cap, evicting least recently used sessions if needed.
func (m *Manager) CreateSession(ctx context.Context, user identity.UserProfile, client identity.ClientInfo, provider string) (Record, error) {
	if strings.TrimSpace(user.ID) == "" {
		return Record{}, ErrMissingUserID
	}
	sid, err := internal.NewSessionID()
	if err != nil {
		return Record{}, fmt.Errorf("generate session id: %w", err)
	}
	classification := user.Classification
	if classification == "" {
		classification = identity.ClassificationOpen
	}
	if provider == "" {
		provider = user.Provider
	}

	now := m.now()
	rec := Record{
		ID:             sid,
		UserID:         user.ID,
		Provider:       provider,
		CreatedAt:      now,
		LastAccessedAt: now,
		ExpiresAt:      now.Add(m.cfg.TTL),
		ClientInfo:     client,
		Classification: classification,
	}

	m.mu.Lock()
	if err := m.store.Save(ctx, rec); err != nil {
		m.mu.Unlock()
		return Record{}, err
	}
	events := []Event{{Type: EventCreated, SessionID: rec.ID, UserID: rec.UserID, At: now}}
	var enforced []Event
	if m.cfg.MaxPerUser > 0 {
		_, enforced, err = m.enforceLocked(ctx, user.ID, m.cfg.MaxPerUser)
	}
	m.mu.Unlock()

	m.emit(append(events, enforced...)...)
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

// GetSession returns the session for id. An expired session is deleted on
// read and reported as ErrSessionExpired.
func (m *Manager) GetSession(ctx context.Context, id string) (Record, error) {
	rec, ok, err := m.store.Get(ctx, id)
	if err != nil {
		return Record{}, err
	}
	if !ok {
		return Record{}, ErrSessionNotFound
	}
	if !rec.ExpiredAt(m.now()) {
		return rec, nil
	}

	// The delete must not interleave with an UpdateSession saving the same record.
	m.mu.Lock()
	rec, events, err := m.loadLocked(ctx, id)
	m.mu.Unlock()
	m.emit(events...)
	return rec, err
}

// loadLocked reads id and removes it when expired. Callers hold m.mu.
func (m *Manager) loadLocked(ctx context.Context, id string) (Record, []Event, error) {
	rec, ok, err := m.store.Get(ctx, id)
	if err != nil {
		return Record{}, nil, err
	}
	if !ok {
		return Record{}, nil, ErrSessionNotFound
	}
	now := m.now()
	if !rec.ExpiredAt(now) {
		return rec, nil, nil
	}
	existed, err := m.store.Delete(ctx, id)
	if err != nil {
		return Record{}, nil, err
	}
	var events []Event
	if existed {
		events = append(events, Event{Type: EventExpired, SessionID: id, UserID: rec.UserID, At: now})
	}
	return Record{}, events, ErrSessionExpired
}

// UpdateSession merges u into the session and refreshes LastAccessedAt.
func (m *Manager) UpdateSession(ctx context.Context, id string, u Update) (Record, error) {
	m.mu.Lock()
	rec, events, err := m.loadLocked(ctx, id)
	if err == nil {
		u.apply(&rec)
		rec.LastAccessedAt = m.now()
		err = m.store.Save(ctx, rec)
	}
	m.mu.Unlock()

	m.emit(events...)
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

// TouchSession refreshes LastAccessedAt without changing other fields.
func (m *Manager) TouchSession(ctx context.Context, id string) (Record, error) {
	return m.UpdateSession(ctx, id, Update{})
}

// DeleteSession removes id. It is idempotent; a deletion event is emitted only
// when a record existed.
func (m *Manager) DeleteSession(ctx context.Context, id string) error {
	m.mu.Lock()
	rec, _, err := m.store.Get(ctx, id)
	var existed bool
	if err == nil {
		existed, err = m.store.Delete(ctx, id)
	}
	m.mu.Unlock()

	if err != nil {
		return err
	}
	if existed {
		m.emit(Event{Type: EventDeleted, SessionID: id, UserID: rec.UserID, At: m.now()})
	}
	return nil
}

// ValidateSession reports whether id names a live session.
func (m *Manager) ValidateSession(ctx context.Context, id string) bool {
	_, err := m.GetSession(ctx, id)
	return err == nil
}

// GetUserSessions returns the live sessions of userID ordered by creation.
// Expired sessions found along the way are removed.
func (m *Manager) GetUserSessions(ctx context.Context, userID string) ([]Record, error) {
	ids, err := m.store.UserSessionIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(ids))
	for _, id := range ids {
		rec, err := m.GetSession(ctx, id)
		if errors.Is(err, ErrSessionNotFound) || errors.Is(err, ErrSessionExpired) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// DeleteUserSessions removes every session of userID and returns how many existed.
func (m *Manager) DeleteUserSessions(ctx context.Context, userID string) (int, error) {
	ids, err := m.store.UserSessionIDs(ctx, userID)
	if err != nil {
		return 0, err
	}
	var (
		events []Event
		now    = m.now()
	)
	m.mu.Lock()
	for _, id := range ids {
		var existed bool
		if existed, err = m.store.Delete(ctx, id); err != nil {
			break
		}
		if existed {
			events = append(events, Event{Type: EventDeleted, SessionID: id, UserID: userID, At: now})
		}
	}
	m.mu.Unlock()

	m.emit(events...)
	return len(events), err
}

// EnforceMaxSessions trims userID down to max live sessions, evicting the least
// recently accessed first. Expired sessions are removed without counting
// toward the cap. It returns the evicted session ids.
func (m *Manager) EnforceMaxSessions(ctx context.Context, userID string, max int) ([]string, error) {
	m.mu.Lock()
	evicted, events, err := m.enforceLocked(ctx, userID, max)
	m.mu.Unlock()
	m.emit(events...)
	return evicted, err
}

func (m *Manager) enforceLocked(ctx context.Context, userID string, max int) ([]string, []Event, error) {
	if max < 0 {
		max = 0
	}
	ids, err := m.store.UserSessionIDs(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	now := m.now()
	var (
		live   = make([]Record, 0, len(ids))
		events []Event
	)
	for _, id := range ids {
		rec, ok, err := m.store.Get(ctx, id)
		if err != nil {
			return nil, events, err
		}
		if !ok {
			continue
		}
		if rec.ExpiredAt(now) {
			if existed, err := m.store.Delete(ctx, id); err != nil {
				return nil, events, err
			} else if existed {
				events = append(events, Event{Type: EventExpired, SessionID: id, UserID: userID, At: now})
			}
			continue
		}
		live = append(live, rec)
	}
	if len(live) <= max {
		return nil, events, nil
	}

	sortLRU(live)
	excess := live[:len(live)-max]
	evicted := make([]string, 0, len(excess))
	for _, rec := range excess {
		existed, err := m.store.Delete(ctx, rec.ID)
		if err != nil {
			return evicted, events, err
		}
		if existed {
			evicted = append(evicted, rec.ID)
			events = append(events, Event{Type: EventEvicted, SessionID: rec.ID, UserID: userID, At: now})
		}
	}
	m.log.Info("sessions evicted over per-user limit",
		zap.String("user_id", userID),
		zap.Int("max", max),
		zap.Int("evicted", len(evicted)),
	)
	return evicted, events, nil
}

// sortLRU orders by LastAccessedAt ascending, then CreatedAt, then ID.
func sortLRU(recs []Record) {
	sort.Slice(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if !a.LastAccessedAt.Equal(b.LastAccessedAt) {
			return a.LastAccessedAt.Before(b.LastAccessedAt)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

// CleanupExpiredSessions deletes every expired session and returns the count.
func (m *Manager) CleanupExpiredSessions(ctx context.Context) (int, error) {
	all, err := m.store.All(ctx)
	if err != nil {
		return 0, err
	}
	now := m.now()
	var events []Event
	m.mu.Lock()
	for _, rec := range all {
		if !rec.ExpiredAt(now) {
			continue
		}
		var existed bool
		if existed, err = m.store.Delete(ctx, rec.ID); err != nil {
			break
		}
		if existed {
			events = append(events, Event{Type: EventExpired, SessionID: rec.ID, UserID: rec.UserID, At: now})
		}
	}
	m.mu.Unlock()

	m.emit(events...)
	if len(events) > 0 {
		m.log.Debug("expired sessions swept", zap.Int("count", len(events)))
	}
	return len(events), err
}

// RunCleanup sweeps expired sessions every CleanupInterval until ctx is
// cancelled. A zero interval disables the loop.
func (m *Manager) RunCleanup(ctx context.Context) error {
	if m.cfg.CleanupInterval <= 0 {
		return nil
	}
	ticker := time.NewTicker(m.cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := m.CleanupExpiredSessions(ctx); err != nil {
				m.log.Error("session cleanup failed", zap.Error(err))
			}
		}
	}
}

// Count returns the number of stored sessions, including expired ones not yet swept.
func (m *Manager) Count(ctx context.Context) (int, error) {
	return m.store.Count(ctx)
}
