package statsync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// userContext pairs one user's document with its sync client and flush
// bookkeeping. Its lifetime bounds the document's lifetime.
type userContext struct {
	userID string
	doc    *Document
	client SyncClient

	// Flush state, guarded by the manager mutex. Exactly one flush may
	// be in flight per user; requests arriving meanwhile are coalesced.
	// No flush dispatches before the sign-in snapshot pull has been
	// applied: a flush racing the merge would commit its consumed count
	// against the replaced pending log.
	ready          bool
	inFlight       bool
	pendingFlush   bool
	flushRequested bool
	lastFlush      time.Time
}

type flushDone struct {
	uc       *userContext
	consumed int
	ack      Ack
	err      error
}

type pullDone struct {
	uc   *userContext
	snap *Snapshot
	err  error
}

// Manager owns one document per local user and multiplexes flush
// scheduling across them. Network calls run in the background and post
// completion records back to the manager; DoWork is the single drain
// point where completions are applied and events handed to the host.
type Manager struct {
	cfg   *Config
	store OfflineStore

	mu      sync.Mutex
	users   map[string]*userContext
	events  []Event
	flushes []flushDone
	pulls   []pullDone
	offline bool
	closed  bool

	wg sync.WaitGroup
}

// NewManager creates a sync manager.
func NewManager(cfg *Config) *Manager {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	store := cfg.Store
	if store == nil {
		store = NewMemoryStore()
	}
	return &Manager{
		cfg:   cfg,
		store: store,
		users: map[string]*userContext{},
	}
}

// AddLocalUser registers a user and starts a background snapshot pull.
// Adding an already-present user is a no-op.
func (m *Manager) AddLocalUser(userID string) error {
	if userID == "" {
		return fmt.Errorf("user id is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	if _, ok := m.users[userID]; ok {
		return nil
	}

	uc := &userContext{
		userID: userID,
		doc:    NewDocument(userID),
		client: m.cfg.syncClient(userID),
	}
	m.users[userID] = uc

	m.wg.Add(1)
	go m.pullSnapshot(uc)
	return nil
}

// RemoveLocalUser drops a user. A dirty document is persisted to the
// offline store first; a flush completion arriving after removal is
// discarded.
func (m *Manager) RemoveLocalUser(userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	uc, ok := m.users[userID]
	if !ok {
		return fmt.Errorf("user %q: %w", userID, ErrUserNotFound)
	}
	if uc.doc.IsDirty() {
		m.writeOffline(uc)
	}
	delete(m.users, userID)
	m.events = append(m.events, newEvent(EventLocalUserRemoved, userID))
	return nil
}

// SetStat writes a numeric stat for a user, gated by the compare policy.
func (m *Manager) SetStat(userID, name string, value float64, compare CompareType) (bool, error) {
	uc, err := m.user(userID)
	if err != nil {
		return false, err
	}
	return uc.doc.SetStat(name, value, compare)
}

// SetStatText writes a string stat for a user.
func (m *Manager) SetStatText(userID, name, value string) (bool, error) {
	uc, err := m.user(userID)
	if err != nil {
		return false, err
	}
	return uc.doc.SetStatText(name, value)
}

// GetStat returns the current locally-applied value of a stat.
func (m *Manager) GetStat(userID, name string) (StatValue, error) {
	uc, err := m.user(userID)
	if err != nil {
		return StatValue{}, err
	}
	return uc.doc.GetStat(name)
}

// StatNames returns the sorted stat names of a user's document.
func (m *Manager) StatNames(userID string) ([]string, error) {
	uc, err := m.user(userID)
	if err != nil {
		return nil, err
	}
	return uc.doc.StatNames(), nil
}

// Contexts returns a user's active context list.
func (m *Manager) Contexts(userID string) ([]StatContext, error) {
	uc, err := m.user(userID)
	if err != nil {
		return nil, err
	}
	return uc.doc.Contexts(), nil
}

// SetContexts replaces a user's active context list.
func (m *Manager) SetContexts(userID string, contexts []StatContext) error {
	uc, err := m.user(userID)
	if err != nil {
		return err
	}
	uc.doc.SetContexts(contexts)
	return nil
}

// ClearContexts removes all of a user's active contexts.
func (m *Manager) ClearContexts(userID string) error {
	uc, err := m.user(userID)
	if err != nil {
		return err
	}
	uc.doc.ClearContexts()
	return nil
}

// Document returns the user's document for direct reads.
func (m *Manager) Document(userID string) (*Document, error) {
	uc, err := m.user(userID)
	if err != nil {
		return nil, err
	}
	return uc.doc, nil
}

// IsOffline reports whether the last service exchange failed transiently.
func (m *Manager) IsOffline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.offline
}

// RequestFlush schedules a flush of a user's pending changes. A
// high-priority request dispatches immediately; otherwise the user is
// flushed on the next DoWork cycle. A request while a flush is in flight
// is coalesced rather than issuing a second concurrent push.
func (m *Manager) RequestFlush(userID string, highPriority bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	uc, ok := m.users[userID]
	if !ok {
		return fmt.Errorf("user %q: %w", userID, ErrUserNotFound)
	}

	if uc.inFlight {
		uc.pendingFlush = true
		return nil
	}
	if highPriority && uc.ready {
		m.startFlushLocked(uc)
		return nil
	}
	uc.flushRequested = true
	return nil
}

// DoWork applies completed background work, dispatches due flushes, and
// returns the drained event queue. The host calls it once per cycle; it
// is the only place events and per-user flush state are observed.
func (m *Manager) DoWork() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.applyPullsLocked()
	m.applyFlushesLocked()

	if !m.closed {
		now := time.Now()
		for _, uc := range m.users {
			if !uc.ready || uc.inFlight {
				continue
			}
			if !uc.doc.IsDirty() {
				uc.flushRequested = false
				continue
			}
			if uc.flushRequested || m.cfg.FlushInterval <= 0 || now.Sub(uc.lastFlush) >= m.cfg.FlushInterval {
				m.startFlushLocked(uc)
			}
		}
	}

	events := m.events
	m.events = nil
	return events
}

// Shutdown stops accepting work and waits for in-flight network calls.
// Remaining completions and events can still be drained with DoWork.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.mu.Unlock()

	m.wg.Wait()
}

func (m *Manager) user(userID string) (*userContext, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	uc, ok := m.users[userID]
	if !ok {
		return nil, fmt.Errorf("user %q: %w", userID, ErrUserNotFound)
	}
	return uc, nil
}

func (m *Manager) applyPullsLocked() {
	pulls := m.pulls
	m.pulls = nil
	for _, p := range pulls {
		current, ok := m.users[p.uc.userID]
		if !ok || current != p.uc {
			m.cfg.logger().Debug("discarding snapshot for removed user",
				zap.String("user_id", p.uc.userID))
			continue
		}

		event := newEvent(EventLocalUserAdded, p.uc.userID)
		switch {
		case p.err == nil:
			p.uc.doc.MergeSnapshot(p.snap)
			event.ServerVersion = p.snap.ServerVersion
			m.offline = false
		case m.cfg.shouldWriteOffline(p.err):
			// Service unreachable: fall back to the last persisted
			// document, unless local mutations already exist.
			m.offline = true
			event.Err = p.err
			if p.uc.doc.pendingCount() == 0 {
				if data, found, err := m.store.Load(p.uc.userID); err != nil {
					m.cfg.logger().Warn("offline store load failed",
						zap.String("user_id", p.uc.userID), zap.Error(err))
				} else if found {
					if err := p.uc.doc.RestoreState(data); err != nil {
						m.cfg.logger().Warn("offline document restore failed",
							zap.String("user_id", p.uc.userID), zap.Error(err))
					}
				}
			}
		default:
			event.Err = p.err
		}
		p.uc.ready = true
		m.events = append(m.events, event)
	}
}

func (m *Manager) applyFlushesLocked() {
	flushes := m.flushes
	m.flushes = nil
	for _, f := range flushes {
		current, ok := m.users[f.uc.userID]
		if !ok || current != f.uc {
			m.cfg.logger().Debug("discarding flush completion for removed user",
				zap.String("user_id", f.uc.userID))
			continue
		}

		f.uc.inFlight = false
		switch {
		case f.err == nil:
			f.uc.doc.CommitFlush(f.ack.ServerVersion, f.consumed)
			if err := m.store.Delete(f.uc.userID); err != nil {
				m.cfg.logger().Warn("offline store delete failed",
					zap.String("user_id", f.uc.userID), zap.Error(err))
			}
			m.offline = false
			event := newEvent(EventStatUpdateComplete, f.uc.userID)
			event.ServerVersion = f.ack.ServerVersion
			m.events = append(m.events, event)
		case m.cfg.shouldWriteOffline(f.err):
			// Transient: keep the pending log for a later retry and
			// persist the document so the changes survive a restart. The
			// retry runs on the next cycle, not after FlushInterval.
			m.writeOffline(f.uc)
			m.offline = true
			f.uc.flushRequested = true
			m.cfg.logger().Warn("flush failed, retrying later",
				zap.String("user_id", f.uc.userID), zap.Error(f.err))
		default:
			// Permanent rejection: retrying would loop forever, so the
			// offending batch is dropped and the failure surfaced.
			f.uc.doc.DiscardPending(f.consumed)
			event := newEvent(EventFlushFailed, f.uc.userID)
			event.Err = f.err
			m.events = append(m.events, event)
		}

		if f.uc.pendingFlush {
			f.uc.pendingFlush = false
			f.uc.flushRequested = true
		}
	}
}

func (m *Manager) startFlushLocked(uc *userContext) {
	delta, consumed, err := uc.doc.deltaForFlush()
	if err != nil {
		m.cfg.logger().Error("delta serialization failed",
			zap.String("user_id", uc.userID), zap.Error(err))
		return
	}
	if consumed == 0 {
		uc.flushRequested = false
		return
	}

	uc.inFlight = true
	uc.pendingFlush = false
	uc.flushRequested = false
	uc.lastFlush = time.Now()
	m.cfg.logger().Debug("dispatching flush",
		zap.String("user_id", uc.userID), zap.Int("mutations", consumed))

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ack, pushErr := uc.client.PushDelta(context.Background(), delta)
		m.mu.Lock()
		m.flushes = append(m.flushes, flushDone{uc: uc, consumed: consumed, ack: ack, err: pushErr})
		m.mu.Unlock()
	}()
}

func (m *Manager) pullSnapshot(uc *userContext) {
	defer m.wg.Done()
	snap, err := uc.client.PullSnapshot(context.Background())
	m.mu.Lock()
	m.pulls = append(m.pulls, pullDone{uc: uc, snap: snap, err: err})
	m.mu.Unlock()
}

// writeOffline persists the full document, pending log included. Errors
// are logged; offline persistence is best effort.
func (m *Manager) writeOffline(uc *userContext) {
	data, err := uc.doc.EncodeState()
	if err != nil {
		m.cfg.logger().Error("document encode failed",
			zap.String("user_id", uc.userID), zap.Error(err))
		return
	}
	if err := m.store.Save(uc.userID, data); err != nil {
		m.cfg.logger().Warn("offline store save failed",
			zap.String("user_id", uc.userID), zap.Error(err))
	}
}
