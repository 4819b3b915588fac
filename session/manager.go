package session

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang/glog"
	"github.com/google/uuid"
	"github.com/hoshinonyaruko/snake-in-browser/snake"
	"github.com/hoshinonyaruko/snake-in-browser/structs"
)

// Session-related errors.
var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrInvalidSessionID = errors.New("invalid session id")
	ErrManagerStopped   = errors.New("session manager stopped")
)

const saveTimeout = 5 * time.Second

// Store persists sessions between server restarts.
type Store interface {
	Save(ctx context.Context, rec structs.SessionRecord) error
	Load(ctx context.Context) ([]structs.SessionRecord, error)
	Delete(ctx context.Context, id string) error
}

type Config struct {
	GridSize     int               // 新游戏的地图边长
	TickInterval time.Duration     // 每次移动的间隔
	IdleTimeout  time.Duration     // 无人操作多久后回收，0 表示不回收
	Store        Store             // 可选
	NewRand      func() *rand.Rand // 可选，测试时固定随机数
	Now          func() time.Time  // 可选
}

// Manager owns every running session.
type Manager struct {
	cfg      Config
	interval atomic.Int64
	sessions map[uuid.UUID]*Session
	stopped  bool
	wg       sync.WaitGroup
	sync.RWMutex
}

// NewManager creates a manager. No sessions are running until Create or Restore.
func NewManager(c Config) (*Manager, error) {
	if c.GridSize < snake.MinGridSize {
		return nil, fmt.Errorf("%w: %d", snake.ErrGridTooSmall, c.GridSize)
	}
	if c.TickInterval <= 0 {
		return nil, fmt.Errorf("tick interval must be positive, got %v", c.TickInterval)
	}
	if c.NewRand == nil {
		c.NewRand = func() *rand.Rand {
			return rand.New(rand.NewSource(time.Now().UnixNano()))
		}
	}
	if c.Now == nil {
		c.Now = time.Now
	}

	m := &Manager{
		cfg:      c,
		sessions: make(map[uuid.UUID]*Session),
	}
	m.interval.Store(int64(c.TickInterval))
	return m, nil
}

// Create starts a new game with a fresh id.
func (m *Manager) Create() (*Session, error) {
	e, err := snake.New(m.cfg.GridSize, snake.WithRand(m.cfg.NewRand()))
	if err != nil {
		return nil, err
	}
	s, err := m.add(uuid.New(), e)
	if err != nil {
		return nil, err
	}
	m.logf(s, "created, grid %d", m.cfg.GridSize)
	return s, nil
}

func (m *Manager) add(id uuid.UUID, e *snake.Engine) (*Session, error) {
	m.Lock()
	defer m.Unlock()
	if m.stopped {
		return nil, ErrManagerStopped
	}

	s := newSession(id, e, m)
	m.sessions[id] = s
	m.wg.Add(1)
	go s.run()
	return s, nil
}

// Get returns the running session with the given id.
func (m *Manager) Get(id string) (*Session, error) {
	parsedID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSessionID, err)
	}

	m.RLock()
	defer m.RUnlock()
	s, ok := m.sessions[parsedID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return s, nil
}

// Remove ends a session and deletes it from the store.
func (m *Manager) Remove(id string) error {
	s, err := m.Get(id)
	if err != nil {
		return err
	}

	m.Lock()
	delete(m.sessions, s.ID)
	m.Unlock()
	s.close()

	if err := m.forget(s); err != nil {
		return err
	}
	m.logf(s, "removed")
	return nil
}

// Len returns the number of running sessions.
func (m *Manager) Len() int {
	m.RLock()
	defer m.RUnlock()
	return len(m.sessions)
}

// Interval returns the current tick interval.
func (m *Manager) Interval() time.Duration {
	return time.Duration(m.interval.Load())
}

// SetInterval changes the tick interval of every running session from its next tick.
func (m *Manager) SetInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	m.interval.Store(int64(d))
}

// Restore starts the sessions found in the store. Games that were playing
// come back paused. Records that fail validation are skipped, and records
// untouched for longer than the idle timeout are deleted.
func (m *Manager) Restore(ctx context.Context) (int, error) {
	if m.cfg.Store == nil {
		return 0, nil
	}
	records, err := m.cfg.Store.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("loading sessions: %w", err)
	}

	restored := 0
	for _, rec := range records {
		id, err := uuid.Parse(rec.ID)
		if err != nil {
			glog.Warningf("skipping stored session %q: %v", rec.ID, err)
			continue
		}
		if m.stale(rec) {
			glog.Infof("dropping stale session %s", rec.ID)
			if err := m.cfg.Store.Delete(ctx, rec.ID); err != nil {
				glog.Errorf("deleting stale session %s: %v", rec.ID, err)
			}
			continue
		}
		if rec.State.Status == structs.Playing {
			rec.State.Status = structs.Paused
		}
		e, err := snake.Restore(rec.State, snake.WithRand(m.cfg.NewRand()))
		if err != nil {
			glog.Warningf("skipping stored session %s: %v", rec.ID, err)
			continue
		}
		if _, err := m.add(id, e); err != nil {
			return restored, err
		}
		restored++
	}
	return restored, nil
}

// StopAll ends every session, saves them and waits for their tickers to stop.
// The manager cannot create sessions afterwards.
func (m *Manager) StopAll() {
	m.Lock()
	m.stopped = true
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.sessions = make(map[uuid.UUID]*Session)
	m.Unlock()

	for _, s := range sessions {
		s.close()
		m.save(s, s.Record())
	}
	m.wg.Wait()
	glog.Infof("stopped %d sessions", len(sessions))
}

// evict drops an idle session and its stored copy. It is called from the
// session's own goroutine.
func (m *Manager) evict(s *Session) {
	m.Lock()
	if m.sessions[s.ID] == s {
		delete(m.sessions, s.ID)
	}
	m.Unlock()
	s.close()
	if err := m.forget(s); err != nil {
		glog.Errorf("%v", err)
	}
	m.logf(s, "evicted after %v idle", m.cfg.IdleTimeout)
}

// stale reports whether a stored record would already have been evicted.
func (m *Manager) stale(rec structs.SessionRecord) bool {
	timeout := m.cfg.IdleTimeout
	if timeout <= 0 {
		return false
	}
	return m.now().Sub(time.Unix(rec.UpdatedAt, 0)) > timeout
}

// save writes rec unless the session has been forgotten.
func (m *Manager) save(s *Session, rec structs.SessionRecord) {
	if m.cfg.Store == nil {
		return
	}
	s.storeMu.Lock()
	defer s.storeMu.Unlock()
	if s.forgotten {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	if err := m.cfg.Store.Save(ctx, rec); err != nil {
		glog.Errorf("saving session %s: %v", rec.ID, err)
	}
}

// forget deletes the stored copy of s. Later saves of s are dropped.
func (m *Manager) forget(s *Session) error {
	s.storeMu.Lock()
	defer s.storeMu.Unlock()
	s.forgotten = true
	if m.cfg.Store == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	if err := m.cfg.Store.Delete(ctx, s.ID.String()); err != nil {
		return fmt.Errorf("deleting session %s: %w", s.ID, err)
	}
	return nil
}

func (m *Manager) now() time.Time {
	return m.cfg.Now()
}

func (m *Manager) logf(s *Session, format string, args ...interface{}) {
	glog.Infof("[session %s] %s", s.ID, fmt.Sprintf(format, args...))
}
