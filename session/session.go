package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hoshinonyaruko/snake-in-browser/snake"
	"github.com/hoshinonyaruko/snake-in-browser/structs"
)

const subscriberBuffer = 4

// Session is one browser game: an engine plus the goroutine that ticks it.
// Every call on the engine goes through mu, so ticks and player input never
// overlap.
type Session struct {
	ID uuid.UUID

	engine     *snake.Engine
	manager    *Manager
	subs       map[chan structs.Snapshot]struct{}
	lastActive time.Time
	stop       chan struct{}
	stopOnce   sync.Once
	mu         sync.Mutex

	// storeMu 保证同一局的存取按顺序落库，forgotten 之后不再保存
	storeMu   sync.Mutex
	forgotten bool
}

func newSession(id uuid.UUID, e *snake.Engine, m *Manager) *Session {
	return &Session{
		ID:         id,
		engine:     e,
		manager:    m,
		subs:       make(map[chan structs.Snapshot]struct{}),
		lastActive: m.now(),
		stop:       make(chan struct{}),
	}
}

// run is the external scheduler for the engine: one Tick per interval.
func (s *Session) run() {
	defer s.manager.wg.Done()

	interval := s.manager.Interval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			// 配置热更新后调整节奏
			if d := s.manager.Interval(); d != interval {
				interval = d
				ticker.Reset(d)
			}
			s.tick()
			if s.idle() {
				s.manager.evict(s)
				return
			}
		}
	}
}

func (s *Session) tick() {
	s.mu.Lock()
	if s.engine.Status() != structs.Playing {
		s.mu.Unlock()
		return
	}
	s.engine.Tick()
	over := s.engine.Status() == structs.Over
	if len(s.subs) > 0 || over {
		s.publishLocked(s.engine.Snapshot())
	}
	var rec structs.SessionRecord
	if over {
		rec = s.recordLocked()
	}
	s.mu.Unlock()

	if over {
		s.manager.logf(s, "game over, score %d", rec.State.Score)
		s.manager.save(s, rec)
	}
}

// SetDirection forwards a direction intent to the engine. Invalid or
// reversing directions are ignored; the result says whether it was taken.
func (s *Session) SetDirection(d structs.Direction) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActive = s.manager.now()
	ok := s.engine.SetDirection(d)
	if ok {
		s.publishLocked(s.engine.Snapshot())
	}
	return ok
}

// TogglePause switches between playing and paused and returns the new snapshot.
func (s *Session) TogglePause() structs.Snapshot {
	return s.mutate(s.engine.TogglePause)
}

// Reset starts a new game in this session.
func (s *Session) Reset() structs.Snapshot {
	return s.mutate(s.engine.Reset)
}

func (s *Session) mutate(f func()) structs.Snapshot {
	s.mu.Lock()
	s.lastActive = s.manager.now()
	f()
	snap := s.engine.Snapshot()
	s.publishLocked(snap)
	rec := s.recordLocked()
	s.mu.Unlock()

	s.manager.save(s, rec)
	return snap
}

// Snapshot returns the current board.
func (s *Session) Snapshot() structs.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Snapshot()
}

// Record returns the session as stored in the database.
func (s *Session) Record() structs.SessionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recordLocked()
}

func (s *Session) recordLocked() structs.SessionRecord {
	return structs.SessionRecord{
		ID:        s.ID.String(),
		State:     s.engine.State(),
		UpdatedAt: s.manager.now().Unix(),
	}
}

// Subscribe returns a channel that receives a snapshot after every change,
// starting with the current one. Slow readers miss intermediate snapshots.
// The channel is closed by cancel or when the session ends.
func (s *Session) Subscribe() (<-chan structs.Snapshot, func()) {
	ch := make(chan structs.Snapshot, subscriberBuffer)

	s.mu.Lock()
	select {
	case <-s.stop:
		// 已经结束的游戏直接返回关闭的通道
		close(ch)
		s.mu.Unlock()
		return ch, func() {}
	default:
	}
	s.subs[ch] = struct{}{}
	s.lastActive = s.manager.now()
	ch <- s.engine.Snapshot()
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.subs[ch]; ok {
			delete(s.subs, ch)
			close(ch)
		}
		s.lastActive = s.manager.now()
	}
	return ch, cancel
}

func (s *Session) publishLocked(snap structs.Snapshot) {
	for ch := range s.subs {
		select {
		case ch <- snap:
		default:
			// 读得太慢，丢掉这一帧
		}
	}
}

func (s *Session) idle() bool {
	timeout := s.manager.cfg.IdleTimeout
	if timeout <= 0 {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs) == 0 && s.manager.now().Sub(s.lastActive) > timeout
}

// close stops the ticker goroutine and closes every subscriber channel.
func (s *Session) close() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		close(s.stop)
		for ch := range s.subs {
			close(ch)
		}
		s.subs = make(map[chan structs.Snapshot]struct{})
		s.mu.Unlock()
	})
}

// Done is closed when the session has ended.
func (s *Session) Done() <-chan struct{} {
	return s.stop
}
