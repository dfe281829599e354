// session/store.go
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/turnwell/gameserver/game"
	"github.com/turnwell/gameserver/logger"
	"github.com/turnwell/gameserver/timer"
)

var ErrSessionNotFound = errors.New("session not found")

const (
	DefaultSweepInterval = 5 * time.Minute
	DefaultIdleTimeout   = time.Hour
)

// Store 管理全部游戏会话。顶层 map 只在增删查时短暂加锁，
// 会话内部字段由各会话自己的锁保护。
type Store struct {
	sessions    map[string]*Session
	mutex       sync.RWMutex
	formulation *game.Formulation
	idleTimeout time.Duration
	sweepTaskId int64
	// OnEvict, when set, runs after a session is silently dropped by the
	// sweep. It is not called for owner-initiated deletes.
	OnEvict func(*Session)
}

func NewStore(f *game.Formulation, idleTimeout time.Duration) *Store {
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}
	return &Store{
		sessions:    make(map[string]*Session),
		formulation: f,
		idleTimeout: idleTimeout,
	}
}

// Create allocates a fresh session under a random 128-bit id.
func (st *Store) Create() *Session {
	sess := NewSession(uuid.New().String(), st.formulation)

	st.mutex.Lock()
	st.sessions[sess.ID] = sess
	st.mutex.Unlock()

	return sess
}

// Get looks a session up and refreshes its last-activity timestamp.
func (st *Store) Get(id string) (*Session, error) {
	st.mutex.RLock()
	sess, exists := st.sessions[id]
	st.mutex.RUnlock()

	if !exists {
		return nil, ErrSessionNotFound
	}
	sess.Touch()
	return sess, nil
}

// Delete removes the session from the map. Holders of the record may finish
// in-flight work, but the id no longer resolves.
func (st *Store) Delete(id string) {
	st.mutex.Lock()
	delete(st.sessions, id)
	st.mutex.Unlock()
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mutex.RLock()
	defer st.mutex.RUnlock()
	return len(st.sessions)
}

// Summaries lists all sessions for the session browser.
func (st *Store) Summaries() []Summary {
	st.mutex.RLock()
	sessions := make([]*Session, 0, len(st.sessions))
	for _, sess := range st.sessions {
		sessions = append(sessions, sess)
	}
	st.mutex.RUnlock()

	summaries := make([]Summary, 0, len(sessions))
	for _, sess := range sessions {
		summaries = append(summaries, sess.Summarize())
	}
	return summaries
}

// StartSweeper schedules idle-session eviction on the given manager.
func (st *Store) StartSweeper(tm *timer.Manager, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	st.sweepTaskId = tm.Schedule(interval, interval, st.Sweep)
}

// StopSweeper cancels the eviction task.
func (st *Store) StopSweeper(tm *timer.Manager) {
	if st.sweepTaskId != 0 {
		tm.Cancel(st.sweepTaskId)
		st.sweepTaskId = 0
	}
}

// Sweep drops every session idle past the threshold. A bad record is logged
// and removed rather than halting the pass.
func (st *Store) Sweep() {
	cutoff := time.Now().Add(-st.idleTimeout)

	st.mutex.RLock()
	candidates := make([]*Session, 0)
	for _, sess := range st.sessions {
		candidates = append(candidates, sess)
	}
	st.mutex.RUnlock()

	for _, sess := range candidates {
		st.sweepOne(sess, cutoff)
	}
}

func (st *Store) sweepOne(sess *Session, cutoff time.Time) {
	defer func() {
		if r := recover(); r != nil {
			logger.Log.Errorf("Sweep failed for session %s: %v, dropping it", sess.ID, r)
			st.Delete(sess.ID)
		}
	}()

	if sess.LastActive().After(cutoff) {
		return
	}

	st.Delete(sess.ID)
	logger.Log.Infof("Cleaned up inactive session: %s", sess.ID)
	if st.OnEvict != nil {
		st.OnEvict(sess)
	}
}
