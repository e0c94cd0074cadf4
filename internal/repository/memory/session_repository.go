package memory

import (
	"sort"
	"sync"
	"time"

	"shoppinglens-be/internal/model"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

const (
	DefaultSessionTTL = 6 * time.Hour
	cleanupInterval   = 10 * time.Minute
)

// SessionView is a detached copy of a session used for read-only responses.
type SessionView struct {
	SessionID      string         `json:"session_id"`
	ActiveThreadID string         `json:"active_thread_id,omitempty"`
	Threads        []model.Thread `json:"threads"`
	CreatedAt      time.Time      `json:"created_at"`
}

// SessionRepository is the in-memory registry of sessions and their threads.
// Sessions idle for longer than the TTL are evicted; every access refreshes it.
type SessionRepository struct {
	mu    sync.Mutex
	cache *cache.Cache
	ttl   time.Duration
	now   func() time.Time
}

func NewSessionRepository(ttl time.Duration) *SessionRepository {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionRepository{
		cache: cache.New(ttl, cleanupInterval),
		ttl:   ttl,
		now:   time.Now,
	}
}

// GetOrCreateSession returns the session for id, creating it on first use.
// Repeated calls return the same pointer until EndSession is called. The
// pointer is live store state: do not read it while other goroutines call
// into the repository; use Snapshot or GetActiveThread for that.
func (r *SessionRepository) GetOrCreateSession(sessionID string) *model.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getOrCreateLocked(sessionID)
}

func (r *SessionRepository) getOrCreateLocked(sessionID string) *model.Session {
	if x, found := r.cache.Get(sessionID); found {
		session := x.(*model.Session)
		r.cache.Set(sessionID, session, r.ttl)
		return session
	}
	session := &model.Session{
		SessionID: sessionID,
		Active:    model.NoActiveThread{},
		Threads:   make(map[string]*model.Thread),
		CreatedAt: r.now().UTC(),
	}
	r.cache.Set(sessionID, session, r.ttl)
	return session
}

// StartNewThread creates a thread and installs it as the session's active thread,
// replacing whatever was active before. Older threads stay in the session.
func (r *SessionRepository) StartNewThread(sessionID, query string, seed *model.SearchSeed) model.Thread {
	r.mu.Lock()
	defer r.mu.Unlock()

	session := r.getOrCreateLocked(sessionID)
	thread := &model.Thread{
		ThreadID:   uuid.NewString(),
		Query:      query,
		SearchSeed: copySeed(seed),
		Messages:   []model.AgentPayload{},
		CreatedAt:  r.now().UTC(),
	}
	session.Threads[thread.ThreadID] = thread
	session.Active = model.ActiveThreadRef{ThreadID: thread.ThreadID}
	return copyThread(thread)
}

// GetActiveThread returns a copy of the active thread, if any.
func (r *SessionRepository) GetActiveThread(sessionID string) (model.Thread, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session := r.getOrCreateLocked(sessionID)
	ref, ok := session.Active.(model.ActiveThreadRef)
	if !ok {
		return model.Thread{}, false
	}
	thread, ok := session.Threads[ref.ThreadID]
	if !ok {
		return model.Thread{}, false
	}
	return copyThread(thread), true
}

// AppendMessage records a payload in the thread history. It does nothing when
// the session or thread is gone (for example after a concurrent EndSession).
func (r *SessionRepository) AppendMessage(sessionID, threadID string, payload model.AgentPayload) {
	r.mu.Lock()
	defer r.mu.Unlock()

	x, found := r.cache.Get(sessionID)
	if !found {
		return
	}
	thread, ok := x.(*model.Session).Threads[threadID]
	if !ok {
		return
	}
	thread.Messages = append(thread.Messages, payload)
}

// UpdateThreadQuery replaces the working query of an existing thread.
func (r *SessionRepository) UpdateThreadQuery(sessionID, threadID, query string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	x, found := r.cache.Get(sessionID)
	if !found {
		return false
	}
	thread, ok := x.(*model.Session).Threads[threadID]
	if !ok {
		return false
	}
	thread.Query = query
	return true
}

// EndSession drops the session and all of its threads.
func (r *SessionRepository) EndSession(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache.Delete(sessionID)
}

// Snapshot returns a copy of the session without creating it.
func (r *SessionRepository) Snapshot(sessionID string) (SessionView, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	x, found := r.cache.Get(sessionID)
	if !found {
		return SessionView{}, false
	}
	session := x.(*model.Session)
	view := SessionView{
		SessionID:      session.SessionID,
		ActiveThreadID: session.ActiveThreadID(),
		Threads:        make([]model.Thread, 0, len(session.Threads)),
		CreatedAt:      session.CreatedAt,
	}
	for _, t := range session.Threads {
		view.Threads = append(view.Threads, copyThread(t))
	}
	sort.SliceStable(view.Threads, func(i, j int) bool {
		return view.Threads[i].CreatedAt.Before(view.Threads[j].CreatedAt)
	})
	return view, true
}

// Count reports stored sessions, including expired ones not yet swept.
func (r *SessionRepository) Count() int {
	return r.cache.ItemCount()
}

func copyThread(t *model.Thread) model.Thread {
	out := *t
	out.SearchSeed = copySeed(t.SearchSeed)
	out.Messages = make([]model.AgentPayload, len(t.Messages))
	copy(out.Messages, t.Messages)
	return out
}

func copySeed(seed *model.SearchSeed) *model.SearchSeed {
	if seed == nil {
		return nil
	}
	out := *seed
	out.VisibleText = append([]string(nil), seed.VisibleText...)
	return &out
}

