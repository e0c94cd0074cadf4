package model

import "time"

// ActiveThread tells whether a session currently has a thread in focus.
// It is either NoActiveThread or ActiveThreadRef.
type ActiveThread interface {
	isActiveThread()
}

type NoActiveThread struct{}

type ActiveThreadRef struct {
	ThreadID string
}

func (NoActiveThread) isActiveThread()  {}
func (ActiveThreadRef) isActiveThread() {}

// Thread is one research conversation inside a session.
type Thread struct {
	ThreadID   string         `json:"thread_id"`
	Query      string         `json:"query"`
	SearchSeed *SearchSeed    `json:"search_seed,omitempty"`
	Messages   []AgentPayload `json:"messages"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Session groups every thread started under one caller-supplied id.
type Session struct {
	SessionID string
	Active    ActiveThread
	Threads   map[string]*Thread
	CreatedAt time.Time
}

// ActiveThreadID returns the active thread id, or "" when there is none.
func (s *Session) ActiveThreadID() string {
	switch a := s.Active.(type) {
	case ActiveThreadRef:
		return a.ThreadID
	case NoActiveThread:
		return ""
	default:
		return ""
	}
}
