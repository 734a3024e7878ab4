package pipeline

import (
	"sync"

	"github.com/forevershiningA/memorial/pkg/errors"
)

// ErrStale is returned when a render was superseded by a render of another
// design in the same session.
var ErrStale = errors.New(errors.ErrCodeStale, "derivation superseded by a newer design")

// Token identifies one render chain.
type Token struct {
	Session  string
	DesignID string
	gen      uint64
}

type sessionState struct {
	design string
	// switched is the generation at which design last changed.
	switched uint64
}

// Tracker hands out generation tokens per session. A token stays current
// until the session begins a chain for a different design; later chains
// for the same design do not invalidate it.
type Tracker struct {
	mu       sync.Mutex
	gen      uint64
	sessions map[string]*sessionState
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{sessions: make(map[string]*sessionState)}
}

// Begin starts a chain for designID in session.
func (t *Tracker) Begin(session, designID string) Token {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.gen++
	st, ok := t.sessions[session]
	if !ok {
		st = &sessionState{}
		t.sessions[session] = st
	}
	if !ok || st.design != designID {
		st.design = designID
		st.switched = t.gen
	}
	return Token{Session: session, DesignID: designID, gen: t.gen}
}

// Current reports whether tok's results may still be applied.
func (t *Tracker) Current(tok Token) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, ok := t.sessions[tok.Session]
	return ok && st.design == tok.DesignID && tok.gen >= st.switched
}

// Forget drops a session.
func (t *Tracker) Forget(session string) {
	t.mu.Lock()
	delete(t.sessions, session)
	t.mu.Unlock()
}
