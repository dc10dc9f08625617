package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Role is the author of a conversation turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Greeting opens every transcript.
const Greeting = "Hello! 👋 I'm your AI guide. How can I help you explore the city today?"

// Turn is one entry of the chat transcript.
type Turn struct {
	ID        string    `json:"id"`
	Seq       int       `json:"seq"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Transcript is an ordered, append-only conversation. The pending flag stands in for the
// transient "typing" turn and is never stored as a turn.
type Transcript struct {
	mu      sync.RWMutex
	turns   []Turn
	pending bool
	now     func() time.Time
}

// NewTranscript returns a transcript holding the greeting turn.
func NewTranscript() *Transcript {
	t := &Transcript{now: time.Now}
	t.Append(RoleModel, Greeting)
	return t
}

// Append adds a turn and returns it with its sequence number assigned.
func (t *Transcript) Append(role Role, text string) Turn {
	t.mu.Lock()
	defer t.mu.Unlock()

	turn := Turn{
		ID:        uuid.NewString(),
		Seq:       len(t.turns) + 1,
		Role:      role,
		Text:      text,
		CreatedAt: t.now().UTC(),
	}
	t.turns = append(t.turns, turn)
	return turn
}

// Turns returns a copy of all turns in order.
func (t *Transcript) Turns() []Turn {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Turn, len(t.turns))
	copy(out, t.turns)
	return out
}

// SetPending marks whether a reply is being generated.
func (t *Transcript) SetPending(p bool) {
	t.mu.Lock()
	t.pending = p
	t.mu.Unlock()
}

// Pending reports whether a reply is being generated.
func (t *Transcript) Pending() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.pending
}
