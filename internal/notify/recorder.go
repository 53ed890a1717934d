package notify

import (
	"context"
	"fmt"
	"sync"

	"github.com/yodateam/faceit-backend/internal/domain"
)

// SentMessage is one delivery captured by the Recorder.
type SentMessage struct {
	PlayerID int64
	Ref      domain.MessageRef
	Text     string
	Edited   bool
}

// Recorder is an in-memory Notifier for tests. Each send mints a unique
// ref so edit flows can be asserted on.
type Recorder struct {
	mu   sync.Mutex
	next int
	msgs []SentMessage
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Send(_ context.Context, playerID int64, text string) (domain.MessageRef, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	ref := domain.MessageRef(fmt.Sprintf("msg-%d", r.next))
	r.msgs = append(r.msgs, SentMessage{PlayerID: playerID, Ref: ref, Text: text})
	return ref, nil
}

func (r *Recorder) Edit(_ context.Context, playerID int64, ref domain.MessageRef, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, SentMessage{PlayerID: playerID, Ref: ref, Text: text, Edited: true})
	return nil
}

// Messages returns a copy of everything delivered so far.
func (r *Recorder) Messages() []SentMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]SentMessage, len(r.msgs))
	copy(out, r.msgs)
	return out
}

// MessagesFor filters deliveries by recipient.
func (r *Recorder) MessagesFor(playerID int64) []SentMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []SentMessage
	for _, m := range r.msgs {
		if m.PlayerID == playerID {
			out = append(out, m)
		}
	}
	return out
}
