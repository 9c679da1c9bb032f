package mailer

import (
	"context"
	"sync"
)

var _ Mailer = (*Recorder)(nil)

// Sent is one message captured by a Recorder.
type Sent struct {
	To     string
	Secret string
	Reason Reason
}

// Recorder keeps every message in memory. Used by tests across packages.
type Recorder struct {
	mu   sync.Mutex
	sent []Sent
	Err  error
}

func (r *Recorder) Send(_ context.Context, toEmail, provisionalSecret string, reason Reason) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.sent = append(r.sent, Sent{To: toEmail, Secret: provisionalSecret, Reason: reason})
	return nil
}

func (r *Recorder) Sent() []Sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Sent(nil), r.sent...)
}

// Last returns the most recent message, or false if none was sent.
func (r *Recorder) Last() (Sent, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.sent) == 0 {
		return Sent{}, false
	}
	return r.sent[len(r.sent)-1], true
}
