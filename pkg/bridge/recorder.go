package bridge

import (
	"encoding/json"
	"sync"
)

// Recorder is an in-memory Sender that keeps every outbound message.
// It serves as the loopback transport of the console and of tests.
type Recorder struct {
	mu     sync.Mutex
	msgs   []*Message
	err    error
	onSend func(*Message)
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Send records msg.
func (r *Recorder) Send(msg *Message) error {
	r.mu.Lock()
	if r.err != nil {
		err := r.err
		r.mu.Unlock()
		return err
	}
	r.msgs = append(r.msgs, msg)
	hook := r.onSend
	r.mu.Unlock()

	if hook != nil {
		hook(msg)
	}
	return nil
}

// OnSend registers fn to observe each recorded message, for example to
// simulate remote replies. fn runs on the sending goroutine.
func (r *Recorder) OnSend(fn func(*Message)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onSend = fn
}

// FailWith makes subsequent sends fail with err; nil restores delivery.
func (r *Recorder) FailWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

// Messages returns a copy of the recorded messages.
func (r *Recorder) Messages() []*Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Message(nil), r.msgs...)
}

// Operations returns the operation names of invoke and call messages in
// send order.
func (r *Recorder) Operations() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ops []string
	for _, m := range r.msgs {
		if m.Kind == KindInvoke || m.Kind == KindCall {
			ops = append(ops, m.Operation)
		}
	}
	return ops
}

// Last returns the most recent message, or nil.
func (r *Recorder) Last() *Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.msgs) == 0 {
		return nil
	}
	return r.msgs[len(r.msgs)-1]
}

// Reset forgets recorded messages.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = nil
}

// ResultFor builds the result message answering call with v.
func ResultFor(call *Message, v any) (*Message, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return &Message{Kind: KindResult, ID: call.ID, TargetID: call.TargetID, Result: data}, nil
}

// ErrorFor builds the result message reporting a remote failure of call.
func ErrorFor(call *Message, reason string) *Message {
	return &Message{Kind: KindResult, ID: call.ID, TargetID: call.TargetID, Error: reason}
}
