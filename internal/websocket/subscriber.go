package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// Fanout is the hub-side surface the subscriber pushes into.
type Fanout interface {
	Broadcast(data []byte)
}

// Subscriber pumps snapshot payloads from the pub/sub bus into the hub.
// Payloads that are not valid JSON are dropped; the bus is shared and a
// misbehaving publisher must not reach clients.
type Subscriber struct {
	fanout   Fanout
	stopOnce sync.Once
	done     chan struct{}
	finished chan struct{}
}

// NewSubscriber starts pumping messages from ch into the fanout. The pump
// ends when ch closes or Stop is called.
func NewSubscriber(ch <-chan []byte, fanout Fanout) *Subscriber {
	s := &Subscriber{
		fanout:   fanout,
		done:     make(chan struct{}),
		finished: make(chan struct{}),
	}
	go s.run(ch)
	return s
}

func (s *Subscriber) run(ch <-chan []byte) {
	defer close(s.finished)
	for {
		select {
		case <-s.done:
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if !json.Valid(msg) {
				slog.Warn("Dropping malformed snapshot payload", "bytes", len(msg))
				continue
			}
			s.fanout.Broadcast(msg)
		}
	}
}

// Stop terminates the pump and waits for it to finish.
func (s *Subscriber) Stop() {
	s.stopOnce.Do(func() { close(s.done) })
	<-s.finished
}
