package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"

	"github.com/toonvote/toonvote/internal/domain"
)

// snapshotChannel is the single well-known topic all instances observe.
const snapshotChannel = "similar:snapshot"

// PubSub provides cross-instance snapshot broadcast via Redis Pub/Sub.
type PubSub struct {
	rdb *goredis.Client
}

// NewPubSub creates a new PubSub instance.
func NewPubSub(rdb *goredis.Client) *PubSub {
	return &PubSub{rdb: rdb}
}

// PublishSnapshot publishes a proposal snapshot page to the snapshot topic.
func (ps *PubSub) PublishSnapshot(ctx context.Context, page domain.Page[domain.ProposalView]) error {
	data, err := json.Marshal(page)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return ps.rdb.Publish(ctx, snapshotChannel, data).Err()
}

// Subscription represents an active Pub/Sub subscription to the snapshot topic.
type Subscription struct {
	sub    *goredis.PubSub
	Ch     <-chan []byte
	cancel context.CancelFunc
}

// Close unsubscribes and closes the subscription.
func (s *Subscription) Close() {
	s.cancel()
	_ = s.sub.Close()
}

// Subscribe subscribes to snapshot messages. Returns a Subscription with a
// channel delivering the raw payloads; a slow receiver drops messages rather
// than backing up the bus. Call subscription.Close() when done.
func (ps *PubSub) Subscribe(ctx context.Context) *Subscription {
	sub := ps.rdb.Subscribe(ctx, snapshotChannel)

	subCtx, cancel := context.WithCancel(ctx)
	ch := make(chan []byte, 16)

	go func() {
		defer close(ch)
		msgCh := sub.Channel()
		for {
			select {
			case msg, ok := <-msgCh:
				if !ok {
					return
				}
				select {
				case ch <- []byte(msg.Payload):
				default:
					slog.Warn("Dropping snapshot message: subscriber is slow")
				}
			case <-subCtx.Done():
				return
			}
		}
	}()

	return &Subscription{
		sub:    sub,
		Ch:     ch,
		cancel: cancel,
	}
}
