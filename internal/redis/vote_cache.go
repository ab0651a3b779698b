package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"

	"github.com/google/uuid"
	"github.com/toonvote/toonvote/internal/domain"
	"github.com/toonvote/toonvote/internal/metrics"
)

const (
	breakerFailureThreshold = 5
	breakerOpenDuration     = 30 * time.Second
)

// VoteCache is the Redis-backed aggregate store for per-proposal vote
// counters and per-user voted flags. It holds derived state only: the
// authoritative ledger lives in Postgres and warmup can rebuild every key.
//
// All operations run through a circuit breaker so a dead Redis surfaces as
// a retryable error instead of hanging every request.
type VoteCache struct {
	rdb *goredis.Client
	cb  *gobreaker.CircuitBreaker
}

func NewVoteCache(rdb *goredis.Client) *VoteCache {
	settings := gobreaker.Settings{
		Name:    "vote-cache",
		Timeout: breakerOpenDuration,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailureThreshold
		},
		OnStateChange: func(_ string, _, to gobreaker.State) {
			switch to {
			case gobreaker.StateClosed:
				metrics.CacheCircuitState.Set(0)
			case gobreaker.StateHalfOpen:
				metrics.CacheCircuitState.Set(1)
			case gobreaker.StateOpen:
				metrics.CacheCircuitState.Set(2)
			}
		},
	}
	return &VoteCache{rdb: rdb, cb: gobreaker.NewCircuitBreaker(settings)}
}

func (c *VoteCache) IncrCount(ctx context.Context, proposalID int64, voteType domain.VoteType) error {
	_, err := c.do("incr_count", func() (any, error) {
		return nil, c.rdb.Incr(ctx, countKey(proposalID, voteType)).Err()
	})
	return err
}

func (c *VoteCache) DecrCount(ctx context.Context, proposalID int64, voteType domain.VoteType) error {
	_, err := c.do("decr_count", func() (any, error) {
		return nil, c.rdb.Decr(ctx, countKey(proposalID, voteType)).Err()
	})
	return err
}

// GetCount returns the cached counter for a (proposal, vote type) pair,
// defaulting to 0 when the key is absent.
func (c *VoteCache) GetCount(ctx context.Context, proposalID int64, voteType domain.VoteType) (int64, error) {
	v, err := c.do("get_count", func() (any, error) {
		n, err := c.rdb.Get(ctx, countKey(proposalID, voteType)).Int64()
		if errors.Is(err, goredis.Nil) {
			return int64(0), nil
		}
		return n, err
	})
	if err != nil {
		return 0, err
	}
	return v.(int64), nil
}

func (c *VoteCache) SetCount(ctx context.Context, proposalID int64, voteType domain.VoteType, value int64) error {
	_, err := c.do("set_count", func() (any, error) {
		return nil, c.rdb.Set(ctx, countKey(proposalID, voteType), value, 0).Err()
	})
	return err
}

// MarkVoted records a user's voted flag and adds the user to the proposal's
// voter set so ClearProposal can remove every flag without a key scan.
func (c *VoteCache) MarkVoted(ctx context.Context, userID uuid.UUID, proposalID int64) error {
	_, err := c.do("mark_voted", func() (any, error) {
		pipe := c.rdb.TxPipeline()
		pipe.Set(ctx, userKey(userID, proposalID), "1", 0)
		pipe.SAdd(ctx, votersKey(proposalID), userID.String())
		_, err := pipe.Exec(ctx)
		return nil, err
	})
	return err
}

func (c *VoteCache) HasVoted(ctx context.Context, userID uuid.UUID, proposalID int64) (bool, error) {
	v, err := c.do("has_voted", func() (any, error) {
		n, err := c.rdb.Exists(ctx, userKey(userID, proposalID)).Result()
		return n > 0, err
	})
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

func (c *VoteCache) UnmarkVoted(ctx context.Context, userID uuid.UUID, proposalID int64) error {
	_, err := c.do("unmark_voted", func() (any, error) {
		pipe := c.rdb.TxPipeline()
		pipe.Del(ctx, userKey(userID, proposalID))
		pipe.SRem(ctx, votersKey(proposalID), userID.String())
		_, err := pipe.Exec(ctx)
		return nil, err
	})
	return err
}

// ClearProposal deletes every counter and voted flag tied to a proposal.
// Called when the proposal itself is deleted.
func (c *VoteCache) ClearProposal(ctx context.Context, proposalID int64) error {
	_, err := c.do("clear_proposal", func() (any, error) {
		voters, err := c.rdb.SMembers(ctx, votersKey(proposalID)).Result()
		if err != nil {
			return nil, err
		}

		keys := make([]string, 0, len(voters)+len(domain.VoteTypes())+1)
		for _, voter := range voters {
			id, err := uuid.Parse(voter)
			if err != nil {
				continue // corrupt member, key is unreachable anyway
			}
			keys = append(keys, userKey(id, proposalID))
		}
		for _, voteType := range domain.VoteTypes() {
			keys = append(keys, countKey(proposalID, voteType))
		}
		keys = append(keys, votersKey(proposalID))

		return nil, c.rdb.Del(ctx, keys...).Err()
	})
	return err
}

func (c *VoteCache) do(op string, fn func() (any, error)) (any, error) {
	start := time.Now()
	v, err := c.cb.Execute(fn)
	metrics.CacheOpDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.CacheOpsTotal.WithLabelValues(op, "error").Inc()
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%s: %w", op, domain.ErrCacheUnavailable)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	metrics.CacheOpsTotal.WithLabelValues(op, "ok").Inc()
	return v, nil
}

// Key scheme is a deterministic composition of namespace, proposal id, and
// vote type or user id, so warmup and cleanup never need enumeration queries.
func countKey(proposalID int64, voteType domain.VoteType) string {
	return "similar:count:" + strconv.FormatInt(proposalID, 10) + ":" + string(voteType)
}

func userKey(userID uuid.UUID, proposalID int64) string {
	return "similar:user:" + userID.String() + ":" + strconv.FormatInt(proposalID, 10)
}

func votersKey(proposalID int64) string {
	return "similar:voters:" + strconv.FormatInt(proposalID, 10)
}
