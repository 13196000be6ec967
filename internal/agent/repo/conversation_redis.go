package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Chative-core-poc-v1/lexroute/internal/agent/model"
	errx "github.com/Chative-core-poc-v1/lexroute/internal/core/error"
	logx "github.com/Chative-core-poc-v1/lexroute/pkg/logger"
)

// recentKey is a sorted set of session keys scored by last update (unix millis).
const recentKey = "conversations:recent"

const turnsKeyPrefix = "conversation:"

type RedisConversationRepository struct {
	rdb redis.Cmdable
	ttl time.Duration
	now func() time.Time
}

func NewRedisConversationRepository(rdb redis.Cmdable, ttl time.Duration) *RedisConversationRepository {
	return &RedisConversationRepository{rdb: rdb, ttl: ttl, now: time.Now}
}

func (r *RedisConversationRepository) conversationKey(sessionKey string) string {
	return fmt.Sprintf("%s%s:turns", turnsKeyPrefix, sessionKey)
}

func sessionFromKey(key string) string {
	return strings.TrimSuffix(strings.TrimPrefix(key, turnsKeyPrefix), ":turns")
}

func (r *RedisConversationRepository) AppendTurns(ctx context.Context, sessionKey string, turns ...model.Turn) error {
	if len(turns) == 0 {
		return nil
	}

	vals := make([]any, 0, len(turns))
	for _, t := range turns {
		b, err := json.Marshal(t)
		if err != nil {
			logx.Error().Err(err).Str("session_key", sessionKey).Msg("failed to marshal turn")
			return fmt.Errorf("marshal turn: %w", err)
		}
		vals = append(vals, b)
	}
	key := r.conversationKey(sessionKey)

	// append and touch recency atomically
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, vals...)
		pipe.ZAdd(ctx, recentKey, redis.Z{Score: float64(r.now().UnixMilli()), Member: key})
		if r.ttl > 0 {
			pipe.Expire(ctx, key, r.ttl)
		}
		return nil
	})
	if err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to append turns to redis")
		return errx.WrapRedis(err)
	}
	return nil
}

func (r *RedisConversationRepository) LoadConversation(ctx context.Context, sessionKey string) (*model.Conversation, error) {
	key := r.conversationKey(sessionKey)

	rows, err := r.rdb.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return &model.Conversation{SessionKey: sessionKey, Turns: []model.Turn{}}, nil
		}
		logx.Error().Err(err).Str("key", key).Msg("failed to load conversation from redis")
		return nil, errx.WrapRedis(err)
	}

	turns := make([]model.Turn, 0, len(rows))
	for i, s := range rows {
		var t model.Turn
		if err := json.Unmarshal([]byte(s), &t); err != nil {
			logx.Error().Err(err).Str("session_key", sessionKey).Int("index", i).Msg("failed to unmarshal turn")
			return nil, fmt.Errorf("unmarshal turn at index %d: %w", i, err)
		}
		turns = append(turns, t)
	}
	return &model.Conversation{SessionKey: sessionKey, Turns: turns}, nil
}

// ListSessions pages through the recency index until limit live sessions are
// found, dropping expired sessions from the index as it goes.
func (r *RedisConversationRepository) ListSessions(ctx context.Context, limit int) ([]model.SessionSummary, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	out := make([]model.SessionSummary, 0, limit)
	var stale []any
	for start := int64(0); len(out) < limit; start += int64(limit) {
		entries, err := r.rdb.ZRevRangeWithScores(ctx, recentKey, start, start+int64(limit)-1).Result()
		if err != nil {
			logx.Error().Err(err).Str("key", recentKey).Msg("failed to read recent sessions")
			return nil, errx.WrapRedis(err)
		}
		if len(entries) == 0 {
			break
		}

		counts, err := r.turnCounts(ctx, entries)
		if err != nil {
			return nil, err
		}
		for i, z := range entries {
			key := fmt.Sprint(z.Member)
			if counts[i] == 0 {
				stale = append(stale, key)
				continue
			}
			if len(out) < limit {
				out = append(out, model.SessionSummary{
					SessionKey: sessionFromKey(key),
					TurnCount:  int(counts[i]),
					UpdatedAt:  time.UnixMilli(int64(z.Score)).UTC(),
				})
			}
		}
		if len(entries) < limit {
			break
		}
	}

	// pruned after paging so offsets stay stable
	if len(stale) > 0 {
		if err := r.rdb.ZRem(ctx, recentKey, stale...).Err(); err != nil {
			logx.Warn().Err(err).Int("stale", len(stale)).Msg("failed to prune expired sessions")
		}
	}
	return out, nil
}

func (r *RedisConversationRepository) turnCounts(ctx context.Context, entries []redis.Z) ([]int64, error) {
	cmds := make([]*redis.IntCmd, len(entries))
	_, err := r.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, z := range entries {
			cmds[i] = pipe.LLen(ctx, fmt.Sprint(z.Member))
		}
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		logx.Error().Err(err).Msg("failed to count session turns")
		return nil, errx.WrapRedis(err)
	}
	counts := make([]int64, len(cmds))
	for i, c := range cmds {
		counts[i] = c.Val()
	}
	return counts, nil
}

var _ model.ConversationRepository = (*RedisConversationRepository)(nil)
