// Package ranking keeps open leads in a Redis sorted set ordered by overall score,
// so dashboards can page the hottest leads without touching Postgres.
package ranking

import (
	"context"
	"fmt"
	"time"

	"renolead_backend/internal/events"
	"renolead_backend/internal/leads/domain"
	"renolead_backend/platform/config"
	"renolead_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const DefaultKey = "leads:priority"

// applyScored writes a scored lead unless a newer score for it was already applied.
// KEYS[1] is the sorted set, KEYS[2] the hash of last-applied times in microseconds.
// ARGV: member, score, applied-at, terminal flag.
var applyScored = redis.NewScript(`
local last = redis.call('HGET', KEYS[2], ARGV[1])
if last and tonumber(last) > tonumber(ARGV[3]) then
	return 0
end
redis.call('HSET', KEYS[2], ARGV[1], ARGV[3])
if ARGV[4] == '1' then
	redis.call('ZREM', KEYS[1], ARGV[1])
else
	redis.call('ZADD', KEYS[1], ARGV[2], ARGV[1])
end
return 1
`)

// Entry is one ranked lead.
type Entry struct {
	LeadID  uuid.UUID
	Overall int
}

type Store struct {
	rdb *redis.Client
	key string
	log *logger.Logger
}

// NewRedisClient connects to REDIS_URL and verifies the connection.
func NewRedisClient(ctx context.Context, cfg config.RankingConfig) (*redis.Client, error) {
	if cfg.GetRedisURL() == "" {
		return nil, fmt.Errorf("redis url not configured")
	}
	opts, err := redis.ParseURL(cfg.GetRedisURL())
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func New(rdb *redis.Client, key string, log *logger.Logger) *Store {
	if key == "" {
		key = DefaultKey
	}
	return &Store{rdb: rdb, key: key, log: log}
}

// Record places the lead at its overall score. Terminal leads leave the ranking.
func (s *Store) Record(ctx context.Context, leadID uuid.UUID, overall int, status domain.Status) error {
	if status.IsTerminal() {
		return s.Remove(ctx, leadID)
	}
	return s.rdb.ZAdd(ctx, s.key, redis.Z{Score: float64(overall), Member: leadID.String()}).Err()
}

// Apply records a score computed at scoredAt and reports whether it was written.
// Scores older than the last one applied for the lead are dropped, so events
// delivered out of order cannot roll the ranking back.
func (s *Store) Apply(ctx context.Context, leadID uuid.UUID, overall int, status domain.Status, scoredAt time.Time) (bool, error) {
	if scoredAt.IsZero() {
		return true, s.Record(ctx, leadID, overall, status)
	}
	terminal := "0"
	if status.IsTerminal() {
		terminal = "1"
	}
	applied, err := applyScored.Run(ctx, s.rdb,
		[]string{s.key, s.appliedKey()},
		leadID.String(), overall, scoredAt.UnixMicro(), terminal,
	).Int()
	if err != nil {
		return false, err
	}
	return applied == 1, nil
}

func (s *Store) appliedKey() string {
	return s.key + ":applied"
}

func (s *Store) Remove(ctx context.Context, leadID uuid.UUID) error {
	return s.rdb.ZRem(ctx, s.key, leadID.String()).Err()
}

// Top returns up to limit leads, highest score first.
func (s *Store) Top(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		return nil, nil
	}
	zs, err := s.rdb.ZRevRangeWithScores(ctx, s.key, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}

	out := make([]Entry, 0, len(zs))
	for _, z := range zs {
		member, _ := z.Member.(string)
		id, err := uuid.Parse(member)
		if err != nil {
			s.log.Warn("dropping malformed ranking member", "key", s.key, "member", member)
			s.rdb.ZRem(ctx, s.key, member)
			continue
		}
		out = append(out, Entry{LeadID: id, Overall: int(z.Score)})
	}
	return out, nil
}

// Size is the number of ranked leads.
func (s *Store) Size(ctx context.Context) (int64, error) {
	return s.rdb.ZCard(ctx, s.key).Result()
}

// Subscribe keeps the ranking in step with persisted scores. Handlers run
// asynchronously, so each event is applied by its publish time.
func (s *Store) Subscribe(bus events.Bus) {
	bus.Subscribe(events.LeadScored{}.EventName(), events.HandlerFunc(func(ctx context.Context, e events.Event) error {
		scored, ok := e.(events.LeadScored)
		if !ok {
			return nil
		}
		status, _ := domain.ParseStatus(scored.Status)
		applied, err := s.Apply(ctx, scored.LeadID, scored.Overall, status, scored.OccurredAt())
		if err != nil {
			return err
		}
		if !applied {
			s.log.Debug("skipped stale lead score", "leadId", scored.LeadID, "scoredAt", scored.OccurredAt())
		}
		return nil
	}))
}
