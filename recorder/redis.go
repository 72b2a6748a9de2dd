package recorder

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/zeu5/dino-rl/dino"
)

type RedisConfig struct {
	Addr        string
	Password    string
	DB          int
	KeyPrefix   string
	MaxRecent   int64
	DialTimeout time.Duration
}

func (c *RedisConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = "localhost:6379"
	}
	if c.KeyPrefix == "" {
		c.KeyPrefix = "dino"
	}
	if c.MaxRecent == 0 {
		c.MaxRecent = 1000
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = time.Second
	}
}

// RedisRecorder keeps the most recent summaries in a list and every episode's
// distance in a sorted set
type RedisRecorder struct {
	config *RedisConfig
	client *redis.Client
}

var _ Recorder = &RedisRecorder{}

func NewRedisRecorder(ctx context.Context, config *RedisConfig) (*RedisRecorder, error) {
	config.SetDefaults()
	client := redis.NewClient(&redis.Options{
		Addr:        config.Addr,
		Password:    config.Password,
		DB:          config.DB,
		DialTimeout: config.DialTimeout,
	})
	pingCtx, cancel := context.WithTimeout(ctx, config.DialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, errors.Wrapf(err, "failed to reach redis at %s", config.Addr)
	}
	return &RedisRecorder{config: config, client: client}, nil
}

func (r *RedisRecorder) episodesKey() string {
	return r.config.KeyPrefix + ":episodes"
}

func (r *RedisRecorder) bestKey() string {
	return r.config.KeyPrefix + ":best"
}

func member(s dino.EpisodeSummary) string {
	return fmt.Sprintf("%s:%d", s.SessionID, s.Episode)
}

func (r *RedisRecorder) Record(ctx context.Context, s dino.EpisodeSummary) error {
	bs, err := json.Marshal(s)
	if err != nil {
		return err
	}
	pipe := r.client.TxPipeline()
	pipe.LPush(ctx, r.episodesKey(), bs)
	pipe.LTrim(ctx, r.episodesKey(), 0, r.config.MaxRecent-1)
	pipe.ZAdd(ctx, r.bestKey(), redis.Z{Score: s.Distance, Member: member(s)})
	_, err = pipe.Exec(ctx)
	return errors.Wrap(err, "failed to record episode")
}

// Recent returns up to n summaries, newest first
func (r *RedisRecorder) Recent(ctx context.Context, n int64) ([]dino.EpisodeSummary, error) {
	vals, err := r.client.LRange(ctx, r.episodesKey(), 0, n-1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]dino.EpisodeSummary, 0, len(vals))
	for _, v := range vals {
		var s dino.EpisodeSummary
		if err := json.Unmarshal([]byte(v), &s); err != nil {
			return nil, errors.Wrap(err, "corrupt episode entry")
		}
		out = append(out, s)
	}
	return out, nil
}

type BestEntry struct {
	Episode  string
	Distance float64
}

// Best returns the n episodes with the longest distance
func (r *RedisRecorder) Best(ctx context.Context, n int64) ([]BestEntry, error) {
	zs, err := r.client.ZRevRangeWithScores(ctx, r.bestKey(), 0, n-1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]BestEntry, len(zs))
	for i, z := range zs {
		m, _ := z.Member.(string)
		out[i] = BestEntry{Episode: m, Distance: z.Score}
	}
	return out, nil
}

func (r *RedisRecorder) Close() error {
	return r.client.Close()
}
