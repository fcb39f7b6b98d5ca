package recognition

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/dealdesk/intake-backend/internal/platform/config"
	"github.com/dealdesk/intake-backend/internal/platform/logger"
)

// PushChannel delivers recognition results as they happen. When the channel
// is disconnected the reconciler falls back to polling.
type PushChannel interface {
	Start(ctx context.Context, onResult func(Result)) error
	Connected() bool
	Close() error
}

type redisPush struct {
	log       *logger.Logger
	rdb       *goredis.Client
	channel   string
	connected atomic.Bool
}

func NewRedisPush(baseLog *logger.Logger, cfg config.RedisConfig) (PushChannel, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("missing redis addr")
	}
	channel := cfg.Channel
	if channel == "" {
		channel = "recognition"
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        cfg.Addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &redisPush{
		log:     baseLog.With("service", "RecognitionPush"),
		rdb:     rdb,
		channel: channel,
	}, nil
}

func (p *redisPush) Start(ctx context.Context, onResult func(Result)) error {
	if p == nil || p.rdb == nil {
		return fmt.Errorf("push channel not initialized")
	}
	if onResult == nil {
		return fmt.Errorf("onResult callback required")
	}

	sub := p.rdb.Subscribe(ctx, p.channel)

	// ensures subscription actually started
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}
	p.connected.Store(true)

	go func() {
		defer p.connected.Store(false)
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					_ = sub.Close()
					return
				}
				var res Result
				if err := json.Unmarshal([]byte(m.Payload), &res); err != nil {
					p.log.Warn("bad push payload", "error", err)
					continue
				}
				if res.RemoteID == "" {
					p.log.Warn("push payload without remote id")
					continue
				}
				onResult(res)
			}
		}
	}()

	return nil
}

func (p *redisPush) Connected() bool {
	return p != nil && p.connected.Load()
}

func (p *redisPush) Close() error {
	if p == nil || p.rdb == nil {
		return nil
	}
	return p.rdb.Close()
}

// Publish pushes a result into the channel. The inbound webhook handler uses
// this so every API instance sees events regardless of which one received the
// callback.
func (p *redisPush) Publish(ctx context.Context, res Result) error {
	raw, err := json.Marshal(res)
	if err != nil {
		return err
	}
	return p.rdb.Publish(ctx, p.channel, raw).Err()
}

// Publisher is implemented by push channels that can also emit results.
type Publisher interface {
	Publish(ctx context.Context, res Result) error
}
