package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/encore/internal/config"
	"github.com/MrSnakeDoc/encore/internal/logger"
	"github.com/redis/go-redis/v9"
)

// DialOptions controls how the settings backend connects to Redis.
type DialOptions struct {
	Addr         string
	User         string
	Password     string
	DB           int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int

	ConnectTimeout time.Duration // total time spent retrying
	RetryInterval  time.Duration // first backoff step, doubled after each failure
	MaxWait        time.Duration // backoff cap
	PingTimeout    time.Duration
	WarnThreshold  int // failures logged at warn level before switching to error
}

// OptionsFromConfig maps the REDIS_* and ENCORE_REDIS_* settings.
func OptionsFromConfig(cfg *config.Config) DialOptions {
	return DialOptions{
		Addr:           cfg.RedisAddr,
		User:           cfg.RedisUser,
		Password:       cfg.RedisPassword,
		DB:             cfg.RedisDB,
		DialTimeout:    cfg.RedisDT,
		ReadTimeout:    cfg.RedisRT,
		WriteTimeout:   cfg.RedisWT,
		PoolSize:       cfg.RedisPoolSize,
		ConnectTimeout: cfg.RedisConnectTimeout,
		RetryInterval:  cfg.RedisRetryInterval,
		MaxWait:        cfg.RedisMaxWait,
		PingTimeout:    cfg.RedisPingTimeout,
		WarnThreshold:  cfg.RedisWarnThreshold,
	}
}

func (o DialOptions) validate() error {
	var errs []error
	for name, d := range map[string]time.Duration{
		"ConnectTimeout": o.ConnectTimeout,
		"RetryInterval":  o.RetryInterval,
		"MaxWait":        o.MaxWait,
		"PingTimeout":    o.PingTimeout,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be > 0, got %v", name, d))
		}
	}
	if o.WarnThreshold < 0 {
		errs = append(errs, fmt.Errorf("WarnThreshold must be >= 0, got %d", o.WarnThreshold))
	}
	if o.Addr == "" {
		errs = append(errs, errors.New("Addr is required"))
	}
	return errors.Join(errs...)
}

// backoff doubles the wait after every failed ping, up to max.
type backoff struct {
	wait time.Duration
	max  time.Duration
}

func (b *backoff) next() time.Duration {
	cur := b.wait
	b.wait *= 2
	if b.wait > b.max {
		b.wait = b.max
	}
	return cur
}

// Dial opens a client and pings it until it answers or ConnectTimeout runs
// out. Startup blocks here so the settings store never loads from a dead
// backend.
func Dial(ctx context.Context, opts DialOptions, log logger.Logger) (*redis.Client, error) {
	if err := opts.validate(); err != nil {
		return nil, fmt.Errorf("invalid redis options: %w", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Username:     opts.User,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  opts.DialTimeout,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
		PoolSize:     opts.PoolSize,
	})

	if err := waitReady(ctx, client, opts, log); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

func waitReady(ctx context.Context, client redis.Cmdable, opts DialOptions, log logger.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, opts.ConnectTimeout)
	defer cancel()

	log.Info("connecting to redis",
		logger.String("addr", opts.Addr),
		logger.Duration("timeout", opts.ConnectTimeout))

	start := time.Now()
	bo := &backoff{wait: opts.RetryInterval, max: opts.MaxWait}

	for attempt := 1; ; attempt++ {
		pingCtx, pingCancel := context.WithTimeout(ctx, opts.PingTimeout)
		err := client.Ping(pingCtx).Err()
		pingCancel()

		if err == nil {
			if attempt > 1 {
				log.Warn("connected to redis after retry",
					logger.String("addr", opts.Addr),
					logger.Int("attempts", attempt),
					logger.Duration("elapsed", time.Since(start)))
			} else {
				log.Info("connected to redis", logger.String("addr", opts.Addr))
			}
			return nil
		}

		wait := bo.next()
		fields := []logger.Field{
			logger.String("addr", opts.Addr),
			logger.Int("attempt", attempt),
			logger.Duration("next_retry_in", wait),
			logger.Error(err),
		}
		if attempt <= opts.WarnThreshold {
			log.Warn("redis connection failed, retrying", fields...)
		} else {
			log.Error("redis still unavailable", fields...)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			log.Error("redis unavailable, giving up",
				logger.String("addr", opts.Addr),
				logger.Int("attempts", attempt),
				logger.Error(err))
			return fmt.Errorf("redis unavailable at %s after %d attempts: %w", opts.Addr, attempt, err)
		case <-timer.C:
		}
	}
}
