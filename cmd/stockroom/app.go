package main

import (
	"context"
	"fmt"
	"log"

	"stockroom/internal/alerts"
	"stockroom/internal/config"
	"stockroom/internal/http/handlers"
	"stockroom/internal/metrics"
	"stockroom/internal/notify"
	"stockroom/internal/realtime"
	"stockroom/internal/repos"
	"stockroom/internal/services"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

// stack is the fully wired process: one DB pool shared by the API, the
// realtime channel and the sweeper.
type stack struct {
	db      *sqlx.DB
	redis   *redis.Client
	metrics *metrics.Metrics
	channel *realtime.Channel
	sweeper *alerts.Sweeper
	deps    *handlers.Deps
}

func build(ctx context.Context, cfg config.Config) (*stack, error) {
	db, err := repos.Open(cfg.DBDriver, cfg.DBDSN, cfg.MaxConns)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.DBDriver, err)
	}
	s := &stack{db: db, metrics: metrics.New(prometheus.NewRegistry())}

	users := repos.NewUserRepo(db)
	inv := repos.NewInventoryRepo(db)
	vendors := repos.NewVendorRepo(db)
	notes := repos.NewNotificationRepo(db)

	tokens := services.NewTokens(cfg.JWTSecret, cfg.JWTTTL)
	auth := services.NewAuthService(users, tokens)

	s.channel = realtime.NewChannel(realtime.NewRegistry(), auth, notes, inv, s.metrics, realtime.Options{
		AllowedOrigins: []string{cfg.FrontendURL},
		OwnershipCheck: cfg.RoomOwnershipCheck,
	})

	var pusher notify.Pusher = s.channel
	if cfg.NotificationServiceURL != "" {
		pusher = notify.NewHTTPPusher(cfg.NotificationServiceURL, cfg.PushTimeout, func(userID int64) (string, error) {
			u, err := users.ByID(userID)
			if err != nil {
				return "", err
			}
			return tokens.Issue(u)
		})
		log.Printf("[notify] pushing to %s", cfg.NotificationServiceURL)
	}
	dispatcher := notify.NewDispatcher(notes, pusher, s.metrics)

	var opts []alerts.Option
	if cfg.RedisAddr != "" {
		s.redis = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := s.redis.Ping(ctx).Err(); err != nil {
			log.Printf("[warn] redis %s unreachable, alert guard disabled: %v", cfg.RedisAddr, err)
			_ = s.redis.Close()
			s.redis = nil
		} else {
			opts = append(opts, alerts.WithGuard(alerts.NewRedisGuard(s.redis)))
		}
	}
	alerter := alerts.NewAlerter(notes, dispatcher, cfg.AlertWindow, s.metrics, opts...)
	s.sweeper = alerts.NewSweeper(inv, alerter, cfg.SweepInterval, s.metrics)

	s.deps = handlers.NewDeps(handlers.Services{
		Auth:          auth,
		Inventory:     services.NewInventoryService(inv, alerter),
		Vendors:       services.NewVendorService(vendors, inv, dispatcher),
		Notifications: services.NewNotificationService(notes, dispatcher, s.channel),
	}, s.metrics.Handler())
	return s, nil
}

func (s *stack) Close() {
	s.channel.Close()
	if s.redis != nil {
		_ = s.redis.Close()
	}
	_ = s.db.Close()
}
