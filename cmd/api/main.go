package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-seat-reservation/internal/api/handler"
	"github.com/sanosuguru/go-seat-reservation/internal/api/router"
	"github.com/sanosuguru/go-seat-reservation/internal/application"
	"github.com/sanosuguru/go-seat-reservation/internal/bus"
	"github.com/sanosuguru/go-seat-reservation/internal/config"
	"github.com/sanosuguru/go-seat-reservation/internal/domain/change"
	amqpinfra "github.com/sanosuguru/go-seat-reservation/internal/infrastructure/amqp"
	redisinfra "github.com/sanosuguru/go-seat-reservation/internal/infrastructure/redis"
	"github.com/sanosuguru/go-seat-reservation/internal/pkg/authtoken"
	"github.com/sanosuguru/go-seat-reservation/internal/pkg/logger"
	"github.com/sanosuguru/go-seat-reservation/internal/pkg/metrics"
	"github.com/sanosuguru/go-seat-reservation/internal/worker"
)

func main() {
	cfg := config.Load()
	logger.Set(logger.NewLogger(cfg.Env))
	defer func() { _ = logger.Sync() }()

	if cfg.Auth.JWTSecret == "" {
		logger.Fatal("JWT_SECRET が設定されていません")
	}

	m := metrics.Init()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ストア
	st, err := openStore(ctx, &cfg.Database)
	if err != nil {
		logger.Fatal("ストアの初期化に失敗しました", zap.Error(err))
	}
	defer st.close()
	checks := []handler.Check{{Name: "database", Fn: st.ping}}

	hub := bus.NewHub(m)
	publishers := change.Publishers{hub}

	// Redis（任意）: 座席ロック、座席一覧キャッシュ、インスタンス間の変更中継
	var (
		lockManager redisinfra.LockManagerInterface
		seatCache   redisinfra.SeatCacheInterface
		feed        *redisinfra.ChangeFeed
	)
	if cfg.Redis.Enabled {
		rdb := redisinfra.NewClient(&cfg.Redis)
		defer rdb.Close()
		if err := redisinfra.Ping(ctx, rdb); err != nil {
			logger.Fatal("Redis接続に失敗しました", zap.Error(err))
		}
		lockManager = redisinfra.NewLockManager(rdb)
		seatCache = redisinfra.NewSeatCache(rdb)
		checks = append(checks, handler.Check{Name: "redis", Fn: func(ctx context.Context) error {
			return redisinfra.Ping(ctx, rdb)
		}})

		feed = redisinfra.NewChangeFeed(rdb, cfg.Bus.RedisChannel)
		publishers = append(publishers, feed)
		logger.Info("Redisを有効化しました", zap.String("addr", cfg.Redis.Addr()))
	}

	// AMQP（任意）: 下流向けの変更キュー
	if cfg.Bus.AMQPURL != "" {
		pub, err := amqpinfra.Dial(cfg.Bus.AMQPURL, cfg.Bus.AMQPQueue)
		if err != nil {
			logger.Fatal("AMQP接続に失敗しました", zap.Error(err))
		}
		defer pub.Close()
		publishers = append(publishers, pub)
		logger.Info("変更キューを有効化しました", zap.String("queue", cfg.Bus.AMQPQueue))
	}

	opts := []application.Option{
		application.WithMetrics(m),
		application.WithLocation(cfg.Booking.Location()),
		application.WithLockSettings(cfg.Booking.LockTTL, cfg.Booking.LockRetries, cfg.Booking.LockRetryWait),
		application.WithCacheTTL(cfg.Redis.CacheTTL),
	}
	seatService := application.NewSeatService(st.txManager, st.seats, seatCache, publishers, opts...)
	reservationService := application.NewReservationService(st.txManager, st.seats, st.occupants, lockManager, seatCache, publishers, opts...)
	occupantService := application.NewOccupantService(st.occupants, publishers, opts...)
	if feed != nil {
		// 変更中継が途切れた後は Hub をストアの状態で埋め直す
		resync := func(ctx context.Context) error {
			return hub.Resync(ctx, func(ctx context.Context) ([]change.Event, error) {
				seats, err := seatService.CurrentEvents(ctx)
				if err != nil {
					return nil, err
				}
				occupants, err := occupantService.CurrentEvents(ctx)
				if err != nil {
					return nil, err
				}
				return append(seats, occupants...), nil
			})
		}
		go func() {
			if err := feed.Run(ctx, hub, resync); err != nil {
				logger.Error("変更チャンネルの購読が終了しました", zap.Error(err))
			}
		}()
	}

	e := router.New(router.Deps{
		Seats:        seatService,
		Reservations: reservationService,
		Occupants:    occupantService,
		Hub:          hub,
		Tokens:       authtoken.NewSigner(cfg.Auth.JWTSecret, cfg.Auth.Issuer),
		Location:     cfg.Booking.Location(),
		Metrics:      m,
		MetricsUser:  cfg.Server.MetricsUser,
		MetricsPass:  cfg.Server.MetricsPassword,
		HealthChecks: checks,
	})
	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout

	// 期限切れ予約の回収
	reconciler := worker.NewExpiredBookingReconciler(reservationService, cfg.Worker.ReconcileInterval)
	go reconciler.Start(ctx)

	// Graceful shutdown
	go func() {
		logger.Info("サーバーを起動します", zap.String("port", cfg.Server.Port), zap.String("driver", cfg.Database.Driver))
		if err := e.Start(fmt.Sprintf(":%s", cfg.Server.Port)); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("サーバー起動エラー", zap.Error(err))
		}
	}()

	// シグナル待機
	<-ctx.Done()
	logger.Info("サーバーをシャットダウンしています...")

	reconciler.Stop()
	// 変更ストリームの接続を先に閉じる
	hub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("サーバーシャットダウンエラー", zap.Error(err))
		stop()
		os.Exit(1)
	}

	logger.Info("サーバーが正常にシャットダウンしました")
}
