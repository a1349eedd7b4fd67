package main

import (
	"context"

	"github.com/sanosuguru/go-seat-reservation/internal/config"
	"github.com/sanosuguru/go-seat-reservation/internal/domain/occupant"
	"github.com/sanosuguru/go-seat-reservation/internal/domain/seat"
	"github.com/sanosuguru/go-seat-reservation/internal/domain/transaction"
	"github.com/sanosuguru/go-seat-reservation/internal/infrastructure/postgres"
	"github.com/sanosuguru/go-seat-reservation/internal/infrastructure/sqlite"
)

// store は選択したドライバーのリポジトリ一式
type store struct {
	txManager transaction.Manager
	seats     seat.Repository
	occupants occupant.Repository
	ping      func(ctx context.Context) error
	close     func()
}

func openStore(ctx context.Context, cfg *config.DatabaseConfig) (*store, error) {
	if cfg.IsSQLite() {
		db, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return &store{
			txManager: sqlite.NewTxManager(db),
			seats:     sqlite.NewSeatRepository(db),
			occupants: sqlite.NewOccupantRepository(db),
			ping:      db.PingContext,
			close:     func() { db.Close() },
		}, nil
	}

	db, err := postgres.NewConnection(cfg)
	if err != nil {
		return nil, err
	}
	if _, err := postgres.RunMigrations(db.DB, cfg.MigrationsPath); err != nil {
		db.Close()
		return nil, err
	}
	return &store{
		txManager: postgres.NewTxManager(db),
		seats:     postgres.NewSeatRepository(db),
		occupants: postgres.NewOccupantRepository(db),
		ping:      func(ctx context.Context) error { return postgres.Ping(ctx, db) },
		close:     func() { db.Close() },
	}, nil
}
