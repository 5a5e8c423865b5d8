// Package database opens PostgreSQL connections and applies schema migrations.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/GFB-Team3/backend/internal/config"
)

const pingTimeout = 8 * time.Second

// Open connects to PostgreSQL. DATABASE_URL goes through the pgx stdlib
// driver; otherwise the discrete DB_* settings are used with lib/pq.
func Open(ctx context.Context, cfg config.DBConfig, log logrus.FieldLogger) (*sqlx.DB, error) {
	var (
		db  *sqlx.DB
		err error
	)

	if cfg.URL != "" {
		db, err = openPgx(cfg)
		if err != nil {
			return nil, err
		}
		log.WithField("force_ipv4", cfg.ForceIPv4).Info("Connecting to database via DATABASE_URL")
	} else {
		log.WithFields(logrus.Fields{
			"host":    cfg.Host,
			"port":    cfg.Port,
			"user":    cfg.User,
			"db":      cfg.Name,
			"sslmode": cfg.SSLMode,
		}).Info("Connecting to database")

		db, err = sqlx.Open("postgres", cfg.ConnString())
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
	}

	configurePool(db.DB, cfg)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	log.Info("Connected to database successfully")
	return db, nil
}

func openPgx(cfg config.DBConfig) (*sqlx.DB, error) {
	pgxCfg, err := pgx.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse DATABASE_URL: %w", err)
	}
	if cfg.ForceIPv4 {
		pgxCfg.DialFunc = func(ctx context.Context, network, addr string) (net.Conn, error) {
			d := &net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}
			return d.DialContext(ctx, "tcp4", addr)
		}
	}
	return sqlx.NewDb(stdlib.OpenDB(*pgxCfg), "pgx"), nil
}

func configurePool(db *sql.DB, cfg config.DBConfig) {
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleMinutes) * time.Minute)
	db.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)
}
