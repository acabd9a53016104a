package db

import (
	"database/sql"
	"fmt"
	"time"

	"shopora-be/internal/config"
	"shopora-be/internal/logger"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

const (
	maxOpenConns    = 25
	maxIdleConns    = 5
	connMaxLifetime = 30 * time.Minute
)

// InitDB opens the Postgres pool and verifies connectivity before the server
// starts taking traffic. Connection failure at boot is fatal.
func InitDB(cfg *config.Config) *sql.DB {
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort,
	)

	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		logger.L().Fatal("open database", zap.Error(err))
	}

	conn.SetMaxOpenConns(maxOpenConns)
	conn.SetMaxIdleConns(maxIdleConns)
	conn.SetConnMaxLifetime(connMaxLifetime)

	if err = conn.Ping(); err != nil {
		logger.L().Fatal("ping database", zap.Error(err))
	}

	logger.L().Info("database connection established",
		zap.String("host", cfg.DBHost),
		zap.String("database", cfg.DBName))
	return conn
}
