// ./internal/state/db.go
package state

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/rs/zerolog/log"
)

// DB is a global database connection pool.
var DB *sql.DB

// DBConfig holds database connection parameters.
type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string // "disable", "require", "verify-full", etc.
}

// InitDB initializes the database connection pool.
func InitDB(cfg DBConfig) error {
	psqlInfo := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	var err error
	DB, err = sql.Open("postgres", psqlInfo)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}

	DB.SetMaxOpenConns(25)
	DB.SetMaxIdleConns(25)
	DB.SetConnMaxLifetime(5 * time.Minute)

	err = DB.Ping()
	if err != nil {
		DB.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().Msg("Successfully connected to the PostgreSQL database!")
	return nil
}

// CloseDB closes the database connection pool.
func CloseDB() {
	if DB != nil {
		log.Info().Msg("Closing database connection...")
		if err := DB.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing database connection")
		}
	}
}

// EnsureSchema applies the necessary DDL to create tables if they don't exist.
func EnsureSchema() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	schemaSQL := `
		CREATE TABLE IF NOT EXISTS vault_configs (
			vault_id BIGINT PRIMARY KEY,
			strategy VARCHAR(255) NOT NULL,
			worker VARCHAR(255) NOT NULL,
			oracle VARCHAR(255) NOT NULL,
			deposit_paused BOOLEAN NOT NULL DEFAULT FALSE,
			withdraw_paused BOOLEAN NOT NULL DEFAULT FALSE,
			min_deposit_value BIGINT NOT NULL,
			min_deposit_scale SMALLINT NOT NULL,
			capacity_value BIGINT NOT NULL,
			capacity_scale SMALLINT NOT NULL,
			withdrawal_fee_bps BIGINT NOT NULL,
			management_fee_rate VARCHAR(80) NOT NULL,
			last_fee_collected BIGINT NOT NULL DEFAULT 0,
			tolerance_bps BIGINT NOT NULL,
			max_leverage BIGINT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE IF NOT EXISTS vault_managers (
			vault_id BIGINT NOT NULL,
			account VARCHAR(255) NOT NULL,
			allowed BOOLEAN NOT NULL DEFAULT FALSE,
			PRIMARY KEY (vault_id, account)
		);

		CREATE TABLE IF NOT EXISTS vault_assets (
			vault_id BIGINT NOT NULL,
			denom VARCHAR(128) NOT NULL,
			allowed BOOLEAN NOT NULL DEFAULT FALSE,
			PRIMARY KEY (vault_id, denom)
		);

		CREATE TABLE IF NOT EXISTS fee_exemptions (
			account VARCHAR(255) PRIMARY KEY,
			exempt BOOLEAN NOT NULL DEFAULT FALSE
		);

		CREATE TABLE IF NOT EXISTS operation_records (
			record_id SERIAL PRIMARY KEY,
			kind VARCHAR(16) NOT NULL,
			vault_id BIGINT NOT NULL,
			operation_id VARCHAR(64) NOT NULL,
			payload JSONB NOT NULL,
			record_timestamp TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_operation_records_timestamp ON operation_records(record_timestamp DESC);
		CREATE INDEX IF NOT EXISTS idx_operation_records_vault ON operation_records(vault_id);
		CREATE INDEX IF NOT EXISTS idx_operation_records_kind ON operation_records(kind);
	`
	_, err := DB.Exec(schemaSQL)
	if err != nil {
		return fmt.Errorf("failed to execute schema DDL: %w", err)
	}
	log.Info().Msg("Database schema ensured.")
	return nil
}

// TestDBConnection tests if the database connection is healthy
func TestDBConnection() error {
	if DB == nil {
		return fmt.Errorf("database connection is nil")
	}

	// Use a short timeout context for health checks
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := DB.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	return nil
}
