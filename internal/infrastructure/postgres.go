package infrastructure

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresClient struct {
	Pool *pgxpool.Pool
}

func NewPostgresClient(connString string) (*PostgresClient, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse connection string: %w", err)
	}

	// Pool configuration
	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	// Verify connection
	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	client := &PostgresClient{Pool: pool}

	// Auto-migrate schema
	if err := client.Migrate(); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return client, nil
}

func (p *PostgresClient) Migrate() error {
	ctx := context.Background()

	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			user_id BIGINT PRIMARY KEY,
			first_name VARCHAR(255),
			username VARCHAR(255),
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS source_channels (
			user_id BIGINT NOT NULL,
			channel_id BIGINT NOT NULL,
			channel_name VARCHAR(255),
			added_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (user_id, channel_id)
		);`,
		`CREATE TABLE IF NOT EXISTS target_channels (
			user_id BIGINT NOT NULL,
			channel_id BIGINT NOT NULL,
			channel_name VARCHAR(255),
			added_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (user_id, channel_id)
		);`,
		`CREATE TABLE IF NOT EXISTS user_settings (
			user_id BIGINT PRIMARY KEY,
			hide_header BOOLEAN DEFAULT FALSE,
			forward_media BOOLEAN DEFAULT TRUE,
			url_previews BOOLEAN DEFAULT TRUE,
			remove_usernames BOOLEAN DEFAULT FALSE,
			remove_links BOOLEAN DEFAULT FALSE
		);`,
		`CREATE TABLE IF NOT EXISTS blacklist (
			user_id BIGINT NOT NULL,
			keyword VARCHAR(255) NOT NULL,
			PRIMARY KEY (user_id, keyword)
		);`,
		`CREATE TABLE IF NOT EXISTS whitelist (
			user_id BIGINT NOT NULL,
			keyword VARCHAR(255) NOT NULL,
			PRIMARY KEY (user_id, keyword)
		);`,
		`CREATE TABLE IF NOT EXISTS username_replacements (
			id SERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL,
			original VARCHAR(255) NOT NULL,
			replacement VARCHAR(255) NOT NULL,
			UNIQUE (user_id, original)
		);`,
		`CREATE TABLE IF NOT EXISTS link_replacements (
			id SERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL,
			original VARCHAR(512) NOT NULL,
			replacement VARCHAR(512) NOT NULL,
			UNIQUE (user_id, original)
		);`,
		`CREATE TABLE IF NOT EXISTS forward_stats (
			user_id BIGINT NOT NULL,
			day DATE NOT NULL,
			forwarded INT DEFAULT 0,
			dropped INT DEFAULT 0,
			PRIMARY KEY (user_id, day)
		);`,
		`CREATE TABLE IF NOT EXISTS admins (
			id SERIAL PRIMARY KEY,
			username VARCHAR(50) UNIQUE NOT NULL,
			password_hash VARCHAR(255) NOT NULL,
			role VARCHAR(20) DEFAULT 'admin',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);`,
	}

	for _, stmt := range statements {
		if _, err := p.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	return nil
}

func (p *PostgresClient) Close() {
	p.Pool.Close()
}
