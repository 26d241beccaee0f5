package database

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/lib/pq"
)

type DB struct {
	conn *sql.DB
}

type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

func (c Config) ConnectionString() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, sslMode)
}

func Connect(cfg Config) (*DB, error) {
	conn, err := sql.Open("postgres", cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Printf("[DB] Connected to PostgreSQL at %s:%d", cfg.Host, cfg.Port)
	return &DB{conn: conn}, nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}

// Migrate creates the reference-data schema the refdata package queries
// from: airports, their runways, and the squawk-code range table. This
// package holds no aircraft-tracking tables — tracked state lives only
// in the pipeline engine's in-memory table, never persisted.
func (db *DB) Migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS airports (
		icao_code VARCHAR(4) PRIMARY KEY,
		iata_code VARCHAR(3),
		name VARCHAR(200) NOT NULL,
		type VARCHAR(20) NOT NULL,
		latitude_deg DOUBLE PRECISION NOT NULL,
		longitude_deg DOUBLE PRECISION NOT NULL,
		elevation_ft INTEGER
	);

	CREATE TABLE IF NOT EXISTS runways (
		id SERIAL PRIMARY KEY,
		airport_icao VARCHAR(4) NOT NULL REFERENCES airports(icao_code),
		le_ident VARCHAR(10),
		le_heading_degt DOUBLE PRECISION,
		le_latitude_deg DOUBLE PRECISION,
		le_longitude_deg DOUBLE PRECISION,
		he_ident VARCHAR(10),
		he_heading_degt DOUBLE PRECISION,
		he_latitude_deg DOUBLE PRECISION,
		he_longitude_deg DOUBLE PRECISION,
		length_ft INTEGER,
		width_ft INTEGER,
		surface VARCHAR(50),
		lighted BOOLEAN,
		closed BOOLEAN
	);

	CREATE INDEX IF NOT EXISTS idx_runways_airport_icao ON runways(airport_icao);

	CREATE TABLE IF NOT EXISTS squawk_ranges (
		id SERIAL PRIMARY KEY,
		low_code VARCHAR(4) NOT NULL,
		high_code VARCHAR(4) NOT NULL,
		category VARCHAR(50) NOT NULL,
		description VARCHAR(200)
	);

	CREATE INDEX IF NOT EXISTS idx_squawk_ranges_low_code ON squawk_ranges(low_code);
	`

	_, err := db.conn.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Printf("[DB] reference-data schema migrated")
	return nil
}

func (db *DB) Conn() *sql.DB {
	return db.conn
}

