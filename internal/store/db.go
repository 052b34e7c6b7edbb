// Package store keeps accounts and lifetime statistics in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

var (
	// ErrNotFound is returned when a row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a username or email is already taken.
	ErrDuplicate = errors.New("already exists")
)

// DB wraps the SQLite connection.
type DB struct {
	conn *sql.DB
}

// User is an account row.
type User struct {
	ID        int64
	Username  string
	Email     string
	PassHash  string
	CreatedAt time.Time
}

// Stats are an account's lifetime totals.
type Stats struct {
	UserID          int64   `json:"-"`
	Username        string  `json:"username"`
	BestScore       int     `json:"bestScore"`
	GamesPlayed     int     `json:"gamesPlayed"`
	TotalScore      int64   `json:"totalScore"`
	TotalKills      int     `json:"totalKills"`
	TotalDeaths     int     `json:"totalDeaths"`
	TotalTimePlayed float64 `json:"totalTimePlayed"` // seconds
}

// Open opens (or creates) the database at path and applies the schema.
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}
	// One writer at a time; the recorder batches anyway
	conn.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA foreign_keys=ON", "PRAGMA busy_timeout=5000"} {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrating schema: %w", err)
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		password TEXT NOT NULL,
		email TEXT UNIQUE,
		best_score INTEGER NOT NULL DEFAULT 0,
		games_played INTEGER NOT NULL DEFAULT 0,
		total_score INTEGER NOT NULL DEFAULT 0,
		total_kills INTEGER NOT NULL DEFAULT 0,
		total_deaths INTEGER NOT NULL DEFAULT 0,
		total_time_played REAL NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// CreateUser inserts an account and returns its id. An empty email is stored
// as NULL so it never clashes.
func (db *DB) CreateUser(ctx context.Context, username, email, passHash string) (int64, error) {
	var mail sql.NullString
	if email != "" {
		mail = sql.NullString{String: email, Valid: true}
	}
	res, err := db.conn.ExecContext(ctx,
		"INSERT INTO users (username, password, email) VALUES (?, ?, ?)",
		username, passHash, mail,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return 0, ErrDuplicate
		}
		return 0, fmt.Errorf("inserting user: %w", err)
	}
	return res.LastInsertId()
}

// UserByUsername looks up an account.
func (db *DB) UserByUsername(ctx context.Context, username string) (*User, error) {
	row := db.conn.QueryRowContext(ctx,
		"SELECT id, username, COALESCE(email, ''), password, CAST(strftime('%s', created_at) AS INTEGER) FROM users WHERE username = ?",
		username,
	)
	u := &User{}
	var created int64
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PassHash, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}
	u.CreatedAt = time.Unix(created, 0).UTC()
	return u, nil
}

const statsColumns = "id, username, best_score, games_played, total_score, total_kills, total_deaths, total_time_played"

type scanner interface {
	Scan(dest ...any) error
}

func scanStats(row scanner) (*Stats, error) {
	s := &Stats{}
	err := row.Scan(&s.UserID, &s.Username, &s.BestScore, &s.GamesPlayed, &s.TotalScore,
		&s.TotalKills, &s.TotalDeaths, &s.TotalTimePlayed)
	return s, err
}

// Stats returns the lifetime totals of an account.
func (db *DB) Stats(ctx context.Context, userID int64) (*Stats, error) {
	row := db.conn.QueryRowContext(ctx, "SELECT "+statsColumns+" FROM users WHERE id = ?", userID)
	s, err := scanStats(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying stats: %w", err)
	}
	return s, nil
}

// Leaderboard returns the top accounts ordered by sortBy, one of
// best_score, total_kills or total_score (anything else means best_score).
func (db *DB) Leaderboard(ctx context.Context, sortBy string, limit int) ([]Stats, error) {
	switch sortBy {
	case "best_score", "total_kills", "total_score":
	default:
		sortBy = "best_score"
	}
	rows, err := db.conn.QueryContext(ctx,
		"SELECT "+statsColumns+" FROM users ORDER BY "+sortBy+" DESC, id ASC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("querying leaderboard: %w", err)
	}
	defer rows.Close()

	result := []Stats{}
	for rows.Next() {
		s, err := scanStats(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}
	return result, rows.Err()
}

// Setting returns a value from the settings table.
func (db *DB) Setting(ctx context.Context, key string) (string, error) {
	var v string
	err := db.conn.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return v, err
}

// SetSetting stores a value in the settings table.
func (db *DB) SetSetting(ctx context.Context, key, value string) error {
	_, err := db.conn.ExecContext(ctx,
		"INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	return err
}
