// Package sqlite implements the domain repositories on an embedded SQLite
// database for single-node installs.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"fuellog/internal/domain"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// timeLayout keeps stored timestamps lexically ordered.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// DB wraps a *sql.DB and implements domain repository interfaces.
type DB struct {
	sql *sql.DB
	now func() time.Time
}

var (
	_ domain.FuelRepository    = (*DB)(nil)
	_ domain.UserRepository    = (*DB)(nil)
	_ domain.SessionRepository = (*SessionRepo)(nil)
)

// Open creates the database file if needed and runs migrations.
func Open(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	if err := runMigrations(path); err != nil {
		return nil, err
	}

	s, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows a single writer.
	s.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.PingContext(ctx); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &DB{sql: s, now: time.Now}, nil
}

// Close closes the underlying database connection.
func (d *DB) Close() error {
	return d.sql.Close()
}

func runMigrations(path string) error {
	migrateDB, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open migration database: %w", err)
	}

	driver, err := migratesqlite.WithInstance(migrateDB, &migratesqlite.Config{})
	if err != nil {
		_ = migrateDB.Close()
		return fmt.Errorf("create sqlite driver: %w", err)
	}

	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		_ = migrateDB.Close()
		return fmt.Errorf("create iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		_ = migrateDB.Close()
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close() //nolint:errcheck

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeLayout, s)
	return t
}

// --- FuelRepository ---

// ListFuelRecords returns every record owned by userID.
func (d *DB) ListFuelRecords(ctx context.Context, userID int64) ([]domain.FuelRecord, error) {
	rows, err := d.sql.QueryContext(ctx,
		"SELECT id, user_id, date, liters, price, currency, mileage, created_at FROM fuel_records WHERE user_id = ? ORDER BY date, created_at",
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	out := make([]domain.FuelRecord, 0)
	for rows.Next() {
		var (
			r       domain.FuelRecord
			created string
		)
		if err := rows.Scan(&r.ID, &r.UserID, &r.Date, &r.Liters, &r.Price, &r.Currency, &r.Mileage, &created); err != nil {
			return nil, err
		}
		r.CreatedAt = parseTime(created)
		out = append(out, r)
	}
	return out, rows.Err()
}

// CreateFuelRecord inserts a validated record and returns its id.
func (d *DB) CreateFuelRecord(ctx context.Context, userID int64, in domain.FuelRecordInput) (string, error) {
	id := uuid.NewString()
	_, err := d.sql.ExecContext(ctx,
		"INSERT INTO fuel_records (id, user_id, date, liters, price, currency, mileage, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		id, userID, in.Date, in.Liters, in.Price, in.Currency, in.Mileage, formatTime(d.now()),
	)
	if err != nil {
		return "", err
	}
	return id, nil
}

// UpdateFuelRecord applies patch to the stored record inside a transaction.
func (d *DB) UpdateFuelRecord(ctx context.Context, userID int64, id string, patch domain.FuelRecordPatch) error {
	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	var (
		r       domain.FuelRecord
		created string
	)
	err = tx.QueryRowContext(ctx,
		"SELECT id, user_id, date, liters, price, currency, mileage, created_at FROM fuel_records WHERE id = ? AND user_id = ?",
		id, userID,
	).Scan(&r.ID, &r.UserID, &r.Date, &r.Liters, &r.Price, &r.Currency, &r.Mileage, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrRecordNotFound
	}
	if err != nil {
		return err
	}
	r.CreatedAt = parseTime(created)

	updated, err := patch.Apply(r)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE fuel_records SET date = ?, liters = ?, price = ?, currency = ?, mileage = ? WHERE id = ? AND user_id = ?",
		updated.Date, updated.Liters, updated.Price, updated.Currency, updated.Mileage, id, userID,
	); err != nil {
		return fmt.Errorf("update fuel record: %w", err)
	}
	return tx.Commit()
}

// DeleteFuelRecord removes a record owned by userID.
func (d *DB) DeleteFuelRecord(ctx context.Context, userID int64, id string) error {
	res, err := d.sql.ExecContext(ctx, "DELETE FROM fuel_records WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrRecordNotFound
	}
	return nil
}

// --- UserRepository ---

func (d *DB) scanUser(row *sql.Row) (*domain.User, error) {
	var (
		u       domain.User
		created string
	)
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	u.CreatedAt = parseTime(created)
	return &u, nil
}

// GetByUsername retrieves a user by username.
func (d *DB) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return d.scanUser(d.sql.QueryRowContext(ctx,
		"SELECT id, username, password_hash, created_at FROM users WHERE username = ?", username))
}

// GetByID retrieves a user by ID.
func (d *DB) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return d.scanUser(d.sql.QueryRowContext(ctx,
		"SELECT id, username, password_hash, created_at FROM users WHERE id = ?", id))
}

// Create creates a new user.
func (d *DB) Create(ctx context.Context, username, passwordHash string) (*domain.User, error) {
	now := d.now().UTC()
	res, err := d.sql.ExecContext(ctx,
		"INSERT INTO users (username, password_hash, created_at) VALUES (?, ?, ?)",
		username, passwordHash, formatTime(now),
	)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &domain.User{ID: id, Username: username, PasswordHash: passwordHash, CreatedAt: now}, nil
}

// Count returns the total number of users.
func (d *DB) Count(ctx context.Context) (int, error) {
	var count int
	err := d.sql.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count)
	return count, err
}

// --- SessionRepository ---

// SessionRepo implements session repository operations on DB.
type SessionRepo struct {
	db *DB
}

// NewSessionRepo wraps a DB as a SessionRepository.
func NewSessionRepo(db *DB) *SessionRepo {
	return &SessionRepo{db: db}
}

// Create creates a new session.
func (r *SessionRepo) Create(ctx context.Context, userID int64, token, userAgent, ip string, expiresAt time.Time) error {
	_, err := r.db.sql.ExecContext(ctx,
		"INSERT INTO sessions (user_id, token, user_agent, ip, expires_at, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		userID, token, userAgent, ip, formatTime(expiresAt), formatTime(r.db.now()),
	)
	return err
}

// GetByToken retrieves a session by token.
func (r *SessionRepo) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	var (
		s                domain.Session
		expires, created string
	)
	err := r.db.sql.QueryRowContext(ctx,
		"SELECT token, user_id, user_agent, ip, expires_at, created_at FROM sessions WHERE token = ?",
		token,
	).Scan(&s.Token, &s.UserID, &s.UserAgent, &s.IP, &expires, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	s.ExpiresAt = parseTime(expires)
	s.CreatedAt = parseTime(created)
	return &s, nil
}

// Delete deletes a session by token.
func (r *SessionRepo) Delete(ctx context.Context, token string) error {
	_, err := r.db.sql.ExecContext(ctx, "DELETE FROM sessions WHERE token = ?", token)
	return err
}

// DeleteExpired deletes all expired sessions.
func (r *SessionRepo) DeleteExpired(ctx context.Context) error {
	_, err := r.db.sql.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at < ?", formatTime(r.db.now()))
	return err
}
