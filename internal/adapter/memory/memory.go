// Package memory implements an in-memory repository for development and testing.
package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"fuellog/internal/domain"

	"github.com/google/uuid"
)

// DB implements an in-memory database storage.
type DB struct {
	mu       sync.Mutex
	records  map[int64][]domain.FuelRecord
	users    []*domain.User
	sessions map[string]*domain.Session

	userIDCounter int64
	now           func() time.Time
}

// New creates a new in-memory database.
func New() *DB {
	return &DB{
		records:  make(map[int64][]domain.FuelRecord),
		sessions: make(map[string]*domain.Session),
		now:      time.Now,
	}
}

// Ensure interfaces are met.
var _ domain.FuelRepository = (*DB)(nil)
var _ domain.UserRepository = (*DB)(nil)
var _ domain.SessionRepository = (*SessionRepo)(nil)

// --- FuelRepository ---

// ListFuelRecords returns a copy of the user's records in insertion order.
func (db *DB) ListFuelRecords(ctx context.Context, userID int64) ([]domain.FuelRecord, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	result := make([]domain.FuelRecord, len(db.records[userID]))
	copy(result, db.records[userID])
	return result, nil
}

// CreateFuelRecord stores a new record and returns its generated id.
func (db *DB) CreateFuelRecord(ctx context.Context, userID int64, in domain.FuelRecordInput) (string, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	rec := domain.FuelRecord{
		ID:        uuid.NewString(),
		UserID:    userID,
		Date:      in.Date,
		Liters:    in.Liters,
		Price:     in.Price,
		Currency:  in.Currency,
		Mileage:   in.Mileage,
		CreatedAt: db.now().UTC(),
	}
	db.records[userID] = append(db.records[userID], rec)
	return rec.ID, nil
}

// UpdateFuelRecord applies patch to one of the user's records.
func (db *DB) UpdateFuelRecord(ctx context.Context, userID int64, id string, patch domain.FuelRecordPatch) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	for i, r := range db.records[userID] {
		if r.ID != id {
			continue
		}
		updated, err := patch.Apply(r)
		if err != nil {
			return err
		}
		db.records[userID][i] = updated
		return nil
	}
	return domain.ErrRecordNotFound
}

// DeleteFuelRecord removes one of the user's records.
func (db *DB) DeleteFuelRecord(ctx context.Context, userID int64, id string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	recs := db.records[userID]
	for i, r := range recs {
		if r.ID == id {
			db.records[userID] = append(recs[:i:i], recs[i+1:]...)
			return nil
		}
	}
	return domain.ErrRecordNotFound
}

// --- UserRepository ---

// GetByUsername retrieves a user by username.
func (db *DB) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, u := range db.users {
		if u.Username == username {
			return u, nil
		}
	}
	// Return nil if not found
	return nil, nil
}

// GetByID retrieves a user by ID.
func (db *DB) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, u := range db.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, nil
}

// Create creates a new user.
func (db *DB) Create(ctx context.Context, username, passwordHash string) (*domain.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, u := range db.users {
		if u.Username == username {
			return nil, errors.New("user already exists")
		}
	}

	db.userIDCounter++
	u := &domain.User{
		ID:           db.userIDCounter,
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    db.now().UTC(),
	}
	db.users = append(db.users, u)
	return u, nil
}

// Count returns the total number of users.
func (db *DB) Count(ctx context.Context) (int, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.users), nil
}

// --- SessionRepository ---

// SessionRepo implements session persistence.
type SessionRepo struct {
	db *DB
}

// NewSessionRepo creates a new session repository.
func (db *DB) NewSessionRepo() *SessionRepo {
	return &SessionRepo{db: db}
}

// Create creates a new session.
func (r *SessionRepo) Create(ctx context.Context, userID int64, token, userAgent, ip string, expiresAt time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	r.db.sessions[token] = &domain.Session{
		Token:     token,
		UserID:    userID,
		UserAgent: userAgent,
		IP:        ip,
		ExpiresAt: expiresAt,
		CreatedAt: r.db.now().UTC(),
	}
	return nil
}

// GetByToken retrieves a session by token. Expired sessions are returned so
// the caller can tell expiry from absence.
func (r *SessionRepo) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if s, ok := r.db.sessions[token]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, nil
}

// Delete deletes a session.
func (r *SessionRepo) Delete(ctx context.Context, token string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	delete(r.db.sessions, token)
	return nil
}

// DeleteExpired deletes all expired sessions.
func (r *SessionRepo) DeleteExpired(ctx context.Context) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	now := r.db.now()
	for k, v := range r.db.sessions {
		if now.After(v.ExpiresAt) {
			delete(r.db.sessions, k)
		}
	}
	return nil
}
