package app

import (
	"context"
	"log/slog"
	"sync"

	"fuellog/internal/domain"
	applog "fuellog/internal/log"
)

// Snapshot is the complete record set of one user at a point in time.
// Err is set when the set could not be loaded; Records is then empty and
// consumers treat the snapshot as "no data".
type Snapshot struct {
	UserID  int64
	Version uint64
	Records []domain.FuelRecord
	Err     error
}

// SnapshotHandler receives full replacement snapshots. Handlers run on the
// publishing goroutine and must not block.
type SnapshotHandler func(Snapshot)

// Feed pushes a user's full record set to subscribers after every change.
type Feed struct {
	repo domain.FuelRepository
	log  *slog.Logger

	mu      sync.Mutex
	version uint64
	nextID  uint64
	users   map[int64]map[uint64]SnapshotHandler
	all     map[uint64]SnapshotHandler
}

// NewFeed creates a Feed that loads snapshots from repo.
func NewFeed(repo domain.FuelRepository, logger *slog.Logger) *Feed {
	if logger == nil {
		logger = slog.Default()
	}
	return &Feed{
		repo:  repo,
		log:   applog.WithComponent(logger, applog.ComponentFeed),
		users: make(map[int64]map[uint64]SnapshotHandler),
		all:   make(map[uint64]SnapshotHandler),
	}
}

// Subscribe registers h for userID's snapshots. The returned func removes it
// and is safe to call more than once.
func (f *Feed) Subscribe(userID int64, h SnapshotHandler) func() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextID++
	id := f.nextID
	if f.users[userID] == nil {
		f.users[userID] = make(map[uint64]SnapshotHandler)
	}
	f.users[userID][id] = h

	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.users[userID], id)
		if len(f.users[userID]) == 0 {
			delete(f.users, userID)
		}
	}
}

// SubscribeAll registers h for every user's snapshots.
func (f *Feed) SubscribeAll(h SnapshotHandler) func() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextID++
	id := f.nextID
	f.all[id] = h

	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.all, id)
	}
}

// Subscribers returns how many handlers are registered for userID.
func (f *Feed) Subscribers(userID int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.users[userID])
}

// Current loads userID's snapshot without notifying anyone.
func (f *Feed) Current(ctx context.Context, userID int64) Snapshot {
	f.mu.Lock()
	version := f.version
	f.mu.Unlock()
	return f.load(ctx, userID, version)
}

// Publish reloads userID's records and delivers the snapshot to every
// matching handler.
func (f *Feed) Publish(ctx context.Context, userID int64) Snapshot {
	f.mu.Lock()
	f.version++
	version := f.version
	f.mu.Unlock()

	snap := f.load(ctx, userID, version)

	f.mu.Lock()
	handlers := make([]SnapshotHandler, 0, len(f.users[userID])+len(f.all))
	for _, h := range f.users[userID] {
		handlers = append(handlers, h)
	}
	for _, h := range f.all {
		handlers = append(handlers, h)
	}
	f.mu.Unlock()

	for _, h := range handlers {
		h(snap)
	}
	return snap
}

func (f *Feed) load(ctx context.Context, userID int64, version uint64) Snapshot {
	records, err := f.repo.ListFuelRecords(ctx, userID)
	if err != nil {
		f.log.WarnContext(ctx, "snapshot load failed", "user_id", userID, "version", version, "error", err)
		return Snapshot{UserID: userID, Version: version, Records: []domain.FuelRecord{}, Err: err}
	}
	if records == nil {
		records = []domain.FuelRecord{}
	}
	return Snapshot{UserID: userID, Version: version, Records: records}
}
