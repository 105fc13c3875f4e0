package app

import (
	"context"
	"errors"
	"sync"
	"testing"

	"fuellog/internal/domain"
)

func TestFeed_SubscribeReceivesOwnUserOnly(t *testing.T) {
	repo := &mockFuelRepo{
		listFn: func(ctx context.Context, userID int64) ([]domain.FuelRecord, error) {
			return []domain.FuelRecord{{ID: "r", UserID: userID, Date: "2024-01-01"}}, nil
		},
	}
	feed := NewFeed(repo, nil)

	var one, two []Snapshot
	feed.Subscribe(1, func(s Snapshot) { one = append(one, s) })
	feed.Subscribe(2, func(s Snapshot) { two = append(two, s) })

	feed.Publish(context.Background(), 1)

	if len(one) != 1 {
		t.Fatalf("user 1: expected 1 snapshot, got %d", len(one))
	}
	if len(two) != 0 {
		t.Errorf("user 2: expected no snapshots, got %d", len(two))
	}
	if one[0].UserID != 1 || one[0].Records[0].UserID != 1 {
		t.Errorf("snapshot for wrong user: %+v", one[0])
	}
}

func TestFeed_VersionIncreases(t *testing.T) {
	feed := NewFeed(&mockFuelRepo{}, nil)

	first := feed.Publish(context.Background(), 1)
	second := feed.Publish(context.Background(), 2)
	current := feed.Current(context.Background(), 1)

	if second.Version <= first.Version {
		t.Errorf("version did not increase: %d then %d", first.Version, second.Version)
	}
	if current.Version != second.Version {
		t.Errorf("Current should report latest version %d, got %d", second.Version, current.Version)
	}
	if current.Records == nil {
		t.Error("Current should return a non-nil record slice")
	}
}

func TestFeed_Unsubscribe(t *testing.T) {
	feed := NewFeed(&mockFuelRepo{}, nil)

	calls := 0
	unsubscribe := feed.Subscribe(5, func(Snapshot) { calls++ })
	if feed.Subscribers(5) != 1 {
		t.Fatalf("expected 1 subscriber, got %d", feed.Subscribers(5))
	}

	unsubscribe()
	unsubscribe()
	feed.Publish(context.Background(), 5)

	if calls != 0 {
		t.Errorf("handler called %d times after unsubscribe", calls)
	}
	if feed.Subscribers(5) != 0 {
		t.Errorf("expected 0 subscribers, got %d", feed.Subscribers(5))
	}
}

func TestFeed_LoadErrorDeliversEmptySnapshot(t *testing.T) {
	boom := errors.New("db down")
	repo := &mockFuelRepo{
		listFn: func(ctx context.Context, userID int64) ([]domain.FuelRecord, error) {
			return nil, boom
		},
	}
	feed := NewFeed(repo, nil)

	var got Snapshot
	feed.SubscribeAll(func(s Snapshot) { got = s })
	feed.Publish(context.Background(), 4)

	if !errors.Is(got.Err, boom) {
		t.Errorf("expected load error to be surfaced, got %v", got.Err)
	}
	if got.Records == nil || len(got.Records) != 0 {
		t.Errorf("expected empty non-nil records, got %#v", got.Records)
	}
}

func TestFeed_ConcurrentPublish(t *testing.T) {
	feed := NewFeed(&mockFuelRepo{}, nil)

	var mu sync.Mutex
	seen := make(map[uint64]bool)
	feed.SubscribeAll(func(s Snapshot) {
		mu.Lock()
		seen[s.Version] = true
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func(user int64) {
			defer wg.Done()
			feed.Publish(context.Background(), user)
		}(int64(i % 3))
	}
	wg.Wait()

	if len(seen) != 20 {
		t.Errorf("expected 20 distinct versions, got %d", len(seen))
	}
}
