// Package storetest holds behaviour checks shared by every repository
// adapter.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"fuellog/internal/domain"
)

// Store is what a full persistence backend provides.
type Store interface {
	domain.FuelRepository
	domain.UserRepository
}

// Run exercises users, fuel records and sessions against a fresh store.
func Run(t *testing.T, store Store, sessions domain.SessionRepository) {
	t.Helper()
	t.Run("users", func(t *testing.T) { testUsers(t, store) })
	t.Run("fuel records", func(t *testing.T) { testFuelRecords(t, store) })
	t.Run("sessions", func(t *testing.T) { testSessions(t, store, sessions) })
}

func testUsers(t *testing.T, users domain.UserRepository) {
	ctx := context.Background()

	u, err := users.Create(ctx, "carol", "hash")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if u.ID == 0 || u.Username != "carol" {
		t.Errorf("unexpected user: %+v", u)
	}
	if _, err := users.Create(ctx, "carol", "hash"); err == nil {
		t.Error("expected duplicate username to fail")
	}

	byName, err := users.GetByUsername(ctx, "carol")
	if err != nil || byName == nil || byName.ID != u.ID {
		t.Errorf("GetByUsername = %+v, %v", byName, err)
	}
	byID, err := users.GetByID(ctx, u.ID)
	if err != nil || byID == nil || byID.Username != "carol" {
		t.Errorf("GetByID = %+v, %v", byID, err)
	}
	missing, err := users.GetByUsername(ctx, "nobody")
	if err != nil || missing != nil {
		t.Errorf("missing user should be nil, nil; got %+v, %v", missing, err)
	}
}

func testFuelRecords(t *testing.T, store Store) {
	ctx := context.Background()

	alice, err := store.Create(ctx, "alice", "")
	if err != nil {
		t.Fatalf("Create alice: %v", err)
	}
	bob, err := store.Create(ctx, "bob", "")
	if err != nil {
		t.Fatalf("Create bob: %v", err)
	}

	id1, err := store.CreateFuelRecord(ctx, alice.ID, domain.FuelRecordInput{Date: "2024-01-01", Liters: 40, Price: 68000, Currency: "KRW", Mileage: 10000})
	if err != nil {
		t.Fatalf("CreateFuelRecord: %v", err)
	}
	id2, err := store.CreateFuelRecord(ctx, alice.ID, domain.FuelRecordInput{Date: "2024-01-15", Liters: 30, Price: 51000, Currency: "KRW", Mileage: 10400})
	if err != nil {
		t.Fatalf("CreateFuelRecord: %v", err)
	}
	if id1 == "" || id1 == id2 {
		t.Fatalf("expected distinct ids, got %q and %q", id1, id2)
	}

	records, err := store.ListFuelRecords(ctx, alice.ID)
	if err != nil {
		t.Fatalf("ListFuelRecords: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	for _, r := range records {
		if r.UserID != alice.ID {
			t.Errorf("record %s owned by %d", r.ID, r.UserID)
		}
		if r.CreatedAt.IsZero() {
			t.Errorf("record %s has no createdAt", r.ID)
		}
	}

	others, err := store.ListFuelRecords(ctx, bob.ID)
	if err != nil {
		t.Fatalf("ListFuelRecords: %v", err)
	}
	if len(others) != 0 {
		t.Errorf("bob should see no records, got %d", len(others))
	}

	mileage := int64(10050)
	if err := store.UpdateFuelRecord(ctx, alice.ID, id1, domain.FuelRecordPatch{Mileage: &mileage}); err != nil {
		t.Fatalf("UpdateFuelRecord: %v", err)
	}
	got := find(t, store, alice.ID, id1)
	if got.Mileage != 10050 || got.Liters != 40 {
		t.Errorf("unexpected record after update: %+v", got)
	}

	if err := store.UpdateFuelRecord(ctx, bob.ID, id1, domain.FuelRecordPatch{Mileage: &mileage}); !errors.Is(err, domain.ErrRecordNotFound) {
		t.Errorf("cross-user update: expected ErrRecordNotFound, got %v", err)
	}
	badDate := "soon"
	if err := store.UpdateFuelRecord(ctx, alice.ID, id1, domain.FuelRecordPatch{Date: &badDate}); !errors.Is(err, domain.ErrInvalidRecord) {
		t.Errorf("invalid patch: expected ErrInvalidRecord, got %v", err)
	}

	if err := store.DeleteFuelRecord(ctx, bob.ID, id1); !errors.Is(err, domain.ErrRecordNotFound) {
		t.Errorf("cross-user delete: expected ErrRecordNotFound, got %v", err)
	}
	if err := store.DeleteFuelRecord(ctx, alice.ID, id1); err != nil {
		t.Fatalf("DeleteFuelRecord: %v", err)
	}
	if err := store.DeleteFuelRecord(ctx, alice.ID, id1); !errors.Is(err, domain.ErrRecordNotFound) {
		t.Errorf("second delete: expected ErrRecordNotFound, got %v", err)
	}

	records, _ = store.ListFuelRecords(ctx, alice.ID)
	if len(records) != 1 || records[0].ID != id2 {
		t.Errorf("expected only %s left, got %+v", id2, records)
	}
}

func testSessions(t *testing.T, users domain.UserRepository, sessions domain.SessionRepository) {
	ctx := context.Background()

	u, err := users.Create(ctx, "dave", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := sessions.Create(ctx, u.ID, "live-token", "ua", "10.0.0.1", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("Create session: %v", err)
	}
	if err := sessions.Create(ctx, u.ID, "old-token", "ua", "10.0.0.1", time.Now().Add(-time.Hour)); err != nil {
		t.Fatalf("Create session: %v", err)
	}

	s, err := sessions.GetByToken(ctx, "live-token")
	if err != nil || s == nil {
		t.Fatalf("GetByToken = %+v, %v", s, err)
	}
	if s.UserID != u.ID || s.UserAgent != "ua" || s.IP != "10.0.0.1" {
		t.Errorf("unexpected session: %+v", s)
	}

	if err := sessions.DeleteExpired(ctx); err != nil {
		t.Fatalf("DeleteExpired: %v", err)
	}
	if s, _ := sessions.GetByToken(ctx, "old-token"); s != nil {
		t.Error("expired session should be swept")
	}

	if err := sessions.Delete(ctx, "live-token"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if s, _ := sessions.GetByToken(ctx, "live-token"); s != nil {
		t.Error("deleted session should be gone")
	}
}

func find(t *testing.T, repo domain.FuelRepository, userID int64, id string) domain.FuelRecord {
	t.Helper()
	records, err := repo.ListFuelRecords(context.Background(), userID)
	if err != nil {
		t.Fatalf("ListFuelRecords: %v", err)
	}
	for _, r := range records {
		if r.ID == id {
			return r
		}
	}
	t.Fatalf("record %s not found", id)
	return domain.FuelRecord{}
}
