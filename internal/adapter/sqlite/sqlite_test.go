package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"fuellog/internal/adapter/storetest"
	"fuellog/internal/domain"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "data", "fuellog.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestStoreBehaviour(t *testing.T) {
	db := openTestDB(t)
	storetest.Run(t, db, NewSessionRepo(db))
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fuellog.db")
	ctx := context.Background()

	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	u, err := db.Create(ctx, "erin", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := db.CreateFuelRecord(ctx, u.ID, domain.FuelRecordInput{Date: "2024-03-03", Liters: 25, Currency: "KRW", Mileage: 500}); err != nil {
		t.Fatalf("CreateFuelRecord: %v", err)
	}
	_ = db.Close()

	db, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close() //nolint:errcheck

	records, err := db.ListFuelRecords(ctx, u.ID)
	if err != nil {
		t.Fatalf("ListFuelRecords: %v", err)
	}
	if len(records) != 1 || records[0].Date != "2024-03-03" || records[0].Mileage != 500 {
		t.Errorf("unexpected records after reopen: %+v", records)
	}
}

func TestForeignKeysEnforced(t *testing.T) {
	db := openTestDB(t)
	_, err := db.CreateFuelRecord(context.Background(), 4242, domain.FuelRecordInput{Date: "2024-01-01", Liters: 1, Mileage: 1})
	if err == nil {
		t.Error("expected foreign key violation for unknown user")
	}
}
