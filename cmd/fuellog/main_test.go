package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"fuellog/internal/adapter/sqlite"
	"fuellog/internal/config"
	"fuellog/internal/domain"
)

func TestRootCommands(t *testing.T) {
	want := map[string]bool{"serve": false, "create-user": false, "stats": false}
	for _, c := range RootCmd.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("command %q not registered", name)
		}
	}
}

func TestOpenStore_UnknownBackend(t *testing.T) {
	cfg := &config.Config{DataBackend: "cassandra"}
	if _, err := openStore(cfg, nil); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestCreateUserAndStats_SQLite(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "fuellog.db")
	t.Setenv("DATA_BACKEND", "sqlite")
	t.Setenv("SQLITE_PATH", dbPath)
	t.Setenv("LOG_LEVEL", "error")

	var out bytes.Buffer
	RootCmd.SetOut(&out)
	RootCmd.SetArgs([]string{"create-user", "driver", "--password", "password123"})
	if err := RootCmd.Execute(); err != nil {
		t.Fatalf("create-user: %v", err)
	}

	db, err := sqlite.Open(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	user, err := db.GetByUsername(context.Background(), "driver")
	if err != nil || user == nil {
		t.Fatalf("user not stored: %v", err)
	}
	for _, in := range []domain.FuelRecordInput{
		{Date: "2024-01-01", Liters: 40, Mileage: 10000},
		{Date: "2024-01-15", Liters: 30, Mileage: 10400},
	} {
		if _, err := db.CreateFuelRecord(context.Background(), user.ID, in); err != nil {
			t.Fatal(err)
		}
	}
	_ = db.Close()

	out.Reset()
	RootCmd.SetArgs([]string{"stats", "driver"})
	if err := RootCmd.Execute(); err != nil {
		t.Fatalf("stats: %v", err)
	}

	var summary domain.Summary
	if err := json.Unmarshal(out.Bytes(), &summary); err != nil {
		t.Fatalf("stats output is not a summary: %v\n%s", err, out.String())
	}
	if summary.RecordCount != 2 || summary.LifetimeDistance != 400 {
		t.Errorf("unexpected summary: %+v", summary)
	}
}

func TestServe_AuthDisabledWritesAsLocalUser(t *testing.T) {
	t.Setenv("DATA_BACKEND", "sqlite")
	t.Setenv("SQLITE_PATH", filepath.Join(t.TempDir(), "fuellog.db"))
	cfg := config.Load()
	cfg.AuthDisabled = true
	cfg.WebDir = t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	st, err := openStore(cfg, logger)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = st.close() }()

	for i := 0; i < 2; i++ {
		srv, _, _, err := newServer(context.Background(), cfg, st, logger)
		if err != nil {
			t.Fatalf("newServer (start %d): %v", i, err)
		}
		ts := httptest.NewServer(srv.Handler())
		body := fmt.Sprintf(`{"date":"2024-01-0%d","liters":40,"mileage":%d}`, i+1, 10000+i*400)
		resp, err := http.Post(ts.URL+"/api/records", "application/json", strings.NewReader(body))
		if err != nil {
			ts.Close()
			t.Fatal(err)
		}
		_ = resp.Body.Close()
		ts.Close()
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("start %d: expected 201, got %d", i, resp.StatusCode)
		}
	}

	local, err := st.users.GetByUsername(context.Background(), "local")
	if err != nil || local == nil {
		t.Fatalf("local user not stored: %v", err)
	}
	records, err := st.fuel.ListFuelRecords(context.Background(), local.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Errorf("expected 2 records for the local user across restarts, got %d", len(records))
	}
}
