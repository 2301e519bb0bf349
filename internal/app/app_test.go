package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/chrissnell/solarmax/internal/archive"
	"github.com/chrissnell/solarmax/pkg/config"
)

const configTemplate = `
sites:
  - name: Norman
    latitude: 35.2455556
    longitude: -97.4721389
    utc_offset: -4
forecast:
  date: "2021-04-13"
  step_minutes: 30
archive:
  sqlite: %s
`

func TestRunOnce(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "archive.db")
	cfgPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte(fmt.Sprintf(configTemplate, dbPath)), 0o600); err != nil {
		t.Fatal(err)
	}

	provider, err := config.NewProvider(cfgPath, "yaml")
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	defer provider.Close()

	a := New(provider, zap.NewNop().Sugar(), Options{Once: true})
	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(a.Results) != 1 || len(a.Results[0].Profile.Samples) != 48 {
		t.Fatalf("unexpected results: %+v", a.Results)
	}

	store, err := archive.NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer store.Close()

	runs, err := store.ListRuns(context.Background(), "Norman", 10)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != a.Results[0].Run.ID {
		t.Errorf("archived %d runs, expected run %s", len(runs), a.Results[0].Run.ID)
	}
}

func TestRunInvalidConfig(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("sites: []\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	provider, err := config.NewProvider(cfgPath, "yaml")
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	defer provider.Close()

	if err := New(provider, zap.NewNop().Sugar(), Options{Once: true}).Run(context.Background()); err == nil {
		t.Error("expected error for a configuration without sites")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	cfg := `
sites:
  - name: Quito
    latitude: -0.18
    longitude: -78.47
    utc_offset: -5
forecast:
  date: "2021-06-21"
  step_minutes: 60
`
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o600); err != nil {
		t.Fatal(err)
	}

	provider, err := config.NewProvider(cfgPath, "yaml")
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	defer provider.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// A cancelled context returns instead of waiting for a signal
	a := New(provider, zap.NewNop().Sugar(), Options{})
	if err := a.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		t.Errorf("Run: %v", err)
	}
}
