package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"

	"calorie-bot/internal/config"
	"calorie-bot/internal/storage"
)

func TestStartClosesStoreOnImportError(t *testing.T) {
	dir := t.TempDir()
	dbFile := filepath.Join(dir, "bot.db")

	prevFile, prevUser := *importCustom, *importUser
	*importCustom = filepath.Join(dir, "missing.yml")
	*importUser = 1
	t.Cleanup(func() { *importCustom, *importUser = prevFile, prevUser })

	cfg := &config.Config{}
	cfg.Database.File = dbFile
	logger, _ := test.NewNullLogger()

	err := start(cfg, logger)
	if err == nil || !strings.Contains(err.Error(), "import failed") {
		t.Fatalf("expected import error, got %v", err)
	}

	if _, err := os.Stat(dbFile + "-wal"); !os.IsNotExist(err) {
		t.Fatalf("database must be closed on error, wal file still present (%v)", err)
	}

	store, err := storage.NewSQLiteStorage(dbFile)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	store.Close()
}

func TestStartImportsCustomFoods(t *testing.T) {
	dir := t.TempDir()
	dbFile := filepath.Join(dir, "bot.db")
	foods := filepath.Join(dir, "foods.yml")
	if err := os.WriteFile(foods, []byte("foods:\n  - name: Protein bar\n    calories: 210\n"), 0o644); err != nil {
		t.Fatalf("write foods: %v", err)
	}

	prevFile, prevUser := *importCustom, *importUser
	*importCustom = foods
	*importUser = 7
	t.Cleanup(func() { *importCustom, *importUser = prevFile, prevUser })

	cfg := &config.Config{}
	cfg.Database.File = dbFile
	logger, _ := test.NewNullLogger()

	if err := start(cfg, logger); err != nil {
		t.Fatalf("start: %v", err)
	}

	store, err := storage.NewSQLiteStorage(dbFile)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer store.Close()
	list, err := store.ListCustomFoods(context.Background(), 7)
	if err != nil || len(list) != 1 || list[0].Name != "Protein bar" {
		t.Fatalf("unexpected custom foods %+v (%v)", list, err)
	}
}
