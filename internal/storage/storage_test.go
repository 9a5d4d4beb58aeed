// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestNewSQLite(t *testing.T) {
	t.Run("missing parent directories are created", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "dir", "companion.db")
		store, err := NewSQLite(t.Context(), path)
		if err != nil {
			t.Fatalf("failed to open store: %s", err)
		}
		t.Cleanup(func() {
			if err := store.Close(); err != nil {
				t.Errorf("failed to close store: %s", err)
			}
		})
		if _, err = os.Stat(path); err != nil {
			t.Errorf("expected database file to exist: %s", err)
		}
	})
	t.Run("in-memory database", func(t *testing.T) {
		store := testStore(t, MemoryPath)
		if err := store.Set(t.Context(), "key", "value"); err != nil {
			t.Fatalf("failed to set value: %s", err)
		}
		if _, found, _ := store.Get(t.Context(), "key"); !found {
			t.Error("expected in-memory value to be found")
		}
	})
	t.Run("unusable path fails", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "file")
		if err := os.WriteFile(file, []byte("x"), 0o600); err != nil {
			t.Fatalf("failed to write file: %s", err)
		}
		if _, err := NewSQLite(t.Context(), filepath.Join(file, "companion.db")); err == nil {
			t.Error("expected opening a store below a regular file to fail")
		}
	})
}

func TestSQLite_GetSet(t *testing.T) {
	store := testStore(t, filepath.Join(t.TempDir(), "companion.db"))
	ctx := t.Context()

	t.Run("missing key is not found", func(t *testing.T) {
		value, found, err := store.Get(ctx, "SHOW_WEATHER")
		if err != nil {
			t.Fatalf("failed to get value: %s", err)
		}
		if found || value != "" {
			t.Errorf("expected key to be missing, got %q (found: %t)", value, found)
		}
	})
	t.Run("values round trip", func(t *testing.T) {
		if err := store.Set(ctx, "SHOW_WEATHER", "true"); err != nil {
			t.Fatalf("failed to set value: %s", err)
		}
		value, found, err := store.Get(ctx, "SHOW_WEATHER")
		if err != nil {
			t.Fatalf("failed to get value: %s", err)
		}
		if !found || value != "true" {
			t.Errorf("expected value to be %q, got %q (found: %t)", "true", value, found)
		}
	})
	t.Run("values are replaced", func(t *testing.T) {
		if err := store.Set(ctx, "SHOW_WEATHER", "false"); err != nil {
			t.Fatalf("failed to set value: %s", err)
		}
		value, _, err := store.Get(ctx, "SHOW_WEATHER")
		if err != nil {
			t.Fatalf("failed to get value: %s", err)
		}
		if value != "false" {
			t.Errorf("expected value to be %q, got %q", "false", value)
		}
	})
	t.Run("cancelled context fails", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		if err := store.Set(cancelled, "SHOW_WEATHER", "true"); err == nil {
			t.Error("expected set with cancelled context to fail")
		}
	})
}

func TestSQLite_persistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "companion.db")
	store, err := NewSQLite(t.Context(), path)
	if err != nil {
		t.Fatalf("failed to open store: %s", err)
	}
	if err = store.Set(t.Context(), "clay-settings", `{"SHOW_WEATHER":true}`); err != nil {
		t.Fatalf("failed to set value: %s", err)
	}
	if err = store.Close(); err != nil {
		t.Fatalf("failed to close store: %s", err)
	}

	reopened := testStore(t, path)
	value, found, err := reopened.Get(t.Context(), "clay-settings")
	if err != nil {
		t.Fatalf("failed to get value: %s", err)
	}
	if !found || value != `{"SHOW_WEATHER":true}` {
		t.Errorf("expected persisted value, got %q (found: %t)", value, found)
	}
}

func testStore(t *testing.T, path string) *SQLite {
	t.Helper()
	store, err := NewSQLite(t.Context(), path)
	if err != nil {
		t.Fatalf("failed to open store: %s", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("failed to close store: %s", err)
		}
	})
	return store
}
