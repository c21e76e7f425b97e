package teststore

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/studypace/studypace/internal/profile"
	"github.com/studypace/studypace/store"
	"github.com/studypace/studypace/store/db"
)

// NewTestingStore opens a throwaway sqlite store with the full schema
// applied. Each call gets its own database file under t.TempDir.
func NewTestingStore(ctx context.Context, t *testing.T) *store.Store {
	testProfile := getTestingProfile(t)
	dbDriver, err := db.NewDBDriver(testProfile)
	if err != nil {
		t.Fatalf("failed to create db driver: %v", err)
	}

	st := store.New(dbDriver, testProfile)
	if err := st.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate db: %v", err)
	}
	t.Cleanup(func() {
		if err := st.Close(); err != nil {
			t.Errorf("failed to close store: %v", err)
		}
	})
	return st
}

func getTestingProfile(t *testing.T) *profile.Profile {
	dir := t.TempDir()
	mode := "dev"
	p := &profile.Profile{
		Mode:    mode,
		Data:    dir,
		DSN:     filepath.Join(dir, fmt.Sprintf("studypace_%s.db", mode)),
		Driver:  "sqlite",
		Version: "0.4.2",
	}
	p.FromEnv()
	return p
}
