package http

import (
	"context"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/Sundussheikhdev/sync-board-BE/internal/blob"
	"github.com/Sundussheikhdev/sync-board-BE/internal/config"
	"github.com/Sundussheikhdev/sync-board-BE/internal/session"
	"github.com/Sundussheikhdev/sync-board-BE/internal/store"
	"github.com/Sundussheikhdev/sync-board-BE/internal/store/sqlite"
)

// createTestStore creates an in-memory SQLite store with schema applied.
func createTestStore(t *testing.T) store.Store {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

// createTestRouter wires a full router over fresh in-memory collaborators and
// returns the pieces tests poke at directly.
func createTestRouter(t *testing.T) (*gin.Engine, store.Store, *session.Manager) {
	t.Helper()

	st := createTestStore(t)
	logger := zerolog.Nop()
	mgr := session.NewManager(st, &logger, session.DefaultOptions())

	blobs, err := blob.NewDiskStore(t.TempDir(), "http://localhost:8080")
	if err != nil {
		t.Fatalf("failed to create blob store: %v", err)
	}

	cfg := config.Default()
	cfg.UploadDir = t.TempDir()
	engine := NewRouter(mgr, st, blobs, cfg, &logger)
	return engine, st, mgr
}

// seedRoom creates an active room directly in the store.
func seedRoom(t *testing.T, st store.Store, roomID string) {
	t.Helper()
	if _, err := st.CreateRoom(context.Background(), roomID, "tester"); err != nil {
		t.Fatalf("failed to seed room %s: %v", roomID, err)
	}
}
