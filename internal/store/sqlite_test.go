package store

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/recallstack/recall/internal/models"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	db.Close()

	// Schema init and migrations must be safe to run on every open.
	db, err = Open(path)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	defer db.Close()

	if _, err := db.MemoryCount(); err != nil {
		t.Fatalf("memory count after reopen: %v", err)
	}
}

func TestSettingsSeedAndUpdate(t *testing.T) {
	db := newTestDB(t)
	settings := NewSettingsStore(db)

	st, err := settings.Get()
	if err != nil {
		t.Fatalf("get settings: %v", err)
	}
	defaults := models.DefaultSettings()
	if st.ContextSize != defaults.ContextSize || st.SimilarityThreshold != defaults.SimilarityThreshold {
		t.Fatalf("first get should seed defaults, got %+v", st)
	}

	st.SimilarityThreshold = "85%"
	st.ContextSize = 8
	if err := settings.Put(st); err != nil {
		t.Fatalf("put settings: %v", err)
	}

	again, err := settings.Get()
	if err != nil {
		t.Fatalf("get settings again: %v", err)
	}
	if again.SimilarityThreshold != "85%" || again.ContextSize != 8 {
		t.Fatalf("update not persisted, got %+v", again)
	}
}

func TestMessagesRecentChronological(t *testing.T) {
	db := newTestDB(t)
	messages := NewMessageStore(db)

	contents := []string{"first", "second", "third", "fourth"}
	for i, c := range contents {
		m := &models.Message{Content: c, Role: models.RoleUser, CreatedAt: int64(1000 + i)}
		if err := messages.Insert(m); err != nil {
			t.Fatalf("insert message %q: %v", c, err)
		}
		if m.ID == 0 {
			t.Fatalf("insert did not assign an id")
		}
	}

	recent, err := messages.Recent(3)
	if err != nil {
		t.Fatalf("recent messages: %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(recent))
	}
	// Window holds the newest messages but reads oldest to newest.
	want := []string{"second", "third", "fourth"}
	for i, m := range recent {
		if m.Content != want[i] {
			t.Fatalf("position %d: expected %q, got %q", i, want[i], m.Content)
		}
	}
}

func TestSyncStateAndHistory(t *testing.T) {
	db := newTestDB(t)
	syncs := NewSyncStore(db)

	st, err := syncs.GetState()
	if err != nil {
		t.Fatalf("get sync state: %v", err)
	}
	if st.Enabled || st.CurrentOperation != "none" {
		t.Fatalf("expected disabled default state, got %+v", st)
	}

	st.Enabled = true
	st.ActiveIndexName = "recall-index"
	st.Namespace = "default"
	st.LastSyncAt = 1234
	if err := syncs.PutState(st); err != nil {
		t.Fatalf("put sync state: %v", err)
	}
	again, err := syncs.GetState()
	if err != nil {
		t.Fatalf("get sync state again: %v", err)
	}
	if !again.Enabled || again.ActiveIndexName != "recall-index" || again.LastSyncAt != 1234 {
		t.Fatalf("state not persisted, got %+v", again)
	}

	for i := 0; i < 3; i++ {
		err := syncs.RecordResult(&models.SyncResult{
			Operation: "sync", IndexName: "recall-index", Namespace: "default",
			Count: i, TotalProcessed: i,
		})
		if err != nil {
			t.Fatalf("record result %d: %v", i, err)
		}
	}

	history, err := syncs.History(2)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected history limited to 2, got %d", len(history))
	}
	for _, rec := range history {
		if rec.ID == "" || rec.Operation != "sync" {
			t.Fatalf("malformed history record: %+v", rec)
		}
	}
}
