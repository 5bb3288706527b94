package persistence_test

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"go.uber.org/zap"
	"zombiezen.com/go/sqlite"

	"github.com/servicefix/dispatch-bot/internal/config"
	"github.com/servicefix/dispatch-bot/internal/persistence"
)

func openTestStore(t *testing.T) *persistence.Store {
	t.Helper()
	store, err := persistence.Open(config.StoreConfig{
		Path:     filepath.Join(t.TempDir(), "test.db"),
		PoolSize: 4,
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return store
}

func TestSchemaBootstrap(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	var tables []string
	err := store.ReadAll(ctx,
		"SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%' ORDER BY name",
		func(stmt *sqlite.Stmt) error {
			tables = append(tables, stmt.ColumnText(0))
			return nil
		})
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	want := []string{"feedback", "technicians", "tickets"}
	if len(tables) != len(want) {
		t.Fatalf("tables = %v, want %v", tables, want)
	}
	for i := range want {
		if tables[i] != want[i] {
			t.Errorf("tables[%d] = %q, want %q", i, tables[i], want[i])
		}
	}
}

func TestWriteReturnsInsertID(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	first, err := store.Write(ctx,
		"INSERT INTO tickets (chat_id, appliance, status) VALUES (?, ?, 'new')", int64(100), "AC")
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	second, err := store.Write(ctx,
		"INSERT INTO tickets (chat_id, appliance, status) VALUES (?, ?, 'new')", int64(101), "Fridge")
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if first <= 0 || second != first+1 {
		t.Errorf("insert ids = %d, %d; want monotonic starting above zero", first, second)
	}
}

func TestReadOne(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	id, err := store.Write(ctx,
		"INSERT INTO technicians (chat_id, name, phone, skills) VALUES (?, ?, ?, ?)",
		int64(42), "Raju", "9876543210", "AC, Fridge")
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	var name, status string
	found, err := store.ReadOne(ctx,
		"SELECT name, status FROM technicians WHERE id = ?",
		func(stmt *sqlite.Stmt) error {
			name = stmt.ColumnText(0)
			status = stmt.ColumnText(1)
			return nil
		}, id)
	if err != nil {
		t.Fatalf("ReadOne: %v", err)
	}
	if !found {
		t.Fatal("ReadOne: row not found")
	}
	if name != "Raju" || status != "pending" {
		t.Errorf("got name=%q status=%q, want Raju/pending", name, status)
	}

	found, err = store.ReadOne(ctx, "SELECT name FROM technicians WHERE id = ?",
		func(stmt *sqlite.Stmt) error { return nil }, int64(9999))
	if err != nil {
		t.Fatalf("ReadOne: %v", err)
	}
	if found {
		t.Error("ReadOne: found a row for a missing id")
	}
}

func TestNonContentionErrorPropagates(t *testing.T) {
	store := openTestStore(t)

	_, err := store.Write(context.Background(), "INSERT INTO no_such_table (x) VALUES (1)")
	if err == nil {
		t.Fatal("expected error for missing table")
	}
	if code := sqlite.ErrCode(err); code == sqlite.ResultBusy {
		t.Errorf("unexpected busy classification: %v", err)
	}
}

func TestUniqueViolationNotRetried(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	const insert = "INSERT INTO technicians (chat_id, name) VALUES (?, ?)"
	if _, err := store.Write(ctx, insert, int64(7), "first"); err != nil {
		t.Fatalf("Write: %v", err)
	}
	_, err := store.Write(ctx, insert, int64(7), "second")
	if err == nil {
		t.Fatal("expected unique constraint violation")
	}
	if sqlite.ErrCode(err).ToPrimary() != sqlite.ResultConstraint {
		t.Errorf("error code = %v, want constraint", sqlite.ErrCode(err))
	}

	var count int
	_, err = store.ReadOne(ctx, "SELECT COUNT(*) FROM technicians WHERE chat_id = 7",
		func(stmt *sqlite.Stmt) error {
			count = stmt.ColumnInt(0)
			return nil
		})
	if err != nil {
		t.Fatalf("ReadOne: %v", err)
	}
	if count != 1 {
		t.Errorf("rows for chat 7 = %d, want 1", count)
	}
}

func TestConcurrentWritesToSameRow(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	id, err := store.Write(ctx,
		"INSERT INTO tickets (chat_id, appliance, status) VALUES (1, 'AC', 'new')")
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	// Many writers racing on the same row: every update must either
	// apply or fail loudly, never silently drop.
	const writers = 16
	var waitGroup sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		waitGroup.Add(1)
		go func(n int) {
			defer waitGroup.Done()
			_, err := store.Write(ctx,
				"UPDATE tickets SET raw_problem_text = ? WHERE id = ?",
				fmt.Sprintf("writer-%d", n), id)
			if err != nil {
				errs <- err
			}
		}(i)
	}
	waitGroup.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent write: %v", err)
	}

	var text string
	found, err := store.ReadOne(ctx, "SELECT raw_problem_text FROM tickets WHERE id = ?",
		func(stmt *sqlite.Stmt) error {
			text = stmt.ColumnText(0)
			return nil
		}, id)
	if err != nil || !found {
		t.Fatalf("ReadOne: found=%v err=%v", found, err)
	}
	if len(text) == 0 {
		t.Error("row text empty after concurrent writes")
	}
}

func TestWriteCancelledContext(t *testing.T) {
	store := openTestStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Write(ctx, "INSERT INTO tickets (chat_id) VALUES (1)")
	if err == nil {
		t.Fatal("expected error from cancelled context")
	}
}
