package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/sandevgo/mualim/internal/core"
)

func newTestTurnsRepo(t *testing.T) *TurnsRepo {
	t.Helper()
	db, err := NewDB(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewTurnsRepo(db)
}

func TestTurnsRepo_RoundTripChronological(t *testing.T) {
	repo := newTestTurnsRepo(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := repo.AddTurn(ctx, "session-1", core.Turn{Role: core.RoleUser, Content: fmt.Sprintf("q%d", i)}); err != nil {
			t.Fatalf("add turn failed: %v", err)
		}
		if err := repo.AddTurn(ctx, "session-1", core.Turn{Role: core.RoleAssistant, Content: fmt.Sprintf("a%d", i)}); err != nil {
			t.Fatalf("add turn failed: %v", err)
		}
	}

	turns, err := repo.GetTurns(ctx, "session-1", 4)
	if err != nil {
		t.Fatalf("get turns failed: %v", err)
	}
	if len(turns) != 4 {
		t.Fatalf("expected 4 turns, got %d", len(turns))
	}

	// Most recent window, oldest first
	want := []string{"q1", "a1", "q2", "a2"}
	for i, turn := range turns {
		if turn.Content != want[i] {
			t.Errorf("turn %d: expected %q, got %q", i, want[i], turn.Content)
		}
	}
}

func TestTurnsRepo_SessionsAreIsolated(t *testing.T) {
	repo := newTestTurnsRepo(t)
	ctx := context.Background()

	if err := repo.AddTurn(ctx, "session-a", core.Turn{Role: core.RoleUser, Content: "from a"}); err != nil {
		t.Fatalf("add turn failed: %v", err)
	}

	turns, err := repo.GetTurns(ctx, "session-b", 10)
	if err != nil {
		t.Fatalf("get turns failed: %v", err)
	}
	if len(turns) != 0 {
		t.Errorf("expected no turns for another session, got %d", len(turns))
	}
}
