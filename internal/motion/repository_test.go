package motion

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/nerrad567/poppy-motion/internal/infrastructure/config"
	"github.com/nerrad567/poppy-motion/internal/infrastructure/database"
	_ "github.com/nerrad567/poppy-motion/migrations"
)

// setupTestDB opens a migrated database in a temp directory.
func setupTestDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.Open(config.DatabaseConfig{
		Path:        filepath.Join(t.TempDir(), "test.db"),
		BusyTimeout: 1,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

func TestSQLiteRepository_SaveAndLoad(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db.DB)
	ctx := context.Background()

	if _, err := repo.Save(ctx, "wave", []byte(waveDoc)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	seq, err := repo.Load(ctx, "wave")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if seq.FrameCount() != 2 || seq.FrequencyHz() != 10 {
		t.Errorf("Load() = %d frames @ %vHz", seq.FrameCount(), seq.FrequencyHz())
	}

	var actors, frames int
	if err := db.QueryRowContext(ctx,
		`SELECT actor_count, frame_count FROM motion_sequences WHERE id = ?`, "wave",
	).Scan(&actors, &frames); err != nil {
		t.Fatalf("querying summary columns: %v", err)
	}
	if actors != 2 || frames != 2 {
		t.Errorf("summary columns = %d actors, %d frames", actors, frames)
	}
}

func TestSQLiteRepository_SaveReplacesAndKeepsCreatedAt(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db.DB)
	ctx := context.Background()

	if _, err := repo.Save(ctx, "wave", []byte(waveDoc)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	var created string
	if err := db.QueryRowContext(ctx, `SELECT created_at FROM motion_sequences WHERE id = 'wave'`).Scan(&created); err != nil {
		t.Fatalf("querying created_at: %v", err)
	}

	replacement := `{"actors_NAME":["a"],"freq":"5","frame_number":1,"position":{"0":{"Robot":[1],"Right_hand":0,"Left_hand":0}}}`
	if _, err := repo.Save(ctx, "wave", []byte(replacement)); err != nil {
		t.Fatalf("Save(replacement) error = %v", err)
	}

	seq, err := repo.Load(ctx, "wave")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if seq.FrameCount() != 1 || seq.FrequencyHz() != 5 {
		t.Errorf("Load() after replace = %d frames @ %vHz", seq.FrameCount(), seq.FrequencyHz())
	}

	var createdAfter string
	if err := db.QueryRowContext(ctx, `SELECT created_at FROM motion_sequences WHERE id = 'wave'`).Scan(&createdAfter); err != nil {
		t.Fatalf("querying created_at: %v", err)
	}
	if createdAfter != created {
		t.Errorf("created_at changed from %s to %s", created, createdAfter)
	}
}

func TestSQLiteRepository_Errors(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db.DB)
	ctx := context.Background()

	if _, err := repo.Load(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load(missing) error = %v, want ErrNotFound", err)
	}
	if err := repo.Delete(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete(missing) error = %v, want ErrNotFound", err)
	}
	if _, err := repo.Save(ctx, "bad", []byte(`{}`)); !errors.Is(err, ErrMalformedSequence) {
		t.Errorf("Save(malformed) error = %v, want ErrMalformedSequence", err)
	}
	if _, err := repo.Load(ctx, "a/b"); !errors.Is(err, ErrInvalidID) {
		t.Errorf("Load(a/b) error = %v, want ErrInvalidID", err)
	}

	ids, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("List() = %v, want empty after rejected save", ids)
	}
}

func TestSQLiteRepository_ListAndDelete(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db.DB)
	ctx := context.Background()

	for _, id := range []string{"zeta", "alpha", "mid"} {
		if _, err := repo.Save(ctx, id, []byte(waveDoc)); err != nil {
			t.Fatalf("Save(%s) error = %v", id, err)
		}
	}

	ids, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	want := []string{"alpha", "mid", "zeta"}
	if len(ids) != len(want) {
		t.Fatalf("List() = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("List()[%d] = %s, want %s", i, ids[i], want[i])
		}
	}

	if err := repo.Delete(ctx, "mid"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := repo.Load(ctx, "mid"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load(deleted) error = %v, want ErrNotFound", err)
	}
}
