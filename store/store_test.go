package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/c0lornote/c0lornote/models"
)

// stepClock advances by one second per reading so ordering by timestamp is
// deterministic in tests.
type stepClock struct {
	t time.Time
}

func (c *stepClock) Now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	ctx := context.Background()
	st := NewSQLiteStore(Params{
		Path:  filepath.Join(t.TempDir(), "notes.db"),
		Clock: &stepClock{t: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)},
	})
	if err := st.Open(ctx); err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestCreateAndGetNote(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	note := models.NewNote("Groceries", "<b>milk and eggs</b>", "milk and eggs")
	note.Color = "#ffeb3b"
	note.Tags = []models.Tag{{Name: "Shopping"}, {Name: "home"}}

	created, err := st.CreateNote(ctx, note)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
		t.Fatal("timestamps not assigned on create")
	}

	got, err := st.GetNote(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "Groceries" || got.Content != "<b>milk and eggs</b>" {
		t.Fatalf("unexpected note: %#v", got)
	}
	if got.Color != "#ffeb3b" {
		t.Fatalf("expected color preserved, got %q", got.Color)
	}
	if len(got.Tags) != 2 {
		t.Fatalf("expected 2 tags, got %d", len(got.Tags))
	}
	// Tag names are normalized and returned sorted.
	if got.Tags[0].Name != "home" || got.Tags[1].Name != "shopping" {
		t.Fatalf("unexpected tags: %#v", got.Tags)
	}
}

func TestGetNoteNotFound(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	_, err := st.GetNote(ctx, "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateNoteReplacesFieldsAndTags(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	created, err := st.CreateNote(ctx, models.Note{
		Title:        "draft",
		PlainContent: "first version",
		Tags:         []models.Tag{{Name: "draft"}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	created.Title = "final"
	created.PlainContent = "second version"
	created.Pinned = true
	created.Tags = []models.Tag{{Name: "published"}}

	updated, err := st.UpdateNote(ctx, created)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !updated.UpdatedAt.After(created.CreatedAt) {
		t.Fatal("UpdatedAt did not advance")
	}
	if !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Fatalf("CreatedAt changed on update: %v != %v", updated.CreatedAt, created.CreatedAt)
	}

	got, err := st.GetNote(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "final" || !got.Pinned {
		t.Fatalf("update not persisted: %#v", got)
	}
	if len(got.Tags) != 1 || got.Tags[0].Name != "published" {
		t.Fatalf("tags not replaced: %#v", got.Tags)
	}
}

func TestUpdateMissingNote(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	_, err := st.UpdateNote(ctx, models.Note{ID: "missing", Title: "x"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteNote(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	created, err := st.CreateNote(ctx, models.Note{Title: "temp"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := st.DeleteNote(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := st.GetNote(ctx, created.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := st.DeleteNote(ctx, created.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on double delete, got %v", err)
	}
}

func TestTogglePin(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	created, err := st.CreateNote(ctx, models.Note{Title: "pin me"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	pinned, err := st.TogglePin(ctx, created.ID)
	if err != nil || !pinned {
		t.Fatalf("first toggle: pinned=%v err=%v", pinned, err)
	}
	pinned, err = st.TogglePin(ctx, created.ID)
	if err != nil || pinned {
		t.Fatalf("second toggle: pinned=%v err=%v", pinned, err)
	}
	if _, err := st.TogglePin(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSearchNotes(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	work, err := st.CreateCategory(ctx, "Work", "#2196f3")
	if err != nil {
		t.Fatalf("create category: %v", err)
	}

	seed := []models.Note{
		{Title: "standup notes", PlainContent: "discuss release blockers", CategoryID: work.ID},
		{Title: "grocery list", PlainContent: "milk bread eggs", Tags: []models.Tag{{Name: "home"}}},
		{Title: "release plan", PlainContent: "ship the release next week", CategoryID: work.ID, Pinned: true},
	}
	for _, n := range seed {
		if _, err := st.CreateNote(ctx, n); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	t.Run("term search is ANDed", func(t *testing.T) {
		notes, err := st.SearchNotes(ctx, SearchFilter{Query: "release ship"})
		if err != nil {
			t.Fatalf("search: %v", err)
		}
		if len(notes) != 1 || notes[0].Title != "release plan" {
			t.Fatalf("unexpected result: %#v", notes)
		}
	})

	t.Run("title matches too", func(t *testing.T) {
		notes, err := st.SearchNotes(ctx, SearchFilter{Query: "grocery"})
		if err != nil {
			t.Fatalf("search: %v", err)
		}
		if len(notes) != 1 || notes[0].Title != "grocery list" {
			t.Fatalf("unexpected result: %#v", notes)
		}
	})

	t.Run("category filter", func(t *testing.T) {
		notes, err := st.SearchNotes(ctx, SearchFilter{CategoryID: work.ID})
		if err != nil {
			t.Fatalf("search: %v", err)
		}
		if len(notes) != 2 {
			t.Fatalf("expected 2 work notes, got %d", len(notes))
		}
	})

	t.Run("tag filter", func(t *testing.T) {
		tag, err := st.GetOrCreateTag(ctx, "home")
		if err != nil {
			t.Fatalf("tag: %v", err)
		}
		notes, err := st.SearchNotes(ctx, SearchFilter{TagIDs: []string{tag.ID}})
		if err != nil {
			t.Fatalf("search: %v", err)
		}
		if len(notes) != 1 || notes[0].Title != "grocery list" {
			t.Fatalf("unexpected result: %#v", notes)
		}
	})

	t.Run("pinned first", func(t *testing.T) {
		notes, err := st.ListNotes(ctx)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(notes) != 3 {
			t.Fatalf("expected 3 notes, got %d", len(notes))
		}
		if notes[0].Title != "release plan" {
			t.Fatalf("pinned note not first: %#v", notes[0])
		}
	})

	t.Run("pinned only", func(t *testing.T) {
		notes, err := st.SearchNotes(ctx, SearchFilter{PinnedOnly: true})
		if err != nil {
			t.Fatalf("search: %v", err)
		}
		if len(notes) != 1 || !notes[0].Pinned {
			t.Fatalf("unexpected result: %#v", notes)
		}
	})
}

func TestRecentNotes(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	for _, title := range []string{"oldest", "middle", "newest"} {
		if _, err := st.CreateNote(ctx, models.Note{Title: title}); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	notes, err := st.RecentNotes(ctx, 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(notes) != 2 {
		t.Fatalf("expected 2 notes, got %d", len(notes))
	}
	if notes[0].Title != "newest" || notes[1].Title != "middle" {
		t.Fatalf("unexpected order: %s, %s", notes[0].Title, notes[1].Title)
	}
}

func TestCategoryLifecycle(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	created, err := st.CreateCategory(ctx, "  Personal ", "#4caf50")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Name != "personal" {
		t.Fatalf("name not normalized: %q", created.Name)
	}

	got, err := st.GetCategoryByName(ctx, "PERSONAL")
	if err != nil {
		t.Fatalf("get by name: %v", err)
	}
	if got.ID != created.ID {
		t.Fatalf("expected same category, got %s", got.ID)
	}

	note, err := st.CreateNote(ctx, models.Note{Title: "diary", CategoryID: created.ID})
	if err != nil {
		t.Fatalf("create note: %v", err)
	}

	if err := st.DeleteCategory(ctx, created.ID); err != nil {
		t.Fatalf("delete category: %v", err)
	}

	// ON DELETE SET NULL: the note survives without a category.
	reloaded, err := st.GetNote(ctx, note.ID)
	if err != nil {
		t.Fatalf("get note: %v", err)
	}
	if reloaded.CategoryID != "" {
		t.Fatalf("expected empty category, got %q", reloaded.CategoryID)
	}

	if _, err := st.GetCategoryByName(ctx, "personal"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAddRemoveNoteTag(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	note, err := st.CreateNote(ctx, models.Note{Title: "tagged"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := st.AddNoteTag(ctx, note.ID, "Ideas"); err != nil {
		t.Fatalf("add tag: %v", err)
	}
	// Adding the same tag again is a no-op.
	if err := st.AddNoteTag(ctx, note.ID, "ideas"); err != nil {
		t.Fatalf("re-add tag: %v", err)
	}

	got, err := st.GetNote(ctx, note.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Tags) != 1 || got.Tags[0].Name != "ideas" {
		t.Fatalf("unexpected tags: %#v", got.Tags)
	}

	if err := st.RemoveNoteTag(ctx, note.ID, "ideas"); err != nil {
		t.Fatalf("remove tag: %v", err)
	}
	if err := st.RemoveNoteTag(ctx, note.ID, "ideas"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second remove, got %v", err)
	}

	if err := st.AddNoteTag(ctx, "missing", "ideas"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing note, got %v", err)
	}
}

func TestCounts(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	work, err := st.CreateCategory(ctx, "work", "")
	if err != nil {
		t.Fatalf("create category: %v", err)
	}

	seed := []models.Note{
		{Title: "a", CategoryID: work.ID, Tags: []models.Tag{{Name: "todo"}}},
		{Title: "b", CategoryID: work.ID},
		{Title: "c", Tags: []models.Tag{{Name: "todo"}, {Name: "idea"}}},
	}
	for _, n := range seed {
		if _, err := st.CreateNote(ctx, n); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	byCategory, err := st.CountNotesByCategory(ctx)
	if err != nil {
		t.Fatalf("count by category: %v", err)
	}
	counts := make(map[string]int64, len(byCategory))
	for _, row := range byCategory {
		counts[row.CategoryID] = row.NoteCount
	}
	if counts[work.ID] != 2 || counts[""] != 1 {
		t.Fatalf("unexpected category counts: %#v", counts)
	}

	byTag, err := st.CountNotesByTag(ctx)
	if err != nil {
		t.Fatalf("count by tag: %v", err)
	}
	tagCounts := make(map[string]int64, len(byTag))
	for _, row := range byTag {
		tagCounts[row.Name] = row.NoteCount
	}
	if tagCounts["todo"] != 2 || tagCounts["idea"] != 1 {
		t.Fatalf("unexpected tag counts: %#v", tagCounts)
	}
}

func TestOperationsOnClosedStore(t *testing.T) {
	ctx := context.Background()
	st := NewSQLiteStore(Params{Path: filepath.Join(t.TempDir(), "notes.db")})

	if _, err := st.ListNotes(ctx); !errors.Is(err, errNotOpen) {
		t.Fatalf("expected errNotOpen, got %v", err)
	}
	if _, err := st.CreateNote(ctx, models.Note{Title: "x"}); !errors.Is(err, errNotOpen) {
		t.Fatalf("expected errNotOpen, got %v", err)
	}
}
