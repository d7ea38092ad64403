package store

import (
	"context"

	"github.com/c0lornote/c0lornote/models"
)

// Config holds store configuration.
type Config struct {
	// Path is the SQLite database file.
	Path string `yaml:"path"`
}

// SearchFilter narrows a note search. All fields are optional; zero values
// do not filter.
type SearchFilter struct {
	// Query is split on whitespace; every term must match the title or the
	// plain content (case-insensitive substring).
	Query      string
	CategoryID string
	TagIDs     []string
	PinnedOnly bool
	Limit      int
}

// CategoryCount is a per-category note tally. CategoryID is empty for
// uncategorized notes.
type CategoryCount struct {
	CategoryID string
	NoteCount  int64
}

// TagCount is a per-tag note tally.
type TagCount struct {
	TagID     string
	Name      string
	NoteCount int64
}

type Store interface {
	Open(ctx context.Context) error
	Close() error

	CreateNote(ctx context.Context, note models.Note) (models.Note, error)
	GetNote(ctx context.Context, id string) (*models.Note, error)
	UpdateNote(ctx context.Context, note models.Note) (models.Note, error)
	DeleteNote(ctx context.Context, id string) error
	TogglePin(ctx context.Context, id string) (bool, error)

	ListNotes(ctx context.Context) ([]models.Note, error)
	SearchNotes(ctx context.Context, filter SearchFilter) ([]models.Note, error)
	RecentNotes(ctx context.Context, limit int) ([]models.Note, error)

	CreateCategory(ctx context.Context, name, color string) (models.Category, error)
	GetCategoryByName(ctx context.Context, name string) (*models.Category, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
	DeleteCategory(ctx context.Context, id string) error

	GetOrCreateTag(ctx context.Context, name string) (models.Tag, error)
	ListTags(ctx context.Context) ([]models.Tag, error)
	AddNoteTag(ctx context.Context, noteID, tagName string) error
	RemoveNoteTag(ctx context.Context, noteID, tagName string) error

	CountNotesByCategory(ctx context.Context) ([]CategoryCount, error)
	CountNotesByTag(ctx context.Context) ([]TagCount, error)

	BackupTo(ctx context.Context, path string) error
	RestoreFrom(ctx context.Context, path string) error
}
