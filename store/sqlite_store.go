package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/c0lornote/c0lornote/clock"
	"github.com/c0lornote/c0lornote/logger"
	"github.com/c0lornote/c0lornote/models"
	"github.com/c0lornote/c0lornote/timeutil"
)

var _ Store = (*SQLiteStore)(nil)

// ErrNotFound is returned when a note, category, or tag does not exist.
var ErrNotFound = errors.New("not found")

var errNotOpen = errors.New("store is not open")

//go:embed schema/migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore persists notes in a single SQLite database file. It is meant
// for one process with one writer; a mutex serializes all access.
type SQLiteStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	path   string
	clk    clock.Clock
	logger logger.Logger
}

type Params struct {
	Path   string
	Clock  clock.Clock
	Logger logger.Logger
}

func NewSQLiteStore(p Params) *SQLiteStore {
	return &SQLiteStore{
		path:   p.Path,
		clk:    p.Clock,
		logger: p.Logger,
	}
}

func (s *SQLiteStore) log() logger.Logger {
	if s.logger == nil {
		return logger.NewNop()
	}
	return s.logger
}

func (s *SQLiteStore) now() time.Time {
	if s.clk == nil {
		return time.Now()
	}
	return s.clk.Now()
}

func (s *SQLiteStore) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		return nil
	}
	if s.path == "" {
		return errors.New("store path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}

	database, err := sql.Open("sqlite3", sqliteFileDSN(s.path))
	if err != nil {
		return err
	}
	database.SetMaxOpenConns(1)
	database.SetMaxIdleConns(1)

	if err = database.PingContext(ctx); err != nil {
		_ = database.Close()
		return err
	}

	s.db = database
	s.log().InfoW("note store opened", "path", s.path)
	return s.applyMigrations(ctx)
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) applyMigrations(ctx context.Context) error {
	if s.db == nil {
		return errNotOpen
	}

	entries, err := fs.ReadDir(migrationsFS, "schema/migrations")
	if err != nil {
		return err
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	for _, name := range files {
		content, err := fs.ReadFile(migrationsFS, "schema/migrations/"+name)
		if err != nil {
			return err
		}
		sqlText := strings.TrimSpace(string(content))
		if sqlText == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, sqlText); err != nil {
			return fmt.Errorf("migration %s: %w", name, err)
		}
	}
	return nil
}

// dbtx covers *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const noteColumns = "id, title, content, plain_content, color, is_pinned, category_id, created_at, updated_at"

func (s *SQLiteStore) CreateNote(ctx context.Context, note models.Note) (models.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return models.Note{}, errNotOpen
	}

	if note.ID == "" {
		note.ID = models.NewID()
	}
	now := s.now()
	note.CreatedAt = now
	note.UpdatedAt = now

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Note{}, err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO notes (id, title, content, plain_content, color, is_pinned, category_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		note.ID, note.Title, note.Content, note.PlainContent,
		nullString(note.Color), boolToInt(note.Pinned), nullString(note.CategoryID),
		formatTime(note.CreatedAt), formatTime(note.UpdatedAt),
	)
	if err != nil {
		_ = tx.Rollback()
		s.log().ErrorW("failed to insert note", "error", err, "note_id", note.ID)
		return models.Note{}, err
	}

	tags, err := s.replaceNoteTags(ctx, tx, note.ID, note.Tags)
	if err != nil {
		_ = tx.Rollback()
		return models.Note{}, err
	}
	note.Tags = tags

	if err := tx.Commit(); err != nil {
		return models.Note{}, err
	}

	s.log().DebugW("note created", "note_id", note.ID, "title", note.DisplayTitle())
	return note, nil
}

func (s *SQLiteStore) GetNote(ctx context.Context, id string) (*models.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errNotOpen
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+noteColumns+` FROM notes WHERE id = ?`, id)
	note, err := scanNote(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("note %s: %w", id, ErrNotFound)
		}
		return nil, err
	}

	if err := s.attachTags(ctx, s.db, &note); err != nil {
		return nil, err
	}
	return &note, nil
}

func (s *SQLiteStore) UpdateNote(ctx context.Context, note models.Note) (models.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return models.Note{}, errNotOpen
	}

	note.UpdatedAt = s.now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Note{}, err
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE notes SET title = ?, content = ?, plain_content = ?, color = ?,
		        is_pinned = ?, category_id = ?, updated_at = ?
		 WHERE id = ?`,
		note.Title, note.Content, note.PlainContent, nullString(note.Color),
		boolToInt(note.Pinned), nullString(note.CategoryID), formatTime(note.UpdatedAt),
		note.ID,
	)
	if err != nil {
		_ = tx.Rollback()
		return models.Note{}, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		_ = tx.Rollback()
		return models.Note{}, err
	}
	if affected == 0 {
		_ = tx.Rollback()
		return models.Note{}, fmt.Errorf("note %s: %w", note.ID, ErrNotFound)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM note_tags WHERE note_id = ?`, note.ID); err != nil {
		_ = tx.Rollback()
		return models.Note{}, err
	}
	tags, err := s.replaceNoteTags(ctx, tx, note.ID, note.Tags)
	if err != nil {
		_ = tx.Rollback()
		return models.Note{}, err
	}
	note.Tags = tags

	var createdAt string
	if err := tx.QueryRowContext(ctx, `SELECT created_at FROM notes WHERE id = ?`, note.ID).Scan(&createdAt); err != nil {
		_ = tx.Rollback()
		return models.Note{}, err
	}
	if note.CreatedAt, err = timeutil.ParseRFC3339(createdAt); err != nil {
		_ = tx.Rollback()
		return models.Note{}, err
	}

	if err := tx.Commit(); err != nil {
		return models.Note{}, err
	}

	s.log().DebugW("note updated", "note_id", note.ID)
	return note, nil
}

func (s *SQLiteStore) DeleteNote(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return errNotOpen
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("note %s: %w", id, ErrNotFound)
	}

	s.log().DebugW("note deleted", "note_id", id)
	return nil
}

func (s *SQLiteStore) TogglePin(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return false, errNotOpen
	}

	var pinned int
	err := s.db.QueryRowContext(ctx, `SELECT is_pinned FROM notes WHERE id = ?`, id).Scan(&pinned)
	if errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("note %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return false, err
	}

	next := pinned == 0
	_, err = s.db.ExecContext(ctx, `UPDATE notes SET is_pinned = ?, updated_at = ? WHERE id = ?`,
		boolToInt(next), formatTime(s.now()), id)
	if err != nil {
		return false, err
	}
	return next, nil
}

func (s *SQLiteStore) ListNotes(ctx context.Context) ([]models.Note, error) {
	return s.SearchNotes(ctx, SearchFilter{})
}

func (s *SQLiteStore) RecentNotes(ctx context.Context, limit int) ([]models.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errNotOpen
	}

	notes, err := s.queryNotes(ctx,
		`SELECT `+noteColumns+` FROM notes ORDER BY updated_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	return notes, nil
}

func (s *SQLiteStore) SearchNotes(ctx context.Context, filter SearchFilter) ([]models.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errNotOpen
	}

	var (
		sb   strings.Builder
		args []any
	)
	sb.WriteString(`SELECT ` + noteColumns + ` FROM notes WHERE 1=1`)

	for _, term := range strings.Fields(filter.Query) {
		sb.WriteString(` AND (title LIKE ? OR plain_content LIKE ?)`)
		like := "%" + term + "%"
		args = append(args, like, like)
	}
	if filter.CategoryID != "" {
		sb.WriteString(` AND category_id = ?`)
		args = append(args, filter.CategoryID)
	}
	for _, tagID := range filter.TagIDs {
		sb.WriteString(` AND EXISTS (SELECT 1 FROM note_tags nt WHERE nt.note_id = notes.id AND nt.tag_id = ?)`)
		args = append(args, tagID)
	}
	if filter.PinnedOnly {
		sb.WriteString(` AND is_pinned = 1`)
	}
	sb.WriteString(` ORDER BY is_pinned DESC, updated_at DESC`)
	if filter.Limit > 0 {
		sb.WriteString(` LIMIT ?`)
		args = append(args, filter.Limit)
	}

	notes, err := s.queryNotes(ctx, sb.String(), args...)
	if err != nil {
		s.log().ErrorW("note search failed", "error", err, "query", filter.Query)
		return nil, err
	}

	s.log().DebugW("notes searched", "query", filter.Query, "count", len(notes))
	return notes, nil
}

// queryNotes runs a note query and attaches tags. Callers hold s.mu.
func (s *SQLiteStore) queryNotes(ctx context.Context, query string, args ...any) ([]models.Note, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	var notes []models.Note
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		notes = append(notes, note)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}

	// Single-connection pool: tag lookups must run after the note rows
	// are fully drained.
	for i := range notes {
		if err := s.attachTags(ctx, s.db, &notes[i]); err != nil {
			return nil, err
		}
	}
	return notes, nil
}

func (s *SQLiteStore) attachTags(ctx context.Context, q dbtx, note *models.Note) error {
	rows, err := q.QueryContext(ctx,
		`SELECT t.id, t.name, t.color, t.created_at
		 FROM tags t JOIN note_tags nt ON nt.tag_id = t.id
		 WHERE nt.note_id = ?
		 ORDER BY t.name`, note.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	note.Tags = nil
	for rows.Next() {
		tag, err := scanTag(rows)
		if err != nil {
			return err
		}
		note.Tags = append(note.Tags, tag)
	}
	return rows.Err()
}

// replaceNoteTags links the given tags (by name, get-or-create) to a note.
// The caller has already cleared existing links where needed.
func (s *SQLiteStore) replaceNoteTags(ctx context.Context, tx *sql.Tx, noteID string, tags []models.Tag) ([]models.Tag, error) {
	out := make([]models.Tag, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		name := models.Normalize(tag.Name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		created, err := s.getOrCreateTagTx(ctx, tx, name, tag.Color)
		if err != nil {
			return nil, err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO note_tags (note_id, tag_id) VALUES (?, ?)`,
			noteID, created.ID); err != nil {
			return nil, err
		}
		out = append(out, created)
	}
	return out, nil
}

func (s *SQLiteStore) getOrCreateTagTx(ctx context.Context, q dbtx, name, color string) (models.Tag, error) {
	row := q.QueryRowContext(ctx, `SELECT id, name, color, created_at FROM tags WHERE name = ?`, name)
	tag, err := scanTag(row)
	if err == nil {
		return tag, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.Tag{}, err
	}

	tag = models.Tag{
		ID:        models.NewID(),
		Name:      name,
		Color:     color,
		CreatedAt: s.now(),
	}
	_, err = q.ExecContext(ctx,
		`INSERT INTO tags (id, name, color, created_at) VALUES (?, ?, ?, ?)`,
		tag.ID, tag.Name, nullString(tag.Color), formatTime(tag.CreatedAt))
	if err != nil {
		return models.Tag{}, err
	}
	return tag, nil
}

func (s *SQLiteStore) CreateCategory(ctx context.Context, name, color string) (models.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return models.Category{}, errNotOpen
	}

	category := models.Category{
		ID:        models.NewID(),
		Name:      models.Normalize(name),
		Color:     color,
		CreatedAt: s.now(),
	}
	if category.Name == "" {
		return models.Category{}, errors.New("category name is empty")
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO categories (id, name, color, created_at) VALUES (?, ?, ?, ?)`,
		category.ID, category.Name, nullString(category.Color), formatTime(category.CreatedAt))
	if err != nil {
		return models.Category{}, err
	}

	s.log().DebugW("category created", "category_id", category.ID, "name", category.Name)
	return category, nil
}

func (s *SQLiteStore) GetCategoryByName(ctx context.Context, name string) (*models.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errNotOpen
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, color, created_at FROM categories WHERE name = ?`,
		models.Normalize(name))
	category, err := scanCategory(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("category %q: %w", name, ErrNotFound)
		}
		return nil, err
	}
	return &category, nil
}

func (s *SQLiteStore) ListCategories(ctx context.Context) ([]models.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errNotOpen
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, color, created_at FROM categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Category
	for rows.Next() {
		category, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, category)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) DeleteCategory(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return errNotOpen
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("category %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *SQLiteStore) GetOrCreateTag(ctx context.Context, name string) (models.Tag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return models.Tag{}, errNotOpen
	}

	normalized := models.Normalize(name)
	if normalized == "" {
		return models.Tag{}, errors.New("tag name is empty")
	}
	return s.getOrCreateTagTx(ctx, s.db, normalized, "")
}

func (s *SQLiteStore) ListTags(ctx context.Context) ([]models.Tag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errNotOpen
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, color, created_at FROM tags ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Tag
	for rows.Next() {
		tag, err := scanTag(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tag)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) AddNoteTag(ctx context.Context, noteID, tagName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return errNotOpen
	}

	normalized := models.Normalize(tagName)
	if normalized == "" {
		return errors.New("tag name is empty")
	}

	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM notes WHERE id = ?`, noteID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("note %s: %w", noteID, ErrNotFound)
	}
	if err != nil {
		return err
	}

	tag, err := s.getOrCreateTagTx(ctx, s.db, normalized, "")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO note_tags (note_id, tag_id) VALUES (?, ?)`,
		noteID, tag.ID)
	return err
}

func (s *SQLiteStore) RemoveNoteTag(ctx context.Context, noteID, tagName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return errNotOpen
	}

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM note_tags WHERE note_id = ? AND tag_id IN (SELECT id FROM tags WHERE name = ?)`,
		noteID, models.Normalize(tagName))
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("tag %q on note %s: %w", tagName, noteID, ErrNotFound)
	}
	return nil
}

func (s *SQLiteStore) CountNotesByCategory(ctx context.Context) ([]CategoryCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errNotOpen
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT COALESCE(category_id, ''), COUNT(*) FROM notes GROUP BY category_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CategoryCount
	for rows.Next() {
		var row CategoryCount
		if err := rows.Scan(&row.CategoryID, &row.NoteCount); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) CountNotesByTag(ctx context.Context) ([]TagCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errNotOpen
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT t.id, t.name, COUNT(nt.note_id)
		 FROM tags t JOIN note_tags nt ON nt.tag_id = t.id
		 GROUP BY t.id, t.name
		 ORDER BY t.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TagCount
	for rows.Next() {
		var row TagCount
		if err := rows.Scan(&row.TagID, &row.Name, &row.NoteCount); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNote(row rowScanner) (models.Note, error) {
	var (
		note       models.Note
		color      sql.NullString
		pinned     int
		categoryID sql.NullString
		createdAt  string
		updatedAt  string
	)
	err := row.Scan(&note.ID, &note.Title, &note.Content, &note.PlainContent,
		&color, &pinned, &categoryID, &createdAt, &updatedAt)
	if err != nil {
		return models.Note{}, err
	}
	note.Color = color.String
	note.Pinned = pinned != 0
	note.CategoryID = categoryID.String
	if note.CreatedAt, err = timeutil.ParseRFC3339(createdAt); err != nil {
		return models.Note{}, err
	}
	if note.UpdatedAt, err = timeutil.ParseRFC3339(updatedAt); err != nil {
		return models.Note{}, err
	}
	return note, nil
}

func scanTag(row rowScanner) (models.Tag, error) {
	var (
		tag       models.Tag
		color     sql.NullString
		createdAt string
	)
	err := row.Scan(&tag.ID, &tag.Name, &color, &createdAt)
	if err != nil {
		return models.Tag{}, err
	}
	tag.Color = color.String
	if tag.CreatedAt, err = timeutil.ParseRFC3339(createdAt); err != nil {
		return models.Tag{}, err
	}
	return tag, nil
}

func scanCategory(row rowScanner) (models.Category, error) {
	var (
		category  models.Category
		color     sql.NullString
		createdAt string
	)
	err := row.Scan(&category.ID, &category.Name, &color, &createdAt)
	if err != nil {
		return models.Category{}, err
	}
	category.Color = color.String
	if category.CreatedAt, err = timeutil.ParseRFC3339(createdAt); err != nil {
		return models.Category{}, err
	}
	return category, nil
}

func sqliteFileDSN(path string) string {
	return fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", path)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
