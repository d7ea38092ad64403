package models

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Category groups notes; a note belongs to at most one category.
type Category struct {
	ID        string    `json:"id" yaml:"id"`
	Name      string    `json:"name" yaml:"name"`
	Color     string    `json:"color,omitempty" yaml:"color,omitempty"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// Tag labels notes; notes and tags are many-to-many.
type Tag struct {
	ID        string    `json:"id" yaml:"id"`
	Name      string    `json:"name" yaml:"name"`
	Color     string    `json:"color,omitempty" yaml:"color,omitempty"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// Note is a single note. Content holds the rich-text document; PlainContent
// holds its plain-text rendering and is what search matches against.
type Note struct {
	ID           string    `json:"id" yaml:"id"`
	Title        string    `json:"title" yaml:"title"`
	Content      string    `json:"content" yaml:"content"`
	PlainContent string    `json:"plain_content" yaml:"plain_content"`
	Color        string    `json:"color,omitempty" yaml:"color,omitempty"`
	Pinned       bool      `json:"is_pinned" yaml:"is_pinned"`
	CategoryID   string    `json:"category_id,omitempty" yaml:"category_id,omitempty"`
	Tags         []Tag     `json:"tags,omitempty" yaml:"tags,omitempty"`
	CreatedAt    time.Time `json:"created_date" yaml:"created_date"`
	UpdatedAt    time.Time `json:"modified_date" yaml:"modified_date"`
}

// NewID returns a fresh entity identifier.
func NewID() string {
	return uuid.NewString()
}

// NewNote creates an unsaved note with a fresh ID. Timestamps are assigned
// by the store on insert.
func NewNote(title, content, plainContent string) Note {
	return Note{
		ID:           NewID(),
		Title:        title,
		Content:      content,
		PlainContent: plainContent,
	}
}

// DisplayTitle returns the note title, or a placeholder when it is empty.
func (n Note) DisplayTitle() string {
	if strings.TrimSpace(n.Title) != "" {
		return n.Title
	}
	return "Untitled"
}

// Preview returns up to max characters of the first line of the note's
// plain content.
func (n Note) Preview(max int) string {
	text := n.PlainContent
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i]
	}
	text = strings.TrimSpace(text)
	if max > 0 && utf8.RuneCountInString(text) > max {
		runes := []rune(text)
		return string(runes[:max]) + "…"
	}
	return text
}

// HasTag reports whether the note carries a tag with the given name,
// compared case-insensitively.
func (n Note) HasTag(name string) bool {
	for _, tag := range n.Tags {
		if strings.EqualFold(tag.Name, name) {
			return true
		}
	}
	return false
}

// TagNames returns the note's tag names in order.
func (n Note) TagNames() []string {
	names := make([]string, 0, len(n.Tags))
	for _, tag := range n.Tags {
		names = append(names, tag.Name)
	}
	return names
}

// Normalize lower-cases and trims an identifier-like value (tag and
// category names compare normalized).
func Normalize(in string) string {
	return strings.ToLower(strings.TrimSpace(in))
}
