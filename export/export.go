// Package export renders notes to portable formats.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/c0lornote/c0lornote/models"
)

// Format selects an export encoding.
type Format string

const (
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

// ParseFormat maps a user-supplied format name to a Format.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "json":
		return FormatJSON, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unknown export format %q", name)
	}
}

// Notes writes the given notes to w in the requested format.
func Notes(w io.Writer, notes []models.Note, format Format) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, notes)
	case FormatMarkdown:
		return writeMarkdown(w, notes)
	default:
		return fmt.Errorf("unknown export format %q", format)
	}
}

func writeJSON(w io.Writer, notes []models.Note) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if notes == nil {
		notes = []models.Note{}
	}
	return enc.Encode(notes)
}

func writeMarkdown(w io.Writer, notes []models.Note) error {
	for i, note := range notes {
		if i > 0 {
			if _, err := io.WriteString(w, "\n---\n\n"); err != nil {
				return err
			}
		}
		if err := writeMarkdownNote(w, note); err != nil {
			return err
		}
	}
	return nil
}

func writeMarkdownNote(w io.Writer, note models.Note) error {
	var b strings.Builder

	b.WriteString("# ")
	b.WriteString(note.DisplayTitle())
	b.WriteString("\n\n")

	var meta []string
	if note.Pinned {
		meta = append(meta, "pinned")
	}
	if len(note.Tags) > 0 {
		meta = append(meta, "tags: "+strings.Join(note.TagNames(), ", "))
	}
	if !note.UpdatedAt.IsZero() {
		meta = append(meta, "modified: "+note.UpdatedAt.Format(time.DateOnly))
	}
	if len(meta) > 0 {
		b.WriteString("*")
		b.WriteString(strings.Join(meta, " · "))
		b.WriteString("*\n\n")
	}

	content := note.PlainContent
	if content == "" {
		content = note.Content
	}
	b.WriteString(content)
	if !strings.HasSuffix(content, "\n") {
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}
