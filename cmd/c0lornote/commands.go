package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/c0lornote/c0lornote/export"
	"github.com/c0lornote/c0lornote/models"
	"github.com/c0lornote/c0lornote/store"
)

func newAddCmd(a *app) *cobra.Command {
	var (
		content  string
		category string
		tags     []string
		color    string
		pin      bool
	)

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Create a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			note := models.NewNote(args[0], content, content)
			note.Color = color
			note.Pinned = pin
			for _, name := range tags {
				note.Tags = append(note.Tags, models.Tag{Name: name})
			}

			if category != "" {
				id, err := a.resolveCategory(ctx, category, true)
				if err != nil {
					return err
				}
				note.CategoryID = id
			}

			created, err := a.store.CreateNote(ctx, note)
			if err != nil {
				return err
			}
			fmt.Printf("created %s\n", created.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&content, "content", "c", "", "note content")
	cmd.Flags().StringVar(&category, "category", "", "category name (created if missing)")
	cmd.Flags().StringSliceVarP(&tags, "tag", "t", nil, "tag name (repeatable)")
	cmd.Flags().StringVar(&color, "color", "", "note color")
	cmd.Flags().BoolVar(&pin, "pin", false, "pin the note")
	return cmd
}

func newListCmd(a *app) *cobra.Command {
	var (
		category string
		tag      string
		pinned   bool
		limit    int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List notes, pinned first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter := store.SearchFilter{PinnedOnly: pinned, Limit: limit}
			if err := a.applyNameFilters(cmd.Context(), &filter, category, tag); err != nil {
				return err
			}
			notes, err := a.store.SearchNotes(cmd.Context(), filter)
			if err != nil {
				return err
			}
			printNotes(notes)
			return nil
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "filter by category name")
	cmd.Flags().StringVar(&tag, "tag", "", "filter by tag name")
	cmd.Flags().BoolVar(&pinned, "pinned", false, "pinned notes only")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum notes to show")
	return cmd
}

func newSearchCmd(a *app) *cobra.Command {
	var (
		category string
		tag      string
	)

	cmd := &cobra.Command{
		Use:   "search <term>...",
		Short: "Search note titles and content",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := store.SearchFilter{Query: strings.Join(args, " ")}
			if err := a.applyNameFilters(cmd.Context(), &filter, category, tag); err != nil {
				return err
			}
			notes, err := a.store.SearchNotes(cmd.Context(), filter)
			if err != nil {
				return err
			}
			printNotes(notes)
			return nil
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "filter by category name")
	cmd.Flags().StringVar(&tag, "tag", "", "filter by tag name")
	return cmd
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <note-id>",
		Short: "Delete a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.store.DeleteNote(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("deleted %s\n", args[0])
			return nil
		},
	}
}

func newPinCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "pin <note-id>",
		Short: "Toggle a note's pinned state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pinned, err := a.store.TogglePin(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if pinned {
				fmt.Printf("pinned %s\n", args[0])
			} else {
				fmt.Printf("unpinned %s\n", args[0])
			}
			return nil
		},
	}
}

func newTagCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tag",
		Short: "Manage note tags",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "add <note-id> <tag>",
			Short: "Add a tag to a note",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.store.AddNoteTag(cmd.Context(), args[0], args[1])
			},
		},
		&cobra.Command{
			Use:   "rm <note-id> <tag>",
			Short: "Remove a tag from a note",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.store.RemoveNoteTag(cmd.Context(), args[0], args[1])
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List tags with note counts",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				counts, err := a.store.CountNotesByTag(cmd.Context())
				if err != nil {
					return err
				}
				for _, row := range counts {
					fmt.Printf("%-20s %d\n", row.Name, row.NoteCount)
				}
				return nil
			},
		},
	)
	return cmd
}

func newCategoriesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List categories with note counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			categories, err := a.store.ListCategories(ctx)
			if err != nil {
				return err
			}
			counts, err := a.store.CountNotesByCategory(ctx)
			if err != nil {
				return err
			}
			byID := make(map[string]int64, len(counts))
			for _, row := range counts {
				byID[row.CategoryID] = row.NoteCount
			}
			for _, category := range categories {
				fmt.Printf("%-20s %d\n", category.Name, byID[category.ID])
			}
			if uncategorized := byID[""]; uncategorized > 0 {
				fmt.Printf("%-20s %d\n", "(uncategorized)", uncategorized)
			}
			return nil
		},
	}
}

func newExportCmd(a *app) *cobra.Command {
	var (
		format string
		out    string
	)

	cmd := &cobra.Command{
		Use:   "export [term]...",
		Short: "Export notes as JSON or Markdown",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}

			notes, err := a.store.SearchNotes(cmd.Context(), store.SearchFilter{Query: strings.Join(args, " ")})
			if err != nil {
				return err
			}

			w := os.Stdout
			if out != "" {
				file, err := os.Create(out)
				if err != nil {
					return err
				}
				defer file.Close()
				w = file
			}
			return export.Notes(w, notes, f)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "json", "export format (json, markdown)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default: stdout)")
	return cmd
}

func newBackupCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Write a timestamped database backup",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			backup := a.cfg.Backup
			path, err := a.store.CreateBackup(cmd.Context(), backup.Dir, backup.MaxBackups)
			if err != nil {
				return err
			}
			fmt.Printf("backup written to %s\n", path)
			return nil
		},
	}
}

func newRestoreCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <backup-file>",
		Short: "Restore the database from a backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.store.RestoreFrom(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("restored from %s\n", args[0])
			return nil
		},
	}
}

// resolveCategory maps a category name to its ID, optionally creating it.
func (a *app) resolveCategory(ctx context.Context, name string, create bool) (string, error) {
	category, err := a.store.GetCategoryByName(ctx, name)
	if err == nil {
		return category.ID, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return "", err
	}
	if !create {
		return "", err
	}
	created, err := a.store.CreateCategory(ctx, name, "")
	if err != nil {
		return "", err
	}
	return created.ID, nil
}

func (a *app) applyNameFilters(ctx context.Context, filter *store.SearchFilter, category, tag string) error {
	if category != "" {
		id, err := a.resolveCategory(ctx, category, false)
		if err != nil {
			return err
		}
		filter.CategoryID = id
	}
	if tag != "" {
		tags, err := a.store.ListTags(ctx)
		if err != nil {
			return err
		}
		for _, t := range tags {
			if t.Name == models.Normalize(tag) {
				filter.TagIDs = append(filter.TagIDs, t.ID)
				return nil
			}
		}
		return fmt.Errorf("tag %q: %w", tag, store.ErrNotFound)
	}
	return nil
}

func printNotes(notes []models.Note) {
	if len(notes) == 0 {
		fmt.Println("no notes")
		return
	}
	for _, note := range notes {
		marker := " "
		if note.Pinned {
			marker = "*"
		}
		line := fmt.Sprintf("%s %s  %-30s %s", marker, note.ID, note.DisplayTitle(), note.Preview(60))
		if len(note.Tags) > 0 {
			line += "  [" + strings.Join(note.TagNames(), ", ") + "]"
		}
		fmt.Println(line)
	}
}
