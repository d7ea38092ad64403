package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mattn/go-sqlite3"

	"github.com/c0lornote/c0lornote/timeutil"
)

const backupSuffix = ".bak"

// BackupTo copies the live database into a standalone SQLite file at path
// using the online backup API, overwriting any existing file.
func (s *SQLiteStore) BackupTo(ctx context.Context, path string) error {
	if path == "" {
		return fmt.Errorf("backup path is empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return errNotOpen
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	fileDB, err := sql.Open("sqlite3", sqliteFileDSN(path))
	if err != nil {
		return err
	}
	defer fileDB.Close()

	if err := onlineBackup(ctx, s.db, fileDB); err != nil {
		s.log().ErrorW("database backup failed", "error", err, "path", path)
		return err
	}

	s.log().InfoW("database backup created", "path", path)
	return nil
}

// RestoreFrom replaces the live database contents with the backup at path.
func (s *SQLiteStore) RestoreFrom(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return errNotOpen
	}
	if _, err := os.Stat(path); err != nil {
		return err
	}

	fileDB, err := sql.Open("sqlite3", sqliteFileDSN(path))
	if err != nil {
		return err
	}
	defer fileDB.Close()

	if err := onlineBackup(ctx, fileDB, s.db); err != nil {
		s.log().ErrorW("database restore failed", "error", err, "path", path)
		return err
	}

	s.log().InfoW("database restored", "path", path)
	return s.applyMigrations(ctx)
}

// CreateBackup writes a timestamped backup under dir and prunes the oldest
// backups beyond maxBackups. It returns the backup file path.
func (s *SQLiteStore) CreateBackup(ctx context.Context, dir string, maxBackups int) (string, error) {
	name := fmt.Sprintf("%s_%s%s", filepath.Base(s.path), timeutil.Stamp(s.now()), backupSuffix)
	path := filepath.Join(dir, name)

	if err := s.BackupTo(ctx, path); err != nil {
		return "", err
	}
	if maxBackups > 0 {
		if err := pruneBackups(dir, maxBackups); err != nil {
			// Retention failures must not undo a successful backup.
			s.log().WarnW("backup cleanup failed", "error", err, "dir", dir)
		}
	}
	return path, nil
}

// pruneBackups keeps the maxBackups newest *.bak files in dir, removing the
// rest oldest-first.
func pruneBackups(dir string, maxBackups int) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	type backupFile struct {
		name string
		mod  int64
	}
	var backups []backupFile
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), backupSuffix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return err
		}
		backups = append(backups, backupFile{name: entry.Name(), mod: info.ModTime().UnixNano()})
	}
	if len(backups) <= maxBackups {
		return nil
	}

	sort.Slice(backups, func(i, j int) bool { return backups[i].mod < backups[j].mod })
	for _, b := range backups[:len(backups)-maxBackups] {
		if err := os.Remove(filepath.Join(dir, b.name)); err != nil {
			return err
		}
	}
	return nil
}

func onlineBackup(ctx context.Context, src *sql.DB, dst *sql.DB) error {
	srcConn, err := src.Conn(ctx)
	if err != nil {
		return err
	}
	defer srcConn.Close()

	dstConn, err := dst.Conn(ctx)
	if err != nil {
		return err
	}
	defer dstConn.Close()

	return dstConn.Raw(func(dstDriver any) error {
		return srcConn.Raw(func(srcDriver any) error {
			dstSQLite, ok := dstDriver.(*sqlite3.SQLiteConn)
			if !ok {
				return fmt.Errorf("unexpected destination driver: %T", dstDriver)
			}
			srcSQLite, ok := srcDriver.(*sqlite3.SQLiteConn)
			if !ok {
				return fmt.Errorf("unexpected source driver: %T", srcDriver)
			}

			backup, err := dstSQLite.Backup("main", srcSQLite, "main")
			if err != nil {
				return err
			}
			defer backup.Finish()

			_, err = backup.Step(-1)
			return err
		})
	})
}
