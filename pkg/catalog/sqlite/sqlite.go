// Package sqlite persists the saved archive catalog in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/glorpus-work/apkstash/internal/logger"
	"github.com/glorpus-work/apkstash/pkg/catalog"
	"github.com/glorpus-work/apkstash/pkg/errutils"
	"github.com/glorpus-work/apkstash/pkg/fsutil"
	"github.com/glorpus-work/apkstash/pkg/model"

	_ "modernc.org/sqlite"
)

// FileName is the database file created inside the state directory.
const FileName = "catalog.db"

// Store is a catalog.Store backed by SQLite.
type Store struct {
	db *sql.DB
}

var _ catalog.Store = (*Store)(nil)

// Open opens or creates the database at path and applies the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := fsutil.EnsureFileDir(path); err != nil {
		return nil, errutils.Wrapf(errutils.Classify(err), "failed to create directory for %s", path)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errutils.Wrapf(errutils.ErrIO, "failed to open catalog database %s: %v", path, err)
	}
	// one writer at a time; transactions must not interleave
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, errutils.Wrapf(errutils.ErrIO, "failed to apply catalog schema: %v", err)
	}
	logger.Debug("Opened catalog database", logger.Fields{"path": path})
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

// List returns every row ordered by file name.
func (s *Store) List(ctx context.Context) ([]model.ArchiveFile, error) {
	rows, err := s.db.QueryContext(ctx, selectAll)
	if err != nil {
		return nil, wrapDB(ctx, err, "failed to query catalog")
	}
	defer rows.Close()

	var out []model.ArchiveFile
	for rows.Next() {
		f, err := scanRow(rows)
		if err != nil {
			return nil, wrapDB(ctx, err, "failed to read catalog row")
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDB(ctx, err, "failed to read catalog")
	}
	return out, nil
}

// Get returns the row for uri.
func (s *Store) Get(ctx context.Context, uri string) (model.ArchiveFile, error) {
	f, err := scanRow(s.db.QueryRowContext(ctx, selectOne, uri))
	if errors.Is(err, sql.ErrNoRows) {
		return model.ArchiveFile{}, errutils.ErrNotFoundWithName("archive", uri)
	}
	if err != nil {
		return model.ArchiveFile{}, wrapDB(ctx, err, "failed to read catalog row")
	}
	return f, nil
}

// Apply runs deletes then inserts in one transaction.
func (s *Store) Apply(ctx context.Context, inserts []model.ArchiveFile, deletes []string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, uri := range deletes {
			if _, err := tx.ExecContext(ctx, deleteOne, uri); err != nil {
				return fmt.Errorf("delete %s: %w", uri, err)
			}
		}
		for _, f := range inserts {
			if _, err := tx.ExecContext(ctx, insertOne, args(f)...); err != nil {
				return fmt.Errorf("insert %s: %w", f.FileURI, err)
			}
		}
		return nil
	})
}

// Upsert inserts or replaces rows in one transaction.
func (s *Store) Upsert(ctx context.Context, files ...model.ArchiveFile) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, f := range files {
			if _, err := tx.ExecContext(ctx, upsertOne, args(f)...); err != nil {
				return fmt.Errorf("upsert %s: %w", f.FileURI, err)
			}
		}
		return nil
	})
}

// Delete removes rows in one transaction.
func (s *Store) Delete(ctx context.Context, uris ...string) error {
	return s.Apply(ctx, nil, uris)
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapDB(ctx, err, "failed to begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return wrapDB(ctx, err, "catalog transaction rolled back")
	}
	if err := tx.Commit(); err != nil {
		return wrapDB(ctx, err, "failed to commit catalog transaction")
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRow(sc scanner) (model.ArchiveFile, error) {
	var (
		f           model.ArchiveFile
		modified    int64
		appName     sql.NullString
		packageName sql.NullString
		versionName sql.NullString
		versionCode sql.NullInt64
		minSdk      sql.NullInt64
		targetSdk   sql.NullInt64
	)
	err := sc.Scan(&f.FileURI, &f.FileName, &f.FileType, &modified, &f.FileSize,
		&appName, &packageName, &f.AppIcon, &versionName, &versionCode,
		&minSdk, &targetSdk, &f.Loaded)
	if err != nil {
		return model.ArchiveFile{}, err
	}
	f.FileLastModified = time.Unix(0, modified).UTC()
	f.AppName = nullString(appName)
	f.AppPackageName = nullString(packageName)
	f.AppVersionName = nullString(versionName)
	if versionCode.Valid {
		f.AppVersionCode = &versionCode.Int64
	}
	f.AppMinSdkVersion = nullInt(minSdk)
	f.AppTargetSdkVersion = nullInt(targetSdk)
	return f, nil
}

func args(f model.ArchiveFile) []any {
	return []any{
		f.FileURI, f.FileName, f.FileType, f.FileLastModified.UnixNano(), f.FileSize,
		f.AppName, f.AppPackageName, f.AppIcon, f.AppVersionName, f.AppVersionCode,
		f.AppMinSdkVersion, f.AppTargetSdkVersion, f.Loaded,
	}
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}

func nullInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

func wrapDB(ctx context.Context, err error, msg string) error {
	if ctx.Err() != nil {
		return errutils.Wrap(errutils.Classify(ctx.Err()), msg)
	}
	return fmt.Errorf("%s: %w: %w", msg, errutils.ErrIO, err)
}
