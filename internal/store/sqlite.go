package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/jrlabs/appforge/internal/apperr"
)

// SQLiteStore is the embedded backend.
type SQLiteStore struct {
	db    *sql.DB
	locks *keyedLocks
}

func NewSQLiteStore(dataSourceName string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeStorage, "failed to open database")
	}
	if err = db.Ping(); err != nil {
		return nil, apperr.Wrap(err, apperr.CodeStorage, "failed to ping database")
	}
	// database/sql pools connections; a fresh in-memory sqlite appears per
	// connection unless shared-cache is used, and concurrent writers trip
	// SQLITE_BUSY. One connection sidesteps both.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db, locks: newKeyedLocks()}
	if err = s.initSchema(); err != nil {
		return nil, apperr.Wrap(err, apperr.CodeStorage, "failed to initialize schema")
	}
	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS apps (
        id TEXT PRIMARY KEY, -- UUID
        name TEXT NOT NULL,
        title TEXT NOT NULL DEFAULT '',
        prompt TEXT,
        code TEXT NOT NULL,
        model_used TEXT NOT NULL DEFAULT '',
        version INTEGER NOT NULL DEFAULT 1,
        favorite BOOLEAN NOT NULL DEFAULT FALSE,
        view_count INTEGER NOT NULL DEFAULT 0,
        hosted_url TEXT NOT NULL DEFAULT '',
        preview_ref TEXT NOT NULL DEFAULT '',
        created_at DATETIME NOT NULL,
        updated_at DATETIME NOT NULL
    );

    CREATE TABLE IF NOT EXISTS versions (
        id TEXT PRIMARY KEY, -- UUID
        app_id TEXT NOT NULL,
        code TEXT NOT NULL,
        version INTEGER NOT NULL,
        note TEXT NOT NULL DEFAULT '',
        created_at DATETIME NOT NULL,
        FOREIGN KEY (app_id) REFERENCES apps (id)
    );

    CREATE INDEX IF NOT EXISTS idx_versions_app_id ON versions (app_id);

    CREATE TABLE IF NOT EXISTS settings (
        key TEXT PRIMARY KEY,
        value TEXT NOT NULL
    );
    `
	_, err := s.db.Exec(schema)
	return err
}

const appColumns = "id, name, title, prompt, code, model_used, version, favorite, view_count, hosted_url, preview_ref, created_at, updated_at"

func scanApp(row interface{ Scan(...any) error }) (*App, error) {
	var app App
	var prompt sql.NullString
	err := row.Scan(&app.ID, &app.Name, &app.Title, &prompt, &app.Code, &app.ModelUsed,
		&app.Version, &app.Favorite, &app.ViewCount, &app.HostedURL, &app.PreviewRef,
		&app.CreatedAt, &app.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if prompt.Valid {
		app.Prompt = &prompt.String
	}
	return &app, nil
}

func (s *SQLiteStore) Create(ctx context.Context, draft AppDraft) (*App, error) {
	if err := validateDraft(&draft); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	app := &App{
		ID:         uuid.NewString(),
		Name:       draft.Name,
		Title:      draft.Title,
		Prompt:     draft.Prompt,
		Code:       draft.Code,
		ModelUsed:  draft.ModelUsed,
		Version:    1,
		Favorite:   false,
		ViewCount:  0,
		HostedURL:  draft.HostedURL,
		PreviewRef: draft.PreviewRef,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if app.Name == "" {
		app.Name = "app-" + app.ID[:8]
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeStorage, "failed to begin transaction")
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, "INSERT INTO apps ("+appColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		app.ID, app.Name, app.Title, nullable(app.Prompt), app.Code, app.ModelUsed,
		app.Version, app.Favorite, app.ViewCount, app.HostedURL, app.PreviewRef,
		app.CreatedAt, app.UpdatedAt)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeStorage, "failed to insert app")
	}

	if err := insertVersionTx(ctx, tx, app.ID, app.Code, 1, draft.Note, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, apperr.Wrap(err, apperr.CodeStorage, "failed to commit app creation")
	}
	return app, nil
}

func insertVersionTx(ctx context.Context, tx *sql.Tx, appID, code string, version int, note string, at time.Time) error {
	_, err := tx.ExecContext(ctx,
		"INSERT INTO versions (id, app_id, code, version, note, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		uuid.NewString(), appID, code, version, note, at)
	if err != nil {
		return apperr.Wrap(err, apperr.CodeStorage, "failed to insert version")
	}
	return nil
}

// Update commits newCode as the next version. The app row and the version
// record land in one transaction; the per-app lock keeps concurrent commits
// from racing the read-modify-write of the version counter.
func (s *SQLiteStore) Update(ctx context.Context, id, newCode, note string) (*App, error) {
	unlock := s.locks.acquire(id)
	defer unlock()
	return s.commitCode(ctx, id, newCode, note)
}

func (s *SQLiteStore) commitCode(ctx context.Context, id, newCode, note string) (*App, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeStorage, "failed to begin transaction")
	}
	defer tx.Rollback()

	app, err := scanApp(tx.QueryRowContext(ctx, "SELECT "+appColumns+" FROM apps WHERE id = ?", id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperr.Newf(apperr.CodeNotFound, "app %s not found", id)
		}
		return nil, apperr.Wrap(err, apperr.CodeStorage, "failed to load app")
	}

	now := time.Now().UTC()
	app.Version++
	app.Code = newCode
	app.UpdatedAt = now
	// Code no longer corresponds to the generating prompt.
	app.Prompt = nil
	if note == "" {
		note = defaultUpdateNote(app.Version)
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE apps SET code = ?, version = ?, prompt = NULL, updated_at = ? WHERE id = ?",
		app.Code, app.Version, app.UpdatedAt, id)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeStorage, "failed to update app")
	}

	if err := insertVersionTx(ctx, tx, id, newCode, app.Version, note, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, apperr.Wrap(err, apperr.CodeStorage, "failed to commit app update")
	}
	return app, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*App, error) {
	app, err := scanApp(s.db.QueryRowContext(ctx, "SELECT "+appColumns+" FROM apps WHERE id = ?", id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperr.Newf(apperr.CodeNotFound, "app %s not found", id)
		}
		return nil, apperr.Wrap(err, apperr.CodeStorage, "failed to query app")
	}
	return app, nil
}

func (s *SQLiteStore) List(ctx context.Context, filter Filter, srt Sort) ([]App, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+appColumns+" FROM apps ORDER BY created_at DESC")
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeStorage, "failed to query apps")
	}
	defer rows.Close()

	var apps []App
	for rows.Next() {
		app, err := scanApp(rows)
		if err != nil {
			return nil, apperr.Wrap(err, apperr.CodeStorage, "failed to scan app row")
		}
		apps = append(apps, *app)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(err, apperr.CodeStorage, "failed to iterate app rows")
	}
	return Project(apps, filter, srt), nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	unlock := s.locks.acquire(id)
	defer unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperr.Wrap(err, apperr.CodeStorage, "failed to begin transaction")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM versions WHERE app_id = ?", id); err != nil {
		return apperr.Wrap(err, apperr.CodeStorage, "failed to delete versions")
	}
	// Idempotent: zero rows affected is fine.
	if _, err := tx.ExecContext(ctx, "DELETE FROM apps WHERE id = ?", id); err != nil {
		return apperr.Wrap(err, apperr.CodeStorage, "failed to delete app")
	}

	if err := tx.Commit(); err != nil {
		return apperr.Wrap(err, apperr.CodeStorage, "failed to commit app deletion")
	}
	return nil
}

func (s *SQLiteStore) ToggleFavorite(ctx context.Context, id string) (*App, error) {
	unlock := s.locks.acquire(id)
	defer unlock()

	// Favorite flips alone: version, timestamps and counters stay put.
	res, err := s.db.ExecContext(ctx, "UPDATE apps SET favorite = NOT favorite WHERE id = ?", id)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeStorage, "failed to toggle favorite")
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return nil, apperr.Newf(apperr.CodeNotFound, "app %s not found", id)
	}
	return s.Get(ctx, id)
}

func (s *SQLiteStore) IncrementViews(ctx context.Context, id string) (*App, error) {
	unlock := s.locks.acquire(id)
	defer unlock()

	res, err := s.db.ExecContext(ctx, "UPDATE apps SET view_count = view_count + 1 WHERE id = ?", id)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeStorage, "failed to increment views")
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return nil, apperr.Newf(apperr.CodeNotFound, "app %s not found", id)
	}
	return s.Get(ctx, id)
}

func (s *SQLiteStore) ListVersions(ctx context.Context, appID string) ([]Version, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, app_id, code, version, note, created_at FROM versions WHERE app_id = ? ORDER BY version DESC, created_at DESC",
		appID)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeStorage, "failed to query versions")
	}
	defer rows.Close()

	var versions []Version
	for rows.Next() {
		var v Version
		if err := rows.Scan(&v.ID, &v.AppID, &v.Code, &v.Version, &v.Note, &v.CreatedAt); err != nil {
			return nil, apperr.Wrap(err, apperr.CodeStorage, "failed to scan version row")
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(err, apperr.CodeStorage, "failed to iterate version rows")
	}
	return versions, nil
}

func (s *SQLiteStore) RestoreVersion(ctx context.Context, appID, versionID string) (*App, error) {
	unlock := s.locks.acquire(appID)
	defer unlock()

	var snapshot Version
	err := s.db.QueryRowContext(ctx,
		"SELECT id, app_id, code, version, note, created_at FROM versions WHERE id = ? AND app_id = ?",
		versionID, appID).
		Scan(&snapshot.ID, &snapshot.AppID, &snapshot.Code, &snapshot.Version, &snapshot.Note, &snapshot.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperr.Newf(apperr.CodeNotFound, "version %s not found for app %s", versionID, appID)
		}
		return nil, apperr.Wrap(err, apperr.CodeStorage, "failed to query version")
	}

	return s.commitCode(ctx, appID, snapshot.Code, restoreNote(snapshot.Version))
}

func (s *SQLiteStore) GetSettings(ctx context.Context) (*Settings, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", settingsKey).Scan(&raw)
	if err == sql.ErrNoRows {
		return &Settings{}, nil
	}
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeStorage, "failed to query settings")
	}
	var settings Settings
	if err := json.Unmarshal([]byte(raw), &settings); err != nil {
		return nil, apperr.Wrap(err, apperr.CodeStorage, "failed to decode settings")
	}
	return &settings, nil
}

func (s *SQLiteStore) PutSettings(ctx context.Context, settings Settings) error {
	raw, err := json.Marshal(settings)
	if err != nil {
		return apperr.Wrap(err, apperr.CodeStorage, "failed to encode settings")
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		settingsKey, string(raw))
	if err != nil {
		return apperr.Wrap(err, apperr.CodeStorage, "failed to store settings")
	}
	return nil
}

func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

var _ AppStore = (*SQLiteStore)(nil)
