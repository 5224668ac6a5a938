package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jrlabs/appforge/internal/apperr"
)

// PostgresStore is the external document-store backend. Observable
// semantics are identical to SQLiteStore; callers never branch on backend.
type PostgresStore struct {
	pool  *pgxpool.Pool
	locks *keyedLocks
}

func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeStorage, "failed to create postgres pool")
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, apperr.Wrap(err, apperr.CodeStorage, "failed to ping postgres")
	}

	s := &PostgresStore{pool: pool, locks: newKeyedLocks()}
	if err := s.initSchema(ctx); err != nil {
		pool.Close()
		return nil, apperr.Wrap(err, apperr.CodeStorage, "failed to initialize schema")
	}
	return s, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) initSchema(ctx context.Context) error {
	schema := `
    CREATE TABLE IF NOT EXISTS apps (
        id TEXT PRIMARY KEY,
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
        created_at TIMESTAMPTZ NOT NULL,
        updated_at TIMESTAMPTZ NOT NULL
    );

    CREATE TABLE IF NOT EXISTS versions (
        id TEXT PRIMARY KEY,
        app_id TEXT NOT NULL REFERENCES apps (id),
        code TEXT NOT NULL,
        version INTEGER NOT NULL,
        note TEXT NOT NULL DEFAULT '',
        created_at TIMESTAMPTZ NOT NULL
    );

    CREATE INDEX IF NOT EXISTS idx_versions_app_id ON versions (app_id);

    CREATE TABLE IF NOT EXISTS settings (
        key TEXT PRIMARY KEY,
        value TEXT NOT NULL
    );
    `
	_, err := s.pool.Exec(ctx, schema)
	return err
}

type pgRow interface{ Scan(...any) error }

func scanAppPg(row pgRow) (*App, error) {
	var app App
	var prompt *string
	err := row.Scan(&app.ID, &app.Name, &app.Title, &prompt, &app.Code, &app.ModelUsed,
		&app.Version, &app.Favorite, &app.ViewCount, &app.HostedURL, &app.PreviewRef,
		&app.CreatedAt, &app.UpdatedAt)
	if err != nil {
		return nil, err
	}
	app.Prompt = prompt
	return &app, nil
}

func (s *PostgresStore) Create(ctx context.Context, draft AppDraft) (*App, error) {
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
		HostedURL:  draft.HostedURL,
		PreviewRef: draft.PreviewRef,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if app.Name == "" {
		app.Name = "app-" + app.ID[:8]
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeStorage, "failed to begin transaction")
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `INSERT INTO apps (`+appColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		app.ID, app.Name, app.Title, app.Prompt, app.Code, app.ModelUsed,
		app.Version, app.Favorite, app.ViewCount, app.HostedURL, app.PreviewRef,
		app.CreatedAt, app.UpdatedAt)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeStorage, "failed to insert app")
	}

	_, err = tx.Exec(ctx, `INSERT INTO versions (id, app_id, code, version, note, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.NewString(), app.ID, app.Code, 1, draft.Note, now)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeStorage, "failed to insert version")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, apperr.Wrap(err, apperr.CodeStorage, "failed to commit app creation")
	}
	return app, nil
}

func (s *PostgresStore) Update(ctx context.Context, id, newCode, note string) (*App, error) {
	unlock := s.locks.acquire(id)
	defer unlock()
	return s.commitCode(ctx, id, newCode, note)
}

func (s *PostgresStore) commitCode(ctx context.Context, id, newCode, note string) (*App, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeStorage, "failed to begin transaction")
	}
	defer tx.Rollback(ctx)

	app, err := scanAppPg(tx.QueryRow(ctx, "SELECT "+appColumns+" FROM apps WHERE id = $1 FOR UPDATE", id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.Newf(apperr.CodeNotFound, "app %s not found", id)
		}
		return nil, apperr.Wrap(err, apperr.CodeStorage, "failed to load app")
	}

	now := time.Now().UTC()
	app.Version++
	app.Code = newCode
	app.UpdatedAt = now
	app.Prompt = nil
	if note == "" {
		note = defaultUpdateNote(app.Version)
	}

	_, err = tx.Exec(ctx,
		"UPDATE apps SET code = $1, version = $2, prompt = NULL, updated_at = $3 WHERE id = $4",
		app.Code, app.Version, app.UpdatedAt, id)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeStorage, "failed to update app")
	}

	_, err = tx.Exec(ctx, `INSERT INTO versions (id, app_id, code, version, note, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.NewString(), id, newCode, app.Version, note, now)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeStorage, "failed to insert version")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, apperr.Wrap(err, apperr.CodeStorage, "failed to commit app update")
	}
	return app, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*App, error) {
	app, err := scanAppPg(s.pool.QueryRow(ctx, "SELECT "+appColumns+" FROM apps WHERE id = $1", id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.Newf(apperr.CodeNotFound, "app %s not found", id)
		}
		return nil, apperr.Wrap(err, apperr.CodeStorage, "failed to query app")
	}
	return app, nil
}

func (s *PostgresStore) List(ctx context.Context, filter Filter, srt Sort) ([]App, error) {
	rows, err := s.pool.Query(ctx, "SELECT "+appColumns+" FROM apps ORDER BY created_at DESC")
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeStorage, "failed to query apps")
	}
	defer rows.Close()

	var apps []App
	for rows.Next() {
		app, err := scanAppPg(rows)
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

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	unlock := s.locks.acquire(id)
	defer unlock()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return apperr.Wrap(err, apperr.CodeStorage, "failed to begin transaction")
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM versions WHERE app_id = $1", id); err != nil {
		return apperr.Wrap(err, apperr.CodeStorage, "failed to delete versions")
	}
	if _, err := tx.Exec(ctx, "DELETE FROM apps WHERE id = $1", id); err != nil {
		return apperr.Wrap(err, apperr.CodeStorage, "failed to delete app")
	}

	if err := tx.Commit(ctx); err != nil {
		return apperr.Wrap(err, apperr.CodeStorage, "failed to commit app deletion")
	}
	return nil
}

func (s *PostgresStore) ToggleFavorite(ctx context.Context, id string) (*App, error) {
	unlock := s.locks.acquire(id)
	defer unlock()

	tag, err := s.pool.Exec(ctx, "UPDATE apps SET favorite = NOT favorite WHERE id = $1", id)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeStorage, "failed to toggle favorite")
	}
	if tag.RowsAffected() == 0 {
		return nil, apperr.Newf(apperr.CodeNotFound, "app %s not found", id)
	}
	return s.Get(ctx, id)
}

func (s *PostgresStore) IncrementViews(ctx context.Context, id string) (*App, error) {
	unlock := s.locks.acquire(id)
	defer unlock()

	tag, err := s.pool.Exec(ctx, "UPDATE apps SET view_count = view_count + 1 WHERE id = $1", id)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeStorage, "failed to increment views")
	}
	if tag.RowsAffected() == 0 {
		return nil, apperr.Newf(apperr.CodeNotFound, "app %s not found", id)
	}
	return s.Get(ctx, id)
}

func (s *PostgresStore) ListVersions(ctx context.Context, appID string) ([]Version, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT id, app_id, code, version, note, created_at FROM versions WHERE app_id = $1 ORDER BY version DESC, created_at DESC",
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

func (s *PostgresStore) RestoreVersion(ctx context.Context, appID, versionID string) (*App, error) {
	unlock := s.locks.acquire(appID)
	defer unlock()

	var snapshot Version
	err := s.pool.QueryRow(ctx,
		"SELECT id, app_id, code, version, note, created_at FROM versions WHERE id = $1 AND app_id = $2",
		versionID, appID).
		Scan(&snapshot.ID, &snapshot.AppID, &snapshot.Code, &snapshot.Version, &snapshot.Note, &snapshot.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.Newf(apperr.CodeNotFound, "version %s not found for app %s", versionID, appID)
		}
		return nil, apperr.Wrap(err, apperr.CodeStorage, "failed to query version")
	}

	return s.commitCode(ctx, appID, snapshot.Code, restoreNote(snapshot.Version))
}

func (s *PostgresStore) GetSettings(ctx context.Context) (*Settings, error) {
	var raw string
	err := s.pool.QueryRow(ctx, "SELECT value FROM settings WHERE key = $1", settingsKey).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
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

func (s *PostgresStore) PutSettings(ctx context.Context, settings Settings) error {
	raw, err := json.Marshal(settings)
	if err != nil {
		return apperr.Wrap(err, apperr.CodeStorage, "failed to encode settings")
	}
	_, err = s.pool.Exec(ctx,
		"INSERT INTO settings (key, value) VALUES ($1, $2) ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value",
		settingsKey, string(raw))
	if err != nil {
		return apperr.Wrap(err, apperr.CodeStorage, "failed to store settings")
	}
	return nil
}

var _ AppStore = (*PostgresStore)(nil)
