package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"anm/internal/repository"

	_ "modernc.org/sqlite"
)

// Repository implements repository.Repository using SQLite
type Repository struct {
	db  *sql.DB
	now func() time.Time
}

var _ repository.Repository = (*Repository)(nil)

// New creates a new SQLite repository. dbPath may be ":memory:".
func New(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one connection keeps an in-memory database alive and serializes writers
	db.SetMaxOpenConns(1)

	repo := &Repository{db: db, now: time.Now}
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return repo, nil
}

func dsn(dbPath string) string {
	pragmas := "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	if dbPath == ":memory:" {
		return "file::memory:?" + pragmas
	}
	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	return dbPath + sep + pragmas + "&_pragma=journal_mode(WAL)"
}

func (r *Repository) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS models (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS model_files (
		model_id TEXT NOT NULL,
		role TEXT NOT NULL,
		format TEXT NOT NULL,
		data BLOB NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (model_id, role),
		FOREIGN KEY (model_id) REFERENCES models(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS commands (
		model_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		name TEXT NOT NULL,
		payload TEXT,
		ids TEXT,
		created_at TEXT NOT NULL,
		PRIMARY KEY (model_id, seq),
		FOREIGN KEY (model_id) REFERENCES models(id) ON DELETE CASCADE
	);
	`

	_, err := r.db.Exec(schema)
	return err
}

// ListModels returns the model library ordered by id
func (r *Repository) ListModels(ctx context.Context) ([]repository.SavedModel, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+modelColumns+` FROM models ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query models: %w", err)
	}
	defer rows.Close()

	models := make([]repository.SavedModel, 0)
	for rows.Next() {
		var row modelRow
		if err := rows.Scan(row.scanArgs()...); err != nil {
			return nil, fmt.Errorf("failed to scan model: %w", err)
		}
		m, err := row.toRecord()
		if err != nil {
			return nil, err
		}
		models = append(models, *m)
	}
	return models, rows.Err()
}

// GetModel retrieves a model by id
func (r *Repository) GetModel(ctx context.Context, id string) (*repository.SavedModel, error) {
	var row modelRow
	err := r.db.QueryRowContext(ctx, `SELECT `+modelColumns+` FROM models WHERE id = ?`, id).Scan(row.scanArgs()...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("model %s: %w", id, repository.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query model: %w", err)
	}
	return row.toRecord()
}

// UpsertModel inserts or updates a model; timestamps are set on the record
func (r *Repository) UpsertModel(ctx context.Context, model *repository.SavedModel) error {
	if err := repository.Validate(model); err != nil {
		return err
	}
	now := r.now().UTC()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO models (id, title, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			updated_at = excluded.updated_at
	`, model.ID, model.Title, formatTime(now), formatTime(now))
	if err != nil {
		return fmt.Errorf("failed to upsert model: %w", err)
	}

	stored, err := r.GetModel(ctx, model.ID)
	if err != nil {
		return err
	}
	*model = *stored
	return nil
}

// DeleteModel removes a model with its files and command log
func (r *Repository) DeleteModel(ctx context.Context, id string) error {
	// files and commands are deleted by CASCADE
	res, err := r.db.ExecContext(ctx, `DELETE FROM models WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete model: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("model %s: %w", id, repository.ErrNotFound)
	}
	return nil
}

// PutFile stores a file under its role, replacing any previous content
func (r *Repository) PutFile(ctx context.Context, file *repository.ModelFile) error {
	if err := repository.Validate(file); err != nil {
		return err
	}
	if _, err := r.GetModel(ctx, file.ModelID); err != nil {
		return err
	}
	file.UpdatedAt = r.now().UTC()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO model_files (model_id, role, format, data, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(model_id, role) DO UPDATE SET
			format = excluded.format,
			data = excluded.data,
			updated_at = excluded.updated_at
	`, file.ModelID, file.Role, file.Format, file.Data, formatTime(file.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to store %s for model %s: %w", file.Role, file.ModelID, err)
	}
	return nil
}

// GetFile retrieves the file stored for a model under role
func (r *Repository) GetFile(ctx context.Context, modelID, role string) (*repository.ModelFile, error) {
	var (
		file      = repository.ModelFile{ModelID: modelID, Role: role}
		updatedAt string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT format, data, updated_at FROM model_files WHERE model_id = ? AND role = ?
	`, modelID, role).Scan(&file.Format, &file.Data, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s of model %s: %w", role, modelID, repository.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query file: %w", err)
	}
	if file.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &file, nil
}

// AppendCommands appends records to command logs in one transaction
func (r *Repository) AppendCommands(ctx context.Context, records []repository.CommandRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO commands (model_id, seq, name, payload, ids, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	now := r.now().UTC()
	for i := range records {
		rec := &records[i]
		if err := repository.Validate(rec); err != nil {
			return err
		}
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = now
		}
		args, err := commandInsertArgs(rec)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("failed to append command %d for model %s: %w", rec.Seq, rec.ModelID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ListCommands returns the command log of a model in sequence order
func (r *Repository) ListCommands(ctx context.Context, modelID string) ([]repository.CommandRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+commandColumns+` FROM commands WHERE model_id = ? ORDER BY seq
	`, modelID)
	if err != nil {
		return nil, fmt.Errorf("failed to query commands: %w", err)
	}
	defer rows.Close()

	records := make([]repository.CommandRecord, 0)
	for rows.Next() {
		var row commandRow
		if err := rows.Scan(row.scanArgs()...); err != nil {
			return nil, fmt.Errorf("failed to scan command: %w", err)
		}
		rec, err := row.toRecord()
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// ClearCommands truncates the command log of a model
func (r *Repository) ClearCommands(ctx context.Context, modelID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM commands WHERE model_id = ?`, modelID); err != nil {
		return fmt.Errorf("failed to clear commands: %w", err)
	}
	return nil
}

// Close closes the database connection
func (r *Repository) Close() error {
	return r.db.Close()
}
