package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"driveshare/internal/domain"
	"driveshare/internal/repository"
)

const createFilesTable = `
CREATE TABLE IF NOT EXISTS files (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	owner_id INTEGER NOT NULL,
	filename TEXT NOT NULL,
	stored_key TEXT NOT NULL UNIQUE,
	size_bytes INTEGER NOT NULL DEFAULT 0,
	mime_type TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'pending',
	uploaded_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	FOREIGN KEY(owner_id) REFERENCES users(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_files_owner_id ON files(owner_id);
`

type FileRepository struct {
	db *sql.DB
}

func NewFileRepository(db *sql.DB) repository.FileRepository {
	return &FileRepository{db: db}
}

func (r *FileRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createFilesTable); err != nil {
		return fmt.Errorf("create files table: %w", err)
	}
	return nil
}

func (r *FileRepository) Create(ctx context.Context, record *domain.FileRecord) (int64, error) {
	now := time.Now().UTC()
	if record.UploadedAt.IsZero() {
		record.UploadedAt = now
	}
	record.UpdatedAt = now

	res, err := r.db.ExecContext(ctx, `
INSERT INTO files (owner_id, filename, stored_key, size_bytes, mime_type, status, uploaded_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		record.OwnerID,
		record.Filename,
		record.StoredKey,
		record.SizeBytes,
		record.MimeType,
		string(record.Status),
		record.UploadedAt,
		record.UpdatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert file: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("file last insert id: %w", err)
	}
	record.ID = id
	return id, nil
}

func (r *FileRepository) Get(ctx context.Context, id int64) (*domain.FileRecord, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, owner_id, filename, stored_key, size_bytes, mime_type, status, uploaded_at, updated_at
FROM files
WHERE id = ?`,
		id,
	)

	var (
		record domain.FileRecord
		status string
	)
	if err := row.Scan(
		&record.ID,
		&record.OwnerID,
		&record.Filename,
		&record.StoredKey,
		&record.SizeBytes,
		&record.MimeType,
		&status,
		&record.UploadedAt,
		&record.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("file: %w", repository.ErrNotFound)
		}
		return nil, fmt.Errorf("scan file: %w", err)
	}
	record.Status = domain.FileStatus(status)
	return &record, nil
}

func (r *FileRepository) ListByOwner(ctx context.Context, ownerID int64) ([]domain.FileRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, owner_id, filename, stored_key, size_bytes, mime_type, status, uploaded_at, updated_at
FROM files
WHERE owner_id = ?
ORDER BY uploaded_at DESC, id DESC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("query files by owner: %w", err)
	}
	defer rows.Close()

	return collectRecords(rows, false)
}

func (r *FileRepository) ListAll(ctx context.Context) ([]domain.FileRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT f.id, f.owner_id, f.filename, f.stored_key, f.size_bytes, f.mime_type, f.status, f.uploaded_at, f.updated_at, u.username, u.email
FROM files f
JOIN users u ON u.id = f.owner_id
ORDER BY f.uploaded_at DESC, f.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("query all files: %w", err)
	}
	defer rows.Close()

	return collectRecords(rows, true)
}

func collectRecords(rows *sql.Rows, withOwner bool) ([]domain.FileRecord, error) {
	var records []domain.FileRecord
	for rows.Next() {
		var (
			record domain.FileRecord
			status string
		)
		dest := []any{
			&record.ID,
			&record.OwnerID,
			&record.Filename,
			&record.StoredKey,
			&record.SizeBytes,
			&record.MimeType,
			&status,
			&record.UploadedAt,
			&record.UpdatedAt,
		}
		if withOwner {
			dest = append(dest, &record.OwnerUsername, &record.OwnerEmail)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		record.Status = domain.FileStatus(status)
		records = append(records, record)
	}
	return records, rows.Err()
}

func (r *FileRepository) UpdateStatus(ctx context.Context, id int64, status domain.FileStatus, updatedAt time.Time) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE files SET status = ?, updated_at = ? WHERE id = ?`,
		string(status),
		updatedAt.UTC(),
		id,
	)
	if err != nil {
		return fmt.Errorf("update file status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update file status rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("file: %w", repository.ErrNotFound)
	}
	return nil
}

func (r *FileRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM files WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete file: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete file rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("file: %w", repository.ErrNotFound)
	}
	return nil
}

func (r *FileRepository) ListStoredKeys(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT stored_key FROM files`)
	if err != nil {
		return nil, fmt.Errorf("query stored keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan stored key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}
