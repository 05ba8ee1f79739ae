package repository

import (
	"context"
	"time"

	"driveshare/internal/domain"
)

// FileRepository exposes persistence operations for file metadata rows.
type FileRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, record *domain.FileRecord) (int64, error)
	Get(ctx context.Context, id int64) (*domain.FileRecord, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]domain.FileRecord, error)
	ListAll(ctx context.Context) ([]domain.FileRecord, error)
	UpdateStatus(ctx context.Context, id int64, status domain.FileStatus, updatedAt time.Time) error
	Delete(ctx context.Context, id int64) error
	ListStoredKeys(ctx context.Context) ([]string, error)
}
