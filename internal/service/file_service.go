package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"driveshare/internal/domain"
	"driveshare/internal/repository"
	"driveshare/internal/storage"
)

var (
	// ErrNotFound indicates the requested file record does not exist.
	ErrNotFound = errors.New("file not found")
	// ErrForbidden indicates the caller is neither the owner nor an admin.
	ErrForbidden = errors.New("access denied")
	// ErrUnsupportedFileType indicates the filename extension is not allowed.
	ErrUnsupportedFileType = errors.New("unsupported file type")
	// ErrFileTooLarge indicates the upload exceeds the configured size cap.
	ErrFileTooLarge = errors.New("file too large")
	// ErrInvalidStatus indicates the requested status is not a known value.
	ErrInvalidStatus = errors.New("invalid status")
	// ErrStorage indicates a blob store read/write/delete failure.
	ErrStorage = errors.New("storage failure")
)

// allowedExtensions is the upload allowlist, matched case-insensitively
// against the part of the filename after the last dot.
var allowedExtensions = map[string]struct{}{
	"pdf": {}, "doc": {}, "docx": {}, "xls": {}, "xlsx": {},
	"ppt": {}, "pptx": {}, "zip": {}, "rar": {},
	"jpg": {}, "jpeg": {}, "png": {}, "gif": {},
}

// FileService is the file lifecycle core: upload, listing, moderation,
// download and delete, with ownership checks on every record access.
type FileService interface {
	Upload(ctx context.Context, owner *domain.User, filename, mimeType string, body io.Reader, size int64) (*domain.FileRecord, error)
	ListOwn(ctx context.Context, ownerID int64) ([]domain.FileRecord, error)
	ListAll(ctx context.Context) ([]domain.FileRecord, error)
	UpdateStatus(ctx context.Context, fileID int64, status domain.FileStatus) (*domain.FileRecord, error)
	Delete(ctx context.Context, actor *domain.User, fileID int64) error
	Download(ctx context.Context, actor *domain.User, fileID int64) (io.ReadCloser, *domain.FileRecord, error)
}

type fileService struct {
	files    repository.FileRepository
	blobs    storage.Service
	maxBytes int64
	logger   *logrus.Logger
}

func NewFileService(files repository.FileRepository, blobs storage.Service, maxBytes int64, logger *logrus.Logger) FileService {
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &fileService{
		files:    files,
		blobs:    blobs,
		maxBytes: maxBytes,
		logger:   logger,
	}
}

func (s *fileService) Upload(ctx context.Context, owner *domain.User, filename, mimeType string, body io.Reader, size int64) (*domain.FileRecord, error) {
	if owner == nil {
		return nil, ErrForbidden
	}
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return nil, errors.New("filename is required")
	}
	if _, ok := allowedExtensions[extensionOf(filename)]; !ok {
		return nil, ErrUnsupportedFileType
	}
	if size > s.maxBytes {
		return nil, ErrFileTooLarge
	}

	key := storedKeyFor(filename)
	if err := s.blobs.Put(ctx, key, body, size); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	record := &domain.FileRecord{
		OwnerID:    owner.ID,
		Filename:   filename,
		StoredKey:  key,
		SizeBytes:  size,
		MimeType:   mimeType,
		Status:     domain.FileStatusPending,
		UploadedAt: time.Now().UTC(),
	}
	if _, err := s.files.Create(ctx, record); err != nil {
		// The blob stays behind; the janitor sweep reconciles it later.
		s.logger.WithError(err).Warnf("file record insert failed, blob %s orphaned", key)
		return nil, err
	}

	return record, nil
}

func (s *fileService) ListOwn(ctx context.Context, ownerID int64) ([]domain.FileRecord, error) {
	return s.files.ListByOwner(ctx, ownerID)
}

func (s *fileService) ListAll(ctx context.Context) ([]domain.FileRecord, error) {
	return s.files.ListAll(ctx)
}

func (s *fileService) UpdateStatus(ctx context.Context, fileID int64, status domain.FileStatus) (*domain.FileRecord, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}

	record, err := s.files.Get(ctx, fileID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	now := time.Now().UTC()
	if err := s.files.UpdateStatus(ctx, fileID, status, now); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	record.Status = status
	record.UpdatedAt = now
	return record, nil
}

func (s *fileService) Delete(ctx context.Context, actor *domain.User, fileID int64) error {
	record, err := s.authorizedRecord(ctx, actor, fileID)
	if err != nil {
		return err
	}

	if err := s.blobs.Delete(ctx, record.StoredKey); err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			// The record is authoritative; a blob already gone should not
			// block removing the metadata.
			s.logger.Warnf("blob %s missing during delete of file %d", record.StoredKey, record.ID)
		} else {
			return fmt.Errorf("%w: %v", ErrStorage, err)
		}
	}

	if err := s.files.Delete(ctx, fileID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (s *fileService) Download(ctx context.Context, actor *domain.User, fileID int64) (io.ReadCloser, *domain.FileRecord, error) {
	record, err := s.authorizedRecord(ctx, actor, fileID)
	if err != nil {
		return nil, nil, err
	}

	body, _, err := s.blobs.Get(ctx, record.StoredKey)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return body, record, nil
}

// authorizedRecord loads a record and enforces the owner-or-admin rule.
func (s *fileService) authorizedRecord(ctx context.Context, actor *domain.User, fileID int64) (*domain.FileRecord, error) {
	if actor == nil {
		return nil, ErrForbidden
	}
	record, err := s.files.Get(ctx, fileID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if record.OwnerID != actor.ID && actor.Role != domain.RoleAdmin {
		return nil, ErrForbidden
	}
	return record, nil
}

func extensionOf(filename string) string {
	idx := strings.LastIndex(filename, ".")
	if idx < 0 || idx == len(filename)-1 {
		return ""
	}
	return strings.ToLower(filename[idx+1:])
}

// storedKeyFor builds a collision-resistant blob key that keeps a readable
// trace of the original name.
func storedKeyFor(filename string) string {
	base := filepath.Base(filename)
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.' || r == '-' || r == '_':
			return r
		}
		return '_'
	}, base)
	return fmt.Sprintf("%s_%s", uuid.NewString(), base)
}
