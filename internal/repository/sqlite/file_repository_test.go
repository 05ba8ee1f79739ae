package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"driveshare/internal/domain"
	"driveshare/internal/repository"
)

func testFileRepo(t *testing.T, db *sql.DB) (repository.FileRepository, int64) {
	t.Helper()
	ctx := context.Background()

	users := testUserRepo(t, db)
	owner := &domain.User{Username: "owner", Email: "owner@example.com", PasswordHash: "h", Role: domain.RoleUser}
	ownerID, err := users.Create(ctx, owner)
	if err != nil {
		t.Fatalf("create owner: %v", err)
	}

	repo := NewFileRepository(db)
	if err := repo.Init(ctx); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return repo, ownerID
}

func newRecord(ownerID int64, key string) *domain.FileRecord {
	return &domain.FileRecord{
		OwnerID:   ownerID,
		Filename:  "report.pdf",
		StoredKey: key,
		SizeBytes: 1024,
		MimeType:  "application/pdf",
		Status:    domain.FileStatusPending,
	}
}

func TestFileRepositoryCreateAndGet(t *testing.T) {
	repo, ownerID := testFileRepo(t, testDB(t))
	ctx := context.Background()

	record := newRecord(ownerID, "k1_report.pdf")
	id, err := repo.Create(ctx, record)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := repo.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.OwnerID != ownerID || got.StoredKey != "k1_report.pdf" || got.Status != domain.FileStatusPending {
		t.Errorf("unexpected record: %+v", got)
	}
	if got.UploadedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Error("timestamps not set")
	}
}

func TestFileRepositoryListByOwnerOrder(t *testing.T) {
	db := testDB(t)
	repo, ownerID := testFileRepo(t, db)
	ctx := context.Background()

	early := newRecord(ownerID, "k_early")
	early.UploadedAt = time.Now().UTC().Add(-time.Hour)
	if _, err := repo.Create(ctx, early); err != nil {
		t.Fatalf("Create early: %v", err)
	}
	late := newRecord(ownerID, "k_late")
	if _, err := repo.Create(ctx, late); err != nil {
		t.Fatalf("Create late: %v", err)
	}

	records, err := repo.ListByOwner(ctx, ownerID)
	if err != nil {
		t.Fatalf("ListByOwner: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].StoredKey != "k_late" {
		t.Errorf("newest record should come first, got %s", records[0].StoredKey)
	}
}

func TestFileRepositoryListAllJoinsOwner(t *testing.T) {
	repo, ownerID := testFileRepo(t, testDB(t))
	ctx := context.Background()

	if _, err := repo.Create(ctx, newRecord(ownerID, "k_joined")); err != nil {
		t.Fatalf("Create: %v", err)
	}

	records, err := repo.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	if records[0].OwnerUsername != "owner" || records[0].OwnerEmail != "owner@example.com" {
		t.Errorf("owner join missing: %+v", records[0])
	}
}

func TestFileRepositoryUpdateStatus(t *testing.T) {
	repo, ownerID := testFileRepo(t, testDB(t))
	ctx := context.Background()

	id, err := repo.Create(ctx, newRecord(ownerID, "k_status"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	now := time.Now().UTC()
	if err := repo.UpdateStatus(ctx, id, domain.FileStatusAccepted, now); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	got, err := repo.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != domain.FileStatusAccepted {
		t.Errorf("status = %s, want accepted", got.Status)
	}

	if err := repo.UpdateStatus(ctx, 999, domain.FileStatusAccepted, now); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("UpdateStatus missing: err = %v, want ErrNotFound", err)
	}
}

func TestFileRepositoryDelete(t *testing.T) {
	repo, ownerID := testFileRepo(t, testDB(t))
	ctx := context.Background()

	id, err := repo.Create(ctx, newRecord(ownerID, "k_delete"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repo.Delete(ctx, id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repo.Get(ctx, id); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("Get after delete: err = %v, want ErrNotFound", err)
	}
	if err := repo.Delete(ctx, id); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("second Delete: err = %v, want ErrNotFound", err)
	}
}

func TestFileRepositoryListStoredKeys(t *testing.T) {
	repo, ownerID := testFileRepo(t, testDB(t))
	ctx := context.Background()

	for _, key := range []string{"k_a", "k_b"} {
		if _, err := repo.Create(ctx, newRecord(ownerID, key)); err != nil {
			t.Fatalf("Create %s: %v", key, err)
		}
	}

	keys, err := repo.ListStoredKeys(ctx)
	if err != nil {
		t.Fatalf("ListStoredKeys: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("got %d keys, want 2", len(keys))
	}
}
