package service

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"

	"driveshare/internal/domain"
	"driveshare/internal/repository"
	"driveshare/internal/repository/sqlite"
	"driveshare/internal/storage"
)

type testEnv struct {
	users UserService
	files FileService
	repo  repository.FileRepository
	blobs *storage.LocalService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	userRepo := sqlite.NewUserRepository(db)
	fileRepo := sqlite.NewFileRepository(db)
	if err := userRepo.Init(ctx); err != nil {
		t.Fatalf("init users: %v", err)
	}
	if err := fileRepo.Init(ctx); err != nil {
		t.Fatalf("init files: %v", err)
	}

	blobs, err := storage.NewLocalService(t.TempDir())
	if err != nil {
		t.Fatalf("local storage: %v", err)
	}

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	return &testEnv{
		users: NewUserService(userRepo),
		files: NewFileService(fileRepo, blobs, 1<<20, logger),
		repo:  fileRepo,
		blobs: blobs,
	}
}

func (e *testEnv) registerUser(t *testing.T, username string) *domain.User {
	t.Helper()
	user, err := e.users.Register(context.Background(), username, username+"@example.com", "pw123456")
	if err != nil {
		t.Fatalf("register %s: %v", username, err)
	}
	return user
}

func (e *testEnv) admin(t *testing.T) *domain.User {
	t.Helper()
	ctx := context.Background()
	if err := e.users.EnsureAdmin(ctx, "root", "root@example.com", "pw123456"); err != nil {
		t.Fatalf("ensure admin: %v", err)
	}
	admin, err := e.users.Authenticate(ctx, "root", "pw123456")
	if err != nil {
		t.Fatalf("authenticate admin: %v", err)
	}
	return admin
}
