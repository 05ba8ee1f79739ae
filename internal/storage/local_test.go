package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

func testLocal(t *testing.T) *LocalService {
	t.Helper()
	svc, err := NewLocalService(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalService: %v", err)
	}
	return svc
}

func TestLocalPutGetRoundTrip(t *testing.T) {
	svc := testLocal(t)
	ctx := context.Background()
	payload := []byte("some file content")

	if err := svc.Put(ctx, "abc_report.pdf", bytes.NewReader(payload), int64(len(payload))); err != nil {
		t.Fatalf("Put: %v", err)
	}

	body, size, err := svc.Get(ctx, "abc_report.pdf")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer body.Close()

	if size != int64(len(payload)) {
		t.Errorf("size = %d, want %d", size, len(payload))
	}
	got, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("round-trip bytes differ: got %q want %q", got, payload)
	}
}

func TestLocalPutShortWrite(t *testing.T) {
	svc := testLocal(t)
	ctx := context.Background()

	err := svc.Put(ctx, "key.bin", strings.NewReader("abc"), 10)
	if err == nil {
		t.Fatal("expected error on size mismatch")
	}
	if _, _, err := svc.Get(ctx, "key.bin"); !errors.Is(err, ErrObjectNotFound) {
		t.Errorf("partial object should not be visible, got err %v", err)
	}
}

func TestLocalGetMissing(t *testing.T) {
	svc := testLocal(t)
	if _, _, err := svc.Get(context.Background(), "nope.bin"); !errors.Is(err, ErrObjectNotFound) {
		t.Errorf("Get missing: err = %v, want ErrObjectNotFound", err)
	}
}

func TestLocalDelete(t *testing.T) {
	svc := testLocal(t)
	ctx := context.Background()

	if err := svc.Put(ctx, "gone.txt.zip", strings.NewReader("x"), 1); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := svc.Delete(ctx, "gone.txt.zip"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := svc.Delete(ctx, "gone.txt.zip"); !errors.Is(err, ErrObjectNotFound) {
		t.Errorf("second Delete: err = %v, want ErrObjectNotFound", err)
	}
}

func TestLocalList(t *testing.T) {
	svc := testLocal(t)
	ctx := context.Background()

	for _, key := range []string{"a_one.pdf", "a_two.pdf", "b_three.pdf"} {
		if err := svc.Put(ctx, key, strings.NewReader("data"), 4); err != nil {
			t.Fatalf("Put %s: %v", key, err)
		}
	}

	all, err := svc.List(ctx, "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("List returned %d objects, want 3", len(all))
	}

	prefixed, err := svc.List(ctx, "a_")
	if err != nil {
		t.Fatalf("List prefix: %v", err)
	}
	if len(prefixed) != 2 {
		t.Errorf("List(a_) returned %d objects, want 2", len(prefixed))
	}
	for _, obj := range prefixed {
		if obj.Size != 4 {
			t.Errorf("object %s size = %d, want 4", obj.Key, obj.Size)
		}
		if obj.LastModified == nil {
			t.Errorf("object %s has no LastModified", obj.Key)
		}
	}
}

func TestLocalRejectsTraversal(t *testing.T) {
	svc := testLocal(t)
	ctx := context.Background()

	if err := svc.Put(ctx, "../escape.txt", strings.NewReader("x"), 1); err == nil {
		t.Error("Put with traversal key should fail")
	}
	if _, _, err := svc.Get(ctx, "../../etc/passwd"); err == nil || errors.Is(err, ErrObjectNotFound) {
		t.Errorf("Get with traversal key: err = %v, want key validation error", err)
	}
}
