package worker

import (
	"context"
	"errors"
	"testing"
)

type recordingDeleter struct {
	deleted []string
	err     error
}

func (d *recordingDeleter) DeleteFile(ctx context.Context, name string) error {
	if d.err != nil {
		return d.err
	}
	d.deleted = append(d.deleted, name)
	return nil
}

func TestHandleDeletesNamedFile(t *testing.T) {
	deleter := &recordingDeleter{}
	w := NewRemoteFileCleanupWorker(nil, deleter, "cleanup")

	if err := w.handle(context.Background(), []byte(`{"name":"files/abc"}`)); err != nil {
		t.Fatalf("handle failed: %v", err)
	}
	if len(deleter.deleted) != 1 || deleter.deleted[0] != "files/abc" {
		t.Fatalf("unexpected deletions: %v", deleter.deleted)
	}
}

func TestHandleRejectsBadMessages(t *testing.T) {
	w := NewRemoteFileCleanupWorker(nil, &recordingDeleter{}, "cleanup")

	if err := w.handle(context.Background(), []byte("not json")); err == nil {
		t.Fatal("expected decode error")
	}
	if err := w.handle(context.Background(), []byte(`{}`)); !errors.Is(err, errEmptyName) {
		t.Fatalf("expected errEmptyName, got %v", err)
	}
}

func TestHandlePropagatesDeleteError(t *testing.T) {
	deleteErr := errors.New("not found")
	w := NewRemoteFileCleanupWorker(nil, &recordingDeleter{err: deleteErr}, "cleanup")

	if err := w.handle(context.Background(), []byte(`{"name":"files/abc"}`)); !errors.Is(err, deleteErr) {
		t.Fatalf("expected delete error, got %v", err)
	}
}
