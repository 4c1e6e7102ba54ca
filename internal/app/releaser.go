package app

import "context"

type FileDeleter interface {
	DeleteFile(ctx context.Context, name string) error
}

// DeleteReleaser deletes remote images in the request goroutine. It is used
// when no cleanup queue is configured.
type DeleteReleaser struct {
	deleter FileDeleter
}

func NewDeleteReleaser(deleter FileDeleter) *DeleteReleaser {
	return &DeleteReleaser{deleter: deleter}
}

func (r *DeleteReleaser) Release(ctx context.Context, name string) error {
	return r.deleter.DeleteFile(ctx, name)
}
