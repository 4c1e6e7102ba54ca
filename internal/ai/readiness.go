package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

var (
	ErrFileFailed   = errors.New("remote file failed to process")
	ErrFileNotReady = errors.New("remote file did not become active")

	errStillProcessing = errors.New("remote file still processing")
)

// FileGetter reads the current state of a remote file.
type FileGetter interface {
	GetFile(ctx context.Context, name string) (*RemoteFile, error)
}

// WaitPolicy bounds how long WaitForActive polls a single file.
type WaitPolicy struct {
	Interval    time.Duration
	MaxAttempts int
	// OnPoll, when set, is called after every status read.
	OnPoll func(f *RemoteFile)
}

// WaitForActive polls each file until it is active. It returns ErrFileFailed
// as soon as a file leaves the processing states without becoming active,
// ErrFileNotReady once the attempt budget is spent, and the context error if
// ctx is done first.
func WaitForActive(ctx context.Context, getter FileGetter, policy WaitPolicy, files ...*RemoteFile) error {
	for _, f := range files {
		if err := waitOne(ctx, getter, policy, f.Name); err != nil {
			return err
		}
	}
	return nil
}

func waitOne(ctx context.Context, getter FileGetter, policy WaitPolicy, name string) error {
	maxAttempts := policy.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	// WithMaxRetries treats zero as unlimited, so a single attempt needs StopBackOff.
	var b backoff.BackOff = &backoff.StopBackOff{}
	if maxAttempts > 1 {
		b = backoff.WithMaxRetries(backoff.NewConstantBackOff(policy.Interval), uint64(maxAttempts-1))
	}
	b = backoff.WithContext(b, ctx)

	var last FileState
	err := backoff.Retry(func() error {
		f, err := getter.GetFile(ctx, name)
		if err != nil {
			return backoff.Permanent(err)
		}
		if policy.OnPoll != nil {
			policy.OnPoll(f)
		}
		last = f.State
		switch {
		case f.State == FileStateActive:
			return nil
		case f.State.Pending():
			return errStillProcessing
		default:
			return backoff.Permanent(fmt.Errorf("%w: %s is %s", ErrFileFailed, name, f.State))
		}
	}, b)

	if errors.Is(err, errStillProcessing) {
		return fmt.Errorf("%w: %s still %s after %d polls", ErrFileNotReady, name, last, maxAttempts)
	}
	return err
}
