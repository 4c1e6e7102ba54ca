package ai

import (
	"context"
	"errors"
	"sync"
	"testing"
)

type scriptedGetter struct {
	mu     sync.Mutex
	states map[string][]FileState
	calls  map[string]int
	err    error
}

func newScriptedGetter(states map[string][]FileState) *scriptedGetter {
	return &scriptedGetter{states: states, calls: make(map[string]int)}
}

func (g *scriptedGetter) GetFile(ctx context.Context, name string) (*RemoteFile, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	script := g.states[name]
	i := g.calls[name]
	g.calls[name]++
	if i >= len(script) {
		i = len(script) - 1
	}
	return &RemoteFile{Name: name, State: script[i]}, nil
}

func TestWaitForActiveBecomesActive(t *testing.T) {
	getter := newScriptedGetter(map[string][]FileState{
		"files/ref": {FileStateProcessing, FileStateProcessing, FileStateActive},
		"files/img": {FileStateActive},
	})

	polls := 0
	policy := WaitPolicy{MaxAttempts: 5, OnPoll: func(*RemoteFile) { polls++ }}
	err := WaitForActive(context.Background(), getter, policy,
		&RemoteFile{Name: "files/ref"}, &RemoteFile{Name: "files/img"})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if getter.calls["files/ref"] != 3 || getter.calls["files/img"] != 1 {
		t.Fatalf("unexpected poll counts: %v", getter.calls)
	}
	if polls != 4 {
		t.Fatalf("expected 4 poll callbacks, got %d", polls)
	}
}

func TestWaitForActiveFailedState(t *testing.T) {
	getter := newScriptedGetter(map[string][]FileState{
		"files/img": {FileStateProcessing, FileStateFailed, FileStateActive},
	})

	err := WaitForActive(context.Background(), getter, WaitPolicy{MaxAttempts: 10}, &RemoteFile{Name: "files/img"})
	if !errors.Is(err, ErrFileFailed) {
		t.Fatalf("expected ErrFileFailed, got %v", err)
	}
	if getter.calls["files/img"] != 2 {
		t.Fatalf("expected polling to stop at the failed state, got %d calls", getter.calls["files/img"])
	}
}

func TestWaitForActiveUnspecifiedIsFailure(t *testing.T) {
	getter := newScriptedGetter(map[string][]FileState{"files/img": {FileStateUnspecified}})

	err := WaitForActive(context.Background(), getter, WaitPolicy{MaxAttempts: 3}, &RemoteFile{Name: "files/img"})
	if !errors.Is(err, ErrFileFailed) {
		t.Fatalf("expected ErrFileFailed, got %v", err)
	}
}

func TestWaitForActiveBounded(t *testing.T) {
	getter := newScriptedGetter(map[string][]FileState{"files/img": {FileStateProcessing}})

	err := WaitForActive(context.Background(), getter, WaitPolicy{MaxAttempts: 4}, &RemoteFile{Name: "files/img"})
	if !errors.Is(err, ErrFileNotReady) {
		t.Fatalf("expected ErrFileNotReady, got %v", err)
	}
	if getter.calls["files/img"] != 4 {
		t.Fatalf("expected 4 polls, got %d", getter.calls["files/img"])
	}
}

func TestWaitForActiveCancelled(t *testing.T) {
	getter := newScriptedGetter(map[string][]FileState{"files/img": {FileStateProcessing}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := WaitForActive(ctx, getter, WaitPolicy{MaxAttempts: 100}, &RemoteFile{Name: "files/img"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestWaitForActiveStatusError(t *testing.T) {
	getter := newScriptedGetter(nil)
	getter.err = errors.New("boom")

	err := WaitForActive(context.Background(), getter, WaitPolicy{MaxAttempts: 5}, &RemoteFile{Name: "files/img"})
	if err == nil || err.Error() != "boom" {
		t.Fatalf("expected status error to propagate, got %v", err)
	}
}
