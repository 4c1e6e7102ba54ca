// Package aitest provides an in-memory stand-in for the generative service.
package aitest

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"product-lens/internal/ai"
)

var ErrNotFound = errors.New("remote file not found")

// Remote records uploads and answers every conversation with Reply. Files
// become active on their first status read unless States scripts otherwise.
type Remote struct {
	mu sync.Mutex

	Reply     string
	ChatErr   error
	UploadErr error
	States    map[string][]ai.FileState

	Uploaded      []*ai.RemoteFile
	Deleted       []string
	Conversations int
	Closed        bool

	polls map[string]int
}

func (r *Remote) UploadFile(ctx context.Context, path, mimeType string) (*ai.RemoteFile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.UploadErr != nil {
		return nil, r.UploadErr
	}
	name := fmt.Sprintf("files/%d", len(r.Uploaded)+1)
	f := &ai.RemoteFile{
		Name:        name,
		URI:         "https://files.example.test/" + name,
		DisplayName: filepath.Base(path),
		MIMEType:    mimeType,
		State:       ai.FileStateProcessing,
	}
	r.Uploaded = append(r.Uploaded, f)
	return f, nil
}

func (r *Remote) GetFile(ctx context.Context, name string) (*ai.RemoteFile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var found *ai.RemoteFile
	for _, f := range r.Uploaded {
		if f.Name == name {
			found = f
		}
	}
	if found == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	if r.polls == nil {
		r.polls = make(map[string]int)
	}
	state := ai.FileStateActive
	if script := r.States[name]; len(script) > 0 {
		i := r.polls[name]
		if i >= len(script) {
			i = len(script) - 1
		}
		state = script[i]
	}
	r.polls[name]++

	out := *found
	out.State = state
	return &out, nil
}

func (r *Remote) DeleteFile(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Deleted = append(r.Deleted, name)
	return nil
}

func (r *Remote) Converse(ctx context.Context, history []ai.Turn, message ai.Turn) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Conversations++
	if r.ChatErr != nil {
		return "", r.ChatErr
	}
	return r.Reply, nil
}

func (r *Remote) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Closed = true
	return nil
}
