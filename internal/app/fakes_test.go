package app

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"os"
	"sync"
	"testing"

	"product-lens/internal/ai"
	"product-lens/internal/cache"
)

// fakeRemote stands in for the generative service: uploads become active
// immediately unless states is scripted, and Converse replays reply.
type fakeRemote struct {
	mu        sync.Mutex
	uploads   []string
	uploadErr error
	states    []ai.FileState
	polls     int
	reply     string
	chatErr   error
	history   []ai.Turn
	message   ai.Turn
	tempSeen  []string
}

func (f *fakeRemote) UploadFile(ctx context.Context, path, mimeType string) (*ai.RemoteFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("temp file missing at upload: %w", err)
	}
	f.tempSeen = append(f.tempSeen, path)
	name := fmt.Sprintf("files/%d", len(f.uploads)+1)
	f.uploads = append(f.uploads, name)
	return &ai.RemoteFile{Name: name, URI: "https://example.test/" + name, MIMEType: mimeType, State: ai.FileStateProcessing}, nil
}

func (f *fakeRemote) GetFile(ctx context.Context, name string) (*ai.RemoteFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	state := ai.FileStateActive
	if f.polls < len(f.states) {
		state = f.states[f.polls]
	}
	f.polls++
	return &ai.RemoteFile{Name: name, State: state}, nil
}

func (f *fakeRemote) Converse(ctx context.Context, history []ai.Turn, message ai.Turn) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.history = history
	f.message = message
	if f.chatErr != nil {
		return "", f.chatErr
	}
	return f.reply, nil
}

type memoryCache struct {
	mu      sync.Mutex
	results map[string]cache.Result
}

func newMemoryCache() *memoryCache {
	return &memoryCache{results: make(map[string]cache.Result)}
}

func (c *memoryCache) Get(ctx context.Context, key string) (*cache.Result, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.results[key]
	if !ok {
		return nil, false, nil
	}
	return &r, true, nil
}

func (c *memoryCache) Set(ctx context.Context, key string, result cache.Result) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results[key] = result
	return nil
}

type recordingReleaser struct {
	released []string
}

func (r *recordingReleaser) Release(ctx context.Context, name string) error {
	r.released = append(r.released, name)
	return nil
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for i := 0; i < 8; i++ {
		img.Set(i, i, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png failed: %v", err)
	}
	return buf.Bytes()
}

// hugeHeaderPNG is a small valid PNG whose IHDR is rewritten to claim w x h.
func hugeHeaderPNG(t *testing.T, w, h uint32) []byte {
	t.Helper()
	data := testPNG(t)
	binary.BigEndian.PutUint32(data[16:20], w)
	binary.BigEndian.PutUint32(data[20:24], h)
	binary.BigEndian.PutUint32(data[29:33], crc32.ChecksumIEEE(data[12:29]))
	return data
}
