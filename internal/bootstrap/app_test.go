package bootstrap

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"product-lens/internal/ai"
	"product-lens/internal/ai/aitest"
	"product-lens/internal/app"
	"product-lens/internal/config"
)

const samples = "product\tproduct_id\n" +
	"Bottle A\t101\n" +
	"Bottle B\t102\n" +
	"Bottle A\t103\n"

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "samples.tsv")
	if err := os.WriteFile(path, []byte(samples), 0o600); err != nil {
		t.Fatalf("write samples failed: %v", err)
	}

	cfg := config.Default()
	cfg.Gemini.APIKey = "test-key"
	cfg.Reference.Path = path
	cfg.Readiness.IntervalSeconds = 0
	cfg.Readiness.StartupMaxAttempts = 3
	cfg.Readiness.RequestMaxAttempts = 3
	cfg.Classify.TempDir = dir
	return cfg
}

func TestAssembleUploadsReference(t *testing.T) {
	cfg := testConfig(t)
	remote := &aitest.Remote{}

	a, err := Assemble(context.Background(), cfg, remote)
	if err != nil {
		t.Fatalf("assemble failed: %v", err)
	}
	defer a.Close()

	if want := []string{"Bottle A", "Bottle B"}; !reflect.DeepEqual(a.Catalog.Products(), want) {
		t.Fatalf("expected products %v, got %v", want, a.Catalog.Products())
	}
	if len(remote.Uploaded) != 1 {
		t.Fatalf("expected one upload, got %d", len(remote.Uploaded))
	}
	ref := remote.Uploaded[0]
	if ref.DisplayName != "samples.tsv" || ref.MIMEType != "text/tab-separated-values" {
		t.Fatalf("unexpected reference upload %+v", ref)
	}
	if a.ReferenceFile.Name != ref.Name || a.Classifier == nil {
		t.Fatalf("app not wired: %+v", a)
	}
	if a.Redis != nil || a.MQConn != nil || a.CleanupWorker != nil {
		t.Fatal("optional dependencies must stay disabled")
	}
}

func TestAssembleFailures(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(cfg *config.Config, remote *aitest.Remote)
		wantErr error
	}{
		{
			name: "missing reference file",
			mutate: func(cfg *config.Config, _ *aitest.Remote) {
				cfg.Reference.Path = filepath.Join(filepath.Dir(cfg.Reference.Path), "missing.tsv")
			},
			wantErr: os.ErrNotExist,
		},
		{
			name: "upload failure",
			mutate: func(_ *config.Config, remote *aitest.Remote) {
				remote.UploadErr = errors.New("unauthenticated")
			},
		},
		{
			name: "reference failed to process",
			mutate: func(_ *config.Config, remote *aitest.Remote) {
				remote.States = map[string][]ai.FileState{"files/1": {ai.FileStateFailed}}
			},
			wantErr: ai.ErrFileFailed,
		},
		{
			name: "reference never active",
			mutate: func(_ *config.Config, remote *aitest.Remote) {
				remote.States = map[string][]ai.FileState{"files/1": {ai.FileStateProcessing}}
			},
			wantErr: ai.ErrFileNotReady,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			remote := &aitest.Remote{}
			tt.mutate(cfg, remote)

			_, err := Assemble(context.Background(), cfg, remote)
			if err == nil {
				t.Fatal("expected startup error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestAssembleInlineRemoteCleanup(t *testing.T) {
	cfg := testConfig(t)
	cfg.Cleanup.DeleteRemoteImages = true
	remote := &aitest.Remote{Reply: "Bottle B"}

	a, err := Assemble(context.Background(), cfg, remote)
	if err != nil {
		t.Fatalf("assemble failed: %v", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 4, 4))); err != nil {
		t.Fatalf("encode png failed: %v", err)
	}
	result, err := a.Classifier.Classify(context.Background(), app.ClassifyInput{Image: buf.Bytes()})
	if err != nil {
		t.Fatalf("classify failed: %v", err)
	}
	if result.ProductID != "102" {
		t.Fatalf("expected 102, got %+v", result)
	}
	if len(remote.Deleted) != 1 || remote.Deleted[0] != "files/2" {
		t.Fatalf("expected image files/2 deleted, got %v", remote.Deleted)
	}

	if err := a.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if !remote.Closed {
		t.Fatal("close must release the remote client")
	}
}
