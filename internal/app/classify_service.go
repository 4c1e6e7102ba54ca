package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"product-lens/internal/ai"
	"product-lens/internal/cache"
	"product-lens/internal/catalog"
	"product-lens/internal/pkg/imagenorm"
)

const releaseTimeout = 30 * time.Second

var (
	ErrInvalidImage     = errors.New("invalid image")
	ErrImageTooLarge    = errors.New("image too large")
	ErrStoreImage       = errors.New("store image failed")
	ErrRemoteUpload     = errors.New("remote upload failed")
	ErrRemoteProcessing = errors.New("remote processing failed")
	ErrModel            = errors.New("model request failed")
)

// RemoteFiles uploads files to the generative service and reads their state.
type RemoteFiles interface {
	UploadFile(ctx context.Context, path, mimeType string) (*ai.RemoteFile, error)
	GetFile(ctx context.Context, name string) (*ai.RemoteFile, error)
}

// Conversation runs one seeded exchange with the generative model.
type Conversation interface {
	Converse(ctx context.Context, history []ai.Turn, message ai.Turn) (string, error)
}

type ResultCache interface {
	Get(ctx context.Context, key string) (*cache.Result, bool, error)
	Set(ctx context.Context, key string, result cache.Result) error
}

// RemoteFileReleaser disposes of request images held by the remote service.
type RemoteFileReleaser interface {
	Release(ctx context.Context, name string) error
}

// ClassifyOptions bounds a single request. MaxImagePixels caps the declared
// width*height of an upload before it is decoded.
type ClassifyOptions struct {
	TempDir        string
	MaxImageBytes  int64
	MaxImageSide   int
	MaxImagePixels int
	Wait           ai.WaitPolicy
}

type ClassifyInput struct {
	Image []byte
}

type ClassifyResult struct {
	ProductID  string   `json:"product_id,omitempty"`
	Found      bool     `json:"found"`
	Candidates []string `json:"candidates,omitempty"`
	Cached     bool     `json:"cached"`
}

type ClassifyService struct {
	files       RemoteFiles
	model       Conversation
	catalog     *catalog.Catalog
	cacheScope  string
	reference   *ai.RemoteFile
	instruction string
	resultCache ResultCache
	releaser    RemoteFileReleaser
	opts        ClassifyOptions
}

// NewClassifyService wires the per-request flow. resultCache and releaser
// may be nil.
func NewClassifyService(
	files RemoteFiles,
	model Conversation,
	products *catalog.Catalog,
	reference *ai.RemoteFile,
	resultCache ResultCache,
	releaser RemoteFileReleaser,
	opts ClassifyOptions,
) *ClassifyService {
	if opts.TempDir == "" {
		opts.TempDir = os.TempDir()
	}
	return &ClassifyService{
		files:       files,
		model:       model,
		catalog:     products,
		cacheScope:  products.Fingerprint(),
		reference:   reference,
		instruction: BuildInstruction(reference.DisplayName),
		resultCache: resultCache,
		releaser:    releaser,
		opts:        opts,
	}
}

func (s *ClassifyService) Classify(ctx context.Context, input ClassifyInput) (*ClassifyResult, error) {
	if s.opts.MaxImageBytes > 0 && int64(len(input.Image)) > s.opts.MaxImageBytes {
		return nil, ErrImageTooLarge
	}

	cacheKey := cache.Key(s.cacheScope, input.Image)
	if cached, ok := s.lookupCache(ctx, cacheKey); ok {
		return cached, nil
	}

	pngData, err := imagenorm.ToPNG(input.Image, s.opts.MaxImageSide, s.opts.MaxImagePixels)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidImage, err)
	}

	tempPath := filepath.Join(s.opts.TempDir, "uploaded_"+uuid.NewString()+".png")
	if err := os.WriteFile(tempPath, pngData, 0o600); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreImage, err)
	}
	defer removeTemp(tempPath)

	image, err := s.files.UploadFile(ctx, tempPath, imagenorm.MIMEType)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRemoteUpload, err)
	}
	defer s.release(ctx, image)

	if err := ai.WaitForActive(ctx, s.files, s.opts.Wait, image); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRemoteProcessing, err)
	}

	history := []ai.Turn{
		ai.UserTurn(ai.FilePart(s.reference), ai.TextPart(s.instruction)),
	}
	reply, err := s.model.Converse(ctx, history, ai.UserTurn(ai.FilePart(image)))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrModel, err)
	}

	candidates := ParseCandidates(reply)
	result := &ClassifyResult{Candidates: candidates}
	if product, ok := s.catalog.Resolve(candidates); ok {
		result.ProductID = product.ID
		result.Found = true
		log.Printf("classified image %s as %q (product_id=%s)", image.Name, product.Name, product.ID)
	} else {
		log.Printf("classified image %s: no known product in %d candidates", image.Name, len(candidates))
	}

	s.storeCache(ctx, cacheKey, result)
	return result, nil
}

func (s *ClassifyService) lookupCache(ctx context.Context, key string) (*ClassifyResult, bool) {
	if s.resultCache == nil {
		return nil, false
	}
	cached, ok, err := s.resultCache.Get(ctx, key)
	if err != nil {
		log.Printf("result cache lookup failed: %v", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	return &ClassifyResult{ProductID: cached.ProductID, Found: cached.Found, Cached: true}, true
}

func (s *ClassifyService) storeCache(ctx context.Context, key string, result *ClassifyResult) {
	if s.resultCache == nil {
		return
	}
	if err := s.resultCache.Set(ctx, key, cache.Result{ProductID: result.ProductID, Found: result.Found}); err != nil {
		log.Printf("result cache store failed: %v", err)
	}
}

func (s *ClassifyService) release(ctx context.Context, image *ai.RemoteFile) {
	if s.releaser == nil {
		return
	}
	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()
	if err := s.releaser.Release(releaseCtx, image.Name); err != nil {
		log.Printf("release remote image %s failed: %v", image.Name, err)
	}
}

func removeTemp(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("remove temp image %s failed: %v", path, err)
	}
}
