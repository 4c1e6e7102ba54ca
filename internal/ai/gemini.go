package ai

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

var ErrEmptyReply = errors.New("model returned no candidates")

type GenerationConfig struct {
	Model           string
	Temperature     float32
	TopP            float32
	TopK            int32
	MaxOutputTokens int32
}

// GeminiClient talks to the Gemini file service and chat API.
type GeminiClient struct {
	client *genai.Client
	gen    GenerationConfig
}

func NewGeminiClient(ctx context.Context, apiKey string, gen GenerationConfig) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client failed: %w", err)
	}
	return &GeminiClient{client: client, gen: gen}, nil
}

func (g *GeminiClient) Close() error {
	return g.client.Close()
}

// UploadFile uploads the local file at path. The returned handle is usually
// still processing; callers wait on it with WaitForActive.
func (g *GeminiClient) UploadFile(ctx context.Context, path, mimeType string) (*RemoteFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open upload file failed: %w", err)
	}
	defer f.Close()

	uploaded, err := g.client.UploadFile(ctx, "", f, &genai.UploadFileOptions{
		DisplayName: filepath.Base(path),
		MIMEType:    mimeType,
	})
	if err != nil {
		return nil, fmt.Errorf("upload file failed: %w", err)
	}

	remote := fromGenaiFile(uploaded)
	log.Printf("uploaded file %q as %s", remote.DisplayName, remote.URI)
	return remote, nil
}

func (g *GeminiClient) GetFile(ctx context.Context, name string) (*RemoteFile, error) {
	f, err := g.client.GetFile(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("get file %s failed: %w", name, err)
	}
	return fromGenaiFile(f), nil
}

func (g *GeminiClient) DeleteFile(ctx context.Context, name string) error {
	if err := g.client.DeleteFile(ctx, name); err != nil {
		return fmt.Errorf("delete file %s failed: %w", name, err)
	}
	return nil
}

// Converse starts a fresh chat seeded with history, sends message and returns
// the concatenated text of the first candidate.
func (g *GeminiClient) Converse(ctx context.Context, history []Turn, message Turn) (string, error) {
	model := g.client.GenerativeModel(g.gen.Model)
	model.SetTemperature(g.gen.Temperature)
	model.SetTopP(g.gen.TopP)
	model.SetTopK(g.gen.TopK)
	model.SetMaxOutputTokens(g.gen.MaxOutputTokens)
	model.ResponseMIMEType = "text/plain"

	session := model.StartChat()
	session.History = make([]*genai.Content, 0, len(history))
	for _, turn := range history {
		session.History = append(session.History, toGenaiContent(turn))
	}

	resp, err := session.SendMessage(ctx, toGenaiParts(message.Parts)...)
	if err != nil {
		return "", fmt.Errorf("send chat message failed: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrEmptyReply
	}

	var reply strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			reply.WriteString(string(text))
		}
	}
	return reply.String(), nil
}

func toGenaiContent(turn Turn) *genai.Content {
	return &genai.Content{
		Role:  turn.Role,
		Parts: toGenaiParts(turn.Parts),
	}
}

func toGenaiParts(parts []Part) []genai.Part {
	out := make([]genai.Part, 0, len(parts))
	for _, p := range parts {
		if p.File != nil {
			out = append(out, genai.FileData{MIMEType: p.File.MIMEType, URI: p.File.URI})
			continue
		}
		out = append(out, genai.Text(p.Text))
	}
	return out
}
