package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIIllustrator generates segment illustrations through the images
// endpoint and returns the hosted URL.
type OpenAIIllustrator struct {
	client *openai.Client
	model  string
	logger *slog.Logger
}

var _ Illustrator = (*OpenAIIllustrator)(nil)

// NewOpenAIIllustrator creates an illustration client.
func NewOpenAIIllustrator(apiKey, model string, logger *slog.Logger) *OpenAIIllustrator {
	return &OpenAIIllustrator{
		client: openai.NewClient(apiKey),
		model:  model,
		logger: logger,
	}
}

func (i *OpenAIIllustrator) Illustrate(ctx context.Context, prompt string) (string, error) {
	resp, err := i.client.CreateImage(ctx, openai.ImageRequest{
		Prompt:         prompt,
		Model:          i.model,
		N:              1,
		Size:           openai.CreateImageSize1024x1024,
		ResponseFormat: openai.CreateImageResponseFormatURL,
	})
	if err != nil {
		i.logger.Error("Illustration generation failed", "error", err)
		return "", fmt.Errorf("failed to generate illustration: %w", err)
	}
	if len(resp.Data) == 0 {
		return "", fmt.Errorf("illustration response contained no images")
	}
	return resp.Data[0].URL, nil
}

// NoopIllustrator is used when no image backend is configured.
type NoopIllustrator struct{}

var _ Illustrator = (*NoopIllustrator)(nil)

func (NoopIllustrator) Illustrate(ctx context.Context, prompt string) (string, error) {
	return "", nil
}

// MockIllustrator records prompts for tests.
type MockIllustrator struct {
	mu      sync.Mutex
	Prompts []string
	URL     string
	Err     error
}

var _ Illustrator = (*MockIllustrator)(nil)

func (m *MockIllustrator) Illustrate(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Prompts = append(m.Prompts, prompt)
	if m.Err != nil {
		return "", m.Err
	}
	if m.URL != "" {
		return m.URL, nil
	}
	return "https://images.example/" + fmt.Sprint(len(m.Prompts)), nil
}
