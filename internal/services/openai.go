package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/sagaforge/saga-engine/pkg/state"
)

// ErrOracleUnavailable wraps transport and provider failures so the
// engine can map them to a 502 without leaking provider detail.
var ErrOracleUnavailable = errors.New("oracle unavailable")

// OpenAIOracle implements Oracle against any OpenAI-compatible chat
// completion endpoint.
type OpenAIOracle struct {
	client      *openai.Client
	model       string
	temperature float32
	logger      *slog.Logger
}

var _ Oracle = (*OpenAIOracle)(nil)

// NewOpenAIOracle creates an oracle client. baseURL may be empty for
// the provider default.
func NewOpenAIOracle(apiKey, baseURL, model string, temperature float32, logger *slog.Logger) *OpenAIOracle {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &OpenAIOracle{
		client:      openai.NewClientWithConfig(config),
		model:       model,
		temperature: temperature,
		logger:      logger,
	}
}

// complete runs one JSON-mode completion and unmarshals the reply.
func (o *OpenAIOracle) complete(ctx context.Context, systemPrompt, userPrompt string, out any) error {
	req := openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		Temperature: o.temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		o.logger.Error("Oracle completion failed", "error", err, "model", o.model)
		return fmt.Errorf("%w: %v", ErrOracleUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return fmt.Errorf("%w: empty response", ErrOracleUnavailable)
	}

	content := stripCodeFence(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), out); err != nil {
		o.logger.Error("Oracle returned malformed JSON", "error", err, "content_length", len(content))
		return fmt.Errorf("%w: malformed payload: %v", ErrOracleUnavailable, err)
	}
	return nil
}

// completeText runs one plain-text completion.
func (o *OpenAIOracle) completeText(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		Temperature: o.temperature,
	}
	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrOracleUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty response", ErrOracleUnavailable)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (o *OpenAIOracle) GenerateCharacter(ctx context.Context, req CharacterRequest) (*CharacterProposal, error) {
	prompt := fmt.Sprintf("CONCEPT: %s\n", req.Concept)
	if req.StoryGuidance != "" {
		prompt += fmt.Sprintf("ADVENTURE GUIDANCE: %s\n", req.StoryGuidance)
	}
	var proposal CharacterProposal
	if err := o.complete(ctx, characterSystemPrompt, prompt, &proposal); err != nil {
		return nil, err
	}
	return &proposal, nil
}

func (o *OpenAIOracle) NextStep(ctx context.Context, req StoryRequest) (*state.StoryDelta, error) {
	var delta state.StoryDelta
	if err := o.complete(ctx, storySystemPrompt, buildStoryContext(req), &delta); err != nil {
		return nil, err
	}
	return &delta, nil
}

func (o *OpenAIOracle) CombatTurn(ctx context.Context, req CombatRequest) (*state.CombatTurnDelta, error) {
	var delta state.CombatTurnDelta
	if err := o.complete(ctx, combatSystemPrompt, buildCombatContext(req), &delta); err != nil {
		return nil, err
	}
	return &delta, nil
}

func (o *OpenAIOracle) Victory(ctx context.Context, req VictoryRequest) (*state.VictoryDelta, error) {
	var delta state.VictoryDelta
	if err := o.complete(ctx, victorySystemPrompt, buildVictoryContext(req), &delta); err != nil {
		return nil, err
	}
	return &delta, nil
}

func (o *OpenAIOracle) Gamble(ctx context.Context, req GambleRequest) (*state.GambleDelta, error) {
	var delta state.GambleDelta
	if err := o.complete(ctx, gambleSystemPrompt, buildGambleContext(req), &delta); err != nil {
		return nil, err
	}
	return &delta, nil
}

func (o *OpenAIOracle) Summarize(ctx context.Context, req SummaryRequest) (string, error) {
	return o.completeText(ctx, summarySystemPrompt, buildSummaryContext(req))
}

// stripCodeFence removes a markdown code fence some models wrap JSON in
// despite JSON mode.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
