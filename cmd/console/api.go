package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/sagaforge/saga-engine/pkg/state"
)

// apiClient wraps the engine's HTTP surface for the console.
type apiClient struct {
	client  *http.Client
	baseURL string
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func newAPIClient(client *http.Client, baseURL string) *apiClient {
	return &apiClient{client: client, baseURL: baseURL}
}

func (a *apiClient) testConnection() bool {
	resp, err := a.client.Get(a.baseURL + "/health")
	if err != nil {
		return false
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()
	return resp.StatusCode == http.StatusOK
}

// decodeGameState reads a game state response, surfacing the API's
// error body on failure.
func decodeGameState(resp *http.Response, wantStatus int) (*state.GameState, error) {
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != wantStatus {
		var errorResp ErrorResponse
		if err := json.Unmarshal(body, &errorResp); err != nil || errorResp.Error == "" {
			return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
		}
		return nil, fmt.Errorf("%s", errorResp.Error)
	}

	var gs state.GameState
	if err := json.Unmarshal(body, &gs); err != nil {
		return nil, fmt.Errorf("failed to parse game state response: %w", err)
	}
	return &gs, nil
}

func (a *apiClient) createGame(ownerID, storyGuidance string) (*state.GameState, error) {
	reqBody := map[string]string{
		"owner_id":       ownerID,
		"story_guidance": storyGuidance,
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := a.client.Post(a.baseURL+"/v1/games", "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	return decodeGameState(resp, http.StatusCreated)
}

func (a *apiClient) getGame(id uuid.UUID) (*state.GameState, error) {
	resp, err := a.client.Get(fmt.Sprintf("%s/v1/games/%s", a.baseURL, id))
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	return decodeGameState(resp, http.StatusOK)
}

// postVerb sends one play action: POST /v1/games/{id}/{verb}.
func (a *apiClient) postVerb(id uuid.UUID, verb string, reqBody any) (*state.GameState, error) {
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := a.client.Post(
		fmt.Sprintf("%s/v1/games/%s/%s", a.baseURL, id, verb),
		"application/json",
		bytes.NewBuffer(jsonData),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	return decodeGameState(resp, http.StatusOK)
}

func (a *apiClient) createCharacter(id uuid.UUID, concept string) (*state.GameState, error) {
	return a.postVerb(id, "character", map[string]string{"concept": concept})
}

func (a *apiClient) finalizeCharacter(id uuid.UUID, name string, skills []string) (*state.GameState, error) {
	return a.postVerb(id, "finalize", map[string]any{
		"name":   name,
		"skills": skills,
	})
}

func (a *apiClient) sendAction(id uuid.UUID, text string) (*state.GameState, error) {
	return a.postVerb(id, "action", map[string]string{"text": text})
}

func (a *apiClient) sendCombatAction(id uuid.UUID, text string) (*state.GameState, error) {
	return a.postVerb(id, "combat", map[string]string{"text": text})
}

func (a *apiClient) continueFromLoot(id uuid.UUID) (*state.GameState, error) {
	return a.postVerb(id, "loot/continue", struct{}{})
}

func (a *apiClient) enterLevelUp(id uuid.UUID) (*state.GameState, error) {
	return a.postVerb(id, "levelup/enter", struct{}{})
}

func (a *apiClient) confirmLevelUp(id uuid.UUID, allocations map[string]int) (*state.GameState, error) {
	return a.postVerb(id, "levelup/confirm", map[string]any{"allocations": allocations})
}

func (a *apiClient) cancelLevelUp(id uuid.UUID) (*state.GameState, error) {
	return a.postVerb(id, "levelup/cancel", struct{}{})
}

func (a *apiClient) enterGambling(id uuid.UUID) (*state.GameState, error) {
	return a.postVerb(id, "gamble/enter", struct{}{})
}

func (a *apiClient) playGamble(id uuid.UUID, text string, stake int) (*state.GameState, error) {
	return a.postVerb(id, "gamble/play", map[string]any{"text": text, "stake": stake})
}

func (a *apiClient) exitGambling(id uuid.UUID) (*state.GameState, error) {
	return a.postVerb(id, "gamble/exit", struct{}{})
}

func (a *apiClient) buy(id uuid.UUID, itemName string) (*state.GameState, error) {
	return a.postVerb(id, "transaction", map[string]string{"kind": "buy", "item_name": itemName})
}

func (a *apiClient) sell(id uuid.UUID, itemName string) (*state.GameState, error) {
	return a.postVerb(id, "transaction", map[string]string{"kind": "sell", "item_name": itemName})
}

func (a *apiClient) exitTransaction(id uuid.UUID) (*state.GameState, error) {
	return a.postVerb(id, "transaction/exit", struct{}{})
}

func (a *apiClient) liquidate(id uuid.UUID, itemName string) (*state.GameState, error) {
	return a.postVerb(id, "liquidate", map[string]string{"item_name": itemName})
}
