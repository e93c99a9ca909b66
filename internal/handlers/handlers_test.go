package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagaforge/saga-engine/internal/engine"
	"github.com/sagaforge/saga-engine/internal/services"
	"github.com/sagaforge/saga-engine/internal/storage"
	"github.com/sagaforge/saga-engine/pkg/session"
	"github.com/sagaforge/saga-engine/pkg/state"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testEnv struct {
	store  *storage.MockStorage
	oracle *services.MockOracle
	engine *engine.Engine
	games  *GameHandler
	plays  *PlayHandler
}

func newTestEnv() *testEnv {
	store := storage.NewMockStorage()
	oracle := &services.MockOracle{}
	log := testLogger()
	e := engine.New(store, oracle, log)
	play := NewPlayHandler(e, log)
	return &testEnv{
		store:  store,
		oracle: oracle,
		engine: e,
		games:  NewGameHandler(e, play, log),
		plays:  play,
	}
}

// newPlayingGame drives a game through the engine's own creation flow
// so the handler tests start from a playable state.
func newPlayingGame(t *testing.T, env *testEnv) *state.GameState {
	t.Helper()
	ctx := context.Background()
	gs, err := env.engine.NewGame(ctx, "owner-1", "A windswept frontier.")
	require.NoError(t, err)
	gs, err = env.engine.CreateCharacter(ctx, gs.ID, "a weathered sellsword")
	require.NoError(t, err)
	gs, err = env.engine.FinalizeCharacter(ctx, gs.ID, engine.FinalizeRequest{
		Skills: []string{"Swords"},
	})
	require.NoError(t, err)
	return gs
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestGameHandler_Create(t *testing.T) {
	env := newTestEnv()

	rr := doJSON(t, env.games, http.MethodPost, "/v1/games", `{"owner_id":"owner-1"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var gs state.GameState
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&gs))
	assert.NotEmpty(t, gs.ID)
	assert.Equal(t, state.ModeCharacterCreation, gs.Status)
	assert.Equal(t, "owner-1", gs.OwnerID)
}

func TestGameHandler_CreateRejectsBadInput(t *testing.T) {
	env := newTestEnv()

	tests := []struct {
		name string
		body string
		want int
	}{
		{"missing owner", `{"story_guidance":"grim"}`, http.StatusBadRequest},
		{"invalid json", `{not json}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doJSON(t, env.games, http.MethodPost, "/v1/games", tt.body)
			assert.Equal(t, tt.want, rr.Code, rr.Body.String())
		})
	}
}

func TestGameHandler_GetAndDelete(t *testing.T) {
	env := newTestEnv()
	gs := newPlayingGame(t, env)

	rr := doJSON(t, env.games, http.MethodGet, "/v1/games/"+gs.ID.String(), "")
	require.Equal(t, http.StatusOK, rr.Code)

	var got state.GameState
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
	assert.Equal(t, gs.ID, got.ID)
	assert.Equal(t, state.ModePlaying, got.Status)

	rr = doJSON(t, env.games, http.MethodDelete, "/v1/games/"+gs.ID.String(), "")
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = doJSON(t, env.games, http.MethodGet, "/v1/games/"+gs.ID.String(), "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestGameHandler_InvalidID(t *testing.T) {
	env := newTestEnv()

	rr := doJSON(t, env.games, http.MethodGet, "/v1/games/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestGameHandler_List(t *testing.T) {
	env := newTestEnv()
	newPlayingGame(t, env)

	rr := doJSON(t, env.games, http.MethodGet, "/v1/games", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code, "owner param is required")

	rr = doJSON(t, env.games, http.MethodGet, "/v1/games?owner=owner-1", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var saves []storage.SaveSummary
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&saves))
	require.Len(t, saves, 1)
	assert.Equal(t, "Mock Hero", saves[0].CharacterName)
}

func TestGameHandler_MethodNotAllowed(t *testing.T) {
	env := newTestEnv()

	rr := doJSON(t, env.games, http.MethodPut, "/v1/games", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestPlayHandler_Action(t *testing.T) {
	env := newTestEnv()
	gs := newPlayingGame(t, env)

	rr := doJSON(t, env.games, http.MethodPost, "/v1/games/"+gs.ID.String()+"/action", `{"text":"Head into the hills"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var got state.GameState
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
	require.NotEmpty(t, got.StoryLog)
	assert.Equal(t, "The story continues.", got.StoryLog[len(got.StoryLog)-1].Text)
}

func TestPlayHandler_WrongModeConflicts(t *testing.T) {
	env := newTestEnv()
	gs := newPlayingGame(t, env)

	// No combat is running, so a combat turn is a mode conflict.
	rr := doJSON(t, env.games, http.MethodPost, "/v1/games/"+gs.ID.String()+"/combat", `{"text":"Swing"}`)
	assert.Equal(t, http.StatusConflict, rr.Code, rr.Body.String())
}

func TestPlayHandler_OracleFailureMapsToBadGateway(t *testing.T) {
	env := newTestEnv()
	gs := newPlayingGame(t, env)
	env.oracle.NextStepFunc = func(ctx context.Context, req services.StoryRequest) (*state.StoryDelta, error) {
		return nil, services.ErrOracleUnavailable
	}

	rr := doJSON(t, env.games, http.MethodPost, "/v1/games/"+gs.ID.String()+"/action", `{"text":"Press on"}`)
	assert.Equal(t, http.StatusBadGateway, rr.Code, rr.Body.String())
}

func TestPlayHandler_UnknownVerb(t *testing.T) {
	env := newTestEnv()
	gs := newPlayingGame(t, env)

	rr := doJSON(t, env.games, http.MethodPost, "/v1/games/"+gs.ID.String()+"/dance", `{}`)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestPlayHandler_GetOnVerbNotAllowed(t *testing.T) {
	env := newTestEnv()
	gs := newPlayingGame(t, env)

	rr := doJSON(t, env.games, http.MethodGet, "/v1/games/"+gs.ID.String()+"/action", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestPlayHandler_CharacterFlow(t *testing.T) {
	env := newTestEnv()

	rr := doJSON(t, env.games, http.MethodPost, "/v1/games", `{"owner_id":"owner-2","story_guidance":"pirate saga"}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	var gs state.GameState
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&gs))

	rr = doJSON(t, env.games, http.MethodPost, "/v1/games/"+gs.ID.String()+"/character", `{"concept":"a retired navigator"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&gs))
	assert.Equal(t, state.ModeCharacterCustomize, gs.Status)
	require.NotNil(t, gs.Character)

	rr = doJSON(t, env.games, http.MethodPost, "/v1/games/"+gs.ID.String()+"/finalize", `{"name":"Isolde","skills":["Persuasion"]}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&gs))
	assert.Equal(t, state.ModePlaying, gs.Status)
	assert.Equal(t, "Isolde", gs.Character.Name)
}

func TestSessionHandler_Lifecycle(t *testing.T) {
	env := newTestEnv()
	h := NewSessionHandler(env.engine, testLogger())

	rr := doJSON(t, h, http.MethodPost, "/v1/sessions", `{"host":{"id":"p1","name":"Ada"}}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var s session.Session
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&s))
	assert.Equal(t, session.StatusWaiting, s.Status)
	require.Len(t, s.Players, 1)
	assert.True(t, s.Players[0].Host)

	base := "/v1/sessions/" + s.ID.String()

	rr = doJSON(t, h, http.MethodPost, base+"/join", `{"player":{"id":"p2","name":"Brom"}}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&s))
	assert.Len(t, s.Players, 2)

	rr = doJSON(t, h, http.MethodPost, base+"/ready", `{"player_id":"p2","ready":true}`)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&s))
	assert.True(t, s.Players[1].Ready)

	// Only the host may advance.
	rr = doJSON(t, h, http.MethodPost, base+"/advance", `{"player_id":"p2","to":"setup"}`)
	assert.Equal(t, http.StatusForbidden, rr.Code, rr.Body.String())

	rr = doJSON(t, h, http.MethodPost, base+"/advance", `{"player_id":"p1","to":"setup"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&s))
	assert.Equal(t, session.StatusSetup, s.Status)

	rr = doJSON(t, h, http.MethodGet, base, "")
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestSessionHandler_TurnOrder(t *testing.T) {
	env := newTestEnv()
	h := NewSessionHandler(env.engine, testLogger())
	ctx := context.Background()

	s, err := env.engine.CreateSession(ctx, session.Player{ID: "p1", Name: "Ada", Host: true}, "")
	require.NoError(t, err)
	s, err = env.engine.JoinSession(ctx, s.ID, session.Player{ID: "p2", Name: "Brom"})
	require.NoError(t, err)

	// The shared game must reach playing mode before turns are accepted.
	s.Status = session.StatusPlaying
	s.Game.Status = state.ModePlaying
	s.Game.Character = &state.Character{Name: "Party", HP: 20, MaxHP: 20}
	require.NoError(t, env.store.SaveSession(ctx, s))

	base := "/v1/sessions/" + s.ID.String()

	// p2 may not act out of turn.
	rr := doJSON(t, h, http.MethodPost, base+"/action", `{"player_id":"p2","text":"Charge"}`)
	assert.Equal(t, http.StatusForbidden, rr.Code, rr.Body.String())

	rr = doJSON(t, h, http.MethodPost, base+"/action", `{"player_id":"p1","text":"Scout ahead"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var got session.Session
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
	assert.Equal(t, 1, got.TurnIndex)
	assert.Equal(t, "p2", got.CurrentPlayer().ID)
}

func TestSessionHandler_UnknownSession(t *testing.T) {
	env := newTestEnv()
	h := NewSessionHandler(env.engine, testLogger())

	rr := doJSON(t, h, http.MethodGet, "/v1/sessions/0c2d7f3a-51f3-4f8c-9a44-1c2f0a9b8d77", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHealthHandler(t *testing.T) {
	store := storage.NewMockStorage()
	h := NewHealthHandler(store, testLogger())

	rr := doJSON(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rr.Code)

	store.PingFunc = func(ctx context.Context) error { return errors.New("connection refused") }
	rr = doJSON(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

	var resp healthResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "degraded", resp.Status)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{engine.ErrNotFound, http.StatusNotFound},
		{engine.ErrMalformedPayload, http.StatusBadRequest},
		{engine.ErrInsufficientGold, http.StatusBadRequest},
		{engine.ErrInvalidMode, http.StatusConflict},
		{engine.ErrTerminalState, http.StatusConflict},
		{session.ErrNotJoinable, http.StatusConflict},
		{engine.ErrNotYourTurn, http.StatusForbidden},
		{session.ErrNotHost, http.StatusForbidden},
		{engine.ErrOracleUnavailable, http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}
