package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/DoyleJ11/draftroom/internal/draft"
	"github.com/DoyleJ11/draftroom/internal/hub"
	"github.com/DoyleJ11/draftroom/internal/store"
	"github.com/DoyleJ11/draftroom/internal/store/memstore"
	pub "github.com/DoyleJ11/draftroom/pkg/types"
)

type client struct {
	t       *testing.T
	handler http.Handler
}

func newClient(t *testing.T) *client {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	log := zaptest.NewLogger(t)
	h := hub.NewHub(ctx, log)
	svc := draft.New(memstore.New(), h, log, draft.Options{})
	return &client{t: t, handler: SetupRoutes(svc, h, log)}
}

// do sends body as JSON on behalf of participant and decodes the reply into out when given.
func (c *client) do(method, path, participant string, body any, out any) int {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if participant != "" {
		req.Header.Set(participantHeader, participant)
	}
	rec := httptest.NewRecorder()
	c.handler.ServeHTTP(rec, req)
	if out != nil {
		require.NoError(c.t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
	}
	return rec.Code
}

type errBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func TestHealthz(t *testing.T) {
	c := newClient(t)
	assert.Equal(t, http.StatusOK, c.do(http.MethodGet, "/healthz", "", nil, nil))
}

func TestCreateSession(t *testing.T) {
	c := newClient(t)

	var created sessionResponse
	code := c.do(http.MethodPost, "/sessions", "", map[string]any{
		"team1":         map[string]string{"name": "Blue Wolves"},
		"team2":         map[string]string{"name": "Red Hawks"},
		"mode":          "fearless",
		"planned_games": 3,
		"ban_seconds":   20,
	}, &created)
	require.Equal(t, http.StatusCreated, code)
	assert.NotEmpty(t, created.InviteToken)
	assert.Equal(t, "lobby", created.Session.Status)
	assert.Equal(t, "fearless", created.Session.Mode)
	assert.Equal(t, 20, created.Session.BanSeconds)
	assert.Equal(t, 30, created.Session.PickSeconds)

	var e errBody
	code = c.do(http.MethodPost, "/sessions", "", map[string]any{"team1": map[string]string{"name": "A"}}, &e)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "invalid_input", e.Code)

	req := httptest.NewRequest(http.MethodPost, "/sessions", bytes.NewBufferString("{"))
	rec := httptest.NewRecorder()
	c.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Equal(t, http.StatusNotFound, c.do(http.MethodGet, "/sessions/missing", "", nil, &e))
	assert.Equal(t, "not_found", e.Code)
}

func TestDraftOverHTTP(t *testing.T) {
	c := newClient(t)

	var created sessionResponse
	require.Equal(t, http.StatusCreated, c.do(http.MethodPost, "/sessions", "", map[string]any{
		"team1": map[string]string{"name": "A"},
		"team2": map[string]string{"name": "B"},
	}, &created))
	id := created.Session.SessionID

	var joined1, joined2, spectator sessionResponse
	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/sessions/join", "",
		map[string]string{"invite_token": created.InviteToken, "display_name": "cap1", "team": "team1"}, &joined1))
	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/sessions/join", "",
		map[string]string{"invite_token": created.InviteToken, "display_name": "cap2", "team": "team2"}, &joined2))
	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/sessions/join", "",
		map[string]string{"invite_token": created.InviteToken, "display_name": "fan"}, &spectator))
	cap1, cap2 := joined1.Participant.ParticipantID, joined2.Participant.ParticipantID
	assert.Equal(t, "captain", joined1.Participant.Role)
	assert.Equal(t, "spectator", spectator.Participant.Role)

	var e errBody
	assert.Equal(t, http.StatusNotFound, c.do(http.MethodPost, "/sessions/join", "",
		map[string]string{"invite_token": "NOPE", "display_name": "x"}, &e))

	// a captain may only act for its own team
	assert.Equal(t, http.StatusForbidden, c.do(http.MethodPost, "/sessions/"+id+"/side", cap2,
		map[string]string{"team": "team1", "side": "blue"}, &e))

	var sess sessionResponse
	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/sessions/"+id+"/side", cap1,
		map[string]string{"team": "team1", "side": "blue"}, &sess))
	assert.Equal(t, "blue", sess.Session.Team1.Side)
	assert.Equal(t, http.StatusConflict, c.do(http.MethodPost, "/sessions/"+id+"/side", cap2,
		map[string]string{"team": "team2", "side": "blue"}, &e))
	assert.Equal(t, "side_taken", e.Code)
	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/sessions/"+id+"/side", cap2,
		map[string]string{"team": "team2", "side": "red"}, &sess))

	assert.Equal(t, http.StatusConflict, c.do(http.MethodPost, "/sessions/"+id+"/start", cap1, nil, &e))
	assert.Equal(t, "session_not_ready", e.Code)

	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/sessions/"+id+"/ready", cap1,
		map[string]any{"team": "team1", "ready": true}, &sess))
	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/sessions/"+id+"/ready", cap2,
		map[string]any{"team": "team2", "ready": true}, &sess))
	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/sessions/"+id+"/start", cap1, nil, &sess))
	assert.Equal(t, "in_progress", sess.Session.Status)
	require.Len(t, sess.Games, 1)
	gameID := sess.Games[0].GameID
	assert.Equal(t, "pending", sess.Games[0].Status)

	var g pub.GameStateEvent
	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/games/"+gameID+"/start", cap1, nil, &g))
	assert.Equal(t, "drafting", g.Status)
	assert.Equal(t, "blue", g.Turn)

	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/games/"+gameID+"/actions", cap1,
		map[string]any{"action_index": 0, "action": "ban", "side": "blue", "champion_id": "Ahri"}, &g))
	assert.Equal(t, 1, g.ActionIndex)
	assert.Equal(t, "Ahri", g.BlueBans[0])

	assert.Equal(t, http.StatusConflict, c.do(http.MethodPost, "/games/"+gameID+"/actions", cap1,
		map[string]any{"action_index": 1, "action": "ban", "side": "blue", "champion_id": "Zed"}, &e))
	assert.Equal(t, "out_of_turn", e.Code)
	assert.Equal(t, http.StatusConflict, c.do(http.MethodPost, "/games/"+gameID+"/actions", cap2,
		map[string]any{"action_index": 1, "action": "ban", "side": "red", "champion_id": "Ahri"}, &e))
	assert.Equal(t, "champion_unavailable", e.Code)
	assert.Equal(t, http.StatusForbidden, c.do(http.MethodPost, "/games/"+gameID+"/actions", cap1,
		map[string]any{"action_index": 1, "action": "ban", "side": "red", "champion_id": "Zed"}, &e))
	assert.Equal(t, http.StatusUnprocessableEntity, c.do(http.MethodPost, "/games/"+gameID+"/actions", cap2,
		map[string]any{"action_index": 1, "action": "ban", "side": "purple", "champion_id": "Zed"}, &e))

	// a ban aimed at a turn that already passed answers with the current game
	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/games/"+gameID+"/actions", cap1,
		map[string]any{"action_index": 0, "action": "ban", "side": "blue", "champion_id": "Zed"}, &g))
	assert.Equal(t, 1, g.ActionIndex)
	assert.Equal(t, "Ahri", g.BlueBans[0])

	// a timeout for a turn that was already resolved answers with the current game
	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/games/"+gameID+"/timeout", cap2,
		map[string]int{"action_index": 0}, &g))
	assert.Equal(t, 1, g.ActionIndex)
	assert.Equal(t, "red", g.Turn)

	var actions []actionResponse
	require.Equal(t, http.StatusOK, c.do(http.MethodGet, "/games/"+gameID+"/actions", "", nil, &actions))
	require.Len(t, actions, 1)
	assert.Equal(t, "ban", actions[0].Type)
	assert.Equal(t, cap1, actions[0].PerformedBy)

	var msg pub.ChatMessageEvent
	require.Equal(t, http.StatusCreated, c.do(http.MethodPost, "/sessions/"+id+"/messages", cap2,
		map[string]string{"body": "  gl hf  "}, &msg))
	assert.Equal(t, "gl hf", msg.Body)
	var msgs []pub.ChatMessageEvent
	require.Equal(t, http.StatusOK, c.do(http.MethodGet, "/sessions/"+id+"/messages", "", nil, &msgs))
	require.Len(t, msgs, 1)
	assert.Equal(t, "cap2", msgs[0].DisplayName)

	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/sessions/"+id+"/pause", cap1, nil, &sess))
	assert.Equal(t, "paused", sess.Session.Status)
	assert.Equal(t, http.StatusConflict, c.do(http.MethodPost, "/games/"+gameID+"/actions", cap2,
		map[string]any{"action_index": 1, "action": "ban", "side": "red", "champion_id": "Zed"}, &e))
	assert.Equal(t, "invalid_session_state", e.Code)
	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/sessions/"+id+"/resume", cap1, nil, &sess))
	assert.Equal(t, "in_progress", sess.Session.Status)

	var participants []participantResponse
	require.Equal(t, http.StatusOK, c.do(http.MethodGet, "/sessions/"+id+"/participants", "", nil, &participants))
	assert.Len(t, participants, 3)

	var score map[string]int
	require.Equal(t, http.StatusOK, c.do(http.MethodGet, "/sessions/"+id+"/score", "", nil, &score))
	assert.Equal(t, map[string]int{"team1": 0, "team2": 0}, score)

	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/sessions/"+id+"/cancel", cap2, nil, &sess))
	assert.Equal(t, "cancelled", sess.Session.Status)
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{draft.ErrForbidden, http.StatusForbidden},
		{draft.ErrInvalidInput, http.StatusUnprocessableEntity},
		{fmt.Errorf("record_winner on game g1: %w", store.ErrConflict), http.StatusConflict},
		{assert.AnError, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusOf(tt.err), tt.err.Error())
	}
}
