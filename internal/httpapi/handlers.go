package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/DoyleJ11/draftroom/internal/draft"
	"github.com/DoyleJ11/draftroom/internal/engine"
	"github.com/DoyleJ11/draftroom/internal/realtime"
	"github.com/DoyleJ11/draftroom/internal/store"
	pub "github.com/DoyleJ11/draftroom/pkg/types"
)

// participantHeader names the participant a request acts for. Requests without it are
// treated as coming from a trusted operator.
const participantHeader = "X-Participant-ID"

type api struct {
	svc *draft.Service
	log *zap.Logger
}

type sessionResponse struct {
	Session     pub.SessionStateEvent `json:"session"`
	Games       []pub.GameStateEvent  `json:"games,omitempty"`
	InviteToken string                `json:"invite_token,omitempty"`
	Participant *participantResponse  `json:"participant,omitempty"`
}

type participantResponse struct {
	pub.PresenceState
	SessionID string `json:"session_id"`
	Role      string `json:"role"`
}

type actionResponse struct {
	Index       int       `json:"index"`
	Type        string    `json:"type"`
	Side        string    `json:"side"`
	ChampionID  string    `json:"champion_id,omitempty"`
	PerformedBy string    `json:"performed_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad json", "code": "bad_json"})
		return false
	}
	return true
}

func by(r *http.Request) string { return r.Header.Get(participantHeader) }

// statusOf maps a service error to an HTTP status.
func statusOf(err error) int {
	code := draft.ErrorCode(err)
	switch {
	case code == "not_found":
		return http.StatusNotFound
	case code == "forbidden":
		return http.StatusForbidden
	case code == "conflict":
		return http.StatusConflict
	case code == "invalid_input", code == "invalid_champion", code == "invalid_slot",
		code == "invalid_side", code == "invalid_team":
		return http.StatusUnprocessableEntity
	case draft.IsRuleViolation(err):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func (a *api) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		a.log.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		writeJSON(w, status, map[string]string{"error": "internal error", "code": "internal"})
		return
	}
	writeJSON(w, status, map[string]string{"error": err.Error(), "code": draft.ErrorCode(err)})
}

// game answers with the game snapshot. A lost race is not an error for the caller: it gets
// the authoritative state instead.
func (a *api) game(w http.ResponseWriter, r *http.Request, g engine.Game, err error) {
	if err != nil && !engine.IsRace(err) {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, realtime.GameSnapshot(g))
}

func (a *api) session(w http.ResponseWriter, r *http.Request, s engine.Session, err error) {
	if err != nil && !errors.Is(err, engine.ErrStaleWrite) {
		a.fail(w, r, err)
		return
	}
	detail, err := a.svc.GetSession(r.Context(), s.ID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detailResponse(detail))
}

func detailResponse(d draft.Detail) sessionResponse {
	resp := sessionResponse{Session: realtime.SessionSnapshot(d.Session, d.Score)}
	for _, g := range d.Games {
		resp.Games = append(resp.Games, realtime.GameSnapshot(g))
	}
	return resp
}

func toParticipant(p store.Participant) *participantResponse {
	return &participantResponse{PresenceState: realtime.PresenceOf(p), SessionID: p.SessionID, Role: string(p.Role)}
}

func (a *api) createSession(w http.ResponseWriter, r *http.Request) {
	var in draft.CreateSessionInput
	if !decode(w, r, &in) {
		return
	}
	sess, err := a.svc.CreateSession(r.Context(), in)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	resp := sessionResponse{Session: realtime.SessionSnapshot(sess, engine.SeriesScore{}), InviteToken: sess.InviteToken}
	writeJSON(w, http.StatusCreated, resp)
}

func (a *api) getSession(w http.ResponseWriter, r *http.Request) {
	detail, err := a.svc.GetSession(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detailResponse(detail))
}

func (a *api) joinSession(w http.ResponseWriter, r *http.Request) {
	var in struct {
		draft.JoinInput
		InviteToken string `json:"invite_token"`
	}
	if !decode(w, r, &in) {
		return
	}
	sess, p, err := a.svc.JoinSession(r.Context(), in.InviteToken, in.JoinInput)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	detail, err := a.svc.GetSession(r.Context(), sess.ID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	resp := detailResponse(detail)
	resp.Participant = toParticipant(p)
	writeJSON(w, http.StatusOK, resp)
}

func (a *api) chooseSide(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Team engine.Team `json:"team"`
		Side engine.Side `json:"side"`
	}
	if !decode(w, r, &in) {
		return
	}
	id := chi.URLParam(r, "id")
	var s engine.Session
	var err error
	if in.Side == "" {
		s, err = a.svc.ReleaseSide(r.Context(), id, in.Team, by(r))
	} else {
		s, err = a.svc.ChooseSide(r.Context(), id, in.Team, in.Side, by(r))
	}
	s.ID = id
	a.session(w, r, s, err)
}

func (a *api) setReady(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Team  engine.Team `json:"team"`
		Ready bool        `json:"ready"`
	}
	if !decode(w, r, &in) {
		return
	}
	id := chi.URLParam(r, "id")
	s, err := a.svc.SetReady(r.Context(), id, in.Team, in.Ready, by(r))
	s.ID = id
	a.session(w, r, s, err)
}

func (a *api) startSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s, _, err := a.svc.StartSession(r.Context(), id, by(r))
	s.ID = id
	a.session(w, r, s, err)
}

// sessionOp adapts a session state change that takes no body.
func (a *api) sessionOp(op func(*draft.Service, context.Context, string, string) (engine.Session, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		s, err := op(a.svc, r.Context(), id, by(r))
		s.ID = id
		a.session(w, r, s, err)
	}
}

func (a *api) score(w http.ResponseWriter, r *http.Request) {
	score, err := a.svc.Score(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, score)
}

func (a *api) listParticipants(w http.ResponseWriter, r *http.Request) {
	ps, err := a.svc.ListParticipants(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	out := make([]*participantResponse, 0, len(ps))
	for _, p := range ps {
		out = append(out, toParticipant(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *api) listMessages(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	msgs, err := a.svc.ListMessages(r.Context(), chi.URLParam(r, "id"), limit)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	out := make([]pub.ChatMessageEvent, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, realtime.Chat(m).Payload.(pub.ChatMessageEvent))
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *api) sendChat(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Body string `json:"body"`
	}
	if !decode(w, r, &in) {
		return
	}
	m, err := a.svc.SendChat(r.Context(), chi.URLParam(r, "id"), by(r), in.Body)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, realtime.Chat(m).Payload)
}

func (a *api) getGame(w http.ResponseWriter, r *http.Request) {
	g, err := a.svc.GetGame(r.Context(), chi.URLParam(r, "id"))
	a.game(w, r, g, err)
}

func (a *api) startGame(w http.ResponseWriter, r *http.Request) {
	g, err := a.svc.StartGame(r.Context(), chi.URLParam(r, "id"), by(r))
	a.game(w, r, g, err)
}

func (a *api) submitAction(w http.ResponseWriter, r *http.Request) {
	var sub draft.Submission
	if !decode(w, r, &sub) {
		return
	}
	if sub.PerformedBy == "" {
		sub.PerformedBy = by(r)
	}
	g, err := a.svc.SubmitAction(r.Context(), chi.URLParam(r, "id"), sub)
	a.game(w, r, g, err)
}

func (a *api) timeout(w http.ResponseWriter, r *http.Request) {
	var in struct {
		ActionIndex int `json:"action_index"`
	}
	if !decode(w, r, &in) {
		return
	}
	g, err := a.svc.ApplyTimeout(r.Context(), chi.URLParam(r, "id"), in.ActionIndex, by(r))
	a.game(w, r, g, err)
}

func (a *api) listActions(w http.ResponseWriter, r *http.Request) {
	recs, err := a.svc.ListActions(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	out := make([]actionResponse, 0, len(recs))
	for _, rec := range recs {
		out = append(out, actionResponse{
			Index:       rec.Index,
			Type:        string(rec.Type),
			Side:        string(rec.Side),
			ChampionID:  rec.ChampionID,
			PerformedBy: rec.PerformedBy,
			CreatedAt:   rec.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *api) beginEdit(w http.ResponseWriter, r *http.Request) {
	g, err := a.svc.BeginEdit(r.Context(), chi.URLParam(r, "id"), by(r))
	a.game(w, r, g, err)
}

func (a *api) editSlot(w http.ResponseWriter, r *http.Request) {
	var in struct {
		engine.SlotRef
		ChampionID string `json:"champion_id"`
	}
	if !decode(w, r, &in) {
		return
	}
	g, err := a.svc.EditSlot(r.Context(), chi.URLParam(r, "id"), in.SlotRef, in.ChampionID, by(r))
	a.game(w, r, g, err)
}

func (a *api) finishEdit(w http.ResponseWriter, r *http.Request) {
	g, err := a.svc.FinishEdit(r.Context(), chi.URLParam(r, "id"), by(r))
	a.game(w, r, g, err)
}

func (a *api) recordWinner(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Side engine.Side `json:"side"`
	}
	if !decode(w, r, &in) {
		return
	}
	g, err := a.svc.RecordWinner(r.Context(), chi.URLParam(r, "id"), in.Side, by(r))
	a.game(w, r, g, err)
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
