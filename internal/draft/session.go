package draft

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/DoyleJ11/draftroom/internal/engine"
	"github.com/DoyleJ11/draftroom/internal/realtime"
	"github.com/DoyleJ11/draftroom/internal/store"
)

const maxPlannedGames = 7

const inviteAttempts = 3

type TeamInput struct {
	Name          string `json:"name"`
	CaptainID     string `json:"captain_id,omitempty"`
	CaptainName   string `json:"captain_name,omitempty"`
	CaptainAvatar string `json:"captain_avatar,omitempty"`
	CaptainRole   string `json:"captain_role,omitempty"`
	RosterID      string `json:"roster_id,omitempty"`
}

type CreateSessionInput struct {
	Team1        TeamInput   `json:"team1"`
	Team2        TeamInput   `json:"team2"`
	Mode         engine.Mode `json:"mode"`
	PlannedGames int         `json:"planned_games"`
	BanSeconds   int         `json:"ban_seconds"`
	PickSeconds  int         `json:"pick_seconds"`
}

type JoinInput struct {
	UserID      string      `json:"user_id"`
	DisplayName string      `json:"display_name"`
	Team        engine.Team `json:"team,omitempty"`
}

// Detail is a session together with its games and the derived score.
type Detail struct {
	Session engine.Session
	Games   []engine.Game
	Score   engine.SeriesScore
}

func seatFrom(in TeamInput) engine.TeamSeat {
	return engine.TeamSeat{
		Name:          strings.TrimSpace(in.Name),
		CaptainID:     in.CaptainID,
		CaptainName:   in.CaptainName,
		CaptainAvatar: in.CaptainAvatar,
		CaptainRole:   in.CaptainRole,
		RosterID:      in.RosterID,
	}
}

func (s *Service) CreateSession(ctx context.Context, in CreateSessionInput) (engine.Session, error) {
	if in.Mode == "" {
		in.Mode = engine.ModeNormal
	}
	if in.PlannedGames == 0 {
		in.PlannedGames = 1
	}
	if in.BanSeconds == 0 {
		in.BanSeconds = s.banSeconds
	}
	if in.PickSeconds == 0 {
		in.PickSeconds = s.pickSeconds
	}

	sess := engine.Session{
		ID:           newID(),
		Team1:        seatFrom(in.Team1),
		Team2:        seatFrom(in.Team2),
		Mode:         in.Mode,
		PlannedGames: in.PlannedGames,
		BanSeconds:   in.BanSeconds,
		PickSeconds:  in.PickSeconds,
		Status:       engine.SessionLobby,
		CreatedAt:    s.now(),
	}
	switch {
	case sess.Team1.Name == "" || sess.Team2.Name == "":
		return sess, fmt.Errorf("both team names are required: %w", ErrInvalidInput)
	case !sess.Mode.Valid():
		return sess, fmt.Errorf("mode %q: %w", sess.Mode, ErrInvalidInput)
	case sess.PlannedGames < 1 || sess.PlannedGames > maxPlannedGames:
		return sess, fmt.Errorf("planned games must be between 1 and %d: %w", maxPlannedGames, ErrInvalidInput)
	case sess.BanSeconds < 0 || sess.PickSeconds < 0:
		return sess, fmt.Errorf("turn timers must be positive: %w", ErrInvalidInput)
	}

	for attempt := 1; ; attempt++ {
		token, err := GenerateCode()
		if err != nil {
			return sess, fmt.Errorf("generate invite token: %w", err)
		}
		sess.InviteToken = token
		err = s.store.CreateSession(ctx, sess)
		if err == nil {
			break
		}
		if !errors.Is(err, store.ErrConflict) || attempt >= inviteAttempts {
			return sess, fmt.Errorf("create session: %w", err)
		}
		s.log.Warn("invite token collision, regenerating")
	}

	s.log.Info("session created",
		zap.String("session_id", sess.ID),
		zap.String("mode", string(sess.Mode)),
		zap.Int("planned_games", sess.PlannedGames))
	return sess, nil
}

func (s *Service) GetSession(ctx context.Context, id string) (Detail, error) {
	sess, err := s.store.GetSession(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	games, err := s.store.ListGames(ctx, id)
	if err != nil {
		return Detail{}, fmt.Errorf("list games: %w", err)
	}
	return Detail{Session: sess, Games: games, Score: engine.Score(games)}, nil
}

// JoinSession registers a participant through an invite token. The first participant to join a
// team while the session is in the lobby becomes its captain unless one was named on creation;
// joining without a team makes a spectator.
func (s *Service) JoinSession(ctx context.Context, token string, in JoinInput) (engine.Session, store.Participant, error) {
	sess, err := s.store.GetSessionByInvite(ctx, token)
	if err != nil {
		return sess, store.Participant{}, err
	}
	if sess.Status.Terminal() {
		return sess, store.Participant{}, engine.ErrInvalidSessionState
	}
	if in.Team != "" && !in.Team.Valid() {
		return sess, store.Participant{}, engine.ErrInvalidTeam
	}

	now := s.now()
	p := store.Participant{
		ID:          newID(),
		SessionID:   sess.ID,
		UserID:      in.UserID,
		DisplayName: strings.TrimSpace(in.DisplayName),
		Role:        store.RoleSpectator,
		Team:        in.Team,
		JoinedAt:    now,
		LastSeenAt:  now,
	}
	if p.DisplayName == "" {
		return sess, p, fmt.Errorf("display name is required: %w", ErrInvalidInput)
	}
	identity := p.UserID
	if identity == "" {
		identity = p.ID
	}

	if in.Team != "" {
		p.Role = store.RoleMember
		sess, err = s.mutateSession(ctx, sess.ID, func(_ store.Store, cur engine.Session) (engine.Session, error) {
			seat := cur.Seat(in.Team)
			switch {
			case seat.CaptainID == identity:
				p.Role = store.RoleCaptain
			case seat.CaptainID == "" && cur.Status == engine.SessionLobby:
				seat.CaptainID = identity
				seat.CaptainName = p.DisplayName
				p.Role = store.RoleCaptain
			default:
				p.Role = store.RoleMember
			}
			return cur, nil
		})
		if err != nil {
			return sess, p, err
		}
	}

	if err := s.store.UpsertParticipant(ctx, p); err != nil {
		return sess, p, fmt.Errorf("save participant: %w", err)
	}
	s.log.Info("participant joined",
		zap.String("session_id", sess.ID),
		zap.String("participant_id", p.ID),
		zap.String("role", string(p.Role)))
	s.pub.Publish(realtime.Presence(p))
	s.publishSession(ctx, sess)
	return sess, p, nil
}

// SetConnected records a websocket connect or disconnect and broadcasts presence.
func (s *Service) SetConnected(ctx context.Context, participantID string, connected bool) (store.Participant, error) {
	p, err := s.store.GetParticipant(ctx, participantID)
	if err != nil {
		return p, err
	}
	p.IsConnected = connected
	p.LastSeenAt = s.now()
	if err := s.store.UpsertParticipant(ctx, p); err != nil {
		return p, fmt.Errorf("save participant: %w", err)
	}
	s.pub.Publish(realtime.Presence(p))
	return p, nil
}

func (s *Service) Participant(ctx context.Context, id string) (store.Participant, error) {
	return s.store.GetParticipant(ctx, id)
}

func (s *Service) ListParticipants(ctx context.Context, sessionID string) ([]store.Participant, error) {
	if _, err := s.store.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	return s.store.ListParticipants(ctx, sessionID)
}

// authorizeCaptain checks that by captains team, or either team when team is empty.
func (s *Service) authorizeCaptain(ctx context.Context, sessionID, by string, team engine.Team) error {
	if by == "" {
		return nil
	}
	p, err := s.store.GetParticipant(ctx, by)
	if err != nil {
		return err
	}
	if p.SessionID != sessionID || !p.IsCaptain() || (team != "" && p.Team != team) {
		return ErrForbidden
	}
	return nil
}

// lobbyChange applies a captain-only session transition and broadcasts the result.
func (s *Service) lobbyChange(ctx context.Context, sessionID, by string, team engine.Team, op string, fn func(engine.Session) (engine.Session, error)) (engine.Session, error) {
	if err := s.authorizeCaptain(ctx, sessionID, by, team); err != nil {
		return engine.Session{}, err
	}
	sess, err := s.mutateSession(ctx, sessionID, func(_ store.Store, cur engine.Session) (engine.Session, error) {
		return fn(cur)
	})
	if err != nil {
		s.log.Info("session change rejected",
			zap.String("session_id", sessionID), zap.String("op", op), zap.Error(err))
		return sess, err
	}
	s.publishSession(ctx, sess)
	return sess, nil
}

func (s *Service) ChooseSide(ctx context.Context, sessionID string, team engine.Team, side engine.Side, by string) (engine.Session, error) {
	return s.lobbyChange(ctx, sessionID, by, team, "choose_side", func(cur engine.Session) (engine.Session, error) {
		return engine.ChooseSide(cur, team, side)
	})
}

func (s *Service) ReleaseSide(ctx context.Context, sessionID string, team engine.Team, by string) (engine.Session, error) {
	return s.lobbyChange(ctx, sessionID, by, team, "release_side", func(cur engine.Session) (engine.Session, error) {
		return engine.ReleaseSide(cur, team)
	})
}

func (s *Service) SetReady(ctx context.Context, sessionID string, team engine.Team, ready bool, by string) (engine.Session, error) {
	return s.lobbyChange(ctx, sessionID, by, team, "set_ready", func(cur engine.Session) (engine.Session, error) {
		return engine.SetReady(cur, team, ready)
	})
}

// StartSession moves a ready lobby to in_progress and creates game 1 in pending status.
func (s *Service) StartSession(ctx context.Context, sessionID, by string) (engine.Session, engine.Game, error) {
	if err := s.authorizeCaptain(ctx, sessionID, by, ""); err != nil {
		return engine.Session{}, engine.Game{}, err
	}
	var first engine.Game
	sess, err := s.mutateSession(ctx, sessionID, func(tx store.Store, cur engine.Session) (engine.Session, error) {
		next, g, err := engine.StartSession(cur, s.now())
		if err != nil {
			return cur, err
		}
		g.ID = newID()
		if err := tx.CreateGame(ctx, g); err != nil {
			return cur, err
		}
		first = g
		return next, nil
	})
	if err != nil {
		s.log.Info("session start rejected", zap.String("session_id", sessionID), zap.Error(err))
		return sess, first, err
	}

	s.log.Info("session started", zap.String("session_id", sess.ID), zap.String("game_id", first.ID))
	s.publishSession(ctx, sess)
	s.pub.Publish(realtime.GameState(first))
	return sess, first, nil
}

func (s *Service) PauseSession(ctx context.Context, sessionID, by string) (engine.Session, error) {
	sess, err := s.lobbyChange(ctx, sessionID, by, "", "pause", func(cur engine.Session) (engine.Session, error) {
		return engine.Pause(cur, s.now())
	})
	if err != nil {
		return sess, err
	}
	s.publishTimer(ctx, sess)
	return sess, nil
}

// ResumeSession returns to in_progress and pushes the current turn's start forward by the
// paused duration so the turn keeps the time it had left.
func (s *Service) ResumeSession(ctx context.Context, sessionID, by string) (engine.Session, error) {
	if err := s.authorizeCaptain(ctx, sessionID, by, ""); err != nil {
		return engine.Session{}, err
	}
	var shifted *engine.Game
	sess, err := s.mutateSession(ctx, sessionID, func(tx store.Store, cur engine.Session) (engine.Session, error) {
		shifted = nil
		next, paused, err := engine.Resume(cur, s.now())
		if err != nil {
			return cur, err
		}
		g, err := tx.GetGameByNumber(ctx, cur.ID, cur.CurrentGame)
		if errors.Is(err, store.ErrNotFound) {
			return next, nil
		}
		if err != nil {
			return cur, err
		}
		if g.Status == engine.GameDrafting {
			saved, err := tx.UpdateGame(ctx, engine.ShiftTurnClock(g, paused))
			if err != nil {
				return cur, err
			}
			shifted = &saved
		}
		return next, nil
	})
	if err != nil {
		s.log.Info("session resume rejected", zap.String("session_id", sessionID), zap.Error(err))
		return sess, err
	}

	s.publishSession(ctx, sess)
	if shifted != nil {
		s.pub.Publish(realtime.GameState(*shifted))
		s.pub.Publish(realtime.Timer(sess, *shifted, s.now()))
	}
	return sess, nil
}

// CancelSession ends the series. Ledger records of completed games are kept.
func (s *Service) CancelSession(ctx context.Context, sessionID, by string) (engine.Session, error) {
	sess, err := s.lobbyChange(ctx, sessionID, by, "", "cancel", func(cur engine.Session) (engine.Session, error) {
		return engine.Cancel(cur, s.now())
	})
	if err == nil {
		s.log.Info("session cancelled", zap.String("session_id", sessionID))
	}
	return sess, err
}

func (s *Service) publishTimer(ctx context.Context, sess engine.Session) {
	g, err := s.store.GetGameByNumber(ctx, sess.ID, sess.CurrentGame)
	if err != nil || g.Status != engine.GameDrafting {
		return
	}
	s.pub.Publish(realtime.Timer(sess, g, s.now()))
}
