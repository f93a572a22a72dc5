package draft

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/DoyleJ11/draftroom/internal/engine"
	"github.com/DoyleJ11/draftroom/internal/realtime"
	"github.com/DoyleJ11/draftroom/internal/store"
)

var errUnchanged = errors.New("unchanged")

// errLostRace stops a transaction whose conditional write lost; the race error itself is
// reported outside it so it is not retried.
var errLostRace = errors.New("lost race")

// Submission is a ban or pick aimed at one turn. ActionIndex and Action name the turn the
// client saw; a submission for any other turn is stale.
type Submission struct {
	ActionIndex int           `json:"action_index"`
	Action      engine.Action `json:"action"`
	Side        engine.Side   `json:"side"`
	ChampionID  string        `json:"champion_id"`
	PerformedBy string        `json:"performed_by,omitempty"`
}

// StartGame opens the draft of the session's current pending game.
func (s *Service) StartGame(ctx context.Context, gameID, by string) (engine.Game, error) {
	sess, g, err := s.loadGame(ctx, gameID)
	if err != nil {
		return g, err
	}
	if err := s.authorizeCaptain(ctx, sess.ID, by, ""); err != nil {
		return g, err
	}
	if g.Number != sess.CurrentGame {
		return g, engine.ErrInvalidPhaseState
	}
	next, err := engine.StartGame(sess, g, s.now())
	if err != nil {
		return g, err
	}
	saved, err := s.updateGame(ctx, next)
	if err != nil {
		return saved, err
	}

	s.log.Info("game started", zap.String("game_id", saved.ID), zap.Int("game_number", saved.Number))
	s.pub.Publish(realtime.GameState(saved))
	s.pub.Publish(realtime.Timer(sess, saved, s.now()))
	return saved, nil
}

// SubmitAction applies a ban or pick for the side on turn. A lost race returns the
// authoritative game together with an error for which engine.IsRace is true.
func (s *Service) SubmitAction(ctx context.Context, gameID string, sub Submission) (engine.Game, error) {
	if sub.Action != engine.ActionBan && sub.Action != engine.ActionPick {
		return engine.Game{}, fmt.Errorf("action %q: %w", sub.Action, ErrInvalidInput)
	}
	sess, g, err := s.loadGame(ctx, gameID)
	if err != nil {
		return g, err
	}
	if g.ActionIndex != sub.ActionIndex {
		return g, engine.ErrStaleWrite
	}
	if sess.Status != engine.SessionInProgress {
		return g, engine.ErrInvalidSessionState
	}
	if !sub.Side.Valid() {
		return g, engine.ErrInvalidSide
	}
	if err := s.authorize(ctx, sess.ID, sub.PerformedBy, g.TeamOnSide(sub.Side)); err != nil {
		return g, err
	}
	if step, ok := g.CurrentStep(); ok && step.Action != sub.Action {
		return g, engine.ErrInvalidPhaseState
	}

	recs, err := s.store.ListUnavailable(ctx, sess.ID)
	if err != nil {
		return g, fmt.Errorf("load ledger: %w", err)
	}
	rules := engine.Rules{Mode: sess.Mode, Ledger: engine.NewLedger(recs)}
	proposal := engine.Proposal{Side: sub.Side, ChampionID: sub.ChampionID, PerformedBy: sub.PerformedBy}
	next, rec, err := engine.Apply(g, rules, proposal, s.now())
	if err != nil {
		s.log.Info("action rejected",
			zap.String("game_id", g.ID),
			zap.Int("action_index", g.ActionIndex),
			zap.String("side", string(sub.Side)),
			zap.String("champion_id", sub.ChampionID),
			zap.Error(err))
		return g, err
	}
	return s.commit(ctx, sess, next, rec)
}

// ApplyTimeout resolves the turn at actionIndex with the no-pick action once its budget has
// run out. Any participant of the session may submit it.
func (s *Service) ApplyTimeout(ctx context.Context, gameID string, actionIndex int, by string) (engine.Game, error) {
	sess, g, err := s.loadGame(ctx, gameID)
	if err != nil {
		return g, err
	}
	if g.Status == engine.GameDrafting && g.ActionIndex != actionIndex {
		return g, engine.ErrStaleWrite
	}
	if sess.Status != engine.SessionInProgress {
		return g, engine.ErrInvalidSessionState
	}
	if by != "" {
		p, err := s.store.GetParticipant(ctx, by)
		if err != nil {
			return g, err
		}
		if p.SessionID != sess.ID {
			return g, ErrForbidden
		}
	}

	next, rec, err := engine.Timeout(g, sess.BudgetFor(g), by, s.now())
	if err != nil {
		return g, err
	}
	return s.commit(ctx, sess, next, rec)
}

func (s *Service) commit(ctx context.Context, sess engine.Session, next engine.Game, rec engine.ActionRecord) (engine.Game, error) {
	rec.ID = newID()
	if next.Status == engine.GameCompleted {
		return s.completeGame(ctx, next, rec)
	}
	saved, err := s.store.CommitAction(ctx, next, rec)
	if err != nil {
		if engine.IsRace(err) {
			s.log.Debug("action lost race",
				zap.String("game_id", next.ID), zap.Int("action_index", rec.Index), zap.Error(err))
			return s.resync(ctx, next, err)
		}
		return next, fmt.Errorf("commit action %d of game %s: %w", rec.Index, next.ID, err)
	}

	s.pub.Publish(realtime.ActionApplied(saved, rec))
	s.pub.Publish(realtime.GameState(saved))
	s.pub.Publish(realtime.Timer(sess, saved, s.now()))
	return saved, nil
}

// completeGame commits the final action of g together with the game's ledger contribution and
// the next game or the session's completion. Either all of it is stored or none of it is, in
// which case the draft stays on its last turn and the action can be submitted again.
func (s *Service) completeGame(ctx context.Context, g engine.Game, rec engine.ActionRecord) (engine.Game, error) {
	// A client hanging up must not abort the transaction halfway.
	ctx = context.WithoutCancel(ctx)

	var saved engine.Game
	var next *engine.Game
	var raceErr error
	sess, err := s.mutateSession(ctx, g.SessionID, func(tx store.Store, cur engine.Session) (engine.Session, error) {
		next, raceErr = nil, nil
		var err error
		saved, err = tx.CommitAction(ctx, g, rec)
		if err != nil {
			if engine.IsRace(err) {
				raceErr = err
				return cur, errLostRace
			}
			return cur, err
		}

		recs := engine.LedgerFromGame(cur.Mode, saved)
		for i := range recs {
			recs[i].ID = newID()
		}
		if len(recs) > 0 {
			if err := tx.AppendUnavailable(ctx, recs); err != nil {
				return cur, err
			}
		}

		games, err := tx.ListGames(ctx, cur.ID)
		if err != nil {
			return cur, err
		}
		updated, ng, err := engine.AfterGameCompleted(cur, games, saved, s.policy, s.now())
		if errors.Is(err, engine.ErrInvalidSessionState) {
			// Cancelled mid-draft: the ledger still counts.
			return cur, nil
		}
		if err != nil {
			return cur, err
		}
		if ng != nil {
			ng.ID = newID()
			if err := tx.CreateGame(ctx, *ng); err != nil {
				return cur, err
			}
			next = ng
		}
		return updated, nil
	})
	if raceErr != nil {
		s.log.Debug("final action lost race",
			zap.String("game_id", g.ID), zap.Int("action_index", rec.Index), zap.Error(raceErr))
		return s.resync(ctx, g, raceErr)
	}
	if err != nil {
		s.log.Error("complete game", zap.String("game_id", g.ID), zap.Error(err))
		return g, fmt.Errorf("complete game %s: %w", g.ID, err)
	}

	s.log.Info("game completed",
		zap.String("session_id", sess.ID),
		zap.Int("game_number", g.Number),
		zap.String("session_status", string(sess.Status)))
	s.pub.Publish(realtime.ActionApplied(saved, rec))
	s.pub.Publish(realtime.GameState(saved))
	s.publishSession(ctx, sess)
	if next != nil {
		s.pub.Publish(realtime.GameState(*next))
	}
	return saved, nil
}

// Hover broadcasts the champion the side on turn is considering. Nothing is stored.
func (s *Service) Hover(ctx context.Context, gameID string, side engine.Side, championID, by string) error {
	sess, g, err := s.loadGame(ctx, gameID)
	if err != nil {
		return err
	}
	if g.Status != engine.GameDrafting {
		return engine.ErrInvalidPhaseState
	}
	if side != g.Turn {
		return engine.ErrOutOfTurn
	}
	if err := s.authorize(ctx, sess.ID, by, g.TeamOnSide(side)); err != nil {
		return err
	}
	s.pub.Publish(realtime.Hover(g, side, championID, by))
	return nil
}

// editGame applies fn to the stored game and writes the result. A write that loses to a
// concurrent one is reapplied to the fresh game; after maxWriteAttempts the change is
// reported as a conflict rather than dropped.
func (s *Service) editGame(ctx context.Context, gameID, by, op string, fn func(engine.Game) (engine.Game, error)) (engine.Game, error) {
	sess, g, err := s.loadGame(ctx, gameID)
	if err != nil {
		return g, err
	}
	if err := s.authorizeCaptain(ctx, sess.ID, by, ""); err != nil {
		return g, err
	}
	for attempt := 1; ; attempt++ {
		next, err := fn(g)
		if err != nil {
			s.log.Info("game change rejected", zap.String("game_id", g.ID), zap.String("op", op), zap.Error(err))
			return g, err
		}
		saved, err := s.store.UpdateGame(ctx, next)
		switch {
		case err == nil:
			s.pub.Publish(realtime.GameState(saved))
			return saved, nil
		case !errors.Is(err, engine.ErrStaleWrite):
			return g, fmt.Errorf("update game %s: %w", g.ID, err)
		case attempt >= maxWriteAttempts:
			s.log.Warn("game change kept losing races",
				zap.String("game_id", g.ID), zap.String("op", op), zap.Int("attempts", attempt))
			return saved, fmt.Errorf("%s on game %s: %w", op, g.ID, store.ErrConflict)
		}
		s.log.Debug("game write lost race, retrying",
			zap.String("game_id", g.ID), zap.String("op", op), zap.Int("attempt", attempt))
		g = saved
	}
}

func (s *Service) BeginEdit(ctx context.Context, gameID, by string) (engine.Game, error) {
	return s.editGame(ctx, gameID, by, "begin_edit", engine.BeginEdit)
}

// EditSlot corrects one slot of a game under edit. The action log and the series ledger are
// left as they were.
func (s *Service) EditSlot(ctx context.Context, gameID string, ref engine.SlotRef, championID, by string) (engine.Game, error) {
	return s.editGame(ctx, gameID, by, "edit_slot", func(g engine.Game) (engine.Game, error) {
		return engine.EditSlot(g, ref, championID, s.now())
	})
}

func (s *Service) FinishEdit(ctx context.Context, gameID, by string) (engine.Game, error) {
	return s.editGame(ctx, gameID, by, "finish_edit", engine.FinishEdit)
}

// RecordWinner sets or corrects a finished game's winner. Under the majority policy a
// scoreline that decides the series completes the session.
func (s *Service) RecordWinner(ctx context.Context, gameID string, winner engine.Side, by string) (engine.Game, error) {
	saved, err := s.editGame(ctx, gameID, by, "record_winner", func(g engine.Game) (engine.Game, error) {
		return engine.RecordWinner(g, winner)
	})
	if err != nil {
		return saved, err
	}

	sess, err := s.mutateSession(ctx, saved.SessionID, func(tx store.Store, cur engine.Session) (engine.Session, error) {
		games, err := tx.ListGames(ctx, cur.ID)
		if err != nil {
			return cur, err
		}
		settled, ok := engine.SettleSeries(cur, games, s.policy, s.now())
		if !ok {
			return cur, errUnchanged
		}
		return settled, nil
	})
	switch {
	case errors.Is(err, errUnchanged):
		sess, err = s.store.GetSession(ctx, saved.SessionID)
		if err != nil {
			return saved, err
		}
	case err != nil:
		return saved, fmt.Errorf("settle series: %w", err)
	default:
		s.log.Info("series decided", zap.String("session_id", sess.ID))
	}
	s.publishSession(ctx, sess)
	return saved, nil
}

func (s *Service) Score(ctx context.Context, sessionID string) (engine.SeriesScore, error) {
	games, err := s.ListGames(ctx, sessionID)
	if err != nil {
		return engine.SeriesScore{}, err
	}
	return engine.Score(games), nil
}

func (s *Service) ListGames(ctx context.Context, sessionID string) ([]engine.Game, error) {
	if _, err := s.store.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	return s.store.ListGames(ctx, sessionID)
}

func (s *Service) GetGame(ctx context.Context, gameID string) (engine.Game, error) {
	return s.store.GetGame(ctx, gameID)
}

func (s *Service) ListActions(ctx context.Context, gameID string) ([]engine.ActionRecord, error) {
	if _, err := s.store.GetGame(ctx, gameID); err != nil {
		return nil, err
	}
	return s.store.ListActions(ctx, gameID)
}

// ListDrafting returns every drafting game paired with its session.
func (s *Service) ListDrafting(ctx context.Context) ([]Live, error) {
	games, err := s.store.ListDraftingGames(ctx)
	if err != nil {
		return nil, err
	}
	sessions := map[string]engine.Session{}
	var out []Live
	for _, g := range games {
		sess, ok := sessions[g.SessionID]
		if !ok {
			sess, err = s.store.GetSession(ctx, g.SessionID)
			if err != nil {
				return nil, err
			}
			sessions[g.SessionID] = sess
		}
		out = append(out, Live{Session: sess, Game: g})
	}
	return out, nil
}

type Live struct {
	Session engine.Session
	Game    engine.Game
}
