// Package draft runs every session and game operation as read, pure engine transition,
// conditional write, publish.
package draft

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/draftroom/internal/engine"
	"github.com/DoyleJ11/draftroom/internal/realtime"
	"github.com/DoyleJ11/draftroom/internal/store"
)

var ErrInvalidInput = errors.New("invalid input")
var ErrForbidden = errors.New("participant may not perform this action")

// Session and edit writes that lose a version race are tried this many times in total.
const maxWriteAttempts = 5

type Options struct {
	Policy             engine.SeriesPolicy
	DefaultBanSeconds  int
	DefaultPickSeconds int
	Now                func() time.Time
}

type Service struct {
	store       store.Store
	pub         realtime.Publisher
	log         *zap.Logger
	now         func() time.Time
	policy      engine.SeriesPolicy
	banSeconds  int
	pickSeconds int
}

func New(st store.Store, pub realtime.Publisher, log *zap.Logger, opts Options) *Service {
	if pub == nil {
		pub = realtime.Discard
	}
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Policy == "" {
		opts.Policy = engine.PolicyPlayAll
	}
	if opts.DefaultBanSeconds <= 0 {
		opts.DefaultBanSeconds = 30
	}
	if opts.DefaultPickSeconds <= 0 {
		opts.DefaultPickSeconds = 30
	}
	return &Service{
		store:       st,
		pub:         pub,
		log:         log,
		now:         opts.Now,
		policy:      opts.Policy,
		banSeconds:  opts.DefaultBanSeconds,
		pickSeconds: opts.DefaultPickSeconds,
	}
}

func (s *Service) Policy() engine.SeriesPolicy { return s.policy }

func newID() string { return uuid.NewString() }

// mutateSession re-reads the session inside a transaction, applies fn and writes the result
// conditioned on the version it read. fn may issue further writes through tx.
func (s *Service) mutateSession(ctx context.Context, id string, fn func(tx store.Store, cur engine.Session) (engine.Session, error)) (engine.Session, error) {
	var saved engine.Session
	for attempt := 1; ; attempt++ {
		err := s.store.InTx(ctx, func(tx store.Store) error {
			cur, err := tx.GetSession(ctx, id)
			if err != nil {
				return err
			}
			next, err := fn(tx, cur)
			if err != nil {
				return err
			}
			saved, err = tx.UpdateSession(ctx, next)
			return err
		})
		if err == nil {
			return saved, nil
		}
		if !errors.Is(err, engine.ErrStaleWrite) {
			return saved, err
		}
		if attempt >= maxWriteAttempts {
			return saved, fmt.Errorf("session %s: %w", id, store.ErrConflict)
		}
		s.log.Debug("session write lost race, retrying",
			zap.String("session_id", id), zap.Int("attempt", attempt))
	}
}

// updateGame writes g conditioned on its version. On a lost race it returns the stored game
// alongside the error.
func (s *Service) updateGame(ctx context.Context, g engine.Game) (engine.Game, error) {
	saved, err := s.store.UpdateGame(ctx, g)
	if err != nil {
		if engine.IsRace(err) {
			s.log.Debug("game write lost race", zap.String("game_id", g.ID), zap.Int("version", g.Version))
			return s.resync(ctx, g, err)
		}
		return g, fmt.Errorf("update game %s: %w", g.ID, err)
	}
	return saved, nil
}

// resync re-reads the authoritative game after a lost race and returns it with the race error.
func (s *Service) resync(ctx context.Context, g engine.Game, raceErr error) (engine.Game, error) {
	fresh, err := s.store.GetGame(ctx, g.ID)
	if err != nil {
		return g, fmt.Errorf("reload game %s: %w", g.ID, err)
	}
	return fresh, raceErr
}

func (s *Service) loadGame(ctx context.Context, gameID string) (engine.Session, engine.Game, error) {
	g, err := s.store.GetGame(ctx, gameID)
	if err != nil {
		return engine.Session{}, g, err
	}
	sess, err := s.store.GetSession(ctx, g.SessionID)
	if err != nil {
		return sess, g, err
	}
	return sess, g, nil
}

// authorize checks that participantID may act for team. An empty id is a trusted server caller.
func (s *Service) authorize(ctx context.Context, sessionID, participantID string, team engine.Team) error {
	if participantID == "" {
		return nil
	}
	p, err := s.store.GetParticipant(ctx, participantID)
	if err != nil {
		return err
	}
	if p.SessionID != sessionID || !p.CanAct(team) {
		return ErrForbidden
	}
	return nil
}

func (s *Service) publishSession(ctx context.Context, sess engine.Session) {
	games, err := s.store.ListGames(ctx, sess.ID)
	if err != nil {
		s.log.Error("list games for session state", zap.String("session_id", sess.ID), zap.Error(err))
		return
	}
	s.pub.Publish(realtime.SessionState(sess, engine.Score(games)))
}
