// Package timer runs the server side of the turn clock: it broadcasts the remaining time of
// every live draft and resolves turns whose budget ran out.
package timer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"

	"github.com/DoyleJ11/draftroom/internal/draft"
	"github.com/DoyleJ11/draftroom/internal/engine"
	"github.com/DoyleJ11/draftroom/internal/realtime"
)

type Sweeper struct {
	svc      *draft.Service
	pub      realtime.Publisher
	log      *zap.Logger
	interval time.Duration
	now      func() time.Time
}

func NewSweeper(svc *draft.Service, pub realtime.Publisher, interval time.Duration, log *zap.Logger) *Sweeper {
	if log == nil {
		log = zap.NewNop()
	}
	return &Sweeper{svc: svc, pub: pub, log: log.Named("timer"), interval: interval, now: time.Now}
}

// Run sweeps every interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context) error {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}
	_, err = sched.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(func() { s.Sweep(ctx) }),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("schedule sweep: %w", err)
	}
	sched.Start()
	s.log.Info("turn timer started", zap.Duration("interval", s.interval))

	<-ctx.Done()
	if err := sched.Shutdown(); err != nil {
		return fmt.Errorf("stop scheduler: %w", err)
	}
	return nil
}

// Sweep publishes a timer event for every drafting game and times out expired turns. It
// returns the number of turns it resolved.
func (s *Sweeper) Sweep(ctx context.Context) int {
	live, err := s.svc.ListDrafting(ctx)
	if err != nil {
		s.log.Error("list drafting games", zap.Error(err))
		return 0
	}

	now := s.now()
	resolved := 0
	for _, l := range live {
		if l.Session.Status == engine.SessionPaused || realtime.Remaining(l.Session, l.Game, now) > 0 {
			s.pub.Publish(realtime.Timer(l.Session, l.Game, now))
			continue
		}

		_, err := s.svc.ApplyTimeout(ctx, l.Game.ID, l.Game.ActionIndex, "")
		switch {
		case err == nil:
			resolved++
		case engine.IsRace(err), errors.Is(err, engine.ErrTurnNotExpired):
			// a client or another instance got there first
		default:
			s.log.Error("apply timeout",
				zap.String("game_id", l.Game.ID), zap.Int("action_index", l.Game.ActionIndex), zap.Error(err))
		}
	}
	return resolved
}
