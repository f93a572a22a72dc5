package realtime

import (
	"fmt"
	"time"

	"github.com/DoyleJ11/draftroom/internal/engine"
	"github.com/DoyleJ11/draftroom/pkg/types"
)

type GameView struct {
	ID           string
	Number       int
	Status       engine.GameStatus
	Phase        engine.Phase
	Turn         engine.Side
	ActionIndex  int
	BlueSideTeam engine.Team
	BlueBans     engine.Slots
	RedBans      engine.Slots
	BluePicks    engine.Slots
	RedPicks     engine.Slots
	Winner       engine.Side
	Remaining    time.Duration
	Version      int
}

func (v *GameView) slots(side engine.Side, kind engine.Action) *engine.Slots {
	switch {
	case side == engine.SideBlue && kind == engine.ActionBan:
		return &v.BlueBans
	case side == engine.SideRed && kind == engine.ActionBan:
		return &v.RedBans
	case side == engine.SideBlue && kind == engine.ActionPick:
		return &v.BluePicks
	default:
		return &v.RedPicks
	}
}

// Projection is a client-side view of one session rebuilt from channel events.
// It is not safe for concurrent use.
type Projection struct {
	SessionID string
	Session   *types.SessionStateEvent
	Games     map[string]*GameView
	Hovers    map[string]types.HoverEvent
	Presence  map[string]types.PresenceState
	Chat      []types.ChatMessageEvent
}

func NewProjection(sessionID string) *Projection {
	return &Projection{
		SessionID: sessionID,
		Games:     map[string]*GameView{},
		Hovers:    map[string]types.HoverEvent{},
		Presence:  map[string]types.PresenceState{},
	}
}

func (p *Projection) game(id string) *GameView {
	v, ok := p.Games[id]
	if !ok {
		v = &GameView{ID: id, Status: engine.GamePending}
		p.Games[id] = v
	}
	return v
}

func hoverKey(gameID, side string) string { return gameID + "/" + side }

// Apply folds env into the view. Events older than the view are ignored; a gap in the
// action sequence returns ErrOutOfSync and leaves the view untouched.
func (p *Projection) Apply(env Envelope) error {
	if env.SessionID != "" && env.SessionID != p.SessionID {
		return nil
	}
	switch ev := env.Payload.(type) {
	case types.DraftActionEvent:
		return p.applyAction(ev)
	case types.GameStateEvent:
		p.applyGameState(ev)
	case types.TimerEvent:
		v := p.game(ev.GameID)
		if v.Status == engine.GameDrafting && ev.ActionIndex == v.ActionIndex {
			v.Remaining = time.Duration(ev.RemainingMS) * time.Millisecond
		}
	case types.SessionStateEvent:
		if p.Session == nil || ev.Version >= p.Session.Version {
			p.Session = &ev
		}
	case types.HoverEvent:
		p.Hovers[hoverKey(ev.GameID, ev.Side)] = ev
	case types.PresenceState:
		p.Presence[ev.ParticipantID] = ev
	case types.ChatMessageEvent:
		p.Chat = append(p.Chat, ev)
	default:
		return fmt.Errorf("%s: %w", env.Type, ErrUnknownEvent)
	}
	return nil
}

func (p *Projection) applyAction(ev types.DraftActionEvent) error {
	v := p.game(ev.GameID)
	switch {
	case ev.ActionIndex < v.ActionIndex:
		return nil
	case ev.ActionIndex > v.ActionIndex:
		return fmt.Errorf("game %s at %d, got action %d: %w", ev.GameID, v.ActionIndex, ev.ActionIndex, ErrOutOfSync)
	}
	step, ok := engine.StepAt(ev.ActionIndex)
	if !ok {
		return fmt.Errorf("game %s action %d: %w", ev.GameID, ev.ActionIndex, ErrOutOfSync)
	}

	champion := ev.ChampionID
	if engine.Action(ev.ActionType) == engine.ActionTimeout {
		champion = engine.NoChampion
	}
	v.slots(step.Side, step.Action)[step.Slot] = champion
	v.ActionIndex++
	v.Remaining = 0
	if next, ok := engine.StepAt(v.ActionIndex); ok {
		v.Status = engine.GameDrafting
		v.Phase = next.Phase
		v.Turn = next.Side
	} else {
		v.Status = engine.GameCompleted
		v.Phase = engine.PhaseNone
		v.Turn = engine.SideNone
	}
	if ev.Version > v.Version {
		v.Version = ev.Version
	}
	delete(p.Hovers, hoverKey(ev.GameID, ev.Side))
	return nil
}

func (p *Projection) applyGameState(ev types.GameStateEvent) {
	v := p.game(ev.GameID)
	if ev.Version < v.Version {
		return
	}
	v.Number = ev.GameNumber
	v.Status = engine.GameStatus(ev.Status)
	v.Phase = engine.Phase(ev.Phase)
	v.Turn = engine.Side(ev.Turn)
	v.ActionIndex = ev.ActionIndex
	v.BlueSideTeam = engine.Team(ev.BlueSideTeam)
	v.BlueBans = toSlots(ev.BlueBans)
	v.RedBans = toSlots(ev.RedBans)
	v.BluePicks = toSlots(ev.BluePicks)
	v.RedPicks = toSlots(ev.RedPicks)
	v.Winner = engine.Side(ev.Winner)
	v.Version = ev.Version
	if v.Status != engine.GameDrafting {
		v.Remaining = 0
	}
}

func toSlots(in []string) engine.Slots {
	var s engine.Slots
	copy(s[:], in)
	return s
}
