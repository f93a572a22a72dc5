package realtime

import (
	"time"

	"github.com/DoyleJ11/draftroom/internal/engine"
	"github.com/DoyleJ11/draftroom/internal/store"
	"github.com/DoyleJ11/draftroom/pkg/types"
)

func ActionApplied(g engine.Game, a engine.ActionRecord) Envelope {
	return Envelope{
		Type:      types.EventDraftAction,
		SessionID: g.SessionID,
		Payload: types.DraftActionEvent{
			GameID:      g.ID,
			ActionIndex: a.Index,
			ActionType:  string(a.Type),
			Side:        string(a.Side),
			Team:        string(g.TeamOnSide(a.Side)),
			ChampionID:  a.ChampionID,
			PerformedBy: a.PerformedBy,
			Version:     g.Version,
		},
	}
}

func GameState(g engine.Game) Envelope {
	return Envelope{Type: types.EventGameState, SessionID: g.SessionID, Payload: GameSnapshot(g)}
}

func GameSnapshot(g engine.Game) types.GameStateEvent {
	ev := types.GameStateEvent{
		GameID:        g.ID,
		GameNumber:    g.Number,
		Status:        string(g.Status),
		Phase:         string(g.Phase),
		Turn:          string(g.Turn),
		ActionIndex:   g.ActionIndex,
		BlueSideTeam:  string(g.BlueSideTeam),
		BlueBans:      g.BlueBans[:],
		RedBans:       g.RedBans[:],
		BluePicks:     g.BluePicks[:],
		RedPicks:      g.RedPicks[:],
		Winner:        string(g.Winner),
		TurnStartedAt: g.TurnStartedAt,
		Version:       g.Version,
	}
	for _, e := range g.Edits {
		ev.Edits = append(ev.Edits, types.SlotEdit{
			Side:     string(e.Slot.Side),
			Kind:     string(e.Slot.Kind),
			Index:    e.Slot.Index,
			Original: e.Original,
			Edited:   e.Edited,
			EditedAt: e.EditedAt,
		})
	}
	return ev
}

func SessionState(s engine.Session, score engine.SeriesScore) Envelope {
	return Envelope{Type: types.EventSessionState, SessionID: s.ID, Payload: SessionSnapshot(s, score)}
}

func SessionSnapshot(s engine.Session, score engine.SeriesScore) types.SessionStateEvent {
	team := func(seat engine.TeamSeat, wins int) types.TeamState {
		return types.TeamState{
			Name:        seat.Name,
			CaptainID:   seat.CaptainID,
			CaptainName: seat.CaptainName,
			Side:        string(seat.Side),
			Ready:       seat.Ready,
			Wins:        wins,
		}
	}
	return types.SessionStateEvent{
		SessionID:    s.ID,
		Status:       string(s.Status),
		Mode:         string(s.Mode),
		PlannedGames: s.PlannedGames,
		CurrentGame:  s.CurrentGame,
		BanSeconds:   s.BanSeconds,
		PickSeconds:  s.PickSeconds,
		Team1:        team(s.Team1, score.Team1),
		Team2:        team(s.Team2, score.Team2),
		Version:      s.Version,
	}
}

func Timer(s engine.Session, g engine.Game, now time.Time) Envelope {
	return Envelope{
		Type:      types.EventTimer,
		SessionID: g.SessionID,
		Payload: types.TimerEvent{
			GameID:      g.ID,
			ActionIndex: g.ActionIndex,
			Phase:       string(g.Phase),
			Turn:        string(g.Turn),
			RemainingMS: Remaining(s, g, now).Milliseconds(),
			Paused:      s.Status == engine.SessionPaused,
		},
	}
}

func Hover(g engine.Game, side engine.Side, championID, participantID string) Envelope {
	return Envelope{
		Type:      types.EventHover,
		SessionID: g.SessionID,
		Payload: types.HoverEvent{
			GameID:        g.ID,
			Side:          string(side),
			Team:          string(g.TeamOnSide(side)),
			ChampionID:    championID,
			ParticipantID: participantID,
		},
	}
}

func Chat(m store.Message) Envelope {
	return Envelope{
		Type:      types.EventChat,
		SessionID: m.SessionID,
		Payload: types.ChatMessageEvent{
			ID:            m.ID,
			ParticipantID: m.ParticipantID,
			DisplayName:   m.DisplayName,
			Body:          m.Body,
			CreatedAt:     m.CreatedAt,
		},
	}
}

func Presence(p store.Participant) Envelope {
	return Envelope{Type: types.EventPresence, SessionID: p.SessionID, Payload: PresenceOf(p)}
}

func PresenceOf(p store.Participant) types.PresenceState {
	return types.PresenceState{
		ParticipantID: p.ID,
		UserID:        p.UserID,
		DisplayName:   p.DisplayName,
		Team:          string(p.Team),
		IsCaptain:     p.IsCaptain(),
		IsConnected:   p.IsConnected,
	}
}

// Remaining is the time left on the current turn. The clock stands still while the session is paused.
func Remaining(s engine.Session, g engine.Game, now time.Time) time.Duration {
	if g.Status != engine.GameDrafting || g.TurnStartedAt == nil {
		return 0
	}
	at := now
	if s.Status == engine.SessionPaused && s.PausedAt != nil {
		at = *s.PausedAt
	}
	left := g.TurnStartedAt.Add(s.BudgetFor(g)).Sub(at)
	if left < 0 {
		return 0
	}
	return left
}
