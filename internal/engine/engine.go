package engine

import (
	"errors"
	"time"
)

var ErrOutOfTurn = errors.New("out of turn")
var ErrInvalidPhaseState = errors.New("game is not in a state that allows this action")
var ErrSlotAlreadyFilled = errors.New("slot already filled")
var ErrChampionUnavailable = errors.New("champion unavailable")
var ErrStaleWrite = errors.New("stale write")
var ErrSessionNotReady = errors.New("session not ready")
var ErrTurnNotExpired = errors.New("turn timer has not expired")
var ErrInvalidChampion = errors.New("invalid champion")
var ErrInvalidSlot = errors.New("invalid slot")

// IsRace reports whether err is a lost multi-writer race. Callers re-read state and drop the action.
func IsRace(err error) bool {
	return errors.Is(err, ErrStaleWrite) || errors.Is(err, ErrSlotAlreadyFilled)
}

type Side string

const (
	SideNone Side = ""
	SideBlue Side = "blue"
	SideRed  Side = "red"
)

func (s Side) Valid() bool { return s == SideBlue || s == SideRed }

func (s Side) Opposite() Side {
	switch s {
	case SideBlue:
		return SideRed
	case SideRed:
		return SideBlue
	default:
		return SideNone
	}
}

type Team string

const (
	Team1 Team = "team1"
	Team2 Team = "team2"
)

func (t Team) Valid() bool { return t == Team1 || t == Team2 }

func (t Team) Other() Team {
	if t == Team1 {
		return Team2
	}
	return Team1
}

type Action string

const (
	ActionBan     Action = "ban"
	ActionPick    Action = "pick"
	ActionTimeout Action = "timeout"
)

type Phase string

const (
	PhaseNone  Phase = ""
	PhaseBan1  Phase = "ban1"
	PhasePick1 Phase = "pick1"
	PhaseBan2  Phase = "ban2"
	PhasePick2 Phase = "pick2"
)

type GameStatus string

const (
	GamePending   GameStatus = "pending"
	GameDrafting  GameStatus = "drafting"
	GameCompleted GameStatus = "completed"
	GameEditing   GameStatus = "editing"
)

const SlotsPerSide = 5

// NoChampion fills a slot whose turn timed out.
const NoChampion = "none"

type Slots [SlotsPerSide]string

func (s Slots) Filled() int {
	n := 0
	for _, c := range s {
		if c != "" {
			n++
		}
	}
	return n
}

type SlotRef struct {
	Side  Side   `json:"side"`
	Kind  Action `json:"kind"`
	Index int    `json:"index"`
}

func (r SlotRef) Valid() bool {
	return r.Side.Valid() && (r.Kind == ActionBan || r.Kind == ActionPick) &&
		r.Index >= 0 && r.Index < SlotsPerSide
}

type SlotEdit struct {
	Slot     SlotRef   `json:"slot"`
	Original string    `json:"original"`
	Edited   string    `json:"edited"`
	EditedAt time.Time `json:"edited_at"`
}

type Game struct {
	ID            string
	SessionID     string
	Number        int
	BlueSideTeam  Team
	Status        GameStatus
	Phase         Phase
	Turn          Side
	ActionIndex   int
	TurnStartedAt *time.Time
	BlueBans      Slots
	RedBans       Slots
	BluePicks     Slots
	RedPicks      Slots
	Edits         []SlotEdit
	Winner        Side
	Version       int
	CreatedAt     time.Time
	StartedAt     *time.Time
	CompletedAt   *time.Time
}

// ActionRecord is one resolved draft step. ChampionID is empty for a timeout.
type ActionRecord struct {
	ID          string
	GameID      string
	Index       int
	Type        Action
	Side        Side
	ChampionID  string
	PerformedBy string
	CreatedAt   time.Time
}

type Rules struct {
	Mode   Mode
	Ledger Ledger
}

type Proposal struct {
	Side        Side
	ChampionID  string
	PerformedBy string
}

// Apply validates a ban or pick against a drafting game and returns the advanced game
// together with the action record to append. The input game is never mutated.
func Apply(g Game, rules Rules, p Proposal, now time.Time) (Game, ActionRecord, error) {
	if g.Status != GameDrafting {
		return g, ActionRecord{}, ErrInvalidPhaseState
	}
	step, ok := StepAt(g.ActionIndex)
	if !ok {
		return g, ActionRecord{}, ErrInvalidPhaseState
	}
	if p.Side != g.Turn || p.Side != step.Side {
		return g, ActionRecord{}, ErrOutOfTurn
	}
	if p.ChampionID == "" || p.ChampionID == NoChampion {
		return g, ActionRecord{}, ErrInvalidChampion
	}
	if IsUnavailable(p.ChampionID, rules.Mode, g, rules.Ledger, g.TeamOnSide(p.Side)) {
		return g, ActionRecord{}, ErrChampionUnavailable
	}
	return advance(g, step, step.Action, p.ChampionID, p.PerformedBy, now)
}

// Timeout applies the no-pick action for the current turn once its budget has elapsed.
func Timeout(g Game, budget time.Duration, performedBy string, now time.Time) (Game, ActionRecord, error) {
	if g.Status != GameDrafting {
		return g, ActionRecord{}, ErrInvalidPhaseState
	}
	step, ok := StepAt(g.ActionIndex)
	if !ok {
		return g, ActionRecord{}, ErrInvalidPhaseState
	}
	if g.TurnStartedAt != nil && now.Before(g.TurnStartedAt.Add(budget)) {
		return g, ActionRecord{}, ErrTurnNotExpired
	}
	return advance(g, step, ActionTimeout, NoChampion, performedBy, now)
}

func advance(g Game, step Step, kind Action, champion, by string, now time.Time) (Game, ActionRecord, error) {
	slots := g.slots(step.Side, step.Action)
	if slots[step.Slot] != "" {
		return g, ActionRecord{}, ErrSlotAlreadyFilled
	}
	slots[step.Slot] = champion

	rec := ActionRecord{
		GameID:      g.ID,
		Index:       step.Index,
		Type:        kind,
		Side:        step.Side,
		PerformedBy: by,
		CreatedAt:   now,
	}
	if kind != ActionTimeout {
		rec.ChampionID = champion
	}

	g.ActionIndex++
	if next, ok := StepAt(g.ActionIndex); ok {
		g.Phase = next.Phase
		g.Turn = next.Side
		started := now
		g.TurnStartedAt = &started
	} else {
		g.Status = GameCompleted
		g.Phase = PhaseNone
		g.Turn = SideNone
		completed := now
		g.CompletedAt = &completed
	}
	return g, rec, nil
}

func BeginEdit(g Game) (Game, error) {
	if g.Status != GameCompleted {
		return g, ErrInvalidPhaseState
	}
	g.Status = GameEditing
	return g, nil
}

// EditSlot corrects one slot of an editing game and logs the change. The action history is untouched.
func EditSlot(g Game, ref SlotRef, champion string, now time.Time) (Game, error) {
	if g.Status != GameEditing {
		return g, ErrInvalidPhaseState
	}
	if !ref.Valid() {
		return g, ErrInvalidSlot
	}
	if champion == "" {
		return g, ErrInvalidChampion
	}

	original := g.Slot(ref)
	if original == champion {
		return g, nil
	}
	if champion != NoChampion {
		// Rule 1 of availability, ignoring the slot being replaced.
		probe := g
		probe.slots(ref.Side, ref.Kind)[ref.Index] = ""
		if probe.Contains(champion) {
			return g, ErrChampionUnavailable
		}
	}

	g.slots(ref.Side, ref.Kind)[ref.Index] = champion
	edits := make([]SlotEdit, len(g.Edits), len(g.Edits)+1)
	copy(edits, g.Edits)
	g.Edits = append(edits, SlotEdit{Slot: ref, Original: original, Edited: champion, EditedAt: now})
	return g, nil
}

func FinishEdit(g Game) (Game, error) {
	if g.Status != GameEditing {
		return g, ErrInvalidPhaseState
	}
	g.Status = GameCompleted
	return g, nil
}
