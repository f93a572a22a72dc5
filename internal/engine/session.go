package engine

import (
	"errors"
	"time"
)

var ErrInvalidSessionState = errors.New("session is not in a state that allows this action")
var ErrInvalidSide = errors.New("invalid side")
var ErrInvalidTeam = errors.New("invalid team")
var ErrSideTaken = errors.New("side already taken by the other team")

type SessionStatus string

const (
	SessionLobby      SessionStatus = "lobby"
	SessionInProgress SessionStatus = "in_progress"
	SessionPaused     SessionStatus = "paused"
	SessionCompleted  SessionStatus = "completed"
	SessionCancelled  SessionStatus = "cancelled"
)

func (s SessionStatus) Terminal() bool {
	return s == SessionCompleted || s == SessionCancelled
}

// SeriesPolicy decides whether a series may end before all planned games are drafted.
type SeriesPolicy string

const (
	PolicyPlayAll  SeriesPolicy = "play_all"
	PolicyMajority SeriesPolicy = "majority"
)

// TeamSeat is one team's identity within a session, independent of the side it plays.
type TeamSeat struct {
	Name          string
	CaptainID     string
	CaptainName   string
	CaptainAvatar string
	CaptainRole   string
	RosterID      string
	Side          Side
	Ready         bool
}

type Session struct {
	ID           string
	Team1        TeamSeat
	Team2        TeamSeat
	Mode         Mode
	PlannedGames int
	BanSeconds   int
	PickSeconds  int
	Status       SessionStatus
	CurrentGame  int
	InviteToken  string
	Version      int
	CreatedAt    time.Time
	StartedAt    *time.Time
	PausedAt     *time.Time
	CompletedAt  *time.Time
}

func (s *Session) Seat(team Team) *TeamSeat {
	if team == Team2 {
		return &s.Team2
	}
	return &s.Team1
}

// TurnBudget is the time allowed for a ban or pick step.
func (s Session) TurnBudget(kind Action) time.Duration {
	if kind == ActionBan {
		return time.Duration(s.BanSeconds) * time.Second
	}
	return time.Duration(s.PickSeconds) * time.Second
}

// BudgetFor is the budget of the step a drafting game is waiting on.
func (s Session) BudgetFor(g Game) time.Duration {
	step, ok := g.CurrentStep()
	if !ok {
		return 0
	}
	return s.TurnBudget(step.Action)
}

func ChooseSide(s Session, team Team, side Side) (Session, error) {
	if s.Status != SessionLobby {
		return s, ErrInvalidSessionState
	}
	if !team.Valid() {
		return s, ErrInvalidTeam
	}
	if !side.Valid() {
		return s, ErrInvalidSide
	}
	if s.Seat(team.Other()).Side == side {
		return s, ErrSideTaken
	}
	seat := s.Seat(team)
	if seat.Side != side {
		seat.Side = side
		seat.Ready = false
	}
	return s, nil
}

func ReleaseSide(s Session, team Team) (Session, error) {
	if s.Status != SessionLobby {
		return s, ErrInvalidSessionState
	}
	if !team.Valid() {
		return s, ErrInvalidTeam
	}
	seat := s.Seat(team)
	seat.Side = SideNone
	seat.Ready = false
	return s, nil
}

func SetReady(s Session, team Team, ready bool) (Session, error) {
	if s.Status != SessionLobby {
		return s, ErrInvalidSessionState
	}
	if !team.Valid() {
		return s, ErrInvalidTeam
	}
	seat := s.Seat(team)
	if ready && !seat.Side.Valid() {
		return s, ErrSessionNotReady
	}
	seat.Ready = ready
	return s, nil
}

// Ready reports whether both teams hold complementary sides and are ready.
func (s Session) Ready() bool {
	return s.Team1.Side.Valid() && s.Team2.Side == s.Team1.Side.Opposite() &&
		s.Team1.Ready && s.Team2.Ready
}

// StartSession moves a ready lobby to in_progress and returns game 1 in pending status.
func StartSession(s Session, now time.Time) (Session, Game, error) {
	if s.Status != SessionLobby {
		return s, Game{}, ErrInvalidSessionState
	}
	if !s.Ready() {
		return s, Game{}, ErrSessionNotReady
	}

	blue := Team1
	if s.Team2.Side == SideBlue {
		blue = Team2
	}
	started := now
	s.Status = SessionInProgress
	s.CurrentGame = 1
	s.StartedAt = &started
	return s, NewGame(s.ID, 1, blue, now), nil
}

func NewGame(sessionID string, number int, blueSideTeam Team, now time.Time) Game {
	return Game{
		SessionID:    sessionID,
		Number:       number,
		BlueSideTeam: blueSideTeam,
		Status:       GamePending,
		CreatedAt:    now,
	}
}

// NextGame follows prev in the series with sides swapped.
func NextGame(prev Game, now time.Time) Game {
	return NewGame(prev.SessionID, prev.Number+1, prev.BlueSideTeam.Other(), now)
}

// StartGame opens the draft of a pending game and starts the clock on action 0.
func StartGame(s Session, g Game, now time.Time) (Game, error) {
	if s.Status != SessionInProgress {
		return g, ErrInvalidSessionState
	}
	if g.Status != GamePending {
		return g, ErrInvalidPhaseState
	}
	first, _ := StepAt(0)
	started := now
	g.Status = GameDrafting
	g.ActionIndex = 0
	g.Phase = first.Phase
	g.Turn = first.Side
	g.TurnStartedAt = &started
	g.StartedAt = &started
	return g, nil
}

func Pause(s Session, now time.Time) (Session, error) {
	if s.Status != SessionInProgress {
		return s, ErrInvalidSessionState
	}
	paused := now
	s.Status = SessionPaused
	s.PausedAt = &paused
	return s, nil
}

// Resume returns to in_progress along with how long the session was paused.
func Resume(s Session, now time.Time) (Session, time.Duration, error) {
	if s.Status != SessionPaused {
		return s, 0, ErrInvalidSessionState
	}
	var paused time.Duration
	if s.PausedAt != nil {
		paused = now.Sub(*s.PausedAt)
	}
	s.Status = SessionInProgress
	s.PausedAt = nil
	return s, paused, nil
}

// ShiftTurnClock moves a drafting game's turn start forward so a pause does not consume its budget.
func ShiftTurnClock(g Game, d time.Duration) Game {
	if g.Status != GameDrafting || g.TurnStartedAt == nil || d <= 0 {
		return g
	}
	shifted := g.TurnStartedAt.Add(d)
	g.TurnStartedAt = &shifted
	return g
}

func Cancel(s Session, now time.Time) (Session, error) {
	if s.Status.Terminal() {
		return s, ErrInvalidSessionState
	}
	done := now
	s.Status = SessionCancelled
	s.CompletedAt = &done
	s.PausedAt = nil
	return s, nil
}

// AfterGameCompleted advances the series once game finished its draft: either the next game is
// returned (with the session's counter moved to it) or the session is completed.
func AfterGameCompleted(s Session, games []Game, finished Game, policy SeriesPolicy, now time.Time) (Session, *Game, error) {
	if s.Status.Terminal() {
		return s, nil, ErrInvalidSessionState
	}
	if !finished.IsFinished() || finished.Number != s.CurrentGame {
		return s, nil, ErrInvalidPhaseState
	}

	if s.CurrentGame < s.PlannedGames && !seriesDecided(s, games, policy) {
		next := NextGame(finished, now)
		s.CurrentGame = next.Number
		return s, &next, nil
	}
	done := now
	s.Status = SessionCompleted
	s.CompletedAt = &done
	s.PausedAt = nil
	return s, nil, nil
}

func RecordWinner(g Game, winner Side) (Game, error) {
	if !g.IsFinished() {
		return g, ErrInvalidPhaseState
	}
	if !winner.Valid() {
		return g, ErrInvalidSide
	}
	g.Winner = winner
	return g, nil
}

// SettleSeries completes an unfinished session whose scoreline already decides the series.
func SettleSeries(s Session, games []Game, policy SeriesPolicy, now time.Time) (Session, bool) {
	if s.Status.Terminal() || !seriesDecided(s, games, policy) {
		return s, false
	}
	done := now
	s.Status = SessionCompleted
	s.CompletedAt = &done
	s.PausedAt = nil
	return s, true
}

func seriesDecided(s Session, games []Game, policy SeriesPolicy) bool {
	if policy != PolicyMajority {
		return false
	}
	return Clinched(Score(games), s.PlannedGames)
}
