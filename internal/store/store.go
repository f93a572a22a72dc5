// Package store defines the persistence contract of the draft service.
//
// Game and session writes are compare-and-swap operations: a Game or Session carries the
// Version it was read at, the write succeeds only if the stored row still has that version,
// and the stored version is incremented. A lost race returns engine.ErrStaleWrite; callers
// re-read and decide whether their change still applies.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/DoyleJ11/draftroom/internal/engine"
)

var ErrNotFound = errors.New("not found")
var ErrConflict = errors.New("already exists")

type Role string

const (
	RoleCaptain   Role = "captain"
	RoleMember    Role = "member"
	RoleSpectator Role = "spectator"
)

// Participant is a connected actor. Rows are never deleted.
type Participant struct {
	ID          string
	SessionID   string
	UserID      string
	DisplayName string
	Role        Role
	Team        engine.Team
	IsConnected bool
	JoinedAt    time.Time
	LastSeenAt  time.Time
}

func (p Participant) IsCaptain() bool { return p.Role == RoleCaptain }

// CanAct reports whether the participant may submit draft actions for team.
func (p Participant) CanAct(team engine.Team) bool {
	return p.Role != RoleSpectator && p.Team == team
}

type Message struct {
	ID            string
	SessionID     string
	ParticipantID string
	DisplayName   string
	Body          string
	CreatedAt     time.Time
}

type Store interface {
	CreateSession(ctx context.Context, s engine.Session) error
	GetSession(ctx context.Context, id string) (engine.Session, error)
	GetSessionByInvite(ctx context.Context, token string) (engine.Session, error)
	// UpdateSession writes s if the stored version equals s.Version.
	UpdateSession(ctx context.Context, s engine.Session) (engine.Session, error)

	CreateGame(ctx context.Context, g engine.Game) error
	GetGame(ctx context.Context, id string) (engine.Game, error)
	GetGameByNumber(ctx context.Context, sessionID string, number int) (engine.Game, error)
	ListGames(ctx context.Context, sessionID string) ([]engine.Game, error)
	// ListDraftingGames returns drafting games whose session is in progress or paused.
	ListDraftingGames(ctx context.Context) ([]engine.Game, error)
	// UpdateGame writes g if the stored version equals g.Version.
	UpdateGame(ctx context.Context, g engine.Game) (engine.Game, error)
	// CommitAction writes the advanced game and appends a, conditioned on the stored game still
	// being in drafting status with current_action_index == a.Index.
	CommitAction(ctx context.Context, g engine.Game, a engine.ActionRecord) (engine.Game, error)
	ListActions(ctx context.Context, gameID string) ([]engine.ActionRecord, error)

	AppendUnavailable(ctx context.Context, recs []engine.UnavailableChampion) error
	ListUnavailable(ctx context.Context, sessionID string) ([]engine.UnavailableChampion, error)

	UpsertParticipant(ctx context.Context, p Participant) error
	GetParticipant(ctx context.Context, id string) (Participant, error)
	ListParticipants(ctx context.Context, sessionID string) ([]Participant, error)

	AppendMessage(ctx context.Context, m Message) error
	ListMessages(ctx context.Context, sessionID string, limit int) ([]Message, error)

	// InTx runs fn against a Store bound to a single transaction.
	InTx(ctx context.Context, fn func(tx Store) error) error
}
