package pgstore

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"github.com/DoyleJ11/draftroom/internal/engine"
	"github.com/DoyleJ11/draftroom/internal/store"
)

type SessionRow struct {
	ID                 string `gorm:"primaryKey;type:varchar(64)"`
	Team1Name          string `gorm:"not null"`
	Team2Name          string `gorm:"not null"`
	Team1CaptainID     string
	Team2CaptainID     string
	Team1CaptainName   string
	Team2CaptainName   string
	Team1CaptainAvatar string
	Team2CaptainAvatar string
	Team1CaptainRole   string
	Team2CaptainRole   string
	Team1RosterID      string
	Team2RosterID      string
	Team1Side          string `gorm:"type:varchar(8)"`
	Team2Side          string `gorm:"type:varchar(8)"`
	Team1Ready         bool   `gorm:"not null;default:false"`
	Team2Ready         bool   `gorm:"not null;default:false"`
	DraftMode          string `gorm:"type:varchar(16);not null;default:'normal'"`
	PlannedGames       int    `gorm:"not null;default:1"`
	BanTimeSeconds     int    `gorm:"not null;default:30"`
	PickTimeSeconds    int    `gorm:"not null;default:30"`
	Status             string `gorm:"type:varchar(16);not null;index"`
	CurrentGameNumber  int    `gorm:"not null;default:0"`
	InviteToken        string `gorm:"type:varchar(32);uniqueIndex"`
	Version            int    `gorm:"not null;default:0"`
	CreatedAt          time.Time
	StartedAt          *time.Time
	PausedAt           *time.Time
	CompletedAt        *time.Time
	UpdatedAt          time.Time `gorm:"autoUpdateTime"`
}

func (SessionRow) TableName() string { return "draft_sessions" }

type GameRow struct {
	ID                 string  `gorm:"primaryKey;type:varchar(64)"`
	SessionID          string  `gorm:"type:varchar(64);not null;uniqueIndex:uk_game_session_number"`
	GameNumber         int     `gorm:"not null;uniqueIndex:uk_game_session_number"`
	BlueSideTeam       string  `gorm:"type:varchar(8);not null"`
	Status             string  `gorm:"type:varchar(16);not null;index"`
	CurrentPhase       *string `gorm:"type:varchar(8)"`
	CurrentTurn        *string `gorm:"type:varchar(8)"`
	CurrentActionIndex int     `gorm:"not null;default:0"`
	TurnStartedAt      *time.Time
	BlueBans           datatypes.JSON `gorm:"type:jsonb;not null"`
	RedBans            datatypes.JSON `gorm:"type:jsonb;not null"`
	BluePicks          datatypes.JSON `gorm:"type:jsonb;not null"`
	RedPicks           datatypes.JSON `gorm:"type:jsonb;not null"`
	EditedPicks        datatypes.JSON `gorm:"type:jsonb;not null"`
	WinnerSide         *string        `gorm:"type:varchar(8)"`
	Version            int            `gorm:"not null;default:0"`
	CreatedAt          time.Time
	StartedAt          *time.Time
	CompletedAt        *time.Time
}

func (GameRow) TableName() string { return "draft_games" }

type ActionRow struct {
	ID          string    `gorm:"primaryKey;type:varchar(64)"`
	GameID      string    `gorm:"type:varchar(64);not null;uniqueIndex:uk_action_game_index"`
	ActionIndex int       `gorm:"not null;uniqueIndex:uk_action_game_index"`
	ActionType  string    `gorm:"type:varchar(8);not null"`
	Side        string    `gorm:"type:varchar(8);not null"`
	ChampionID  *string   `gorm:"type:varchar(64)"`
	PerformedBy string    `gorm:"type:varchar(64)"`
	CreatedAt   time.Time `gorm:"not null"`
}

func (ActionRow) TableName() string { return "draft_actions" }

type UnavailableChampionRow struct {
	ID         string `gorm:"primaryKey;type:varchar(64)"`
	SessionID  string `gorm:"type:varchar(64);not null;index"`
	ChampionID string `gorm:"type:varchar(64);not null;index"`
	GameNumber int    `gorm:"not null"`
	Reason     string `gorm:"type:varchar(8);not null"`
	Team       string `gorm:"type:varchar(8);not null"`
	CreatedAt  time.Time
}

func (UnavailableChampionRow) TableName() string { return "unavailable_champions" }

type ParticipantRow struct {
	ID          string `gorm:"primaryKey;type:varchar(64)"`
	SessionID   string `gorm:"type:varchar(64);not null;index"`
	UserID      string `gorm:"type:varchar(64)"`
	DisplayName string
	Role        string `gorm:"type:varchar(16);not null"`
	Team        string `gorm:"type:varchar(8)"`
	IsConnected bool   `gorm:"not null;default:false"`
	JoinedAt    time.Time
	LastSeenAt  time.Time
}

func (ParticipantRow) TableName() string { return "draft_participants" }

type MessageRow struct {
	ID            string `gorm:"primaryKey;type:varchar(64)"`
	SessionID     string `gorm:"type:varchar(64);not null;index:idx_message_session_created"`
	ParticipantID string `gorm:"type:varchar(64)"`
	DisplayName   string
	Body          string    `gorm:"type:text;not null"`
	CreatedAt     time.Time `gorm:"index:idx_message_session_created"`
}

func (MessageRow) TableName() string { return "draft_messages" }

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Empty slots are stored as JSON null.
func encodeSlots(s engine.Slots) (datatypes.JSON, error) {
	out := make([]*string, len(s))
	for i, c := range s {
		out[i] = optString(c)
	}
	b, err := json.Marshal(out)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}

func decodeSlots(raw datatypes.JSON) (engine.Slots, error) {
	var s engine.Slots
	if len(raw) == 0 {
		return s, nil
	}
	var vals []*string
	if err := json.Unmarshal(raw, &vals); err != nil {
		return s, err
	}
	for i := 0; i < len(vals) && i < len(s); i++ {
		s[i] = derefString(vals[i])
	}
	return s, nil
}

func toSessionRow(s engine.Session) SessionRow {
	return SessionRow{
		ID:                 s.ID,
		Team1Name:          s.Team1.Name,
		Team2Name:          s.Team2.Name,
		Team1CaptainID:     s.Team1.CaptainID,
		Team2CaptainID:     s.Team2.CaptainID,
		Team1CaptainName:   s.Team1.CaptainName,
		Team2CaptainName:   s.Team2.CaptainName,
		Team1CaptainAvatar: s.Team1.CaptainAvatar,
		Team2CaptainAvatar: s.Team2.CaptainAvatar,
		Team1CaptainRole:   s.Team1.CaptainRole,
		Team2CaptainRole:   s.Team2.CaptainRole,
		Team1RosterID:      s.Team1.RosterID,
		Team2RosterID:      s.Team2.RosterID,
		Team1Side:          string(s.Team1.Side),
		Team2Side:          string(s.Team2.Side),
		Team1Ready:         s.Team1.Ready,
		Team2Ready:         s.Team2.Ready,
		DraftMode:          string(s.Mode),
		PlannedGames:       s.PlannedGames,
		BanTimeSeconds:     s.BanSeconds,
		PickTimeSeconds:    s.PickSeconds,
		Status:             string(s.Status),
		CurrentGameNumber:  s.CurrentGame,
		InviteToken:        s.InviteToken,
		Version:            s.Version,
		CreatedAt:          s.CreatedAt,
		StartedAt:          s.StartedAt,
		PausedAt:           s.PausedAt,
		CompletedAt:        s.CompletedAt,
	}
}

func (r SessionRow) toEngine() engine.Session {
	return engine.Session{
		ID: r.ID,
		Team1: engine.TeamSeat{
			Name:          r.Team1Name,
			CaptainID:     r.Team1CaptainID,
			CaptainName:   r.Team1CaptainName,
			CaptainAvatar: r.Team1CaptainAvatar,
			CaptainRole:   r.Team1CaptainRole,
			RosterID:      r.Team1RosterID,
			Side:          engine.Side(r.Team1Side),
			Ready:         r.Team1Ready,
		},
		Team2: engine.TeamSeat{
			Name:          r.Team2Name,
			CaptainID:     r.Team2CaptainID,
			CaptainName:   r.Team2CaptainName,
			CaptainAvatar: r.Team2CaptainAvatar,
			CaptainRole:   r.Team2CaptainRole,
			RosterID:      r.Team2RosterID,
			Side:          engine.Side(r.Team2Side),
			Ready:         r.Team2Ready,
		},
		Mode:         engine.Mode(r.DraftMode),
		PlannedGames: r.PlannedGames,
		BanSeconds:   r.BanTimeSeconds,
		PickSeconds:  r.PickTimeSeconds,
		Status:       engine.SessionStatus(r.Status),
		CurrentGame:  r.CurrentGameNumber,
		InviteToken:  r.InviteToken,
		Version:      r.Version,
		CreatedAt:    r.CreatedAt,
		StartedAt:    r.StartedAt,
		PausedAt:     r.PausedAt,
		CompletedAt:  r.CompletedAt,
	}
}

func toGameRow(g engine.Game) (GameRow, error) {
	edits, err := json.Marshal(g.Edits)
	if err != nil {
		return GameRow{}, err
	}
	if g.Edits == nil {
		edits = []byte("[]")
	}
	var slots [4]datatypes.JSON
	for i, sl := range []engine.Slots{g.BlueBans, g.RedBans, g.BluePicks, g.RedPicks} {
		if slots[i], err = encodeSlots(sl); err != nil {
			return GameRow{}, err
		}
	}
	return GameRow{
		ID:                 g.ID,
		SessionID:          g.SessionID,
		GameNumber:         g.Number,
		BlueSideTeam:       string(g.BlueSideTeam),
		Status:             string(g.Status),
		CurrentPhase:       optString(string(g.Phase)),
		CurrentTurn:        optString(string(g.Turn)),
		CurrentActionIndex: g.ActionIndex,
		TurnStartedAt:      g.TurnStartedAt,
		BlueBans:           slots[0],
		RedBans:            slots[1],
		BluePicks:          slots[2],
		RedPicks:           slots[3],
		EditedPicks:        datatypes.JSON(edits),
		WinnerSide:         optString(string(g.Winner)),
		Version:            g.Version,
		CreatedAt:          g.CreatedAt,
		StartedAt:          g.StartedAt,
		CompletedAt:        g.CompletedAt,
	}, nil
}

func (r GameRow) toEngine() (engine.Game, error) {
	g := engine.Game{
		ID:            r.ID,
		SessionID:     r.SessionID,
		Number:        r.GameNumber,
		BlueSideTeam:  engine.Team(r.BlueSideTeam),
		Status:        engine.GameStatus(r.Status),
		Phase:         engine.Phase(derefString(r.CurrentPhase)),
		Turn:          engine.Side(derefString(r.CurrentTurn)),
		ActionIndex:   r.CurrentActionIndex,
		TurnStartedAt: r.TurnStartedAt,
		Winner:        engine.Side(derefString(r.WinnerSide)),
		Version:       r.Version,
		CreatedAt:     r.CreatedAt,
		StartedAt:     r.StartedAt,
		CompletedAt:   r.CompletedAt,
	}
	var err error
	if g.BlueBans, err = decodeSlots(r.BlueBans); err != nil {
		return g, err
	}
	if g.RedBans, err = decodeSlots(r.RedBans); err != nil {
		return g, err
	}
	if g.BluePicks, err = decodeSlots(r.BluePicks); err != nil {
		return g, err
	}
	if g.RedPicks, err = decodeSlots(r.RedPicks); err != nil {
		return g, err
	}
	if len(r.EditedPicks) > 0 {
		if err := json.Unmarshal(r.EditedPicks, &g.Edits); err != nil {
			return g, err
		}
	}
	return g, nil
}

func sessionColumns(r SessionRow) map[string]any {
	return map[string]any{
		"team1_name":           r.Team1Name,
		"team2_name":           r.Team2Name,
		"team1_captain_id":     r.Team1CaptainID,
		"team2_captain_id":     r.Team2CaptainID,
		"team1_captain_name":   r.Team1CaptainName,
		"team2_captain_name":   r.Team2CaptainName,
		"team1_captain_avatar": r.Team1CaptainAvatar,
		"team2_captain_avatar": r.Team2CaptainAvatar,
		"team1_captain_role":   r.Team1CaptainRole,
		"team2_captain_role":   r.Team2CaptainRole,
		"team1_roster_id":      r.Team1RosterID,
		"team2_roster_id":      r.Team2RosterID,
		"team1_side":           r.Team1Side,
		"team2_side":           r.Team2Side,
		"team1_ready":          r.Team1Ready,
		"team2_ready":          r.Team2Ready,
		"draft_mode":           r.DraftMode,
		"planned_games":        r.PlannedGames,
		"ban_time_seconds":     r.BanTimeSeconds,
		"pick_time_seconds":    r.PickTimeSeconds,
		"status":               r.Status,
		"current_game_number":  r.CurrentGameNumber,
		"started_at":           r.StartedAt,
		"paused_at":            r.PausedAt,
		"completed_at":         r.CompletedAt,
	}
}

// gameColumns lists every mutable game column for conditional updates.
func gameColumns(r GameRow) map[string]any {
	return map[string]any{
		"blue_side_team":       r.BlueSideTeam,
		"status":               r.Status,
		"current_phase":        r.CurrentPhase,
		"current_turn":         r.CurrentTurn,
		"current_action_index": r.CurrentActionIndex,
		"turn_started_at":      r.TurnStartedAt,
		"blue_bans":            r.BlueBans,
		"red_bans":             r.RedBans,
		"blue_picks":           r.BluePicks,
		"red_picks":            r.RedPicks,
		"edited_picks":         r.EditedPicks,
		"winner_side":          r.WinnerSide,
		"started_at":           r.StartedAt,
		"completed_at":         r.CompletedAt,
	}
}

func toActionRow(a engine.ActionRecord) ActionRow {
	return ActionRow{
		ID:          a.ID,
		GameID:      a.GameID,
		ActionIndex: a.Index,
		ActionType:  string(a.Type),
		Side:        string(a.Side),
		ChampionID:  optString(a.ChampionID),
		PerformedBy: a.PerformedBy,
		CreatedAt:   a.CreatedAt,
	}
}

func (r ActionRow) toEngine() engine.ActionRecord {
	return engine.ActionRecord{
		ID:          r.ID,
		GameID:      r.GameID,
		Index:       r.ActionIndex,
		Type:        engine.Action(r.ActionType),
		Side:        engine.Side(r.Side),
		ChampionID:  derefString(r.ChampionID),
		PerformedBy: r.PerformedBy,
		CreatedAt:   r.CreatedAt,
	}
}

func toUnavailableRow(u engine.UnavailableChampion) UnavailableChampionRow {
	return UnavailableChampionRow{
		ID:         u.ID,
		SessionID:  u.SessionID,
		ChampionID: u.ChampionID,
		GameNumber: u.GameNumber,
		Reason:     string(u.Reason),
		Team:       string(u.Team),
	}
}

func (r UnavailableChampionRow) toEngine() engine.UnavailableChampion {
	return engine.UnavailableChampion{
		ID:         r.ID,
		SessionID:  r.SessionID,
		ChampionID: r.ChampionID,
		GameNumber: r.GameNumber,
		Reason:     engine.LedgerReason(r.Reason),
		Team:       engine.Team(r.Team),
	}
}

func toParticipantRow(p store.Participant) ParticipantRow {
	return ParticipantRow{
		ID:          p.ID,
		SessionID:   p.SessionID,
		UserID:      p.UserID,
		DisplayName: p.DisplayName,
		Role:        string(p.Role),
		Team:        string(p.Team),
		IsConnected: p.IsConnected,
		JoinedAt:    p.JoinedAt,
		LastSeenAt:  p.LastSeenAt,
	}
}

func (r ParticipantRow) toStore() store.Participant {
	return store.Participant{
		ID:          r.ID,
		SessionID:   r.SessionID,
		UserID:      r.UserID,
		DisplayName: r.DisplayName,
		Role:        store.Role(r.Role),
		Team:        engine.Team(r.Team),
		IsConnected: r.IsConnected,
		JoinedAt:    r.JoinedAt,
		LastSeenAt:  r.LastSeenAt,
	}
}

func toMessageRow(m store.Message) MessageRow {
	return MessageRow{
		ID:            m.ID,
		SessionID:     m.SessionID,
		ParticipantID: m.ParticipantID,
		DisplayName:   m.DisplayName,
		Body:          m.Body,
		CreatedAt:     m.CreatedAt,
	}
}

func (r MessageRow) toStore() store.Message {
	return store.Message{
		ID:            r.ID,
		SessionID:     r.SessionID,
		ParticipantID: r.ParticipantID,
		DisplayName:   r.DisplayName,
		Body:          r.Body,
		CreatedAt:     r.CreatedAt,
	}
}
