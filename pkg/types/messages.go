// Package types holds the event payloads broadcast on a session channel. Clients receive them
// wrapped in an envelope {type, session_id, payload} and use the same shapes to reconcile
// their local view.
package types

import "time"

type EventType string

const (
	EventDraftAction  EventType = "draft_action"
	EventHover        EventType = "hover"
	EventTimer        EventType = "timer"
	EventGameState    EventType = "game_state"
	EventSessionState EventType = "session_state"
	EventChat         EventType = "chat_message"
	EventPresence     EventType = "presence"
)

// DraftActionEvent announces one resolved step. ChampionID is empty for a timeout.
type DraftActionEvent struct {
	GameID      string `json:"game_id"`
	ActionIndex int    `json:"action_index"`
	ActionType  string `json:"action_type"`
	Side        string `json:"side"`
	Team        string `json:"team"`
	ChampionID  string `json:"champion_id,omitempty"`
	PerformedBy string `json:"performed_by,omitempty"`
	Version     int    `json:"version"`
}

// HoverEvent is ephemeral and never persisted.
type HoverEvent struct {
	GameID        string `json:"game_id"`
	Side          string `json:"side"`
	Team          string `json:"team"`
	ChampionID    string `json:"champion_id"`
	ParticipantID string `json:"participant_id,omitempty"`
}

type TimerEvent struct {
	GameID      string `json:"game_id"`
	ActionIndex int    `json:"action_index"`
	Phase       string `json:"phase"`
	Turn        string `json:"turn"`
	RemainingMS int64  `json:"remaining_ms"`
	Paused      bool   `json:"paused,omitempty"`
}

type ChatMessageEvent struct {
	ID            string    `json:"id"`
	ParticipantID string    `json:"participant_id"`
	DisplayName   string    `json:"display_name"`
	Body          string    `json:"body"`
	CreatedAt     time.Time `json:"created_at"`
}

type PresenceState struct {
	ParticipantID string `json:"participant_id"`
	UserID        string `json:"user_id,omitempty"`
	DisplayName   string `json:"display_name"`
	Team          string `json:"team,omitempty"`
	IsCaptain     bool   `json:"is_captain"`
	IsConnected   bool   `json:"is_connected"`
}
