package types

import pub "github.com/DoyleJ11/draftroom/pkg/types"

// ClientMessage is anything a websocket client sends.
type ClientMessage struct {
	Type        string `json:"type"` // "ban" | "pick" | "hover" | "timeout" | "chat" | "ready" | "side" | "ping"
	GameID      string `json:"game_id,omitempty"`
	Side        string `json:"side,omitempty"`
	ChampionID  string `json:"champion_id,omitempty"`
	ActionIndex *int   `json:"action_index,omitempty"`
	Ready       *bool  `json:"ready,omitempty"`
	Body        string `json:"body,omitempty"`
}

// ServerMessage is a reply to one client. Broadcast events are sent as envelopes instead.
type ServerMessage struct {
	Type  string              `json:"type"` // "error" | "resync" | "pong"
	Code  string              `json:"code,omitempty"`
	Error string              `json:"error,omitempty"`
	Game  *pub.GameStateEvent `json:"game,omitempty"`
}
