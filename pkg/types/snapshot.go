package types

import "time"

// GameStateEvent is a full snapshot of one game. Empty slots are "", timed-out slots "none".
type GameStateEvent struct {
	GameID        string     `json:"game_id"`
	GameNumber    int        `json:"game_number"`
	Status        string     `json:"status"`
	Phase         string     `json:"phase,omitempty"`
	Turn          string     `json:"turn,omitempty"`
	ActionIndex   int        `json:"action_index"`
	BlueSideTeam  string     `json:"blue_side_team"`
	BlueBans      []string   `json:"blue_bans"`
	RedBans       []string   `json:"red_bans"`
	BluePicks     []string   `json:"blue_picks"`
	RedPicks      []string   `json:"red_picks"`
	Edits         []SlotEdit `json:"edits,omitempty"`
	Winner        string     `json:"winner,omitempty"`
	TurnStartedAt *time.Time `json:"turn_started_at,omitempty"`
	Version       int        `json:"version"`
}

type SlotEdit struct {
	Side     string    `json:"side"`
	Kind     string    `json:"kind"`
	Index    int       `json:"index"`
	Original string    `json:"original"`
	Edited   string    `json:"edited"`
	EditedAt time.Time `json:"edited_at"`
}

type TeamState struct {
	Name        string `json:"name"`
	CaptainID   string `json:"captain_id,omitempty"`
	CaptainName string `json:"captain_name,omitempty"`
	Side        string `json:"side,omitempty"`
	Ready       bool   `json:"ready"`
	Wins        int    `json:"wins"`
}

type SessionStateEvent struct {
	SessionID    string    `json:"session_id"`
	Status       string    `json:"status"`
	Mode         string    `json:"mode"`
	PlannedGames int       `json:"planned_games"`
	CurrentGame  int       `json:"current_game"`
	BanSeconds   int       `json:"ban_seconds"`
	PickSeconds  int       `json:"pick_seconds"`
	Team1        TeamState `json:"team1"`
	Team2        TeamState `json:"team2"`
	Version      int       `json:"version"`
}
