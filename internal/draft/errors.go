package draft

import (
	"errors"

	"github.com/DoyleJ11/draftroom/internal/engine"
	"github.com/DoyleJ11/draftroom/internal/store"
)

var errorCodes = []struct {
	err  error
	code string
}{
	{engine.ErrStaleWrite, "stale_write"},
	{engine.ErrSlotAlreadyFilled, "slot_already_filled"},
	{engine.ErrOutOfTurn, "out_of_turn"},
	{engine.ErrInvalidPhaseState, "invalid_phase_state"},
	{engine.ErrChampionUnavailable, "champion_unavailable"},
	{engine.ErrSessionNotReady, "session_not_ready"},
	{engine.ErrTurnNotExpired, "turn_not_expired"},
	{engine.ErrInvalidChampion, "invalid_champion"},
	{engine.ErrInvalidSlot, "invalid_slot"},
	{engine.ErrInvalidSessionState, "invalid_session_state"},
	{engine.ErrInvalidSide, "invalid_side"},
	{engine.ErrInvalidTeam, "invalid_team"},
	{engine.ErrSideTaken, "side_taken"},
	{store.ErrNotFound, "not_found"},
	{store.ErrConflict, "conflict"},
	{ErrForbidden, "forbidden"},
	{ErrInvalidInput, "invalid_input"},
}

// ErrorCode names err for clients. Anything unrecognised is "internal".
func ErrorCode(err error) string {
	for _, c := range errorCodes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return "internal"
}

// IsRuleViolation reports whether err is a user mistake to show to the submitting client.
func IsRuleViolation(err error) bool {
	switch ErrorCode(err) {
	case "internal", "not_found", "conflict", "stale_write", "slot_already_filled":
		return false
	}
	return true
}
