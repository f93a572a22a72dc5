package engine

type Mode string

const (
	ModeNormal   Mode = "normal"
	ModeFearless Mode = "fearless"
	ModeIronman  Mode = "ironman"
)

func (m Mode) Valid() bool {
	return m == ModeNormal || m == ModeFearless || m == ModeIronman
}

type LedgerReason string

const (
	ReasonPicked LedgerReason = "picked"
	ReasonBanned LedgerReason = "banned"
)

// UnavailableChampion records that a champion was consumed in an earlier game of the series.
type UnavailableChampion struct {
	ID         string
	SessionID  string
	ChampionID string
	GameNumber int
	Reason     LedgerReason
	Team       Team
}

// Ledger is the read-side index over the append-only unavailable-champion records.
// The zero value is an empty ledger.
type Ledger struct {
	byChampion map[string][]UnavailableChampion
}

func NewLedger(records []UnavailableChampion) Ledger {
	l := Ledger{byChampion: make(map[string][]UnavailableChampion, len(records))}
	for _, r := range records {
		l.byChampion[r.ChampionID] = append(l.byChampion[r.ChampionID], r)
	}
	return l
}

func (l Ledger) Entries(championID string) []UnavailableChampion {
	return l.byChampion[championID]
}

func (l Ledger) Len() int {
	n := 0
	for _, entries := range l.byChampion {
		n += len(entries)
	}
	return n
}

// IsUnavailable decides whether team may not select championID in game under mode.
func IsUnavailable(championID string, mode Mode, game Game, ledger Ledger, team Team) bool {
	if game.Contains(championID) {
		return true
	}

	switch mode {
	case ModeFearless:
		for _, e := range ledger.Entries(championID) {
			if e.Team == team {
				return true
			}
		}
		return false
	case ModeIronman:
		return len(ledger.Entries(championID)) > 0
	default:
		return false
	}
}

// LedgerFromGame lists the records a finished game contributes to the series ledger.
// Normal mode keeps no cross-game memory.
func LedgerFromGame(mode Mode, g Game) []UnavailableChampion {
	if mode == ModeNormal {
		return nil
	}

	var out []UnavailableChampion
	add := func(slots Slots, side Side, reason LedgerReason) {
		for _, c := range slots {
			if c == "" || c == NoChampion {
				continue
			}
			out = append(out, UnavailableChampion{
				SessionID:  g.SessionID,
				ChampionID: c,
				GameNumber: g.Number,
				Reason:     reason,
				Team:       g.TeamOnSide(side),
			})
		}
	}
	add(g.BlueBans, SideBlue, ReasonBanned)
	add(g.RedBans, SideRed, ReasonBanned)
	add(g.BluePicks, SideBlue, ReasonPicked)
	add(g.RedPicks, SideRed, ReasonPicked)
	return out
}
