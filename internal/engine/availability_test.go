package engine

import (
	"errors"
	"testing"
)

func TestIsUnavailable(t *testing.T) {
	current := draftingGame()
	current.BlueBans[0] = "Zed"
	current.RedBans[0] = NoChampion

	ledger := NewLedger([]UnavailableChampion{
		{ChampionID: "Ahri", GameNumber: 1, Reason: ReasonPicked, Team: Team1},
		{ChampionID: "Lux", GameNumber: 1, Reason: ReasonBanned, Team: Team2},
	})

	cases := []struct {
		name     string
		champion string
		mode     Mode
		team     Team
		want     bool
	}{
		{"in current game, normal", "Zed", ModeNormal, Team1, true},
		{"in current game, fearless other team", "Zed", ModeFearless, Team2, true},
		{"timeout sentinel never counts", NoChampion, ModeIronman, Team1, false},
		{"normal ignores ledger", "Ahri", ModeNormal, Team1, false},
		{"fearless same team", "Ahri", ModeFearless, Team1, true},
		{"fearless other team", "Ahri", ModeFearless, Team2, false},
		{"fearless ban recorded for team2", "Lux", ModeFearless, Team2, true},
		{"ironman picked by anyone", "Ahri", ModeIronman, Team2, true},
		{"ironman banned by anyone", "Lux", ModeIronman, Team1, true},
		{"unused champion", "Garen", ModeIronman, Team1, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsUnavailable(tc.champion, tc.mode, current, ledger, tc.team); got != tc.want {
				t.Fatalf("IsUnavailable(%q, %s, %s): got %v, want %v", tc.champion, tc.mode, tc.team, got, tc.want)
			}
		})
	}
}

func TestLedgerFromGame(t *testing.T) {
	g := playTo(t, draftingGame(), NumSteps)
	g.RedBans[4] = NoChampion // as if the turn had timed out

	if recs := LedgerFromGame(ModeNormal, g); recs != nil {
		t.Fatalf("normal mode: want no records, got %d", len(recs))
	}

	recs := LedgerFromGame(ModeFearless, g)
	if len(recs) != 19 {
		t.Fatalf("want 19 records, got %d", len(recs))
	}
	byChamp := NewLedger(recs)
	// c6 is blue's first pick; team1 is on blue in game 1.
	e := byChamp.Entries("c6")
	if len(e) != 1 || e[0].Team != Team1 || e[0].Reason != ReasonPicked || e[0].GameNumber != 1 {
		t.Fatalf("unexpected entry for c6: %+v", e)
	}
	e = byChamp.Entries("c1")
	if len(e) != 1 || e[0].Team != Team2 || e[0].Reason != ReasonBanned {
		t.Fatalf("unexpected entry for c1: %+v", e)
	}
}

// Plays a pick for team at the first pick step it owns in g, returning the error from Apply.
func pickAsTeam(t *testing.T, g Game, team Team, champion string, ledger Ledger, mode Mode) error {
	t.Helper()
	side := g.SideOfTeam(team)
	for i := 6; i < NumSteps; i++ {
		step, _ := StepAt(i)
		if step.Action == ActionPick && step.Side == side {
			g = playTo(t, g, i)
			_, _, err := Apply(g, Rules{Mode: mode, Ledger: ledger}, Proposal{Side: side, ChampionID: champion}, t0)
			return err
		}
	}
	t.Fatalf("no pick step for %s", side)
	return nil
}

func TestSeriesAvailabilityByMode(t *testing.T) {
	game1 := playTo(t, draftingGame(), 6)
	game1, _, err := Apply(game1, Rules{}, Proposal{Side: SideBlue, ChampionID: "Ahri"}, t0)
	if err != nil {
		t.Fatalf("game 1 pick: %v", err)
	}
	game1 = playTo(t, game1, NumSteps)

	for _, mode := range []Mode{ModeNormal, ModeFearless, ModeIronman} {
		ledger := NewLedger(LedgerFromGame(mode, game1))

		game2 := NextGame(game1, t0)
		game2, err = StartGame(Session{Status: SessionInProgress}, game2, t0)
		if err != nil {
			t.Fatalf("start game 2: %v", err)
		}
		if game2.BlueSideTeam != Team2 {
			t.Fatalf("sides did not swap")
		}

		team1Err := pickAsTeam(t, game2, Team1, "Ahri", ledger, mode)
		team2Err := pickAsTeam(t, game2, Team2, "Ahri", ledger, mode)

		switch mode {
		case ModeNormal:
			if team1Err != nil || team2Err != nil {
				t.Fatalf("normal: Ahri should be selectable again: %v %v", team1Err, team2Err)
			}
		case ModeFearless:
			if !errors.Is(team1Err, ErrChampionUnavailable) {
				t.Fatalf("fearless: team1 want ErrChampionUnavailable, got %v", team1Err)
			}
			if team2Err != nil {
				t.Fatalf("fearless: team2 should reuse Ahri, got %v", team2Err)
			}
		case ModeIronman:
			if !errors.Is(team1Err, ErrChampionUnavailable) || !errors.Is(team2Err, ErrChampionUnavailable) {
				t.Fatalf("ironman: want both rejected, got %v %v", team1Err, team2Err)
			}
		}
	}
}

func TestFearlessPersistsAcrossSeries(t *testing.T) {
	// Ledger accumulates: team1 used Ahri in game 1, game 2 added unrelated records.
	records := []UnavailableChampion{
		{ChampionID: "Ahri", GameNumber: 1, Reason: ReasonPicked, Team: Team1},
		{ChampionID: "Jinx", GameNumber: 2, Reason: ReasonPicked, Team: Team2},
	}
	game3 := NewGame("s1", 3, Team1, t0)
	game3, _ = StartGame(Session{Status: SessionInProgress}, game3, t0)

	if !IsUnavailable("Ahri", ModeFearless, game3, NewLedger(records), Team1) {
		t.Fatalf("Ahri should stay closed to team1 in game 3")
	}
	if IsUnavailable("Ahri", ModeFearless, game3, NewLedger(records), Team2) {
		t.Fatalf("Ahri should stay open to team2 in game 3")
	}
}

func TestIronmanBannedChampionScenario(t *testing.T) {
	game1 := draftingGame()
	game1, _, err := Apply(game1, Rules{Mode: ModeIronman}, Proposal{Side: SideBlue, ChampionID: "Ahri"}, t0)
	if err != nil {
		t.Fatalf("ban: %v", err)
	}
	game1 = playTo(t, game1, NumSteps)
	ledger := NewLedger(LedgerFromGame(ModeIronman, game1))

	game2, _ := StartGame(Session{Status: SessionInProgress}, NextGame(game1, t0), t0)
	for _, team := range []Team{Team1, Team2} {
		if err := pickAsTeam(t, game2, team, "Ahri", ledger, ModeIronman); !errors.Is(err, ErrChampionUnavailable) {
			t.Fatalf("%s: want ErrChampionUnavailable, got %v", team, err)
		}
	}
}
