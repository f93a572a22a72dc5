package engine

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func draftingGame() Game {
	g := NewGame("s1", 1, Team1, t0)
	g.ID = "g1"
	s := Session{ID: "s1", Status: SessionInProgress}
	g, err := StartGame(s, g, t0)
	if err != nil {
		panic(err)
	}
	return g
}

// playTo applies steps until ActionIndex == index, using champions "c0", "c1", ...
func playTo(t *testing.T, g Game, index int) Game {
	t.Helper()
	for g.ActionIndex < index {
		var err error
		g, _, err = Apply(g, Rules{Mode: ModeNormal}, Proposal{Side: g.Turn, ChampionID: fmt.Sprintf("c%d", g.ActionIndex)}, t0)
		if err != nil {
			t.Fatalf("apply step %d: %v", g.ActionIndex, err)
		}
	}
	return g
}

func TestStepAt(t *testing.T) {
	cases := []struct {
		index  int
		phase  Phase
		side   Side
		action Action
		slot   int
	}{
		{0, PhaseBan1, SideBlue, ActionBan, 0},
		{1, PhaseBan1, SideRed, ActionBan, 0},
		{2, PhaseBan1, SideBlue, ActionBan, 1},
		{3, PhaseBan1, SideRed, ActionBan, 1},
		{4, PhaseBan1, SideBlue, ActionBan, 2},
		{5, PhaseBan1, SideRed, ActionBan, 2},
		{6, PhasePick1, SideBlue, ActionPick, 0},
		{7, PhasePick1, SideRed, ActionPick, 0},
		{8, PhasePick1, SideRed, ActionPick, 1},
		{9, PhasePick1, SideBlue, ActionPick, 1},
		{10, PhasePick1, SideBlue, ActionPick, 2},
		{11, PhasePick1, SideRed, ActionPick, 2},
		{12, PhaseBan2, SideRed, ActionBan, 3},
		{13, PhaseBan2, SideBlue, ActionBan, 3},
		{14, PhaseBan2, SideRed, ActionBan, 4},
		{15, PhaseBan2, SideBlue, ActionBan, 4},
		{16, PhasePick2, SideRed, ActionPick, 3},
		{17, PhasePick2, SideBlue, ActionPick, 3},
		{18, PhasePick2, SideBlue, ActionPick, 4},
		{19, PhasePick2, SideRed, ActionPick, 4},
	}

	for _, tc := range cases {
		t.Run(fmt.Sprintf("index %d", tc.index), func(t *testing.T) {
			step, ok := StepAt(tc.index)
			if !ok {
				t.Fatalf("StepAt(%d) returned none", tc.index)
			}
			want := Step{Index: tc.index, Phase: tc.phase, Side: tc.side, Action: tc.action, Slot: tc.slot}
			if step != want {
				t.Fatalf("got %#v, want %#v", step, want)
			}
		})
	}

	for _, idx := range []int{-1, 20, 21, 100} {
		if _, ok := StepAt(idx); ok {
			t.Fatalf("StepAt(%d): want none", idx)
		}
		if DerivePhase(idx) != PhaseNone {
			t.Fatalf("DerivePhase(%d): want none", idx)
		}
	}
}

func TestFullDraftFillsEverySlot(t *testing.T) {
	g := draftingGame()
	for i := 0; i < NumSteps; i++ {
		if g.Filled() != g.ActionIndex {
			t.Fatalf("step %d: filled %d != action index %d", i, g.Filled(), g.ActionIndex)
		}
		var rec ActionRecord
		var err error
		g, rec, err = Apply(g, Rules{Mode: ModeNormal}, Proposal{Side: g.Turn, ChampionID: fmt.Sprintf("c%d", i)}, t0)
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if rec.Index != i {
			t.Fatalf("step %d: record index %d", i, rec.Index)
		}
	}

	if g.Status != GameCompleted || g.CompletedAt == nil {
		t.Fatalf("want completed game, got %s", g.Status)
	}
	if g.ActionIndex != NumSteps || g.Phase != PhaseNone || g.Turn != SideNone {
		t.Fatalf("unexpected terminal state: index=%d phase=%q turn=%q", g.ActionIndex, g.Phase, g.Turn)
	}
	for name, slots := range map[string]Slots{"blue bans": g.BlueBans, "red bans": g.RedBans, "blue picks": g.BluePicks, "red picks": g.RedPicks} {
		if slots.Filled() != SlotsPerSide {
			t.Fatalf("%s: want %d filled, got %v", name, SlotsPerSide, slots)
		}
	}
	if g.BluePicks[1] != "c9" || g.RedPicks[1] != "c8" || g.RedBans[3] != "c12" {
		t.Fatalf("slots not placed by sequence table: %+v", g)
	}
}

func TestApply_Rejections(t *testing.T) {
	pending := NewGame("s1", 1, Team1, t0)
	done := playTo(t, draftingGame(), NumSteps)

	cases := []struct {
		name    string
		game    Game
		rules   Rules
		prop    Proposal
		wantErr error
	}{
		{"pending game", pending, Rules{}, Proposal{Side: SideBlue, ChampionID: "Ahri"}, ErrInvalidPhaseState},
		{"completed game", done, Rules{}, Proposal{Side: SideBlue, ChampionID: "Ahri"}, ErrInvalidPhaseState},
		{"out of turn", draftingGame(), Rules{}, Proposal{Side: SideRed, ChampionID: "Ahri"}, ErrOutOfTurn},
		{"empty champion", draftingGame(), Rules{}, Proposal{Side: SideBlue}, ErrInvalidChampion},
		{"timeout sentinel as champion", draftingGame(), Rules{}, Proposal{Side: SideBlue, ChampionID: NoChampion}, ErrInvalidChampion},
		{"already in this game", playTo(t, draftingGame(), 1), Rules{}, Proposal{Side: SideRed, ChampionID: "c0"}, ErrChampionUnavailable},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, _, err := Apply(tc.game, tc.rules, tc.prop, t0)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("want %v, got %v", tc.wantErr, err)
			}
			if got.ActionIndex != tc.game.ActionIndex {
				t.Fatalf("rejected action changed the game")
			}
		})
	}
}

func TestApply_SlotAlreadyFilled(t *testing.T) {
	g := draftingGame()
	g.BlueBans[0] = "Zed"
	_, _, err := Apply(g, Rules{}, Proposal{Side: SideBlue, ChampionID: "Ahri"}, t0)
	if !errors.Is(err, ErrSlotAlreadyFilled) || !IsRace(err) {
		t.Fatalf("want ErrSlotAlreadyFilled, got %v", err)
	}
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	g := draftingGame()
	next, _, err := Apply(g, Rules{}, Proposal{Side: SideBlue, ChampionID: "Ahri"}, t0.Add(time.Second))
	if err != nil {
		t.Fatalf("unexpected err %v", err)
	}
	if g.BlueBans[0] != "" || g.ActionIndex != 0 {
		t.Fatalf("input game mutated: %+v", g)
	}
	if next.Turn != SideRed || next.ActionIndex != 1 || !next.TurnStartedAt.Equal(t0.Add(time.Second)) {
		t.Fatalf("unexpected next game: %+v", next)
	}
}

func TestTimeout(t *testing.T) {
	g := draftingGame()
	budget := 30 * time.Second

	if _, _, err := Timeout(g, budget, "timer", t0.Add(10*time.Second)); !errors.Is(err, ErrTurnNotExpired) {
		t.Fatalf("want ErrTurnNotExpired, got %v", err)
	}

	now := t0.Add(budget)
	next, rec, err := Timeout(g, budget, "timer", now)
	if err != nil {
		t.Fatalf("unexpected err %v", err)
	}
	if rec.Type != ActionTimeout || rec.ChampionID != "" || rec.Index != 0 || rec.Side != SideBlue {
		t.Fatalf("unexpected record %+v", rec)
	}
	if next.BlueBans[0] != NoChampion {
		t.Fatalf("want timeout sentinel in slot, got %q", next.BlueBans[0])
	}
	if next.ActionIndex != 1 || next.Turn != SideRed || !next.TurnStartedAt.Equal(now) {
		t.Fatalf("turn did not advance: %+v", next)
	}
}

func TestTimeout_CompletesOnLastStep(t *testing.T) {
	g := playTo(t, draftingGame(), NumSteps-1)
	next, _, err := Timeout(g, 0, "timer", t0)
	if err != nil {
		t.Fatalf("unexpected err %v", err)
	}
	if next.Status != GameCompleted || next.RedPicks[4] != NoChampion {
		t.Fatalf("want completed game with timed-out last pick, got %+v", next)
	}
}

func TestEditPath(t *testing.T) {
	g := playTo(t, draftingGame(), NumSteps)

	if _, err := EditSlot(g, SlotRef{Side: SideBlue, Kind: ActionPick, Index: 0}, "Ahri", t0); !errors.Is(err, ErrInvalidPhaseState) {
		t.Fatalf("edit outside editing: want ErrInvalidPhaseState, got %v", err)
	}

	g, err := BeginEdit(g)
	if err != nil || g.Status != GameEditing {
		t.Fatalf("BeginEdit: %v", err)
	}

	ref := SlotRef{Side: SideBlue, Kind: ActionPick, Index: 0}
	if _, err := EditSlot(g, ref, "c7", t0); !errors.Is(err, ErrChampionUnavailable) {
		t.Fatalf("duplicate edit: want ErrChampionUnavailable, got %v", err)
	}
	if _, err := EditSlot(g, SlotRef{Side: SideBlue, Kind: ActionPick, Index: 5}, "Ahri", t0); !errors.Is(err, ErrInvalidSlot) {
		t.Fatalf("want ErrInvalidSlot, got %v", err)
	}

	edited, err := EditSlot(g, ref, "Ahri", t0)
	if err != nil {
		t.Fatalf("EditSlot: %v", err)
	}
	if edited.BluePicks[0] != "Ahri" || len(edited.Edits) != 1 || edited.Edits[0].Original != "c6" {
		t.Fatalf("unexpected edit result: %+v", edited.Edits)
	}
	if len(g.Edits) != 0 {
		t.Fatalf("input edit log mutated")
	}

	// Re-placing a champion into its own slot is allowed and is a no-op.
	same, err := EditSlot(edited, ref, "Ahri", t0)
	if err != nil || len(same.Edits) != 1 {
		t.Fatalf("no-op edit: %v %+v", err, same.Edits)
	}

	back, err := FinishEdit(edited)
	if err != nil || back.Status != GameCompleted {
		t.Fatalf("FinishEdit: %v", err)
	}
}
