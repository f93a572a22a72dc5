package engine

// NumSteps is the length of one game's draft; ActionIndex == NumSteps once the game is complete.
const NumSteps = 20

type Step struct {
	Index  int
	Phase  Phase
	Side   Side
	Action Action
	Slot   int
}

var GameOrder = [NumSteps]Step{
	// Ban Phase 1
	{Index: 0, Phase: PhaseBan1, Side: SideBlue, Action: ActionBan, Slot: 0},
	{Index: 1, Phase: PhaseBan1, Side: SideRed, Action: ActionBan, Slot: 0},
	{Index: 2, Phase: PhaseBan1, Side: SideBlue, Action: ActionBan, Slot: 1},
	{Index: 3, Phase: PhaseBan1, Side: SideRed, Action: ActionBan, Slot: 1},
	{Index: 4, Phase: PhaseBan1, Side: SideBlue, Action: ActionBan, Slot: 2},
	{Index: 5, Phase: PhaseBan1, Side: SideRed, Action: ActionBan, Slot: 2},
	// Pick Phase 1 (B, RR, BB, R)
	{Index: 6, Phase: PhasePick1, Side: SideBlue, Action: ActionPick, Slot: 0},
	{Index: 7, Phase: PhasePick1, Side: SideRed, Action: ActionPick, Slot: 0},
	{Index: 8, Phase: PhasePick1, Side: SideRed, Action: ActionPick, Slot: 1},
	{Index: 9, Phase: PhasePick1, Side: SideBlue, Action: ActionPick, Slot: 1},
	{Index: 10, Phase: PhasePick1, Side: SideBlue, Action: ActionPick, Slot: 2},
	{Index: 11, Phase: PhasePick1, Side: SideRed, Action: ActionPick, Slot: 2},
	// Ban Phase 2 (red opens)
	{Index: 12, Phase: PhaseBan2, Side: SideRed, Action: ActionBan, Slot: 3},
	{Index: 13, Phase: PhaseBan2, Side: SideBlue, Action: ActionBan, Slot: 3},
	{Index: 14, Phase: PhaseBan2, Side: SideRed, Action: ActionBan, Slot: 4},
	{Index: 15, Phase: PhaseBan2, Side: SideBlue, Action: ActionBan, Slot: 4},
	// Pick Phase 2 (R, BB, R)
	{Index: 16, Phase: PhasePick2, Side: SideRed, Action: ActionPick, Slot: 3},
	{Index: 17, Phase: PhasePick2, Side: SideBlue, Action: ActionPick, Slot: 3},
	{Index: 18, Phase: PhasePick2, Side: SideBlue, Action: ActionPick, Slot: 4},
	{Index: 19, Phase: PhasePick2, Side: SideRed, Action: ActionPick, Slot: 4},
}

// StepAt returns the step for a linear action index, or false if the index is outside [0, NumSteps).
func StepAt(index int) (Step, bool) {
	if index < 0 || index >= NumSteps {
		return Step{}, false
	}
	return GameOrder[index], true
}

func DerivePhase(index int) Phase {
	step, ok := StepAt(index)
	if !ok {
		return PhaseNone
	}
	return step.Phase
}
