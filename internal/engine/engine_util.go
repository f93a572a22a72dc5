package engine

func (g *Game) slots(side Side, kind Action) *Slots {
	switch {
	case side == SideBlue && kind == ActionBan:
		return &g.BlueBans
	case side == SideRed && kind == ActionBan:
		return &g.RedBans
	case side == SideBlue && kind == ActionPick:
		return &g.BluePicks
	default:
		return &g.RedPicks
	}
}

func (g Game) Slot(ref SlotRef) string {
	if !ref.Valid() {
		return ""
	}
	return g.slots(ref.Side, ref.Kind)[ref.Index]
}

// Contains reports whether champion occupies any ban or pick slot of the game.
func (g Game) Contains(champion string) bool {
	if champion == "" || champion == NoChampion {
		return false
	}
	for _, s := range []Slots{g.BlueBans, g.RedBans, g.BluePicks, g.RedPicks} {
		for _, c := range s {
			if c == champion {
				return true
			}
		}
	}
	return false
}

// Filled counts occupied slots; it always equals ActionIndex for a game mutated only through Apply/Timeout.
func (g Game) Filled() int {
	return g.BlueBans.Filled() + g.RedBans.Filled() + g.BluePicks.Filled() + g.RedPicks.Filled()
}

func (g Game) TeamOnSide(side Side) Team {
	if side == SideBlue {
		return g.BlueSideTeam
	}
	return g.BlueSideTeam.Other()
}

func (g Game) SideOfTeam(team Team) Side {
	if team == g.BlueSideTeam {
		return SideBlue
	}
	return SideRed
}

func (g Game) IsFinished() bool {
	return g.Status == GameCompleted || g.Status == GameEditing
}

// CurrentStep is the step awaiting an action, or false once the draft is over.
func (g Game) CurrentStep() (Step, bool) {
	if g.Status != GameDrafting {
		return Step{}, false
	}
	return StepAt(g.ActionIndex)
}
