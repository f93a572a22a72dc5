package engine

type SeriesScore struct {
	Team1 int `json:"team1"`
	Team2 int `json:"team2"`
}

func (s SeriesScore) For(team Team) int {
	if team == Team2 {
		return s.Team2
	}
	return s.Team1
}

// Score recounts the series from the finished games' winners, mapping each winning side
// back to the team that held it in that game.
func Score(games []Game) SeriesScore {
	var score SeriesScore
	for _, g := range games {
		if !g.IsFinished() || !g.Winner.Valid() {
			continue
		}
		switch g.TeamOnSide(g.Winner) {
		case Team1:
			score.Team1++
		case Team2:
			score.Team2++
		}
	}
	return score
}

// Clinched reports whether either team has won a majority of the planned games.
func Clinched(score SeriesScore, planned int) bool {
	if planned <= 0 {
		return false
	}
	need := planned/2 + 1
	return score.Team1 >= need || score.Team2 >= need
}
