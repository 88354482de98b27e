package puzzle

import "math"

// Rank grades a finished round.
type Rank string

const (
	RankS    Rank = "S"
	RankA    Rank = "A"
	RankB    Rank = "B"
	RankC    Rank = "C"
	RankFail Rank = "F"
	RankNone Rank = "-" // round still in progress
)

const (
	SettleThreshold  = 80 // guess score that unlocks an early settle
	PerfectScore     = 100
	WrongPenalty     = 10
	TurnPenalty      = 2
	baseFinalScore   = 100
	percentageFactor = 100
)

// GuessScore scores one guess: the share of key points matched this round,
// minus a penalty per contradicting segment, clamped to [0, 100].
func GuessScore(matched, total, wrong int) int {
	if total <= 0 {
		return 0
	}
	score := int(math.Round(float64(matched)/float64(total)*percentageFactor)) - wrong*WrongPenalty
	return max(0, min(PerfectScore, score))
}

// FinalScore is the score of a solved round. An early settle with a best guess
// below 100 is scaled by that guess.
func FinalScore(turnsUsed, highest int, early bool) int {
	s := max(0, baseFinalScore-turnsUsed*TurnPenalty)
	if early && highest < PerfectScore {
		s = int(math.Round(float64(s) * float64(highest) / percentageFactor))
	}
	return s
}

// RankFor grades a final score. Failed rounds always rank F.
func RankFor(score int, success bool) Rank {
	switch {
	case !success:
		return RankFail
	case score >= 90:
		return RankS
	case score >= 80:
		return RankA
	case score >= 60:
		return RankB
	default:
		return RankC
	}
}
