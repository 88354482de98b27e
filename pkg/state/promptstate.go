package state

// HintAskLimit is how many recent questions a hint prompt sees.
const HintAskLimit = 10

// PromptState is the reduced view of a game that referee prompts are built
// from. It never carries the chat history verbatim.
type PromptState struct {
	Puzzle        string   `json:"puzzle"`
	Answer        string   `json:"answer"`
	KeyPoints     []string `json:"key_points,omitempty"`
	FoundPoints   []string `json:"found_points,omitempty"`
	UnfoundPoints []string `json:"unfound_points,omitempty"`
	Asks          []string `json:"asks,omitempty"`  // recent questions, oldest first
	Hints         []string `json:"hints,omitempty"` // hints already given
}

// ToPromptState reduces gs for the referee. It returns nil before the puzzle
// exists.
func ToPromptState(gs *GameState) *PromptState {
	if gs == nil || gs.Puzzle == nil {
		return nil
	}
	return &PromptState{
		Puzzle:        gs.Puzzle.Puzzle,
		Answer:        gs.Puzzle.Answer,
		KeyPoints:     gs.Puzzle.KeyPoints,
		FoundPoints:   gs.FoundPoints,
		UnfoundPoints: gs.UnfoundPoints(),
		Asks:          gs.AskHistory(HintAskLimit),
		Hints:         gs.PastHints(),
	}
}
