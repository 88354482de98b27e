package puzzle

import (
	"fmt"
	"strings"
)

type Difficulty string

const (
	Easy   Difficulty = "easy"
	Normal Difficulty = "normal"
	Hard   Difficulty = "hard"
)

// UnlimitedHints is the hint allowance of presets without a hint limit.
// Any allowance above HintDisplayLimit is shown as unlimited.
const (
	UnlimitedHints   = 999
	HintDisplayLimit = 100
)

// Preset is the allowance and generation brief for one difficulty.
// TurnsMax 0 means the player has unlimited turns.
type Preset struct {
	TurnsMax  int    `json:"turns_max"`
	HintsMax  int    `json:"hints_max"`
	KeyPoints string `json:"key_points"` // range requested from the generator, e.g. "4-6"
	Brief     string `json:"brief"`
}

var presets = map[Difficulty]Preset{
	Easy: {
		TurnsMax:  0,
		HintsMax:  UnlimitedHints,
		KeyPoints: "2-4",
		Brief:     "The logic should be intuitive and the clues fairly visible in the puzzle text. No wild leaps are needed.",
	},
	Normal: {
		TurnsMax:  40,
		HintsMax:  5,
		KeyPoints: "4-6",
		Brief:     "Standard turtle-soup difficulty: the player needs some lateral thinking, and a mental trap or two is welcome.",
	},
	Hard: {
		TurnsMax:  25,
		HintsMax:  0,
		KeyPoints: "6-10",
		Brief:     "Very challenging: the core trick is well hidden and may involve a long causal chain, a psychological blind spot or obscure knowledge.",
	},
}

// ParseDifficulty accepts a difficulty name in any case. Empty means Normal.
func ParseDifficulty(s string) (Difficulty, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return Normal, nil
	}
	d := Difficulty(s)
	if _, ok := presets[d]; !ok {
		return "", fmt.Errorf("unknown difficulty %q", s)
	}
	return d, nil
}

// Preset returns the settings for d. Unknown values fall back to Normal.
func (d Difficulty) Preset() Preset {
	if p, ok := presets[d]; ok {
		return p
	}
	return presets[Normal]
}

// Difficulties lists the presets from easiest to hardest.
func Difficulties() []Difficulty {
	return []Difficulty{Easy, Normal, Hard}
}
