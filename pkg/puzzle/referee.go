package puzzle

import (
	"fmt"
	"strings"
)

// Verdict is the referee's answer to a yes/no question.
type Verdict string

const (
	VerdictYes        Verdict = "yes"
	VerdictNo         Verdict = "no"
	VerdictIrrelevant Verdict = "irrelevant"
	VerdictYesAndNo   Verdict = "yes and no"
)

var verdictAliases = map[string]Verdict{
	"yes":        VerdictYes,
	"no":         VerdictNo,
	"irrelevant": VerdictIrrelevant,
	"yes and no": VerdictYesAndNo,
	"yes-and-no": VerdictYesAndNo,
	"yes & no":   VerdictYesAndNo,
	"both":       VerdictYesAndNo,
}

// ParseVerdict decodes a `{"res": "..."}` reply from the referee.
func ParseVerdict(text string) (Verdict, error) {
	var reply struct {
		Res string `json:"res"`
	}
	if err := decodeJSON(text, &reply); err != nil {
		return "", fmt.Errorf("failed to parse verdict: %w", err)
	}
	key := strings.ToLower(strings.TrimSpace(reply.Res))
	key = strings.TrimRight(key, ".!")
	v, ok := verdictAliases[key]
	if !ok {
		return "", fmt.Errorf("unknown verdict %q", reply.Res)
	}
	return v, nil
}

// DefaultComment stands in when the referee gives no comment on a guess.
const DefaultComment = "Keep going!"

// Judgement is the referee's assessment of one guess. Segments are
// substrings of the guess; achieved points are copied from the key points.
type Judgement struct {
	MatchedSegments []string `json:"matched_segments"`
	WrongSegments   []string `json:"wrong_segments"`
	AchievedPoints  []string `json:"achieved_points"`
	Comment         string   `json:"comment"`
}

// ParseJudgement decodes a guess assessment.
func ParseJudgement(text string) (*Judgement, error) {
	var j Judgement
	if err := decodeJSON(text, &j); err != nil {
		return nil, fmt.Errorf("failed to parse judgement: %w", err)
	}
	if strings.TrimSpace(j.Comment) == "" {
		j.Comment = DefaultComment
	}
	return &j, nil
}

// CleanHint strips reasoning from a hint reply.
func CleanHint(text string) string {
	return strings.TrimSpace(thinkBlock.ReplaceAllString(text, ""))
}
