package prompts

// GeneratePrompt asks the story model for a new puzzle document.
// Arguments: tags, difficulty, difficulty brief, key point range.
const GeneratePrompt = `You are a master of lateral-thinking puzzles. Task: write a tightly reasoned turtle-soup mystery based on the tags [%s].
Writing rules:
  1. The puzzle must rest on physical or psychological logic and be solvable through questions and reasoning within a limited number of turns. Keep the puzzle text short so the player is not buried in detail. Scale the complexity of the answer to the difficulty.
  2. The core trick must be hinted at in the puzzle text. Avoid nonsensical answers, heavy reliance on coincidence, or an answer disconnected from the puzzle.
  3. The puzzle should set up an unusual, gripping scene that makes the player want the truth, and should end by inviting a question such as "What happened?" or "Why?".
  4. The answer should contain a fitting twist, but must stay consistent with the whole puzzle and be reachable by reasoning.
  5. Difficulty: the current difficulty is "%s". %s
Format rules:
  1. Extract %s key points. They are used to match the player's guesses and measure how accurate and complete they are. Each key point is one short sentence covering a key part of the answer and must not repeat anything the puzzle text already reveals.
  2. Choose one emoji that best fits the mood and core theme of the puzzle.
  3. Output strict JSON only: {"emoji":"(emoji for this puzzle)","title":"title","puzzle":"short puzzle text","answer":"the full truth","key_points":["point 1","point 2"]}`

// AskPrompt has the referee answer a yes/no question.
// Arguments: puzzle, answer, question.
const AskPrompt = `Puzzle: %s
Truth: %s
The player asks: %s
Reply with JSON only: {"res":"yes|no|irrelevant|yes and no"}.
Answer "yes" when the question or claim clearly holds in the logic of the truth. Answer "no" when it clearly does not hold. Answer "irrelevant" when it has nothing to do with the puzzle or the truth offers no explanation for it. Answer "yes and no" when the question itself is ambiguous or paradoxical. Do not add any explanation.`

// GuessPrompt has the referee judge a full guess against the key points.
// Arguments: puzzle, answer, key points as JSON, guess.
const GuessPrompt = `You are a turtle-soup referee.
Puzzle: %s
Truth: %s
Key points of the truth: %s
Task: analyse the player's guess "%s".
Check sentence by sentence whether the guess hits the key points.
Return JSON:
{
  "matched_segments": ["fragment of the guess that agrees with a key point"],
  "wrong_segments": ["fragment of the guess that clearly contradicts the truth"],
  "achieved_points": ["key point copied verbatim from the list"],
  "comment": "one gentle, encouraging sentence about the player's reasoning this round, without revealing anything about the puzzle"
}
Note: matched_segments and wrong_segments must be exact substrings of the guess. achieved_points must be items from the key point list that the guess clearly hits.`

// HintPrompt has the referee nudge the player toward a missed key point.
// Arguments: puzzle, answer, found points, unfound points, recent questions,
// past hints.
const HintPrompt = `Puzzle: %s
Truth: %s

Key points the player has found:
%s

Key points the player has not found:
%s

The player's questions so far:
%s

Hints already given:
%s

Task: based on the player's questions and the missing key points, give a single hint phrased as a question that steers the player toward a key point they have not found.
Rules:
1. Do not repeat an earlier hint
2. Do not hint at anything the player has already found
3. Focus on the most important missing key points
4. Build on the direction of the player's questions
5. Do not reveal the answer directly
6. Output only the hint text`

// Placeholders used when a hint prompt list is empty.
const (
	NoneYet    = "(none yet)"
	AllFound   = "(all found)"
	NoQuestion = "(no questions yet)"
)
