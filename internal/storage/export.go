package storage

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/jwebster45206/turtle-soup/pkg/state"
)

// ExportRow is one CSV line of the history export.
type ExportRow struct {
	ID         string `csv:"id"`
	Emoji      string `csv:"emoji"`
	Title      string `csv:"title"`
	Tags       string `csv:"tags"`
	Difficulty string `csv:"difficulty"`
	Status     string `csv:"status"`
	Rank       string `csv:"rank"`
	FinalScore int    `csv:"final_score"`
	TurnsUsed  int    `csv:"turns_used"`
	HintsUsed  int    `csv:"hints_used"`
	Found      string `csv:"key_points_found"`
	StartedAt  string `csv:"started_at"`
	UpdatedAt  string `csv:"updated_at"`
}

// ExportCSV writes one row per game, with a header, in the given order.
func ExportCSV(w io.Writer, games []*state.GameState) error {
	rows := make([]*ExportRow, 0, len(games))
	for _, gs := range games {
		s := gs.Summarize()
		total := 0
		if gs.Puzzle != nil {
			total = len(gs.Puzzle.KeyPoints)
		}
		rows = append(rows, &ExportRow{
			ID:         s.ID.String(),
			Emoji:      s.Emoji,
			Title:      s.Title,
			Tags:       s.Tags,
			Difficulty: string(s.Difficulty),
			Status:     string(s.Status),
			Rank:       string(s.Rank),
			FinalScore: s.FinalScore,
			TurnsUsed:  s.TurnsUsed,
			HintsUsed:  s.HintsUsed,
			Found:      strconv.Itoa(s.Found) + "/" + strconv.Itoa(total),
			StartedAt:  s.StartedAt.UTC().Format(time.RFC3339),
			UpdatedAt:  s.UpdatedAt.UTC().Format(time.RFC3339),
		})
	}
	if len(rows) == 0 {
		// gocsv cannot derive a header from an empty slice
		_, err := io.WriteString(w, exportHeader+"\n")
		return err
	}
	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return nil
}

const exportHeader = "id,emoji,title,tags,difficulty,status,rank,final_score,turns_used,hints_used,key_points_found,started_at,updated_at"
