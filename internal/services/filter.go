package services

import (
	"strings"

	"golang.org/x/text/cases"
)

// FilterModels returns the models whose id contains query, compared with
// Unicode case folding. An empty query returns every model.
func FilterModels(models []string, query string) []string {
	query = strings.TrimSpace(query)
	if query == "" {
		return models
	}
	fold := cases.Fold()
	needle := fold.String(query)

	var out []string
	for _, m := range models {
		if strings.Contains(fold.String(m), needle) {
			out = append(out, m)
		}
	}
	return out
}
