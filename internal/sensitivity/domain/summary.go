package domain

import (
	"strings"
)

const (
	maxNoteLength = 250
	ellipsis      = "..."
)

// Summarize folds several rows into the lowest code and the distinct,
// lowercased, non-empty notes joined by ";". Notes longer than 250
// characters are cut to 247 and suffixed with "...".
func Summarize(rows []DataSensitivity) (code *int, note string) {
	var notes []string
	seen := make(map[string]struct{})
	for _, row := range rows {
		if row.DataSensitivity != nil && (code == nil || *row.DataSensitivity < *code) {
			v := *row.DataSensitivity
			code = &v
		}
		if row.Note == nil {
			continue
		}
		n := strings.ToLower(strings.TrimSpace(*row.Note))
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		notes = append(notes, n)
	}
	note = strings.Join(notes, ";")
	if r := []rune(note); len(r) > maxNoteLength {
		note = string(r[:maxNoteLength-len(ellipsis)]) + ellipsis
	}
	return code, note
}
