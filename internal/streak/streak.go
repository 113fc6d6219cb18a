package streak

import "time"

// HistoryEntry is one completed streak attempt. Entries are append-only and
// never mutated once written.
type HistoryEntry struct {
	StartDate     time.Time `json:"startDate"`
	EndDate       time.Time `json:"endDate"`
	DurationHours int       `json:"durationHours"`
}

type Status struct {
	CurrentStreakStart *time.Time     `json:"currentStreakStart"`
	ElapsedHours       int            `json:"elapsedHours"`
	History            []HistoryEntry `json:"streakHistory"`
}

// ElapsedHours returns the whole hours elapsed since start, truncated.
// A nil start means no active streak. Server time is authoritative; if the
// stored start is somehow ahead of now, the result clamps to 0.
func ElapsedHours(start *time.Time, now time.Time) int {
	if start == nil {
		return 0
	}
	diff := now.Sub(*start)
	if diff < 0 {
		return 0
	}
	return int(diff / time.Hour)
}
