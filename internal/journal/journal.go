package journal

import "time"

type Mood string

const (
	MoodStrong     Mood = "strong"
	MoodOkay       Mood = "okay"
	MoodStruggling Mood = "struggling"
)

// ValidMood reports whether m is one of the three accepted moods. Anything
// else is rejected at the service boundary.
func ValidMood(m Mood) bool {
	switch m {
	case MoodStrong, MoodOkay, MoodStruggling:
		return true
	}
	return false
}

type Entry struct {
	Date  time.Time `json:"date"`
	Mood  Mood      `json:"mood"`
	Quote string    `json:"quote"`
}

type AddEntryRequest struct {
	Mood  Mood   `json:"mood"`
	Quote string `json:"quote,omitempty"`
}
