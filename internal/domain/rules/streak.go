package rules

import "time"

// StreakResult is the outcome of a daily practice check-in.
// Persist is false when the day was already counted.
type StreakResult struct {
	Streak  int
	Persist bool
}

// UpdateStreak advances the consecutive-practice-day counter. lastPractice
// and today are compared as calendar dates in UTC; time-of-day is ignored.
func UpdateStreak(current int, lastPractice *time.Time, today time.Time) StreakResult {
	if current < 0 {
		current = 0
	}
	if lastPractice == nil {
		return StreakResult{Streak: 1, Persist: true}
	}

	todayDay := truncateToDay(today)
	lastDay := truncateToDay(*lastPractice)

	switch {
	case lastDay.Equal(todayDay):
		return StreakResult{Streak: current, Persist: false}
	case lastDay.Equal(todayDay.AddDate(0, 0, -1)):
		return StreakResult{Streak: current + 1, Persist: true}
	default:
		return StreakResult{Streak: 1, Persist: true}
	}
}

func truncateToDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
