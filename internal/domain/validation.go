package domain

import (
	"math"
	"strconv"
	"strings"
)

// MaxTimeLimitMinutes bounds the countdown a player may configure.
const MaxTimeLimitMinutes = 999

// ParseTimeLimitMinutes converts user input in minutes (decimal point or comma)
// to a whole number of seconds.
func ParseTimeLimitMinutes(raw string) (int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, ErrTimeLimitEmpty
	}
	minutes, err := strconv.ParseFloat(strings.Replace(trimmed, ",", ".", 1), 64)
	if err != nil || math.IsNaN(minutes) || math.IsInf(minutes, 0) {
		return 0, ErrTimeLimitNotValid
	}
	if minutes <= 0 {
		return 0, ErrTimeLimitTooLow
	}
	if minutes > MaxTimeLimitMinutes {
		return 0, ErrTimeLimitTooHigh
	}
	seconds := int(math.Round(minutes * 60))
	if seconds <= 0 {
		return 0, ErrTimeLimitTooLow
	}
	return seconds, nil
}

// NewRunConfiguration validates the optional time limit text; an empty limit
// with hasLimit false means the attempt is unlimited.
func NewRunConfiguration(hasLimit bool, limitMinutes string, shuffleQuestions, shuffleOptions bool) (RunConfiguration, error) {
	cfg := RunConfiguration{ShuffleQuestions: shuffleQuestions, ShuffleOptions: shuffleOptions}
	if !hasLimit {
		return cfg, nil
	}
	seconds, err := ParseTimeLimitMinutes(limitMinutes)
	if err != nil {
		return RunConfiguration{}, err
	}
	cfg.TimeLimitSeconds = &seconds
	return cfg, nil
}

// NormalizeFreeText is the comparison form of a free-text answer.
func NormalizeFreeText(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// SummarizeHistory aggregates entries into HistoryStats.
func SummarizeHistory(entries []HistoryEntry) HistoryStats {
	stats := HistoryStats{}
	if len(entries) == 0 {
		return stats
	}
	totalScore := 0
	for _, e := range entries {
		stats.TotalQuizzes++
		totalScore += e.Score
		stats.TotalCorrect += e.CorrectAnswers
		stats.TotalQuestions += e.TotalQuestions
		stats.TotalTime += e.TimeSpent
		if e.IsExternal {
			stats.ExternalQuizzes++
		}
	}
	stats.AverageScore = int(math.Round(float64(totalScore) / float64(stats.TotalQuizzes)))
	return stats
}
