package attempt

import (
	"math"

	"quiz-runner/internal/domain"
)

// Assemble computes the scored result from a complete answer list. Both
// completion paths go through it.
func Assemble(answers []domain.AnswerRecord, totalTimeSeconds int) domain.RunResult {
	total := len(answers)
	correct := 0
	for _, a := range answers {
		if a.IsCorrect {
			correct++
		}
	}
	return domain.RunResult{
		TotalQuestions:   total,
		CorrectCount:     correct,
		IncorrectCount:   total - correct,
		ScorePercent:     ScorePercent(correct, total),
		TotalTimeSeconds: totalTimeSeconds,
		Band:             domain.BandFor(ScorePercent(correct, total)),
		Answers:          append([]domain.AnswerRecord{}, answers...),
	}
}

// ScorePercent is round(correct/total*100), or 0 for an empty quiz.
func ScorePercent(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(correct) / float64(total) * 100))
}

// IsCorrect judges a response against the prepared question. Choices compare
// by index; free text compares trimmed, lower-cased strings.
func IsCorrect(q domain.Question, selected int, text string) bool {
	if q.Kind == domain.MultipleChoice {
		return selected != domain.NoSelection && selected == q.CorrectIndex
	}
	return domain.NormalizeFreeText(text) == domain.NormalizeFreeText(q.ExpectedAnswer)
}
