package attempt

import (
	"math"
	"testing"

	"quiz-runner/internal/domain"
)

func TestScorePercentFormula(t *testing.T) {
	for total := 0; total <= 40; total++ {
		for correct := 0; correct <= total; correct++ {
			want := 0
			if total > 0 {
				want = int(math.Round(float64(correct) / float64(total) * 100))
			}
			if got := ScorePercent(correct, total); got != want {
				t.Fatalf("%d/%d: expected %d, got %d", correct, total, want, got)
			}
		}
	}
	if ScorePercent(1, 8) != 13 {
		t.Fatalf("expected 12.5 to round up to 13")
	}
}

func TestAssembleCounts(t *testing.T) {
	answers := []domain.AnswerRecord{
		{QuestionID: "a", IsCorrect: true},
		{QuestionID: "b", IsCorrect: false},
		{QuestionID: "c", IsCorrect: true},
		{QuestionID: "d", IsCorrect: true},
	}
	res := Assemble(answers, 42)
	if res.TotalQuestions != 4 || res.CorrectCount != 3 || res.IncorrectCount != 1 {
		t.Fatalf("unexpected counts %+v", res)
	}
	if res.ScorePercent != 75 || res.Band != domain.BandVeryGood || res.TotalTimeSeconds != 42 {
		t.Fatalf("unexpected score fields %+v", res)
	}

	answers[0].IsCorrect = false
	if !res.Answers[0].IsCorrect {
		t.Fatalf("result must not alias the caller's answers")
	}
}

func TestIsCorrectChoice(t *testing.T) {
	q := domain.Question{Kind: domain.MultipleChoice, Options: []string{"x", "y"}, CorrectIndex: 1}
	if !IsCorrect(q, 1, "") || IsCorrect(q, 0, "") || IsCorrect(q, domain.NoSelection, "") {
		t.Fatalf("choice comparison must be exact index equality")
	}
	broken := domain.Question{Kind: domain.MultipleChoice, Options: []string{"x"}, CorrectIndex: domain.NoSelection}
	if IsCorrect(broken, domain.NoSelection, "") {
		t.Fatalf("no selection can never be correct")
	}
}
