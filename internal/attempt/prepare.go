package attempt

import (
	"math/rand"

	"quiz-runner/internal/domain"
)

// Prepare derives the per-attempt question list. Question order and, for
// multiple-choice questions, option order are shuffled when the configuration
// asks for it. The source slice is never modified.
func Prepare(questions []domain.Question, cfg domain.RunConfiguration, rnd *rand.Rand) []domain.PreparedQuestion {
	prepared := make([]domain.PreparedQuestion, len(questions))
	for i, q := range questions {
		q.Options = append([]string(nil), q.Options...)
		prepared[i] = domain.PreparedQuestion{Question: q, SourceIndex: i}
	}

	if cfg.ShuffleQuestions {
		fisherYates(rnd, len(prepared), func(i, j int) {
			prepared[i], prepared[j] = prepared[j], prepared[i]
		})
	}
	if cfg.ShuffleOptions {
		for i := range prepared {
			if prepared[i].Kind == domain.MultipleChoice {
				prepared[i].Question = shuffleOptions(prepared[i].Question, rnd)
			}
		}
	}
	return prepared
}

// shuffleOptions permutes the options and moves CorrectIndex along with the
// option it pointed at.
func shuffleOptions(q domain.Question, rnd *rand.Rand) domain.Question {
	order := make([]int, len(q.Options))
	for i := range order {
		order[i] = i
	}
	fisherYates(rnd, len(order), func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})

	options := make([]string, len(order))
	correct := domain.NoSelection
	for pos, from := range order {
		options[pos] = q.Options[from]
		if from == q.CorrectIndex {
			correct = pos
		}
	}
	q.Options = options
	q.CorrectIndex = correct
	return q
}

func fisherYates(rnd *rand.Rand, n int, swap func(i, j int)) {
	for i := n - 1; i > 0; i-- {
		swap(i, rnd.Intn(i+1))
	}
}
