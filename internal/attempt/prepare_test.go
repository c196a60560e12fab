package attempt

import (
	"math/rand"
	"testing"

	"quiz-runner/internal/domain"
)

func TestPrepareKeepsOrderWithoutShuffle(t *testing.T) {
	source := mixedQuestions()
	prepared := Prepare(source, domain.RunConfiguration{}, rand.New(rand.NewSource(7)))

	if len(prepared) != len(source) {
		t.Fatalf("expected %d questions, got %d", len(source), len(prepared))
	}
	for i, q := range prepared {
		if q.ID != source[i].ID || q.SourceIndex != i {
			t.Fatalf("position %d: expected %s, got %s", i, source[i].ID, q.ID)
		}
		if q.CorrectIndex != source[i].CorrectIndex {
			t.Fatalf("position %d: correct index changed", i)
		}
	}
}

func TestShuffledOptionsTrackCorrectAnswer(t *testing.T) {
	source := mixedQuestions()
	cfg := domain.RunConfiguration{ShuffleQuestions: true, ShuffleOptions: true}

	for seed := int64(0); seed < 500; seed++ {
		prepared := Prepare(source, cfg, rand.New(rand.NewSource(seed)))
		for _, q := range prepared {
			original := source[q.SourceIndex]
			if q.ID != original.ID {
				t.Fatalf("seed %d: source index points at the wrong question", seed)
			}
			if q.Kind == domain.FreeText {
				if q.ExpectedAnswer != original.ExpectedAnswer {
					t.Fatalf("seed %d: free-text question was altered", seed)
				}
				continue
			}
			if q.Options[q.CorrectIndex] != original.Options[original.CorrectIndex] {
				t.Fatalf("seed %d: correct option moved from %q to %q", seed,
					original.Options[original.CorrectIndex], q.Options[q.CorrectIndex])
			}
			if !sameElements(q.Options, original.Options) {
				t.Fatalf("seed %d: options are not a permutation: %v", seed, q.Options)
			}
		}
	}
}

func TestPrepareDoesNotMutateSource(t *testing.T) {
	source := mixedQuestions()
	before := append([]string(nil), source[0].Options...)

	Prepare(source, domain.RunConfiguration{ShuffleOptions: true, ShuffleQuestions: true}, rand.New(rand.NewSource(3)))

	for i := range before {
		if source[0].Options[i] != before[i] {
			t.Fatalf("source options were shuffled in place: %v", source[0].Options)
		}
	}
	if source[0].CorrectIndex != 2 {
		t.Fatalf("source correct index changed to %d", source[0].CorrectIndex)
	}
}

func TestQuestionShuffleVisitsEveryOrder(t *testing.T) {
	source := choiceQuestions(3)
	seen := make(map[string]bool)
	for seed := int64(0); seed < 300; seed++ {
		prepared := Prepare(source, domain.RunConfiguration{ShuffleQuestions: true}, rand.New(rand.NewSource(seed)))
		key := ""
		for _, q := range prepared {
			key += q.ID
		}
		seen[key] = true
	}
	if len(seen) != 6 {
		t.Fatalf("expected all 6 orders of 3 questions, saw %d", len(seen))
	}
}

func TestPrepareEmpty(t *testing.T) {
	prepared := Prepare(nil, domain.RunConfiguration{ShuffleQuestions: true, ShuffleOptions: true}, rand.New(rand.NewSource(1)))
	if len(prepared) != 0 {
		t.Fatalf("expected no questions, got %d", len(prepared))
	}
}

func mixedQuestions() []domain.Question {
	return []domain.Question{
		{ID: "capital", Text: "Capital of France?", Kind: domain.MultipleChoice, Options: []string{"Rome", "Madrid", "Paris", "Berlin"}, CorrectIndex: 2},
		{ID: "answer", Text: "The answer?", Kind: domain.FreeText, ExpectedAnswer: "42"},
		{ID: "sum", Text: "2 + 2", Kind: domain.MultipleChoice, Options: []string{"4", "5"}, CorrectIndex: 0},
		{ID: "color", Text: "Sky color", Kind: domain.MultipleChoice, Options: []string{"green", "red", "yellow", "pink", "blue"}, CorrectIndex: 4},
	}
}

func sameElements(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[string]int, len(a))
	for _, s := range a {
		counts[s]++
	}
	for _, s := range b {
		counts[s]--
	}
	for _, c := range counts {
		if c != 0 {
			return false
		}
	}
	return true
}
