package assessment

import (
	"errors"
	"sync"

	"github.com/stemsi/learning-portal/internal/model"
)

// ErrQuestionIndex is returned for an index outside the assessment.
var ErrQuestionIndex = errors.New("question index out of range")

// Answers tracks one answer per question. Every index is seeded with an empty
// answer so the map is never missing an entry.
type Answers struct {
	mu sync.RWMutex
	m  model.AnswerMap
}

// NewAnswers seeds n empty answers.
func NewAnswers(n int) *Answers {
	m := make(model.AnswerMap, n)
	for i := 0; i < n; i++ {
		m[i] = model.Answer{Answer: ""}
	}
	return &Answers{m: m}
}

// Len returns the number of questions tracked.
func (a *Answers) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.m)
}

// Set replaces the answer at index i only.
func (a *Answers) Set(i int, value string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.m[i]; !ok {
		return ErrQuestionIndex
	}
	a.m[i] = model.Answer{Answer: value}
	return nil
}

// Get returns the answer at index i.
func (a *Answers) Get(i int) string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.m[i].Answer
}

// IsAnswered reports whether index i holds a non-empty answer. Whitespace is
// not trimmed, so "  " counts as answered.
func (a *Answers) IsAnswered(i int) bool {
	return a.Get(i) != ""
}

// AnsweredCount returns how many questions hold a non-empty answer.
func (a *Answers) AnsweredCount() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	n := 0
	for _, v := range a.m {
		if v.Answer != "" {
			n++
		}
	}
	return n
}

// Snapshot returns a copy safe to send or mutate.
func (a *Answers) Snapshot() model.AnswerMap {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make(model.AnswerMap, len(a.m))
	for k, v := range a.m {
		out[k] = v
	}
	return out
}
